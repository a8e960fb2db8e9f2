package eventbus

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type recorder struct {
	subjects []string
	payloads [][]byte
	err      error
}

func (r *recorder) Publish(subject string, data []byte) error {
	r.subjects = append(r.subjects, subject)
	r.payloads = append(r.payloads, data)
	return r.err
}

func TestParseCompleted(t *testing.T) {
	rec := &recorder{}
	n := NewNotifier(rec, zap.NewNop())
	n.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.FixedZone("x", 3600)) }

	n.ParseCompleted(ParseCompleted{Text: "The dog runs.", Strategy: "PCFG", Strategies: []string{"PCFG", "NNDEP"}})

	require.Equal(t, []string{SubjectParseCompleted}, rec.subjects)
	var ev ParseCompleted
	require.NoError(t, json.Unmarshal(rec.payloads[0], &ev))
	assert.NotEmpty(t, ev.ID)
	assert.Equal(t, "The dog runs.", ev.Text)
	assert.Equal(t, []string{"PCFG", "NNDEP"}, ev.Strategies)
	assert.Equal(t, time.Date(2026, 3, 1, 11, 0, 0, 0, time.UTC), ev.Timestamp)
}

func TestPublishFailureIsLogged(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	n := NewNotifier(&recorder{err: errors.New("no responders")}, zap.New(core))

	n.ParseCompleted(ParseCompleted{Text: "x"})

	assert.Equal(t, 1, logs.FilterMessage("publish parse event failed").Len())
}

func TestNilNotifierAndBus(t *testing.T) {
	var n *Notifier
	n.ParseCompleted(ParseCompleted{Text: "x"})

	var b *Bus
	assert.ErrorIs(t, b.Publish(SubjectParseCompleted, nil), nats.ErrConnectionClosed)
	assert.ErrorIs(t, b.Ping(), nats.ErrConnectionClosed)
	b.Close()
}
