package eventbus

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Publisher sends raw payloads. *Bus implements it.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// ParseCompleted is emitted after every successful full parse.
type ParseCompleted struct {
	ID         string    `json:"id"`
	ParseID    string    `json:"parse_id,omitempty"`
	RequestID  string    `json:"request_id,omitempty"`
	Text       string    `json:"text"`
	Strategy   string    `json:"strategy"`
	Strategies []string  `json:"strategies"`
	Overlay    bool      `json:"overlay"`
	Cached     bool      `json:"cached"`
	Timestamp  time.Time `json:"timestamp"`
}

// Notifier publishes parse events without failing the caller.
// A nil *Notifier drops events.
type Notifier struct {
	pub    Publisher
	logger *zap.Logger
	now    func() time.Time
}

func NewNotifier(pub Publisher, logger *zap.Logger) *Notifier {
	return &Notifier{pub: pub, logger: logger, now: time.Now}
}

// ParseCompleted publishes ev on SubjectParseCompleted, filling in the
// event id and timestamp.
func (n *Notifier) ParseCompleted(ev ParseCompleted) {
	if n == nil || n.pub == nil {
		return
	}
	ev.ID = uuid.NewString()
	ev.Timestamp = n.now().UTC()

	data, err := json.Marshal(ev)
	if err != nil {
		n.logger.Error("encode parse event", zap.Error(err))
		return
	}
	if err := n.pub.Publish(SubjectParseCompleted, data); err != nil {
		n.logger.Warn("publish parse event failed", zap.String("subject", SubjectParseCompleted), zap.Error(err))
	}
}
