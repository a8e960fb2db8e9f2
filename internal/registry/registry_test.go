package registry_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tedgoddard/Stanford/internal/nlp"
	"github.com/tedgoddard/Stanford/internal/nlp/nlptest"
	"github.com/tedgoddard/Stanford/internal/registry"
	"go.uber.org/zap"
)

type counters struct {
	parser, tagger, splitter, dep atomic.Int64
}

func loaders(c *counters, withDep bool) registry.Loaders {
	l := registry.Loaders{
		Parser: func(ctx context.Context) (nlp.Parser, error) {
			c.parser.Add(1)
			time.Sleep(10 * time.Millisecond)
			return &nlptest.Parser{}, nil
		},
		Tagger: func(ctx context.Context) (nlp.Tagger, error) {
			c.tagger.Add(1)
			return &nlptest.Tagger{}, nil
		},
		Splitter: func(ctx context.Context) (nlp.SentenceSplitter, error) {
			c.splitter.Add(1)
			return &nlptest.Splitter{}, nil
		},
	}
	if withDep {
		l.DependencyParser = func(ctx context.Context) (nlp.DependencyParser, error) {
			c.dep.Add(1)
			return &nlptest.DependencyParser{}, nil
		}
	}
	return l
}

func TestEnsureReadyLoadsOnceUnderConcurrency(t *testing.T) {
	var c counters
	r := registry.New(loaders(&c, true), 0, zap.NewNop())

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, r.EnsureReady(context.Background()))
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, c.parser.Load())
	assert.EqualValues(t, 1, c.tagger.Load())
	assert.EqualValues(t, 1, c.splitter.Load())
	assert.EqualValues(t, 1, c.dep.Load())
	assert.True(t, r.Ready())
	assert.NotNil(t, r.Parser())
	assert.NotNil(t, r.Tagger())
	assert.NotNil(t, r.Splitter())
	_, ok := r.DependencyParser()
	assert.True(t, ok)
}

func TestProvidersUnsetBeforeReady(t *testing.T) {
	var c counters
	r := registry.New(loaders(&c, true), 0, zap.NewNop())

	assert.False(t, r.Ready())
	assert.Nil(t, r.Parser())
	_, ok := r.DependencyParser()
	assert.False(t, ok)
	_, err := r.Acquire(context.Background())
	assert.ErrorIs(t, err, registry.ErrNotReady)
	assert.Equal(t, registry.StatusPending, r.Status()["parser"])
}

func TestDisabledDependencyParser(t *testing.T) {
	var c counters
	r := registry.New(loaders(&c, false), 0, zap.NewNop())
	require.NoError(t, r.EnsureReady(context.Background()))

	_, ok := r.DependencyParser()
	assert.False(t, ok)
	assert.Equal(t, registry.StatusDisabled, r.Status()["depparse"])
	assert.Equal(t, registry.StatusReady, r.Status()["parser"])
}

func TestRequiredProviderFailureIsPermanent(t *testing.T) {
	var c counters
	l := loaders(&c, true)
	boom := errors.New("model file missing")
	var taggerCalls atomic.Int64
	l.Tagger = func(ctx context.Context) (nlp.Tagger, error) {
		taggerCalls.Add(1)
		return nil, boom
	}
	r := registry.New(l, 0, zap.NewNop())

	err := r.EnsureReady(context.Background())
	require.ErrorIs(t, err, boom)
	assert.ErrorIs(t, r.EnsureReady(context.Background()), boom)
	assert.EqualValues(t, 1, taggerCalls.Load())
	assert.False(t, r.Ready())
	assert.Equal(t, registry.StatusFailed, r.Status()["tagger"])
}

func TestOptionalProviderFailureDegrades(t *testing.T) {
	var c counters
	l := loaders(&c, true)
	l.DependencyParser = func(ctx context.Context) (nlp.DependencyParser, error) {
		return nil, errors.New("no such model")
	}
	r := registry.New(l, 0, zap.NewNop())

	require.NoError(t, r.EnsureReady(context.Background()))
	_, ok := r.DependencyParser()
	assert.False(t, ok)
	assert.Equal(t, registry.StatusUnavailable, r.Status()["depparse"])
}

func TestAcquireSerializesWithMaxInflightOne(t *testing.T) {
	var c counters
	r := registry.New(loaders(&c, false), 1, zap.NewNop())
	require.NoError(t, r.EnsureReady(context.Background()))

	release, err := r.Acquire(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = r.Acquire(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	release()
	release2, err := r.Acquire(context.Background())
	require.NoError(t, err)
	release2()
}
