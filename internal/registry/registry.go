// Package registry owns the linguistic model providers shared by all
// requests and guarantees each is loaded at most once.
package registry

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/tedgoddard/Stanford/internal/nlp"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// ErrNotReady is returned by Acquire before EnsureReady succeeded.
var ErrNotReady = errors.New("model registry not ready")

// Loaders construct the providers. DependencyParser may be nil, which
// disables the dependency parser.
type Loaders struct {
	Parser           func(ctx context.Context) (nlp.Parser, error)
	Tagger           func(ctx context.Context) (nlp.Tagger, error)
	Splitter         func(ctx context.Context) (nlp.SentenceSplitter, error)
	DependencyParser func(ctx context.Context) (nlp.DependencyParser, error)
}

// Provider states reported by Status.
const (
	StatusReady       = "ready"
	StatusPending     = "not loaded"
	StatusFailed      = "failed"
	StatusDisabled    = "disabled"
	StatusUnavailable = "unavailable"
)

// Registry holds the shared providers. Providers are safe for concurrent
// use once loaded; per-request state lives in query objects they create.
type Registry struct {
	loaders Loaders
	logger  *zap.Logger
	gate    *semaphore.Weighted

	once   sync.Once
	ready  atomic.Bool
	failed atomic.Bool
	err    error

	parser      nlp.Parser
	tagger      nlp.Tagger
	splitter    nlp.SentenceSplitter
	depParser   nlp.DependencyParser
	depStatus   string
	depDisabled bool
}

// New creates a registry. maxInflight bounds concurrent model invocations;
// 0 means unbounded and 1 serializes every call.
func New(loaders Loaders, maxInflight int64, logger *zap.Logger) *Registry {
	r := &Registry{loaders: loaders, logger: logger, depStatus: StatusPending}
	if maxInflight > 0 {
		r.gate = semaphore.NewWeighted(maxInflight)
	}
	if loaders.DependencyParser == nil {
		r.depStatus = StatusDisabled
		r.depDisabled = true
	}
	return r
}

// EnsureReady loads the providers on first call. Concurrent callers block
// until the first load finishes; afterwards it returns immediately. A
// failed load of a required provider is permanent.
func (r *Registry) EnsureReady(ctx context.Context) error {
	if r.ready.Load() {
		return nil
	}
	r.once.Do(func() {
		r.err = r.load(ctx)
		if r.err != nil {
			r.failed.Store(true)
			return
		}
		r.ready.Store(true)
	})
	return r.err
}

func (r *Registry) load(ctx context.Context) error {
	if r.loaders.Parser == nil || r.loaders.Tagger == nil || r.loaders.Splitter == nil {
		return fmt.Errorf("registry: parser, tagger and splitter loaders are required")
	}

	var err error
	if r.splitter, err = r.loaders.Splitter(ctx); err != nil {
		return fmt.Errorf("load sentence splitter: %w", err)
	}
	if r.parser, err = r.loaders.Parser(ctx); err != nil {
		return fmt.Errorf("load parser: %w", err)
	}
	if r.tagger, err = r.loaders.Tagger(ctx); err != nil {
		return fmt.Errorf("load tagger: %w", err)
	}

	if r.loaders.DependencyParser != nil {
		dp, err := r.loaders.DependencyParser(ctx)
		if err != nil {
			r.logger.Warn("dependency parser unavailable, NNDEP strategies disabled", zap.Error(err))
			r.depStatus = StatusUnavailable
		} else {
			r.depParser = dp
			r.depStatus = StatusReady
		}
	}

	r.logger.Info("models ready", zap.String("depparse", r.depStatus))
	return nil
}

// Ready reports whether EnsureReady has succeeded.
func (r *Registry) Ready() bool {
	return r.ready.Load()
}

// Parser returns the constituency parser, nil before EnsureReady.
func (r *Registry) Parser() nlp.Parser {
	if !r.Ready() {
		return nil
	}
	return r.parser
}

// Tagger returns the part-of-speech tagger, nil before EnsureReady.
func (r *Registry) Tagger() nlp.Tagger {
	if !r.Ready() {
		return nil
	}
	return r.tagger
}

// Splitter returns the sentence splitter, nil before EnsureReady.
func (r *Registry) Splitter() nlp.SentenceSplitter {
	if !r.Ready() {
		return nil
	}
	return r.splitter
}

// DependencyParser returns the dependency parser if it is loaded.
func (r *Registry) DependencyParser() (nlp.DependencyParser, bool) {
	if !r.Ready() || r.depParser == nil {
		return nil, false
	}
	return r.depParser, true
}

// Acquire reserves one model invocation slot. The returned release must be
// called when the invocation finishes.
func (r *Registry) Acquire(ctx context.Context) (func(), error) {
	if !r.Ready() {
		return nil, ErrNotReady
	}
	if r.gate == nil {
		return func() {}, nil
	}
	if err := r.gate.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	return func() { r.gate.Release(1) }, nil
}

// Status reports the state of each provider.
func (r *Registry) Status() map[string]string {
	state, dep := StatusPending, StatusPending
	switch {
	case r.Ready():
		state, dep = StatusReady, r.depStatus
	case r.failed.Load():
		state, dep = StatusFailed, StatusFailed
	}
	if r.depDisabled {
		dep = StatusDisabled
	}
	return map[string]string{
		"parser":   state,
		"tagger":   state,
		"splitter": state,
		"depparse": dep,
	}
}
