// Package parse runs the parse strategies for a sentence and arbitrates
// the canonical answer.
package parse

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/tedgoddard/Stanford/internal/config"
	"github.com/tedgoddard/Stanford/internal/metrics"
	"github.com/tedgoddard/Stanford/internal/pipeline"
	"github.com/tedgoddard/Stanford/internal/registry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var tracer = otel.Tracer("github.com/tedgoddard/Stanford/internal/parse")

// Options configure strategy selection and arbitration.
type Options struct {
	Selection  Selection
	TagPolicy  string
	Strategies []string
	Timeout    time.Duration
}

// OptionsFromConfig maps service configuration onto engine options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Selection: Selection{
			TreeStrategy:       cfg.CanonicalTreeStrategy,
			DependencyStrategy: cfg.CanonicalDependencyStrategy,
		},
		TagPolicy:  cfg.TagPolicy,
		Strategies: cfg.Strategies,
		Timeout:    cfg.StrategyTimeout,
	}
}

// Engine generates candidates with every enabled strategy.
type Engine struct {
	models *registry.Registry
	opts   Options
	logger *zap.Logger
}

// NewEngine creates an engine over the shared models.
func NewEngine(models *registry.Registry, opts Options, logger *zap.Logger) *Engine {
	if len(opts.Strategies) == 0 {
		opts.Strategies = config.AllStrategies
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.TagPolicy == "" {
		opts.TagPolicy = config.TagPolicyCanonical
	}
	return &Engine{models: models, opts: opts, logger: logger}
}

// Parse runs the strategies on the first sentence of req.Text and returns
// the aggregated response.
func (e *Engine) Parse(ctx context.Context, req Request) (*Response, error) {
	ctx, span := tracer.Start(ctx, "parse.Parse")
	defer span.End()

	if strings.TrimSpace(req.Text) == "" {
		return nil, fmt.Errorf("%w: text is required", ErrInvalidRequest)
	}
	if err := e.models.EnsureReady(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModelsUnavailable, err)
	}

	p := e.pipeline()
	sent, rest, err := p.First(ctx, req.Text)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if errors.Is(err, pipeline.ErrNoSentence) {
			return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrModelsUnavailable, err)
	}
	if rest > 0 {
		e.logger.Info("only the first sentence is parsed", zap.Int("ignored_sentences", rest))
	}

	overlay, active := ApplyOverrides(sent.Tagged, req.Overrides)
	run := &strategyRun{
		engine:  e,
		text:    req.Text,
		pipe:    p,
		tokens:  sent.Tokens,
		tagged:  sent.Tagged,
		overlay: overlay,
	}
	tasks := e.plan(run, active)
	span.SetAttributes(
		attribute.Int("parse.tokens", len(sent.Tokens)),
		attribute.Bool("parse.overlay", active),
		attribute.Int("parse.strategies", len(tasks)),
	)

	candidates, failures := e.generate(ctx, tasks)
	if err := ctx.Err(); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("parse interrupted: %w", err)
	}
	if len(candidates) == 0 {
		err := fmt.Errorf("%w: %w", ErrAllStrategiesFailed, errors.Join(failures...))
		span.RecordError(err)
		span.SetStatus(codes.Error, "no candidates")
		return nil, err
	}

	canonical, err := Select(candidates, e.opts.Selection)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.String("parse.canonical", canonical.Strategy))
	resp := Assemble(candidates, canonical, e.opts.TagPolicy)
	resp.Complete = len(failures) == 0
	return resp, nil
}

// ParseSimple returns the PCFG tree and dependencies without running the
// other strategies.
func (e *Engine) ParseSimple(ctx context.Context, text string) (*Simple, error) {
	ctx, span := tracer.Start(ctx, "parse.ParseSimple")
	defer span.End()

	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: text is required", ErrInvalidRequest)
	}
	if err := e.models.EnsureReady(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModelsUnavailable, err)
	}

	p := e.pipeline()
	tokens, err := p.Tokenize(ctx, text)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if errors.Is(err, pipeline.ErrNoSentence) {
			return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrModelsUnavailable, err)
	}

	run := &strategyRun{engine: e, text: text, pipe: p, tokens: tokens}
	candidates, failures := e.generate(ctx, []task{{id: config.StrategyPCFG, fn: run.pcfg}})
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("parse interrupted: %w", err)
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: %w", ErrAllStrategiesFailed, errors.Join(failures...))
	}
	return &Simple{Tree: candidates[0].Tree, Dependencies: candidates[0].Dependencies}, nil
}

func (e *Engine) pipeline() *pipeline.Pipeline {
	return pipeline.New(e.models.Splitter(), e.models.Tagger(), e.models, e.logger)
}

type task struct {
	id string
	fn func(ctx context.Context) (Candidate, error)
}

// plan lists the runnable strategies in generation order.
func (e *Engine) plan(run *strategyRun, overlayActive bool) []task {
	_, hasDep := e.models.DependencyParser()
	candidates := []struct {
		task
		runnable bool
	}{
		{task{config.StrategyPCFG, run.pcfg}, true},
		{task{config.StrategyPCFGLowercase, run.pcfgLowercase}, true},
		{task{config.StrategyPCFGMaxent, run.maxent(SourceBaseline)}, true},
		{task{config.StrategyNNDep, run.nndep(SourceBaseline)}, hasDep},
		{task{config.StrategyPCFGMaxentTagged, run.maxent(SourceOverlay)}, overlayActive},
		{task{config.StrategyNNDepTagged, run.nndep(SourceOverlay)}, overlayActive && hasDep},
	}

	var tasks []task
	for _, c := range candidates {
		if c.runnable && slices.Contains(e.opts.Strategies, c.id) {
			tasks = append(tasks, c.task)
		}
	}
	return tasks
}

// generate runs tasks concurrently and returns the successful candidates
// in task order together with the failures.
func (e *Engine) generate(ctx context.Context, tasks []task) ([]Candidate, []error) {
	results := make([]Candidate, len(tasks))
	errs := make([]error, len(tasks))

	var g errgroup.Group
	for i, t := range tasks {
		g.Go(func() error {
			results[i], errs[i] = e.runTask(ctx, t)
			return nil
		})
	}
	_ = g.Wait()

	var candidates []Candidate
	var failures []error
	for i, t := range tasks {
		if errs[i] != nil {
			failures = append(failures, fmt.Errorf("%s: %w", t.id, errs[i]))
			continue
		}
		candidates = append(candidates, results[i])
	}
	return candidates, failures
}

// runTask runs one strategy under its timeout. A strategy that panics,
// errors or overruns yields no candidate. When the caller's context ends
// first, the caller's error is returned and no failure is counted.
func (e *Engine) runTask(parent context.Context, t task) (cand Candidate, err error) {
	parent, span := tracer.Start(parent, "parse.strategy", traceStrategy(t.id))
	defer span.End()
	start := time.Now()

	ctx, cancel := context.WithTimeout(parent, e.opts.Timeout)
	defer cancel()

	type result struct {
		cand Candidate
		err  error
	}
	done := make(chan result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- result{err: fmt.Errorf("strategy panicked: %v", r)}
			}
		}()
		c, err := t.fn(ctx)
		done <- result{cand: c, err: err}
	}()

	select {
	case r := <-done:
		cand, err = r.cand, r.err
	case <-ctx.Done():
		err = fmt.Errorf("%w after %s", ErrStrategyTimeout, e.opts.Timeout)
	}
	if err == nil && cand.Tree == "" && cand.Dependencies == "" {
		err = errors.New("strategy produced neither tree nor dependencies")
	}

	outcome := "ok"
	switch {
	case err != nil && parent.Err() != nil:
		err = parent.Err()
		outcome = "cancelled"
		span.SetStatus(codes.Error, outcome)
		e.logger.Debug("strategy abandoned", zap.String("strategy", t.id), zap.Error(err))
	case err != nil:
		outcome = "failed"
		reason := "error"
		if errors.Is(err, ErrStrategyTimeout) {
			reason = "timeout"
		}
		metrics.StrategyFailures.WithLabelValues(t.id, reason).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, reason)
		e.logger.Warn("strategy failed", zap.String("strategy", t.id), zap.Error(err))
	}
	metrics.StrategyDuration.WithLabelValues(t.id, outcome).Observe(time.Since(start).Seconds())
	return cand, err
}
