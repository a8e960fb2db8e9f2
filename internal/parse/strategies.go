package parse

import (
	"context"
	"fmt"
	"strings"

	"github.com/tedgoddard/Stanford/internal/config"
	"github.com/tedgoddard/Stanford/internal/nlp"
	"github.com/tedgoddard/Stanford/internal/pipeline"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

func traceStrategy(id string) trace.SpanStartOption {
	return trace.WithAttributes(attribute.String("parse.strategy", id))
}

// strategyRun holds the request-scoped inputs shared by the strategies.
// Nothing in it is mutated once the strategies start.
type strategyRun struct {
	engine  *Engine
	text    string
	pipe    *pipeline.Pipeline
	tokens  []nlp.Token
	tagged  []nlp.TaggedToken
	overlay []nlp.TaggedToken
}

// call runs fn while holding a model invocation slot.
func (r *strategyRun) call(ctx context.Context, fn func() error) error {
	release, err := r.engine.models.Acquire(ctx)
	if err != nil {
		return err
	}
	defer release()
	return fn()
}

func (r *strategyRun) pcfg(ctx context.Context) (Candidate, error) {
	return r.parseWords(ctx, config.StrategyPCFG, r.tokens)
}

func (r *strategyRun) pcfgLowercase(ctx context.Context) (Candidate, error) {
	tokens, err := r.pipe.Tokenize(ctx, strings.ToLower(r.text))
	if err != nil {
		return Candidate{}, err
	}
	return r.parseWords(ctx, config.StrategyPCFGLowercase, tokens)
}

// parseWords parses untagged tokens and derives CC-processed dependencies
// from the tree. A dependency failure keeps the tree-only candidate.
func (r *strategyRun) parseWords(ctx context.Context, id string, tokens []nlp.Token) (Candidate, error) {
	parser := r.engine.models.Parser()

	var tree nlp.Tree
	err := r.call(ctx, func() (err error) {
		tree, err = parser.Parse(ctx, tokens)
		return err
	})
	if err != nil {
		return Candidate{}, fmt.Errorf("parse: %w", err)
	}

	cand := Candidate{Strategy: id, Tree: tree.String(), Source: SourceBaseline}

	var structure nlp.GrammaticalStructure
	err = r.call(ctx, func() (err error) {
		structure, err = parser.GrammaticalStructure(ctx, tree)
		return err
	})
	if err != nil {
		r.engine.logger.Warn("grammatical structure failed, keeping tree only",
			zap.String("strategy", id), zap.Error(err))
		return cand, nil
	}
	if deps := structure.TypedDependencies(); len(deps) > 0 {
		cand.Dependencies = deps.String()
	}
	return cand, nil
}

// maxent parses with a fresh query seeded with tagged tokens.
func (r *strategyRun) maxent(source Source) func(ctx context.Context) (Candidate, error) {
	id, tagged := config.StrategyPCFGMaxent, r.tagged
	if source == SourceOverlay {
		id, tagged = config.StrategyPCFGMaxentTagged, r.overlay
	}
	return func(ctx context.Context) (Candidate, error) {
		query := r.engine.models.Parser().NewQuery()

		var tree nlp.Tree
		err := r.call(ctx, func() error {
			if err := query.Parse(ctx, tagged); err != nil {
				return err
			}
			var err error
			tree, err = query.BestParse()
			return err
		})
		if err != nil {
			return Candidate{}, fmt.Errorf("tagged parse: %w", err)
		}
		r.engine.logger.Debug("tagged parse", zap.String("strategy", id), zap.String("tree", tree.String()))
		return Candidate{
			Strategy: id,
			Tree:     tree.String(),
			Tags:     nlp.TagStrings(tagged),
			Source:   source,
		}, nil
	}
}

// nndep predicts dependencies directly from tagged tokens.
func (r *strategyRun) nndep(source Source) func(ctx context.Context) (Candidate, error) {
	id, tagged := config.StrategyNNDep, r.tagged
	if source == SourceOverlay {
		id, tagged = config.StrategyNNDepTagged, r.overlay
	}
	return func(ctx context.Context) (Candidate, error) {
		dp, ok := r.engine.models.DependencyParser()
		if !ok {
			return Candidate{}, fmt.Errorf("dependency parser not loaded")
		}

		var structure nlp.GrammaticalStructure
		err := r.call(ctx, func() (err error) {
			structure, err = dp.Predict(ctx, tagged)
			return err
		})
		if err != nil {
			return Candidate{}, fmt.Errorf("predict: %w", err)
		}
		deps := structure.TypedDependencies()
		if len(deps) == 0 {
			return Candidate{}, fmt.Errorf("%w: empty structure", nlp.ErrPrediction)
		}
		return Candidate{
			Strategy:     id,
			Dependencies: deps.String(),
			Tags:         nlp.TagStrings(tagged),
			Source:       source,
		}, nil
	}
}
