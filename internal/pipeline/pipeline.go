// Package pipeline turns raw text into tokenized, baseline-tagged sentences.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"github.com/tedgoddard/Stanford/internal/nlp"
	"go.uber.org/zap"
)

// ErrNoSentence is returned when the text contains no tokens.
var ErrNoSentence = errors.New("text contains no sentence")

// Sentence is one tokenized sentence with its baseline tags. Of is the
// number of sentences found in the text.
type Sentence struct {
	Tokens []nlp.Token
	Tagged []nlp.TaggedToken
	Of     int
}

// Gate bounds concurrent model invocations.
type Gate interface {
	Acquire(ctx context.Context) (func(), error)
}

// Pipeline splits and tags text.
type Pipeline struct {
	splitter nlp.SentenceSplitter
	tagger   nlp.Tagger
	gate     Gate
	logger   *zap.Logger
}

// New creates a pipeline. gate may be nil.
func New(splitter nlp.SentenceSplitter, tagger nlp.Tagger, gate Gate, logger *zap.Logger) *Pipeline {
	return &Pipeline{splitter: splitter, tagger: tagger, gate: gate, logger: logger}
}

// Sentences yields each sentence of text, tagging lazily as the caller
// advances. The sequence is single pass: ranging over it a second time
// yields nothing. Iteration stops after the first error.
func (p *Pipeline) Sentences(ctx context.Context, text string) iter.Seq2[Sentence, error] {
	tokenized := p.tokenized(ctx, text)
	return func(yield func(Sentence, error) bool) {
		for s, err := range tokenized {
			if err != nil {
				yield(s, err)
				return
			}
			s.Tagged, err = p.tag(ctx, s.Tokens)
			if !yield(s, err) || err != nil {
				return
			}
		}
	}
}

// First tokenizes and tags only the first sentence of text. It also
// returns how many further sentences were found and left unprocessed.
func (p *Pipeline) First(ctx context.Context, text string) (Sentence, int, error) {
	for s, err := range p.Sentences(ctx, text) {
		if err != nil {
			return Sentence{}, 0, err
		}
		return s, s.Of - 1, nil
	}
	return Sentence{}, 0, ErrNoSentence
}

// Tokenize returns the tokens of the first sentence of text without tagging.
func (p *Pipeline) Tokenize(ctx context.Context, text string) ([]nlp.Token, error) {
	for s, err := range p.tokenized(ctx, text) {
		if err != nil {
			return nil, err
		}
		return s.Tokens, nil
	}
	return nil, ErrNoSentence
}

// tokenized is the untagged, single-pass form of Sentences.
func (p *Pipeline) tokenized(ctx context.Context, text string) iter.Seq2[Sentence, error] {
	consumed := false
	return func(yield func(Sentence, error) bool) {
		if consumed {
			return
		}
		consumed = true

		sentences, err := p.split(ctx, text)
		if err != nil {
			yield(Sentence{}, err)
			return
		}
		for _, tokens := range sentences {
			if !yield(Sentence{Tokens: tokens, Of: len(sentences)}, nil) {
				return
			}
		}
	}
}

func (p *Pipeline) split(ctx context.Context, text string) ([][]nlp.Token, error) {
	release, err := p.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	sentences, err := p.splitter.Split(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("split sentences: %w", err)
	}
	nonEmpty := sentences[:0:0]
	for _, s := range sentences {
		if len(s) > 0 {
			nonEmpty = append(nonEmpty, s)
		}
	}
	p.logger.Debug("tokenized", zap.Int("sentences", len(nonEmpty)))
	return nonEmpty, nil
}

func (p *Pipeline) tag(ctx context.Context, tokens []nlp.Token) ([]nlp.TaggedToken, error) {
	release, err := p.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	tagged, err := p.tagger.TagSentence(ctx, tokens)
	if err != nil {
		return nil, fmt.Errorf("tag sentence: %w", err)
	}
	p.logger.Debug("tagged words", zap.Strings("tagged", nlp.TagStrings(tagged)))
	return tagged, nil
}

func (p *Pipeline) acquire(ctx context.Context) (func(), error) {
	if p.gate == nil {
		return func() {}, nil
	}
	return p.gate.Acquire(ctx)
}
