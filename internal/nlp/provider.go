package nlp

import (
	"context"
	"errors"
)

var (
	// ErrNoParseFound is returned when the parser finds no parse for a sentence.
	ErrNoParseFound = errors.New("no parse found")
	// ErrNoParseAvailable is returned by a query whose last parse did not succeed.
	ErrNoParseAvailable = errors.New("no parse available")
	// ErrPrediction is returned when the dependency parser cannot predict a structure.
	ErrPrediction = errors.New("dependency prediction failed")
)

// Parser is a constituency parsing model. Implementations must be safe for
// concurrent use; per-invocation state lives in the ParserQuery.
type Parser interface {
	Parse(ctx context.Context, tokens []Token) (Tree, error)
	NewQuery() ParserQuery
	// GrammaticalStructure derives CC-processed typed dependencies from a tree.
	GrammaticalStructure(ctx context.Context, tree Tree) (GrammaticalStructure, error)
}

// ParserQuery holds the scratch state of one parse. Never share a query
// between goroutines.
type ParserQuery interface {
	Parse(ctx context.Context, tagged []TaggedToken) error
	BestParse() (Tree, error)
}

// Tagger assigns part-of-speech tags.
type Tagger interface {
	TagSentence(ctx context.Context, tokens []Token) ([]TaggedToken, error)
}

// DependencyParser predicts a dependency structure from tagged tokens.
type DependencyParser interface {
	Predict(ctx context.Context, tagged []TaggedToken) (GrammaticalStructure, error)
}

// GrammaticalStructure exposes typed dependencies.
type GrammaticalStructure interface {
	TypedDependencies() Dependencies
}

// SentenceSplitter tokenizes text into sentences.
type SentenceSplitter interface {
	Split(ctx context.Context, text string) ([][]Token, error)
}

// StaticStructure is a GrammaticalStructure over a fixed edge list.
type StaticStructure Dependencies

func (s StaticStructure) TypedDependencies() Dependencies {
	return Dependencies(s)
}
