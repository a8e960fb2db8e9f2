package nlp

import (
	"fmt"
	"strings"
)

// RootWord is the governor word of the root relation.
const RootWord = "ROOT"

// Token is a surface word at a zero-based position in a sentence.
type Token struct {
	Index int    `json:"index"`
	Word  string `json:"word"`
}

// TaggedToken is a token with a part-of-speech tag.
type TaggedToken struct {
	Token
	Tag string `json:"tag"`
}

// String renders the token as word/TAG.
func (t TaggedToken) String() string {
	return t.Word + "/" + t.Tag
}

// Tree is a serialized bracketed constituency structure, e.g. "(ROOT (S ...))".
type Tree string

func (t Tree) String() string {
	return string(t)
}

// Relation is a grammatical relation label such as nsubj or det.
type Relation string

// TypedDependency is a labeled head->dependent edge. Indices are one-based,
// 0 is the artificial root.
type TypedDependency struct {
	Relation       Relation `json:"rel"`
	Governor       string   `json:"gov"`
	GovernorIndex  int      `json:"govIndex"`
	Dependent      string   `json:"dep"`
	DependentIndex int      `json:"depIndex"`
}

// String renders the edge as rel(gov-i, dep-j).
func (d TypedDependency) String() string {
	return fmt.Sprintf("%s(%s-%d, %s-%d)", d.Relation, d.Governor, d.GovernorIndex, d.Dependent, d.DependentIndex)
}

// Dependencies is an ordered list of typed dependencies.
type Dependencies []TypedDependency

// String renders the list as [a, b, ...].
func (ds Dependencies) String() string {
	parts := make([]string, len(ds))
	for i, d := range ds {
		parts[i] = d.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// NewTokens numbers words from zero.
func NewTokens(words []string) []Token {
	tokens := make([]Token, len(words))
	for i, w := range words {
		tokens[i] = Token{Index: i, Word: w}
	}
	return tokens
}

// Words returns the surface strings of tokens.
func Words(tokens []Token) []string {
	words := make([]string, len(tokens))
	for i, t := range tokens {
		words[i] = t.Word
	}
	return words
}

// TagStrings renders each tagged token as word/TAG.
func TagStrings(tagged []TaggedToken) []string {
	out := make([]string, len(tagged))
	for i, t := range tagged {
		out[i] = t.String()
	}
	return out
}
