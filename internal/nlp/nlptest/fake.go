// Package nlptest provides deterministic in-memory providers for tests.
package nlptest

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync/atomic"
	"time"
	"unicode"

	"github.com/tedgoddard/Stanford/internal/nlp"
)

// Lexicon maps lowercase words to tags. Unknown words are NN, capitalized
// unknown words NNP.
var Lexicon = map[string]string{
	"the": "DT", "a": "DT", "an": "DT",
	"dog": "NN", "cat": "NN", "park": "NN",
	"runs": "VBZ", "sees": "VBZ", "sleeps": "VBZ",
	"in": "IN", "on": "IN",
	"quickly": "RB",
	".": ".", "!": ".", "?": ".", ",": ",",
}

func lookup(word string) string {
	if tag, ok := Lexicon[strings.ToLower(word)]; ok {
		return tag
	}
	if r := []rune(word); len(r) > 0 && unicode.IsUpper(r[0]) {
		return "NNP"
	}
	return "NN"
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// Splitter splits on . ! ? and whitespace, detaching punctuation.
type Splitter struct {
	Err error
}

var tokenRe = regexp.MustCompile(`[\p{L}\p{N}'-]+|[^\s\p{L}\p{N}]`)

func (s *Splitter) Split(ctx context.Context, text string) ([][]nlp.Token, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	var sentences [][]nlp.Token
	var words []string
	for _, w := range tokenRe.FindAllString(text, -1) {
		words = append(words, w)
		if w == "." || w == "!" || w == "?" {
			sentences = append(sentences, nlp.NewTokens(words))
			words = nil
		}
	}
	if len(words) > 0 {
		sentences = append(sentences, nlp.NewTokens(words))
	}
	return sentences, nil
}

// Tagger tags from Lexicon.
type Tagger struct {
	Err   error
	Calls atomic.Int64
}

func (t *Tagger) TagSentence(ctx context.Context, tokens []nlp.Token) ([]nlp.TaggedToken, error) {
	t.Calls.Add(1)
	if t.Err != nil {
		return nil, t.Err
	}
	out := make([]nlp.TaggedToken, len(tokens))
	for i, tok := range tokens {
		out[i] = nlp.TaggedToken{Token: tok, Tag: lookup(tok.Word)}
	}
	return out, nil
}

// Parser builds flat trees "(ROOT (S (TAG word) ...))". Untagged input is
// tagged from Lexicon, so case changes can change the tree.
type Parser struct {
	ParseErr     error
	QueryErr     error
	StructureErr error
	// Delay is applied to every parse; it honours cancellation.
	Delay time.Duration
	// FailTags makes tagged parses fail when any tag is in the set.
	FailTags map[string]bool

	Queries atomic.Int64
}

func (p *Parser) Parse(ctx context.Context, tokens []nlp.Token) (nlp.Tree, error) {
	if err := wait(ctx, p.Delay); err != nil {
		return "", err
	}
	if p.ParseErr != nil {
		return "", p.ParseErr
	}
	return Flat(tag(tokens)), nil
}

func (p *Parser) NewQuery() nlp.ParserQuery {
	p.Queries.Add(1)
	return &query{parser: p}
}

func (p *Parser) GrammaticalStructure(ctx context.Context, tree nlp.Tree) (nlp.GrammaticalStructure, error) {
	if p.StructureErr != nil {
		return nil, p.StructureErr
	}
	return nlp.StaticStructure(Chain(Leaves(tree), "dep")), nil
}

type query struct {
	parser *Parser
	best   nlp.Tree
	used   atomic.Bool
}

func (q *query) Parse(ctx context.Context, tagged []nlp.TaggedToken) error {
	if !q.used.CompareAndSwap(false, true) {
		panic("nlptest: parser query reused")
	}
	q.best = ""
	if err := wait(ctx, q.parser.Delay); err != nil {
		return err
	}
	if q.parser.QueryErr != nil {
		return q.parser.QueryErr
	}
	for _, t := range tagged {
		if q.parser.FailTags[t.Tag] {
			return fmt.Errorf("%w: tag %s", nlp.ErrNoParseFound, t.Tag)
		}
	}
	q.best = Flat(tagged)
	return nil
}

func (q *query) BestParse() (nlp.Tree, error) {
	if q.best == "" {
		return "", nlp.ErrNoParseAvailable
	}
	return q.best, nil
}

// DependencyParser chains tokens with "nndep" relations.
type DependencyParser struct {
	Err   error
	Delay time.Duration
	Calls atomic.Int64
}

func (d *DependencyParser) Predict(ctx context.Context, tagged []nlp.TaggedToken) (nlp.GrammaticalStructure, error) {
	d.Calls.Add(1)
	if err := wait(ctx, d.Delay); err != nil {
		return nil, err
	}
	if d.Err != nil {
		return nil, d.Err
	}
	return nlp.StaticStructure(Chain(tagged, "nndep")), nil
}

func tag(tokens []nlp.Token) []nlp.TaggedToken {
	out := make([]nlp.TaggedToken, len(tokens))
	for i, tok := range tokens {
		out[i] = nlp.TaggedToken{Token: tok, Tag: lookup(tok.Word)}
	}
	return out
}

// Flat renders the tree the fake parser produces for tagged.
func Flat(tagged []nlp.TaggedToken) nlp.Tree {
	var b strings.Builder
	b.WriteString("(ROOT (S")
	for _, t := range tagged {
		fmt.Fprintf(&b, " (%s %s)", t.Tag, t.Word)
	}
	b.WriteString("))")
	return nlp.Tree(b.String())
}

var leafRe = regexp.MustCompile(`\(([^\s()]+) ([^\s()]+)\)`)

// Leaves recovers the tagged words of a flat tree.
func Leaves(tree nlp.Tree) []nlp.TaggedToken {
	var out []nlp.TaggedToken
	for i, m := range leafRe.FindAllStringSubmatch(string(tree), -1) {
		out = append(out, nlp.TaggedToken{Token: nlp.Token{Index: i, Word: m[2]}, Tag: m[1]})
	}
	return out
}

// Chain attaches the first word to ROOT and every later word to the first.
func Chain(tagged []nlp.TaggedToken, rel nlp.Relation) nlp.Dependencies {
	if len(tagged) == 0 {
		return nil
	}
	head := tagged[0].Word
	deps := nlp.Dependencies{{Relation: "root", Governor: nlp.RootWord, Dependent: head, DependentIndex: 1}}
	for i, t := range tagged[1:] {
		deps = append(deps, nlp.TypedDependency{
			Relation:       rel,
			Governor:       head,
			GovernorIndex:  1,
			Dependent:      t.Word,
			DependentIndex: i + 2,
		})
	}
	return deps
}
