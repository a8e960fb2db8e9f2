package modelclient

import (
	"context"
	"fmt"

	"github.com/tedgoddard/Stanford/internal/nlp"
)

type taggedWord struct {
	Word string `json:"word"`
	Tag  string `json:"tag"`
}

type parseRequest struct {
	Words  []string     `json:"words,omitempty"`
	Tagged []taggedWord `json:"tagged,omitempty"`
}

type treeResponse struct {
	Tree string `json:"tree"`
}

type dependenciesResponse struct {
	Dependencies nlp.Dependencies `json:"dependencies"`
}

func toWire(tagged []nlp.TaggedToken) []taggedWord {
	out := make([]taggedWord, len(tagged))
	for i, t := range tagged {
		out[i] = taggedWord{Word: t.Word, Tag: t.Tag}
	}
	return out
}

// LoadParser loads the constituency model and returns its provider.
func (c *Client) LoadParser(ctx context.Context, path string) (nlp.Parser, error) {
	if err := c.Load(ctx, KindParser, path); err != nil {
		return nil, err
	}
	return &Parser{client: c}, nil
}

// LoadTagger loads the tagging model and returns its provider.
func (c *Client) LoadTagger(ctx context.Context, path string) (nlp.Tagger, error) {
	if err := c.Load(ctx, KindTagger, path); err != nil {
		return nil, err
	}
	return &Tagger{client: c}, nil
}

// LoadDependencyParser loads the neural dependency model and returns its provider.
func (c *Client) LoadDependencyParser(ctx context.Context, path string) (nlp.DependencyParser, error) {
	if err := c.Load(ctx, KindDepParse, path); err != nil {
		return nil, err
	}
	return &DependencyParser{client: c}, nil
}

// LoadSplitter prepares the tokenizer / sentence splitter.
func (c *Client) LoadSplitter(ctx context.Context) (nlp.SentenceSplitter, error) {
	if err := c.Load(ctx, KindSplitter, "ptb"); err != nil {
		return nil, err
	}
	return &Splitter{client: c}, nil
}

// Parser is the remote constituency parser.
type Parser struct {
	client *Client
}

func (p *Parser) Parse(ctx context.Context, tokens []nlp.Token) (nlp.Tree, error) {
	var resp treeResponse
	if err := p.client.post(ctx, "/parse", parseRequest{Words: nlp.Words(tokens)}, &resp); err != nil {
		if isUnprocessable(err) {
			return "", fmt.Errorf("%w: %v", nlp.ErrNoParseFound, err)
		}
		return "", err
	}
	if resp.Tree == "" {
		return "", nlp.ErrNoParseFound
	}
	return nlp.Tree(resp.Tree), nil
}

func (p *Parser) NewQuery() nlp.ParserQuery {
	return &query{client: p.client}
}

type grammaticalRequest struct {
	Tree string `json:"tree"`
	Mode string `json:"mode"`
}

func (p *Parser) GrammaticalStructure(ctx context.Context, tree nlp.Tree) (nlp.GrammaticalStructure, error) {
	var resp dependenciesResponse
	req := grammaticalRequest{Tree: string(tree), Mode: "cc_processed"}
	if err := p.client.post(ctx, "/grammatical-structure", req, &resp); err != nil {
		return nil, err
	}
	return nlp.StaticStructure(resp.Dependencies), nil
}

// query keeps the result of its last parse, like a parser's scratch space.
type query struct {
	client *Client
	best   nlp.Tree
	err    error
}

func (q *query) Parse(ctx context.Context, tagged []nlp.TaggedToken) error {
	return q.run(ctx, parseRequest{Tagged: toWire(tagged)})
}

func (q *query) run(ctx context.Context, req parseRequest) error {
	q.best, q.err = "", nil
	var resp treeResponse
	if err := q.client.post(ctx, "/parse", req, &resp); err != nil {
		if isUnprocessable(err) {
			err = fmt.Errorf("%w: %v", nlp.ErrNoParseFound, err)
		}
		q.err = err
		return err
	}
	if resp.Tree == "" {
		q.err = nlp.ErrNoParseFound
		return q.err
	}
	q.best = nlp.Tree(resp.Tree)
	return nil
}

func (q *query) BestParse() (nlp.Tree, error) {
	if q.best == "" {
		return "", nlp.ErrNoParseAvailable
	}
	return q.best, nil
}

// Tagger is the remote part-of-speech tagger.
type Tagger struct {
	client *Client
}

type tagRequest struct {
	Words []string `json:"words"`
}

type tagResponse struct {
	Tagged []taggedWord `json:"tagged"`
}

func (t *Tagger) TagSentence(ctx context.Context, tokens []nlp.Token) ([]nlp.TaggedToken, error) {
	var resp tagResponse
	if err := t.client.post(ctx, "/tag", tagRequest{Words: nlp.Words(tokens)}, &resp); err != nil {
		return nil, err
	}
	if len(resp.Tagged) != len(tokens) {
		return nil, fmt.Errorf("tagger returned %d tags for %d tokens", len(resp.Tagged), len(tokens))
	}
	out := make([]nlp.TaggedToken, len(tokens))
	for i, tok := range tokens {
		out[i] = nlp.TaggedToken{Token: tok, Tag: resp.Tagged[i].Tag}
	}
	return out, nil
}

// DependencyParser is the remote neural dependency parser.
type DependencyParser struct {
	client *Client
}

type depparseRequest struct {
	Tagged []taggedWord `json:"tagged"`
}

func (d *DependencyParser) Predict(ctx context.Context, tagged []nlp.TaggedToken) (nlp.GrammaticalStructure, error) {
	var resp dependenciesResponse
	if err := d.client.post(ctx, "/depparse", depparseRequest{Tagged: toWire(tagged)}, &resp); err != nil {
		if isUnprocessable(err) {
			return nil, fmt.Errorf("%w: %v", nlp.ErrPrediction, err)
		}
		return nil, err
	}
	return nlp.StaticStructure(resp.Dependencies), nil
}

// Splitter is the remote tokenizer and sentence splitter.
type Splitter struct {
	client *Client
}

type splitRequest struct {
	Text string `json:"text"`
}

type splitResponse struct {
	Sentences [][]string `json:"sentences"`
}

func (s *Splitter) Split(ctx context.Context, text string) ([][]nlp.Token, error) {
	var resp splitResponse
	if err := s.client.post(ctx, "/split", splitRequest{Text: text}, &resp); err != nil {
		return nil, err
	}
	sentences := make([][]nlp.Token, 0, len(resp.Sentences))
	for _, words := range resp.Sentences {
		if len(words) == 0 {
			continue
		}
		sentences = append(sentences, nlp.NewTokens(words))
	}
	return sentences, nil
}
