package modelclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tedgoddard/Stanford/internal/config"
	"github.com/tedgoddard/Stanford/internal/middleware"
	"github.com/tedgoddard/Stanford/internal/nlp"
	"go.uber.org/zap"
)

// sidecar is a scripted model service.
type sidecar struct {
	mu     sync.Mutex
	loaded map[string]string
	status map[string]int
}

func newSidecar() *sidecar {
	return &sidecar{loaded: map[string]string{}, status: map[string]int{}}
}

func (s *sidecar) fail(path string, code int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status[path] = code
}

func (s *sidecar) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	code, failing := s.status[r.URL.Path]
	s.mu.Unlock()
	if failing {
		http.Error(w, "scripted failure", code)
		return
	}

	var body map[string]json.RawMessage
	if r.Method == http.MethodPost {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	reply := func(v interface{}) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(v)
	}

	switch r.URL.Path {
	case "/health":
		w.WriteHeader(http.StatusOK)
	case "/models/parser/load", "/models/tagger/load", "/models/depparse/load", "/models/splitter/load":
		var path string
		_ = json.Unmarshal(body["path"], &path)
		s.mu.Lock()
		s.loaded[r.URL.Path] = path
		s.mu.Unlock()
		reply(map[string]bool{"loaded": true})
	case "/split":
		reply(map[string]interface{}{"sentences": [][]string{{"The", "dog", "runs", "."}, {}, {"Hi", "."}}})
	case "/tag":
		var words []string
		_ = json.Unmarshal(body["words"], &words)
		tagged := make([]taggedWord, len(words))
		for i, w := range words {
			tagged[i] = taggedWord{Word: w, Tag: "NN"}
		}
		reply(map[string]interface{}{"tagged": tagged})
	case "/parse":
		if _, ok := body["tagged"]; ok {
			reply(treeResponse{Tree: "(ROOT (NP (NN tagged)))"})
			return
		}
		reply(treeResponse{Tree: "(ROOT (NP (NN words)))"})
	case "/grammatical-structure":
		var mode string
		_ = json.Unmarshal(body["mode"], &mode)
		if mode != "cc_processed" {
			http.Error(w, "bad mode", http.StatusBadRequest)
			return
		}
		reply(dependenciesResponse{Dependencies: nlp.Dependencies{
			{Relation: "root", Governor: nlp.RootWord, Dependent: "dog", DependentIndex: 2},
		}})
	case "/depparse":
		reply(dependenciesResponse{Dependencies: nlp.Dependencies{
			{Relation: "det", Governor: "dog", GovernorIndex: 2, Dependent: "The", DependentIndex: 1},
		}})
	default:
		http.NotFound(w, r)
	}
}

func newTestClient(t *testing.T, s *sidecar, breaker *middleware.CircuitBreaker) *Client {
	t.Helper()
	srv := httptest.NewServer(s)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL+"/", breaker, zap.NewNop())
}

func tagged(words ...string) []nlp.TaggedToken {
	out := make([]nlp.TaggedToken, len(words))
	for i, w := range words {
		out[i] = nlp.TaggedToken{Token: nlp.Token{Index: i, Word: w}, Tag: "NN"}
	}
	return out
}

func TestLoadersRegisterModelPaths(t *testing.T) {
	s := newSidecar()
	c := newTestClient(t, s, nil)
	ctx := context.Background()

	_, err := c.LoadParser(ctx, "englishPCFG.ser.gz")
	require.NoError(t, err)
	_, err = c.LoadTagger(ctx, "left3words.tagger")
	require.NoError(t, err)
	_, err = c.LoadDependencyParser(ctx, "english_UD.gz")
	require.NoError(t, err)
	_, err = c.LoadSplitter(ctx)
	require.NoError(t, err)

	s.mu.Lock()
	defer s.mu.Unlock()
	assert.Equal(t, map[string]string{
		"/models/parser/load":   "englishPCFG.ser.gz",
		"/models/tagger/load":   "left3words.tagger",
		"/models/depparse/load": "english_UD.gz",
		"/models/splitter/load": "ptb",
	}, s.loaded)
}

func TestLoadFailure(t *testing.T) {
	s := newSidecar()
	s.fail("/models/parser/load", http.StatusNotFound)
	c := newTestClient(t, s, nil)

	_, err := c.LoadParser(context.Background(), "missing.ser.gz")
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusNotFound, se.Code)
	assert.Contains(t, err.Error(), "missing.ser.gz")
}

func TestProviders(t *testing.T) {
	c := newTestClient(t, newSidecar(), nil)
	ctx := context.Background()

	sentences, err := (&Splitter{client: c}).Split(ctx, "The dog runs. Hi.")
	require.NoError(t, err)
	require.Len(t, sentences, 2)
	assert.Equal(t, []string{"The", "dog", "runs", "."}, nlp.Words(sentences[0]))
	assert.Equal(t, 1, sentences[1][1].Index)

	tags, err := (&Tagger{client: c}).TagSentence(ctx, sentences[0])
	require.NoError(t, err)
	assert.Equal(t, []string{"The/NN", "dog/NN", "runs/NN", "./NN"}, nlp.TagStrings(tags))

	p := &Parser{client: c}
	tree, err := p.Parse(ctx, sentences[0])
	require.NoError(t, err)
	assert.Equal(t, nlp.Tree("(ROOT (NP (NN words)))"), tree)

	gs, err := p.GrammaticalStructure(ctx, tree)
	require.NoError(t, err)
	assert.Equal(t, "[root(ROOT-0, dog-2)]", gs.TypedDependencies().String())

	q := p.NewQuery()
	require.NoError(t, q.Parse(ctx, tags))
	best, err := q.BestParse()
	require.NoError(t, err)
	assert.Equal(t, nlp.Tree("(ROOT (NP (NN tagged)))"), best)

	gs, err = (&DependencyParser{client: c}).Predict(ctx, tags)
	require.NoError(t, err)
	assert.Equal(t, "[det(dog-2, The-1)]", gs.TypedDependencies().String())
}

func TestUnprocessableMapsToDomainErrors(t *testing.T) {
	s := newSidecar()
	s.fail("/parse", http.StatusUnprocessableEntity)
	s.fail("/depparse", http.StatusUnprocessableEntity)
	c := newTestClient(t, s, nil)
	ctx := context.Background()

	p := &Parser{client: c}
	_, err := p.Parse(ctx, nlp.NewTokens([]string{"x"}))
	assert.ErrorIs(t, err, nlp.ErrNoParseFound)

	q := p.NewQuery()
	assert.ErrorIs(t, q.Parse(ctx, tagged("x")), nlp.ErrNoParseFound)
	_, err = q.BestParse()
	assert.ErrorIs(t, err, nlp.ErrNoParseAvailable)

	_, err = (&DependencyParser{client: c}).Predict(ctx, tagged("x"))
	assert.ErrorIs(t, err, nlp.ErrPrediction)
}

func TestBestParseBeforeParse(t *testing.T) {
	c := newTestClient(t, newSidecar(), nil)
	_, err := (&Parser{client: c}).NewQuery().BestParse()
	assert.ErrorIs(t, err, nlp.ErrNoParseAvailable)
}

func TestServerErrorsOpenBreaker(t *testing.T) {
	s := newSidecar()
	s.fail("/tag", http.StatusInternalServerError)
	breaker := middleware.NewCircuitBreaker(2, 1, time.Hour)
	c := newTestClient(t, s, breaker)
	tagger := &Tagger{client: c}
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := tagger.TagSentence(ctx, nlp.NewTokens([]string{"dog"}))
		var se *StatusError
		require.ErrorAs(t, err, &se)
	}
	assert.Equal(t, middleware.CircuitOpen, breaker.State())

	_, err := tagger.TagSentence(ctx, nlp.NewTokens([]string{"dog"}))
	assert.ErrorIs(t, err, ErrCircuitOpen)
}

func TestClientErrorsDoNotOpenBreaker(t *testing.T) {
	s := newSidecar()
	s.fail("/parse", http.StatusUnprocessableEntity)
	breaker := middleware.NewCircuitBreaker(1, 1, time.Hour)
	c := newTestClient(t, s, breaker)

	_, err := (&Parser{client: c}).Parse(context.Background(), nlp.NewTokens([]string{"x"}))
	assert.Error(t, err)
	assert.Equal(t, middleware.CircuitClosed, breaker.State())
}

func TestHealth(t *testing.T) {
	s := newSidecar()
	c := newTestClient(t, s, nil)
	assert.NoError(t, c.Health(context.Background()))

	s.fail("/health", http.StatusServiceUnavailable)
	assert.Error(t, c.Health(context.Background()))
}

func TestLoadersFollowConfig(t *testing.T) {
	s := newSidecar()
	c := newTestClient(t, s, nil)
	cfg := &config.Config{ParserModel: "p.ser.gz", TaggerModel: "t.tagger", DepParseModel: "d.gz"}

	l := c.Loaders(cfg)
	require.NotNil(t, l.DependencyParser)
	_, err := l.Parser(context.Background())
	require.NoError(t, err)
	_, err = l.DependencyParser(context.Background())
	require.NoError(t, err)

	s.mu.Lock()
	assert.Equal(t, "p.ser.gz", s.loaded["/models/parser/load"])
	assert.Equal(t, "d.gz", s.loaded["/models/depparse/load"])
	s.mu.Unlock()

	cfg.DisableDepParse = true
	assert.Nil(t, c.Loaders(cfg).DependencyParser)
}
