package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tedgoddard/Stanford/internal/config"
	"github.com/tedgoddard/Stanford/internal/parse"
	"go.uber.org/zap"
)

type memory struct {
	mu   sync.Mutex
	data map[string][]byte
	ttl  map[string]time.Duration
	err  error
}

func newMemory() *memory {
	return &memory{data: map[string][]byte{}, ttl: map[string]time.Duration{}}
}

func (m *memory) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	v, ok := m.data[key]
	if !ok {
		return nil, ErrMiss
	}
	return v, nil
}

func (m *memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.data[key] = value
	m.ttl[key] = ttl
	return nil
}

func options() parse.Options {
	return parse.Options{
		Selection:  parse.Selection{TreeStrategy: config.StrategyPCFG, DependencyStrategy: config.StrategyPCFG},
		TagPolicy:  config.TagPolicyCanonical,
		Strategies: config.AllStrategies,
	}
}

func TestRoundTrip(t *testing.T) {
	m := newMemory()
	c := New(m, time.Minute, options(), true, zap.NewNop())
	req := parse.Request{Text: "The dog runs.", Overrides: parse.TagOverrides{"", "VB"}}
	resp := &parse.Response{
		Tree:     "(ROOT (S (DT The) (VB dog)))",
		Strategy: config.StrategyPCFG,
		Tags:     []string{"The/DT", "dog/VB"},
		Alternates: []parse.Candidate{
			{Strategy: config.StrategyPCFG, Tree: "(ROOT (S (DT The) (VB dog)))", Source: parse.SourceBaseline},
		},
	}

	_, ok := c.Get(context.Background(), req)
	assert.False(t, ok)

	require.NoError(t, c.Put(context.Background(), req, resp))
	got, ok := c.Get(context.Background(), req)
	require.True(t, ok)
	assert.Equal(t, resp, got)
	assert.Equal(t, time.Minute, m.ttl[c.Key(req)])
}

func TestKeyDependsOnInputsAndOptions(t *testing.T) {
	c := New(newMemory(), time.Minute, options(), true, zap.NewNop())
	base := c.Key(parse.Request{Text: "The dog runs."})

	assert.Equal(t, base, c.Key(parse.Request{Text: "The dog runs."}))
	assert.NotEqual(t, base, c.Key(parse.Request{Text: "The dog ran."}))
	assert.NotEqual(t, base, c.Key(parse.Request{Text: "The dog runs.", Overrides: parse.TagOverrides{"DT"}}))
	assert.NotEqual(t,
		c.Key(parse.Request{Text: "a", Overrides: parse.TagOverrides{"b", "c"}}),
		c.Key(parse.Request{Text: "a", Overrides: parse.TagOverrides{"bc"}}))
	assert.NotEqual(t,
		c.Key(parse.Request{Text: "a", Overrides: parse.TagOverrides{"A", "B"}}),
		c.Key(parse.Request{Text: "a", Overrides: parse.TagOverrides{"A\x1fB"}}))
	assert.NotEqual(t,
		c.Key(parse.Request{Text: "a\x00", Overrides: parse.TagOverrides{"b"}}),
		c.Key(parse.Request{Text: "a", Overrides: parse.TagOverrides{"\x00b"}}))

	opts := options()
	opts.TagPolicy = config.TagPolicyFirst
	other := New(newMemory(), time.Minute, opts, true, zap.NewNop())
	assert.NotEqual(t, base, other.Key(parse.Request{Text: "The dog runs."}))
	assert.Contains(t, base, keyPrefix)
}

func TestBackendErrorsAreMisses(t *testing.T) {
	m := newMemory()
	m.err = errors.New("connection refused")
	c := New(m, time.Minute, options(), true, zap.NewNop())

	_, ok := c.Get(context.Background(), parse.Request{Text: "x"})
	assert.False(t, ok)
	assert.Error(t, c.Put(context.Background(), parse.Request{Text: "x"}, &parse.Response{}))
}

func TestCorruptEntryIsMiss(t *testing.T) {
	m := newMemory()
	c := New(m, time.Minute, options(), true, zap.NewNop())
	req := parse.Request{Text: "x"}
	m.data[c.Key(req)] = []byte("{not json")

	_, ok := c.Get(context.Background(), req)
	assert.False(t, ok)
}

func TestNilCache(t *testing.T) {
	var c *Cache
	_, ok := c.Get(context.Background(), parse.Request{Text: "x"})
	assert.False(t, ok)
	assert.NoError(t, c.Put(context.Background(), parse.Request{Text: "x"}, &parse.Response{}))
}

func TestEntriesFromFullModelSetNotServedWhenDepParseMissing(t *testing.T) {
	shared := newMemory()
	req := parse.Request{Text: "The dog runs."}
	full := &parse.Response{
		Tree:     "(ROOT (S (DT The) (NN dog)))",
		Strategy: config.StrategyPCFG,
		Alternates: []parse.Candidate{
			{Strategy: config.StrategyPCFG, Tree: "(ROOT (S (DT The) (NN dog)))", Source: parse.SourceBaseline},
			{Strategy: config.StrategyNNDep, Dependencies: "[det(dog-2, The-1)]", Source: parse.SourceBaseline},
		},
	}

	withDep := New(shared, time.Minute, options(), true, zap.NewNop())
	require.NoError(t, withDep.Put(context.Background(), req, full))

	withoutDep := New(shared, time.Minute, options(), false, zap.NewNop())
	_, ok := withoutDep.Get(context.Background(), req)
	assert.False(t, ok)
	assert.NotEqual(t, withDep.Key(req), withoutDep.Key(req))

	_, ok = New(shared, time.Minute, options(), true, zap.NewNop()).Get(context.Background(), req)
	assert.True(t, ok, "same model set after restart still hits")
}
