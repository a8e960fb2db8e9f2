// Package cache memoizes full parse responses in Redis. Responses are a
// pure function of the text, the overrides and the engine options, so
// identical requests can be answered without touching the models.
package cache

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/tedgoddard/Stanford/internal/metrics"
	"github.com/tedgoddard/Stanford/internal/parse"
	"go.uber.org/zap"
	"golang.org/x/crypto/blake2b"
)

const keyPrefix = "stanford:parse:"

// Backend is the subset of a key-value store the cache needs.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// ErrMiss is returned by a Backend when the key is absent.
var ErrMiss = errors.New("cache miss")

// Cache stores parse responses keyed by request and engine options.
// A nil *Cache is valid and never hits.
type Cache struct {
	backend     Backend
	ttl         time.Duration
	fingerprint string
	logger      *zap.Logger
}

// New creates a cache. opts and the availability of the dependency parser
// become part of every key so that a configuration change or a degraded
// model set never serves stale arbitration results.
func New(backend Backend, ttl time.Duration, opts parse.Options, depParse bool, logger *zap.Logger) *Cache {
	return &Cache{
		backend:     backend,
		ttl:         ttl,
		fingerprint: Fingerprint(opts, depParse),
		logger:      logger,
	}
}

// Fingerprint renders the settings that influence a response.
func Fingerprint(opts parse.Options, depParse bool) string {
	return strings.Join([]string{
		opts.Selection.TreeStrategy,
		opts.Selection.DependencyStrategy,
		opts.TagPolicy,
		strings.Join(opts.Strategies, ","),
		"depparse=" + strconv.FormatBool(depParse),
	}, "|")
}

// Key derives the cache key for req. Every part is length prefixed.
func (c *Cache) Key(req parse.Request) string {
	h, _ := blake2b.New256(nil)
	write := func(part string) {
		h.Write(binary.AppendUvarint(nil, uint64(len(part))))
		h.Write([]byte(part))
	}
	write(c.fingerprint)
	write(req.Text)
	h.Write(binary.AppendUvarint(nil, uint64(len(req.Overrides))))
	for _, tag := range req.Overrides {
		write(tag)
	}
	return keyPrefix + hex.EncodeToString(h.Sum(nil))
}

// Get returns the cached response for req. Backend errors count as misses.
func (c *Cache) Get(ctx context.Context, req parse.Request) (*parse.Response, bool) {
	if c == nil {
		return nil, false
	}
	data, err := c.backend.Get(ctx, c.Key(req))
	if err != nil {
		if !errors.Is(err, ErrMiss) {
			c.logger.Warn("cache read failed", zap.Error(err))
			metrics.CacheLookups.WithLabelValues("error").Inc()
			return nil, false
		}
		metrics.CacheLookups.WithLabelValues("miss").Inc()
		return nil, false
	}

	var resp parse.Response
	if err := json.Unmarshal(data, &resp); err != nil {
		c.logger.Warn("discarding undecodable cache entry", zap.Error(err))
		metrics.CacheLookups.WithLabelValues("error").Inc()
		return nil, false
	}
	metrics.CacheLookups.WithLabelValues("hit").Inc()
	return &resp, true
}

// Put stores resp for req.
func (c *Cache) Put(ctx context.Context, req parse.Request, resp *parse.Response) error {
	if c == nil {
		return nil
	}
	data, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("encode response: %w", err)
	}
	if err := c.backend.Set(ctx, c.Key(req), data, c.ttl); err != nil {
		return fmt.Errorf("cache write: %w", err)
	}
	return nil
}

// RedisBackend adapts a go-redis client.
type RedisBackend struct {
	Client redis.Cmdable
}

func (b RedisBackend) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := b.Client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	return data, err
}

func (b RedisBackend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return b.Client.Set(ctx, key, value, ttl).Err()
}
