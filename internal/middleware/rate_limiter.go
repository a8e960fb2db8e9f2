package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// RateLimiter is a per-key token bucket.
type RateLimiter struct {
	mu           sync.Mutex
	tokens       map[string]int
	lastRefill   map[string]time.Time
	maxTokens    int
	refillRate   int           // tokens per refill
	refillPeriod time.Duration // how often to refill
	lastSweep    time.Time
}

// NewRateLimiter creates a new rate limiter.
// maxTokens: bucket size per key
// refillRate: tokens added per refill period
// refillPeriod: how often to refill tokens
func NewRateLimiter(maxTokens, refillRate int, refillPeriod time.Duration) *RateLimiter {
	return &RateLimiter{
		tokens:       make(map[string]int),
		lastRefill:   make(map[string]time.Time),
		maxTokens:    maxTokens,
		refillRate:   refillRate,
		refillPeriod: refillPeriod,
	}
}

// Allow takes a token for key if one is available.
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	if now.Sub(rl.lastSweep) >= rl.refillPeriod {
		rl.sweep(now)
	}
	if _, exists := rl.tokens[key]; !exists {
		rl.tokens[key] = rl.maxTokens
		rl.lastRefill[key] = now
	}

	refills := int(now.Sub(rl.lastRefill[key]) / rl.refillPeriod)
	if refills > 0 {
		rl.tokens[key] = min(rl.tokens[key]+refills*rl.refillRate, rl.maxTokens)
		rl.lastRefill[key] = now
	}

	if rl.tokens[key] > 0 {
		rl.tokens[key]--
		return true
	}
	return false
}

// sweep drops buckets that have been idle long enough to be full again,
// since a missing key starts full.
func (rl *RateLimiter) sweep(now time.Time) {
	rl.lastSweep = now
	rate := max(rl.refillRate, 1)
	idle := rl.refillPeriod * time.Duration((rl.maxTokens+rate-1)/rate)
	for key, last := range rl.lastRefill {
		if now.Sub(last) >= idle {
			delete(rl.tokens, key)
			delete(rl.lastRefill, key)
		}
	}
}

// Remaining returns the remaining tokens for a key
func (rl *RateLimiter) Remaining(key string) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if tokens, ok := rl.tokens[key]; ok {
		return tokens
	}
	return rl.maxTokens
}

// RateLimitMiddleware limits requests per token subject, falling back to
// the client IP for anonymous callers.
func RateLimitMiddleware(rl *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP()
		if subject, ok := GetSubject(c); ok {
			key = subject
		}

		allowed := rl.Allow(key)
		c.Header("X-RateLimit-Limit", strconv.Itoa(rl.maxTokens))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(rl.Remaining(key)))
		if !allowed {
			RespondErrorWithRetry(c, http.StatusTooManyRequests, ErrCodeRateLimited,
				"Too many requests, please try again later", int(rl.refillPeriod.Milliseconds()))
			c.Abort()
			return
		}
		c.Next()
	}
}

// DefaultRateLimiter allows 120 parse requests per minute per caller.
var DefaultRateLimiter = NewRateLimiter(120, 20, 10*time.Second)
