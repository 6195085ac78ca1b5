package middleware

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/bucketgate/auth/authctx"
	"github.com/kbukum/bucketgate/auth/jwt"
	"github.com/kbukum/bucketgate/errors"
)

// RateLimitConfig configures the rate limiting middleware.
type RateLimitConfig struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
	// RequestsPerMinute is the maximum number of requests allowed per minute per key.
	RequestsPerMinute int `yaml:"requests_per_minute" mapstructure:"requests_per_minute"`
	// KeyFunc extracts the rate limit key from a request. Defaults to SubjectKey.
	KeyFunc func(*gin.Context) string `yaml:"-" mapstructure:"-"`
	// Now defaults to time.Now.
	Now func() time.Time `yaml:"-" mapstructure:"-"`
	// Store holds the request windows. Defaults to a per-process store;
	// replicas share a budget only through an external one.
	Store RateStore `yaml:"-" mapstructure:"-"`
}

// RateStore counts requests per key over a sliding window.
type RateStore interface {
	Allow(ctx context.Context, key string, now time.Time, limit int, window time.Duration) (bool, error)
}

// RateLimit returns a Gin middleware that applies a per-key sliding-window
// limit. When the store fails the request is let through.
func RateLimit(cfg RateLimitConfig) gin.HandlerFunc {
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = 60
	}
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = SubjectKey
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Store == nil {
		cfg.Store = NewLocalRateStore()
	}

	return func(c *gin.Context) {
		ok, err := cfg.Store.Allow(c.Request.Context(), cfg.KeyFunc(c), cfg.Now(), cfg.RequestsPerMinute, time.Minute)
		if err == nil && !ok {
			c.Header("Retry-After", strconv.Itoa(60))
			abort(c, errors.RateLimited())
			return
		}
		c.Next()
	}
}

// IPBasedKey uses the client IP as the rate limit key.
func IPBasedKey(c *gin.Context) string {
	return c.ClientIP()
}

// SubjectKey uses the token subject, falling back to the client IP.
func SubjectKey(c *gin.Context) string {
	if claims, ok := authctx.Get[*jwt.Claims](c.Request.Context()); ok && claims.Subject != "" {
		return "sub:" + claims.Subject
	}
	return c.ClientIP()
}

// LocalRateStore keeps request windows in process memory. Stale keys are
// pruned on access.
type LocalRateStore struct {
	mu        sync.Mutex
	requests  map[string][]time.Time
	lastSweep time.Time
}

// NewLocalRateStore returns an empty in-process store.
func NewLocalRateStore() *LocalRateStore {
	return &LocalRateStore{requests: make(map[string][]time.Time)}
}

// Allow implements RateStore. It never fails.
func (rl *LocalRateStore) Allow(_ context.Context, key string, now time.Time, limit int, window time.Duration) (bool, error) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := now.Add(-window)
	if now.Sub(rl.lastSweep) > 5*window {
		rl.sweep(cutoff)
		rl.lastSweep = now
	}

	valid := filterByTime(rl.requests[key], cutoff)
	if len(valid) >= limit {
		rl.requests[key] = valid
		return false, nil
	}
	rl.requests[key] = append(valid, now)
	return true, nil
}

func (rl *LocalRateStore) sweep(cutoff time.Time) {
	for key, times := range rl.requests {
		valid := filterByTime(times, cutoff)
		if len(valid) == 0 {
			delete(rl.requests, key)
		} else {
			rl.requests[key] = valid
		}
	}
}

func filterByTime(times []time.Time, cutoff time.Time) []time.Time {
	var result []time.Time
	for _, t := range times {
		if t.After(cutoff) {
			result = append(result, t)
		}
	}
	return result
}
