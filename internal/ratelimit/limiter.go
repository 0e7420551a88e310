// Package ratelimit throttles outbound API calls per logical category.
// Each category owns an independent token bucket; exhausting one category
// never blocks another.
package ratelimit

import (
	"context"
	"sync"

	"github.com/agentgate/agentgate/internal/pkg/apperrors"
	"github.com/agentgate/agentgate/internal/pkg/metrics"
	"golang.org/x/time/rate"
)

// Bucket describes a category budget: sustained requests per second plus
// a burst allowance.
type Bucket struct {
	RPS   float64
	Burst int
}

type Limiter struct {
	mu        sync.RWMutex
	buckets   map[string]*rate.Limiter
	overrides map[string]Bucket
	def       Bucket
}

func New(def Bucket, overrides map[string]Bucket) *Limiter {
	l := &Limiter{}
	l.configure(def, overrides)
	return l
}

// Allow reports whether a call in the category may proceed now, consuming
// one token when it may. Check and record are a single atomic step inside
// rate.Limiter, so concurrent callers can never over-admit.
func (l *Limiter) Allow(category string) bool {
	ok := l.bucket(category).Allow()
	if !ok {
		metrics.RateLimitDenials.WithLabelValues(category).Inc()
	}
	return ok
}

// Wait blocks until a token is available or ctx expires. The returned
// error is a typed RateLimitExceeded so callers can decide retry policy.
func (l *Limiter) Wait(ctx context.Context, category string) error {
	if err := l.bucket(category).Wait(ctx); err != nil {
		metrics.RateLimitDenials.WithLabelValues(category).Inc()
		return apperrors.NewRateLimit(category)
	}
	return nil
}

// Reset replaces all buckets with fresh ones built from the new
// configuration. Used on config reload; in-flight Allow calls observe
// either the old or the new bucket, never a partial state.
func (l *Limiter) Reset(def Bucket, overrides map[string]Bucket) {
	l.configure(def, overrides)
}

func (l *Limiter) configure(def Bucket, overrides map[string]Bucket) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if def.RPS <= 0 {
		def.RPS = 10
	}
	if def.Burst <= 0 {
		def.Burst = 1
	}
	l.def = def
	l.overrides = make(map[string]Bucket, len(overrides))
	for k, v := range overrides {
		l.overrides[k] = v
	}
	l.buckets = make(map[string]*rate.Limiter)
}

// bucket returns the category's limiter, creating it lazily on first use.
func (l *Limiter) bucket(category string) *rate.Limiter {
	l.mu.RLock()
	lim, ok := l.buckets[category]
	l.mu.RUnlock()
	if ok {
		return lim
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if lim, ok := l.buckets[category]; ok {
		return lim
	}
	b := l.def
	if override, ok := l.overrides[category]; ok {
		if override.RPS > 0 {
			b.RPS = override.RPS
		}
		if override.Burst > 0 {
			b.Burst = override.Burst
		}
	}
	lim = rate.NewLimiter(rate.Limit(b.RPS), b.Burst)
	l.buckets[category] = lim
	return lim
}
