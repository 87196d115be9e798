// Package ratelimit paces outgoing Conduit calls.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter implements client-side pacing for Conduit calls.
type Limiter struct {
	mu           sync.Mutex
	limiter      *rate.Limiter
	defaultRate  rate.Limit
	defaultBurst int
	minInterval  time.Duration
	lastRequest  time.Time
	waits        int64
}

// NewLimiter creates a new rate limiter. A non-positive rate disables pacing.
func NewLimiter(requestsPerSecond float64, burst int) *Limiter {
	limit := rate.Limit(requestsPerSecond)
	if requestsPerSecond <= 0 {
		limit = rate.Inf
	}
	if burst < 1 {
		burst = 1
	}
	return &Limiter{
		limiter:      rate.NewLimiter(limit, burst),
		defaultRate:  limit,
		defaultBurst: burst,
	}
}

// Wait blocks until a request is allowed or context is cancelled.
func (l *Limiter) Wait(ctx context.Context) error {
	if err := l.limiter.Wait(ctx); err != nil {
		return err
	}

	l.mu.Lock()
	l.waits++
	if l.minInterval > 0 && !l.lastRequest.IsZero() {
		elapsed := time.Since(l.lastRequest)
		if elapsed < l.minInterval {
			delay := l.minInterval - elapsed
			l.mu.Unlock()
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
			l.mu.Lock()
		}
	}
	l.lastRequest = time.Now()
	l.mu.Unlock()
	return nil
}

// Allow checks if a request is allowed without blocking.
func (l *Limiter) Allow() bool {
	return l.limiter.Allow()
}

// SetMinInterval sets the minimum delay between two consecutive requests.
func (l *Limiter) SetMinInterval(interval time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.minInterval = interval
}

// Stats returns rate limiter statistics.
func (l *Limiter) Stats() LimiterStats {
	l.mu.Lock()
	defer l.mu.Unlock()

	return LimiterStats{
		Rate:        float64(l.defaultRate),
		Burst:       l.defaultBurst,
		MinInterval: l.minInterval,
		Waits:       l.waits,
	}
}

// LimiterStats contains rate limiter statistics.
type LimiterStats struct {
	Rate        float64       `json:"rate"`
	Burst       int           `json:"burst"`
	MinInterval time.Duration `json:"min_interval"`
	Waits       int64         `json:"waits"`
}
