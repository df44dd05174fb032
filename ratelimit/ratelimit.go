// Package ratelimit provides per-identity request throttling with token
// buckets. Identities are typically client IPs; idle buckets are evicted so
// the map stays bounded.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/erni-gruppe/building-agents/logging"
)

// Options configures a Limiter.
type Options struct {
	// RequestsPerMinute is the sustained refill rate per identity.
	RequestsPerMinute float64

	// Burst is the bucket capacity per identity.
	Burst int

	// IdleTTL is how long an identity may stay quiet before its bucket is
	// dropped.
	IdleTTL time.Duration

	// SweepInterval is how often idle buckets are collected.
	SweepInterval time.Duration

	Logger logging.Logger
}

// DefaultOptions returns the production throttling parameters.
func DefaultOptions() Options {
	return Options{
		RequestsPerMinute: 60,
		Burst:             10,
		IdleTTL:           10 * time.Minute,
		SweepInterval:     time.Minute,
		Logger:            logging.NoOpLogger{},
	}
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter throttles requests per identity. Safe for concurrent use.
type Limiter struct {
	opts Options

	mu      sync.Mutex
	buckets map[string]*bucket
}

// NewLimiter creates a limiter and starts its idle sweep. The sweep stops
// when ctx is cancelled.
func NewLimiter(ctx context.Context, optFns ...func(o *Options)) *Limiter {
	opts := DefaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	l := &Limiter{opts: opts, buckets: make(map[string]*bucket)}
	go l.sweep(ctx)
	return l
}

// Allow reports whether the identity may proceed and consumes one token if
// so. Unknown identities get a fresh full bucket.
func (l *Limiter) Allow(identity string) bool {
	l.mu.Lock()
	b, ok := l.buckets[identity]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(rate.Limit(l.opts.RequestsPerMinute/60.0), l.opts.Burst)}
		l.buckets[identity] = b
	}
	b.lastSeen = time.Now()
	l.mu.Unlock()

	allowed := b.limiter.Allow()
	if !allowed {
		l.opts.Logger.Warn("ratelimit.rejected", "identity", identity)
	}
	return allowed
}

// Size returns the number of tracked identities.
func (l *Limiter) Size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

func (l *Limiter) sweep(ctx context.Context) {
	ticker := time.NewTicker(l.opts.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.evictIdle()
		}
	}
}

func (l *Limiter) evictIdle() {
	cutoff := time.Now().Add(-l.opts.IdleTTL)
	l.mu.Lock()
	defer l.mu.Unlock()
	for identity, b := range l.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(l.buckets, identity)
		}
	}
}
