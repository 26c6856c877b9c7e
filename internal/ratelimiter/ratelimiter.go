// Package ratelimiter throttles expensive background work, such as image
// variant rendering, with a token bucket.
package ratelimiter

import (
	"context"
	"sync/atomic"

	"golang.org/x/time/rate"
)

// Limiter is a token bucket around golang.org/x/time/rate.
//
// A zero rate disables limiting entirely: Wait and Allow return immediately.
// Waited counts callers that actually had to block, which is surfaced in
// logs when renders queue up.
//
// Thread safety:
// All methods are safe for concurrent use. SetRate swaps in a fresh bucket
// atomically; callers already blocked in Wait finish against the old one.
type Limiter struct {
	bucket atomic.Pointer[rate.Limiter]
	waited atomic.Uint64
}

func newBucket(perSecond, burst uint) *rate.Limiter {
	if perSecond == 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	if burst == 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(perSecond), int(burst))
}

// New creates a limiter allowing perSecond operations on average with bursts
// of up to burst. A burst of zero is raised to one so that a positive rate
// can make progress at all.
//
// Example:
//
//	// At most 20 renders per second, 40 back to back
//	limiter := ratelimiter.New(20, 40)
func New(perSecond, burst uint) *Limiter {
	l := &Limiter{}
	l.bucket.Store(newBucket(perSecond, burst))
	return l
}

// Unlimited reports whether the limiter never blocks.
func (l *Limiter) Unlimited() bool {
	return l.bucket.Load().Limit() == rate.Inf
}

// Allow consumes a token if one is available and reports whether it did.
func (l *Limiter) Allow() bool {
	return l.bucket.Load().Allow()
}

// Wait blocks until a token is available or ctx is done.
//
// Returns the context error when cancelled first, or an error from the
// underlying limiter when the wait could never succeed before ctx's deadline.
func (l *Limiter) Wait(ctx context.Context) error {
	bucket := l.bucket.Load()
	if bucket.Limit() == rate.Inf {
		return ctx.Err()
	}
	if bucket.Allow() {
		return nil
	}
	l.waited.Add(1)
	return bucket.Wait(ctx)
}

// SetRate replaces the limit with a full bucket of the new size. Zero
// removes the limit.
func (l *Limiter) SetRate(perSecond, burst uint) {
	l.bucket.Store(newBucket(perSecond, burst))
}

// Waited returns how many Wait calls had to block.
func (l *Limiter) Waited() uint64 {
	return l.waited.Load()
}

// Tokens returns the tokens currently in the bucket. Useful for debugging.
func (l *Limiter) Tokens() float64 {
	return l.bucket.Load().Tokens()
}
