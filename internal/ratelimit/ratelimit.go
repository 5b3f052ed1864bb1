// Package ratelimit gates outbound calls to one external provider,
// enforcing a minimum interval between consecutive requests.
package ratelimit

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Limiter spaces calls to a single provider. The zero-interval and nil
// limiter both admit every call immediately, so handlers can treat an
// unlimited provider and a limited one uniformly.
//
// The only mutable state is inside rate.Limiter, which is safe for
// concurrent callers; two conversations hitting the same provider share
// one Limiter and are spaced jointly.
type Limiter struct {
	lim *rate.Limiter
}

// NewInterval creates a limiter admitting one call per interval, with no
// burst allowance beyond the first call.
func NewInterval(interval time.Duration) *Limiter {
	if interval <= 0 {
		return nil
	}
	return &Limiter{lim: rate.NewLimiter(rate.Every(interval), 1)}
}

// PerMinute creates a limiter admitting n calls per minute, evenly spaced.
func PerMinute(n int) *Limiter {
	if n <= 0 {
		return nil
	}
	return NewInterval(time.Minute / time.Duration(n))
}

// Wait blocks until the next call slot is available or the context is
// cancelled.
func (l *Limiter) Wait(ctx context.Context) error {
	if l == nil {
		return ctx.Err()
	}
	return l.lim.Wait(ctx)
}
