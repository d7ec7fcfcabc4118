package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter enforces a minimum delay between successive outbound requests.
// It is the single pacing point for all phase handlers: however much a
// handler parallelizes internally, every request passes through Wait, so
// the effective rate to the external source stays serialized.
type Limiter struct {
	minInterval time.Duration
	lastRequest time.Time
	mu          sync.Mutex
	now         func() time.Time
	sleep       func(context.Context, time.Duration) error
}

// New creates a Limiter with the given minimum interval between requests
func New(minInterval time.Duration) *Limiter {
	return &Limiter{
		minInterval: minInterval,
		now:         time.Now,
		sleep:       sleepCtx,
	}
}

// Wait blocks until at least the minimum interval has elapsed since the
// previous call's completion. The first call never waits. Returns only
// when the context is cancelled.
func (l *Limiter) Wait(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.lastRequest.IsZero() {
		elapsed := l.now().Sub(l.lastRequest)
		if wait := l.minInterval - elapsed; wait > 0 {
			if err := l.sleep(ctx, wait); err != nil {
				return err
			}
		}
	}

	l.lastRequest = l.now()
	return nil
}

// MinInterval returns the configured minimum interval
func (l *Limiter) MinInterval() time.Duration {
	return l.minInterval
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
