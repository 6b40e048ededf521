package http

import (
	"time"

	"go.uber.org/atomic"
)

// rateLimiter counts inbound frames of one connection per window.
type rateLimiter struct {
	limit   int64
	counter atomic.Int64
	reset   *time.Ticker
}

func newRateLimiter(limit int) *rateLimiter {
	return newRateLimiterWindow(limit, time.Minute)
}

func newRateLimiterWindow(limit int, window time.Duration) *rateLimiter {
	if limit <= 0 {
		return &rateLimiter{}
	}
	return &rateLimiter{
		limit: int64(limit),
		reset: time.NewTicker(window),
	}
}

func (r *rateLimiter) allow() bool {
	if r == nil || r.limit <= 0 {
		return true
	}
	return r.counter.Inc() <= r.limit
}

func (r *rateLimiter) startReset(stop <-chan struct{}) {
	if r == nil || r.reset == nil {
		return
	}
	go func() {
		for {
			select {
			case <-r.reset.C:
				r.counter.Store(0)
			case <-stop:
				r.reset.Stop()
				return
			}
		}
	}()
}
