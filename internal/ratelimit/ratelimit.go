// Package ratelimit
package ratelimit

import (
	"sync"
	"time"

	"github.com/amirphl/xau-signals/internal/utils"
)

// Limiter throttles calls to a rolling window: at most maxCalls within
// any period. A single mutex guards the call-timestamp window.
type Limiter struct {
	mu       sync.Mutex
	maxCalls int
	period   time.Duration
	calls    []time.Time

	now   func() time.Time
	sleep func(time.Duration)
}

// NewLimiter builds a limiter allowing maxCalls per period.
func NewLimiter(maxCalls int, period time.Duration) *Limiter {
	return &Limiter{
		maxCalls: maxCalls,
		period:   period,
		now:      time.Now,
		sleep:    time.Sleep,
	}
}

// Acquire blocks the caller until a slot within the rolling window is
// available, then records the call.
func (l *Limiter) Acquire() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.prune(now)

	if len(l.calls) >= l.maxCalls {
		wait := l.period - now.Sub(l.calls[0])
		if wait > 0 {
			utils.GetLogger().Printf("RateLimiter | Limit reached, sleeping for %.2fs", wait.Seconds())
			l.sleep(wait)
			now = l.now()
			l.prune(now)
		}
	}

	l.calls = append(l.calls, now)
}

// Remaining returns how many calls are still available in the current
// window.
func (l *Limiter) Remaining() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.prune(l.now())
	if n := l.maxCalls - len(l.calls); n > 0 {
		return n
	}
	return 0
}

// ResetTime returns how long until the oldest recorded call leaves the
// window.
func (l *Limiter) ResetTime() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.calls) == 0 {
		return 0
	}
	if wait := l.period - l.now().Sub(l.calls[0]); wait > 0 {
		return wait
	}
	return 0
}

// Reset clears all recorded calls.
func (l *Limiter) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = nil
}

// prune drops calls that have left the window. Caller must hold the
// mutex.
func (l *Limiter) prune(now time.Time) {
	i := 0
	for i < len(l.calls) && now.Sub(l.calls[i]) >= l.period {
		i++
	}
	l.calls = l.calls[i:]
}
