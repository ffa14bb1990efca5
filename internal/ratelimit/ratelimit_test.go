package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// fakeClock drives the limiter deterministically: Sleep advances the
// clock instead of blocking.
type fakeClock struct {
	now    time.Time
	sleeps []time.Duration
}

func newFakeLimiter(maxCalls int, period time.Duration) (*Limiter, *fakeClock) {
	clock := &fakeClock{now: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)}
	l := NewLimiter(maxCalls, period)
	l.now = func() time.Time { return clock.now }
	l.sleep = func(d time.Duration) {
		clock.sleeps = append(clock.sleeps, d)
		clock.now = clock.now.Add(d)
	}
	return l, clock
}

func TestAcquireUnderLimit(t *testing.T) {
	l, clock := newFakeLimiter(3, time.Minute)

	for i := 0; i < 3; i++ {
		l.Acquire()
	}
	assert.Empty(t, clock.sleeps)
	assert.Zero(t, l.Remaining())
}

func TestAcquireBlocksAtLimit(t *testing.T) {
	l, clock := newFakeLimiter(2, time.Minute)

	l.Acquire()
	clock.now = clock.now.Add(10 * time.Second)
	l.Acquire()
	clock.now = clock.now.Add(10 * time.Second)

	// Third call must wait until the first leaves the window: the
	// first was 20s ago, so 40s remain.
	l.Acquire()
	assert.Len(t, clock.sleeps, 1)
	assert.Equal(t, 40*time.Second, clock.sleeps[0])
}

func TestWindowSlides(t *testing.T) {
	l, clock := newFakeLimiter(2, time.Minute)

	l.Acquire()
	l.Acquire()
	assert.Zero(t, l.Remaining())

	clock.now = clock.now.Add(time.Minute)
	assert.Equal(t, 2, l.Remaining())
}

func TestResetTime(t *testing.T) {
	l, clock := newFakeLimiter(2, time.Minute)

	assert.Zero(t, l.ResetTime())

	l.Acquire()
	clock.now = clock.now.Add(15 * time.Second)
	assert.Equal(t, 45*time.Second, l.ResetTime())

	clock.now = clock.now.Add(time.Minute)
	assert.Zero(t, l.ResetTime())
}

func TestReset(t *testing.T) {
	l, _ := newFakeLimiter(2, time.Minute)
	l.Acquire()
	l.Acquire()
	l.Reset()
	assert.Equal(t, 2, l.Remaining())
}
