package ratelimit

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestCheckLimit_SlidingWindow(t *testing.T) {
	clock := newFakeClock()
	limiter := NewSlidingWindowLimiter(WithMaxRequests(3), WithWindow(time.Second), WithClock(clock.Now))

	for i := 0; i < 3; i++ {
		require.Truef(t, limiter.CheckLimit("X"), "request %d should be allowed", i+1)
		clock.Advance(time.Millisecond)
	}
	assert.False(t, limiter.CheckLimit("X"))

	clock.Advance(time.Second)
	assert.True(t, limiter.CheckLimit("X"))
}

func TestCheckLimit_WindowSlidesPerRequest(t *testing.T) {
	clock := newFakeClock()
	limiter := NewSlidingWindowLimiter(WithMaxRequests(2), WithWindow(time.Second), WithClock(clock.Now))

	require.True(t, limiter.CheckLimit("X"))
	clock.Advance(600 * time.Millisecond)
	require.True(t, limiter.CheckLimit("X"))
	clock.Advance(300 * time.Millisecond)
	assert.False(t, limiter.CheckLimit("X"), "both requests still inside the trailing second")

	clock.Advance(150 * time.Millisecond)
	assert.True(t, limiter.CheckLimit("X"), "first request left the window")
	assert.False(t, limiter.CheckLimit("X"))
}

func TestCheckLimit_IdentifierIsolation(t *testing.T) {
	clock := newFakeClock()
	limiter := NewSlidingWindowLimiter(WithMaxRequests(2), WithWindow(time.Minute), WithClock(clock.Now))

	require.True(t, limiter.CheckLimit("A"))
	require.True(t, limiter.CheckLimit("A"))
	require.False(t, limiter.CheckLimit("A"))

	assert.True(t, limiter.CheckLimit("B"))
	assert.Equal(t, 1, limiter.Count("B"))
}

func TestReset_ClearsHistory(t *testing.T) {
	clock := newFakeClock()
	limiter := NewSlidingWindowLimiter(WithMaxRequests(1), WithWindow(time.Minute), WithClock(clock.Now))

	require.True(t, limiter.CheckLimit("A"))
	require.False(t, limiter.CheckLimit("A"))

	limiter.Reset("A")
	assert.Equal(t, 0, limiter.Count("A"))
	assert.True(t, limiter.CheckLimit("A"))
}

func TestCheckLimit_DeniedAttemptsNotRecordedByDefault(t *testing.T) {
	clock := newFakeClock()
	limiter := NewSlidingWindowLimiter(WithMaxRequests(2), WithWindow(time.Second), WithClock(clock.Now))

	require.True(t, limiter.CheckLimit("X"))
	require.True(t, limiter.CheckLimit("X"))
	for i := 0; i < 5; i++ {
		require.False(t, limiter.CheckLimit("X"))
	}
	assert.Equal(t, 2, limiter.Count("X"))
}

func TestCheckLimit_CountDenied(t *testing.T) {
	clock := newFakeClock()
	limiter := NewSlidingWindowLimiter(
		WithMaxRequests(2),
		WithWindow(time.Second),
		WithClock(clock.Now),
		WithCountDenied(true),
	)

	require.True(t, limiter.CheckLimit("X"))
	require.True(t, limiter.CheckLimit("X"))
	clock.Advance(900 * time.Millisecond)
	require.False(t, limiter.CheckLimit("X"))
	assert.Equal(t, 3, limiter.Count("X"))

	// The first two entries expire but the denied attempt is still in the window.
	clock.Advance(200 * time.Millisecond)
	assert.True(t, limiter.CheckLimit("X"))
	assert.False(t, limiter.CheckLimit("X"))
}

func TestAllow_ReportsRemainingAndReset(t *testing.T) {
	clock := newFakeClock()
	limiter := NewSlidingWindowLimiter(WithClock(clock.Now))
	start := clock.Now()

	result, err := limiter.Allow(context.Background(), "k", 2, time.Second, start)
	require.NoError(t, err)
	assert.True(t, result.Allowed)
	assert.Equal(t, 2, result.Limit)
	assert.Equal(t, 1, result.Remaining)
	assert.Equal(t, start.Add(time.Second).UnixMilli(), result.Reset.UnixMilli())

	_, _ = limiter.Allow(context.Background(), "k", 2, time.Second, start)
	result, err = limiter.Allow(context.Background(), "k", 2, time.Second, start)
	require.NoError(t, err)
	assert.False(t, result.Allowed)
	assert.Equal(t, 0, result.Remaining)
}

func TestAllow_UnlimitedWhenLimitOrKeyMissing(t *testing.T) {
	limiter := NewSlidingWindowLimiter()

	result, err := limiter.Allow(context.Background(), "k", 0, time.Second, time.Now())
	require.NoError(t, err)
	assert.True(t, result.Allowed)

	result, err = limiter.Allow(context.Background(), "", 1, time.Second, time.Now())
	require.NoError(t, err)
	assert.True(t, result.Allowed)
	assert.Equal(t, 0, limiter.Len())
}

func TestSweep_RemovesIdleIdentifiers(t *testing.T) {
	clock := newFakeClock()
	limiter := NewSlidingWindowLimiter(WithWindow(time.Second), WithClock(clock.Now))

	limiter.CheckLimit("idle")
	clock.Advance(800 * time.Millisecond)
	limiter.CheckLimit("active")
	clock.Advance(300 * time.Millisecond)

	assert.Equal(t, 1, limiter.Sweep(clock.Now()))
	assert.Equal(t, 1, limiter.Len())
	assert.Equal(t, 1, limiter.Count("active"))
}

func TestMaxTrackedKeys_EvictsLeastRecentlySeen(t *testing.T) {
	clock := newFakeClock()
	limiter := NewSlidingWindowLimiter(WithMaxTrackedKeys(2), WithClock(clock.Now))

	limiter.CheckLimit("a")
	limiter.CheckLimit("b")
	limiter.CheckLimit("a")
	limiter.CheckLimit("c")

	assert.Equal(t, 2, limiter.Len())
	assert.Equal(t, 0, limiter.Count("b"))
	assert.Equal(t, 2, limiter.Count("a"))
	assert.Equal(t, 1, limiter.Count("c"))
}

func TestCheckLimit_ConcurrentCallersNeverExceedBudget(t *testing.T) {
	limiter := NewSlidingWindowLimiter(WithMaxRequests(50), WithWindow(time.Hour))

	var allowed atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if limiter.CheckLimit("shared") {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(50), allowed.Load())
}

func TestStartJanitor_StopsWithContext(t *testing.T) {
	clock := newFakeClock()
	limiter := NewSlidingWindowLimiter(WithWindow(time.Millisecond), WithClock(clock.Now))
	limiter.CheckLimit("x")
	clock.Advance(time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	limiter.StartJanitor(ctx, 5*time.Millisecond)

	require.Eventually(t, func() bool { return limiter.Len() == 0 }, time.Second, 5*time.Millisecond)
	cancel()
}
