package ratelimit

import (
	"container/list"
	"context"
	"sync"
	"time"
)

const (
	// DefaultMaxRequests is the per-identifier request budget.
	DefaultMaxRequests = 100
	// DefaultWindow is the trailing window the budget applies to.
	DefaultWindow = 60 * time.Second
	// DefaultMaxTrackedKeys bounds the identifier map.
	DefaultMaxTrackedKeys = 10000
)

// rateWindow is the request log of a single identifier.
type rateWindow struct {
	timestamps []int64 // unix millis, ascending
	windowMs   int64
	elem       *list.Element
}

// prune drops timestamps at or before windowStart.
func (w *rateWindow) prune(windowStart int64) {
	cutoff := 0
	for cutoff < len(w.timestamps) && w.timestamps[cutoff] <= windowStart {
		cutoff++
	}
	if cutoff == 0 {
		return
	}
	w.timestamps = append(w.timestamps[:0], w.timestamps[cutoff:]...)
}

func (w *rateWindow) newest() int64 {
	if len(w.timestamps) == 0 {
		return 0
	}
	return w.timestamps[len(w.timestamps)-1]
}

// Option configures a SlidingWindowLimiter.
type Option func(*SlidingWindowLimiter)

// WithMaxRequests sets the request budget per window. Non-positive values are ignored.
func WithMaxRequests(n int) Option {
	return func(l *SlidingWindowLimiter) {
		if n > 0 {
			l.maxRequests = n
		}
	}
}

// WithWindow sets the trailing window length. Non-positive values are ignored.
func WithWindow(d time.Duration) Option {
	return func(l *SlidingWindowLimiter) {
		if d > 0 {
			l.window = d
		}
	}
}

// WithClock injects the time source.
func WithClock(nowFn func() time.Time) Option {
	return func(l *SlidingWindowLimiter) {
		if nowFn != nil {
			l.nowFn = nowFn
		}
	}
}

// WithMaxTrackedKeys caps how many identifiers are tracked; the least recently
// seen identifier is evicted once the cap is exceeded. Zero disables the cap.
func WithMaxTrackedKeys(n int) Option {
	return func(l *SlidingWindowLimiter) {
		if n >= 0 {
			l.maxTrackedKeys = n
		}
	}
}

// WithCountDenied records denied attempts in the window as well, so a client
// that keeps retrying while throttled stays throttled.
func WithCountDenied(enabled bool) Option {
	return func(l *SlidingWindowLimiter) { l.countDenied = enabled }
}

// SlidingWindowLimiter is an in-process sliding-log limiter keyed by identifier.
// State is local to the process; use RedisLimiter when several instances must
// share one budget.
type SlidingWindowLimiter struct {
	mu      sync.Mutex
	windows map[string]*rateWindow
	lru     *list.List

	maxRequests    int
	window         time.Duration
	maxTrackedKeys int
	countDenied    bool
	nowFn          func() time.Time
}

// NewSlidingWindowLimiter constructs a limiter with defaults of 100 requests per 60s.
func NewSlidingWindowLimiter(opts ...Option) *SlidingWindowLimiter {
	l := &SlidingWindowLimiter{
		windows:        make(map[string]*rateWindow),
		lru:            list.New(),
		maxRequests:    DefaultMaxRequests,
		window:         DefaultWindow,
		maxTrackedKeys: DefaultMaxTrackedKeys,
		nowFn:          time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// CheckLimit records a request for identifier and reports whether it is allowed
// under the configured budget.
func (l *SlidingWindowLimiter) CheckLimit(identifier string) bool {
	return l.record(identifier, l.maxRequests, l.window, l.nowFn()).Allowed
}

// Allow implements Limiter with a per-call budget. A non-positive limit or an
// empty key means unlimited.
func (l *SlidingWindowLimiter) Allow(_ context.Context, key string, limit int, window time.Duration, now time.Time) (Result, error) {
	if limit <= 0 || key == "" {
		return Result{Allowed: true}, nil
	}
	if window <= 0 {
		window = l.window
	}
	return l.record(key, limit, window, now), nil
}

func (l *SlidingWindowLimiter) record(key string, limit int, window time.Duration, now time.Time) Result {
	nowMs := now.UnixMilli()
	windowMs := window.Milliseconds()

	l.mu.Lock()
	defer l.mu.Unlock()

	w := l.windows[key]
	if w == nil {
		w = &rateWindow{elem: l.lru.PushFront(key)}
		l.windows[key] = w
		l.evictLocked()
	} else {
		l.lru.MoveToFront(w.elem)
	}
	w.windowMs = windowMs
	w.prune(nowMs - windowMs)

	allowed := len(w.timestamps) < limit
	if allowed || l.countDenied {
		w.timestamps = append(w.timestamps, nowMs)
	}

	remaining := limit - len(w.timestamps)
	if remaining < 0 {
		remaining = 0
	}
	reset := now
	if len(w.timestamps) > 0 {
		reset = time.UnixMilli(w.timestamps[0] + windowMs)
	}
	return Result{Allowed: allowed, Limit: limit, Remaining: remaining, Reset: reset}
}

// evictLocked drops least recently seen identifiers beyond maxTrackedKeys.
func (l *SlidingWindowLimiter) evictLocked() {
	if l.maxTrackedKeys <= 0 {
		return
	}
	for len(l.windows) > l.maxTrackedKeys {
		back := l.lru.Back()
		if back == nil {
			return
		}
		l.removeLocked(back.Value.(string))
	}
}

func (l *SlidingWindowLimiter) removeLocked(key string) {
	w, ok := l.windows[key]
	if !ok {
		return
	}
	l.lru.Remove(w.elem)
	delete(l.windows, key)
}

// Reset clears all recorded history for identifier.
func (l *SlidingWindowLimiter) Reset(identifier string) {
	l.mu.Lock()
	l.removeLocked(identifier)
	l.mu.Unlock()
}

// Count returns the number of requests recorded for identifier in the trailing window.
func (l *SlidingWindowLimiter) Count(identifier string) int {
	nowMs := l.nowFn().UnixMilli()
	l.mu.Lock()
	defer l.mu.Unlock()
	w := l.windows[identifier]
	if w == nil {
		return 0
	}
	w.prune(nowMs - w.windowMs)
	return len(w.timestamps)
}

// Len returns the number of tracked identifiers.
func (l *SlidingWindowLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.windows)
}

// Sweep evicts identifiers whose newest request fell out of their window.
// It returns how many identifiers were removed.
func (l *SlidingWindowLimiter) Sweep(now time.Time) int {
	nowMs := now.UnixMilli()
	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for key, w := range l.windows {
		if len(w.timestamps) == 0 || w.newest() <= nowMs-w.windowMs {
			l.removeLocked(key)
			removed++
		}
	}
	return removed
}

// StartJanitor sweeps stale identifiers every interval until ctx is done.
func (l *SlidingWindowLimiter) StartJanitor(ctx context.Context, every time.Duration) {
	if every <= 0 {
		return
	}
	ticker := time.NewTicker(every)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				l.Sweep(l.nowFn())
			}
		}
	}()
}
