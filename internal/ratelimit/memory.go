package ratelimit

import "context"

// MemoryLimiter adapts a SlidingWindowLimiter to the Limiter interface.
type MemoryLimiter struct {
	*SlidingWindowLimiter
}

// NewMemoryLimiter constructs a MemoryLimiter.
func NewMemoryLimiter(opts ...Option) *MemoryLimiter {
	return &MemoryLimiter{SlidingWindowLimiter: NewSlidingWindowLimiter(opts...)}
}

// Reset clears the history recorded for key.
func (l *MemoryLimiter) Reset(_ context.Context, key string) error {
	if l == nil || l.SlidingWindowLimiter == nil {
		return nil
	}
	l.SlidingWindowLimiter.Reset(key)
	return nil
}
