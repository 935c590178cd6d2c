package ratelimit

import (
	"context"
	"time"
)

// Result describes the outcome of a rate limit check.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	Reset     time.Time
}

// Limiter provides sliding-window rate limit checks for arbitrary keys.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration, now time.Time) (Result, error)
	Reset(ctx context.Context, key string) error
}

// Scope indicates which dimension a limiter key buckets on.
type Scope int

const (
	ScopeNone Scope = iota
	ScopeIP
	ScopeUser
	ScopeAPIKey
)
