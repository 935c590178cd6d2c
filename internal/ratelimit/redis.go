package ratelimit

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// redisSlidingLogScript trims the log to the trailing window, then admits the
// request when fewer than ARGV[3] entries remain. It returns
// {allowed, count, oldestScoreMs}.
var redisSlidingLogScript = redis.NewScript(`
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
redis.call("ZREMRANGEBYSCORE", KEYS[1], "-inf", now - window)
local count = redis.call("ZCARD", KEYS[1])
local allowed = 0
if count < limit then
  redis.call("ZADD", KEYS[1], now, ARGV[4])
  count = count + 1
  allowed = 1
elseif ARGV[5] == "1" then
  redis.call("ZADD", KEYS[1], now, ARGV[4])
  count = count + 1
end
redis.call("PEXPIRE", KEYS[1], window)
local oldest = redis.call("ZRANGE", KEYS[1], 0, 0, "WITHSCORES")
local oldestScore = now
if oldest[2] then
  oldestScore = tonumber(oldest[2])
end
return {allowed, count, oldestScore}
`)

// RedisLimiter implements a sliding-log rate limiter shared across instances.
type RedisLimiter struct {
	client      *redis.Client
	prefix      string
	countDenied bool
}

// NewRedisLimiter constructs a RedisLimiter.
func NewRedisLimiter(client *redis.Client, prefix string, countDenied bool) *RedisLimiter {
	return &RedisLimiter{
		client:      client,
		prefix:      strings.TrimSpace(prefix),
		countDenied: countDenied,
	}
}

// Allow checks whether the request should be allowed within the trailing window.
func (l *RedisLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration, now time.Time) (Result, error) {
	if limit <= 0 || key == "" || l == nil || l.client == nil {
		return Result{Allowed: true}, nil
	}
	if window <= 0 {
		window = DefaultWindow
	}
	nowMs := now.UnixMilli()
	windowMs := window.Milliseconds()
	countDenied := "0"
	if l.countDenied {
		countDenied = "1"
	}
	member := strconv.FormatInt(nowMs, 10) + "-" + uuid.NewString()

	values, errEval := redisSlidingLogScript.Run(ctx, l.client, []string{l.buildKey(key)},
		nowMs, windowMs, limit, member, countDenied).Int64Slice()
	if errEval != nil {
		return Result{}, errEval
	}
	if len(values) != 3 {
		return Result{}, errors.New("rate limit redis: unexpected response shape")
	}

	count := int(values[1])
	remaining := limit - count
	if remaining < 0 {
		remaining = 0
	}
	return Result{
		Allowed:   values[0] == 1,
		Limit:     limit,
		Remaining: remaining,
		Reset:     time.UnixMilli(values[2] + windowMs),
	}, nil
}

// Reset deletes the request log for key.
func (l *RedisLimiter) Reset(ctx context.Context, key string) error {
	if l == nil || l.client == nil || key == "" {
		return nil
	}
	return l.client.Del(ctx, l.buildKey(key)).Err()
}

func (l *RedisLimiter) buildKey(key string) string {
	prefix := strings.TrimSpace(l.prefix)
	if prefix == "" {
		return key
	}
	return prefix + ":" + key
}
