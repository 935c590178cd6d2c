package ratelimit

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	internalsettings "github.com/router-for-me/SnippetFactory/internal/settings"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func unreachableRedis(options *redis.Options) *redis.Client {
	options.Addr = "127.0.0.1:1"
	options.DialTimeout = 50 * time.Millisecond
	options.MaxRetries = -1
	return redis.NewClient(options)
}

func TestManager_AllowUsesSettingsBudget(t *testing.T) {
	clock := newFakeClock()
	manager := NewManager(func() SettingsConfig {
		return SettingsConfig{Limit: 2, Window: time.Second}
	}, clock.Now, nil)

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		result, err := manager.Allow(ctx, "ip:1.1.1.1")
		require.NoError(t, err)
		require.True(t, result.Allowed)
	}
	result, err := manager.Allow(ctx, "ip:1.1.1.1")
	require.NoError(t, err)
	assert.False(t, result.Allowed)
	assert.Equal(t, 2, result.Limit)

	require.NoError(t, manager.Reset(ctx, "ip:1.1.1.1"))
	result, err = manager.Allow(ctx, "ip:1.1.1.1")
	require.NoError(t, err)
	assert.True(t, result.Allowed)
}

func TestManager_ZeroLimitIsUnlimited(t *testing.T) {
	manager := NewManager(func() SettingsConfig { return SettingsConfig{} }, nil, nil)

	for i := 0; i < 10; i++ {
		result, err := manager.Allow(context.Background(), "ip:1.1.1.1")
		require.NoError(t, err)
		require.True(t, result.Allowed)
	}
}

func TestManager_FallsBackToMemoryWhenRedisUnavailable(t *testing.T) {
	clock := newFakeClock()
	manager := NewManager(func() SettingsConfig {
		return SettingsConfig{Limit: 1, Window: time.Minute, RedisEnabled: true, RedisAddr: "127.0.0.1:1"}
	}, clock.Now, unreachableRedis)
	t.Cleanup(func() { _ = manager.Close() })

	ctx := context.Background()
	result, err := manager.Allow(ctx, "ip:2.2.2.2")
	require.NoError(t, err)
	assert.True(t, result.Allowed)
	assert.True(t, manager.isBreakerActive(clock.Now()))

	result, err = manager.Allow(ctx, "ip:2.2.2.2")
	require.NoError(t, err)
	assert.False(t, result.Allowed)

	clock.Advance(redisBreakerDuration + time.Second)
	assert.False(t, manager.isBreakerActive(clock.Now()))
}

func TestManager_PassesOptionsToMemoryLimiter(t *testing.T) {
	clock := newFakeClock()
	manager := NewManager(func() SettingsConfig {
		return SettingsConfig{Limit: 1, Window: time.Second}
	}, clock.Now, nil, WithCountDenied(true))

	ctx := context.Background()
	_, _ = manager.Allow(ctx, "k")
	clock.Advance(900 * time.Millisecond)
	_, _ = manager.Allow(ctx, "k")
	clock.Advance(200 * time.Millisecond)

	result, err := manager.Allow(ctx, "k")
	require.NoError(t, err)
	assert.False(t, result.Allowed, "denied attempt should still occupy the window")
}

func TestProviderWithBase_AppliesDBOverrides(t *testing.T) {
	internalsettings.StoreDBConfig(map[string]json.RawMessage{
		internalsettings.RateLimitKey:         json.RawMessage(`"7"`),
		internalsettings.RateLimitWindowMsKey: json.RawMessage(`1500`),
	})
	t.Cleanup(func() { internalsettings.StoreDBConfig(nil) })

	cfg := ProviderWithBase(SettingsConfig{Limit: 100, Window: time.Minute})()

	assert.Equal(t, 7, cfg.Limit)
	assert.Equal(t, 1500*time.Millisecond, cfg.Window)
	assert.Equal(t, internalsettings.DefaultRateLimitRedisPrefix, cfg.RedisPrefix)
}

func TestLoadSettingsConfig_Defaults(t *testing.T) {
	internalsettings.StoreDBConfig(nil)

	cfg := LoadSettingsConfig()

	assert.Equal(t, DefaultMaxRequests, cfg.Limit)
	assert.Equal(t, DefaultWindow, cfg.Window)
	assert.False(t, cfg.RedisEnabled)
}

func TestRedisLimiter_BuildKey(t *testing.T) {
	assert.Equal(t, "p:ip:1", NewRedisLimiter(nil, " p ", false).buildKey("ip:1"))
	assert.Equal(t, "ip:1", NewRedisLimiter(nil, "", false).buildKey("ip:1"))
}
