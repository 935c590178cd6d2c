package ratelimit

import (
	"strings"
	"time"

	internalsettings "github.com/router-for-me/SnippetFactory/internal/settings"
)

// SettingsConfig captures rate limit settings from static config and DB overrides.
type SettingsConfig struct {
	Limit         int
	Window        time.Duration
	RedisEnabled  bool
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string
}

// DefaultSettingsConfig returns the built-in budget of 100 requests per 60s.
func DefaultSettingsConfig() SettingsConfig {
	return SettingsConfig{
		Limit:       internalsettings.DefaultRateLimit,
		Window:      time.Duration(internalsettings.DefaultRateLimitWindowMs) * time.Millisecond,
		RedisPrefix: internalsettings.DefaultRateLimitRedisPrefix,
	}
}

// LoadSettingsConfig loads the current rate limit settings snapshot over the defaults.
func LoadSettingsConfig() SettingsConfig {
	return overlayDBSettings(DefaultSettingsConfig())
}

// ProviderWithBase returns a SettingsProvider that applies DB overrides on top of base.
func ProviderWithBase(base SettingsConfig) SettingsProvider {
	return func() SettingsConfig {
		return overlayDBSettings(base)
	}
}

func overlayDBSettings(cfg SettingsConfig) SettingsConfig {
	if raw, ok := internalsettings.DBConfigValue(internalsettings.RateLimitKey); ok {
		if limit, okParse := internalsettings.ParseNonNegativeInt(raw); okParse {
			cfg.Limit = limit
		}
	}
	if raw, ok := internalsettings.DBConfigValue(internalsettings.RateLimitWindowMsKey); ok {
		if windowMs, okParse := internalsettings.ParseNonNegativeInt(raw); okParse && windowMs > 0 {
			cfg.Window = time.Duration(windowMs) * time.Millisecond
		}
	}
	if raw, ok := internalsettings.DBConfigValue(internalsettings.RateLimitRedisEnabledKey); ok {
		if enabled, okParse := internalsettings.ParseBool(raw); okParse {
			cfg.RedisEnabled = enabled
		}
	}
	if raw, ok := internalsettings.DBConfigValue(internalsettings.RateLimitRedisAddrKey); ok {
		if addr, okParse := internalsettings.ParseString(raw); okParse {
			cfg.RedisAddr = addr
		}
	}
	if raw, ok := internalsettings.DBConfigValue(internalsettings.RateLimitRedisPasswordKey); ok {
		if password, okParse := internalsettings.ParseString(raw); okParse {
			cfg.RedisPassword = password
		}
	}
	if raw, ok := internalsettings.DBConfigValue(internalsettings.RateLimitRedisDBKey); ok {
		if db, okParse := internalsettings.ParseNonNegativeInt(raw); okParse {
			cfg.RedisDB = db
		}
	}
	if raw, ok := internalsettings.DBConfigValue(internalsettings.RateLimitRedisPrefixKey); ok {
		if prefix, okParse := internalsettings.ParseString(raw); okParse {
			cfg.RedisPrefix = prefix
		}
	}
	cfg.RedisAddr = strings.TrimSpace(cfg.RedisAddr)
	cfg.RedisPassword = strings.TrimSpace(cfg.RedisPassword)
	cfg.RedisPrefix = strings.TrimSpace(cfg.RedisPrefix)
	if cfg.RedisPrefix == "" {
		cfg.RedisPrefix = internalsettings.DefaultRateLimitRedisPrefix
	}
	if cfg.RedisDB < 0 {
		cfg.RedisDB = 0
	}
	if cfg.Limit < 0 {
		cfg.Limit = 0
	}
	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}
	return cfg
}
