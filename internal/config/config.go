package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	EnvConfigPath        = "CONFIG_PATH"
	EnvDBConnection      = "DB_CONNECTION"
	EnvPort              = "PORT"
	EnvJWTSecret         = "JWT_SECRET"
	EnvAdminToken        = "ADMIN_TOKEN"
	EnvRazorpayKeyID     = "RAZORPAY_KEY_ID"
	EnvRazorpayKeySecret = "RAZORPAY_KEY_SECRET"
	EnvRazorpayWebhook   = "RAZORPAY_WEBHOOK_SECRET"
	EnvRateLimitMax      = "RATE_LIMIT_MAX_REQUESTS"
	EnvRateLimitWindow   = "RATE_LIMIT_WINDOW"
	EnvRateLimitRedis    = "RATE_LIMIT_REDIS_ADDR"
	EnvLogLevel          = "LOG_LEVEL"
	EnvLogFile           = "LOG_FILE"
)

const (
	defaultPort             = 8318
	defaultRateLimit        = 100
	defaultRateLimitWindow  = 60 * time.Second
	defaultMaxTrackedKeys   = 10000
	defaultSweepInterval    = time.Minute
	defaultIPv6Prefix       = 64
	defaultCurrency         = "INR"
	defaultRequestTimeout   = 15 * time.Second
	defaultRequestsPerSec   = 5
	defaultShutdownTimeout  = 10 * time.Second
	defaultLogLevel         = "info"
	defaultLogMaxSizeMB     = 100
	defaultLogMaxBackups    = 5
	defaultLogMaxAgeDays    = 30
	defaultRedisPrefix      = "snippets:rl"
	defaultDotEnvFileName   = ".env"
	defaultConfigPathString = "./config.yaml"
)

// ErrMissingDatabaseDSN indicates no database DSN is present in the config file.
var ErrMissingDatabaseDSN = errors.New("missing database dsn (set `database-dsn` or `database.dsn` in config file)")

// Config holds resolved application configuration values.
type Config struct {
	ConfigPath  string          `yaml:"-"`
	DatabaseDSN string          `yaml:"database-dsn"`
	Database    DatabaseConfig  `yaml:"database"`
	Server      ServerConfig    `yaml:"server"`
	Auth        AuthConfig      `yaml:"auth"`
	Payment     PaymentConfig   `yaml:"payment"`
	RateLimit   RateLimitConfig `yaml:"rate-limit"`
	Logging     LogConfig       `yaml:"logging"`
}

// DatabaseConfig holds the connection string.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	Debug           bool          `yaml:"debug"`
	TrustedProxies  []string      `yaml:"trusted-proxies"`
	RequestTimeout  time.Duration `yaml:"request-timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown-timeout"`
}

// AuthConfig holds token verification settings.
type AuthConfig struct {
	JWTSecret  string `yaml:"jwt-secret"`
	AdminToken string `yaml:"admin-token"`
}

// PaymentConfig holds payment gateway credentials.
type PaymentConfig struct {
	KeyID             string        `yaml:"key-id"`
	KeySecret         string        `yaml:"key-secret"`
	WebhookSecret     string        `yaml:"webhook-secret"`
	BaseURL           string        `yaml:"base-url"`
	Currency          string        `yaml:"currency"`
	RequestTimeout    time.Duration `yaml:"request-timeout"`
	RequestsPerSecond float64       `yaml:"requests-per-second"`
}

// RateLimitConfig holds the request limiter settings.
type RateLimitConfig struct {
	MaxRequests    int           `yaml:"max-requests"`
	Window         time.Duration `yaml:"window"`
	MaxTrackedKeys int           `yaml:"max-tracked-keys"`
	SweepInterval  time.Duration `yaml:"sweep-interval"`
	CountDenied    bool          `yaml:"count-denied"`
	IPv6Prefix     int           `yaml:"ipv6-prefix"`
	Redis          RedisConfig   `yaml:"redis"`
}

// RedisConfig holds the shared limiter backend settings.
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level      string `yaml:"level"`
	JSON       bool   `yaml:"json"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max-size-mb"`
	MaxBackups int    `yaml:"max-backups"`
	MaxAgeDays int    `yaml:"max-age-days"`
	Compress   bool   `yaml:"compress"`
}

// ResolveConfigPath normalizes the config path and applies defaults.
func ResolveConfigPath(p string) string {
	trimmed := strings.TrimSpace(p)
	if trimmed == "" {
		trimmed = defaultConfigPathString
	}
	if abs, err := filepath.Abs(trimmed); err == nil {
		return abs
	}
	return trimmed
}

// LoadDotEnv loads KEY=VALUE pairs from path without overriding variables
// that are already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	if strings.TrimSpace(path) == "" {
		path = defaultDotEnvFileName
	}
	if _, errStat := os.Stat(path); errStat != nil {
		if os.IsNotExist(errStat) {
			return nil
		}
		return fmt.Errorf("stat env file: %w", errStat)
	}
	if errLoad := godotenv.Load(path); errLoad != nil {
		return fmt.Errorf("load env file: %w", errLoad)
	}
	return nil
}

// Load reads the YAML file at configPath, applies environment overrides and
// fills defaults. A missing file is tolerated when the environment provides
// the database DSN.
func Load(configPath string) (Config, error) {
	configPath = ResolveConfigPath(configPath)
	cfg := Config{ConfigPath: configPath}

	data, errRead := os.ReadFile(configPath)
	switch {
	case errRead == nil:
		if errUnmarshal := yaml.Unmarshal(data, &cfg); errUnmarshal != nil {
			return Config{}, fmt.Errorf("parse config file: %w", errUnmarshal)
		}
		cfg.ConfigPath = configPath
	case os.IsNotExist(errRead):
	default:
		return Config{}, fmt.Errorf("read config file: %w", errRead)
	}

	applyEnv(&cfg)
	applyDefaults(&cfg)

	if cfg.DSN() == "" {
		return cfg, ErrMissingDatabaseDSN
	}
	return cfg, nil
}

// DSN returns the database connection string, preferring `database-dsn`.
func (c Config) DSN() string {
	if dsn := strings.TrimSpace(c.DatabaseDSN); dsn != "" {
		return dsn
	}
	return strings.TrimSpace(c.Database.DSN)
}

// Addr returns the HTTP listen address.
func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}

func applyEnv(cfg *Config) {
	if dsn := envString(EnvDBConnection); dsn != "" {
		cfg.DatabaseDSN = dsn
	}
	if port, ok := envInt(EnvPort); ok && port > 0 {
		cfg.Server.Port = port
	}
	if secret := envString(EnvJWTSecret); secret != "" {
		cfg.Auth.JWTSecret = secret
	}
	if token := envString(EnvAdminToken); token != "" {
		cfg.Auth.AdminToken = token
	}
	if keyID := envString(EnvRazorpayKeyID); keyID != "" {
		cfg.Payment.KeyID = keyID
	}
	if keySecret := envString(EnvRazorpayKeySecret); keySecret != "" {
		cfg.Payment.KeySecret = keySecret
	}
	if webhookSecret := envString(EnvRazorpayWebhook); webhookSecret != "" {
		cfg.Payment.WebhookSecret = webhookSecret
	}
	if maxRequests, ok := envInt(EnvRateLimitMax); ok && maxRequests >= 0 {
		cfg.RateLimit.MaxRequests = maxRequests
	}
	if windowRaw := envString(EnvRateLimitWindow); windowRaw != "" {
		if window, errParse := time.ParseDuration(windowRaw); errParse == nil && window > 0 {
			cfg.RateLimit.Window = window
		}
	}
	if addr := envString(EnvRateLimitRedis); addr != "" {
		cfg.RateLimit.Redis.Addr = addr
		cfg.RateLimit.Redis.Enabled = true
	}
	if level := envString(EnvLogLevel); level != "" {
		cfg.Logging.Level = level
	}
	if file := envString(EnvLogFile); file != "" {
		cfg.Logging.File = file
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = defaultPort
	}
	if cfg.Server.RequestTimeout <= 0 {
		cfg.Server.RequestTimeout = defaultRequestTimeout
	}
	if cfg.Server.ShutdownTimeout <= 0 {
		cfg.Server.ShutdownTimeout = defaultShutdownTimeout
	}
	if strings.TrimSpace(cfg.Payment.Currency) == "" {
		cfg.Payment.Currency = defaultCurrency
	}
	cfg.Payment.Currency = strings.ToUpper(strings.TrimSpace(cfg.Payment.Currency))
	if cfg.Payment.RequestTimeout <= 0 {
		cfg.Payment.RequestTimeout = defaultRequestTimeout
	}
	if cfg.Payment.RequestsPerSecond <= 0 {
		cfg.Payment.RequestsPerSecond = defaultRequestsPerSec
	}
	if cfg.RateLimit.MaxRequests <= 0 {
		cfg.RateLimit.MaxRequests = defaultRateLimit
	}
	if cfg.RateLimit.Window <= 0 {
		cfg.RateLimit.Window = defaultRateLimitWindow
	}
	if cfg.RateLimit.MaxTrackedKeys <= 0 {
		cfg.RateLimit.MaxTrackedKeys = defaultMaxTrackedKeys
	}
	if cfg.RateLimit.SweepInterval <= 0 {
		cfg.RateLimit.SweepInterval = defaultSweepInterval
	}
	if cfg.RateLimit.IPv6Prefix <= 0 || cfg.RateLimit.IPv6Prefix > 128 {
		cfg.RateLimit.IPv6Prefix = defaultIPv6Prefix
	}
	if strings.TrimSpace(cfg.RateLimit.Redis.Prefix) == "" {
		cfg.RateLimit.Redis.Prefix = defaultRedisPrefix
	}
	if strings.TrimSpace(cfg.Logging.Level) == "" {
		cfg.Logging.Level = defaultLogLevel
	}
	if cfg.Logging.MaxSizeMB <= 0 {
		cfg.Logging.MaxSizeMB = defaultLogMaxSizeMB
	}
	if cfg.Logging.MaxBackups <= 0 {
		cfg.Logging.MaxBackups = defaultLogMaxBackups
	}
	if cfg.Logging.MaxAgeDays <= 0 {
		cfg.Logging.MaxAgeDays = defaultLogMaxAgeDays
	}
}

func envString(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func envInt(key string) (int, bool) {
	raw := envString(key)
	if raw == "" {
		return 0, false
	}
	value, errParse := strconv.Atoi(raw)
	if errParse != nil {
		return 0, false
	}
	return value, true
}
