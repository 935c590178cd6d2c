package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/router-for-me/SnippetFactory/internal/billing"
	"github.com/router-for-me/SnippetFactory/internal/config"
	"github.com/router-for-me/SnippetFactory/internal/db"
	"github.com/router-for-me/SnippetFactory/internal/http/api/admin"
	"github.com/router-for-me/SnippetFactory/internal/http/api/front"
	"github.com/router-for-me/SnippetFactory/internal/http/api/front/handlers"
	"github.com/router-for-me/SnippetFactory/internal/http/middleware"
	"github.com/router-for-me/SnippetFactory/internal/logging"
	"github.com/router-for-me/SnippetFactory/internal/payment"
	"github.com/router-for-me/SnippetFactory/internal/ratelimit"
	internalsettings "github.com/router-for-me/SnippetFactory/internal/settings"
	"github.com/router-for-me/SnippetFactory/internal/watcher"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Services holds the long-lived components the HTTP engine is built from.
type Services struct {
	DB        *gorm.DB
	Limiter   *ratelimit.Manager
	Orders    handlers.OrderCreator
	Processor *payment.Processor
	Catalog   payment.Catalog
}

// Migrate opens the database and runs migrations.
func Migrate(ctx context.Context, cfg config.Config) error {
	conn, err := db.Open(cfg.DSN())
	if err != nil {
		return err
	}
	defer func() {
		if errClose := db.Close(conn); errClose != nil {
			log.WithError(errClose).Warn("close database failed")
		}
	}()
	return db.Migrate(conn.WithContext(ctx))
}

// NewLimiter builds the request limiter from static config. DB settings
// override the static values on every check.
func NewLimiter(cfg config.RateLimitConfig) *ratelimit.Manager {
	base := ratelimit.SettingsConfig{
		Limit:         cfg.MaxRequests,
		Window:        cfg.Window,
		RedisEnabled:  cfg.Redis.Enabled,
		RedisAddr:     cfg.Redis.Addr,
		RedisPassword: cfg.Redis.Password,
		RedisDB:       cfg.Redis.DB,
		RedisPrefix:   cfg.Redis.Prefix,
	}
	return ratelimit.NewManager(
		ratelimit.ProviderWithBase(base),
		nil,
		nil,
		ratelimit.WithMaxTrackedKeys(cfg.MaxTrackedKeys),
		ratelimit.WithCountDenied(cfg.CountDenied),
	)
}

// NewPaymentServices builds the gateway client and webhook processor.
// The client is nil when no gateway credentials are configured.
func NewPaymentServices(conn *gorm.DB, cfg config.PaymentConfig) (handlers.OrderCreator, *payment.Processor, payment.Catalog) {
	catalog := payment.DefaultCatalog()
	catalog.Currency = cfg.Currency

	var orders handlers.OrderCreator
	if cfg.KeyID != "" && cfg.KeySecret != "" {
		orders = payment.NewClient(payment.ClientConfig{
			BaseURL:        cfg.BaseURL,
			KeyID:          cfg.KeyID,
			KeySecret:      cfg.KeySecret,
			RequestTimeout: cfg.RequestTimeout,
			RequestsPerSec: cfg.RequestsPerSecond,
		})
	} else {
		log.Warn("payment gateway credentials not configured, checkout disabled")
	}
	if cfg.WebhookSecret == "" {
		log.Warn("webhook secret not configured, every webhook delivery will be rejected")
	}

	dispatcher := payment.NewDispatcher(billing.NewGormStore(conn), catalog, nil)
	return orders, payment.NewProcessor(cfg.WebhookSecret, dispatcher), catalog
}

// NewEngine assembles middleware and routes.
func NewEngine(cfg config.Config, svc Services) (*gin.Engine, error) {
	if !cfg.Server.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	if errProxies := engine.SetTrustedProxies(cfg.Server.TrustedProxies); errProxies != nil {
		return nil, fmt.Errorf("set trusted proxies: %w", errProxies)
	}

	authenticator := middleware.NewAuthenticator(svc.DB, cfg.Auth.JWTSecret)
	engine.Use(gin.Recovery())
	engine.Use(logging.RequestLogger())
	engine.Use(authenticator.Identify())

	var limiter middleware.Allower
	if svc.Limiter != nil {
		limiter = svc.Limiter
	}
	engine.Use(middleware.RateLimit(limiter, middleware.RateLimitOptions{
		IPv6PrefixLen: cfg.RateLimit.IPv6Prefix,
		ExemptPaths:   []string{front.WebhookPath, "/healthz"},
	}))
	engine.Use(middleware.RejectInvalidCredentials())

	adminOpts := admin.Options{
		AdminToken:    cfg.Auth.AdminToken,
		IPv6PrefixLen: cfg.RateLimit.IPv6Prefix,
		Catalog:       svc.Catalog,
	}
	if svc.Limiter != nil {
		adminOpts.Limiter = svc.Limiter
	}
	admin.RegisterAdminRoutes(engine, svc.DB, adminOpts)
	front.RegisterFrontRoutes(engine, svc.DB, front.Options{
		Orders:         svc.Orders,
		Processor:      svc.Processor,
		Catalog:        svc.Catalog,
		KeyID:          cfg.Payment.KeyID,
		KeySecret:      cfg.Payment.KeySecret,
		WebhookTimeout: cfg.Server.RequestTimeout,
	})
	engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})
	return engine, nil
}

// RunServer boots the API server and blocks until ctx is cancelled.
func RunServer(ctx context.Context, cfg config.Config) error {
	logCloser, errLog := logging.Setup(cfg.Logging)
	if errLog != nil {
		return errLog
	}
	defer func() {
		_ = logCloser.Close()
	}()

	conn, err := db.Open(cfg.DSN())
	if err != nil {
		return err
	}
	defer func() {
		if errClose := db.Close(conn); errClose != nil {
			log.WithError(errClose).Warn("close database failed")
		}
	}()
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		return errMigrate
	}
	if errRefresh := internalsettings.RefreshDBConfig(ctx, conn); errRefresh != nil {
		return errRefresh
	}

	watchCtx, stopWatch := context.WithCancel(ctx)
	settingsWatcher := watcher.NewSettingsWatcher(conn, 0)
	settingsWatcher.Start(watchCtx)
	defer settingsWatcher.Wait()
	defer stopWatch()

	limiter := NewLimiter(cfg.RateLimit)
	defer func() {
		if errClose := limiter.Close(); errClose != nil {
			log.WithError(errClose).Warn("close rate limiter failed")
		}
	}()
	limiter.StartJanitor(ctx, cfg.RateLimit.SweepInterval)

	orders, processor, catalog := NewPaymentServices(conn, cfg.Payment)
	engine, errEngine := NewEngine(cfg, Services{
		DB:        conn,
		Limiter:   limiter,
		Orders:    orders,
		Processor: processor,
		Catalog:   catalog,
	})
	if errEngine != nil {
		return errEngine
	}

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if errShutdown := srv.Shutdown(shutdownCtx); errShutdown != nil {
			log.Errorf("server shutdown error: %v", errShutdown)
		}
	}()

	log.Infof("starting snippet factory on %s with config=%s", srv.Addr, cfg.ConfigPath)
	if errListen := srv.ListenAndServe(); errListen != nil && !errors.Is(errListen, http.ErrServerClosed) {
		return errListen
	}
	log.Info("server stopped")
	return nil
}
