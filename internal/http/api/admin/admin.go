package admin

import (
	"github.com/gin-gonic/gin"
	handlers "github.com/router-for-me/SnippetFactory/internal/http/api/admin/handlers"
	"github.com/router-for-me/SnippetFactory/internal/http/middleware"
	"github.com/router-for-me/SnippetFactory/internal/payment"
	"gorm.io/gorm"
)

// Options carries admin route dependencies.
type Options struct {
	AdminToken    string            // Shared secret expected in X-Admin-Token.
	Limiter       handlers.Resetter // Limiter whose keys can be cleared.
	IPv6PrefixLen int               // Prefix used to normalize IPv6 identifiers.
	Catalog       payment.Catalog   // Plans operators may grant.
}

// RegisterAdminRoutes registers health and token-guarded admin routes.
func RegisterAdminRoutes(r *gin.Engine, db *gorm.DB, opts Options) {
	if r == nil || db == nil {
		return
	}

	healthHandler := handlers.NewHealthHandler(db)
	r.GET("/healthz", healthHandler.Healthz)

	authed := r.Group("/api/admin")
	authed.Use(middleware.AdminToken(opts.AdminToken))

	settingHandler := handlers.NewSettingHandler(db)
	authed.POST("/settings", settingHandler.Create)
	authed.GET("/settings", settingHandler.List)
	authed.GET("/settings/:key", settingHandler.Get)
	authed.PUT("/settings/:key", settingHandler.Update)
	authed.DELETE("/settings/:key", settingHandler.Delete)

	userHandler := handlers.NewUserHandler(db, opts.Catalog)
	authed.GET("/users", userHandler.List)
	authed.GET("/users/:id", userHandler.Get)
	authed.PUT("/users/:id/plan", userHandler.UpdatePlan)
	authed.POST("/users/:id/coins", userHandler.AdjustCoins)

	apiKeyHandler := handlers.NewAPIKeyHandler(db)
	authed.GET("/users/:id/api-keys", apiKeyHandler.ListByUser)
	authed.DELETE("/api-keys/:id", apiKeyHandler.Revoke)

	paymentHandler := handlers.NewPaymentHandler(db)
	authed.GET("/payments", paymentHandler.List)
	authed.GET("/webhook-events", paymentHandler.Events)

	if opts.Limiter != nil {
		rateLimitHandler := handlers.NewRateLimitHandler(opts.Limiter, opts.IPv6PrefixLen)
		authed.POST("/rate-limit/reset", rateLimitHandler.Reset)
	}
}
