package front

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/router-for-me/SnippetFactory/internal/billing"
	"github.com/router-for-me/SnippetFactory/internal/http/api/front/handlers"
	"github.com/router-for-me/SnippetFactory/internal/http/middleware"
	"github.com/router-for-me/SnippetFactory/internal/payment"
	"gorm.io/gorm"
)

// WebhookPath is the gateway callback route.
const WebhookPath = "/api/payments/webhook"

// Options carries front route dependencies.
type Options struct {
	Orders         handlers.OrderCreator // Gateway order client, nil disables checkout.
	Processor      *payment.Processor    // Webhook verifier and dispatcher.
	Catalog        payment.Catalog       // Purchasable plans and coin packs.
	KeyID          string                // Public gateway key returned to checkout.
	KeySecret      string                // Gateway secret for checkout signatures.
	WebhookTimeout time.Duration         // Upper bound for one webhook dispatch.
}

// RegisterFrontRoutes registers user-facing API routes.
func RegisterFrontRoutes(r *gin.Engine, db *gorm.DB, opts Options) {
	if r == nil || db == nil {
		return
	}

	api := r.Group("/api")

	if opts.Processor != nil {
		webhookHandler := handlers.NewWebhookHandler(opts.Processor, opts.WebhookTimeout)
		r.POST(WebhookPath, webhookHandler.Handle)
	}

	planHandler := handlers.NewPlanFrontHandler(opts.Catalog)
	api.GET("/plans", planHandler.List)

	snippetHandler := handlers.NewSnippetHandler(db)
	api.GET("/snippets", snippetHandler.List)
	api.GET("/snippets/:id", snippetHandler.Get)

	commentHandler := handlers.NewCommentHandler(db, snippetHandler)
	api.GET("/snippets/:id/comments", commentHandler.List)

	communityHandler := handlers.NewCommunityHandler(db)
	api.GET("/communities", communityHandler.List)
	api.GET("/communities/:slug", communityHandler.Get)

	awardHandler := handlers.NewAwardHandler(db, snippetHandler)
	api.GET("/awards", awardHandler.Kinds)

	authed := api.Group("")
	authed.Use(middleware.RequireUser())

	meHandler := handlers.NewMeHandler()
	authed.GET("/me", meHandler.Get)

	authed.POST("/snippets", snippetHandler.Create)
	authed.PUT("/snippets/:id", snippetHandler.Update)
	authed.DELETE("/snippets/:id", snippetHandler.Delete)

	authed.POST("/snippets/:id/comments", commentHandler.Create)
	authed.DELETE("/comments/:id", commentHandler.Delete)

	voteHandler := handlers.NewVoteHandler(db, snippetHandler)
	authed.POST("/snippets/:id/vote", voteHandler.Vote)

	authed.POST("/snippets/:id/awards", awardHandler.Create)

	authed.POST("/communities", communityHandler.Create)
	authed.DELETE("/communities/:slug", communityHandler.Delete)

	apiKeyHandler := handlers.NewAPIKeyHandler(db)
	authed.POST("/api-keys", apiKeyHandler.Create)
	authed.GET("/api-keys", apiKeyHandler.List)
	authed.DELETE("/api-keys/:id", apiKeyHandler.Delete)

	paymentHandler := handlers.NewPaymentHandler(opts.Orders, billing.NewGormStore(db), opts.Catalog, opts.KeyID, opts.KeySecret)
	authed.POST("/payments/orders", paymentHandler.CreateOrder)
	authed.POST("/payments/verify", paymentHandler.Verify)
	authed.GET("/payments/history", paymentHandler.History)
}
