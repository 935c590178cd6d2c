package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/router-for-me/SnippetFactory/internal/payment"
	log "github.com/sirupsen/logrus"
)

// WebhookHandler receives gateway callbacks.
type WebhookHandler struct {
	processor *payment.Processor
	timeout   time.Duration
}

// NewWebhookHandler constructs a WebhookHandler. A non-positive timeout
// leaves the request context unchanged.
func NewWebhookHandler(processor *payment.Processor, timeout time.Duration) *WebhookHandler {
	return &WebhookHandler{processor: processor, timeout: timeout}
}

// Handle verifies the raw body and applies the event exactly once.
func (h *WebhookHandler) Handle(c *gin.Context) {
	raw, errRead := c.GetRawData()
	if errRead != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "read body failed"})
		return
	}
	signature := c.GetHeader(payment.SignatureHeader)

	ctx := c.Request.Context()
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	result, errProcess := h.processor.Process(ctx, raw, signature)
	if errProcess != nil {
		switch {
		case errors.Is(errProcess, payment.ErrMissingSignature), errors.Is(errProcess, payment.ErrInvalidSignature):
			log.WithError(errProcess).Warn("webhook: rejected delivery")
			c.JSON(http.StatusUnauthorized, gin.H{"error": errProcess.Error()})
		case payment.IsValidation(errProcess):
			log.WithError(errProcess).Warn("webhook: invalid event")
			c.JSON(http.StatusBadRequest, gin.H{"error": errProcess.Error()})
		default:
			log.WithError(errProcess).Error("webhook: processing failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "webhook processing failed"})
		}
		return
	}
	if result.Duplicate {
		c.JSON(http.StatusOK, gin.H{"success": true, "duplicate": true})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
