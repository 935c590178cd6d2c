package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/router-for-me/SnippetFactory/internal/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	defaultPaymentPageSize = 50
	maxPaymentPageSize     = 500
)

// PaymentHandler exposes the payment history and ledger to operators.
type PaymentHandler struct {
	db *gorm.DB
}

// NewPaymentHandler constructs a PaymentHandler.
func NewPaymentHandler(db *gorm.DB) *PaymentHandler {
	return &PaymentHandler{db: db}
}

// List returns payment history rows with filters.
func (h *PaymentHandler) List(c *gin.Context) {
	var (
		userIDQ = strings.TrimSpace(c.Query("user_id"))
		statusQ = strings.TrimSpace(c.Query("status"))
		kindQ   = strings.TrimSpace(c.Query("kind"))
		sinceQ  = strings.TrimSpace(c.Query("since"))
	)

	q := h.db.WithContext(c.Request.Context()).Model(&models.PaymentHistory{})
	if userIDQ != "" {
		if id, errParse := strconv.ParseUint(userIDQ, 10, 64); errParse == nil {
			q = q.Where("user_id = ?", id)
		}
	}
	if statusQ != "" {
		q = q.Where("status = ?", strings.ToLower(statusQ))
	}
	if kindQ != "" {
		q = q.Where("kind = ?", strings.ToLower(kindQ))
	}
	if sinceQ != "" {
		if since, errParse := time.Parse(time.RFC3339, sinceQ); errParse == nil {
			q = q.Where("created_at >= ?", since.UTC())
		}
	}

	limit := defaultPaymentPageSize
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		if parsed, errParse := strconv.Atoi(raw); errParse == nil && parsed > 0 {
			limit = parsed
		}
	}
	if limit > maxPaymentPageSize {
		limit = maxPaymentPageSize
	}

	var rows []models.PaymentHistory
	if errFind := q.Order("created_at DESC, id DESC").Limit(limit).Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list payments failed"})
		return
	}

	total := decimal.Zero
	out := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		if row.Status == models.PaymentStatusSuccess {
			total = total.Add(row.Amount)
		}
		out = append(out, gin.H{
			"id":         row.ID,
			"user_id":    row.UserID,
			"payment_id": row.PaymentID,
			"order_id":   row.OrderID,
			"amount":     row.Amount.StringFixed(2),
			"currency":   row.Currency,
			"status":     row.Status,
			"kind":       row.Kind,
			"plan":       row.Plan,
			"billing":    row.Billing,
			"coins":      row.Coins,
			"event":      row.EventType,
			"created_at": row.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"payments": out, "succeeded_total": total.StringFixed(2)})
}

// Events returns the newest webhook ledger entries.
func (h *PaymentHandler) Events(c *gin.Context) {
	var rows []models.WebhookEvent
	if errFind := h.db.WithContext(c.Request.Context()).
		Order("processed_at DESC, id DESC").
		Limit(defaultPaymentPageSize).
		Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list events failed"})
		return
	}
	out := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		out = append(out, gin.H{
			"id":           row.ID,
			"provider":     row.Provider,
			"dedup_key":    row.DedupKey,
			"event_type":   row.EventType,
			"processed_at": row.ProcessedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"events": out})
}
