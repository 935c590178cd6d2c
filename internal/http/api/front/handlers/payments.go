package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/router-for-me/SnippetFactory/internal/billing"
	"github.com/router-for-me/SnippetFactory/internal/models"
	"github.com/router-for-me/SnippetFactory/internal/payment"
	log "github.com/sirupsen/logrus"
)

// OrderCreator registers orders with the payment gateway.
type OrderCreator interface {
	CreateOrder(ctx context.Context, req payment.OrderRequest) (payment.Order, error)
}

// PaymentHandler handles checkout endpoints for users.
type PaymentHandler struct {
	orders    OrderCreator
	store     *billing.GormStore
	catalog   payment.Catalog
	keyID     string
	keySecret string
}

// NewPaymentHandler constructs a PaymentHandler.
func NewPaymentHandler(orders OrderCreator, store *billing.GormStore, catalog payment.Catalog, keyID, keySecret string) *PaymentHandler {
	return &PaymentHandler{
		orders:    orders,
		store:     store,
		catalog:   catalog,
		keyID:     strings.TrimSpace(keyID),
		keySecret: strings.TrimSpace(keySecret),
	}
}

// createOrderRequest selects either a plan or a coin pack.
type createOrderRequest struct {
	Plan      string `json:"plan"`
	Billing   string `json:"billing"`
	CoinsPack string `json:"coins_pack"`
}

// CreateOrder opens a gateway order carrying the notes the webhook needs.
func (h *PaymentHandler) CreateOrder(c *gin.Context) {
	userID := getUserID(c)
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	var body createOrderRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	var (
		req      payment.OrderRequest
		errOrder error
	)
	packID := strings.TrimSpace(body.CoinsPack)
	switch {
	case packID != "":
		req, errOrder = h.catalog.CoinOrder(userID, packID)
	case strings.TrimSpace(body.Plan) != "":
		plan := models.Plan(strings.ToLower(strings.TrimSpace(body.Plan)))
		req, errOrder = h.catalog.SubscriptionOrder(userID, plan, payment.NormalizeBilling(body.Billing))
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "plan or coins_pack is required"})
		return
	}
	if errOrder != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errOrder.Error()})
		return
	}
	if h.orders == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "payments not configured"})
		return
	}
	req.Receipt = payment.NewReceipt()

	order, errCreate := h.orders.CreateOrder(c.Request.Context(), req)
	if errCreate != nil {
		log.WithError(errCreate).WithField("user_id", userID).Warn("payment: create order failed")
		var apiErr *payment.APIError
		if errors.As(errCreate, &apiErr) && apiErr.StatusCode >= 400 && apiErr.StatusCode < 500 {
			c.JSON(http.StatusBadGateway, gin.H{"error": apiErr.Description})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": "create order failed"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"order_id": order.ID,
		"amount":   order.Amount,
		"currency": order.Currency,
		"receipt":  order.Receipt,
		"key_id":   h.keyID,
	})
}

// verifyPaymentRequest is the checkout callback payload.
type verifyPaymentRequest struct {
	OrderID   string `json:"razorpay_order_id"`
	PaymentID string `json:"razorpay_payment_id"`
	Signature string `json:"razorpay_signature"`
}

// Verify checks a client-side checkout signature. Fulfilment still happens
// through the webhook.
func (h *PaymentHandler) Verify(c *gin.Context) {
	var body verifyPaymentRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(body.OrderID) == "" || strings.TrimSpace(body.PaymentID) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "order and payment ids are required"})
		return
	}
	if !payment.VerifyPaymentSignature(body.OrderID, body.PaymentID, body.Signature, h.keySecret) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid signature"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "payment_id": body.PaymentID})
}

// History lists the caller's recent payment outcomes.
func (h *PaymentHandler) History(c *gin.Context) {
	userID := getUserID(c)
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	limit, _ := pagination(c)
	rows, errHistory := h.store.History(c.Request.Context(), userID, limit)
	if errHistory != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list payments failed"})
		return
	}
	out := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		out = append(out, gin.H{
			"id":         row.ID,
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
	c.JSON(http.StatusOK, gin.H{"payments": out})
}
