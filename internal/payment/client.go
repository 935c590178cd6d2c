package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	defaultAPIBaseURL     = "https://api.razorpay.com"
	defaultRequestTimeout = 15 * time.Second
	defaultRequestsPerSec = 5
	receiptPrefix         = "rcpt_"
)

// ClientConfig configures the gateway REST client.
type ClientConfig struct {
	BaseURL        string
	KeyID          string
	KeySecret      string
	RequestTimeout time.Duration
	RequestsPerSec float64
	HTTPClient     *http.Client
}

// Client creates orders through the gateway REST API.
type Client struct {
	baseURL   string
	keyID     string
	keySecret string
	timeout   time.Duration
	client    *http.Client
	limiter   *rate.Limiter
}

// OrderRequest describes an order to create. Amount is in minor units.
type OrderRequest struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt,omitempty"`
	Notes    map[string]string `json:"notes,omitempty"`
}

// Order is the gateway's view of a created order.
type Order struct {
	ID        string `json:"id"`
	Entity    string `json:"entity"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
	Receipt   string `json:"receipt"`
	Status    string `json:"status"`
	Notes     Notes  `json:"notes"`
	CreatedAt int64  `json:"created_at"`
}

// APIError is an error response from the gateway.
type APIError struct {
	StatusCode  int    `json:"-"`
	Code        string `json:"code"`
	Description string `json:"description"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("payment gateway: status %d: %s: %s", e.StatusCode, e.Code, e.Description)
}

// NewClient constructs a gateway client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultAPIBaseURL
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	rps := cfg.RequestsPerSec
	if rps <= 0 {
		rps = defaultRequestsPerSec
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{
		baseURL:   baseURL,
		keyID:     strings.TrimSpace(cfg.KeyID),
		keySecret: strings.TrimSpace(cfg.KeySecret),
		timeout:   timeout,
		client:    httpClient,
		limiter:   rate.NewLimiter(rate.Limit(rps), 1),
	}
}

// NewReceipt returns a unique receipt identifier within the gateway's 40 character limit.
func NewReceipt() string {
	return receiptPrefix + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// CreateOrder registers an order with the gateway.
func (c *Client) CreateOrder(ctx context.Context, req OrderRequest) (Order, error) {
	if c == nil {
		return Order{}, fmt.Errorf("payment gateway: nil client")
	}
	if c.keyID == "" || c.keySecret == "" {
		return Order{}, fmt.Errorf("payment gateway: missing api credentials")
	}
	if req.Amount <= 0 {
		return Order{}, fmt.Errorf("payment gateway: amount must be positive")
	}
	if strings.TrimSpace(req.Currency) == "" {
		req.Currency = DefaultCurrency
	}
	if strings.TrimSpace(req.Receipt) == "" {
		req.Receipt = NewReceipt()
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if errWait := c.limiter.Wait(ctx); errWait != nil {
		return Order{}, fmt.Errorf("payment gateway: throttle: %w", errWait)
	}

	body, errMarshal := json.Marshal(req)
	if errMarshal != nil {
		return Order{}, fmt.Errorf("payment gateway: encode order: %w", errMarshal)
	}

	requestCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	httpReq, errReq := http.NewRequestWithContext(requestCtx, http.MethodPost, c.baseURL+"/v1/orders", bytes.NewReader(body))
	if errReq != nil {
		return Order{}, fmt.Errorf("payment gateway: build request: %w", errReq)
	}
	httpReq.SetBasicAuth(c.keyID, c.keySecret)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, errDo := c.client.Do(httpReq)
	if errDo != nil {
		return Order{}, fmt.Errorf("payment gateway: request failed: %w", errDo)
	}
	defer func() {
		if errClose := resp.Body.Close(); errClose != nil {
			log.WithError(errClose).Warn("payment gateway: close response body failed")
		}
	}()

	respBody, errRead := io.ReadAll(resp.Body)
	if errRead != nil {
		return Order{}, fmt.Errorf("payment gateway: read response: %w", errRead)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var envelope struct {
			Error *APIError `json:"error"`
		}
		if errUnmarshal := json.Unmarshal(respBody, &envelope); errUnmarshal == nil && envelope.Error != nil {
			apiErr.Code = envelope.Error.Code
			apiErr.Description = envelope.Error.Description
		}
		return Order{}, apiErr
	}

	var order Order
	if errUnmarshal := json.Unmarshal(respBody, &order); errUnmarshal != nil {
		return Order{}, fmt.Errorf("payment gateway: decode order: %w", errUnmarshal)
	}
	return order, nil
}
