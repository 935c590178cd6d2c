package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// PaymentStatus represents the outcome recorded for a payment.
type PaymentStatus string

// PaymentStatus constants define payment outcomes.
const (
	// PaymentStatusSuccess marks a captured payment.
	PaymentStatusSuccess PaymentStatus = "success"
	// PaymentStatusFailed marks a failed payment attempt.
	PaymentStatusFailed PaymentStatus = "failed"
)

// PaymentKind distinguishes what a payment bought.
type PaymentKind string

// PaymentKind constants define purchase types.
const (
	// PaymentKindSubscription buys or renews a plan.
	PaymentKindSubscription PaymentKind = "subscription"
	// PaymentKindCoins buys a coin pack.
	PaymentKindCoins PaymentKind = "coins"
)

// PaymentHistory records one payment outcome reported by the gateway.
type PaymentHistory struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	UserID uint64 `gorm:"not null;index"`    // Paying user ID.
	User   User   `gorm:"foreignKey:UserID"` // Paying user record.

	PaymentID string `gorm:"type:varchar(64);index"` // Gateway payment ID.
	OrderID   string `gorm:"type:varchar(64);index"` // Gateway order ID.

	Amount   decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`  // Amount in major currency units.
	Currency string          `gorm:"type:varchar(8);not null;default:'INR'"` // ISO currency code.

	Status    PaymentStatus `gorm:"type:varchar(16);not null;index"` // Recorded outcome.
	Kind      PaymentKind   `gorm:"type:varchar(16);not null"`       // What was purchased.
	Plan      Plan          `gorm:"type:varchar(32)"`                // Purchased plan, if any.
	Billing   Billing       `gorm:"type:varchar(32)"`                // Purchased cycle, if any.
	Coins     int64         `gorm:"not null;default:0"`              // Coins credited, if any.
	EventType string        `gorm:"type:varchar(64);not null"`       // Gateway event that produced the row.

	Notes datatypes.JSON `gorm:"type:jsonb;not null;default:'{}'"` // Notes echoed by the gateway.

	CreatedAt time.Time `gorm:"not null;autoCreateTime;index"` // Creation timestamp.
}

// WebhookEvent is the idempotency ledger for gateway callbacks.
type WebhookEvent struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Provider  string `gorm:"type:varchar(32);not null;uniqueIndex:idx_webhook_events_dedup,priority:1"`  // Gateway name.
	DedupKey  string `gorm:"type:varchar(191);not null;uniqueIndex:idx_webhook_events_dedup,priority:2"` // Outcome-prefixed payment or order ID.
	EventType string `gorm:"type:varchar(64);not null;index"`                                            // Gateway event type.

	Payload datatypes.JSON `gorm:"type:jsonb;not null"` // Raw verified body.

	ProcessedAt time.Time `gorm:"not null"` // Application timestamp.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
}
