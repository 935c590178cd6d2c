package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/router-for-me/SnippetFactory/internal/models"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// Provider is the ledger namespace for this gateway.
const Provider = "razorpay"

// LedgerEntry identifies one applied webhook event.
type LedgerEntry struct {
	Provider    string
	DedupKey    string
	EventType   string
	Payload     []byte
	ProcessedAt time.Time
}

// SubscriptionUpdate activates or renews a plan.
type SubscriptionUpdate struct {
	Ledger    LedgerEntry
	UserID    uint64
	Plan      models.Plan
	Billing   models.Billing
	ExpiresAt time.Time
	PaymentID string
	OrderID   string
	Amount    decimal.Decimal
	Currency  string
	Notes     Notes
}

// CoinCredit adds purchased coins to a balance.
type CoinCredit struct {
	Ledger    LedgerEntry
	UserID    uint64
	Coins     int64
	PaymentID string
	OrderID   string
	Amount    decimal.Decimal
	Currency  string
	Notes     Notes
}

// FailedPayment records a failed payment attempt.
type FailedPayment struct {
	Ledger    LedgerEntry
	UserID    uint64
	Kind      models.PaymentKind
	Plan      models.Plan
	Billing   models.Billing
	PaymentID string
	OrderID   string
	Currency  string
	Notes     Notes
}

// Store persists dispatch outcomes. Each call claims its ledger entry and
// applies the mutation atomically, returning ErrDuplicateEvent when the
// entry already exists.
type Store interface {
	ApplySubscription(ctx context.Context, update SubscriptionUpdate) error
	CreditCoins(ctx context.Context, credit CoinCredit) error
	RecordFailure(ctx context.Context, failure FailedPayment) error
}

// Action describes what a dispatch did.
type Action string

// Action constants.
const (
	ActionSubscription Action = "subscription"
	ActionCoins        Action = "coins"
	ActionFailure      Action = "failure"
	ActionIgnored      Action = "ignored"
)

// Result summarizes a dispatched event.
type Result struct {
	Event     string
	Action    Action
	UserID    uint64
	Duplicate bool
	ExpiresAt *time.Time
}

// Dispatcher routes verified gateway events to a Store.
type Dispatcher struct {
	store   Store
	catalog Catalog
	nowFn   func() time.Time
}

// NewDispatcher constructs a dispatcher. A nil nowFn uses time.Now.
func NewDispatcher(store Store, catalog Catalog, nowFn func() time.Time) *Dispatcher {
	if nowFn == nil {
		nowFn = time.Now
	}
	return &Dispatcher{store: store, catalog: catalog, nowFn: nowFn}
}

// Dispatch applies event. raw is the verified body kept in the ledger.
// Unhandled event types are acknowledged without touching the store.
func (d *Dispatcher) Dispatch(ctx context.Context, event Event, raw []byte) (Result, error) {
	result := Result{Event: event.Event, Action: ActionIgnored}
	switch event.Event {
	case EventPaymentCaptured, EventPaymentAuthorized:
		payment, ok := event.PaymentEntity()
		if !ok || strings.TrimSpace(payment.ID) == "" {
			return result, invalid(event.Event, ErrMissingEntity)
		}
		return d.applySuccess(ctx, result, payment, payment.ID, payment.OrderID, raw)
	case EventOrderPaid:
		order, ok := event.OrderEntity()
		if !ok || strings.TrimSpace(order.ID) == "" {
			return result, invalid(event.Event, ErrMissingEntity)
		}
		paymentID := ""
		if payment, okPayment := event.PaymentEntity(); okPayment {
			paymentID = payment.ID
			if len(order.Notes) == 0 {
				order.Notes = payment.Notes
			}
		}
		return d.applySuccess(ctx, result, order, paymentID, order.ID, raw)
	case EventPaymentFailed:
		payment, ok := event.PaymentEntity()
		if !ok || strings.TrimSpace(payment.ID) == "" {
			return result, invalid(event.Event, ErrMissingEntity)
		}
		return d.applyFailure(ctx, result, payment, raw)
	default:
		log.WithField("event", event.Event).Info("payment: unhandled webhook event acknowledged")
		return result, nil
	}
}

func (d *Dispatcher) applySuccess(ctx context.Context, result Result, entity Entity, paymentID, orderID string, raw []byte) (Result, error) {
	notes := entity.Notes
	userID, ok := notes.UserID()
	if !ok {
		return result, invalid(result.Event, ErrMissingUserID)
	}
	result.UserID = userID

	dedupID := strings.TrimSpace(paymentID)
	if dedupID == "" {
		dedupID = strings.TrimSpace(orderID)
	}
	ledger := d.ledgerEntry(result.Event, "paid:"+dedupID, raw)
	amount := MinorToMajor(entity.Amount)
	currency := currencyOf(entity)

	if notes.Kind() == NoteKindCoins {
		coins, okCoins := notes.Coins()
		if !okCoins {
			coins, okCoins = d.catalog.CoinsForAmount(entity.Amount)
		}
		if !okCoins {
			return result, invalid(result.Event, ErrUnknownCoinPack)
		}
		result.Action = ActionCoins
		errStore := d.store.CreditCoins(ctx, CoinCredit{
			Ledger:    ledger,
			UserID:    userID,
			Coins:     coins,
			PaymentID: paymentID,
			OrderID:   orderID,
			Amount:    amount,
			Currency:  currency,
			Notes:     notes,
		})
		return d.finish(result, errStore)
	}

	plan := notes.PlanType()
	if plan == "" {
		return result, invalid(result.Event, ErrMissingPlanType)
	}
	if !d.catalog.KnownPlan(plan) {
		return result, invalid(result.Event, fmt.Errorf("%w: %s", ErrUnknownPlan, plan))
	}
	billing := NormalizeBilling(notes.Billing())
	expiresAt := AddBillingPeriod(ledger.ProcessedAt, billing)
	result.Action = ActionSubscription
	result.ExpiresAt = &expiresAt
	errStore := d.store.ApplySubscription(ctx, SubscriptionUpdate{
		Ledger:    ledger,
		UserID:    userID,
		Plan:      plan,
		Billing:   billing,
		ExpiresAt: expiresAt,
		PaymentID: paymentID,
		OrderID:   orderID,
		Amount:    amount,
		Currency:  currency,
		Notes:     notes,
	})
	return d.finish(result, errStore)
}

func (d *Dispatcher) applyFailure(ctx context.Context, result Result, payment Entity, raw []byte) (Result, error) {
	notes := payment.Notes
	userID, ok := notes.UserID()
	if !ok {
		return result, invalid(result.Event, ErrMissingUserID)
	}
	result.UserID = userID
	result.Action = ActionFailure

	kind := models.PaymentKindSubscription
	if notes.Kind() == NoteKindCoins {
		kind = models.PaymentKindCoins
	}
	var billing models.Billing
	if billingNote := notes.Billing(); billingNote != "" {
		billing = NormalizeBilling(billingNote)
	}
	errStore := d.store.RecordFailure(ctx, FailedPayment{
		Ledger:    d.ledgerEntry(result.Event, "failed:"+payment.ID, raw),
		UserID:    userID,
		Kind:      kind,
		Plan:      notes.PlanType(),
		Billing:   billing,
		PaymentID: payment.ID,
		OrderID:   payment.OrderID,
		Currency:  currencyOf(payment),
		Notes:     notes,
	})
	return d.finish(result, errStore)
}

func (d *Dispatcher) finish(result Result, errStore error) (Result, error) {
	if errStore == nil {
		return result, nil
	}
	if errors.Is(errStore, ErrDuplicateEvent) {
		result.Duplicate = true
		log.WithFields(log.Fields{
			"event":   result.Event,
			"user_id": result.UserID,
		}).Info("payment: duplicate webhook event ignored")
		return result, nil
	}
	return result, fmt.Errorf("payment: apply %s: %w", result.Event, errStore)
}

func (d *Dispatcher) ledgerEntry(eventType, dedupKey string, raw []byte) LedgerEntry {
	return LedgerEntry{
		Provider:    Provider,
		DedupKey:    dedupKey,
		EventType:   eventType,
		Payload:     raw,
		ProcessedAt: d.nowFn().UTC(),
	}
}

func currencyOf(entity Entity) string {
	currency := strings.ToUpper(strings.TrimSpace(entity.Currency))
	if currency == "" {
		return DefaultCurrency
	}
	return currency
}
