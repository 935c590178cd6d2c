package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/router-for-me/SnippetFactory/internal/models"
	"github.com/router-for-me/SnippetFactory/internal/payment"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const defaultHistoryLimit = 50

var errNilDB = errors.New("billing: nil db")

// GormStore persists webhook outcomes. Every mutation claims its ledger row
// in the same transaction, so a replayed event changes nothing.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore constructs a store backed by db.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// ApplySubscription activates or renews a plan and appends a success row.
func (s *GormStore) ApplySubscription(ctx context.Context, update payment.SubscriptionUpdate) error {
	if s == nil || s.db == nil {
		return errNilDB
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if errClaim := ClaimEvent(tx, update.Ledger); errClaim != nil {
			return errClaim
		}
		expiresAt := update.ExpiresAt.UTC()
		res := tx.Model(&models.User{}).
			Where("id = ?", update.UserID).
			Updates(map[string]any{
				"plan":            update.Plan,
				"plan_billing":    update.Billing,
				"plan_expires_at": &expiresAt,
				"updated_at":      update.Ledger.ProcessedAt,
			})
		if res.Error != nil {
			return fmt.Errorf("billing: update plan: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return unknownUser(update.Ledger)
		}
		return insertHistory(tx, models.PaymentHistory{
			UserID:    update.UserID,
			PaymentID: update.PaymentID,
			OrderID:   update.OrderID,
			Amount:    update.Amount,
			Currency:  update.Currency,
			Status:    models.PaymentStatusSuccess,
			Kind:      models.PaymentKindSubscription,
			Plan:      update.Plan,
			Billing:   update.Billing,
			EventType: update.Ledger.EventType,
			Notes:     notesJSON(update.Notes),
			CreatedAt: update.Ledger.ProcessedAt,
		})
	})
}

// CreditCoins adds coins to the balance and appends a success row.
func (s *GormStore) CreditCoins(ctx context.Context, credit payment.CoinCredit) error {
	if s == nil || s.db == nil {
		return errNilDB
	}
	if credit.Coins <= 0 {
		return fmt.Errorf("billing: non-positive coin credit %d", credit.Coins)
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if errClaim := ClaimEvent(tx, credit.Ledger); errClaim != nil {
			return errClaim
		}
		res := tx.Model(&models.User{}).
			Where("id = ?", credit.UserID).
			Updates(map[string]any{
				"coins":      gorm.Expr("coins + ?", credit.Coins),
				"updated_at": credit.Ledger.ProcessedAt,
			})
		if res.Error != nil {
			return fmt.Errorf("billing: credit coins: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return unknownUser(credit.Ledger)
		}
		return insertHistory(tx, models.PaymentHistory{
			UserID:    credit.UserID,
			PaymentID: credit.PaymentID,
			OrderID:   credit.OrderID,
			Amount:    credit.Amount,
			Currency:  credit.Currency,
			Status:    models.PaymentStatusSuccess,
			Kind:      models.PaymentKindCoins,
			Coins:     credit.Coins,
			EventType: credit.Ledger.EventType,
			Notes:     notesJSON(credit.Notes),
			CreatedAt: credit.Ledger.ProcessedAt,
		})
	})
}

// RecordFailure appends a failed row with a zero amount.
func (s *GormStore) RecordFailure(ctx context.Context, failure payment.FailedPayment) error {
	if s == nil || s.db == nil {
		return errNilDB
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if errClaim := ClaimEvent(tx, failure.Ledger); errClaim != nil {
			return errClaim
		}
		var count int64
		if errCount := tx.Model(&models.User{}).Where("id = ?", failure.UserID).Count(&count).Error; errCount != nil {
			return fmt.Errorf("billing: load user: %w", errCount)
		}
		if count == 0 {
			return unknownUser(failure.Ledger)
		}
		return insertHistory(tx, models.PaymentHistory{
			UserID:    failure.UserID,
			PaymentID: failure.PaymentID,
			OrderID:   failure.OrderID,
			Amount:    decimal.Zero,
			Currency:  failure.Currency,
			Status:    models.PaymentStatusFailed,
			Kind:      failure.Kind,
			Plan:      failure.Plan,
			Billing:   failure.Billing,
			EventType: failure.Ledger.EventType,
			Notes:     notesJSON(failure.Notes),
			CreatedAt: failure.Ledger.ProcessedAt,
		})
	})
}

// History returns the newest payment rows of a user.
func (s *GormStore) History(ctx context.Context, userID uint64, limit int) ([]models.PaymentHistory, error) {
	if s == nil || s.db == nil {
		return nil, errNilDB
	}
	if limit <= 0 || limit > defaultHistoryLimit {
		limit = defaultHistoryLimit
	}
	var rows []models.PaymentHistory
	if errFind := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&rows).Error; errFind != nil {
		return nil, fmt.Errorf("billing: list history: %w", errFind)
	}
	return rows, nil
}

// ClaimEvent inserts the ledger row for entry inside tx. It returns
// payment.ErrDuplicateEvent when the provider and dedup key were seen before.
func ClaimEvent(tx *gorm.DB, entry payment.LedgerEntry) error {
	provider := strings.TrimSpace(entry.Provider)
	dedupKey := strings.TrimSpace(entry.DedupKey)
	if provider == "" || dedupKey == "" {
		return fmt.Errorf("billing: ledger entry requires provider and dedup key")
	}
	processedAt := entry.ProcessedAt
	if processedAt.IsZero() {
		processedAt = time.Now().UTC()
	}
	payload := datatypes.JSON(entry.Payload)
	if !json.Valid(payload) {
		payload = datatypes.JSON(`{}`)
	}
	row := models.WebhookEvent{
		Provider:    provider,
		DedupKey:    dedupKey,
		EventType:   entry.EventType,
		Payload:     payload,
		ProcessedAt: processedAt,
	}
	res := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "provider"}, {Name: "dedup_key"}},
		DoNothing: true,
	}).Create(&row)
	if res.Error != nil {
		return fmt.Errorf("billing: claim event: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return payment.ErrDuplicateEvent
	}
	return nil
}

func insertHistory(tx *gorm.DB, row models.PaymentHistory) error {
	if strings.TrimSpace(row.Currency) == "" {
		row.Currency = payment.DefaultCurrency
	}
	if errCreate := tx.Create(&row).Error; errCreate != nil {
		return fmt.Errorf("billing: insert history: %w", errCreate)
	}
	return nil
}

func unknownUser(entry payment.LedgerEntry) error {
	return &payment.ValidationError{Event: entry.EventType, Err: payment.ErrUnknownUser}
}

func notesJSON(notes payment.Notes) datatypes.JSON {
	if len(notes) == 0 {
		return datatypes.JSON(`{}`)
	}
	raw, errMarshal := json.Marshal(notes)
	if errMarshal != nil {
		return datatypes.JSON(`{}`)
	}
	return datatypes.JSON(raw)
}
