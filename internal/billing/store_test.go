package billing

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/router-for-me/SnippetFactory/internal/models"
	"github.com/router-for-me/SnippetFactory/internal/payment"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var testNow = time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.PaymentHistory{}, &models.WebhookEvent{}))
	return db
}

func createUser(t *testing.T, db *gorm.DB, authID string) *models.User {
	t.Helper()
	user := &models.User{AuthID: authID, Plan: models.PlanFree}
	require.NoError(t, db.Create(user).Error)
	return user
}

func ledger(key, eventType string) payment.LedgerEntry {
	return payment.LedgerEntry{
		Provider:    payment.Provider,
		DedupKey:    key,
		EventType:   eventType,
		Payload:     []byte(`{"event":"` + eventType + `"}`),
		ProcessedAt: testNow,
	}
}

func TestGormStore_ApplySubscription(t *testing.T) {
	db := openTestDB(t)
	store := NewGormStore(db)
	user := createUser(t, db, "auth-1")
	expires := time.Date(2024, 2, 15, 9, 0, 0, 0, time.UTC)

	err := store.ApplySubscription(context.Background(), payment.SubscriptionUpdate{
		Ledger:    ledger("paid:pay_1", payment.EventPaymentCaptured),
		UserID:    user.ID,
		Plan:      models.PlanPro,
		Billing:   models.BillingMonthly,
		ExpiresAt: expires,
		PaymentID: "pay_1",
		OrderID:   "order_1",
		Amount:    decimal.NewFromInt(1799),
		Currency:  "INR",
		Notes:     payment.Notes{"user_id": "1"},
	})
	require.NoError(t, err)

	var reloaded models.User
	require.NoError(t, db.First(&reloaded, user.ID).Error)
	assert.Equal(t, models.PlanPro, reloaded.Plan)
	assert.Equal(t, models.BillingMonthly, reloaded.PlanBilling)
	require.NotNil(t, reloaded.PlanExpiresAt)
	assert.True(t, reloaded.PlanExpiresAt.Equal(expires))
	assert.True(t, reloaded.HasActivePlan(testNow))

	history, err := store.History(context.Background(), user.ID, 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, models.PaymentStatusSuccess, history[0].Status)
	assert.Equal(t, models.PaymentKindSubscription, history[0].Kind)
	assert.True(t, history[0].Amount.Equal(decimal.NewFromInt(1799)))
	assert.Equal(t, "pay_1", history[0].PaymentID)
	assert.JSONEq(t, `{"user_id":"1"}`, string(history[0].Notes))
}

func TestGormStore_DuplicateEventIsNoOp(t *testing.T) {
	db := openTestDB(t)
	store := NewGormStore(db)
	user := createUser(t, db, "auth-2")
	credit := payment.CoinCredit{
		Ledger:    ledger("paid:pay_c", payment.EventPaymentCaptured),
		UserID:    user.ID,
		Coins:     100,
		PaymentID: "pay_c",
		Amount:    decimal.NewFromInt(99),
	}

	require.NoError(t, store.CreditCoins(context.Background(), credit))
	err := store.CreditCoins(context.Background(), credit)
	assert.ErrorIs(t, err, payment.ErrDuplicateEvent)

	var reloaded models.User
	require.NoError(t, db.First(&reloaded, user.ID).Error)
	assert.Equal(t, int64(100), reloaded.Coins)

	var historyCount, ledgerCount int64
	require.NoError(t, db.Model(&models.PaymentHistory{}).Count(&historyCount).Error)
	require.NoError(t, db.Model(&models.WebhookEvent{}).Count(&ledgerCount).Error)
	assert.Equal(t, int64(1), historyCount)
	assert.Equal(t, int64(1), ledgerCount)
}

func TestGormStore_UnknownUserRollsBack(t *testing.T) {
	db := openTestDB(t)
	store := NewGormStore(db)

	err := store.ApplySubscription(context.Background(), payment.SubscriptionUpdate{
		Ledger:    ledger("paid:pay_x", payment.EventPaymentCaptured),
		UserID:    999,
		Plan:      models.PlanPro,
		Billing:   models.BillingMonthly,
		ExpiresAt: testNow,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, payment.ErrUnknownUser)
	assert.True(t, payment.IsValidation(err))

	var ledgerCount int64
	require.NoError(t, db.Model(&models.WebhookEvent{}).Count(&ledgerCount).Error)
	assert.Zero(t, ledgerCount, "ledger claim must roll back with the failed mutation")
}

func TestGormStore_RecordFailure(t *testing.T) {
	db := openTestDB(t)
	store := NewGormStore(db)
	user := createUser(t, db, "auth-3")

	require.NoError(t, store.RecordFailure(context.Background(), payment.FailedPayment{
		Ledger:    ledger("failed:pay_f", payment.EventPaymentFailed),
		UserID:    user.ID,
		Kind:      models.PaymentKindSubscription,
		Plan:      models.PlanTeam,
		PaymentID: "pay_f",
	}))

	var reloaded models.User
	require.NoError(t, db.First(&reloaded, user.ID).Error)
	assert.Equal(t, models.PlanFree, reloaded.Plan)

	history, err := store.History(context.Background(), user.ID, 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, models.PaymentStatusFailed, history[0].Status)
	assert.True(t, history[0].Amount.IsZero())
	assert.Equal(t, payment.DefaultCurrency, history[0].Currency)
}

func TestDispatcherWithGormStore(t *testing.T) {
	db := openTestDB(t)
	store := NewGormStore(db)
	user := createUser(t, db, "auth-4")
	dispatcher := payment.NewDispatcher(store, payment.DefaultCatalog(), func() time.Time { return testNow })

	raw := []byte(fmt.Sprintf(`{"event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_9","amount":499900,"notes":{"user_id":"%d","plan_type":"pro","duration_type":"yearly"}}}}}`, user.ID))
	event, err := payment.ParseEvent(raw)
	require.NoError(t, err)

	result, err := dispatcher.Dispatch(context.Background(), event, raw)
	require.NoError(t, err)
	assert.False(t, result.Duplicate)

	result, err = dispatcher.Dispatch(context.Background(), event, raw)
	require.NoError(t, err)
	assert.True(t, result.Duplicate)

	var reloaded models.User
	require.NoError(t, db.First(&reloaded, user.ID).Error)
	require.NotNil(t, reloaded.PlanExpiresAt)
	assert.True(t, reloaded.PlanExpiresAt.Equal(time.Date(2025, 1, 15, 9, 0, 0, 0, time.UTC)))

	history, err := store.History(context.Background(), user.ID, 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.True(t, history[0].Amount.Equal(decimal.NewFromInt(4999)))
}
