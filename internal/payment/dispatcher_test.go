package payment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/router-for-me/SnippetFactory/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	subscriptions []SubscriptionUpdate
	credits       []CoinCredit
	failures      []FailedPayment
	seen          map[string]bool
	err           error
}

func newFakeStore() *fakeStore {
	return &fakeStore{seen: make(map[string]bool)}
}

func (s *fakeStore) claim(entry LedgerEntry) error {
	if s.err != nil {
		return s.err
	}
	key := entry.Provider + "/" + entry.DedupKey
	if s.seen[key] {
		return ErrDuplicateEvent
	}
	s.seen[key] = true
	return nil
}

func (s *fakeStore) ApplySubscription(_ context.Context, update SubscriptionUpdate) error {
	if err := s.claim(update.Ledger); err != nil {
		return err
	}
	s.subscriptions = append(s.subscriptions, update)
	return nil
}

func (s *fakeStore) CreditCoins(_ context.Context, credit CoinCredit) error {
	if err := s.claim(credit.Ledger); err != nil {
		return err
	}
	s.credits = append(s.credits, credit)
	return nil
}

func (s *fakeStore) RecordFailure(_ context.Context, failure FailedPayment) error {
	if err := s.claim(failure.Ledger); err != nil {
		return err
	}
	s.failures = append(s.failures, failure)
	return nil
}

func (s *fakeStore) mutations() int {
	return len(s.subscriptions) + len(s.credits) + len(s.failures)
}

var dispatchNow = time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)

func newTestDispatcher(store Store) *Dispatcher {
	return NewDispatcher(store, DefaultCatalog(), func() time.Time { return dispatchNow })
}

func dispatchRaw(t *testing.T, d *Dispatcher, raw string) (Result, error) {
	t.Helper()
	event, err := ParseEvent([]byte(raw))
	require.NoError(t, err)
	return d.Dispatch(context.Background(), event, []byte(raw))
}

func TestDispatch_CapturedSubscription(t *testing.T) {
	store := newFakeStore()
	d := newTestDispatcher(store)

	result, err := dispatchRaw(t, d, `{"event":"payment.captured","payload":{"payment":{"entity":{
		"id":"pay_1","order_id":"order_1","amount":179900,"currency":"inr",
		"notes":{"user_id":"42","plan_type":"team","duration_type":"yearly"}}}}}`)
	require.NoError(t, err)
	assert.Equal(t, ActionSubscription, result.Action)
	assert.Equal(t, uint64(42), result.UserID)
	assert.False(t, result.Duplicate)

	require.Len(t, store.subscriptions, 1)
	update := store.subscriptions[0]
	assert.Equal(t, models.PlanTeam, update.Plan)
	assert.Equal(t, models.BillingYearly, update.Billing)
	assert.Equal(t, time.Date(2025, 1, 15, 9, 0, 0, 0, time.UTC), update.ExpiresAt)
	assert.True(t, update.Amount.Equal(decimal.NewFromInt(1799)))
	assert.Equal(t, "INR", update.Currency)
	assert.Equal(t, "pay_1", update.PaymentID)
	assert.Equal(t, "order_1", update.OrderID)
	assert.Equal(t, Provider, update.Ledger.Provider)
	assert.Equal(t, "paid:pay_1", update.Ledger.DedupKey)
	assert.Equal(t, EventPaymentCaptured, update.Ledger.EventType)
}

func TestDispatch_UnknownBillingDefaultsToMonthly(t *testing.T) {
	store := newFakeStore()
	d := newTestDispatcher(store)

	_, err := dispatchRaw(t, d, `{"event":"payment.authorized","payload":{"payment":{"entity":{
		"id":"pay_1","amount":49900,"notes":{"user_id":"1","plan":"pro","billing":"fortnightly"}}}}}`)
	require.NoError(t, err)
	require.Len(t, store.subscriptions, 1)
	assert.Equal(t, models.BillingMonthly, store.subscriptions[0].Billing)
	assert.Equal(t, time.Date(2024, 2, 15, 9, 0, 0, 0, time.UTC), store.subscriptions[0].ExpiresAt)
}

func TestDispatch_AuthorizedThenCapturedAppliesOnce(t *testing.T) {
	store := newFakeStore()
	d := newTestDispatcher(store)
	entity := `{"id":"pay_9","amount":49900,"notes":{"user_id":"3","plan_type":"pro"}}`

	first, err := dispatchRaw(t, d, `{"event":"payment.authorized","payload":{"payment":{"entity":`+entity+`}}}`)
	require.NoError(t, err)
	assert.False(t, first.Duplicate)

	second, err := dispatchRaw(t, d, `{"event":"payment.captured","payload":{"payment":{"entity":`+entity+`}}}`)
	require.NoError(t, err)
	assert.True(t, second.Duplicate)
	assert.Len(t, store.subscriptions, 1)
}

func TestDispatch_CoinsFromNotesAndCatalog(t *testing.T) {
	store := newFakeStore()
	d := newTestDispatcher(store)

	result, err := dispatchRaw(t, d, `{"event":"payment.captured","payload":{"payment":{"entity":{
		"id":"pay_c1","amount":9900,"notes":{"user_id":"5","type":"coins","coins":"250"}}}}}`)
	require.NoError(t, err)
	assert.Equal(t, ActionCoins, result.Action)

	_, err = dispatchRaw(t, d, `{"event":"payment.captured","payload":{"payment":{"entity":{
		"id":"pay_c2","amount":49900,"notes":{"user_id":"5","type":"coins"}}}}}`)
	require.NoError(t, err)

	require.Len(t, store.credits, 2)
	assert.Equal(t, int64(250), store.credits[0].Coins)
	assert.Equal(t, int64(550), store.credits[1].Coins)
	assert.Empty(t, store.subscriptions)
}

func TestDispatch_CoinsUnknownAmountRejected(t *testing.T) {
	store := newFakeStore()
	d := newTestDispatcher(store)

	_, err := dispatchRaw(t, d, `{"event":"payment.captured","payload":{"payment":{"entity":{
		"id":"pay_c3","amount":12345,"notes":{"user_id":"5","type":"coins"}}}}}`)
	require.Error(t, err)
	assert.True(t, IsValidation(err))
	assert.ErrorIs(t, err, ErrUnknownCoinPack)
	assert.Zero(t, store.mutations())
}

func TestDispatch_FailedRecordsHistoryOnly(t *testing.T) {
	store := newFakeStore()
	d := newTestDispatcher(store)

	result, err := dispatchRaw(t, d, `{"event":"payment.failed","payload":{"payment":{"entity":{
		"id":"pay_f","order_id":"order_f","amount":49900,"notes":{"user_id":"8"}}}}}`)
	require.NoError(t, err)
	assert.Equal(t, ActionFailure, result.Action)
	require.Len(t, store.failures, 1)
	failure := store.failures[0]
	assert.Equal(t, uint64(8), failure.UserID)
	assert.Equal(t, models.PaymentKindSubscription, failure.Kind)
	assert.Equal(t, models.Plan(""), failure.Plan)
	assert.Equal(t, "failed:pay_f", failure.Ledger.DedupKey)
	assert.Empty(t, store.subscriptions)
}

func TestDispatch_OrderPaid(t *testing.T) {
	store := newFakeStore()
	d := newTestDispatcher(store)

	_, err := dispatchRaw(t, d, `{"event":"order.paid","payload":{
		"order":{"entity":{"id":"order_7","amount":49900,"notes":{"user_id":"9","plan_type":"pro","duration_type":"monthly"}}},
		"payment":{"entity":{"id":"pay_7","amount":49900,"notes":[]}}}}`)
	require.NoError(t, err)
	require.Len(t, store.subscriptions, 1)
	update := store.subscriptions[0]
	assert.Equal(t, "order_7", update.OrderID)
	assert.Equal(t, "pay_7", update.PaymentID)
	assert.Equal(t, "paid:pay_7", update.Ledger.DedupKey)

	_, err = dispatchRaw(t, d, `{"event":"order.paid","payload":{
		"order":{"entity":{"id":"order_8","amount":49900,"notes":{"user_id":"9","plan_type":"pro"}}}}}`)
	require.NoError(t, err)
	require.Len(t, store.subscriptions, 2)
	assert.Equal(t, "paid:order_8", store.subscriptions[1].Ledger.DedupKey)
}

func TestDispatch_MissingUserIDRejectedWithoutMutation(t *testing.T) {
	for _, raw := range []string{
		`{"event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_1","amount":100,"notes":{"plan_type":"pro"}}}}}`,
		`{"event":"payment.failed","payload":{"payment":{"entity":{"id":"pay_1","notes":[]}}}}`,
		`{"event":"order.paid","payload":{"order":{"entity":{"id":"order_1","notes":{"plan_type":"pro"}}}}}`,
	} {
		store := newFakeStore()
		d := newTestDispatcher(store)

		_, err := dispatchRaw(t, d, raw)
		require.Error(t, err)
		assert.True(t, IsValidation(err))
		assert.ErrorIs(t, err, ErrMissingUserID)
		assert.Zero(t, store.mutations())
	}
}

func TestDispatch_MissingOrUnknownPlanRejected(t *testing.T) {
	store := newFakeStore()
	d := newTestDispatcher(store)

	_, err := dispatchRaw(t, d, `{"event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_1","notes":{"user_id":"1"}}}}}`)
	assert.ErrorIs(t, err, ErrMissingPlanType)

	_, err = dispatchRaw(t, d, `{"event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_2","notes":{"user_id":"1","plan":"gold"}}}}}`)
	assert.ErrorIs(t, err, ErrUnknownPlan)
	assert.True(t, IsValidation(err))
	assert.Zero(t, store.mutations())
}

func TestDispatch_MissingEntityRejected(t *testing.T) {
	store := newFakeStore()
	d := newTestDispatcher(store)

	_, err := dispatchRaw(t, d, `{"event":"payment.captured","payload":{}}`)
	assert.ErrorIs(t, err, ErrMissingEntity)
	assert.Zero(t, store.mutations())
}

func TestDispatch_UnknownEventAcknowledged(t *testing.T) {
	store := newFakeStore()
	d := newTestDispatcher(store)

	result, err := dispatchRaw(t, d, `{"event":"refund.created","payload":{"payment":{"entity":{"id":"pay_1","notes":{"user_id":"1"}}}}}`)
	require.NoError(t, err)
	assert.Equal(t, ActionIgnored, result.Action)
	assert.Zero(t, store.mutations())
}

func TestDispatch_StoreErrorPropagates(t *testing.T) {
	store := newFakeStore()
	store.err = errors.New("db down")
	d := newTestDispatcher(store)

	_, err := dispatchRaw(t, d, `{"event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_1","notes":{"user_id":"1","plan":"pro"}}}}}`)
	require.Error(t, err)
	assert.False(t, IsValidation(err))
	assert.Contains(t, err.Error(), "db down")
}
