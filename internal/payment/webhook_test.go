package payment

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessor_Process(t *testing.T) {
	store := newFakeStore()
	processor := NewProcessor(testSecret, newTestDispatcher(store))
	body := []byte(`{"event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_1","amount":49900,"notes":{"user_id":"2","plan_type":"pro"}}}}}`)

	_, err := processor.Process(context.Background(), body, "")
	assert.ErrorIs(t, err, ErrMissingSignature)

	_, err = processor.Process(context.Background(), body, Sign(body, "other"))
	assert.ErrorIs(t, err, ErrInvalidSignature)
	assert.Zero(t, store.mutations())

	result, err := processor.Process(context.Background(), body, Sign(body, testSecret))
	require.NoError(t, err)
	assert.Equal(t, ActionSubscription, result.Action)
	assert.Len(t, store.subscriptions, 1)
}

func TestProcessor_EmptySecretRejects(t *testing.T) {
	processor := NewProcessor("", newTestDispatcher(newFakeStore()))
	body := []byte(`{"event":"payment.captured"}`)

	_, err := processor.Process(context.Background(), body, Sign(body, ""))
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestProcessor_MalformedSignedBody(t *testing.T) {
	processor := NewProcessor(testSecret, newTestDispatcher(newFakeStore()))
	body := []byte(`not json`)

	_, err := processor.Process(context.Background(), body, Sign(body, testSecret))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidSignature)
	assert.False(t, IsValidation(err))
}
