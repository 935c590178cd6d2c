package payment

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingSignature is returned when the signature header is absent.
	ErrMissingSignature = errors.New("payment: missing signature")
	// ErrInvalidSignature is returned when the signature does not match the body.
	ErrInvalidSignature = errors.New("payment: invalid signature")
	// ErrMissingUserID is returned when notes carry no usable user_id.
	ErrMissingUserID = errors.New("payment: missing user_id")
	// ErrMissingPlanType is returned when a subscription payment names no plan.
	ErrMissingPlanType = errors.New("payment: missing plan_type")
	// ErrUnknownPlan is returned when the plan is not sold by the catalog.
	ErrUnknownPlan = errors.New("payment: unknown plan")
	// ErrUnknownCoinPack is returned when the coin amount cannot be determined.
	ErrUnknownCoinPack = errors.New("payment: unknown coin pack")
	// ErrUnknownUser is returned when notes reference a user that does not exist.
	ErrUnknownUser = errors.New("payment: unknown user")
	// ErrMissingEntity is returned when the event carries no payment or order entity.
	ErrMissingEntity = errors.New("payment: missing entity")
	// ErrDuplicateEvent is returned by a Store when the ledger already holds the event.
	ErrDuplicateEvent = errors.New("payment: duplicate event")
)

// ValidationError reports an event that is well-formed but lacks required fields.
type ValidationError struct {
	Event string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("payment: invalid %s event: %v", e.Event, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var validationErr *ValidationError
	return errors.As(err, &validationErr)
}

func invalid(event string, err error) error {
	return &ValidationError{Event: event, Err: err}
}
