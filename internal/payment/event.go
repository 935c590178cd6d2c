package payment

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/router-for-me/SnippetFactory/internal/models"
)

// Gateway event types handled by the dispatcher.
const (
	EventPaymentCaptured   = "payment.captured"
	EventPaymentAuthorized = "payment.authorized"
	EventPaymentFailed     = "payment.failed"
	EventOrderPaid         = "order.paid"
)

// Notes kinds carried in the "type" field.
const (
	NoteKindCoins        = "coins"
	NoteKindSubscription = "subscription"
)

// Event is a decoded gateway webhook body.
type Event struct {
	Event   string       `json:"event"`
	Payload EventPayload `json:"payload"`
}

// EventPayload holds the entities attached to an event.
type EventPayload struct {
	Payment *EntityWrapper `json:"payment,omitempty"`
	Order   *EntityWrapper `json:"order,omitempty"`
}

// EntityWrapper mirrors the gateway's {"entity": {...}} nesting.
type EntityWrapper struct {
	Entity Entity `json:"entity"`
}

// Entity is a payment or order as reported by the gateway.
type Entity struct {
	ID        string `json:"id"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
	Status    string `json:"status"`
	OrderID   string `json:"order_id,omitempty"`
	Notes     Notes  `json:"notes"`
	CreatedAt int64  `json:"created_at"`
}

// ParseEvent decodes a verified webhook body.
func ParseEvent(raw []byte) (Event, error) {
	var event Event
	if errUnmarshal := json.Unmarshal(raw, &event); errUnmarshal != nil {
		return Event{}, fmt.Errorf("payment: decode event: %w", errUnmarshal)
	}
	event.Event = strings.TrimSpace(event.Event)
	return event, nil
}

// PaymentEntity returns the payment entity, if present.
func (e Event) PaymentEntity() (Entity, bool) {
	if e.Payload.Payment == nil {
		return Entity{}, false
	}
	return e.Payload.Payment.Entity, true
}

// OrderEntity returns the order entity, if present.
func (e Event) OrderEntity() (Entity, bool) {
	if e.Payload.Order == nil {
		return Entity{}, false
	}
	return e.Payload.Order.Entity, true
}

// Notes is the free-form metadata map echoed back by the gateway.
// The gateway sends an empty JSON array instead of an object when no notes exist.
type Notes map[string]any

// UnmarshalJSON accepts an object, an empty array, or null.
func (n *Notes) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" || trimmed == "[]" || trimmed == "" {
		*n = Notes{}
		return nil
	}
	var values map[string]any
	if errUnmarshal := json.Unmarshal(data, &values); errUnmarshal != nil {
		return errUnmarshal
	}
	*n = values
	return nil
}

// String returns the note at key as a trimmed string.
func (n Notes) String(key string) string {
	if n == nil {
		return ""
	}
	switch v := n[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		return v.String()
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}

// UserID returns the positive numeric user_id note.
func (n Notes) UserID() (uint64, bool) {
	raw := n.String("user_id")
	if raw == "" {
		return 0, false
	}
	id, errParse := strconv.ParseUint(raw, 10, 64)
	if errParse != nil || id == 0 {
		return 0, false
	}
	return id, true
}

// PlanType returns plan_type, falling back to plan.
func (n Notes) PlanType() models.Plan {
	value := n.String("plan_type")
	if value == "" {
		value = n.String("plan")
	}
	return models.Plan(strings.ToLower(value))
}

// Billing returns duration_type, falling back to billing.
func (n Notes) Billing() string {
	value := n.String("duration_type")
	if value == "" {
		value = n.String("billing")
	}
	return strings.ToLower(value)
}

// Kind returns the purchase kind note.
func (n Notes) Kind() string {
	return strings.ToLower(n.String("type"))
}

// Coins returns the coins note when it is a positive integer.
func (n Notes) Coins() (int64, bool) {
	raw := n.String("coins")
	if raw == "" {
		return 0, false
	}
	coins, errParse := strconv.ParseInt(raw, 10, 64)
	if errParse != nil || coins <= 0 {
		return 0, false
	}
	return coins, true
}
