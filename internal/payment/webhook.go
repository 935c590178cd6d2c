package payment

import (
	"context"
	"strings"
)

// Processor verifies and dispatches raw webhook deliveries.
type Processor struct {
	secret     string
	dispatcher *Dispatcher
}

// NewProcessor constructs a processor. An empty secret rejects every delivery.
func NewProcessor(secret string, dispatcher *Dispatcher) *Processor {
	return &Processor{secret: secret, dispatcher: dispatcher}
}

// Process authenticates rawBody against signature, decodes it and dispatches it.
func (p *Processor) Process(ctx context.Context, rawBody []byte, signature string) (Result, error) {
	if strings.TrimSpace(signature) == "" {
		return Result{}, ErrMissingSignature
	}
	if !VerifySignature(rawBody, signature, p.secret) {
		return Result{}, ErrInvalidSignature
	}
	event, errParse := ParseEvent(rawBody)
	if errParse != nil {
		return Result{}, errParse
	}
	return p.dispatcher.Dispatch(ctx, event, rawBody)
}
