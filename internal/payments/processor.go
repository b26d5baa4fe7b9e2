package payments

import (
	"context"
	"errors"
)

var (
	ErrRefundFailed = errors.New("refund processing failed")
)

// IntentRequest describes a payment to be collected, amount in minor
// currency units.
type IntentRequest struct {
	Amount   int64
	Currency string
	Metadata map[string]string
}

// Intent is the processor's handle for a pending payment.
type Intent struct {
	Ref          string
	ClientSecret string
}

// Processor is the external payment collaborator. The booking core only
// computes amounts and states; settlement happens here.
type Processor interface {
	CreateIntent(ctx context.Context, req IntentRequest) (*Intent, error)
	Refund(ctx context.Context, paymentRef string, amount int64, reason string) error
}
