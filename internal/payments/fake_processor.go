package payments

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// FakeProcessor is an in-memory Processor for local development and
// tests. It mints intent references and remembers refunds.
type FakeProcessor struct {
	mu      sync.Mutex
	intents map[string]IntentRequest
	refunds map[string]int64

	// FailRefunds makes every Refund call return ErrRefundFailed.
	FailRefunds bool
}

func NewFakeProcessor() *FakeProcessor {
	return &FakeProcessor{
		intents: make(map[string]IntentRequest),
		refunds: make(map[string]int64),
	}
}

func (p *FakeProcessor) CreateIntent(_ context.Context, req IntentRequest) (*Intent, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	ref := fmt.Sprintf("pi_fake_%s", uuid.NewString())
	p.intents[ref] = req
	return &Intent{Ref: ref, ClientSecret: ref + "_secret"}, nil
}

func (p *FakeProcessor) Refund(_ context.Context, paymentRef string, amount int64, _ string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.FailRefunds {
		return fmt.Errorf("%w: fake processor configured to fail", ErrRefundFailed)
	}
	p.refunds[paymentRef] += amount
	return nil
}

// RefundedAmount reports the total refunded against a payment reference.
func (p *FakeProcessor) RefundedAmount(paymentRef string) int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.refunds[paymentRef]
}
