package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/alimikegami/digital-store/settlement-service/internal/domain"
	"github.com/alimikegami/digital-store/settlement-service/internal/dto"
	"github.com/alimikegami/digital-store/settlement-service/internal/provider"
	"github.com/alimikegami/digital-store/settlement-service/pkg/errs"
	"github.com/segmentio/kafka-go"
)

type fakeCatalog struct {
	mu       sync.Mutex
	products map[string]domain.Product
}

func (c *fakeCatalog) GetProductByID(ctx context.Context, id string) (domain.Product, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	product, ok := c.products[id]
	if !ok {
		return domain.Product{}, fmt.Errorf("product %s: %w", id, errs.ErrNotFound)
	}
	return product, nil
}

type recordingPublisher struct {
	mu       sync.Mutex
	messages []dto.KafkaMessage
	err      error
}

func (p *recordingPublisher) Publish(ctx context.Context, key string, msg dto.KafkaMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.err != nil {
		return p.err
	}
	p.messages = append(p.messages, msg)
	return nil
}

func (p *recordingPublisher) count(eventType string) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := 0
	for _, msg := range p.messages {
		if msg.EventType == eventType {
			n++
		}
	}
	return n
}

type recordingAlerter struct {
	mu       sync.Mutex
	subjects []string
}

func (a *recordingAlerter) Alert(ctx context.Context, subject, body string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.subjects = append(a.subjects, subject)
}

func (a *recordingAlerter) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.subjects)
}

// stubCardAdapter stands in for the card processor, whose SDK client cannot
// be pointed at a test server.
type stubCardAdapter struct {
	mu        sync.Mutex
	now       func() time.Time
	charges   int
	chargeErr error
}

func (a *stubCardAdapter) Method() domain.PaymentMethod {
	return domain.PaymentMethodCard
}

func (a *stubCardAdapter) CreateCharge(ctx context.Context, req provider.ChargeRequest) (provider.ChargeResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.charges++
	if a.chargeErr != nil {
		return provider.ChargeResult{}, a.chargeErr
	}

	expiresAt := a.now().Add(24 * time.Hour)
	return provider.ChargeResult{
		TransactionID: req.OrderID,
		Reference:     fmt.Sprintf("secret-%s-%d", req.OrderID, a.charges),
		ExpiresAt:     &expiresAt,
	}, nil
}

func (a *stubCardAdapter) ParseConfirmation(ctx context.Context, in provider.Inbound) (provider.Confirmation, error) {
	return provider.Confirmation{}, errs.ErrMalformedPayload
}

func (a *stubCardAdapter) Verify(ctx context.Context, transactionID string) (provider.Confirmation, error) {
	return provider.Confirmation{}, errs.ErrVerificationNotSupported
}

func (a *stubCardAdapter) chargeCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.charges
}

type flakyWriter struct {
	mu       sync.Mutex
	failures int
	calls    int
	written  []kafka.Message
}

func (w *flakyWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.calls++
	if w.calls <= w.failures {
		return fmt.Errorf("broker unavailable")
	}
	w.written = append(w.written, msgs...)
	return nil
}
