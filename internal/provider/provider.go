// Package provider defines the contract every payment provider adapter
// implements, plus the helpers adapters share for decoding untrusted
// provider payloads.
package provider

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/alimikegami/digital-store/settlement-service/internal/domain"
	"github.com/shopspring/decimal"
)

type ChargeRequest struct {
	OrderID       string
	ProductID     string
	ProductName   string
	CustomerEmail string
	CustomerName  string
	CustomerPhone string
	// Amount is in the settlement currency. Adapters convert it when their
	// provider charges in another currency.
	Amount decimal.Decimal
}

type ChargeResult struct {
	TransactionID string
	// Reference is what the customer needs to complete payment: a client
	// secret for card, a payment reference for reference payments.
	Reference    string
	Instructions string
	ExpiresAt    *time.Time
}

// Inbound is a raw provider delivery, either a webhook body or a callback
// query string.
type Inbound struct {
	Body   []byte
	Query  url.Values
	Header http.Header
}

type Confirmation struct {
	TransactionID string
	Outcome       domain.PaymentOutcome
	// Amount is provider native; Currency says which currency it is in.
	Amount       decimal.NullDecimal
	Currency     string
	ErrorMessage string
	RawStatus    string
	// Trusted is false for deliveries the provider does not sign. Those are
	// re-verified with the provider before they can change an order.
	Trusted bool
}

type Adapter interface {
	Method() domain.PaymentMethod
	CreateCharge(ctx context.Context, req ChargeRequest) (ChargeResult, error)
	ParseConfirmation(ctx context.Context, in Inbound) (Confirmation, error)
	// Verify asks the provider for the current state of a charge.
	Verify(ctx context.Context, transactionID string) (Confirmation, error)
}
