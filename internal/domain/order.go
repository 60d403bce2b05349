package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusFailed    OrderStatus = "failed"
)

func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusFailed
}

type PaymentMethod string

const (
	PaymentMethodCard         PaymentMethod = "card"
	PaymentMethodWallet       PaymentMethod = "wallet"
	PaymentMethodReference    PaymentMethod = "reference"
	PaymentMethodExpress      PaymentMethod = "express"
	PaymentMethodBankTransfer PaymentMethod = "bank_transfer"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodCard, PaymentMethodWallet, PaymentMethodReference, PaymentMethodExpress, PaymentMethodBankTransfer:
		return true
	}
	return false
}

// PaymentOutcome is what a provider reports about a charge.
type PaymentOutcome string

const (
	PaymentOutcomeSuccess PaymentOutcome = "success"
	PaymentOutcomeFailure PaymentOutcome = "failure"
	PaymentOutcomePending PaymentOutcome = "pending"
)

func (o PaymentOutcome) OrderStatus() OrderStatus {
	switch o {
	case PaymentOutcomeSuccess:
		return OrderStatusCompleted
	case PaymentOutcomeFailure:
		return OrderStatusFailed
	}
	return OrderStatusPending
}

// OrderBump is a secondary product bought in the same checkout. It is
// stored as JSON next to the primary order.
type OrderBump struct {
	ProductID        string          `json:"product_id"`
	ProductName      string          `json:"product_name"`
	SellerID         string          `json:"seller_id"`
	Price            decimal.Decimal `json:"price"`
	SellerCommission decimal.Decimal `json:"seller_commission"`
}

func (b OrderBump) Value() (driver.Value, error) {
	data, err := json.Marshal(b)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func (b *OrderBump) Scan(src interface{}) error {
	switch v := src.(type) {
	case string:
		return json.Unmarshal([]byte(v), b)
	case []byte:
		return json.Unmarshal(v, b)
	}
	return fmt.Errorf("order bump: unsupported column type %T", src)
}

type Order struct {
	OrderID               string          `db:"order_id"`
	ProductID             string          `db:"product_id"`
	SellerID              string          `db:"seller_id"`
	CustomerEmail         string          `db:"customer_email"`
	CustomerName          string          `db:"customer_name"`
	CustomerPhone         string          `db:"customer_phone"`
	Amount                decimal.Decimal `db:"amount"`
	Currency              string          `db:"currency"`
	PaymentMethod         PaymentMethod   `db:"payment_method"`
	ProviderTransactionID *string         `db:"provider_transaction_id"`
	ProviderReference     *string         `db:"provider_reference"`
	ProviderInstructions  *string         `db:"provider_instructions"`
	ProviderExpiresAt     *int64          `db:"provider_expires_at"`
	ProviderError         *string         `db:"provider_error"`
	Status                OrderStatus     `db:"status"`
	SellerCommission      decimal.Decimal `db:"seller_commission"`
	OrderBumpData         *OrderBump      `db:"order_bump_data"`
	CreatedAt             int64           `db:"created_at"`
	UpdatedAt             int64           `db:"updated_at"`
	CompletedAt           *int64          `db:"completed_at"`
}

// HasLiveCharge reports whether a provider charge was already created for
// the order and has not expired at now (unix seconds).
func (o Order) HasLiveCharge(now int64) bool {
	if o.ProviderTransactionID == nil || *o.ProviderTransactionID == "" {
		return false
	}
	return o.ProviderExpiresAt == nil || *o.ProviderExpiresAt > now
}
