package dto

import "github.com/shopspring/decimal"

type CheckoutRequest struct {
	// OrderID is an optional client-generated seed. Resubmitting the same
	// seed returns the same order.
	OrderID            string `json:"order_id"`
	ProductID          string `json:"product_id"`
	OrderBumpProductID string `json:"order_bump_product_id"`
	CustomerEmail      string `json:"customer_email"`
	CustomerName       string `json:"customer_name"`
	CustomerPhone      string `json:"customer_phone"`
	PaymentMethod      string `json:"payment_method"`
}

type CheckoutResponse struct {
	OrderID           string          `json:"order_id"`
	Status            string          `json:"status"`
	PaymentMethod     string          `json:"payment_method"`
	Amount            decimal.Decimal `json:"amount"`
	Currency          string          `json:"currency"`
	ProviderReference *string         `json:"provider_reference"`
	ClientSecret      *string         `json:"client_secret"`
	Instructions      string          `json:"instructions,omitempty"`
	ExpiresAt         *int64          `json:"expires_at"`
	Reused            bool            `json:"reused"`
}

// OrderStatusResponse is the customer view of an order. It never exposes
// reconciliation detail.
type OrderStatusResponse struct {
	OrderID   string          `json:"order_id"`
	Status    string          `json:"status"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
	ExpiresAt *int64          `json:"expires_at"`
}
