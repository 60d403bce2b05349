package dto

import "github.com/shopspring/decimal"

type WalletRegisterRequest struct {
	Email string `json:"email"`
}

type WalletResponse struct {
	Email    string          `json:"email"`
	Balance  decimal.Decimal `json:"balance"`
	Currency string          `json:"currency"`
}

type WalletPaymentRequest struct {
	Email   string          `json:"email"`
	Amount  decimal.Decimal `json:"amount"`
	OrderID string          `json:"order_id"`
}

type WalletCreditRequest struct {
	Email       string          `json:"email"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	Reference   string          `json:"reference"`
}

type WalletTransactionResponse struct {
	ID          string          `json:"id"`
	Kind        string          `json:"kind"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	Reference   string          `json:"reference"`
	CreatedAt   int64           `json:"created_at"`
}
