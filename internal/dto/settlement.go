package dto

type SettlementResult struct {
	OrderID      string `json:"order_id"`
	Status       string `json:"status"`
	Transitioned bool   `json:"transitioned"`
}

type ManualConfirmationRequest struct {
	// Outcome is "success" or "failure".
	Outcome string `json:"outcome"`
	Note    string `json:"note"`
}

type OrderResponse struct {
	OrderID               string  `json:"order_id"`
	ProductID             string  `json:"product_id"`
	SellerID              string  `json:"seller_id"`
	CustomerEmail         string  `json:"customer_email"`
	Amount                string  `json:"amount"`
	Currency              string  `json:"currency"`
	PaymentMethod         string  `json:"payment_method"`
	ProviderTransactionID *string `json:"provider_transaction_id"`
	ProviderError         *string `json:"provider_error"`
	Status                string  `json:"status"`
	SellerCommission      string  `json:"seller_commission"`
	CreatedAt             int64   `json:"created_at"`
	CompletedAt           *int64  `json:"completed_at"`
}
