package dto

const (
	EventPurchaseCompleted = "purchase_completed"
	EventSellerSale        = "seller_sale"
	EventCartAbandoned     = "cart_abandoned"
)

type KafkaMessage struct {
	EventType string      `json:"event_type"`
	Data      interface{} `json:"data"`
}

type PurchaseCompletedEvent struct {
	OrderID         string  `json:"order_id"`
	CustomerEmail   string  `json:"customer_email"`
	CustomerName    string  `json:"customer_name"`
	ProductID       string  `json:"product_id"`
	ProductName     string  `json:"product_name"`
	BumpProductID   string  `json:"bump_product_id,omitempty"`
	BumpProductName string  `json:"bump_product_name,omitempty"`
	Amount          string  `json:"amount"`
	Currency        string  `json:"currency"`
	PaymentMethod   string  `json:"payment_method"`
	AccessExpiresAt *int64  `json:"access_expires_at"`
	CompletedAt     int64   `json:"completed_at"`
	CompletedAtText *string `json:"completed_at_text,omitempty"`
}

type SellerSaleEvent struct {
	OrderID     string `json:"order_id"`
	SellerID    string `json:"seller_id"`
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	Commission  string `json:"commission"`
	Currency    string `json:"currency"`
}

type CartAbandonedEvent struct {
	OrderID       string `json:"order_id"`
	CustomerEmail string `json:"customer_email"`
	CustomerName  string `json:"customer_name"`
	ProductID     string `json:"product_id"`
	Amount        string `json:"amount"`
	Currency      string `json:"currency"`
	CreatedAt     int64  `json:"created_at"`
}
