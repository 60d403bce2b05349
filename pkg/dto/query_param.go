package dto

type Filter struct {
	Limit               int    `query:"limit"`
	Page                int    `query:"page"`
	PaymentStatus       string `query:"payment_status"`
	PaymentMethod       string `query:"payment_method"`
	CreatedBefore       int64  `query:"created_before"`
	CreatedAfter        int64  `query:"created_after"`
	HasProviderCharge   bool   `query:"has_provider_charge"`
	ExcludeCartReminded bool   `query:"exclude_cart_reminded"`
}
