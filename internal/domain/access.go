package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type AccessUnit string

const (
	AccessUnitLifetime AccessUnit = "lifetime"
	AccessUnitDays     AccessUnit = "days"
	AccessUnitMonths   AccessUnit = "months"
	AccessUnitYears    AccessUnit = "years"
)

// AccessDuration is the product's access policy. The zero value is lifetime.
type AccessDuration struct {
	Unit  AccessUnit `json:"unit" bson:"unit"`
	Value int        `json:"value" bson:"value"`
}

// ExpiresAt returns nil for lifetime access.
func (d AccessDuration) ExpiresAt(grantedAt time.Time) *time.Time {
	if d.Value <= 0 {
		return nil
	}

	var t time.Time
	switch d.Unit {
	case AccessUnitDays:
		t = grantedAt.AddDate(0, 0, d.Value)
	case AccessUnitMonths:
		t = grantedAt.AddDate(0, d.Value, 0)
	case AccessUnitYears:
		t = grantedAt.AddDate(d.Value, 0, 0)
	default:
		return nil
	}
	return &t
}

type AccessGrant struct {
	CustomerEmail string `db:"customer_email"`
	ProductID     string `db:"product_id"`
	OrderID       string `db:"order_id"`
	Active        bool   `db:"active"`
	ExpiresAt     *int64 `db:"expires_at"`
	GrantedAt     int64  `db:"granted_at"`
	UpdatedAt     int64  `db:"updated_at"`
}

// Product is the catalog view the settlement engine needs.
type Product struct {
	ID             string
	Name           string
	SellerID       string
	Price          decimal.Decimal
	Currency       string
	AccessDuration AccessDuration
}

type SellerBalanceEntry struct {
	ID          string          `db:"id"`
	EntryKey    string          `db:"entry_key"`
	SellerID    string          `db:"seller_id"`
	OrderID     string          `db:"order_id"`
	Amount      decimal.Decimal `db:"amount"`
	Description string          `db:"description"`
	CreatedAt   int64           `db:"created_at"`
}
