package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

type WalletTransactionKind string

const (
	WalletTransactionDebit  WalletTransactionKind = "debit"
	WalletTransactionCredit WalletTransactionKind = "credit"
)

type WalletAccount struct {
	Email     string          `db:"email"`
	Balance   decimal.Decimal `db:"balance"`
	CreatedAt int64           `db:"created_at"`
	UpdatedAt int64           `db:"updated_at"`
}

type WalletTransaction struct {
	ID          string                `db:"id"`
	Email       string                `db:"email"`
	Kind        WalletTransactionKind `db:"kind"`
	Amount      decimal.Decimal       `db:"amount"`
	Description string                `db:"description"`
	Reference   string                `db:"reference"`
	CreatedAt   int64                 `db:"created_at"`
}

// NormalizeEmail is the identity key for wallets, orders and access grants.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
