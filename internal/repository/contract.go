package repository

import (
	"context"

	"github.com/alimikegami/digital-store/settlement-service/internal/domain"
	pkgdto "github.com/alimikegami/digital-store/settlement-service/pkg/dto"
	"github.com/shopspring/decimal"
)

type OrderRepository interface {
	// CreateOrReuse returns the pending order a retried checkout should
	// continue with, or inserts data when none exists. reused reports which
	// of the two happened.
	CreateOrReuse(ctx context.Context, data domain.Order, createdAfter int64) (order domain.Order, reused bool, err error)
	AddOrder(ctx context.Context, data domain.Order) (err error)
	GetOrderByOrderID(ctx context.Context, orderID string) (data domain.Order, err error)
	GetReusableOrder(ctx context.Context, email, productID string, method domain.PaymentMethod, createdAfter int64) (data *domain.Order, err error)
	GetOrderByProviderTransactionID(ctx context.Context, method domain.PaymentMethod, transactionID string) (data domain.Order, err error)
	AttachProviderCharge(ctx context.Context, data domain.Order) (err error)
	// UpsertFinal moves a pending order to data.Status. transitioned is true
	// only for the call that actually performed the move.
	UpsertFinal(ctx context.Context, data domain.Order) (transitioned bool, err error)
	GetOrders(ctx context.Context, filter pkgdto.Filter) (data []domain.Order, err error)
	MarkAbandonedCartReminded(ctx context.Context, orderID string, remindedAt int64) (marked bool, err error)
}

type WalletRepository interface {
	HandleTrx(ctx context.Context, fn func(ctx context.Context, repo WalletRepository) error) error

	GetWalletByEmail(ctx context.Context, email string) (data *domain.WalletAccount, err error)
	AddWallet(ctx context.Context, data domain.WalletAccount) (err error)
	AddTransaction(ctx context.Context, data domain.WalletTransaction) (err error)
	DecrementBalance(ctx context.Context, email string, amount decimal.Decimal, updatedAt int64) (err error)
	IncrementBalance(ctx context.Context, email string, amount decimal.Decimal, updatedAt int64) (err error)
	GetTransactions(ctx context.Context, email string, limit int) (data []domain.WalletTransaction, err error)
}

type AccessRepository interface {
	GrantAccess(ctx context.Context, data domain.AccessGrant) (err error)
	GetAccessGrant(ctx context.Context, email, productID string) (data *domain.AccessGrant, err error)
}

type BalanceRepository interface {
	HandleTrx(ctx context.Context, fn func(ctx context.Context, repo BalanceRepository) error) error

	AddBalanceEntry(ctx context.Context, data domain.SellerBalanceEntry) (err error)
	IncrementSellerBalance(ctx context.Context, sellerID string, amount decimal.Decimal, updatedAt int64) (err error)
	GetSellerBalance(ctx context.Context, sellerID string) (balance decimal.Decimal, err error)
	GetBalanceEntriesByOrderID(ctx context.Context, orderID string) (data []domain.SellerBalanceEntry, err error)
}

type ProductRepository interface {
	GetProductByID(ctx context.Context, id string) (data domain.Product, err error)
}
