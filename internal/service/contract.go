package service

import (
	"context"

	"github.com/alimikegami/digital-store/settlement-service/internal/domain"
	"github.com/alimikegami/digital-store/settlement-service/internal/dto"
	"github.com/alimikegami/digital-store/settlement-service/internal/provider"
	pkgdto "github.com/alimikegami/digital-store/settlement-service/pkg/dto"
	"github.com/shopspring/decimal"
)

type CheckoutService interface {
	Checkout(ctx context.Context, req dto.CheckoutRequest) (resp dto.CheckoutResponse, err error)
	GetOrderStatus(ctx context.Context, orderID string) (resp dto.OrderStatusResponse, err error)
}

// SettlementService is the only writer of terminal order state.
type SettlementService interface {
	HandleInbound(ctx context.Context, method domain.PaymentMethod, in provider.Inbound) (resp dto.SettlementResult, err error)
	Settle(ctx context.Context, method domain.PaymentMethod, conf provider.Confirmation) (resp dto.SettlementResult, err error)
	VerifyOrder(ctx context.Context, orderID string) (resp dto.SettlementResult, err error)
	ConfirmManually(ctx context.Context, orderID string, req dto.ManualConfirmationRequest) (resp dto.SettlementResult, err error)
	ConfirmWalletPayment(ctx context.Context, req dto.WalletPaymentRequest) (resp dto.SettlementResult, err error)
	GetOrders(ctx context.Context, filter pkgdto.Filter) (resp []dto.OrderResponse, err error)
}

type WalletService interface {
	Register(ctx context.Context, email string) (resp dto.WalletResponse, err error)
	GetBalance(ctx context.Context, email string) (resp dto.WalletResponse, err error)
	Debit(ctx context.Context, email string, amount decimal.Decimal, description, reference string) (err error)
	Credit(ctx context.Context, req dto.WalletCreditRequest) (resp dto.WalletResponse, err error)
	GetTransactions(ctx context.Context, email string, limit int) (resp []dto.WalletTransactionResponse, err error)
}

// FanOut runs the side effects of a completed order. Run never fails the
// caller; step failures are logged and alerted.
type FanOut interface {
	Run(ctx context.Context, order domain.Order)
}

type EventPublisher interface {
	Publish(ctx context.Context, key string, msg dto.KafkaMessage) (err error)
}

// Alerter notifies the operator about conditions that need a human.
type Alerter interface {
	Alert(ctx context.Context, subject, body string)
}
