package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/alimikegami/digital-store/settlement-service/internal/currency"
	"github.com/alimikegami/digital-store/settlement-service/internal/domain"
	"github.com/alimikegami/digital-store/settlement-service/internal/dto"
	"github.com/alimikegami/digital-store/settlement-service/internal/provider"
	"github.com/alimikegami/digital-store/settlement-service/internal/repository"
	pkgdto "github.com/alimikegami/digital-store/settlement-service/pkg/dto"
	"github.com/alimikegami/digital-store/settlement-service/pkg/errs"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

const (
	sourceWebhook = "webhook"
	sourceVerify  = "verify"
	sourceManual  = "manual"
	sourceWallet  = "wallet"
)

var minTolerance = decimal.RequireFromString("0.01")

// report is a provider or operator claim about an order's outcome.
type report struct {
	outcome      domain.PaymentOutcome
	amount       decimal.NullDecimal
	currency     string
	errorMessage string
	source       string
}

type SettlementServiceImpl struct {
	orderRepo  repository.OrderRepository
	wallet     WalletService
	registry   *provider.Registry
	normalizer *currency.Normalizer
	fanOut     FanOut
	alerter    Alerter
	now        func() time.Time
}

func CreateSettlementService(orderRepo repository.OrderRepository, wallet WalletService, registry *provider.Registry, normalizer *currency.Normalizer, fanOut FanOut, alerter Alerter) SettlementService {
	return &SettlementServiceImpl{
		orderRepo:  orderRepo,
		wallet:     wallet,
		registry:   registry,
		normalizer: normalizer,
		fanOut:     fanOut,
		alerter:    alerter,
		now:        time.Now,
	}
}

// HandleInbound is the single entry for webhooks and callbacks. Deliveries
// the provider does not sign are re-verified with the provider before they
// are allowed to settle anything.
func (s *SettlementServiceImpl) HandleInbound(ctx context.Context, method domain.PaymentMethod, in provider.Inbound) (resp dto.SettlementResult, err error) {
	adapter, err := s.registry.Get(method)
	if err != nil {
		return
	}

	conf, err := adapter.ParseConfirmation(ctx, in)
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("component", "HandleInbound").Str("payment_method", string(method)).Msg("rejected provider delivery")
		return
	}

	if !conf.Trusted {
		verified, err := adapter.Verify(ctx, conf.TransactionID)
		if err != nil {
			return resp, err
		}
		verified.TransactionID = conf.TransactionID
		conf = verified
	}

	return s.Settle(ctx, method, conf)
}

func (s *SettlementServiceImpl) Settle(ctx context.Context, method domain.PaymentMethod, conf provider.Confirmation) (resp dto.SettlementResult, err error) {
	order, err := s.orderRepo.GetOrderByProviderTransactionID(ctx, method, conf.TransactionID)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			log.Ctx(ctx).Warn().Err(err).Str("component", "Settle").Msg("confirmation for unknown transaction")
		}
		return
	}

	return s.settle(ctx, order, report{
		outcome:      conf.Outcome,
		amount:       conf.Amount,
		currency:     conf.Currency,
		errorMessage: conf.ErrorMessage,
		source:       sourceWebhook,
	})
}

// VerifyOrder actively polls the provider for a pending order.
func (s *SettlementServiceImpl) VerifyOrder(ctx context.Context, orderID string) (resp dto.SettlementResult, err error) {
	order, err := s.orderRepo.GetOrderByOrderID(ctx, orderID)
	if err != nil {
		return
	}

	if order.Status.IsTerminal() {
		return settlementResult(order.OrderID, order.Status, false), nil
	}

	switch order.PaymentMethod {
	case domain.PaymentMethodWallet:
		return settlementResult(order.OrderID, order.Status, false), nil
	case domain.PaymentMethodBankTransfer:
		return resp, fmt.Errorf("order %s: %w", order.OrderID, errs.ErrCannotAutoVerify)
	}

	if order.ProviderTransactionID == nil {
		return resp, fmt.Errorf("%w: order %s has no provider charge yet", errs.ErrClient, order.OrderID)
	}

	adapter, err := s.registry.Get(order.PaymentMethod)
	if err != nil {
		return
	}

	conf, err := adapter.Verify(ctx, *order.ProviderTransactionID)
	if err != nil {
		return
	}

	return s.settle(ctx, order, report{
		outcome:      conf.Outcome,
		amount:       conf.Amount,
		currency:     conf.Currency,
		errorMessage: conf.ErrorMessage,
		source:       sourceVerify,
	})
}

// ConfirmManually records an operator decision for orders no provider can
// confirm automatically.
func (s *SettlementServiceImpl) ConfirmManually(ctx context.Context, orderID string, req dto.ManualConfirmationRequest) (resp dto.SettlementResult, err error) {
	outcome := domain.PaymentOutcome(strings.ToLower(strings.TrimSpace(req.Outcome)))
	if outcome != domain.PaymentOutcomeSuccess && outcome != domain.PaymentOutcomeFailure {
		return resp, fmt.Errorf("%w: outcome must be success or failure", errs.ErrClient)
	}

	order, err := s.orderRepo.GetOrderByOrderID(ctx, orderID)
	if err != nil {
		return
	}

	if order.PaymentMethod == domain.PaymentMethodWallet && outcome == domain.PaymentOutcomeSuccess {
		return resp, fmt.Errorf("%w: wallet orders settle through a wallet debit", errs.ErrClient)
	}

	log.Ctx(ctx).Info().Str("component", "ConfirmManually").Str("order_id", order.OrderID).Str("outcome", string(outcome)).Str("note", req.Note).Msg("operator confirmation")

	errorMessage := ""
	if outcome == domain.PaymentOutcomeFailure {
		errorMessage = req.Note
	}

	return s.settle(ctx, order, report{
		outcome:      outcome,
		errorMessage: errorMessage,
		source:       sourceManual,
	})
}

// ConfirmWalletPayment debits the customer's wallet and completes the
// order. The debit reference is the order id, so a retry after a crash
// between the debit and the order write completes without charging twice.
func (s *SettlementServiceImpl) ConfirmWalletPayment(ctx context.Context, req dto.WalletPaymentRequest) (resp dto.SettlementResult, err error) {
	email, err := validateEmail(req.Email)
	if err != nil {
		return
	}

	order, err := s.orderRepo.GetOrderByOrderID(ctx, req.OrderID)
	if err != nil {
		return
	}

	if order.PaymentMethod != domain.PaymentMethodWallet {
		return resp, fmt.Errorf("%w: order %s is not a wallet order", errs.ErrClient, order.OrderID)
	}
	if order.CustomerEmail != email {
		return resp, fmt.Errorf("%w: order %s belongs to another customer", errs.ErrClient, order.OrderID)
	}
	if !req.Amount.Equal(order.Amount) {
		return resp, fmt.Errorf("order %s costs %s, got %s: %w", order.OrderID, order.Amount.StringFixed(2), req.Amount.StringFixed(2), errs.ErrAmountMismatch)
	}

	if order.Status.IsTerminal() {
		return s.settle(ctx, order, report{outcome: domain.PaymentOutcomeSuccess, source: sourceWallet})
	}

	err = s.wallet.Debit(ctx, email, order.Amount, fmt.Sprintf("order %s", order.OrderID), order.OrderID)
	if err != nil && !errors.Is(err, errs.ErrDuplicateDebit) {
		return
	}

	return s.settle(ctx, order, report{
		outcome:  domain.PaymentOutcomeSuccess,
		amount:   decimal.NewNullDecimal(order.Amount),
		currency: order.Currency,
		source:   sourceWallet,
	})
}

func (s *SettlementServiceImpl) settle(ctx context.Context, order domain.Order, r report) (resp dto.SettlementResult, err error) {
	target := r.outcome.OrderStatus()

	if order.Status.IsTerminal() {
		if target == order.Status || target == domain.OrderStatusPending {
			log.Ctx(ctx).Info().Str("component", "Settle").Str("order_id", order.OrderID).Str("status", string(order.Status)).Str("source", r.source).Msg("order already settled")
			return settlementResult(order.OrderID, order.Status, false), nil
		}
		return settlementResult(order.OrderID, order.Status, false), s.inconsistent(ctx, order, order.Status, target, r.source)
	}

	if target == domain.OrderStatusPending {
		return settlementResult(order.OrderID, domain.OrderStatusPending, false), nil
	}

	now := s.now().Unix()
	final := order
	final.Status = target
	final.Currency = s.normalizer.SettlementCurrency()
	final.UpdatedAt = now

	if target == domain.OrderStatusCompleted {
		final.Amount = s.confirmedAmount(ctx, order, r)
		final.CompletedAt = &now
	} else {
		message := r.errorMessage
		if message == "" {
			message = "payment failed"
		}
		final.ProviderError = &message
	}

	transitioned, err := s.orderRepo.UpsertFinal(ctx, final)
	if err != nil {
		if errors.Is(err, errs.ErrInconsistentState) {
			// lost a race against the opposite outcome
			current, getErr := s.orderRepo.GetOrderByOrderID(ctx, order.OrderID)
			if getErr == nil {
				return settlementResult(order.OrderID, current.Status, false), s.inconsistent(ctx, order, current.Status, target, r.source)
			}
		}
		return
	}

	if !transitioned {
		return settlementResult(order.OrderID, target, false), nil
	}

	log.Ctx(ctx).Info().Str("component", "Settle").Str("order_id", order.OrderID).Str("status", string(target)).Str("source", r.source).Msg("order settled")

	if target == domain.OrderStatusCompleted {
		s.fanOut.Run(ctx, final)
	}

	return settlementResult(order.OrderID, target, true), nil
}

// confirmedAmount returns the amount to store for a completed order. A
// provider amount within one native unit of the order amount is rounding;
// anything further is stored as reported and flagged.
func (s *SettlementServiceImpl) confirmedAmount(ctx context.Context, order domain.Order, r report) decimal.Decimal {
	if !r.amount.Valid {
		return order.Amount
	}

	cur := r.currency
	if cur == "" {
		cur = s.normalizer.SettlementCurrency()
	}
	confirmed := s.normalizer.Normalize(ctx, r.amount.Decimal, cur)

	tolerance, ok := s.normalizer.Rate(cur)
	if !ok || tolerance.LessThan(minTolerance) {
		tolerance = minTolerance
	}

	if confirmed.Sub(order.Amount).Abs().LessThanOrEqual(tolerance) {
		return order.Amount
	}

	log.Ctx(ctx).Warn().
		Str("component", "Settle").
		Str("order_id", order.OrderID).
		Str("order_amount", order.Amount.StringFixed(2)).
		Str("confirmed_amount", confirmed.StringFixed(2)).
		Str("provider_currency", cur).
		Msg("confirmed amount differs from order amount")
	s.alerter.Alert(ctx, "Amount mismatch on "+order.OrderID,
		fmt.Sprintf("Order %s was created for %s %s but %s confirmed %s %s (%s %s after conversion).",
			order.OrderID, order.Amount.StringFixed(2), order.Currency, order.PaymentMethod,
			r.amount.Decimal.String(), cur, confirmed.StringFixed(2), s.normalizer.SettlementCurrency()))

	return confirmed
}

func (s *SettlementServiceImpl) inconsistent(ctx context.Context, order domain.Order, current, reported domain.OrderStatus, source string) error {
	err := fmt.Errorf("order %s is %s but %s reported %s: %w", order.OrderID, current, source, reported, errs.ErrInconsistentState)

	log.Ctx(ctx).Error().Err(err).Bool("critical", true).Str("component", "Settle").Str("order_id", order.OrderID).Str("payment_method", string(order.PaymentMethod)).Msg("")
	s.alerter.Alert(ctx, "Inconsistent settlement for "+order.OrderID,
		fmt.Sprintf("Order %s (%s, %s %s) is %s, but a %s confirmation reported %s. The order was left unchanged.",
			order.OrderID, order.PaymentMethod, order.Amount.StringFixed(2), order.Currency, current, source, reported))

	return err
}

func settlementResult(orderID string, status domain.OrderStatus, transitioned bool) dto.SettlementResult {
	return dto.SettlementResult{
		OrderID:      orderID,
		Status:       string(status),
		Transitioned: transitioned,
	}
}

func (s *SettlementServiceImpl) GetOrders(ctx context.Context, filter pkgdto.Filter) (resp []dto.OrderResponse, err error) {
	datas, err := s.orderRepo.GetOrders(ctx, filter)
	if err != nil {
		return
	}

	resp = make([]dto.OrderResponse, 0, len(datas))
	for _, data := range datas {
		resp = append(resp, dto.OrderResponse{
			OrderID:               data.OrderID,
			ProductID:             data.ProductID,
			SellerID:              data.SellerID,
			CustomerEmail:         data.CustomerEmail,
			Amount:                data.Amount.StringFixed(2),
			Currency:              data.Currency,
			PaymentMethod:         string(data.PaymentMethod),
			ProviderTransactionID: data.ProviderTransactionID,
			ProviderError:         data.ProviderError,
			Status:                string(data.Status),
			SellerCommission:      data.SellerCommission.StringFixed(2),
			CreatedAt:             data.CreatedAt,
			CompletedAt:           data.CompletedAt,
		})
	}

	return
}
