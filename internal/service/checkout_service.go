package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/alimikegami/digital-store/settlement-service/config"
	"github.com/alimikegami/digital-store/settlement-service/internal/currency"
	"github.com/alimikegami/digital-store/settlement-service/internal/domain"
	"github.com/alimikegami/digital-store/settlement-service/internal/dto"
	"github.com/alimikegami/digital-store/settlement-service/internal/provider"
	"github.com/alimikegami/digital-store/settlement-service/internal/repository"
	"github.com/alimikegami/digital-store/settlement-service/pkg/errs"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

type CheckoutServiceImpl struct {
	orderRepo  repository.OrderRepository
	catalog    repository.ProductRepository
	registry   *provider.Registry
	normalizer *currency.Normalizer
	config     config.SettlementConfig
	now        func() time.Time
}

func CreateCheckoutService(orderRepo repository.OrderRepository, catalog repository.ProductRepository, registry *provider.Registry, normalizer *currency.Normalizer, config config.SettlementConfig) CheckoutService {
	return &CheckoutServiceImpl{
		orderRepo:  orderRepo,
		catalog:    catalog,
		registry:   registry,
		normalizer: normalizer,
		config:     config,
		now:        time.Now,
	}
}

// sellerCommission is what the seller keeps after the platform fee.
func sellerCommission(amount, feePercent decimal.Decimal) decimal.Decimal {
	return amount.Sub(amount.Mul(feePercent).Div(hundred)).Round(2)
}

// Checkout creates or reuses the pending order for this checkout and makes
// sure it has a provider charge. Retrying while a charge is still live
// replays that charge instead of creating a second one.
func (s *CheckoutServiceImpl) Checkout(ctx context.Context, req dto.CheckoutRequest) (resp dto.CheckoutResponse, err error) {
	method := domain.PaymentMethod(strings.ToLower(strings.TrimSpace(req.PaymentMethod)))
	if !method.Valid() {
		return resp, fmt.Errorf("%q: %w", req.PaymentMethod, errs.ErrUnsupportedPaymentMethod)
	}

	email, err := validateEmail(req.CustomerEmail)
	if err != nil {
		return
	}
	if strings.TrimSpace(req.ProductID) == "" {
		return resp, fmt.Errorf("%w: product_id is required", errs.ErrClient)
	}

	var adapter provider.Adapter
	if method != domain.PaymentMethodWallet && method != domain.PaymentMethodBankTransfer {
		adapter, err = s.registry.Get(method)
		if err != nil {
			log.Ctx(ctx).Error().Err(err).Str("component", "Checkout").Msg("")
			return
		}
	}

	product, err := s.catalog.GetProductByID(ctx, req.ProductID)
	if err != nil {
		return
	}

	price := s.normalizer.Normalize(ctx, product.Price, product.Currency)
	amount := price

	var bump *domain.OrderBump
	if req.OrderBumpProductID != "" && req.OrderBumpProductID != product.ID {
		bumpProduct, err := s.catalog.GetProductByID(ctx, req.OrderBumpProductID)
		if err != nil {
			return resp, err
		}

		bumpPrice := s.normalizer.Normalize(ctx, bumpProduct.Price, bumpProduct.Currency)
		bump = &domain.OrderBump{
			ProductID:        bumpProduct.ID,
			ProductName:      bumpProduct.Name,
			SellerID:         bumpProduct.SellerID,
			Price:            bumpPrice,
			SellerCommission: sellerCommission(bumpPrice, s.config.PlatformFeePercent),
		}
		amount = amount.Add(bumpPrice)
	}

	orderID := strings.TrimSpace(req.OrderID)
	if orderID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return resp, fmt.Errorf("error generating order id: %w", err)
		}
		orderID = id.String()
	}

	now := s.now()
	order, reused, err := s.orderRepo.CreateOrReuse(ctx, domain.Order{
		OrderID:          orderID,
		ProductID:        product.ID,
		SellerID:         product.SellerID,
		CustomerEmail:    email,
		CustomerName:     strings.TrimSpace(req.CustomerName),
		CustomerPhone:    strings.TrimSpace(req.CustomerPhone),
		Amount:           amount,
		Currency:         s.normalizer.SettlementCurrency(),
		PaymentMethod:    method,
		Status:           domain.OrderStatusPending,
		SellerCommission: sellerCommission(price, s.config.PlatformFeePercent),
		OrderBumpData:    bump,
		CreatedAt:        now.Unix(),
		UpdatedAt:        now.Unix(),
	}, now.Add(-s.config.ReuseWindow).Unix())
	if err != nil {
		return
	}

	if reused && order.PaymentMethod != method {
		return resp, fmt.Errorf("order %s was started with %s: %w", order.OrderID, order.PaymentMethod, errs.ErrConflict)
	}

	if reused {
		log.Ctx(ctx).Info().Str("component", "Checkout").Str("order_id", order.OrderID).Msg("reusing pending order")
	}

	if order.Status.IsTerminal() || adapter == nil || order.HasLiveCharge(now.Unix()) {
		return checkoutResponse(order, reused), nil
	}

	charge, err := adapter.CreateCharge(ctx, provider.ChargeRequest{
		OrderID:       order.OrderID,
		ProductID:     order.ProductID,
		ProductName:   product.Name,
		CustomerEmail: order.CustomerEmail,
		CustomerName:  order.CustomerName,
		CustomerPhone: order.CustomerPhone,
		Amount:        order.Amount,
	})
	if err != nil {
		return
	}

	order.ProviderTransactionID = &charge.TransactionID
	order.ProviderReference = &charge.Reference
	order.ProviderInstructions = &charge.Instructions
	order.ProviderExpiresAt = nil
	if charge.ExpiresAt != nil {
		expiresAt := charge.ExpiresAt.Unix()
		order.ProviderExpiresAt = &expiresAt
	}
	order.UpdatedAt = s.now().Unix()

	err = s.orderRepo.AttachProviderCharge(ctx, order)
	if err != nil {
		return
	}

	return checkoutResponse(order, reused), nil
}

func checkoutResponse(order domain.Order, reused bool) dto.CheckoutResponse {
	resp := dto.CheckoutResponse{
		OrderID:       order.OrderID,
		Status:        string(order.Status),
		PaymentMethod: string(order.PaymentMethod),
		Amount:        order.Amount,
		Currency:      order.Currency,
		ExpiresAt:     order.ProviderExpiresAt,
		Reused:        reused,
	}
	if order.ProviderInstructions != nil {
		resp.Instructions = *order.ProviderInstructions
	}

	if order.PaymentMethod == domain.PaymentMethodCard {
		resp.ClientSecret = order.ProviderReference
	} else {
		resp.ProviderReference = order.ProviderReference
	}

	if order.PaymentMethod == domain.PaymentMethodBankTransfer && order.Status == domain.OrderStatusPending {
		resp.Instructions = fmt.Sprintf("Transfer %s %s quoting order %s. Access is granted once the transfer is confirmed.", order.Amount.StringFixed(2), order.Currency, order.OrderID)
	}

	return resp
}

func (s *CheckoutServiceImpl) GetOrderStatus(ctx context.Context, orderID string) (resp dto.OrderStatusResponse, err error) {
	order, err := s.orderRepo.GetOrderByOrderID(ctx, orderID)
	if err != nil {
		return
	}

	return dto.OrderStatusResponse{
		OrderID:   order.OrderID,
		Status:    string(order.Status),
		Amount:    order.Amount,
		Currency:  order.Currency,
		ExpiresAt: order.ProviderExpiresAt,
	}, nil
}
