package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alimikegami/digital-store/settlement-service/internal/domain"
	"github.com/alimikegami/digital-store/settlement-service/internal/dto"
	"github.com/alimikegami/digital-store/settlement-service/internal/repository"
	"github.com/alimikegami/digital-store/settlement-service/pkg/errs"
	"github.com/alimikegami/digital-store/settlement-service/pkg/utils"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

const bumpEntrySuffix = "/bump"

type FanOutImpl struct {
	accessRepo  repository.AccessRepository
	balanceRepo repository.BalanceRepository
	catalog     repository.ProductRepository
	publisher   EventPublisher
	alerter     Alerter
	timeout     time.Duration
	now         func() time.Time
}

func CreateFanOut(accessRepo repository.AccessRepository, balanceRepo repository.BalanceRepository, catalog repository.ProductRepository, publisher EventPublisher, alerter Alerter, timeout time.Duration) FanOut {
	return &FanOutImpl{
		accessRepo:  accessRepo,
		balanceRepo: balanceRepo,
		catalog:     catalog,
		publisher:   publisher,
		alerter:     alerter,
		timeout:     timeout,
		now:         time.Now,
	}
}

// Run grants access, credits sellers and publishes notifications, in that
// order. It is detached from the caller's cancellation so a webhook client
// hanging up cannot cut it short.
func (f *FanOutImpl) Run(ctx context.Context, order domain.Order) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), f.timeout)
	defer cancel()

	logger := log.Ctx(ctx).With().Str("component", "FanOut").Str("order_id", order.OrderID).Logger()
	ctx = logger.WithContext(ctx)

	grantedAt := f.now()

	var failed []string
	step := func(name string, err error) {
		if err == nil {
			logger.Info().Str("step", name).Msg("fan-out step done")
			return
		}
		failed = append(failed, name)
		logger.Error().Err(err).Str("step", name).Msg("")
	}

	product, err := f.catalog.GetProductByID(ctx, order.ProductID)
	step("load_product", err)

	var accessExpiresAt *int64
	if err == nil {
		accessExpiresAt, err = f.grantAccess(ctx, order, product, grantedAt)
		step("grant_access", err)
	}

	var bumpProduct domain.Product
	if order.OrderBumpData != nil {
		bumpProduct, err = f.catalog.GetProductByID(ctx, order.OrderBumpData.ProductID)
		step("load_bump_product", err)
		if err == nil {
			_, err = f.grantAccess(ctx, order, bumpProduct, grantedAt)
			step("grant_bump_access", err)
		}
	}

	step("credit_seller", f.creditSeller(ctx, order.OrderID, order.OrderID, order.SellerID, order.SellerCommission, "sale of "+order.ProductID))
	if order.OrderBumpData != nil {
		bump := order.OrderBumpData
		step("credit_bump_seller", f.creditSeller(ctx, order.OrderID+bumpEntrySuffix, order.OrderID, bump.SellerID, bump.SellerCommission, "order bump sale of "+bump.ProductID))
	}

	event := dto.PurchaseCompletedEvent{
		OrderID:         order.OrderID,
		CustomerEmail:   order.CustomerEmail,
		CustomerName:    order.CustomerName,
		ProductID:       order.ProductID,
		ProductName:     product.Name,
		Amount:          order.Amount.StringFixed(2),
		Currency:        order.Currency,
		PaymentMethod:   string(order.PaymentMethod),
		AccessExpiresAt: accessExpiresAt,
		CompletedAt:     grantedAt.Unix(),
	}
	if text, err := utils.ConvertDateTimeToHumanReadableFormat(grantedAt.Unix()); err == nil {
		event.CompletedAtText = &text
	}
	if order.OrderBumpData != nil {
		event.BumpProductID = order.OrderBumpData.ProductID
		event.BumpProductName = order.OrderBumpData.ProductName
	}
	step("notify_buyer", f.publisher.Publish(ctx, order.OrderID, dto.KafkaMessage{
		EventType: dto.EventPurchaseCompleted,
		Data:      event,
	}))

	step("notify_seller", f.publisher.Publish(ctx, order.OrderID, dto.KafkaMessage{
		EventType: dto.EventSellerSale,
		Data: dto.SellerSaleEvent{
			OrderID:     order.OrderID,
			SellerID:    order.SellerID,
			ProductID:   order.ProductID,
			ProductName: product.Name,
			Commission:  order.SellerCommission.StringFixed(2),
			Currency:    order.Currency,
		},
	}))
	if order.OrderBumpData != nil && order.OrderBumpData.SellerID != order.SellerID {
		bump := order.OrderBumpData
		step("notify_bump_seller", f.publisher.Publish(ctx, order.OrderID, dto.KafkaMessage{
			EventType: dto.EventSellerSale,
			Data: dto.SellerSaleEvent{
				OrderID:     order.OrderID,
				SellerID:    bump.SellerID,
				ProductID:   bump.ProductID,
				ProductName: bump.ProductName,
				Commission:  bump.SellerCommission.StringFixed(2),
				Currency:    order.Currency,
			},
		}))
	}

	if len(failed) > 0 {
		f.alerter.Alert(ctx, "Fan-out incomplete for "+order.OrderID,
			fmt.Sprintf("Order %s completed but these steps failed and need manual follow-up: %v", order.OrderID, failed))
	}
}

func (f *FanOutImpl) grantAccess(ctx context.Context, order domain.Order, product domain.Product, grantedAt time.Time) (*int64, error) {
	grant := domain.AccessGrant{
		CustomerEmail: order.CustomerEmail,
		ProductID:     product.ID,
		OrderID:       order.OrderID,
		Active:        true,
		GrantedAt:     grantedAt.Unix(),
		UpdatedAt:     grantedAt.Unix(),
	}
	if expiresAt := product.AccessDuration.ExpiresAt(grantedAt); expiresAt != nil {
		unix := expiresAt.Unix()
		grant.ExpiresAt = &unix
	}

	if err := f.accessRepo.GrantAccess(ctx, grant); err != nil {
		return nil, err
	}

	return grant.ExpiresAt, nil
}

// creditSeller is idempotent per entry key: a second credit for the same
// key is logged and skipped.
func (f *FanOutImpl) creditSeller(ctx context.Context, entryKey, orderID, sellerID string, amount decimal.Decimal, description string) error {
	if sellerID == "" || !amount.IsPositive() {
		return nil
	}

	now := f.now()
	err := f.balanceRepo.HandleTrx(ctx, func(ctx context.Context, repo repository.BalanceRepository) error {
		if err := repo.AddBalanceEntry(ctx, domain.SellerBalanceEntry{
			ID:          ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()).String(),
			EntryKey:    entryKey,
			SellerID:    sellerID,
			OrderID:     orderID,
			Amount:      amount,
			Description: description,
			CreatedAt:   now.Unix(),
		}); err != nil {
			return err
		}

		return repo.IncrementSellerBalance(ctx, sellerID, amount, now.Unix())
	})
	if errors.Is(err, errs.ErrDuplicateCredit) {
		log.Ctx(ctx).Info().Str("entry_key", entryKey).Msg("seller already credited")
		return nil
	}

	return err
}
