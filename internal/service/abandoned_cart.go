package service

import (
	"context"
	"time"

	"github.com/alimikegami/digital-store/settlement-service/config"
	"github.com/alimikegami/digital-store/settlement-service/internal/domain"
	"github.com/alimikegami/digital-store/settlement-service/internal/dto"
	"github.com/alimikegami/digital-store/settlement-service/internal/repository"
	pkgdto "github.com/alimikegami/digital-store/settlement-service/pkg/dto"
	"github.com/rs/zerolog/log"
)

const abandonedCartBatchSize = 100

// AbandonedCartDetector publishes at most one reminder per pending order
// that has waited too long. It never changes order state.
type AbandonedCartDetector struct {
	orderRepo repository.OrderRepository
	publisher EventPublisher
	after     time.Duration
	now       func() time.Time
}

func CreateAbandonedCartDetector(orderRepo repository.OrderRepository, publisher EventPublisher, conf config.SettlementConfig) *AbandonedCartDetector {
	return &AbandonedCartDetector{
		orderRepo: orderRepo,
		publisher: publisher,
		after:     conf.AbandonedCartAfter,
		now:       time.Now,
	}
}

func (d *AbandonedCartDetector) DetectAbandonedCarts() {
	log.Info().Str("component", "DetectAbandonedCarts").Msg("cron starts")

	reminded, err := d.Detect(context.Background())
	if err != nil {
		log.Error().Err(err).Str("component", "DetectAbandonedCarts").Msg("")
		return
	}

	log.Info().Str("component", "DetectAbandonedCarts").Int("reminded", reminded).Msg("cron ends")
}

func (d *AbandonedCartDetector) Detect(ctx context.Context) (int, error) {
	now := d.now()
	orders, err := d.orderRepo.GetOrders(ctx, pkgdto.Filter{
		PaymentStatus:       string(domain.OrderStatusPending),
		CreatedBefore:       now.Add(-d.after).Unix(),
		ExcludeCartReminded: true,
		Limit:               abandonedCartBatchSize,
	})
	if err != nil {
		return 0, err
	}

	reminded := 0
	for _, order := range orders {
		// marking first keeps reminders at most once when two detectors race
		marked, err := d.orderRepo.MarkAbandonedCartReminded(ctx, order.OrderID, now.Unix())
		if err != nil {
			return reminded, err
		}
		if !marked {
			continue
		}

		err = d.publisher.Publish(ctx, order.OrderID, dto.KafkaMessage{
			EventType: dto.EventCartAbandoned,
			Data: dto.CartAbandonedEvent{
				OrderID:       order.OrderID,
				CustomerEmail: order.CustomerEmail,
				CustomerName:  order.CustomerName,
				ProductID:     order.ProductID,
				Amount:        order.Amount.StringFixed(2),
				Currency:      order.Currency,
				CreatedAt:     order.CreatedAt,
			},
		})
		if err != nil {
			log.Ctx(ctx).Error().Err(err).Str("component", "DetectAbandonedCarts").Str("order_id", order.OrderID).Msg("")
			continue
		}
		reminded++
	}

	return reminded, nil
}
