package service

import (
	"context"
	"time"

	"github.com/alimikegami/digital-store/settlement-service/config"
	"github.com/alimikegami/digital-store/settlement-service/internal/domain"
	"github.com/alimikegami/digital-store/settlement-service/internal/repository"
	pkgdto "github.com/alimikegami/digital-store/settlement-service/pkg/dto"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const reconcileBatchSize = 100

// Reconciler polls providers for pending orders whose confirmation never
// arrived. Only methods with a status endpoint are polled.
type Reconciler struct {
	orderRepo   repository.OrderRepository
	settlement  SettlementService
	methods     []domain.PaymentMethod
	minAge      time.Duration
	concurrency int
	now         func() time.Time
}

func CreateReconciler(orderRepo repository.OrderRepository, settlement SettlementService, conf config.SettlementConfig) *Reconciler {
	concurrency := conf.ReconcileConcurrency
	if concurrency <= 0 {
		concurrency = 4
	}

	return &Reconciler{
		orderRepo:   orderRepo,
		settlement:  settlement,
		methods:     []domain.PaymentMethod{domain.PaymentMethodExpress},
		minAge:      conf.ReconcileMinAge,
		concurrency: concurrency,
		now:         time.Now,
	}
}

// ReconcilePendingOrders is run by the scheduler.
func (r *Reconciler) ReconcilePendingOrders() {
	log.Info().Str("component", "ReconcilePendingOrders").Msg("cron starts")

	settled, err := r.Reconcile(context.Background())
	if err != nil {
		log.Error().Err(err).Str("component", "ReconcilePendingOrders").Msg("")
		return
	}

	log.Info().Str("component", "ReconcilePendingOrders").Int("settled", settled).Msg("cron ends")
}

// Reconcile verifies one batch per method and returns how many orders
// changed state. A failing order is logged and does not stop the batch.
func (r *Reconciler) Reconcile(ctx context.Context) (int, error) {
	var orders []domain.Order
	for _, method := range r.methods {
		batch, err := r.orderRepo.GetOrders(ctx, pkgdto.Filter{
			PaymentStatus:     string(domain.OrderStatusPending),
			PaymentMethod:     string(method),
			CreatedBefore:     r.now().Add(-r.minAge).Unix(),
			HasProviderCharge: true,
			Limit:             reconcileBatchSize,
		})
		if err != nil {
			return 0, err
		}
		orders = append(orders, batch...)
	}

	results := make([]bool, len(orders))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for i, order := range orders {
		g.Go(func() error {
			res, err := r.settlement.VerifyOrder(gctx, order.OrderID)
			if err != nil {
				log.Ctx(gctx).Warn().Err(err).Str("component", "Reconcile").Str("order_id", order.OrderID).Msg("verification failed")
				return nil
			}
			results[i] = res.Transitioned
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	settled := 0
	for _, transitioned := range results {
		if transitioned {
			settled++
		}
	}

	return settled, nil
}
