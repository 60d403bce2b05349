package repository

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/alimikegami/digital-store/settlement-service/internal/domain"
	"github.com/alimikegami/digital-store/settlement-service/internal/testutil"
	pkgdto "github.com/alimikegami/digital-store/settlement-service/pkg/dto"
	"github.com/alimikegami/digital-store/settlement-service/pkg/errs"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type OrderRepositoryTestSuite struct {
	suite.Suite
	repo OrderRepository
	ctx  context.Context
}

func (s *OrderRepositoryTestSuite) SetupTest() {
	s.repo = CreateOrderRepository(testutil.NewDB(s.T()))
	s.ctx = context.Background()
}

func TestOrderRepositoryTestSuite(t *testing.T) {
	suite.Run(t, new(OrderRepositoryTestSuite))
}

func newPendingOrder(id string, createdAt int64) domain.Order {
	return domain.Order{
		OrderID:          id,
		ProductID:        "prod-1",
		SellerID:         "seller-1",
		CustomerEmail:    "ana@example.ao",
		CustomerName:     "Ana",
		Amount:           decimal.NewFromInt(5900),
		Currency:         "AOA",
		PaymentMethod:    domain.PaymentMethodReference,
		Status:           domain.OrderStatusPending,
		SellerCommission: decimal.NewFromInt(5310),
		CreatedAt:        createdAt,
		UpdatedAt:        createdAt,
	}
}

func (s *OrderRepositoryTestSuite) Test_CreateOrReuse() {
	first, reused, err := s.repo.CreateOrReuse(s.ctx, newPendingOrder("order-1", 1000), 0)
	s.Require().NoError(err)
	s.False(reused)
	s.Equal("order-1", first.OrderID)

	s.Run("inside the window returns the pending order", func() {
		order, reused, err := s.repo.CreateOrReuse(s.ctx, newPendingOrder("order-2", 1100), 1100-600)
		s.Require().NoError(err)
		s.True(reused)
		s.Equal("order-1", order.OrderID)
	})

	s.Run("outside the window creates a new order", func() {
		order, reused, err := s.repo.CreateOrReuse(s.ctx, newPendingOrder("order-3", 2000), 2000-600)
		s.Require().NoError(err)
		s.False(reused)
		s.Equal("order-3", order.OrderID)
	})

	s.Run("existing seed is the same checkout", func() {
		order, reused, err := s.repo.CreateOrReuse(s.ctx, newPendingOrder("order-1", 5000), 5000-600)
		s.Require().NoError(err)
		s.True(reused)
		s.Equal("order-1", order.OrderID)
	})

	s.Run("seed owned by another customer is rejected", func() {
		other := newPendingOrder("order-1", 5000)
		other.CustomerEmail = "bruno@example.ao"
		_, _, err := s.repo.CreateOrReuse(s.ctx, other, 5000-600)
		s.ErrorIs(err, errs.ErrConflict)
	})

	s.Run("different payment method is not reused", func() {
		card := newPendingOrder("order-4", 2010)
		card.PaymentMethod = domain.PaymentMethodCard
		order, reused, err := s.repo.CreateOrReuse(s.ctx, card, 2010-600)
		s.Require().NoError(err)
		s.False(reused)
		s.Equal("order-4", order.OrderID)
	})
}

func (s *OrderRepositoryTestSuite) Test_CreateOrReuseConcurrentCheckouts() {
	const attempts = 8

	type result struct {
		order  domain.Order
		reused bool
		err    error
	}

	run := func(seed func(i int) string) []result {
		results := make([]result, attempts)
		var wg sync.WaitGroup
		for i := 0; i < attempts; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				order, reused, err := s.repo.CreateOrReuse(s.ctx, newPendingOrder(seed(i), 1000), 0)
				results[i] = result{order, reused, err}
			}()
		}
		wg.Wait()
		return results
	}

	s.Run("double click with fresh ids creates one order", func() {
		results := run(func(i int) string { return fmt.Sprintf("click-%d", i) })

		created := 0
		ids := map[string]bool{}
		for _, r := range results {
			s.Require().NoError(r.err)
			ids[r.order.OrderID] = true
			if !r.reused {
				created++
			}
		}
		s.Equal(1, created)
		s.Len(ids, 1)
	})

	s.Run("retries with the same seed all get that order", func() {
		other := newPendingOrder("seeded", 1000)
		other.ProductID = "prod-2"

		results := make([]result, attempts)
		var wg sync.WaitGroup
		for i := 0; i < attempts; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				order, reused, err := s.repo.CreateOrReuse(s.ctx, other, 0)
				results[i] = result{order, reused, err}
			}()
		}
		wg.Wait()

		created := 0
		for _, r := range results {
			s.Require().NoError(r.err)
			s.Equal("seeded", r.order.OrderID)
			if !r.reused {
				created++
			}
		}
		s.Equal(1, created)
	})

	orders, err := s.repo.GetOrders(s.ctx, pkgdto.Filter{})
	s.Require().NoError(err)
	s.Len(orders, 2)
}

func (s *OrderRepositoryTestSuite) Test_CreateOrReuseSeedTakenUnderAnotherKey() {
	first := newPendingOrder("order-1", 1000)
	first.PaymentMethod = domain.PaymentMethodCard
	_, _, err := s.repo.CreateOrReuse(s.ctx, first, 0)
	s.Require().NoError(err)

	// a seed already used under another payment method resolves to that order
	retry := newPendingOrder("order-1", 1001)
	order, reused, err := s.repo.CreateOrReuse(s.ctx, retry, 0)
	s.Require().NoError(err)
	s.True(reused)
	s.Equal(domain.PaymentMethodCard, order.PaymentMethod)
}

func (s *OrderRepositoryTestSuite) Test_OrderBumpRoundTrip() {
	order := newPendingOrder("order-bump", 1000)
	order.OrderBumpData = &domain.OrderBump{
		ProductID:        "prod-2",
		SellerID:         "seller-2",
		Price:            decimal.NewFromInt(1500),
		SellerCommission: decimal.NewFromInt(1350),
	}
	s.Require().NoError(s.repo.AddOrder(s.ctx, order))

	got, err := s.repo.GetOrderByOrderID(s.ctx, "order-bump")
	s.Require().NoError(err)
	s.Require().NotNil(got.OrderBumpData)
	s.Equal("prod-2", got.OrderBumpData.ProductID)
	s.True(got.OrderBumpData.Price.Equal(decimal.NewFromInt(1500)))
	s.True(got.Amount.Equal(decimal.NewFromInt(5900)))

	plain, err := s.repo.GetOrderByOrderID(s.ctx, "order-missing")
	s.ErrorIs(err, errs.ErrNotFound)
	s.Nil(plain.OrderBumpData)
}

func (s *OrderRepositoryTestSuite) Test_ProviderTransactionLookup() {
	s.Require().NoError(s.repo.AddOrder(s.ctx, newPendingOrder("order-1", 1000)))

	txID := "ref-123"
	ref := "123 456 789"
	expires := int64(90000)
	s.Require().NoError(s.repo.AttachProviderCharge(s.ctx, domain.Order{
		OrderID:               "order-1",
		ProviderTransactionID: &txID,
		ProviderReference:     &ref,
		ProviderExpiresAt:     &expires,
		UpdatedAt:             1001,
	}))

	order, err := s.repo.GetOrderByProviderTransactionID(s.ctx, domain.PaymentMethodReference, "ref-123")
	s.Require().NoError(err)
	s.Equal("order-1", order.OrderID)
	s.Equal(ref, *order.ProviderReference)

	_, err = s.repo.GetOrderByProviderTransactionID(s.ctx, domain.PaymentMethodExpress, "ref-123")
	s.ErrorIs(err, errs.ErrNotFound)

	_, err = s.repo.GetOrderByProviderTransactionID(s.ctx, domain.PaymentMethodReference, "unknown")
	s.ErrorIs(err, errs.ErrNotFound)
}

func (s *OrderRepositoryTestSuite) Test_UpsertFinal() {
	s.Require().NoError(s.repo.AddOrder(s.ctx, newPendingOrder("order-1", 1000)))

	completed := domain.Order{
		OrderID:          "order-1",
		Status:           domain.OrderStatusCompleted,
		Amount:           decimal.NewFromInt(5900),
		Currency:         "AOA",
		SellerCommission: decimal.NewFromInt(5310),
		UpdatedAt:        1200,
	}

	transitioned, err := s.repo.UpsertFinal(s.ctx, completed)
	s.Require().NoError(err)
	s.True(transitioned)

	s.Run("same terminal status is a no-op", func() {
		changed := completed
		changed.Amount = decimal.NewFromInt(1)
		transitioned, err := s.repo.UpsertFinal(s.ctx, changed)
		s.Require().NoError(err)
		s.False(transitioned)

		order, err := s.repo.GetOrderByOrderID(s.ctx, "order-1")
		s.Require().NoError(err)
		s.True(order.Amount.Equal(decimal.NewFromInt(5900)))
	})

	s.Run("different terminal status is inconsistent", func() {
		failed := completed
		failed.Status = domain.OrderStatusFailed
		_, err := s.repo.UpsertFinal(s.ctx, failed)
		s.ErrorIs(err, errs.ErrInconsistentState)

		order, err := s.repo.GetOrderByOrderID(s.ctx, "order-1")
		s.Require().NoError(err)
		s.Equal(domain.OrderStatusCompleted, order.Status)
	})

	s.Run("pending is not a final status", func() {
		pending := completed
		pending.Status = domain.OrderStatusPending
		_, err := s.repo.UpsertFinal(s.ctx, pending)
		s.ErrorIs(err, errs.ErrClient)
	})

	s.Run("unknown order", func() {
		missing := completed
		missing.OrderID = "nope"
		_, err := s.repo.UpsertFinal(s.ctx, missing)
		s.ErrorIs(err, errs.ErrNotFound)
	})
}

func (s *OrderRepositoryTestSuite) Test_UpsertFinalConcurrent() {
	s.Require().NoError(s.repo.AddOrder(s.ctx, newPendingOrder("order-1", 1000)))

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		moved int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			transitioned, err := s.repo.UpsertFinal(s.ctx, domain.Order{
				OrderID:          "order-1",
				Status:           domain.OrderStatusCompleted,
				Amount:           decimal.NewFromInt(5900),
				Currency:         "AOA",
				SellerCommission: decimal.NewFromInt(5310),
				UpdatedAt:        1200,
			})
			if err != nil {
				return
			}
			if transitioned {
				mu.Lock()
				moved++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	s.Equal(1, moved)
}

func (s *OrderRepositoryTestSuite) Test_GetOrdersAndReminders() {
	old := newPendingOrder("order-old", 1000)
	txID := "exp-1"
	old.PaymentMethod = domain.PaymentMethodExpress
	old.ProviderTransactionID = &txID
	s.Require().NoError(s.repo.AddOrder(s.ctx, old))
	s.Require().NoError(s.repo.AddOrder(s.ctx, newPendingOrder("order-new", 5000)))

	orders, err := s.repo.GetOrders(s.ctx, pkgdto.Filter{
		PaymentStatus:     string(domain.OrderStatusPending),
		PaymentMethod:     string(domain.PaymentMethodExpress),
		CreatedBefore:     4000,
		HasProviderCharge: true,
	})
	s.Require().NoError(err)
	s.Require().Len(orders, 1)
	s.Equal("order-old", orders[0].OrderID)

	marked, err := s.repo.MarkAbandonedCartReminded(s.ctx, "order-old", 6000)
	s.Require().NoError(err)
	s.True(marked)

	marked, err = s.repo.MarkAbandonedCartReminded(s.ctx, "order-old", 6001)
	s.Require().NoError(err)
	s.False(marked)

	orders, err = s.repo.GetOrders(s.ctx, pkgdto.Filter{
		PaymentStatus:       string(domain.OrderStatusPending),
		CreatedBefore:       6000,
		ExcludeCartReminded: true,
	})
	s.Require().NoError(err)
	s.Require().Len(orders, 1)
	s.Equal("order-new", orders[0].OrderID)
}
