package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alimikegami/digital-store/settlement-service/internal/domain"
	"github.com/alimikegami/digital-store/settlement-service/pkg/errs"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingProducts struct {
	calls int
	err   error
}

func (c *countingProducts) GetProductByID(ctx context.Context, id string) (domain.Product, error) {
	c.calls++
	if c.err != nil {
		return domain.Product{}, c.err
	}
	return domain.Product{ID: id, Price: decimal.NewFromInt(5900), Currency: "AOA"}, nil
}

func TestCachedProductRepository_HitsCache(t *testing.T) {
	next := &countingProducts{}
	repo := CreateCachedProductRepository(next, 8, time.Minute)

	for i := 0; i < 3; i++ {
		product, err := repo.GetProductByID(context.Background(), "prod-1")
		require.NoError(t, err)
		assert.Equal(t, "prod-1", product.ID)
	}
	assert.Equal(t, 1, next.calls)

	repo.Purge()
	_, err := repo.GetProductByID(context.Background(), "prod-1")
	require.NoError(t, err)
	assert.Equal(t, 2, next.calls)
}

func TestCachedProductRepository_DoesNotCacheErrors(t *testing.T) {
	next := &countingProducts{err: fmt.Errorf("product prod-1: %w", errs.ErrNotFound)}
	repo := CreateCachedProductRepository(next, 8, time.Minute)

	_, err := repo.GetProductByID(context.Background(), "prod-1")
	assert.ErrorIs(t, err, errs.ErrNotFound)

	next.err = nil
	_, err = repo.GetProductByID(context.Background(), "prod-1")
	require.NoError(t, err)
	assert.Equal(t, 2, next.calls)
}

func TestCachedProductRepository_Expires(t *testing.T) {
	next := &countingProducts{}
	repo := CreateCachedProductRepository(next, 8, 20*time.Millisecond)

	_, err := repo.GetProductByID(context.Background(), "prod-1")
	require.NoError(t, err)

	time.Sleep(60 * time.Millisecond)

	_, err = repo.GetProductByID(context.Background(), "prod-1")
	require.NoError(t, err)
	assert.Equal(t, 2, next.calls)
}

func TestProductDocumentToDomain(t *testing.T) {
	doc := productDocument{
		Name:           "Curso de Excel",
		SellerID:       "seller-1",
		Price:          59.9,
		Currency:       "USD",
		AccessDuration: domain.AccessDuration{Unit: domain.AccessUnitMonths, Value: 6},
	}

	product := doc.toDomain()
	assert.True(t, product.Price.Equal(decimal.RequireFromString("59.90")))
	assert.Equal(t, domain.AccessUnitMonths, product.AccessDuration.Unit)
}
