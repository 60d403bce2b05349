package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/alimikegami/digital-store/settlement-service/internal/domain"
	"github.com/alimikegami/digital-store/settlement-service/internal/testutil"
	"github.com/alimikegami/digital-store/settlement-service/pkg/errs"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBalanceRepository_CreditIsIdempotentPerEntryKey(t *testing.T) {
	repo := CreateBalanceRepository(testutil.NewDB(t))
	ctx := context.Background()

	credit := func(id, key string, amount int64) error {
		return repo.HandleTrx(ctx, func(ctx context.Context, repo BalanceRepository) error {
			if err := repo.AddBalanceEntry(ctx, domain.SellerBalanceEntry{
				ID:        id,
				EntryKey:  key,
				SellerID:  "seller-1",
				OrderID:   "order-1",
				Amount:    decimal.NewFromInt(amount),
				CreatedAt: 1,
			}); err != nil {
				return err
			}
			return repo.IncrementSellerBalance(ctx, "seller-1", decimal.NewFromInt(amount), 1)
		})
	}

	require.NoError(t, credit("01J00000000000000000000001", "order-1", 5310))
	assert.ErrorIs(t, credit("01J00000000000000000000002", "order-1", 5310), errs.ErrDuplicateCredit)
	require.NoError(t, credit("01J00000000000000000000003", "order-1/bump", 1350))

	balance, err := repo.GetSellerBalance(ctx, "seller-1")
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.NewFromInt(6660)), "balance %s", balance)

	entries, err := repo.GetBalanceEntriesByOrderID(ctx, "order-1")
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	balance, err = repo.GetSellerBalance(ctx, "seller-unknown")
	require.NoError(t, err)
	assert.True(t, balance.IsZero())
}

func TestBalanceRepository_RollbackOnError(t *testing.T) {
	repo := CreateBalanceRepository(testutil.NewDB(t))
	ctx := context.Background()

	boom := errors.New("boom")
	err := repo.HandleTrx(ctx, func(ctx context.Context, repo BalanceRepository) error {
		if err := repo.AddBalanceEntry(ctx, domain.SellerBalanceEntry{
			ID:        "01J00000000000000000000001",
			EntryKey:  "order-1",
			SellerID:  "seller-1",
			OrderID:   "order-1",
			Amount:    decimal.NewFromInt(10),
			CreatedAt: 1,
		}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	entries, err := repo.GetBalanceEntriesByOrderID(ctx, "order-1")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestAccessRepository_GrantIsUpsert(t *testing.T) {
	repo := CreateAccessRepository(testutil.NewDB(t))
	ctx := context.Background()

	expires := int64(5000)
	require.NoError(t, repo.GrantAccess(ctx, domain.AccessGrant{
		CustomerEmail: "ana@example.ao",
		ProductID:     "prod-1",
		OrderID:       "order-1",
		Active:        true,
		ExpiresAt:     &expires,
		GrantedAt:     1000,
		UpdatedAt:     1000,
	}))
	require.NoError(t, repo.GrantAccess(ctx, domain.AccessGrant{
		CustomerEmail: "ana@example.ao",
		ProductID:     "prod-1",
		OrderID:       "order-2",
		Active:        true,
		GrantedAt:     2000,
		UpdatedAt:     2000,
	}))

	grant, err := repo.GetAccessGrant(ctx, "ana@example.ao", "prod-1")
	require.NoError(t, err)
	require.NotNil(t, grant)
	assert.Equal(t, "order-2", grant.OrderID)
	assert.True(t, grant.Active)
	assert.Nil(t, grant.ExpiresAt)
	assert.Equal(t, int64(1000), grant.GrantedAt)

	grant, err = repo.GetAccessGrant(ctx, "ana@example.ao", "prod-2")
	require.NoError(t, err)
	assert.Nil(t, grant)
}
