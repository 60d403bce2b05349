package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/alimikegami/digital-store/settlement-service/internal/domain"
	"github.com/alimikegami/digital-store/settlement-service/pkg/errs"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

type BalanceRepositoryImpl struct {
	db *sqlx.DB
	q  sqlx.ExtContext
}

func CreateBalanceRepository(db *sqlx.DB) BalanceRepository {
	return &BalanceRepositoryImpl{
		db: db,
		q:  db,
	}
}

func (r *BalanceRepositoryImpl) HandleTrx(ctx context.Context, fn func(ctx context.Context, repo BalanceRepository) error) error {
	return handleTrx(ctx, r.db, r.q, func(q sqlx.ExtContext) error {
		return fn(ctx, &BalanceRepositoryImpl{db: r.db, q: q})
	})
}

func (r *BalanceRepositoryImpl) AddBalanceEntry(ctx context.Context, data domain.SellerBalanceEntry) (err error) {
	res, err := sqlx.NamedExecContext(ctx, r.q, "INSERT INTO seller_balance_entries (id, entry_key, seller_id, order_id, amount, description, created_at) VALUES (:id, :entry_key, :seller_id, :order_id, :amount, :description, :created_at) ON CONFLICT (entry_key) DO NOTHING", data)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("component", "AddBalanceEntry").Msg("")
		return
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return
	}
	if affected == 0 {
		return fmt.Errorf("entry %s: %w", data.EntryKey, errs.ErrDuplicateCredit)
	}

	return nil
}

func (r *BalanceRepositoryImpl) IncrementSellerBalance(ctx context.Context, sellerID string, amount decimal.Decimal, updatedAt int64) (err error) {
	_, err = r.q.ExecContext(ctx, r.q.Rebind(`INSERT INTO seller_balances (seller_id, balance, updated_at) VALUES (?, ?, ?)
		ON CONFLICT (seller_id) DO UPDATE SET balance = seller_balances.balance + excluded.balance, updated_at = excluded.updated_at`), sellerID, amount, updatedAt)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("component", "IncrementSellerBalance").Msg("")
		return
	}

	return nil
}

func (r *BalanceRepositoryImpl) GetSellerBalance(ctx context.Context, sellerID string) (balance decimal.Decimal, err error) {
	err = sqlx.GetContext(ctx, r.q, &balance, r.q.Rebind("SELECT balance FROM seller_balances WHERE seller_id = ?"), sellerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return decimal.Zero, nil
		}
		log.Ctx(ctx).Error().Err(err).Str("component", "GetSellerBalance").Msg("")
		return
	}

	return
}

func (r *BalanceRepositoryImpl) GetBalanceEntriesByOrderID(ctx context.Context, orderID string) (data []domain.SellerBalanceEntry, err error) {
	err = sqlx.SelectContext(ctx, r.q, &data, r.q.Rebind("SELECT id, entry_key, seller_id, order_id, amount, description, created_at FROM seller_balance_entries WHERE order_id = ? ORDER BY entry_key"), orderID)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("component", "GetBalanceEntriesByOrderID").Msg("")
		return nil, err
	}

	return
}
