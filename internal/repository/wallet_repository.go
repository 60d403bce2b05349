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

type WalletRepositoryImpl struct {
	db *sqlx.DB
	q  sqlx.ExtContext
}

func CreateWalletRepository(db *sqlx.DB) WalletRepository {
	return &WalletRepositoryImpl{
		db: db,
		q:  db,
	}
}

func (r *WalletRepositoryImpl) HandleTrx(ctx context.Context, fn func(ctx context.Context, repo WalletRepository) error) error {
	return handleTrx(ctx, r.db, r.q, func(q sqlx.ExtContext) error {
		return fn(ctx, &WalletRepositoryImpl{db: r.db, q: q})
	})
}

func (r *WalletRepositoryImpl) GetWalletByEmail(ctx context.Context, email string) (data *domain.WalletAccount, err error) {
	var account domain.WalletAccount
	err = sqlx.GetContext(ctx, r.q, &account, r.q.Rebind("SELECT email, balance, created_at, updated_at FROM wallet_accounts WHERE email = ?"), email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		log.Ctx(ctx).Error().Err(err).Str("component", "GetWalletByEmail").Msg("")
		return nil, err
	}

	return &account, nil
}

func (r *WalletRepositoryImpl) AddWallet(ctx context.Context, data domain.WalletAccount) (err error) {
	res, err := sqlx.NamedExecContext(ctx, r.q, "INSERT INTO wallet_accounts (email, balance, created_at, updated_at) VALUES (:email, :balance, :created_at, :updated_at) ON CONFLICT (email) DO NOTHING", data)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("component", "AddWallet").Msg("")
		return
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return
	}
	if affected == 0 {
		return fmt.Errorf("wallet %s: %w", data.Email, errs.ErrAlreadyExists)
	}

	return nil
}

// AddTransaction journals a movement. A second row with the same email,
// kind and reference is rejected, which makes debits idempotent per order.
func (r *WalletRepositoryImpl) AddTransaction(ctx context.Context, data domain.WalletTransaction) (err error) {
	res, err := sqlx.NamedExecContext(ctx, r.q, "INSERT INTO wallet_transactions (id, email, kind, amount, description, reference, created_at) VALUES (:id, :email, :kind, :amount, :description, :reference, :created_at) ON CONFLICT (email, kind, reference) DO NOTHING", data)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("component", "AddTransaction").Msg("")
		return
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return
	}
	if affected == 0 {
		if data.Kind == domain.WalletTransactionCredit {
			return fmt.Errorf("reference %s: %w", data.Reference, errs.ErrDuplicateCredit)
		}
		return fmt.Errorf("reference %s: %w", data.Reference, errs.ErrDuplicateDebit)
	}

	return nil
}

// DecrementBalance subtracts amount only while the balance covers it. The
// check and the write are one statement so concurrent debits cannot both
// pass the check.
func (r *WalletRepositoryImpl) DecrementBalance(ctx context.Context, email string, amount decimal.Decimal, updatedAt int64) (err error) {
	res, err := r.q.ExecContext(ctx, r.q.Rebind("UPDATE wallet_accounts SET balance = balance - ?, updated_at = ? WHERE email = ? AND balance >= ?"), amount, updatedAt, email, amount)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("component", "DecrementBalance").Msg("")
		return
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return
	}
	if affected == 1 {
		return nil
	}

	account, err := r.GetWalletByEmail(ctx, email)
	if err != nil {
		return err
	}
	if account == nil {
		return fmt.Errorf("wallet %s: %w", email, errs.ErrWalletNotRegistered)
	}

	return fmt.Errorf("wallet %s has %s, needs %s: %w", email, account.Balance.StringFixed(2), amount.StringFixed(2), errs.ErrInsufficientFunds)
}

func (r *WalletRepositoryImpl) IncrementBalance(ctx context.Context, email string, amount decimal.Decimal, updatedAt int64) (err error) {
	res, err := r.q.ExecContext(ctx, r.q.Rebind("UPDATE wallet_accounts SET balance = balance + ?, updated_at = ? WHERE email = ?"), amount, updatedAt, email)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("component", "IncrementBalance").Msg("")
		return
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return
	}
	if affected == 0 {
		return fmt.Errorf("wallet %s: %w", email, errs.ErrWalletNotRegistered)
	}

	return nil
}

func (r *WalletRepositoryImpl) GetTransactions(ctx context.Context, email string, limit int) (data []domain.WalletTransaction, err error) {
	if limit <= 0 {
		limit = 50
	}

	err = sqlx.SelectContext(ctx, r.q, &data, r.q.Rebind("SELECT id, email, kind, amount, description, reference, created_at FROM wallet_transactions WHERE email = ? ORDER BY id DESC LIMIT ?"), email, limit)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("component", "GetTransactions").Msg("")
		return nil, err
	}

	return
}
