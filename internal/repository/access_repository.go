package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/alimikegami/digital-store/settlement-service/internal/domain"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
)

type AccessRepositoryImpl struct {
	db *sqlx.DB
}

func CreateAccessRepository(db *sqlx.DB) AccessRepository {
	return &AccessRepositoryImpl{
		db: db,
	}
}

// GrantAccess upserts the grant for (customer_email, product_id). The
// original granted_at is kept when the grant is renewed.
func (r *AccessRepositoryImpl) GrantAccess(ctx context.Context, data domain.AccessGrant) (err error) {
	_, err = r.db.NamedExecContext(ctx, `INSERT INTO access_grants (customer_email, product_id, order_id, active, expires_at, granted_at, updated_at)
		VALUES (:customer_email, :product_id, :order_id, :active, :expires_at, :granted_at, :updated_at)
		ON CONFLICT (customer_email, product_id) DO UPDATE SET
			order_id = excluded.order_id,
			active = excluded.active,
			expires_at = excluded.expires_at,
			updated_at = excluded.updated_at`, data)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("component", "GrantAccess").Msg("")
		return
	}

	return nil
}

func (r *AccessRepositoryImpl) GetAccessGrant(ctx context.Context, email, productID string) (data *domain.AccessGrant, err error) {
	var grant domain.AccessGrant
	err = r.db.GetContext(ctx, &grant, r.db.Rebind("SELECT customer_email, product_id, order_id, active, expires_at, granted_at, updated_at FROM access_grants WHERE customer_email = ? AND product_id = ?"), email, productID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		log.Ctx(ctx).Error().Err(err).Str("component", "GetAccessGrant").Msg("")
		return nil, err
	}

	return &grant, nil
}
