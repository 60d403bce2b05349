package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/alimikegami/digital-store/settlement-service/internal/domain"
	pkgdto "github.com/alimikegami/digital-store/settlement-service/pkg/dto"
	"github.com/alimikegami/digital-store/settlement-service/pkg/errs"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
)

const orderColumns = "order_id, product_id, seller_id, customer_email, customer_name, customer_phone, amount, currency, payment_method, " +
	"provider_transaction_id, provider_reference, provider_instructions, provider_expires_at, provider_error, status, seller_commission, order_bump_data, " +
	"created_at, updated_at, completed_at"

const orderValues = ":order_id, :product_id, :seller_id, :customer_email, :customer_name, :customer_phone, :amount, :currency, :payment_method, " +
	":provider_transaction_id, :provider_reference, :provider_instructions, :provider_expires_at, :provider_error, :status, :seller_commission, :order_bump_data, " +
	":created_at, :updated_at, :completed_at"

type OrderRepositoryImpl struct {
	db *sqlx.DB
	q  sqlx.ExtContext
}

func CreateOrderRepository(db *sqlx.DB) OrderRepository {
	return &OrderRepositoryImpl{
		db: db,
		q:  db,
	}
}

// CreateOrReuse holds the checkout lock for (email, product, method) for the
// whole transaction, so a concurrent checkout for the same key waits and then
// finds the order this one created.
func (r *OrderRepositoryImpl) CreateOrReuse(ctx context.Context, data domain.Order, createdAfter int64) (order domain.Order, reused bool, err error) {
	err = handleTrx(ctx, r.db, r.q, func(q sqlx.ExtContext) error {
		repo := &OrderRepositoryImpl{db: r.db, q: q}

		if err := repo.lockCheckout(ctx, data); err != nil {
			return err
		}

		if data.OrderID != "" {
			existing, err := repo.GetOrderByOrderID(ctx, data.OrderID)
			if err == nil {
				order, reused, err = seededOrder(existing, data)
				return err
			}
			if !errors.Is(err, errs.ErrNotFound) {
				return err
			}
		}

		existing, err := repo.GetReusableOrder(ctx, data.CustomerEmail, data.ProductID, data.PaymentMethod, createdAfter)
		if err != nil {
			return err
		}
		if existing != nil {
			order, reused = *existing, true
			return nil
		}

		if data.OrderID == "" {
			return fmt.Errorf("%w: order id is required", errs.ErrClient)
		}

		inserted, err := repo.insertOrder(ctx, data)
		if err != nil {
			return err
		}
		if !inserted {
			// same seed committed under another checkout key
			existing, err := repo.GetOrderByOrderID(ctx, data.OrderID)
			if err != nil {
				return err
			}
			order, reused, err = seededOrder(existing, data)
			return err
		}

		order = data
		return nil
	})

	return
}

func seededOrder(existing, data domain.Order) (domain.Order, bool, error) {
	if existing.CustomerEmail != data.CustomerEmail || existing.ProductID != data.ProductID {
		return domain.Order{}, false, fmt.Errorf("order id %s belongs to another checkout: %w", data.OrderID, errs.ErrConflict)
	}
	return existing, true, nil
}

func (r *OrderRepositoryImpl) lockCheckout(ctx context.Context, data domain.Order) error {
	_, err := r.q.ExecContext(ctx, r.q.Rebind("INSERT INTO checkout_locks (customer_email, product_id, payment_method, locked_at) VALUES (?, ?, ?, ?) ON CONFLICT (customer_email, product_id, payment_method) DO UPDATE SET locked_at = excluded.locked_at"),
		data.CustomerEmail, data.ProductID, data.PaymentMethod, data.CreatedAt)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("component", "lockCheckout").Msg("")
	}
	return err
}

// insertOrder reports false when an order with the same id already exists.
func (r *OrderRepositoryImpl) insertOrder(ctx context.Context, data domain.Order) (bool, error) {
	res, err := sqlx.NamedExecContext(ctx, r.q, "INSERT INTO orders("+orderColumns+") VALUES ("+orderValues+") ON CONFLICT (order_id) DO NOTHING", data)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("component", "insertOrder").Msg("")
		return false, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

func (r *OrderRepositoryImpl) AddOrder(ctx context.Context, data domain.Order) (err error) {
	_, err = sqlx.NamedExecContext(ctx, r.q, "INSERT INTO orders("+orderColumns+") VALUES ("+orderValues+")", data)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("component", "AddOrder").Msg("")
		return
	}

	return nil
}

func (r *OrderRepositoryImpl) GetOrderByOrderID(ctx context.Context, orderID string) (data domain.Order, err error) {
	err = sqlx.GetContext(ctx, r.q, &data, r.q.Rebind("SELECT "+orderColumns+" FROM orders WHERE order_id = ?"), orderID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return data, fmt.Errorf("order %s: %w", orderID, errs.ErrNotFound)
		}
		log.Ctx(ctx).Error().Err(err).Str("component", "GetOrderByOrderID").Msg("")
		return
	}

	return
}

func (r *OrderRepositoryImpl) GetReusableOrder(ctx context.Context, email, productID string, method domain.PaymentMethod, createdAfter int64) (data *domain.Order, err error) {
	var order domain.Order
	err = sqlx.GetContext(ctx, r.q, &order, r.q.Rebind("SELECT "+orderColumns+" FROM orders WHERE customer_email = ? AND product_id = ? AND payment_method = ? AND status = ? AND created_at >= ? ORDER BY created_at DESC LIMIT 1"),
		email, productID, method, domain.OrderStatusPending, createdAfter)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		log.Ctx(ctx).Error().Err(err).Str("component", "GetReusableOrder").Msg("")
		return nil, err
	}

	return &order, nil
}

func (r *OrderRepositoryImpl) GetOrderByProviderTransactionID(ctx context.Context, method domain.PaymentMethod, transactionID string) (data domain.Order, err error) {
	err = sqlx.GetContext(ctx, r.q, &data, r.q.Rebind("SELECT "+orderColumns+" FROM orders WHERE payment_method = ? AND provider_transaction_id = ?"), method, transactionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return data, fmt.Errorf("%s transaction %s: %w", method, transactionID, errs.ErrNotFound)
		}
		log.Ctx(ctx).Error().Err(err).Str("component", "GetOrderByProviderTransactionID").Msg("")
		return
	}

	return
}

func (r *OrderRepositoryImpl) AttachProviderCharge(ctx context.Context, data domain.Order) (err error) {
	res, err := sqlx.NamedExecContext(ctx, r.q, "UPDATE orders SET provider_transaction_id = :provider_transaction_id, provider_reference = :provider_reference, provider_instructions = :provider_instructions, provider_expires_at = :provider_expires_at, updated_at = :updated_at WHERE order_id = :order_id AND status = 'pending'", data)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("component", "AttachProviderCharge").Msg("")
		return
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return
	}
	if affected == 0 {
		return fmt.Errorf("order %s is not pending: %w", data.OrderID, errs.ErrConflict)
	}

	return nil
}

func (r *OrderRepositoryImpl) UpsertFinal(ctx context.Context, data domain.Order) (transitioned bool, err error) {
	if !data.Status.IsTerminal() {
		return false, fmt.Errorf("%w: %q is not a terminal status", errs.ErrClient, data.Status)
	}

	res, err := sqlx.NamedExecContext(ctx, r.q, "UPDATE orders SET status = :status, amount = :amount, currency = :currency, seller_commission = :seller_commission, provider_error = :provider_error, updated_at = :updated_at, completed_at = :completed_at WHERE order_id = :order_id AND status = 'pending'", data)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("component", "UpsertFinal").Msg("")
		return
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return
	}
	if affected == 1 {
		return true, nil
	}

	current, err := r.GetOrderByOrderID(ctx, data.OrderID)
	if err != nil {
		return false, err
	}

	if current.Status == data.Status {
		return false, nil
	}

	return false, fmt.Errorf("order %s is %s, refusing %s: %w", data.OrderID, current.Status, data.Status, errs.ErrInconsistentState)
}

func (r *OrderRepositoryImpl) GetOrders(ctx context.Context, filter pkgdto.Filter) (data []domain.Order, err error) {
	query := "SELECT " + orderColumns + " FROM orders o WHERE 1 = 1"

	args := make(map[string]interface{})

	if filter.PaymentStatus != "" {
		query += " AND status = :status"
		args["status"] = filter.PaymentStatus
	}

	if filter.PaymentMethod != "" {
		query += " AND payment_method = :payment_method"
		args["payment_method"] = filter.PaymentMethod
	}

	if filter.CreatedBefore != 0 {
		query += " AND created_at < :created_before"
		args["created_before"] = filter.CreatedBefore
	}

	if filter.CreatedAfter != 0 {
		query += " AND created_at >= :created_after"
		args["created_after"] = filter.CreatedAfter
	}

	if filter.HasProviderCharge {
		query += " AND provider_transaction_id IS NOT NULL"
	}

	if filter.ExcludeCartReminded {
		query += " AND NOT EXISTS (SELECT 1 FROM abandoned_cart_reminders acr WHERE acr.order_id = o.order_id)"
	}

	query += " ORDER BY created_at ASC"

	if filter.Limit != 0 {
		page := filter.Page
		if page == 0 {
			page = 1
		}
		query += " LIMIT :limit OFFSET :offset"
		args["limit"] = filter.Limit
		args["offset"] = (page - 1) * filter.Limit
	}

	bound, boundArgs, err := r.q.BindNamed(query, args)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("component", "GetOrders").Msg("")
		return nil, err
	}

	err = sqlx.SelectContext(ctx, r.q, &data, bound, boundArgs...)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("component", "GetOrders").Msg("")
		return nil, err
	}

	return
}

func (r *OrderRepositoryImpl) MarkAbandonedCartReminded(ctx context.Context, orderID string, remindedAt int64) (marked bool, err error) {
	res, err := r.q.ExecContext(ctx, r.q.Rebind("INSERT INTO abandoned_cart_reminders (order_id, reminded_at) VALUES (?, ?) ON CONFLICT (order_id) DO NOTHING"), orderID, remindedAt)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("component", "MarkAbandonedCartReminded").Msg("")
		return
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return
	}

	return affected == 1, nil
}
