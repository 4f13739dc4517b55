package postgres

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/bookbazaar/internal/domain/order"
)

const (
	orderColumns = `id, user_id, items, total_amount, status,
		shipping_address, shipping_city, shipping_postal_code, shipping_country,
		payment_method, is_paid, paid_at, transaction_id, payment_status, paid_method,
		is_delivered, delivered_at, tracking_details, version, created_at, updated_at`

	createOrderSQL = `INSERT INTO orders (` + orderColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)`

	getOrderSQL = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	lockOrderSQL = getOrderSQL + ` FOR UPDATE`

	listOrdersByUserSQL = `SELECT ` + orderColumns + ` FROM orders
		WHERE user_id = $1 ORDER BY created_at DESC, id DESC`

	listOrdersSQL = `SELECT ` + orderColumns + ` FROM orders ORDER BY created_at DESC, id DESC`

	updateOrderSQL = `UPDATE orders SET
		status = $2, is_paid = $3, paid_at = $4, transaction_id = $5,
		payment_status = $6, paid_method = $7, is_delivered = $8,
		delivered_at = $9, tracking_details = $10, updated_at = $11,
		version = version + 1
		WHERE id = $1 AND version = $12`

	transactionIDIndex = "orders_transaction_id_key"
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
	uow  *UnitOfWork
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool, uow: NewUnitOfWork(pool)}
}

// Create persists a new order. The line items are serialized to JSON for
// storage in the JSONB column.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	itemsJSON, err := json.Marshal(o.Items)
	if err != nil {
		return errors.Wrap(err, "marshal order items")
	}
	if o.Version == 0 {
		o.Version = 1
	}

	txID, payStatus, paidMethod := paymentColumns(o.Payment)
	_, err = conn(ctx, r.pool).Exec(ctx, createOrderSQL,
		o.ID, o.UserID, itemsJSON, o.TotalAmount, string(o.Status),
		o.ShippingAddress.Address, o.ShippingAddress.City,
		o.ShippingAddress.PostalCode, o.ShippingAddress.Country,
		string(o.PaymentMethod), o.IsPaid, o.PaidAt, txID, payStatus, paidMethod,
		o.IsDelivered, o.DeliveredAt, o.TrackingDetails, o.Version,
		o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		return errors.Wrapf(err, "create order %q", o.ID)
	}
	return nil
}

// Get returns the order or order.ErrNotFound.
func (r *OrderRepository) Get(ctx context.Context, id string) (*order.Order, error) {
	return r.getOne(ctx, conn(ctx, r.pool), getOrderSQL, id)
}

// ListByUser returns the user's orders, newest first.
func (r *OrderRepository) ListByUser(ctx context.Context, userID string) ([]order.Order, error) {
	return r.list(ctx, listOrdersByUserSQL, userID)
}

// List returns every order, newest first.
func (r *OrderRepository) List(ctx context.Context) ([]order.Order, error) {
	return r.list(ctx, listOrdersSQL)
}

// Update locks the row with SELECT ... FOR UPDATE, applies fn and writes the
// result back in the same transaction. The version predicate guards against
// writers that bypass the row lock.
func (r *OrderRepository) Update(ctx context.Context, id string, fn func(ctx context.Context, o *order.Order) error) (*order.Order, error) {
	var out *order.Order
	err := r.uow.RunInTx(ctx, func(ctx context.Context) error {
		q := conn(ctx, r.pool)
		o, err := r.getOne(ctx, q, lockOrderSQL, id)
		if err != nil {
			return err
		}
		version := o.Version
		if err := fn(ctx, o); err != nil {
			return err
		}

		txID, payStatus, paidMethod := paymentColumns(o.Payment)
		tag, err := q.Exec(ctx, updateOrderSQL,
			o.ID, string(o.Status), o.IsPaid, o.PaidAt, txID, payStatus, paidMethod,
			o.IsDelivered, o.DeliveredAt, o.TrackingDetails, o.UpdatedAt, version,
		)
		if err != nil {
			if isUniqueViolation(err, transactionIDIndex) {
				return order.ErrDuplicateTransaction
			}
			return errors.Wrapf(err, "update order %q", id)
		}
		if tag.RowsAffected() == 0 {
			return order.ErrConcurrentUpdate
		}
		o.Version = version + 1
		out = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *OrderRepository) getOne(ctx context.Context, q querier, sql, id string) (*order.Order, error) {
	rows, err := q.Query(ctx, sql, id)
	if err != nil {
		return nil, errors.Wrapf(err, "get order %q", id)
	}
	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, errors.Wrapf(err, "get order %q", id)
	}
	return &o, nil
}

func (r *OrderRepository) list(ctx context.Context, sql string, args ...any) ([]order.Order, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, sql, args...)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	orders, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, errors.Wrap(err, "collect orders")
	}
	return orders, nil
}

func paymentColumns(p *order.PaymentDetails) (txID, status, method *string) {
	if p == nil {
		return nil, nil, nil
	}
	m := string(p.Method)
	return &p.TransactionID, &p.Status, &m
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o           order.Order
		itemsJSON   []byte
		status      string
		method      string
		paidAt      *time.Time
		txID        *string
		payStatus   *string
		paidMethod  *string
		deliveredAt *time.Time
	)
	err := row.Scan(
		&o.ID, &o.UserID, &itemsJSON, &o.TotalAmount, &status,
		&o.ShippingAddress.Address, &o.ShippingAddress.City,
		&o.ShippingAddress.PostalCode, &o.ShippingAddress.Country,
		&method, &o.IsPaid, &paidAt, &txID, &payStatus, &paidMethod,
		&o.IsDelivered, &deliveredAt, &o.TrackingDetails, &o.Version,
		&o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return o, err
	}
	if err := json.Unmarshal(itemsJSON, &o.Items); err != nil {
		return o, errors.Wrapf(err, "unmarshal items of order %q", o.ID)
	}
	o.Status = order.Status(status)
	o.PaymentMethod = order.PaymentMethod(method)
	o.PaidAt = paidAt
	o.DeliveredAt = deliveredAt
	if txID != nil {
		o.Payment = &order.PaymentDetails{TransactionID: *txID}
		if payStatus != nil {
			o.Payment.Status = *payStatus
		}
		if paidMethod != nil {
			o.Payment.Method = order.PaymentMethod(*paidMethod)
		}
	}
	return o, nil
}
