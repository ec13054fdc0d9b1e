package repository

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/purchase-cart-service/internal/domain/money"
	"github.com/xenking/purchase-cart-service/internal/domain/order"
)

const (
	insertOrderSQL = `INSERT INTO orders (id, total_price, total_vat, body_hash, idempotency_key, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	insertOrderItemSQL = `INSERT INTO order_items (order_id, position, product_id, quantity, price, vat)
		VALUES ($1, $2, $3, $4, $5, $6)`

	findOrderByKeySQL = `SELECT o.id, o.total_price, o.total_vat, o.body_hash, o.idempotency_key, o.created_at,
			i.product_id, i.quantity, i.price, i.vat
		FROM orders o
		LEFT JOIN order_items i ON i.order_id = o.id
		WHERE o.idempotency_key = $1
		ORDER BY i.position`

	// Default name Postgres gives the UNIQUE constraint on orders.idempotency_key.
	idempotencyKeyConstraint = "orders_idempotency_key_key"
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL. The order
// row, all item rows, and the idempotency key binding are written in a single
// transaction; the unique index on idempotency_key is the authoritative guard
// against concurrent saves reusing a key.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Save persists the order and its items atomically, binding idempotencyKey
// when non-empty. Returns order.ErrDuplicateIdempotencyKey when the key is
// already bound.
func (r *OrderRepository) Save(ctx context.Context, o *order.Order, idempotencyKey string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "begin transaction")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var key *string
	if idempotencyKey != "" {
		key = &idempotencyKey
	}
	var bodyHash *string
	if o.BodyHash != "" {
		bodyHash = &o.BodyHash
	}

	_, err = tx.Exec(ctx, insertOrderSQL,
		o.ID, o.TotalPrice.Decimal(), o.TotalVAT.Decimal(), bodyHash, key, o.CreatedAt,
	)
	if err != nil {
		return translateSaveError(err, o.ID)
	}

	batch := &pgx.Batch{}
	for i, it := range o.Items {
		batch.Queue(insertOrderItemSQL,
			o.ID, i, it.ProductID, it.Quantity, it.Price.Decimal(), it.VAT.Decimal(),
		)
	}
	if err := flushBatch(ctx, tx, batch, len(o.Items)); err != nil {
		return errors.Wrapf(err, "insert items for order %q", o.ID)
	}

	if err := tx.Commit(ctx); err != nil {
		return translateSaveError(err, o.ID)
	}
	return nil
}

// FindByIdempotencyKey returns the order bound to key with its items in
// original line order, or (nil, nil) when the key is not bound.
func (r *OrderRepository) FindByIdempotencyKey(ctx context.Context, key string) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, findOrderByKeySQL, key)
	if err != nil {
		return nil, errors.Wrapf(err, "finding order by idempotency key %q", key)
	}
	defer rows.Close()

	var o *order.Order
	for rows.Next() {
		var (
			id                   string
			totalPrice, totalVAT decimal.Decimal
			bodyHash, boundKey   *string
			createdAt            time.Time
			productID            *string
			quantity             *int
			price, vat           *decimal.Decimal
		)
		err := rows.Scan(&id, &totalPrice, &totalVAT, &bodyHash, &boundKey, &createdAt,
			&productID, &quantity, &price, &vat)
		if err != nil {
			return nil, errors.Wrapf(err, "scanning order for idempotency key %q", key)
		}

		if o == nil {
			o = &order.Order{
				ID:         id,
				TotalPrice: money.New(totalPrice),
				TotalVAT:   money.New(totalVAT),
				CreatedAt:  createdAt,
			}
			if bodyHash != nil {
				o.BodyHash = *bodyHash
			}
			if boundKey != nil {
				o.IdempotencyKey = *boundKey
			}
		}

		if productID != nil {
			o.Items = append(o.Items, order.OrderItem{
				ProductID: *productID,
				Quantity:  *quantity,
				Price:     money.New(*price),
				VAT:       money.New(*vat),
			})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrapf(err, "finding order by idempotency key %q", key)
	}

	return o, nil
}

// flushBatch sends the batch over tx and surfaces the first per-statement error.
func flushBatch(ctx context.Context, tx pgx.Tx, batch *pgx.Batch, n int) error {
	br := tx.SendBatch(ctx, batch)
	for range n {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return err
		}
	}
	return br.Close()
}

func translateSaveError(err error, orderID string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == idempotencyKeyConstraint {
		return order.ErrDuplicateIdempotencyKey
	}
	return errors.Wrapf(err, "saving order %q", orderID)
}
