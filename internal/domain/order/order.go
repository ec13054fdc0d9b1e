// Package order implements order creation: request deduplication via
// idempotency keys, line item aggregation, and price/VAT computation.
package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"

	"github.com/xenking/purchase-cart-service/internal/domain/money"
)

// ErrDuplicateIdempotencyKey is returned by Repository.Save when the given
// idempotency key is already bound to another order. The storage layer must
// enforce this with a uniqueness constraint; it is the authoritative guard
// against concurrent saves with the same key.
var ErrDuplicateIdempotencyKey = errors.New("idempotency key already bound to another order")

// Order is the immutable record of a priced order. It is built once by the
// pricing step, persisted once, and reconstructed identically on replay.
type Order struct {
	ID         string
	Items      []OrderItem
	TotalPrice money.Money // VAT-inclusive
	TotalVAT   money.Money

	// IdempotencyKey and BodyHash are set when the order was created through
	// a keyed request. Orders reconstructed from storage may carry an empty
	// BodyHash when it was never recorded.
	IdempotencyKey string
	BodyHash       string

	CreatedAt time.Time
}

// OrderItem is a single priced line of an order.
type OrderItem struct {
	ProductID string
	Quantity  int
	Price     money.Money // line price excluding VAT
	VAT       money.Money
}

// Repository defines persistence operations for orders.
type Repository interface {
	// Save persists the order with all its items as one atomic unit. A
	// non-empty idempotencyKey is bound to the order in the same unit.
	// Returns ErrDuplicateIdempotencyKey when the key is already taken.
	Save(ctx context.Context, o *Order, idempotencyKey string) error

	// FindByIdempotencyKey returns the order bound to key with its items in
	// original line order, or (nil, nil) when the key is not bound.
	FindByIdempotencyKey(ctx context.Context, key string) (*Order, error)
}
