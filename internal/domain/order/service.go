package order

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/xenking/purchase-cart-service/internal/domain/product"
)

// CreateOrderRequest holds the input for creating an order. Shape validation
// (non-empty items, positive quantities, non-blank product IDs) is the
// transport layer's responsibility and is not re-checked here.
type CreateOrderRequest struct {
	Items []ItemInput
}

// ItemInput is a single requested line before aggregation.
type ItemInput struct {
	ProductID string
	Quantity  int
}

// Service encapsulates the order creation use case. It is stateless between
// invocations; the order repository is the only shared resource.
type Service struct {
	products product.Repository
	orders   Repository
	newID    func() string
}

// Option configures a Service.
type Option func(*Service)

// WithIDGenerator overrides the order ID generator. Tests use it to get
// deterministic IDs.
func WithIDGenerator(gen func() string) Option {
	return func(s *Service) {
		s.newID = gen
	}
}

// NewService creates an order Service. Order IDs default to random UUIDs.
func NewService(products product.Repository, orders Repository, opts ...Option) *Service {
	s := &Service{
		products: products,
		orders:   orders,
		newID: func() string {
			return uuid.New().String()
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateOrder prices and persists an order, deduplicating on idempotencyKey
// when one is supplied. A replayed request returns the originally persisted
// order without re-pricing or touching the store again.
func (s *Service) CreateOrder(ctx context.Context, req CreateOrderRequest, idempotencyKey string) (*Order, error) {
	bodyHash := hashRequest(req.Items)

	existing, err := s.resolveExisting(ctx, idempotencyKey, bodyHash)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	o, err := s.price(ctx, req.Items, bodyHash)
	if err != nil {
		return nil, err
	}

	if err := s.orders.Save(ctx, o, idempotencyKey); err != nil {
		if errors.Is(err, ErrDuplicateIdempotencyKey) && idempotencyKey != "" {
			return s.recoverLostRace(ctx, idempotencyKey, bodyHash, err)
		}
		return nil, errors.Wrap(err, "save order")
	}

	o.IdempotencyKey = idempotencyKey
	return o, nil
}
