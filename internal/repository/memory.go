package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/xenking/purchase-cart-service/internal/domain/order"
	"github.com/xenking/purchase-cart-service/internal/domain/product"
)

// MemoryProductRepository is an in-memory product.Repository. It backs unit
// and handler tests; production wiring uses the PostgreSQL repository.
type MemoryProductRepository struct {
	mu       sync.RWMutex
	products map[string]product.Product
}

var _ product.Repository = (*MemoryProductRepository)(nil)

// NewMemoryProductRepository returns a repository pre-seeded with products.
func NewMemoryProductRepository(seed ...product.Product) *MemoryProductRepository {
	products := make(map[string]product.Product, len(seed))
	for _, p := range seed {
		products[p.ID] = p
	}
	return &MemoryProductRepository{products: products}
}

// List returns all products ordered by ID.
func (r *MemoryProductRepository) List(_ context.Context) ([]product.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]product.Product, 0, len(r.products))
	for _, p := range r.products {
		all = append(all, p)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return all, nil
}

// FindByIDs returns matching products keyed by ID; missing IDs are absent.
func (r *MemoryProductRepository) FindByIDs(_ context.Context, ids []string) (map[string]product.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	found := make(map[string]product.Product, len(ids))
	for _, id := range ids {
		if p, ok := r.products[id]; ok {
			found[id] = p
		}
	}
	return found, nil
}

// Upsert inserts or replaces a catalog entry.
func (r *MemoryProductRepository) Upsert(_ context.Context, p product.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.products[p.ID] = p
	return nil
}

// MemoryOrderRepository is an in-memory order.Repository. Save is atomic
// under a single mutex, mirroring the transactional contract of the
// PostgreSQL implementation: the key binding and the order write happen
// together or not at all.
type MemoryOrderRepository struct {
	mu     sync.Mutex
	orders map[string]*order.Order
	byKey  map[string]string // idempotency key -> order ID
}

var _ order.Repository = (*MemoryOrderRepository)(nil)

// NewMemoryOrderRepository returns an empty in-memory order repository.
func NewMemoryOrderRepository() *MemoryOrderRepository {
	return &MemoryOrderRepository{
		orders: make(map[string]*order.Order),
		byKey:  make(map[string]string),
	}
}

// Save stores the order, binding idempotencyKey when non-empty. Returns
// order.ErrDuplicateIdempotencyKey when the key is already bound.
func (r *MemoryOrderRepository) Save(_ context.Context, o *order.Order, idempotencyKey string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if idempotencyKey != "" {
		if _, taken := r.byKey[idempotencyKey]; taken {
			return order.ErrDuplicateIdempotencyKey
		}
		r.byKey[idempotencyKey] = o.ID
	}

	stored := cloneOrder(o)
	stored.IdempotencyKey = idempotencyKey
	r.orders[o.ID] = stored
	return nil
}

// FindByIdempotencyKey returns the bound order or (nil, nil).
func (r *MemoryOrderRepository) FindByIdempotencyKey(_ context.Context, key string) (*order.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.byKey[key]
	if !ok {
		return nil, nil
	}
	return cloneOrder(r.orders[id]), nil
}

// Len reports the number of stored orders.
func (r *MemoryOrderRepository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.orders)
}

func cloneOrder(o *order.Order) *order.Order {
	clone := *o
	clone.Items = make([]order.OrderItem, len(o.Items))
	copy(clone.Items, o.Items)
	return &clone
}
