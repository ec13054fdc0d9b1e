// Package product defines the read-only product catalog consumed by order
// placement.
package product

import (
	"context"

	"github.com/shopspring/decimal"
)

// Product represents a catalog item available for purchase. Catalog facts are
// read-only to the ordering flow; stock is never decremented here.
type Product struct {
	ID                string
	Name              string
	UnitPrice         decimal.Decimal
	VATRate           decimal.Decimal
	AvailableQuantity int
}

// HasEnoughStock reports whether the available quantity covers quantity.
func (p Product) HasEnoughStock(quantity int) bool {
	return p.AvailableQuantity >= quantity
}

// Repository defines read and seed operations for the product catalog.
type Repository interface {
	// List returns all products ordered by ID.
	List(ctx context.Context) ([]Product, error)

	// FindByIDs returns the products matching the given IDs, keyed by ID.
	// IDs without a matching product are simply absent from the result.
	FindByIDs(ctx context.Context, ids []string) (map[string]Product, error)

	// Upsert inserts or replaces a catalog entry. Used by seeding.
	Upsert(ctx context.Context, p Product) error
}
