package repository

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/purchase-cart-service/internal/domain/product"
)

const (
	listProductsSQL = `SELECT id, name, unit_price, vat_rate, available_quantity
		FROM products ORDER BY id`

	findProductsByIDsSQL = `SELECT id, name, unit_price, vat_rate, available_quantity
		FROM products WHERE id = ANY($1)`

	upsertProductSQL = `INSERT INTO products (id, name, unit_price, vat_rate, available_quantity)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			unit_price = EXCLUDED.unit_price,
			vat_rate = EXCLUDED.vat_rate,
			available_quantity = EXCLUDED.available_quantity`
)

var _ product.Repository = (*ProductRepository)(nil)

// ProductRepository implements product.Repository backed by PostgreSQL.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// List returns all products from the catalog ordered by ID.
func (r *ProductRepository) List(ctx context.Context) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, listProductsSQL)
	if err != nil {
		return nil, errors.Wrap(err, "listing products")
	}
	return pgx.CollectRows(rows, scanProduct)
}

// FindByIDs returns products matching the given IDs, keyed by ID. IDs without
// a matching row are absent from the result.
func (r *ProductRepository) FindByIDs(ctx context.Context, ids []string) (map[string]product.Product, error) {
	rows, err := r.pool.Query(ctx, findProductsByIDsSQL, ids)
	if err != nil {
		return nil, errors.Wrap(err, "finding products by ids")
	}

	products, err := pgx.CollectRows(rows, scanProduct)
	if err != nil {
		return nil, errors.Wrap(err, "finding products by ids")
	}

	found := make(map[string]product.Product, len(products))
	for _, p := range products {
		found[p.ID] = p
	}
	return found, nil
}

// Upsert inserts or replaces a catalog entry.
func (r *ProductRepository) Upsert(ctx context.Context, p product.Product) error {
	_, err := r.pool.Exec(ctx, upsertProductSQL,
		p.ID, p.Name, p.UnitPrice, p.VATRate, p.AvailableQuantity,
	)
	if err != nil {
		return errors.Wrapf(err, "upserting product %q", p.ID)
	}
	return nil
}

func scanProduct(row pgx.CollectableRow) (product.Product, error) {
	var p product.Product
	err := row.Scan(&p.ID, &p.Name, &p.UnitPrice, &p.VATRate, &p.AvailableQuantity)
	return p, err
}
