package order

import "fmt"

// ProductNotFoundError indicates a requested product does not exist in the
// catalog.
type ProductNotFoundError struct {
	ProductID string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %s not found", e.ProductID)
}

// InsufficientStockError indicates a requested quantity exceeds the
// available stock for a product.
type InsufficientStockError struct {
	ProductID string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: requested %d, available %d",
		e.ProductID, e.Requested, e.Available)
}

// IdempotencyConflictError indicates an idempotency key was reused with a
// request body different from the one it was first bound to. Distinct from
// domain errors so clients can tell "fix your cart" from "fix your retry key".
type IdempotencyConflictError struct {
	Key string
}

func (e *IdempotencyConflictError) Error() string {
	return fmt.Sprintf("idempotency key %s was already used with a different request body", e.Key)
}
