// Package handler exposes the HTTP API: order creation and catalog listing.
// It owns request shape validation and the mapping of domain errors to
// status codes; business rules live in the domain packages.
package handler

import (
	"net/http"

	"github.com/xenking/purchase-cart-service/internal/domain/order"
	"github.com/xenking/purchase-cart-service/internal/domain/product"
)

// Handler serves the API endpoints, delegating business logic to the order
// service and product repository.
type Handler struct {
	orders   *order.Service
	products product.Repository
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(orders *order.Service, products product.Repository) *Handler {
	return &Handler{
		orders:   orders,
		products: products,
	}
}

// Register attaches all API routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/orders", h.CreateOrder)
	mux.HandleFunc("GET /api/products", h.ListProducts)
}
