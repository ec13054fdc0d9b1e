package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/purchase-cart-service/internal/domain/money"
)

// aggregatedItem is a line item after duplicate product IDs have been merged.
type aggregatedItem struct {
	productID string
	quantity  int
}

// aggregateItems collapses duplicate product IDs by summing quantities. The
// result keeps the order of each product's first appearance in the input.
func aggregateItems(items []ItemInput) []aggregatedItem {
	index := make(map[string]int, len(items))
	agg := make([]aggregatedItem, 0, len(items))
	for _, it := range items {
		if i, ok := index[it.ProductID]; ok {
			agg[i].quantity += it.Quantity
			continue
		}
		index[it.ProductID] = len(agg)
		agg = append(agg, aggregatedItem{productID: it.ProductID, quantity: it.Quantity})
	}
	return agg
}

// price aggregates the request items, resolves catalog facts in one batch,
// validates stock, and computes per-line and total amounts.
//
// Rounding happens at line granularity: linePrice = Money(unitPrice) * qty
// and lineVat = linePrice * vatRate are each rounded, and totals accumulate
// the rounded per-line values. TotalPrice is VAT-inclusive.
func (s *Service) price(ctx context.Context, items []ItemInput, bodyHash string) (*Order, error) {
	agg := aggregateItems(items)

	ids := make([]string, len(agg))
	for i, it := range agg {
		ids[i] = it.productID
	}

	catalog, err := s.products.FindByIDs(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "fetch products")
	}

	orderItems := make([]OrderItem, 0, len(agg))
	totalPrice := money.Zero()
	totalVAT := money.Zero()
	for _, it := range agg {
		p, ok := catalog[it.productID]
		if !ok {
			return nil, &ProductNotFoundError{ProductID: it.productID}
		}
		if !p.HasEnoughStock(it.quantity) {
			return nil, &InsufficientStockError{
				ProductID: it.productID,
				Requested: it.quantity,
				Available: p.AvailableQuantity,
			}
		}

		linePrice := money.New(p.UnitPrice).Mul(decimal.NewFromInt(int64(it.quantity)))
		lineVAT := linePrice.Mul(p.VATRate)

		orderItems = append(orderItems, OrderItem{
			ProductID: it.productID,
			Quantity:  it.quantity,
			Price:     linePrice,
			VAT:       lineVAT,
		})
		totalPrice = totalPrice.Add(linePrice).Add(lineVAT)
		totalVAT = totalVAT.Add(lineVAT)
	}

	return &Order{
		ID:         s.newID(),
		Items:      orderItems,
		TotalPrice: totalPrice,
		TotalVAT:   totalVAT,
		BodyHash:   bodyHash,
		CreatedAt:  time.Now().UTC(),
	}, nil
}
