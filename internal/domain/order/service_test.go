package order

import (
	"context"
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/purchase-cart-service/internal/domain/product"
)

// --- Mock implementations ---

type mockProductRepo struct {
	byID    map[string]product.Product
	findErr error
}

func (m *mockProductRepo) List(_ context.Context) ([]product.Product, error) {
	return nil, nil
}

func (m *mockProductRepo) FindByIDs(_ context.Context, ids []string) (map[string]product.Product, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	found := make(map[string]product.Product, len(ids))
	for _, id := range ids {
		if p, ok := m.byID[id]; ok {
			found[id] = p
		}
	}
	return found, nil
}

func (m *mockProductRepo) Upsert(_ context.Context, _ product.Product) error {
	return nil
}

type mockOrderRepo struct {
	saved     []*Order
	byKey     map[string]*Order
	saveErr   error
	saveCalls int
}

func (m *mockOrderRepo) Save(_ context.Context, o *Order, key string) error {
	m.saveCalls++
	if m.saveErr != nil {
		return m.saveErr
	}
	if key != "" {
		if m.byKey == nil {
			m.byKey = make(map[string]*Order)
		}
		if _, taken := m.byKey[key]; taken {
			return ErrDuplicateIdempotencyKey
		}
		bound := *o
		bound.IdempotencyKey = key
		m.byKey[key] = &bound
	}
	m.saved = append(m.saved, o)
	return nil
}

func (m *mockOrderRepo) FindByIdempotencyKey(_ context.Context, key string) (*Order, error) {
	o, ok := m.byKey[key]
	if !ok {
		return nil, nil
	}
	return o, nil
}

// --- Helpers ---

func newTestProduct(id string, unitPrice, vatRate string, stock int) product.Product {
	return product.Product{
		ID:                id,
		Name:              "product " + id,
		UnitPrice:         decimal.RequireFromString(unitPrice),
		VATRate:           decimal.RequireFromString(vatRate),
		AvailableQuantity: stock,
	}
}

func newProductRepo(products ...product.Product) *mockProductRepo {
	byID := make(map[string]product.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	return &mockProductRepo{byID: byID}
}

func fixedIDs(ids ...string) Option {
	i := 0
	return WithIDGenerator(func() string {
		id := ids[i%len(ids)]
		i++
		return id
	})
}

// --- Tests ---

func TestCreateOrder_PricingExample(t *testing.T) {
	repo := &mockOrderRepo{}
	svc := NewService(
		newProductRepo(
			newTestProduct("P001", "20.00", "0.22", 100),
			newTestProduct("P002", "10.00", "0.22", 50),
		),
		repo,
	)

	o, err := svc.CreateOrder(context.Background(), CreateOrderRequest{
		Items: []ItemInput{
			{ProductID: "P001", Quantity: 2},
			{ProductID: "P002", Quantity: 1},
		},
	}, "")

	require.NoError(t, err)
	require.Len(t, o.Items, 2)
	assert.Equal(t, "40.00", o.Items[0].Price.String())
	assert.Equal(t, "8.80", o.Items[0].VAT.String())
	assert.Equal(t, "10.00", o.Items[1].Price.String())
	assert.Equal(t, "2.20", o.Items[1].VAT.String())
	assert.Equal(t, "61.00", o.TotalPrice.String())
	assert.Equal(t, "11.00", o.TotalVAT.String())
	assert.Equal(t, 1, repo.saveCalls)
}

func TestCreateOrder_AggregatesDuplicates(t *testing.T) {
	svc := NewService(
		newProductRepo(
			newTestProduct("A", "1.00", "0.22", 100),
			newTestProduct("B", "1.00", "0.22", 100),
		),
		&mockOrderRepo{},
	)

	o, err := svc.CreateOrder(context.Background(), CreateOrderRequest{
		Items: []ItemInput{
			{ProductID: "A", Quantity: 1},
			{ProductID: "B", Quantity: 1},
			{ProductID: "A", Quantity: 2},
		},
	}, "")

	require.NoError(t, err)
	require.Len(t, o.Items, 2)
	assert.Equal(t, "A", o.Items[0].ProductID)
	assert.Equal(t, 3, o.Items[0].Quantity)
	assert.Equal(t, "B", o.Items[1].ProductID)
	assert.Equal(t, 1, o.Items[1].Quantity)
}

func TestCreateOrder_ProductNotFound(t *testing.T) {
	repo := &mockOrderRepo{}
	svc := NewService(newProductRepo(newTestProduct("P001", "20.00", "0.22", 100)), repo)

	_, err := svc.CreateOrder(context.Background(), CreateOrderRequest{
		Items: []ItemInput{
			{ProductID: "missing", Quantity: 1},
			{ProductID: "P001", Quantity: 1},
		},
	}, "")

	var pnf *ProductNotFoundError
	require.ErrorAs(t, err, &pnf)
	assert.Equal(t, "missing", pnf.ProductID)
	assert.Zero(t, repo.saveCalls, "no persistence on domain error")
}

func TestCreateOrder_StockBoundary(t *testing.T) {
	catalog := newProductRepo(newTestProduct("P001", "20.00", "0.22", 100))

	o, err := NewService(catalog, &mockOrderRepo{}).CreateOrder(context.Background(), CreateOrderRequest{
		Items: []ItemInput{{ProductID: "P001", Quantity: 100}},
	}, "")
	require.NoError(t, err)
	assert.Equal(t, 100, o.Items[0].Quantity)

	_, err = NewService(catalog, &mockOrderRepo{}).CreateOrder(context.Background(), CreateOrderRequest{
		Items: []ItemInput{{ProductID: "P001", Quantity: 101}},
	}, "")

	var stock *InsufficientStockError
	require.ErrorAs(t, err, &stock)
	assert.Equal(t, "P001", stock.ProductID)
	assert.Equal(t, 101, stock.Requested)
	assert.Equal(t, 100, stock.Available)
}

func TestCreateOrder_StockCheckedAgainstAggregatedQuantity(t *testing.T) {
	svc := NewService(newProductRepo(newTestProduct("P001", "20.00", "0.22", 3)), &mockOrderRepo{})

	_, err := svc.CreateOrder(context.Background(), CreateOrderRequest{
		Items: []ItemInput{
			{ProductID: "P001", Quantity: 2},
			{ProductID: "P001", Quantity: 2},
		},
	}, "")

	var stock *InsufficientStockError
	require.ErrorAs(t, err, &stock)
	assert.Equal(t, 4, stock.Requested)
}

func TestCreateOrder_IdempotentReplay(t *testing.T) {
	repo := &mockOrderRepo{}
	svc := NewService(
		newProductRepo(newTestProduct("P001", "20.00", "0.22", 100)),
		repo,
		fixedIDs("order-1", "order-2"),
	)
	req := CreateOrderRequest{Items: []ItemInput{{ProductID: "P001", Quantity: 2}}}

	first, err := svc.CreateOrder(context.Background(), req, "key-1")
	require.NoError(t, err)

	second, err := svc.CreateOrder(context.Background(), req, "key-1")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.True(t, first.TotalPrice.Equal(second.TotalPrice))
	assert.Equal(t, 1, repo.saveCalls, "replay must not touch the store")
}

func TestCreateOrder_IdempotencyConflict(t *testing.T) {
	repo := &mockOrderRepo{}
	svc := NewService(
		newProductRepo(
			newTestProduct("P001", "20.00", "0.22", 100),
			newTestProduct("P002", "10.00", "0.22", 50),
		),
		repo,
	)

	_, err := svc.CreateOrder(context.Background(), CreateOrderRequest{
		Items: []ItemInput{{ProductID: "P001", Quantity: 2}},
	}, "key-1")
	require.NoError(t, err)

	_, err = svc.CreateOrder(context.Background(), CreateOrderRequest{
		Items: []ItemInput{{ProductID: "P002", Quantity: 1}},
	}, "key-1")

	var conflict *IdempotencyConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "key-1", conflict.Key)
	assert.Equal(t, 1, repo.saveCalls, "conflicting request must not persist")
}

func TestCreateOrder_NoKeyNoDedup(t *testing.T) {
	repo := &mockOrderRepo{}
	svc := NewService(
		newProductRepo(newTestProduct("P001", "20.00", "0.22", 100)),
		repo,
		fixedIDs("order-1", "order-2"),
	)
	req := CreateOrderRequest{Items: []ItemInput{{ProductID: "P001", Quantity: 1}}}

	first, err := svc.CreateOrder(context.Background(), req, "")
	require.NoError(t, err)
	second, err := svc.CreateOrder(context.Background(), req, "")
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, 2, repo.saveCalls)
}

func TestCreateOrder_ReplaysStoredOrderWithoutBodyHash(t *testing.T) {
	// Orders persisted before body hashing existed replay unconditionally.
	stored := &Order{ID: "legacy-order", IdempotencyKey: "key-1"}
	repo := &mockOrderRepo{byKey: map[string]*Order{"key-1": stored}}
	svc := NewService(newProductRepo(newTestProduct("P001", "20.00", "0.22", 100)), repo)

	o, err := svc.CreateOrder(context.Background(), CreateOrderRequest{
		Items: []ItemInput{{ProductID: "P001", Quantity: 1}},
	}, "key-1")

	require.NoError(t, err)
	assert.Equal(t, "legacy-order", o.ID)
	assert.Zero(t, repo.saveCalls)
}

func TestCreateOrder_LostRaceRecoversAsReplay(t *testing.T) {
	// Save loses the uniqueness race: the repo reports a duplicate key and a
	// matching order is bound by then. The caller sees the winner's order.
	winner := &Order{ID: "winner"}
	repo := &lostRaceRepo{winner: winner}
	svc := NewService(newProductRepo(newTestProduct("P001", "20.00", "0.22", 100)), repo)
	req := CreateOrderRequest{Items: []ItemInput{{ProductID: "P001", Quantity: 1}}}
	winner.BodyHash = hashRequest(req.Items)

	o, err := svc.CreateOrder(context.Background(), req, "key-1")
	require.NoError(t, err)
	assert.Equal(t, "winner", o.ID)
}

func TestCreateOrder_LostRaceWithDifferentBodyConflicts(t *testing.T) {
	winner := &Order{ID: "winner", BodyHash: "different-hash"}
	repo := &lostRaceRepo{winner: winner}
	svc := NewService(newProductRepo(newTestProduct("P001", "20.00", "0.22", 100)), repo)

	_, err := svc.CreateOrder(context.Background(), CreateOrderRequest{
		Items: []ItemInput{{ProductID: "P001", Quantity: 1}},
	}, "key-1")

	var conflict *IdempotencyConflictError
	require.ErrorAs(t, err, &conflict)
}

// lostRaceRepo simulates a concurrent writer winning the key binding between
// the resolver's lookup and Save: the first lookup misses, Save reports a
// duplicate, and subsequent lookups return the winner.
type lostRaceRepo struct {
	winner  *Order
	lookups int
}

func (r *lostRaceRepo) Save(_ context.Context, _ *Order, _ string) error {
	return ErrDuplicateIdempotencyKey
}

func (r *lostRaceRepo) FindByIdempotencyKey(_ context.Context, _ string) (*Order, error) {
	r.lookups++
	if r.lookups == 1 {
		return nil, nil
	}
	return r.winner, nil
}

func TestCreateOrder_SaveErrorPropagates(t *testing.T) {
	svc := NewService(
		newProductRepo(newTestProduct("P001", "20.00", "0.22", 100)),
		&mockOrderRepo{saveErr: errors.New("db write failed")},
	)

	_, err := svc.CreateOrder(context.Background(), CreateOrderRequest{
		Items: []ItemInput{{ProductID: "P001", Quantity: 1}},
	}, "")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "save order")
}

func TestCreateOrder_CatalogErrorPropagates(t *testing.T) {
	svc := NewService(
		&mockProductRepo{findErr: errors.New("connection refused")},
		&mockOrderRepo{},
	)

	_, err := svc.CreateOrder(context.Background(), CreateOrderRequest{
		Items: []ItemInput{{ProductID: "P001", Quantity: 1}},
	}, "")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetch products")
}
