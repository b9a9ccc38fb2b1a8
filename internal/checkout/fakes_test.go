package checkout

import (
	"context"
	"errors"
	"maps"
	"slices"
	"sync"

	"github.com/andreasstove999/ecommerce-system/checkout-service-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/checkout-service-go/internal/catalog"
	"github.com/andreasstove999/ecommerce-system/checkout-service-go/internal/inventory"
	"github.com/andreasstove999/ecommerce-system/checkout-service-go/internal/order"
	"github.com/andreasstove999/ecommerce-system/checkout-service-go/internal/orderid"
	"github.com/andreasstove999/ecommerce-system/checkout-service-go/internal/outbox"
)

// memStore is an in-memory database. WithinTx holds the lock for the whole
// transaction and restores a snapshot when fn fails.
type memStore struct {
	mu       sync.Mutex
	carts    map[string][]cart.Line
	products map[string]catalog.Product
	orders   []order.Order
	counter  int64
	outbox   []outbox.Message

	shortWrite bool
	clearErr   error
	txCount    int
}

func newMemStore() *memStore {
	return &memStore{
		carts:    map[string][]cart.Line{},
		products: map[string]catalog.Product{},
	}
}

func (m *memStore) Lines(_ context.Context, userID string) ([]cart.Line, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	lines, ok := m.carts[userID]
	if !ok {
		return nil, cart.ErrUserNotFound
	}
	return slices.Clone(lines), nil
}

func (m *memStore) GetProducts(_ context.Context, ids []string) ([]catalog.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []catalog.Product
	for _, id := range ids {
		if p, ok := m.products[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memStore) WithinTx(ctx context.Context, fn func(ctx context.Context, w Writers) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.txCount++

	carts := make(map[string][]cart.Line, len(m.carts))
	for k, v := range m.carts {
		carts[k] = slices.Clone(v)
	}
	products := maps.Clone(m.products)
	orders := slices.Clone(m.orders)
	counter := m.counter
	ob := slices.Clone(m.outbox)

	tx := &memTx{m: m}
	w := Writers{
		IDs:    orderid.NewAllocator(tx),
		Orders: tx,
		Stock:  tx,
		Carts:  tx,
		Outbox: tx,
	}
	if err := fn(ctx, w); err != nil {
		m.carts, m.products, m.orders, m.counter, m.outbox = carts, products, orders, counter, ob
		return err
	}
	return nil
}

func (m *memStore) stock(productID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.products[productID].StockQuantity
}

// memTx implements the writers against memStore; the caller holds m.mu.
type memTx struct {
	m *memStore
}

func (t *memTx) Advance(_ context.Context, name string, n int) (int64, error) {
	if name != orderid.CounterName {
		return 0, errors.New("unexpected counter")
	}
	t.m.counter += int64(n)
	return t.m.counter, nil
}

func (t *memTx) InsertBatch(_ context.Context, orders []order.Order) (int64, error) {
	if t.m.shortWrite {
		t.m.orders = append(t.m.orders, orders[0])
		return 1, nil
	}
	t.m.orders = append(t.m.orders, orders...)
	return int64(len(orders)), nil
}

func (t *memTx) Decrement(_ context.Context, lines []inventory.Line) error {
	for _, d := range inventory.Demand(lines) {
		p := t.m.products[d.ProductID]
		if p.StockQuantity < d.Quantity {
			return &inventory.InsufficientStockError{ProductID: d.ProductID, Requested: d.Quantity, Available: p.StockQuantity}
		}
		p.StockQuantity -= d.Quantity
		t.m.products[d.ProductID] = p
	}
	return nil
}

func (t *memTx) LockLines(_ context.Context, userID string) ([]cart.Line, error) {
	lines, ok := t.m.carts[userID]
	if !ok {
		return nil, cart.ErrUserNotFound
	}
	return slices.Clone(lines), nil
}

func (t *memTx) Clear(_ context.Context, userID string) error {
	if t.m.clearErr != nil {
		return t.m.clearErr
	}
	if _, ok := t.m.carts[userID]; !ok {
		return cart.ErrUserNotFound
	}
	t.m.carts[userID] = nil
	return nil
}

func (t *memTx) Enqueue(_ context.Context, msg outbox.Message) error {
	t.m.outbox = append(t.m.outbox, msg)
	return nil
}

// staleProducts serves a fixed catalog snapshot, as if another checkout
// changed stock after it was read.
type staleProducts map[string]catalog.Product

func (s staleProducts) GetProducts(_ context.Context, ids []string) ([]catalog.Product, error) {
	var out []catalog.Product
	for _, id := range ids {
		if p, ok := s[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

// gatedCarts holds every Lines caller until all expected callers have read
// their cart, so they all validate the same snapshot.
type gatedCarts struct {
	CartReader
	ready sync.WaitGroup
}

func (g *gatedCarts) Lines(ctx context.Context, userID string) ([]cart.Line, error) {
	lines, err := g.CartReader.Lines(ctx, userID)
	g.ready.Done()
	g.ready.Wait()
	return lines, err
}

// fixedCarts always returns the same cart, regardless of what is stored.
type fixedCarts []cart.Line

func (f fixedCarts) Lines(context.Context, string) ([]cart.Line, error) {
	return slices.Clone(f), nil
}
