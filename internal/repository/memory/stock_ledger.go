// Package memory provides in-memory implementations of the domain stores,
// used by tests and single-node deployments. Concurrency discipline matches
// the Postgres backend: per-key serialization, no coarse lock across keys.
package memory

import (
	"context"
	"sync"

	"agrimart-backend/internal/domain"
)

// StockLedger keeps one entry per product, each guarded by its own mutex so
// decrements on the same product serialize through the availability check
// while different products never contend.
type StockLedger struct {
	mu      sync.RWMutex
	entries map[string]*stockEntry
}

type stockEntry struct {
	mu    sync.Mutex
	stock int
}

func NewStockLedger() *StockLedger {
	return &StockLedger{entries: make(map[string]*stockEntry)}
}

// Seed sets the available quantity for a product, creating the entry if
// needed. Intended for wiring and tests, not the commit path.
func (l *StockLedger) Seed(productID string, stock int) {
	e := l.entry(productID)
	e.mu.Lock()
	e.stock = stock
	e.mu.Unlock()
}

// Stock reads the current available quantity.
func (l *StockLedger) Stock(productID string) int {
	e := l.entry(productID)
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stock
}

func (l *StockLedger) entry(productID string) *stockEntry {
	l.mu.RLock()
	e, ok := l.entries[productID]
	l.mu.RUnlock()
	if ok {
		return e
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if e, ok = l.entries[productID]; ok {
		return e
	}
	e = &stockEntry{}
	l.entries[productID] = e
	return e
}

// Decrement performs the read-verify-write step under the product's lock.
// Insufficient stock fails immediately without mutating; there is no queueing.
func (l *StockLedger) Decrement(ctx context.Context, productID string, quantity int) (int, error) {
	e := l.entry(productID)
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.stock < quantity {
		return 0, &domain.InsufficientStockError{
			ProductID: productID,
			Requested: quantity,
			Available: e.stock,
		}
	}
	e.stock -= quantity
	return e.stock, nil
}

// Restore unconditionally returns quantity to the product. The ledger does
// not deduplicate; calling it twice for one reservation double-credits.
func (l *StockLedger) Restore(ctx context.Context, productID string, quantity int) (int, error) {
	e := l.entry(productID)
	e.mu.Lock()
	defer e.mu.Unlock()

	e.stock += quantity
	return e.stock, nil
}
