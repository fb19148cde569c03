package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Slug        string          `json:"slug"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	Unit        string          `json:"unit"` // kg, bag, piece
	IsActive    bool            `json:"isActive"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// ProductStore is the read-side catalog used to snapshot unit prices at
// reservation time. Stock is never mutated through this interface.
type ProductStore interface {
	GetByID(ctx context.Context, id string) (*Product, error)
}

// StockLedger is the single source of truth for available quantity per
// product and the only component permitted to mutate stock.
//
// Decrement executes a single indivisible read-verify-write step for one
// product: concurrent decrements on the same product serialize through the
// availability check, while decrements on different products never block each
// other. It fails fast with *InsufficientStockError; there is no queueing or
// backoff. Restore is the unconditional inverse of a prior decrement; the
// ledger does not deduplicate, so callers must restore at most once per
// successful decrement.
type StockLedger interface {
	Decrement(ctx context.Context, productID string, quantity int) (newStock int, err error)
	Restore(ctx context.Context, productID string, quantity int) (newStock int, err error)
}
