package postgres

import (
	"context"
	"errors"
	"fmt"

	"agrimart-backend/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// StockLedger mutates product stock with conditional single-statement
// updates: the row lock taken by UPDATE makes the availability check and the
// write one indivisible step per product, and rows for different products
// never block each other.
type StockLedger struct {
	db *pgxpool.Pool
}

func NewStockLedger(db *pgxpool.Pool) *StockLedger {
	return &StockLedger{db: db}
}

func (l *StockLedger) Decrement(ctx context.Context, productID string, quantity int) (int, error) {
	var newStock int
	err := withRetry(ctx, func() error {
		err := l.db.QueryRow(ctx,
			`UPDATE products
			 SET stock = stock - $2, updated_at = now()
			 WHERE id = $1 AND stock >= $2
			 RETURNING stock`,
			productID, quantity,
		).Scan(&newStock)
		if err == nil {
			return nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("decrement stock: %w", err)
		}

		// Either the product is unknown or the stock check failed; report
		// what was actually available.
		available := 0
		if serr := l.db.QueryRow(ctx, `SELECT stock FROM products WHERE id = $1`, productID).Scan(&available); serr != nil && !errors.Is(serr, pgx.ErrNoRows) {
			return fmt.Errorf("read stock: %w", serr)
		}
		return &domain.InsufficientStockError{
			ProductID: productID,
			Requested: quantity,
			Available: available,
		}
	})
	if err != nil {
		return 0, err
	}
	return newStock, nil
}

func (l *StockLedger) Restore(ctx context.Context, productID string, quantity int) (int, error) {
	var newStock int
	err := withRetry(ctx, func() error {
		err := l.db.QueryRow(ctx,
			`UPDATE products
			 SET stock = stock + $2, updated_at = now()
			 WHERE id = $1
			 RETURNING stock`,
			productID, quantity,
		).Scan(&newStock)
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrProductNotFound
		}
		if err != nil {
			return fmt.Errorf("restore stock: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return newStock, nil
}
