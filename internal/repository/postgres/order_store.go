package postgres

import (
	"context"
	"errors"
	"fmt"

	"agrimart-backend/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type OrderStore struct {
	db *pgxpool.Pool
}

func NewOrderStore(db *pgxpool.Pool) *OrderStore {
	return &OrderStore{db: db}
}

// Create writes the order and its items in one transaction. Stock has already
// been reserved by the ledger at this point; a failure here is reported to the
// coordinator, which owns the compensating restores.
func (s *OrderStore) Create(ctx context.Context, order *domain.Order) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var couponCode *string
	if order.CouponCode != "" {
		couponCode = &order.CouponCode
	}

	err = tx.QueryRow(ctx,
		`INSERT INTO orders (id, user_id, status, subtotal, discount, shipping, tax, total, coupon_code)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING created_at, updated_at`,
		order.ID, order.UserID, order.Status,
		order.Subtotal.String(), order.Discount.String(), order.Shipping.String(),
		order.Tax.String(), order.Total.String(), couponCode,
	).Scan(&order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	for _, item := range order.Items {
		_, err := tx.Exec(ctx,
			`INSERT INTO order_items (id, order_id, product_id, quantity, unit_price)
			 VALUES ($1, $2, $3, $4, $5)`,
			item.ID, order.ID, item.ProductID, item.Quantity, item.UnitPrice.String(),
		)
		if err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}

	return tx.Commit(ctx)
}

func (s *OrderStore) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	order, err := s.scanOrder(s.db.QueryRow(ctx,
		`SELECT id, user_id, status, subtotal::text, discount::text, shipping::text, tax::text, total::text, coupon_code, created_at, updated_at
		 FROM orders WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}

	items, err := s.loadItems(ctx, id)
	if err != nil {
		return nil, err
	}
	order.Items = items
	return order, nil
}

func (s *OrderStore) GetByUserID(ctx context.Context, userID string) ([]domain.Order, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, user_id, status, subtotal::text, discount::text, shipping::text, tax::text, total::text, coupon_code, created_at, updated_at
		 FROM orders WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		order, err := s.scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *order)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range orders {
		items, err := s.loadItems(ctx, orders[i].ID)
		if err != nil {
			return nil, err
		}
		orders[i].Items = items
	}
	return orders, nil
}

// UpdateStatus writes the status conditionally on the stored one still being
// from. When no row matches it reads the order back to tell a missing order
// apart from a transition lost to a concurrent writer.
func (s *OrderStore) UpdateStatus(ctx context.Context, id string, from, to domain.OrderStatus) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE orders SET status = $2, updated_at = now() WHERE id = $1 AND status = $3`,
		id, to, from)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var current domain.OrderStatus
	err = s.db.QueryRow(ctx, `SELECT status FROM orders WHERE id = $1`, id).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrOrderNotFound
	}
	if err != nil {
		return fmt.Errorf("read order status: %w", err)
	}
	return &domain.InvalidTransitionError{From: current, To: to}
}

func (s *OrderStore) scanOrder(row pgx.Row) (*domain.Order, error) {
	var (
		o                                       domain.Order
		subtotal, discount, shipping, tax, total string
		couponCode                              *string
	)
	err := row.Scan(&o.ID, &o.UserID, &o.Status, &subtotal, &discount, &shipping, &tax, &total, &couponCode, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}

	for _, pair := range []struct {
		dst *decimal.Decimal
		src string
	}{
		{&o.Subtotal, subtotal},
		{&o.Discount, discount},
		{&o.Shipping, shipping},
		{&o.Tax, tax},
		{&o.Total, total},
	} {
		d, err := decimal.NewFromString(pair.src)
		if err != nil {
			return nil, fmt.Errorf("parse order amount: %w", err)
		}
		*pair.dst = d
	}

	if couponCode != nil {
		o.CouponCode = *couponCode
	}
	return &o, nil
}

func (s *OrderStore) loadItems(ctx context.Context, orderID string) ([]domain.OrderItem, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, order_id, product_id, quantity, unit_price::text
		 FROM order_items WHERE order_id = $1`, orderID)
	if err != nil {
		return nil, fmt.Errorf("load order items: %w", err)
	}
	defer rows.Close()

	var items []domain.OrderItem
	for rows.Next() {
		var (
			item      domain.OrderItem
			unitPrice string
		)
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.Quantity, &unitPrice); err != nil {
			return nil, err
		}
		if item.UnitPrice, err = decimal.NewFromString(unitPrice); err != nil {
			return nil, fmt.Errorf("parse item price: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}
