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

type ProductStore struct {
	db *pgxpool.Pool
}

func NewProductStore(db *pgxpool.Pool) *ProductStore {
	return &ProductStore{db: db}
}

func (s *ProductStore) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	var (
		p     domain.Product
		price string
	)
	err := s.db.QueryRow(ctx,
		`SELECT id, name, slug, description, price::text, stock, unit, is_active, created_at, updated_at
		 FROM products WHERE id = $1`,
		id,
	).Scan(&p.ID, &p.Name, &p.Slug, &p.Description, &price, &p.Stock, &p.Unit, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}

	p.Price, err = decimal.NewFromString(price)
	if err != nil {
		return nil, fmt.Errorf("parse product price: %w", err)
	}
	return &p, nil
}

// Create inserts a product. Used by seeding and admin tooling; the commit
// path only reads.
func (s *ProductStore) Create(ctx context.Context, p *domain.Product) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO products (id, name, slug, description, price, stock, unit, is_active)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		p.ID, p.Name, p.Slug, p.Description, p.Price.String(), p.Stock, p.Unit, p.IsActive,
	)
	if err != nil {
		return fmt.Errorf("create product: %w", err)
	}
	return nil
}
