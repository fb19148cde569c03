package postgres

import (
	"context"
	"errors"
	"fmt"

	"agrimart-backend/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type CouponStore struct {
	db *pgxpool.Pool
}

func NewCouponStore(db *pgxpool.Pool) *CouponStore {
	return &CouponStore{db: db}
}

const couponColumns = `id, code, type, value::text, min_order_value::text, max_discount::text,
	usage_limit, usage_count, valid_from, valid_until, is_active, created_at`

func scanCoupon(row pgx.Row) (*domain.Coupon, error) {
	var (
		c             domain.Coupon
		value         string
		minOrderValue *string
		maxDiscount   *string
	)
	err := row.Scan(&c.ID, &c.Code, &c.Type, &value, &minOrderValue, &maxDiscount,
		&c.UsageLimit, &c.UsageCount, &c.ValidFrom, &c.ValidUntil, &c.IsActive, &c.CreatedAt)
	if err != nil {
		return nil, err
	}

	if c.Value, err = decimal.NewFromString(value); err != nil {
		return nil, fmt.Errorf("parse coupon value: %w", err)
	}
	if minOrderValue != nil {
		d, err := decimal.NewFromString(*minOrderValue)
		if err != nil {
			return nil, fmt.Errorf("parse min order value: %w", err)
		}
		c.MinOrderValue = &d
	}
	if maxDiscount != nil {
		d, err := decimal.NewFromString(*maxDiscount)
		if err != nil {
			return nil, fmt.Errorf("parse max discount: %w", err)
		}
		c.MaxDiscount = &d
	}
	return &c, nil
}

func decimalPtrToString(d *decimal.Decimal) *string {
	if d == nil {
		return nil
	}
	s := d.String()
	return &s
}

func (s *CouponStore) GetByCode(ctx context.Context, code string) (*domain.Coupon, error) {
	c, err := scanCoupon(s.db.QueryRow(ctx,
		`SELECT `+couponColumns+` FROM coupons WHERE code = $1`, code))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrCouponNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get coupon: %w", err)
	}
	return c, nil
}

func (s *CouponStore) Create(ctx context.Context, coupon *domain.Coupon) error {
	err := s.db.QueryRow(ctx,
		`INSERT INTO coupons (id, code, type, value, min_order_value, max_discount, usage_limit, valid_from, valid_until, is_active)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 RETURNING created_at`,
		coupon.ID, coupon.Code, coupon.Type, coupon.Value.String(),
		decimalPtrToString(coupon.MinOrderValue), decimalPtrToString(coupon.MaxDiscount),
		coupon.UsageLimit, coupon.ValidFrom, coupon.ValidUntil, coupon.IsActive,
	).Scan(&coupon.CreatedAt)
	if err != nil {
		return fmt.Errorf("create coupon: %w", err)
	}
	return nil
}

// Update rewrites a coupon's definition. usage_count is deliberately not in
// the column list; only Redeem and Release touch it.
func (s *CouponStore) Update(ctx context.Context, coupon *domain.Coupon) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE coupons
		 SET code = $2, type = $3, value = $4, min_order_value = $5, max_discount = $6,
		     usage_limit = $7, valid_from = $8, valid_until = $9, is_active = $10
		 WHERE id = $1`,
		coupon.ID, coupon.Code, coupon.Type, coupon.Value.String(),
		decimalPtrToString(coupon.MinOrderValue), decimalPtrToString(coupon.MaxDiscount),
		coupon.UsageLimit, coupon.ValidFrom, coupon.ValidUntil, coupon.IsActive,
	)
	if err != nil {
		return fmt.Errorf("update coupon: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrCouponNotFound
	}
	return nil
}

func (s *CouponStore) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM coupons WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete coupon: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrCouponNotFound
	}
	return nil
}

func (s *CouponStore) List(ctx context.Context, limit, offset int) ([]domain.Coupon, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+couponColumns+` FROM coupons ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list coupons: %w", err)
	}
	defer rows.Close()

	var coupons []domain.Coupon
	for rows.Next() {
		c, err := scanCoupon(rows)
		if err != nil {
			return nil, err
		}
		coupons = append(coupons, *c)
	}
	return coupons, rows.Err()
}

func (s *CouponStore) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.QueryRow(ctx, `SELECT count(*) FROM coupons`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count coupons: %w", err)
	}
	return count, nil
}

// Redeem increments usage_count in one conditional statement; the WHERE clause
// and the row lock make the limit check and the increment indivisible, so two
// orders cannot both take the last unit of a limited coupon.
func (s *CouponStore) Redeem(ctx context.Context, code string) error {
	return withRetry(ctx, func() error {
		tag, err := s.db.Exec(ctx,
			`UPDATE coupons
			 SET usage_count = usage_count + 1
			 WHERE code = $1 AND (usage_limit IS NULL OR usage_count < usage_limit)`,
			code)
		if err != nil {
			return fmt.Errorf("redeem coupon: %w", err)
		}
		if tag.RowsAffected() > 0 {
			return nil
		}

		var exists bool
		if err := s.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM coupons WHERE code = $1)`, code).Scan(&exists); err != nil {
			return fmt.Errorf("check coupon: %w", err)
		}
		if !exists {
			return domain.ErrCouponNotFound
		}
		return &domain.InvalidCouponError{
			Code:    code,
			Reason:  domain.CouponReasonUsageLimit,
			Message: "coupon usage limit reached",
		}
	})
}

// Release decrements usage_count, clamped at zero.
func (s *CouponStore) Release(ctx context.Context, code string) error {
	return withRetry(ctx, func() error {
		tag, err := s.db.Exec(ctx,
			`UPDATE coupons
			 SET usage_count = GREATEST(usage_count - 1, 0)
			 WHERE code = $1`,
			code)
		if err != nil {
			return fmt.Errorf("release coupon: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrCouponNotFound
		}
		return nil
	})
}
