package usecase

import (
	"context"
	"fmt"
	"time"

	"agrimart-backend/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CouponUsecase handles admin coupon management. It never touches UsageCount;
// only the commit path mutates that counter.
type CouponUsecase struct {
	coupons domain.CouponStore
}

func NewCouponUsecase(coupons domain.CouponStore) *CouponUsecase {
	return &CouponUsecase{coupons: coupons}
}

// CouponRequest is the input for creating or updating a coupon.
type CouponRequest struct {
	Code          string           `json:"code"`
	Type          string           `json:"type"` // "percentage" or "fixed"
	Value         decimal.Decimal  `json:"value"`
	MinOrderValue *decimal.Decimal `json:"minOrderValue,omitempty"`
	MaxDiscount   *decimal.Decimal `json:"maxDiscount,omitempty"`
	UsageLimit    *int             `json:"usageLimit,omitempty"`
	ValidFrom     string           `json:"validFrom,omitempty"` // ISO8601
	ValidUntil    string           `json:"validUntil"`          // ISO8601, required
	IsActive      bool             `json:"isActive"`
}

func (uc *CouponUsecase) validate(req CouponRequest) (code string, validFrom *time.Time, validUntil time.Time, err error) {
	code = domain.NormalizeCouponCode(req.Code)
	if code == "" {
		return "", nil, time.Time{}, fmt.Errorf("coupon code is required")
	}

	if req.Type != domain.CouponTypePercentage && req.Type != domain.CouponTypeFixed {
		return "", nil, time.Time{}, fmt.Errorf("coupon type must be 'percentage' or 'fixed'")
	}

	if !req.Value.IsPositive() {
		return "", nil, time.Time{}, fmt.Errorf("coupon value must be greater than 0")
	}

	if req.Type == domain.CouponTypePercentage && req.Value.GreaterThan(decimal.NewFromInt(100)) {
		return "", nil, time.Time{}, fmt.Errorf("percentage discount cannot exceed 100%%")
	}

	// A discount cap only makes sense for percentage coupons.
	if req.Type == domain.CouponTypeFixed && req.MaxDiscount != nil {
		return "", nil, time.Time{}, fmt.Errorf("maxDiscount is not allowed for fixed coupons")
	}

	if req.MaxDiscount != nil && !req.MaxDiscount.IsPositive() {
		return "", nil, time.Time{}, fmt.Errorf("maxDiscount must be greater than 0")
	}

	if req.MinOrderValue != nil && req.MinOrderValue.IsNegative() {
		return "", nil, time.Time{}, fmt.Errorf("minOrderValue cannot be negative")
	}

	if req.UsageLimit != nil && *req.UsageLimit < 1 {
		return "", nil, time.Time{}, fmt.Errorf("usageLimit must be at least 1")
	}

	if req.ValidUntil == "" {
		return "", nil, time.Time{}, fmt.Errorf("validUntil is required")
	}
	until, perr := parseISO8601(req.ValidUntil)
	if perr != nil {
		return "", nil, time.Time{}, fmt.Errorf("invalid validUntil: %w", perr)
	}
	validUntil = until

	if req.ValidFrom != "" {
		from, perr := parseISO8601(req.ValidFrom)
		if perr != nil {
			return "", nil, time.Time{}, fmt.Errorf("invalid validFrom: %w", perr)
		}
		if from.After(validUntil) {
			return "", nil, time.Time{}, fmt.Errorf("validFrom must not be after validUntil")
		}
		validFrom = &from
	}

	return code, validFrom, validUntil, nil
}

// CreateCoupon creates a new coupon with validation.
func (uc *CouponUsecase) CreateCoupon(ctx context.Context, req CouponRequest) (*domain.Coupon, error) {
	code, validFrom, validUntil, err := uc.validate(req)
	if err != nil {
		return nil, err
	}

	if existing, _ := uc.coupons.GetByCode(ctx, code); existing != nil {
		return nil, fmt.Errorf("coupon code '%s' already exists", code)
	}

	coupon := &domain.Coupon{
		ID:            uuid.New(),
		Code:          code,
		Type:          req.Type,
		Value:         req.Value,
		MinOrderValue: req.MinOrderValue,
		MaxDiscount:   req.MaxDiscount,
		UsageLimit:    req.UsageLimit,
		ValidFrom:     validFrom,
		ValidUntil:    validUntil,
		IsActive:      req.IsActive,
	}

	if err := uc.coupons.Create(ctx, coupon); err != nil {
		return nil, fmt.Errorf("failed to create coupon: %w", err)
	}

	return coupon, nil
}

// UpdateCoupon updates an existing coupon's definition. UsageCount is carried
// over untouched.
func (uc *CouponUsecase) UpdateCoupon(ctx context.Context, id uuid.UUID, req CouponRequest) error {
	code, validFrom, validUntil, err := uc.validate(req)
	if err != nil {
		return err
	}

	existing, err := uc.coupons.GetByCode(ctx, code)
	if err == nil && existing.ID != id {
		return fmt.Errorf("coupon code '%s' already exists", code)
	}

	coupon := &domain.Coupon{
		ID:            id,
		Code:          code,
		Type:          req.Type,
		Value:         req.Value,
		MinOrderValue: req.MinOrderValue,
		MaxDiscount:   req.MaxDiscount,
		UsageLimit:    req.UsageLimit,
		ValidFrom:     validFrom,
		ValidUntil:    validUntil,
		IsActive:      req.IsActive,
	}

	return uc.coupons.Update(ctx, coupon)
}

// ListCoupons returns a paginated list of coupons plus the total count.
func (uc *CouponUsecase) ListCoupons(ctx context.Context, limit, offset int) ([]domain.Coupon, int64, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	coupons, err := uc.coupons.List(ctx, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list coupons: %w", err)
	}

	total, err := uc.coupons.Count(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count coupons: %w", err)
	}

	return coupons, total, nil
}

// DeleteCoupon removes a coupon by ID.
func (uc *CouponUsecase) DeleteCoupon(ctx context.Context, id uuid.UUID) error {
	return uc.coupons.Delete(ctx, id)
}

// parseISO8601 parses the date formats the admin frontend sends.
func parseISO8601(s string) (time.Time, error) {
	formats := []string{
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02",
	}
	for _, f := range formats {
		if t, err := time.Parse(f, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date format")
}
