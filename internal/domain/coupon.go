package domain

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Coupon types
const (
	CouponTypePercentage = "percentage"
	CouponTypeFixed      = "fixed"
)

type Coupon struct {
	ID            uuid.UUID        `json:"id"`
	Code          string           `json:"code"` // stored upper-cased
	Type          string           `json:"type"` // percentage, fixed
	Value         decimal.Decimal  `json:"value"`
	MinOrderValue *decimal.Decimal `json:"minOrderValue,omitempty"`
	MaxDiscount   *decimal.Decimal `json:"maxDiscount,omitempty"` // percentage only
	UsageLimit    *int             `json:"usageLimit,omitempty"`
	UsageCount    int              `json:"usageCount"`
	ValidFrom     *time.Time       `json:"validFrom,omitempty"`
	ValidUntil    time.Time        `json:"validUntil"`
	IsActive      bool             `json:"isActive"`
	CreatedAt     time.Time        `json:"createdAt"`
}

// NormalizeCouponCode maps user input to the canonical stored form.
func NormalizeCouponCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// CouponStore provides coupon lookup, administration and the two counter
// mutations used by the commit path. Admin operations never touch UsageCount;
// only Redeem and Release do.
//
// Redeem atomically increments UsageCount using the same compare-and-verify
// discipline as stock: when UsageLimit is set and already reached at increment
// time, it fails with *InvalidCouponError (reason usage-limit) without
// mutating. Release is the compensating decrement, clamped at zero; whether it
// runs on order cancellation is a deployment policy.
type CouponStore interface {
	GetByCode(ctx context.Context, code string) (*Coupon, error)
	Create(ctx context.Context, coupon *Coupon) error
	Update(ctx context.Context, coupon *Coupon) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]Coupon, error)
	Count(ctx context.Context) (int64, error)

	Redeem(ctx context.Context, code string) error
	Release(ctx context.Context, code string) error
}
