package usecase

import (
	"fmt"
	"time"

	"agrimart-backend/internal/domain"

	"github.com/shopspring/decimal"
)

// CouponContext is the order state a coupon is evaluated against.
type CouponContext struct {
	Subtotal decimal.Decimal
	Now      time.Time
}

// ValidateCoupon is a pure decision function: it evaluates eligibility rules
// in a fixed order and returns the first failure, or nil when the coupon is
// applicable. It never mutates the coupon; a code that resolves to no coupon
// at all is the lookup step's concern, not this function's.
func ValidateCoupon(c *domain.Coupon, cctx CouponContext) *domain.InvalidCouponError {
	if !c.IsActive {
		return &domain.InvalidCouponError{
			Code:    c.Code,
			Reason:  domain.CouponReasonInactive,
			Message: "coupon is not active",
		}
	}
	if c.ValidFrom != nil && cctx.Now.Before(*c.ValidFrom) {
		return &domain.InvalidCouponError{
			Code:    c.Code,
			Reason:  domain.CouponReasonNotYetValid,
			Message: "coupon is not valid yet",
		}
	}
	if cctx.Now.After(c.ValidUntil) {
		return &domain.InvalidCouponError{
			Code:    c.Code,
			Reason:  domain.CouponReasonExpired,
			Message: "coupon has expired",
		}
	}
	if c.UsageLimit != nil && c.UsageCount >= *c.UsageLimit {
		return &domain.InvalidCouponError{
			Code:    c.Code,
			Reason:  domain.CouponReasonUsageLimit,
			Message: "coupon usage limit reached",
		}
	}
	if c.MinOrderValue != nil && cctx.Subtotal.LessThan(*c.MinOrderValue) {
		return &domain.InvalidCouponError{
			Code:    c.Code,
			Reason:  domain.CouponReasonMinOrder,
			Message: fmt.Sprintf("minimum order value of %s not met", c.MinOrderValue.StringFixed(2)),
		}
	}
	return nil
}
