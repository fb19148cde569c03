package usecase

import (
	"time"

	"agrimart-backend/internal/domain"

	"github.com/shopspring/decimal"
)

// PricingConfig holds the tunables of the price summary calculation.
type PricingConfig struct {
	FreeShippingThreshold decimal.Decimal
	StandardShippingFee   decimal.Decimal
	TaxRate               decimal.Decimal
}

// DefaultPricingConfig mirrors the storefront defaults: free shipping from
// 5000, flat 200 fee below it, 18% tax.
func DefaultPricingConfig() PricingConfig {
	return PricingConfig{
		FreeShippingThreshold: decimal.NewFromInt(5000),
		StandardShippingFee:   decimal.NewFromInt(200),
		TaxRate:               decimal.NewFromFloat(0.18),
	}
}

// round2 rounds to 2 decimal places, half up. Applied once per computed
// figure, never on intermediates.
func round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// CalculateDiscount computes the discount amount for an already-valid coupon.
// Percentage coupons are capped by MaxDiscount when set; fixed coupons never
// exceed the subtotal, so the post-discount total cannot go negative. The
// result carries a single terminal round2.
func CalculateDiscount(c *domain.Coupon, subtotal decimal.Decimal) decimal.Decimal {
	var discount decimal.Decimal
	switch c.Type {
	case domain.CouponTypePercentage:
		discount = subtotal.Mul(c.Value).Div(decimal.NewFromInt(100))
		if c.MaxDiscount != nil && discount.GreaterThan(*c.MaxDiscount) {
			discount = *c.MaxDiscount
		}
	case domain.CouponTypeFixed:
		discount = c.Value
		if discount.GreaterThan(subtotal) {
			discount = subtotal
		}
	}
	return round2(discount)
}

// PriceSummaryBuilder aggregates subtotal, discount, shipping, tax and total
// for one order attempt. It is a pure function of the items and coupon state;
// it performs no mutation and no I/O.
type PriceSummaryBuilder struct {
	cfg PricingConfig
}

func NewPriceSummaryBuilder(cfg PricingConfig) *PriceSummaryBuilder {
	return &PriceSummaryBuilder{cfg: cfg}
}

// Build computes the price summary. A nil coupon means no discount and the
// coupon rules are skipped entirely; a non-nil coupon is validated first and
// an ineligible one fails the whole build.
func (b *PriceSummaryBuilder) Build(items []domain.OrderItem, coupon *domain.Coupon, now time.Time) (domain.PriceSummary, error) {
	subtotal := decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}

	discount := decimal.Zero
	if coupon != nil {
		if verr := ValidateCoupon(coupon, CouponContext{Subtotal: subtotal, Now: now}); verr != nil {
			return domain.PriceSummary{}, verr
		}
		discount = CalculateDiscount(coupon, subtotal)
	}

	shipping := b.cfg.StandardShippingFee
	if subtotal.GreaterThanOrEqual(b.cfg.FreeShippingThreshold) {
		shipping = decimal.Zero
	}

	tax := round2(subtotal.Sub(discount).Mul(b.cfg.TaxRate))

	total := round2(subtotal.Sub(discount).Add(shipping).Add(tax))
	if total.IsNegative() {
		total = decimal.Zero
	}

	return domain.PriceSummary{
		Subtotal: round2(subtotal),
		Discount: discount,
		Shipping: shipping,
		Tax:      tax,
		Total:    total,
	}, nil
}
