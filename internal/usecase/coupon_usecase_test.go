package usecase

import (
	"context"
	"testing"

	"agrimart-backend/internal/domain"
	"agrimart-backend/internal/repository/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseCouponRequest() CouponRequest {
	return CouponRequest{
		Code:       "launch10",
		Type:       domain.CouponTypePercentage,
		Value:      dec("10"),
		ValidUntil: "2030-01-01T00:00:00Z",
		IsActive:   true,
	}
}

func TestCreateCoupon(t *testing.T) {
	store := memory.NewCouponStore()
	uc := NewCouponUsecase(store)

	coupon, err := uc.CreateCoupon(context.Background(), baseCouponRequest())
	require.NoError(t, err)
	assert.Equal(t, "LAUNCH10", coupon.Code, "codes are stored upper-cased")
	assert.Equal(t, 0, coupon.UsageCount)

	stored, err := store.GetByCode(context.Background(), "LAUNCH10")
	require.NoError(t, err)
	assert.Equal(t, coupon.ID, stored.ID)
}

func TestCreateCouponDuplicateCode(t *testing.T) {
	uc := NewCouponUsecase(memory.NewCouponStore())

	_, err := uc.CreateCoupon(context.Background(), baseCouponRequest())
	require.NoError(t, err)

	req := baseCouponRequest()
	req.Code = " launch10 " // normalizes to the same code
	_, err = uc.CreateCoupon(context.Background(), req)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestCreateCouponValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(r *CouponRequest)
	}{
		{"empty code", func(r *CouponRequest) { r.Code = "  " }},
		{"unknown type", func(r *CouponRequest) { r.Type = "bogus" }},
		{"zero value", func(r *CouponRequest) { r.Value = dec("0") }},
		{"negative value", func(r *CouponRequest) { r.Value = dec("-5") }},
		{"percentage over 100", func(r *CouponRequest) { r.Value = dec("120") }},
		{"max discount on fixed coupon", func(r *CouponRequest) {
			r.Type = domain.CouponTypeFixed
			r.MaxDiscount = decPtr("50")
		}},
		{"non-positive max discount", func(r *CouponRequest) { r.MaxDiscount = decPtr("0") }},
		{"negative min order value", func(r *CouponRequest) { r.MinOrderValue = decPtr("-1") }},
		{"usage limit below one", func(r *CouponRequest) { r.UsageLimit = intPtr(0) }},
		{"missing valid until", func(r *CouponRequest) { r.ValidUntil = "" }},
		{"garbage valid until", func(r *CouponRequest) { r.ValidUntil = "next tuesday" }},
		{"valid from after valid until", func(r *CouponRequest) {
			r.ValidFrom = "2031-01-01"
			r.ValidUntil = "2030-01-01"
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uc := NewCouponUsecase(memory.NewCouponStore())
			req := baseCouponRequest()
			tt.mutate(&req)

			_, err := uc.CreateCoupon(context.Background(), req)
			assert.Error(t, err)
		})
	}
}

func TestCreateCouponAcceptsDateOnlyFormat(t *testing.T) {
	uc := NewCouponUsecase(memory.NewCouponStore())

	req := baseCouponRequest()
	req.ValidFrom = "2026-01-01"
	req.ValidUntil = "2030-06-15"

	coupon, err := uc.CreateCoupon(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, coupon.ValidFrom)
	assert.Equal(t, 2030, coupon.ValidUntil.Year())
}

func TestUpdateCouponPreservesUsageCount(t *testing.T) {
	store := memory.NewCouponStore()
	uc := NewCouponUsecase(store)

	coupon, err := uc.CreateCoupon(context.Background(), baseCouponRequest())
	require.NoError(t, err)

	require.NoError(t, store.Redeem(context.Background(), coupon.Code))
	require.NoError(t, store.Redeem(context.Background(), coupon.Code))

	req := baseCouponRequest()
	req.Value = dec("15")
	require.NoError(t, uc.UpdateCoupon(context.Background(), coupon.ID, req))

	stored, err := store.GetByCode(context.Background(), "LAUNCH10")
	require.NoError(t, err)
	assert.Equal(t, "15", stored.Value.String())
	assert.Equal(t, 2, stored.UsageCount, "definition updates never reset the redemption counter")
}

func TestUpdateCouponRejectsTakenCode(t *testing.T) {
	store := memory.NewCouponStore()
	uc := NewCouponUsecase(store)

	first, err := uc.CreateCoupon(context.Background(), baseCouponRequest())
	require.NoError(t, err)

	other := baseCouponRequest()
	other.Code = "OTHER"
	_, err = uc.CreateCoupon(context.Background(), other)
	require.NoError(t, err)

	// Renaming OTHER onto first's code must fail; re-saving first under its
	// own code must not.
	req := baseCouponRequest()
	require.NoError(t, uc.UpdateCoupon(context.Background(), first.ID, req))

	stored, err := store.GetByCode(context.Background(), "OTHER")
	require.NoError(t, err)
	steal := baseCouponRequest()
	err = uc.UpdateCoupon(context.Background(), stored.ID, steal)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestListCouponsPagination(t *testing.T) {
	store := memory.NewCouponStore()
	uc := NewCouponUsecase(store)

	for _, code := range []string{"AAA", "BBB", "CCC"} {
		req := baseCouponRequest()
		req.Code = code
		_, err := uc.CreateCoupon(context.Background(), req)
		require.NoError(t, err)
	}

	coupons, total, err := uc.ListCoupons(context.Background(), 2, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, coupons, 2)
	assert.Equal(t, "AAA", coupons[0].Code)
	assert.Equal(t, "BBB", coupons[1].Code)

	coupons, _, err = uc.ListCoupons(context.Background(), 2, 2)
	require.NoError(t, err)
	require.Len(t, coupons, 1)
	assert.Equal(t, "CCC", coupons[0].Code)
}

func TestDeleteCoupon(t *testing.T) {
	store := memory.NewCouponStore()
	uc := NewCouponUsecase(store)

	coupon, err := uc.CreateCoupon(context.Background(), baseCouponRequest())
	require.NoError(t, err)

	require.NoError(t, uc.DeleteCoupon(context.Background(), coupon.ID))

	_, err = store.GetByCode(context.Background(), "LAUNCH10")
	assert.ErrorIs(t, err, domain.ErrCouponNotFound)
}
