package cache

import (
	"context"
	"time"

	"agrimart-backend/internal/domain"
	"agrimart-backend/pkg/cache"

	"github.com/google/uuid"
)

// CouponStoreCache is a read-through decorator over a CouponStore. Coupon
// lookups sit on the checkout hot path; definitions change rarely, so a short
// TTL keeps the store off most requests. Counter mutations and admin writes
// invalidate, since a stale UsageCount would skew the validator's pre-check
// (the authoritative limit check stays in Redeem either way).
type CouponStoreCache struct {
	inner domain.CouponStore
	cache cache.CacheService
	ttl   time.Duration
}

func NewCouponStoreCache(inner domain.CouponStore, c cache.CacheService, ttl time.Duration) *CouponStoreCache {
	return &CouponStoreCache{inner: inner, cache: c, ttl: ttl}
}

func couponKey(code string) string {
	return "coupon:" + code
}

func (s *CouponStoreCache) GetByCode(ctx context.Context, code string) (*domain.Coupon, error) {
	if v, ok := s.cache.Get(couponKey(code)); ok {
		if c, ok := v.(*domain.Coupon); ok {
			return c, nil
		}
	}

	c, err := s.inner.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	s.cache.Set(couponKey(code), c, s.ttl)
	return c, nil
}

func (s *CouponStoreCache) Create(ctx context.Context, coupon *domain.Coupon) error {
	if err := s.inner.Create(ctx, coupon); err != nil {
		return err
	}
	s.cache.Delete(couponKey(coupon.Code))
	return nil
}

func (s *CouponStoreCache) Update(ctx context.Context, coupon *domain.Coupon) error {
	if err := s.inner.Update(ctx, coupon); err != nil {
		return err
	}
	// The code itself may have changed; drop everything rather than track
	// the old key.
	s.cache.Flush()
	return nil
}

func (s *CouponStoreCache) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.inner.Delete(ctx, id); err != nil {
		return err
	}
	s.cache.Flush()
	return nil
}

func (s *CouponStoreCache) List(ctx context.Context, limit, offset int) ([]domain.Coupon, error) {
	return s.inner.List(ctx, limit, offset)
}

func (s *CouponStoreCache) Count(ctx context.Context) (int64, error) {
	return s.inner.Count(ctx)
}

func (s *CouponStoreCache) Redeem(ctx context.Context, code string) error {
	err := s.inner.Redeem(ctx, code)
	s.cache.Delete(couponKey(code))
	return err
}

func (s *CouponStoreCache) Release(ctx context.Context, code string) error {
	err := s.inner.Release(ctx, code)
	s.cache.Delete(couponKey(code))
	return err
}
