package memory

import (
	"context"
	"sort"
	"sync"

	"agrimart-backend/internal/domain"

	"github.com/google/uuid"
)

// CouponStore keeps one entry per coupon code, each with its own mutex so
// redemptions of different coupons never contend. The outer lock only guards
// the map itself.
type CouponStore struct {
	mu      sync.RWMutex
	entries map[string]*couponEntry // keyed by code
}

type couponEntry struct {
	mu     sync.Mutex
	coupon domain.Coupon
}

func NewCouponStore() *CouponStore {
	return &CouponStore{entries: make(map[string]*couponEntry)}
}

func (s *CouponStore) lookup(code string) (*couponEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[code]
	return e, ok
}

func (s *CouponStore) GetByCode(ctx context.Context, code string) (*domain.Coupon, error) {
	e, ok := s.lookup(code)
	if !ok {
		return nil, domain.ErrCouponNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	c := e.coupon
	return &c, nil
}

func (s *CouponStore) Create(ctx context.Context, coupon *domain.Coupon) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[coupon.Code] = &couponEntry{coupon: *coupon}
	return nil
}

// Update rewrites the coupon definition inside the existing entry rather than
// swapping in a new one. A redemption that already resolved the entry pointer
// must land its increment on the live counter, not an orphaned copy. On a code
// rename the same entry moves under the new key.
func (s *CouponStore) Update(ctx context.Context, coupon *domain.Coupon) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for code, e := range s.entries {
		e.mu.Lock()
		if e.coupon.ID == coupon.ID {
			// Preserve the usage counter across definition updates.
			updated := *coupon
			updated.UsageCount = e.coupon.UsageCount
			updated.CreatedAt = e.coupon.CreatedAt
			e.coupon = updated
			e.mu.Unlock()
			if code != updated.Code {
				delete(s.entries, code)
				s.entries[updated.Code] = e
			}
			return nil
		}
		e.mu.Unlock()
	}
	return domain.ErrCouponNotFound
}

func (s *CouponStore) Delete(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for code, e := range s.entries {
		if e.coupon.ID == id {
			delete(s.entries, code)
			return nil
		}
	}
	return domain.ErrCouponNotFound
}

func (s *CouponStore) List(ctx context.Context, limit, offset int) ([]domain.Coupon, error) {
	s.mu.RLock()
	coupons := make([]domain.Coupon, 0, len(s.entries))
	for _, e := range s.entries {
		e.mu.Lock()
		coupons = append(coupons, e.coupon)
		e.mu.Unlock()
	}
	s.mu.RUnlock()

	sort.Slice(coupons, func(i, j int) bool { return coupons[i].Code < coupons[j].Code })

	if offset >= len(coupons) {
		return nil, nil
	}
	end := offset + limit
	if end > len(coupons) {
		end = len(coupons)
	}
	return coupons[offset:end], nil
}

func (s *CouponStore) Count(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.entries)), nil
}

// Redeem increments the usage counter under the coupon's own lock, so two
// orders racing for the last unit of a limited coupon cannot both pass the
// limit check.
func (s *CouponStore) Redeem(ctx context.Context, code string) error {
	e, ok := s.lookup(code)
	if !ok {
		return domain.ErrCouponNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.coupon.UsageLimit != nil && e.coupon.UsageCount >= *e.coupon.UsageLimit {
		return &domain.InvalidCouponError{
			Code:    code,
			Reason:  domain.CouponReasonUsageLimit,
			Message: "coupon usage limit reached",
		}
	}
	e.coupon.UsageCount++
	return nil
}

// Release decrements the usage counter, clamped at zero.
func (s *CouponStore) Release(ctx context.Context, code string) error {
	e, ok := s.lookup(code)
	if !ok {
		return domain.ErrCouponNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.coupon.UsageCount > 0 {
		e.coupon.UsageCount--
	}
	return nil
}
