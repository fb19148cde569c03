package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"agrimart-backend/internal/domain"
)

type OrderStore struct {
	mu     sync.RWMutex
	orders map[string]domain.Order
}

func NewOrderStore() *OrderStore {
	return &OrderStore{orders: make(map[string]domain.Order)}
}

func (s *OrderStore) Create(ctx context.Context, order *domain.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	order.CreatedAt = now
	order.UpdatedAt = now

	stored := *order
	stored.Items = make([]domain.OrderItem, len(order.Items))
	copy(stored.Items, order.Items)
	s.orders[order.ID] = stored
	return nil
}

func (s *OrderStore) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.orders[id]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	items := make([]domain.OrderItem, len(o.Items))
	copy(items, o.Items)
	o.Items = items
	return &o, nil
}

func (s *OrderStore) GetByUserID(ctx context.Context, userID string) ([]domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var orders []domain.Order
	for _, o := range s.orders {
		if o.UserID == userID {
			orders = append(orders, o)
		}
	}
	sort.Slice(orders, func(i, j int) bool { return orders[i].CreatedAt.After(orders[j].CreatedAt) })
	return orders, nil
}

// UpdateStatus verifies the stored status under the lock before writing, so a
// caller whose read went stale loses the transition instead of clobbering it.
func (s *OrderStore) UpdateStatus(ctx context.Context, id string, from, to domain.OrderStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[id]
	if !ok {
		return domain.ErrOrderNotFound
	}
	if o.Status != from {
		return &domain.InvalidTransitionError{From: o.Status, To: to}
	}
	o.Status = to
	o.UpdatedAt = time.Now()
	s.orders[id] = o
	return nil
}
