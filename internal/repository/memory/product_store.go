package memory

import (
	"context"
	"sync"

	"agrimart-backend/internal/domain"
)

// ProductStore is a read-mostly catalog keyed by product ID.
type ProductStore struct {
	mu       sync.RWMutex
	products map[string]domain.Product
}

func NewProductStore() *ProductStore {
	return &ProductStore{products: make(map[string]domain.Product)}
}

func (s *ProductStore) Put(p domain.Product) {
	s.mu.Lock()
	s.products[p.ID] = p
	s.mu.Unlock()
}

func (s *ProductStore) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[id]
	if !ok {
		return nil, domain.ErrProductNotFound
	}
	return &p, nil
}
