package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"

	"agrimart-backend/internal/domain"
	"agrimart-backend/internal/repository/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type lifecycleFixture struct {
	orders  *memory.OrderStore
	ledger  *memory.StockLedger
	coupons *memory.CouponStore
	uc      *LifecycleUsecase
}

func newLifecycleFixture(t *testing.T, releaseCoupon bool) *lifecycleFixture {
	t.Helper()

	f := &lifecycleFixture{
		orders:  memory.NewOrderStore(),
		ledger:  memory.NewStockLedger(),
		coupons: memory.NewCouponStore(),
	}
	f.uc = NewLifecycleUsecase(f.orders, f.ledger, f.coupons, releaseCoupon)
	return f
}

func (f *lifecycleFixture) seedOrder(t *testing.T, order *domain.Order) {
	t.Helper()
	require.NoError(t, f.orders.Create(context.Background(), order))
}

func TestUpdateStatusTransitions(t *testing.T) {
	tests := []struct {
		from    domain.OrderStatus
		to      domain.OrderStatus
		allowed bool
	}{
		{domain.OrderStatusPending, domain.OrderStatusConfirmed, true},
		{domain.OrderStatusConfirmed, domain.OrderStatusProcessing, true},
		{domain.OrderStatusProcessing, domain.OrderStatusShipped, true},
		{domain.OrderStatusShipped, domain.OrderStatusDelivered, true},
		{domain.OrderStatusPending, domain.OrderStatusCancelled, true},
		{domain.OrderStatusShipped, domain.OrderStatusRefunded, true},
		{domain.OrderStatusPending, domain.OrderStatusShipped, false},
		{domain.OrderStatusPending, domain.OrderStatusDelivered, false},
		{domain.OrderStatusConfirmed, domain.OrderStatusPending, false},
		{domain.OrderStatusDelivered, domain.OrderStatusCancelled, false},
		{domain.OrderStatusDelivered, domain.OrderStatusRefunded, false},
		{domain.OrderStatusCancelled, domain.OrderStatusConfirmed, false},
		{domain.OrderStatusRefunded, domain.OrderStatusCancelled, false},
	}

	for _, tt := range tests {
		name := string(tt.from) + " to " + string(tt.to)
		t.Run(name, func(t *testing.T) {
			f := newLifecycleFixture(t, false)
			f.seedOrder(t, &domain.Order{ID: "o1", UserID: "u1", Status: tt.from})

			order, _, err := f.uc.UpdateStatus(context.Background(), "o1", tt.to)
			if tt.allowed {
				require.NoError(t, err)
				assert.Equal(t, tt.to, order.Status)

				stored, gerr := f.orders.GetByID(context.Background(), "o1")
				require.NoError(t, gerr)
				assert.Equal(t, tt.to, stored.Status)
				return
			}

			var terr *domain.InvalidTransitionError
			require.ErrorAs(t, err, &terr)
			assert.Equal(t, tt.from, terr.From)
			assert.Equal(t, tt.to, terr.To)

			stored, gerr := f.orders.GetByID(context.Background(), "o1")
			require.NoError(t, gerr)
			assert.Equal(t, tt.from, stored.Status, "a rejected transition must not change the stored status")
		})
	}
}

func TestUpdateStatusUnknownOrder(t *testing.T) {
	f := newLifecycleFixture(t, false)
	_, _, err := f.uc.UpdateStatus(context.Background(), "missing", domain.OrderStatusConfirmed)
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
}

func TestCancelRestoresStockPerItem(t *testing.T) {
	f := newLifecycleFixture(t, false)
	f.ledger.Seed("seeds-1", 4)
	f.ledger.Seed("tools-1", 0)

	f.seedOrder(t, &domain.Order{
		ID:     "o1",
		UserID: "u1",
		Status: domain.OrderStatusPending,
		Items: []domain.OrderItem{
			{ProductID: "seeds-1", Quantity: 3},
			{ProductID: "tools-1", Quantity: 1},
		},
	})

	order, restores, err := f.uc.UpdateStatus(context.Background(), "o1", domain.OrderStatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCancelled, order.Status)

	require.NotNil(t, restores)
	require.Len(t, restores.Succeeded, 2)
	assert.Empty(t, restores.Failed)
	assert.Equal(t, 7, restores.Succeeded[0].NewStock)
	assert.Equal(t, 1, restores.Succeeded[1].NewStock)
	assert.Equal(t, 7, f.ledger.Stock("seeds-1"))
	assert.Equal(t, 1, f.ledger.Stock("tools-1"))
}

func TestForwardTransitionDoesNotTouchStock(t *testing.T) {
	f := newLifecycleFixture(t, false)
	f.ledger.Seed("seeds-1", 4)

	f.seedOrder(t, &domain.Order{
		ID:     "o1",
		UserID: "u1",
		Status: domain.OrderStatusPending,
		Items:  []domain.OrderItem{{ProductID: "seeds-1", Quantity: 3}},
	})

	_, restores, err := f.uc.UpdateStatus(context.Background(), "o1", domain.OrderStatusConfirmed)
	require.NoError(t, err)
	assert.Nil(t, restores)
	assert.Equal(t, 4, f.ledger.Stock("seeds-1"))
}

// failingLedger fails every Restore for products in bad.
type failingLedger struct {
	*memory.StockLedger
	bad map[string]bool
}

func (l *failingLedger) Restore(ctx context.Context, productID string, quantity int) (int, error) {
	if l.bad[productID] {
		return 0, domain.ErrProductNotFound
	}
	return l.StockLedger.Restore(ctx, productID, quantity)
}

func TestCancelCollectsFailedRestoresWithoutAborting(t *testing.T) {
	orders := memory.NewOrderStore()
	ledger := &failingLedger{StockLedger: memory.NewStockLedger(), bad: map[string]bool{"gone-1": true}}
	coupons := memory.NewCouponStore()
	uc := NewLifecycleUsecase(orders, ledger, coupons, false)

	ledger.Seed("seeds-1", 0)
	ledger.Seed("tools-1", 0)

	require.NoError(t, orders.Create(context.Background(), &domain.Order{
		ID:     "o1",
		UserID: "u1",
		Status: domain.OrderStatusPending,
		Items: []domain.OrderItem{
			{ProductID: "seeds-1", Quantity: 2},
			{ProductID: "gone-1", Quantity: 1},
			{ProductID: "tools-1", Quantity: 4},
		},
	}))

	_, restores, err := uc.UpdateStatus(context.Background(), "o1", domain.OrderStatusRefunded)
	require.NoError(t, err, "a failing line must not abort the batch")

	require.NotNil(t, restores)
	require.Len(t, restores.Succeeded, 2)
	require.Len(t, restores.Failed, 1)
	assert.Equal(t, "gone-1", restores.Failed[0].ProductID)
	assert.NotEmpty(t, restores.Failed[0].Error)

	// Lines after the failing one are still restored.
	assert.Equal(t, 2, ledger.Stock("seeds-1"))
	assert.Equal(t, 4, ledger.Stock("tools-1"))
}

// barrierOrderStore holds every reader at a barrier so concurrent callers all
// observe the same order state before any of them transitions it.
type barrierOrderStore struct {
	*memory.OrderStore
	barrier *sync.WaitGroup
}

func (s *barrierOrderStore) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	o, err := s.OrderStore.GetByID(ctx, id)
	s.barrier.Done()
	s.barrier.Wait()
	return o, err
}

func TestConcurrentCancelRestoresStockOnce(t *testing.T) {
	var barrier sync.WaitGroup
	barrier.Add(2)

	orders := &barrierOrderStore{OrderStore: memory.NewOrderStore(), barrier: &barrier}
	ledger := memory.NewStockLedger()
	uc := NewLifecycleUsecase(orders, ledger, memory.NewCouponStore(), false)

	ledger.Seed("seeds-1", 0)
	require.NoError(t, orders.Create(context.Background(), &domain.Order{
		ID:     "o1",
		UserID: "u1",
		Status: domain.OrderStatusPending,
		Items:  []domain.OrderItem{{ProductID: "seeds-1", Quantity: 3}},
	}))

	// Both cancels read the order as PENDING before either writes. Only one
	// may win the transition and run the compensating restore.
	errs := make(chan error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := uc.UpdateStatus(context.Background(), "o1", domain.OrderStatusCancelled)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var succeeded, lost int
	for err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		var terr *domain.InvalidTransitionError
		require.ErrorAs(t, err, &terr)
		lost++
	}
	assert.Equal(t, 1, succeeded, "exactly one cancel may win")
	assert.Equal(t, 1, lost)
	assert.Equal(t, 3, ledger.Stock("seeds-1"), "stock must be restored exactly once")
}

// failingStatusStore persists nothing; every status write fails.
type failingStatusStore struct {
	*memory.OrderStore
}

func (s *failingStatusStore) UpdateStatus(ctx context.Context, id string, from, to domain.OrderStatus) error {
	return errors.New("connection reset")
}

func TestCancelDoesNotRestoreWhenStatusWriteFails(t *testing.T) {
	orders := &failingStatusStore{OrderStore: memory.NewOrderStore()}
	ledger := memory.NewStockLedger()
	uc := NewLifecycleUsecase(orders, ledger, memory.NewCouponStore(), false)

	ledger.Seed("seeds-1", 0)
	require.NoError(t, orders.Create(context.Background(), &domain.Order{
		ID:     "o1",
		UserID: "u1",
		Status: domain.OrderStatusPending,
		Items:  []domain.OrderItem{{ProductID: "seeds-1", Quantity: 3}},
	}))

	_, restores, err := uc.UpdateStatus(context.Background(), "o1", domain.OrderStatusCancelled)
	require.Error(t, err)
	assert.Nil(t, restores)

	assert.Equal(t, 0, ledger.Stock("seeds-1"), "no restore without a persisted transition")
	stored, gerr := orders.GetByID(context.Background(), "o1")
	require.NoError(t, gerr)
	assert.Equal(t, domain.OrderStatusPending, stored.Status)
}

func TestCancelCouponReleasePolicy(t *testing.T) {
	seed := func(t *testing.T, f *lifecycleFixture) {
		c := validCoupon()
		c.UsageCount = 1
		require.NoError(t, f.coupons.Create(context.Background(), c))
		f.seedOrder(t, &domain.Order{
			ID:         "o1",
			UserID:     "u1",
			Status:     domain.OrderStatusPending,
			CouponCode: c.Code,
		})
	}

	t.Run("disabled keeps the redemption", func(t *testing.T) {
		f := newLifecycleFixture(t, false)
		seed(t, f)

		_, _, err := f.uc.UpdateStatus(context.Background(), "o1", domain.OrderStatusCancelled)
		require.NoError(t, err)

		c, cerr := f.coupons.GetByCode(context.Background(), "SAVE20")
		require.NoError(t, cerr)
		assert.Equal(t, 1, c.UsageCount)
	})

	t.Run("enabled releases the redemption", func(t *testing.T) {
		f := newLifecycleFixture(t, true)
		seed(t, f)

		_, _, err := f.uc.UpdateStatus(context.Background(), "o1", domain.OrderStatusCancelled)
		require.NoError(t, err)

		c, cerr := f.coupons.GetByCode(context.Background(), "SAVE20")
		require.NoError(t, cerr)
		assert.Equal(t, 0, c.UsageCount)
	})
}

func TestOrderStatusTerminal(t *testing.T) {
	assert.True(t, domain.OrderStatusDelivered.IsTerminal())
	assert.True(t, domain.OrderStatusCancelled.IsTerminal())
	assert.True(t, domain.OrderStatusRefunded.IsTerminal())
	assert.False(t, domain.OrderStatusPending.IsTerminal())
	assert.False(t, domain.OrderStatusShipped.IsTerminal())
}
