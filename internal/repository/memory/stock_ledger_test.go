package memory

import (
	"context"
	"sync"
	"testing"

	"agrimart-backend/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStockLedgerDecrement(t *testing.T) {
	l := NewStockLedger()
	l.Seed("p1", 10)

	newStock, err := l.Decrement(context.Background(), "p1", 4)
	require.NoError(t, err)
	assert.Equal(t, 6, newStock)
	assert.Equal(t, 6, l.Stock("p1"))
}

func TestStockLedgerDecrementToZero(t *testing.T) {
	l := NewStockLedger()
	l.Seed("p1", 4)

	newStock, err := l.Decrement(context.Background(), "p1", 4)
	require.NoError(t, err)
	assert.Equal(t, 0, newStock)
}

func TestStockLedgerInsufficient(t *testing.T) {
	l := NewStockLedger()
	l.Seed("p1", 3)

	_, err := l.Decrement(context.Background(), "p1", 5)

	var stockErr *domain.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, "p1", stockErr.ProductID)
	assert.Equal(t, 5, stockErr.Requested)
	assert.Equal(t, 3, stockErr.Available)
	assert.Equal(t, 3, l.Stock("p1"), "a failed decrement must not mutate")
}

func TestStockLedgerUnknownProductHasZeroStock(t *testing.T) {
	l := NewStockLedger()

	_, err := l.Decrement(context.Background(), "ghost", 1)

	var stockErr *domain.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, 0, stockErr.Available)
}

func TestStockLedgerRestoreIsInverse(t *testing.T) {
	l := NewStockLedger()
	l.Seed("p1", 10)

	_, err := l.Decrement(context.Background(), "p1", 7)
	require.NoError(t, err)

	newStock, err := l.Restore(context.Background(), "p1", 7)
	require.NoError(t, err)
	assert.Equal(t, 10, newStock)
}

func TestStockLedgerConcurrentDecrements(t *testing.T) {
	l := NewStockLedger()
	l.Seed("p1", 100)

	const workers = 50
	var wg sync.WaitGroup
	errCh := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := l.Decrement(context.Background(), "p1", 2)
			errCh <- err
		}()
	}
	wg.Wait()
	close(errCh)

	for err := range errCh {
		assert.NoError(t, err)
	}
	assert.Equal(t, 0, l.Stock("p1"))
}

func TestStockLedgerConcurrentOversubscription(t *testing.T) {
	l := NewStockLedger()
	l.Seed("p1", 10)

	const workers = 25
	var wg sync.WaitGroup
	errCh := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := l.Decrement(context.Background(), "p1", 1)
			errCh <- err
		}()
	}
	wg.Wait()
	close(errCh)

	succeeded := 0
	for err := range errCh {
		if err == nil {
			succeeded++
		} else {
			var stockErr *domain.InsufficientStockError
			require.ErrorAs(t, err, &stockErr)
		}
	}
	assert.Equal(t, 10, succeeded, "exactly the seeded quantity is handed out")
	assert.Equal(t, 0, l.Stock("p1"))
}

func TestStockLedgerConcurrentMixedProducts(t *testing.T) {
	l := NewStockLedger()
	l.Seed("p1", 50)
	l.Seed("p2", 50)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			l.Decrement(context.Background(), "p1", 1)
		}()
		go func() {
			defer wg.Done()
			l.Restore(context.Background(), "p2", 1)
		}()
	}
	wg.Wait()

	assert.Equal(t, 0, l.Stock("p1"))
	assert.Equal(t, 100, l.Stock("p2"))
}
