package usecase

import (
	"context"

	"agrimart-backend/internal/domain"
	"agrimart-backend/pkg/logger"
)

// LifecycleUsecase manages order status transitions after commit. Moving an
// order to CANCELLED or REFUNDED triggers the compensating stock restores for
// every line item; whether the coupon redemption is released as well is a
// deployment policy (releaseCoupon).
type LifecycleUsecase struct {
	orders        domain.OrderStore
	ledger        domain.StockLedger
	coupons       domain.CouponStore
	releaseCoupon bool
}

func NewLifecycleUsecase(orders domain.OrderStore, ledger domain.StockLedger, coupons domain.CouponStore, releaseCoupon bool) *LifecycleUsecase {
	return &LifecycleUsecase{
		orders:        orders,
		ledger:        ledger,
		coupons:       coupons,
		releaseCoupon: releaseCoupon,
	}
}

// UpdateStatus moves an order to the next lifecycle state, enforcing the state
// machine. For CANCELLED and REFUNDED it returns the per-item restore
// outcomes; the batch is not aborted on a failing item, each line is restored
// independently and reported.
func (u *LifecycleUsecase) UpdateStatus(ctx context.Context, orderID string, next domain.OrderStatus) (*domain.Order, *domain.BatchRestoreResult, error) {
	order, err := u.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}

	if !order.Status.CanTransitionTo(next) {
		return nil, nil, &domain.InvalidTransitionError{From: order.Status, To: next}
	}

	// The conditional write decides the race. Of two transitions that both
	// read the same status, one loses here, and only the winner runs the
	// compensating restores below.
	if err := u.orders.UpdateStatus(ctx, orderID, order.Status, next); err != nil {
		return nil, nil, err
	}

	var restores *domain.BatchRestoreResult
	if next == domain.OrderStatusCancelled || next == domain.OrderStatusRefunded {
		restores = u.compensate(ctx, order)
	}

	logger.Get().Info().
		Str("order_id", orderID).
		Str("from", string(order.Status)).
		Str("to", string(next)).
		Msg("Order status updated")

	order.Status = next
	return order, restores, nil
}

// compensate restores stock for every item of an order being cancelled or
// refunded, collecting per-item outcomes, and releases the coupon redemption
// when the policy says so.
func (u *LifecycleUsecase) compensate(ctx context.Context, order *domain.Order) *domain.BatchRestoreResult {
	log := logger.Get().With().Str("order_id", order.ID).Logger()

	result := &domain.BatchRestoreResult{}
	for _, item := range order.Items {
		newStock, err := u.ledger.Restore(ctx, item.ProductID, item.Quantity)
		outcome := domain.RestoreOutcome{ProductID: item.ProductID, Quantity: item.Quantity}
		if err != nil {
			outcome.Error = err.Error()
			result.Failed = append(result.Failed, outcome)
			log.Error().Err(err).Str("product_id", item.ProductID).Msg("Stock restore failed")
			continue
		}
		outcome.NewStock = newStock
		result.Succeeded = append(result.Succeeded, outcome)
	}

	if u.releaseCoupon && order.CouponCode != "" {
		if err := u.coupons.Release(ctx, order.CouponCode); err != nil {
			log.Error().Err(err).Str("coupon", order.CouponCode).Msg("Coupon release failed")
		}
	}

	return result
}
