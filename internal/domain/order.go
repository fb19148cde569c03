package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusConfirmed  OrderStatus = "confirmed"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
	OrderStatusRefunded   OrderStatus = "refunded"
)

// OrderStatuses lists every lifecycle state, for API enums.
var OrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusConfirmed,
	OrderStatusProcessing,
	OrderStatusShipped,
	OrderStatusDelivered,
	OrderStatusCancelled,
	OrderStatusRefunded,
}

// orderTransitions is the forward chain plus cancellation/refund escapes.
// CANCELLED and REFUNDED are reachable from every pre-DELIVERED state only.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:    {OrderStatusConfirmed, OrderStatusCancelled, OrderStatusRefunded},
	OrderStatusConfirmed:  {OrderStatusProcessing, OrderStatusCancelled, OrderStatusRefunded},
	OrderStatusProcessing: {OrderStatusShipped, OrderStatusCancelled, OrderStatusRefunded},
	OrderStatusShipped:    {OrderStatusDelivered, OrderStatusCancelled, OrderStatusRefunded},
	OrderStatusDelivered:  {},
	OrderStatusCancelled:  {},
	OrderStatusRefunded:   {},
}

// CanTransitionTo reports whether the state machine allows moving to next.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is allowed.
func (s OrderStatus) IsTerminal() bool {
	return len(orderTransitions[s]) == 0
}

type Order struct {
	ID         string          `json:"id"`
	UserID     string          `json:"userId"`
	Status     OrderStatus     `json:"status"`
	Items      []OrderItem     `json:"items"`
	Subtotal   decimal.Decimal `json:"subtotal"`
	Discount   decimal.Decimal `json:"discount"`
	Shipping   decimal.Decimal `json:"shipping"`
	Tax        decimal.Decimal `json:"tax"`
	Total      decimal.Decimal `json:"total"`
	CouponCode string          `json:"couponCode,omitempty"`
	CreatedAt  time.Time       `json:"createdAt"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}

type OrderItem struct {
	ID        string          `json:"id"`
	OrderID   string          `json:"orderId"`
	ProductID string          `json:"productId"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"` // price snapshot at reservation time
}

// PriceSummary is the computed money tuple for one order attempt. It is
// ephemeral: it lives on the Order row and is never persisted independently.
type PriceSummary struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Discount decimal.Decimal `json:"discount"`
	Shipping decimal.Decimal `json:"shipping"`
	Tax      decimal.Decimal `json:"tax"`
	Total    decimal.Decimal `json:"total"`
}

// RestoreOutcome records the result of one compensating restore in a batch.
type RestoreOutcome struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
	NewStock  int    `json:"newStock,omitempty"`
	Error     string `json:"error,omitempty"`
}

// BatchRestoreResult collects per-item outcomes of a bulk restore instead of
// aborting the whole batch on the first failure.
type BatchRestoreResult struct {
	Succeeded []RestoreOutcome `json:"succeeded"`
	Failed    []RestoreOutcome `json:"failed"`
}

// OrderStore persists orders. UpdateStatus is a conditional write using the
// same compare-and-verify discipline as stock and coupon counters: the status
// only moves from from to to when the stored status still equals from, so of
// two racing transitions that observed the same state exactly one wins and
// the loser gets *InvalidTransitionError carrying the status that beat it.
type OrderStore interface {
	Create(ctx context.Context, order *Order) error
	GetByID(ctx context.Context, id string) (*Order, error)
	GetByUserID(ctx context.Context, userID string) ([]Order, error)
	UpdateStatus(ctx context.Context, id string, from, to OrderStatus) error
}
