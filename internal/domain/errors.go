package domain

import (
	"errors"
	"fmt"
)

// Sentinel lookup errors. Stores return these; usecases translate them into
// the typed errors below where the caller needs structure.
var (
	ErrProductNotFound = errors.New("product not found")
	ErrCouponNotFound  = errors.New("coupon not found")
	ErrOrderNotFound   = errors.New("order not found")
)

// CouponReason is a machine-readable code for why a coupon was rejected.
type CouponReason string

const (
	CouponReasonNotFound    CouponReason = "not-found"
	CouponReasonInactive    CouponReason = "inactive"
	CouponReasonNotYetValid CouponReason = "not-yet-valid"
	CouponReasonExpired     CouponReason = "expired"
	CouponReasonUsageLimit  CouponReason = "usage-limit"
	CouponReasonMinOrder    CouponReason = "min-order"
)

// InsufficientStockError reports a reservation rejected for lack of stock.
// Available is the quantity observed at check time; by the time the caller
// reads it another order may have changed it.
type InsufficientStockError struct {
	ProductID string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: requested %d, available %d", e.ProductID, e.Requested, e.Available)
}

// InvalidCouponError reports a coupon that resolved but failed an eligibility
// rule, or a code that resolved to nothing (CouponReasonNotFound).
type InvalidCouponError struct {
	Code    string
	Reason  CouponReason
	Message string
}

func (e *InvalidCouponError) Error() string {
	return fmt.Sprintf("invalid coupon %s (%s): %s", e.Code, e.Reason, e.Message)
}

// ValidationError reports a malformed request field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
}

// InvalidTransitionError reports an order status change the state machine
// does not allow.
type InvalidTransitionError struct {
	From OrderStatus
	To   OrderStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot transition order from %s to %s", e.From, e.To)
}
