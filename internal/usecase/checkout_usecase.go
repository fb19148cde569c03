package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"agrimart-backend/internal/domain"
	"agrimart-backend/pkg/logger"

	"github.com/google/uuid"
)

// CheckoutItem is one cart line as submitted by the checkout controller.
type CheckoutItem struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// CheckoutUsecase turns a cart into a committed order with all-or-nothing
// stock reservation. It is the only component that performs compensation:
// lower layers report failures and never roll back each other's state.
//
// Reservation is sequential in input order with reverse-order compensating
// restores on failure. No two stock locks are ever held at once by one
// attempt, so there is no lock-ordering problem and unrelated checkouts never
// serialize against each other.
type CheckoutUsecase struct {
	ledger   domain.StockLedger
	products domain.ProductStore
	coupons  domain.CouponStore
	orders   domain.OrderStore
	pricing  *PriceSummaryBuilder
	now      func() time.Time
}

func NewCheckoutUsecase(
	ledger domain.StockLedger,
	products domain.ProductStore,
	coupons domain.CouponStore,
	orders domain.OrderStore,
	pricing *PriceSummaryBuilder,
) *CheckoutUsecase {
	return &CheckoutUsecase{
		ledger:   ledger,
		products: products,
		coupons:  coupons,
		orders:   orders,
		pricing:  pricing,
		now:      time.Now,
	}
}

// CouponPreview is the result of applying a coupon to a cart without
// committing anything.
type CouponPreview struct {
	Valid   bool                `json:"valid"`
	Code    string              `json:"code"`
	Reason  domain.CouponReason `json:"reason,omitempty"`
	Message string              `json:"message,omitempty"`
	Summary domain.PriceSummary `json:"summary"`
}

// PreviewCoupon prices a cart with a coupon applied, reserving nothing and
// redeeming nothing. The storefront uses it for the "apply coupon" box.
func (u *CheckoutUsecase) PreviewCoupon(ctx context.Context, items []CheckoutItem, couponCode string) (*CouponPreview, error) {
	priced, err := u.priceItems(ctx, items)
	if err != nil {
		return nil, err
	}

	code := domain.NormalizeCouponCode(couponCode)
	coupon, err := u.coupons.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, domain.ErrCouponNotFound) {
			return &CouponPreview{Code: code, Reason: domain.CouponReasonNotFound, Message: "coupon code not found"}, nil
		}
		return nil, fmt.Errorf("load coupon %s: %w", code, err)
	}

	summary, err := u.pricing.Build(priced, coupon, u.now())
	if err != nil {
		var couponErr *domain.InvalidCouponError
		if errors.As(err, &couponErr) {
			return &CouponPreview{Code: code, Reason: couponErr.Reason, Message: couponErr.Message}, nil
		}
		return nil, err
	}

	return &CouponPreview{Valid: true, Code: code, Summary: summary}, nil
}

// priceItems snapshots unit prices for a cart without touching stock.
func (u *CheckoutUsecase) priceItems(ctx context.Context, items []CheckoutItem) ([]domain.OrderItem, error) {
	if len(items) == 0 {
		return nil, &domain.ValidationError{Field: "items", Message: "order must contain at least one item"}
	}

	priced := make([]domain.OrderItem, 0, len(items))
	for _, item := range items {
		if item.Quantity < 1 {
			return nil, &domain.ValidationError{Field: "quantity", Message: fmt.Sprintf("quantity for product %s must be positive", item.ProductID)}
		}
		product, err := u.products.GetByID(ctx, item.ProductID)
		if err != nil {
			if errors.Is(err, domain.ErrProductNotFound) {
				return nil, &domain.ValidationError{Field: "productId", Message: fmt.Sprintf("product %s not found", item.ProductID)}
			}
			return nil, fmt.Errorf("load product %s: %w", item.ProductID, err)
		}
		priced = append(priced, domain.OrderItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: product.Price,
		})
	}
	return priced, nil
}

// CreateOrder reserves stock for every line item, prices the order (validating
// and redeeming the coupon when one is supplied) and persists it in PENDING
// status. Exactly one of a committed order or a typed error is returned; any
// failure after the first reservation unwinds through compensating restores,
// so no partial order is ever observable.
func (u *CheckoutUsecase) CreateOrder(ctx context.Context, userID string, items []CheckoutItem, couponCode string) (*domain.Order, error) {
	if len(items) == 0 {
		return nil, &domain.ValidationError{Field: "items", Message: "order must contain at least one item"}
	}
	for _, item := range items {
		if item.ProductID == "" {
			return nil, &domain.ValidationError{Field: "productId", Message: "product id is required"}
		}
		if item.Quantity < 1 {
			return nil, &domain.ValidationError{Field: "quantity", Message: fmt.Sprintf("quantity for product %s must be positive", item.ProductID)}
		}
	}

	orderID := uuid.New().String()
	log := logger.Get().With().Str("order_id", orderID).Str("user_id", userID).Logger()

	// Reserve in input order, remembering each success so a later failure can
	// be compensated in reverse order.
	reserved := make([]domain.OrderItem, 0, len(items))
	rollback := func() {
		for i := len(reserved) - 1; i >= 0; i-- {
			item := reserved[i]
			if _, err := u.ledger.Restore(ctx, item.ProductID, item.Quantity); err != nil {
				log.Error().Err(err).Str("product_id", item.ProductID).Int("quantity", item.Quantity).Msg("Compensating restore failed")
			}
		}
	}

	for _, item := range items {
		product, err := u.products.GetByID(ctx, item.ProductID)
		if err != nil {
			rollback()
			if errors.Is(err, domain.ErrProductNotFound) {
				return nil, &domain.ValidationError{Field: "productId", Message: fmt.Sprintf("product %s not found", item.ProductID)}
			}
			return nil, fmt.Errorf("load product %s: %w", item.ProductID, err)
		}

		if _, err := u.ledger.Decrement(ctx, item.ProductID, item.Quantity); err != nil {
			rollback()
			var stockErr *domain.InsufficientStockError
			if errors.As(err, &stockErr) {
				log.Info().Str("product_id", item.ProductID).Int("requested", stockErr.Requested).Int("available", stockErr.Available).Msg("Checkout rejected: out of stock")
				return nil, stockErr
			}
			return nil, fmt.Errorf("reserve stock for product %s: %w", item.ProductID, err)
		}

		reserved = append(reserved, domain.OrderItem{
			ID:        uuid.New().String(),
			OrderID:   orderID,
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: product.Price,
		})
	}

	// A coupon failure past this point must never leave stock reserved.
	var coupon *domain.Coupon
	code := domain.NormalizeCouponCode(couponCode)
	if code != "" {
		c, err := u.coupons.GetByCode(ctx, code)
		if err != nil {
			rollback()
			if errors.Is(err, domain.ErrCouponNotFound) {
				return nil, &domain.InvalidCouponError{Code: code, Reason: domain.CouponReasonNotFound, Message: "coupon code not found"}
			}
			return nil, fmt.Errorf("load coupon %s: %w", code, err)
		}
		coupon = c
	}

	summary, err := u.pricing.Build(reserved, coupon, u.now())
	if err != nil {
		rollback()
		return nil, err
	}

	redeemed := false
	if coupon != nil {
		if err := u.coupons.Redeem(ctx, code); err != nil {
			rollback()
			var couponErr *domain.InvalidCouponError
			if errors.As(err, &couponErr) {
				// Lost the race for the last unit of a limited coupon.
				return nil, couponErr
			}
			return nil, fmt.Errorf("redeem coupon %s: %w", code, err)
		}
		redeemed = true
	}

	order := &domain.Order{
		ID:       orderID,
		UserID:   userID,
		Status:   domain.OrderStatusPending,
		Items:    reserved,
		Subtotal: summary.Subtotal,
		Discount: summary.Discount,
		Shipping: summary.Shipping,
		Tax:      summary.Tax,
		Total:    summary.Total,
	}
	if redeemed {
		order.CouponCode = code
	}

	if err := u.orders.Create(ctx, order); err != nil {
		// Unwind everything: the guarantee is no stock lost and no order row
		// written when persistence fails.
		if redeemed {
			if relErr := u.coupons.Release(ctx, code); relErr != nil {
				log.Error().Err(relErr).Str("coupon", code).Msg("Coupon release failed during unwind")
			}
		}
		rollback()
		return nil, fmt.Errorf("persist order: %w", err)
	}

	log.Info().Int("items", len(order.Items)).Str("total", order.Total.StringFixed(2)).Str("coupon", order.CouponCode).Msg("Order created")
	return order, nil
}
