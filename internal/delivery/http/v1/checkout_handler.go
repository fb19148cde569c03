package v1

import (
	"errors"
	"net/http"

	"agrimart-backend/internal/domain"
	"agrimart-backend/internal/usecase"
	"agrimart-backend/pkg/utils"
)

// CheckoutHandler exposes the order commit engine over HTTP. All business
// rules live in the usecase layer; this handler only validates request shape
// and maps typed errors to status codes.
type CheckoutHandler struct {
	checkoutUC      *usecase.CheckoutUsecase
	maxCartQuantity int
}

func NewCheckoutHandler(uc *usecase.CheckoutUsecase, maxCartQuantity int) *CheckoutHandler {
	return &CheckoutHandler{
		checkoutUC:      uc,
		maxCartQuantity: maxCartQuantity,
	}
}

type checkoutReq struct {
	Items      []usecase.CheckoutItem `json:"items"`
	CouponCode string                 `json:"couponCode,omitempty"`
}

func (h *CheckoutHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	user, ok := r.Context().Value(domain.UserContextKey).(*domain.User)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req checkoutReq
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request")
		return
	}

	for _, item := range req.Items {
		if item.Quantity > h.maxCartQuantity {
			utils.WriteError(w, http.StatusBadRequest, "Quantity exceeds maximum limit")
			return
		}
	}

	order, err := h.checkoutUC.CreateOrder(r.Context(), user.ID, req.Items, req.CouponCode)
	if err != nil {
		writeOrderError(w, err)
		return
	}

	utils.WriteJSON(w, http.StatusCreated, order)
}

type previewCouponReq struct {
	Items      []usecase.CheckoutItem `json:"items"`
	CouponCode string                 `json:"couponCode"`
}

func (h *CheckoutHandler) PreviewCoupon(w http.ResponseWriter, r *http.Request) {
	var req previewCouponReq
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request")
		return
	}

	preview, err := h.checkoutUC.PreviewCoupon(r.Context(), req.Items, req.CouponCode)
	if err != nil {
		writeOrderError(w, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, preview)
}

// writeOrderError maps the engine's typed errors onto HTTP statuses.
func writeOrderError(w http.ResponseWriter, err error) {
	var (
		stockErr      *domain.InsufficientStockError
		couponErr     *domain.InvalidCouponError
		validationErr *domain.ValidationError
	)
	switch {
	case errors.As(err, &stockErr):
		utils.WriteJSON(w, http.StatusConflict, map[string]interface{}{
			"error":   "out of stock",
			"details": stockErr,
		})
	case errors.As(err, &couponErr):
		utils.WriteJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
			"error":   "invalid coupon",
			"details": couponErr,
		})
	case errors.As(err, &validationErr):
		utils.WriteJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error":   "validation failed",
			"details": validationErr,
		})
	default:
		utils.WriteError(w, http.StatusInternalServerError, "Internal server error")
	}
}
