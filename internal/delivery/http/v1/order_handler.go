package v1

import (
	"errors"
	"net/http"

	"agrimart-backend/internal/domain"
	"agrimart-backend/internal/usecase"
	"agrimart-backend/pkg/utils"
)

type OrderHandler struct {
	orders      domain.OrderStore
	lifecycleUC *usecase.LifecycleUsecase
}

func NewOrderHandler(orders domain.OrderStore, lifecycleUC *usecase.LifecycleUsecase) *OrderHandler {
	return &OrderHandler{orders: orders, lifecycleUC: lifecycleUC}
}

func (h *OrderHandler) GetMyOrders(w http.ResponseWriter, r *http.Request) {
	user, ok := r.Context().Value(domain.UserContextKey).(*domain.User)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	orders, err := h.orders.GetByUserID(r.Context(), user.ID)
	if err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Failed to load orders")
		return
	}
	utils.WriteJSON(w, http.StatusOK, orders)
}

// CancelOrder lets a customer cancel their own pre-delivery order; stock goes
// back through the compensating restores.
func (h *OrderHandler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	user, ok := r.Context().Value(domain.UserContextKey).(*domain.User)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	orderID := r.PathValue("id")
	order, err := h.orders.GetByID(r.Context(), orderID)
	if err != nil {
		utils.WriteError(w, http.StatusNotFound, "Order not found")
		return
	}
	if order.UserID != user.ID {
		utils.WriteError(w, http.StatusForbidden, "Not your order")
		return
	}

	updated, restores, err := h.lifecycleUC.UpdateStatus(r.Context(), orderID, domain.OrderStatusCancelled)
	if err != nil {
		writeLifecycleError(w, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"order":    updated,
		"restores": restores,
	})
}

type updateStatusReq struct {
	Status domain.OrderStatus `json:"status"`
}

// UpdateStatus is the admin transition endpoint; it drives the full state
// machine including refunds.
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	orderID := r.PathValue("id")

	var req updateStatusReq
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request")
		return
	}

	order, restores, err := h.lifecycleUC.UpdateStatus(r.Context(), orderID, req.Status)
	if err != nil {
		writeLifecycleError(w, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"order":    order,
		"restores": restores,
	})
}

func writeLifecycleError(w http.ResponseWriter, err error) {
	var transitionErr *domain.InvalidTransitionError
	switch {
	case errors.Is(err, domain.ErrOrderNotFound):
		utils.WriteError(w, http.StatusNotFound, "Order not found")
	case errors.As(err, &transitionErr):
		utils.WriteError(w, http.StatusConflict, transitionErr.Error())
	default:
		utils.WriteError(w, http.StatusInternalServerError, "Internal server error")
	}
}
