package v1

import (
	"net/http"
	"strconv"

	"agrimart-backend/internal/domain"
	"agrimart-backend/internal/usecase"
	"agrimart-backend/pkg/utils"

	"github.com/google/uuid"
)

type AdminCouponHandler struct {
	couponUC *usecase.CouponUsecase
}

func NewAdminCouponHandler(uc *usecase.CouponUsecase) *AdminCouponHandler {
	return &AdminCouponHandler{couponUC: uc}
}

func (h *AdminCouponHandler) CreateCoupon(w http.ResponseWriter, r *http.Request) {
	var req usecase.CouponRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request")
		return
	}

	coupon, err := h.couponUC.CreateCoupon(r.Context(), req)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	utils.WriteJSON(w, http.StatusCreated, coupon)
}

func (h *AdminCouponHandler) UpdateCoupon(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid coupon ID")
		return
	}

	var req usecase.CouponRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request")
		return
	}

	if err := h.couponUC.UpdateCoupon(r.Context(), id, req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (h *AdminCouponHandler) ListCoupons(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	coupons, total, err := h.couponUC.ListCoupons(r.Context(), limit, offset)
	if err != nil {
		utils.WriteError(w, http.StatusInternalServerError, "Failed to list coupons")
		return
	}

	utils.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"coupons": coupons,
		"total":   total,
	})
}

func (h *AdminCouponHandler) DeleteCoupon(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid coupon ID")
		return
	}

	if err := h.couponUC.DeleteCoupon(r.Context(), id); err != nil {
		if err == domain.ErrCouponNotFound {
			utils.WriteError(w, http.StatusNotFound, "Coupon not found")
			return
		}
		utils.WriteError(w, http.StatusInternalServerError, "Failed to delete coupon")
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
