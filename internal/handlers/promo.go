package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/neomercado/api/internal/platform/httpx"
	"github.com/neomercado/api/internal/services"
)

const maxPromoRequestBody = 4 * 1024

// PromoHandlersDeps lists the dependencies required by PromoHandlers.
type PromoHandlersDeps struct {
	Coupons *services.CouponService
}

// PromoHandlers exposes coupon validation for the cart.
type PromoHandlers struct {
	coupons *services.CouponService
}

// NewPromoHandlers constructs promo handlers.
func NewPromoHandlers(deps PromoHandlersDeps) *PromoHandlers {
	return &PromoHandlers{coupons: deps.Coupons}
}

// Routes registers promo endpoints under the provided router.
func (h *PromoHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/promo/apply", h.apply)
}

type promoApplyRequest struct {
	Code          string   `json:"code"`
	Amount        *float64 `json:"amount"`
	ShippingPrice float64  `json:"shippingPrice"`
}

type promoApplyResponse struct {
	Valid        bool    `json:"valid"`
	Code         string  `json:"code,omitempty"`
	Discount     float64 `json:"discount,omitempty"`
	FreeShipping bool    `json:"freeShipping,omitempty"`
	FinalAmount  float64 `json:"finalAmount,omitempty"`
	Message      string  `json:"message"`
}

// apply prices a coupon against a cart subtotal. An unusable code is a 200
// with valid false, matching what the storefront renders inline.
func (h *PromoHandlers) apply(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.coupons == nil {
		httpx.WriteError(ctx, w, httpx.NewError("promo_unavailable", "coupon service unavailable", http.StatusServiceUnavailable))
		return
	}

	body, err := readLimitedBody(r, maxPromoRequestBody)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	var req promoApplyRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body must be valid JSON", http.StatusBadRequest))
		return
	}
	if strings.TrimSpace(req.Code) == "" || req.Amount == nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "code and amount are required", http.StatusBadRequest))
		return
	}

	result, err := h.coupons.Apply(ctx, req.Code, reaisToCents(*req.Amount), reaisToCents(req.ShippingPrice))
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("internal_error", "coupon lookup failed", http.StatusInternalServerError))
		return
	}

	resp := promoApplyResponse{
		Valid:   result.Valid,
		Message: result.Message,
	}
	if result.Valid {
		resp.Code = result.Code
		resp.Discount = centsToReais(result.DiscountCents)
		resp.FreeShipping = result.FreeShipping
		resp.FinalAmount = centsToReais(result.FinalAmountCents)
	}

	writeJSONResponse(w, http.StatusOK, resp)
}
