package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/neomercado/api/internal/platform/httpx"
	"github.com/neomercado/api/internal/services"
)

// OrderHandlersDeps lists the dependencies required by OrderHandlers.
type OrderHandlersDeps struct {
	Orders         *services.OrderService
	LimitPerMinute int
	Clock          func() time.Time
}

// OrderHandlers exposes the public order status poll.
type OrderHandlers struct {
	orders  *services.OrderService
	limiter rateLimiter
}

// NewOrderHandlers constructs order handlers with per-IP rate limiting.
func NewOrderHandlers(deps OrderHandlersDeps) *OrderHandlers {
	return &OrderHandlers{
		orders:  deps.Orders,
		limiter: newRateLimiter(deps.LimitPerMinute, time.Minute, deps.Clock),
	}
}

// Routes registers order endpoints under the provided router.
func (h *OrderHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/orders/status/{code}", h.status)
}

type orderStatusResponse struct {
	Code       string  `json:"code"`
	Status     string  `json:"status"`
	Amount     float64 `json:"amount"`
	Method     string  `json:"method,omitempty"`
	Provider   string  `json:"provider,omitempty"`
	PaymentURL string  `json:"paymentUrl,omitempty"`
	CreatedAt  string  `json:"createdAt,omitempty"`
	PaidAt     string  `json:"paidAt,omitempty"`
}

// status is the poll target the storefront hits while a payment settles. The
// response carries no customer data, so knowing a code only reveals the
// settlement state.
func (h *OrderHandlers) status(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("orders_unavailable", "order lookup unavailable", http.StatusServiceUnavailable))
		return
	}
	if !allowRequest(w, r, h.limiter, "status") {
		return
	}

	order, err := h.orders.FindByCode(ctx, chi.URLParam(r, "code"))
	if err != nil {
		if errors.Is(err, services.ErrOrderNotFound) {
			httpx.WriteError(ctx, w, httpx.NewError("order_not_found", "order not found", http.StatusNotFound))
			return
		}
		httpx.WriteError(ctx, w, httpx.NewError("internal_error", "order lookup failed", http.StatusInternalServerError))
		return
	}

	resp := orderStatusResponse{
		Code:       order.Code,
		Status:     string(order.Status),
		Amount:     centsToReais(order.AmountCents),
		Method:     string(order.Method),
		Provider:   order.Provider,
		PaymentURL: order.PaymentURL,
	}
	if !order.CreatedAt.IsZero() {
		resp.CreatedAt = order.CreatedAt.UTC().Format(time.RFC3339)
	}
	if order.PaidAt != nil {
		resp.PaidAt = order.PaidAt.UTC().Format(time.RFC3339)
	}

	writeJSONResponse(w, http.StatusOK, resp)
}
