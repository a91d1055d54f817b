package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/neomercado/api/internal/platform/httpx"
	"github.com/neomercado/api/internal/services"
)

const maxShippingRequestBody = 8 * 1024

// ShippingHandlersDeps lists the dependencies required by ShippingHandlers.
type ShippingHandlersDeps struct {
	Shipping *services.ShippingService
}

// ShippingHandlers exposes the delivery quote and tracking endpoints.
type ShippingHandlers struct {
	shipping *services.ShippingService
}

// NewShippingHandlers constructs shipping handlers.
func NewShippingHandlers(deps ShippingHandlersDeps) *ShippingHandlers {
	return &ShippingHandlers{shipping: deps.Shipping}
}

// Routes registers shipping endpoints under the provided router.
func (h *ShippingHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/shipping/quote", h.quote)
	r.Post("/shipping/track", h.track)
}

type shippingQuoteItem struct {
	ID     int64   `json:"id"`
	Qty    int64   `json:"qty"`
	Weight float64 `json:"weight"`
}

type shippingQuoteRequest struct {
	Items []shippingQuoteItem `json:"items"`
	To    struct {
		Zip string `json:"zip"`
	} `json:"to"`
	Service string `json:"service"`
}

type shippingQuoteResponse struct {
	Price float64 `json:"price"`
	Label string  `json:"label"`
	Days  int     `json:"days"`
}

func (h *ShippingHandlers) quote(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.shipping == nil {
		httpx.WriteError(ctx, w, httpx.NewError("shipping_unavailable", "shipping service unavailable", http.StatusServiceUnavailable))
		return
	}

	body, err := readLimitedBody(r, maxShippingRequestBody)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	var req shippingQuoteRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body must be valid JSON", http.StatusBadRequest))
		return
	}
	if strings.TrimSpace(req.To.Zip) == "" || req.Items == nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "destination zip and items are required", http.StatusBadRequest))
		return
	}

	items := make([]services.ShippingItem, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, services.ShippingItem{
			WeightKg: item.Weight,
			Quantity: item.Qty,
		})
	}

	quote, err := h.shipping.Quote(req.To.Zip, req.Service, items)
	if err != nil {
		if errors.Is(err, services.ErrInvalidDestination) {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "invalid destination zip", http.StatusBadRequest))
			return
		}
		httpx.WriteError(ctx, w, httpx.NewError("internal_error", "shipping quote failed", http.StatusInternalServerError))
		return
	}

	writeJSONResponse(w, http.StatusOK, shippingQuoteResponse{
		Price: centsToReais(quote.PriceCents),
		Label: quote.Label,
		Days:  quote.Days,
	})
}

type shippingTrackRequest struct {
	Code string `json:"code"`
}

type shippingTrackEvent struct {
	Date string `json:"date"`
	Desc string `json:"desc"`
}

type shippingTrackResponse struct {
	Code   string               `json:"code"`
	Status string               `json:"status"`
	Events []shippingTrackEvent `json:"events"`
}

func (h *ShippingHandlers) track(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.shipping == nil {
		httpx.WriteError(ctx, w, httpx.NewError("shipping_unavailable", "shipping service unavailable", http.StatusServiceUnavailable))
		return
	}

	body, err := readLimitedBody(r, maxShippingRequestBody)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	var req shippingTrackRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body must be valid JSON", http.StatusBadRequest))
		return
	}
	if strings.TrimSpace(req.Code) == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "tracking code is required", http.StatusBadRequest))
		return
	}

	result, err := h.shipping.Track(req.Code)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	events := make([]shippingTrackEvent, 0, len(result.Events))
	for _, event := range result.Events {
		events = append(events, shippingTrackEvent{
			Date: event.Date.UTC().Format(time.RFC3339),
			Desc: event.Description,
		})
	}

	writeJSONResponse(w, http.StatusOK, shippingTrackResponse{
		Code:   result.Code,
		Status: result.Status,
		Events: events,
	})
}
