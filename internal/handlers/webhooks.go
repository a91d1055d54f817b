package handlers

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/neomercado/api/internal/platform/httpx"
	"github.com/neomercado/api/internal/services"
)

const maxWebhookBody = 1 << 20

// WebhookHandlersDeps lists the dependencies required by WebhookHandlers.
type WebhookHandlersDeps struct {
	Reconcile      *services.ReconcileService
	LimitPerMinute int
	Clock          func() time.Time
}

// WebhookHandlers ingests asynchronous payment gateway notifications.
type WebhookHandlers struct {
	reconcile *services.ReconcileService
	limiter   rateLimiter
}

// NewWebhookHandlers constructs webhook handlers with per-IP rate limiting.
func NewWebhookHandlers(deps WebhookHandlersDeps) *WebhookHandlers {
	return &WebhookHandlers{
		reconcile: deps.Reconcile,
		limiter:   newRateLimiter(deps.LimitPerMinute, time.Minute, deps.Clock),
	}
}

// Routes registers webhook endpoints under the provided router.
func (h *WebhookHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/webhook/{gateway}", h.receive)
}

// receive acknowledges a notification with 200 when applied (or already
// applied), 202 when it cannot be matched to an order yet, and an error
// status when the gateway should retry.
func (h *WebhookHandlers) receive(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.reconcile == nil {
		httpx.WriteError(ctx, w, httpx.NewError("webhooks_unavailable", "webhook processing unavailable", http.StatusServiceUnavailable))
		return
	}
	if !allowRequest(w, r, h.limiter, "webhook") {
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "unable to read request body", http.StatusBadRequest))
		return
	}

	gatewayName := chi.URLParam(r, "gateway")
	result, err := h.reconcile.Process(ctx, gatewayName, r.Header, body)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrUnknownGateway):
			httpx.WriteError(ctx, w, httpx.NewError("unknown_gateway", "unknown payment gateway", http.StatusNotFound))
		case errors.Is(err, services.ErrWebhookSignature):
			httpx.WriteError(ctx, w, httpx.NewError("invalid_signature", "webhook signature verification failed", http.StatusUnauthorized))
		case errors.Is(err, services.ErrWebhookMalformed):
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "malformed webhook payload", http.StatusBadRequest))
		default:
			// Retryable: gateways redeliver on 5xx.
			httpx.WriteError(ctx, w, httpx.NewError("internal_error", "webhook processing failed", http.StatusInternalServerError))
		}
		return
	}

	switch result.Outcome {
	case services.OutcomeSkipped:
		writeJSONResponse(w, http.StatusAccepted, map[string]any{
			"ok":      true,
			"skipped": true,
			"reason":  result.Reason,
		})
	default:
		writeJSONResponse(w, http.StatusOK, map[string]any{
			"ok":     true,
			"status": string(result.Order.Status),
		})
	}
}
