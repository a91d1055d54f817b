package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/neomercado/api/internal/domain"
	"github.com/neomercado/api/internal/gateways"
	"github.com/neomercado/api/internal/platform/httpx"
	"github.com/neomercado/api/internal/services"
)

const maxCheckoutRequestBody = 16 * 1024

// CheckoutHandlersDeps lists the dependencies required by CheckoutHandlers.
type CheckoutHandlersDeps struct {
	Checkout       *services.CheckoutService
	LimitPerMinute int
	Clock          func() time.Time
}

// CheckoutHandlers exposes the order placement endpoint.
type CheckoutHandlers struct {
	checkout *services.CheckoutService
	limiter  rateLimiter
}

// NewCheckoutHandlers constructs checkout handlers with per-IP rate limiting.
func NewCheckoutHandlers(deps CheckoutHandlersDeps) *CheckoutHandlers {
	return &CheckoutHandlers{
		checkout: deps.Checkout,
		limiter:  newRateLimiter(deps.LimitPerMinute, time.Minute, deps.Clock),
	}
}

// Routes registers checkout endpoints under the provided router.
func (h *CheckoutHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/checkout", h.create)
}

type checkoutItemRequest struct {
	ID    int64   `json:"id"`
	Title string  `json:"title"`
	Price float64 `json:"price"`
	Qty   int64   `json:"qty"`
}

type checkoutShippingRequest struct {
	Address map[string]any `json:"address"`
	Price   float64        `json:"price"`
	Label   string         `json:"label"`
}

type checkoutCardRequest struct {
	Number      string `json:"number"`
	HolderName  string `json:"holderName"`
	ExpiryMonth string `json:"expiryMonth"`
	ExpiryYear  string `json:"expiryYear"`
	CVV         string `json:"cvv"`
}

type checkoutRequest struct {
	Email    string                   `json:"email"`
	Name     string                   `json:"name"`
	Phone    string                   `json:"phone"`
	CPFCNPJ  string                   `json:"cpfCnpj"`
	Method   string                   `json:"method"`
	Provider string                   `json:"provider"`
	Coupon   string                   `json:"coupon"`
	Items    []checkoutItemRequest    `json:"items"`
	Shipping *checkoutShippingRequest `json:"shipping"`
	Card     *checkoutCardRequest     `json:"card"`
}

type checkoutPixResponse struct {
	Payload      string `json:"payload,omitempty"`
	EncodedImage string `json:"encodedImage,omitempty"`
}

type checkoutResponse struct {
	OrderCode string               `json:"orderCode"`
	PaymentID string               `json:"paymentId"`
	Status    string               `json:"status"`
	Amount    float64              `json:"amount"`
	URL       string               `json:"url,omitempty"`
	DueDate   string               `json:"dueDate,omitempty"`
	Pix       *checkoutPixResponse `json:"pix,omitempty"`
	BoletoURL string               `json:"boletoUrl,omitempty"`
}

func (h *CheckoutHandlers) create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.checkout == nil {
		httpx.WriteError(ctx, w, httpx.NewError("checkout_unavailable", "checkout service unavailable", http.StatusServiceUnavailable))
		return
	}
	if !allowRequest(w, r, h.limiter, "checkout") {
		return
	}

	body, err := readLimitedBody(r, maxCheckoutRequestBody)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, errBodyTooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), status))
		return
	}

	var req checkoutRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body must be valid JSON", http.StatusBadRequest))
		return
	}

	method, ok := domain.ParsePaymentMethod(req.Method)
	if !ok {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "unknown payment method", http.StatusBadRequest))
		return
	}

	items := make([]domain.OrderItem, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, domain.OrderItem{
			ProductID:      item.ID,
			Title:          strings.TrimSpace(item.Title),
			UnitPriceCents: reaisToCents(item.Price),
			Quantity:       item.Qty,
		})
	}

	input := services.CheckoutInput{
		Customer: domain.Customer{
			Name:    strings.TrimSpace(req.Name),
			Email:   strings.TrimSpace(req.Email),
			Phone:   strings.TrimSpace(req.Phone),
			CPFCNPJ: strings.TrimSpace(req.CPFCNPJ),
		},
		Items:      items,
		Method:     method,
		Provider:   strings.TrimSpace(req.Provider),
		CouponCode: strings.TrimSpace(req.Coupon),
	}
	if req.Shipping != nil {
		input.Shipping = domain.Shipping{
			Label:      strings.TrimSpace(req.Shipping.Label),
			PriceCents: reaisToCents(req.Shipping.Price),
			Address:    req.Shipping.Address,
		}
	}
	if req.Card != nil {
		input.Card = &gateways.CardData{
			HolderName:  strings.TrimSpace(req.Card.HolderName),
			Number:      strings.TrimSpace(req.Card.Number),
			ExpiryMonth: strings.TrimSpace(req.Card.ExpiryMonth),
			ExpiryYear:  strings.TrimSpace(req.Card.ExpiryYear),
			CCV:         strings.TrimSpace(req.Card.CVV),

			HolderEmail:   input.Customer.Email,
			HolderCPFCNPJ: input.Customer.CPFCNPJ,
			HolderPhone:   input.Customer.Phone,
		}
		if req.Shipping != nil {
			input.Card.HolderPostalCode = addressString(req.Shipping.Address, "zipCode", "cep")
			input.Card.HolderAddressNum = addressString(req.Shipping.Address, "number")
		}
	}

	output, err := h.checkout.Checkout(ctx, input)
	if err != nil {
		h.writeCheckoutError(w, r, err)
		return
	}

	resp := checkoutResponse{
		OrderCode: output.Order.Code,
		PaymentID: output.Order.ExternalPaymentID,
		Status:    string(output.Order.Status),
		Amount:    centsToReais(output.Order.AmountCents),
		URL:       output.Order.PaymentURL,
		BoletoURL: output.BoletoURL,
	}
	if output.DueDate != nil {
		resp.DueDate = output.DueDate.Format("2006-01-02")
	}
	if output.PixPayload != "" || output.PixQRCode != "" {
		resp.Pix = &checkoutPixResponse{
			Payload:      output.PixPayload,
			EncodedImage: output.PixQRCode,
		}
	}

	writeJSONResponse(w, http.StatusOK, resp)
}

func (h *CheckoutHandlers) writeCheckoutError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	switch {
	case errors.Is(err, services.ErrCheckoutInvalid):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrProductUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("product_unavailable", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrInsufficientStock):
		httpx.WriteError(ctx, w, httpx.NewError("insufficient_stock", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrPaymentFailed):
		httpx.WriteError(ctx, w, httpx.NewError("payment_failed", "payment could not be created", http.StatusBadGateway))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("internal_error", "checkout failed", http.StatusInternalServerError))
	}
}

func addressString(address map[string]any, keys ...string) string {
	for _, key := range keys {
		if value, ok := address[key].(string); ok && strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value)
		}
	}
	return ""
}
