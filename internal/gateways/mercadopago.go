package gateways

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/neomercado/api/internal/domain"
)

const mercadoPagoBaseURL = "https://api.mercadopago.com"

// MercadoPagoConfig configures the MercadoPago gateway adapter.
type MercadoPagoConfig struct {
	AccessToken   string
	WebhookSecret string
	SuccessURL    string
	FailureURL    string
	HTTPClient    *http.Client
	Logger        Logger
	Clock         func() time.Time
}

// MercadoPago implements the Gateway interface over checkout preferences.
type MercadoPago struct {
	accessToken   string
	webhookSecret string
	successURL    string
	failureURL    string
	http          *http.Client
	logger        Logger
}

// NewMercadoPago constructs a MercadoPago gateway adapter.
func NewMercadoPago(cfg MercadoPagoConfig) (*MercadoPago, error) {
	if strings.TrimSpace(cfg.AccessToken) == "" {
		return nil, errors.New("mercadopago: access token is required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &MercadoPago{
		accessToken:   strings.TrimSpace(cfg.AccessToken),
		webhookSecret: strings.TrimSpace(cfg.WebhookSecret),
		successURL:    strings.TrimSpace(cfg.SuccessURL),
		failureURL:    strings.TrimSpace(cfg.FailureURL),
		http:          httpClient,
		logger:        logger,
	}, nil
}

// Name implements Gateway.
func (m *MercadoPago) Name() string { return "mercadopago" }

type mercadoPagoPreference struct {
	ID        string `json:"id"`
	InitPoint string `json:"init_point"`
}

// CreatePayment implements Gateway. The preference id correlates the order
// until the first payment notification replaces it with the payment id.
func (m *MercadoPago) CreatePayment(ctx context.Context, req PaymentRequest) (PaymentResult, error) {
	if m == nil {
		return PaymentResult{}, errors.New("mercadopago: gateway is nil")
	}

	items := make([]map[string]any, 0, len(req.Items))
	for _, item := range req.Items {
		quantity := item.Quantity
		if quantity < 1 {
			quantity = 1
		}
		items = append(items, map[string]any{
			"title":       item.Title,
			"quantity":    quantity,
			"unit_price":  float64(item.UnitPriceCents) / 100,
			"currency_id": "BRL",
		})
	}
	if len(items) == 0 {
		items = append(items, map[string]any{
			"title":       "Pedido " + req.OrderCode,
			"quantity":    1,
			"unit_price":  float64(req.AmountCents) / 100,
			"currency_id": "BRL",
		})
	}

	payload := map[string]any{
		"items":              items,
		"external_reference": req.OrderCode,
		"payer": map[string]any{
			"name":  req.Customer.Name,
			"email": req.Customer.Email,
		},
	}
	if m.successURL != "" || m.failureURL != "" {
		payload["back_urls"] = map[string]any{
			"success": m.successURL,
			"failure": m.failureURL,
		}
	}

	var preference mercadoPagoPreference
	if err := m.do(ctx, http.MethodPost, "/checkout/preferences", payload, &preference); err != nil {
		return PaymentResult{}, err
	}

	m.logger(ctx, "gateways.mercadopago.preference.created", map[string]any{
		"preferenceId": preference.ID,
		"orderCode":    req.OrderCode,
	})

	return PaymentResult{
		ExternalID: preference.ID,
		Status:     domain.OrderStatusPending,
		PaymentURL: preference.InitPoint,
	}, nil
}

// VerifyWebhook implements Gateway. MercadoPago signs notifications with an
// x-signature header of the form "ts=...,v1=..." where v1 is an HMAC-SHA256
// over a manifest built from the payment id, the request id, and ts.
func (m *MercadoPago) VerifyWebhook(header http.Header, body []byte) error {
	if m.webhookSecret == "" {
		return nil
	}

	signature := strings.TrimSpace(header.Get("X-Signature"))
	if signature == "" {
		return ErrInvalidSignature
	}

	var ts, v1 string
	for _, part := range strings.Split(signature, ",") {
		key, value, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			continue
		}
		switch strings.TrimSpace(key) {
		case "ts":
			ts = strings.TrimSpace(value)
		case "v1":
			v1 = strings.TrimSpace(value)
		}
	}
	if ts == "" || v1 == "" {
		return ErrInvalidSignature
	}

	var notification mercadoPagoWebhookBody
	if err := json.Unmarshal(body, &notification); err != nil {
		return ErrInvalidSignature
	}

	manifest := fmt.Sprintf("id:%s;request-id:%s;ts:%s;",
		strings.ToLower(notification.Data.ID),
		strings.TrimSpace(header.Get("X-Request-Id")),
		ts,
	)

	mac := hmac.New(sha256.New, []byte(m.webhookSecret))
	mac.Write([]byte(manifest))
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(strings.ToLower(v1)), []byte(expected)) {
		return ErrInvalidSignature
	}
	return nil
}

type mercadoPagoWebhookBody struct {
	Type   string `json:"type"`
	Action string `json:"action"`
	Data   struct {
		ID string `json:"id"`
	} `json:"data"`
}

type mercadoPagoPayment struct {
	ID                json.Number `json:"id"`
	Status            string      `json:"status"`
	ExternalReference string      `json:"external_reference"`
}

// ParseWebhook implements Gateway. Payment notifications carry only the
// payment id, so the payment is fetched back to learn its status and the
// order reference.
func (m *MercadoPago) ParseWebhook(ctx context.Context, body []byte) (WebhookEvent, error) {
	var notification mercadoPagoWebhookBody
	if err := json.Unmarshal(body, &notification); err != nil {
		return WebhookEvent{}, fmt.Errorf("mercadopago: malformed webhook body: %w", err)
	}

	event := WebhookEvent{EventName: firstNonEmpty(notification.Action, notification.Type)}
	if notification.Type != "payment" || notification.Data.ID == "" {
		event.Status = domain.OrderStatusPending
		return event, nil
	}

	var payment mercadoPagoPayment
	if err := m.do(ctx, http.MethodGet, "/v1/payments/"+notification.Data.ID, nil, &payment); err != nil {
		return WebhookEvent{}, err
	}

	event.ExternalID = payment.ID.String()
	event.OrderCode = payment.ExternalReference
	event.Status = mapMercadoPagoStatus(payment.Status)
	return event, nil
}

func mapMercadoPagoStatus(status string) domain.OrderStatus {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "approved":
		return domain.OrderStatusPaid
	case "cancelled", "rejected", "refunded", "charged_back":
		return domain.OrderStatusCanceled
	case "expired":
		return domain.OrderStatusOverdue
	default:
		return domain.OrderStatusPending
	}
}

func (m *MercadoPago) do(ctx context.Context, method, path string, payload, out any) error {
	var reader io.Reader
	if payload != nil {
		body, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("mercadopago: encode request: %w", err)
		}
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, mercadoPagoBaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("mercadopago: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+m.accessToken)

	resp, err := m.http.Do(req)
	if err != nil {
		return fmt.Errorf("mercadopago: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("mercadopago: read response: %w", err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("mercadopago: %s %s: status %d: %s", method, path, resp.StatusCode, truncateBody(responseBody))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(responseBody, out); err != nil {
		return fmt.Errorf("mercadopago: decode response: %w", err)
	}
	return nil
}
