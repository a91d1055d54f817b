package gateways

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/neomercado/api/internal/domain"
)

const (
	asaasSandboxURL    = "https://sandbox.asaas.com/api/v3"
	asaasProductionURL = "https://api.asaas.com/v3"

	boletoDueDays = 2
)

// Headers consulted for the shared-secret webhook check, in order. Asaas
// echoes the configured token in asaas-access-token; the remaining names
// cover proxy rewrites and HMAC style integrations.
var asaasSignatureHeaders = []string{
	"Asaas-Access-Token",
	"X-Asaas-Signature",
	"Asaas-Signature",
	"X-Hub-Signature-256",
	"X-Hub-Signature",
	"X-Signature",
}

// AsaasConfig configures the Asaas gateway adapter.
type AsaasConfig struct {
	APIKey        string
	Environment   string
	WebhookSecret string
	HTTPClient    *http.Client
	Logger        Logger
	Clock         func() time.Time
}

// Asaas implements the Gateway interface over the Asaas REST API.
type Asaas struct {
	baseURL       string
	apiKey        string
	webhookSecret string
	http          *http.Client
	logger        Logger
	clock         func() time.Time
}

// NewAsaas constructs an Asaas gateway adapter.
func NewAsaas(cfg AsaasConfig) (*Asaas, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("asaas: api key is required")
	}

	baseURL := asaasSandboxURL
	if strings.EqualFold(strings.TrimSpace(cfg.Environment), "production") {
		baseURL = asaasProductionURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	return &Asaas{
		baseURL:       baseURL,
		apiKey:        strings.TrimSpace(cfg.APIKey),
		webhookSecret: strings.TrimSpace(cfg.WebhookSecret),
		http:          httpClient,
		logger:        logger,
		clock:         func() time.Time { return clock().UTC() },
	}, nil
}

// Name implements Gateway.
func (a *Asaas) Name() string { return "asaas" }

type asaasCustomer struct {
	ID string `json:"id"`
}

type asaasPayment struct {
	ID                  string `json:"id"`
	Status              string `json:"status"`
	InvoiceURL          string `json:"invoiceUrl"`
	BankSlipURL         string `json:"bankSlipUrl"`
	DueDate             string `json:"dueDate"`
	PixCopyPaste        string `json:"pixCopyPaste"`
	PixQRCode           string `json:"pixQrCode"`
	PixEncodedImage     string `json:"pixEncodedImage"`
	IdentificationField string `json:"identificationField"`
}

// CreatePayment implements Gateway. Customers are deduplicated by email
// before the charge is created.
func (a *Asaas) CreatePayment(ctx context.Context, req PaymentRequest) (PaymentResult, error) {
	if a == nil {
		return PaymentResult{}, errors.New("asaas: gateway is nil")
	}

	customer, err := a.getOrCreateCustomer(ctx, req.Customer)
	if err != nil {
		return PaymentResult{}, err
	}

	payload := map[string]any{
		"customer":          customer.ID,
		"value":             float64(req.AmountCents) / 100,
		"billingType":       asaasBillingType(req.Method),
		"description":       "Pedido NeoMercado - " + req.OrderCode,
		"externalReference": req.OrderCode,
	}

	switch {
	case req.Method == domain.PaymentMethodBoleto:
		payload["dueDate"] = a.clock().AddDate(0, 0, boletoDueDays).Format("2006-01-02")
	case req.Method.IsCard():
		if req.Card == nil {
			return PaymentResult{}, errors.New("asaas: card data is required")
		}
		payload["creditCard"] = map[string]any{
			"holderName":  req.Card.HolderName,
			"number":      req.Card.Number,
			"expiryMonth": req.Card.ExpiryMonth,
			"expiryYear":  req.Card.ExpiryYear,
			"ccv":         req.Card.CCV,
		}
		holder := map[string]any{
			"name":          req.Customer.Name,
			"email":         req.Customer.Email,
			"cpfCnpj":       req.Card.HolderCPFCNPJ,
			"postalCode":    req.Card.HolderPostalCode,
			"addressNumber": req.Card.HolderAddressNum,
			"phone":         req.Card.HolderPhone,
			"mobilePhone":   req.Card.HolderPhone,
		}
		if holder["cpfCnpj"] == "" {
			holder["cpfCnpj"] = req.Customer.CPFCNPJ
		}
		payload["creditCardHolderInfo"] = holder
		if req.Card.RemoteIP != "" {
			payload["remoteIp"] = req.Card.RemoteIP
		}
	}

	var payment asaasPayment
	if err := a.post(ctx, "/payments", payload, &payment); err != nil {
		return PaymentResult{}, err
	}

	a.logger(ctx, "gateways.asaas.payment.created", map[string]any{
		"paymentId": payment.ID,
		"orderCode": req.OrderCode,
		"status":    payment.Status,
	})

	result := PaymentResult{
		ExternalID: payment.ID,
		Status:     mapAsaasStatus(payment.Status),
		PaymentURL: firstNonEmpty(payment.InvoiceURL, payment.BankSlipURL),
		PixPayload: firstNonEmpty(payment.PixCopyPaste, payment.PixQRCode),
		PixQRCode:  payment.PixEncodedImage,
		BoletoURL:  payment.BankSlipURL,
	}
	if due, err := time.Parse("2006-01-02", payment.DueDate); err == nil {
		result.DueDate = &due
	}
	return result, nil
}

func (a *Asaas) getOrCreateCustomer(ctx context.Context, customer domain.Customer) (asaasCustomer, error) {
	var listing struct {
		Data []asaasCustomer `json:"data"`
	}
	path := "/customers?email=" + url.QueryEscape(customer.Email)
	if err := a.get(ctx, path, &listing); err != nil {
		return asaasCustomer{}, err
	}
	if len(listing.Data) > 0 && listing.Data[0].ID != "" {
		return listing.Data[0], nil
	}

	payload := map[string]any{
		"name":        customer.Name,
		"email":       customer.Email,
		"mobilePhone": customer.Phone,
		"cpfCnpj":     customer.CPFCNPJ,
	}
	var created asaasCustomer
	if err := a.post(ctx, "/customers", payload, &created); err != nil {
		return asaasCustomer{}, err
	}
	return created, nil
}

// VerifyWebhook implements Gateway.
func (a *Asaas) VerifyWebhook(header http.Header, body []byte) error {
	return verifySharedSecret(header, body, a.webhookSecret, asaasSignatureHeaders)
}

type asaasWebhookBody struct {
	Event   string `json:"event"`
	Payment struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	} `json:"payment"`
}

// ParseWebhook implements Gateway. The event name decides the target status;
// when the name is unknown, the embedded payment status is the fallback.
func (a *Asaas) ParseWebhook(_ context.Context, body []byte) (WebhookEvent, error) {
	var notification asaasWebhookBody
	if err := json.Unmarshal(body, &notification); err != nil {
		return WebhookEvent{}, fmt.Errorf("asaas: malformed webhook body: %w", err)
	}

	event := WebhookEvent{
		ExternalID: notification.Payment.ID,
		EventName:  notification.Event,
	}

	switch strings.ToUpper(strings.TrimSpace(notification.Event)) {
	case "PAYMENT_CONFIRMED", "PAYMENT_RECEIVED":
		event.Status = domain.OrderStatusPaid
	case "PAYMENT_REFUNDED", "PAYMENT_DELETED":
		event.Status = domain.OrderStatusCanceled
	case "PAYMENT_OVERDUE":
		event.Status = domain.OrderStatusOverdue
	default:
		event.Status = mapAsaasStatus(notification.Payment.Status)
	}
	return event, nil
}

func mapAsaasStatus(status string) domain.OrderStatus {
	switch strings.ToUpper(strings.TrimSpace(status)) {
	case "CONFIRMED", "RECEIVED":
		return domain.OrderStatusPaid
	case "REFUNDED", "CANCELED":
		return domain.OrderStatusCanceled
	case "OVERDUE":
		return domain.OrderStatusOverdue
	default:
		return domain.OrderStatusPending
	}
}

func asaasBillingType(method domain.PaymentMethod) string {
	switch method {
	case domain.PaymentMethodPix:
		return "PIX"
	case domain.PaymentMethodBoleto:
		return "BOLETO"
	case domain.PaymentMethodCreditCard, domain.PaymentMethodDebitCard:
		return "CREDIT_CARD"
	default:
		return "UNDEFINED"
	}
}

func (a *Asaas) get(ctx context.Context, path string, out any) error {
	return a.do(ctx, http.MethodGet, path, nil, out)
}

func (a *Asaas) post(ctx context.Context, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("asaas: encode request: %w", err)
	}
	return a.do(ctx, http.MethodPost, path, body, out)
}

func (a *Asaas) do(ctx context.Context, method, path string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("asaas: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("access_token", a.apiKey)

	resp, err := a.http.Do(req)
	if err != nil {
		return fmt.Errorf("asaas: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("asaas: read response: %w", err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("asaas: %s %s: status %d: %s", method, path, resp.StatusCode, truncateBody(payload))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("asaas: decode response: %w", err)
	}
	return nil
}

func truncateBody(body []byte) string {
	const limit = 256
	if len(body) > limit {
		body = body[:limit]
	}
	return string(body)
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}
