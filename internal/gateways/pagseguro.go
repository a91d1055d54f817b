package gateways

import (
	"context"
	"encoding/xml"
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
	pagSeguroSandboxAPI    = "https://ws.sandbox.pagseguro.uol.com.br"
	pagSeguroProductionAPI = "https://ws.pagseguro.uol.com.br"

	pagSeguroSandboxPayURL    = "https://sandbox.pagseguro.uol.com.br/v2/checkout/payment.html?code="
	pagSeguroProductionPayURL = "https://pagseguro.uol.com.br/v2/checkout/payment.html?code="
)

// PagSeguroConfig configures the PagSeguro gateway adapter.
type PagSeguroConfig struct {
	Email       string
	Token       string
	Environment string
	HTTPClient  *http.Client
	Logger      Logger
}

// PagSeguro implements the Gateway interface over the legacy checkout API.
// Notifications are authenticated by fetching the transaction back with the
// account credentials rather than by a signature.
type PagSeguro struct {
	apiBase string
	payURL  string
	email   string
	token   string
	http    *http.Client
	logger  Logger
}

// NewPagSeguro constructs a PagSeguro gateway adapter.
func NewPagSeguro(cfg PagSeguroConfig) (*PagSeguro, error) {
	if strings.TrimSpace(cfg.Email) == "" || strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("pagseguro: email and token are required")
	}

	apiBase := pagSeguroSandboxAPI
	payURL := pagSeguroSandboxPayURL
	if strings.EqualFold(strings.TrimSpace(cfg.Environment), "production") {
		apiBase = pagSeguroProductionAPI
		payURL = pagSeguroProductionPayURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &PagSeguro{
		apiBase: apiBase,
		payURL:  payURL,
		email:   strings.TrimSpace(cfg.Email),
		token:   strings.TrimSpace(cfg.Token),
		http:    httpClient,
		logger:  logger,
	}, nil
}

// Name implements Gateway.
func (p *PagSeguro) Name() string { return "pagseguro" }

type pagSeguroCheckout struct {
	XMLName xml.Name `xml:"checkout"`
	Code    string   `xml:"code"`
}

// CreatePayment implements Gateway. The checkout code doubles as the external
// id until the transaction notification arrives carrying the order reference.
func (p *PagSeguro) CreatePayment(ctx context.Context, req PaymentRequest) (PaymentResult, error) {
	if p == nil {
		return PaymentResult{}, errors.New("pagseguro: gateway is nil")
	}

	form := url.Values{
		"email":         {p.email},
		"token":         {p.token},
		"currency":      {"BRL"},
		"reference":     {req.OrderCode},
		"senderName":    {req.Customer.Name},
		"senderEmail":   {req.Customer.Email},
		"redirectURL":   {""},
		"maxUses":       {"1"},
		"maxAge":        {"86400"},
		"shippingType":  {"3"},
		"extraAmount":   {"0.00"},
		"itemAmount1":   {fmt.Sprintf("%.2f", float64(req.AmountCents)/100)},
		"itemId1":       {req.OrderCode},
		"itemQuantity1": {"1"},
	}
	if len(req.Items) == 1 {
		form.Set("itemDescription1", req.Items[0].Title)
	} else {
		form.Set("itemDescription1", "Pedido "+req.OrderCode)
	}

	endpoint := p.apiBase + "/v2/checkout"
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return PaymentResult{}, fmt.Errorf("pagseguro: build request: %w", err)
	}
	request.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=UTF-8")

	var checkout pagSeguroCheckout
	if err := p.doXML(request, &checkout); err != nil {
		return PaymentResult{}, err
	}
	if checkout.Code == "" {
		return PaymentResult{}, errors.New("pagseguro: checkout response without code")
	}

	p.logger(ctx, "gateways.pagseguro.checkout.created", map[string]any{
		"checkoutCode": checkout.Code,
		"orderCode":    req.OrderCode,
	})

	return PaymentResult{
		ExternalID: checkout.Code,
		Status:     domain.OrderStatusPending,
		PaymentURL: p.payURL + checkout.Code,
	}, nil
}

// VerifyWebhook implements Gateway. Authenticity comes from the credentialed
// fetch in ParseWebhook, so the raw notification is accepted here.
func (p *PagSeguro) VerifyWebhook(http.Header, []byte) error {
	return nil
}

type pagSeguroTransaction struct {
	XMLName   xml.Name `xml:"transaction"`
	Code      string   `xml:"code"`
	Reference string   `xml:"reference"`
	Status    int      `xml:"status"`
}

// ParseWebhook implements Gateway. The body is the form-encoded notification
// POST; the transaction is fetched back to learn its status and reference.
func (p *PagSeguro) ParseWebhook(ctx context.Context, body []byte) (WebhookEvent, error) {
	values, err := url.ParseQuery(strings.TrimSpace(string(body)))
	if err != nil {
		return WebhookEvent{}, fmt.Errorf("pagseguro: malformed notification body: %w", err)
	}

	notificationCode := strings.TrimSpace(values.Get("notificationCode"))
	event := WebhookEvent{EventName: firstNonEmpty(values.Get("notificationType"), "transaction")}
	if notificationCode == "" {
		event.Status = domain.OrderStatusPending
		return event, nil
	}

	endpoint := fmt.Sprintf("%s/v3/transactions/notifications/%s?email=%s&token=%s",
		p.apiBase,
		url.PathEscape(notificationCode),
		url.QueryEscape(p.email),
		url.QueryEscape(p.token),
	)
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return WebhookEvent{}, fmt.Errorf("pagseguro: build request: %w", err)
	}

	var transaction pagSeguroTransaction
	if err := p.doXML(request, &transaction); err != nil {
		return WebhookEvent{}, err
	}

	event.ExternalID = transaction.Code
	event.OrderCode = transaction.Reference
	event.Status = mapPagSeguroStatus(transaction.Status)
	return event, nil
}

// Transaction status codes per the legacy API: 1 awaiting payment,
// 2 in analysis, 3 paid, 4 available, 5 in dispute, 6 returned, 7 canceled.
func mapPagSeguroStatus(status int) domain.OrderStatus {
	switch status {
	case 3, 4:
		return domain.OrderStatusPaid
	case 6, 7:
		return domain.OrderStatusCanceled
	default:
		return domain.OrderStatusPending
	}
}

func (p *PagSeguro) doXML(request *http.Request, out any) error {
	resp, err := p.http.Do(request)
	if err != nil {
		return fmt.Errorf("pagseguro: %s %s: %w", request.Method, request.URL.Path, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("pagseguro: read response: %w", err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("pagseguro: %s %s: status %d: %s",
			request.Method, request.URL.Path, resp.StatusCode, truncateBody(payload))
	}
	if err := xml.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("pagseguro: decode response: %w", err)
	}
	return nil
}
