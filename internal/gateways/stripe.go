package gateways

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v78"
	stripeclient "github.com/stripe/stripe-go/v78/client"
	"github.com/stripe/stripe-go/v78/webhook"

	"github.com/neomercado/api/internal/domain"
)

type stripeSessionAPI interface {
	New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

// StripeConfig configures the Stripe gateway adapter.
type StripeConfig struct {
	APIKey        string
	WebhookSecret string
	SuccessURL    string
	CancelURL     string
	Logger        Logger
	Clock         func() time.Time
	// Sessions overrides the checkout session API, primarily for tests.
	Sessions stripeSessionAPI
}

// Stripe implements the Gateway interface using Stripe Checkout sessions.
type Stripe struct {
	sessions      stripeSessionAPI
	webhookSecret string
	successURL    string
	cancelURL     string
	logger        Logger
	clock         func() time.Time
}

// NewStripe constructs a Stripe gateway adapter.
func NewStripe(cfg StripeConfig) (*Stripe, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" && cfg.Sessions == nil {
		return nil, errors.New("stripe: api key is required")
	}

	sessions := cfg.Sessions
	if sessions == nil {
		sc := stripeclient.New(apiKey, nil)
		sessions = sc.CheckoutSessions
	}

	logger := cfg.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	return &Stripe{
		sessions:      sessions,
		webhookSecret: strings.TrimSpace(cfg.WebhookSecret),
		successURL:    strings.TrimSpace(cfg.SuccessURL),
		cancelURL:     strings.TrimSpace(cfg.CancelURL),
		logger:        logger,
		clock:         func() time.Time { return clock().UTC() },
	}, nil
}

// Name implements Gateway.
func (s *Stripe) Name() string { return "stripe" }

// CreatePayment implements Gateway by opening a hosted Checkout session.
// Cards settle through the hosted page, so raw card data is never sent here.
func (s *Stripe) CreatePayment(ctx context.Context, req PaymentRequest) (PaymentResult, error) {
	if s == nil {
		return PaymentResult{}, errors.New("stripe: gateway is nil")
	}

	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(s.successURL),
		CancelURL:  stripe.String(s.cancelURL),
	}
	params.Context = ctx
	params.Metadata = map[string]string{"order_code": req.OrderCode}
	for k, v := range req.Metadata {
		params.Metadata[k] = v
	}

	lineItems := make([]*stripe.CheckoutSessionLineItemParams, 0, len(req.Items))
	for _, item := range req.Items {
		quantity := item.Quantity
		if quantity < 1 {
			quantity = 1
		}
		lineItems = append(lineItems, &stripe.CheckoutSessionLineItemParams{
			Quantity: stripe.Int64(quantity),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String("brl"),
				UnitAmount: stripe.Int64(item.UnitPriceCents),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(item.Title),
				},
			},
		})
	}
	if len(lineItems) == 0 {
		lineItems = append(lineItems, &stripe.CheckoutSessionLineItemParams{
			Quantity: stripe.Int64(1),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String("brl"),
				UnitAmount: stripe.Int64(req.AmountCents),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String("Pedido " + req.OrderCode),
				},
			},
		})
	}
	params.LineItems = lineItems

	params.PaymentIntentData = &stripe.CheckoutSessionPaymentIntentDataParams{
		Metadata: map[string]string{"order_code": req.OrderCode},
	}

	session, err := s.sessions.New(params)
	if err != nil {
		return PaymentResult{}, fmt.Errorf("stripe: create checkout session: %w", err)
	}

	externalID := session.ID
	if session.PaymentIntent != nil && session.PaymentIntent.ID != "" {
		externalID = session.PaymentIntent.ID
	}

	s.logger(ctx, "gateways.stripe.session.created", map[string]any{
		"sessionId": session.ID,
		"orderCode": req.OrderCode,
	})

	return PaymentResult{
		ExternalID: externalID,
		Status:     domain.OrderStatusPending,
		PaymentURL: session.URL,
	}, nil
}

// VerifyWebhook implements Gateway via the official signed-event check.
func (s *Stripe) VerifyWebhook(header http.Header, body []byte) error {
	if s.webhookSecret == "" {
		return nil
	}
	signature := header.Get("Stripe-Signature")
	if _, err := webhook.ConstructEvent(body, signature, s.webhookSecret); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return nil
}

type stripeWebhookBody struct {
	Type string `json:"type"`
	Data struct {
		Object struct {
			ID            string `json:"id"`
			PaymentIntent string `json:"payment_intent"`
			PaymentStatus string `json:"payment_status"`
			Metadata      struct {
				OrderCode string `json:"order_code"`
			} `json:"metadata"`
		} `json:"object"`
	} `json:"data"`
}

// ParseWebhook implements Gateway.
func (s *Stripe) ParseWebhook(_ context.Context, body []byte) (WebhookEvent, error) {
	var notification stripeWebhookBody
	if err := json.Unmarshal(body, &notification); err != nil {
		return WebhookEvent{}, fmt.Errorf("stripe: malformed webhook body: %w", err)
	}

	object := notification.Data.Object
	event := WebhookEvent{
		ExternalID: firstNonEmpty(object.PaymentIntent, object.ID),
		OrderCode:  object.Metadata.OrderCode,
		EventName:  notification.Type,
	}

	switch notification.Type {
	case "checkout.session.completed":
		if object.PaymentStatus == "" || object.PaymentStatus == "paid" {
			event.Status = domain.OrderStatusPaid
		} else {
			event.Status = domain.OrderStatusPending
		}
	case "payment_intent.succeeded", "charge.succeeded":
		event.Status = domain.OrderStatusPaid
	case "payment_intent.payment_failed", "payment_intent.canceled", "charge.refunded":
		event.Status = domain.OrderStatusCanceled
	default:
		event.Status = domain.OrderStatusPending
	}
	return event, nil
}
