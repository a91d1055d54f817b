package gateways

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"testing"

	"github.com/neomercado/api/internal/domain"
)

func newTestMercadoPago(t *testing.T, transport roundTripperFunc) *MercadoPago {
	t.Helper()
	gateway, err := NewMercadoPago(MercadoPagoConfig{
		AccessToken: "mp_token",
		SuccessURL:  "https://loja.test/sucesso",
		FailureURL:  "https://loja.test/erro",
		HTTPClient:  &http.Client{Transport: transport},
	})
	if err != nil {
		t.Fatalf("NewMercadoPago: %v", err)
	}
	return gateway
}

func TestMercadoPagoCreatePayment(t *testing.T) {
	var payload map[string]any

	gateway := newTestMercadoPago(t, func(req *http.Request) (*http.Response, error) {
		if req.Header.Get("Authorization") != "Bearer mp_token" {
			t.Fatalf("expected bearer token, got %q", req.Header.Get("Authorization"))
		}
		if req.URL.Path != "/checkout/preferences" {
			t.Fatalf("unexpected path %s", req.URL.Path)
		}
		body, _ := io.ReadAll(req.Body)
		if err := json.Unmarshal(body, &payload); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
		return jsonResponse(http.StatusCreated, `{"id":"pref_1","init_point":"https://mp.test/pay/pref_1"}`), nil
	})

	result, err := gateway.CreatePayment(context.Background(), PaymentRequest{
		OrderCode: "NM-ABC",
		Customer:  domain.Customer{Name: "Ana", Email: "ana@example.com"},
		Items: []domain.OrderItem{
			{Title: "Camiseta", UnitPriceCents: 9990, Quantity: 2},
		},
		AmountCents: 19980,
	})
	if err != nil {
		t.Fatalf("CreatePayment: %v", err)
	}

	if result.ExternalID != "pref_1" {
		t.Fatalf("expected preference id, got %q", result.ExternalID)
	}
	if result.PaymentURL != "https://mp.test/pay/pref_1" {
		t.Fatalf("unexpected payment url %q", result.PaymentURL)
	}
	if result.Status != domain.OrderStatusPending {
		t.Fatalf("expected pending, got %q", result.Status)
	}
	if payload["external_reference"] != "NM-ABC" {
		t.Fatalf("expected external_reference NM-ABC, got %v", payload["external_reference"])
	}
	items, ok := payload["items"].([]any)
	if !ok || len(items) != 1 {
		t.Fatalf("expected 1 preference item, got %v", payload["items"])
	}
}

func TestMercadoPagoVerifyWebhook(t *testing.T) {
	gateway, err := NewMercadoPago(MercadoPagoConfig{AccessToken: "mp_token", WebhookSecret: "mp_secret"})
	if err != nil {
		t.Fatalf("NewMercadoPago: %v", err)
	}

	body := []byte(`{"type":"payment","data":{"id":"12345"}}`)
	manifest := "id:12345;request-id:req-1;ts:1700000000;"
	mac := hmac.New(sha256.New, []byte("mp_secret"))
	mac.Write([]byte(manifest))
	v1 := hex.EncodeToString(mac.Sum(nil))

	header := http.Header{}
	header.Set("X-Signature", "ts=1700000000,v1="+v1)
	header.Set("X-Request-Id", "req-1")

	if err := gateway.VerifyWebhook(header, body); err != nil {
		t.Fatalf("expected valid signature, got %v", err)
	}

	header.Set("X-Signature", "ts=1700000000,v1=deadbeef")
	if err := gateway.VerifyWebhook(header, body); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}

	header.Del("X-Signature")
	if err := gateway.VerifyWebhook(header, body); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature for missing header, got %v", err)
	}
}

func TestMercadoPagoVerifyWebhookWithoutSecret(t *testing.T) {
	gateway, err := NewMercadoPago(MercadoPagoConfig{AccessToken: "mp_token"})
	if err != nil {
		t.Fatalf("NewMercadoPago: %v", err)
	}
	if err := gateway.VerifyWebhook(http.Header{}, []byte("{}")); err != nil {
		t.Fatalf("expected permissive check without secret, got %v", err)
	}
}

func TestMercadoPagoParseWebhookFetchesPayment(t *testing.T) {
	gateway := newTestMercadoPago(t, func(req *http.Request) (*http.Response, error) {
		if req.URL.Path != "/v1/payments/12345" {
			t.Fatalf("unexpected path %s", req.URL.Path)
		}
		return jsonResponse(http.StatusOK, `{"id":12345,"status":"approved","external_reference":"NM-ABC"}`), nil
	})

	event, err := gateway.ParseWebhook(context.Background(), []byte(`{"type":"payment","action":"payment.updated","data":{"id":"12345"}}`))
	if err != nil {
		t.Fatalf("ParseWebhook: %v", err)
	}
	if event.ExternalID != "12345" {
		t.Fatalf("expected external id 12345, got %q", event.ExternalID)
	}
	if event.OrderCode != "NM-ABC" {
		t.Fatalf("expected order code NM-ABC, got %q", event.OrderCode)
	}
	if event.Status != domain.OrderStatusPaid {
		t.Fatalf("expected paid, got %q", event.Status)
	}
	if event.EventName != "payment.updated" {
		t.Fatalf("expected action as event name, got %q", event.EventName)
	}
}

func TestMercadoPagoParseWebhookIgnoresNonPayment(t *testing.T) {
	gateway := newTestMercadoPago(t, func(req *http.Request) (*http.Response, error) {
		t.Fatalf("unexpected fetch for non-payment notification: %s", req.URL.Path)
		return nil, nil
	})

	event, err := gateway.ParseWebhook(context.Background(), []byte(`{"type":"merchant_order","data":{"id":"9"}}`))
	if err != nil {
		t.Fatalf("ParseWebhook: %v", err)
	}
	if event.ExternalID != "" || event.Status != domain.OrderStatusPending {
		t.Fatalf("expected pending event without reference, got %+v", event)
	}
}

func TestMapMercadoPagoStatus(t *testing.T) {
	cases := []struct {
		in   string
		want domain.OrderStatus
	}{
		{"approved", domain.OrderStatusPaid},
		{"cancelled", domain.OrderStatusCanceled},
		{"rejected", domain.OrderStatusCanceled},
		{"refunded", domain.OrderStatusCanceled},
		{"charged_back", domain.OrderStatusCanceled},
		{"expired", domain.OrderStatusOverdue},
		{"in_process", domain.OrderStatusPending},
	}
	for _, tc := range cases {
		if got := mapMercadoPagoStatus(tc.in); got != tc.want {
			t.Fatalf("mapMercadoPagoStatus(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestMercadoPagoParseWebhookMalformedBody(t *testing.T) {
	gateway := newTestMercadoPago(t, nil)
	if _, err := gateway.ParseWebhook(context.Background(), []byte("{")); err == nil {
		t.Fatal("expected error for malformed body")
	}
}
