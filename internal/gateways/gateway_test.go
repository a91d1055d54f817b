package gateways

import (
	"context"
	"errors"
	"net/http"
	"testing"
)

// stubGateway is a minimal Gateway used to exercise the registry.
type stubGateway struct{ name string }

func (g stubGateway) Name() string { return g.name }
func (g stubGateway) CreatePayment(context.Context, PaymentRequest) (PaymentResult, error) {
	return PaymentResult{}, nil
}
func (g stubGateway) VerifyWebhook(http.Header, []byte) error { return nil }
func (g stubGateway) ParseWebhook(context.Context, []byte) (WebhookEvent, error) {
	return WebhookEvent{}, nil
}

// roundTripperFunc lets tests intercept adapter HTTP calls without a server.
type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) { return f(req) }

func TestRegistryResolveByName(t *testing.T) {
	registry, err := NewRegistry("asaas", stubGateway{name: "asaas"}, stubGateway{name: "stripe"})
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	gateway, err := registry.Resolve("Stripe")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if gateway.Name() != "stripe" {
		t.Fatalf("expected stripe, got %q", gateway.Name())
	}
}

func TestRegistryResolveEmptyUsesDefault(t *testing.T) {
	registry, err := NewRegistry("stripe", stubGateway{name: "asaas"}, stubGateway{name: "stripe"})
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	gateway, err := registry.Resolve("")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if gateway.Name() != "stripe" {
		t.Fatalf("expected default stripe, got %q", gateway.Name())
	}
}

func TestRegistryResolveUnknown(t *testing.T) {
	registry, err := NewRegistry("asaas", stubGateway{name: "asaas"})
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	if _, err := registry.Resolve("pagarme"); !errors.Is(err, ErrUnsupportedGateway) {
		t.Fatalf("expected ErrUnsupportedGateway, got %v", err)
	}
}

func TestRegistrySingleGatewayBecomesDefault(t *testing.T) {
	registry, err := NewRegistry("", stubGateway{name: "asaas"})
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	gateway, err := registry.Resolve("")
	if err != nil || gateway.Name() != "asaas" {
		t.Fatalf("expected lone gateway as default, got %v/%v", gateway, err)
	}
}

func TestRegistryRejectsUnregisteredDefault(t *testing.T) {
	if _, err := NewRegistry("stripe", stubGateway{name: "asaas"}); err == nil {
		t.Fatal("expected error for unregistered default")
	}
}

func TestRegistryRejectsDuplicateNames(t *testing.T) {
	if _, err := NewRegistry("asaas", stubGateway{name: "asaas"}, stubGateway{name: "Asaas"}); err == nil {
		t.Fatal("expected error for duplicate registration")
	}
}
