package gateways

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/neomercado/api/internal/domain"
)

// Logger defines the logging contract for gateway operations.
type Logger func(ctx context.Context, event string, fields map[string]any)

var (
	// ErrUnsupportedGateway is returned when the registry cannot locate a gateway.
	ErrUnsupportedGateway = errors.New("gateways: unsupported gateway")
	// ErrInvalidSignature is returned when a webhook signature check fails.
	ErrInvalidSignature = errors.New("gateways: invalid webhook signature")
)

// CardData carries one-time card details for card payments. It is never
// persisted.
type CardData struct {
	HolderName  string
	Number      string
	ExpiryMonth string
	ExpiryYear  string
	CCV         string

	// Holder billing details some acquirers require.
	HolderEmail      string
	HolderCPFCNPJ    string
	HolderPostalCode string
	HolderAddressNum string
	HolderPhone      string
	RemoteIP         string
}

// PaymentRequest captures the payload required to create a gateway charge.
type PaymentRequest struct {
	OrderCode   string
	Customer    domain.Customer
	Items       []domain.OrderItem
	Method      domain.PaymentMethod
	AmountCents int64
	Card        *CardData
	Metadata    map[string]string
}

// PaymentResult normalises gateway specific charge details.
type PaymentResult struct {
	ExternalID string
	Status     domain.OrderStatus
	PaymentURL string
	PixPayload string
	PixQRCode  string
	BoletoURL  string
	DueDate    *time.Time
}

// WebhookEvent is the normalised outcome of a gateway notification.
// ExternalID correlates by the gateway payment id; OrderCode is a fallback
// correlation for gateways whose notifications carry the order reference
// instead.
type WebhookEvent struct {
	ExternalID string
	OrderCode  string
	EventName  string
	Status     domain.OrderStatus
}

// Gateway defines the contract payment provider adapters implement.
type Gateway interface {
	Name() string
	CreatePayment(ctx context.Context, req PaymentRequest) (PaymentResult, error)
	// VerifyWebhook authenticates a raw notification. Adapters without a
	// configured secret accept every payload.
	VerifyWebhook(header http.Header, body []byte) error
	// ParseWebhook normalises a verified notification body.
	ParseWebhook(ctx context.Context, body []byte) (WebhookEvent, error)
}

// Registry resolves gateway adapters by name.
type Registry struct {
	gateways    map[string]Gateway
	defaultName string
}

// NewRegistry constructs a Registry over the supplied gateways.
func NewRegistry(defaultName string, gateways ...Gateway) (*Registry, error) {
	if len(gateways) == 0 {
		return nil, errors.New("gateways: at least one gateway is required")
	}

	byName := make(map[string]Gateway, len(gateways))
	for _, gateway := range gateways {
		if gateway == nil {
			return nil, errors.New("gateways: nil gateway registration")
		}
		name := strings.ToLower(strings.TrimSpace(gateway.Name()))
		if name == "" {
			return nil, errors.New("gateways: gateway with empty name")
		}
		if _, exists := byName[name]; exists {
			return nil, fmt.Errorf("gateways: duplicate registration for %q", name)
		}
		byName[name] = gateway
	}

	def := strings.ToLower(strings.TrimSpace(defaultName))
	if def == "" && len(byName) == 1 {
		for name := range byName {
			def = name
		}
	}
	if _, ok := byName[def]; !ok {
		return nil, fmt.Errorf("gateways: default gateway %q is not registered", defaultName)
	}

	return &Registry{gateways: byName, defaultName: def}, nil
}

// Resolve returns the gateway registered under name, or the default when name
// is empty.
func (r *Registry) Resolve(name string) (Gateway, error) {
	if r == nil || len(r.gateways) == 0 {
		return nil, ErrUnsupportedGateway
	}
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		key = r.defaultName
	}
	gateway, ok := r.gateways[key]
	if !ok {
		return nil, ErrUnsupportedGateway
	}
	return gateway, nil
}

// Names returns the registered gateway names.
func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	names := make([]string, 0, len(r.gateways))
	for name := range r.gateways {
		names = append(names, name)
	}
	return names
}
