package services

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/neomercado/api/internal/domain"
	"github.com/neomercado/api/internal/gateways"
	"github.com/neomercado/api/internal/repositories"
)

// ReconcileOutcome classifies how a gateway notification was handled.
type ReconcileOutcome string

const (
	// OutcomeApplied means the order moved to the notified status.
	OutcomeApplied ReconcileOutcome = "applied"
	// OutcomeNoop means the order was already at (or past) the notified
	// status; duplicate and out-of-order deliveries land here.
	OutcomeNoop ReconcileOutcome = "noop"
	// OutcomeSkipped means the notification was acknowledged without being
	// applied, so the gateway stops retrying; the reason says why.
	OutcomeSkipped ReconcileOutcome = "skipped"
)

// ReconcileResult reports the outcome of processing one notification.
type ReconcileResult struct {
	Outcome ReconcileOutcome
	Reason  string
	Order   domain.Order
}

var (
	// ErrUnknownGateway is returned when the webhook path names a gateway
	// that is not registered.
	ErrUnknownGateway = errors.New("reconcile: unknown gateway")
	// ErrWebhookSignature is returned when the notification fails
	// authentication.
	ErrWebhookSignature = errors.New("reconcile: invalid webhook signature")
	// ErrWebhookMalformed is returned when the notification body cannot be
	// parsed.
	ErrWebhookMalformed = errors.New("reconcile: malformed webhook")
)

// ReconcileServiceDeps lists the dependencies required by ReconcileService.
type ReconcileServiceDeps struct {
	Orders   *OrderService
	Stock    *StockService
	Gateways *gateways.Registry
	Notifier Notifier
	Clock    func() time.Time
	Logger   Logger
}

// ReconcileService ingests asynchronous gateway notifications and settles
// order statuses through the transition machine. Processing is idempotent:
// the same notification delivered twice changes nothing the second time,
// and side effects (stock decrement, settlement email) fire exactly once,
// on the delivery that performed the transition.
type ReconcileService struct {
	orders   *OrderService
	stock    *StockService
	gateways *gateways.Registry
	notifier Notifier
	clock    func() time.Time
	logger   Logger
}

// NewReconcileService validates dependencies and constructs a ReconcileService.
func NewReconcileService(deps ReconcileServiceDeps) (*ReconcileService, error) {
	if deps.Orders == nil {
		return nil, errors.New("reconcile: order service is required")
	}
	if deps.Stock == nil {
		return nil, errors.New("reconcile: stock service is required")
	}
	if deps.Gateways == nil {
		return nil, errors.New("reconcile: gateway registry is required")
	}

	logger := deps.Logger
	if logger == nil {
		logger = noopLogger
	}

	return &ReconcileService{
		orders:   deps.Orders,
		stock:    deps.Stock,
		gateways: deps.Gateways,
		notifier: deps.Notifier,
		clock:    normalizeClock(deps.Clock),
		logger:   logger,
	}, nil
}

// Process handles one raw notification for the named gateway: authenticate,
// parse, locate the order, and apply the status transition.
//
// A notification that cannot be applied yet (no payment id, or the order row
// is not visible yet because the webhook raced checkout persistence) is
// acknowledged as skipped rather than failed; the next gateway retry or the
// shopper's status poll converges the state.
func (s *ReconcileService) Process(ctx context.Context, gatewayName string, header http.Header, body []byte) (ReconcileResult, error) {
	gateway, err := s.gateways.Resolve(gatewayName)
	if err != nil {
		return ReconcileResult{}, ErrUnknownGateway
	}

	if err := gateway.VerifyWebhook(header, body); err != nil {
		s.logger(ctx, "reconcile.signature.rejected", map[string]any{
			"gateway": gateway.Name(),
		})
		return ReconcileResult{}, ErrWebhookSignature
	}

	event, err := gateway.ParseWebhook(ctx, body)
	if err != nil {
		return ReconcileResult{}, errors.Join(ErrWebhookMalformed, err)
	}

	if event.ExternalID == "" && event.OrderCode == "" {
		return ReconcileResult{Outcome: OutcomeSkipped, Reason: "no payment reference"}, nil
	}

	order, err := s.orders.Resolve(ctx, event.ExternalID, event.OrderCode)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			// The notification can arrive before checkout finished
			// persisting the order.
			return ReconcileResult{Outcome: OutcomeSkipped, Reason: "order not found yet"}, nil
		}
		return ReconcileResult{}, err
	}

	if event.Status == domain.OrderStatusPending || event.Status == order.Status {
		return ReconcileResult{Outcome: OutcomeNoop, Order: order}, nil
	}

	updated, changed, err := s.orders.ApplyStatus(ctx, order, event.Status)
	if err != nil {
		if repositories.IsConflict(err) {
			// A terminal order never moves again; acknowledge so the
			// gateway stops retrying.
			s.logger(ctx, "reconcile.transition.rejected", map[string]any{
				"orderCode": order.Code,
				"from":      string(order.Status),
				"to":        string(event.Status),
				"event":     event.EventName,
			})
			return ReconcileResult{Outcome: OutcomeNoop, Order: order}, nil
		}
		return ReconcileResult{}, err
	}
	if !changed {
		return ReconcileResult{Outcome: OutcomeNoop, Order: updated}, nil
	}

	if updated.Status == domain.OrderStatusPaid {
		if err := s.stock.Decrement(ctx, updated.Items); err != nil {
			s.logger(ctx, "reconcile.stock.decrement_failed", map[string]any{
				"orderCode": updated.Code,
				"error":     err.Error(),
			})
		}
		s.notifyPaid(ctx, updated)
	}

	s.logger(ctx, "reconcile.applied", map[string]any{
		"gateway":   gateway.Name(),
		"orderCode": updated.Code,
		"event":     event.EventName,
		"status":    string(updated.Status),
	})
	return ReconcileResult{Outcome: OutcomeApplied, Order: updated}, nil
}

func (s *ReconcileService) notifyPaid(ctx context.Context, order domain.Order) {
	if s.notifier == nil {
		return
	}
	go func(ctx context.Context) {
		if err := s.notifier.PaymentConfirmed(ctx, order); err != nil {
			s.logger(ctx, "reconcile.email.failed", map[string]any{
				"orderCode": order.Code,
				"error":     err.Error(),
			})
		}
	}(context.WithoutCancel(ctx))
}
