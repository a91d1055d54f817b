package services

import (
	"context"
	"time"

	"github.com/neomercado/api/internal/domain"
)

// Logger defines the logging contract shared by the services.
type Logger func(ctx context.Context, event string, fields map[string]any)

// Notifier sends transactional mail for order lifecycle events. Failures are
// logged and never surface to the caller.
type Notifier interface {
	OrderReceived(ctx context.Context, order domain.Order) error
	PaymentConfirmed(ctx context.Context, order domain.Order) error
}

func noopLogger(context.Context, string, map[string]any) {}

func normalizeClock(clock func() time.Time) func() time.Time {
	if clock == nil {
		clock = time.Now
	}
	return func() time.Time { return clock().UTC() }
}
