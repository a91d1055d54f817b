package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/neomercado/api/internal/domain"
)

// RepositoryError classifies persistence failures without leaking backend details.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// IsNotFound reports whether err represents a missing record.
func IsNotFound(err error) bool {
	var repoErr RepositoryError
	return errors.As(err, &repoErr) && repoErr.IsNotFound()
}

// IsConflict reports whether err represents a state conflict.
func IsConflict(err error) bool {
	var repoErr RepositoryError
	return errors.As(err, &repoErr) && repoErr.IsConflict()
}

// IsUnavailable reports whether err represents a transient backend outage.
func IsUnavailable(err error) bool {
	var repoErr RepositoryError
	return errors.As(err, &repoErr) && repoErr.IsUnavailable()
}

// OrderRepository persists orders and applies guarded status transitions.
type OrderRepository interface {
	// Insert stores a new order and fills in the backend identifier.
	Insert(ctx context.Context, order *domain.Order) error
	// FindByCode looks an order up by its public code.
	FindByCode(ctx context.Context, code string) (domain.Order, error)
	// FindByExternalPaymentID looks an order up by the gateway payment id.
	FindByExternalPaymentID(ctx context.Context, externalID string) (domain.Order, error)
	// UpdateStatus applies current → target if the status machine accepts it.
	// It returns the stored order and whether a transition actually happened:
	// a same-status update is a successful no-op, a rejected transition is a
	// conflict error.
	UpdateStatus(ctx context.Context, id string, target domain.OrderStatus, paidAt *time.Time) (domain.Order, bool, error)
}

// ProductRepository exposes the catalog fields the order path depends on.
type ProductRepository interface {
	// FindByIDs fetches products in one batch; missing ids are simply absent
	// from the result.
	FindByIDs(ctx context.Context, ids []int64) ([]domain.Product, error)
	// UpdateStock overwrites the stored stock counter.
	UpdateStock(ctx context.Context, id int64, stock int64) error
}

// CouponRepository resolves discount codes at checkout time.
type CouponRepository interface {
	FindByCode(ctx context.Context, code string) (domain.Coupon, error)
}
