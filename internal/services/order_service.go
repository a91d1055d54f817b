package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/neomercado/api/internal/domain"
	"github.com/neomercado/api/internal/repositories"
)

// Order codes carry this prefix so shoppers recognise them in email and
// support conversations.
const orderCodePrefix = "NM-"

var (
	// ErrOrderNotFound is returned when no order matches the lookup key.
	ErrOrderNotFound = errors.New("orders: order not found")
	// ErrOrderInvalid is returned when an order fails validation before persistence.
	ErrOrderInvalid = errors.New("orders: invalid order")
)

// OrderServiceDeps lists the dependencies required by OrderService.
type OrderServiceDeps struct {
	Orders repositories.OrderRepository
	NewID  func() string
	Clock  func() time.Time
	Logger Logger
}

// OrderService persists orders and applies guarded status transitions.
type OrderService struct {
	orders repositories.OrderRepository
	newID  func() string
	clock  func() time.Time
	logger Logger
}

// NewOrderService validates dependencies and constructs an OrderService.
func NewOrderService(deps OrderServiceDeps) (*OrderService, error) {
	if deps.Orders == nil {
		return nil, errors.New("orders: repository is required")
	}
	if deps.NewID == nil {
		return nil, errors.New("orders: id generator is required")
	}

	logger := deps.Logger
	if logger == nil {
		logger = noopLogger
	}

	return &OrderService{
		orders: deps.Orders,
		newID:  deps.NewID,
		clock:  normalizeClock(deps.Clock),
		logger: logger,
	}, nil
}

// NewCode mints a fresh public order code.
func (s *OrderService) NewCode() string {
	return orderCodePrefix + strings.ToUpper(s.newID())
}

// Create persists a new order, assigning a code and creation time when absent.
func (s *OrderService) Create(ctx context.Context, order domain.Order) (domain.Order, error) {
	if strings.TrimSpace(order.Customer.Email) == "" {
		return domain.Order{}, ErrOrderInvalid
	}
	if order.Code == "" {
		order.Code = s.NewCode()
	}
	if order.Status == "" {
		order.Status = domain.OrderStatusPending
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = s.clock()
	}

	if err := s.orders.Insert(ctx, &order); err != nil {
		return domain.Order{}, err
	}

	s.logger(ctx, "orders.created", map[string]any{
		"orderId":   order.ID,
		"orderCode": order.Code,
		"provider":  order.Provider,
		"status":    string(order.Status),
	})
	return order, nil
}

// FindByCode returns the order with the given public code.
func (s *OrderService) FindByCode(ctx context.Context, code string) (domain.Order, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return domain.Order{}, ErrOrderNotFound
	}

	order, err := s.orders.FindByCode(ctx, code)
	if err != nil {
		if repositories.IsNotFound(err) {
			return domain.Order{}, ErrOrderNotFound
		}
		return domain.Order{}, err
	}
	return order, nil
}

// Resolve locates the order a gateway notification refers to, preferring the
// gateway payment id and falling back to the order code.
func (s *OrderService) Resolve(ctx context.Context, externalID, orderCode string) (domain.Order, error) {
	if externalID = strings.TrimSpace(externalID); externalID != "" {
		order, err := s.orders.FindByExternalPaymentID(ctx, externalID)
		if err == nil {
			return order, nil
		}
		if !repositories.IsNotFound(err) {
			return domain.Order{}, err
		}
	}
	if orderCode = strings.TrimSpace(orderCode); orderCode != "" {
		return s.FindByCode(ctx, orderCode)
	}
	return domain.Order{}, ErrOrderNotFound
}

// ApplyStatus moves an order towards target through the status machine. It
// reports whether the transition actually happened so side effects run once:
// a repeat delivery resolves to a no-op, and a transition out of a terminal
// state comes back as a conflict from the repository.
func (s *OrderService) ApplyStatus(ctx context.Context, order domain.Order, target domain.OrderStatus) (domain.Order, bool, error) {
	var paidAt *time.Time
	if target == domain.OrderStatusPaid {
		at := s.clock()
		paidAt = &at
	}

	updated, changed, err := s.orders.UpdateStatus(ctx, order.ID, target, paidAt)
	if err != nil {
		if repositories.IsNotFound(err) {
			return domain.Order{}, false, ErrOrderNotFound
		}
		return domain.Order{}, false, err
	}

	if changed {
		s.logger(ctx, "orders.status.updated", map[string]any{
			"orderId":   updated.ID,
			"orderCode": updated.Code,
			"from":      string(order.Status),
			"to":        string(target),
		})
	}
	return updated, changed, nil
}
