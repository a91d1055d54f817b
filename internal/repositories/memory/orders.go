package memory

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/neomercado/api/internal/domain"
	"github.com/neomercado/api/internal/repositories"
)

// OrderRepository is an in-memory order store guarded by a mutex.
type OrderRepository struct {
	mu     sync.Mutex
	nextID int64
	orders map[string]domain.Order
}

// NewOrderRepository constructs an empty in-memory order repository.
func NewOrderRepository() *OrderRepository {
	return &OrderRepository{
		nextID: 1,
		orders: make(map[string]domain.Order),
	}
}

// Insert implements repositories.OrderRepository.
func (r *OrderRepository) Insert(_ context.Context, order *domain.Order) error {
	if order == nil {
		return repositories.NewConflict("memory orders: order is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	order.ID = strconv.FormatInt(r.nextID, 10)
	r.nextID++
	r.orders[order.ID] = cloneOrder(*order)
	return nil
}

// FindByCode implements repositories.OrderRepository.
func (r *OrderRepository) FindByCode(_ context.Context, code string) (domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, order := range r.orders {
		if order.Code == code {
			return cloneOrder(order), nil
		}
	}
	return domain.Order{}, repositories.NewNotFound("memory orders: code %q not found", code)
}

// FindByExternalPaymentID implements repositories.OrderRepository.
func (r *OrderRepository) FindByExternalPaymentID(_ context.Context, externalID string) (domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, order := range r.orders {
		if order.ExternalPaymentID == externalID && externalID != "" {
			return cloneOrder(order), nil
		}
	}
	return domain.Order{}, repositories.NewNotFound("memory orders: payment id %q not found", externalID)
}

// UpdateStatus implements repositories.OrderRepository.
func (r *OrderRepository) UpdateStatus(_ context.Context, id string, target domain.OrderStatus, paidAt *time.Time) (domain.Order, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.orders[id]
	if !ok {
		return domain.Order{}, false, repositories.NewNotFound("memory orders: id %q not found", id)
	}

	if order.Status == target {
		return cloneOrder(order), false, nil
	}
	if !domain.CanTransition(order.Status, target) {
		return cloneOrder(order), false, repositories.NewConflict("memory orders: transition %s -> %s rejected", order.Status, target)
	}

	order.Status = target
	if target == domain.OrderStatusPaid && paidAt != nil {
		at := paidAt.UTC()
		order.PaidAt = &at
	}
	r.orders[id] = order
	return cloneOrder(order), true, nil
}

func cloneOrder(order domain.Order) domain.Order {
	clone := order
	clone.Items = make([]domain.OrderItem, len(order.Items))
	copy(clone.Items, order.Items)
	if order.PaidAt != nil {
		at := *order.PaidAt
		clone.PaidAt = &at
	}
	if order.Shipping.Address != nil {
		address := make(map[string]any, len(order.Shipping.Address))
		for k, v := range order.Shipping.Address {
			address[k] = v
		}
		clone.Shipping.Address = address
	}
	return clone
}
