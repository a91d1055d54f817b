package strapi

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	cms "github.com/neomercado/api/internal/platform/strapi"

	"github.com/neomercado/api/internal/domain"
	"github.com/neomercado/api/internal/repositories"
)

const ordersCollection = "orders"

// OrderRepository persists orders as CMS documents.
type OrderRepository struct {
	client *cms.Client
}

// NewOrderRepository constructs a CMS backed order repository.
func NewOrderRepository(client *cms.Client) (*OrderRepository, error) {
	if client == nil {
		return nil, fmt.Errorf("strapi: client is required")
	}
	return &OrderRepository{client: client}, nil
}

// Insert implements repositories.OrderRepository.
func (r *OrderRepository) Insert(ctx context.Context, order *domain.Order) error {
	if order == nil {
		return fmt.Errorf("strapi orders: order is required")
	}

	doc, err := r.client.Create(ctx, ordersCollection, orderAttributes(*order))
	if err != nil {
		return err
	}
	order.ID = strconv.FormatInt(doc.ID, 10)
	return nil
}

// FindByCode implements repositories.OrderRepository.
func (r *OrderRepository) FindByCode(ctx context.Context, code string) (domain.Order, error) {
	return r.findOne(ctx, "filters[code][$eq]", code)
}

// FindByExternalPaymentID implements repositories.OrderRepository.
func (r *OrderRepository) FindByExternalPaymentID(ctx context.Context, externalID string) (domain.Order, error) {
	return r.findOne(ctx, "filters[externalPaymentId][$eq]", externalID)
}

func (r *OrderRepository) findOne(ctx context.Context, filter, value string) (domain.Order, error) {
	query := url.Values{
		filter:                 {value},
		"pagination[pageSize]": {"1"},
	}
	docs, err := r.client.Find(ctx, ordersCollection, query)
	if err != nil {
		return domain.Order{}, err
	}
	if len(docs) == 0 {
		return domain.Order{}, repositories.NewNotFound("strapi orders: no match for %s", filter)
	}
	return orderFromDocument(docs[0]), nil
}

// UpdateStatus implements repositories.OrderRepository. The read-modify-write
// is guarded by the status machine; concurrent writers converge because a
// repeated transition resolves to a same-status no-op on retry.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, target domain.OrderStatus, paidAt *time.Time) (domain.Order, bool, error) {
	docID, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return domain.Order{}, false, repositories.NewNotFound("strapi orders: invalid id %q", id)
	}

	doc, err := r.client.Get(ctx, ordersCollection, docID)
	if err != nil {
		return domain.Order{}, false, err
	}
	current := orderFromDocument(doc)

	if current.Status == target {
		return current, false, nil
	}
	if !domain.CanTransition(current.Status, target) {
		return current, false, repositories.NewConflict("strapi orders: transition %s -> %s rejected", current.Status, target)
	}

	data := map[string]any{"status": string(target)}
	if target == domain.OrderStatusPaid && paidAt != nil {
		data["paidAt"] = paidAt.UTC().Format(time.RFC3339)
	}

	updated, err := r.client.Update(ctx, ordersCollection, docID, data)
	if err != nil {
		return domain.Order{}, false, err
	}
	return orderFromDocument(updated), true, nil
}
