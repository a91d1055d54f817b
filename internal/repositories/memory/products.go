package memory

import (
	"context"
	"sync"

	"github.com/neomercado/api/internal/domain"
	"github.com/neomercado/api/internal/repositories"
)

// ProductRepository is an in-memory catalog store guarded by a mutex.
type ProductRepository struct {
	mu       sync.Mutex
	products map[int64]domain.Product
}

// NewProductRepository constructs an in-memory product repository seeded with
// the given products.
func NewProductRepository(products ...domain.Product) *ProductRepository {
	repo := &ProductRepository{products: make(map[int64]domain.Product, len(products))}
	for _, product := range products {
		repo.products[product.ID] = product
	}
	return repo
}

// FindByIDs implements repositories.ProductRepository.
func (r *ProductRepository) FindByIDs(_ context.Context, ids []int64) ([]domain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	found := make([]domain.Product, 0, len(ids))
	for _, id := range ids {
		if product, ok := r.products[id]; ok {
			found = append(found, product)
		}
	}
	return found, nil
}

// UpdateStock implements repositories.ProductRepository.
func (r *ProductRepository) UpdateStock(_ context.Context, id int64, stock int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	product, ok := r.products[id]
	if !ok {
		return repositories.NewNotFound("memory products: id %d not found", id)
	}
	product.Stock = stock
	r.products[id] = product
	return nil
}
