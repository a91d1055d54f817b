package strapi

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	cms "github.com/neomercado/api/internal/platform/strapi"

	"github.com/neomercado/api/internal/domain"
)

const productsCollection = "products"

// ProductRepository reads and adjusts catalog documents.
type ProductRepository struct {
	client *cms.Client
}

// NewProductRepository constructs a CMS backed product repository.
func NewProductRepository(client *cms.Client) (*ProductRepository, error) {
	if client == nil {
		return nil, fmt.Errorf("strapi: client is required")
	}
	return &ProductRepository{client: client}, nil
}

// FindByIDs implements repositories.ProductRepository.
func (r *ProductRepository) FindByIDs(ctx context.Context, ids []int64) ([]domain.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := url.Values{
		"pagination[pageSize]": {strconv.Itoa(len(ids))},
	}
	for i, id := range ids {
		query.Set(fmt.Sprintf("filters[id][$in][%d]", i), strconv.FormatInt(id, 10))
	}

	docs, err := r.client.Find(ctx, productsCollection, query)
	if err != nil {
		return nil, err
	}

	products := make([]domain.Product, 0, len(docs))
	for _, doc := range docs {
		products = append(products, productFromDocument(doc))
	}
	return products, nil
}

// UpdateStock implements repositories.ProductRepository.
func (r *ProductRepository) UpdateStock(ctx context.Context, id int64, stock int64) error {
	_, err := r.client.Update(ctx, productsCollection, id, map[string]any{"stock": stock})
	return err
}
