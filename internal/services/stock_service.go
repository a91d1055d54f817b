package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/neomercado/api/internal/domain"
	"github.com/neomercado/api/internal/repositories"
)

var (
	// ErrInsufficientStock is returned when a line item exceeds the available stock.
	ErrInsufficientStock = errors.New("stock: insufficient stock")
	// ErrProductUnavailable is returned when a line item references a missing
	// or inactive product.
	ErrProductUnavailable = errors.New("stock: product unavailable")
)

// StockServiceDeps lists the dependencies required by StockService.
type StockServiceDeps struct {
	Products repositories.ProductRepository
	Logger   Logger
}

// StockService guards catalog stock around the order lifecycle: availability
// is checked before a charge is created, and counters are decremented once
// when an order settles.
type StockService struct {
	products repositories.ProductRepository
	logger   Logger
}

// NewStockService validates dependencies and constructs a StockService.
func NewStockService(deps StockServiceDeps) (*StockService, error) {
	if deps.Products == nil {
		return nil, errors.New("stock: product repository is required")
	}

	logger := deps.Logger
	if logger == nil {
		logger = noopLogger
	}
	return &StockService{products: deps.Products, logger: logger}, nil
}

// ValidateAvailability checks every line item against the catalog in one
// batch read.
func (s *StockService) ValidateAvailability(ctx context.Context, items []domain.OrderItem) error {
	products, err := s.fetch(ctx, items)
	if err != nil {
		return err
	}

	for _, item := range items {
		product, ok := products[item.ProductID]
		if !ok || !product.Active {
			return fmt.Errorf("%w: product %d", ErrProductUnavailable, item.ProductID)
		}
		if product.Stock < item.Quantity {
			return fmt.Errorf("%w: %s (available %d, requested %d)",
				ErrInsufficientStock, product.Title, product.Stock, item.Quantity)
		}
	}
	return nil
}

// Decrement lowers the stock counters for a settled order, flooring at zero.
// Individual failures are collected so one bad product does not block the
// remaining updates.
func (s *StockService) Decrement(ctx context.Context, items []domain.OrderItem) error {
	products, err := s.fetch(ctx, items)
	if err != nil {
		return err
	}

	var errs []error
	for _, item := range items {
		product, ok := products[item.ProductID]
		if !ok {
			continue
		}
		next := product.Stock - item.Quantity
		if next < 0 {
			next = 0
		}
		if err := s.products.UpdateStock(ctx, item.ProductID, next); err != nil {
			errs = append(errs, fmt.Errorf("stock: update product %d: %w", item.ProductID, err))
			continue
		}
		s.logger(ctx, "stock.decremented", map[string]any{
			"productId": item.ProductID,
			"from":      product.Stock,
			"to":        next,
		})
	}
	return errors.Join(errs...)
}

func (s *StockService) fetch(ctx context.Context, items []domain.OrderItem) (map[int64]domain.Product, error) {
	ids := make([]int64, 0, len(items))
	seen := make(map[int64]struct{}, len(items))
	for _, item := range items {
		if _, dup := seen[item.ProductID]; dup {
			continue
		}
		seen[item.ProductID] = struct{}{}
		ids = append(ids, item.ProductID)
	}

	products, err := s.products.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	byID := make(map[int64]domain.Product, len(products))
	for _, product := range products {
		byID[product.ID] = product
	}
	return byID, nil
}
