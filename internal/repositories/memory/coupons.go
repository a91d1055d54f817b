package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/neomercado/api/internal/domain"
	"github.com/neomercado/api/internal/repositories"
)

// CouponRepository is an in-memory coupon store guarded by a mutex.
type CouponRepository struct {
	mu      sync.Mutex
	coupons map[string]domain.Coupon
}

// NewCouponRepository constructs an in-memory coupon repository seeded with
// the given coupons.
func NewCouponRepository(coupons ...domain.Coupon) *CouponRepository {
	repo := &CouponRepository{coupons: make(map[string]domain.Coupon, len(coupons))}
	for _, coupon := range coupons {
		repo.coupons[strings.ToUpper(coupon.Code)] = coupon
	}
	return repo
}

// FindByCode implements repositories.CouponRepository.
func (r *CouponRepository) FindByCode(_ context.Context, code string) (domain.Coupon, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	coupon, ok := r.coupons[strings.ToUpper(strings.TrimSpace(code))]
	if !ok {
		return domain.Coupon{}, repositories.NewNotFound("memory coupons: unknown code")
	}
	return coupon, nil
}
