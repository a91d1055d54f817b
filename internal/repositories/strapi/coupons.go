package strapi

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	cms "github.com/neomercado/api/internal/platform/strapi"

	"github.com/neomercado/api/internal/domain"
	"github.com/neomercado/api/internal/repositories"
)

const couponsCollection = "coupons"

// CouponRepository resolves discount codes from CMS documents.
type CouponRepository struct {
	client *cms.Client
}

// NewCouponRepository constructs a CMS backed coupon repository.
func NewCouponRepository(client *cms.Client) (*CouponRepository, error) {
	if client == nil {
		return nil, fmt.Errorf("strapi: client is required")
	}
	return &CouponRepository{client: client}, nil
}

// FindByCode implements repositories.CouponRepository. Codes match
// case-insensitively.
func (r *CouponRepository) FindByCode(ctx context.Context, code string) (domain.Coupon, error) {
	query := url.Values{
		"filters[code][$eqi]":  {strings.TrimSpace(code)},
		"pagination[pageSize]": {"1"},
	}
	docs, err := r.client.Find(ctx, couponsCollection, query)
	if err != nil {
		return domain.Coupon{}, err
	}
	if len(docs) == 0 {
		return domain.Coupon{}, repositories.NewNotFound("strapi coupons: unknown code")
	}
	return couponFromDocument(docs[0]), nil
}
