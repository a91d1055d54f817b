package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/neomercado/api/internal/domain"
	"github.com/neomercado/api/internal/repositories"
)

// CouponResult is the outcome of applying a discount code. An unusable code
// is a regular result with Valid false, not an error; errors are reserved
// for backend failures.
type CouponResult struct {
	Valid            bool
	Message          string
	Code             string
	Type             domain.CouponType
	DiscountCents    int64
	FreeShipping     bool
	FinalAmountCents int64
}

// CouponServiceDeps lists the dependencies required by CouponService.
type CouponServiceDeps struct {
	Coupons repositories.CouponRepository
	Clock   func() time.Time
	Logger  Logger
}

// CouponService resolves and prices discount codes.
type CouponService struct {
	coupons repositories.CouponRepository
	clock   func() time.Time
	logger  Logger
}

// NewCouponService validates dependencies and constructs a CouponService.
func NewCouponService(deps CouponServiceDeps) (*CouponService, error) {
	if deps.Coupons == nil {
		return nil, errors.New("coupons: repository is required")
	}

	logger := deps.Logger
	if logger == nil {
		logger = noopLogger
	}
	return &CouponService{
		coupons: deps.Coupons,
		clock:   normalizeClock(deps.Clock),
		logger:  logger,
	}, nil
}

// Apply prices a coupon against an order subtotal. The discount is clamped to
// the subtotal so the amount never goes negative, and free-shipping coupons
// zero the shipping component of the final amount.
func (s *CouponService) Apply(ctx context.Context, code string, subtotalCents, shippingCents int64) (CouponResult, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return CouponResult{Message: "Cupom inválido"}, nil
	}

	coupon, err := s.coupons.FindByCode(ctx, code)
	if err != nil {
		if repositories.IsNotFound(err) {
			return CouponResult{Message: "Cupom inválido"}, nil
		}
		return CouponResult{}, err
	}

	if !coupon.ActiveAt(s.clock()) {
		return CouponResult{Message: "Cupom expirado"}, nil
	}
	if subtotalCents < coupon.MinAmountCents {
		return CouponResult{Message: "Valor mínimo não atingido"}, nil
	}

	var discount int64
	switch coupon.Type {
	case domain.CouponTypePercent:
		discount = subtotalCents * coupon.Value / 100
	case domain.CouponTypeFixed:
		discount = coupon.Value
	}
	if discount < 0 {
		discount = 0
	}
	if discount > subtotalCents {
		discount = subtotalCents
	}

	finalShipping := shippingCents
	if coupon.FreeShipping {
		finalShipping = 0
	}
	finalAmount := subtotalCents - discount + finalShipping
	if finalAmount < 0 {
		finalAmount = 0
	}

	s.logger(ctx, "coupons.applied", map[string]any{
		"code":     coupon.Code,
		"discount": discount,
	})

	return CouponResult{
		Valid:            true,
		Message:          "Cupom aplicado",
		Code:             coupon.Code,
		Type:             coupon.Type,
		DiscountCents:    discount,
		FreeShipping:     coupon.FreeShipping,
		FinalAmountCents: finalAmount,
	}, nil
}
