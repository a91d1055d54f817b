package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/neomercado/api/internal/domain"
	"github.com/neomercado/api/internal/gateways"
)

var (
	// ErrCheckoutInvalid is returned when the checkout input fails validation.
	ErrCheckoutInvalid = errors.New("checkout: invalid input")
	// ErrPaymentFailed is returned when the gateway rejects the charge.
	ErrPaymentFailed = errors.New("checkout: payment creation failed")
)

// CheckoutInput is the validated shopper request to place an order. The
// total is always recomputed server side from the line items; any aggregate
// amount sent by the client is ignored.
type CheckoutInput struct {
	Customer   domain.Customer
	Items      []domain.OrderItem
	Shipping   domain.Shipping
	Method     domain.PaymentMethod
	Provider   string
	CouponCode string
	Card       *gateways.CardData
}

// CheckoutOutput carries the persisted order plus the payment artifacts the
// storefront renders.
type CheckoutOutput struct {
	Order      domain.Order
	Coupon     CouponResult
	PixPayload string
	PixQRCode  string
	BoletoURL  string
	DueDate    *time.Time
}

// CheckoutServiceDeps lists the dependencies required by CheckoutService.
type CheckoutServiceDeps struct {
	Orders   *OrderService
	Stock    *StockService
	Coupons  *CouponService
	Gateways *gateways.Registry
	Notifier Notifier
	Clock    func() time.Time
	Logger   Logger
}

// CheckoutService orchestrates order placement: stock validation, pricing,
// the gateway charge, persistence, and the confirmation email.
type CheckoutService struct {
	orders   *OrderService
	stock    *StockService
	coupons  *CouponService
	gateways *gateways.Registry
	notifier Notifier
	clock    func() time.Time
	logger   Logger
}

// NewCheckoutService validates dependencies and constructs a CheckoutService.
func NewCheckoutService(deps CheckoutServiceDeps) (*CheckoutService, error) {
	if deps.Orders == nil {
		return nil, errors.New("checkout: order service is required")
	}
	if deps.Stock == nil {
		return nil, errors.New("checkout: stock service is required")
	}
	if deps.Coupons == nil {
		return nil, errors.New("checkout: coupon service is required")
	}
	if deps.Gateways == nil {
		return nil, errors.New("checkout: gateway registry is required")
	}

	logger := deps.Logger
	if logger == nil {
		logger = noopLogger
	}

	return &CheckoutService{
		orders:   deps.Orders,
		stock:    deps.Stock,
		coupons:  deps.Coupons,
		gateways: deps.Gateways,
		notifier: deps.Notifier,
		clock:    normalizeClock(deps.Clock),
		logger:   logger,
	}, nil
}

// Checkout places an order. The flow is stock check, pricing, gateway charge,
// persist, notify; the order is only stored once the gateway accepted the
// charge so every stored order has its external payment id from the start.
func (s *CheckoutService) Checkout(ctx context.Context, input CheckoutInput) (CheckoutOutput, error) {
	if err := validateCheckoutInput(input); err != nil {
		return CheckoutOutput{}, err
	}

	if err := s.stock.ValidateAvailability(ctx, input.Items); err != nil {
		return CheckoutOutput{}, err
	}

	subtotal := lineSubtotal(input.Items)
	shippingCents := input.Shipping.PriceCents

	var coupon CouponResult
	if input.CouponCode != "" {
		var err error
		coupon, err = s.coupons.Apply(ctx, input.CouponCode, subtotal, shippingCents)
		if err != nil {
			return CheckoutOutput{}, err
		}
		if coupon.Valid && coupon.FreeShipping {
			shippingCents = 0
		}
	}

	amount := subtotal - coupon.DiscountCents + shippingCents
	if amount < 0 {
		amount = 0
	}

	gateway, err := s.gateways.Resolve(input.Provider)
	if err != nil {
		return CheckoutOutput{}, fmt.Errorf("%w: unknown provider %q", ErrCheckoutInvalid, input.Provider)
	}

	orderCode := s.orders.NewCode()
	payment, err := gateway.CreatePayment(ctx, gateways.PaymentRequest{
		OrderCode:   orderCode,
		Customer:    input.Customer,
		Items:       input.Items,
		Method:      input.Method,
		AmountCents: amount,
		Card:        input.Card,
	})
	if err != nil {
		s.logger(ctx, "checkout.payment.failed", map[string]any{
			"orderCode": orderCode,
			"provider":  gateway.Name(),
			"error":     err.Error(),
		})
		return CheckoutOutput{}, fmt.Errorf("%w: %v", ErrPaymentFailed, err)
	}

	shipping := input.Shipping
	shipping.PriceCents = shippingCents

	order, err := s.orders.Create(ctx, domain.Order{
		Code:              orderCode,
		ExternalPaymentID: payment.ExternalID,
		Customer:          input.Customer,
		Items:             input.Items,
		Shipping:          shipping,
		Method:            input.Method,
		Provider:          gateway.Name(),
		AmountCents:       amount,
		Status:            payment.Status,
		PaymentURL:        payment.PaymentURL,
	})
	if err != nil {
		return CheckoutOutput{}, err
	}

	// Card charges can settle synchronously; the stock decrement that
	// normally rides the webhook transition happens here instead.
	if order.Status == domain.OrderStatusPaid {
		if err := s.stock.Decrement(ctx, order.Items); err != nil {
			s.logger(ctx, "checkout.stock.decrement_failed", map[string]any{
				"orderCode": order.Code,
				"error":     err.Error(),
			})
		}
	}

	s.notify(ctx, order)

	return CheckoutOutput{
		Order:      order,
		Coupon:     coupon,
		PixPayload: payment.PixPayload,
		PixQRCode:  payment.PixQRCode,
		BoletoURL:  payment.BoletoURL,
		DueDate:    payment.DueDate,
	}, nil
}

func (s *CheckoutService) notify(ctx context.Context, order domain.Order) {
	if s.notifier == nil {
		return
	}
	// Detached so a slow SMTP server never delays the checkout response.
	go func(ctx context.Context) {
		if err := s.notifier.OrderReceived(ctx, order); err != nil {
			s.logger(ctx, "checkout.email.failed", map[string]any{
				"orderCode": order.Code,
				"error":     err.Error(),
			})
		}
	}(context.WithoutCancel(ctx))
}

func validateCheckoutInput(input CheckoutInput) error {
	if strings.TrimSpace(input.Customer.Name) == "" || strings.TrimSpace(input.Customer.Email) == "" {
		return fmt.Errorf("%w: customer name and email are required", ErrCheckoutInvalid)
	}
	if len(input.Items) == 0 {
		return fmt.Errorf("%w: at least one item is required", ErrCheckoutInvalid)
	}
	for _, item := range input.Items {
		if item.ProductID <= 0 || item.Quantity <= 0 || item.UnitPriceCents < 0 {
			return fmt.Errorf("%w: malformed line item", ErrCheckoutInvalid)
		}
	}
	if _, ok := domain.ParsePaymentMethod(string(input.Method)); !ok {
		return fmt.Errorf("%w: unknown payment method", ErrCheckoutInvalid)
	}
	if input.Method.IsCard() && input.Card == nil {
		return fmt.Errorf("%w: card data is required", ErrCheckoutInvalid)
	}
	if input.Shipping.PriceCents < 0 {
		return fmt.Errorf("%w: negative shipping price", ErrCheckoutInvalid)
	}
	return nil
}

func lineSubtotal(items []domain.OrderItem) int64 {
	var total int64
	for _, item := range items {
		total += item.TotalCents()
	}
	return total
}
