package domain

import (
	"slices"
	"strings"
	"time"
)

// OrderStatus enumerates the settlement lifecycle of an order.
type OrderStatus string

const (
	// OrderStatusPending indicates the order awaits gateway settlement.
	OrderStatusPending OrderStatus = "pending"
	// OrderStatusPaid indicates the gateway confirmed payment. Terminal.
	OrderStatusPaid OrderStatus = "paid"
	// OrderStatusOverdue indicates the payment passed its due date; a late
	// payment or cancellation may still follow.
	OrderStatusOverdue OrderStatus = "overdue"
	// OrderStatusCanceled indicates the payment was canceled or refunded. Terminal.
	OrderStatusCanceled OrderStatus = "canceled"
)

var orderStateTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending: {OrderStatusPaid, OrderStatusOverdue, OrderStatusCanceled},
	OrderStatusOverdue: {OrderStatusPaid, OrderStatusCanceled},
}

// ParseOrderStatus normalises a status string into the internal domain.
func ParseOrderStatus(value string) (OrderStatus, bool) {
	switch OrderStatus(strings.ToLower(strings.TrimSpace(value))) {
	case OrderStatusPending:
		return OrderStatusPending, true
	case OrderStatusPaid:
		return OrderStatusPaid, true
	case OrderStatusOverdue:
		return OrderStatusOverdue, true
	case OrderStatusCanceled:
		return OrderStatusCanceled, true
	}
	return "", false
}

// IsTerminal reports whether no further transitions are accepted from the status.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusPaid || s == OrderStatusCanceled
}

// CanTransition reports whether the status machine accepts current → target.
// A same-status transition is always accepted; callers treat it as a no-op.
func CanTransition(current, target OrderStatus) bool {
	if current == target {
		return true
	}
	return slices.Contains(orderStateTransitions[current], target)
}

// PaymentMethod enumerates the checkout payment methods offered to shoppers.
type PaymentMethod string

const (
	// PaymentMethodPix settles instantly via a PIX QR payload.
	PaymentMethodPix PaymentMethod = "pix"
	// PaymentMethodBoleto settles via a bank slip with a due date.
	PaymentMethodBoleto PaymentMethod = "boleto"
	// PaymentMethodCreditCard settles via one-time card data.
	PaymentMethodCreditCard PaymentMethod = "credit_card"
	// PaymentMethodDebitCard settles via one-time card data.
	PaymentMethodDebitCard PaymentMethod = "debit_card"
)

// ParsePaymentMethod normalises a method string.
func ParsePaymentMethod(value string) (PaymentMethod, bool) {
	switch PaymentMethod(strings.ToLower(strings.TrimSpace(value))) {
	case PaymentMethodPix:
		return PaymentMethodPix, true
	case PaymentMethodBoleto:
		return PaymentMethodBoleto, true
	case PaymentMethodCreditCard:
		return PaymentMethodCreditCard, true
	case PaymentMethodDebitCard:
		return PaymentMethodDebitCard, true
	}
	return "", false
}

// IsCard reports whether the method carries one-time card data.
func (m PaymentMethod) IsCard() bool {
	return m == PaymentMethodCreditCard || m == PaymentMethodDebitCard
}

// Customer carries the contact details attached to an order.
type Customer struct {
	Name    string
	Email   string
	Phone   string
	CPFCNPJ string
}

// OrderItem is a line item with a unit-price snapshot taken at checkout;
// later catalog price changes never affect a placed order.
type OrderItem struct {
	ProductID      int64
	Title          string
	UnitPriceCents int64
	Quantity       int64
}

// TotalCents returns the line total.
func (i OrderItem) TotalCents() int64 {
	return i.UnitPriceCents * i.Quantity
}

// Shipping captures the selected shipping option and destination.
type Shipping struct {
	Label      string
	PriceCents int64
	Address    map[string]any
}

// Order represents one checkout attempt and its settlement lifecycle.
// Code is the human-facing public identifier; ExternalPaymentID correlates
// asynchronous gateway webhooks and is assigned exactly once at creation.
type Order struct {
	ID                string
	Code              string
	ExternalPaymentID string
	Customer          Customer
	Items             []OrderItem
	Shipping          Shipping
	Method            PaymentMethod
	Provider          string
	AmountCents       int64
	Status            OrderStatus
	PaymentURL        string
	CreatedAt         time.Time
	PaidAt            *time.Time
}

// Subtotal sums the line totals, excluding shipping and discounts.
func (o Order) Subtotal() int64 {
	var total int64
	for _, item := range o.Items {
		total += item.TotalCents()
	}
	return total
}

// Product mirrors the two catalog fields the order path depends on.
type Product struct {
	ID     int64
	Title  string
	Stock  int64
	Active bool
}

// CouponType distinguishes percentage from fixed-amount discounts.
type CouponType string

const (
	// CouponTypePercent discounts a percentage of the subtotal.
	CouponTypePercent CouponType = "percent"
	// CouponTypeFixed discounts a fixed amount.
	CouponTypeFixed CouponType = "fixed"
)

// Coupon is a discount code resolved at checkout time.
type Coupon struct {
	Code           string
	Active         bool
	StartsAt       *time.Time
	EndsAt         *time.Time
	MinAmountCents int64
	Type           CouponType
	Value          int64
	FreeShipping   bool
}

// ActiveAt reports whether the coupon window covers the given instant.
func (c Coupon) ActiveAt(now time.Time) bool {
	if !c.Active {
		return false
	}
	if c.StartsAt != nil && now.Before(*c.StartsAt) {
		return false
	}
	if c.EndsAt != nil && now.After(*c.EndsAt) {
		return false
	}
	return true
}
