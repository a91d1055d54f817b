package strapi

import (
	"math"
	"strconv"
	"time"

	cms "github.com/neomercado/api/internal/platform/strapi"

	"github.com/neomercado/api/internal/domain"
)

// Money is stored in the CMS as decimal reais; internally everything is cents.

func centsToReais(cents int64) float64 {
	return float64(cents) / 100
}

func reaisToCents(reais float64) int64 {
	return int64(math.Round(reais * 100))
}

func stringAttr(attrs map[string]any, key string) string {
	if value, ok := attrs[key].(string); ok {
		return value
	}
	return ""
}

func floatAttr(attrs map[string]any, key string) float64 {
	switch value := attrs[key].(type) {
	case float64:
		return value
	case string:
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return 0
}

func intAttr(attrs map[string]any, key string) int64 {
	return int64(floatAttr(attrs, key))
}

func boolAttr(attrs map[string]any, key string) bool {
	value, ok := attrs[key].(bool)
	return ok && value
}

func mapAttr(attrs map[string]any, key string) map[string]any {
	if value, ok := attrs[key].(map[string]any); ok {
		return value
	}
	return nil
}

func timeAttr(attrs map[string]any, key string) *time.Time {
	raw := stringAttr(attrs, key)
	if raw == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02"} {
		if parsed, err := time.Parse(layout, raw); err == nil {
			parsed = parsed.UTC()
			return &parsed
		}
	}
	return nil
}

func orderAttributes(order domain.Order) map[string]any {
	items := make([]map[string]any, len(order.Items))
	for i, item := range order.Items {
		items[i] = map[string]any{
			"id":    item.ProductID,
			"title": item.Title,
			"price": centsToReais(item.UnitPriceCents),
			"qty":   item.Quantity,
		}
	}

	attrs := map[string]any{
		"code":              order.Code,
		"customerName":      order.Customer.Name,
		"customerEmail":     order.Customer.Email,
		"customerPhone":     order.Customer.Phone,
		"customerDocument":  order.Customer.CPFCNPJ,
		"items":             items,
		"amount":            centsToReais(order.AmountCents),
		"shippingPrice":     centsToReais(order.Shipping.PriceCents),
		"shippingLabel":     order.Shipping.Label,
		"address":           order.Shipping.Address,
		"provider":          order.Provider,
		"method":            string(order.Method),
		"externalPaymentId": order.ExternalPaymentID,
		"paymentUrl":        order.PaymentURL,
		"status":            string(order.Status),
	}
	if order.PaidAt != nil {
		attrs["paidAt"] = order.PaidAt.UTC().Format(time.RFC3339)
	}
	return attrs
}

func orderFromDocument(doc cms.Document) domain.Order {
	attrs := doc.Attributes
	if attrs == nil {
		attrs = map[string]any{}
	}

	order := domain.Order{
		ID:                strconv.FormatInt(doc.ID, 10),
		Code:              stringAttr(attrs, "code"),
		ExternalPaymentID: stringAttr(attrs, "externalPaymentId"),
		Customer: domain.Customer{
			Name:    stringAttr(attrs, "customerName"),
			Email:   stringAttr(attrs, "customerEmail"),
			Phone:   stringAttr(attrs, "customerPhone"),
			CPFCNPJ: stringAttr(attrs, "customerDocument"),
		},
		Shipping: domain.Shipping{
			Label:      stringAttr(attrs, "shippingLabel"),
			PriceCents: reaisToCents(floatAttr(attrs, "shippingPrice")),
			Address:    mapAttr(attrs, "address"),
		},
		Method:      domain.PaymentMethod(stringAttr(attrs, "method")),
		Provider:    stringAttr(attrs, "provider"),
		AmountCents: reaisToCents(floatAttr(attrs, "amount")),
		PaymentURL:  stringAttr(attrs, "paymentUrl"),
		PaidAt:      timeAttr(attrs, "paidAt"),
	}

	if status, ok := domain.ParseOrderStatus(stringAttr(attrs, "status")); ok {
		order.Status = status
	} else {
		order.Status = domain.OrderStatusPending
	}

	if created := timeAttr(attrs, "createdAt"); created != nil {
		order.CreatedAt = *created
	}

	if rawItems, ok := attrs["items"].([]any); ok {
		order.Items = make([]domain.OrderItem, 0, len(rawItems))
		for _, raw := range rawItems {
			entry, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			order.Items = append(order.Items, domain.OrderItem{
				ProductID:      intAttr(entry, "id"),
				Title:          stringAttr(entry, "title"),
				UnitPriceCents: reaisToCents(floatAttr(entry, "price")),
				Quantity:       intAttr(entry, "qty"),
			})
		}
	}

	return order
}

func productFromDocument(doc cms.Document) domain.Product {
	attrs := doc.Attributes
	if attrs == nil {
		attrs = map[string]any{}
	}
	return domain.Product{
		ID:     doc.ID,
		Title:  stringAttr(attrs, "title"),
		Stock:  intAttr(attrs, "stock"),
		Active: boolAttr(attrs, "active"),
	}
}

func couponFromDocument(doc cms.Document) domain.Coupon {
	attrs := doc.Attributes
	if attrs == nil {
		attrs = map[string]any{}
	}

	coupon := domain.Coupon{
		Code:           stringAttr(attrs, "code"),
		Active:         boolAttr(attrs, "active"),
		StartsAt:       timeAttr(attrs, "startsAt"),
		EndsAt:         timeAttr(attrs, "endsAt"),
		MinAmountCents: reaisToCents(floatAttr(attrs, "minAmount")),
		FreeShipping:   boolAttr(attrs, "freeShipping"),
	}

	discountType := stringAttr(attrs, "discountType")
	if discountType == "" {
		discountType = stringAttr(attrs, "type")
	}
	switch discountType {
	case "fixed":
		coupon.Type = domain.CouponTypeFixed
		coupon.Value = reaisToCents(floatAttr(attrs, "value"))
	default:
		coupon.Type = domain.CouponTypePercent
		coupon.Value = intAttr(attrs, "value")
	}
	return coupon
}
