package strapi

import (
	"testing"
	"time"

	"github.com/neomercado/api/internal/domain"
	cms "github.com/neomercado/api/internal/platform/strapi"
)

func TestOrderRoundTripThroughAttributes(t *testing.T) {
	paidAt := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	order := domain.Order{
		Code:              "NM-ABC",
		ExternalPaymentID: "pay_1",
		Customer: domain.Customer{
			Name: "Ana Souza", Email: "ana@example.com", Phone: "11999990000", CPFCNPJ: "12345678909",
		},
		Items: []domain.OrderItem{
			{ProductID: 7, Title: "Caneca", UnitPriceCents: 4990, Quantity: 2},
		},
		Shipping: domain.Shipping{
			Label: "PAC", PriceCents: 1500,
			Address: map[string]any{"zipCode": "01310-100"},
		},
		Method:      domain.PaymentMethodPix,
		Provider:    "asaas",
		AmountCents: 11480,
		Status:      domain.OrderStatusPaid,
		PaymentURL:  "https://asaas.test/i/pay_1",
		PaidAt:      &paidAt,
	}

	attrs := orderAttributes(order)
	if attrs["amount"] != 114.80 {
		t.Fatalf("expected amount 114.80, got %v", attrs["amount"])
	}
	if attrs["externalPaymentId"] != "pay_1" {
		t.Fatalf("expected externalPaymentId, got %v", attrs["externalPaymentId"])
	}
	if attrs["paidAt"] != "2025-05-01T12:00:00Z" {
		t.Fatalf("unexpected paidAt %v", attrs["paidAt"])
	}

	// The CMS echoes float-typed JSON back, so normalise the attribute map
	// the way a decode would produce it.
	items := []any{
		map[string]any{"id": float64(7), "title": "Caneca", "price": 49.90, "qty": float64(2)},
	}
	attrs["items"] = items
	attrs["amount"] = 114.80
	attrs["shippingPrice"] = 15.00

	decoded := orderFromDocument(cms.Document{ID: 42, Attributes: attrs})
	if decoded.ID != "42" {
		t.Fatalf("expected id 42, got %q", decoded.ID)
	}
	if decoded.Code != order.Code || decoded.ExternalPaymentID != order.ExternalPaymentID {
		t.Fatalf("identity fields lost: %+v", decoded)
	}
	if decoded.AmountCents != 11480 || decoded.Shipping.PriceCents != 1500 {
		t.Fatalf("money fields lost: amount %d shipping %d", decoded.AmountCents, decoded.Shipping.PriceCents)
	}
	if len(decoded.Items) != 1 || decoded.Items[0].UnitPriceCents != 4990 || decoded.Items[0].Quantity != 2 {
		t.Fatalf("items lost: %+v", decoded.Items)
	}
	if decoded.Status != domain.OrderStatusPaid {
		t.Fatalf("expected paid, got %q", decoded.Status)
	}
	if decoded.PaidAt == nil || !decoded.PaidAt.Equal(paidAt) {
		t.Fatalf("paidAt lost: %v", decoded.PaidAt)
	}
	if decoded.Customer.CPFCNPJ != "12345678909" {
		t.Fatalf("customer document lost: %+v", decoded.Customer)
	}
}

func TestOrderFromDocumentDefaultsStatus(t *testing.T) {
	decoded := orderFromDocument(cms.Document{ID: 1, Attributes: map[string]any{
		"code":   "NM-1",
		"status": "shipped",
	}})
	if decoded.Status != domain.OrderStatusPending {
		t.Fatalf("expected unknown status to default to pending, got %q", decoded.Status)
	}
}

func TestProductFromDocument(t *testing.T) {
	product := productFromDocument(cms.Document{ID: 7, Attributes: map[string]any{
		"title":  "Caneca",
		"stock":  float64(12),
		"active": true,
	}})
	if product.ID != 7 || product.Title != "Caneca" || product.Stock != 12 || !product.Active {
		t.Fatalf("unexpected product %+v", product)
	}
}

func TestCouponFromDocumentPercent(t *testing.T) {
	coupon := couponFromDocument(cms.Document{ID: 1, Attributes: map[string]any{
		"code":         "DEZ10",
		"discountType": "percent",
		"value":        float64(10),
		"minAmount":    50.00,
		"active":       true,
	}})
	if coupon.Type != domain.CouponTypePercent || coupon.Value != 10 {
		t.Fatalf("unexpected coupon %+v", coupon)
	}
	if coupon.MinAmountCents != 5000 {
		t.Fatalf("expected min amount 5000 cents, got %d", coupon.MinAmountCents)
	}
}

func TestCouponFromDocumentFixedConvertsToCents(t *testing.T) {
	coupon := couponFromDocument(cms.Document{ID: 1, Attributes: map[string]any{
		"code":         "MENOS20",
		"discountType": "fixed",
		"value":        20.00,
		"freeShipping": true,
	}})
	if coupon.Type != domain.CouponTypeFixed {
		t.Fatalf("expected fixed type, got %q", coupon.Type)
	}
	if coupon.Value != 2000 {
		t.Fatalf("expected fixed value in cents 2000, got %d", coupon.Value)
	}
	if !coupon.FreeShipping {
		t.Fatal("expected free shipping flag")
	}
}

func TestCouponFromDocumentLegacyTypeField(t *testing.T) {
	coupon := couponFromDocument(cms.Document{ID: 1, Attributes: map[string]any{
		"code":  "VELHO",
		"type":  "fixed",
		"value": 5.00,
	}})
	if coupon.Type != domain.CouponTypeFixed || coupon.Value != 500 {
		t.Fatalf("expected legacy field honoured, got %+v", coupon)
	}
}

func TestMoneyConversionRounds(t *testing.T) {
	if got := reaisToCents(19.99); got != 1999 {
		t.Fatalf("expected 1999, got %d", got)
	}
	if got := reaisToCents(0.1 + 0.2); got != 30 {
		t.Fatalf("expected 30, got %d", got)
	}
	if got := centsToReais(1999); got != 19.99 {
		t.Fatalf("expected 19.99, got %v", got)
	}
}
