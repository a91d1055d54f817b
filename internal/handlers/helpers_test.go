package handlers

import (
	"context"
	"net/http"
	"testing"

	"github.com/neomercado/api/internal/domain"
	"github.com/neomercado/api/internal/gateways"
	"github.com/neomercado/api/internal/repositories/memory"
	"github.com/neomercado/api/internal/services"
)

// testGateway implements gateways.Gateway with scripted responses.
type testGateway struct {
	name       string
	payment    gateways.PaymentResult
	paymentErr error
	verifyErr  error
	event      gateways.WebhookEvent
	parseErr   error
}

func (g *testGateway) Name() string { return g.name }

func (g *testGateway) CreatePayment(context.Context, gateways.PaymentRequest) (gateways.PaymentResult, error) {
	if g.paymentErr != nil {
		return gateways.PaymentResult{}, g.paymentErr
	}
	return g.payment, nil
}

func (g *testGateway) VerifyWebhook(http.Header, []byte) error { return g.verifyErr }

func (g *testGateway) ParseWebhook(context.Context, []byte) (gateways.WebhookEvent, error) {
	if g.parseErr != nil {
		return gateways.WebhookEvent{}, g.parseErr
	}
	return g.event, nil
}

// handlerFixture bundles the services the HTTP tests wire together.
type handlerFixture struct {
	orders    *services.OrderService
	checkout  *services.CheckoutService
	reconcile *services.ReconcileService
	coupons   *services.CouponService
	orderRepo *memory.OrderRepository
	gateway   *testGateway
}

func newHandlerFixture(t *testing.T, products []domain.Product, coupons ...domain.Coupon) *handlerFixture {
	t.Helper()

	orderRepo := memory.NewOrderRepository()
	productRepo := memory.NewProductRepository(products...)
	couponRepo := memory.NewCouponRepository(coupons...)

	orders, err := services.NewOrderService(services.OrderServiceDeps{
		Orders: orderRepo,
		NewID:  func() string { return "01test" },
	})
	if err != nil {
		t.Fatalf("NewOrderService: %v", err)
	}
	stock, err := services.NewStockService(services.StockServiceDeps{Products: productRepo})
	if err != nil {
		t.Fatalf("NewStockService: %v", err)
	}
	couponSvc, err := services.NewCouponService(services.CouponServiceDeps{Coupons: couponRepo})
	if err != nil {
		t.Fatalf("NewCouponService: %v", err)
	}

	gateway := &testGateway{
		name:    "asaas",
		payment: gateways.PaymentResult{ExternalID: "pay_1", Status: domain.OrderStatusPending},
	}
	registry, err := gateways.NewRegistry("asaas", gateway)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	checkout, err := services.NewCheckoutService(services.CheckoutServiceDeps{
		Orders:   orders,
		Stock:    stock,
		Coupons:  couponSvc,
		Gateways: registry,
	})
	if err != nil {
		t.Fatalf("NewCheckoutService: %v", err)
	}
	reconcile, err := services.NewReconcileService(services.ReconcileServiceDeps{
		Orders:   orders,
		Stock:    stock,
		Gateways: registry,
	})
	if err != nil {
		t.Fatalf("NewReconcileService: %v", err)
	}

	return &handlerFixture{
		orders:    orders,
		checkout:  checkout,
		reconcile: reconcile,
		coupons:   couponSvc,
		orderRepo: orderRepo,
		gateway:   gateway,
	}
}

func (f *handlerFixture) seedOrder(t *testing.T, order domain.Order) domain.Order {
	t.Helper()
	if order.Customer.Email == "" {
		order.Customer = domain.Customer{Name: "Ana", Email: "ana@example.com"}
	}
	created, err := f.orders.Create(context.Background(), order)
	if err != nil {
		t.Fatalf("seed order: %v", err)
	}
	return created
}
