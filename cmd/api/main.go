package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/neomercado/api/internal/gateways"
	"github.com/neomercado/api/internal/handlers"
	"github.com/neomercado/api/internal/notifications"
	"github.com/neomercado/api/internal/platform/config"
	"github.com/neomercado/api/internal/platform/observability"
	cms "github.com/neomercado/api/internal/platform/strapi"
	strapirepo "github.com/neomercado/api/internal/repositories/strapi"
	"github.com/neomercado/api/internal/services"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "api: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger, err := observability.NewLogger()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	eventLogger := observability.EventLogger(logger)

	client, err := cms.NewClient(cms.ClientConfig{
		BaseURL: cfg.Strapi.BaseURL,
		Token:   cfg.Strapi.Token,
		Timeout: cfg.Strapi.Timeout,
	})
	if err != nil {
		return err
	}

	orderRepo, err := strapirepo.NewOrderRepository(client)
	if err != nil {
		return err
	}
	productRepo, err := strapirepo.NewProductRepository(client)
	if err != nil {
		return err
	}
	couponRepo, err := strapirepo.NewCouponRepository(client)
	if err != nil {
		return err
	}

	registry, err := buildGatewayRegistry(cfg.Gateways, eventLogger)
	if err != nil {
		return err
	}
	logger.Info("payment gateways registered", zap.Strings("gateways", registry.Names()))

	mailer, err := notifications.NewMailer(notifications.MailerConfig{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
		Logger:   notifications.Logger(eventLogger),
	})
	if err != nil {
		return err
	}
	if !mailer.Enabled() {
		logger.Warn("smtp not configured, transactional mail disabled")
	}

	orderService, err := services.NewOrderService(services.OrderServiceDeps{
		Orders: orderRepo,
		NewID:  func() string { return ulid.Make().String() },
		Logger: services.Logger(eventLogger),
	})
	if err != nil {
		return err
	}
	stockService, err := services.NewStockService(services.StockServiceDeps{
		Products: productRepo,
		Logger:   services.Logger(eventLogger),
	})
	if err != nil {
		return err
	}
	couponService, err := services.NewCouponService(services.CouponServiceDeps{
		Coupons: couponRepo,
		Logger:  services.Logger(eventLogger),
	})
	if err != nil {
		return err
	}
	shippingService := services.NewShippingService(services.ShippingServiceDeps{
		Logger: services.Logger(eventLogger),
	})
	checkoutService, err := services.NewCheckoutService(services.CheckoutServiceDeps{
		Orders:   orderService,
		Stock:    stockService,
		Coupons:  couponService,
		Gateways: registry,
		Notifier: mailer,
		Logger:   services.Logger(eventLogger),
	})
	if err != nil {
		return err
	}
	reconcileService, err := services.NewReconcileService(services.ReconcileServiceDeps{
		Orders:   orderService,
		Stock:    stockService,
		Gateways: registry,
		Notifier: mailer,
		Logger:   services.Logger(eventLogger),
	})
	if err != nil {
		return err
	}

	router := handlers.NewRouter(
		handlers.WithMiddlewares(
			observability.InjectLoggerMiddleware(logger),
			observability.ClientIPMiddleware,
			observability.RequestLoggerMiddleware(),
			observability.RecoveryMiddleware(logger),
		),
		handlers.WithHealthHandlers(handlers.NewHealthHandlers()),
		handlers.WithCheckoutRoutes(handlers.NewCheckoutHandlers(handlers.CheckoutHandlersDeps{
			Checkout:       checkoutService,
			LimitPerMinute: cfg.RateLimits.CheckoutPerMinute,
		}).Routes),
		handlers.WithWebhookRoutes(handlers.NewWebhookHandlers(handlers.WebhookHandlersDeps{
			Reconcile:      reconcileService,
			LimitPerMinute: cfg.RateLimits.WebhookPerMinute,
		}).Routes),
		handlers.WithOrderRoutes(handlers.NewOrderHandlers(handlers.OrderHandlersDeps{
			Orders:         orderService,
			LimitPerMinute: cfg.RateLimits.StatusPerMinute,
		}).Routes),
		handlers.WithShippingRoutes(handlers.NewShippingHandlers(handlers.ShippingHandlersDeps{
			Shipping: shippingService,
		}).Routes),
		handlers.WithPromoRoutes(handlers.NewPromoHandlers(handlers.PromoHandlersDeps{
			Coupons: couponService,
		}).Routes),
	)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info("http server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return group.Wait()
}

// buildGatewayRegistry wires every gateway with credentials present. At least
// one is required; the configured default falls back to the first registered
// gateway when its own credentials are missing.
func buildGatewayRegistry(cfg config.GatewayConfig, eventLogger func(context.Context, string, map[string]any)) (*gateways.Registry, error) {
	httpClient := &http.Client{Timeout: cfg.Timeout}
	logger := gateways.Logger(eventLogger)

	var registered []gateways.Gateway

	if cfg.Asaas.APIKey != "" {
		asaas, err := gateways.NewAsaas(gateways.AsaasConfig{
			APIKey:        cfg.Asaas.APIKey,
			Environment:   cfg.Asaas.Environment,
			WebhookSecret: cfg.Asaas.WebhookSecret,
			HTTPClient:    httpClient,
			Logger:        logger,
		})
		if err != nil {
			return nil, err
		}
		registered = append(registered, asaas)
	}

	if cfg.Stripe.APIKey != "" {
		stripe, err := gateways.NewStripe(gateways.StripeConfig{
			APIKey:        cfg.Stripe.APIKey,
			WebhookSecret: cfg.Stripe.WebhookSecret,
			SuccessURL:    cfg.Stripe.SuccessURL,
			CancelURL:     cfg.Stripe.CancelURL,
			Logger:        logger,
		})
		if err != nil {
			return nil, err
		}
		registered = append(registered, stripe)
	}

	if cfg.MercadoPago.AccessToken != "" {
		mercadoPago, err := gateways.NewMercadoPago(gateways.MercadoPagoConfig{
			AccessToken:   cfg.MercadoPago.AccessToken,
			WebhookSecret: cfg.MercadoPago.WebhookSecret,
			SuccessURL:    cfg.MercadoPago.SuccessURL,
			FailureURL:    cfg.MercadoPago.FailureURL,
			HTTPClient:    httpClient,
			Logger:        logger,
		})
		if err != nil {
			return nil, err
		}
		registered = append(registered, mercadoPago)
	}

	if cfg.PagSeguro.Email != "" && cfg.PagSeguro.Token != "" {
		pagSeguro, err := gateways.NewPagSeguro(gateways.PagSeguroConfig{
			Email:       cfg.PagSeguro.Email,
			Token:       cfg.PagSeguro.Token,
			Environment: cfg.PagSeguro.Environment,
			HTTPClient:  httpClient,
			Logger:      logger,
		})
		if err != nil {
			return nil, err
		}
		registered = append(registered, pagSeguro)
	}

	if len(registered) == 0 {
		return nil, errors.New("no payment gateway credentials configured")
	}

	defaultName := cfg.DefaultProvider
	if _, found := findGateway(registered, defaultName); !found {
		defaultName = registered[0].Name()
	}
	return gateways.NewRegistry(defaultName, registered...)
}

func findGateway(registered []gateways.Gateway, name string) (gateways.Gateway, bool) {
	for _, gateway := range registered {
		if gateway.Name() == name {
			return gateway, true
		}
	}
	return nil, false
}
