package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	defaultEnvFile      = ".env"
	defaultPort         = "8080"
	defaultReadTimeout  = 15 * time.Second
	defaultWriteTimeout = 30 * time.Second
	defaultIdleTimeout  = 120 * time.Second

	defaultStrapiURL     = "http://127.0.0.1:1337"
	defaultStrapiTimeout = 10 * time.Second

	defaultGatewayTimeout   = 15 * time.Second
	defaultAsaasEnvironment = "sandbox"
	defaultProvider         = "asaas"

	defaultCheckoutPerMinute = 20
	defaultWebhookPerMinute  = 60
	defaultStatusPerMinute   = 120

	defaultSMTPPort = 587
)

// Config captures all runtime configuration organised by concern.
type Config struct {
	Server     ServerConfig
	Strapi     StrapiConfig
	Gateways   GatewayConfig
	SMTP       SMTPConfig
	RateLimits RateLimitConfig
}

// ServerConfig configures HTTP server parameters.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// StrapiConfig stores the CMS document API parameters.
type StrapiConfig struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

// GatewayConfig collects credentials and webhook secrets for payment providers.
type GatewayConfig struct {
	DefaultProvider string
	Timeout         time.Duration

	Asaas       AsaasConfig
	Stripe      StripeConfig
	MercadoPago MercadoPagoConfig
	PagSeguro   PagSeguroConfig
}

// AsaasConfig stores Asaas REST API settings.
type AsaasConfig struct {
	APIKey        string
	Environment   string
	WebhookSecret string
}

// StripeConfig stores Stripe API settings.
type StripeConfig struct {
	APIKey        string
	WebhookSecret string
	SuccessURL    string
	CancelURL     string
}

// MercadoPagoConfig stores MercadoPago API settings.
type MercadoPagoConfig struct {
	AccessToken   string
	WebhookSecret string
	SuccessURL    string
	FailureURL    string
}

// PagSeguroConfig stores PagSeguro API settings.
type PagSeguroConfig struct {
	Email         string
	Token         string
	Environment   string
	WebhookSecret string
}

// SMTPConfig stores the notification mailer settings; mail is skipped when Host is empty.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// RateLimitConfig controls per-IP request throttling.
type RateLimitConfig struct {
	CheckoutPerMinute int
	WebhookPerMinute  int
	StatusPerMinute   int
}

// ValidationError reports configuration fields that failed validation.
type ValidationError struct {
	fields []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: missing or invalid fields: %s", strings.Join(e.fields, ", "))
}

// Fields returns the offending field names.
func (e *ValidationError) Fields() []string {
	out := make([]string, len(e.fields))
	copy(out, e.fields)
	return out
}

type options struct {
	envFile      string
	envOverrides map[string]string
	useSystemEnv bool
}

// Option customises configuration loading.
type Option func(*options)

// WithEnvFile overrides the dotenv file consulted before system environment variables.
func WithEnvFile(path string) Option {
	return func(o *options) {
		o.envFile = path
	}
}

// WithEnvMap injects explicit values that take precedence over every other source.
func WithEnvMap(values map[string]string) Option {
	return func(o *options) {
		o.envOverrides = values
	}
}

// WithoutSystemEnv disables reading the process environment, primarily for tests.
func WithoutSystemEnv() Option {
	return func(o *options) {
		o.useSystemEnv = false
	}
}

// Load reads configuration from the environment (plus an optional .env file)
// and validates it.
func Load(opts ...Option) (Config, error) {
	o := options{
		envFile:      defaultEnvFile,
		useSystemEnv: true,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	fileValues, err := loadDotEnv(o.envFile)
	if err != nil {
		return Config{}, err
	}

	lookup := func(key string) (string, bool) {
		if value, ok := o.envOverrides[key]; ok {
			return strings.TrimSpace(value), true
		}
		if o.useSystemEnv {
			if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
				return strings.TrimSpace(value), true
			}
		}
		if value, ok := fileValues[key]; ok && value != "" {
			return value, true
		}
		return "", false
	}

	cfg := Config{
		Server: ServerConfig{
			Port:         stringWithDefault(lookup, "PORT", defaultPort),
			ReadTimeout:  durationWithDefault(lookup, "SERVER_READ_TIMEOUT", defaultReadTimeout),
			WriteTimeout: durationWithDefault(lookup, "SERVER_WRITE_TIMEOUT", defaultWriteTimeout),
			IdleTimeout:  durationWithDefault(lookup, "SERVER_IDLE_TIMEOUT", defaultIdleTimeout),
		},
		Strapi: StrapiConfig{
			BaseURL: strings.TrimRight(stringWithDefault(lookup, "STRAPI_URL", defaultStrapiURL), "/"),
			Token:   stringWithDefault(lookup, "STRAPI_TOKEN", ""),
			Timeout: durationWithDefault(lookup, "STRAPI_TIMEOUT", defaultStrapiTimeout),
		},
		Gateways: GatewayConfig{
			DefaultProvider: strings.ToLower(stringWithDefault(lookup, "PAYMENT_PROVIDER", defaultProvider)),
			Timeout:         durationWithDefault(lookup, "GATEWAY_TIMEOUT", defaultGatewayTimeout),
			Asaas: AsaasConfig{
				APIKey:        stringWithDefault(lookup, "ASAAS_API_KEY", ""),
				Environment:   strings.ToLower(stringWithDefault(lookup, "ASAAS_ENVIRONMENT", defaultAsaasEnvironment)),
				WebhookSecret: stringWithDefault(lookup, "ASAAS_WEBHOOK_SECRET", ""),
			},
			Stripe: StripeConfig{
				APIKey:        stringWithDefault(lookup, "STRIPE_SECRET_KEY", ""),
				WebhookSecret: stringWithDefault(lookup, "STRIPE_WEBHOOK_SECRET", ""),
				SuccessURL:    stringWithDefault(lookup, "STRIPE_SUCCESS_URL", ""),
				CancelURL:     stringWithDefault(lookup, "STRIPE_CANCEL_URL", ""),
			},
			MercadoPago: MercadoPagoConfig{
				AccessToken:   stringWithDefault(lookup, "MERCADOPAGO_ACCESS_TOKEN", ""),
				WebhookSecret: stringWithDefault(lookup, "MERCADOPAGO_WEBHOOK_SECRET", ""),
				SuccessURL:    stringWithDefault(lookup, "MERCADOPAGO_SUCCESS_URL", ""),
				FailureURL:    stringWithDefault(lookup, "MERCADOPAGO_FAILURE_URL", ""),
			},
			PagSeguro: PagSeguroConfig{
				Email:         stringWithDefault(lookup, "PAGSEGURO_EMAIL", ""),
				Token:         stringWithDefault(lookup, "PAGSEGURO_TOKEN", ""),
				Environment:   strings.ToLower(stringWithDefault(lookup, "PAGSEGURO_ENVIRONMENT", defaultAsaasEnvironment)),
				WebhookSecret: stringWithDefault(lookup, "PAGSEGURO_WEBHOOK_SECRET", ""),
			},
		},
		SMTP: SMTPConfig{
			Host:     stringWithDefault(lookup, "SMTP_HOST", ""),
			Port:     intWithDefault(lookup, "SMTP_PORT", defaultSMTPPort),
			Username: stringWithDefault(lookup, "SMTP_USER", ""),
			Password: stringWithDefault(lookup, "SMTP_PASS", ""),
			From:     stringWithDefault(lookup, "SMTP_FROM", ""),
		},
		RateLimits: RateLimitConfig{
			CheckoutPerMinute: intWithDefault(lookup, "RATE_LIMIT_CHECKOUT", defaultCheckoutPerMinute),
			WebhookPerMinute:  intWithDefault(lookup, "RATE_LIMIT_WEBHOOK", defaultWebhookPerMinute),
			StatusPerMinute:   intWithDefault(lookup, "RATE_LIMIT_STATUS", defaultStatusPerMinute),
		},
	}

	if cfg.SMTP.From == "" && cfg.SMTP.Username != "" {
		cfg.SMTP.From = cfg.SMTP.Username
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validateConfig(cfg Config) error {
	var missing []string

	if cfg.Server.Port == "" {
		missing = append(missing, "Server.Port")
	}
	if cfg.Strapi.BaseURL == "" {
		missing = append(missing, "Strapi.BaseURL")
	}
	if cfg.Strapi.Timeout <= 0 {
		missing = append(missing, "Strapi.Timeout")
	}
	if cfg.Gateways.Timeout <= 0 {
		missing = append(missing, "Gateways.Timeout")
	}
	switch cfg.Gateways.Asaas.Environment {
	case "sandbox", "production":
	default:
		missing = append(missing, "Gateways.Asaas.Environment")
	}

	if len(missing) > 0 {
		return &ValidationError{fields: missing}
	}
	return nil
}

func loadDotEnv(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}

	file, err := os.Open(absPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: unable to read %s: %w", absPath, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	values := make(map[string]string)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "export ") {
			line = strings.TrimSpace(strings.TrimPrefix(line, "export "))
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		if key == "" {
			continue
		}
		value = strings.Trim(value, "\"'")
		values[key] = value
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("config: failed parsing %s: %w", absPath, err)
	}
	return values, nil
}

func stringWithDefault(lookup func(string) (string, bool), key, fallback string) string {
	if value, ok := lookup(key); ok && value != "" {
		return value
	}
	return fallback
}

func durationWithDefault(lookup func(string) (string, bool), key string, fallback time.Duration) time.Duration {
	if value, ok := lookup(key); ok && value != "" {
		if d, err := time.ParseDuration(value); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}

func intWithDefault(lookup func(string) (string, bool), key string, fallback int) int {
	if value, ok := lookup(key); ok && value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}
