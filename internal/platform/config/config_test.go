package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(WithoutSystemEnv(), WithEnvFile(""))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Fatalf("expected default port 8080, got %q", cfg.Server.Port)
	}
	if cfg.Strapi.BaseURL != "http://127.0.0.1:1337" {
		t.Fatalf("unexpected strapi url %q", cfg.Strapi.BaseURL)
	}
	if cfg.Gateways.DefaultProvider != "asaas" {
		t.Fatalf("expected default provider asaas, got %q", cfg.Gateways.DefaultProvider)
	}
	if cfg.Gateways.Asaas.Environment != "sandbox" {
		t.Fatalf("expected sandbox, got %q", cfg.Gateways.Asaas.Environment)
	}
	if cfg.RateLimits.CheckoutPerMinute != 20 || cfg.RateLimits.WebhookPerMinute != 60 || cfg.RateLimits.StatusPerMinute != 120 {
		t.Fatalf("unexpected rate limits %+v", cfg.RateLimits)
	}
	if cfg.SMTP.Port != 587 {
		t.Fatalf("expected smtp port 587, got %d", cfg.SMTP.Port)
	}
}

func TestLoadEnvMapOverrides(t *testing.T) {
	cfg, err := Load(WithoutSystemEnv(), WithEnvFile(""), WithEnvMap(map[string]string{
		"PORT":              "9090",
		"PAYMENT_PROVIDER":  "Stripe",
		"STRAPI_URL":        "https://cms.example.com/",
		"STRAPI_TIMEOUT":    "5s",
		"RATE_LIMIT_STATUS": "10",
		"SMTP_USER":         "mail@example.com",
	}))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != "9090" {
		t.Fatalf("expected port 9090, got %q", cfg.Server.Port)
	}
	if cfg.Gateways.DefaultProvider != "stripe" {
		t.Fatalf("expected lowercased provider, got %q", cfg.Gateways.DefaultProvider)
	}
	if cfg.Strapi.BaseURL != "https://cms.example.com" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.Strapi.BaseURL)
	}
	if cfg.Strapi.Timeout != 5*time.Second {
		t.Fatalf("expected 5s timeout, got %v", cfg.Strapi.Timeout)
	}
	if cfg.RateLimits.StatusPerMinute != 10 {
		t.Fatalf("expected status limit 10, got %d", cfg.RateLimits.StatusPerMinute)
	}
	if cfg.SMTP.From != "mail@example.com" {
		t.Fatalf("expected from defaulted to username, got %q", cfg.SMTP.From)
	}
}

func TestLoadDotEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	content := "# comment\nexport PORT=7000\nSTRAPI_TOKEN=\"secret\"\nbroken line\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}

	cfg, err := Load(WithoutSystemEnv(), WithEnvFile(path))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != "7000" {
		t.Fatalf("expected port from env file, got %q", cfg.Server.Port)
	}
	if cfg.Strapi.Token != "secret" {
		t.Fatalf("expected unquoted token, got %q", cfg.Strapi.Token)
	}
}

func TestLoadEnvMapWinsOverFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("PORT=7000\n"), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}

	cfg, err := Load(WithoutSystemEnv(), WithEnvFile(path), WithEnvMap(map[string]string{"PORT": "9000"}))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != "9000" {
		t.Fatalf("expected override to win, got %q", cfg.Server.Port)
	}
}

func TestLoadValidatesAsaasEnvironment(t *testing.T) {
	_, err := Load(WithoutSystemEnv(), WithEnvFile(""), WithEnvMap(map[string]string{
		"ASAAS_ENVIRONMENT": "staging",
	}))
	if err == nil {
		t.Fatal("expected validation error")
	}

	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	if fields := validationErr.Fields(); len(fields) != 1 || fields[0] != "Gateways.Asaas.Environment" {
		t.Fatalf("unexpected fields %v", fields)
	}
}

func TestLoadIgnoresMissingEnvFile(t *testing.T) {
	if _, err := Load(WithoutSystemEnv(), WithEnvFile(filepath.Join(t.TempDir(), "nope.env"))); err != nil {
		t.Fatalf("expected missing env file ignored, got %v", err)
	}
}
