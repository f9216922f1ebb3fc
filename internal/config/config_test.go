package config_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/brokersim/ledger-engine/internal/config"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("QUOTE_API_KEY", "test-key")
	t.Setenv("JWT_SECRET", "test-secret")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Port != "8080" {
		t.Errorf("expected default port 8080, got %s", cfg.Port)
	}
	if cfg.QuoteTimeout != 5*time.Second {
		t.Errorf("expected default quote timeout 5s, got %s", cfg.QuoteTimeout)
	}
	if !cfg.StartingCash.Equal(decimal.NewFromInt(10000)) {
		t.Errorf("expected default starting cash 10000, got %s", cfg.StartingCash)
	}
}

func TestLoad_Overrides(t *testing.T) {
	setRequired(t)
	t.Setenv("PORT", "9999")
	t.Setenv("QUOTE_TIMEOUT", "250ms")
	t.Setenv("STARTING_CASH", "5000.50")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Port != "9999" {
		t.Errorf("expected port 9999, got %s", cfg.Port)
	}
	if cfg.QuoteTimeout != 250*time.Millisecond {
		t.Errorf("expected quote timeout 250ms, got %s", cfg.QuoteTimeout)
	}
	if !cfg.StartingCash.Equal(decimal.RequireFromString("5000.50")) {
		t.Errorf("expected starting cash 5000.50, got %s", cfg.StartingCash)
	}
}

func TestLoad_MissingAPIKey(t *testing.T) {
	t.Setenv("QUOTE_API_KEY", "")
	t.Setenv("JWT_SECRET", "test-secret")

	if _, err := config.Load(); err == nil {
		t.Error("expected error when QUOTE_API_KEY is unset")
	}
}

func TestLoad_BadDuration(t *testing.T) {
	setRequired(t)
	t.Setenv("QUOTE_TIMEOUT", "soon")

	if _, err := config.Load(); err == nil {
		t.Error("expected error for invalid QUOTE_TIMEOUT")
	}
}
