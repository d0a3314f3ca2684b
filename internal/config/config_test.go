package config

import (
	"testing"
	"time"

	"tycoon/internal/risk"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://localhost/tycoon")
	t.Setenv("SUPABASE_URL", "https://example.supabase.co/")
	t.Setenv("SUPABASE_ANON_KEY", "anon")
}

func TestLoadAPIFromEnvDefaults(t *testing.T) {
	setRequired(t)
	t.Setenv("PORT", "")

	cfg, err := LoadAPIFromEnv()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Addr != ":8080" {
		t.Fatalf("addr=%q", cfg.Addr)
	}
	if cfg.SupabaseURL != "https://example.supabase.co" {
		t.Fatalf("supabase url not trimmed: %q", cfg.SupabaseURL)
	}
	if cfg.TickEvery != time.Minute || cfg.RiskCacheTTL != 10*time.Minute {
		t.Fatalf("unexpected durations tick=%s ttl=%s", cfg.TickEvery, cfg.RiskCacheTTL)
	}
	if cfg.RateLimitPerMinute != 120 || !cfg.AutoMigrate || cfg.RandomSeed != 0 {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.Economy != nil {
		t.Fatalf("expected nil economy, got %+v", cfg.Economy)
	}
}

func TestLoadAPIFromEnvRequired(t *testing.T) {
	tests := []struct {
		name  string
		unset string
	}{
		{name: "database", unset: "DATABASE_URL"},
		{name: "supabase url", unset: "SUPABASE_URL"},
		{name: "anon key", unset: "SUPABASE_ANON_KEY"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			setRequired(t)
			t.Setenv(tc.unset, "")
			if _, err := LoadAPIFromEnv(); err == nil {
				t.Fatalf("expected error when %s is empty", tc.unset)
			}
		})
	}
}

func TestLoadAPIFromEnvPortAndOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("PORT", "9090")
	t.Setenv("TYCOON_TICK_EVERY", "30s")
	t.Setenv("TYCOON_RANDOM_SEED", "42")
	t.Setenv("TYCOON_RATE_LIMIT_PER_MINUTE", "not-a-number")

	cfg, err := LoadAPIFromEnv()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Addr != ":9090" || cfg.TickEvery != 30*time.Second || cfg.RandomSeed != 42 {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if cfg.RateLimitPerMinute != 120 {
		t.Fatalf("bad int should fall back, got %d", cfg.RateLimitPerMinute)
	}
}

func TestEconomyFromEnv(t *testing.T) {
	setRequired(t)
	t.Setenv("TYCOON_ECON_RECESSION", "true")
	t.Setenv("TYCOON_ECON_RATES", "High")

	cfg, err := LoadAPIFromEnv()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := risk.EconomicConditions{
		UnemploymentRate: 4.0,
		InterestRates:    risk.RatesHigh,
		HousingMarket:    risk.HousingStable,
		Recession:        true,
	}
	if cfg.Economy == nil || *cfg.Economy != want {
		t.Fatalf("economy=%+v want %+v", cfg.Economy, want)
	}
}

func TestEconomyFromEnvRejectsUnknownRegime(t *testing.T) {
	setRequired(t)
	t.Setenv("TYCOON_ECON_HOUSING", "sideways")
	if _, err := LoadAPIFromEnv(); err == nil {
		t.Fatalf("expected error for unknown housing market")
	}
}

func TestLoadCLIFromEnv(t *testing.T) {
	t.Setenv("TYC_API_BASE_URL", "https://tycoon.example.com/")
	cfg := LoadCLIFromEnv()
	if cfg.APIBaseURL != "https://tycoon.example.com" {
		t.Fatalf("base url=%q", cfg.APIBaseURL)
	}
}
