package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"tycoon/internal/risk"
)

type APIConfig struct {
	Addr               string
	DatabaseURL        string
	RedisURL           string
	SupabaseURL        string
	SupabaseAnonKey    string
	TickEvery          time.Duration
	WorkerRunOnce      bool
	RiskCacheTTL       time.Duration
	RateLimitPerMinute int
	// RandomSeed fixes the economy's random source; 0 seeds from entropy.
	RandomSeed         int64
	AutoMigrate        bool
	// Economy is nil unless a TYCOON_ECON_* variable is set.
	Economy            *risk.EconomicConditions
}

type CLIConfig struct {
	APIBaseURL string
	SessionDir string
}

func LoadAPIFromEnv() (APIConfig, error) {
	addr := os.Getenv("PORT")
	if addr != "" {
		if !strings.HasPrefix(addr, ":") {
			addr = ":" + addr
		}
	} else {
		addr = envDefault("TYCOON_API_ADDR", ":8080")
	}

	cfg := APIConfig{
		Addr:               addr,
		DatabaseURL:        strings.TrimSpace(os.Getenv("DATABASE_URL")),
		RedisURL:           strings.TrimSpace(os.Getenv("REDIS_URL")),
		SupabaseURL:        strings.TrimRight(strings.TrimSpace(os.Getenv("SUPABASE_URL")), "/"),
		SupabaseAnonKey:    strings.TrimSpace(os.Getenv("SUPABASE_ANON_KEY")),
		TickEvery:          envDurationDefault("TYCOON_TICK_EVERY", time.Minute),
		WorkerRunOnce:      envBoolDefault("TYCOON_WORKER_RUN_ONCE", false),
		RiskCacheTTL:       envDurationDefault("TYCOON_RISK_CACHE_TTL", 10*time.Minute),
		RateLimitPerMinute: envIntDefault("TYCOON_RATE_LIMIT_PER_MINUTE", 120),
		RandomSeed:         int64(envIntDefault("TYCOON_RANDOM_SEED", 0)),
		AutoMigrate:        envBoolDefault("TYCOON_AUTO_MIGRATE", true),
	}
	if cfg.DatabaseURL == "" {
		return cfg, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.SupabaseURL == "" {
		return cfg, fmt.Errorf("SUPABASE_URL is required")
	}
	if cfg.SupabaseAnonKey == "" {
		return cfg, fmt.Errorf("SUPABASE_ANON_KEY is required")
	}
	if cfg.TickEvery <= 0 {
		return cfg, fmt.Errorf("TYCOON_TICK_EVERY must be positive")
	}
	econ, err := economyFromEnv()
	if err != nil {
		return cfg, err
	}
	cfg.Economy = econ
	return cfg, nil
}

func LoadCLIFromEnv() CLIConfig {
	return CLIConfig{
		APIBaseURL: strings.TrimRight(envDefault("TYC_API_BASE_URL", "http://localhost:8080"), "/"),
		SessionDir: strings.TrimSpace(os.Getenv("TYC_HOME")),
	}
}

var economyKeys = []string{
	"TYCOON_ECON_UNEMPLOYMENT",
	"TYCOON_ECON_RATES",
	"TYCOON_ECON_HOUSING",
	"TYCOON_ECON_RECESSION",
}

// economyFromEnv fills unset fields with a calm economy: 4% unemployment,
// normal rates, stable housing.
func economyFromEnv() (*risk.EconomicConditions, error) {
	set := false
	for _, k := range economyKeys {
		if strings.TrimSpace(os.Getenv(k)) != "" {
			set = true
			break
		}
	}
	if !set {
		return nil, nil
	}

	rates, err := risk.ParseRateRegime(envDefault("TYCOON_ECON_RATES", string(risk.RatesNormal)))
	if err != nil {
		return nil, fmt.Errorf("TYCOON_ECON_RATES: %w", err)
	}
	housing, err := risk.ParseHousingMarket(envDefault("TYCOON_ECON_HOUSING", string(risk.HousingStable)))
	if err != nil {
		return nil, fmt.Errorf("TYCOON_ECON_HOUSING: %w", err)
	}
	unemployment := envFloatDefault("TYCOON_ECON_UNEMPLOYMENT", 4.0)
	if unemployment < 0 || unemployment > 100 {
		return nil, fmt.Errorf("TYCOON_ECON_UNEMPLOYMENT must be a percentage between 0 and 100")
	}
	return &risk.EconomicConditions{
		UnemploymentRate: unemployment,
		InterestRates:    rates,
		HousingMarket:    housing,
		Recession:        envBoolDefault("TYCOON_ECON_RECESSION", false),
	}, nil
}

func envDefault(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func envDurationDefault(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func envFloatDefault(key string, fallback float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func envIntDefault(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envBoolDefault(key string, fallback bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
