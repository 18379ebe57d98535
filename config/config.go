package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // Zone names resolve without a system tz database

	"github.com/Rhymond/go-money"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"tradeLedger/internal/adapters/logger" // Import the logger package for LogLevel
	"tradeLedger/internal/adapters/quotes"
	"tradeLedger/internal/fx"
)

// Quote source names accepted by FX_SOURCE.
const (
	SourceHTTP    = "http"
	SourceBinance = "binance"
)

// fallbackRatePlaces is the scale FX_FALLBACK_RATE is rounded to, half up.
const fallbackRatePlaces = 3

// Stats backends accepted by STATS_BACKEND.
const (
	BackendSQL    = "sql"
	BackendMemory = "memory"
)

// Config holds all application configuration.
type Config struct {
	// Database
	DBPath string

	// Logging and tracing
	LogLevel       logger.LogLevel
	LogFormat      string // text or json
	TracingEnabled bool

	// Currencies
	ReportingCurrency string
	SecondaryCurrency string

	// Exchange rate
	FXSource       string
	FXEndpoint     string
	FXFallbackRate decimal.Decimal // Reporting units per secondary unit
	FXTimeout      time.Duration
	FXZone         *time.Location
	FXRefreshAt    string // HH:MM in FXZone
	BinanceSymbol  string
	BinanceBaseURL string

	// Aggregation
	StatsBackend string
}

// LoadConfig loads configuration from environment variables (.env file).
func LoadConfig() (*Config, error) {
	// Load .env file, but don't fail if it doesn't exist (allow pure env vars)
	_ = godotenv.Load()

	cfg := &Config{}
	var err error
	var errs []string // Collect validation errors

	// Database
	cfg.DBPath = getEnv("DB_PATH", "./data/ledger.db")

	// Logging
	cfg.LogLevel = logger.ParseLevel(getEnv("LOG_LEVEL", "INFO"))
	cfg.LogFormat = strings.ToLower(getEnv("LOG_FORMAT", "text"))
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		errs = append(errs, "LOG_FORMAT must be text or json")
	}
	cfg.TracingEnabled = getEnvAsBool("TRACING_ENABLED", false)

	// Currencies
	cfg.ReportingCurrency = strings.ToUpper(getEnv("REPORTING_CURRENCY", "USD"))
	cfg.SecondaryCurrency = strings.ToUpper(getEnv("SECONDARY_CURRENCY", "CAD"))
	for key, code := range map[string]string{
		"REPORTING_CURRENCY": cfg.ReportingCurrency,
		"SECONDARY_CURRENCY": cfg.SecondaryCurrency,
	} {
		if money.GetCurrency(code) == nil {
			errs = append(errs, fmt.Sprintf("%s %q is not an ISO 4217 currency", key, code))
		}
	}
	if cfg.ReportingCurrency == cfg.SecondaryCurrency {
		errs = append(errs, "REPORTING_CURRENCY and SECONDARY_CURRENCY must differ")
	}

	// Exchange rate
	cfg.FXSource = strings.ToLower(getEnv("FX_SOURCE", SourceHTTP))
	if cfg.FXSource != SourceHTTP && cfg.FXSource != SourceBinance {
		errs = append(errs, "FX_SOURCE must be http or binance")
	}
	cfg.FXEndpoint = getEnv("FX_ENDPOINT", quotes.DefaultCBSAEndpoint)

	cfg.FXFallbackRate, err = decimal.NewFromString(getEnv("FX_FALLBACK_RATE", "0.732"))
	cfg.FXFallbackRate = cfg.FXFallbackRate.Round(fallbackRatePlaces)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid FX_FALLBACK_RATE: %v", err))
	} else if !cfg.FXFallbackRate.IsPositive() {
		errs = append(errs, "FX_FALLBACK_RATE must be positive")
	}

	timeoutMs, err := getEnvAsIntRequired("FX_TIMEOUT_MS", int(fx.DefaultTimeout/time.Millisecond))
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid FX_TIMEOUT_MS: %v", err))
	} else if timeoutMs <= 0 {
		errs = append(errs, "FX_TIMEOUT_MS must be positive")
	}
	cfg.FXTimeout = time.Duration(timeoutMs) * time.Millisecond

	zoneName := getEnv("FX_EFFECTIVE_ZONE", fx.DefaultZone)
	cfg.FXZone, err = time.LoadLocation(zoneName)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid FX_EFFECTIVE_ZONE %q: %v", zoneName, err))
	}

	cfg.FXRefreshAt = getEnv("FX_REFRESH_AT", "02:30")
	if _, _, err := fx.ParseClock(cfg.FXRefreshAt); err != nil {
		errs = append(errs, fmt.Sprintf("invalid FX_REFRESH_AT: %v", err))
	}

	cfg.BinanceSymbol = strings.ToUpper(getEnv("BINANCE_SYMBOL", "USDTCAD"))
	cfg.BinanceBaseURL = getEnv("BINANCE_BASE_URL", "")
	if cfg.FXSource == SourceBinance && len(cfg.BinanceSymbol) < 6 {
		errs = append(errs, "BINANCE_SYMBOL must name a currency pair, e.g. USDTCAD")
	}

	// Aggregation
	cfg.StatsBackend = strings.ToLower(getEnv("STATS_BACKEND", BackendSQL))
	if cfg.StatsBackend != BackendSQL && cfg.StatsBackend != BackendMemory {
		errs = append(errs, "STATS_BACKEND must be sql or memory")
	}

	// Combine validation errors
	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}

	return cfg, nil
}

// --- Env Var Helpers ---

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsIntRequired(key string, defaultValue int) (int, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		// Use default if env var is not set at all
		return defaultValue, nil
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		// Return error if env var is set but invalid
		return 0, fmt.Errorf("invalid integer value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
