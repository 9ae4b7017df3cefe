package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"marketpulse/internal/adapters/logger" // Import the logger package for LogLevel
)

// Config holds all application configuration.
type Config struct {
	// Market data vendor (Binance)
	APIKey    string
	SecretKey string
	IsTestnet bool

	// P&L parameters
	BaseCurrency string // Account base currency (e.g., "USD")

	// Provider caches
	RateCacheTTL  time.Duration // Max age of a cached exchange rate
	PriceCacheTTL time.Duration // Max age of a cached instrument price

	// Position monitor
	MonitorInterval time.Duration // Sleep between monitoring cycles

	// Worker pool bridging blocking vendor calls
	WorkerPoolSize int

	// HTTP exchange-rate endpoints (fallback tiers 2 and 3)
	PrimaryRatesURL   string
	SecondaryRatesURL string
	RatesHTTPTimeout  time.Duration

	// Static fallback rate table, keyed "FROMTO" (e.g. "EURUSD" -> 1.08).
	// Tried last, both directly and as the reciprocal of the inverse pair.
	FallbackRates map[string]float64

	// Database
	DBPath string

	// Logging
	LogLevel  logger.LogLevel
	LogFormat logger.Format
}

// LoadConfig loads configuration from environment variables (.env file).
func LoadConfig() (*Config, error) {
	// Load .env file, but don't fail if it doesn't exist (allow pure env vars)
	_ = godotenv.Load()

	cfg := &Config{}
	var err error
	var errs []string // Collect validation errors

	// Vendor API. Keys may be empty: public endpoints are enough for price
	// and rate lookups, authentication errors surface only on private calls.
	cfg.APIKey = getEnv("BINANCE_API_KEY", "")
	cfg.SecretKey = getEnv("BINANCE_API_SECRET", "")
	cfg.IsTestnet = getEnvAsBool("IS_TESTNET", true) // Default to testnet for safety

	cfg.BaseCurrency = strings.ToUpper(getEnv("BASE_CURRENCY", "USD"))
	if len(cfg.BaseCurrency) != 3 {
		errs = append(errs, "BASE_CURRENCY must be a 3-letter ISO code")
	}

	rateTTLSeconds, err := getEnvAsIntRequired("RATE_CACHE_TTL_SECONDS", 300)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid RATE_CACHE_TTL_SECONDS: %v", err))
	} else if rateTTLSeconds <= 0 {
		errs = append(errs, "RATE_CACHE_TTL_SECONDS must be positive")
	}
	cfg.RateCacheTTL = time.Duration(rateTTLSeconds) * time.Second

	priceTTLSeconds, err := getEnvAsIntRequired("PRICE_CACHE_TTL_SECONDS", 60)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid PRICE_CACHE_TTL_SECONDS: %v", err))
	} else if priceTTLSeconds <= 0 {
		errs = append(errs, "PRICE_CACHE_TTL_SECONDS must be positive")
	}
	cfg.PriceCacheTTL = time.Duration(priceTTLSeconds) * time.Second

	monitorSeconds, err := getEnvAsIntRequired("MONITOR_INTERVAL_SECONDS", 60)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid MONITOR_INTERVAL_SECONDS: %v", err))
	} else if monitorSeconds <= 0 {
		errs = append(errs, "MONITOR_INTERVAL_SECONDS must be positive")
	}
	cfg.MonitorInterval = time.Duration(monitorSeconds) * time.Second

	cfg.WorkerPoolSize, err = getEnvAsIntRequired("WORKER_POOL_SIZE", 4)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid WORKER_POOL_SIZE: %v", err))
	} else if cfg.WorkerPoolSize <= 0 {
		errs = append(errs, "WORKER_POOL_SIZE must be positive")
	}

	cfg.PrimaryRatesURL = getEnv("PRIMARY_RATES_URL", "https://api.frankfurter.app")
	if cfg.PrimaryRatesURL == "" {
		errs = append(errs, "PRIMARY_RATES_URL must be set")
	}
	cfg.SecondaryRatesURL = getEnv("SECONDARY_RATES_URL", "https://open.er-api.com/v6")
	if cfg.SecondaryRatesURL == "" {
		errs = append(errs, "SECONDARY_RATES_URL must be set")
	}

	ratesTimeoutSeconds := getEnvAsInt("RATES_HTTP_TIMEOUT_SECONDS", 10)
	if ratesTimeoutSeconds <= 0 {
		errs = append(errs, "RATES_HTTP_TIMEOUT_SECONDS must be positive")
	}
	cfg.RatesHTTPTimeout = time.Duration(ratesTimeoutSeconds) * time.Second

	cfg.FallbackRates, err = parseFallbackRates(getEnv("FALLBACK_RATES",
		"EURUSD=1.08,GBPUSD=1.27,CHFUSD=1.13,JPYUSD=0.0067,AUDUSD=0.66"))
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid FALLBACK_RATES: %v", err))
	}

	// Database
	cfg.DBPath = getEnv("DB_PATH", "./data/journal.db")
	if cfg.DBPath == "" {
		errs = append(errs, "DB_PATH must be set")
	}

	// Logging
	cfg.LogLevel = logger.ParseLevel(getEnv("LOG_LEVEL", "INFO"))
	cfg.LogFormat = logger.ParseFormat(getEnv("LOG_FORMAT", "text"))

	// Combine validation errors
	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}

	return cfg, nil
}

// parseFallbackRates parses a "PAIR=rate,PAIR=rate" list into a rate table.
// Pair keys are uppercased 6-letter concatenations (e.g. "EURUSD").
func parseFallbackRates(raw string) (map[string]float64, error) {
	rates := make(map[string]float64)
	if strings.TrimSpace(raw) == "" {
		return rates, nil
	}
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.SplitN(entry, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("malformed entry %q, expected PAIR=rate", entry)
		}
		pair := strings.ToUpper(strings.TrimSpace(parts[0]))
		if len(pair) != 6 {
			return nil, fmt.Errorf("pair %q must be a 6-letter currency pair", pair)
		}
		rate, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid rate for pair %s: %w", pair, err)
		}
		if rate <= 0 {
			return nil, fmt.Errorf("rate for pair %s must be positive", pair)
		}
		rates[pair] = rate
	}
	return rates, nil
}

// --- Env Var Helpers ---

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
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
