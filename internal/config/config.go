package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	HTTPPort   string
	CORSOrigin string

	CoinGeckoURL           string
	CoinGeckoAPIKey        string
	CoinGeckoTimeout       time.Duration
	CoinGeckoRatePerMinute int
	VSCurrency             string

	PriceTTL              time.Duration
	DirectoryTTL          time.Duration
	DirectoryRetryBackoff time.Duration
	DirectoryPageSize     int

	HoldingsFile        string
	DatabaseURL         string
	QuoteWorkerInterval time.Duration

	SheetsSpreadsheetID   string
	GoogleCredentialsJSON string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	return Config{
		HTTPPort:   envOrDefault("HTTP_PORT", "5000"),
		CORSOrigin: envOrDefault("CORS_ORIGIN", "*"),

		CoinGeckoURL:           strings.TrimRight(envOrDefault("COINGECKO_URL", "https://api.coingecko.com/api/v3"), "/"),
		CoinGeckoAPIKey:        os.Getenv("COINGECKO_API_KEY"),
		CoinGeckoTimeout:       envOrDefaultPositiveDuration("COINGECKO_TIMEOUT", 10*time.Second),
		CoinGeckoRatePerMinute: envOrDefaultInt("COINGECKO_RATE_PER_MINUTE", 30),
		VSCurrency:             strings.ToLower(envOrDefault("VS_CURRENCY", "usd")),

		PriceTTL:              envOrDefaultPositiveDuration("PRICE_TTL", 30*time.Second),
		DirectoryTTL:          envOrDefaultPositiveDuration("DIRECTORY_TTL", time.Hour),
		DirectoryRetryBackoff: envOrDefaultDuration("DIRECTORY_RETRY_BACKOFF", time.Minute),
		DirectoryPageSize:     envOrDefaultIntRange("DIRECTORY_PAGE_SIZE", 250, 1, 250),

		HoldingsFile:        envOrDefault("HOLDINGS_FILE", "portfolio.json"),
		DatabaseURL:         os.Getenv("DATABASE_URL"),
		QuoteWorkerInterval: envOrDefaultDuration("QUOTE_WORKER_INTERVAL", 5*time.Minute),

		SheetsSpreadsheetID:   os.Getenv("SHEETS_SPREADSHEET_ID"),
		GoogleCredentialsJSON: os.Getenv("GOOGLE_CREDENTIALS_JSON"),
	}
}

// SheetsEnabled reports whether Google Sheets export is configured.
func (c Config) SheetsEnabled() bool {
	return c.SheetsSpreadsheetID != "" && c.GoogleCredentialsJSON != ""
}

func envOrDefault(key, defaultVal string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return defaultVal
}

func envOrDefaultInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			slog.Warn("invalid integer env var, using default", "key", key, "value", v, "default", defaultVal)
			return defaultVal
		}
		return n
	}
	return defaultVal
}

func envOrDefaultIntRange(key string, defaultVal, lo, hi int) int {
	n := envOrDefaultInt(key, defaultVal)
	if n < lo || n > hi {
		slog.Warn("integer env var out of range, using default", "key", key, "value", n, "min", lo, "max", hi, "default", defaultVal)
		return defaultVal
	}
	return n
}

func envOrDefaultDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			slog.Warn("invalid duration env var, using default", "key", key, "value", v, "default", defaultVal)
			return defaultVal
		}
		return d
	}
	return defaultVal
}

func envOrDefaultPositiveDuration(key string, defaultVal time.Duration) time.Duration {
	d := envOrDefaultDuration(key, defaultVal)
	if d <= 0 {
		slog.Warn("non-positive duration env var, using default", "key", key, "value", d, "default", defaultVal)
		return defaultVal
	}
	return d
}
