package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/username/pitfolio/src/models"
)

type AppConfig struct {
	LogLevel  string
	LogFormat string

	TaxYear       int    // 0 keeps every year found in the statement
	LocalCurrency string // Currency of the return

	NBPBaseURL            string
	HTTPTimeout           time.Duration
	FeedRequestsPerSecond float64

	InstrumentCatalogPath   string // xlsx or csv export of the broker's instrument list
	InstrumentCatalogURL    string // JSON catalog, used when no file is given
	InstrumentSearchURL     string
	InstrumentSearchEnabled bool

	TaxPolicyPath string

	// Per call site behaviour for instruments nobody knows.
	TradeResolveMode    models.ResolveMode
	DividendResolveMode models.ResolveMode
}

var Cfg *AppConfig

// LoadConfig reads .env (when present) and the process environment.
func LoadConfig() *AppConfig {
	errEnv := godotenv.Load()
	if errEnv != nil {
		log.Println("Info: No .env file found or error loading .env file. Relying on OS environment variables and defaults.")
	} else {
		log.Println(".env file loaded successfully.")
	}

	Cfg = &AppConfig{
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),

		TaxYear:       getEnvAsInt("TAX_YEAR", 0),
		LocalCurrency: strings.ToUpper(getEnv("LOCAL_CURRENCY", "PLN")),

		NBPBaseURL:            getEnv("NBP_BASE_URL", "https://api.nbp.pl/api"),
		HTTPTimeout:           getEnvAsDuration("HTTP_TIMEOUT", 20*time.Second),
		FeedRequestsPerSecond: getEnvAsFloat("FEED_REQUESTS_PER_SECOND", 4),

		InstrumentCatalogPath:   getEnv("INSTRUMENT_CATALOG_PATH", "data/instruments.xlsx"),
		InstrumentCatalogURL:    getEnv("INSTRUMENT_CATALOG_URL", ""),
		InstrumentSearchURL:     getEnv("INSTRUMENT_SEARCH_URL", "https://query1.finance.yahoo.com/v1/finance/search"),
		InstrumentSearchEnabled: getEnvAsBool("INSTRUMENT_SEARCH_ENABLED", true),

		TaxPolicyPath: getEnv("TAX_POLICY_PATH", ""),

		TradeResolveMode:    getEnvAsResolveMode("TRADE_RESOLVE_MODE", models.ResolveStrict),
		DividendResolveMode: getEnvAsResolveMode("DIVIDEND_RESOLVE_MODE", models.ResolveStrict),
	}

	log.Printf("Configuration loaded: TaxYear=%d, LocalCurrency=%s, LogLevel=%s, Catalog=%s",
		Cfg.TaxYear, Cfg.LocalCurrency, Cfg.LogLevel, Cfg.InstrumentCatalogPath)
	return Cfg
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	log.Printf("Invalid integer value for %s ('%s'), using default: %d", key, valueStr, fallback)
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	log.Printf("Invalid number for %s ('%s'), using default: %g", key, valueStr, fallback)
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	log.Printf("Invalid boolean for %s ('%s'), using default: %t", key, valueStr, fallback)
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	log.Printf("Invalid duration value for %s ('%s'), using default: %s", key, valueStr, fallback.String())
	return fallback
}

func getEnvAsResolveMode(key string, fallback models.ResolveMode) models.ResolveMode {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	mode, err := ParseResolveMode(valueStr)
	if err != nil {
		log.Printf("Invalid resolve mode for %s ('%s'), using default: %s", key, valueStr, fallback)
		return fallback
	}
	return mode
}

// ParseResolveMode accepts "strict" or "tolerant".
func ParseResolveMode(s string) (models.ResolveMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "strict":
		return models.ResolveStrict, nil
	case "tolerant":
		return models.ResolveTolerant, nil
	}
	return models.ResolveStrict, &InvalidValueError{Field: "resolve mode", Value: s}
}
