package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultPort           = "3000"
	defaultGatewayBaseURL = "https://api.flutterwave.com"
	defaultDatabase       = "ghpaylink"
	defaultRedirectURL    = "https://unrivaled-granita-5b2b9b.netlify.app/success.html"
	defaultCurrency       = "GHS"
	defaultGatewayTimeout = 30 * time.Second
)

// Config is built once at startup and handed to every component that needs it.
type Config struct {
	Port string

	GatewaySecretKey  string
	WebhookSecretHash string
	GatewayBaseURL    string
	GatewayTimeout    time.Duration

	StorageURI string
	Database   string

	RedirectURL   string
	AllowedOrigin string
	Currency      string

	LogLevel string

	// notices are problems found while loading, reported through Warnings.
	notices []string
}

// Load reads an optional .env file and then builds the Config from the
// process environment.
func Load(envFile string) *Config {
	var notices []string
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			notices = append(notices, fmt.Sprintf("Error loading %s: %s", envFile, err))
		}
	}
	cfg := FromEnv()
	cfg.notices = append(notices, cfg.notices...)
	return cfg
}

// FromEnv builds the Config from the process environment only.
func FromEnv() *Config {
	var notices []string
	timeout, err := GetEnvAsDuration("GATEWAY_TIMEOUT", defaultGatewayTimeout)
	if err != nil {
		notices = append(notices, err.Error())
	}

	return &Config{
		Port:              GetEnv("PORT", defaultPort),
		GatewaySecretKey:  GetEnv("FLW_SECRET_KEY", ""),
		WebhookSecretHash: GetEnv("FLW_SECRET_HASH", ""),
		GatewayBaseURL:    strings.TrimRight(GetEnv("FLW_BASE_URL", defaultGatewayBaseURL), "/"),
		GatewayTimeout:    timeout,
		StorageURI:        firstEnv("MONGO_URI", "MONGODB_URI", "DATABASE_URL"),
		Database:          GetEnv("MONGO_DATABASE", defaultDatabase),
		RedirectURL:       GetEnv("FRONTEND_SUCCESS_URL", defaultRedirectURL),
		AllowedOrigin:     GetEnv("FRONTEND_URL", ""),
		Currency:          strings.ToUpper(GetEnv("DEFAULT_CURRENCY", defaultCurrency)),
		LogLevel:          GetEnv("LOG_LEVEL", "info"),
		notices:           notices,
	}
}

// Warnings lists loading problems and required settings that are missing.
// None of them stop the process; health checks must keep answering.
func (c *Config) Warnings() []string {
	warnings := append([]string(nil), c.notices...)
	if c.GatewaySecretKey == "" {
		warnings = append(warnings, "FLW_SECRET_KEY is missing, payment initiation will fail")
	}
	if c.WebhookSecretHash == "" {
		warnings = append(warnings, "FLW_SECRET_HASH is missing, every webhook will be rejected")
	}
	if c.StorageURI == "" {
		warnings = append(warnings, "no storage URI set (MONGO_URI, MONGODB_URI or DATABASE_URL; mongodb:// or postgres://), transactions cannot be stored")
	}
	if c.AllowedOrigin == "" {
		warnings = append(warnings, "FRONTEND_URL is not set, CORS allows any origin")
	}
	return warnings
}

// UsesPostgres reports whether the storage URI points at PostgreSQL rather
// than MongoDB.
func (c *Config) UsesPostgres() bool {
	uri := strings.ToLower(c.StorageURI)
	return strings.HasPrefix(uri, "postgres://") || strings.HasPrefix(uri, "postgresql://")
}

// GetEnv returns the value of key or defaultValue when it is unset or empty.
func GetEnv(key, defaultValue string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	return value
}

// GetEnvAsDuration parses key as a time.Duration ("30s", "2m"). Bare integers
// are taken as seconds. An invalid value yields defaultValue and an error
// describing the fallback.
func GetEnvAsDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	valueStr := GetEnv(key, "")
	if valueStr == "" {
		return defaultValue, nil
	}
	if d, err := time.ParseDuration(valueStr); err == nil {
		return d, nil
	}
	if d, err := time.ParseDuration(valueStr + "s"); err == nil {
		return d, nil
	}
	return defaultValue, fmt.Errorf("invalid duration value %q for %s, using default: %s", valueStr, key, defaultValue)
}

func firstEnv(keys ...string) string {
	for _, key := range keys {
		if value := GetEnv(key, ""); value != "" {
			return value
		}
	}
	return ""
}
