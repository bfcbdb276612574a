package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the application configuration
type Config struct {
	Environment        string
	ServerPort         int
	LogLevel           string
	CORSAllowedOrigins []string

	// Storage selects the persistence backend: "postgres" or "json".
	Storage string
	DataDir string

	PostgresHost     string
	PostgresPort     int
	PostgresUser     string
	PostgresPassword string
	PostgresDatabase string
	PostgresSSLMode  string

	RedisURL string

	JWTSecret string

	// AdminUsername and AdminPassword bootstrap the first admin account when
	// the staff ledger is empty.
	AdminUsername string
	AdminPassword string

	PaymentConfirmDelay time.Duration
	PendingPaymentTTL   time.Duration
	SweepInterval       time.Duration
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	port, err := strconv.Atoi(getEnv("SERVER_PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT: %w", err)
	}

	pgPort, err := strconv.Atoi(getEnv("POSTGRES_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("invalid POSTGRES_PORT: %w", err)
	}

	confirmDelay, err := time.ParseDuration(getEnv("PAYMENT_CONFIRM_DELAY", "3s"))
	if err != nil {
		return nil, fmt.Errorf("invalid PAYMENT_CONFIRM_DELAY: %w", err)
	}

	pendingTTL, err := time.ParseDuration(getEnv("PENDING_PAYMENT_TTL", "2m"))
	if err != nil {
		return nil, fmt.Errorf("invalid PENDING_PAYMENT_TTL: %w", err)
	}

	sweepInterval, err := time.ParseDuration(getEnv("SWEEP_INTERVAL", "30s"))
	if err != nil {
		return nil, fmt.Errorf("invalid SWEEP_INTERVAL: %w", err)
	}

	storage := getEnv("STORAGE", "json")
	if storage != "json" && storage != "postgres" {
		return nil, fmt.Errorf("invalid STORAGE: %q (want json or postgres)", storage)
	}

	return &Config{
		Environment:        getEnv("ENVIRONMENT", "development"),
		ServerPort:         port,
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		CORSAllowedOrigins: parseCSVEnv("CORS_ALLOWED_ORIGINS", []string{
			"http://localhost:5173",
			"http://localhost:3000",
		}),
		Storage:             storage,
		DataDir:             getEnv("DATA_DIR", "./data"),
		PostgresHost:        getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:        pgPort,
		PostgresUser:        getEnv("POSTGRES_USER", "tillpoint"),
		PostgresPassword:    getEnv("POSTGRES_PASSWORD", "dev"),
		PostgresDatabase:    getEnv("POSTGRES_DB", "tillpoint"),
		PostgresSSLMode:     getEnv("POSTGRES_SSLMODE", "disable"),
		RedisURL:            getEnv("REDIS_URL", "redis://localhost:6379"),
		JWTSecret:           getEnv("JWT_SECRET", "dev-secret-change-me"),
		AdminUsername:       getEnv("ADMIN_USERNAME", "admin"),
		AdminPassword:       getEnv("ADMIN_PASSWORD", ""),
		PaymentConfirmDelay: confirmDelay,
		PendingPaymentTTL:   pendingTTL,
		SweepInterval:       sweepInterval,
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseCSVEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			trimmed := strings.TrimSpace(p)
			if trimmed != "" {
				out = append(out, trimmed)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return defaultValue
}
