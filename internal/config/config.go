package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/richardmarsh-Qdex/football-ticket-booking/internal/cache"
	"github.com/richardmarsh-Qdex/football-ticket-booking/internal/database"
	"github.com/richardmarsh-Qdex/football-ticket-booking/internal/external"
	"github.com/richardmarsh-Qdex/football-ticket-booking/internal/messaging"
	"github.com/richardmarsh-Qdex/football-ticket-booking/internal/service"
)

// Config holds the application configuration
type Config struct {
	Port           string
	GinMode        string
	LogLevel       string
	LogFormat      string
	RequestTimeout time.Duration

	SweepInterval time.Duration

	Database database.Config
	NATS     messaging.Config
	Redis    cache.Config
	Gateway  external.PaymentConfig
	Booking  service.Config
}

// Load reads configuration from environment variables with defaults
func Load() *Config {
	return &Config{
		Port:           getEnv("PORT", "8080"),
		GinMode:        getEnv("GIN_MODE", "debug"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFormat:      getEnv("LOG_FORMAT", "json"),
		RequestTimeout: time.Duration(getEnvInt("REQUEST_TIMEOUT_SEC", 30)) * time.Second,

		SweepInterval: time.Duration(getEnvInt("HOLD_SWEEP_INTERVAL_SEC", 30)) * time.Second,

		Database: database.Config{
			Host:               getEnv("DB_HOST", "localhost"),
			Port:               getEnvInt("DB_PORT", 5432),
			User:               getEnv("DB_USER", "tickets"),
			Password:           getEnv("DB_PASSWORD", "tickets"),
			DBName:             getEnv("DB_NAME", "football_tickets"),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 100),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 25),
			ConnMaxLifetimeMin: getEnvInt("DB_CONN_MAX_LIFETIME_MIN", 5),
			ConnMaxIdleTimeMin: getEnvInt("DB_CONN_MAX_IDLE_TIME_MIN", 1),
		},

		NATS: messaging.Config{
			URL:       getEnv("NATS_URL", "nats://localhost:4222"),
			ClusterID: getEnv("NATS_CLUSTER_ID", "football-tickets"),
			ClientID:  getEnv("NATS_CLIENT_ID", "booking-api"),
		},

		Redis: cache.Config{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			TTL:      time.Duration(getEnvInt("AVAILABILITY_CACHE_TTL_SEC", 30)) * time.Second,
		},

		Gateway: external.PaymentConfig{
			BaseURL: getEnv("PAYMENT_GATEWAY_URL", "https://api.paymentgateway.com"),
			APIKey:  getEnv("PAYMENT_API_KEY", ""),
			Secret:  getEnv("PAYMENT_SECRET", ""),
			Timeout: time.Duration(getEnvInt("PAYMENT_TIMEOUT_SEC", 30)) * time.Second,
		},

		Booking: service.Config{
			FeeRate:        getEnvDecimal("BOOKING_FEE_RATE", "0.15"),
			DiscountCodes:  getEnvCodes("BOOKING_DISCOUNT_CODES", "SAVE10:10,SAVE20:20,VIP50:50"),
			HoldDuration:   time.Duration(getEnvInt("BOOKING_HOLD_MIN", 15)) * time.Minute,
			GatewayTimeout: time.Duration(getEnvInt("PAYMENT_TIMEOUT_SEC", 30)) * time.Second,
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvDecimal(key, defaultValue string) decimal.Decimal {
	if value := os.Getenv(key); value != "" {
		if d, err := decimal.NewFromString(value); err == nil {
			return d
		}
	}
	return decimal.RequireFromString(defaultValue)
}

// getEnvCodes parses a discount table of the form "CODE:percent,CODE:percent".
func getEnvCodes(key, defaultValue string) map[string]int64 {
	raw := getEnv(key, defaultValue)
	codes := make(map[string]int64)
	for _, pair := range strings.Split(raw, ",") {
		parts := strings.SplitN(strings.TrimSpace(pair), ":", 2)
		if len(parts) != 2 {
			continue
		}
		percent, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil || percent < 0 || percent > 100 {
			continue
		}
		codes[parts[0]] = percent
	}
	return codes
}
