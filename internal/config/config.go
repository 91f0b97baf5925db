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
	TelegramToken string
	AdminUserIDs  []int64

	// Bot mode configuration
	WebhookMode bool   // If true, use webhook mode; if false, use polling mode
	WebhookURL  string // URL for webhook (required if WebhookMode is true)

	// PostgreSQL configuration
	PostgresHost     string
	PostgresPort     int
	PostgresDatabase string
	PostgresUser     string
	PostgresPassword string
	PostgresSSLMode  string

	// Optional collaborators. Empty RedisAddr keeps flow state in
	// memory; empty NatsURL disables order event publishing.
	RedisAddr string
	NatsURL   string

	FlowTTL time.Duration

	UseMockDB bool
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() (*Config, error) {
	config := &Config{}

	// Telegram Bot Token (required)
	config.TelegramToken = os.Getenv("TELEGRAM_BOT_TOKEN")
	if config.TelegramToken == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}

	// Admin User IDs (required)
	adminIDsStr := os.Getenv("ADMIN_USER_IDS")
	if adminIDsStr == "" {
		return nil, fmt.Errorf("ADMIN_USER_IDS is required (comma-separated list of Telegram user IDs)")
	}

	idStrs := strings.Split(adminIDsStr, ",")
	for _, idStr := range idStrs {
		id, err := strconv.ParseInt(strings.TrimSpace(idStr), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid user ID in ADMIN_USER_IDS: %s", idStr)
		}
		config.AdminUserIDs = append(config.AdminUserIDs, id)
	}

	// Bot mode configuration
	config.WebhookMode = os.Getenv("WEBHOOK_MODE") == "true"
	if config.WebhookMode {
		config.WebhookURL = os.Getenv("WEBHOOK_URL")
		if config.WebhookURL == "" {
			return nil, fmt.Errorf("WEBHOOK_URL is required when WEBHOOK_MODE is true")
		}
	}

	// Use Mock DB (default: false)
	config.UseMockDB = os.Getenv("USE_MOCK_DB") == "true"

	// PostgreSQL configuration (required if not using mock)
	if !config.UseMockDB {
		config.PostgresHost = os.Getenv("POSTGRES_HOST")
		if config.PostgresHost == "" {
			return nil, fmt.Errorf("POSTGRES_HOST is required when USE_MOCK_DB is not set")
		}

		portStr := os.Getenv("POSTGRES_PORT")
		if portStr == "" {
			config.PostgresPort = 5432
		} else {
			port, err := strconv.Atoi(portStr)
			if err != nil {
				return nil, fmt.Errorf("invalid POSTGRES_PORT: %w", err)
			}
			config.PostgresPort = port
		}

		config.PostgresDatabase = os.Getenv("POSTGRES_DB")
		if config.PostgresDatabase == "" {
			config.PostgresDatabase = "panel"
		}

		config.PostgresUser = os.Getenv("POSTGRES_USER")
		if config.PostgresUser == "" {
			config.PostgresUser = "postgres"
		}

		config.PostgresPassword = os.Getenv("POSTGRES_PASSWORD")
		// Password is optional, can be empty

		config.PostgresSSLMode = os.Getenv("POSTGRES_SSLMODE")
		if config.PostgresSSLMode == "" {
			config.PostgresSSLMode = "disable"
		}
	}

	// Optional flow state store and event bus
	config.RedisAddr = os.Getenv("REDIS_ADDR")
	config.NatsURL = os.Getenv("NATS_URL")

	// Idle flow expiry (default 15 minutes)
	ttlStr := os.Getenv("FLOW_TTL_MINUTES")
	if ttlStr == "" {
		config.FlowTTL = 15 * time.Minute
	} else {
		minutes, err := strconv.Atoi(ttlStr)
		if err != nil || minutes <= 0 {
			return nil, fmt.Errorf("invalid FLOW_TTL_MINUTES: %s", ttlStr)
		}
		config.FlowTTL = time.Duration(minutes) * time.Minute
	}

	return config, nil
}

// PostgresDSN builds the connection string for pgx and goose.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.PostgresUser, c.PostgresPassword, c.PostgresHost, c.PostgresPort, c.PostgresDatabase, c.PostgresSSLMode)
}
