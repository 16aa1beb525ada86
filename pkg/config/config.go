package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	// Application
	LogLevel string
	HTTPPort string

	// Store
	StoreMode    string // "memory" or "postgres"
	PostgresHost string
	PostgresPort string
	PostgresUser string
	PostgresPass string
	PostgresDB   string
	PostgresSSL  string

	// Events
	EventsMode   string // "console" or "kafka"
	KafkaBrokers []string

	// Wagering policy
	BetsAllowWaiting bool  // accept bets on duels still in waiting status
	OpeningBalance   int64 // balance granted to newly bound accounts, minor units

	// Duel driving
	DuelStartTimeout time.Duration // auto-cancel waiting duels after this; 0 disables

	// HTTP read cache
	DuelCacheTTL time.Duration
}

// LoadFromEnv loads configuration from environment variables with defaults.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		// Application defaults
		LogLevel: getEnvOrDefault("LOG_LEVEL", "info"),
		HTTPPort: getEnvOrDefault("HTTP_PORT", "8080"),

		// Store defaults
		StoreMode:    getEnvOrDefault("STORE_MODE", "memory"),
		PostgresHost: getEnvOrDefault("POSTGRES_HOST", "localhost"),
		PostgresPort: getEnvOrDefault("POSTGRES_PORT", "5432"),
		PostgresUser: getEnvOrDefault("POSTGRES_USER", "duelcore"),
		PostgresPass: getEnvOrDefault("POSTGRES_PASSWORD", "duelcore123"),
		PostgresDB:   getEnvOrDefault("POSTGRES_DB", "duelcore"),
		PostgresSSL:  getEnvOrDefault("POSTGRES_SSLMODE", "disable"),

		// Events defaults
		EventsMode:   getEnvOrDefault("EVENTS_MODE", "console"),
		KafkaBrokers: getListOrDefault("KAFKA_BROKERS", []string{"localhost:9092"}),

		// Policy defaults
		BetsAllowWaiting: getBoolOrDefault("BETS_ALLOW_WAITING", false),
		OpeningBalance:   getInt64OrDefault("OPENING_BALANCE", 1000),

		// Duel driving defaults
		DuelStartTimeout: getDurationOrDefault("DUEL_START_TIMEOUT", 0),

		// Cache defaults
		DuelCacheTTL: getDurationOrDefault("DUEL_CACHE_TTL", 1*time.Second),
	}

	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// Validate checks that configuration values are valid.
func (c *Config) Validate() error {
	if c.HTTPPort == "" {
		return fmt.Errorf("HTTP_PORT cannot be empty")
	}

	if c.StoreMode != "memory" && c.StoreMode != "postgres" {
		return fmt.Errorf("STORE_MODE must be \"memory\" or \"postgres\", got %q", c.StoreMode)
	}

	if c.EventsMode != "console" && c.EventsMode != "kafka" {
		return fmt.Errorf("EVENTS_MODE must be \"console\" or \"kafka\", got %q", c.EventsMode)
	}

	if c.EventsMode == "kafka" && len(c.KafkaBrokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS cannot be empty in kafka events mode")
	}

	if c.OpeningBalance < 0 {
		return fmt.Errorf("OPENING_BALANCE cannot be negative, got %d", c.OpeningBalance)
	}

	if c.DuelStartTimeout < 0 {
		return fmt.Errorf("DUEL_START_TIMEOUT cannot be negative, got %s", c.DuelStartTimeout)
	}

	if c.DuelCacheTTL <= 0 {
		return fmt.Errorf("DUEL_CACHE_TTL must be positive, got %s", c.DuelCacheTTL)
	}

	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getListOrDefault(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func getInt64OrDefault(key string, defaultValue int64) int64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	parsed, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}
