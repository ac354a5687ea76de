// Package config provides configuration management for the kollects service.
// It loads configuration from environment variables and .env files.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server     ServerConfig
	Storage    StorageConfig
	Ownership  OwnershipConfig
	Pricing    PricingConfig
	Aggregator AggregatorConfig
	RateLimit  RateLimitConfig
	Logging    LoggingConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host string
	Port string
}

// StorageConfig holds purchase record store configuration.
// Backend selects the implementation: "redis" (default) or "postgres".
type StorageConfig struct {
	Backend  string
	Redis    RedisConfig
	Postgres PostgresConfig
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host           string
	Port           string
	Password       string
	DB             int
	MaxConnections int
}

// PostgresConfig holds Postgres configuration
type PostgresConfig struct {
	Host           string
	Port           string
	Database       string
	User           string
	Password       string
	MaxConnections int
}

// OwnershipConfig holds ownership source configuration
type OwnershipConfig struct {
	TopShotURL    string        // primary source, rich metadata
	FlowLookupURL string        // secondary fallback, id + serial only
	Timeout       time.Duration // per-source request timeout
	MaxAttempts   int           // retry attempts against the primary source
}

// PricingConfig holds pricing provider chain configuration
type PricingConfig struct {
	EvaluateURL       string
	EvaluateAPIKey    string
	MomentRanksURL    string
	OTMURL            string
	ProviderOrder     []string // strict priority order for the chain
	Timeout           time.Duration
	RequestsPerSecond float64 // outbound throttle per provider
}

// AggregatorConfig holds snapshot aggregation configuration
type AggregatorConfig struct {
	PriceWorkers   int // bounded pool size for per-item price lookups
	RequestTimeout time.Duration
}

// RateLimitConfig holds inbound API rate limiting configuration
type RateLimitConfig struct {
	RequestsPerSecond int
	Burst             int
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// LoadConfig loads configuration from .env file and environment variables
func LoadConfig() (*Config, error) {
	// Load .env file (optional in production)
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	config := &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: getEnv("SERVER_PORT", "8080"),
		},
		Storage: StorageConfig{
			Backend: getEnv("STORAGE_BACKEND", "redis"),
			Redis: RedisConfig{
				Host:           getEnv("REDIS_HOST", "localhost"),
				Port:           getEnv("REDIS_PORT", "6379"),
				Password:       getEnv("REDIS_PASSWORD", ""),
				DB:             getEnvAsInt("REDIS_DB", 0),
				MaxConnections: getEnvAsInt("REDIS_MAX_CONNECTIONS", 50),
			},
			Postgres: PostgresConfig{
				Host:           getEnv("POSTGRES_HOST", "localhost"),
				Port:           getEnv("POSTGRES_PORT", "5432"),
				Database:       getEnv("POSTGRES_DB", "kollects"),
				User:           getEnv("POSTGRES_USER", "kollects"),
				Password:       getEnv("POSTGRES_PASSWORD", ""),
				MaxConnections: getEnvAsInt("POSTGRES_MAX_CONNECTIONS", 25),
			},
		},
		Ownership: OwnershipConfig{
			TopShotURL:    getEnv("TOPSHOT_API_URL", "https://public-api.nbatopshot.com/graphql"),
			FlowLookupURL: getEnv("FLOW_LOOKUP_URL", "https://flow-lookup.kollects.io"),
			Timeout:       getEnvAsDuration("OWNERSHIP_TIMEOUT", 10*time.Second),
			MaxAttempts:   getEnvAsInt("OWNERSHIP_MAX_ATTEMPTS", 2),
		},
		Pricing: PricingConfig{
			EvaluateURL:       getEnv("EVALUATE_API_URL", "https://api.evaluate.market"),
			EvaluateAPIKey:    getEnv("EVALUATE_API_KEY", ""),
			MomentRanksURL:    getEnv("MOMENTRANKS_API_URL", "https://momentranks.com/api"),
			OTMURL:            getEnv("OTMNFT_API_URL", "https://otmnft.com/api"),
			ProviderOrder:     getEnvAsList("PRICING_PROVIDER_ORDER", "evaluate,momentranks,otmnft"),
			Timeout:           getEnvAsDuration("PRICING_TIMEOUT", 3*time.Second),
			RequestsPerSecond: getEnvAsFloat("PRICING_REQUESTS_PER_SECOND", 5.0),
		},
		Aggregator: AggregatorConfig{
			PriceWorkers:   getEnvAsInt("AGGREGATOR_PRICE_WORKERS", 8),
			RequestTimeout: getEnvAsDuration("AGGREGATOR_REQUEST_TIMEOUT", 30*time.Second),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: getEnvAsInt("RATE_LIMIT_RPS", 20),
			Burst:             getEnvAsInt("RATE_LIMIT_BURST", 40),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// validate checks configuration consistency
func (c *Config) validate() error {
	switch c.Storage.Backend {
	case "redis", "postgres":
	default:
		return fmt.Errorf("invalid STORAGE_BACKEND %q: must be redis or postgres", c.Storage.Backend)
	}

	if c.Aggregator.PriceWorkers < 1 {
		return fmt.Errorf("AGGREGATOR_PRICE_WORKERS must be at least 1")
	}

	if c.Storage.Postgres.MaxConnections < 1 {
		return fmt.Errorf("POSTGRES_MAX_CONNECTIONS must be at least 1")
	}
	if c.Storage.Redis.MaxConnections < 1 {
		return fmt.Errorf("REDIS_MAX_CONNECTIONS must be at least 1")
	}

	for _, name := range c.Pricing.ProviderOrder {
		switch name {
		case "evaluate", "momentranks", "otmnft":
		default:
			return fmt.Errorf("unknown pricing provider %q in PRICING_PROVIDER_ORDER", name)
		}
	}

	return nil
}

// PostgresURL returns the connection URL for migrations
func (p *PostgresConfig) PostgresURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		p.User, p.Password, p.Host, p.Port, p.Database)
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as an integer with a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsFloat gets an environment variable as a float with a default value
func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsDuration gets an environment variable as a duration with a default value
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsList gets a comma-separated environment variable as a string slice
func getEnvAsList(key, defaultValue string) []string {
	raw := strings.Split(getEnv(key, defaultValue), ",")
	values := make([]string, 0, len(raw))
	for _, v := range raw {
		v = strings.TrimSpace(v)
		if v != "" {
			values = append(values, v)
		}
	}
	return values
}
