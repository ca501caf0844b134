// Package config provides configuration management for the greeting service.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Storage drivers understood by the server
const (
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
	DriverMemory   = "memory"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig
	Storage   StorageConfig
	Database  DatabaseConfig
	Mongo     MongoConfig
	Cache     CacheConfig
	Events    EventsConfig
	RateLimit RateLimitConfig
	Log       LogConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string
	PublicBaseURL  string   // Overrides the request host when building share URLs
	TrustedProxies []string // Proxies allowed to set X-Forwarded-* headers
	Mode           string   // gin mode: release, debug or test
}

// StorageConfig selects the greeting store implementation
type StorageConfig struct {
	Driver string
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	URL                   string
	Host                  string
	Port                  string
	Name                  string
	User                  string
	Password              string
	SSLMode               string
	MaxConnections        int
	MaxIdleConnections    int
	ConnectionMaxLifetime time.Duration
	ConnectTimeout        time.Duration
	HealthTimeout         time.Duration
	AutoMigrate           bool
}

// MongoConfig holds MongoDB connection settings
type MongoConfig struct {
	URI      string
	Database string
}

// CacheConfig holds the Redis read cache settings. An empty Addr disables caching.
type CacheConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// EventsConfig holds the RabbitMQ publisher settings. An empty URL disables publishing.
type EventsConfig struct {
	URL      string
	Exchange string
}

// RateLimitConfig holds per-IP request limits
type RateLimitConfig struct {
	PerMinute       int64
	CreatePerMinute int64
}

// LogConfig holds logger settings
type LogConfig struct {
	Level  string
	Format string // "json" or "console"
}

// Load loads configuration from environment variables.
// A .env file in the working directory is read first when present;
// variables already set in the environment take precedence.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env file: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:           getEnv("PORT", "8080"),
			PublicBaseURL:  strings.TrimSuffix(os.Getenv("PUBLIC_BASE_URL"), "/"),
			TrustedProxies: getEnvAsList("TRUSTED_PROXIES"),
			Mode:           getEnv("GIN_MODE", "release"),
		},
		Storage: StorageConfig{
			Driver: strings.ToLower(getEnv("STORAGE_DRIVER", DriverPostgres)),
		},
		Database: DatabaseConfig{
			URL:                   GetSecret("DATABASE_URL", ""),
			Host:                  getEnv("DB_HOST", "localhost"),
			Port:                  getEnv("DB_PORT", "5432"),
			Name:                  getEnv("DB_NAME", "greetings_dev"),
			User:                  getEnv("DB_USER", "greetings_user"),
			Password:              GetSecret("DB_PASSWORD", "greetings_pass"),
			SSLMode:               getEnv("DB_SSLMODE", "disable"),
			MaxConnections:        getEnvAsInt("DB_MAX_CONNECTIONS", 25),
			MaxIdleConnections:    getEnvAsInt("DB_MAX_IDLE_CONNECTIONS", 5),
			ConnectionMaxLifetime: getEnvAsDuration("DB_CONNECTION_MAX_LIFETIME", "5m"),
			ConnectTimeout:        getEnvAsDuration("DB_CONNECT_TIMEOUT", "5s"),
			HealthTimeout:         getEnvAsDuration("DB_HEALTH_TIMEOUT", "2s"),
			AutoMigrate:           getEnvAsBool("DB_AUTO_MIGRATE", true),
		},
		Mongo: MongoConfig{
			URI:      GetSecret("MONGO_URI", ""),
			Database: getEnv("MONGO_DB", "greetings"),
		},
		Cache: CacheConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: GetSecret("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			TTL:      getEnvAsDuration("CACHE_TTL", "10m"),
		},
		Events: EventsConfig{
			URL:      GetSecret("RABBIT_URL", ""),
			Exchange: getEnv("EVENTS_EXCHANGE", "greetings.events"),
		},
		RateLimit: RateLimitConfig{
			PerMinute:       int64(getEnvAsInt("RATE_LIMIT_PER_MINUTE", 100)),
			CreatePerMinute: int64(getEnvAsInt("CREATE_RATE_LIMIT_PER_MINUTE", 10)),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case DriverPostgres, DriverMemory:
	case DriverMongo:
		if c.Mongo.URI == "" {
			return errors.New("MONGO_URI is required when STORAGE_DRIVER=mongo")
		}
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q (want postgres, mongo or memory)", c.Storage.Driver)
	}

	if c.RateLimit.PerMinute <= 0 {
		return errors.New("RATE_LIMIT_PER_MINUTE must be positive")
	}
	if c.RateLimit.CreatePerMinute <= 0 {
		return errors.New("CREATE_RATE_LIMIT_PER_MINUTE must be positive")
	}

	switch c.Server.Mode {
	case "release", "debug", "test":
	default:
		return fmt.Errorf("unknown GIN_MODE %q (want release, debug or test)", c.Server.Mode)
	}

	if c.Log.Format != "json" && c.Log.Format != "console" {
		return fmt.Errorf("unknown LOG_FORMAT %q (want json or console)", c.Log.Format)
	}
	return nil
}

// ConnectionString returns the database connection string
func (d *DatabaseConfig) ConnectionString() string {
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvAsInt gets an environment variable as an integer or returns a default value
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

// getEnvAsBool gets an environment variable as a boolean or returns a default value
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

// getEnvAsDuration gets an environment variable as a duration or returns a default value
func getEnvAsDuration(key, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		defaultDuration, _ := time.ParseDuration(defaultValue)
		return defaultDuration
	}
	return value
}

// getEnvAsList splits a comma separated variable, dropping empty entries
func getEnvAsList(key string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
