package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	App      AppConfig
	Server   ServerConfig
	Database DatabaseConfig
	Logger   LoggerConfig
	Auth     AuthConfig
	Provider ProviderConfig
	Webhook  WebhookConfig
	Dispatch DispatchConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
}

// AppConfig holds environment-wide settings.
type AppConfig struct {
	Env string // "dev" or "prod"
}

// ServerConfig holds server-related configuration.
type ServerConfig struct {
	Host string
	Port int
}

// DatabaseConfig holds database-related configuration.
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	MaxConnections  int
	MinConnections  int
	MaxConnLifetime int // seconds
}

// LoggerConfig holds logger-related configuration.
type LoggerConfig struct {
	Level  string
	Format string // "json" or "console"
}

// AuthConfig holds authentication configuration for admin routes.
type AuthConfig struct {
	APIKey string
}

// ProviderConfig holds payment-provider configuration.
type ProviderConfig struct {
	BaseURL       string
	AccessToken   string
	PublicBaseURL string // https base used to rewrite unsafe back-urls
}

// WebhookConfig holds inbound webhook configuration.
type WebhookConfig struct {
	Secret string
}

// DispatchConfig holds downstream automation dispatch configuration.
type DispatchConfig struct {
	URL    string
	Token  string
	Secret string
}

// RedisConfig holds the optional redis cache configuration.
type RedisConfig struct {
	Addr string // empty disables redis
}

// KafkaConfig holds the optional event broker configuration.
type KafkaConfig struct {
	Brokers []string // empty disables event publishing
}

// Load loads configuration from the environment, reading a .env file first
// when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		App: AppConfig{
			Env: getEnv("APP_ENV", "dev"),
		},
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: getEnvAsInt("SERVER_PORT", 8080),
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnvAsInt("DB_PORT", 5432),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", ""),
			Database:        getEnv("DB_NAME", "loja"),
			MaxConnections:  getEnvAsInt("DB_MAX_CONNECTIONS", 25),
			MinConnections:  getEnvAsInt("DB_MIN_CONNECTIONS", 5),
			MaxConnLifetime: getEnvAsInt("DB_MAX_CONN_LIFETIME", 300),
		},
		Logger: LoggerConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Auth: AuthConfig{
			APIKey: getEnv("API_KEY", ""),
		},
		Provider: ProviderConfig{
			BaseURL:       getEnv("MP_BASE_URL", "https://api.mercadopago.com"),
			AccessToken:   getEnv("MP_ACCESS_TOKEN", ""),
			PublicBaseURL: getEnv("PUBLIC_BASE_URL", ""),
		},
		Webhook: WebhookConfig{
			Secret: getEnv("WEBHOOK_SECRET", ""),
		},
		Dispatch: DispatchConfig{
			URL:    getEnv("DISPATCH_URL", ""),
			Token:  getEnv("DISPATCH_TOKEN", ""),
			Secret: getEnv("DISPATCH_SECRET", ""),
		},
		Redis: RedisConfig{
			Addr: getEnv("REDIS_ADDR", ""),
		},
		Kafka: KafkaConfig{
			Brokers: splitCSV(getEnv("KAFKA_BROKERS", "")),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// IsDev reports whether the application runs in development mode.
func (c *Config) IsDev() bool {
	return c.App.Env == "dev"
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.App.Env != "dev" && c.App.Env != "prod" {
		return fmt.Errorf("invalid app env: %s (must be dev or prod)", c.App.Env)
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("invalid database port: %d", c.Database.Port)
	}

	if c.Database.User == "" {
		return fmt.Errorf("database user is required")
	}

	if c.Database.Database == "" {
		return fmt.Errorf("database name is required")
	}

	if c.Database.MaxConnections < 1 {
		return fmt.Errorf("database max connections must be at least 1")
	}

	if c.Database.MinConnections < 1 {
		return fmt.Errorf("database min connections must be at least 1")
	}

	if c.Database.MinConnections > c.Database.MaxConnections {
		return fmt.Errorf("database min connections cannot exceed max connections")
	}

	if c.Auth.APIKey == "" {
		return fmt.Errorf("API key is required")
	}

	// Unsigned webhooks are only tolerated in dev; in prod a missing secret
	// would silently accept forged payment notifications.
	if c.Webhook.Secret == "" && !c.IsDev() {
		return fmt.Errorf("webhook secret is required outside dev")
	}

	if c.Provider.PublicBaseURL != "" && !strings.HasPrefix(c.Provider.PublicBaseURL, "https://") {
		return fmt.Errorf("public base URL must be https, got %s", c.Provider.PublicBaseURL)
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}

	if !validLogLevels[c.Logger.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Logger.Format != "json" && c.Logger.Format != "console" {
		return fmt.Errorf("invalid log format: %s (must be json or console)", c.Logger.Format)
	}

	return nil
}

// ConnectionString returns the PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.User,
		c.Password,
		c.Host,
		c.Port,
		c.Database,
	)
}

// Address returns the server address.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value.
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// splitCSV splits a comma-separated list, dropping empty entries.
func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
