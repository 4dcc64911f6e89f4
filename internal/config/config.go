package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/ulule/limiter/v3"
)

// Config holds application configuration
type Config struct {
	DatabaseURL      string
	ServerPort       string
	FrontendURL      string
	OpenAIKey        string
	AIProvider       string
	AIModel          string
	AIVisionModel    string
	AIBaseURL        string
	CollaboratorRate string
	HTTPRate         string
	EnableHSTS       bool
	JWKSURL          string
	JWTIssuer        string
	JWTAudience      string
	RedisURL         string
	RabbitMQURL      string
	RabbitMQPrefetch int
	MaxUploadBytes   int64
	KeywordsFile     string
	WorkerDebugMode  bool
	ServerDebugMode  bool
	OTELEnabled      bool
	OTELEndpoint     string
}

// Load loads configuration from environment variables. Required values are checked by
// ValidateServer and ValidateWorker so the CLI can run without them.
func Load() (*Config, error) {
	return load(os.Getenv)
}

func load(getenv func(string) string) (*Config, error) {
	e := env(getenv)
	cfg := &Config{
		DatabaseURL:      e.get("DATABASE_URL", ""),
		ServerPort:       e.get("SERVER_PORT", "8080"),
		FrontendURL:      e.get("FRONTEND_URL", "http://localhost:3000"),
		OpenAIKey:        e.get("OPENAI_API_KEY", ""),
		AIProvider:       e.get("AI_PROVIDER", "openai"),
		AIModel:          e.get("AI_MODEL", ""),
		AIVisionModel:    e.get("AI_VISION_MODEL", ""),
		AIBaseURL:        e.get("AI_BASE_URL", ""),
		CollaboratorRate: e.get("COLLABORATOR_RATE", "30-M"),
		HTTPRate:         e.get("HTTP_RATE", "5-S"),
		EnableHSTS:       e.getBool("ENABLE_HSTS", false),
		JWKSURL:          e.get("JWKS_URL", ""),
		JWTIssuer:        e.get("JWT_ISSUER", ""),
		JWTAudience:      e.get("JWT_AUDIENCE", ""),
		RedisURL:         e.get("REDIS_URL", "redis://localhost:6379/0"),
		RabbitMQURL:      e.get("RABBITMQ_URL", ""),
		RabbitMQPrefetch: e.getInt("RABBITMQ_PREFETCH", 1),
		MaxUploadBytes:   e.getInt64("MAX_UPLOAD_BYTES", 20<<20),
		KeywordsFile:     e.get("KEYWORDS_FILE", ""),
		WorkerDebugMode:  e.getBool("WORKER_DEBUG_MODE", false),
		ServerDebugMode:  e.getBool("SERVER_DEBUG_MODE", false),
		OTELEnabled:      e.getBool("OTEL_ENABLED", false),
		OTELEndpoint:     e.get("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
	}

	if _, err := limiter.NewRateFromFormatted(cfg.CollaboratorRate); err != nil {
		return nil, fmt.Errorf("invalid COLLABORATOR_RATE %q: %w", cfg.CollaboratorRate, err)
	}
	if _, err := limiter.NewRateFromFormatted(cfg.HTTPRate); err != nil {
		return nil, fmt.Errorf("invalid HTTP_RATE %q: %w", cfg.HTTPRate, err)
	}
	if cfg.MaxUploadBytes <= 0 {
		return nil, fmt.Errorf("MAX_UPLOAD_BYTES must be positive")
	}
	if cfg.RabbitMQPrefetch < 1 {
		cfg.RabbitMQPrefetch = 1
	}

	return cfg, nil
}

// ValidateServer checks the values the HTTP server cannot start without
func (c *Config) ValidateServer() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.RabbitMQURL == "" {
		return fmt.Errorf("RABBITMQ_URL is required for asynchronous imports")
	}
	return nil
}

// ValidateWorker checks the values the import worker cannot start without
func (c *Config) ValidateWorker() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.RabbitMQURL == "" {
		return fmt.Errorf("RABBITMQ_URL is required to consume import jobs")
	}
	return nil
}

type env func(string) string

func (e env) get(key, defaultValue string) string {
	if value := e(key); value != "" {
		return value
	}
	return defaultValue
}

func (e env) getBool(key string, defaultValue bool) bool {
	if value := e(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

func (e env) getInt(key string, defaultValue int) int {
	if value := e(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func (e env) getInt64(key string, defaultValue int64) int64 {
	if value := e(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}
