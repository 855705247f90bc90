// Package config provides application configuration management.
// Configuration is loaded from environment variables following 12-factor principles.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds all application configuration.
// All fields are populated from environment variables.
type Config struct {
	// Application settings
	AppEnv  string `env:"APP_ENV" envDefault:"development"`
	AppPort int    `env:"APP_PORT" envDefault:"8080"`

	// Ledger store (PostgreSQL)
	DatabaseURL string `env:"DATABASE_URL,required"`

	// Cache (Redis) - rate limiting and in-flight edit locks
	RedisURL string `env:"REDIS_URL,required"`

	// Identity provider token verification
	AuthJWTSecret string `env:"AUTH_JWT_SECRET,required"`

	// Image transform provider (Gemini)
	GeminiAPIKey    string        `env:"GEMINI_API_KEY,required"`
	GeminiModel     string        `env:"GEMINI_MODEL" envDefault:"gemini-2.5-flash-image-preview"`
	ProviderTimeout time.Duration `env:"PROVIDER_TIMEOUT" envDefault:"300s"`

	// Credits granted to a newly provisioned user
	SignupCredits int64 `env:"SIGNUP_CREDITS" envDefault:"10"`

	// Webhook shared secrets (HMAC-SHA256)
	IdentityWebhookSecret string `env:"IDENTITY_WEBHOOK_SECRET,required"`
	CheckoutWebhookSecret string `env:"CHECKOUT_WEBHOOK_SECRET,required"`

	// Operator key hash (argon2id PHC string) guarding internal endpoints.
	// Empty disables the internal endpoints entirely.
	OpsKeyHash string `env:"OPS_KEY_HASH" envDefault:""`

	// Alerting webhook for critical ledger conditions (e.g. failed refunds).
	// Empty disables outbound alerts.
	AlertWebhookURL    string `env:"ALERT_WEBHOOK_URL" envDefault:""`
	AlertWebhookSecret string `env:"ALERT_WEBHOOK_SECRET" envDefault:""`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// Server timeouts. The write timeout must exceed the provider timeout or
	// long edits would be cut off mid-response.
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"30s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"320s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`

	// Rate limiting
	RateLimitEditEnabled    bool `env:"RATE_LIMIT_EDIT_ENABLED" envDefault:"true"`
	RateLimitEditPerMinute  int  `env:"RATE_LIMIT_EDIT_PER_MINUTE" envDefault:"10"`
	RateLimitEditBurst      int  `env:"RATE_LIMIT_EDIT_BURST" envDefault:"3"`
	RateLimitWebhookEnabled bool `env:"RATE_LIMIT_WEBHOOK_ENABLED" envDefault:"true"`
	RateLimitWebhookRPS     int  `env:"RATE_LIMIT_WEBHOOK_RPS" envDefault:"20"`
	RateLimitWebhookBurst   int  `env:"RATE_LIMIT_WEBHOOK_BURST" envDefault:"10"`

	// CORS configuration
	// Comma-separated list of allowed origins (e.g., "https://reimaginephotos.app")
	CORSAllowedOrigins string `env:"CORS_ALLOWED_ORIGINS" envDefault:""`

	// Request body size limit in bytes. Images arrive base64-encoded inside
	// JSON, so this has to accommodate a full upload (default 16MB).
	MaxRequestBodySize int64 `env:"MAX_REQUEST_BODY_SIZE" envDefault:"16777216"`

	// Maximum accepted instruction length in characters
	MaxInstructionLength int `env:"MAX_INSTRUCTION_LENGTH" envDefault:"2000"`
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// GetCORSAllowedOrigins parses the comma-separated origins string into a slice.
func (c *Config) GetCORSAllowedOrigins() []string {
	if c.CORSAllowedOrigins == "" {
		return nil
	}

	origins := strings.Split(c.CORSAllowedOrigins, ",")
	result := make([]string, 0, len(origins))

	for _, origin := range origins {
		trimmed := strings.TrimSpace(origin)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}

// Load parses environment variables and returns a Config.
// Returns an error if required variables are missing.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if cfg.WriteTimeout <= cfg.ProviderTimeout {
		return nil, fmt.Errorf("WRITE_TIMEOUT (%s) must exceed PROVIDER_TIMEOUT (%s)", cfg.WriteTimeout, cfg.ProviderTimeout)
	}
	if cfg.SignupCredits < 0 {
		return nil, fmt.Errorf("SIGNUP_CREDITS must not be negative, got %d", cfg.SignupCredits)
	}

	return cfg, nil
}
