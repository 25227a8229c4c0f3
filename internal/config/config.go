package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	DatabaseURL string   `env:"DATABASE_URL,required"`
	JWTSecret   string   `env:"JWT_SECRET,required"`
	Port        int      `env:"PORT,default=8080"`
	LogLevel    string   `env:"LOG_LEVEL,default=info"`
	CORSOrigins []string `env:"CORS_ORIGINS"`

	// RedisURL switches the rate limiter to the shared Redis backend.
	// Empty means per-process in-memory buckets.
	RedisURL string `env:"REDIS_URL"`

	// RefreshTokenTTL bounds refresh tokens; access tokens are fixed at
	// 30 minutes and not configurable.
	RefreshTokenTTL time.Duration `env:"REFRESH_TOKEN_TTL,default=720h"`

	// Sustained per-principal request ceiling and burst allowance.
	RateLimitPerSec float64 `env:"RATE_LIMIT_PER_SEC,default=8"`
	RateLimitBurst  int     `env:"RATE_LIMIT_BURST,default=8"`

	// Failed-authentication lockout.
	AuthMaxFailures   int           `env:"AUTH_MAX_FAILURES,default=5"`
	AuthFailureWindow time.Duration `env:"AUTH_FAILURE_WINDOW,default=5m"`
	AuthBlockDuration time.Duration `env:"AUTH_BLOCK_DURATION,default=15m"`

	// HTTP server timeouts
	ReadTimeout  time.Duration `env:"HTTP_READ_TIMEOUT,default=15s"`
	WriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT,default=30s"`
	IdleTimeout  time.Duration `env:"HTTP_IDLE_TIMEOUT,default=60s"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(context.Background(), &cfg); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if len(c.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 bytes, got %d", len(c.JWTSecret))
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535, got %d", c.Port)
	}
	if c.RateLimitPerSec <= 0 {
		return fmt.Errorf("RATE_LIMIT_PER_SEC must be positive, got %v", c.RateLimitPerSec)
	}
	if c.RateLimitBurst < 1 {
		return fmt.Errorf("RATE_LIMIT_BURST must be at least 1, got %d", c.RateLimitBurst)
	}
	if c.RefreshTokenTTL <= 30*time.Minute {
		return fmt.Errorf("REFRESH_TOKEN_TTL must exceed the 30m access token lifetime, got %s", c.RefreshTokenTTL)
	}
	return nil
}
