// Package config loads the server configuration from environment variables.
//
// Every option has a default that works for local development, so the
// server starts with no environment at all: SQLite in ./data, Google
// sign-in disabled, a random session secret.
package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/netip"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// minSecretLen matches auth.NewTokenService.
const minSecretLen = 16

type Config struct {
	Port        int    `env:"PORT" envDefault:"8080"`
	DatabaseURL string `env:"DATABASE_URL" envDefault:"sqlite://data/accessible.db"`
	StaticDir   string `env:"STATIC_DIR"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// SecretKey signs session cookies and the handshake state cookie.
	// When unset a random key is generated, and every restart signs all
	// users out.
	SecretKey       string `env:"SECRET_KEY"`
	SecretGenerated bool   // set by Load, not read from the environment
	SecureCookies   bool   `env:"COOKIE_SECURE" envDefault:"false"`

	GoogleClientID       string        `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret   string        `env:"GOOGLE_CLIENT_SECRET"`
	GoogleCallbackURL    string        `env:"GOOGLE_CALLBACK_URL"` // default derived from Port
	TokenExchangeTimeout time.Duration `env:"TOKEN_EXCHANGE_TIMEOUT" envDefault:"5s"`

	// ClientBaseURL is where the Google callback sends the browser back to.
	ClientBaseURL string `env:"CLIENT_BASE_URL" envDefault:"http://localhost:3000"`

	RedisURL   string `env:"REDIS_URL"`
	AdminToken string `env:"ADMIN_TOKEN"`

	// CORSAllowedOrigins defaults to ClientBaseURL. Only listed origins
	// receive credentialed CORS; "*" opens public reads to any site.
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`
	AuthRatePerMinute  int      `env:"AUTH_RATE_PER_MINUTE" envDefault:"30"`

	// TrustedProxies lists the reverse proxies whose X-Forwarded-For and
	// X-Real-IP headers name the client. Empty means none are trusted.
	TrustedProxies []netip.Prefix `env:"TRUSTED_PROXIES" envSeparator:","`
}

// Load reads the process environment.
func Load() (Config, error) {
	return load(env.Options{})
}

func load(opts env.Options) (Config, error) {
	cfg, err := env.ParseAsWithOptions[Config](opts)
	if err != nil {
		return Config{}, fmt.Errorf("config: parse env: %w", err)
	}

	if len(cfg.CORSAllowedOrigins) == 0 {
		cfg.CORSAllowedOrigins = []string{cfg.ClientBaseURL}
	}
	if cfg.GoogleCallbackURL == "" {
		cfg.GoogleCallbackURL = fmt.Sprintf("http://localhost:%d/api/google-auth/callback", cfg.Port)
	}

	switch {
	case cfg.SecretKey == "":
		secret, err := randomSecret()
		if err != nil {
			return Config{}, err
		}
		cfg.SecretKey = secret
		cfg.SecretGenerated = true
	case len(cfg.SecretKey) < minSecretLen:
		return Config{}, fmt.Errorf("config: SECRET_KEY must be at least %d characters", minSecretLen)
	}

	if cfg.TokenExchangeTimeout <= 0 {
		return Config{}, fmt.Errorf("config: TOKEN_EXCHANGE_TIMEOUT must be positive, got %s", cfg.TokenExchangeTimeout)
	}
	if _, err := cfg.SlogLevel(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// GoogleConfigured reports whether Google sign-in can run.
func (c Config) GoogleConfigured() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != ""
}

// SlogLevel parses LOG_LEVEL.
func (c Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(c.LogLevel))); err != nil {
		return 0, fmt.Errorf("config: LOG_LEVEL: %w", err)
	}
	return level, nil
}

func randomSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("config: generating secret: %w", err)
	}
	return hex.EncodeToString(b), nil
}
