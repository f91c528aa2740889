package config

import (
	"log/slog"
	"net/netip"
	"strings"
	"testing"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// loadFrom parses cfg from the given variables only, ignoring the real
// process environment.
func loadFrom(t *testing.T, vars map[string]string) (Config, error) {
	t.Helper()
	return load(env.Options{Environment: vars})
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := loadFrom(t, map[string]string{})
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "sqlite://data/accessible.db", cfg.DatabaseURL)
	assert.Equal(t, "http://localhost:3000", cfg.ClientBaseURL)
	assert.Equal(t, "http://localhost:8080/api/google-auth/callback", cfg.GoogleCallbackURL)
	assert.Equal(t, 5*time.Second, cfg.TokenExchangeTimeout)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.CORSAllowedOrigins)
	assert.Empty(t, cfg.TrustedProxies)
	assert.Equal(t, 30, cfg.AuthRatePerMinute)
	assert.False(t, cfg.SecureCookies)
	assert.False(t, cfg.GoogleConfigured())

	assert.True(t, cfg.SecretGenerated)
	assert.Len(t, cfg.SecretKey, 64)

	level, err := cfg.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelInfo, level)
}

func TestLoad_GeneratedSecretsDiffer(t *testing.T) {
	a, _ := loadFrom(t, map[string]string{})
	b, _ := loadFrom(t, map[string]string{})
	assert.NotEqual(t, a.SecretKey, b.SecretKey)
}

func TestLoad_FromEnvironment(t *testing.T) {
	cfg, err := loadFrom(t, map[string]string{
		"PORT":                   "9090",
		"DATABASE_URL":           "postgres://app:pw@db:5432/accessible",
		"SECRET_KEY":             "0123456789abcdef-long-enough",
		"GOOGLE_CLIENT_ID":       "client-id",
		"GOOGLE_CLIENT_SECRET":   "client-secret",
		"CLIENT_BASE_URL":        "https://app.example.com",
		"CORS_ALLOWED_ORIGINS":   "https://app.example.com,https://admin.example.com",
		"TOKEN_EXCHANGE_TIMEOUT": "2500ms",
		"LOG_LEVEL":              "debug",
		"COOKIE_SECURE":          "true",
		"REDIS_URL":              "redis://cache:6379/0",
	})
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "http://localhost:9090/api/google-auth/callback", cfg.GoogleCallbackURL)
	assert.False(t, cfg.SecretGenerated)
	assert.True(t, cfg.GoogleConfigured())
	assert.True(t, cfg.SecureCookies)
	assert.Equal(t, 2500*time.Millisecond, cfg.TokenExchangeTimeout)
	assert.Equal(t, []string{"https://app.example.com", "https://admin.example.com"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, "redis://cache:6379/0", cfg.RedisURL)

	level, _ := cfg.SlogLevel()
	assert.Equal(t, slog.LevelDebug, level)
}

func TestLoad_ExplicitCallbackURL(t *testing.T) {
	cfg, err := loadFrom(t, map[string]string{
		"GOOGLE_CALLBACK_URL": "https://api.example.com/api/google-auth/callback",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com/api/google-auth/callback", cfg.GoogleCallbackURL)
}

func TestLoad_CORSFollowsClientBaseURL(t *testing.T) {
	cfg, err := loadFrom(t, map[string]string{"CLIENT_BASE_URL": "https://app.example.com"})
	require.NoError(t, err)
	assert.Equal(t, []string{"https://app.example.com"}, cfg.CORSAllowedOrigins)
}

func TestLoad_TrustedProxies(t *testing.T) {
	cfg, err := loadFrom(t, map[string]string{"TRUSTED_PROXIES": "10.0.0.0/8,::1/128"})
	require.NoError(t, err)
	assert.Equal(t, []netip.Prefix{
		netip.MustParsePrefix("10.0.0.0/8"),
		netip.MustParsePrefix("::1/128"),
	}, cfg.TrustedProxies)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		vars    map[string]string
		wantErr string
	}{
		{"non-numeric port", map[string]string{"PORT": "eighty"}, "parse env"},
		{"short secret", map[string]string{"SECRET_KEY": "dev"}, "SECRET_KEY"},
		{"bad timeout", map[string]string{"TOKEN_EXCHANGE_TIMEOUT": "soon"}, "parse env"},
		{"zero timeout", map[string]string{"TOKEN_EXCHANGE_TIMEOUT": "0s"}, "TOKEN_EXCHANGE_TIMEOUT"},
		{"bad log level", map[string]string{"LOG_LEVEL": "chatty"}, "LOG_LEVEL"},
		{"bad trusted proxy", map[string]string{"TRUSTED_PROXIES": "10.0.0.1"}, "parse env"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loadFrom(t, tt.vars)
			require.Error(t, err)
			assert.True(t, strings.Contains(err.Error(), tt.wantErr), "error %q should mention %q", err, tt.wantErr)
		})
	}
}
