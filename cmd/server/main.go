// Package main is the entry point for the Accessible Chennai API server.
//
// The main package stays minimal. Its job is to:
// 1. Read configuration (internal/config, from environment variables)
// 2. Create the logger
// 3. Hand both to internal/server and start it
package main

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/sakif/accessible-chennai/internal/config"
	"github.com/sakif/accessible-chennai/internal/server"
)

func main() {
	// === 1. READ CONFIGURATION ===
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// === 2. SET UP LOGGING ===
	// Log levels (from least to most severe): Debug → Info → Warn → Error.
	// LOG_LEVEL picks the minimum; the default is info.
	level, _ := cfg.SlogLevel() // validated by Load
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	if cfg.SecretGenerated {
		logger.Warn("SECRET_KEY not set: using a random key, sessions will not survive a restart")
	}

	// === 3. DATABASE DIRECTORY ===
	// A SQLite file needs its directory to exist (like `mkdir -p`).
	if dir, ok := sqliteDir(cfg.DatabaseURL); ok {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			logger.Error("failed to create database directory",
				slog.String("dir", dir),
				slog.String("error", err.Error()),
			)
			os.Exit(1)
		}
	}

	// === 4. CREATE AND START THE SERVER ===
	srv, err := server.New(cfg, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start() blocks until the server is shut down (via Ctrl+C or SIGTERM)
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// sqliteDir returns the directory of a SQLite database file, or false for
// PostgreSQL and in-memory databases.
func sqliteDir(dsn string) (string, bool) {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return "", false
	}
	path := strings.TrimPrefix(dsn, "sqlite://")
	if path == "" || path == ":memory:" {
		return "", false
	}
	return filepath.Dir(path), true
}
