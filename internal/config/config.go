// Package config provides centralized configuration loaded from
// environment variables. Shared by every scanhub entry point.
package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/SFDataHub/scanhub/internal/scan"
)

// Config holds process-wide settings.
type Config struct {
	// Storage
	DBPath string

	// Traversal bounds for the structural scanners
	ScanNodeLimit    int
	SummaryNodeLimit int

	// Logging
	LogLevel string
	Debug    bool
}

// Load reads configuration from environment variables with sensible
// defaults.
func Load() (*Config, error) {
	return &Config{
		DBPath:           envOr("SCANHUB_DB_PATH", "scanhub.db"),
		ScanNodeLimit:    envInt("SCANHUB_SCAN_NODE_LIMIT", scan.DefaultNodeLimit),
		SummaryNodeLimit: envInt("SCANHUB_SUMMARY_NODE_LIMIT", scan.DefaultCollectLimit),
		LogLevel:         envOr("SCANHUB_LOG_LEVEL", "info"),
		Debug:            envBool("SCANHUB_DEBUG", false),
	}, nil
}

// SlogLevel maps the configured level name to a slog level.
func (c *Config) SlogLevel() slog.Level {
	if c.Debug {
		return slog.LevelDebug
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// --------------------------------------------------------------------------
// Env helpers
// --------------------------------------------------------------------------

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
