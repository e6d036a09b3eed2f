// Environment-only configuration for the MCP server.

package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/trialiq-server/internal/domain"
)

// LiteConfig configures the stdio MCP server. It needs no config file and
// no external services by default.
type LiteConfig struct {
	// Data storage
	DataDir     string // Base directory for data files
	Store       string // Submission store: sqlite, memory or postgres
	DatabaseURL string // PostgreSQL URL when Store is postgres

	// Locales
	DefaultLocale    string
	SupportedLocales []string

	RequireLocalSite bool

	// Logging. Output goes to stderr since stdout carries the protocol.
	LogLevel  string
	LogFormat string
}

// DefaultLiteConfig returns a configuration with sensible defaults.
func DefaultLiteConfig() *LiteConfig {
	homeDir, _ := os.UserHomeDir()
	dataDir := filepath.Join(homeDir, ".trialiq")

	return &LiteConfig{
		DataDir:          dataDir,
		Store:            domain.StoreSQLite,
		DefaultLocale:    "en-US",
		SupportedLocales: []string{"en-US", "fr-FR", "es-ES"},
		LogLevel:         "info",
		LogFormat:        "json",
	}
}

// LoadLiteConfig loads configuration from environment variables.
// Falls back to defaults if not set.
func LoadLiteConfig() *LiteConfig {
	cfg := DefaultLiteConfig()

	if v := os.Getenv("TRIALIQ_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("TRIALIQ_STORE"); v != "" {
		cfg.Store = strings.ToLower(v)
	}
	cfg.DatabaseURL = os.Getenv("TRIALIQ_DATABASE_URL")

	if v := os.Getenv("TRIALIQ_DEFAULT_LOCALE"); v != "" {
		cfg.DefaultLocale = v
	}
	if v := os.Getenv("TRIALIQ_SUPPORTED_LOCALES"); v != "" {
		var locales []string
		for _, l := range strings.Split(v, ",") {
			if l = strings.TrimSpace(l); l != "" {
				locales = append(locales, l)
			}
		}
		if len(locales) > 0 {
			cfg.SupportedLocales = locales
		}
	}
	if v := os.Getenv("TRIALIQ_REQUIRE_LOCAL_SITE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.RequireLocalSite = b
		}
	}

	if v := os.Getenv("TRIALIQ_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("TRIALIQ_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}

	return cfg
}

// SubmissionsDBPath returns the path to the submissions SQLite database.
func (c *LiteConfig) SubmissionsDBPath() string {
	return filepath.Join(c.DataDir, "submissions.db")
}

// ExportDir returns the directory for JSON exports.
func (c *LiteConfig) ExportDir() string {
	return filepath.Join(c.DataDir, "exports")
}

// EnsureDataDir creates the data directory if it doesn't exist.
func (c *LiteConfig) EnsureDataDir() error {
	if err := os.MkdirAll(c.DataDir, 0755); err != nil {
		return err
	}
	return os.MkdirAll(c.ExportDir(), 0755)
}

// Locale returns the locale section equivalent.
func (c *LiteConfig) Locale() domain.LocaleConfig {
	return domain.LocaleConfig{Default: c.DefaultLocale, Supported: c.SupportedLocales}
}

// Logging returns the logging section equivalent.
func (c *LiteConfig) Logging() domain.LoggingConfig {
	return domain.LoggingConfig{Level: c.LogLevel, Format: c.LogFormat, Output: "stderr"}
}

// Matching returns the matching section equivalent.
func (c *LiteConfig) Matching() domain.MatchingConfig {
	return domain.MatchingConfig{RequireLocalSite: c.RequireLocalSite}
}
