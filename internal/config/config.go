// Package config loads service configuration from defaults, an optional YAML
// file and TRIALIQ_* environment variables.
package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/viper"

	"github.com/trialiq-server/internal/database"
	"github.com/trialiq-server/internal/domain"
)

// EnvPrefix is the prefix of every environment override, e.g.
// TRIALIQ_SERVER_PORT for server.port.
const EnvPrefix = "TRIALIQ"

// Manager implements the ConfigManager interface using Viper
type Manager struct {
	v          *viper.Viper
	configFile string
	config     *domain.Config
}

// NewManager creates a new configuration manager that searches the standard
// locations for config.yaml.
func NewManager() (*Manager, error) {
	return newManager("")
}

// NewManagerFromFile creates a manager reading the given YAML file.
func NewManagerFromFile(path string) (*Manager, error) {
	return newManager(path)
}

func newManager(path string) (*Manager, error) {
	m := &Manager{configFile: path}
	if err := m.loadConfig(); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return m, nil
}

// loadConfig loads configuration from various sources
func (m *Manager) loadConfig() error {
	v := viper.New()

	if m.configFile != "" {
		v.SetConfigFile(m.configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/trialiq/")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Read configuration file (optional - will use defaults and env vars if not found)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	config := &domain.Config{}
	if err := v.Unmarshal(config); err != nil {
		return fmt.Errorf("error unmarshaling config: %w", err)
	}

	m.v = v
	m.config = config
	return nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.request_timeout", "10s")

	// Submission store defaults
	v.SetDefault("database.driver", domain.StoreSQLite)
	v.SetDefault("database.sqlite_path", "./data/submissions.db")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.database", "trialiq")
	v.SetDefault("database.username", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 1)
	v.SetDefault("database.conn_max_lifetime", "1h")
	v.SetDefault("database.conn_max_idle_time", "30m")
	v.SetDefault("database.migrations_path", "./migrations")

	// Session defaults
	v.SetDefault("session.backend", domain.SessionMemory)
	v.SetDefault("session.redis_url", "redis://localhost:6379/0")
	v.SetDefault("session.key_prefix", "trialiq:session:")
	v.SetDefault("session.ttl", "2h")
	v.SetDefault("session.max_sessions", 10000)

	// Locale defaults
	v.SetDefault("locale.default", "en-US")
	v.SetDefault("locale.supported", []string{"en-US", "fr-FR", "es-ES"})

	// Admin defaults
	v.SetDefault("admin.password", "")
	v.SetDefault("admin.password_hash", "")
	v.SetDefault("admin.token_secret", "")
	v.SetDefault("admin.token_ttl", "8h")
	v.SetDefault("admin.seed_demo_data", false)
	v.SetDefault("admin.seed_demo_count", 50)
	v.SetDefault("admin.login_per_minute", 5)

	v.SetDefault("matching.require_local_site", false)

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests_per_second", 10.0)
	v.SetDefault("rate_limit.burst", 20)

	v.SetDefault("store_breaker.max_requests", 1)
	v.SetDefault("store_breaker.interval", "60s")
	v.SetDefault("store_breaker.timeout", "30s")
	v.SetDefault("store_breaker.failure_threshold", 3)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
}

// GetConfig returns the complete configuration
func (m *Manager) GetConfig() *domain.Config {
	return m.config
}

// GetDatabaseConfig returns database configuration
func (m *Manager) GetDatabaseConfig() *domain.DatabaseConfig {
	return &m.config.Database
}

// GetServerConfig returns server configuration
func (m *Manager) GetServerConfig() *domain.ServerConfig {
	return &m.config.Server
}

// Reload reloads the configuration
func (m *Manager) Reload() error {
	return m.loadConfig()
}

// Validate validates the configuration
func (m *Manager) Validate() error {
	return Validate(m.config)
}

// Validate checks a loaded configuration for values the service cannot run with.
func Validate(config *domain.Config) error {
	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	switch config.Database.Driver {
	case domain.StoreMemory:
	case domain.StoreSQLite:
		if config.Database.SQLitePath == "" {
			return fmt.Errorf("database sqlite_path is required for the sqlite driver")
		}
	case domain.StorePostgres:
		if config.Database.Host == "" {
			return fmt.Errorf("database host is required")
		}
		if config.Database.Database == "" {
			return fmt.Errorf("database name is required")
		}
		if config.Database.Username == "" {
			return fmt.Errorf("database username is required")
		}
	default:
		return fmt.Errorf("unknown database driver: %q", config.Database.Driver)
	}

	switch config.Session.Backend {
	case domain.SessionMemory:
	case domain.SessionRedis:
		if config.Session.RedisURL == "" {
			return fmt.Errorf("session redis_url is required for the redis backend")
		}
	default:
		return fmt.Errorf("unknown session backend: %q", config.Session.Backend)
	}

	if len(config.Locale.Supported) == 0 {
		return fmt.Errorf("at least one supported locale is required")
	}
	if !slices.Contains(config.Locale.Supported, config.Locale.Default) {
		return fmt.Errorf("default locale %q is not in the supported list", config.Locale.Default)
	}

	if config.Admin.TokenSecret == "" {
		return fmt.Errorf("admin token_secret is required")
	}
	if config.Admin.Password == "" && config.Admin.PasswordHash == "" {
		return fmt.Errorf("admin password or password_hash is required")
	}

	if config.RateLimit.Enabled && config.RateLimit.RequestsPerSecond <= 0 {
		return fmt.Errorf("rate_limit.requests_per_second must be positive")
	}

	validLogLevels := map[string]bool{
		"trace": true, "debug": true, "info": true, "warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[strings.ToLower(config.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", config.Logging.Level)
	}

	return nil
}

// GetDatabaseConnectionString returns a formatted database connection string
func (m *Manager) GetDatabaseConnectionString() string {
	return database.ConfigFrom(m.config.Database).DSN()
}

// GetDatabaseURL returns the postgres:// URL used for migrations.
func (m *Manager) GetDatabaseURL() string {
	return database.ConfigFrom(m.config.Database).URL()
}

// IsProduction returns true if running in production mode
func (m *Manager) IsProduction() bool {
	return strings.ToLower(m.config.Environment) == "production"
}

// IsDevelopment returns true if running in development mode
func (m *Manager) IsDevelopment() bool {
	env := strings.ToLower(m.config.Environment)
	return env == "development" || env == "dev" || env == ""
}
