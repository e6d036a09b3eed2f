package domain

import (
	"context"
	"io"
)

// Translator resolves a localized string for a (locale, key) pair.
type Translator interface {
	Text(locale, key string, args ...any) string
}

// LocaleResolver maps a language/country pair to a supported locale.
// Empty inputs mean "unspecified".
type LocaleResolver interface {
	Resolve(language, country string) Locale
}

// SessionStore keeps in-progress sessions between requests. Get returns
// ErrNotFound for unknown or expired sessions.
type SessionStore interface {
	Get(ctx context.Context, id string) (*Session, error)
	Put(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id string) error
}

// SubmissionStore persists completed submissions. Append and Query are
// serialized against each other so a reader never sees a partial write.
type SubmissionStore interface {
	Append(ctx context.Context, s *Submission) (string, error)
	Query(ctx context.Context, filter SubmissionFilter) ([]*Submission, error)
	Get(ctx context.Context, id string) (*Submission, error)
	Count(ctx context.Context) (int, error)
	ExportJSON(ctx context.Context, w io.Writer) error
	Close() error
}

// ConfigManager defines the interface for configuration management
type ConfigManager interface {
	GetConfig() *Config
	GetDatabaseConfig() *DatabaseConfig
	GetServerConfig() *ServerConfig
	Reload() error
	Validate() error
	GetDatabaseConnectionString() string
	GetDatabaseURL() string
	IsProduction() bool
	IsDevelopment() bool
}
