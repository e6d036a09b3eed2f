package submission

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"github.com/trialiq-server/internal/domain"
)

// PostgresStore implements domain.SubmissionStore over database/sql and
// lib/pq. It expects the schema to already exist (created via migrations).
// PostgreSQL's own MVCC isolates readers from in-flight inserts.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL submission store.
func NewPostgresStore(db *sql.DB) (*PostgresStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// NewPostgresStoreFromURL creates a new PostgreSQL submission store from a connection URL.
func NewPostgresStoreFromURL(databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	store, err := NewPostgresStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

// Append inserts a submission, assigning an ID if it has none.
func (s *PostgresStore) Append(ctx context.Context, sub *domain.Submission) (string, error) {
	stored := cloneSubmission(sub)
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	row, err := ToRow(stored)
	if err != nil {
		return "", err
	}

	args := insertArgs(row)
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf(insertStatement, placeholders(len(args), Dollar)), args...); err != nil {
		return "", fmt.Errorf("failed to insert: %w", err)
	}
	return row.ID, nil
}

// Query returns the submissions matching the filter, oldest first.
func (s *PostgresStore) Query(ctx context.Context, filter domain.SubmissionFilter) ([]*domain.Submission, error) {
	where, args := BuildWhere(filter, Dollar)

	rows, err := s.db.QueryContext(ctx, selectColumns+where+" ORDER BY submitted_at ASC", args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}
	defer rows.Close()

	var result []*domain.Submission
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		result = append(result, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return filterAndSort(result, filter), nil
}

// Get retrieves one submission by ID.
func (s *PostgresStore) Get(ctx context.Context, id string) (*domain.Submission, error) {
	sub, err := scanSubmission(s.db.QueryRowContext(ctx, selectColumns+" WHERE id = $1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan: %w", err)
	}
	return sub, nil
}

// Count returns the total number of submissions.
func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM submissions").Scan(&count)
	return count, err
}

// ExportJSON exports all submissions to a JSON writer.
func (s *PostgresStore) ExportJSON(ctx context.Context, w io.Writer) error {
	all, err := s.Query(ctx, domain.SubmissionFilter{})
	if err != nil {
		return fmt.Errorf("failed to list submissions: %w", err)
	}
	return WriteExport(w, all)
}

// Close closes the database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
