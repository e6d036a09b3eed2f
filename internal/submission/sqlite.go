package submission

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/trialiq-server/internal/domain"
)

const selectColumns = `
	SELECT id, user_hash, locale, country, gender, age,
		demographics, answers, matches, submitted_at, duration_ms, status
	FROM submissions`

const insertStatement = `
	INSERT INTO submissions (
		id, user_hash, locale, country, gender, age,
		demographics, answers, matches, submitted_at, duration_ms, status
	) VALUES (%s)`

// SQLiteStore implements domain.SubmissionStore using SQLite.
type SQLiteStore struct {
	mu     sync.RWMutex
	db     *sql.DB
	dbPath string
}

// NewSQLiteStore creates a new SQLite submission store.
// It creates the database file and schema if they don't exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	store, err := newSQLiteStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	store.dbPath = dbPath
	return store, nil
}

func newSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	if err := createSchema(db); err != nil {
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// createSchema creates the database tables and indexes.
func createSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS submissions (
		id TEXT PRIMARY KEY,
		user_hash TEXT NOT NULL,
		locale TEXT NOT NULL,
		country TEXT NOT NULL DEFAULT '',
		gender TEXT,
		age REAL,
		demographics TEXT NOT NULL,
		answers TEXT NOT NULL,
		matches TEXT NOT NULL,
		submitted_at DATETIME NOT NULL,
		duration_ms INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_submissions_submitted_at ON submissions(submitted_at);
	CREATE INDEX IF NOT EXISTS idx_submissions_country ON submissions(country);
	`

	_, err := db.Exec(schema)
	return err
}

// scanner is an interface for sql.Row and sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanSubmission(s scanner) (*domain.Submission, error) {
	var (
		row                            Row
		gender                         sql.NullString
		age                            sql.NullFloat64
		demographics, answers, matches string
	)
	err := s.Scan(
		&row.ID, &row.UserHash, &row.Locale, &row.Country, &gender, &age,
		&demographics, &answers, &matches, &row.SubmittedAt, &row.DurationMs, &row.Status,
	)
	if err != nil {
		return nil, err
	}
	if gender.Valid {
		row.Gender = &gender.String
	}
	if age.Valid {
		row.Age = &age.Float64
	}
	row.Demographics = []byte(demographics)
	row.Answers = []byte(answers)
	row.Matches = []byte(matches)
	return row.ToSubmission()
}

func insertArgs(row *Row) []any {
	var gender, age any
	if row.Gender != nil {
		gender = *row.Gender
	}
	if row.Age != nil {
		age = *row.Age
	}
	return []any{
		row.ID, row.UserHash, row.Locale, row.Country, gender, age,
		string(row.Demographics), string(row.Answers), string(row.Matches),
		row.SubmittedAt, row.DurationMs, row.Status,
	}
}

func placeholders(n int, ph Placeholder) string {
	out := ""
	for i := 1; i <= n; i++ {
		if i > 1 {
			out += ", "
		}
		out += ph(i)
	}
	return out
}

// Append inserts a submission, assigning an ID if it has none.
func (s *SQLiteStore) Append(ctx context.Context, sub *domain.Submission) (string, error) {
	stored := cloneSubmission(sub)
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	row, err := ToRow(stored)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	args := insertArgs(row)
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf(insertStatement, placeholders(len(args), QuestionMark)), args...); err != nil {
		return "", fmt.Errorf("failed to insert: %w", err)
	}
	return row.ID, nil
}

// Query returns the submissions matching the filter, oldest first.
func (s *SQLiteStore) Query(ctx context.Context, filter domain.SubmissionFilter) ([]*domain.Submission, error) {
	where, args := BuildWhere(filter, QuestionMark)

	s.mu.RLock()
	defer s.mu.RUnlock()

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
func (s *SQLiteStore) Get(ctx context.Context, id string) (*domain.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sub, err := scanSubmission(s.db.QueryRowContext(ctx, selectColumns+" WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan: %w", err)
	}
	return sub, nil
}

// Count returns the total number of submissions.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM submissions").Scan(&count)
	return count, err
}

// ExportJSON exports all submissions to a JSON writer.
func (s *SQLiteStore) ExportJSON(ctx context.Context, w io.Writer) error {
	all, err := s.Query(ctx, domain.SubmissionFilter{})
	if err != nil {
		return fmt.Errorf("failed to list submissions: %w", err)
	}
	return WriteExport(w, all)
}

// Close closes the store and releases resources.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
