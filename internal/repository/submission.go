// Package repository implements submission persistence on PostgreSQL with pgx.
package repository

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/trialiq-server/internal/domain"
	"github.com/trialiq-server/internal/submission"
)

const submissionColumns = `id, user_hash, locale, country, gender, age,
	demographics, answers, matches, submitted_at, duration_ms, status`

// SubmissionRepository handles submission persistence
type SubmissionRepository struct {
	db  *pgxpool.Pool
	log *logrus.Logger
}

// NewSubmissionRepository creates a new submission repository
func NewSubmissionRepository(db *pgxpool.Pool, logger *logrus.Logger) *SubmissionRepository {
	return &SubmissionRepository{
		db:  db,
		log: logger,
	}
}

// Append inserts a new submission into the database
func (r *SubmissionRepository) Append(ctx context.Context, s *domain.Submission) (string, error) {
	stored := *s
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	row, err := submission.ToRow(&stored)
	if err != nil {
		return "", err
	}

	query := `
		INSERT INTO submissions (` + submissionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err = r.db.Exec(ctx, query,
		row.ID,
		row.UserHash,
		row.Locale,
		row.Country,
		row.Gender,
		row.Age,
		string(row.Demographics),
		string(row.Answers),
		string(row.Matches),
		row.SubmittedAt,
		row.DurationMs,
		row.Status,
	)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"submission_id": row.ID,
			"error":         err,
		}).Error("Failed to create submission")
		return "", fmt.Errorf("creating submission: %w", err)
	}

	r.log.WithFields(logrus.Fields{
		"submission_id": row.ID,
		"locale":        row.Locale,
	}).Debug("Submission created")

	return row.ID, nil
}

func scanRow(row pgx.Row) (*domain.Submission, error) {
	var rec submission.Row
	var demographics, answers, matches string
	err := row.Scan(
		&rec.ID,
		&rec.UserHash,
		&rec.Locale,
		&rec.Country,
		&rec.Gender,
		&rec.Age,
		&demographics,
		&answers,
		&matches,
		&rec.SubmittedAt,
		&rec.DurationMs,
		&rec.Status,
	)
	if err != nil {
		return nil, err
	}
	rec.Demographics = []byte(demographics)
	rec.Answers = []byte(answers)
	rec.Matches = []byte(matches)
	return rec.ToSubmission()
}

// Query retrieves submissions matching the filter, oldest first
func (r *SubmissionRepository) Query(ctx context.Context, filter domain.SubmissionFilter) ([]*domain.Submission, error) {
	where, args := submission.BuildWhere(filter, submission.Dollar)
	query := `SELECT ` + submissionColumns + ` FROM submissions` + where + ` ORDER BY submitted_at ASC`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		r.log.WithError(err).Error("Failed to query submissions")
		return nil, fmt.Errorf("querying submissions: %w", err)
	}
	defer rows.Close()

	var subs []*domain.Submission
	for rows.Next() {
		s, err := scanRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning submission: %w", err)
		}
		if filter.Matches(s) {
			subs = append(subs, s)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating submissions: %w", err)
	}

	return subs, nil
}

// Get retrieves a submission by its ID
func (r *SubmissionRepository) Get(ctx context.Context, id string) (*domain.Submission, error) {
	query := `SELECT ` + submissionColumns + ` FROM submissions WHERE id = $1`

	s, err := scanRow(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("submission not found: %w", domain.ErrNotFound)
		}
		r.log.WithFields(logrus.Fields{
			"submission_id": id,
			"error":         err,
		}).Error("Failed to get submission by ID")
		return nil, fmt.Errorf("getting submission by ID: %w", err)
	}

	return s, nil
}

// Count returns the number of stored submissions
func (r *SubmissionRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM submissions`).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting submissions: %w", err)
	}
	return count, nil
}

// ExportJSON writes all submissions as a JSON export
func (r *SubmissionRepository) ExportJSON(ctx context.Context, w io.Writer) error {
	subs, err := r.Query(ctx, domain.SubmissionFilter{})
	if err != nil {
		return err
	}
	return submission.WriteExport(w, subs)
}

// Close is a no-op: the pool belongs to database.DB.
func (r *SubmissionRepository) Close() error { return nil }
