// Package submission provides the append-only store of completed intakes
// read by the analytics dashboard.
package submission

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/trialiq-server/internal/domain"
)

// exportVersion is the version tag written into JSON exports.
const exportVersion = "1.0"

// Export represents the JSON export format.
type Export struct {
	Version     string               `json:"version"`
	ExportedAt  time.Time            `json:"exported_at"`
	Count       int                  `json:"count"`
	Submissions []*domain.Submission `json:"submissions"`
}

// WriteExport encodes subs in the export format.
func WriteExport(w io.Writer, subs []*domain.Submission) error {
	if subs == nil {
		subs = []*domain.Submission{}
	}
	export := &Export{
		Version:     exportVersion,
		ExportedAt:  time.Now().UTC(),
		Count:       len(subs),
		Submissions: subs,
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(export)
}

// ReadExport decodes an export produced by ExportJSON.
func ReadExport(r io.Reader) (*Export, error) {
	var export Export
	if err := json.NewDecoder(r).Decode(&export); err != nil {
		return nil, fmt.Errorf("failed to decode JSON: %w", err)
	}
	return &export, nil
}

// Placeholder renders the n-th (1-based) bind parameter for a SQL dialect.
type Placeholder func(n int) string

// QuestionMark is the SQLite placeholder style.
func QuestionMark(int) string { return "?" }

// Dollar is the PostgreSQL placeholder style.
func Dollar(n int) string { return fmt.Sprintf("$%d", n) }

// BuildWhere narrows a submissions query by the indexed filter columns. Rows
// it returns must still be passed through filter.Matches, which also covers
// the matched-trial filter kept inside the JSON columns.
func BuildWhere(filter domain.SubmissionFilter, ph Placeholder) (string, []any) {
	var clauses []string
	var args []any

	add := func(clause string, arg any) {
		args = append(args, arg)
		clauses = append(clauses, fmt.Sprintf(clause, ph(len(args))))
	}

	if filter.From != nil {
		add("submitted_at >= %s", filter.From.UTC())
	}
	if filter.To != nil {
		add("submitted_at < %s", filter.To.UTC())
	}
	if filter.Gender != "" {
		add("gender = %s", strings.ToLower(filter.Gender))
	}
	if filter.MinAge != nil {
		add("age >= %s", float64(*filter.MinAge))
	}
	if filter.MaxAge != nil {
		add("age <= %s", float64(*filter.MaxAge))
	}
	if filter.Country != "" {
		add("country = %s", strings.ToUpper(filter.Country))
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// Row is the column form of a submission shared by the SQL stores.
type Row struct {
	ID           string
	UserHash     string
	Locale       string
	Country      string
	Gender       *string
	Age          *float64
	Demographics []byte
	Answers      []byte
	Matches      []byte
	SubmittedAt  time.Time
	DurationMs   int64
	Status       string
}

// ToRow flattens a submission into columns.
func ToRow(s *domain.Submission) (*Row, error) {
	demographics, err := json.Marshal(s.Demographics)
	if err != nil {
		return nil, fmt.Errorf("encoding demographics: %w", err)
	}
	answers, err := json.Marshal(s.Answers)
	if err != nil {
		return nil, fmt.Errorf("encoding answers: %w", err)
	}
	matches := s.Matches
	if matches == nil {
		matches = []domain.MatchSummary{}
	}
	matchJSON, err := json.Marshal(matches)
	if err != nil {
		return nil, fmt.Errorf("encoding matches: %w", err)
	}

	row := &Row{
		ID:           s.ID,
		UserHash:     s.UserHash,
		Locale:       s.Locale,
		Country:      strings.ToUpper(s.Country),
		Demographics: demographics,
		Answers:      answers,
		Matches:      matchJSON,
		SubmittedAt:  s.SubmittedAt.UTC(),
		DurationMs:   s.DurationMs,
		Status:       s.Status,
	}
	if g, ok := s.Gender(); ok {
		lower := strings.ToLower(g)
		row.Gender = &lower
	}
	if a, ok := s.Age(); ok {
		row.Age = &a
	}
	return row, nil
}

// ToSubmission rebuilds a submission from its columns.
func (r *Row) ToSubmission() (*domain.Submission, error) {
	s := &domain.Submission{
		ID:          r.ID,
		UserHash:    r.UserHash,
		Locale:      r.Locale,
		Country:     r.Country,
		SubmittedAt: r.SubmittedAt.UTC(),
		DurationMs:  r.DurationMs,
		Status:      r.Status,
	}
	if err := json.Unmarshal(r.Demographics, &s.Demographics); err != nil {
		return nil, fmt.Errorf("decoding demographics: %w", err)
	}
	if err := json.Unmarshal(r.Answers, &s.Answers); err != nil {
		return nil, fmt.Errorf("decoding answers: %w", err)
	}
	if err := json.Unmarshal(r.Matches, &s.Matches); err != nil {
		return nil, fmt.Errorf("decoding matches: %w", err)
	}
	return s, nil
}

// filterAndSort applies the full filter semantics and orders by submission time.
func filterAndSort(subs []*domain.Submission, filter domain.SubmissionFilter) []*domain.Submission {
	out := make([]*domain.Submission, 0, len(subs))
	for _, s := range subs {
		if filter.Matches(s) {
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].SubmittedAt.Before(out[j].SubmittedAt)
	})
	return out
}

func cloneSubmission(s *domain.Submission) *domain.Submission {
	out := *s
	out.Answers = s.Answers.Clone()
	out.Matches = append([]domain.MatchSummary(nil), s.Matches...)
	return &out
}
