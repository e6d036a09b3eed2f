package domain

import (
	"fmt"
	"strings"
	"time"
)

// SubmissionStatusComplete marks a submission created at the Results step.
const SubmissionStatusComplete = "complete"

// MatchSummary is the part of a match result recorded on a submission.
type MatchSummary struct {
	TrialID    string  `json:"trial_id"`
	Percentage float64 `json:"percentage"`
}

// Submission is a completed intake. It is append-only: stores never mutate a
// submission after Append.
type Submission struct {
	ID           string         `json:"id"`
	UserHash     string         `json:"user_hash"`
	Locale       string         `json:"locale"`
	Country      string         `json:"country"`
	Demographics Demographics   `json:"demographics"`
	Answers      AnswerSet      `json:"answers"`
	Matches      []MatchSummary `json:"matches"`
	SubmittedAt  time.Time      `json:"submitted_at"`
	DurationMs   int64          `json:"duration_ms"`
	Status       string         `json:"status"`
}

// Gender returns the gender answer, if one was given.
func (s *Submission) Gender() (string, bool) {
	v, ok := s.Answers[QuestionKeyGender]
	if !ok || v.Type != AnswerEnum {
		return "", false
	}
	return v.Text, true
}

// Age returns the age answer, if one was given.
func (s *Submission) Age() (float64, bool) {
	v, ok := s.Answers[QuestionKeyAge]
	if !ok || v.Type != AnswerNumeric {
		return 0, false
	}
	return v.Number, true
}

// MatchedTrial reports whether the submission was matched to the trial.
func (s *Submission) MatchedTrial(trialID string) bool {
	for _, m := range s.Matches {
		if m.TrialID == trialID {
			return true
		}
	}
	return false
}

// SubmissionFilter selects submissions for analytics. Zero-valued fields
// match everything.
type SubmissionFilter struct {
	From    *time.Time `json:"from,omitempty"` // inclusive
	To      *time.Time `json:"to,omitempty"`   // exclusive
	Gender  string     `json:"gender,omitempty"`
	MinAge  *int       `json:"min_age,omitempty"`
	MaxAge  *int       `json:"max_age,omitempty"`
	Country string     `json:"country,omitempty"`
	TrialID string     `json:"trial_id,omitempty"`
}

// Matches reports whether the submission satisfies every set filter field.
// A submission without a gender or age answer never satisfies a filter on it.
func (f SubmissionFilter) Matches(s *Submission) bool {
	if f.From != nil && s.SubmittedAt.Before(*f.From) {
		return false
	}
	if f.To != nil && !s.SubmittedAt.Before(*f.To) {
		return false
	}
	if f.Gender != "" {
		gender, ok := s.Gender()
		if !ok || !strings.EqualFold(gender, f.Gender) {
			return false
		}
	}
	if f.MinAge != nil || f.MaxAge != nil {
		age, ok := s.Age()
		if !ok {
			return false
		}
		if f.MinAge != nil && age < float64(*f.MinAge) {
			return false
		}
		if f.MaxAge != nil && age > float64(*f.MaxAge) {
			return false
		}
	}
	if f.Country != "" && !strings.EqualFold(s.Country, f.Country) {
		return false
	}
	if f.TrialID != "" && !s.MatchedTrial(f.TrialID) {
		return false
	}
	return true
}

// Validate rejects inverted date and age ranges.
func (f SubmissionFilter) Validate() error {
	if f.From != nil && f.To != nil && !f.From.Before(*f.To) {
		return fmt.Errorf("from must be before to")
	}
	if (f.MinAge != nil && *f.MinAge < 0) || (f.MaxAge != nil && *f.MaxAge < 0) {
		return fmt.Errorf("ages must be non-negative")
	}
	if f.MinAge != nil && f.MaxAge != nil && *f.MinAge > *f.MaxAge {
		return fmt.Errorf("min_age must not exceed max_age")
	}
	return nil
}

// ParseFilterTime accepts RFC 3339 timestamps or YYYY-MM-DD dates (UTC midnight).
func ParseFilterTime(v string) (time.Time, error) {
	t, _, err := parseFilterTime(v)
	return t, err
}

// ParseFilterEnd parses an exclusive upper bound. A YYYY-MM-DD date includes
// that whole day, so it becomes the following UTC midnight.
func ParseFilterEnd(v string) (time.Time, error) {
	t, dateOnly, err := parseFilterTime(v)
	if err != nil || !dateOnly {
		return t, err
	}
	return t.AddDate(0, 0, 1), nil
}

func parseFilterTime(v string) (time.Time, bool, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, false, nil
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("invalid date %q", v)
	}
	return t, true, nil
}
