package domain

import "math"

// MatchResult is the evaluation of one trial against an answer set. It is
// computed per request and never persisted in this form.
type MatchResult struct {
	TrialID       string   `json:"trial_id"`
	Title         string   `json:"title"`
	Percentage    float64  `json:"percentage"`
	Met           []string `json:"met"`
	Unmet         []string `json:"unmet"`
	Unknown       []string `json:"unknown"`
	SiteAvailable bool     `json:"site_available"`
	ApplyURL      string   `json:"apply_url,omitempty"`
}

// Percent returns the match percentage rounded to a whole number.
func (m MatchResult) Percent() int {
	return int(math.Round(m.Percentage * 100))
}

// Clone returns a copy with independent criterion slices.
func (m MatchResult) Clone() MatchResult {
	m.Met = append([]string(nil), m.Met...)
	m.Unmet = append([]string(nil), m.Unmet...)
	m.Unknown = append([]string(nil), m.Unknown...)
	return m
}

// Summary reduces the result to what a submission records.
func (m MatchResult) Summary() MatchSummary {
	return MatchSummary{TrialID: m.TrialID, Percentage: m.Percentage}
}
