// Package domain contains the core entities of the trial intake service:
// trials and their eligibility criteria, the screening questions derived from
// them, the answers a participant gives, sessions, submissions and match results.
package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// Well-known question keys read by the analytics filters.
const (
	QuestionKeyAge    = "age"
	QuestionKeyGender = "gender"
)

// CriterionKind identifies the predicate a criterion applies to its answer.
type CriterionKind string

const (
	CriterionRange   CriterionKind = "range"
	CriterionEnum    CriterionKind = "enum"
	CriterionBoolean CriterionKind = "boolean"
)

// CriterionStatus is the outcome of evaluating one criterion against an answer set.
type CriterionStatus string

const (
	CriterionMet     CriterionStatus = "met"
	CriterionUnmet   CriterionStatus = "unmet"
	CriterionUnknown CriterionStatus = "unknown"
)

// Criterion is a single eligibility predicate over one question key.
//
// Range criteria are inclusive on both ends; a nil bound is open.
// Enum criteria compare case-insensitively against Allowed.
// Boolean criteria require the answer to equal Want.
type Criterion struct {
	Key     string        `json:"key"`
	Kind    CriterionKind `json:"kind"`
	Min     *float64      `json:"min,omitempty"`
	Max     *float64      `json:"max,omitempty"`
	Allowed []string      `json:"allowed,omitempty"`
	Want    bool          `json:"want,omitempty"`
}

// AtLeast builds a range criterion with only a lower bound.
func AtLeast(key string, min float64) Criterion {
	return Criterion{Key: key, Kind: CriterionRange, Min: &min}
}

// Between builds an inclusive range criterion.
func Between(key string, min, max float64) Criterion {
	return Criterion{Key: key, Kind: CriterionRange, Min: &min, Max: &max}
}

// OneOf builds an enum-membership criterion.
func OneOf(key string, allowed ...string) Criterion {
	return Criterion{Key: key, Kind: CriterionEnum, Allowed: allowed}
}

// Is builds a boolean-equality criterion.
func Is(key string, want bool) Criterion {
	return Criterion{Key: key, Kind: CriterionBoolean, Want: want}
}

// AnswerType returns the answer type a question for this criterion collects.
func (c Criterion) AnswerType() AnswerType {
	switch c.Kind {
	case CriterionRange:
		return AnswerNumeric
	case CriterionEnum:
		return AnswerEnum
	default:
		return AnswerBoolean
	}
}

// Evaluate classifies the criterion against the answer set. An absent answer
// is always unknown, never unmet.
func (c Criterion) Evaluate(answers AnswerSet) CriterionStatus {
	value, ok := answers[c.Key]
	if !ok {
		return CriterionUnknown
	}

	switch c.Kind {
	case CriterionRange:
		if value.Type != AnswerNumeric {
			return CriterionUnmet
		}
		if c.Min != nil && value.Number < *c.Min {
			return CriterionUnmet
		}
		if c.Max != nil && value.Number > *c.Max {
			return CriterionUnmet
		}
		return CriterionMet
	case CriterionEnum:
		if value.Type != AnswerEnum {
			return CriterionUnmet
		}
		for _, allowed := range c.Allowed {
			if strings.EqualFold(allowed, value.Text) {
				return CriterionMet
			}
		}
		return CriterionUnmet
	case CriterionBoolean:
		if value.Type != AnswerBoolean {
			return CriterionUnmet
		}
		if value.Bool == c.Want {
			return CriterionMet
		}
		return CriterionUnmet
	}

	return CriterionUnknown
}

// String renders the criterion for match explanations, e.g. "age >= 50".
func (c Criterion) String() string {
	switch c.Kind {
	case CriterionRange:
		switch {
		case c.Min != nil && c.Max != nil:
			return fmt.Sprintf("%s %s-%s", c.Key, formatNumber(*c.Min), formatNumber(*c.Max))
		case c.Min != nil:
			return fmt.Sprintf("%s >= %s", c.Key, formatNumber(*c.Min))
		case c.Max != nil:
			return fmt.Sprintf("%s <= %s", c.Key, formatNumber(*c.Max))
		default:
			return c.Key + " answered"
		}
	case CriterionEnum:
		return fmt.Sprintf("%s in [%s]", c.Key, strings.Join(c.Allowed, ", "))
	case CriterionBoolean:
		return fmt.Sprintf("%s = %t", c.Key, c.Want)
	}
	return c.Key
}

// Trial is a clinical study with eligibility criteria and site locations.
// Trials are immutable once the catalog is loaded.
type Trial struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Criteria    []Criterion `json:"criteria"`
	Sites       []string    `json:"sites,omitempty"`
	Global      bool        `json:"global"`
	ApplyURL    string      `json:"apply_url"`
}

// HasSiteIn reports whether the trial recruits in the given ISO country code.
func (t Trial) HasSiteIn(country string) bool {
	if t.Global {
		return true
	}
	for _, site := range t.Sites {
		if strings.EqualFold(site, country) {
			return true
		}
	}
	return false
}

// ApplyLink returns the per-country application link for the trial.
func (t Trial) ApplyLink(country string) string {
	suffix := t.ID
	if len(suffix) > 3 {
		suffix = suffix[len(suffix)-3:]
	}
	return fmt.Sprintf("%s/%s_%s", strings.TrimRight(t.ApplyURL, "/"), suffix, strings.ToLower(country))
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
