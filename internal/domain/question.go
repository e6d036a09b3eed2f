package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// AnswerType is the kind of value a question collects.
type AnswerType string

const (
	AnswerNumeric AnswerType = "numeric"
	AnswerEnum    AnswerType = "enum"
	AnswerBoolean AnswerType = "boolean"
)

// AnswerValue is a typed, validated answer to one question.
type AnswerValue struct {
	Type   AnswerType `json:"type"`
	Number float64    `json:"number,omitempty"`
	Text   string     `json:"text,omitempty"`
	Bool   bool       `json:"bool,omitempty"`
}

// NumberAnswer builds a numeric answer.
func NumberAnswer(n float64) AnswerValue { return AnswerValue{Type: AnswerNumeric, Number: n} }

// EnumAnswer builds an enum answer.
func EnumAnswer(s string) AnswerValue { return AnswerValue{Type: AnswerEnum, Text: s} }

// BoolAnswer builds a boolean answer.
func BoolAnswer(b bool) AnswerValue { return AnswerValue{Type: AnswerBoolean, Bool: b} }

// Raw returns the plain value for display and JSON views.
func (v AnswerValue) Raw() any {
	switch v.Type {
	case AnswerNumeric:
		return v.Number
	case AnswerEnum:
		return v.Text
	default:
		return v.Bool
	}
}

func (v AnswerValue) String() string {
	switch v.Type {
	case AnswerNumeric:
		return formatNumber(v.Number)
	case AnswerEnum:
		return v.Text
	default:
		return strconv.FormatBool(v.Bool)
	}
}

// AnswerSet maps question keys to the participant's answers.
type AnswerSet map[string]AnswerValue

// Clone returns an independent copy of the answer set.
func (a AnswerSet) Clone() AnswerSet {
	out := make(AnswerSet, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// QuestionHint carries presentation and validation metadata for a question key.
type QuestionHint struct {
	PromptKey string   `json:"prompt_key,omitempty"`
	Min       *float64 `json:"min,omitempty"`
	Max       *float64 `json:"max,omitempty"`
	Options   []string `json:"options,omitempty"`
}

// Question is a screening question derived from trial criteria.
type Question struct {
	Key       string     `json:"key"`
	PromptKey string     `json:"prompt_key"`
	Type      AnswerType `json:"type"`
	Min       *float64   `json:"min,omitempty"`
	Max       *float64   `json:"max,omitempty"`
	Options   []string   `json:"options,omitempty"`
}

// Parse converts a raw answer (JSON value or form string) into a typed value,
// enforcing the question's type and validation range.
func (q Question) Parse(raw any) (AnswerValue, error) {
	switch q.Type {
	case AnswerNumeric:
		n, err := toNumber(raw)
		if err != nil {
			return AnswerValue{}, NewAnswerError(q.Key, err.Error(), raw)
		}
		if q.Min != nil && n < *q.Min {
			return AnswerValue{}, NewAnswerError(q.Key, fmt.Sprintf("must be at least %s", formatNumber(*q.Min)), raw)
		}
		if q.Max != nil && n > *q.Max {
			return AnswerValue{}, NewAnswerError(q.Key, fmt.Sprintf("must be at most %s", formatNumber(*q.Max)), raw)
		}
		return NumberAnswer(n), nil

	case AnswerEnum:
		s, ok := raw.(string)
		s = strings.TrimSpace(s)
		if !ok || s == "" {
			return AnswerValue{}, NewAnswerError(q.Key, "a choice is required", raw)
		}
		if len(q.Options) == 0 {
			return EnumAnswer(s), nil
		}
		for _, option := range q.Options {
			if strings.EqualFold(option, s) {
				return EnumAnswer(option), nil
			}
		}
		return AnswerValue{}, NewAnswerError(q.Key, fmt.Sprintf("must be one of %s", strings.Join(q.Options, ", ")), raw)

	case AnswerBoolean:
		b, err := toBool(raw)
		if err != nil {
			return AnswerValue{}, NewAnswerError(q.Key, err.Error(), raw)
		}
		return BoolAnswer(b), nil
	}

	return AnswerValue{}, NewAnswerError(q.Key, fmt.Sprintf("unsupported answer type %q", q.Type), raw)
}

func toNumber(raw any) (float64, error) {
	var n float64
	switch v := raw.(type) {
	case float64:
		n = v
	case float32:
		n = float64(v)
	case int:
		n = float64(v)
	case int64:
		n = float64(v)
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0, fmt.Errorf("not a number")
		}
		n = f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, fmt.Errorf("not a number")
		}
		n = f
	default:
		return 0, fmt.Errorf("not a number")
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, fmt.Errorf("not a finite number")
	}
	return n, nil
}

func toBool(raw any) (bool, error) {
	switch v := raw.(type) {
	case bool:
		return v, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "yes", "y", "1", "on":
			return true, nil
		case "false", "no", "n", "0", "off":
			return false, nil
		}
	}
	return false, fmt.Errorf("must be yes or no")
}
