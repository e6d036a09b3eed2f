package domain

import (
	"fmt"
	"time"
)

// Step is a state of the linear intake flow.
type Step int

const (
	StepWelcome Step = iota
	StepConsent
	StepPersonalInfo
	StepQnA
	StepReview
	StepResults
)

var stepNames = [...]string{"welcome", "consent", "personal_info", "qna", "review", "results"}

// Steps lists the flow states in order.
func Steps() []Step {
	return []Step{StepWelcome, StepConsent, StepPersonalInfo, StepQnA, StepReview, StepResults}
}

func (s Step) String() string {
	if s < StepWelcome || s > StepResults {
		return fmt.Sprintf("step(%d)", int(s))
	}
	return stepNames[s]
}

// MarshalText encodes the step by name.
func (s Step) MarshalText() ([]byte, error) {
	if s < StepWelcome || s > StepResults {
		return nil, fmt.Errorf("invalid step %d", int(s))
	}
	return []byte(stepNames[s]), nil
}

// UnmarshalText decodes a step name.
func (s *Step) UnmarshalText(text []byte) error {
	for i, name := range stepNames {
		if name == string(text) {
			*s = Step(i)
			return nil
		}
	}
	return fmt.Errorf("unknown step %q", string(text))
}

// Demographics are the personal details collected at the PersonalInfo step.
type Demographics struct {
	FullName         string `json:"full_name" validate:"required"`
	Email            string `json:"email" validate:"required,email"`
	Phone            string `json:"phone" validate:"required,number,min=7"`
	IdentityDocument string `json:"identity_document" validate:"required"`
}

// Session is the per-participant flow context. It is passed explicitly to the
// flow controller and persisted by a session store between requests.
type Session struct {
	ID           string        `json:"id"`
	Step         Step          `json:"step"`
	Locale       Locale        `json:"locale"`
	Consent      bool          `json:"consent"`
	Demographics Demographics  `json:"demographics"`
	Answers      AnswerSet     `json:"answers"`
	Sealed       bool          `json:"sealed"`
	Results      []MatchResult `json:"results,omitempty"`
	SubmissionID string        `json:"submission_id,omitempty"`
	StartedAt    time.Time     `json:"started_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// NewSession creates a session at the Welcome step.
func NewSession(id string, locale Locale, now time.Time) *Session {
	return &Session{
		ID:        id,
		Step:      StepWelcome,
		Locale:    locale,
		Answers:   AnswerSet{},
		StartedAt: now,
		UpdatedAt: now,
	}
}

// Clone returns a deep copy so stored sessions never share mutable state.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	out.Answers = s.Answers.Clone()
	if s.Results != nil {
		out.Results = make([]MatchResult, len(s.Results))
		for i, r := range s.Results {
			out.Results[i] = r.Clone()
		}
	}
	return &out
}
