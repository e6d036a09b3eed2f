package service

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/trialiq-server/internal/domain"
)

// Finalizer runs when a session confirms its review: it computes matches and
// persists the submission. A failed Finalize leaves the session in Review.
type Finalizer interface {
	Finalize(ctx context.Context, s *domain.Session) (results []domain.MatchResult, submissionID string, err error)
}

// FinalizerFunc adapts a function to Finalizer.
type FinalizerFunc func(ctx context.Context, s *domain.Session) ([]domain.MatchResult, string, error)

// Finalize calls f.
func (f FinalizerFunc) Finalize(ctx context.Context, s *domain.Session) ([]domain.MatchResult, string, error) {
	return f(ctx, s)
}

// FlowController is the linear intake state machine. It holds no per-user
// state: every operation acts on the session passed to it.
type FlowController struct {
	logger    *logrus.Logger
	questions []domain.Question
	byKey     map[string]int
	finalizer Finalizer
	validate  *validator.Validate
	now       func() time.Time
}

// NewFlowController creates a controller asking the given questions.
func NewFlowController(logger *logrus.Logger, questions []domain.Question, finalizer Finalizer) *FlowController {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	byKey := make(map[string]int, len(questions))
	for i, q := range questions {
		byKey[q.Key] = i
	}

	return &FlowController{
		logger:    logger,
		questions: questions,
		byKey:     byKey,
		finalizer: finalizer,
		validate:  v,
		now:       time.Now,
	}
}

// Questions returns the questionnaire in presentation order.
func (f *FlowController) Questions() []domain.Question {
	out := make([]domain.Question, len(f.questions))
	copy(out, f.questions)
	return out
}

// Question looks up a question by key.
func (f *FlowController) Question(key string) (domain.Question, bool) {
	i, ok := f.byKey[key]
	if !ok {
		return domain.Question{}, false
	}
	return f.questions[i], true
}

// Advance moves the session one step forward after checking that step's gate.
func (f *FlowController) Advance(ctx context.Context, s *domain.Session) error {
	from := s.Step

	switch s.Step {
	case domain.StepWelcome:
		s.Step = domain.StepConsent

	case domain.StepConsent:
		if !s.Consent {
			return domain.ErrConsentRequired
		}
		s.Step = domain.StepPersonalInfo

	case domain.StepPersonalInfo:
		if err := f.ValidateDemographics(s.Demographics); err != nil {
			return err
		}
		s.Step = domain.StepQnA

	case domain.StepQnA:
		s.Step = domain.StepReview

	case domain.StepReview:
		if !s.Consent {
			return domain.ErrConsentRequired
		}
		if err := f.ValidateDemographics(s.Demographics); err != nil {
			return err
		}
		results, submissionID, err := f.finalizer.Finalize(ctx, s)
		if err != nil {
			f.logger.WithError(err).WithField("session_id", s.ID).Warn("Finalizing review failed, session kept in review")
			return err
		}
		s.Sealed = true
		s.Results = results
		s.SubmissionID = submissionID
		s.Step = domain.StepResults

	default:
		return fmt.Errorf("%w: cannot advance from %s", domain.ErrInvalidTransition, s.Step)
	}

	s.UpdatedAt = f.now()
	f.logger.WithFields(logrus.Fields{
		"session_id": s.ID,
		"from":       from.String(),
		"to":         s.Step.String(),
	}).Debug("Session advanced")
	return nil
}

// Back moves the session exactly one step backward, keeping entered data.
// Welcome has nothing before it and Results is terminal.
func (f *FlowController) Back(s *domain.Session) error {
	if s.Step == domain.StepWelcome || s.Step == domain.StepResults {
		return fmt.Errorf("%w: cannot go back from %s", domain.ErrInvalidTransition, s.Step)
	}
	s.Step--
	s.UpdatedAt = f.now()
	return nil
}

// Reset discards everything held by the session and returns it to Welcome.
// The locale is kept.
func (f *FlowController) Reset(s *domain.Session) {
	now := f.now()
	*s = domain.Session{
		ID:        s.ID,
		Step:      domain.StepWelcome,
		Locale:    s.Locale,
		Answers:   domain.AnswerSet{},
		StartedAt: now,
		UpdatedAt: now,
	}
}

// SetConsent records the consent flag. Only allowed in the Consent step.
func (f *FlowController) SetConsent(s *domain.Session, consent bool) error {
	if err := expectStep(s, domain.StepConsent); err != nil {
		return err
	}
	s.Consent = consent
	s.UpdatedAt = f.now()
	return nil
}

// SetDemographics records personal details. Only allowed in the PersonalInfo
// step. Values are stored even when incomplete; Advance enforces completeness.
func (f *FlowController) SetDemographics(s *domain.Session, d domain.Demographics) error {
	if err := expectStep(s, domain.StepPersonalInfo); err != nil {
		return err
	}
	s.Demographics = domain.Demographics{
		FullName:         strings.TrimSpace(d.FullName),
		Email:            strings.TrimSpace(d.Email),
		Phone:            normalizePhone(d.Phone),
		IdentityDocument: strings.TrimSpace(d.IdentityDocument),
	}
	s.UpdatedAt = f.now()
	return nil
}

// Answer validates and records one answer. Only allowed in the QnA step and
// never after the answers are sealed.
func (f *FlowController) Answer(s *domain.Session, key string, raw any) error {
	if err := expectStep(s, domain.StepQnA); err != nil {
		return err
	}
	if s.Sealed {
		return fmt.Errorf("%w: answers are sealed", domain.ErrInvalidTransition)
	}

	q, ok := f.Question(key)
	if !ok {
		return domain.NewAnswerError(key, "unknown question", raw)
	}
	value, err := q.Parse(raw)
	if err != nil {
		return err
	}

	if s.Answers == nil {
		s.Answers = domain.AnswerSet{}
	}
	s.Answers[key] = value
	s.UpdatedAt = f.now()
	return nil
}

// ClearAnswer removes an answer so the criteria that use it become unknown.
func (f *FlowController) ClearAnswer(s *domain.Session, key string) error {
	if err := expectStep(s, domain.StepQnA); err != nil {
		return err
	}
	if s.Sealed {
		return fmt.Errorf("%w: answers are sealed", domain.ErrInvalidTransition)
	}
	delete(s.Answers, key)
	s.UpdatedAt = f.now()
	return nil
}

// Progress returns the completed fraction of the flow, 0 at Welcome and 1 at Results.
func (f *FlowController) Progress(s *domain.Session) float64 {
	return float64(s.Step) / float64(domain.StepResults)
}

// ValidateDemographics returns an IncompleteError naming each missing or
// malformed field.
func (f *FlowController) ValidateDemographics(d domain.Demographics) error {
	err := f.validate.Struct(d)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validating demographics: %w", err)
	}
	missing := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		missing = append(missing, fe.Field())
	}
	return &domain.IncompleteError{Missing: missing}
}

func expectStep(s *domain.Session, want domain.Step) error {
	if s.Step != want {
		return fmt.Errorf("%w: expected step %s, session is at %s", domain.ErrInvalidTransition, want, s.Step)
	}
	return nil
}

func normalizePhone(phone string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '.', '(', ')', '+':
			return -1
		}
		return r
	}, strings.TrimSpace(phone))
}
