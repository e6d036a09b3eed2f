package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"hash/fnv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/trialiq-server/internal/domain"
	"github.com/trialiq-server/internal/trials"
)

const sessionLockStripes = 64

// IntakeService orchestrates the participant flow: it loads a session, applies
// one flow operation and saves it back. Operations on the same session id are
// serialized on this node.
type IntakeService struct {
	logger      *logrus.Logger
	catalog     *trials.Catalog
	engine      *EligibilityEngine
	flow        *FlowController
	resolver    domain.LocaleResolver
	sessions    domain.SessionStore
	submissions domain.SubmissionStore
	matching    domain.MatchingConfig
	locks       [sessionLockStripes]sync.Mutex
	now         func() time.Time
}

// NewIntakeService wires the intake flow over the given catalog and stores.
func NewIntakeService(
	logger *logrus.Logger,
	catalog *trials.Catalog,
	resolver domain.LocaleResolver,
	sessions domain.SessionStore,
	submissions domain.SubmissionStore,
	matching domain.MatchingConfig,
) *IntakeService {
	s := &IntakeService{
		logger:      logger,
		catalog:     catalog,
		engine:      NewEligibilityEngine(logger),
		resolver:    resolver,
		sessions:    sessions,
		submissions: submissions,
		matching:    matching,
		now:         time.Now,
	}
	questions := NewQuestionSetBuilder(trials.Hints()).Build(catalog.All())
	s.flow = NewFlowController(logger, questions, s)
	return s
}

// Flow exposes the flow controller for read-only helpers such as Progress.
func (s *IntakeService) Flow() *FlowController { return s.flow }

// Trials returns the trial catalog in order.
func (s *IntakeService) Trials() []domain.Trial { return s.catalog.All() }

// Questions returns the screening questionnaire.
func (s *IntakeService) Questions() []domain.Question { return s.flow.Questions() }

// ResolveLocale resolves a language/country pair against the supported locales.
func (s *IntakeService) ResolveLocale(language, country string) domain.Locale {
	return s.resolver.Resolve(language, country)
}

// Match evaluates answers against the catalog without touching any session.
func (s *IntakeService) Match(answers domain.AnswerSet, country string) []domain.MatchResult {
	results := s.engine.Evaluate(answers, s.catalog.All(), country)
	if !s.matching.RequireLocalSite {
		return results
	}

	local := results[:0]
	for _, r := range results {
		if r.SiteAvailable {
			local = append(local, r)
		}
	}
	return local
}

// ParseAnswers validates a full raw answer map against the questionnaire.
// Unknown keys are rejected.
func (s *IntakeService) ParseAnswers(raw map[string]any) (domain.AnswerSet, error) {
	answers := make(domain.AnswerSet, len(raw))
	for key, value := range raw {
		q, ok := s.flow.Question(key)
		if !ok {
			return nil, domain.NewAnswerError(key, "unknown question", value)
		}
		parsed, err := q.Parse(value)
		if err != nil {
			return nil, err
		}
		answers[key] = parsed
	}
	return answers, nil
}

// StartSession creates a new session at Welcome in the resolved locale.
func (s *IntakeService) StartSession(ctx context.Context, language, country string) (*domain.Session, error) {
	sess := domain.NewSession(uuid.NewString(), s.resolver.Resolve(language, country), s.now())
	if err := s.sessions.Put(ctx, sess); err != nil {
		return nil, fmt.Errorf("saving session: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"session_id": sess.ID,
		"locale":     sess.Locale.Code,
	}).Info("Session started")
	return sess, nil
}

// GetSession loads a session by id.
func (s *IntakeService) GetSession(ctx context.Context, id string) (*domain.Session, error) {
	return s.sessions.Get(ctx, id)
}

// Advance confirms the current step and moves forward.
func (s *IntakeService) Advance(ctx context.Context, id string) (*domain.Session, error) {
	return s.update(ctx, id, func(sess *domain.Session) error {
		return s.flow.Advance(ctx, sess)
	})
}

// Back moves one step backward.
func (s *IntakeService) Back(ctx context.Context, id string) (*domain.Session, error) {
	return s.update(ctx, id, s.flow.Back)
}

// Reset starts the flow over in the same session.
func (s *IntakeService) Reset(ctx context.Context, id string) (*domain.Session, error) {
	return s.update(ctx, id, func(sess *domain.Session) error {
		s.flow.Reset(sess)
		return nil
	})
}

// SetConsent records the consent decision.
func (s *IntakeService) SetConsent(ctx context.Context, id string, consent bool) (*domain.Session, error) {
	return s.update(ctx, id, func(sess *domain.Session) error {
		return s.flow.SetConsent(sess, consent)
	})
}

// SetDemographics records personal details.
func (s *IntakeService) SetDemographics(ctx context.Context, id string, d domain.Demographics) (*domain.Session, error) {
	return s.update(ctx, id, func(sess *domain.Session) error {
		return s.flow.SetDemographics(sess, d)
	})
}

// Answer records one questionnaire answer.
func (s *IntakeService) Answer(ctx context.Context, id, key string, raw any) (*domain.Session, error) {
	return s.update(ctx, id, func(sess *domain.Session) error {
		return s.flow.Answer(sess, key, raw)
	})
}

// ClearAnswer removes one questionnaire answer.
func (s *IntakeService) ClearAnswer(ctx context.Context, id, key string) (*domain.Session, error) {
	return s.update(ctx, id, func(sess *domain.Session) error {
		return s.flow.ClearAnswer(sess, key)
	})
}

// ChangeLocale switches the session language/region at any step.
func (s *IntakeService) ChangeLocale(ctx context.Context, id, language, country string) (*domain.Session, error) {
	return s.update(ctx, id, func(sess *domain.Session) error {
		sess.Locale = s.resolver.Resolve(language, country)
		sess.UpdatedAt = s.now()
		return nil
	})
}

// Finalize scores the sealed answers and appends the submission. Store
// failures are reported as ErrStoreUnavailable; an expired or cancelled
// request context is returned as is.
func (s *IntakeService) Finalize(ctx context.Context, sess *domain.Session) ([]domain.MatchResult, string, error) {
	results := s.Match(sess.Answers, sess.Locale.Country)

	summaries := make([]domain.MatchSummary, 0, len(results))
	for _, r := range results {
		summaries = append(summaries, r.Summary())
	}

	now := s.now()
	sub := &domain.Submission{
		ID:           uuid.NewString(),
		UserHash:     UserHash(sess.Demographics),
		Locale:       sess.Locale.Code,
		Country:      sess.Locale.Country,
		Demographics: sess.Demographics,
		Answers:      sess.Answers.Clone(),
		Matches:      summaries,
		SubmittedAt:  now.UTC(),
		DurationMs:   now.Sub(sess.StartedAt).Milliseconds(),
		Status:       domain.SubmissionStatusComplete,
	}

	id, err := s.submissions.Append(ctx, sub)
	if err != nil {
		switch {
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			err = fmt.Errorf("appending submission: %w", err)
		case !errors.Is(err, domain.ErrStoreUnavailable):
			err = fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
		}
		return nil, "", err
	}

	s.logger.WithFields(logrus.Fields{
		"session_id":    sess.ID,
		"submission_id": id,
		"locale":        sub.Locale,
		"matches":       len(results),
	}).Info("Submission recorded")

	return results, id, nil
}

func (s *IntakeService) update(ctx context.Context, id string, fn func(*domain.Session) error) (*domain.Session, error) {
	mu := s.lockFor(id)
	mu.Lock()
	defer mu.Unlock()

	sess, err := s.sessions.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := fn(sess); err != nil {
		return nil, err
	}
	if err := s.sessions.Put(ctx, sess); err != nil {
		return nil, fmt.Errorf("saving session: %w", err)
	}
	return sess, nil
}

func (s *IntakeService) lockFor(id string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	return &s.locks[h.Sum32()%sessionLockStripes]
}

// UserHash derives a stable pseudonymous participant id from the identity fields.
func UserHash(d domain.Demographics) string {
	sum := sha256.Sum256([]byte(strings.Join([]string{
		strings.ToLower(strings.TrimSpace(d.FullName)),
		strings.ToLower(strings.TrimSpace(d.Email)),
		strings.TrimSpace(d.IdentityDocument),
	}, "|")))
	return hex.EncodeToString(sum[:])[:12]
}
