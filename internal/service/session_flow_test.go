package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trialiq-server/internal/domain"
	"github.com/trialiq-server/internal/trials"
)

func validDemographics() domain.Demographics {
	return domain.Demographics{
		FullName:         "Ada Lovelace",
		Email:            "ada@example.com",
		Phone:            "+33 6 12 34 56 78",
		IdentityDocument: "X1234567",
	}
}

func newTestFlow(finalizer Finalizer) *FlowController {
	questions := NewQuestionSetBuilder(trials.Hints()).Build(trials.Default().All())
	return NewFlowController(quietLogger(), questions, finalizer)
}

func okFinalizer(results ...domain.MatchResult) Finalizer {
	return FinalizerFunc(func(ctx context.Context, s *domain.Session) ([]domain.MatchResult, string, error) {
		return results, "sub-1", nil
	})
}

func newTestSession() *domain.Session {
	return domain.NewSession("s-1", domain.Locale{Code: "en-US", Language: "en", Country: "US"}, time.Now())
}

func TestFlowController_HappyPath(t *testing.T) {
	ctx := context.Background()
	flow := newTestFlow(okFinalizer(domain.MatchResult{TrialID: "NCT99999999", Percentage: 1}))
	s := newTestSession()

	require.NoError(t, flow.Advance(ctx, s))
	assert.Equal(t, domain.StepConsent, s.Step)

	require.NoError(t, flow.SetConsent(s, true))
	require.NoError(t, flow.Advance(ctx, s))
	assert.Equal(t, domain.StepPersonalInfo, s.Step)

	require.NoError(t, flow.SetDemographics(s, validDemographics()))
	assert.Equal(t, "33612345678", s.Demographics.Phone)
	require.NoError(t, flow.Advance(ctx, s))
	assert.Equal(t, domain.StepQnA, s.Step)

	require.NoError(t, flow.Answer(s, "age", 42))
	require.NoError(t, flow.Answer(s, "gender", "Female"))
	assert.Equal(t, domain.EnumAnswer("female"), s.Answers["gender"])
	require.NoError(t, flow.Advance(ctx, s))
	assert.Equal(t, domain.StepReview, s.Step)

	require.NoError(t, flow.Advance(ctx, s))
	assert.Equal(t, domain.StepResults, s.Step)
	assert.True(t, s.Sealed)
	assert.Equal(t, "sub-1", s.SubmissionID)
	require.Len(t, s.Results, 1)
	assert.Equal(t, 1.0, flow.Progress(s))

	err := flow.Advance(ctx, s)
	assert.True(t, errors.Is(err, domain.ErrInvalidTransition))
}

func TestFlowController_ConsentGate(t *testing.T) {
	ctx := context.Background()
	flow := newTestFlow(okFinalizer())
	s := newTestSession()
	require.NoError(t, flow.Advance(ctx, s))

	err := flow.Advance(ctx, s)
	assert.True(t, errors.Is(err, domain.ErrConsentRequired))
	assert.Equal(t, domain.StepConsent, s.Step)

	require.NoError(t, flow.SetConsent(s, false))
	err = flow.Advance(ctx, s)
	assert.True(t, errors.Is(err, domain.ErrConsentRequired))
	assert.Equal(t, domain.StepConsent, s.Step)
}

func TestFlowController_NeverReachesQnAWithoutConsent(t *testing.T) {
	ctx := context.Background()
	flow := newTestFlow(okFinalizer())
	s := newTestSession()

	// Try every operation in every order a client could send them.
	for i := 0; i < 10; i++ {
		_ = flow.Advance(ctx, s)
		_ = flow.SetDemographics(s, validDemographics())
		_ = flow.Advance(ctx, s)
		_ = flow.Back(s)
		_ = flow.Advance(ctx, s)
		assert.NotEqual(t, domain.StepQnA, s.Step)
		assert.LessOrEqual(t, s.Step, domain.StepConsent)
	}
}

func TestFlowController_IncompleteDemographics(t *testing.T) {
	ctx := context.Background()
	flow := newTestFlow(okFinalizer())
	s := newTestSession()
	require.NoError(t, flow.Advance(ctx, s))
	require.NoError(t, flow.SetConsent(s, true))
	require.NoError(t, flow.Advance(ctx, s))

	require.NoError(t, flow.SetDemographics(s, domain.Demographics{FullName: "Ada", Email: "not-an-email"}))
	err := flow.Advance(ctx, s)

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrIncompleteSubmission))
	var incomplete *domain.IncompleteError
	require.True(t, errors.As(err, &incomplete))
	assert.ElementsMatch(t, []string{"email", "phone", "identity_document"}, incomplete.Missing)
	assert.Equal(t, domain.StepPersonalInfo, s.Step)
}

func TestFlowController_BackKeepsData(t *testing.T) {
	ctx := context.Background()
	flow := newTestFlow(okFinalizer())
	s := newTestSession()

	err := flow.Back(s)
	assert.True(t, errors.Is(err, domain.ErrInvalidTransition))

	require.NoError(t, flow.Advance(ctx, s))
	require.NoError(t, flow.SetConsent(s, true))
	require.NoError(t, flow.Advance(ctx, s))
	require.NoError(t, flow.SetDemographics(s, validDemographics()))
	require.NoError(t, flow.Advance(ctx, s))
	require.NoError(t, flow.Answer(s, "age", "60"))

	require.NoError(t, flow.Back(s))
	assert.Equal(t, domain.StepPersonalInfo, s.Step)
	assert.Equal(t, "Ada Lovelace", s.Demographics.FullName)
	assert.Equal(t, domain.NumberAnswer(60), s.Answers["age"])
	assert.True(t, s.Consent)
}

func TestFlowController_AnswerValidation(t *testing.T) {
	ctx := context.Background()
	flow := newTestFlow(okFinalizer())
	s := newTestSession()

	err := flow.Answer(s, "age", 30)
	assert.True(t, errors.Is(err, domain.ErrInvalidTransition), "answers are only accepted in QnA")

	s.Step = domain.StepQnA
	tests := []struct {
		name string
		key  string
		raw  any
	}{
		{"out of range", "age", 200},
		{"not a number", "age", "old"},
		{"unknown key", "favourite_colour", "blue"},
		{"bad boolean", "diabetic", "sometimes"},
		{"bad option", "gender", "robot"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := flow.Answer(s, tt.key, tt.raw)
			assert.True(t, errors.Is(err, domain.ErrInvalidAnswer))
		})
	}
	assert.Empty(t, s.Answers)

	require.NoError(t, flow.Answer(s, "diabetic", "no"))
	require.NoError(t, flow.ClearAnswer(s, "diabetic"))
	assert.Empty(t, s.Answers)
	require.NoError(t, flow.Advance(ctx, s))
}

func TestFlowController_StoreFailureKeepsReview(t *testing.T) {
	ctx := context.Background()
	calls := 0
	flow := newTestFlow(FinalizerFunc(func(ctx context.Context, s *domain.Session) ([]domain.MatchResult, string, error) {
		calls++
		if calls == 1 {
			return nil, "", domain.ErrStoreUnavailable
		}
		return nil, "sub-2", nil
	}))
	s := newTestSession()
	s.Consent = true
	s.Demographics = validDemographics()
	s.Step = domain.StepQnA
	require.NoError(t, flow.Answer(s, "age", 30))
	require.NoError(t, flow.Advance(ctx, s))

	err := flow.Advance(ctx, s)
	assert.True(t, errors.Is(err, domain.ErrStoreUnavailable))
	assert.Equal(t, domain.StepReview, s.Step)
	assert.False(t, s.Sealed)
	assert.Equal(t, domain.NumberAnswer(30), s.Answers["age"])

	require.NoError(t, flow.Advance(ctx, s))
	assert.Equal(t, domain.StepResults, s.Step)
	assert.Equal(t, "sub-2", s.SubmissionID)
	assert.Empty(t, s.Results)
}

func TestFlowController_ResultsAreTerminal(t *testing.T) {
	flow := newTestFlow(okFinalizer())
	s := newTestSession()
	s.Step = domain.StepResults
	s.Sealed = true

	assert.True(t, errors.Is(flow.Back(s), domain.ErrInvalidTransition))
	assert.True(t, errors.Is(flow.Answer(s, "age", 20), domain.ErrInvalidTransition))
	assert.True(t, errors.Is(flow.SetConsent(s, false), domain.ErrInvalidTransition))
}

func TestFlowController_Reset(t *testing.T) {
	flow := newTestFlow(okFinalizer())
	s := newTestSession()
	s.Step = domain.StepResults
	s.Consent = true
	s.Demographics = validDemographics()
	s.Answers["age"] = domain.NumberAnswer(30)
	s.Sealed = true
	s.Results = []domain.MatchResult{{TrialID: "T1"}}
	s.SubmissionID = "sub-1"

	flow.Reset(s)

	assert.Equal(t, "s-1", s.ID)
	assert.Equal(t, "en-US", s.Locale.Code)
	assert.Equal(t, domain.StepWelcome, s.Step)
	assert.False(t, s.Consent)
	assert.False(t, s.Sealed)
	assert.Empty(t, s.Answers)
	assert.Empty(t, s.Results)
	assert.Empty(t, s.SubmissionID)
	assert.Equal(t, domain.Demographics{}, s.Demographics)
	assert.Equal(t, 0.0, flow.Progress(s))
}
