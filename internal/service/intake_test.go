package service

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/trialiq-server/internal/domain"
	"github.com/trialiq-server/internal/trials"
)

// MockSubmissionStore is a mock implementation of domain.SubmissionStore
type MockSubmissionStore struct {
	mock.Mock
}

func (m *MockSubmissionStore) Append(ctx context.Context, s *domain.Submission) (string, error) {
	args := m.Called(ctx, s)
	return args.String(0), args.Error(1)
}

func (m *MockSubmissionStore) Query(ctx context.Context, filter domain.SubmissionFilter) ([]*domain.Submission, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Submission), args.Error(1)
}

func (m *MockSubmissionStore) Get(ctx context.Context, id string) (*domain.Submission, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Submission), args.Error(1)
}

func (m *MockSubmissionStore) Count(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockSubmissionStore) ExportJSON(ctx context.Context, w io.Writer) error {
	return m.Called(ctx, w).Error(0)
}

func (m *MockSubmissionStore) Close() error { return nil }

type mapSessionStore struct {
	mu   sync.Mutex
	data map[string]*domain.Session
}

func newMapSessionStore() *mapSessionStore {
	return &mapSessionStore{data: map[string]*domain.Session{}}
}

func (m *mapSessionStore) Get(_ context.Context, id string) (*domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.data[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return s.Clone(), nil
}

func (m *mapSessionStore) Put(_ context.Context, s *domain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[s.ID] = s.Clone()
	return nil
}

func (m *mapSessionStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, id)
	return nil
}

type fixedResolver struct{}

func (fixedResolver) Resolve(language, country string) domain.Locale {
	if country == "" {
		country = "US"
	}
	return domain.Locale{Code: "en-" + country, Language: "en", Country: country}
}

func walkToReview(t *testing.T, svc *IntakeService, id string) {
	t.Helper()
	ctx := context.Background()
	_, err := svc.Advance(ctx, id)
	require.NoError(t, err)
	_, err = svc.SetConsent(ctx, id, true)
	require.NoError(t, err)
	_, err = svc.Advance(ctx, id)
	require.NoError(t, err)
	_, err = svc.SetDemographics(ctx, id, validDemographics())
	require.NoError(t, err)
	_, err = svc.Advance(ctx, id)
	require.NoError(t, err)
	_, err = svc.Answer(ctx, id, "age", 55)
	require.NoError(t, err)
	_, err = svc.Answer(ctx, id, "diabetic", false)
	require.NoError(t, err)
	_, err = svc.Advance(ctx, id)
	require.NoError(t, err)
}

func TestIntakeService_CompleteFlowAppendsSubmission(t *testing.T) {
	ctx := context.Background()
	store := new(MockSubmissionStore)
	store.On("Append", mock.Anything, mock.MatchedBy(func(s *domain.Submission) bool {
		return s.Country == "FR" &&
			s.Status == domain.SubmissionStatusComplete &&
			len(s.UserHash) == 12 &&
			s.Answers["age"] == domain.NumberAnswer(55) &&
			len(s.Matches) > 0
	})).Return("sub-42", nil).Once()

	svc := NewIntakeService(quietLogger(), trials.Default(), fixedResolver{}, newMapSessionStore(), store, domain.MatchingConfig{})
	sess, err := svc.StartSession(ctx, "fr", "FR")
	require.NoError(t, err)
	assert.Equal(t, domain.StepWelcome, sess.Step)

	walkToReview(t, svc, sess.ID)
	final, err := svc.Advance(ctx, sess.ID)
	require.NoError(t, err)

	assert.Equal(t, domain.StepResults, final.Step)
	assert.Equal(t, "sub-42", final.SubmissionID)
	require.NotEmpty(t, final.Results)
	assert.Equal(t, "NCT01007279", final.Results[0].TrialID, "FR participant matches all evaluable criteria")
	store.AssertExpectations(t)

	stored, err := svc.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.True(t, stored.Sealed)
}

func TestIntakeService_StoreUnavailableIsRetryable(t *testing.T) {
	ctx := context.Background()
	store := new(MockSubmissionStore)
	store.On("Append", mock.Anything, mock.Anything).Return("", errors.New("disk full")).Once()
	store.On("Append", mock.Anything, mock.Anything).Return("sub-1", nil).Once()

	svc := NewIntakeService(quietLogger(), trials.Default(), fixedResolver{}, newMapSessionStore(), store, domain.MatchingConfig{})
	sess, err := svc.StartSession(ctx, "en", "US")
	require.NoError(t, err)
	walkToReview(t, svc, sess.ID)

	_, err = svc.Advance(ctx, sess.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrStoreUnavailable))

	kept, err := svc.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StepReview, kept.Step)
	assert.Len(t, kept.Answers, 2)

	final, err := svc.Advance(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StepResults, final.Step)
	store.AssertExpectations(t)
}

func TestIntakeService_RequestTimeoutIsNotStoreUnavailable(t *testing.T) {
	ctx := context.Background()
	store := new(MockSubmissionStore)
	store.On("Append", mock.Anything, mock.Anything).Return("", context.DeadlineExceeded).Once()

	svc := NewIntakeService(quietLogger(), trials.Default(), fixedResolver{}, newMapSessionStore(), store, domain.MatchingConfig{})
	sess, err := svc.StartSession(ctx, "en", "US")
	require.NoError(t, err)
	walkToReview(t, svc, sess.ID)

	_, err = svc.Advance(ctx, sess.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.NotErrorIs(t, err, domain.ErrStoreUnavailable)

	kept, err := svc.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StepReview, kept.Step)
	store.AssertExpectations(t)
}

func TestIntakeService_UnknownSession(t *testing.T) {
	svc := NewIntakeService(quietLogger(), trials.Default(), fixedResolver{}, newMapSessionStore(), new(MockSubmissionStore), domain.MatchingConfig{})

	_, err := svc.Advance(context.Background(), "missing")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestIntakeService_FailedOperationIsNotSaved(t *testing.T) {
	ctx := context.Background()
	svc := NewIntakeService(quietLogger(), trials.Default(), fixedResolver{}, newMapSessionStore(), new(MockSubmissionStore), domain.MatchingConfig{})
	sess, err := svc.StartSession(ctx, "", "")
	require.NoError(t, err)

	_, err = svc.SetConsent(ctx, sess.ID, true)
	assert.True(t, errors.Is(err, domain.ErrInvalidTransition))

	stored, err := svc.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.False(t, stored.Consent)
}

func TestIntakeService_ChangeLocale(t *testing.T) {
	ctx := context.Background()
	svc := NewIntakeService(quietLogger(), trials.Default(), fixedResolver{}, newMapSessionStore(), new(MockSubmissionStore), domain.MatchingConfig{})
	sess, err := svc.StartSession(ctx, "en", "US")
	require.NoError(t, err)

	updated, err := svc.ChangeLocale(ctx, sess.ID, "en", "GB")
	require.NoError(t, err)
	assert.Equal(t, "en-GB", updated.Locale.Code)
}

func TestIntakeService_MatchRequireLocalSite(t *testing.T) {
	answers := domain.AnswerSet{"age": domain.NumberAnswer(55), "diabetic": domain.BoolAnswer(false)}

	open := NewIntakeService(quietLogger(), trials.Default(), fixedResolver{}, newMapSessionStore(), new(MockSubmissionStore), domain.MatchingConfig{})
	local := NewIntakeService(quietLogger(), trials.Default(), fixedResolver{}, newMapSessionStore(), new(MockSubmissionStore), domain.MatchingConfig{RequireLocalSite: true})

	all := open.Match(answers, "FR")
	filtered := local.Match(answers, "FR")

	assert.Greater(t, len(all), len(filtered))
	for _, r := range filtered {
		assert.True(t, r.SiteAvailable, r.TrialID)
	}
}

func TestIntakeService_ParseAnswers(t *testing.T) {
	svc := NewIntakeService(quietLogger(), trials.Default(), fixedResolver{}, newMapSessionStore(), new(MockSubmissionStore), domain.MatchingConfig{})

	answers, err := svc.ParseAnswers(map[string]any{"age": 25.0, "diabetic": "no"})
	require.NoError(t, err)
	assert.Equal(t, domain.NumberAnswer(25), answers["age"])
	assert.Equal(t, domain.BoolAnswer(false), answers["diabetic"])

	_, err = svc.ParseAnswers(map[string]any{"height": 180})
	assert.True(t, errors.Is(err, domain.ErrInvalidAnswer))
}

func TestUserHash(t *testing.T) {
	a := UserHash(validDemographics())
	b := UserHash(domain.Demographics{FullName: " ada lovelace ", Email: "ADA@example.com", IdentityDocument: "X1234567"})
	c := UserHash(domain.Demographics{FullName: "Ada Lovelace", Email: "ada@example.com", IdentityDocument: "Y"})

	assert.Len(t, a, 12)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}
