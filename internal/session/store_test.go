package session

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trialiq-server/internal/domain"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)
	return logger
}

func sampleSession() *domain.Session {
	loc := domain.Locale{Code: "fr-FR", Language: "fr", Country: "FR"}
	s := domain.NewSession(uuid.NewString(), loc, time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC))
	s.Step = domain.StepQnA
	s.Consent = true
	s.Demographics = domain.Demographics{FullName: "Alice Martin", Email: "alice@example.com", Phone: "0612345678", IdentityDocument: "FR-1"}
	s.Answers["age"] = domain.NumberAnswer(52)
	s.Answers["diabetic"] = domain.BoolAnswer(false)
	return s
}

func sessionContract(t *testing.T, st domain.SessionStore) {
	ctx := context.Background()

	_, err := st.Get(ctx, "missing")
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	s := sampleSession()
	require.NoError(t, st.Put(ctx, s))

	got, err := st.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StepQnA, got.Step)
	assert.Equal(t, "fr-FR", got.Locale.Code)
	assert.True(t, got.Consent)
	assert.Equal(t, s.Demographics, got.Demographics)
	assert.Equal(t, domain.NumberAnswer(52), got.Answers["age"])
	assert.Equal(t, domain.BoolAnswer(false), got.Answers["diabetic"])

	// Mutating a loaded copy never changes the stored session.
	got.Answers["age"] = domain.NumberAnswer(10)
	again, err := st.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.NumberAnswer(52), again.Answers["age"])

	require.NoError(t, st.Delete(ctx, s.ID))
	_, err = st.Get(ctx, s.ID)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
	assert.NoError(t, st.Delete(ctx, s.ID))

	assert.Error(t, st.Put(ctx, &domain.Session{}))
}

func TestMemoryStore(t *testing.T) {
	sessionContract(t, NewMemoryStore(domain.SessionConfig{TTL: time.Minute, MaxSessions: 10}, testLogger()))
}

func TestMemoryStore_EvictsLeastRecentlyUsed(t *testing.T) {
	st := NewMemoryStore(domain.SessionConfig{TTL: time.Minute, MaxSessions: 2}, testLogger())
	ctx := context.Background()

	first, second, third := sampleSession(), sampleSession(), sampleSession()
	require.NoError(t, st.Put(ctx, first))
	require.NoError(t, st.Put(ctx, second))
	_, err := st.Get(ctx, first.ID)
	require.NoError(t, err)
	require.NoError(t, st.Put(ctx, third))

	assert.Equal(t, 2, st.Len())
	_, err = st.Get(ctx, second.ID)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
	_, err = st.Get(ctx, first.ID)
	assert.NoError(t, err)
}

func TestMemoryStore_Expires(t *testing.T) {
	st := NewMemoryStore(domain.SessionConfig{TTL: 20 * time.Millisecond, MaxSessions: 10}, testLogger())
	ctx := context.Background()
	s := sampleSession()
	require.NoError(t, st.Put(ctx, s))

	assert.Eventually(t, func() bool {
		_, err := st.Get(ctx, s.ID)
		return errors.Is(err, domain.ErrNotFound)
	}, time.Second, 10*time.Millisecond)
}

func TestMemoryStore_CancelledContext(t *testing.T) {
	st := NewMemoryStore(domain.SessionConfig{MaxSessions: 10}, testLogger())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, st.Put(ctx, sampleSession()), context.Canceled)
	_, err := st.Get(ctx, "x")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRedisStore(t *testing.T) {
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skip("TEST_REDIS_URL not set, skipping Redis tests")
	}

	cfg := domain.SessionConfig{RedisURL: url, KeyPrefix: "trialiq:test:" + uuid.NewString() + ":", TTL: time.Minute}
	st, err := NewRedisStore(context.Background(), cfg, testLogger())
	require.NoError(t, err)
	defer st.Close()

	sessionContract(t, st)
}

func TestNewRedisStore_Errors(t *testing.T) {
	_, err := NewRedisStore(context.Background(), domain.SessionConfig{RedisURL: "not-a-url"}, testLogger())
	assert.ErrorContains(t, err, "parse Redis URL")

	_, err = NewRedisStore(context.Background(), domain.SessionConfig{RedisURL: "redis://127.0.0.1:1/0"}, testLogger())
	assert.ErrorContains(t, err, "connect to Redis")
}
