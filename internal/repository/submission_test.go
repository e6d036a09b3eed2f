package repository

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/trialiq-server/internal/database"
	"github.com/trialiq-server/internal/domain"
)

// generateTestPassword creates a secure random password for test databases
func generateTestPassword() string {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		return "test_fallback_password_123"
	}
	return "test_" + hex.EncodeToString(bytes)
}

func setupTestDB(t *testing.T) (*database.DB, func()) {
	if testing.Short() {
		t.Skip("skipping PostgreSQL container test in short mode")
	}
	ctx := context.Background()

	testPassword := generateTestPassword()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword(testPassword),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		t.Fatalf("Failed to start PostgreSQL container: %v", err)
	}

	host, err := pgContainer.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := pgContainer.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	config := database.Config{
		Host:        host,
		Port:        port.Int(),
		Database:    "testdb",
		Username:    "testuser",
		Password:    testPassword,
		MaxConns:    10,
		MinConns:    2,
		MaxConnLife: time.Hour,
		MaxConnIdle: time.Minute * 30,
		SSLMode:     "disable",
	}

	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)

	db, err := database.NewConnection(ctx, config, logger)
	if err != nil {
		t.Fatalf("Failed to create database connection: %v", err)
	}

	migrationRunner, err := database.NewMigrationRunner(config.URL(), "../../migrations", logger)
	if err != nil {
		t.Fatalf("Failed to create migration runner: %v", err)
	}

	if err := migrationRunner.Up(ctx); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	cleanup := func() {
		migrationRunner.Close()
		db.Close()
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate PostgreSQL container: %v", err)
		}
	}

	return db, cleanup
}

func newSubmission(id, country, gender string, age float64, submittedAt time.Time, trials ...string) *domain.Submission {
	matches := make([]domain.MatchSummary, 0, len(trials))
	for _, tr := range trials {
		matches = append(matches, domain.MatchSummary{TrialID: tr, Percentage: 1})
	}
	return &domain.Submission{
		ID:       id,
		UserHash: "0123456789ab",
		Locale:   "en-" + country,
		Country:  country,
		Demographics: domain.Demographics{
			FullName: "Test User", Email: "test@example.com", Phone: "5551234567", IdentityDocument: "D-1",
		},
		Answers: domain.AnswerSet{
			domain.QuestionKeyAge:    domain.NumberAnswer(age),
			domain.QuestionKeyGender: domain.EnumAnswer(gender),
		},
		Matches:     matches,
		SubmittedAt: submittedAt,
		DurationMs:  4200,
		Status:      domain.SubmissionStatusComplete,
	}
}

func TestSubmissionRepository_AppendAndGet(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)
	repo := NewSubmissionRepository(db.Pool, logger)

	ctx := context.Background()
	sub := newSubmission("", "FR", "female", 52, time.Now().UTC().Truncate(time.Millisecond), "NCT01007279")

	id, err := repo.Append(ctx, sub)
	if err != nil {
		t.Fatalf("Failed to append submission: %v", err)
	}
	if id == "" {
		t.Fatal("Expected an assigned ID")
	}

	got, err := repo.Get(ctx, id)
	if err != nil {
		t.Fatalf("Failed to get submission: %v", err)
	}
	if got.Country != "FR" {
		t.Errorf("Expected country FR, got %s", got.Country)
	}
	if age, ok := got.Age(); !ok || age != 52 {
		t.Errorf("Expected age 52, got %v", age)
	}
	if !got.MatchedTrial("NCT01007279") {
		t.Error("Expected match on NCT01007279")
	}

	if _, err := repo.Get(ctx, "00000000-0000-0000-0000-000000000000"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestSubmissionRepository_Query(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)
	repo := NewSubmissionRepository(db.Pool, logger)

	ctx := context.Background()
	base := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	fixtures := []*domain.Submission{
		newSubmission("a", "US", "male", 30, base.Add(-48*time.Hour), "NCT02592421"),
		newSubmission("b", "US", "female", 45, base.Add(-24*time.Hour), "NCT04512345"),
		newSubmission("c", "GB", "female", 70, base, "NCT99999999"),
	}
	for _, f := range fixtures {
		if _, err := repo.Append(ctx, f); err != nil {
			t.Fatalf("Failed to append: %v", err)
		}
	}

	minAge, maxAge := 40, 80
	from := base.Add(-24 * time.Hour)
	tests := []struct {
		name   string
		filter domain.SubmissionFilter
		want   []string
	}{
		{"all", domain.SubmissionFilter{}, []string{"a", "b", "c"}},
		{"gender", domain.SubmissionFilter{Gender: "Female"}, []string{"b", "c"}},
		{"age", domain.SubmissionFilter{MinAge: &minAge, MaxAge: &maxAge}, []string{"b", "c"}},
		{"from", domain.SubmissionFilter{From: &from, Country: "US"}, []string{"b"}},
		{"trial", domain.SubmissionFilter{TrialID: "NCT02592421"}, []string{"a"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.Query(ctx, tt.filter)
			if err != nil {
				t.Fatalf("Query failed: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("Expected %d submissions, got %d", len(tt.want), len(got))
			}
			for i, s := range got {
				if s.ID != tt.want[i] {
					t.Errorf("Position %d: expected %s, got %s", i, tt.want[i], s.ID)
				}
			}
		})
	}

	count, err := repo.Count(ctx)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 3 {
		t.Errorf("Expected 3 submissions, got %d", count)
	}

	var buf bytes.Buffer
	if err := repo.ExportJSON(ctx, &buf); err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if !bytes.Contains(buf.Bytes(), []byte(`"count": 3`)) {
		t.Errorf("Export missing count: %s", buf.String())
	}
}
