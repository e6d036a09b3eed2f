package service

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/trialiq-server/internal/domain"
	"github.com/trialiq-server/internal/trials"
)

var (
	demoLocales = []string{"en-US", "fr-FR", "de-DE", "es-ES", "hi-IN", "zh-CN", "pt-BR", "ar-SA", "en-GB", "fr-CA"}
	demoNames   = []string{"Alice", "Bob", "Carlos", "Diana", "Eva", "Faisal", "Gita", "Hao", "Ines", "Jorge"}
	demoGenders = []string{"male", "female", "other"}
)

// DemoSeeder fills an empty submission store with synthetic submissions so
// the dashboard has something to show.
type DemoSeeder struct {
	logger  *logrus.Logger
	store   domain.SubmissionStore
	catalog *trials.Catalog
	engine  *EligibilityEngine
	rng     *rand.Rand
	now     func() time.Time
}

// NewDemoSeeder creates a seeder. seed makes the generated data reproducible.
func NewDemoSeeder(logger *logrus.Logger, store domain.SubmissionStore, catalog *trials.Catalog, seed uint64) *DemoSeeder {
	return &DemoSeeder{
		logger:  logger,
		store:   store,
		catalog: catalog,
		engine:  NewEligibilityEngine(logger),
		rng:     rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		now:     time.Now,
	}
}

// Seed appends n synthetic submissions spread over the last 30 days, unless
// the store already holds data. It returns the number appended.
func (s *DemoSeeder) Seed(ctx context.Context, n int) (int, error) {
	count, err := s.store.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("counting submissions: %w", err)
	}
	if count > 0 {
		s.logger.WithField("existing", count).Debug("Store not empty, skipping demo data")
		return 0, nil
	}

	for i := 0; i < n; i++ {
		if _, err := s.store.Append(ctx, s.synthetic()); err != nil {
			return i, fmt.Errorf("appending demo submission %d: %w", i, err)
		}
	}

	s.logger.WithField("count", n).Info("Seeded demo submissions")
	return n, nil
}

func (s *DemoSeeder) synthetic() *domain.Submission {
	locale := demoLocales[s.rng.IntN(len(demoLocales))]
	country := locale[strings.LastIndex(locale, "-")+1:]
	name := demoNames[s.rng.IntN(len(demoNames))]

	demographics := domain.Demographics{
		FullName:         name,
		Email:            strings.ToLower(name) + "@demo.com",
		Phone:            strconv.FormatInt(1_000_000_000+s.rng.Int64N(9_000_000_000), 10),
		IdentityDocument: strconv.Itoa(10_000 + s.rng.IntN(90_000)),
	}
	answers := domain.AnswerSet{
		domain.QuestionKeyAge:    domain.NumberAnswer(float64(18 + s.rng.IntN(63))),
		domain.QuestionKeyGender: domain.EnumAnswer(demoGenders[s.rng.IntN(len(demoGenders))]),
		"diabetic":               domain.BoolAnswer(s.rng.IntN(2) == 0),
		"cardiac_history":        domain.BoolAnswer(s.rng.IntN(2) == 0),
	}

	results := s.engine.Evaluate(answers, s.catalog.All(), country)
	matches := make([]domain.MatchSummary, 0, len(results))
	for _, r := range results {
		matches = append(matches, r.Summary())
	}

	submittedAt := s.now().UTC().Add(-time.Duration(s.rng.IntN(31)) * 24 * time.Hour)
	return &domain.Submission{
		ID:           uuid.NewString(),
		UserHash:     UserHash(demographics),
		Locale:       locale,
		Country:      country,
		Demographics: demographics,
		Answers:      answers,
		Matches:      matches,
		SubmittedAt:  submittedAt,
		DurationMs:   5_000 + s.rng.Int64N(10_000),
		Status:       domain.SubmissionStatusComplete,
	}
}
