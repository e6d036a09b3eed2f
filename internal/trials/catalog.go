// Package trials holds the static trial catalog and the per-question
// presentation hints used when building the screening questionnaire.
package trials

import (
	"fmt"
	"strings"

	"github.com/trialiq-server/internal/domain"
)

const applyBaseURL = "https://apply.trialiq.example"

// Catalog is an immutable, ordered set of trials.
type Catalog struct {
	trials []domain.Trial
	byID   map[string]int
}

// NewCatalog builds a catalog from the given trials. Trial IDs must be unique.
func NewCatalog(trials []domain.Trial) (*Catalog, error) {
	c := &Catalog{
		trials: make([]domain.Trial, 0, len(trials)),
		byID:   make(map[string]int, len(trials)),
	}
	for _, t := range trials {
		if strings.TrimSpace(t.ID) == "" {
			return nil, fmt.Errorf("trial without id: %q", t.Title)
		}
		if _, dup := c.byID[t.ID]; dup {
			return nil, fmt.Errorf("duplicate trial id %s", t.ID)
		}
		c.byID[t.ID] = len(c.trials)
		c.trials = append(c.trials, t)
	}
	return c, nil
}

// Default returns the built-in mock catalog.
func Default() *Catalog {
	c, err := NewCatalog(defaultTrials())
	if err != nil {
		panic(err)
	}
	return c
}

// All returns the trials in catalog order. The slice is a copy.
func (c *Catalog) All() []domain.Trial {
	out := make([]domain.Trial, len(c.trials))
	copy(out, c.trials)
	return out
}

// Get looks up a trial by id.
func (c *Catalog) Get(id string) (domain.Trial, bool) {
	i, ok := c.byID[id]
	if !ok {
		return domain.Trial{}, false
	}
	return c.trials[i], true
}

// Len returns the number of trials.
func (c *Catalog) Len() int { return len(c.trials) }

func defaultTrials() []domain.Trial {
	return []domain.Trial{
		{
			ID:          "NCT01007279",
			Title:       "Cardiac Outcomes in Older Non-Diabetic Adults",
			Description: "Long-term follow-up of adults over 50 with a history of cardiac events and no diabetes.",
			Criteria: []domain.Criterion{
				domain.AtLeast(domain.QuestionKeyAge, 50),
				domain.Is("diabetic", false),
				domain.Is("cardiac_history", true),
			},
			Sites:    []string{"FR", "BE", "DE"},
			ApplyURL: applyBaseURL,
		},
		{
			ID:          "NCT02592421",
			Title:       "Metabolic Health in Non-Diabetic Adults",
			Description: "Observational study of metabolic markers in adults without diabetes.",
			Criteria: []domain.Criterion{
				domain.AtLeast(domain.QuestionKeyAge, 18),
				domain.Is("diabetic", false),
			},
			Sites:    []string{"US", "CA"},
			ApplyURL: applyBaseURL,
		},
		{
			ID:          "NCT99999999",
			Title:       "Global Adult Health Registry",
			Description: "Open registry collecting general health information from adults worldwide.",
			Criteria: []domain.Criterion{
				domain.AtLeast(domain.QuestionKeyAge, 21),
			},
			Global:   true,
			ApplyURL: applyBaseURL,
		},
		{
			ID:          "NCT04512345",
			Title:       "Women's Hormonal Health Study",
			Description: "Study of hormonal health in women of reproductive and early post-reproductive age.",
			Criteria: []domain.Criterion{
				domain.OneOf(domain.QuestionKeyGender, "female"),
				domain.Between(domain.QuestionKeyAge, 18, 65),
			},
			Sites:    []string{"GB", "US"},
			ApplyURL: applyBaseURL,
		},
	}
}

// Hints returns the presentation and validation hints keyed by question key.
func Hints() map[string]domain.QuestionHint {
	ageMin, ageMax := 0.0, 120.0
	return map[string]domain.QuestionHint{
		domain.QuestionKeyAge: {
			PromptKey: "question.age",
			Min:       &ageMin,
			Max:       &ageMax,
		},
		domain.QuestionKeyGender: {
			PromptKey: "question.gender",
			Options:   []string{"male", "female", "other"},
		},
		"diabetic":        {PromptKey: "question.diabetic"},
		"cardiac_history": {PromptKey: "question.cardiac_history"},
		"smoker":          {PromptKey: "question.smoker"},
	}
}
