package service

import (
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/trialiq-server/internal/domain"
)

// EligibilityEngine scores answer sets against trial criteria.
type EligibilityEngine struct {
	logger *logrus.Logger
}

// NewEligibilityEngine creates a new eligibility engine
func NewEligibilityEngine(logger *logrus.Logger) *EligibilityEngine {
	return &EligibilityEngine{logger: logger}
}

// Evaluate classifies every criterion of every trial and returns the ranked
// match list. Unknown criteria are left out of the percentage; trials with no
// met criterion are dropped. Ranking is by percentage descending, then trial
// ID ascending. country fills site availability and apply links and may be
// empty. Neither trials nor answers are modified.
func (e *EligibilityEngine) Evaluate(answers domain.AnswerSet, trials []domain.Trial, country string) []domain.MatchResult {
	results := make([]domain.MatchResult, 0, len(trials))

	for _, trial := range trials {
		result := domain.MatchResult{
			TrialID:       trial.ID,
			Title:         trial.Title,
			Met:           []string{},
			Unmet:         []string{},
			Unknown:       []string{},
			SiteAvailable: country != "" && trial.HasSiteIn(country),
		}

		for _, criterion := range trial.Criteria {
			switch criterion.Evaluate(answers) {
			case domain.CriterionMet:
				result.Met = append(result.Met, criterion.String())
			case domain.CriterionUnmet:
				result.Unmet = append(result.Unmet, criterion.String())
			default:
				result.Unknown = append(result.Unknown, criterion.String())
			}
		}

		if len(result.Met) == 0 {
			e.logger.WithFields(logrus.Fields{
				"trial_id": trial.ID,
				"unmet":    len(result.Unmet),
				"unknown":  len(result.Unknown),
			}).Debug("Trial excluded: no met criteria")
			continue
		}

		result.Percentage = float64(len(result.Met)) / float64(len(result.Met)+len(result.Unmet))
		if country != "" {
			result.ApplyURL = trial.ApplyLink(country)
		}
		results = append(results, result)
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Percentage != results[j].Percentage {
			return results[i].Percentage > results[j].Percentage
		}
		return results[i].TrialID < results[j].TrialID
	})

	e.logger.WithFields(logrus.Fields{
		"trials":  len(trials),
		"answers": len(answers),
		"matched": len(results),
	}).Debug("Completed eligibility evaluation")

	return results
}
