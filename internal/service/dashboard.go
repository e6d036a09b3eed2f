package service

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/trialiq-server/internal/domain"
	"github.com/trialiq-server/internal/trials"
)

const topTrialCount = 3

// TrialCount is the number of submissions matched to one trial.
type TrialCount struct {
	TrialID string `json:"trial_id"`
	Title   string `json:"title"`
	Count   int    `json:"count"`
}

// DashboardSummary holds the analytics KPIs over a filtered submission set.
type DashboardSummary struct {
	Total             int            `json:"total"`
	AverageDurationMs float64        `json:"average_duration_ms"`
	CompletionRate    float64        `json:"completion_rate"`
	ByCountry         map[string]int `json:"by_country"`
	ByLocale          map[string]int `json:"by_locale"`
	ByGender          map[string]int `json:"by_gender"`
	TopTrials         []TrialCount   `json:"top_trials"`
}

// DashboardService serves read-only analytics over the submission store.
type DashboardService struct {
	logger  *logrus.Logger
	store   domain.SubmissionStore
	catalog *trials.Catalog
}

// NewDashboardService creates a new dashboard service
func NewDashboardService(logger *logrus.Logger, store domain.SubmissionStore, catalog *trials.Catalog) *DashboardService {
	return &DashboardService{logger: logger, store: store, catalog: catalog}
}

// Submissions returns the submissions selected by the filter.
func (d *DashboardService) Submissions(ctx context.Context, filter domain.SubmissionFilter) ([]*domain.Submission, error) {
	subs, err := d.store.Query(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("querying submissions: %w", err)
	}
	return subs, nil
}

// Summary computes the KPIs for the submissions selected by the filter.
func (d *DashboardService) Summary(ctx context.Context, filter domain.SubmissionFilter) (*DashboardSummary, error) {
	subs, err := d.Submissions(ctx, filter)
	if err != nil {
		return nil, err
	}

	summary := Summarize(subs, d.catalog)
	d.logger.WithFields(logrus.Fields{
		"total":      summary.Total,
		"top_trials": len(summary.TopTrials),
	}).Debug("Computed dashboard summary")
	return summary, nil
}

// Export streams every stored submission as a JSON export document.
func (d *DashboardService) Export(ctx context.Context, w io.Writer) error {
	if err := d.store.ExportJSON(ctx, w); err != nil {
		return fmt.Errorf("exporting submissions: %w", err)
	}
	d.logger.Info("Exported submissions")
	return nil
}

// Summarize aggregates KPIs over a submission list. catalog may be nil, in
// which case trial titles are left empty.
func Summarize(subs []*domain.Submission, catalog *trials.Catalog) *DashboardSummary {
	summary := &DashboardSummary{
		Total:     len(subs),
		ByCountry: map[string]int{},
		ByLocale:  map[string]int{},
		ByGender:  map[string]int{},
		TopTrials: []TrialCount{},
	}
	if len(subs) == 0 {
		return summary
	}

	var totalDuration int64
	complete := 0
	trialCounts := map[string]int{}

	for _, sub := range subs {
		totalDuration += sub.DurationMs
		if sub.Status == domain.SubmissionStatusComplete {
			complete++
		}
		if sub.Country != "" {
			summary.ByCountry[sub.Country]++
		}
		if sub.Locale != "" {
			summary.ByLocale[sub.Locale]++
		}
		if gender, ok := sub.Gender(); ok {
			summary.ByGender[gender]++
		}
		for _, m := range sub.Matches {
			trialCounts[m.TrialID]++
		}
	}

	summary.AverageDurationMs = float64(totalDuration) / float64(len(subs))
	summary.CompletionRate = float64(complete) / float64(len(subs))

	for id, count := range trialCounts {
		tc := TrialCount{TrialID: id, Count: count}
		if catalog != nil {
			if trial, ok := catalog.Get(id); ok {
				tc.Title = trial.Title
			}
		}
		summary.TopTrials = append(summary.TopTrials, tc)
	}
	sort.Slice(summary.TopTrials, func(i, j int) bool {
		if summary.TopTrials[i].Count != summary.TopTrials[j].Count {
			return summary.TopTrials[i].Count > summary.TopTrials[j].Count
		}
		return summary.TopTrials[i].TrialID < summary.TopTrials[j].TrialID
	})
	if len(summary.TopTrials) > topTrialCount {
		summary.TopTrials = summary.TopTrials[:topTrialCount]
	}

	return summary
}
