package mcp

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/trialiq-server/internal/domain"
	"github.com/trialiq-server/internal/service"
)

// ListTrialsParams defines parameters for list_trials tool
type ListTrialsParams struct{}

// ListTrialsResult defines the result structure for list_trials tool
type ListTrialsResult struct {
	Trials []TrialInfo `json:"trials"`
	Count  int         `json:"count"`
}

// TrialInfo summarizes one trial and its criteria.
type TrialInfo struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Criteria    []string `json:"criteria"`
	Sites       []string `json:"sites"`
	Global      bool     `json:"global"`
}

// ListQuestionsParams defines parameters for list_questions tool
type ListQuestionsParams struct {
	Language string `json:"language,omitempty" jsonschema:"participant language, e.g. fr or es-MX"`
	Country  string `json:"country,omitempty" jsonschema:"ISO 3166 country code"`
}

// ListQuestionsResult defines the result structure for list_questions tool
type ListQuestionsResult struct {
	Locale    domain.Locale  `json:"locale"`
	Questions []QuestionInfo `json:"questions"`
}

// QuestionInfo is a localized screening question.
type QuestionInfo struct {
	Key     string   `json:"key"`
	Prompt  string   `json:"prompt"`
	Type    string   `json:"type"`
	Min     *float64 `json:"min,omitempty"`
	Max     *float64 `json:"max,omitempty"`
	Options []string `json:"options,omitempty"`
}

// MatchTrialsParams defines parameters for match_trials tool
type MatchTrialsParams struct {
	Answers  map[string]any `json:"answers" jsonschema:"answers keyed by question key"`
	Country  string         `json:"country,omitempty" jsonschema:"ISO 3166 country code used for site availability"`
	Language string         `json:"language,omitempty" jsonschema:"language for the result labels"`
}

// MatchTrialsResult defines the result structure for match_trials tool
type MatchTrialsResult struct {
	Locale           string        `json:"locale"`
	NoEligibleTrials bool          `json:"no_eligible_trials"`
	Message          string        `json:"message,omitempty"`
	Matches          []MatchResult `json:"matches"`
}

// MatchResult is one ranked trial.
type MatchResult struct {
	TrialID       string   `json:"trial_id"`
	Title         string   `json:"title"`
	Percentage    float64  `json:"percentage"`
	Label         string   `json:"label"`
	Met           []string `json:"met"`
	Unmet         []string `json:"unmet"`
	Unknown       []string `json:"unknown"`
	SiteAvailable bool     `json:"site_available"`
	ApplyURL      string   `json:"apply_url,omitempty"`
}

// SubmissionSummaryParams defines parameters for submission_summary tool
type SubmissionSummaryParams struct {
	From    string `json:"from,omitempty" jsonschema:"inclusive start, RFC 3339 or YYYY-MM-DD"`
	To      string `json:"to,omitempty" jsonschema:"exclusive end as RFC 3339, or a YYYY-MM-DD date whose whole day is included"`
	Gender  string `json:"gender,omitempty"`
	MinAge  *int   `json:"min_age,omitempty"`
	MaxAge  *int   `json:"max_age,omitempty"`
	Country string `json:"country,omitempty"`
	TrialID string `json:"trial_id,omitempty"`
}

// ExportSubmissionsParams defines parameters for export_submissions tool
type ExportSubmissionsParams struct{}

// ExportSubmissionsResult defines the result structure for export_submissions tool
type ExportSubmissionsResult struct {
	Path       string `json:"path"`
	ExportedAt string `json:"exported_at"`
}

func listTrialsTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "list_trials",
		Description: "Lists the clinical trials in the catalog with their eligibility criteria and sites",
	}
}

func listQuestionsTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "list_questions",
		Description: "Lists the screening questions derived from the trial criteria, localized for a language and country",
	}
}

func matchTrialsTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "match_trials",
		Description: "Ranks trials by the share of evaluable criteria an answer set meets; unanswered criteria are ignored",
	}
}

func submissionSummaryTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "submission_summary",
		Description: "Aggregates stored intake submissions: totals, durations, counts by country and locale, top matched trials",
	}
}

func exportSubmissionsTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "export_submissions",
		Description: "Writes every stored submission to a JSON file in the export directory",
	}
}

func (s *Server) handleListTrials(_ context.Context, _ *mcp.CallToolRequest, _ ListTrialsParams) (*mcp.CallToolResult, ListTrialsResult, error) {
	s.logger.WithField("tool", "list_trials").Info("Tool invoked")

	trials := s.deps.Intake.Trials()
	out := ListTrialsResult{Trials: make([]TrialInfo, 0, len(trials)), Count: len(trials)}
	for _, t := range trials {
		info := TrialInfo{
			ID:          t.ID,
			Title:       t.Title,
			Description: t.Description,
			Criteria:    make([]string, 0, len(t.Criteria)),
			Sites:       append([]string{}, t.Sites...),
			Global:      t.Global,
		}
		for _, c := range t.Criteria {
			info.Criteria = append(info.Criteria, c.String())
		}
		out.Trials = append(out.Trials, info)
	}
	return nil, out, nil
}

func (s *Server) handleListQuestions(_ context.Context, _ *mcp.CallToolRequest, params ListQuestionsParams) (*mcp.CallToolResult, ListQuestionsResult, error) {
	s.logger.WithFields(logrus.Fields{
		"tool":     "list_questions",
		"language": params.Language,
		"country":  params.Country,
	}).Info("Tool invoked")

	loc := s.deps.Intake.ResolveLocale(params.Language, params.Country)
	questions := s.deps.Intake.Questions()
	out := ListQuestionsResult{Locale: loc, Questions: make([]QuestionInfo, 0, len(questions))}
	for _, q := range questions {
		out.Questions = append(out.Questions, QuestionInfo{
			Key:     q.Key,
			Prompt:  s.deps.Translator.Text(loc.Code, q.PromptKey),
			Type:    string(q.Type),
			Min:     q.Min,
			Max:     q.Max,
			Options: q.Options,
		})
	}
	return nil, out, nil
}

func (s *Server) handleMatchTrials(_ context.Context, _ *mcp.CallToolRequest, params MatchTrialsParams) (*mcp.CallToolResult, MatchTrialsResult, error) {
	logger := s.logger.WithFields(logrus.Fields{"tool": "match_trials", "answers": len(params.Answers)})
	logger.Info("Tool invoked")

	answers, err := s.deps.Intake.ParseAnswers(params.Answers)
	if err != nil {
		logger.WithError(err).Debug("Rejected answer set")
		return nil, MatchTrialsResult{}, err
	}

	loc := s.deps.Intake.ResolveLocale(params.Language, params.Country)
	country := strings.ToUpper(strings.TrimSpace(params.Country))
	if country == "" {
		country = loc.Country
	}

	results := s.deps.Intake.Match(answers, country)
	out := MatchTrialsResult{Locale: loc.Code, Matches: make([]MatchResult, 0, len(results))}
	if len(results) == 0 {
		out.NoEligibleTrials = true
		out.Message = s.deps.Translator.Text(loc.Code, "results.none")
	}
	for _, r := range results {
		out.Matches = append(out.Matches, MatchResult{
			TrialID:       r.TrialID,
			Title:         r.Title,
			Percentage:    r.Percentage,
			Label:         s.deps.Translator.Text(loc.Code, "results.match", r.Percentage*100),
			Met:           nonNil(r.Met),
			Unmet:         nonNil(r.Unmet),
			Unknown:       nonNil(r.Unknown),
			SiteAvailable: r.SiteAvailable,
			ApplyURL:      r.ApplyURL,
		})
	}
	return nil, out, nil
}

func (s *Server) handleSubmissionSummary(ctx context.Context, _ *mcp.CallToolRequest, params SubmissionSummaryParams) (*mcp.CallToolResult, service.DashboardSummary, error) {
	s.logger.WithField("tool", "submission_summary").Info("Tool invoked")

	filter, err := params.filter()
	if err != nil {
		return nil, service.DashboardSummary{}, err
	}
	summary, err := s.deps.Dashboard.Summary(ctx, filter)
	if err != nil {
		return nil, service.DashboardSummary{}, err
	}
	return nil, *summary, nil
}

func (s *Server) handleExportSubmissions(ctx context.Context, _ *mcp.CallToolRequest, _ ExportSubmissionsParams) (*mcp.CallToolResult, ExportSubmissionsResult, error) {
	s.logger.WithField("tool", "export_submissions").Info("Tool invoked")

	now := s.now().UTC()
	path := filepath.Join(s.deps.ExportDir, fmt.Sprintf("submissions-%s.json", now.Format("20060102-150405")))
	f, err := os.Create(path)
	if err != nil {
		return nil, ExportSubmissionsResult{}, fmt.Errorf("create export file: %w", err)
	}
	if err := s.deps.Dashboard.Export(ctx, f); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return nil, ExportSubmissionsResult{}, err
	}
	if err := f.Close(); err != nil {
		return nil, ExportSubmissionsResult{}, fmt.Errorf("close export file: %w", err)
	}

	return nil, ExportSubmissionsResult{Path: path, ExportedAt: now.Format(time.RFC3339)}, nil
}

func (p SubmissionSummaryParams) filter() (domain.SubmissionFilter, error) {
	f := domain.SubmissionFilter{
		Gender:  strings.TrimSpace(p.Gender),
		MinAge:  p.MinAge,
		MaxAge:  p.MaxAge,
		Country: strings.ToUpper(strings.TrimSpace(p.Country)),
		TrialID: strings.TrimSpace(p.TrialID),
	}
	if p.From != "" {
		t, err := domain.ParseFilterTime(p.From)
		if err != nil {
			return f, fmt.Errorf("from: %w", err)
		}
		f.From = &t
	}
	if p.To != "" {
		t, err := domain.ParseFilterEnd(p.To)
		if err != nil {
			return f, fmt.Errorf("to: %w", err)
		}
		f.To = &t
	}
	return f, f.Validate()
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
