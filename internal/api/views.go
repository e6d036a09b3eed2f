package api

import (
	"github.com/trialiq-server/internal/domain"
)

// Display units per question key, as catalog keys.
var questionUnits = map[string]string{
	domain.QuestionKeyAge: "unit.years",
}

var stepTitles = map[domain.Step]string{
	domain.StepWelcome:      "welcome.title",
	domain.StepConsent:      "consent.title",
	domain.StepPersonalInfo: "personal_info.title",
	domain.StepQnA:          "qna.title",
	domain.StepReview:       "review.title",
	domain.StepResults:      "results.title",
}

// SessionView is a session rendered for its current step.
type SessionView struct {
	ID           string         `json:"id"`
	Step         domain.Step    `json:"step"`
	StepNumber   int            `json:"step_number"`
	StepCount    int            `json:"step_count"`
	Progress     float64        `json:"progress"`
	ProgressText string         `json:"progress_text"`
	Locale       domain.Locale  `json:"locale"`
	Title        string         `json:"title"`
	Body         string         `json:"body,omitempty"`
	Consent      *ConsentView   `json:"consent,omitempty"`
	Fields       []FieldView    `json:"fields,omitempty"`
	Questions    []QuestionView `json:"questions,omitempty"`
	Review       *ReviewView    `json:"review,omitempty"`
	Results      *ResultsView   `json:"results,omitempty"`
	Actions      ActionsView    `json:"actions"`
}

// ConsentView carries the region's consent text.
type ConsentView struct {
	Variant string `json:"variant"`
	Text    string `json:"text"`
	Agree   string `json:"agree"`
	Given   bool   `json:"given"`
}

// FieldView is one labelled personal-information field.
type FieldView struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Value string `json:"value"`
}

// OptionView is one choice of an enum or boolean question.
type OptionView struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// QuestionView is a localized screening question.
type QuestionView struct {
	Key     string            `json:"key"`
	Prompt  string            `json:"prompt"`
	Type    domain.AnswerType `json:"type"`
	Min     *float64          `json:"min,omitempty"`
	Max     *float64          `json:"max,omitempty"`
	Unit    string            `json:"unit,omitempty"`
	Options []OptionView      `json:"options,omitempty"`
	Answer  any               `json:"answer,omitempty"`
}

// AnswerView is one answered question on the review screen.
type AnswerView struct {
	Key    string `json:"key"`
	Prompt string `json:"prompt"`
	Value  string `json:"value"`
}

// ReviewView summarizes everything the participant entered.
type ReviewView struct {
	Fields  []FieldView  `json:"fields"`
	Answers []AnswerView `json:"answers"`
	Confirm string       `json:"confirm"`
}

// MatchView is a localized match result.
type MatchView struct {
	TrialID       string   `json:"trial_id"`
	Title         string   `json:"title"`
	Percentage    float64  `json:"percentage"`
	Percent       int      `json:"percent"`
	Label         string   `json:"label"`
	Met           []string `json:"met"`
	Unmet         []string `json:"unmet"`
	Unknown       []string `json:"unknown"`
	SiteAvailable bool     `json:"site_available"`
	SiteText      string   `json:"site_text"`
	ApplyURL      string   `json:"apply_url,omitempty"`
	ApplyText     string   `json:"apply_text"`
}

// ResultsView is the ranked match list, or the no-eligible-trials outcome.
type ResultsView struct {
	NoEligibleTrials bool        `json:"no_eligible_trials"`
	Message          string      `json:"message,omitempty"`
	Matches          []MatchView `json:"matches"`
	SubmissionID     string      `json:"submission_id,omitempty"`
}

// ActionsView holds the localized navigation labels valid at this step.
type ActionsView struct {
	Back    string `json:"back,omitempty"`
	Next    string `json:"next,omitempty"`
	Restart string `json:"restart,omitempty"`
}

type viewRenderer struct {
	tr        domain.Translator
	questions []domain.Question
	progress  func(*domain.Session) float64
}

func (r viewRenderer) session(sess *domain.Session) SessionView {
	code := sess.Locale.Code
	steps := len(domain.Steps())
	v := SessionView{
		ID:           sess.ID,
		Step:         sess.Step,
		StepNumber:   int(sess.Step) + 1,
		StepCount:    steps,
		Progress:     r.progress(sess),
		ProgressText: r.tr.Text(code, "progress", int(sess.Step)+1, steps),
		Locale:       sess.Locale,
		Title:        r.tr.Text(code, stepTitles[sess.Step]),
	}

	switch sess.Step {
	case domain.StepWelcome:
		v.Body = r.tr.Text(code, "welcome.body")
		v.Actions.Next = r.tr.Text(code, "welcome.start")
	case domain.StepConsent:
		variant := sess.Locale.Rules.ConsentVariant
		if variant == "" {
			variant = domain.ConsentStandard
		}
		v.Consent = &ConsentView{
			Variant: variant,
			Text:    r.tr.Text(code, "consent."+variant),
			Agree:   r.tr.Text(code, "consent.agree"),
			Given:   sess.Consent,
		}
	case domain.StepPersonalInfo:
		v.Fields = r.fields(code, sess.Demographics)
	case domain.StepQnA:
		v.Questions = r.questionList(code, sess.Answers)
	case domain.StepReview:
		v.Review = r.review(code, sess)
	case domain.StepResults:
		v.Results = r.results(code, sess.Results)
		v.Results.SubmissionID = sess.SubmissionID
		v.Actions.Restart = r.tr.Text(code, "action.restart")
	}

	if sess.Step > domain.StepWelcome && sess.Step < domain.StepResults {
		v.Actions.Back = r.tr.Text(code, "action.back")
		v.Actions.Next = r.tr.Text(code, "action.next")
	}
	if sess.Step == domain.StepReview {
		v.Actions.Next = r.tr.Text(code, "review.confirm")
	}
	return v
}

func (r viewRenderer) fields(code string, d domain.Demographics) []FieldView {
	return []FieldView{
		{Key: "full_name", Label: r.tr.Text(code, "field.full_name"), Value: d.FullName},
		{Key: "email", Label: r.tr.Text(code, "field.email"), Value: d.Email},
		{Key: "phone", Label: r.tr.Text(code, "field.phone"), Value: d.Phone},
		{Key: "identity_document", Label: r.tr.Text(code, "field.identity_document"), Value: d.IdentityDocument},
	}
}

func (r viewRenderer) questionList(code string, answers domain.AnswerSet) []QuestionView {
	out := make([]QuestionView, 0, len(r.questions))
	for _, q := range r.questions {
		qv := QuestionView{
			Key:    q.Key,
			Prompt: r.tr.Text(code, q.PromptKey),
			Type:   q.Type,
			Min:    q.Min,
			Max:    q.Max,
		}
		if unit, ok := questionUnits[q.Key]; ok {
			qv.Unit = r.tr.Text(code, unit)
		}
		switch q.Type {
		case domain.AnswerEnum:
			for _, opt := range q.Options {
				qv.Options = append(qv.Options, OptionView{Value: opt, Label: r.tr.Text(code, "option."+opt)})
			}
		case domain.AnswerBoolean:
			qv.Options = []OptionView{
				{Value: "true", Label: r.tr.Text(code, "option.yes")},
				{Value: "false", Label: r.tr.Text(code, "option.no")},
			}
		}
		if a, ok := answers[q.Key]; ok {
			qv.Answer = a.Raw()
		}
		out = append(out, qv)
	}
	return out
}

func (r viewRenderer) review(code string, sess *domain.Session) *ReviewView {
	rv := &ReviewView{
		Fields:  r.fields(code, sess.Demographics),
		Answers: []AnswerView{},
		Confirm: r.tr.Text(code, "review.confirm"),
	}
	for _, q := range r.questions {
		a, ok := sess.Answers[q.Key]
		if !ok {
			continue
		}
		rv.Answers = append(rv.Answers, AnswerView{
			Key:    q.Key,
			Prompt: r.tr.Text(code, q.PromptKey),
			Value:  r.answerText(code, q, a),
		})
	}
	return rv
}

func (r viewRenderer) answerText(code string, q domain.Question, a domain.AnswerValue) string {
	switch a.Type {
	case domain.AnswerBoolean:
		if a.Bool {
			return r.tr.Text(code, "option.yes")
		}
		return r.tr.Text(code, "option.no")
	case domain.AnswerEnum:
		return r.tr.Text(code, "option."+a.Text)
	}
	if unit, ok := questionUnits[q.Key]; ok {
		return a.String() + " " + r.tr.Text(code, unit)
	}
	return a.String()
}

func (r viewRenderer) results(code string, results []domain.MatchResult) *ResultsView {
	rv := &ResultsView{Matches: make([]MatchView, 0, len(results))}
	if len(results) == 0 {
		rv.NoEligibleTrials = true
		rv.Message = r.tr.Text(code, "results.none")
		return rv
	}
	for _, m := range results {
		mv := MatchView{
			TrialID:       m.TrialID,
			Title:         m.Title,
			Percentage:    m.Percentage,
			Percent:       m.Percent(),
			Label:         r.tr.Text(code, "results.match", m.Percentage*100),
			Met:           m.Met,
			Unmet:         m.Unmet,
			Unknown:       m.Unknown,
			SiteAvailable: m.SiteAvailable,
			SiteText:      r.tr.Text(code, "results.no_local_site"),
			ApplyURL:      m.ApplyURL,
			ApplyText:     r.tr.Text(code, "results.apply"),
		}
		if m.SiteAvailable {
			mv.SiteText = r.tr.Text(code, "results.site_available")
		}
		rv.Matches = append(rv.Matches, mv)
	}
	return rv
}
