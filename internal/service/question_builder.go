package service

import (
	"strings"

	"github.com/trialiq-server/internal/domain"
)

// QuestionSetBuilder derives the screening questionnaire from trial criteria.
type QuestionSetBuilder struct {
	hints map[string]domain.QuestionHint
}

// NewQuestionSetBuilder creates a builder using the given per-key hints.
// A nil map means no hints: prompts default to "question.<key>" and numeric
// questions are unbounded.
func NewQuestionSetBuilder(hints map[string]domain.QuestionHint) *QuestionSetBuilder {
	return &QuestionSetBuilder{hints: hints}
}

// Build returns one question per distinct criterion key, ordered by the first
// trial (and criterion within it) that references the key. The first
// criterion seen for a key fixes the question's answer type.
func (b *QuestionSetBuilder) Build(trials []domain.Trial) []domain.Question {
	questions := make([]domain.Question, 0)
	index := make(map[string]int)

	for _, trial := range trials {
		for _, criterion := range trial.Criteria {
			if i, seen := index[criterion.Key]; seen {
				if questions[i].Type == domain.AnswerEnum && criterion.Kind == domain.CriterionEnum {
					questions[i].Options = mergeOptions(questions[i].Options, criterion.Allowed)
				}
				continue
			}

			index[criterion.Key] = len(questions)
			questions = append(questions, b.newQuestion(criterion))
		}
	}

	return questions
}

func (b *QuestionSetBuilder) newQuestion(c domain.Criterion) domain.Question {
	hint := b.hints[c.Key]
	q := domain.Question{
		Key:       c.Key,
		PromptKey: hint.PromptKey,
		Type:      c.AnswerType(),
	}
	if q.PromptKey == "" {
		q.PromptKey = "question." + c.Key
	}

	switch q.Type {
	case domain.AnswerNumeric:
		q.Min, q.Max = hint.Min, hint.Max
	case domain.AnswerEnum:
		q.Options = mergeOptions(append([]string(nil), hint.Options...), c.Allowed)
	}
	return q
}

func mergeOptions(options, extra []string) []string {
	for _, candidate := range extra {
		found := false
		for _, existing := range options {
			if strings.EqualFold(existing, candidate) {
				found = true
				break
			}
		}
		if !found {
			options = append(options, candidate)
		}
	}
	return options
}
