package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trialiq-server/internal/domain"
	"github.com/trialiq-server/internal/trials"
)

func TestQuestionSetBuilder_DefaultCatalog(t *testing.T) {
	builder := NewQuestionSetBuilder(trials.Hints())

	questions := builder.Build(trials.Default().All())

	keys := make([]string, len(questions))
	for i, q := range questions {
		keys[i] = q.Key
	}
	assert.Equal(t, []string{"age", "diabetic", "cardiac_history", "gender"}, keys)

	age := questions[0]
	assert.Equal(t, domain.AnswerNumeric, age.Type)
	require.NotNil(t, age.Max)
	assert.Equal(t, 120.0, *age.Max)

	gender := questions[3]
	assert.Equal(t, domain.AnswerEnum, gender.Type)
	assert.Equal(t, []string{"male", "female", "other"}, gender.Options)
	assert.Equal(t, "question.gender", gender.PromptKey)
}

func TestQuestionSetBuilder_NoDuplicatesAndStable(t *testing.T) {
	builder := NewQuestionSetBuilder(nil)
	list := []domain.Trial{
		{ID: "A", Criteria: []domain.Criterion{domain.AtLeast("age", 18), domain.Is("smoker", false)}},
		{ID: "B", Criteria: []domain.Criterion{domain.Is("smoker", false), domain.Between("age", 20, 40), domain.OneOf("blood", "A")}},
		{ID: "C", Criteria: []domain.Criterion{domain.OneOf("blood", "B", "a")}},
	}

	first := builder.Build(list)
	second := builder.Build(list)

	assert.Equal(t, first, second)
	require.Len(t, first, 3)
	seen := map[string]bool{}
	for _, q := range first {
		assert.False(t, seen[q.Key], "duplicate key %s", q.Key)
		seen[q.Key] = true
	}
	assert.Equal(t, "age", first[0].Key)
	assert.Equal(t, "smoker", first[1].Key)
	assert.Equal(t, "blood", first[2].Key)
	assert.Equal(t, []string{"A", "B"}, first[2].Options)
	assert.Equal(t, "question.smoker", first[1].PromptKey)
	assert.Nil(t, first[0].Min)
}

func TestQuestionSetBuilder_FirstCriterionFixesType(t *testing.T) {
	builder := NewQuestionSetBuilder(nil)
	list := []domain.Trial{
		{ID: "A", Criteria: []domain.Criterion{domain.Is("status", true)}},
		{ID: "B", Criteria: []domain.Criterion{domain.OneOf("status", "active")}},
	}

	questions := builder.Build(list)

	require.Len(t, questions, 1)
	assert.Equal(t, domain.AnswerBoolean, questions[0].Type)
	assert.Empty(t, questions[0].Options)
}

func TestQuestionSetBuilder_EmptyTrialList(t *testing.T) {
	questions := NewQuestionSetBuilder(trials.Hints()).Build(nil)

	assert.NotNil(t, questions)
	assert.Empty(t, questions)
}
