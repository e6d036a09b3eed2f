package trials

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trialiq-server/internal/domain"
)

func TestDefaultCatalog(t *testing.T) {
	c := Default()
	require.Equal(t, 4, c.Len())

	trial, ok := c.Get("NCT01007279")
	require.True(t, ok)
	assert.Len(t, trial.Criteria, 3)
	assert.True(t, trial.HasSiteIn("BE"))

	global, ok := c.Get("NCT99999999")
	require.True(t, ok)
	assert.True(t, global.Global)

	_, ok = c.Get("NCT00000000")
	assert.False(t, ok)
}

func TestCatalog_AllReturnsCopy(t *testing.T) {
	c := Default()
	all := c.All()
	all[0].ID = "mutated"

	first := c.All()[0]
	assert.Equal(t, "NCT01007279", first.ID)
}

func TestNewCatalog_Rejects(t *testing.T) {
	_, err := NewCatalog([]domain.Trial{{ID: "A"}, {ID: "A"}})
	assert.Error(t, err)

	_, err = NewCatalog([]domain.Trial{{ID: " ", Title: "blank"}})
	assert.Error(t, err)

	c, err := NewCatalog(nil)
	require.NoError(t, err)
	assert.Equal(t, 0, c.Len())
}

func TestHints(t *testing.T) {
	hints := Hints()

	age := hints[domain.QuestionKeyAge]
	require.NotNil(t, age.Min)
	require.NotNil(t, age.Max)
	assert.Equal(t, 0.0, *age.Min)
	assert.Equal(t, 120.0, *age.Max)

	assert.Equal(t, []string{"male", "female", "other"}, hints[domain.QuestionKeyGender].Options)
}
