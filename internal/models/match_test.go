package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAlgorithm(t *testing.T) {
	for _, s := range []string{"rule_only", "model_assisted", "hybrid"} {
		got, ok := ParseAlgorithm(s)
		require.True(t, ok, s)
		assert.Equal(t, Algorithm(s), got)
	}
	_, ok := ParseAlgorithm("ml")
	assert.False(t, ok)
	_, ok = ParseAlgorithm("")
	assert.False(t, ok)
}

func TestExperienceRank(t *testing.T) {
	assert.Equal(t, 0, ExperienceRank(ExperienceEntry))
	assert.Equal(t, 4, ExperienceRank(ExperiencePrincipal))
	assert.Equal(t, -1, ExperienceRank("wizard"))
	assert.Equal(t, -1, ExperienceRank(""))
}

func TestJobSalaryMid(t *testing.T) {
	assert.Equal(t, 3500.0, (&Job{SalaryMin: 3000, SalaryMax: 4000}).SalaryMid())
	assert.Equal(t, 3000.0, (&Job{SalaryMin: 3000}).SalaryMid())
	assert.Equal(t, 4000.0, (&Job{SalaryMax: 4000}).SalaryMid())
	assert.Equal(t, 0.0, (&Job{}).SalaryMid())
}

func TestMarkInteraction_ApplyCascades(t *testing.T) {
	at := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	h := &MatchHistory{}
	h.MarkInteraction(InteractionApply, at)

	require.NotNil(t, h.AppliedAt)
	require.NotNil(t, h.ClickedAt)
	require.NotNil(t, h.ViewedAt)
	assert.Equal(t, at, *h.AppliedAt)
	assert.Equal(t, at, *h.ClickedAt)
	assert.Equal(t, at, *h.ViewedAt)
	assert.Nil(t, h.FavoritedAt)
	assert.Nil(t, h.HiddenAt)
}

func TestMarkInteraction_ClickCascadesToView(t *testing.T) {
	at := time.Now().UTC()
	h := &MatchHistory{}
	h.MarkInteraction(InteractionClick, at)

	assert.NotNil(t, h.ClickedAt)
	assert.NotNil(t, h.ViewedAt)
	assert.Nil(t, h.AppliedAt)
}

func TestMarkInteraction_FirstTimestampWins(t *testing.T) {
	first := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	later := first.Add(2 * time.Hour)

	h := &MatchHistory{}
	h.MarkInteraction(InteractionView, first)
	h.MarkInteraction(InteractionApply, later)

	assert.Equal(t, first, *h.ViewedAt, "viewed timestamp set first is never overwritten")
	assert.Equal(t, later, *h.ClickedAt)
	assert.Equal(t, later, *h.AppliedAt)

	h.MarkInteraction(InteractionApply, later.Add(time.Hour))
	assert.Equal(t, later, *h.AppliedAt, "repeated apply keeps the original timestamp")
}

func TestMarkInteraction_SaveAndFavoriteShareFlag(t *testing.T) {
	at := time.Now().UTC()

	saved := &MatchHistory{}
	saved.MarkInteraction(InteractionSave, at)
	assert.NotNil(t, saved.FavoritedAt)

	fav := &MatchHistory{}
	fav.MarkInteraction(InteractionFavorited, at)
	assert.NotNil(t, fav.FavoritedAt)
	assert.Nil(t, fav.ViewedAt)
}

func TestMarkInteraction_SearchIsIgnored(t *testing.T) {
	h := &MatchHistory{}
	h.MarkInteraction(InteractionSearch, time.Now())
	assert.Equal(t, MatchHistory{}, *h)
}
