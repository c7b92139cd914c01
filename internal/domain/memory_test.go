package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMemoryIsEmpty(t *testing.T) {
	m := NewMemory()

	assert.Empty(t, m.UserProfile.EmotionalState)
	assert.Equal(t, 0, m.UserProfile.RiskLevel)
	assert.Empty(t, m.UserProfile.Preferences)
	assert.Empty(t, m.SessionContext.ConversationThemes)
	assert.Nil(t, m.SessionContext.CurrentTechnique)
}

func TestFoldAppendsStateAndThemes(t *testing.T) {
	m := NewMemory()

	m1 := m.Fold(Insight{
		EmotionalState:      "anxious",
		Themes:              []string{"work", "sleep"},
		RiskLevel:           2,
		RecommendedApproach: "grounding",
	})
	m2 := m1.Fold(Insight{
		EmotionalState: "calmer",
		Themes:         []string{"sleep"},
		RiskLevel:      1,
	})

	assert.Equal(t, []string{"anxious", "calmer"}, m2.UserProfile.EmotionalState)
	// Duplicates are kept; themes are a history, not a set.
	assert.Equal(t, []string{"work", "sleep", "sleep"}, m2.SessionContext.ConversationThemes)
	assert.Equal(t, 1, m2.UserProfile.RiskLevel)
}

func TestFoldRiskLevelLastObservedWins(t *testing.T) {
	m := NewMemory().
		Fold(Insight{RiskLevel: 7}).
		Fold(Insight{RiskLevel: 0})

	assert.Equal(t, 0, m.UserProfile.RiskLevel)
}

func TestFoldSkipsEmptyEmotionalState(t *testing.T) {
	m := NewMemory().Fold(Insight{EmotionalState: "", Themes: []string{"trust"}})

	assert.Empty(t, m.UserProfile.EmotionalState)
	assert.Equal(t, []string{"trust"}, m.SessionContext.ConversationThemes)
}

func TestFoldTechniqueReplacedOnlyWhenProvided(t *testing.T) {
	m := NewMemory().Fold(Insight{RecommendedApproach: "CBT reframing"})
	require.NotNil(t, m.SessionContext.CurrentTechnique)
	assert.Equal(t, "CBT reframing", *m.SessionContext.CurrentTechnique)

	// An insight without a recommendation keeps the prior technique.
	m = m.Fold(Insight{EmotionalState: "tired"})
	require.NotNil(t, m.SessionContext.CurrentTechnique)
	assert.Equal(t, "CBT reframing", *m.SessionContext.CurrentTechnique)

	m = m.Fold(Insight{RecommendedApproach: "behavioral activation"})
	assert.Equal(t, "behavioral activation", *m.SessionContext.CurrentTechnique)
}

func TestFoldDoesNotMutateReceiver(t *testing.T) {
	base := NewMemory().Fold(Insight{
		EmotionalState: "sad",
		Themes:         []string{"loss"},
		RiskLevel:      3,
	})

	_ = base.Fold(Insight{
		EmotionalState:      "angry",
		Themes:              []string{"family"},
		RiskLevel:           5,
		RecommendedApproach: "validation",
	})

	assert.Equal(t, []string{"sad"}, base.UserProfile.EmotionalState)
	assert.Equal(t, []string{"loss"}, base.SessionContext.ConversationThemes)
	assert.Equal(t, 3, base.UserProfile.RiskLevel)
	assert.Nil(t, base.SessionContext.CurrentTechnique)
}

func TestFoldOrderMatters(t *testing.T) {
	a := Insight{EmotionalState: "low", RiskLevel: 6}
	b := Insight{EmotionalState: "steady", RiskLevel: 1}

	ab := NewMemory().Fold(a).Fold(b)
	ba := NewMemory().Fold(b).Fold(a)

	assert.Equal(t, 1, ab.UserProfile.RiskLevel)
	assert.Equal(t, 6, ba.UserProfile.RiskLevel)
	assert.NotEqual(t, ab.UserProfile.EmotionalState, ba.UserProfile.EmotionalState)
}
