package services

import (
	"testing"
	"time"

	"dailyquiz/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultPrefs() *models.UserLearningPreferences {
	return &models.UserLearningPreferences{
		FocusOnWeakAreas:     true,
		FreshQuestionRatio:   0.3,
		KnownQuestionPenalty: 0.1,
		ReviewIntervalDays:   7,
		WeakAreaBoost:        2.0,
		DailyGoal:            10,
	}
}

func TestComputePriorityScore_FreshQuestion(t *testing.T) {
	now := time.Now()
	score := computePriorityScore(scoreInputs{prefs: defaultPrefs(), timesAnswered: 0}, now)
	assert.InDelta(t, 1.5, score, 0.0001, "never-answered questions get the freshness boost")
}

func TestComputePriorityScore_AnsweredQuestionNoSignals(t *testing.T) {
	now := time.Now()
	score := computePriorityScore(scoreInputs{prefs: defaultPrefs(), timesAnswered: 3}, now)
	assert.InDelta(t, 1.0, score, 0.0001)
}

func TestComputePriorityScore_WeakAreaBoost(t *testing.T) {
	now := time.Now()
	in := scoreInputs{prefs: defaultPrefs(), timesAnswered: 3, isWeakArea: true}
	score := computePriorityScore(in, now)
	assert.InDelta(t, 2.0, score, 0.0001)
}

func TestComputePriorityScore_WeakAreaIgnoredWhenDisabled(t *testing.T) {
	now := time.Now()
	prefs := defaultPrefs()
	prefs.FocusOnWeakAreas = false
	in := scoreInputs{prefs: prefs, timesAnswered: 3, isWeakArea: true}
	score := computePriorityScore(in, now)
	assert.InDelta(t, 1.0, score, 0.0001)
}

func TestComputePriorityScore_MarkedKnownPenalty(t *testing.T) {
	now := time.Now()
	in := scoreInputs{prefs: defaultPrefs(), timesAnswered: 3, markedAsKnown: true}
	score := computePriorityScore(in, now)
	assert.InDelta(t, 0.1, score, 0.0001)
}

func TestComputePriorityScore_HighConfidenceHalvesPenalty(t *testing.T) {
	now := time.Now()
	confidence := 5
	in := scoreInputs{prefs: defaultPrefs(), timesAnswered: 3, markedAsKnown: true, confidence: &confidence}
	score := computePriorityScore(in, now)
	assert.InDelta(t, 0.05, score, 0.0001)
}

func TestComputePriorityScore_RecencyDecay(t *testing.T) {
	now := time.Now()
	prefs := defaultPrefs()

	today := now.Add(-1 * time.Hour)
	in := scoreInputs{prefs: prefs, timesAnswered: 3, lastCorrectAt: &today}
	assert.Less(t, computePriorityScore(in, now), 0.01, "answered correctly today scores near zero")

	halfway := now.Add(-84 * time.Hour) // 3.5 of 7 days
	in.lastCorrectAt = &halfway
	assert.InDelta(t, 0.5, computePriorityScore(in, now), 0.01)

	overdue := now.AddDate(0, 0, -14)
	in.lastCorrectAt = &overdue
	assert.InDelta(t, 1.0, computePriorityScore(in, now), 0.0001, "decay caps at the full base score")
}

func TestComputePriorityScore_HintWeightIsAdditive(t *testing.T) {
	now := time.Now()
	in := scoreInputs{prefs: defaultPrefs(), timesAnswered: 3, hintWeight: 2.5}
	score := computePriorityScore(in, now)
	assert.InDelta(t, 3.5, score, 0.0001)
}

func TestComputePriorityScore_HintLiftsKnownQuestion(t *testing.T) {
	now := time.Now()
	in := scoreInputs{prefs: defaultPrefs(), timesAnswered: 3, markedAsKnown: true, hintWeight: 1.0}
	score := computePriorityScore(in, now)
	assert.InDelta(t, 1.1, score, 0.0001)
}

func TestComputePriorityScore_Clamped(t *testing.T) {
	now := time.Now()
	in := scoreInputs{prefs: defaultPrefs(), timesAnswered: 3, hintWeight: 5000}
	assert.Equal(t, 1000.0, computePriorityScore(in, now))
}

func TestComputePriorityScore_Deterministic(t *testing.T) {
	now := time.Now()
	last := now.AddDate(0, 0, -3)
	in := scoreInputs{prefs: defaultPrefs(), timesAnswered: 5, isWeakArea: true, lastCorrectAt: &last, hintWeight: 0.5}

	first := computePriorityScore(in, now)
	second := computePriorityScore(in, now)
	assert.Equal(t, first, second)
}

func TestGetDefaultLearningPreferences(t *testing.T) {
	s := NewLearningService(nil, nil)
	prefs := s.GetDefaultLearningPreferences()

	require.NotNil(t, prefs)
	assert.True(t, prefs.FocusOnWeakAreas)
	assert.InDelta(t, 0.3, prefs.FreshQuestionRatio, 0.0001)
	assert.InDelta(t, 0.1, prefs.KnownQuestionPenalty, 0.0001)
	assert.Equal(t, 7, prefs.ReviewIntervalDays)
	assert.InDelta(t, 2.0, prefs.WeakAreaBoost, 0.0001)
	assert.Equal(t, 10, prefs.DailyGoal)
}
