package services

import (
	"context"
	"testing"
	"time"

	contextutils "dailyquiz/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpsertHint_RejectsUnknownQuestionType(t *testing.T) {
	s := NewGenerationHintService(nil, nil)

	_, err := s.UpsertHint(context.Background(), 1, "italian", "A1", "crossword", 1.0, time.Hour)
	require.Error(t, err)
	assert.True(t, contextutils.IsError(err, contextutils.ErrInvalidInput))
}

func TestUpsertHint_RejectsNonPositiveTTL(t *testing.T) {
	s := NewGenerationHintService(nil, nil)

	_, err := s.UpsertHint(context.Background(), 1, "italian", "A1", "vocabulary", 1.0, 0)
	require.Error(t, err)
	assert.True(t, contextutils.IsError(err, contextutils.ErrInvalidInput))
}

func TestNoQuestionsAvailableError(t *testing.T) {
	err := &NoQuestionsAvailableError{Language: "italian", Level: "B1"}

	assert.Contains(t, err.Error(), "italian/B1")
	assert.True(t, contextutils.IsError(err, contextutils.ErrNoQuestionsAvailable))
}
