package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidQuestionType(t *testing.T) {
	assert.True(t, ValidQuestionType("vocabulary"))
	assert.True(t, ValidQuestionType("fill_blank"))
	assert.True(t, ValidQuestionType("qa"))
	assert.True(t, ValidQuestionType("reading_comprehension"))
	assert.False(t, ValidQuestionType("essay"))
	assert.False(t, ValidQuestionType(""))
}

func TestQuestionContentHelpers(t *testing.T) {
	var q Question
	raw := []byte(`{"question":"Cosa significa 'gatto'?","options":["dog","cat","bird","fish"],"correct_answer":1}`)
	require.NoError(t, q.UnmarshalContent(raw))

	assert.Equal(t, 4, q.OptionCount())
	assert.Equal(t, 1, q.CorrectAnswerIndex())
}

func TestQuestionContentHelpers_Malformed(t *testing.T) {
	var q Question
	require.NoError(t, q.UnmarshalContent([]byte(`{"question":"no options"}`)))

	assert.Equal(t, 0, q.OptionCount())
	assert.Equal(t, -1, q.CorrectAnswerIndex())
}
