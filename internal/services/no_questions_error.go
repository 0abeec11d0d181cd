package services

import (
	"fmt"

	contextutils "dailyquiz/internal/utils"
)

// NoQuestionsAvailableError signals that a user's daily batch could not be
// filled because the eligible pool is empty. Handlers map it to an accepted
// "generating" response; a generation hint has already been queued.
type NoQuestionsAvailableError struct {
	Language string
	Level    string
}

// Error implements the error interface.
func (e *NoQuestionsAvailableError) Error() string {
	return fmt.Sprintf("no questions available for %s/%s", e.Language, e.Level)
}

// Unwrap makes the error match contextutils.ErrNoQuestionsAvailable.
func (e *NoQuestionsAvailableError) Unwrap() error {
	return contextutils.ErrNoQuestionsAvailable
}
