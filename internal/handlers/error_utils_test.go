package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	contextutils "dailyquiz/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func performHandleAppError(err error) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	HandleAppError(c, err)
	return w
}

func TestHandleAppError_StatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"assignment not found", contextutils.ErrAssignmentNotFound, http.StatusNotFound},
		{"question not found", contextutils.ErrQuestionNotFound, http.StatusNotFound},
		{"user not found", contextutils.ErrUserNotFound, http.StatusNotFound},
		{"already answered", contextutils.ErrQuestionAlreadyAnswered, http.StatusConflict},
		{"invalid answer index", contextutils.ErrInvalidAnswerIndex, http.StatusBadRequest},
		{"invalid input", contextutils.ErrInvalidInput, http.StatusBadRequest},
		{"unauthorized", contextutils.ErrUnauthorized, http.StatusUnauthorized},
		{"invalid credentials", contextutils.ErrInvalidCredentials, http.StatusUnauthorized},
		{"internal", contextutils.ErrInternalError, http.StatusInternalServerError},
		{"plain error", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := performHandleAppError(tt.err)
			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestHandleAppError_WrappedErrorKeepsStatus(t *testing.T) {
	wrapped := contextutils.WrapError(contextutils.ErrQuestionAlreadyAnswered, "submit failed")
	w := performHandleAppError(wrapped)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestHandleAppError_NoQuestionsAvailableReturnsAccepted(t *testing.T) {
	w := performHandleAppError(contextutils.ErrNoQuestionsAvailable)

	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.JSONEq(t, `{"status":"generating"}`, w.Body.String())
}
