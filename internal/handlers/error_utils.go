// Package handlers exposes the HTTP API over gin.
package handlers

import (
	"errors"
	"net/http"

	contextutils "dailyquiz/internal/utils"

	"github.com/gin-gonic/gin"
)

// HandleAppError writes the HTTP response for an application error. The
// no-questions case maps to 202 so clients can poll while generation runs.
func HandleAppError(c *gin.Context, err error) {
	if contextutils.IsError(err, contextutils.ErrNoQuestionsAvailable) {
		c.JSON(http.StatusAccepted, gin.H{"status": "generating"})
		return
	}

	var appErr *contextutils.AppError
	if !errors.As(err, &appErr) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	status := mapErrorCodeToHTTPStatus(appErr.Code)
	body := gin.H{"error": appErr.Message, "code": string(appErr.Code)}
	if len(appErr.Details) > 0 {
		body["details"] = appErr.Details
	}
	c.JSON(status, body)
}

func mapErrorCodeToHTTPStatus(code contextutils.ErrorCode) int {
	switch code {
	case contextutils.CodeInvalidInput, contextutils.CodeInvalidAnswerIndex:
		return http.StatusBadRequest
	case contextutils.CodeUnauthorized, contextutils.CodeInvalidCredentials:
		return http.StatusUnauthorized
	case contextutils.CodeRecordNotFound, contextutils.CodeAssignmentNotFound,
		contextutils.CodeQuestionNotFound, contextutils.CodeUserNotFound:
		return http.StatusNotFound
	case contextutils.CodeQuestionAlreadyAnswered:
		return http.StatusConflict
	case contextutils.CodeNoQuestionsAvailable:
		return http.StatusAccepted
	default:
		return http.StatusInternalServerError
	}
}

// HandleValidationError writes a 400 for request binding failures.
func HandleValidationError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": string(contextutils.CodeInvalidInput)})
}
