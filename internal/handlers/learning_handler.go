package handlers

import (
	"net/http"
	"strconv"

	"dailyquiz/internal/models"
	"dailyquiz/internal/observability"
	"dailyquiz/internal/services"
	contextutils "dailyquiz/internal/utils"

	"github.com/gin-gonic/gin"
)

// LearningHandler serves learning preferences and per-question signals.
type LearningHandler struct {
	learningService services.LearningServiceInterface
	logger          *observability.Logger
}

// NewLearningHandler creates a new learning handler.
func NewLearningHandler(learningService services.LearningServiceInterface, logger *observability.Logger) *LearningHandler {
	return &LearningHandler{learningService: learningService, logger: logger}
}

// GetPreferences returns the user's learning preferences.
func (h *LearningHandler) GetPreferences(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "get_preferences")
	var err error
	defer observability.FinishSpan(span, &err)

	userID, err := GetUserIDFromSession(c)
	if err != nil {
		HandleAppError(c, err)
		return
	}

	prefs, err := h.learningService.GetUserLearningPreferences(ctx, userID)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, prefs)
}

// UpdatePreferences applies a partial preferences update.
func (h *LearningHandler) UpdatePreferences(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "update_preferences")
	var err error
	defer observability.FinishSpan(span, &err)

	userID, err := GetUserIDFromSession(c)
	if err != nil {
		HandleAppError(c, err)
		return
	}

	var req models.LearningPreferencesRequest
	if bindErr := c.ShouldBindJSON(&req); bindErr != nil {
		HandleValidationError(c, bindErr)
		return
	}

	prefs, err := h.learningService.UpdateUserLearningPreferences(ctx, userID, &req)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, prefs)
}

// MarkQuestionKnown records the user's marked-as-known signal.
func (h *LearningHandler) MarkQuestionKnown(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "mark_question_known")
	var err error
	defer observability.FinishSpan(span, &err)

	userID, err := GetUserIDFromSession(c)
	if err != nil {
		HandleAppError(c, err)
		return
	}

	questionID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		HandleAppError(c, contextutils.WrapError(contextutils.ErrInvalidInput, "invalid question id"))
		return
	}

	var req models.MarkKnownRequest
	if bindErr := c.ShouldBindJSON(&req); bindErr != nil {
		HandleValidationError(c, bindErr)
		return
	}

	if err = h.learningService.MarkQuestionAsKnown(ctx, userID, questionID, req.ConfidenceLevel); err != nil {
		HandleAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "marked_known"})
}
