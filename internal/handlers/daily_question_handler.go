package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"dailyquiz/internal/models"
	"dailyquiz/internal/observability"
	"dailyquiz/internal/services"
	contextutils "dailyquiz/internal/utils"

	"github.com/gin-gonic/gin"
)

// DailyQuestionHandler serves daily assignment endpoints.
type DailyQuestionHandler struct {
	dailyService services.DailyQuestionServiceInterface
	userService  services.UserServiceInterface
	logger       *observability.Logger
}

// NewDailyQuestionHandler creates a new daily question handler.
func NewDailyQuestionHandler(dailyService services.DailyQuestionServiceInterface, userService services.UserServiceInterface, logger *observability.Logger) *DailyQuestionHandler {
	return &DailyQuestionHandler{dailyService: dailyService, userService: userService, logger: logger}
}

// resolveDate parses the :date path parameter in the user's timezone. The
// literal "today" resolves to the user's current local date.
func (h *DailyQuestionHandler) resolveDate(ctx context.Context, userID int, dateStr string) (time.Time, error) {
	if dateStr == "today" {
		dateStr = contextutils.UserLocalToday(ctx, userID, time.Now(), h.userService.GetUserByID)
	}
	return contextutils.ParseDateInUserTimezone(ctx, userID, dateStr, h.userService.GetUserByID)
}

// GetDailyQuestions returns the user's batch for a date, allocating it when
// absent. The date path parameter is interpreted in the user's timezone.
func (h *DailyQuestionHandler) GetDailyQuestions(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "get_daily_questions")
	var err error
	defer observability.FinishSpan(span, &err)

	userID, err := GetUserIDFromSession(c)
	if err != nil {
		HandleAppError(c, err)
		return
	}

	date, err := h.resolveDate(ctx, userID, c.Param("date"))
	if err != nil {
		HandleAppError(c, err)
		return
	}

	questions, err := h.dailyService.GetDailyQuestions(ctx, userID, date)
	if err != nil {
		HandleAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"date": c.Param("date"), "questions": questions})
}

// SubmitDailyAnswer records an answer for one assigned question.
func (h *DailyQuestionHandler) SubmitDailyAnswer(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "submit_daily_answer")
	var err error
	defer observability.FinishSpan(span, &err)

	userID, err := GetUserIDFromSession(c)
	if err != nil {
		HandleAppError(c, err)
		return
	}

	questionID, err := strconv.Atoi(c.Param("questionId"))
	if err != nil {
		HandleAppError(c, contextutils.WrapError(contextutils.ErrInvalidInput, "invalid question id"))
		return
	}

	date, err := h.resolveDate(ctx, userID, c.Param("date"))
	if err != nil {
		HandleAppError(c, err)
		return
	}

	var req models.DailyAnswerRequest
	if bindErr := c.ShouldBindJSON(&req); bindErr != nil {
		HandleValidationError(c, bindErr)
		return
	}

	result, err := h.dailyService.SubmitDailyQuestionAnswer(ctx, userID, questionID, date, req.UserAnswerIndex, req.ResponseTimeMs)
	if err != nil {
		HandleAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetDailyProgress returns completion counts for a date.
func (h *DailyQuestionHandler) GetDailyProgress(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "get_daily_progress")
	var err error
	defer observability.FinishSpan(span, &err)

	userID, err := GetUserIDFromSession(c)
	if err != nil {
		HandleAppError(c, err)
		return
	}

	date, err := h.resolveDate(ctx, userID, c.Param("date"))
	if err != nil {
		HandleAppError(c, err)
		return
	}

	progress, err := h.dailyService.GetDailyProgress(ctx, userID, date)
	if err != nil {
		HandleAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, progress)
}

// GetAvailableDates lists dates with assignments for the user.
func (h *DailyQuestionHandler) GetAvailableDates(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "get_available_dates")
	var err error
	defer observability.FinishSpan(span, &err)

	userID, err := GetUserIDFromSession(c)
	if err != nil {
		HandleAppError(c, err)
		return
	}

	dates, err := h.dailyService.GetAvailableDates(ctx, userID)
	if err != nil {
		HandleAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"dates": dates})
}
