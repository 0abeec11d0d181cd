package handlers

import (
	"net/http"
	"time"

	"dailyquiz/internal/models"
	"dailyquiz/internal/observability"
	"dailyquiz/internal/services"

	"github.com/gin-gonic/gin"
)

const defaultHintWeight = 1.0

// GenerationHintHandler serves the generation hint queue.
type GenerationHintHandler struct {
	hintService services.GenerationHintServiceInterface
	logger      *observability.Logger
	defaultTTL  time.Duration
}

// NewGenerationHintHandler creates a new generation hint handler.
func NewGenerationHintHandler(hintService services.GenerationHintServiceInterface, logger *observability.Logger, defaultTTL time.Duration) *GenerationHintHandler {
	return &GenerationHintHandler{hintService: hintService, logger: logger, defaultTTL: defaultTTL}
}

// UpsertHint inserts or refreshes a hint for the session user.
func (h *GenerationHintHandler) UpsertHint(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "upsert_hint")
	var err error
	defer observability.FinishSpan(span, &err)

	userID, err := GetUserIDFromSession(c)
	if err != nil {
		HandleAppError(c, err)
		return
	}

	var req models.GenerationHintRequest
	if bindErr := c.ShouldBindJSON(&req); bindErr != nil {
		HandleValidationError(c, bindErr)
		return
	}

	weight := req.PriorityWeight
	if weight == 0 {
		weight = defaultHintWeight
	}
	ttl := h.defaultTTL
	if req.TTLMinutes > 0 {
		ttl = time.Duration(req.TTLMinutes) * time.Minute
	}

	hint, err := h.hintService.UpsertHint(ctx, userID, req.Language, req.Level, req.QuestionType, weight, ttl)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, hint)
}

// GetActiveHints lists the session user's unexpired hints.
func (h *GenerationHintHandler) GetActiveHints(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "get_active_hints")
	var err error
	defer observability.FinishSpan(span, &err)

	userID, err := GetUserIDFromSession(c)
	if err != nil {
		HandleAppError(c, err)
		return
	}

	hints, err := h.hintService.GetActiveHintsForUser(ctx, userID)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"hints": hints})
}
