package handlers

import (
	"net/http"

	"dailyquiz/internal/models"
	"dailyquiz/internal/observability"
	"dailyquiz/internal/services"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

// AuthHandler serves login, logout and session status.
type AuthHandler struct {
	userService services.UserServiceInterface
	logger      *observability.Logger
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(userService services.UserServiceInterface, logger *observability.Logger) *AuthHandler {
	return &AuthHandler{userService: userService, logger: logger}
}

// Login verifies credentials and establishes a session.
func (h *AuthHandler) Login(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "login")
	var err error
	defer observability.FinishSpan(span, &err)

	var req models.LoginRequest
	if bindErr := c.ShouldBindJSON(&req); bindErr != nil {
		HandleValidationError(c, bindErr)
		return
	}

	user, err := h.userService.AuthenticateUser(ctx, req.Username, req.Password)
	if err != nil {
		HandleAppError(c, err)
		return
	}

	session := sessions.Default(c)
	session.Set(sessionUserIDKey, user.ID)
	if err = session.Save(); err != nil {
		HandleAppError(c, err)
		return
	}

	h.logger.Info(ctx, "User logged in", map[string]interface{}{"user_id": user.ID})
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// Logout clears the session.
func (h *AuthHandler) Logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	if err := session.Save(); err != nil {
		HandleAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "logged_out"})
}

// Status reports the current session's user.
func (h *AuthHandler) Status(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "auth_status")
	var err error
	defer observability.FinishSpan(span, &err)

	userID, err := GetUserIDFromSession(c)
	if err != nil {
		HandleAppError(c, err)
		return
	}

	user, err := h.userService.GetUserByID(ctx, userID)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}
