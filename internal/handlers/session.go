package handlers

import (
	contextutils "dailyquiz/internal/utils"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

const sessionUserIDKey = "user_id"

// GetUserIDFromSession returns the authenticated user ID from the session.
func GetUserIDFromSession(c *gin.Context) (int, error) {
	session := sessions.Default(c)
	v := session.Get(sessionUserIDKey)
	userID, ok := v.(int)
	if !ok || userID <= 0 {
		return 0, contextutils.ErrUnauthorized
	}
	return userID, nil
}

// RequireAuth aborts requests without a valid session and stores the user ID
// on the request context for downstream services.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := GetUserIDFromSession(c)
		if err != nil {
			HandleAppError(c, err)
			c.Abort()
			return
		}
		c.Request = c.Request.WithContext(contextutils.WithUserID(c.Request.Context(), userID))
		c.Next()
	}
}
