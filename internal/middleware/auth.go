package middleware

import (
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/taskhub/project-management-api/internal/constants"
	"github.com/taskhub/project-management-api/internal/errors"
)

// RequireAuth rejects requests without a valid session and stores the caller's
// ID on the context for handlers.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		raw := session.Get(constants.ContextKeyUserID)

		value, ok := raw.(string)
		if !ok || value == "" {
			errors.Unauthorized(c, "")
			c.Abort()
			return
		}

		userID, err := uuid.Parse(value)
		if err != nil {
			errors.Unauthorized(c, "")
			c.Abort()
			return
		}

		c.Set(constants.ContextKeyUserID, userID)
		c.Next()
	}
}

// CurrentUserID returns the authenticated caller's ID. The second result is
// false on routes that skipped RequireAuth.
func CurrentUserID(c *gin.Context) (uuid.UUID, bool) {
	raw, exists := c.Get(constants.ContextKeyUserID)
	if !exists {
		return uuid.Nil, false
	}
	id, ok := raw.(uuid.UUID)
	return id, ok
}
