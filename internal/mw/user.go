package mw

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// UserKey is the gin context key holding the authenticated user id.
const UserKey = "user_id"

const maxUserIDLength = 128

// User reads the user id set by the authenticating proxy from header and
// rejects requests without one.
func User(header string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(header))
		if id == "" || len(id) > maxUserIDLength {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing user id"})
			return
		}
		c.Set(UserKey, id)
		c.Next()
	}
}
