package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	userdomain "github.com/codecraftwt/loan-backend-sub000/internal/domain/user"
)

// RequireRole admits only users whose role is in the allowed set. It runs
// after RequireAuth, which stores the token's role in the context.
func RequireRole(allowed ...userdomain.Role) gin.HandlerFunc {
	allowedSet := map[userdomain.Role]struct{}{}
	for _, role := range allowed {
		allowedSet[role] = struct{}{}
	}

	return func(c *gin.Context) {
		v, ok := c.Get("user_role")
		if !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}

		role, ok := v.(string)
		if !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}

		if _, found := allowedSet[userdomain.Role(role)]; !found {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		c.Next()
	}
}
