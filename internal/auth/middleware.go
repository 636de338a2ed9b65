package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// ContextUserID is the gin context key downstream handlers read
	ContextUserID = "user_id"
	// ContextRole is the gin context key holding the caller's role
	ContextRole = "role"
)

// Middleware validates the bearer token and stores the caller's identity in
// the request context.
func Middleware(tokens *TokenIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		claims, err := tokens.Validate(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		userID, err := uuid.Parse(claims.UserID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set(ContextUserID, userID)
		c.Set(ContextRole, Role(claims.Role))
		c.Next()
	}
}

// RequireRole refuses callers below the given role. Admins pass every check;
// moderators pass moderator checks.
func RequireRole(required Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		value, exists := c.Get(ContextRole)
		if !exists {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "insufficient role"})
			return
		}

		role, ok := value.(Role)
		if !ok || !allows(role, required) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "insufficient role"})
			return
		}
		c.Next()
	}
}

func allows(actual, required Role) bool {
	switch required {
	case RoleCitizen:
		return ValidRole(actual)
	case RoleModerator:
		return actual == RoleModerator || actual == RoleAdmin
	case RoleAdmin:
		return actual == RoleAdmin
	default:
		return false
	}
}
