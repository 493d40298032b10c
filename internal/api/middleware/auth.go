package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/edrive/ride-hailing/internal/auth"
)

const (
	ContextUserID   = "user_id"
	ContextUserRole = "role"
	ContextUserName = "user_name"
)

// JWTAuth verifies the bearer token and stores the caller in the context.
// Browsers cannot set headers on WebSocket or EventSource requests, so a
// token query parameter is accepted as well.
func JWTAuth(tokens *auth.Tokens) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := bearerToken(c.GetHeader("Authorization"))
		if tokenString == "" {
			tokenString = c.Query("token")
		}
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization token required", "code": "UNAUTHORIZED"})
			return
		}

		claims, err := tokens.Validate(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token", "code": "UNAUTHORIZED"})
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextUserRole, string(claims.Role))
		c.Set(ContextUserName, claims.Name)
		c.Next()
	}
}

// RequireRole rejects callers whose role is not listed
func RequireRole(roles ...auth.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := auth.Role(c.GetString(ContextUserRole))
		for _, r := range roles {
			if r == role {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Insufficient permissions", "code": "FORBIDDEN"})
	}
}

// CallerID returns the authenticated user id
func CallerID(c *gin.Context) string {
	return c.GetString(ContextUserID)
}

// CallerRole returns the authenticated role
func CallerRole(c *gin.Context) auth.Role {
	return auth.Role(c.GetString(ContextUserRole))
}

// CallerName returns the display name carried by the token
func CallerName(c *gin.Context) string {
	return c.GetString(ContextUserName)
}

func bearerToken(header string) string {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
