package api

import (
	"net/http"
	"strings"

	"trade-service/internal/auth"

	"github.com/gin-gonic/gin"
)

const ctxUserID = "user_id"

// AuthRequired validates the bearer token and stores the actor's user ID
// in the request context
func AuthRequired(tokens *auth.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := parseBearer(c, tokens)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Missing or invalid token",
			})
			return
		}

		c.Set(ctxUserID, claims.UserID)
		c.Next()
	}
}

// OptionalAuth resolves the actor when a valid token is present but never
// rejects the request. Public reads use it to mark the viewer's own rows.
func OptionalAuth(tokens *auth.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		if claims, ok := parseBearer(c, tokens); ok {
			c.Set(ctxUserID, claims.UserID)
		}
		c.Next()
	}
}

func parseBearer(c *gin.Context, tokens *auth.Manager) (*auth.Claims, bool) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return nil, false
	}

	raw := strings.TrimPrefix(header, "Bearer ")
	if raw == header || raw == "" {
		return nil, false
	}

	claims, err := tokens.Parse(raw)
	if err != nil {
		return nil, false
	}
	return claims, true
}

// actorID returns the authenticated user's ID, zero when anonymous
func actorID(c *gin.Context) int64 {
	id, _ := c.Get(ctxUserID)
	userID, _ := id.(int64)
	return userID
}
