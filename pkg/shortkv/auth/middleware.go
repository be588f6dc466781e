package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	// ContextKeyUsername is the key for the username in gin context
	ContextKeyUsername = "username"
	// ContextKeyEmail is the key for email in gin context
	ContextKeyEmail = "email"
)

func bearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return "", false
	}
	// Expect "Bearer <token>"
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	return parts[1], true
}

// AuthMiddleware validates JWT tokens and sets user info in context
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"status": "error", "error": "Authorization header required"})
			c.Abort()
			return
		}

		claims, err := ValidateToken(token)
		if err != nil {
			if err == ErrExpiredToken {
				c.JSON(http.StatusUnauthorized, gin.H{"status": "error", "error": "Token has expired"})
			} else {
				c.JSON(http.StatusUnauthorized, gin.H{"status": "error", "error": "Invalid token"})
			}
			c.Abort()
			return
		}

		c.Set(ContextKeyUsername, claims.Username)
		c.Set(ContextKeyEmail, claims.Email)

		c.Next()
	}
}

// OptionalAuthMiddleware sets user info in context when a valid token is
// present and passes the request through anonymously otherwise. Used on link
// creation, where ownership is optional.
func OptionalAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if token, ok := bearerToken(c); ok {
			if claims, err := ValidateToken(token); err == nil {
				c.Set(ContextKeyUsername, claims.Username)
				c.Set(ContextKeyEmail, claims.Email)
			}
		}
		c.Next()
	}
}

// GetUsername returns the authenticated username from the gin context
func GetUsername(c *gin.Context) (string, bool) {
	username, exists := c.Get(ContextKeyUsername)
	if !exists {
		return "", false
	}
	return username.(string), true
}

// GetEmail returns the email from the gin context
func GetEmail(c *gin.Context) (string, bool) {
	email, exists := c.Get(ContextKeyEmail)
	if !exists {
		return "", false
	}
	return email.(string), true
}
