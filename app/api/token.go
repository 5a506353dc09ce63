package api

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

const tokenCookieName = "token"

// tokenCookieMaxAge keeps the browser's partition key alive for a year.
const tokenCookieMaxAge = 365 * 24 * 60 * 60

// generateToken returns an opaque unguessable string used as the tenancy
// key. It is a partition key, not a security credential.
func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// tokenRequired rejects requests without a token cookie. The token's value
// is opaque; presence is the only check.
func tokenRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(tokenCookieName)
		if err != nil || token == "" {
			c.JSON(http.StatusForbidden, gin.H{"error": "Token not found"})
			c.Abort()
			return
		}

		c.Set("token", token)
		c.Next()
	}
}

func tokenFrom(c *gin.Context) string {
	return c.GetString("token")
}
