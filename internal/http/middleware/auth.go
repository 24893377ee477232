// README: Firebase ID-token auth middleware; exposes the caller's uid, name and avatar to handlers.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"ridepool/internal/infra"
)

const (
	callerUIDKey     = "caller_uid"
	callerNameKey    = "caller_name"
	callerPictureKey = "caller_picture"
)

// Auth rejects requests without a valid Firebase ID token.
func Auth(verifier infra.TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearerToken(c)
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		token, err := verifier.VerifyIDToken(c.Request.Context(), raw)
		if err != nil || token == nil || token.UID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Set(callerUIDKey, token.UID)
		c.Set(callerNameKey, token.Name())
		c.Set(callerPictureKey, token.Picture())
		c.Next()
	}
}

// bearerToken reads the Authorization header. Browsers cannot set headers on
// EventSource requests, so the access_token query parameter is accepted when
// the header is absent.
func bearerToken(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	if h == "" {
		return c.Query("access_token")
	}
	if !strings.HasPrefix(h, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
}

func CallerUID(c *gin.Context) string {
	return c.GetString(callerUIDKey)
}

func CallerName(c *gin.Context) string {
	return c.GetString(callerNameKey)
}

func CallerPicture(c *gin.Context) string {
	return c.GetString(callerPictureKey)
}
