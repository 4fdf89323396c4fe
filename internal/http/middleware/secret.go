package middleware

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

// SecretHeader is the header StackRox sends the shared webhook secret in.
const SecretHeader = "X-ACS-Token"

// RequireSharedSecret rejects requests whose SecretHeader does not match
// secret. An empty secret disables the check.
func RequireSharedSecret(secret string) gin.HandlerFunc {
	expected := []byte(secret)
	return func(c *gin.Context) {
		if len(expected) == 0 {
			c.Next()
			return
		}

		got := []byte(c.GetHeader(SecretHeader))
		if subtle.ConstantTimeCompare(got, expected) != 1 {
			slog.WarnContext(c.Request.Context(), "webhook rejected: shared secret mismatch",
				"header_present", len(got) > 0)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "invalid token"})
			return
		}

		c.Next()
	}
}
