package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	pkgAuth "github.com/mdnair2344/greenbasket/internal/pkg/auth"
)

const (
	// ProducerIDContextKey is a gin context key for the authenticated producer.
	ProducerIDContextKey = "producerID"
	authCookieName       = "greenbasket_token"
)

// TokenParser resolves a bearer token to a producer ID.
type TokenParser interface {
	ParseToken(token string) (string, error)
}

// AuthRequired ensures the producer is authenticated before accessing handler.
func AuthRequired(parser TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}

		producerID, err := parser.ParseToken(token)
		if err != nil {
			if errors.Is(err, pkgAuth.ErrInvalidToken) {
				c.AbortWithStatus(http.StatusUnauthorized)
				return
			}
			c.AbortWithStatus(http.StatusInternalServerError)
			return
		}

		c.Set(ProducerIDContextKey, producerID)
		c.Next()
	}
}

// extractToken reads the Authorization header and falls back to the cookie,
// which is all a browser EventSource can send.
func extractToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if strings.HasPrefix(strings.ToLower(authHeader), "bearer ") {
		return strings.TrimSpace(authHeader[7:])
	}

	if cookie, err := c.Cookie(authCookieName); err == nil {
		return cookie
	}
	return ""
}
