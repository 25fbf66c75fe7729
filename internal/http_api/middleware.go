package http_api

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/carelink/carewallet/internal/models"
	"github.com/carelink/carewallet/pkg/logger"
)

const (
	identityKey       = "identity"
	InternalKeyHeader = "X-Internal-API-Key"
)

// Claims is the bearer token payload: sub is the account id.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

func loggerMiddleware(l *logger.Logger) gin.HandlerFunc {
	return logger.GinMiddleware(l)
}

// timeoutMiddleware bounds the request context so store calls cannot hang.
func (s *HTTPServer) timeoutMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), s.requestTimeout)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// authenticate verifies the HS256 bearer token and stores the caller's identity.
func (s *HTTPServer) authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(raw) == "" {
			abortUnauthorized(c, "Missing bearer token")
			return
		}

		claims := &Claims{}
		_, err := jwt.ParseWithClaims(strings.TrimSpace(raw), claims, func(*jwt.Token) (interface{}, error) {
			return s.jwtSecret, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil {
			s.logger.Debugw("Rejected bearer token", "error", err)
			abortUnauthorized(c, "Invalid bearer token")
			return
		}

		role, ok := models.ParseRole(claims.Role)
		if !ok || claims.Subject == "" {
			abortUnauthorized(c, "Token does not carry a known role and subject")
			return
		}

		c.Set(identityKey, models.Identity{ID: claims.Subject, Role: role})
		c.Next()
	}
}

// requireRoles lets only the given roles through.
func requireRoles(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity := identityFrom(c)
		for _, role := range roles {
			if identity.Role == role {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"success": false,
			"code":    "forbidden",
			"error":   "This endpoint is not available for role " + string(identity.Role),
		})
	}
}

// internalOnly admits service-to-service calls carrying the shared API key.
func (s *HTTPServer) internalOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(InternalKeyHeader)
		if s.internalAPIKey == "" || subtle.ConstantTimeCompare([]byte(key), []byte(s.internalAPIKey)) != 1 {
			abortUnauthorized(c, "Invalid internal API key")
			return
		}
		c.Next()
	}
}

func identityFrom(c *gin.Context) models.Identity {
	if v, ok := c.Get(identityKey); ok {
		if identity, ok := v.(models.Identity); ok {
			return identity
		}
	}
	return models.Identity{}
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"success": false,
		"code":    "unauthorized",
		"error":   message,
	})
}
