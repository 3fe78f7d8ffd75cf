package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/smart-scheduler-api/internal/models"
	appErrors "github.com/noah-isme/smart-scheduler-api/pkg/errors"
	"github.com/noah-isme/smart-scheduler-api/pkg/response"
)

// ContextClientKey is the gin context key storing the caller's client claims.
const ContextClientKey = "currentClient"

type tokenValidator interface {
	ValidateToken(tokenString string) (*models.ClientClaims, error)
}

// JWT protects routes by requiring a valid client access token.
func JWT(auth tokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "invalid authorization header"))
			c.Abort()
			return
		}

		claims, err := auth.ValidateToken(strings.TrimSpace(parts[1]))
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		c.Set(ContextClientKey, claims)
		c.Next()
	}
}

// ClientFromContext returns the authenticated client claims, if any.
func ClientFromContext(c *gin.Context) *models.ClientClaims {
	value, exists := c.Get(ContextClientKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.ClientClaims)
	if !ok {
		return nil
	}
	return claims
}
