package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/smart-scheduler-api/internal/models"
	appErrors "github.com/noah-isme/smart-scheduler-api/pkg/errors"
	"github.com/noah-isme/smart-scheduler-api/pkg/response"
)

// RequireRoles lets a request through when the client holds one of the roles.
// Admin clients pass every check.
func RequireRoles(roles ...models.ClientRole) gin.HandlerFunc {
	allowed := make(map[models.ClientRole]struct{}, len(roles)+1)
	allowed[models.RoleAdmin] = struct{}{}
	for _, r := range roles {
		allowed[r] = struct{}{}
	}

	return func(c *gin.Context) {
		claims := ClientFromContext(c)
		if claims == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if _, ok := allowed[claims.Role]; !ok {
			response.Error(c, appErrors.ErrForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}
