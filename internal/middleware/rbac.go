package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/clinic-attendance-api/internal/models"
	appErrors "github.com/noah-isme/clinic-attendance-api/pkg/errors"
	"github.com/noah-isme/clinic-attendance-api/pkg/response"
)

// RequireRoles allows the request through only when the caller holds one of roles.
// Division-level roster rights are checked by the roster service.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	allowed := make(map[models.UserRole]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		claims := Claims(c)
		if claims == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			return
		}
		if _, ok := allowed[claims.Role]; !ok {
			response.Error(c, appErrors.ErrForbidden)
			return
		}
		c.Next()
	}
}

// ManagerOnly is shorthand for RequireRoles(models.RoleManager).
func ManagerOnly() gin.HandlerFunc {
	return RequireRoles(models.RoleManager)
}
