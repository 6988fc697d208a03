package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/clinic-attendance-api/internal/middleware"
	"github.com/noah-isme/clinic-attendance-api/internal/service"
	appErrors "github.com/noah-isme/clinic-attendance-api/pkg/errors"
	"github.com/noah-isme/clinic-attendance-api/pkg/response"
)

// actorFromContext resolves the authenticated caller. It writes a 401 and
// returns false when the JWT middleware did not run.
func actorFromContext(c *gin.Context) (service.Actor, bool) {
	claims := middleware.Claims(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return service.Actor{}, false
	}
	return service.ActorFromClaims(claims, c.ClientIP(), c.GetHeader("User-Agent")), true
}

func bindJSON(c *gin.Context, dest interface{}, message string) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, message))
		return false
	}
	return true
}
