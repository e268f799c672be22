package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/schoolhub-api/internal/models"
	appErrors "github.com/noah-isme/schoolhub-api/pkg/errors"
	"github.com/noah-isme/schoolhub-api/pkg/response"
)

// RequireRoles rejects callers whose role is not listed. School membership and
// ownership are still checked by the services.
func RequireRoles(roles ...models.Role) gin.HandlerFunc {
	allowed := make(map[models.Role]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}

	return func(c *gin.Context) {
		actor := CurrentActor(c)
		if actor == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if _, ok := allowed[actor.Role]; !ok {
			response.Error(c, appErrors.ErrForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}
