package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/schoolhub-api/internal/models"
	appErrors "github.com/noah-isme/schoolhub-api/pkg/errors"
	"github.com/noah-isme/schoolhub-api/pkg/response"
)

// Identity headers echoed by clients after login.
const (
	HeaderActorID   = "X-Actor-Id"
	HeaderActorRole = "X-Actor-Role"
	HeaderSchoolID  = "X-School-Id"
)

// ContextActorKey is the gin context key storing the caller identity.
const ContextActorKey = "currentActor"

// Actor attaches the caller identity when the headers are present. Requests
// without an id pass through anonymously; services reject them where identity
// is required. A malformed identity is rejected outright.
func Actor() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(HeaderActorID))
		if id == "" {
			c.Next()
			return
		}

		role, ok := models.ParseRole(c.GetHeader(HeaderActorRole))
		if !ok {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "missing or unknown "+HeaderActorRole))
			c.Abort()
			return
		}

		c.Set(ContextActorKey, &models.Actor{
			ID:       id,
			Role:     role,
			SchoolID: strings.TrimSpace(c.GetHeader(HeaderSchoolID)),
		})
		c.Next()
	}
}

// RequireActor blocks anonymous requests.
func RequireActor() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentActor(c) == nil {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "caller identity required"))
			c.Abort()
			return
		}
		c.Next()
	}
}

// CurrentActor returns the identity stored by Actor, or nil.
func CurrentActor(c *gin.Context) *models.Actor {
	value, exists := c.Get(ContextActorKey)
	if !exists {
		return nil
	}
	actor, ok := value.(*models.Actor)
	if !ok {
		return nil
	}
	return actor
}
