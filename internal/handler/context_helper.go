package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/murafiq/murafiq-api/internal/middleware"
	"github.com/murafiq/murafiq-api/internal/models"
	"github.com/murafiq/murafiq-api/internal/service"
	appErrors "github.com/murafiq/murafiq-api/pkg/errors"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

// actorResolver turns JWT claims into a booking actor, resolving the
// caller's teacher profile or center when the role requires one.
type actorResolver struct {
	teachers *service.TeacherService
	centers  *service.CenterService
}

func (r actorResolver) resolve(c *gin.Context) (service.BookingActor, error) {
	claims := claimsFromContext(c)
	if claims == nil {
		return service.BookingActor{}, appErrors.ErrUnauthorized
	}

	actor := service.BookingActor{UserID: claims.UserID, Role: claims.Role}
	switch claims.Role {
	case models.RoleTeacher:
		profile, err := r.teachers.GetByUser(c.Request.Context(), claims.UserID)
		if err != nil {
			return actor, err
		}
		actor.TeacherProfileID = profile.ID
	case models.RoleCenter:
		center, err := r.centers.GetByUser(c.Request.Context(), claims.UserID)
		if err != nil {
			return actor, err
		}
		actor.CenterID = center.ID
	}
	return actor, nil
}
