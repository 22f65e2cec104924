package middleware

import (
	"go-conge/internal/domain"
	"go-conge/internal/shared/apperror"
	"go-conge/internal/shared/response"

	"github.com/gin-gonic/gin"
)

// RBACService is satisfied by any enforcer keyed on role, resource and action.
type RBACService interface {
	Enforce(req domain.EnforceRequest) (bool, error)
}

func RBACAuthorize(service RBACService, resource, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString("role")
		if role == "" {
			response.AbortWithError(c, apperror.ErrUnauthorized)
			return
		}

		allowed, err := service.Enforce(domain.EnforceRequest{
			Subject:  c.GetString("user_id"),
			Role:     role,
			Resource: resource,
			Action:   action,
		})
		if err != nil {
			response.AbortWithError(c, err)
			return
		}
		if !allowed {
			response.AbortWithError(c, apperror.ErrForbidden.WithDetails(gin.H{"required": resource + ":" + action}))
			return
		}
		c.Next()
	}
}
