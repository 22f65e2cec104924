package notification

import (
	"go-conge/internal/middleware"
	"go-conge/internal/rbac"

	"github.com/gin-gonic/gin"
)

func RegisterRoutes(
	r *gin.RouterGroup,
	handler *Handler,
	auth gin.HandlerFunc,
	rbacService rbac.Service,
) {
	notifications := r.Group("/notifications")
	notifications.Use(auth)
	{
		notifications.GET("",
			middleware.RateLimitByUser(5, 20),
			middleware.RBACAuthorize(rbacService, rbac.ResourceNotification, rbac.ActionRead),
			handler.GetAll,
		)
		notifications.POST("/read-all",
			middleware.RateLimitByUser(1, 5),
			middleware.RBACAuthorize(rbacService, rbac.ResourceNotification, rbac.ActionUpdate),
			handler.MarkAllAsRead,
		)
		notifications.POST("/:id/read",
			middleware.RateLimitByUser(3, 10),
			middleware.RBACAuthorize(rbacService, rbac.ResourceNotification, rbac.ActionUpdate),
			handler.MarkAsRead,
		)
	}
}
