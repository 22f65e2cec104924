package leave

import (
	"go-conge/internal/middleware"
	"go-conge/internal/rbac"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

func RegisterRoutes(
	r *gin.RouterGroup,
	handler *Handler,
	auth gin.HandlerFunc,
	rbacService rbac.Service,
	rdb *redis.Client,
) {
	leaves := r.Group("/leaves")
	leaves.Use(auth)
	{
		leaves.GET("",
			middleware.RateLimitByUser(5, 20),
			middleware.RBACAuthorize(rbacService, rbac.ResourceLeave, rbac.ActionRead),
			handler.GetAll,
		)
		leaves.POST("",
			middleware.RateLimitByUser(1, 5),
			middleware.RBACAuthorize(rbacService, rbac.ResourceLeave, rbac.ActionCreate),
			middleware.Idempotency(rdb),
			handler.Create,
		)
		leaves.GET("/balance",
			middleware.RateLimitByUser(5, 20),
			middleware.RBACAuthorize(rbacService, rbac.ResourceBalance, rbac.ActionRead),
			handler.Balance,
		)
		leaves.GET("/export",
			middleware.RateLimitByUser(0.2, 2),
			middleware.RBACAuthorize(rbacService, rbac.ResourceLeave, rbac.ActionExport),
			handler.Export,
		)
		leaves.GET("/:id",
			middleware.RateLimitByUser(5, 20),
			middleware.RBACAuthorize(rbacService, rbac.ResourceLeave, rbac.ActionRead),
			handler.GetByID,
		)
		leaves.PUT("/:id",
			middleware.RateLimitByUser(1, 5),
			middleware.RBACAuthorize(rbacService, rbac.ResourceLeave, rbac.ActionUpdate),
			handler.Update,
		)
		leaves.DELETE("/:id",
			middleware.RateLimitByUser(1, 5),
			middleware.RBACAuthorize(rbacService, rbac.ResourceLeave, rbac.ActionDelete),
			handler.Delete,
		)
	}

	r.GET("/dashboard",
		auth,
		middleware.RateLimitByUser(5, 20),
		middleware.RBACAuthorize(rbacService, rbac.ResourceLeave, rbac.ActionRead),
		handler.Dashboard,
	)
}
