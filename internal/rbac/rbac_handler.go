package rbac

import (
	"net/http"
	"strings"

	"go-conge/internal/domain"
	"go-conge/internal/shared/apperror"
	"go-conge/internal/shared/response"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// Enforce answers for the caller's own role; the role in the body is ignored.
func (h *Handler) Enforce(c *gin.Context) {
	var req domain.EnforceRequest
	req.Role = c.GetString("role")
	req.Subject = c.GetString("user_id")

	var body struct {
		Resource string `json:"resource" binding:"required"`
		Action   string `json:"action" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		response.AbortWithError(c, apperror.MapValidationError(err))
		return
	}
	req.Resource = strings.TrimSpace(body.Resource)
	req.Action = strings.TrimSpace(body.Action)

	allowed, err := h.service.Enforce(req)
	if err != nil {
		response.AbortWithError(c, err)
		return
	}

	response.Success(c, http.StatusOK, domain.EnforceResponse{Allowed: allowed}, nil)
}

func (h *Handler) Permissions(c *gin.Context) {
	perms, err := h.service.PermissionsFor(c.GetString("role"))
	if err != nil {
		response.AbortWithError(c, err)
		return
	}
	response.Success(c, http.StatusOK, perms, nil)
}
