package auth

import (
	"net/http"
	"time"

	autherrors "go-conge/internal/auth/errors"
	"go-conge/internal/shared/apperror"
	"go-conge/internal/shared/response"

	"github.com/gin-gonic/gin"
)

type CookieConfig struct {
	Secure     bool
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

type Handler struct {
	service Service
	cookies CookieConfig
}

func NewHandler(s Service, cookies CookieConfig) *Handler {
	return &Handler{service: s, cookies: cookies}
}

func (h *Handler) setCookie(c *gin.Context, name, value string, maxAge int) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.cookies.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handler) writeTokens(c *gin.Context, pair TokenPair, userResp AuthResponse) {
	h.setCookie(c, "access_token", pair.AccessToken, int(h.cookies.AccessTTL.Seconds()))
	h.setCookie(c, "refresh_token", pair.RefreshToken, int(h.cookies.RefreshTTL.Seconds()))

	response.Success(c, http.StatusOK, gin.H{
		"user":          userResp,
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
	}, nil)
}

func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.AbortWithError(c, apperror.MapValidationError(err))
		return
	}

	pair, userResp, err := h.service.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		response.AbortWithError(c, err)
		return
	}

	h.writeTokens(c, pair, userResp)
}

// RefreshToken reads the refresh_token cookie first, then the JSON body.
func (h *Handler) RefreshToken(c *gin.Context) {
	refreshToken, err := c.Cookie("refresh_token")
	if err != nil || refreshToken == "" {
		var req RefreshRequest
		_ = c.ShouldBindJSON(&req)
		refreshToken = req.RefreshToken
	}
	if refreshToken == "" {
		response.AbortWithError(c, autherrors.ErrInvalidRefreshToken)
		return
	}

	pair, userResp, err := h.service.RefreshToken(c.Request.Context(), refreshToken)
	if err != nil {
		response.AbortWithError(c, err)
		return
	}

	h.writeTokens(c, pair, userResp)
}

func (h *Handler) Me(c *gin.Context) {
	userResp, err := h.service.GetMe(c.Request.Context(), c.GetString("user_id"))
	if err != nil {
		response.AbortWithError(c, err)
		return
	}
	response.Success(c, http.StatusOK, userResp, nil)
}

func (h *Handler) Logout(c *gin.Context) {
	h.setCookie(c, "access_token", "", -1)
	h.setCookie(c, "refresh_token", "", -1)
	response.Success(c, http.StatusOK, gin.H{"logged_out": true}, nil)
}
