package middleware

import (
	"errors"
	"strings"

	autherrors "go-conge/internal/auth/errors"
	"go-conge/internal/shared/contextutil"
	"go-conge/internal/shared/response"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// AuthMiddleware accepts a bearer token or the access_token cookie and exposes
// user_id and role on the gin context.
func AuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, found := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !found {
			tokenString = ""
		}
		if tokenString == "" {
			if cookie, err := c.Cookie("access_token"); err == nil {
				tokenString = cookie
			}
		}
		if tokenString == "" {
			response.AbortWithError(c, autherrors.ErrTokenNotFound)
			return
		}

		claims := jwt.MapClaims{}
		token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
			return []byte(secret), nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil || !token.Valid {
			errObj := autherrors.ErrInvalidToken
			if errors.Is(err, jwt.ErrTokenExpired) {
				errObj = autherrors.ErrTokenExpired
			}
			response.AbortWithError(c, errObj)
			return
		}

		userID, ok := claims["user_id"].(string)
		if !ok || userID == "" {
			response.AbortWithError(c, autherrors.ErrInvalidToken)
			return
		}
		if typ, _ := claims["typ"].(string); typ != "" && typ != "access" {
			response.AbortWithError(c, autherrors.ErrInvalidToken)
			return
		}
		role, _ := claims["role"].(string)

		c.Set("user_id", userID)
		c.Set("role", role)
		c.Request = c.Request.WithContext(contextutil.WithActor(c.Request.Context(), contextutil.Actor{UserID: userID, Role: role}))

		c.Next()
	}
}
