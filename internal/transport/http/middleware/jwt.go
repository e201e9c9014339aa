package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"account-service/internal/app"
	"account-service/internal/transport/http/response"
)

const (
	ContextUserKey     = "user"
	ContextUsernameKey = "username"
)

// AuthJWT verifies the bearer token and loads the enabled user it names.
func AuthJWT(authService *app.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
		if authHeader == "" {
			unauthorized(c, response.CodeInvalidToken, "not authenticated")
			return
		}

		const prefix = "Bearer "
		if len(authHeader) < len(prefix) || !strings.EqualFold(authHeader[:len(prefix)], prefix) {
			unauthorized(c, response.CodeInvalidToken, "invalid authorization scheme")
			return
		}

		token := strings.TrimSpace(authHeader[len(prefix):])
		identity, err := authService.VerifyToken(c.Request.Context(), token)
		if err != nil {
			if errors.Is(err, app.ErrTokenExpired) {
				unauthorized(c, response.CodeTokenExpired, err.Error())
				return
			}
			unauthorized(c, response.CodeInvalidToken, app.ErrInvalidToken.Error())
			return
		}

		user, err := authService.CurrentUser(c.Request.Context(), identity)
		if err != nil {
			switch {
			case errors.Is(err, app.ErrInvalidToken):
				unauthorized(c, response.CodeInvalidToken, err.Error())
			case errors.Is(err, app.ErrInactiveUser):
				response.Abort(c, http.StatusBadRequest, response.CodeInactiveUser, err.Error())
			default:
				response.Abort(c, http.StatusInternalServerError, response.CodeInternalServer, "load current user failed")
			}
			return
		}

		c.Set(ContextUsernameKey, identity.Username)
		c.Set(ContextUserKey, user)
		c.Next()
	}
}

func unauthorized(c *gin.Context, code int, message string) {
	c.Header("WWW-Authenticate", "Bearer")
	response.Abort(c, http.StatusUnauthorized, code, message)
}
