package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"account-service/internal/app"
	"account-service/internal/transport/http/response"
)

// writeError maps a service error to its status and code. Anything unknown is
// reported as fallback with a 500 so internals never leak to the client.
func writeError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, app.ErrInvalidInput):
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
	case errors.Is(err, app.ErrEmailExists):
		response.Error(c, http.StatusBadRequest, response.CodeEmailExists, err.Error())
	case errors.Is(err, app.ErrUsernameExists):
		response.Error(c, http.StatusBadRequest, response.CodeUsernameExists, err.Error())
	case errors.Is(err, app.ErrWrongOldPassword):
		response.Error(c, http.StatusBadRequest, response.CodeWrongOldPassword, err.Error())
	case errors.Is(err, app.ErrPasswordMismatch):
		response.Error(c, http.StatusBadRequest, response.CodePasswordMismatch, err.Error())
	case errors.Is(err, app.ErrInsufficientFunds):
		response.Error(c, http.StatusBadRequest, response.CodeInsufficientFunds, err.Error())
	case errors.Is(err, app.ErrInactiveUser):
		response.Error(c, http.StatusBadRequest, response.CodeInactiveUser, err.Error())
	case errors.Is(err, app.ErrInvalidCredentials):
		c.Header("WWW-Authenticate", "Bearer")
		response.Error(c, http.StatusUnauthorized, response.CodeInvalidCredentials, err.Error())
	case errors.Is(err, app.ErrInvalidToken):
		c.Header("WWW-Authenticate", "Bearer")
		response.Error(c, http.StatusUnauthorized, response.CodeInvalidToken, err.Error())
	case errors.Is(err, app.ErrTokenExpired):
		c.Header("WWW-Authenticate", "Bearer")
		response.Error(c, http.StatusUnauthorized, response.CodeTokenExpired, err.Error())
	case errors.Is(err, app.ErrUserNotFound):
		response.Error(c, http.StatusNotFound, response.CodeUserNotFound, err.Error())
	case errors.Is(err, app.ErrNotificationEnqueue):
		response.Error(c, http.StatusServiceUnavailable, response.CodeNotificationEnqueue, app.ErrNotificationEnqueue.Error())
	default:
		_ = c.Error(err)
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, fallback)
	}
}

func badRequest(c *gin.Context) {
	response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
}
