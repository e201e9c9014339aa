package response

import "github.com/gin-gonic/gin"

const (
	CodeOK                  = 0
	CodeBadRequest          = 40000
	CodeEmailExists         = 40001
	CodeUsernameExists      = 40002
	CodeWrongOldPassword    = 40003
	CodePasswordMismatch    = 40004
	CodeInsufficientFunds   = 40005
	CodeInactiveUser        = 40006
	CodeInvalidCredentials  = 40101
	CodeInvalidToken        = 40102
	CodeTokenExpired        = 40103
	CodeUserNotFound        = 40401
	CodeTooManyRequests     = 42900
	CodeInternalServer      = 50000
	CodeNotificationEnqueue = 50300
)

// APIResponse is the error envelope. Successful responses carry the payload as is.
type APIResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func OK(c *gin.Context, data interface{}) {
	c.JSON(200, data)
}

func Message(c *gin.Context, message string) {
	c.JSON(200, gin.H{"message": message})
}

func Error(c *gin.Context, httpStatus, code int, message string) {
	c.JSON(httpStatus, APIResponse{
		Code:    code,
		Message: message,
	})
}

// Abort writes the error envelope and stops the handler chain.
func Abort(c *gin.Context, httpStatus, code int, message string) {
	c.AbortWithStatusJSON(httpStatus, APIResponse{
		Code:    code,
		Message: message,
	})
}
