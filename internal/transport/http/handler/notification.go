package handler

import (
	"github.com/gin-gonic/gin"

	"account-service/internal/app"
	"account-service/internal/transport/http/response"
)

type NotificationHandler struct {
	notificationService *app.NotificationService
}

func NewNotificationHandler(notificationService *app.NotificationService) *NotificationHandler {
	return &NotificationHandler{notificationService: notificationService}
}

// Push enqueues the send and answers before the job runs.
func (h *NotificationHandler) Push(c *gin.Context) {
	job, err := h.notificationService.Dispatch(c.Request.Context(), c.Param("device_token"))
	if err != nil {
		writeError(c, err, "push notification failed")
		return
	}

	response.OK(c, gin.H{
		"message": "Notification sent",
		"job_id":  job.ID,
	})
}
