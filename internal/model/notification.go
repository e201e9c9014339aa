package model

import "time"

const (
	NotificationSent   = "sent"
	NotificationFailed = "failed"
)

// NotificationJob is the queue payload for one push to a device.
type NotificationJob struct {
	ID          string    `json:"id"`
	DeviceToken string    `json:"device_token"`
	EnqueuedAt  time.Time `json:"enqueued_at"`
}

type NotificationResult struct {
	JobID       string        `json:"job_id"`
	DeviceToken string        `json:"device_token"`
	Status      string        `json:"status"`
	Error       string        `json:"error,omitempty"`
	Duration    time.Duration `json:"duration"`
	FinishedAt  time.Time     `json:"finished_at"`
}
