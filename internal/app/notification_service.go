package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"account-service/internal/model"
)

type NotificationPublisher interface {
	Publish(ctx context.Context, job model.NotificationJob) error
}

// NotificationService hands push jobs to the queue and returns immediately.
type NotificationService struct {
	publisher NotificationPublisher
	logger    *logrus.Logger
}

func NewNotificationService(publisher NotificationPublisher, logger *logrus.Logger) *NotificationService {
	return &NotificationService{
		publisher: publisher,
		logger:    logger,
	}
}

func (s *NotificationService) Dispatch(ctx context.Context, deviceToken string) (*model.NotificationJob, error) {
	deviceToken = strings.TrimSpace(deviceToken)
	if deviceToken == "" {
		return nil, ErrInvalidInput
	}

	job := model.NotificationJob{
		ID:          uuid.NewString(),
		DeviceToken: deviceToken,
		EnqueuedAt:  time.Now().UTC(),
	}
	if err := s.publisher.Publish(ctx, job); err != nil {
		s.logger.WithError(err).WithField("job_id", job.ID).Error("enqueue notification failed")
		return nil, fmt.Errorf("%w: %v", ErrNotificationEnqueue, err)
	}

	s.logger.WithFields(logrus.Fields{
		"job_id":       job.ID,
		"device_token": deviceToken,
	}).Info("notification enqueued")
	return &job, nil
}
