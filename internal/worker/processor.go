package worker

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"account-service/internal/model"
)

var ErrBlankDeviceToken = errors.New("device token is blank")

// Sender delivers one push to a device.
type Sender interface {
	Send(ctx context.Context, deviceToken string) error
}

// ResultSink records the outcome of a processed job.
type ResultSink interface {
	Record(ctx context.Context, result model.NotificationResult)
}

// SimulatedSender logs the push instead of talking to a provider.
type SimulatedSender struct {
	logger *logrus.Logger
}

func NewSimulatedSender(logger *logrus.Logger) *SimulatedSender {
	return &SimulatedSender{logger: logger}
}

func (s *SimulatedSender) Send(_ context.Context, deviceToken string) error {
	if strings.TrimSpace(deviceToken) == "" {
		return ErrBlankDeviceToken
	}
	s.logger.WithField("device_token", deviceToken).Info("push notification sent")
	return nil
}

type LogSink struct {
	logger *logrus.Logger
}

func NewLogSink(logger *logrus.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Record(_ context.Context, result model.NotificationResult) {
	entry := s.logger.WithFields(logrus.Fields{
		"job_id":       result.JobID,
		"device_token": result.DeviceToken,
		"status":       result.Status,
		"duration_ms":  result.Duration.Milliseconds(),
	})
	if result.Error != "" {
		entry.WithField("error", result.Error).Warn("notification job failed")
		return
	}
	entry.Info("notification job finished")
}

// Processor runs a single job: it waits out the send latency and then sends.
// Failures end up in the result and are never returned.
type Processor struct {
	sender Sender
	delay  time.Duration
	now    func() time.Time
}

func NewProcessor(sender Sender, delay time.Duration) *Processor {
	return &Processor{
		sender: sender,
		delay:  delay,
		now:    time.Now,
	}
}

func (p *Processor) Process(ctx context.Context, job model.NotificationJob) model.NotificationResult {
	started := p.now()
	result := model.NotificationResult{
		JobID:       job.ID,
		DeviceToken: job.DeviceToken,
	}

	err := p.wait(ctx)
	if err == nil {
		err = p.sender.Send(ctx, job.DeviceToken)
	}

	result.FinishedAt = p.now()
	result.Duration = result.FinishedAt.Sub(started)
	if err != nil {
		result.Status = model.NotificationFailed
		result.Error = err.Error()
		return result
	}
	result.Status = model.NotificationSent
	return result
}

func (p *Processor) wait(ctx context.Context) error {
	if p.delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(p.delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
