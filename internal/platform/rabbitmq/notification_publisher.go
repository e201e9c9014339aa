package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"account-service/internal/model"
)

type NotificationPublisher struct {
	conn      *amqp.Connection
	queueName string
}

func NewNotificationPublisher(conn *amqp.Connection, queueName string) *NotificationPublisher {
	return &NotificationPublisher{
		conn:      conn,
		queueName: queueName,
	}
}

func (p *NotificationPublisher) Publish(ctx context.Context, job model.NotificationJob) error {
	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("open rabbitmq channel failed: %w", err)
	}
	defer ch.Close()

	if err := DeclareQueue(ch, p.queueName); err != nil {
		return err
	}

	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal notification job failed: %w", err)
	}

	if err := ch.PublishWithContext(
		ctx,
		"",
		p.queueName,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			MessageId:    job.ID,
			Timestamp:    job.EnqueuedAt,
			Body:         payload,
			DeliveryMode: amqp.Persistent,
		},
	); err != nil {
		return fmt.Errorf("publish notification job failed: %w", err)
	}
	return nil
}
