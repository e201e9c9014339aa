package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"account-service/internal/model"
	"account-service/internal/platform/rabbitmq"
)

type NotificationWorker struct {
	conn      *amqp.Connection
	processor *Processor
	sink      ResultSink
	queueName string
	workers   int
	logger    *logrus.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewNotificationWorker(
	conn *amqp.Connection,
	processor *Processor,
	sink ResultSink,
	queueName string,
	workers int,
	logger *logrus.Logger,
) *NotificationWorker {
	if workers < 1 {
		workers = 1
	}
	return &NotificationWorker{
		conn:      conn,
		processor: processor,
		sink:      sink,
		queueName: queueName,
		workers:   workers,
		logger:    logger,
	}
}

func (w *NotificationWorker) Start(ctx context.Context) error {
	if w.cancel != nil {
		return nil
	}

	workerCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	ch, err := w.conn.Channel()
	if err != nil {
		cancel()
		return fmt.Errorf("open worker channel failed: %w", err)
	}

	if err := rabbitmq.DeclareQueue(ch, w.queueName); err != nil {
		_ = ch.Close()
		cancel()
		return err
	}

	if err := ch.Qos(w.workers, 0, false); err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("set worker qos failed: %w", err)
	}

	deliveries, err := ch.Consume(
		w.queueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("consume queue failed: %w", err)
	}

	var consumers sync.WaitGroup
	for i := 0; i < w.workers; i++ {
		consumers.Add(1)
		go func(id int) {
			defer consumers.Done()
			w.consume(workerCtx, id, deliveries)
		}(i)
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		consumers.Wait()
		_ = ch.Close()
	}()

	w.logger.WithFields(logrus.Fields{
		"queue":   w.queueName,
		"workers": w.workers,
	}).Info("notification worker started")
	return nil
}

func (w *NotificationWorker) consume(ctx context.Context, id int, deliveries <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-deliveries:
			if !ok {
				return
			}
			w.handle(ctx, id, d)
		}
	}
}

func (w *NotificationWorker) handle(ctx context.Context, id int, d amqp.Delivery) {
	var job model.NotificationJob
	if err := json.Unmarshal(d.Body, &job); err != nil {
		w.logger.WithError(err).WithField("message_id", d.MessageId).Error("worker decode notification job failed")
		_ = d.Nack(false, false)
		return
	}

	result := w.processor.Process(ctx, job)
	w.sink.Record(ctx, result)

	// No retry: the outcome is recorded and the delivery is settled once.
	if err := d.Ack(false); err != nil {
		w.logger.WithError(err).WithFields(logrus.Fields{
			"worker": id,
			"job_id": job.ID,
		}).Error("worker ack failed")
	}
}

func (w *NotificationWorker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}
