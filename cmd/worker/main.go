package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"account-service/internal/bootstrap"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.NewWorker(ctx)
	if err != nil {
		log.Fatalf("bootstrap worker failed: %v", err)
	}

	app.Logger.WithFields(logrus.Fields{
		"queue":   app.Config.Notification.Queue,
		"workers": app.Config.Notification.Workers,
	}).Info("worker running")

	closed := app.MQConn.NotifyClose(make(chan *amqp.Error, 1))
	select {
	case <-ctx.Done():
		app.Logger.Info("worker shutting down")
	case amqpErr := <-closed:
		if amqpErr != nil {
			app.Logger.WithField("reason", amqpErr.Reason).Error("rabbitmq connection lost")
		}
	}

	if err := app.Close(); err != nil {
		app.Logger.WithError(err).Error("close resources failed")
	}
}
