package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	appsvc "account-service/internal/app"
	"account-service/internal/config"
	"account-service/internal/logging"
	"account-service/internal/model"
	mysqlClient "account-service/internal/platform/mysql"
	postgresClient "account-service/internal/platform/postgres"
	rabbitmqClient "account-service/internal/platform/rabbitmq"
	redisClient "account-service/internal/platform/redis"
	"account-service/internal/worker"
)

type App struct {
	Config             *config.Config
	Logger             *logrus.Logger
	DB                 *gorm.DB
	Redis              *redis.Client
	MQConn             *amqp.Connection
	Publisher          appsvc.NotificationPublisher
	NotificationWorker *worker.NotificationWorker

	StartedAt time.Time
	logCloser io.Closer
}

// New wires everything the HTTP server needs. The notification consumer is
// started here too when notification.embedded is set.
func New(ctx context.Context) (*App, error) {
	app, err := newBase()
	if err != nil {
		return nil, err
	}

	if err := app.openDatabase(ctx); err != nil {
		_ = app.Close()
		return nil, err
	}

	redisCli, err := redisClient.New(ctx, app.Config.Redis)
	if err != nil {
		_ = app.Close()
		return nil, err
	}
	app.Redis = redisCli

	if err := app.openRabbitMQ(ctx, app.Config.App.Name+"-server"); err != nil {
		_ = app.Close()
		return nil, err
	}
	app.Publisher = rabbitmqClient.NewNotificationPublisher(app.MQConn, app.Config.Notification.Queue)

	if app.Config.Notification.Embedded {
		if err := app.startNotificationWorker(ctx); err != nil {
			_ = app.Close()
			return nil, err
		}
	}

	return app, nil
}

// NewWorker wires the standalone notification consumer process.
func NewWorker(ctx context.Context) (*App, error) {
	app, err := newBase()
	if err != nil {
		return nil, err
	}

	if err := app.openRabbitMQ(ctx, app.Config.App.Name+"-worker"); err != nil {
		_ = app.Close()
		return nil, err
	}
	if err := app.startNotificationWorker(ctx); err != nil {
		_ = app.Close()
		return nil, err
	}
	return app, nil
}

func newBase() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}

	logger, closer, err := logging.New(cfg.App.Env, cfg.Log.Level, cfg.Log.File)
	if err != nil {
		return nil, fmt.Errorf("init logger failed: %w", err)
	}

	return &App{
		Config:    cfg,
		Logger:    logger,
		StartedAt: time.Now(),
		logCloser: closer,
	}, nil
}

func (a *App) openDatabase(ctx context.Context) error {
	gormLog := gormlogger.New(a.Logger, gormlogger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  gormlogger.Warn,
		IgnoreRecordNotFoundError: true,
	})

	var (
		db  *gorm.DB
		err error
	)
	switch a.Config.Database.Driver {
	case config.DriverPostgres:
		db, err = postgresClient.New(ctx, a.Config.DSN(), gormLog)
	default:
		db, err = mysqlClient.New(ctx, a.Config.DSN(), gormLog)
	}
	if err != nil {
		return err
	}
	a.DB = db

	if err := db.AutoMigrate(&model.User{}); err != nil {
		return fmt.Errorf("auto migrate tables failed: %w", err)
	}
	return nil
}

func (a *App) openRabbitMQ(ctx context.Context, connectionName string) error {
	conn, err := rabbitmqClient.New(ctx, a.Config.RabbitMQ.URL, connectionName)
	if err != nil {
		return err
	}
	a.MQConn = conn
	return nil
}

func (a *App) startNotificationWorker(ctx context.Context) error {
	var sender worker.Sender = worker.NewSimulatedSender(a.Logger)
	if a.Config.Notification.GatewayURL != "" {
		sender = worker.NewGatewaySender(worker.GatewayConfig{
			BaseURL: a.Config.Notification.GatewayURL,
			APIKey:  a.Config.Notification.GatewayAPIKey,
		})
	}
	processor := worker.NewProcessor(sender, a.Config.SendDelay())
	w := worker.NewNotificationWorker(
		a.MQConn,
		processor,
		worker.NewLogSink(a.Logger),
		a.Config.Notification.Queue,
		a.Config.Notification.Workers,
		a.Logger,
	)
	if err := w.Start(ctx); err != nil {
		return fmt.Errorf("start notification worker failed: %w", err)
	}
	a.NotificationWorker = w
	return nil
}

func (a *App) Close() error {
	var errs []error
	if a.NotificationWorker != nil {
		a.NotificationWorker.Close()
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.MQConn != nil && !a.MQConn.IsClosed() {
		if err := a.MQConn.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.DB != nil {
		sqlDB, err := a.DB.DB()
		if err == nil {
			if err := sqlDB.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	if a.logCloser != nil {
		if err := a.logCloser.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
