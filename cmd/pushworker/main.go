package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"syscall"

	"github.com/edrive/ride-hailing/internal/config"
	"github.com/edrive/ride-hailing/internal/service/notification"
	"github.com/edrive/ride-hailing/pkg/logger"
	"github.com/edrive/ride-hailing/pkg/push"
	"github.com/edrive/ride-hailing/pkg/queue"
)

// pushworker drains the push job queue into Firebase Cloud Messaging
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer appLogger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var pusher push.Pusher = push.Nop{}
	if cfg.Push.Enabled {
		fcm, err := push.NewFCM(ctx, cfg.Push.CredentialsFile)
		if err != nil {
			appLogger.Fatal("Failed to initialize Firebase messaging", logger.Err(err))
		}
		pusher = fcm
	} else {
		appLogger.Warn("Push disabled, jobs are acknowledged without delivery")
	}

	mq, err := queue.Dial(queue.Config{
		URL:      cfg.RabbitMQ.URL,
		Exchange: cfg.RabbitMQ.Exchange,
		Queue:    cfg.RabbitMQ.Queue,
		Prefetch: cfg.RabbitMQ.Prefetch,
	}, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to connect to RabbitMQ", logger.Err(err))
	}
	defer mq.Close()

	appLogger.Info("Push worker started", logger.String("queue", cfg.RabbitMQ.Queue))

	err = mq.Consume(ctx, "pushworker", notification.JobHandler(pusher))
	if err != nil && !errors.Is(err, context.Canceled) {
		appLogger.Error("Consumer stopped", logger.Err(err))
	}
	appLogger.Info("Push worker stopped")
}
