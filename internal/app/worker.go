package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go-conge/internal/config"
	"go-conge/internal/messaging/kafka"
	"go-conge/internal/messaging/kafka/producer"
	"go-conge/internal/notification"
	"go-conge/internal/shared/connection"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const (
	pruneTimeout    = time.Minute
	outboxRetention = 7 * 24 * time.Hour
)

// RunWorker relays the outbox to kafka when a broker is configured and runs the
// scheduled cleanup of read notifications and sent outbox rows.
func RunWorker(cfg *config.Config, logger *zap.Logger) error {
	log := logger.Named("app.worker")

	gormDB, err := connection.ConnectGORMWithRetry(cfg.Database, logger)
	if err != nil {
		return err
	}

	sqlDB, err := gormDB.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	outboxRepo := kafka.NewOutboxRepository(sqlDB)
	notificationService := notification.NewService(notification.NewRepository(gormDB), logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Kafka.Broker != "" {
		kafkaWriter, err := connection.ConnectKafkaWithRetry(cfg.Kafka.Broker, cfg.Database.MaxRetries, logger)
		if err != nil {
			return err
		}
		defer kafkaWriter.Close()

		go producer.ProcessOutboxEvents(ctx, outboxRepo, kafkaWriter, log, cfg.Worker.PollInterval)
	} else {
		log.Warn("kafka broker not configured, outbox relay disabled")
	}

	scheduler := cron.New()
	_, err = scheduler.AddFunc(cfg.Worker.PruneSchedule, func() {
		runPrune(ctx, notificationService, outboxRepo, cfg.Worker.NotificationRetention, log)
	})
	if err != nil {
		return err
	}
	scheduler.Start()
	defer func() {
		<-scheduler.Stop().Done()
	}()
	log.Info("worker started", zap.String("prune_schedule", cfg.Worker.PruneSchedule))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("worker shutting down")
	cancel()

	return nil
}

func runPrune(
	ctx context.Context,
	notifications notification.Service,
	outbox kafka.OutboxRepository,
	retention time.Duration,
	log *zap.Logger,
) {
	ctx, cancel := context.WithTimeout(ctx, pruneTimeout)
	defer cancel()

	removed, err := notifications.Prune(ctx, retention)
	if err != nil {
		log.Error("prune notifications failed", zap.Error(err))
	} else {
		log.Info("read notifications pruned", zap.Int64("removed", removed))
	}

	sent, err := outbox.DeleteSentBefore(ctx, time.Now().Add(-outboxRetention))
	if err != nil {
		log.Error("prune outbox failed", zap.Error(err))
		return
	}
	log.Info("sent outbox events pruned", zap.Int64("removed", sent))
}
