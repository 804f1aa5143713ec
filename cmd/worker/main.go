package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/servease/booking-api/internal/config"
	"github.com/servease/booking-api/internal/email"
	"github.com/servease/booking-api/internal/model"
	"github.com/servease/booking-api/internal/repository"
	"github.com/servease/booking-api/internal/repository/postgres"
	notificationService "github.com/servease/booking-api/internal/service/notification"
	"github.com/servease/booking-api/pkg/logger"
	"github.com/servease/booking-api/pkg/messaging"
	redisBroker "github.com/servease/booking-api/pkg/messaging/redis"
	"github.com/servease/booking-api/pkg/metrics"
	"github.com/servease/booking-api/pkg/worker"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLogger := logger.NewLogger(&logger.Config{Level: logger.InfoLevel})

	db, err := postgres.NewDB(cfg.Database.DSN())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	zl := appLogger.Zerolog()
	broker, err := redisBroker.NewRedisBroker(redisBroker.Config{
		URL:          cfg.Redis.URL,
		MaxRetries:   cfg.Redis.MaxRetries,
		RetryBackoff: cfg.Redis.RetryBackoff,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
	}, zl)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to Redis")
	}
	defer broker.Close()

	m := metrics.NewMetrics("booking", "worker")

	outboxRepo := postgres.NewOutboxRepository(db)
	userRepo := postgres.NewUserRepository(db)

	processor := worker.NewOutboxProcessor(outboxRepo, broker, worker.OutboxProcessorConfig{
		BatchSize:     cfg.Worker.BatchSize,
		PollInterval:  cfg.Worker.PollInterval,
		RetryAttempts: cfg.Worker.MaxRetries,
		RetryDelay:    time.Second,
	}, appLogger, m)

	sender := email.NewSender(email.Config{
		Host:     cfg.Email.Host,
		Port:     cfg.Email.Port,
		Username: cfg.Email.Username,
		Password: cfg.Email.Password,
		From:     cfg.Email.From,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go processor.Start(ctx)
	go consumeNotifications(ctx, broker, userRepo, sender, appLogger)

	metricsSrv := &http.Server{Addr: ":9090", Handler: promhttp.Handler()}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start metrics server")
		}
	}()

	log.Info().Msg("worker started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down worker...")

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("metrics server forced to shutdown")
	}

	log.Info().Msg("worker exited properly")
}

// consumeNotifications delivers published booking notifications over email.
func consumeNotifications(
	ctx context.Context,
	broker messaging.Broker,
	users repository.UserRepository,
	sender email.Sender,
	logger *logger.Logger,
) {
	msgs, err := broker.Subscribe(ctx, notificationService.EventTypeBookingNotification)
	if err != nil {
		logger.Error(err, "Failed to subscribe to notification channel")
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case raw, ok := <-msgs:
			if !ok {
				return
			}

			var event model.NotificationEvent
			if err := json.Unmarshal(raw, &event); err != nil {
				logger.Error(err, "Failed to decode notification event")
				continue
			}

			user, err := users.Get(ctx, event.UserID)
			if err != nil {
				logger.Error(err, "Failed to load notification recipient",
					"user_id", event.UserID.String())
				continue
			}

			if err := sender.Send(ctx, user.Email, "Booking update", event.Message); err != nil {
				logger.Error(err, "Failed to deliver notification email",
					"user_id", event.UserID.String())
			}
		}
	}
}
