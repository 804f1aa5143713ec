package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/servease/booking-api/internal/config"
	adminHandler "github.com/servease/booking-api/internal/handler/admin"
	bookingHandler "github.com/servease/booking-api/internal/handler/booking"
	healthHandler "github.com/servease/booking-api/internal/handler/health"
	notificationHandler "github.com/servease/booking-api/internal/handler/notification"
	providerHandler "github.com/servease/booking-api/internal/handler/provider"
	"github.com/servease/booking-api/internal/middleware"
	"github.com/servease/booking-api/internal/repository/postgres"
	"github.com/servease/booking-api/internal/router"
	adminService "github.com/servease/booking-api/internal/service/admin"
	bookingService "github.com/servease/booking-api/internal/service/booking"
	notificationService "github.com/servease/booking-api/internal/service/notification"
	"github.com/servease/booking-api/internal/service/otp"
	providerService "github.com/servease/booking-api/internal/service/provider"
	slotService "github.com/servease/booking-api/internal/service/slot"
	"github.com/servease/booking-api/pkg/auth"
	"github.com/servease/booking-api/pkg/logger"
	"github.com/servease/booking-api/pkg/metrics"
	"github.com/servease/booking-api/pkg/security"
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

	// Repositories
	bookingRepo := postgres.NewBookingRepository(db)
	slotRepo := postgres.NewSlotRepository(db)
	providerRepo := postgres.NewProviderRepository(db)
	userRepo := postgres.NewUserRepository(db)
	serviceRepo := postgres.NewServiceRepository(db)
	notificationRepo := postgres.NewNotificationRepository(db)
	outboxRepo := postgres.NewOutboxRepository(db)
	txManager := postgres.NewTxManager(db)

	appMetrics := metrics.NewMetrics("booking", "api")

	// Services
	hasher := security.NewBcryptHasher(0)
	gate := otp.NewGate(bookingRepo, hasher, cfg.OTP.TTL)
	notificationSvc := notificationService.NewService(notificationRepo, outboxRepo)
	providerSvc := providerService.NewService(providerRepo, userRepo, appLogger)
	slotSvc := slotService.NewService(slotRepo, providerRepo, txManager, appLogger)
	bookingSvc := bookingService.NewService(
		bookingRepo,
		slotRepo,
		providerRepo,
		userRepo,
		serviceRepo,
		providerSvc,
		gate,
		notificationSvc,
		txManager,
		appLogger,
		appMetrics,
	)
	adminSvc := adminService.NewService(bookingRepo, providerRepo, gate, notificationSvc, txManager, appLogger)

	// Middleware and handlers
	tokens := auth.NewTokenManager(cfg.JWT.Secret, time.Duration(cfg.JWT.ExpiryHours)*time.Hour)
	authMiddleware := middleware.NewAuthMiddleware(tokens)

	healthH := healthHandler.NewHandler(db)
	bookingH := bookingHandler.NewHandler(bookingSvc, slotSvc)
	providerH := providerHandler.NewHandler(providerSvc, slotSvc)
	notificationH := notificationHandler.NewHandler(notificationSvc)
	adminH := adminHandler.NewHandler(adminSvc)

	r := router.NewRouter(
		authMiddleware,
		healthH,
		bookingH,
		providerH,
		notificationH,
		adminH,
		router.Config{
			RateLimit:  rate.Limit(cfg.RateLimit.RPS),
			RateBurst:  cfg.RateLimit.Burst,
			CORSConfig: middleware.DefaultCORSConfig(),
			Timeout:    time.Duration(cfg.Server.TimeoutSeconds) * time.Second,
		},
	)
	r.Setup()

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: r.Engine(),
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()
	log.Info().Int("port", cfg.Server.Port).Msg("server started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited properly")
}
