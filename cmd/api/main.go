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

	"github.com/medicure/hms-api/config"
	"github.com/medicure/hms-api/internal/email"
	appointmentHandler "github.com/medicure/hms-api/internal/handler/appointment"
	billingHandler "github.com/medicure/hms-api/internal/handler/billing"
	healthHandler "github.com/medicure/hms-api/internal/handler/health"
	medicationHandler "github.com/medicure/hms-api/internal/handler/medication"
	prescriptionHandler "github.com/medicure/hms-api/internal/handler/prescription"
	"github.com/medicure/hms-api/internal/middleware"
	"github.com/medicure/hms-api/internal/repository/postgres"
	"github.com/medicure/hms-api/internal/router"
	billingService "github.com/medicure/hms-api/internal/service/billing"
	eventService "github.com/medicure/hms-api/internal/service/event"
	inventoryService "github.com/medicure/hms-api/internal/service/inventory"
	notificationService "github.com/medicure/hms-api/internal/service/notification"
	prescriptionService "github.com/medicure/hms-api/internal/service/prescription"
	schedulingService "github.com/medicure/hms-api/internal/service/scheduling"
	"github.com/medicure/hms-api/pkg/logger"
	"github.com/medicure/hms-api/pkg/metrics"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLogger := logger.NewLogger(nil)

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	// Repositories
	userRepo := postgres.NewUserRepository(db)
	appointmentRepo := postgres.NewAppointmentRepository(db)
	prescriptionRepo := postgres.NewPrescriptionRepository(db)
	templateRepo := postgres.NewTemplateRepository(db)
	invoiceRepo := postgres.NewInvoiceRepository(db)
	medicationRepo := postgres.NewMedicationRepository(db)
	dispenseRepo := postgres.NewDispenseRepository(db)
	outboxRepo := postgres.NewOutboxRepository(db)

	// Services
	appMetrics := metrics.NewMetrics("hms", "api")
	eventSvc := eventService.NewService(outboxRepo)
	emailSvc := email.NewService(cfg.Email)
	notifier := notificationService.NewService(emailSvc, appLogger)
	schedulingSvc := schedulingService.NewService(appointmentRepo, userRepo, eventSvc, notifier, appMetrics)
	prescriptionSvc := prescriptionService.NewService(prescriptionRepo, templateRepo, appointmentRepo, medicationRepo, eventSvc, appMetrics)
	billingSvc := billingService.NewService(invoiceRepo, appointmentRepo, eventSvc, notifier, appMetrics)
	inventorySvc := inventoryService.NewService(medicationRepo, dispenseRepo, eventSvc, appMetrics)

	// Handlers
	authMiddleware := middleware.NewAuthMiddleware(cfg.JWT.Secret)
	healthH := healthHandler.NewHandler(db)
	appointmentH := appointmentHandler.NewHandler(schedulingSvc)
	prescriptionH := prescriptionHandler.NewHandler(prescriptionSvc)
	billingH := billingHandler.NewHandler(billingSvc)
	medicationH := medicationHandler.NewHandler(inventorySvc)

	corsConfig := middleware.DefaultCORSConfig()
	if len(cfg.Security.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.Security.AllowedOrigins
	}
	if len(cfg.Security.AllowedMethods) > 0 {
		corsConfig.AllowMethods = cfg.Security.AllowedMethods
	}
	if len(cfg.Security.AllowedHeaders) > 0 {
		corsConfig.AllowHeaders = cfg.Security.AllowedHeaders
	}

	r := router.NewRouter(
		authMiddleware,
		healthH,
		appointmentH,
		prescriptionH,
		billingH,
		medicationH,
		router.Config{
			RateLimitEnabled:  cfg.RateLimit.Enabled,
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
			CORS:              corsConfig,
			MetricsEnabled:    cfg.Monitoring.PrometheusEnabled,
			MetricsPath:       cfg.Monitoring.MetricsPath,
		},
	)
	r.Setup()

	srv := &http.Server{
		Addr:           fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:        r.Engine(),
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}

	go func() {
		appLogger.Info("starting server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	appLogger.Info("server exited properly")
}
