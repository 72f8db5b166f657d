package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	dispatchApp "github.com/kirimwa/dispatch-service/internal/dispatch_service/app"
	"github.com/kirimwa/dispatch-service/internal/dispatch_service/provider"
	exportApp "github.com/kirimwa/dispatch-service/internal/export_service/app"
	exportRepo "github.com/kirimwa/dispatch-service/internal/export_service/repository/postgres"
	phonebookApp "github.com/kirimwa/dispatch-service/internal/phonebook_service/app"
	phonebookRepo "github.com/kirimwa/dispatch-service/internal/phonebook_service/repository/postgres"
	"github.com/kirimwa/dispatch-service/internal/platform/config"
	"github.com/kirimwa/dispatch-service/internal/platform/database"
	"github.com/kirimwa/dispatch-service/internal/platform/logger"
	"github.com/kirimwa/dispatch-service/internal/platform/messagebroker"
	httptransport "github.com/kirimwa/dispatch-service/internal/public_api_service/transport/http"
)

const (
	serviceName     = "dispatch-service"
	shutdownTimeout = 15 * time.Second
)

func main() {
	mainCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "service", serviceName, "error", err)
		os.Exit(1)
	}

	appLogger := logger.New(cfg.LogLevel).With("service", serviceName)
	appLogger.Info("Dispatch service starting...",
		"api_port", cfg.APIServicePort,
		"metrics_port", cfg.MetricsPort,
		"delivery_api_url", cfg.DeliveryAPIURL,
	)

	dbPool, err := database.NewDBPool(mainCtx, cfg.PostgresDSN)
	if err != nil {
		appLogger.Error("Failed to initialize database connection pool", "error", err)
		os.Exit(1)
	}
	defer dbPool.Close()
	appLogger.Info("Database connection pool initialized")

	// NATS is optional: without it, run-completed events are simply not published.
	var natsClient *messagebroker.NatsClient
	if cfg.NATSUrl != "" {
		natsClient, err = messagebroker.NewNatsClient(cfg.NATSUrl, serviceName, appLogger)
		if err != nil {
			appLogger.Warn("Failed to connect to NATS, continuing without events", "error", err)
			natsClient = nil
		} else {
			defer natsClient.Close()
			appLogger.Info("NATS client connected", "url", cfg.NATSUrl)
		}
	}

	// Repositories
	contactRepo := phonebookRepo.NewPgContactRepository(dbPool, appLogger)
	historyRepo := exportRepo.NewPgHistoryRepository(dbPool, appLogger)

	// Application services
	importer := phonebookApp.NewImporter(appLogger)
	phonebook := phonebookApp.NewApplication(contactRepo, importer, appLogger)
	history := exportApp.NewHistoryService(historyRepo, appLogger)

	providerFactory := func(_ provider.Credentials) provider.DeliveryProvider {
		return provider.NewZapinProvider(appLogger, cfg.DeliveryAPIURL, nil)
	}
	dispatcher := dispatchApp.NewDispatchAppService(providerFactory, history, natsClient, appLogger)

	if natsClient != nil {
		consumer := exportApp.NewRunEventsConsumer(natsClient, appLogger)
		if err := consumer.Start(mainCtx); err != nil {
			appLogger.Warn("Failed to start run events consumer", "error", err)
		}
	}

	// HTTP transport
	validate := validator.New()
	router := httptransport.NewRouter(httptransport.RouterDeps{
		Contacts: httptransport.NewContactHandler(phonebook, appLogger, validate, cfg.MaxUploadSizeBytes),
		Messages: httptransport.NewMessageHandler(dispatcher, phonebook, providerFactory, appLogger, validate),
		Reports:  httptransport.NewReportHandler(history, appLogger),
	})

	apiServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.APIServicePort),
		Handler: router,
	}

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.MetricsPort),
		Handler: metricsMux,
	}

	g, groupCtx := errgroup.WithContext(mainCtx)

	g.Go(func() error {
		appLogger.Info("API server listening", "addr", apiServer.Addr)
		if err := apiServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("API server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		appLogger.Info("Metrics server listening", "addr", metricsServer.Addr)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-groupCtx.Done()
		appLogger.Info("Shutdown signal received, stopping HTTP servers...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := apiServer.Shutdown(shutdownCtx); err != nil {
			appLogger.Error("API server shutdown failed", "error", err)
		}
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			appLogger.Error("Metrics server shutdown failed", "error", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		appLogger.Error("Service exited with error", "error", err)
		os.Exit(1)
	}
	appLogger.Info("Dispatch service stopped cleanly")
}
