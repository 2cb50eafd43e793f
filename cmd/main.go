package main

import (
	"context"
	"dormancy-monitor/internal/alert"
	"dormancy-monitor/internal/api"
	"dormancy-monitor/internal/batch"
	"dormancy-monitor/internal/config"
	"dormancy-monitor/internal/dormancy"
	"dormancy-monitor/internal/enrichment"
	"dormancy-monitor/internal/infrastructure/logging"
	"dormancy-monitor/internal/ledger"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
)

func main() {
	cfg, logger := initializeApp()

	rabbitConn := setupAMQP(cfg, logger)
	dispatcher := initializeDispatcher(cfg, rabbitConn, logger)
	scanJob := initializeScanJob(cfg, dispatcher, logger)

	cronScheduler := startBatchJobs(cfg, logger, scanJob)
	router := api.SetupRouter(scanJob, cfg, logger)

	srv, serverErrors, shutdownChan := startServer(cfg, router, logger)
	handleShutdown(srv, cronScheduler, rabbitConn, shutdownChan, serverErrors, logger)
}

func initializeApp() (*config.Config, *slog.Logger) {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	logger := logging.NewLogger(cfg.Logger)
	slog.SetDefault(logger)
	logger.Info("Application starting...", "config_source", viper.ConfigFileUsed())

	return cfg, logger
}

func initializeScanJob(cfg *config.Config, dispatcher alert.Dispatcher, logger *slog.Logger) *batch.DormancyScanJob {
	logger.Info("Initializing application components...")

	ledgerClient := ledger.NewClient(cfg.Ledger, logger)
	resolver := dormancy.NewActivityResolver(
		ledgerClient,
		cfg.Ledger.TransactionLookupEnabled,
		cfg.Ledger.PacingInterval,
		logger,
	)

	var enricher dormancy.Enricher
	if cfg.Enrichment.Enabled {
		identityClient := enrichment.NewIdentityClient(
			cfg.Ledger.BaseURL,
			cfg.Ledger.APIToken,
			cfg.Enrichment.RequestTimeout,
			logger,
		)
		employers := enrichment.NewEmployerDirectory(cfg.Enrichment.MappingURL, cfg.Enrichment.RequestTimeout, logger)
		enricher = enrichment.NewIdentityEnricher(
			identityClient,
			employers,
			cfg.Enrichment.FailureBudget,
			cfg.Enrichment.StageTimeout,
			logger,
		)
	} else {
		logger.Info("Account enrichment is disabled, flagged accounts will carry ledger data only.")
	}

	analyzer := dormancy.NewAnalyzer(ledgerClient, resolver, enricher, logger)
	return batch.NewDormancyScanJob(analyzer, dispatcher, cfg.Batch.ScanDays, logger)
}

func initializeDispatcher(cfg *config.Config, rabbitConn *amqp.Connection, logger *slog.Logger) alert.Dispatcher {
	if rabbitConn == nil {
		logger.Info("Alert publishing disabled, dispatching alerts to the log.")
		return alert.NewLogDispatcher(logger)
	}

	dispatcher, err := alert.NewAMQPDispatcher(rabbitConn, cfg.Alerts.ExchangeName, logger)
	if err != nil {
		logger.Error("Failed to initialize AMQP dispatcher, falling back to log dispatcher", "error", err)
		return alert.NewLogDispatcher(logger)
	}
	return dispatcher
}

func setupAMQP(cfg *config.Config, logger *slog.Logger) *amqp.Connection {
	if !cfg.Alerts.Enabled {
		return nil
	}

	conn, err := connectAMQP(cfg.Alerts.AMQPURL, logger)
	if err != nil {
		logger.Error("Failed to connect to RabbitMQ, alerts will be logged instead", "error", err)
		return nil
	}
	return conn
}

func connectAMQP(uri string, logger *slog.Logger) (*amqp.Connection, error) {
	var conn *amqp.Connection
	var err error
	retryCount := 5
	for i := 1; i <= retryCount; i++ {
		conn, err = amqp.Dial(uri)
		if err == nil {
			logger.Info("Successfully connected to RabbitMQ")

			go func() {
				blockChan := conn.NotifyBlocked(make(chan amqp.Blocking))
				closeChan := conn.NotifyClose(make(chan *amqp.Error))

				select {
				case b := <-blockChan:
					logger.Warn("RabbitMQ Connection Blocked", "reason", b.Reason)
				case e := <-closeChan:
					logger.Error("RabbitMQ Connection Closed", slog.Any("error", e))
				}
			}()

			return conn, nil
		}
		logger.Warn("Failed to connect to RabbitMQ, retrying...",
			slog.Int("attempt", i),
			slog.Int("max_attempts", retryCount),
			slog.Any("error", err),
		)
		time.Sleep(time.Duration(i*2) * time.Second)
	}
	return nil, fmt.Errorf("failed to connect to RabbitMQ after %d attempts: %w", retryCount, err)
}

func startBatchJobs(cfg *config.Config, logger *slog.Logger, scanJob *batch.DormancyScanJob) *cron.Cron {
	logger.Info("Initializing batch job scheduler...")
	c := cron.New()

	scheduleSpec := cfg.Batch.ScanSchedule
	if scheduleSpec == "" {
		scheduleSpec = "0 7 * * *"
		logger.Warn("Batch dormancy scan schedule not configured, using default", "schedule", scheduleSpec)
	}
	jobTimeout := cfg.Batch.ScanTimeout
	if jobTimeout <= 0 {
		jobTimeout = 1 * time.Hour
	}

	jobID, err := c.AddJob(scheduleSpec, cron.FuncJob(func() {
		jobLogger := logger.With("job_name", "DormancyScan")
		jobLogger.Info("Cron triggered: Running dormancy scan job.")

		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()

		result, runErr := scanJob.Run(ctx)
		switch {
		case errors.Is(runErr, batch.ErrRunInProgress):
			jobLogger.Warn("Dormancy scan skipped, a previous run is still in progress.")
		case runErr != nil:
			jobLogger.Error("Dormancy scan job finished with error", slog.Any("error", runErr))
		default:
			jobLogger.Info("Dormancy scan job finished successfully.",
				"run_id", result.RunID,
				"total_accounts", result.TotalAccounts,
				"communication_needed", len(result.CommunicationNeeded),
				"closure_needed", len(result.ClosureNeeded),
			)
		}
	}))

	if err != nil {
		logger.Error("Failed to schedule dormancy scan job", "schedule", scheduleSpec, slog.Any("error", err))
	} else {
		logger.Info("Scheduled dormancy scan job", "schedule", scheduleSpec, "job_id", jobID)
	}

	c.Start()
	logger.Info("Cron scheduler started.")
	return c
}

func startServer(cfg *config.Config, router http.Handler, logger *slog.Logger) (*http.Server, <-chan error, <-chan os.Signal) {
	logger.Info("Setting up HTTP server...", "port", cfg.Server.Port)
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info(fmt.Sprintf("Server listening on port %d", cfg.Server.Port))
		err := srv.ListenAndServe()
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server error", "error", err)
			serverErrors <- err
		} else {
			logger.Info("Server closed gracefully.")
			serverErrors <- nil
		}
	}()
	return srv, serverErrors, shutdownChan
}

func handleShutdown(srv *http.Server, cronScheduler *cron.Cron, rabbitConn *amqp.Connection,
	shutdownChan <-chan os.Signal, serverErrors <-chan error, logger *slog.Logger) {
	logger.Info("Shutdown handler started. Waiting for signal or server error...")

	triggerReason := waitForShutdownTrigger(shutdownChan, serverErrors, logger)

	logger.Info("Starting graceful shutdown...", "trigger", triggerReason)

	stopCronScheduler(cronScheduler, logger)
	closeAMQPConnection(rabbitConn, logger)
	shutdownHTTPServer(srv, serverErrors, logger)

	logger.Info("Application shutdown process complete.")
}

func waitForShutdownTrigger(shutdownChan <-chan os.Signal, serverErrors <-chan error, logger *slog.Logger) string {
	select {
	case sig := <-shutdownChan:
		logger.Info("Shutdown signal received.", "signal", sig.String())
		return "signal: " + sig.String()
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server exited unexpectedly before signal", "error", err)
			os.Exit(1)
		}
		logger.Info("Server goroutine finished before signal.", "error", err)
		return "server exited"
	}
}

func stopCronScheduler(cronScheduler *cron.Cron, logger *slog.Logger) {
	logger.Info("Stopping cron scheduler...")
	cronCtx := cronScheduler.Stop()
	select {
	case <-cronCtx.Done():
		logger.Info("Cron scheduler stopped gracefully.")
	case <-time.After(15 * time.Second):
		logger.Warn("Cron scheduler shutdown timed out.")
	}
}

func closeAMQPConnection(rabbitConn *amqp.Connection, logger *slog.Logger) {
	if rabbitConn == nil {
		logger.Info("RabbitMQ connection was not established, skipping close.")
		return
	}
	if rabbitConn.IsClosed() {
		logger.Info("RabbitMQ connection already closed, skipping close.")
		return
	}
	logger.Info("Closing RabbitMQ connection...")
	if err := rabbitConn.Close(); err != nil {
		logger.Error("Failed to close RabbitMQ connection gracefully", slog.Any("error", err))
	} else {
		logger.Info("RabbitMQ connection closed.")
	}
}

func shutdownHTTPServer(srv *http.Server, serverErrors <-chan error, logger *slog.Logger) {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	logger.Info("Shutting down HTTP server...")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server graceful shutdown failed", "error", err)
		} else {
			logger.Info("HTTP server shutdown initiated.")
		}
		if err := srv.Close(); err != nil {
			logger.Error("HTTP server forced close failed", "error", err)
		}
	} else {
		logger.Info("HTTP server gracefully stopped.")
	}

	logger.Info("Waiting for server goroutine to confirm exit...")
	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("Server goroutine exited with unexpected error after shutdown", "error", err)
		} else {
			logger.Info("Server goroutine confirmed exit.")
		}
	case <-time.After(5 * time.Second):
		logger.Warn("Timed out waiting for server goroutine confirmation.")
	}
}
