package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/saviobatista/uav-deconfliction/internal/config"
	"github.com/saviobatista/uav-deconfliction/internal/log"
	"github.com/saviobatista/uav-deconfliction/internal/nats"
	"github.com/saviobatista/uav-deconfliction/internal/storage"
	"github.com/saviobatista/uav-deconfliction/internal/types"
)

// ReportWriter appends reports to the daily log
type ReportWriter interface {
	WriteReport(report *types.CheckReport) error
}

// handleReport returns the subscription callback writing every report
func handleReport(w ReportWriter, logger *log.Logger) func(*types.CheckReport) {
	return func(report *types.CheckReport) {
		if err := w.WriteReport(report); err != nil {
			logger.Error("Failed to write report", "check_id", report.CheckID, "error", err)
			return
		}
		logger.Debug("Report written", "check_id", report.CheckID, "status", report.Status)
	}
}

// runLogger contains the main application logic and can be tested
func runLogger(ctx context.Context, cfg *config.Config, logger *log.Logger) error {
	store := storage.New(cfg.OutputDir, logger)
	if err := store.Start(); err != nil {
		return fmt.Errorf("failed to start storage: %w", err)
	}
	defer func() {
		if err := store.Stop(); err != nil {
			logger.Error("Failed to stop storage", "error", err)
		}
	}()

	client, err := nats.New(cfg.NATSURL, logger)
	if err != nil {
		return fmt.Errorf("failed to create NATS client: %w", err)
	}
	// Drain before the storage is stopped so in-flight reports are written
	defer client.Close()

	if _, err := client.SubscribeCheckReports(handleReport(store, logger)); err != nil {
		return fmt.Errorf("failed to subscribe to check reports: %w", err)
	}

	logger.Info("Report logger started", "output_dir", cfg.OutputDir)
	<-ctx.Done()
	logger.Info("Shutting down...")
	return nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := log.New("logger", cfg.LogLevel, cfg.LogDir)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err = runLogger(ctx, cfg, logger)
	stop()
	if err != nil {
		logger.Error("Logger failed", "error", err)
		_ = logger.Close()
		os.Exit(1)
	}
	_ = logger.Close()
}
