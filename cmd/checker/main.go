package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/saviobatista/uav-deconfliction/internal/checker"
	"github.com/saviobatista/uav-deconfliction/internal/config"
	"github.com/saviobatista/uav-deconfliction/internal/db"
	"github.com/saviobatista/uav-deconfliction/internal/deconflict"
	"github.com/saviobatista/uav-deconfliction/internal/log"
	"github.com/saviobatista/uav-deconfliction/internal/nats"
	"github.com/saviobatista/uav-deconfliction/internal/redis"
	"github.com/saviobatista/uav-deconfliction/internal/stats"
	"github.com/saviobatista/uav-deconfliction/internal/types"
)

const requestTimeout = 30 * time.Second

// Publisher sends finished reports
type Publisher interface {
	PublishCheckReport(report *types.CheckReport) error
}

// Worker checks requests taken from the queue and publishes their reports
type Worker struct {
	svc       *checker.Service
	publisher Publisher
	stats     *stats.Stats
	logger    *log.Logger
}

// NewWorker creates a new worker
func NewWorker(svc *checker.Service, publisher Publisher, st *stats.Stats, logger *log.Logger) *Worker {
	return &Worker{svc: svc, publisher: publisher, stats: st, logger: logger}
}

// HandleRequest checks one queued request. A request that cannot be checked
// still gets a report carrying the error so the submitter is not left waiting.
func (w *Worker) HandleRequest(msg *types.CheckRequestMessage) error {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	report, err := w.svc.CheckRaw(ctx, msg.RequestID, msg.Source, msg.Payload)
	if err != nil {
		w.logger.Warn("Rejected check request", "request_id", msg.RequestID, "error", err)
		report = w.svc.FailureReport(msg.RequestID, msg.Source, err)
	}

	if err := w.publisher.PublishCheckReport(report); err != nil {
		return fmt.Errorf("failed to publish report: %w", err)
	}
	return nil
}

// logStats periodically logs statistics
func (w *Worker) logStats(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.logger.Infof("Statistics:\n%s", w.stats)
		}
	}
}

// createClients creates all the required clients for the application
func createClients(cfg *config.Config, logger *log.Logger) (*nats.Client, *db.Client, *redis.Client, error) {
	natsClient, err := nats.New(cfg.NATSURL, logger)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to create NATS client: %w", err)
	}

	dbClient, err := db.New(cfg.DBConnStr)
	if err != nil {
		natsClient.Close()
		return nil, nil, nil, fmt.Errorf("failed to create database client: %w", err)
	}

	redisClient, err := redis.New(cfg.RedisAddr, cfg.CacheTTL)
	if err != nil {
		natsClient.Close()
		if closeErr := dbClient.Close(); closeErr != nil {
			logger.Error("Error closing database client", "error", closeErr)
		}
		return nil, nil, nil, fmt.Errorf("failed to create Redis client: %w", err)
	}

	return natsClient, dbClient, redisClient, nil
}

// setupWorker wires the engine, the cache, the history store and the stats
func setupWorker(cfg *config.Config, publisher Publisher, dbClient *db.Client, redisClient *redis.Client, logger *log.Logger) (*Worker, error) {
	engine, err := deconflict.New(cfg.Params())
	if err != nil {
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}

	st := stats.New()
	opts := []checker.Option{checker.WithStats(st), checker.WithLogger(logger)}
	if redisClient != nil {
		opts = append(opts, checker.WithCache(redisClient))
	}
	if dbClient != nil {
		st.SetStore(dbClient)
		opts = append(opts, checker.WithHistory(dbClient))
	}

	return NewWorker(checker.New(engine, opts...), publisher, st, logger), nil
}

func run(ctx context.Context, cfg *config.Config, logger *log.Logger) error {
	natsClient, dbClient, redisClient, err := createClients(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		natsClient.Close()
		if err := dbClient.Close(); err != nil {
			logger.Error("Error closing database client", "error", err)
		}
		if err := redisClient.Close(); err != nil {
			logger.Error("Error closing Redis client", "error", err)
		}
	}()

	worker, err := setupWorker(cfg, natsClient, dbClient, redisClient, logger)
	if err != nil {
		return err
	}

	sub, err := natsClient.SubscribeCheckRequests(func(msg *types.CheckRequestMessage) {
		if err := worker.HandleRequest(msg); err != nil {
			logger.Error("Failed to process request", "request_id", msg.RequestID, "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to check requests: %w", err)
	}
	defer func() {
		if err := sub.Unsubscribe(); err != nil {
			logger.Warn("Failed to unsubscribe", "error", err)
		}
	}()

	go worker.logStats(ctx, cfg.StatsEvery)
	stopPersistence := worker.stats.RunPersistence(ctx, cfg.StatsEvery, logger)
	defer stopPersistence()

	logger.Info("Checker started", "nats", cfg.NATSURL, "workers", cfg.Workers)
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

	logger := log.New("checker", cfg.LogLevel, cfg.LogDir)
	defer logger.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("Checker failed", "error", err)
		stop()
		_ = logger.Close()
		os.Exit(1)
	}
}
