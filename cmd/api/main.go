package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/saviobatista/uav-deconfliction/internal/checker"
	"github.com/saviobatista/uav-deconfliction/internal/config"
	"github.com/saviobatista/uav-deconfliction/internal/db"
	"github.com/saviobatista/uav-deconfliction/internal/deconflict"
	"github.com/saviobatista/uav-deconfliction/internal/log"
	"github.com/saviobatista/uav-deconfliction/internal/redis"
	"github.com/saviobatista/uav-deconfliction/internal/stats"
)

const connectTimeout = 5 * time.Second

// connectCache returns a Redis client, or nil when Redis is unreachable
func connectCache(cfg *config.Config, logger *log.Logger) *redis.Client {
	if cfg.RedisAddr == "" {
		return nil
	}
	client, err := redis.New(cfg.RedisAddr, cfg.CacheTTL)
	if err != nil {
		logger.Warn("Result cache disabled", "addr", cfg.RedisAddr, "error", err)
		return nil
	}
	return client
}

// connectHistory returns a database client, or nil when the database is
// unreachable
func connectHistory(ctx context.Context, cfg *config.Config, logger *log.Logger) *db.Client {
	if cfg.DBConnStr == "" {
		return nil
	}
	client, err := db.New(cfg.DBConnStr)
	if err == nil {
		ctx, cancel := context.WithTimeout(ctx, connectTimeout)
		err = client.Ping(ctx)
		cancel()
		if err != nil {
			_ = client.Close()
		}
	}
	if err != nil {
		logger.Warn("Check history disabled", "error", err)
		return nil
	}
	return client
}

func run(ctx context.Context, cfg *config.Config, logger *log.Logger) error {
	engine, err := deconflict.New(cfg.Params())
	if err != nil {
		return fmt.Errorf("failed to create engine: %w", err)
	}

	st := stats.New()
	opts := []checker.Option{checker.WithStats(st), checker.WithLogger(logger)}
	var history HistoryReader

	if cache := connectCache(cfg, logger); cache != nil {
		defer cache.Close()
		opts = append(opts, checker.WithCache(cache))
	}
	if dbClient := connectHistory(ctx, cfg, logger); dbClient != nil {
		defer dbClient.Close()
		opts = append(opts, checker.WithHistory(dbClient))
		history = dbClient
		st.SetStore(dbClient)
		stopPersistence := st.RunPersistence(ctx, cfg.StatsEvery, logger)
		defer stopPersistence()
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           NewServer(checker.New(engine, opts...), st, history, logger).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Launching HTTP server", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := log.New("api", cfg.LogLevel, cfg.LogDir)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err = run(ctx, cfg, logger)
	stop()
	if err != nil {
		logger.Error("API failed", "error", err)
		_ = logger.Close()
		os.Exit(1)
	}
	_ = logger.Close()
}
