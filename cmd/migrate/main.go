package main

import (
	"database/sql"
	"flag"
	"fmt"
	"io"
	"os"

	_ "github.com/lib/pq"

	"github.com/saviobatista/uav-deconfliction/internal/config"
	"github.com/saviobatista/uav-deconfliction/internal/db/migrations"
	"github.com/saviobatista/uav-deconfliction/internal/log"
)

const (
	modeUp       = "up"
	modeRollback = "rollback"
	modeStatus   = "status"
)

// runMigrations executes mode against db and prints a summary to out
func runMigrations(db *sql.DB, mode string, out io.Writer, logger *log.Logger) error {
	migrator := migrations.New(db, logger)
	all := migrations.All()

	switch mode {
	case modeUp:
		n, err := migrator.Migrate(all)
		if err != nil {
			return fmt.Errorf("failed to apply migrations: %w", err)
		}
		_, err = fmt.Fprintf(out, "Applied %d migration(s)\n", n)
		return err
	case modeRollback:
		if err := migrator.Rollback(all); err != nil {
			return fmt.Errorf("failed to rollback migration: %w", err)
		}
		_, err := fmt.Fprintln(out, "Rolled back 1 migration")
		return err
	case modeStatus:
		status, err := migrator.Status(all)
		if err != nil {
			return fmt.Errorf("failed to read migration status: %w", err)
		}
		for _, s := range status {
			state := "pending"
			if s.Applied {
				state = "applied"
			}
			if _, err := fmt.Fprintf(out, "%-24s %s\n", s.Name, state); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("unknown mode %q", mode)
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	dbURL := flag.String("db", cfg.DBConnStr, "Database connection string")
	rollback := flag.Bool("rollback", false, "Rollback the last migration")
	status := flag.Bool("status", false, "Show which migrations are applied")
	flag.Parse()

	logger := log.New("migrate", cfg.LogLevel, "")

	mode := modeUp
	switch {
	case *rollback:
		mode = modeRollback
	case *status:
		mode = modeStatus
	}

	db, err := sql.Open("postgres", *dbURL)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}

	if err := db.Ping(); err != nil {
		logger.Error("Failed to ping database", "error", err)
		_ = db.Close()
		os.Exit(1)
	}

	err = runMigrations(db, mode, os.Stdout, logger)
	_ = db.Close()
	if err != nil {
		logger.Error("Migration failed", "mode", mode, "error", err)
		os.Exit(1)
	}
}
