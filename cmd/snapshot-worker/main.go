package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/BLINDMO/honeycutt-budget-planner-sub000/internal/amqp"
	"github.com/BLINDMO/honeycutt-budget-planner-sub000/internal/config"
	"github.com/BLINDMO/honeycutt-budget-planner-sub000/internal/export"
	applog "github.com/BLINDMO/honeycutt-budget-planner-sub000/internal/log"
	"github.com/BLINDMO/honeycutt-budget-planner-sub000/internal/storage"
)

// The snapshot worker listens for change events and mirrors the SQLite
// state into a JSON export file. Snapshots are debounced: a burst of
// changes produces one write per interval.
func main() {
	_ = godotenv.Load()

	logger := applog.New(applog.Config{Component: applog.ComponentWorker})
	applog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the snapshot worker")
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	snapshotPath := filepath.Join(cfg.SnapshotDir, "budget.json")
	var dirty atomic.Bool

	writeSnapshot := func(ctx context.Context) error {
		agg, err := repo.Load(ctx)
		if err != nil {
			return err
		}
		if err := export.WriteFile(snapshotPath, agg); err != nil {
			return err
		}
		logger.InfoContext(ctx, "Snapshot written",
			"path", snapshotPath,
			"bills", len(agg.Bills),
			"active_month", agg.ActiveMonth)
		return nil
	}

	// One snapshot at startup so a fresh worker always leaves a file
	// behind.
	if err := writeSnapshot(ctx); err != nil {
		logger.Warn("Initial snapshot failed", "error", err)
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return amqpClient.ConsumeChanges(ctx, func(msg *amqp.ChangeMessage) error {
			logger.InfoContext(ctx, "Change received",
				"kind", msg.Kind,
				"month", msg.Month)
			dirty.Store(true)
			return nil
		})
	})

	g.Go(func() error {
		ticker := time.NewTicker(cfg.SnapshotInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				if !dirty.Swap(false) {
					continue
				}
				if err := writeSnapshot(ctx); err != nil {
					logger.ErrorContext(ctx, "Snapshot failed", "error", err)
					dirty.Store(true)
				}
			}
		}
	})

	logger.Info("Snapshot worker started",
		"queue", cfg.AMQPQueue,
		"snapshot", snapshotPath,
		"interval", cfg.SnapshotInterval)

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		logger.Error("Worker stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("Worker stopped gracefully")
}
