package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/mpi-retail/mpi/internal/app"
	"github.com/mpi-retail/mpi/internal/catalog"
	"github.com/mpi-retail/mpi/internal/masterdata"
	"github.com/mpi-retail/mpi/internal/observability"
	"github.com/mpi-retail/mpi/internal/platform/db"
	"github.com/mpi-retail/mpi/internal/pricing"
	"github.com/mpi-retail/mpi/internal/shared"
	"github.com/mpi-retail/mpi/jobs"
)

func main() {
	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Error("load config failed", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("postgres connection failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	metrics := observability.NewMetrics()
	audit := shared.NewAuditLogger(pool)
	idem := shared.NewIdempotencyStore(pool)

	masterdataSvc := masterdata.NewService(masterdata.NewRepository(pool))
	pricingSvc := pricing.NewService(pricing.NewRepository(pool))
	catalogSvc := catalog.NewService(catalog.NewRepository(pool), pricingSvc, audit)

	worker := jobs.NewWorker(logger, cfg.RedisAddr, catalogSvc, masterdataSvc, idem, metrics, cfg.IdempotencyRetention)

	go func() {
		<-ctx.Done()
		logger.Info("shutting down worker")
		worker.Shutdown()
	}()

	logger.Info("worker starting", slog.String("redis", cfg.RedisAddr))
	if err := worker.Run(); err != nil {
		logger.Error("worker stopped", slog.Any("error", err))
		os.Exit(1)
	}
}
