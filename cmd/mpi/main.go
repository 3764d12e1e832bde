package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mpi-retail/mpi/internal/app"
	"github.com/mpi-retail/mpi/internal/catalog"
	"github.com/mpi-retail/mpi/internal/customers"
	"github.com/mpi-retail/mpi/internal/masterdata"
	"github.com/mpi-retail/mpi/internal/observability"
	"github.com/mpi-retail/mpi/internal/platform/cache"
	"github.com/mpi-retail/mpi/internal/platform/db"
	"github.com/mpi-retail/mpi/internal/platform/httpx"
	"github.com/mpi-retail/mpi/internal/pricing"
	"github.com/mpi-retail/mpi/internal/reports"
	"github.com/mpi-retail/mpi/internal/sales"
	"github.com/mpi-retail/mpi/internal/shared"
	"github.com/mpi-retail/mpi/internal/shifts"
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

	rdb, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("redis connection failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() { _ = rdb.Close() }()

	metrics := observability.NewMetrics()
	audit := shared.NewAuditLogger(pool)
	idem := shared.NewIdempotencyStore(pool)

	masterdataSvc := masterdata.NewService(masterdata.NewRepository(pool))
	pricingSvc := pricing.NewService(pricing.NewRepository(pool))
	catalogSvc := catalog.NewService(catalog.NewRepository(pool), pricingSvc, audit)
	customersSvc := customers.NewService(logger, customers.NewRepository(pool), pricingSvc, audit)

	reportCache := reports.NewCache(rdb, cfg.ReportCacheTTL)
	reportsSvc := reports.NewService(logger, reports.NewRepository(pool), reportCache)

	salesSvc := sales.NewService(logger, sales.NewRepository(pool), idem, audit, metrics, reportCache, sales.Options{
		AllowNegativeStock: cfg.AllowNegativeStock,
		OrderNumberRetries: cfg.OrderNumberRetries,
	})

	shiftsSvc := shifts.NewService(logger, shifts.NewRepository(pool), masterdataSvc)

	jobsClient := jobs.NewClient(logger, cfg.RedisAddr)
	defer func() { _ = jobsClient.Close() }()

	router := app.NewRouter(app.RouterParams{
		Logger:     logger,
		Config:     cfg,
		Metrics:    metrics,
		Catalog:    catalog.NewHandler(logger, catalogSvc),
		Pricing:    pricing.NewHandler(logger, pricingSvc),
		Customers:  customers.NewHandler(logger, customersSvc),
		MasterData: masterdata.NewHandler(logger, masterdataSvc),
		Sales:      sales.NewHandler(logger, salesSvc),
		Reports:    reports.NewHandler(logger, reportsSvc),
		Shifts:     shifts.NewHandler(logger, shiftsSvc),
		Jobs:       jobs.NewHandler(logger, jobsClient, cfg.RedisAddr),
		Healthcheck: func(w http.ResponseWriter, r *http.Request) {
			if err := pool.Ping(r.Context()); err != nil {
				httpx.Problem(w, http.StatusServiceUnavailable, "Unhealthy", "database unreachable")
				return
			}
			httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
		},
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("http server listening", slog.String("addr", cfg.AppAddr), slog.String("env", cfg.AppEnv))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.Any("error", err))
	}
}
