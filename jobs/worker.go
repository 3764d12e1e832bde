package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/mpi-retail/mpi/internal/catalog"
	"github.com/mpi-retail/mpi/internal/masterdata"
	"github.com/mpi-retail/mpi/internal/observability"
	"github.com/mpi-retail/mpi/internal/shared"
)

// Worker processes background tasks and owns the cron schedule.
type Worker struct {
	logger    *slog.Logger
	server    *asynq.Server
	scheduler *asynq.Scheduler
	catalog   *catalog.Service
	outlets   *masterdata.Service
	idem      *shared.IdempotencyStore
	metrics   *observability.Metrics
	retention time.Duration
}

// NewWorker builds the asynq server and scheduler against one Redis address.
func NewWorker(logger *slog.Logger, redisAddr string, catalogSvc *catalog.Service, outlets *masterdata.Service, idem *shared.IdempotencyStore, metrics *observability.Metrics, retention time.Duration) *Worker {
	opt := asynq.RedisClientOpt{Addr: redisAddr}
	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: 5,
		Queues: map[string]int{
			"default": 5,
		},
		Logger: asynqLogger{logger},
	})
	scheduler := asynq.NewScheduler(opt, &asynq.SchedulerOpts{
		Logger: asynqLogger{logger},
	})
	return &Worker{
		logger:    logger,
		server:    server,
		scheduler: scheduler,
		catalog:   catalogSvc,
		outlets:   outlets,
		idem:      idem,
		metrics:   metrics,
		retention: retention,
	}
}

// Run registers handlers and the cron schedule, then blocks until shutdown.
func (w *Worker) Run() error {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeHPPRecompute, w.handleHPPRecompute)
	mux.HandleFunc(TypeLowStockScan, w.handleLowStockScan)
	mux.HandleFunc(TypeIdempotencyCleanup, w.handleIdempotencyCleanup)

	recompute, err := NewHPPRecomputeTask(0)
	if err != nil {
		return fmt.Errorf("build hpp recompute task: %w", err)
	}
	if _, err := w.scheduler.Register("0 2 * * *", recompute); err != nil {
		return fmt.Errorf("register hpp recompute: %w", err)
	}
	if _, err := w.scheduler.Register("*/30 * * * *", NewLowStockScanTask()); err != nil {
		return fmt.Errorf("register low stock scan: %w", err)
	}
	if _, err := w.scheduler.Register("0 4 * * *", NewIdempotencyCleanupTask()); err != nil {
		return fmt.Errorf("register idempotency cleanup: %w", err)
	}

	if err := w.scheduler.Start(); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	defer w.scheduler.Shutdown()

	return w.server.Run(mux)
}

// Shutdown stops the server gracefully.
func (w *Worker) Shutdown() {
	w.server.Shutdown()
}

// handleHPPRecompute refreshes recipe costs. OutletID 0 means every outlet.
func (w *Worker) handleHPPRecompute(ctx context.Context, task *asynq.Task) error {
	var payload HPPRecomputePayload
	if len(task.Payload()) > 0 {
		if err := json.Unmarshal(task.Payload(), &payload); err != nil {
			return fmt.Errorf("decode payload: %w", err)
		}
	}

	outletIDs := []int64{payload.OutletID}
	if payload.OutletID == 0 {
		outlets, err := w.outlets.ListOutlets(ctx)
		if err != nil {
			return err
		}
		outletIDs = outletIDs[:0]
		for _, o := range outlets {
			if o.IsActive {
				outletIDs = append(outletIDs, o.ID)
			}
		}
	}

	for _, outletID := range outletIDs {
		updated, err := w.catalog.RecomputeOutletCosts(ctx, outletID)
		if err != nil {
			return fmt.Errorf("outlet %d: %w", outletID, err)
		}
		w.logger.Info("recipe costs recomputed", slog.Int64("outlet_id", outletID), slog.Int("products", updated))
	}
	return nil
}

// handleLowStockScan reports every raw material under its minimum.
func (w *Worker) handleLowStockScan(ctx context.Context, _ *asynq.Task) error {
	materials, err := w.catalog.LowStockMaterials(ctx)
	if err != nil {
		return err
	}
	for _, m := range materials {
		if w.metrics != nil {
			w.metrics.LowStockAlert()
		}
		w.logger.Warn("raw material below minimum stock",
			slog.Int64("material_id", m.ID),
			slog.String("name", m.Name),
			slog.Float64("stock_qty", m.StockQty),
			slog.Float64("min_stock", m.MinStock))
	}
	return nil
}

// handleIdempotencyCleanup sweeps keys past the retention window.
func (w *Worker) handleIdempotencyCleanup(ctx context.Context, _ *asynq.Task) error {
	return w.idem.Cleanup(ctx, w.retention)
}

// asynqLogger adapts slog to asynq's logger interface.
type asynqLogger struct {
	logger *slog.Logger
}

func (l asynqLogger) Debug(args ...any) { l.logger.Debug(fmt.Sprint(args...)) }
func (l asynqLogger) Info(args ...any)  { l.logger.Info(fmt.Sprint(args...)) }
func (l asynqLogger) Warn(args ...any)  { l.logger.Warn(fmt.Sprint(args...)) }
func (l asynqLogger) Error(args ...any) { l.logger.Error(fmt.Sprint(args...)) }
func (l asynqLogger) Fatal(args ...any) { l.logger.Error(fmt.Sprint(args...)) }
