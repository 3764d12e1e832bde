// Package jobs runs the background work of the application on asynq:
// nightly cost recomputation, low-stock scans and idempotency-key cleanup.
package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

// Task type names.
const (
	TypeHPPRecompute       = "hpp:recompute"
	TypeLowStockScan       = "stock:low-scan"
	TypeIdempotencyCleanup = "idempotency:cleanup"
)

// HPPRecomputePayload selects the outlet whose recipe costs get refreshed.
type HPPRecomputePayload struct {
	OutletID int64 `json:"outlet_id"`
}

// NewHPPRecomputeTask builds the cost-refresh task for one outlet.
func NewHPPRecomputeTask(outletID int64) (*asynq.Task, error) {
	payload, err := json.Marshal(HPPRecomputePayload{OutletID: outletID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeHPPRecompute, payload, asynq.MaxRetry(3)), nil
}

// NewLowStockScanTask builds the global low-stock scan task.
func NewLowStockScanTask() *asynq.Task {
	return asynq.NewTask(TypeLowStockScan, nil, asynq.MaxRetry(2))
}

// NewIdempotencyCleanupTask builds the retention sweep task.
func NewIdempotencyCleanupTask() *asynq.Task {
	return asynq.NewTask(TypeIdempotencyCleanup, nil, asynq.MaxRetry(1))
}
