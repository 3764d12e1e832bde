package jobs

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
)

// Client enqueues background tasks from the HTTP process.
type Client struct {
	logger *slog.Logger
	client *asynq.Client
}

// NewClient builds the enqueue client.
func NewClient(logger *slog.Logger, redisAddr string) *Client {
	return &Client{
		logger: logger,
		client: asynq.NewClient(asynq.RedisClientOpt{Addr: redisAddr}),
	}
}

// Close releases the underlying connection.
func (c *Client) Close() error {
	return c.client.Close()
}

// EnqueueHPPRecompute schedules a cost refresh for one outlet.
func (c *Client) EnqueueHPPRecompute(ctx context.Context, outletID int64) error {
	task, err := NewHPPRecomputeTask(outletID)
	if err != nil {
		return err
	}
	info, err := c.client.EnqueueContext(ctx, task)
	if err != nil {
		return fmt.Errorf("enqueue %s: %w", TypeHPPRecompute, err)
	}
	c.logger.Info("task enqueued", slog.String("type", TypeHPPRecompute), slog.String("task_id", info.ID))
	return nil
}

// EnqueueLowStockScan schedules an immediate low-stock scan.
func (c *Client) EnqueueLowStockScan(ctx context.Context) error {
	_, err := c.client.EnqueueContext(ctx, NewLowStockScanTask())
	if err != nil {
		return fmt.Errorf("enqueue %s: %w", TypeLowStockScan, err)
	}
	return nil
}
