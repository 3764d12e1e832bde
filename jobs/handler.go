package jobs

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"

	"github.com/mpi-retail/mpi/internal/platform/httpx"
)

// Handler exposes queue health and manual task triggers.
type Handler struct {
	logger    *slog.Logger
	client    *Client
	inspector *asynq.Inspector
}

// NewHandler constructs the jobs handler.
func NewHandler(logger *slog.Logger, client *Client, redisAddr string) *Handler {
	return &Handler{
		logger:    logger,
		client:    client,
		inspector: asynq.NewInspector(asynq.RedisClientOpt{Addr: redisAddr}),
	}
}

// MountRoutes registers job routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/queues", h.queues)
	r.Post("/hpp-recompute", h.triggerHPPRecompute)
	r.Post("/low-stock-scan", h.triggerLowStockScan)
}

type queueStatus struct {
	Queue     string `json:"queue"`
	Size      int    `json:"size"`
	Active    int    `json:"active"`
	Pending   int    `json:"pending"`
	Retry     int    `json:"retry"`
	Archived  int    `json:"archived"`
	Processed int    `json:"processed"`
	Failed    int    `json:"failed"`
}

func (h *Handler) queues(w http.ResponseWriter, r *http.Request) {
	names, err := h.inspector.Queues()
	if err != nil {
		httpx.Problem(w, http.StatusServiceUnavailable, "Queue Unavailable", err.Error())
		return
	}
	statuses := []queueStatus{}
	for _, name := range names {
		info, err := h.inspector.GetQueueInfo(name)
		if err != nil {
			h.logger.Warn("queue info failed", slog.String("queue", name), slog.Any("error", err))
			continue
		}
		statuses = append(statuses, queueStatus{
			Queue:     info.Queue,
			Size:      info.Size,
			Active:    info.Active,
			Pending:   info.Pending,
			Retry:     info.Retry,
			Archived:  info.Archived,
			Processed: info.Processed,
			Failed:    info.Failed,
		})
	}
	httpx.JSON(w, http.StatusOK, statuses)
}

func (h *Handler) triggerHPPRecompute(w http.ResponseWriter, r *http.Request) {
	outletID, _ := strconv.ParseInt(r.URL.Query().Get("outlet_id"), 10, 64)
	if err := h.client.EnqueueHPPRecompute(r.Context(), outletID); err != nil {
		httpx.Problem(w, http.StatusServiceUnavailable, "Enqueue Failed", err.Error())
		return
	}
	httpx.JSON(w, http.StatusAccepted, map[string]string{"status": "enqueued"})
}

func (h *Handler) triggerLowStockScan(w http.ResponseWriter, r *http.Request) {
	if err := h.client.EnqueueLowStockScan(r.Context()); err != nil {
		httpx.Problem(w, http.StatusServiceUnavailable, "Enqueue Failed", err.Error())
		return
	}
	httpx.JSON(w, http.StatusAccepted, map[string]string{"status": "enqueued"})
}
