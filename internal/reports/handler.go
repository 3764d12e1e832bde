package reports

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mpi-retail/mpi/internal/platform/httpx"
)

// Handler wires HTTP endpoints for reports.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs the reports handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers report routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/sales-summary", h.salesSummary)
	r.Get("/profit-loss", h.profitLoss)
	r.Get("/stock-valuation", h.stockValuation)
	r.Get("/hpp-recap", h.hppRecap)
}

func (h *Handler) salesSummary(w http.ResponseWriter, r *http.Request) {
	outletID, from, to, ok := h.rangeParams(w, r)
	if !ok {
		return
	}
	summary, err := h.service.SalesSummary(r.Context(), outletID, from, to)
	if err != nil {
		h.logger.Error("sales summary failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}

func (h *Handler) profitLoss(w http.ResponseWriter, r *http.Request) {
	outletID, from, to, ok := h.rangeParams(w, r)
	if !ok {
		return
	}
	pl, err := h.service.ProfitLoss(r.Context(), outletID, from, to)
	if err != nil {
		h.logger.Error("profit loss failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, pl)
}

func (h *Handler) stockValuation(w http.ResponseWriter, r *http.Request) {
	outletID, ok := outletParam(w, r)
	if !ok {
		return
	}
	v, err := h.service.StockValuation(r.Context(), outletID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, v)
}

func (h *Handler) hppRecap(w http.ResponseWriter, r *http.Request) {
	outletID, ok := outletParam(w, r)
	if !ok {
		return
	}
	recap, err := h.service.HPPRecap(r.Context(), outletID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, recap)
}

func (h *Handler) rangeParams(w http.ResponseWriter, r *http.Request) (int64, time.Time, time.Time, bool) {
	outletID, ok := outletParam(w, r)
	if !ok {
		return 0, time.Time{}, time.Time{}, false
	}
	from, to, err := parseRange(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
		return 0, time.Time{}, time.Time{}, false
	}
	return outletID, from, to, true
}

func outletParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	outletID, err := strconv.ParseInt(r.URL.Query().Get("outlet_id"), 10, 64)
	if err != nil || outletID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "outlet_id query parameter required")
		return 0, false
	}
	return outletID, true
}

// parseRange reads from/to (YYYY-MM-DD, half-open on to+1d); defaults to the
// current month.
func parseRange(r *http.Request) (time.Time, time.Time, error) {
	const layout = "2006-01-02"
	now := time.Now()
	from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	to := from.AddDate(0, 1, 0)

	if raw := r.URL.Query().Get("from"); raw != "" {
		parsed, err := time.ParseInLocation(layout, raw, now.Location())
		if err != nil {
			return from, to, errors.New("from must be YYYY-MM-DD")
		}
		from = parsed
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		parsed, err := time.ParseInLocation(layout, raw, now.Location())
		if err != nil {
			return from, to, errors.New("to must be YYYY-MM-DD")
		}
		to = parsed.AddDate(0, 0, 1)
	}
	return from, to, nil
}
