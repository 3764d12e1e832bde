package shifts

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mpi-retail/mpi/internal/platform/httpx"
)

// Handler wires HTTP endpoints for shift management.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs the shifts handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers shift routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/open", h.open)
	r.Post("/{id}/close", h.close)
	r.Get("/{id}", h.get)
	r.Get("/", h.list)
}

type openShiftPayload struct {
	OutletID    int64   `json:"outlet_id"`
	EmployeeID  int64   `json:"employee_id"`
	PIN         string  `json:"pin"`
	OpeningCash float64 `json:"opening_cash"`
}

func (h *Handler) open(w http.ResponseWriter, r *http.Request) {
	var payload openShiftPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	shift, err := h.service.OpenShift(r.Context(), payload.OutletID, payload.EmployeeID, payload.PIN, payload.OpeningCash)
	if err != nil {
		h.logger.Error("open shift failed", slog.Any("error", err), slog.Int64("employee_id", payload.EmployeeID))
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, shift)
}

type closeShiftPayload struct {
	PIN         string  `json:"pin"`
	ClosingCash float64 `json:"closing_cash"`
}

func (h *Handler) close(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var payload closeShiftPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	shift, err := h.service.CloseShift(r.Context(), id, payload.PIN, payload.ClosingCash)
	if err != nil {
		h.logger.Error("close shift failed", slog.Any("error", err), slog.Int64("shift_id", id))
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, shift)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	shift, err := h.service.GetShift(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, shift)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	outletID, err := strconv.ParseInt(r.URL.Query().Get("outlet_id"), 10, 64)
	if err != nil || outletID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "outlet_id query parameter required")
		return
	}
	from, to := monthRange()
	list, err := h.service.ListShifts(r.Context(), outletID, from, to)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, list)
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrShiftAlreadyOpen), errors.Is(err, ErrShiftClosed):
		httpx.Problem(w, http.StatusConflict, "Shift Conflict", err.Error())
	default:
		httpx.RespondError(w, err)
	}
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid id")
		return 0, false
	}
	return id, true
}

func monthRange() (time.Time, time.Time) {
	now := time.Now()
	from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	return from, from.AddDate(0, 1, 0)
}
