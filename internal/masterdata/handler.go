package masterdata

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/mpi-retail/mpi/internal/platform/httpx"
)

// Handler wires HTTP endpoints for outlet and employee management.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs the master data handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers master data routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/outlets", func(r chi.Router) {
		r.Post("/", h.createOutlet)
		r.Get("/", h.listOutlets)
		r.Get("/{id}", h.getOutlet)
		r.Patch("/{id}", h.updateOutlet)
	})
	r.Route("/employees", func(r chi.Router) {
		r.Post("/", h.createEmployee)
		r.Get("/", h.listEmployees)
		r.Get("/{id}", h.getEmployee)
		r.Patch("/{id}", h.updateEmployee)
	})
}

func (h *Handler) createOutlet(w http.ResponseWriter, r *http.Request) {
	var o Outlet
	if err := httpx.DecodeJSON(r, &o); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	created, err := h.service.CreateOutlet(r.Context(), o)
	if err != nil {
		h.logger.Error("create outlet failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) listOutlets(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListOutlets(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, list)
}

func (h *Handler) getOutlet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	o, err := h.service.GetOutlet(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, o)
}

func (h *Handler) updateOutlet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var updates map[string]any
	if err := httpx.DecodeJSON(r, &updates); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	o, err := h.service.UpdateOutlet(r.Context(), id, updates)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, o)
}

type createEmployeePayload struct {
	OutletID int64  `json:"outlet_id"`
	Name     string `json:"name"`
	Role     string `json:"role"`
	PIN      string `json:"pin"`
}

func (h *Handler) createEmployee(w http.ResponseWriter, r *http.Request) {
	var payload createEmployeePayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	created, err := h.service.CreateEmployee(r.Context(), Employee{
		OutletID: payload.OutletID,
		Name:     payload.Name,
		Role:     payload.Role,
	}, payload.PIN)
	if err != nil {
		h.logger.Error("create employee failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) listEmployees(w http.ResponseWriter, r *http.Request) {
	outletID, err := strconv.ParseInt(r.URL.Query().Get("outlet_id"), 10, 64)
	if err != nil || outletID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "outlet_id query parameter required")
		return
	}
	list, err := h.service.ListEmployees(r.Context(), outletID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, list)
}

func (h *Handler) getEmployee(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	e, err := h.service.GetEmployee(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, e)
}

func (h *Handler) updateEmployee(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var updates map[string]any
	if err := httpx.DecodeJSON(r, &updates); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	e, err := h.service.UpdateEmployee(r.Context(), id, updates)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, e)
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid id")
		return 0, false
	}
	return id, true
}
