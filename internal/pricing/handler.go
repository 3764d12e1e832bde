package pricing

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/mpi-retail/mpi/internal/platform/httpx"
)

// Handler wires HTTP endpoints for pricing and loyalty configuration.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs the pricing handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers pricing routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/levels", func(r chi.Router) {
		r.Post("/", h.createLevel)
		r.Get("/", h.listLevels)
		r.Patch("/{id}", h.updateLevel)
	})
	r.Route("/product-prices", func(r chi.Router) {
		r.Put("/", h.setProductPrice)
		r.Get("/{productID}", h.listProductPrices)
	})
	r.Route("/points-config", func(r chi.Router) {
		r.Put("/", h.setPointsConfig)
		r.Get("/{outletID}", h.getPointsConfig)
	})
}

func (h *Handler) createLevel(w http.ResponseWriter, r *http.Request) {
	var level PriceLevel
	if err := httpx.DecodeJSON(r, &level); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	created, err := h.service.CreateLevel(r.Context(), level)
	if err != nil {
		h.logger.Error("create price level failed", slog.Any("error", err))
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) listLevels(w http.ResponseWriter, r *http.Request) {
	outletID, err := strconv.ParseInt(r.URL.Query().Get("outlet_id"), 10, 64)
	if err != nil || outletID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "outlet_id query parameter required")
		return
	}
	levels, err := h.service.Levels(r.Context(), outletID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, levels)
}

func (h *Handler) updateLevel(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid id")
		return
	}
	var updates map[string]any
	if err := httpx.DecodeJSON(r, &updates); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	level, err := h.service.UpdateLevel(r.Context(), id, updates)
	if err != nil {
		h.logger.Error("update price level failed", slog.Any("error", err), slog.Int64("id", id))
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, level)
}

func (h *Handler) setProductPrice(w http.ResponseWriter, r *http.Request) {
	var price ProductPrice
	if err := httpx.DecodeJSON(r, &price); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.service.SetProductPrice(r.Context(), price); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, price)
}

func (h *Handler) listProductPrices(w http.ResponseWriter, r *http.Request) {
	productID, err := strconv.ParseInt(chi.URLParam(r, "productID"), 10, 64)
	if err != nil || productID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid product id")
		return
	}
	prices, err := h.service.ProductPrices(r.Context(), productID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, prices)
}

func (h *Handler) setPointsConfig(w http.ResponseWriter, r *http.Request) {
	var cfg PointsConfig
	if err := httpx.DecodeJSON(r, &cfg); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.service.SetPointsConfig(r.Context(), cfg); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, cfg)
}

func (h *Handler) getPointsConfig(w http.ResponseWriter, r *http.Request) {
	outletID, err := strconv.ParseInt(chi.URLParam(r, "outletID"), 10, 64)
	if err != nil || outletID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid outlet id")
		return
	}
	cfg, err := h.service.PointsConfigFor(r.Context(), outletID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	if cfg == nil {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "no points configuration for outlet")
		return
	}
	httpx.JSON(w, http.StatusOK, cfg)
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrLadderViolation):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Ladder Violation", err.Error())
	default:
		httpx.RespondError(w, err)
	}
}
