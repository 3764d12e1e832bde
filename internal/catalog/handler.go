package catalog

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/mpi-retail/mpi/internal/platform/httpx"
)

// Handler wires HTTP endpoints for the catalog module.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs the catalog handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers catalog routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/products", func(r chi.Router) {
		r.Post("/", h.createProduct)
		r.Get("/", h.listProducts)
		r.Get("/{id}", h.getProduct)
		r.Patch("/{id}", h.updateProduct)
		r.Put("/{id}/recipe", h.setRecipe)
		r.Get("/{id}/hpp", h.getHPP)
	})
	r.Route("/materials", func(r chi.Router) {
		r.Post("/", h.createMaterial)
		r.Get("/", h.listMaterials)
		r.Get("/{id}", h.getMaterial)
		r.Patch("/{id}", h.updateMaterial)
		r.Post("/{id}/adjust-stock", h.adjustStock)
	})
	r.Route("/bundles", func(r chi.Router) {
		r.Post("/", h.createBundle)
		r.Get("/{id}", h.getBundle)
		r.Put("/{id}/lines", h.setBundleLines)
	})
}

type recipeLinePayload struct {
	RawMaterialID int64   `json:"raw_material_id"`
	Qty           float64 `json:"qty"`
	Unit          string  `json:"unit"`
}

type createProductPayload struct {
	OutletID       int64               `json:"outlet_id"`
	SKU            string              `json:"sku"`
	Name           string              `json:"name"`
	BasePrice      float64             `json:"base_price"`
	StockQty       *float64            `json:"stock_qty"`
	TrackInventory bool                `json:"track_inventory"`
	Recipe         []recipeLinePayload `json:"recipe"`
}

func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	var payload createProductPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	input := CreateProductInput{
		OutletID:       payload.OutletID,
		SKU:            payload.SKU,
		Name:           payload.Name,
		BasePrice:      payload.BasePrice,
		StockQty:       payload.StockQty,
		TrackInventory: payload.TrackInventory,
	}
	for _, line := range payload.Recipe {
		input.Recipe = append(input.Recipe, RecipeLine{RawMaterialID: line.RawMaterialID, Qty: line.Qty, Unit: line.Unit})
	}
	product, err := h.service.CreateProduct(r.Context(), input)
	if err != nil {
		h.logger.Error("create product failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, product)
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	outletID, err := strconv.ParseInt(r.URL.Query().Get("outlet_id"), 10, 64)
	if err != nil || outletID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "outlet_id query parameter required")
		return
	}
	products, err := h.service.ListProducts(r.Context(), outletID)
	if err != nil {
		h.logger.Error("list products failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, products)
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	product, err := h.service.GetProduct(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, product)
}

func (h *Handler) updateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var updates map[string]any
	if err := httpx.DecodeJSON(r, &updates); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	product, err := h.service.UpdateProduct(r.Context(), id, updates)
	if err != nil {
		h.logger.Error("update product failed", slog.Any("error", err), slog.Int64("id", id))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, product)
}

func (h *Handler) setRecipe(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var payload []recipeLinePayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	lines := make([]RecipeLine, 0, len(payload))
	for _, line := range payload {
		lines = append(lines, RecipeLine{ProductID: id, RawMaterialID: line.RawMaterialID, Qty: line.Qty, Unit: line.Unit})
	}
	cost, err := h.service.SetRecipe(r.Context(), id, lines)
	if err != nil {
		h.logger.Error("set recipe failed", slog.Any("error", err), slog.Int64("product_id", id))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"product_id": id, "cost_price": cost})
}

func (h *Handler) getHPP(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	total, breakdown, err := h.service.ComputeHPP(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"product_id": id, "total": total, "breakdown": breakdown})
}

type materialPayload struct {
	OutletID      int64   `json:"outlet_id"`
	SKU           string  `json:"sku"`
	Name          string  `json:"name"`
	Unit          string  `json:"unit"`
	PurchasePrice float64 `json:"purchase_price"`
	StockQty      float64 `json:"stock_qty"`
	MinStock      float64 `json:"min_stock"`
}

func (h *Handler) createMaterial(w http.ResponseWriter, r *http.Request) {
	var payload materialPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	material, err := h.service.CreateRawMaterial(r.Context(), RawMaterial{
		OutletID:      payload.OutletID,
		SKU:           payload.SKU,
		Name:          payload.Name,
		Unit:          payload.Unit,
		PurchasePrice: payload.PurchasePrice,
		StockQty:      payload.StockQty,
		MinStock:      payload.MinStock,
	})
	if err != nil {
		h.logger.Error("create material failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, material)
}

func (h *Handler) listMaterials(w http.ResponseWriter, r *http.Request) {
	outletID, err := strconv.ParseInt(r.URL.Query().Get("outlet_id"), 10, 64)
	if err != nil || outletID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "outlet_id query parameter required")
		return
	}
	materials, err := h.service.ListRawMaterials(r.Context(), outletID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, materials)
}

func (h *Handler) getMaterial(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	material, err := h.service.GetRawMaterial(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, material)
}

func (h *Handler) updateMaterial(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var updates map[string]any
	if err := httpx.DecodeJSON(r, &updates); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	material, err := h.service.UpdateRawMaterial(r.Context(), id, updates)
	if err != nil {
		h.logger.Error("update material failed", slog.Any("error", err), slog.Int64("id", id))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, material)
}

func (h *Handler) adjustStock(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var payload struct {
		Delta   float64 `json:"delta"`
		ActorID int64   `json:"actor_id"`
	}
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	qty, err := h.service.AdjustMaterialStock(r.Context(), id, payload.Delta, payload.ActorID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"raw_material_id": id, "stock_qty": qty})
}

type bundlePayload struct {
	OutletID    int64   `json:"outlet_id"`
	Name        string  `json:"name"`
	BundlePrice float64 `json:"bundle_price"`
	Lines       []struct {
		ProductID int64   `json:"product_id"`
		Qty       float64 `json:"qty"`
	} `json:"lines"`
}

func (h *Handler) createBundle(w http.ResponseWriter, r *http.Request) {
	var payload bundlePayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	lines := make([]BundleLine, 0, len(payload.Lines))
	for _, line := range payload.Lines {
		lines = append(lines, BundleLine{ProductID: line.ProductID, Qty: line.Qty})
	}
	bundle, err := h.service.CreateBundle(r.Context(), payload.OutletID, payload.Name, payload.BundlePrice, lines)
	if err != nil {
		h.logger.Error("create bundle failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, bundle)
}

func (h *Handler) getBundle(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	bundle, err := h.service.GetBundle(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, bundle)
}

func (h *Handler) setBundleLines(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var payload []struct {
		ProductID int64   `json:"product_id"`
		Qty       float64 `json:"qty"`
	}
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	lines := make([]BundleLine, 0, len(payload))
	for _, line := range payload {
		lines = append(lines, BundleLine{BundleID: id, ProductID: line.ProductID, Qty: line.Qty})
	}
	bundle, err := h.service.SetBundleLines(r.Context(), id, lines)
	if err != nil {
		h.logger.Error("set bundle lines failed", slog.Any("error", err), slog.Int64("id", id))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, bundle)
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid id")
		return 0, false
	}
	return id, true
}
