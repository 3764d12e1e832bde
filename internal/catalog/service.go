package catalog

import (
	"context"
	"fmt"

	"github.com/mpi-retail/mpi/internal/shared"
)

// PriceSeeder creates the per-level price list for a new product. Implemented
// by the pricing service.
type PriceSeeder interface {
	SeedProductPrices(ctx context.Context, outletID, productID int64, basePrice float64) error
}

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates catalog operations: product, raw material, recipe and
// bundle maintenance plus HPP derivation.
type Service struct {
	repo   Repository
	prices PriceSeeder
	audit  AuditPort
}

// NewService builds Service. prices and audit may be nil in tests.
func NewService(repo Repository, prices PriceSeeder, audit AuditPort) *Service {
	return &Service{repo: repo, prices: prices, audit: audit}
}

// CreateProductInput carries a new product plus its optional recipe.
type CreateProductInput struct {
	OutletID       int64
	SKU            string
	Name           string
	BasePrice      float64
	StockQty       *float64
	TrackInventory bool
	Recipe         []RecipeLine
	ActorID        int64
}

// CreateProduct persists the product, its recipe, the derived cost price and
// the seeded per-level price list as one unit.
func (s *Service) CreateProduct(ctx context.Context, input CreateProductInput) (*Product, error) {
	verr := &shared.ValidationError{}
	if input.OutletID == 0 {
		verr.Add("outlet_id", "required")
	}
	if input.SKU == "" {
		verr.Add("sku", "required")
	}
	if input.Name == "" {
		verr.Add("name", "required")
	}
	if input.BasePrice <= 0 {
		verr.Add("base_price", "must be positive")
	}
	for i, line := range input.Recipe {
		if line.Qty <= 0 {
			verr.Add(fmt.Sprintf("recipe[%d].qty", i), "must be positive")
		}
	}
	if !verr.Empty() {
		return nil, verr
	}

	var productID int64
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		id, err := repo.CreateProduct(ctx, Product{
			OutletID:       input.OutletID,
			SKU:            input.SKU,
			Name:           input.Name,
			BasePrice:      input.BasePrice,
			StockQty:       input.StockQty,
			HasRecipe:      len(input.Recipe) > 0,
			TrackInventory: input.TrackInventory,
		})
		if err != nil {
			return fmt.Errorf("create product: %w", err)
		}
		productID = id

		if len(input.Recipe) > 0 {
			if err := repo.ReplaceRecipe(ctx, id, input.Recipe); err != nil {
				return fmt.Errorf("store recipe: %w", err)
			}
			cost, _, err := s.computeHPP(ctx, repo, id)
			if err != nil {
				return err
			}
			if err := repo.UpdateCostPrice(ctx, id, cost); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.prices != nil {
		if err := s.prices.SeedProductPrices(ctx, input.OutletID, productID, input.BasePrice); err != nil {
			return nil, fmt.Errorf("seed level prices: %w", err)
		}
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  input.ActorID,
			Action:   "catalog:product:create",
			Entity:   "product",
			EntityID: fmt.Sprintf("%d", productID),
			Meta:     map[string]any{"outlet_id": input.OutletID, "sku": input.SKU},
		})
	}
	return s.repo.GetProduct(ctx, productID)
}

// GetProduct loads one product.
func (s *Service) GetProduct(ctx context.Context, id int64) (*Product, error) {
	return s.repo.GetProduct(ctx, id)
}

// ListProducts lists an outlet's products.
func (s *Service) ListProducts(ctx context.Context, outletID int64) ([]Product, error) {
	return s.repo.ListProducts(ctx, outletID)
}

// UpdateProduct applies a partial update.
func (s *Service) UpdateProduct(ctx context.Context, id int64, updates map[string]any) (*Product, error) {
	if err := s.repo.UpdateProduct(ctx, id, updates); err != nil {
		return nil, err
	}
	return s.repo.GetProduct(ctx, id)
}

// SetRecipe replaces a product's bill of materials and recomputes the cached
// cost price in the same transaction, keeping the two in lockstep.
func (s *Service) SetRecipe(ctx context.Context, productID int64, lines []RecipeLine) (float64, error) {
	verr := &shared.ValidationError{}
	for i, line := range lines {
		if line.RawMaterialID == 0 {
			verr.Add(fmt.Sprintf("recipe[%d].raw_material_id", i), "required")
		}
		if line.Qty <= 0 {
			verr.Add(fmt.Sprintf("recipe[%d].qty", i), "must be positive")
		}
	}
	if !verr.Empty() {
		return 0, verr
	}

	var cost float64
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		if _, err := repo.GetProduct(ctx, productID); err != nil {
			return err
		}
		if err := repo.ReplaceRecipe(ctx, productID, lines); err != nil {
			return fmt.Errorf("replace recipe: %w", err)
		}
		var err error
		cost, _, err = s.computeHPP(ctx, repo, productID)
		if err != nil {
			return err
		}
		if err := repo.UpdateCostPrice(ctx, productID, cost); err != nil {
			return err
		}
		return repo.UpdateProduct(ctx, productID, map[string]any{"has_recipe": len(lines) > 0})
	})
	if err != nil {
		return 0, err
	}
	return cost, nil
}

// CreateRawMaterial persists a new material.
func (s *Service) CreateRawMaterial(ctx context.Context, m RawMaterial) (*RawMaterial, error) {
	verr := &shared.ValidationError{}
	if m.OutletID == 0 {
		verr.Add("outlet_id", "required")
	}
	if m.SKU == "" {
		verr.Add("sku", "required")
	}
	if m.Name == "" {
		verr.Add("name", "required")
	}
	if m.Unit == "" {
		verr.Add("unit", "required")
	}
	if m.PurchasePrice < 0 {
		verr.Add("purchase_price", "must not be negative")
	}
	if !verr.Empty() {
		return nil, verr
	}
	id, err := s.repo.CreateRawMaterial(ctx, m)
	if err != nil {
		return nil, err
	}
	return s.repo.GetRawMaterial(ctx, id)
}

// GetRawMaterial loads one material.
func (s *Service) GetRawMaterial(ctx context.Context, id int64) (*RawMaterial, error) {
	return s.repo.GetRawMaterial(ctx, id)
}

// ListRawMaterials lists an outlet's materials.
func (s *Service) ListRawMaterials(ctx context.Context, outletID int64) ([]RawMaterial, error) {
	return s.repo.ListRawMaterials(ctx, outletID)
}

// UpdateRawMaterial applies a partial update. A purchase-price change
// recomputes the cost price of every product whose recipe uses the material,
// so cached HPP never goes stale against material prices.
func (s *Service) UpdateRawMaterial(ctx context.Context, id int64, updates map[string]any) (*RawMaterial, error) {
	priceChanged := false
	if _, ok := updates["purchase_price"]; ok {
		priceChanged = true
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		if err := repo.UpdateRawMaterial(ctx, id, updates); err != nil {
			return err
		}
		if !priceChanged {
			return nil
		}
		productIDs, err := repo.ListProductIDsUsingMaterial(ctx, id)
		if err != nil {
			return err
		}
		for _, productID := range productIDs {
			cost, _, err := s.computeHPP(ctx, repo, productID)
			if err != nil {
				return err
			}
			if err := repo.UpdateCostPrice(ctx, productID, cost); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.repo.GetRawMaterial(ctx, id)
}

// AdjustMaterialStock applies a manual stock delta outside the sale path and
// returns the new quantity.
func (s *Service) AdjustMaterialStock(ctx context.Context, id int64, delta float64, actorID int64) (float64, error) {
	if delta == 0 {
		return 0, (&shared.ValidationError{}).Add("delta", "must be non zero")
	}
	qty, err := s.repo.AdjustMaterialStock(ctx, id, delta)
	if err != nil {
		return 0, err
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  actorID,
			Action:   "catalog:material:adjust",
			Entity:   "raw_material",
			EntityID: fmt.Sprintf("%d", id),
			Meta:     map[string]any{"delta": delta, "qty": qty},
		})
	}
	return qty, nil
}

// CreateBundle persists a bundle and derives its original price and savings
// from the line products.
func (s *Service) CreateBundle(ctx context.Context, outletID int64, name string, bundlePrice float64, lines []BundleLine) (*Bundle, error) {
	verr := &shared.ValidationError{}
	if outletID == 0 {
		verr.Add("outlet_id", "required")
	}
	if name == "" {
		verr.Add("name", "required")
	}
	if bundlePrice <= 0 {
		verr.Add("bundle_price", "must be positive")
	}
	if len(lines) == 0 {
		verr.Add("lines", "must not be empty")
	}
	for i, line := range lines {
		if line.Qty <= 0 {
			verr.Add(fmt.Sprintf("lines[%d].qty", i), "must be positive")
		}
	}
	if !verr.Empty() {
		return nil, verr
	}

	var bundleID int64
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		original, err := s.bundleOriginalPrice(ctx, repo, lines)
		if err != nil {
			return err
		}
		id, err := repo.CreateBundle(ctx, Bundle{
			OutletID:      outletID,
			Name:          name,
			BundlePrice:   bundlePrice,
			OriginalPrice: original,
			Savings:       shared.Round2(original - bundlePrice),
		})
		if err != nil {
			return err
		}
		bundleID = id
		return repo.ReplaceBundleLines(ctx, id, lines)
	})
	if err != nil {
		return nil, err
	}
	return s.repo.GetBundle(ctx, bundleID)
}

// SetBundleLines replaces a bundle's lines and refreshes the derived pricing.
func (s *Service) SetBundleLines(ctx context.Context, bundleID int64, lines []BundleLine) (*Bundle, error) {
	if len(lines) == 0 {
		return nil, (&shared.ValidationError{}).Add("lines", "must not be empty")
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		bundle, err := repo.GetBundle(ctx, bundleID)
		if err != nil {
			return err
		}
		if err := repo.ReplaceBundleLines(ctx, bundleID, lines); err != nil {
			return err
		}
		original, err := s.bundleOriginalPrice(ctx, repo, lines)
		if err != nil {
			return err
		}
		return repo.UpdateBundlePricing(ctx, bundleID, original, shared.Round2(original-bundle.BundlePrice))
	})
	if err != nil {
		return nil, err
	}
	return s.repo.GetBundle(ctx, bundleID)
}

// GetBundle loads one bundle with lines.
func (s *Service) GetBundle(ctx context.Context, id int64) (*Bundle, error) {
	return s.repo.GetBundle(ctx, id)
}

func (s *Service) bundleOriginalPrice(ctx context.Context, repo Repository, lines []BundleLine) (float64, error) {
	var original float64
	for _, line := range lines {
		product, err := repo.GetProduct(ctx, line.ProductID)
		if err != nil {
			return 0, err
		}
		original += shared.Round2(product.BasePrice * line.Qty)
	}
	return shared.Round2(original), nil
}

// RecomputeOutletCosts refreshes cost prices for every recipe product of an
// outlet. Called from the background worker after material price imports.
func (s *Service) RecomputeOutletCosts(ctx context.Context, outletID int64) (int, error) {
	productIDs, err := s.repo.ListRecipeProductIDs(ctx, outletID)
	if err != nil {
		return 0, err
	}
	for _, id := range productIDs {
		if _, err := s.RecomputeCostPrice(ctx, id); err != nil {
			return 0, fmt.Errorf("recompute product %d: %w", id, err)
		}
	}
	return len(productIDs), nil
}

// LowStockMaterials lists raw materials currently under their minimum stock
// threshold, across outlets.
func (s *Service) LowStockMaterials(ctx context.Context) ([]RawMaterial, error) {
	return s.repo.ListRawMaterialsBelowMin(ctx)
}
