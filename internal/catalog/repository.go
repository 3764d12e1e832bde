package catalog

import (
	"context"
)

// Repository persists catalog data. WithTx runs the callback against a
// transactional view of the same interface.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error

	GetProduct(ctx context.Context, id int64) (*Product, error)
	ListProducts(ctx context.Context, outletID int64) ([]Product, error)
	CreateProduct(ctx context.Context, p Product) (int64, error)
	UpdateProduct(ctx context.Context, id int64, updates map[string]any) error
	UpdateCostPrice(ctx context.Context, productID int64, cost float64) error

	GetRawMaterial(ctx context.Context, id int64) (*RawMaterial, error)
	ListRawMaterials(ctx context.Context, outletID int64) ([]RawMaterial, error)
	ListRawMaterialsBelowMin(ctx context.Context) ([]RawMaterial, error)
	CreateRawMaterial(ctx context.Context, m RawMaterial) (int64, error)
	UpdateRawMaterial(ctx context.Context, id int64, updates map[string]any) error
	AdjustMaterialStock(ctx context.Context, id int64, delta float64) (float64, error)

	GetRecipeLines(ctx context.Context, productID int64) ([]RecipeLine, error)
	ReplaceRecipe(ctx context.Context, productID int64, lines []RecipeLine) error
	ListProductIDsUsingMaterial(ctx context.Context, materialID int64) ([]int64, error)
	ListRecipeProductIDs(ctx context.Context, outletID int64) ([]int64, error)

	GetBundle(ctx context.Context, id int64) (*Bundle, error)
	CreateBundle(ctx context.Context, b Bundle) (int64, error)
	ReplaceBundleLines(ctx context.Context, bundleID int64, lines []BundleLine) error
	UpdateBundlePricing(ctx context.Context, bundleID int64, original, savings float64) error
}
