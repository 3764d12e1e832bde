package catalog

import (
	"errors"
	"time"
)

// Product is a sellable catalog item owned by an outlet. StockQty is nil when
// the product does not track inventory. CostPrice mirrors the HPP derived
// from the recipe and is recomputed on every recipe or material-price change.
type Product struct {
	ID             int64
	OutletID       int64
	SKU            string
	Name           string
	BasePrice      float64
	StockQty       *float64
	CostPrice      float64
	HasRecipe      bool
	TrackInventory bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// RawMaterial is an ingredient consumed through recipes.
type RawMaterial struct {
	ID            int64
	OutletID      int64
	SKU           string
	Name          string
	Unit          string
	PurchasePrice float64
	StockQty      float64
	MinStock      float64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// RecipeLine is one bill-of-materials row: the quantity of a raw material
// consumed to produce one unit of the product. Unit overrides the material
// unit when set.
type RecipeLine struct {
	ID            int64
	ProductID     int64
	RawMaterialID int64
	Qty           float64
	Unit          string
}

// Bundle is a fixed set of products sold at one price. OriginalPrice and
// Savings are derived from the line products and recomputed whenever the
// lines change.
type Bundle struct {
	ID            int64
	OutletID      int64
	Name          string
	BundlePrice   float64
	OriginalPrice float64
	Savings       float64
	Lines         []BundleLine
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// BundleLine references one product and its quantity inside a bundle.
type BundleLine struct {
	ID        int64
	BundleID  int64
	ProductID int64
	Qty       float64
}

// HPPLine is one row of a cost-of-goods breakdown.
type HPPLine struct {
	RawMaterialID int64   `json:"raw_material_id"`
	MaterialName  string  `json:"material_name"`
	Qty           float64 `json:"qty"`
	Unit          string  `json:"unit"`
	UnitPrice     float64 `json:"unit_price"`
	Subtotal      float64 `json:"subtotal"`
}

// ErrMaterialMissing indicates a recipe references a raw material that no
// longer exists. HPP computation treats this as a hard failure: a silently
// zeroed ingredient corrupts cost accounting.
var ErrMaterialMissing = errors.New("catalog: recipe references missing raw material")
