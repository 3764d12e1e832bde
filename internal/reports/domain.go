package reports

import "time"

// Period bounds a report query, [From, To).
type Period struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// SalesSummary aggregates committed sales for one outlet and period.
type SalesSummary struct {
	OutletID         int64              `json:"outlet_id"`
	Period           Period             `json:"period"`
	TransactionCount int64              `json:"transaction_count"`
	GrossRevenue     float64            `json:"gross_revenue"`
	Discounts        float64            `json:"discounts"`
	NetRevenue       float64            `json:"net_revenue"`
	NetRevenueText   string             `json:"net_revenue_text"`
	PointsIssued     int64              `json:"points_issued"`
	ByPaymentMethod  map[string]float64 `json:"by_payment_method"`
	TopItems         []TopItem          `json:"top_items"`
}

// TopItem is one best-seller row.
type TopItem struct {
	Kind    string  `json:"kind"`
	RefID   int64   `json:"ref_id"`
	Name    string  `json:"name"`
	Qty     float64 `json:"qty"`
	Revenue float64 `json:"revenue"`
}

// ProfitLoss derives gross profit from the price and cost snapshots captured
// on each sale item, so later catalog edits cannot distort past periods.
type ProfitLoss struct {
	OutletID        int64   `json:"outlet_id"`
	Period          Period  `json:"period"`
	Revenue         float64 `json:"revenue"`
	RevenueText     string  `json:"revenue_text"`
	COGS            float64 `json:"cogs"`
	COGSText        string  `json:"cogs_text"`
	GrossProfit     float64 `json:"gross_profit"`
	GrossProfitText string  `json:"gross_profit_text"`
	MarginPct       float64 `json:"margin_pct"`
}

// StockValuation prices inventory on hand at cost.
type StockValuation struct {
	OutletID       int64                `json:"outlet_id"`
	Products       []ProductValuation   `json:"products"`
	RawMaterials   []MaterialValuation  `json:"raw_materials"`
	ProductsValue  float64              `json:"products_value"`
	MaterialsValue float64              `json:"materials_value"`
	TotalValue     float64              `json:"total_value"`
	TotalValueText string               `json:"total_value_text"`
}

// ProductValuation is one tracked product at cost.
type ProductValuation struct {
	ProductID int64   `json:"product_id"`
	Name      string  `json:"name"`
	StockQty  float64 `json:"stock_qty"`
	UnitCost  float64 `json:"unit_cost"`
	Value     float64 `json:"value"`
}

// MaterialValuation is one raw material at purchase price.
type MaterialValuation struct {
	RawMaterialID int64   `json:"raw_material_id"`
	Name          string  `json:"name"`
	StockQty      float64 `json:"stock_qty"`
	UnitPrice     float64 `json:"unit_price"`
	Value         float64 `json:"value"`
}

// HPPRecap lists each recipe product's cost against its base price.
type HPPRecap struct {
	OutletID int64          `json:"outlet_id"`
	Rows     []HPPRecapRow  `json:"rows"`
}

// HPPRecapRow is one product's cost-versus-price snapshot.
type HPPRecapRow struct {
	ProductID int64   `json:"product_id"`
	Name      string  `json:"name"`
	CostPrice float64 `json:"cost_price"`
	BasePrice float64 `json:"base_price"`
	MarginPct float64 `json:"margin_pct"`
}
