package reports

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mpi-retail/mpi/internal/shared"
)

// Repository reads the aggregates behind each report.
type Repository interface {
	SalesSummary(ctx context.Context, outletID int64, from, to time.Time) (*SalesSummary, error)
	ProfitLoss(ctx context.Context, outletID int64, from, to time.Time) (*ProfitLoss, error)
	StockValuation(ctx context.Context, outletID int64) (*StockValuation, error)
	HPPRecap(ctx context.Context, outletID int64) (*HPPRecap, error)
}

type sqlRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the PostgreSQL-backed reports repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &sqlRepository{pool: pool}
}

func (r *sqlRepository) SalesSummary(ctx context.Context, outletID int64, from, to time.Time) (*SalesSummary, error) {
	summary := &SalesSummary{
		OutletID:        outletID,
		Period:          Period{From: from, To: to},
		ByPaymentMethod: map[string]float64{},
	}
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*), COALESCE(SUM(subtotal),0), COALESCE(SUM(discount),0),
COALESCE(SUM(total),0), COALESCE(SUM(points_earned),0)
FROM sales WHERE outlet_id=$1 AND created_at >= $2 AND created_at < $3`, outletID, from, to).
		Scan(&summary.TransactionCount, &summary.GrossRevenue, &summary.Discounts, &summary.NetRevenue, &summary.PointsIssued)
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx, `SELECT payment_method, COALESCE(SUM(total),0)
FROM sales WHERE outlet_id=$1 AND created_at >= $2 AND created_at < $3 GROUP BY payment_method`, outletID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var method string
		var total float64
		if err := rows.Scan(&method, &total); err != nil {
			return nil, err
		}
		summary.ByPaymentMethod[method] = total
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	itemRows, err := r.pool.Query(ctx, `SELECT i.kind, i.ref_id, i.name, SUM(i.qty), SUM(i.line_total)
FROM sale_items i JOIN sales s ON s.id = i.transaction_id
WHERE s.outlet_id=$1 AND s.created_at >= $2 AND s.created_at < $3
GROUP BY i.kind, i.ref_id, i.name
ORDER BY SUM(i.line_total) DESC LIMIT 10`, outletID, from, to)
	if err != nil {
		return nil, err
	}
	defer itemRows.Close()
	for itemRows.Next() {
		var item TopItem
		if err := itemRows.Scan(&item.Kind, &item.RefID, &item.Name, &item.Qty, &item.Revenue); err != nil {
			return nil, err
		}
		summary.TopItems = append(summary.TopItems, item)
	}
	if err := itemRows.Err(); err != nil {
		return nil, err
	}

	summary.NetRevenueText = FormatIDR(summary.NetRevenue)
	return summary, nil
}

func (r *sqlRepository) ProfitLoss(ctx context.Context, outletID int64, from, to time.Time) (*ProfitLoss, error) {
	pl := &ProfitLoss{OutletID: outletID, Period: Period{From: from, To: to}}
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(SUM(i.line_total),0), COALESCE(SUM(i.unit_cost * i.qty),0)
FROM sale_items i JOIN sales s ON s.id = i.transaction_id
WHERE s.outlet_id=$1 AND s.created_at >= $2 AND s.created_at < $3`, outletID, from, to).
		Scan(&pl.Revenue, &pl.COGS)
	if err != nil {
		return nil, err
	}
	pl.GrossProfit = shared.Round2(pl.Revenue - pl.COGS)
	if pl.Revenue > 0 {
		pl.MarginPct = shared.Round2(pl.GrossProfit / pl.Revenue * 100)
	}
	pl.RevenueText = FormatIDR(pl.Revenue)
	pl.COGSText = FormatIDR(pl.COGS)
	pl.GrossProfitText = FormatIDR(pl.GrossProfit)
	return pl, nil
}

func (r *sqlRepository) StockValuation(ctx context.Context, outletID int64) (*StockValuation, error) {
	v := &StockValuation{OutletID: outletID}

	rows, err := r.pool.Query(ctx, `SELECT id, name, stock_qty, cost_price FROM products
WHERE outlet_id=$1 AND stock_qty IS NOT NULL ORDER BY name`, outletID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var p ProductValuation
		if err := rows.Scan(&p.ProductID, &p.Name, &p.StockQty, &p.UnitCost); err != nil {
			return nil, err
		}
		p.Value = shared.Round2(p.StockQty * p.UnitCost)
		v.ProductsValue += p.Value
		v.Products = append(v.Products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	matRows, err := r.pool.Query(ctx, `SELECT id, name, stock_qty, purchase_price FROM raw_materials
WHERE outlet_id=$1 ORDER BY name`, outletID)
	if err != nil {
		return nil, err
	}
	defer matRows.Close()
	for matRows.Next() {
		var m MaterialValuation
		if err := matRows.Scan(&m.RawMaterialID, &m.Name, &m.StockQty, &m.UnitPrice); err != nil {
			return nil, err
		}
		m.Value = shared.Round2(m.StockQty * m.UnitPrice)
		v.MaterialsValue += m.Value
		v.RawMaterials = append(v.RawMaterials, m)
	}
	if err := matRows.Err(); err != nil {
		return nil, err
	}

	v.ProductsValue = shared.Round2(v.ProductsValue)
	v.MaterialsValue = shared.Round2(v.MaterialsValue)
	v.TotalValue = shared.Round2(v.ProductsValue + v.MaterialsValue)
	v.TotalValueText = FormatIDR(v.TotalValue)
	return v, nil
}

func (r *sqlRepository) HPPRecap(ctx context.Context, outletID int64) (*HPPRecap, error) {
	recap := &HPPRecap{OutletID: outletID}
	rows, err := r.pool.Query(ctx, `SELECT id, name, cost_price, base_price FROM products
WHERE outlet_id=$1 AND has_recipe ORDER BY name`, outletID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var row HPPRecapRow
		if err := rows.Scan(&row.ProductID, &row.Name, &row.CostPrice, &row.BasePrice); err != nil {
			return nil, err
		}
		if row.BasePrice > 0 {
			row.MarginPct = shared.Round2((row.BasePrice - row.CostPrice) / row.BasePrice * 100)
		}
		recap.Rows = append(recap.Rows, row)
	}
	return recap, rows.Err()
}
