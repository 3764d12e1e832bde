package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mpi-retail/mpi/internal/platform/db"
	"github.com/mpi-retail/mpi/internal/shared"
)

// dbtx is satisfied by both *pgxpool.Pool and pgx.Tx.
type dbtx interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type sqlRepository struct {
	db   dbtx
	pool *pgxpool.Pool
}

// NewRepository constructs the PostgreSQL-backed catalog repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &sqlRepository{db: pool, pool: pool}
}

func (r *sqlRepository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &sqlRepository{db: tx, pool: r.pool})
	})
}

func (r *sqlRepository) GetProduct(ctx context.Context, id int64) (*Product, error) {
	row := r.db.QueryRow(ctx, `SELECT id, outlet_id, sku, name, base_price, stock_qty, cost_price, has_recipe, track_inventory, created_at, updated_at
FROM products WHERE id=$1`, id)
	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("catalog: product %d: %w", id, shared.ErrNotFound)
		}
		return nil, err
	}
	return p, nil
}

func (r *sqlRepository) ListProducts(ctx context.Context, outletID int64) ([]Product, error) {
	rows, err := r.db.Query(ctx, `SELECT id, outlet_id, sku, name, base_price, stock_qty, cost_price, has_recipe, track_inventory, created_at, updated_at
FROM products WHERE outlet_id=$1 ORDER BY sku`, outletID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	products := []Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, *p)
	}
	return products, rows.Err()
}

func (r *sqlRepository) CreateProduct(ctx context.Context, p Product) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `INSERT INTO products (outlet_id, sku, name, base_price, stock_qty, cost_price, has_recipe, track_inventory, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,NOW(),NOW()) RETURNING id`,
		p.OutletID, p.SKU, p.Name, p.BasePrice, p.StockQty, p.CostPrice, p.HasRecipe, p.TrackInventory).Scan(&id)
	return id, err
}

func (r *sqlRepository) UpdateProduct(ctx context.Context, id int64, updates map[string]any) error {
	return execUpdates(ctx, r.db, "products", id, updates,
		"sku", "name", "base_price", "stock_qty", "has_recipe", "track_inventory")
}

func (r *sqlRepository) UpdateCostPrice(ctx context.Context, productID int64, cost float64) error {
	tag, err := r.db.Exec(ctx, `UPDATE products SET cost_price=$2, updated_at=NOW() WHERE id=$1`, productID, cost)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("catalog: product %d: %w", productID, shared.ErrNotFound)
	}
	return nil
}

func (r *sqlRepository) GetRawMaterial(ctx context.Context, id int64) (*RawMaterial, error) {
	var m RawMaterial
	err := r.db.QueryRow(ctx, `SELECT id, outlet_id, sku, name, unit, purchase_price, stock_qty, min_stock, created_at, updated_at
FROM raw_materials WHERE id=$1`, id).Scan(
		&m.ID, &m.OutletID, &m.SKU, &m.Name, &m.Unit, &m.PurchasePrice, &m.StockQty, &m.MinStock, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("catalog: raw material %d: %w", id, shared.ErrNotFound)
		}
		return nil, err
	}
	return &m, nil
}

func (r *sqlRepository) ListRawMaterials(ctx context.Context, outletID int64) ([]RawMaterial, error) {
	return r.listMaterials(ctx, `SELECT id, outlet_id, sku, name, unit, purchase_price, stock_qty, min_stock, created_at, updated_at
FROM raw_materials WHERE outlet_id=$1 ORDER BY sku`, outletID)
}

func (r *sqlRepository) ListRawMaterialsBelowMin(ctx context.Context) ([]RawMaterial, error) {
	return r.listMaterials(ctx, `SELECT id, outlet_id, sku, name, unit, purchase_price, stock_qty, min_stock, created_at, updated_at
FROM raw_materials WHERE stock_qty < min_stock ORDER BY outlet_id, sku`)
}

func (r *sqlRepository) listMaterials(ctx context.Context, query string, args ...any) ([]RawMaterial, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	materials := []RawMaterial{}
	for rows.Next() {
		var m RawMaterial
		if err := rows.Scan(&m.ID, &m.OutletID, &m.SKU, &m.Name, &m.Unit, &m.PurchasePrice, &m.StockQty, &m.MinStock, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, err
		}
		materials = append(materials, m)
	}
	return materials, rows.Err()
}

func (r *sqlRepository) CreateRawMaterial(ctx context.Context, m RawMaterial) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `INSERT INTO raw_materials (outlet_id, sku, name, unit, purchase_price, stock_qty, min_stock, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,NOW(),NOW()) RETURNING id`,
		m.OutletID, m.SKU, m.Name, m.Unit, m.PurchasePrice, m.StockQty, m.MinStock).Scan(&id)
	return id, err
}

func (r *sqlRepository) UpdateRawMaterial(ctx context.Context, id int64, updates map[string]any) error {
	return execUpdates(ctx, r.db, "raw_materials", id, updates,
		"sku", "name", "unit", "purchase_price", "min_stock")
}

func (r *sqlRepository) AdjustMaterialStock(ctx context.Context, id int64, delta float64) (float64, error) {
	var qty float64
	err := r.db.QueryRow(ctx, `UPDATE raw_materials SET stock_qty = stock_qty + $2, updated_at=NOW() WHERE id=$1 RETURNING stock_qty`, id, delta).Scan(&qty)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, fmt.Errorf("catalog: raw material %d: %w", id, shared.ErrNotFound)
		}
		return 0, err
	}
	return qty, nil
}

func (r *sqlRepository) GetRecipeLines(ctx context.Context, productID int64) ([]RecipeLine, error) {
	rows, err := r.db.Query(ctx, `SELECT id, product_id, raw_material_id, qty, COALESCE(unit, '')
FROM recipe_lines WHERE product_id=$1 ORDER BY id`, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	lines := []RecipeLine{}
	for rows.Next() {
		var line RecipeLine
		if err := rows.Scan(&line.ID, &line.ProductID, &line.RawMaterialID, &line.Qty, &line.Unit); err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

func (r *sqlRepository) ReplaceRecipe(ctx context.Context, productID int64, lines []RecipeLine) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM recipe_lines WHERE product_id=$1`, productID); err != nil {
		return err
	}
	for _, line := range lines {
		var unit pgtype.Text
		if line.Unit != "" {
			unit = pgtype.Text{String: line.Unit, Valid: true}
		}
		if _, err := r.db.Exec(ctx, `INSERT INTO recipe_lines (product_id, raw_material_id, qty, unit) VALUES ($1,$2,$3,$4)`,
			productID, line.RawMaterialID, line.Qty, unit); err != nil {
			return err
		}
	}
	return nil
}

func (r *sqlRepository) ListProductIDsUsingMaterial(ctx context.Context, materialID int64) ([]int64, error) {
	return r.listIDs(ctx, `SELECT DISTINCT product_id FROM recipe_lines WHERE raw_material_id=$1`, materialID)
}

func (r *sqlRepository) ListRecipeProductIDs(ctx context.Context, outletID int64) ([]int64, error) {
	return r.listIDs(ctx, `SELECT id FROM products WHERE outlet_id=$1 AND has_recipe`, outletID)
}

func (r *sqlRepository) listIDs(ctx context.Context, query string, args ...any) ([]int64, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *sqlRepository) GetBundle(ctx context.Context, id int64) (*Bundle, error) {
	var b Bundle
	err := r.db.QueryRow(ctx, `SELECT id, outlet_id, name, bundle_price, original_price, savings, created_at, updated_at
FROM bundles WHERE id=$1`, id).Scan(&b.ID, &b.OutletID, &b.Name, &b.BundlePrice, &b.OriginalPrice, &b.Savings, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("catalog: bundle %d: %w", id, shared.ErrNotFound)
		}
		return nil, err
	}
	rows, err := r.db.Query(ctx, `SELECT id, bundle_id, product_id, qty FROM bundle_lines WHERE bundle_id=$1 ORDER BY id`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var line BundleLine
		if err := rows.Scan(&line.ID, &line.BundleID, &line.ProductID, &line.Qty); err != nil {
			return nil, err
		}
		b.Lines = append(b.Lines, line)
	}
	return &b, rows.Err()
}

func (r *sqlRepository) CreateBundle(ctx context.Context, b Bundle) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `INSERT INTO bundles (outlet_id, name, bundle_price, original_price, savings, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,NOW(),NOW()) RETURNING id`,
		b.OutletID, b.Name, b.BundlePrice, b.OriginalPrice, b.Savings).Scan(&id)
	return id, err
}

func (r *sqlRepository) ReplaceBundleLines(ctx context.Context, bundleID int64, lines []BundleLine) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM bundle_lines WHERE bundle_id=$1`, bundleID); err != nil {
		return err
	}
	for _, line := range lines {
		if _, err := r.db.Exec(ctx, `INSERT INTO bundle_lines (bundle_id, product_id, qty) VALUES ($1,$2,$3)`,
			bundleID, line.ProductID, line.Qty); err != nil {
			return err
		}
	}
	return nil
}

func (r *sqlRepository) UpdateBundlePricing(ctx context.Context, bundleID int64, original, savings float64) error {
	_, err := r.db.Exec(ctx, `UPDATE bundles SET original_price=$2, savings=$3, updated_at=NOW() WHERE id=$1`, bundleID, original, savings)
	return err
}

func scanProduct(row pgx.Row) (*Product, error) {
	var p Product
	var stock pgtype.Float8
	err := row.Scan(&p.ID, &p.OutletID, &p.SKU, &p.Name, &p.BasePrice, &stock, &p.CostPrice, &p.HasRecipe, &p.TrackInventory, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if stock.Valid {
		val := stock.Float64
		p.StockQty = &val
	}
	return &p, nil
}

func execUpdates(ctx context.Context, db dbtx, table string, id int64, updates map[string]any, allowed ...string) error {
	query := fmt.Sprintf("UPDATE %s SET updated_at = NOW()", table)
	var args []any
	argPos := 1
	for _, col := range allowed {
		if v, ok := updates[col]; ok {
			query += fmt.Sprintf(", %s = $%d", col, argPos)
			args = append(args, v)
			argPos++
		}
	}
	query += fmt.Sprintf(" WHERE id = $%d", argPos)
	args = append(args, id)
	tag, err := db.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("catalog: %s %d: %w", table, id, shared.ErrNotFound)
	}
	return nil
}
