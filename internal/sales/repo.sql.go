package sales

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mpi-retail/mpi/internal/customers"
	"github.com/mpi-retail/mpi/internal/platform/db"
	"github.com/mpi-retail/mpi/internal/pricing"
	"github.com/mpi-retail/mpi/internal/shared"
)

type dbtx interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type sqlRepository struct {
	db   dbtx
	pool *pgxpool.Pool
}

// NewRepository constructs the PostgreSQL-backed sales repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &sqlRepository{db: pool, pool: pool}
}

func (r *sqlRepository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &sqlRepository{db: tx, pool: r.pool})
	})
}

const saleColumns = `id, order_number, external_ref, outlet_id, employee_id, customer_id, level_id, shift_id, payment_method,
subtotal, tax, discount, total, cash_received, change, points_earned, note, created_at`

func scanSale(row pgx.Row) (*Transaction, error) {
	var t Transaction
	var customerID, levelID, shiftID pgtype.Int8
	err := row.Scan(&t.ID, &t.OrderNumber, &t.ExternalRef, &t.OutletID, &t.EmployeeID, &customerID, &levelID, &shiftID,
		&t.PaymentMethod, &t.Subtotal, &t.Tax, &t.Discount, &t.Total, &t.CashReceived, &t.Change,
		&t.PointsEarned, &t.Note, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	if customerID.Valid {
		t.CustomerID = &customerID.Int64
	}
	if levelID.Valid {
		t.LevelID = &levelID.Int64
	}
	if shiftID.Valid {
		t.ShiftID = &shiftID.Int64
	}
	return &t, nil
}

func (r *sqlRepository) GetTransaction(ctx context.Context, id int64) (*Transaction, error) {
	t, err := scanSale(r.db.QueryRow(ctx, `SELECT `+saleColumns+` FROM sales WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("sales: transaction %d: %w", id, shared.ErrNotFound)
		}
		return nil, err
	}
	return t, nil
}

func (r *sqlRepository) GetTransactionItems(ctx context.Context, transactionID int64) ([]TransactionItem, error) {
	rows, err := r.db.Query(ctx, `SELECT id, transaction_id, kind, ref_id, name, qty, unit_price, unit_cost, line_total
FROM sale_items WHERE transaction_id=$1 ORDER BY id`, transactionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []TransactionItem{}
	for rows.Next() {
		var it TransactionItem
		if err := rows.Scan(&it.ID, &it.TransactionID, &it.Kind, &it.RefID, &it.Name, &it.Qty, &it.UnitPrice, &it.UnitCost, &it.LineTotal); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *sqlRepository) ListTransactions(ctx context.Context, outletID int64, from, to time.Time) ([]Transaction, error) {
	rows, err := r.db.Query(ctx, `SELECT `+saleColumns+` FROM sales
WHERE outlet_id=$1 AND created_at >= $2 AND created_at < $3 ORDER BY id DESC`, outletID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []Transaction{}
	for rows.Next() {
		t, err := scanSale(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *t)
	}
	return list, rows.Err()
}

func (r *sqlRepository) GetOutlet(ctx context.Context, id int64) (*OutletRow, error) {
	var o OutletRow
	err := r.db.QueryRow(ctx, `SELECT id, code, is_active FROM outlets WHERE id=$1`, id).
		Scan(&o.ID, &o.Code, &o.IsActive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("sales: outlet %d: %w", id, shared.ErrNotFound)
		}
		return nil, err
	}
	return &o, nil
}

func (r *sqlRepository) GetProduct(ctx context.Context, id int64) (*ProductRow, error) {
	var p ProductRow
	var stock pgtype.Float8
	err := r.db.QueryRow(ctx, `SELECT id, outlet_id, name, base_price, cost_price, stock_qty, has_recipe, track_inventory
FROM products WHERE id=$1`, id).
		Scan(&p.ID, &p.OutletID, &p.Name, &p.BasePrice, &p.CostPrice, &stock, &p.HasRecipe, &p.TrackInventory)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("sales: product %d: %w", id, shared.ErrNotFound)
		}
		return nil, err
	}
	if stock.Valid {
		p.StockQty = &stock.Float64
	}
	return &p, nil
}

func (r *sqlRepository) GetBundle(ctx context.Context, id int64) (*BundleRow, error) {
	var b BundleRow
	err := r.db.QueryRow(ctx, `SELECT id, outlet_id, name, bundle_price FROM bundles WHERE id=$1`, id).
		Scan(&b.ID, &b.OutletID, &b.Name, &b.BundlePrice)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("sales: bundle %d: %w", id, shared.ErrNotFound)
		}
		return nil, err
	}
	rows, err := r.db.Query(ctx, `SELECT product_id, qty FROM bundle_lines WHERE bundle_id=$1 ORDER BY id`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var line BundleLineRow
		if err := rows.Scan(&line.ProductID, &line.Qty); err != nil {
			return nil, err
		}
		b.Lines = append(b.Lines, line)
	}
	return &b, rows.Err()
}

func (r *sqlRepository) GetRecipeLines(ctx context.Context, productID int64) ([]RecipeLineRow, error) {
	rows, err := r.db.Query(ctx, `SELECT raw_material_id, qty FROM recipe_lines WHERE product_id=$1 ORDER BY id`, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	lines := []RecipeLineRow{}
	for rows.Next() {
		var line RecipeLineRow
		if err := rows.Scan(&line.RawMaterialID, &line.Qty); err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

func (r *sqlRepository) GetCustomerForUpdate(ctx context.Context, id int64) (*CustomerRow, error) {
	var c CustomerRow
	err := r.db.QueryRow(ctx, `SELECT id, outlet_id, level_id, points, lifetime_spent, is_active FROM customers WHERE id=$1 FOR UPDATE`, id).
		Scan(&c.ID, &c.OutletID, &c.LevelID, &c.Points, &c.LifetimeSpent, &c.IsActive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("sales: customer %d: %w", id, shared.ErrNotFound)
		}
		return nil, err
	}
	return &c, nil
}

func (r *sqlRepository) GetPriceLevels(ctx context.Context, outletID int64) ([]pricing.PriceLevel, error) {
	rows, err := r.db.Query(ctx, `SELECT id, outlet_id, name, level_order, min_points, discount_pct, created_at, updated_at
FROM price_levels WHERE outlet_id=$1 ORDER BY level_order`, outletID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	levels := []pricing.PriceLevel{}
	for rows.Next() {
		var level pricing.PriceLevel
		if err := rows.Scan(&level.ID, &level.OutletID, &level.Name, &level.LevelOrder, &level.MinPoints, &level.DiscountPct, &level.CreatedAt, &level.UpdatedAt); err != nil {
			return nil, err
		}
		levels = append(levels, level)
	}
	return levels, rows.Err()
}

func (r *sqlRepository) GetProductPrice(ctx context.Context, productID, levelID int64) (float64, bool, error) {
	var price float64
	err := r.db.QueryRow(ctx, `SELECT price FROM product_prices WHERE product_id=$1 AND level_id=$2`, productID, levelID).Scan(&price)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return price, true, nil
}

func (r *sqlRepository) GetPointsConfig(ctx context.Context, outletID int64) (*pricing.PointsConfig, error) {
	var cfg pricing.PointsConfig
	err := r.db.QueryRow(ctx, `SELECT outlet_id, points_per_amount, is_active FROM points_configs WHERE outlet_id=$1`, outletID).
		Scan(&cfg.OutletID, &cfg.PointsPerAmount, &cfg.IsActive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &cfg, nil
}

func (r *sqlRepository) NextOrderSeq(ctx context.Context, outletID int64, day string) (int64, error) {
	var seq int64
	err := r.db.QueryRow(ctx, `INSERT INTO order_counters (outlet_id, day, seq)
VALUES ($1, $2, 1)
ON CONFLICT (outlet_id, day) DO UPDATE SET seq = order_counters.seq + 1
RETURNING seq`, outletID, day).Scan(&seq)
	return seq, err
}

func (r *sqlRepository) InsertTransaction(ctx context.Context, t *Transaction) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `INSERT INTO sales
(order_number, external_ref, outlet_id, employee_id, customer_id, level_id, shift_id, payment_method,
subtotal, tax, discount, total, cash_received, change, points_earned, note, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,NOW()) RETURNING id`,
		t.OrderNumber, t.ExternalRef, t.OutletID, t.EmployeeID, t.CustomerID, t.LevelID, t.ShiftID, t.PaymentMethod,
		t.Subtotal, t.Tax, t.Discount, t.Total, t.CashReceived, t.Change, t.PointsEarned, t.Note).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return 0, fmt.Errorf("sales: order number %s taken: %w", t.OrderNumber, shared.ErrConflict)
		}
		return 0, err
	}
	return id, nil
}

func (r *sqlRepository) InsertItems(ctx context.Context, transactionID int64, items []TransactionItem) error {
	for _, it := range items {
		_, err := r.db.Exec(ctx, `INSERT INTO sale_items (transaction_id, kind, ref_id, name, qty, unit_price, unit_cost, line_total)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
			transactionID, it.Kind, it.RefID, it.Name, it.Qty, it.UnitPrice, it.UnitCost, it.LineTotal)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *sqlRepository) DecrementProductStock(ctx context.Context, productID int64, qty float64, allowNegative bool) (*StockResult, error) {
	query := `UPDATE products SET stock_qty = stock_qty - $2, updated_at = NOW()
WHERE id = $1 AND stock_qty IS NOT NULL`
	if !allowNegative {
		query += ` AND stock_qty >= $2`
	}
	query += ` RETURNING stock_qty, name`
	var res StockResult
	err := r.db.QueryRow(ctx, query, productID, qty).Scan(&res.NewQty, &res.Name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: product %d needs %.2f", ErrInsufficientStock, productID, qty)
		}
		return nil, err
	}
	return &res, nil
}

func (r *sqlRepository) DecrementMaterialStock(ctx context.Context, materialID int64, qty float64, allowNegative bool) (*StockResult, error) {
	query := `UPDATE raw_materials SET stock_qty = stock_qty - $2, updated_at = NOW()
WHERE id = $1`
	if !allowNegative {
		query += ` AND stock_qty >= $2`
	}
	query += ` RETURNING stock_qty, min_stock, name`
	var res StockResult
	err := r.db.QueryRow(ctx, query, materialID, qty).Scan(&res.NewQty, &res.MinStock, &res.Name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: raw material %d needs %.2f", ErrInsufficientStock, materialID, qty)
		}
		return nil, err
	}
	return &res, nil
}

func (r *sqlRepository) AccrueCustomer(ctx context.Context, customerID, points int64, spend float64) (int64, error) {
	var balance int64
	err := r.db.QueryRow(ctx, `UPDATE customers SET points = points + $2, lifetime_spent = lifetime_spent + $3, updated_at = NOW()
WHERE id = $1 RETURNING points`, customerID, points, spend).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, fmt.Errorf("sales: customer %d: %w", customerID, shared.ErrNotFound)
		}
		return 0, err
	}
	return balance, nil
}

func (r *sqlRepository) SetCustomerLevel(ctx context.Context, customerID, levelID int64) error {
	_, err := r.db.Exec(ctx, `UPDATE customers SET level_id = $2, updated_at = NOW() WHERE id = $1`, customerID, levelID)
	return err
}

func (r *sqlRepository) AppendPointsEntry(ctx context.Context, entry customers.PointsEntry) error {
	_, err := r.db.Exec(ctx, `INSERT INTO points_entries (customer_id, delta, balance_after, reason, sale_id, created_at)
VALUES ($1,$2,$3,$4,$5,NOW())`,
		entry.CustomerID, entry.Delta, entry.BalanceAfter, entry.Reason, entry.SaleID)
	return err
}
