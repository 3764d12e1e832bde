package pricing

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mpi-retail/mpi/internal/platform/db"
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

// NewRepository constructs the PostgreSQL-backed pricing repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &sqlRepository{db: pool, pool: pool}
}

func (r *sqlRepository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &sqlRepository{db: tx, pool: r.pool})
	})
}

func (r *sqlRepository) GetPriceLevel(ctx context.Context, id int64) (*PriceLevel, error) {
	var level PriceLevel
	err := r.db.QueryRow(ctx, `SELECT id, outlet_id, name, level_order, min_points, discount_pct, created_at, updated_at
FROM price_levels WHERE id=$1`, id).Scan(
		&level.ID, &level.OutletID, &level.Name, &level.LevelOrder, &level.MinPoints, &level.DiscountPct, &level.CreatedAt, &level.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("pricing: price level %d: %w", id, shared.ErrNotFound)
		}
		return nil, err
	}
	return &level, nil
}

func (r *sqlRepository) GetPriceLevels(ctx context.Context, outletID int64) ([]PriceLevel, error) {
	rows, err := r.db.Query(ctx, `SELECT id, outlet_id, name, level_order, min_points, discount_pct, created_at, updated_at
FROM price_levels WHERE outlet_id=$1 ORDER BY level_order`, outletID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	levels := []PriceLevel{}
	for rows.Next() {
		var level PriceLevel
		if err := rows.Scan(&level.ID, &level.OutletID, &level.Name, &level.LevelOrder, &level.MinPoints, &level.DiscountPct, &level.CreatedAt, &level.UpdatedAt); err != nil {
			return nil, err
		}
		levels = append(levels, level)
	}
	return levels, rows.Err()
}

func (r *sqlRepository) CreatePriceLevel(ctx context.Context, level PriceLevel) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `INSERT INTO price_levels (outlet_id, name, level_order, min_points, discount_pct, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,NOW(),NOW()) RETURNING id`,
		level.OutletID, level.Name, level.LevelOrder, level.MinPoints, level.DiscountPct).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return 0, fmt.Errorf("pricing: level_order %d taken: %w", level.LevelOrder, shared.ErrConflict)
		}
		return 0, err
	}
	return id, nil
}

func (r *sqlRepository) UpdatePriceLevel(ctx context.Context, id int64, updates map[string]any) error {
	query := "UPDATE price_levels SET updated_at = NOW()"
	var args []any
	argPos := 1
	for _, col := range []string{"name", "level_order", "min_points", "discount_pct"} {
		if v, ok := updates[col]; ok {
			query += fmt.Sprintf(", %s = $%d", col, argPos)
			args = append(args, v)
			argPos++
		}
	}
	query += fmt.Sprintf(" WHERE id = $%d", argPos)
	args = append(args, id)
	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("pricing: price level %d: %w", id, shared.ErrNotFound)
	}
	return nil
}

func (r *sqlRepository) GetPointsConfig(ctx context.Context, outletID int64) (*PointsConfig, error) {
	var cfg PointsConfig
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

func (r *sqlRepository) UpsertPointsConfig(ctx context.Context, cfg PointsConfig) error {
	_, err := r.db.Exec(ctx, `INSERT INTO points_configs (outlet_id, points_per_amount, is_active)
VALUES ($1,$2,$3)
ON CONFLICT (outlet_id) DO UPDATE SET points_per_amount=EXCLUDED.points_per_amount, is_active=EXCLUDED.is_active`,
		cfg.OutletID, cfg.PointsPerAmount, cfg.IsActive)
	return err
}

func (r *sqlRepository) GetProductPrices(ctx context.Context, productID int64) ([]ProductPrice, error) {
	rows, err := r.db.Query(ctx, `SELECT product_id, level_id, price FROM product_prices WHERE product_id=$1 ORDER BY level_id`, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	prices := []ProductPrice{}
	for rows.Next() {
		var price ProductPrice
		if err := rows.Scan(&price.ProductID, &price.LevelID, &price.Price); err != nil {
			return nil, err
		}
		prices = append(prices, price)
	}
	return prices, rows.Err()
}

func (r *sqlRepository) UpsertProductPrice(ctx context.Context, price ProductPrice) error {
	_, err := r.db.Exec(ctx, `INSERT INTO product_prices (product_id, level_id, price)
VALUES ($1,$2,$3)
ON CONFLICT (product_id, level_id) DO UPDATE SET price=EXCLUDED.price`,
		price.ProductID, price.LevelID, price.Price)
	return err
}
