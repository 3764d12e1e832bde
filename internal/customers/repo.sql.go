package customers

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

// NewRepository constructs the PostgreSQL-backed customer repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &sqlRepository{db: pool, pool: pool}
}

func (r *sqlRepository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &sqlRepository{db: tx, pool: r.pool})
	})
}

const customerColumns = `id, outlet_id, name, phone, email, level_id, points, lifetime_spent, is_active, created_at, updated_at`

func scanCustomer(row pgx.Row) (*Customer, error) {
	var c Customer
	err := row.Scan(&c.ID, &c.OutletID, &c.Name, &c.Phone, &c.Email, &c.LevelID, &c.Points, &c.LifetimeSpent, &c.IsActive, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *sqlRepository) CreateCustomer(ctx context.Context, c Customer) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `INSERT INTO customers (outlet_id, name, phone, email, level_id, points, lifetime_spent, is_active, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,NOW(),NOW()) RETURNING id`,
		c.OutletID, c.Name, c.Phone, c.Email, c.LevelID, c.Points, c.LifetimeSpent, c.IsActive).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return 0, fmt.Errorf("customers: phone %q already registered: %w", c.Phone, shared.ErrConflict)
		}
		return 0, err
	}
	return id, nil
}

func (r *sqlRepository) GetCustomer(ctx context.Context, id int64) (*Customer, error) {
	c, err := scanCustomer(r.db.QueryRow(ctx, `SELECT `+customerColumns+` FROM customers WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("customers: customer %d: %w", id, shared.ErrNotFound)
		}
		return nil, err
	}
	return c, nil
}

func (r *sqlRepository) ListCustomers(ctx context.Context, outletID int64) ([]Customer, error) {
	rows, err := r.db.Query(ctx, `SELECT `+customerColumns+` FROM customers WHERE outlet_id=$1 ORDER BY name`, outletID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []Customer{}
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *c)
	}
	return list, rows.Err()
}

func (r *sqlRepository) UpdateCustomer(ctx context.Context, id int64, updates map[string]any) error {
	query := "UPDATE customers SET updated_at = NOW()"
	var args []any
	argPos := 1
	for _, col := range []string{"name", "phone", "email", "is_active"} {
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
		return fmt.Errorf("customers: customer %d: %w", id, shared.ErrNotFound)
	}
	return nil
}

func (r *sqlRepository) AddPoints(ctx context.Context, customerID, delta int64) (int64, error) {
	var balance int64
	err := r.db.QueryRow(ctx, `UPDATE customers SET points = points + $2, updated_at = NOW()
WHERE id = $1 RETURNING points`, customerID, delta).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, fmt.Errorf("customers: customer %d: %w", customerID, shared.ErrNotFound)
		}
		return 0, err
	}
	return balance, nil
}

func (r *sqlRepository) SetCustomerLevel(ctx context.Context, customerID, levelID int64) error {
	tag, err := r.db.Exec(ctx, `UPDATE customers SET level_id = $2, updated_at = NOW() WHERE id = $1`, customerID, levelID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("customers: customer %d: %w", customerID, shared.ErrNotFound)
	}
	return nil
}

func (r *sqlRepository) AppendPointsEntry(ctx context.Context, entry PointsEntry) error {
	_, err := r.db.Exec(ctx, `INSERT INTO points_entries (customer_id, delta, balance_after, reason, sale_id, created_at)
VALUES ($1,$2,$3,$4,$5,NOW())`,
		entry.CustomerID, entry.Delta, entry.BalanceAfter, entry.Reason, entry.SaleID)
	return err
}

func (r *sqlRepository) ListPointsEntries(ctx context.Context, customerID int64, limit int) ([]PointsEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.Query(ctx, `SELECT id, customer_id, delta, balance_after, reason, sale_id, created_at
FROM points_entries WHERE customer_id=$1 ORDER BY id DESC LIMIT $2`, customerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	entries := []PointsEntry{}
	for rows.Next() {
		var e PointsEntry
		if err := rows.Scan(&e.ID, &e.CustomerID, &e.Delta, &e.BalanceAfter, &e.Reason, &e.SaleID, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
