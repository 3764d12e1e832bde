package masterdata

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mpi-retail/mpi/internal/shared"
)

type sqlRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the PostgreSQL-backed master data repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &sqlRepository{pool: pool}
}

func (r *sqlRepository) CreateOutlet(ctx context.Context, o Outlet) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `INSERT INTO outlets (code, name, address, phone, is_active, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,NOW(),NOW()) RETURNING id`,
		o.Code, o.Name, o.Address, o.Phone, o.IsActive).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return 0, fmt.Errorf("masterdata: outlet code %q taken: %w", o.Code, shared.ErrConflict)
		}
		return 0, err
	}
	return id, nil
}

func (r *sqlRepository) GetOutlet(ctx context.Context, id int64) (*Outlet, error) {
	var o Outlet
	err := r.pool.QueryRow(ctx, `SELECT id, code, name, address, phone, is_active, created_at, updated_at
FROM outlets WHERE id=$1`, id).Scan(&o.ID, &o.Code, &o.Name, &o.Address, &o.Phone, &o.IsActive, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("masterdata: outlet %d: %w", id, shared.ErrNotFound)
		}
		return nil, err
	}
	return &o, nil
}

func (r *sqlRepository) ListOutlets(ctx context.Context) ([]Outlet, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, code, name, address, phone, is_active, created_at, updated_at
FROM outlets ORDER BY code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []Outlet{}
	for rows.Next() {
		var o Outlet
		if err := rows.Scan(&o.ID, &o.Code, &o.Name, &o.Address, &o.Phone, &o.IsActive, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, o)
	}
	return list, rows.Err()
}

func (r *sqlRepository) UpdateOutlet(ctx context.Context, id int64, updates map[string]any) error {
	return r.execUpdates(ctx, "outlets", id, updates, []string{"name", "address", "phone", "is_active"})
}

func (r *sqlRepository) CreateEmployee(ctx context.Context, e Employee) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `INSERT INTO employees (outlet_id, name, role, pin_hash, is_active, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,NOW(),NOW()) RETURNING id`,
		e.OutletID, e.Name, e.Role, e.PINHash, e.IsActive).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (r *sqlRepository) GetEmployee(ctx context.Context, id int64) (*Employee, error) {
	var e Employee
	err := r.pool.QueryRow(ctx, `SELECT id, outlet_id, name, role, pin_hash, is_active, created_at, updated_at
FROM employees WHERE id=$1`, id).Scan(&e.ID, &e.OutletID, &e.Name, &e.Role, &e.PINHash, &e.IsActive, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("masterdata: employee %d: %w", id, shared.ErrNotFound)
		}
		return nil, err
	}
	return &e, nil
}

func (r *sqlRepository) ListEmployees(ctx context.Context, outletID int64) ([]Employee, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, outlet_id, name, role, pin_hash, is_active, created_at, updated_at
FROM employees WHERE outlet_id=$1 ORDER BY name`, outletID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []Employee{}
	for rows.Next() {
		var e Employee
		if err := rows.Scan(&e.ID, &e.OutletID, &e.Name, &e.Role, &e.PINHash, &e.IsActive, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, e)
	}
	return list, rows.Err()
}

func (r *sqlRepository) UpdateEmployee(ctx context.Context, id int64, updates map[string]any) error {
	return r.execUpdates(ctx, "employees", id, updates, []string{"name", "role", "pin_hash", "is_active"})
}

func (r *sqlRepository) execUpdates(ctx context.Context, table string, id int64, updates map[string]any, allowed []string) error {
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
	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("masterdata: %s %d: %w", table, id, shared.ErrNotFound)
	}
	return nil
}
