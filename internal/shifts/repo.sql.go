package shifts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mpi-retail/mpi/internal/shared"
)

type sqlRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the PostgreSQL-backed shift repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &sqlRepository{pool: pool}
}

const shiftColumns = `id, outlet_id, employee_id, status, opening_cash, closing_cash, expected_cash, variance, opened_at, closed_at`

func scanShift(row pgx.Row) (*Shift, error) {
	var s Shift
	var closedAt pgtype.Timestamptz
	err := row.Scan(&s.ID, &s.OutletID, &s.EmployeeID, &s.Status, &s.OpeningCash,
		&s.ClosingCash, &s.ExpectedCash, &s.Variance, &s.OpenedAt, &closedAt)
	if err != nil {
		return nil, err
	}
	if closedAt.Valid {
		s.ClosedAt = &closedAt.Time
	}
	return &s, nil
}

func (r *sqlRepository) CreateShift(ctx context.Context, s Shift) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `INSERT INTO shifts (outlet_id, employee_id, status, opening_cash, closing_cash, expected_cash, variance, opened_at)
VALUES ($1,$2,$3,$4,0,0,0,NOW()) RETURNING id`,
		s.OutletID, s.EmployeeID, StatusOpen, s.OpeningCash).Scan(&id)
	return id, err
}

func (r *sqlRepository) GetShift(ctx context.Context, id int64) (*Shift, error) {
	s, err := scanShift(r.pool.QueryRow(ctx, `SELECT `+shiftColumns+` FROM shifts WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("shifts: shift %d: %w", id, shared.ErrNotFound)
		}
		return nil, err
	}
	return s, nil
}

func (r *sqlRepository) GetOpenShift(ctx context.Context, employeeID int64) (*Shift, error) {
	s, err := scanShift(r.pool.QueryRow(ctx, `SELECT `+shiftColumns+` FROM shifts
WHERE employee_id=$1 AND status=$2 ORDER BY opened_at DESC LIMIT 1`, employeeID, StatusOpen))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return s, nil
}

func (r *sqlRepository) CloseShift(ctx context.Context, id int64, closingCash, expectedCash, variance float64, closedAt time.Time) error {
	tag, err := r.pool.Exec(ctx, `UPDATE shifts SET status=$2, closing_cash=$3, expected_cash=$4, variance=$5, closed_at=$6
WHERE id=$1 AND status=$7`, id, StatusClosed, closingCash, expectedCash, variance, closedAt, StatusOpen)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("shifts: shift %d: %w", id, ErrShiftClosed)
	}
	return nil
}

func (r *sqlRepository) ListShifts(ctx context.Context, outletID int64, from, to time.Time) ([]Shift, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+shiftColumns+` FROM shifts
WHERE outlet_id=$1 AND opened_at >= $2 AND opened_at < $3 ORDER BY opened_at DESC`, outletID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []Shift{}
	for rows.Next() {
		s, err := scanShift(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *s)
	}
	return list, rows.Err()
}

func (r *sqlRepository) CashSalesSince(ctx context.Context, outletID, employeeID int64, since time.Time) (float64, error) {
	var total float64
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(SUM(total),0) FROM sales
WHERE outlet_id=$1 AND employee_id=$2 AND payment_method='cash' AND created_at >= $3`, outletID, employeeID, since).
		Scan(&total)
	return total, err
}
