package shifts

import (
	"context"
	"time"
)

// Repository persists shifts.
type Repository interface {
	CreateShift(ctx context.Context, s Shift) (int64, error)
	GetShift(ctx context.Context, id int64) (*Shift, error)
	GetOpenShift(ctx context.Context, employeeID int64) (*Shift, error)
	CloseShift(ctx context.Context, id int64, closingCash, expectedCash, variance float64, closedAt time.Time) error
	ListShifts(ctx context.Context, outletID int64, from, to time.Time) ([]Shift, error)

	// CashSalesSince sums cash totals the employee rang up from the given
	// moment, the basis of the expected drawer amount.
	CashSalesSince(ctx context.Context, outletID, employeeID int64, since time.Time) (float64, error)
}
