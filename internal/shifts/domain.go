package shifts

import (
	"errors"
	"time"
)

// Shift is one cash-drawer session at an outlet. ExpectedCash is derived at
// close time from the opening float plus cash sales captured during the
// shift; Variance is the count-versus-expectation difference.
type Shift struct {
	ID           int64      `json:"id"`
	OutletID     int64      `json:"outlet_id"`
	EmployeeID   int64      `json:"employee_id"`
	Status       string     `json:"status"`
	OpeningCash  float64    `json:"opening_cash"`
	ClosingCash  float64    `json:"closing_cash,omitempty"`
	ExpectedCash float64    `json:"expected_cash,omitempty"`
	Variance     float64    `json:"variance,omitempty"`
	OpenedAt     time.Time  `json:"opened_at"`
	ClosedAt     *time.Time `json:"closed_at,omitempty"`
}

// Shift statuses.
const (
	StatusOpen   = "open"
	StatusClosed = "closed"
)

// ErrShiftAlreadyOpen indicates the employee already has an open shift.
var ErrShiftAlreadyOpen = errors.New("shifts: employee already has an open shift")

// ErrShiftClosed indicates a close attempt on an already closed shift.
var ErrShiftClosed = errors.New("shifts: shift already closed")
