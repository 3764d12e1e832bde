package shifts

import (
	"context"
	"log/slog"
	"time"

	"github.com/mpi-retail/mpi/internal/masterdata"
	"github.com/mpi-retail/mpi/internal/shared"
)

// PINVerifier authenticates an employee by PIN. Implemented by the master
// data service.
type PINVerifier interface {
	VerifyPIN(ctx context.Context, employeeID int64, pin string) (*masterdata.Employee, error)
}

// Service opens and closes cash-drawer shifts.
type Service struct {
	logger *slog.Logger
	repo   Repository
	pins   PINVerifier
	now    func() time.Time
}

// NewService builds Service.
func NewService(logger *slog.Logger, repo Repository, pins PINVerifier) *Service {
	return &Service{logger: logger, repo: repo, pins: pins, now: time.Now}
}

// OpenShift verifies the PIN and opens a drawer session. One open shift per
// employee at a time.
func (s *Service) OpenShift(ctx context.Context, outletID, employeeID int64, pin string, openingCash float64) (*Shift, error) {
	if openingCash < 0 {
		return nil, (&shared.ValidationError{}).Add("opening_cash", "must not be negative")
	}
	employee, err := s.pins.VerifyPIN(ctx, employeeID, pin)
	if err != nil {
		return nil, err
	}
	if employee.OutletID != outletID {
		return nil, (&shared.ValidationError{}).Add("employee_id", "employee belongs to another outlet")
	}

	open, err := s.repo.GetOpenShift(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	if open != nil {
		return nil, ErrShiftAlreadyOpen
	}

	id, err := s.repo.CreateShift(ctx, Shift{
		OutletID:    outletID,
		EmployeeID:  employeeID,
		OpeningCash: openingCash,
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("shift opened", slog.Int64("shift_id", id), slog.Int64("employee_id", employeeID))
	return s.repo.GetShift(ctx, id)
}

// CloseShift verifies the PIN, reconciles the drawer against cash sales and
// closes the session.
func (s *Service) CloseShift(ctx context.Context, shiftID int64, pin string, closingCash float64) (*Shift, error) {
	if closingCash < 0 {
		return nil, (&shared.ValidationError{}).Add("closing_cash", "must not be negative")
	}
	shift, err := s.repo.GetShift(ctx, shiftID)
	if err != nil {
		return nil, err
	}
	if shift.Status != StatusOpen {
		return nil, ErrShiftClosed
	}
	if _, err := s.pins.VerifyPIN(ctx, shift.EmployeeID, pin); err != nil {
		return nil, err
	}

	cashSales, err := s.repo.CashSalesSince(ctx, shift.OutletID, shift.EmployeeID, shift.OpenedAt)
	if err != nil {
		return nil, err
	}
	expected := shared.Round2(shift.OpeningCash + cashSales)
	variance := shared.Round2(closingCash - expected)

	if err := s.repo.CloseShift(ctx, shiftID, closingCash, expected, variance, s.now()); err != nil {
		return nil, err
	}
	s.logger.Info("shift closed",
		slog.Int64("shift_id", shiftID),
		slog.Float64("expected_cash", expected),
		slog.Float64("variance", variance))
	return s.repo.GetShift(ctx, shiftID)
}

// GetShift returns one shift.
func (s *Service) GetShift(ctx context.Context, id int64) (*Shift, error) {
	return s.repo.GetShift(ctx, id)
}

// ListShifts lists an outlet's shifts opened in [from, to).
func (s *Service) ListShifts(ctx context.Context, outletID int64, from, to time.Time) ([]Shift, error) {
	if !from.Before(to) {
		return nil, (&shared.ValidationError{}).Add("to", "must be after from")
	}
	return s.repo.ListShifts(ctx, outletID, from, to)
}
