package shifts

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mpi-retail/mpi/internal/masterdata"
	"github.com/mpi-retail/mpi/internal/shared"
)

type memRepo struct {
	shifts    map[int64]Shift
	cashSales float64
	nextID    int64
}

func newMemRepo() *memRepo {
	return &memRepo{shifts: map[int64]Shift{}}
}

func (r *memRepo) CreateShift(_ context.Context, s Shift) (int64, error) {
	r.nextID++
	s.ID = r.nextID
	s.Status = StatusOpen
	s.OpenedAt = time.Now()
	r.shifts[s.ID] = s
	return s.ID, nil
}

func (r *memRepo) GetShift(_ context.Context, id int64) (*Shift, error) {
	s, ok := r.shifts[id]
	if !ok {
		return nil, fmt.Errorf("shifts: shift %d: %w", id, shared.ErrNotFound)
	}
	return &s, nil
}

func (r *memRepo) GetOpenShift(_ context.Context, employeeID int64) (*Shift, error) {
	for _, s := range r.shifts {
		if s.EmployeeID == employeeID && s.Status == StatusOpen {
			shift := s
			return &shift, nil
		}
	}
	return nil, nil
}

func (r *memRepo) CloseShift(_ context.Context, id int64, closingCash, expectedCash, variance float64, closedAt time.Time) error {
	s, ok := r.shifts[id]
	if !ok || s.Status != StatusOpen {
		return fmt.Errorf("shifts: shift %d: %w", id, ErrShiftClosed)
	}
	s.Status = StatusClosed
	s.ClosingCash = closingCash
	s.ExpectedCash = expectedCash
	s.Variance = variance
	s.ClosedAt = &closedAt
	r.shifts[id] = s
	return nil
}

func (r *memRepo) ListShifts(_ context.Context, outletID int64, from, to time.Time) ([]Shift, error) {
	var list []Shift
	for _, s := range r.shifts {
		if s.OutletID == outletID {
			list = append(list, s)
		}
	}
	return list, nil
}

func (r *memRepo) CashSalesSince(_ context.Context, _, _ int64, _ time.Time) (float64, error) {
	return r.cashSales, nil
}

type fakePins struct {
	employee *masterdata.Employee
	pin      string
}

func (f fakePins) VerifyPIN(_ context.Context, employeeID int64, pin string) (*masterdata.Employee, error) {
	if f.employee == nil || f.employee.ID != employeeID {
		return nil, fmt.Errorf("masterdata: employee %d: %w", employeeID, shared.ErrNotFound)
	}
	if pin != f.pin {
		return nil, (&shared.ValidationError{}).Add("pin", "incorrect")
	}
	return f.employee, nil
}

func newTestService(repo *memRepo) *Service {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	pins := fakePins{
		employee: &masterdata.Employee{ID: 3, OutletID: 1, Name: "Citra", Role: masterdata.RoleCashier, IsActive: true},
		pin:      "736204",
	}
	return NewService(logger, repo, pins)
}

func TestOpenShift(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo)

	shift, err := svc.OpenShift(context.Background(), 1, 3, "736204", 500000)
	require.NoError(t, err)
	require.Equal(t, StatusOpen, shift.Status)
	require.Equal(t, 500000.0, shift.OpeningCash)
}

func TestOpenShiftWrongPIN(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo)

	_, err := svc.OpenShift(context.Background(), 1, 3, "000000", 500000)
	var verr *shared.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Empty(t, repo.shifts)
}

func TestOpenShiftRejectsSecondOpen(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo)

	_, err := svc.OpenShift(context.Background(), 1, 3, "736204", 500000)
	require.NoError(t, err)

	_, err = svc.OpenShift(context.Background(), 1, 3, "736204", 100000)
	require.ErrorIs(t, err, ErrShiftAlreadyOpen)
}

func TestCloseShiftReconcilesDrawer(t *testing.T) {
	repo := newMemRepo()
	repo.cashSales = 1250000
	svc := newTestService(repo)

	opened, err := svc.OpenShift(context.Background(), 1, 3, "736204", 500000)
	require.NoError(t, err)

	closed, err := svc.CloseShift(context.Background(), opened.ID, "736204", 1700000)
	require.NoError(t, err)
	require.Equal(t, StatusClosed, closed.Status)
	require.Equal(t, 1750000.0, closed.ExpectedCash)
	require.Equal(t, -50000.0, closed.Variance, "drawer is 50k short")
	require.NotNil(t, closed.ClosedAt)
}

func TestCloseShiftTwice(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo)

	opened, err := svc.OpenShift(context.Background(), 1, 3, "736204", 0)
	require.NoError(t, err)
	_, err = svc.CloseShift(context.Background(), opened.ID, "736204", 0)
	require.NoError(t, err)

	_, err = svc.CloseShift(context.Background(), opened.ID, "736204", 0)
	require.ErrorIs(t, err, ErrShiftClosed)
}

func TestOpenShiftOutletMismatch(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo)

	_, err := svc.OpenShift(context.Background(), 2, 3, "736204", 0)
	var verr *shared.ValidationError
	require.ErrorAs(t, err, &verr)
}
