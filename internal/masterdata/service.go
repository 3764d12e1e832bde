package masterdata

import (
	"context"
	"regexp"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/mpi-retail/mpi/internal/shared"
)

var outletCodePattern = regexp.MustCompile(`^[A-Z0-9]{2,8}$`)
var pinPattern = regexp.MustCompile(`^\d{4,6}$`)

// Service manages outlets and employees.
type Service struct {
	repo Repository
}

// NewService builds Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// CreateOutlet registers an outlet. The code is uppercased and becomes the
// order-number prefix, so it is validated strictly and immutable afterwards.
func (s *Service) CreateOutlet(ctx context.Context, o Outlet) (*Outlet, error) {
	o.Code = strings.ToUpper(strings.TrimSpace(o.Code))
	verr := &shared.ValidationError{}
	if !outletCodePattern.MatchString(o.Code) {
		verr.Add("code", "must be 2-8 uppercase letters or digits")
	}
	if o.Name == "" {
		verr.Add("name", "required")
	}
	if !verr.Empty() {
		return nil, verr
	}
	o.IsActive = true
	id, err := s.repo.CreateOutlet(ctx, o)
	if err != nil {
		return nil, err
	}
	return s.repo.GetOutlet(ctx, id)
}

// GetOutlet returns one outlet.
func (s *Service) GetOutlet(ctx context.Context, id int64) (*Outlet, error) {
	return s.repo.GetOutlet(ctx, id)
}

// ListOutlets lists every outlet.
func (s *Service) ListOutlets(ctx context.Context) ([]Outlet, error) {
	return s.repo.ListOutlets(ctx)
}

// UpdateOutlet applies a partial update. Code is excluded: changing it would
// break order-number continuity.
func (s *Service) UpdateOutlet(ctx context.Context, id int64, updates map[string]any) (*Outlet, error) {
	if _, ok := updates["code"]; ok {
		return nil, (&shared.ValidationError{}).Add("code", "immutable")
	}
	if err := s.repo.UpdateOutlet(ctx, id, updates); err != nil {
		return nil, err
	}
	return s.repo.GetOutlet(ctx, id)
}

// CreateEmployee registers a staff member with a bcrypt-hashed PIN.
func (s *Service) CreateEmployee(ctx context.Context, e Employee, pin string) (*Employee, error) {
	verr := &shared.ValidationError{}
	if e.OutletID == 0 {
		verr.Add("outlet_id", "required")
	}
	if e.Name == "" {
		verr.Add("name", "required")
	}
	switch e.Role {
	case RoleOwner, RoleManager, RoleCashier:
	default:
		verr.Add("role", "must be owner, manager or cashier")
	}
	if !pinPattern.MatchString(pin) {
		verr.Add("pin", "must be 4-6 digits")
	}
	if !verr.Empty() {
		return nil, verr
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	e.PINHash = string(hash)
	e.IsActive = true

	id, err := s.repo.CreateEmployee(ctx, e)
	if err != nil {
		return nil, err
	}
	return s.repo.GetEmployee(ctx, id)
}

// GetEmployee returns one employee.
func (s *Service) GetEmployee(ctx context.Context, id int64) (*Employee, error) {
	return s.repo.GetEmployee(ctx, id)
}

// ListEmployees lists an outlet's staff.
func (s *Service) ListEmployees(ctx context.Context, outletID int64) ([]Employee, error) {
	return s.repo.ListEmployees(ctx, outletID)
}

// UpdateEmployee applies a partial update. Passing "pin" re-hashes it.
func (s *Service) UpdateEmployee(ctx context.Context, id int64, updates map[string]any) (*Employee, error) {
	if pin, ok := updates["pin"]; ok {
		str, _ := pin.(string)
		if !pinPattern.MatchString(str) {
			return nil, (&shared.ValidationError{}).Add("pin", "must be 4-6 digits")
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(str), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		delete(updates, "pin")
		updates["pin_hash"] = string(hash)
	}
	if err := s.repo.UpdateEmployee(ctx, id, updates); err != nil {
		return nil, err
	}
	return s.repo.GetEmployee(ctx, id)
}

// VerifyPIN checks an employee's PIN against the stored hash.
func (s *Service) VerifyPIN(ctx context.Context, employeeID int64, pin string) (*Employee, error) {
	e, err := s.repo.GetEmployee(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	if !e.IsActive {
		return nil, (&shared.ValidationError{}).Add("employee_id", "inactive")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(e.PINHash), []byte(pin)); err != nil {
		return nil, (&shared.ValidationError{}).Add("pin", "incorrect")
	}
	return e, nil
}
