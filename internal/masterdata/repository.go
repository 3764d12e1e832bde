package masterdata

import "context"

// Repository persists outlets and employees.
type Repository interface {
	CreateOutlet(ctx context.Context, o Outlet) (int64, error)
	GetOutlet(ctx context.Context, id int64) (*Outlet, error)
	ListOutlets(ctx context.Context) ([]Outlet, error)
	UpdateOutlet(ctx context.Context, id int64, updates map[string]any) error

	CreateEmployee(ctx context.Context, e Employee) (int64, error)
	GetEmployee(ctx context.Context, id int64) (*Employee, error)
	ListEmployees(ctx context.Context, outletID int64) ([]Employee, error)
	UpdateEmployee(ctx context.Context, id int64, updates map[string]any) error
}
