package customers

import "context"

// Repository persists customers and their points ledger.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error

	CreateCustomer(ctx context.Context, c Customer) (int64, error)
	GetCustomer(ctx context.Context, id int64) (*Customer, error)
	ListCustomers(ctx context.Context, outletID int64) ([]Customer, error)
	UpdateCustomer(ctx context.Context, id int64, updates map[string]any) error

	// AddPoints applies a signed delta under a row lock and returns the
	// resulting balance. The row lock serializes concurrent mutations per
	// customer, which keeps ledger balance_after values consistent.
	AddPoints(ctx context.Context, customerID, delta int64) (int64, error)
	SetCustomerLevel(ctx context.Context, customerID, levelID int64) error

	AppendPointsEntry(ctx context.Context, entry PointsEntry) error
	ListPointsEntries(ctx context.Context, customerID int64, limit int) ([]PointsEntry, error)
}
