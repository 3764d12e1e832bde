package sales

import (
	"context"
	"time"

	"github.com/mpi-retail/mpi/internal/customers"
	"github.com/mpi-retail/mpi/internal/pricing"
)

// ProductRow is the slice of a product the commit pipeline needs.
type ProductRow struct {
	ID             int64
	OutletID       int64
	Name           string
	BasePrice      float64
	CostPrice      float64
	StockQty       *float64
	HasRecipe      bool
	TrackInventory bool
}

// BundleRow is a bundle with its component lines.
type BundleRow struct {
	ID          int64
	OutletID    int64
	Name        string
	BundlePrice float64
	Lines       []BundleLineRow
}

// BundleLineRow is one component product of a bundle.
type BundleLineRow struct {
	ProductID int64
	Qty       float64
}

// RecipeLineRow is one bill-of-materials row for stock expansion.
type RecipeLineRow struct {
	RawMaterialID int64
	Qty           float64
}

// CustomerRow is the customer slice the pipeline reads under lock.
type CustomerRow struct {
	ID            int64
	OutletID      int64
	LevelID       int64
	Points        int64
	LifetimeSpent float64
	IsActive      bool
}

// OutletRow carries the order-number prefix.
type OutletRow struct {
	ID       int64
	Code     string
	IsActive bool
}

// StockResult reports the quantity a deduction produced and the configured
// floor, so callers can raise low-stock alerts without a second read.
type StockResult struct {
	NewQty   float64
	MinStock float64
	Name     string
}

// Repository is the read side plus the transactional entry point of the sale
// pipeline.
type Repository interface {
	// WithTx runs fn inside one database transaction. Every write the commit
	// pipeline performs goes through the TxRepository it receives; an error
	// from fn rolls the whole transaction back.
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error

	GetTransaction(ctx context.Context, id int64) (*Transaction, error)
	GetTransactionItems(ctx context.Context, transactionID int64) ([]TransactionItem, error)
	ListTransactions(ctx context.Context, outletID int64, from, to time.Time) ([]Transaction, error)
}

// TxRepository is the data surface available inside the commit transaction.
// It spans the catalog, customer and loyalty tables on purpose: the pipeline
// is the one place where all of them must move together or not at all.
type TxRepository interface {
	GetOutlet(ctx context.Context, id int64) (*OutletRow, error)
	GetProduct(ctx context.Context, id int64) (*ProductRow, error)
	GetBundle(ctx context.Context, id int64) (*BundleRow, error)
	GetRecipeLines(ctx context.Context, productID int64) ([]RecipeLineRow, error)

	// GetCustomerForUpdate locks the customer row for the rest of the
	// transaction, serializing concurrent sales for the same member.
	GetCustomerForUpdate(ctx context.Context, id int64) (*CustomerRow, error)
	GetPriceLevels(ctx context.Context, outletID int64) ([]pricing.PriceLevel, error)
	GetProductPrice(ctx context.Context, productID, levelID int64) (float64, bool, error)
	GetPointsConfig(ctx context.Context, outletID int64) (*pricing.PointsConfig, error)

	// NextOrderSeq increments and returns the per-outlet per-day counter via
	// an upsert, so two concurrent sales can never observe the same value.
	NextOrderSeq(ctx context.Context, outletID int64, day string) (int64, error)

	InsertTransaction(ctx context.Context, tx *Transaction) (int64, error)
	InsertItems(ctx context.Context, transactionID int64, items []TransactionItem) error

	// DecrementProductStock and DecrementMaterialStock apply the deduction as
	// a single UPDATE ... RETURNING, so the check and the write cannot race.
	DecrementProductStock(ctx context.Context, productID int64, qty float64, allowNegative bool) (*StockResult, error)
	DecrementMaterialStock(ctx context.Context, materialID int64, qty float64, allowNegative bool) (*StockResult, error)

	// AccrueCustomer adds earned points and the sale total to the member's
	// lifetime counters in one UPDATE and returns the new points balance.
	AccrueCustomer(ctx context.Context, customerID, points int64, spend float64) (int64, error)
	SetCustomerLevel(ctx context.Context, customerID, levelID int64) error
	AppendPointsEntry(ctx context.Context, entry customers.PointsEntry) error
}
