package customers

import "time"

// Customer is a loyalty member of one outlet. Points is the lifetime balance
// the level ladder is resolved against; LevelID always reflects that balance
// after every accrual or manual adjustment.
type Customer struct {
	ID            int64     `json:"id"`
	OutletID      int64     `json:"outlet_id"`
	Name          string    `json:"name"`
	Phone         string    `json:"phone,omitempty"`
	Email         string    `json:"email,omitempty"`
	LevelID       int64     `json:"level_id"`
	Points        int64     `json:"points"`
	LifetimeSpent float64   `json:"lifetime_spent"`
	IsActive      bool      `json:"is_active"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// PointsEntry is one row of the append-only points ledger. Delta is signed;
// BalanceAfter snapshots the balance the mutation produced, so the ledger
// replays to the current balance without recomputation.
type PointsEntry struct {
	ID           int64     `json:"id"`
	CustomerID   int64     `json:"customer_id"`
	Delta        int64     `json:"delta"`
	BalanceAfter int64     `json:"balance_after"`
	Reason       string    `json:"reason"`
	SaleID       *int64    `json:"sale_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Ledger reasons.
const (
	ReasonSale       = "sale"
	ReasonAdjustment = "adjustment"
)
