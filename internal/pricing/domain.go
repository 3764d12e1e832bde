package pricing

import (
	"errors"
	"time"
)

// PriceLevel is a named customer tier. LevelOrder is unique per outlet and
// ranks the ladder; MinPoints is the lifetime-points threshold to reach it.
// The ladder invariant: min_points is non-decreasing in level_order.
type PriceLevel struct {
	ID          int64   `json:"id"`
	OutletID    int64   `json:"outlet_id"`
	Name        string  `json:"name"`
	LevelOrder  int     `json:"level_order"`
	MinPoints   int64   `json:"min_points"`
	DiscountPct float64 `json:"discount_pct"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ProductPrice is the sell price of one product at one level. Seeded at
// product creation, independently editable afterwards.
type ProductPrice struct {
	ProductID int64   `json:"product_id"`
	LevelID   int64   `json:"level_id"`
	Price     float64 `json:"price"`
}

// PointsConfig is the per-outlet loyalty accrual rate: PointsPerAmount
// currency units earn one point.
type PointsConfig struct {
	OutletID        int64   `json:"outlet_id"`
	PointsPerAmount float64 `json:"points_per_amount"`
	IsActive        bool    `json:"is_active"`
}

var (
	// ErrNoLevels indicates an outlet without any configured price level.
	// Level resolution cannot fall back to anything in that state, so it is
	// surfaced as a configuration error instead of silently skipping the
	// assignment.
	ErrNoLevels = errors.New("pricing: outlet has no price levels configured")
	// ErrLadderViolation indicates a duplicate level_order or a min_points
	// regression within an outlet's ladder.
	ErrLadderViolation = errors.New("pricing: level ladder violates ordering invariant")
)
