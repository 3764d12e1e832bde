package pricing

import (
	"fmt"
	"math"
	"sort"

	"github.com/mpi-retail/mpi/internal/shared"
)

// PointsForSale computes loyalty points for a sale amount. A nil or inactive
// config earns nothing and is not an error; a config with a non-positive rate
// is rejected explicitly so a broken setup never hides behind a default.
func PointsForSale(cfg *PointsConfig, saleTotal float64) (int64, error) {
	if cfg == nil || !cfg.IsActive {
		return 0, nil
	}
	if cfg.PointsPerAmount <= 0 {
		return 0, fmt.Errorf("%w: points_per_amount must be positive, got %v", shared.ErrInvalidConfig, cfg.PointsPerAmount)
	}
	if saleTotal <= 0 {
		return 0, nil
	}
	return int64(math.Floor(saleTotal / cfg.PointsPerAmount)), nil
}

// ResolveLevel returns the highest level whose MinPoints does not exceed the
// balance. Below every threshold the base level (level_order 1) applies. The
// function is direction-agnostic: invoked after a balance decrease it would
// resolve a lower level just the same; only accrual paths call it today.
func ResolveLevel(levels []PriceLevel, balance int64) (*PriceLevel, error) {
	if len(levels) == 0 {
		return nil, ErrNoLevels
	}

	sorted := make([]PriceLevel, len(levels))
	copy(sorted, levels)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].MinPoints != sorted[j].MinPoints {
			return sorted[i].MinPoints > sorted[j].MinPoints
		}
		return sorted[i].LevelOrder > sorted[j].LevelOrder
	})

	for i := range sorted {
		if sorted[i].MinPoints <= balance {
			level := sorted[i]
			return &level, nil
		}
	}

	for i := range sorted {
		if sorted[i].LevelOrder == 1 {
			level := sorted[i]
			return &level, nil
		}
	}
	return nil, fmt.Errorf("%w: no base level (level_order 1) for fallback", ErrNoLevels)
}

// LevelByID returns the ladder entry with the given id, or nil when the id
// is zero or no longer part of the ladder.
func LevelByID(levels []PriceLevel, id int64) *PriceLevel {
	for i := range levels {
		if levels[i].ID == id {
			level := levels[i]
			return &level
		}
	}
	return nil
}

// ValidateLadder rejects ladders with duplicate level_order values or with
// min_points decreasing as level_order rises.
func ValidateLadder(levels []PriceLevel) error {
	sorted := make([]PriceLevel, len(levels))
	copy(sorted, levels)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].LevelOrder < sorted[j].LevelOrder })

	for i := range sorted {
		if i == 0 {
			continue
		}
		if sorted[i].LevelOrder == sorted[i-1].LevelOrder {
			return fmt.Errorf("%w: duplicate level_order %d", ErrLadderViolation, sorted[i].LevelOrder)
		}
		if sorted[i].MinPoints < sorted[i-1].MinPoints {
			return fmt.Errorf("%w: level_order %d has min_points %d below level_order %d (%d)",
				ErrLadderViolation, sorted[i].LevelOrder, sorted[i].MinPoints, sorted[i-1].LevelOrder, sorted[i-1].MinPoints)
		}
	}
	return nil
}

// DefaultLevelPrices seeds the per-level price list for a new product:
// basePrice discounted by 10% per step up the ladder.
func DefaultLevelPrices(basePrice float64, levels []PriceLevel) map[int64]float64 {
	sorted := make([]PriceLevel, len(levels))
	copy(sorted, levels)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].LevelOrder < sorted[j].LevelOrder })

	prices := make(map[int64]float64, len(sorted))
	for i, level := range sorted {
		factor := 1 - 0.1*float64(i)
		if factor < 0 {
			factor = 0
		}
		prices[level.ID] = shared.Round2(basePrice * factor)
	}
	return prices
}
