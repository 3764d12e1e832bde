package pricing

import (
	"context"
	"fmt"

	"github.com/mpi-retail/mpi/internal/shared"
)

// Service coordinates price-level, product-price and loyalty configuration.
type Service struct {
	repo Repository
}

// NewService builds Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// CreateLevel adds a level after validating the resulting ladder.
func (s *Service) CreateLevel(ctx context.Context, level PriceLevel) (*PriceLevel, error) {
	verr := &shared.ValidationError{}
	if level.OutletID == 0 {
		verr.Add("outlet_id", "required")
	}
	if level.Name == "" {
		verr.Add("name", "required")
	}
	if level.LevelOrder <= 0 {
		verr.Add("level_order", "must be positive")
	}
	if level.MinPoints < 0 {
		verr.Add("min_points", "must not be negative")
	}
	if level.DiscountPct < 0 || level.DiscountPct > 100 {
		verr.Add("discount_pct", "must be between 0 and 100")
	}
	if !verr.Empty() {
		return nil, verr
	}

	var id int64
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		existing, err := repo.GetPriceLevels(ctx, level.OutletID)
		if err != nil {
			return err
		}
		if err := ValidateLadder(append(existing, level)); err != nil {
			return err
		}
		id, err = repo.CreatePriceLevel(ctx, level)
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.repo.GetPriceLevel(ctx, id)
}

// UpdateLevel applies a partial update, re-validating the ladder when the
// ordering fields change.
func (s *Service) UpdateLevel(ctx context.Context, id int64, updates map[string]any) (*PriceLevel, error) {
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		level, err := repo.GetPriceLevel(ctx, id)
		if err != nil {
			return err
		}
		if err := repo.UpdatePriceLevel(ctx, id, updates); err != nil {
			return err
		}
		_, ordered := updates["level_order"]
		_, pointed := updates["min_points"]
		if ordered || pointed {
			levels, err := repo.GetPriceLevels(ctx, level.OutletID)
			if err != nil {
				return err
			}
			if err := ValidateLadder(levels); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.repo.GetPriceLevel(ctx, id)
}

// Levels lists an outlet's ladder ordered by level_order.
func (s *Service) Levels(ctx context.Context, outletID int64) ([]PriceLevel, error) {
	return s.repo.GetPriceLevels(ctx, outletID)
}

// SeedProductPrices writes the default per-level price list for a new
// product. Satisfies catalog.PriceSeeder.
func (s *Service) SeedProductPrices(ctx context.Context, outletID, productID int64, basePrice float64) error {
	levels, err := s.repo.GetPriceLevels(ctx, outletID)
	if err != nil {
		return err
	}
	prices := DefaultLevelPrices(basePrice, levels)
	return s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		for levelID, price := range prices {
			if err := repo.UpsertProductPrice(ctx, ProductPrice{ProductID: productID, LevelID: levelID, Price: price}); err != nil {
				return fmt.Errorf("seed price for level %d: %w", levelID, err)
			}
		}
		return nil
	})
}

// SetProductPrice overrides one product's price at one level.
func (s *Service) SetProductPrice(ctx context.Context, price ProductPrice) error {
	verr := &shared.ValidationError{}
	if price.ProductID == 0 {
		verr.Add("product_id", "required")
	}
	if price.LevelID == 0 {
		verr.Add("level_id", "required")
	}
	if price.Price <= 0 {
		verr.Add("price", "must be positive")
	}
	if !verr.Empty() {
		return verr
	}
	return s.repo.UpsertProductPrice(ctx, price)
}

// ProductPrices lists the per-level price list of a product.
func (s *Service) ProductPrices(ctx context.Context, productID int64) ([]ProductPrice, error) {
	return s.repo.GetProductPrices(ctx, productID)
}

// PointsConfigFor returns the outlet's config, nil when absent.
func (s *Service) PointsConfigFor(ctx context.Context, outletID int64) (*PointsConfig, error) {
	return s.repo.GetPointsConfig(ctx, outletID)
}

// SetPointsConfig stores the loyalty rate. A non-positive rate is rejected
// here as well, so invalid configuration can never be written.
func (s *Service) SetPointsConfig(ctx context.Context, cfg PointsConfig) error {
	verr := &shared.ValidationError{}
	if cfg.OutletID == 0 {
		verr.Add("outlet_id", "required")
	}
	if cfg.PointsPerAmount <= 0 {
		verr.Add("points_per_amount", "must be positive")
	}
	if !verr.Empty() {
		return verr
	}
	return s.repo.UpsertPointsConfig(ctx, cfg)
}
