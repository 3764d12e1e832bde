package pricing

import "context"

// Repository persists pricing and loyalty configuration.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error

	GetPriceLevel(ctx context.Context, id int64) (*PriceLevel, error)
	GetPriceLevels(ctx context.Context, outletID int64) ([]PriceLevel, error)
	CreatePriceLevel(ctx context.Context, level PriceLevel) (int64, error)
	UpdatePriceLevel(ctx context.Context, id int64, updates map[string]any) error

	// GetPointsConfig returns (nil, nil) when the outlet has no config row;
	// "not configured" is a normal state, not an error.
	GetPointsConfig(ctx context.Context, outletID int64) (*PointsConfig, error)
	UpsertPointsConfig(ctx context.Context, cfg PointsConfig) error

	GetProductPrices(ctx context.Context, productID int64) ([]ProductPrice, error)
	UpsertProductPrice(ctx context.Context, price ProductPrice) error
}
