package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/mpi-retail/mpi/internal/shared"
)

// ComputeHPP derives a product's cost of goods from its recipe: the sum over
// every recipe line of quantity times the material's current purchase price,
// with a per-line breakdown for display. A recipe line whose raw material no
// longer exists is a hard failure, never a silent zero-cost contribution.
func (s *Service) ComputeHPP(ctx context.Context, productID int64) (float64, []HPPLine, error) {
	return s.computeHPP(ctx, s.repo, productID)
}

func (s *Service) computeHPP(ctx context.Context, repo Repository, productID int64) (float64, []HPPLine, error) {
	lines, err := repo.GetRecipeLines(ctx, productID)
	if err != nil {
		return 0, nil, fmt.Errorf("load recipe: %w", err)
	}

	var total float64
	breakdown := make([]HPPLine, 0, len(lines))
	for _, line := range lines {
		material, err := repo.GetRawMaterial(ctx, line.RawMaterialID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return 0, nil, fmt.Errorf("%w: product %d line %d material %d: %w",
					ErrMaterialMissing, productID, line.ID, line.RawMaterialID, err)
			}
			return 0, nil, fmt.Errorf("load material %d: %w", line.RawMaterialID, err)
		}

		unit := line.Unit
		if unit == "" {
			unit = material.Unit
		}
		subtotal := shared.Round2(line.Qty * material.PurchasePrice)
		total += subtotal
		breakdown = append(breakdown, HPPLine{
			RawMaterialID: material.ID,
			MaterialName:  material.Name,
			Qty:           line.Qty,
			Unit:          unit,
			UnitPrice:     material.PurchasePrice,
			Subtotal:      subtotal,
		})
	}
	return shared.Round2(total), breakdown, nil
}

// RecomputeCostPrice refreshes the cached cost price of one product from its
// recipe and persists it.
func (s *Service) RecomputeCostPrice(ctx context.Context, productID int64) (float64, error) {
	var total float64
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		var err error
		total, _, err = s.computeHPP(ctx, repo, productID)
		if err != nil {
			return err
		}
		return repo.UpdateCostPrice(ctx, productID, total)
	})
	if err != nil {
		return 0, err
	}
	return total, nil
}
