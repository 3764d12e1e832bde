package customers

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/mpi-retail/mpi/internal/pricing"
	"github.com/mpi-retail/mpi/internal/shared"
)

// LevelSource supplies an outlet's level ladder. Implemented by the pricing
// service.
type LevelSource interface {
	Levels(ctx context.Context, outletID int64) ([]pricing.PriceLevel, error)
}

// AuditPort records administrative actions.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service manages loyalty members and their points ledger.
type Service struct {
	logger *slog.Logger
	repo   Repository
	levels LevelSource
	audit  AuditPort
}

// NewService builds Service.
func NewService(logger *slog.Logger, repo Repository, levels LevelSource, audit AuditPort) *Service {
	return &Service{logger: logger, repo: repo, levels: levels, audit: audit}
}

// CreateCustomer registers a member at the outlet's base level with zero
// points.
func (s *Service) CreateCustomer(ctx context.Context, c Customer) (*Customer, error) {
	verr := &shared.ValidationError{}
	if c.OutletID == 0 {
		verr.Add("outlet_id", "required")
	}
	if c.Name == "" {
		verr.Add("name", "required")
	}
	if !verr.Empty() {
		return nil, verr
	}

	levels, err := s.levels.Levels(ctx, c.OutletID)
	if err != nil {
		return nil, err
	}
	base, err := pricing.ResolveLevel(levels, 0)
	if err != nil {
		return nil, err
	}
	c.LevelID = base.ID
	c.Points = 0
	c.LifetimeSpent = 0
	c.IsActive = true

	id, err := s.repo.CreateCustomer(ctx, c)
	if err != nil {
		return nil, err
	}
	return s.repo.GetCustomer(ctx, id)
}

// GetCustomer returns one member.
func (s *Service) GetCustomer(ctx context.Context, id int64) (*Customer, error) {
	return s.repo.GetCustomer(ctx, id)
}

// ListCustomers lists an outlet's members.
func (s *Service) ListCustomers(ctx context.Context, outletID int64) ([]Customer, error) {
	return s.repo.ListCustomers(ctx, outletID)
}

// UpdateCustomer applies a partial profile update. Points and level are not
// editable here; they move only through the ledger.
func (s *Service) UpdateCustomer(ctx context.Context, id int64, updates map[string]any) (*Customer, error) {
	allowed := map[string]bool{"name": true, "phone": true, "email": true, "is_active": true}
	verr := &shared.ValidationError{}
	for k := range updates {
		if !allowed[k] {
			verr.Add(k, "not updatable")
		}
	}
	if !verr.Empty() {
		return nil, verr
	}
	if err := s.repo.UpdateCustomer(ctx, id, updates); err != nil {
		return nil, err
	}
	return s.repo.GetCustomer(ctx, id)
}

// AdjustPoints applies a manual signed delta, appends a ledger entry and
// re-resolves the member's level against the new balance. The whole mutation
// is one transaction.
func (s *Service) AdjustPoints(ctx context.Context, customerID, delta int64, reason string, actorID int64) (*Customer, error) {
	if delta == 0 {
		return nil, (&shared.ValidationError{}).Add("delta", "must not be zero")
	}
	if reason == "" {
		reason = ReasonAdjustment
	}

	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		customer, err := repo.GetCustomer(ctx, customerID)
		if err != nil {
			return err
		}
		if customer.Points+delta < 0 {
			return (&shared.ValidationError{}).Add("delta", fmt.Sprintf("balance would go negative (current %d)", customer.Points))
		}
		balance, err := repo.AddPoints(ctx, customerID, delta)
		if err != nil {
			return err
		}
		if err := repo.AppendPointsEntry(ctx, PointsEntry{
			CustomerID:   customerID,
			Delta:        delta,
			BalanceAfter: balance,
			Reason:       reason,
		}); err != nil {
			return err
		}

		levels, err := s.levels.Levels(ctx, customer.OutletID)
		if err != nil {
			return err
		}
		level, err := pricing.ResolveLevel(levels, balance)
		if err != nil {
			return err
		}
		if level.ID != customer.LevelID {
			if err := repo.SetCustomerLevel(ctx, customerID, level.ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.audit != nil {
		if aerr := s.audit.Record(ctx, shared.AuditLog{
			ActorID:  actorID,
			Action:   "points.adjust",
			Entity:   "customer",
			EntityID: strconv.FormatInt(customerID, 10),
			Meta:     map[string]any{"delta": delta, "reason": reason},
		}); aerr != nil {
			s.logger.Warn("audit write failed", slog.Any("error", aerr))
		}
	}
	return s.repo.GetCustomer(ctx, customerID)
}

// PointsHistory returns the most recent ledger entries, newest first.
func (s *Service) PointsHistory(ctx context.Context, customerID int64, limit int) ([]PointsEntry, error) {
	if _, err := s.repo.GetCustomer(ctx, customerID); err != nil {
		return nil, err
	}
	return s.repo.ListPointsEntries(ctx, customerID, limit)
}
