package reports

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/mpi-retail/mpi/internal/shared"
)

// Service serves reports through the cache. Concurrent requests for the same
// uncached report collapse into one database query via singleflight.
type Service struct {
	logger *slog.Logger
	repo   Repository
	cache  *Cache
	group  singleflight.Group
}

// NewService builds Service. cache may be nil; reports then always hit the
// database.
func NewService(logger *slog.Logger, repo Repository, cache *Cache) *Service {
	return &Service{logger: logger, repo: repo, cache: cache}
}

func (s *Service) checkRange(from, to time.Time) error {
	if !from.Before(to) {
		return (&shared.ValidationError{}).Add("to", "must be after from")
	}
	return nil
}

// SalesSummary returns the sales aggregate for one outlet and period.
func (s *Service) SalesSummary(ctx context.Context, outletID int64, from, to time.Time) (*SalesSummary, error) {
	if err := s.checkRange(from, to); err != nil {
		return nil, err
	}
	name := fmt.Sprintf("summary:%d:%d", from.Unix(), to.Unix())
	return cached(ctx, s, outletID, name, func() (*SalesSummary, error) {
		return s.repo.SalesSummary(ctx, outletID, from, to)
	})
}

// ProfitLoss returns revenue, COGS and gross profit for one period.
func (s *Service) ProfitLoss(ctx context.Context, outletID int64, from, to time.Time) (*ProfitLoss, error) {
	if err := s.checkRange(from, to); err != nil {
		return nil, err
	}
	name := fmt.Sprintf("pnl:%d:%d", from.Unix(), to.Unix())
	return cached(ctx, s, outletID, name, func() (*ProfitLoss, error) {
		return s.repo.ProfitLoss(ctx, outletID, from, to)
	})
}

// StockValuation prices current inventory at cost.
func (s *Service) StockValuation(ctx context.Context, outletID int64) (*StockValuation, error) {
	return cached(ctx, s, outletID, "stock-valuation", func() (*StockValuation, error) {
		return s.repo.StockValuation(ctx, outletID)
	})
}

// HPPRecap lists recipe products with their cost and margin.
func (s *Service) HPPRecap(ctx context.Context, outletID int64) (*HPPRecap, error) {
	return cached(ctx, s, outletID, "hpp-recap", func() (*HPPRecap, error) {
		return s.repo.HPPRecap(ctx, outletID)
	})
}

// cached wraps a report query with the version cache and singleflight. Cache
// failures degrade to the database instead of failing the report.
func cached[T any](ctx context.Context, s *Service, outletID int64, name string, load func() (*T, error)) (*T, error) {
	if s.cache != nil {
		var hit T
		found, err := s.cache.Get(ctx, outletID, name, &hit)
		if err != nil {
			s.logger.Warn("report cache read failed", slog.String("report", name), slog.Any("error", err))
		} else if found {
			return &hit, nil
		}
	}

	key := fmt.Sprintf("%d:%s", outletID, name)
	value, err, _ := s.group.Do(key, func() (any, error) {
		result, err := load()
		if err != nil {
			return nil, err
		}
		if s.cache != nil {
			if cerr := s.cache.Set(ctx, outletID, name, result); cerr != nil {
				s.logger.Warn("report cache write failed", slog.String("report", name), slog.Any("error", cerr))
			}
		}
		return result, nil
	})
	if err != nil {
		return nil, err
	}
	return value.(*T), nil
}
