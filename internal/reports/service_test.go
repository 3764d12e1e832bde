package reports

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/mpi-retail/mpi/internal/shared"
)

type fakeRepo struct {
	summaryCalls int
	pnlCalls     int
	revenue      float64
}

func (f *fakeRepo) SalesSummary(_ context.Context, outletID int64, from, to time.Time) (*SalesSummary, error) {
	f.summaryCalls++
	return &SalesSummary{
		OutletID:         outletID,
		Period:           Period{From: from, To: to},
		TransactionCount: 3,
		NetRevenue:       f.revenue,
		ByPaymentMethod:  map[string]float64{"cash": f.revenue},
	}, nil
}

func (f *fakeRepo) ProfitLoss(_ context.Context, outletID int64, from, to time.Time) (*ProfitLoss, error) {
	f.pnlCalls++
	return &ProfitLoss{OutletID: outletID, Revenue: f.revenue, COGS: f.revenue / 2, GrossProfit: f.revenue / 2}, nil
}

func (f *fakeRepo) StockValuation(_ context.Context, outletID int64) (*StockValuation, error) {
	return &StockValuation{OutletID: outletID}, nil
}

func (f *fakeRepo) HPPRecap(_ context.Context, outletID int64) (*HPPRecap, error) {
	return &HPPRecap{OutletID: outletID}, nil
}

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewCache(rdb, time.Minute)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSalesSummaryCachesByPeriod(t *testing.T) {
	repo := &fakeRepo{revenue: 120000}
	svc := NewService(testLogger(), repo, newTestCache(t))

	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)

	first, err := svc.SalesSummary(context.Background(), 1, from, to)
	require.NoError(t, err)
	require.Equal(t, int64(3), first.TransactionCount)
	require.Equal(t, 1, repo.summaryCalls)

	second, err := svc.SalesSummary(context.Background(), 1, from, to)
	require.NoError(t, err)
	require.Equal(t, first.NetRevenue, second.NetRevenue)
	require.Equal(t, 1, repo.summaryCalls, "second read must come from cache")

	// A different period is its own cache entry.
	_, err = svc.SalesSummary(context.Background(), 1, from.AddDate(0, -1, 0), from)
	require.NoError(t, err)
	require.Equal(t, 2, repo.summaryCalls)
}

func TestBumpInvalidatesOutletReports(t *testing.T) {
	repo := &fakeRepo{revenue: 50000}
	cache := newTestCache(t)
	svc := NewService(testLogger(), repo, cache)

	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)

	_, err := svc.ProfitLoss(context.Background(), 1, from, to)
	require.NoError(t, err)
	require.Equal(t, 1, repo.pnlCalls)

	require.NoError(t, cache.Bump(context.Background(), 1))

	repo.revenue = 80000
	pl, err := svc.ProfitLoss(context.Background(), 1, from, to)
	require.NoError(t, err)
	require.Equal(t, 2, repo.pnlCalls, "bump must force a reload")
	require.Equal(t, 80000.0, pl.Revenue)
}

func TestBumpScopedToOutlet(t *testing.T) {
	repo := &fakeRepo{revenue: 10000}
	cache := newTestCache(t)
	svc := NewService(testLogger(), repo, cache)

	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)

	_, err := svc.SalesSummary(context.Background(), 1, from, to)
	require.NoError(t, err)
	_, err = svc.SalesSummary(context.Background(), 2, from, to)
	require.NoError(t, err)
	require.Equal(t, 2, repo.summaryCalls)

	require.NoError(t, cache.Bump(context.Background(), 2))

	_, err = svc.SalesSummary(context.Background(), 1, from, to)
	require.NoError(t, err)
	require.Equal(t, 2, repo.summaryCalls, "outlet 1 cache must survive outlet 2 bump")

	_, err = svc.SalesSummary(context.Background(), 2, from, to)
	require.NoError(t, err)
	require.Equal(t, 3, repo.summaryCalls)
}

func TestReportsWorkWithoutCache(t *testing.T) {
	repo := &fakeRepo{revenue: 10000}
	svc := NewService(testLogger(), repo, nil)

	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)

	_, err := svc.SalesSummary(context.Background(), 1, from, to)
	require.NoError(t, err)
	_, err = svc.SalesSummary(context.Background(), 1, from, to)
	require.NoError(t, err)
	require.Equal(t, 2, repo.summaryCalls)
}

func TestReportRangeValidation(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewService(testLogger(), repo, nil)

	at := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	_, err := svc.SalesSummary(context.Background(), 1, at, at)
	var verr *shared.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Zero(t, repo.summaryCalls)
}

func TestFormatIDR(t *testing.T) {
	require.Equal(t, "Rp 1.250.000,50", FormatIDR(1250000.5))
	require.Equal(t, "Rp 0,00", FormatIDR(0))
}
