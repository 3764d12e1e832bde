package pricing

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mpi-retail/mpi/internal/shared"
)

func ladder() []PriceLevel {
	return []PriceLevel{
		{ID: 1, OutletID: 1, Name: "Bronze", LevelOrder: 1, MinPoints: 0},
		{ID: 2, OutletID: 1, Name: "Silver", LevelOrder: 2, MinPoints: 100},
		{ID: 3, OutletID: 1, Name: "Gold", LevelOrder: 3, MinPoints: 500},
	}
}

func TestPointsForSale(t *testing.T) {
	cfg := &PointsConfig{OutletID: 1, PointsPerAmount: 10000, IsActive: true}

	points, err := PointsForSale(cfg, 155000)
	require.NoError(t, err)
	require.Equal(t, int64(15), points)

	points, err = PointsForSale(cfg, 9999)
	require.NoError(t, err)
	require.Equal(t, int64(0), points)

	// No config and inactive config both earn nothing without error.
	points, err = PointsForSale(nil, 100000)
	require.NoError(t, err)
	require.Equal(t, int64(0), points)

	inactive := &PointsConfig{OutletID: 1, PointsPerAmount: 10000}
	points, err = PointsForSale(inactive, 100000)
	require.NoError(t, err)
	require.Equal(t, int64(0), points)

	// An active config with a non-positive rate is broken, not absent.
	broken := &PointsConfig{OutletID: 1, PointsPerAmount: 0, IsActive: true}
	_, err = PointsForSale(broken, 100000)
	require.ErrorIs(t, err, shared.ErrInvalidConfig)
}

func TestResolveLevel(t *testing.T) {
	levels := ladder()

	cases := []struct {
		balance int64
		want    string
	}{
		{0, "Bronze"},
		{99, "Bronze"},
		{100, "Silver"},
		{499, "Silver"},
		{500, "Gold"},
		{100000, "Gold"},
	}
	for _, tc := range cases {
		level, err := ResolveLevel(levels, tc.balance)
		require.NoError(t, err)
		require.Equal(t, tc.want, level.Name, "balance %d", tc.balance)
	}
}

func TestResolveLevelFallsBackToBase(t *testing.T) {
	// Every threshold above the balance: the base level still applies.
	levels := []PriceLevel{
		{ID: 1, OutletID: 1, Name: "Member", LevelOrder: 1, MinPoints: 50},
		{ID: 2, OutletID: 1, Name: "VIP", LevelOrder: 2, MinPoints: 500},
	}
	level, err := ResolveLevel(levels, 10)
	require.NoError(t, err)
	require.Equal(t, "Member", level.Name)
}

func TestResolveLevelNoLevels(t *testing.T) {
	_, err := ResolveLevel(nil, 100)
	require.ErrorIs(t, err, ErrNoLevels)
}

func TestValidateLadder(t *testing.T) {
	require.NoError(t, ValidateLadder(ladder()))

	duplicate := append(ladder(), PriceLevel{ID: 4, OutletID: 1, Name: "Other", LevelOrder: 2, MinPoints: 200})
	require.ErrorIs(t, ValidateLadder(duplicate), ErrLadderViolation)

	regression := ladder()
	regression[2].MinPoints = 50
	require.ErrorIs(t, ValidateLadder(regression), ErrLadderViolation)

	require.NoError(t, ValidateLadder(nil))
}

func TestDefaultLevelPrices(t *testing.T) {
	prices := DefaultLevelPrices(10000, ladder())
	require.Equal(t, 10000.0, prices[1])
	require.Equal(t, 9000.0, prices[2])
	require.Equal(t, 8000.0, prices[3])
}

func TestDefaultLevelPricesFloorsAtZero(t *testing.T) {
	levels := make([]PriceLevel, 12)
	for i := range levels {
		levels[i] = PriceLevel{ID: int64(i + 1), OutletID: 1, LevelOrder: i + 1, MinPoints: int64(i) * 100}
	}
	prices := DefaultLevelPrices(10000, levels)
	require.Equal(t, 0.0, prices[12])
	require.Equal(t, 0.0, prices[11])
	require.Equal(t, 1000.0, prices[10])
}
