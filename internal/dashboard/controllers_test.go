package dashboard

import (
	"testing"

	"github.com/aristath/etfmonitor/internal/config"
	"github.com/aristath/etfmonitor/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSequencer(t *testing.T) {
	s := NewSequencer()

	first := s.Next(ViewTopHoldings)
	assert.True(t, s.IsLatest(ViewTopHoldings, first))

	second := s.Next(ViewTopHoldings)
	assert.False(t, s.IsLatest(ViewTopHoldings, first))
	assert.True(t, s.IsLatest(ViewTopHoldings, second))

	// views are independent
	other := s.Next(ViewPriceChanges)
	assert.True(t, s.IsLatest(ViewPriceChanges, other))
	assert.True(t, s.IsLatest(ViewTopHoldings, second))

	s.Invalidate(ViewTopHoldings)
	assert.False(t, s.IsLatest(ViewTopHoldings, second))
	assert.True(t, s.IsLatest(ViewPriceChanges, other))

	s.Invalidate()
	assert.False(t, s.IsLatest(ViewPriceChanges, other))
	assert.Equal(t, uint64(1), s.Current(ViewComposition))
}

func TestTableController(t *testing.T) {
	tc := NewTableController()
	assert.Equal(t, domain.DefaultSortConfig(), tc.Config())

	rows := []domain.HoldingRow{
		{Name: "A", Weight: 0.1},
		{Name: "B", Weight: 0.5},
		{Name: "C", Weight: 0.3},
	}
	assert.Equal(t, []string{"B", "C", "A"}, rowNames(tc.Apply(rows)))

	cfg := tc.Toggle(domain.SortByWeight)
	assert.Equal(t, domain.Ascending, cfg.Direction)
	assert.Equal(t, []string{"A", "C", "B"}, rowNames(tc.Apply(rows)))
	assert.Equal(t, []string{"A", "B", "C"}, rowNames(rows), "input untouched")
}

func TestChartControls(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		c := NewChartControls(0)
		assert.Equal(t, config.DefaultTopN, c.TopN())
		assert.Equal(t, domain.RangeMAX, c.Range())

		assert.Equal(t, config.DefaultTopN, NewChartControls(config.MaxTopN+1).TopN())
	})

	t.Run("bounds", func(t *testing.T) {
		c := NewChartControls(5)
		assert.Equal(t, config.MaxTopN, c.Bound(0))
		assert.Equal(t, 3, c.Bound(3))
		assert.Equal(t, config.MaxTopN, c.Bound(50))

		require.NoError(t, c.SetTopN(20, 50))
		assert.ErrorIs(t, c.SetTopN(21, 50), domain.ErrInvalidArgument)
		assert.ErrorIs(t, c.SetTopN(4, 3), domain.ErrInvalidArgument)
		assert.Equal(t, 20, c.TopN())
	})

	t.Run("fit after fewer holdings", func(t *testing.T) {
		c := NewChartControls(8)
		assert.True(t, c.Fit(3))
		assert.Equal(t, 3, c.TopN())
		assert.False(t, c.Fit(10))
		assert.Equal(t, 3, c.TopN())
	})

	t.Run("window", func(t *testing.T) {
		c := NewChartControls(5)
		series := domain.PerformanceSeries{
			{Date: domain.Day(2026, 1, 1), Value: 1},
			{Date: domain.Day(2026, 1, 2), Value: 2},
		}
		assert.Equal(t, series, c.Window(series))

		c.SetRange(domain.Range1D)
		assert.Equal(t, series, c.Window(series))

		c.SetRange(domain.Range1W)
		assert.Len(t, c.Window(series), 2)
	})
}
