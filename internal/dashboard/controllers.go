package dashboard

import (
	"fmt"

	"github.com/aristath/etfmonitor/internal/config"
	"github.com/aristath/etfmonitor/internal/domain"
	"github.com/aristath/etfmonitor/internal/modules/composition"
	"github.com/aristath/etfmonitor/internal/modules/performance"
)

// TableController owns the composition table's sort configuration.
// It is not safe for concurrent use; the session serializes access.
type TableController struct {
	cfg domain.SortConfig
}

// NewTableController starts sorted by weight, descending
func NewTableController() *TableController {
	return &TableController{cfg: domain.DefaultSortConfig()}
}

// Config returns the current sort configuration
func (t *TableController) Config() domain.SortConfig {
	return t.cfg
}

// Toggle handles a header click on key
func (t *TableController) Toggle(key domain.SortKey) domain.SortConfig {
	t.cfg = composition.Toggle(t.cfg, key)
	return t.cfg
}

// Apply orders rows by the current configuration
func (t *TableController) Apply(rows []domain.HoldingRow) []domain.HoldingRow {
	return composition.Sort(rows, t.cfg)
}

// ChartControls owns the top-N selector and the performance time range.
// It is not safe for concurrent use; the session serializes access.
type ChartControls struct {
	topN int
	rng  domain.TimeRange
}

// NewChartControls starts at topN (falling back to the default) over the
// whole series.
func NewChartControls(topN int) *ChartControls {
	if topN < 1 || topN > config.MaxTopN {
		topN = config.DefaultTopN
	}
	return &ChartControls{topN: topN, rng: domain.RangeMAX}
}

// TopN returns the selected N
func (c *ChartControls) TopN() int {
	return c.topN
}

// Bound is the largest N allowed for count holdings. With no holdings loaded
// only the global cap applies.
func (c *ChartControls) Bound(count int) int {
	if count < 1 {
		return config.MaxTopN
	}
	return min(count, config.MaxTopN)
}

// SetTopN selects n, which must lie in [1, Bound(count)]
func (c *ChartControls) SetTopN(n, count int) error {
	if upper := c.Bound(count); n < 1 || n > upper {
		return fmt.Errorf("%w: top N must be between 1 and %d, got %d", domain.ErrInvalidArgument, upper, n)
	}
	c.topN = n
	return nil
}

// Fit pulls N back into range after the holding count changed. It reports
// whether N moved.
func (c *ChartControls) Fit(count int) bool {
	if upper := c.Bound(count); c.topN > upper {
		c.topN = upper
		return true
	}
	return false
}

// Range returns the selected time range
func (c *ChartControls) Range() domain.TimeRange {
	return c.rng
}

// SetRange selects r
func (c *ChartControls) SetRange(r domain.TimeRange) {
	c.rng = r
}

// Window applies the selected range to series
func (c *ChartControls) Window(series domain.PerformanceSeries) domain.PerformanceSeries {
	return performance.Filter(series, c.rng)
}
