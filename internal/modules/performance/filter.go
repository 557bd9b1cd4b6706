// Package performance builds and windows the fund's value-over-time series.
package performance

import (
	"time"

	"github.com/aristath/etfmonitor/internal/domain"
)

// Filter keeps the points of series on or after the window start, in input
// order. The window is anchored on the latest date in the series, not today.
// MAX and unknown ranges return the input unchanged.
func Filter(series domain.PerformanceSeries, r domain.TimeRange) domain.PerformanceSeries {
	if len(series) == 0 {
		return domain.PerformanceSeries{}
	}

	anchor, _ := series.Latest()
	start, ok := WindowStart(anchor, r)
	if !ok {
		return series
	}

	out := make(domain.PerformanceSeries, 0, len(series))
	for _, p := range series {
		if !p.Date.Before(start) {
			out = append(out, p)
		}
	}
	return out
}

// WindowStart returns the first date included by r for the given anchor.
// ok is false for MAX, which has no lower bound.
func WindowStart(anchor time.Time, r domain.TimeRange) (start time.Time, ok bool) {
	switch r {
	case domain.Range1D:
		return anchor.AddDate(0, 0, -1), true
	case domain.Range1W:
		return anchor.AddDate(0, 0, -7), true
	case domain.Range1M:
		return anchor.AddDate(0, -1, 0), true
	case domain.Range3M:
		return anchor.AddDate(0, -3, 0), true
	case domain.Range6M:
		return anchor.AddDate(0, -6, 0), true
	case domain.Range1Y:
		return anchor.AddDate(-1, 0, 0), true
	case domain.RangeYTD:
		return time.Date(anchor.Year(), time.January, 1, 0, 0, 0, 0, anchor.Location()), true
	default:
		return time.Time{}, false
	}
}
