// Package dateindex maps a requested date onto the price calendar.
package dateindex

import (
	"slices"
	"time"

	"github.com/aristath/etfmonitor/internal/domain"
)

// Resolve returns the date derivations should use.
//
// A nil selection resolves to the latest date in history. A selected date
// missing from the union calendar resolves to the nearest earlier date, never
// a later one. ok is false when history is empty or the selection predates
// every series.
func Resolve(selected *time.Time, history domain.PriceHistory) (time.Time, bool) {
	if selected == nil {
		return history.Latest()
	}
	return AsOf(history.Dates(), *selected)
}

// AsOf finds the last date in the sorted calendar that is not after on.
func AsOf(calendar []time.Time, on time.Time) (time.Time, bool) {
	on = domain.Truncate(on)
	i, found := slices.BinarySearchFunc(calendar, on, func(d, target time.Time) int {
		return d.Compare(target)
	})
	if found {
		return calendar[i], true
	}
	if i == 0 {
		return time.Time{}, false
	}
	return calendar[i-1], true
}
