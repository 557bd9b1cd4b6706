package domain

import (
	"fmt"
	"slices"
	"sort"
	"time"
)

// PriceHistory maps ticker to its price series. Each series is sorted by
// date with unique dates; use Add to keep it that way.
type PriceHistory map[string][]PricePoint

// Add inserts a price, overwriting an existing point on the same date.
func (h PriceHistory) Add(name string, date time.Time, price float64) {
	date = Truncate(date)
	series := h[name]
	i, found := slices.BinarySearchFunc(series, date, comparePointDate)
	if found {
		series[i].Price = price
		return
	}
	h[name] = slices.Insert(series, i, PricePoint{Date: date, Price: price})
}

// Index returns the position of date in the ticker's series, or -1.
func (h PriceHistory) Index(name string, date time.Time) int {
	i, found := slices.BinarySearchFunc(h[name], Truncate(date), comparePointDate)
	if !found {
		return -1
	}
	return i
}

// PriceOn returns the ticker's price at exactly date.
func (h PriceHistory) PriceOn(name string, date time.Time) (float64, bool) {
	i := h.Index(name, date)
	if i < 0 {
		return 0, false
	}
	return h[name][i].Price, true
}

// PriceAt is PriceOn with ErrDataGap when the ticker has no price at date.
func (h PriceHistory) PriceAt(name string, date time.Time) (float64, error) {
	price, ok := h.PriceOn(name, date)
	if !ok {
		return 0, fmt.Errorf("%s on %s: %w", name, FormatDate(date), ErrDataGap)
	}
	return price, nil
}

// LatestPoint returns the ticker's last dated point.
func (h PriceHistory) LatestPoint(name string) (PricePoint, bool) {
	series := h[name]
	if len(series) == 0 {
		return PricePoint{}, false
	}
	return series[len(series)-1], true
}

// Dates returns the sorted union of all dates across all tickers.
func (h PriceHistory) Dates() []time.Time {
	seen := make(map[time.Time]struct{})
	for _, series := range h {
		for _, p := range series {
			seen[p.Date] = struct{}{}
		}
	}
	dates := make([]time.Time, 0, len(seen))
	for d := range seen {
		dates = append(dates, d)
	}
	slices.SortFunc(dates, func(a, b time.Time) int { return a.Compare(b) })
	return dates
}

// Latest returns the maximum date across all tickers.
func (h PriceHistory) Latest() (time.Time, bool) {
	var latest time.Time
	ok := false
	for _, series := range h {
		if len(series) == 0 {
			continue
		}
		last := series[len(series)-1].Date
		if !ok || last.After(latest) {
			latest, ok = last, true
		}
	}
	return latest, ok
}

// Tickers returns the ticker names, sorted.
func (h PriceHistory) Tickers() []string {
	names := make([]string, 0, len(h))
	for name := range h {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clone returns a deep copy.
func (h PriceHistory) Clone() PriceHistory {
	out := make(PriceHistory, len(h))
	for name, series := range h {
		out[name] = slices.Clone(series)
	}
	return out
}

func comparePointDate(p PricePoint, d time.Time) int {
	return p.Date.Compare(d)
}
