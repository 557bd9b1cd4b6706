// Package composition orders the holdings shown in the composition table.
package composition

import (
	"cmp"
	"slices"
	"strings"

	"github.com/aristath/etfmonitor/internal/domain"
)

// Sort returns a new slice of rows ordered by cfg. The input is not modified.
//
// Ascending order is stable. Descending order is the exact reverse of the
// ascending order, so rows with equal keys appear in reverse input order.
// This differs from the browser table's comparator, which keeps ties in input
// order in both directions; flipping a column here always mirrors the rows.
func Sort(rows []domain.HoldingRow, cfg domain.SortConfig) []domain.HoldingRow {
	out := slices.Clone(rows)
	if out == nil {
		out = []domain.HoldingRow{}
	}

	slices.SortStableFunc(out, compareBy(cfg.Key))
	if cfg.Direction == domain.Descending {
		slices.Reverse(out)
	}
	return out
}

// Toggle returns the configuration after the user activates a column header:
// the same column flips direction, a new column starts ascending.
func Toggle(cfg domain.SortConfig, key domain.SortKey) domain.SortConfig {
	if cfg.Key == key {
		if cfg.Direction == domain.Ascending {
			return domain.SortConfig{Key: key, Direction: domain.Descending}
		}
		return domain.SortConfig{Key: key, Direction: domain.Ascending}
	}
	return domain.SortConfig{Key: key, Direction: domain.Ascending}
}

// MaxWeight returns the largest weight, used to scale the weight bars.
func MaxWeight(rows []domain.HoldingRow) float64 {
	var top float64
	for _, r := range rows {
		if r.Weight > top {
			top = r.Weight
		}
	}
	return top
}

func compareBy(key domain.SortKey) func(a, b domain.HoldingRow) int {
	switch key {
	case domain.SortByName:
		return func(a, b domain.HoldingRow) int { return strings.Compare(a.Name, b.Name) }
	case domain.SortByLatestPrice:
		return func(a, b domain.HoldingRow) int { return cmp.Compare(a.LatestPrice, b.LatestPrice) }
	default:
		return func(a, b domain.HoldingRow) int { return cmp.Compare(a.Weight, b.Weight) }
	}
}
