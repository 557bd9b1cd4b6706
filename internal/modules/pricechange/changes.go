// Package pricechange reports each holding's price direction on a date.
package pricechange

import (
	"time"

	"github.com/aristath/etfmonitor/internal/domain"
)

// ComputeChanges compares each holding's price at date with the point just
// before it in the holding's own series. Holdings with no price at date, or
// for which date is their first point, are reported neutral.
//
// An unchanged price counts as increased.
func ComputeChanges(rows []domain.HoldingRow, history domain.PriceHistory, date time.Time) []domain.PriceChange {
	changes := make([]domain.PriceChange, 0, len(rows))
	for _, row := range rows {
		change := domain.PriceChange{Name: row.Name}

		if i := history.Index(row.Name, date); i > 0 {
			series := history[row.Name]
			current, previous := series[i].Price, series[i-1].Price
			increased := current >= previous
			amount := current - previous
			change.Increased = &increased
			change.ChangeAmount = &amount
		}

		changes = append(changes, change)
	}
	return changes
}
