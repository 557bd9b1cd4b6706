package ingest

import (
	"fmt"
	"time"

	"github.com/aristath/etfmonitor/internal/domain"
	"github.com/aristath/etfmonitor/internal/modules/performance"
)

// Assemble joins weights and prices into a snapshot. Every weighted ticker
// needs at least one price; price columns without a weight are dropped.
func Assemble(uploadID string, uploadedAt time.Time, weights []WeightRow, prices domain.PriceHistory) (*domain.Snapshot, error) {
	seen := make(map[string]struct{}, len(weights))
	rows := make([]domain.HoldingRow, 0, len(weights))
	history := make(domain.PriceHistory, len(weights))

	for _, w := range weights {
		if _, dup := seen[w.Name]; dup {
			return nil, fmt.Errorf("duplicate holding %q: %w", w.Name, domain.ErrMalformedInput)
		}
		seen[w.Name] = struct{}{}

		latest, ok := prices.LatestPoint(w.Name)
		if !ok {
			return nil, fmt.Errorf("holding %q has no prices: %w", w.Name, domain.ErrMalformedInput)
		}

		rows = append(rows, domain.HoldingRow{
			Name:        w.Name,
			Weight:      w.Weight,
			LatestPrice: latest.Price,
		})
		history[w.Name] = prices[w.Name]
	}

	return &domain.Snapshot{
		UploadID:    uploadID,
		UploadedAt:  uploadedAt,
		Rows:        rows,
		History:     history,
		Performance: performance.Aggregate(rows, history),
	}, nil
}

// UnweightedTickers lists price columns that have no weight row
func UnweightedTickers(weights []WeightRow, prices domain.PriceHistory) []string {
	weighted := make(map[string]struct{}, len(weights))
	for _, w := range weights {
		weighted[w.Name] = struct{}{}
	}
	var extra []string
	for _, ticker := range prices.Tickers() {
		if _, ok := weighted[ticker]; !ok {
			extra = append(extra, ticker)
		}
	}
	return extra
}
