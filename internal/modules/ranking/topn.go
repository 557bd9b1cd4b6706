// Package ranking selects the most valuable holdings on a date.
package ranking

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/aristath/etfmonitor/internal/domain"
)

// SelectTopN ranks holdings by weight x price at exactly date, descending,
// ties in input order, and returns at most n of them.
//
// n must be in [1, len(rows)]; clamping is the caller's job (see ClampN).
// Holdings without a price at date are left out rather than valued at zero,
// so fewer than n results may come back.
func SelectTopN(rows []domain.HoldingRow, history domain.PriceHistory, date time.Time, n int) ([]domain.RankedHolding, error) {
	if n <= 0 || n > len(rows) {
		return nil, fmt.Errorf("top n %d outside [1, %d]: %w", n, len(rows), domain.ErrInvalidArgument)
	}

	ranked := make([]domain.RankedHolding, 0, len(rows))
	for _, row := range rows {
		price, err := history.PriceAt(row.Name, date)
		if errors.Is(err, domain.ErrDataGap) {
			continue
		}
		ranked = append(ranked, domain.RankedHolding{
			Name:         row.Name,
			HoldingValue: row.Weight * price,
		})
	}

	slices.SortStableFunc(ranked, func(a, b domain.RankedHolding) int {
		return cmp.Compare(b.HoldingValue, a.HoldingValue)
	})

	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked, nil
}

// ClampN bounds a requested N to [1, min(count, limit)]. It returns 0 when
// there are no holdings to rank.
func ClampN(n, count, limit int) int {
	upper := min(count, limit)
	if upper < 1 {
		return 0
	}
	return min(max(n, 1), upper)
}
