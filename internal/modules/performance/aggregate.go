package performance

import (
	"github.com/aristath/etfmonitor/internal/domain"
	"gonum.org/v1/gonum/floats"
)

// Aggregate computes the fund value on every date of the price calendar as
// the weighted sum of the holdings' prices on that date. Holdings without a
// price on a date do not contribute to it.
func Aggregate(rows []domain.HoldingRow, history domain.PriceHistory) domain.PerformanceSeries {
	dates := history.Dates()
	series := make(domain.PerformanceSeries, 0, len(dates))

	weights := make([]float64, 0, len(rows))
	prices := make([]float64, 0, len(rows))
	for _, date := range dates {
		weights, prices = weights[:0], prices[:0]
		for _, row := range rows {
			price, ok := history.PriceOn(row.Name, date)
			if !ok {
				continue
			}
			weights = append(weights, row.Weight)
			prices = append(prices, price)
		}
		series = append(series, domain.PerformancePoint{
			Date:  date,
			Value: floats.Dot(weights, prices),
		})
	}
	return series
}
