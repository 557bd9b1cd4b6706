// Package domain provides core domain models and types.
package domain

import (
	"encoding/json"
	"time"
)

// HoldingRow is one constituent of the fund as shown in the composition table
type HoldingRow struct {
	Name        string  `json:"name"`
	Weight      float64 `json:"weight"`       // fraction of the fund, in [0,1]
	LatestPrice float64 `json:"latest_price"` // price on the holding's last dated row
}

// PricePoint is a single dated price for one ticker
type PricePoint struct {
	Date  time.Time
	Price float64
}

type pricePointJSON struct {
	Date  string  `json:"date"`
	Price float64 `json:"price"`
}

// MarshalJSON writes the date as YYYY-MM-DD
func (p PricePoint) MarshalJSON() ([]byte, error) {
	return json.Marshal(pricePointJSON{Date: FormatDate(p.Date), Price: p.Price})
}

// UnmarshalJSON accepts any date ParseDate accepts
func (p *PricePoint) UnmarshalJSON(data []byte) error {
	var raw pricePointJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	d, err := ParseDate(raw.Date)
	if err != nil {
		return err
	}
	p.Date, p.Price = d, raw.Price
	return nil
}

// PerformancePoint is the aggregate fund value on one date
type PerformancePoint struct {
	Date  time.Time
	Value float64
}

type performancePointJSON struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
}

// MarshalJSON writes the date as YYYY-MM-DD
func (p PerformancePoint) MarshalJSON() ([]byte, error) {
	return json.Marshal(performancePointJSON{Date: FormatDate(p.Date), Value: p.Value})
}

// UnmarshalJSON accepts any date ParseDate accepts
func (p *PerformancePoint) UnmarshalJSON(data []byte) error {
	var raw performancePointJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	d, err := ParseDate(raw.Date)
	if err != nil {
		return err
	}
	p.Date, p.Value = d, raw.Value
	return nil
}

// PerformanceSeries is the fund value over time, ascending by date
type PerformanceSeries []PerformancePoint

// Latest returns the maximum date in the series
func (s PerformanceSeries) Latest() (time.Time, bool) {
	if len(s) == 0 {
		return time.Time{}, false
	}
	latest := s[0].Date
	for _, p := range s[1:] {
		if p.Date.After(latest) {
			latest = p.Date
		}
	}
	return latest, true
}

// RankedHolding is a holding's value (weight x price) on a given date
type RankedHolding struct {
	Name         string  `json:"name"`
	HoldingValue float64 `json:"holding_value"`
}

// PriceChange is the direction of a holding's price versus its previous point.
// Increased and ChangeAmount are nil when the direction is neutral (no previous
// point, or no price on the date).
type PriceChange struct {
	Name         string   `json:"name"`
	Increased    *bool    `json:"increased"`
	ChangeAmount *float64 `json:"change_amount"`
}

// Neutral reports whether no direction could be computed
func (c PriceChange) Neutral() bool {
	return c.Increased == nil
}

// Snapshot is the unit replaced atomically on every successful upload
type Snapshot struct {
	UploadID    string
	UploadedAt  time.Time
	Rows        []HoldingRow
	History     PriceHistory
	Performance PerformanceSeries
}

// Empty reports whether the snapshot holds no holdings
func (s *Snapshot) Empty() bool {
	return s == nil || len(s.Rows) == 0
}

// SnapshotInfo summarizes a snapshot for status endpoints
type SnapshotInfo struct {
	UploadID   string    `json:"upload_id"`
	UploadedAt time.Time `json:"uploaded_at"`
	Holdings   int       `json:"holdings"`
	Tickers    int       `json:"tickers"`
	Dates      int       `json:"dates"`
	FirstDate  string    `json:"first_date,omitempty"`
	LastDate   string    `json:"last_date,omitempty"`
}

// Info summarizes the snapshot
func (s *Snapshot) Info() SnapshotInfo {
	if s == nil {
		return SnapshotInfo{}
	}
	info := SnapshotInfo{
		UploadID:   s.UploadID,
		UploadedAt: s.UploadedAt,
		Holdings:   len(s.Rows),
		Tickers:    len(s.History),
	}
	dates := s.History.Dates()
	info.Dates = len(dates)
	if len(dates) > 0 {
		info.FirstDate = FormatDate(dates[0])
		info.LastDate = FormatDate(dates[len(dates)-1])
	}
	return info
}
