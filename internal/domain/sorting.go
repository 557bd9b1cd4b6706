package domain

import "fmt"

// SortKey is a sortable composition column
type SortKey string

const (
	SortByName        SortKey = "name"
	SortByWeight      SortKey = "weight"
	SortByLatestPrice SortKey = "latest_price"
)

// Direction is the sort direction
type Direction string

const (
	Ascending  Direction = "asc"
	Descending Direction = "desc"
)

// SortConfig is the composition table's active ordering
type SortConfig struct {
	Key       SortKey   `json:"key"`
	Direction Direction `json:"direction"`
}

// DefaultSortConfig orders by weight, largest first
func DefaultSortConfig() SortConfig {
	return SortConfig{Key: SortByWeight, Direction: Descending}
}

// ParseSortKey validates a sort key
func ParseSortKey(s string) (SortKey, error) {
	switch k := SortKey(s); k {
	case SortByName, SortByWeight, SortByLatestPrice:
		return k, nil
	}
	return "", fmt.Errorf("unknown sort key %q: %w", s, ErrInvalidArgument)
}

// ParseDirection validates a sort direction
func ParseDirection(s string) (Direction, error) {
	switch d := Direction(s); d {
	case Ascending, Descending:
		return d, nil
	}
	return "", fmt.Errorf("unknown sort direction %q: %w", s, ErrInvalidArgument)
}

// TimeRange is a performance chart window anchored on the latest date
type TimeRange string

const (
	Range1D  TimeRange = "1D"
	Range1W  TimeRange = "1W"
	Range1M  TimeRange = "1M"
	Range3M  TimeRange = "3M"
	Range6M  TimeRange = "6M"
	RangeYTD TimeRange = "YTD"
	Range1Y  TimeRange = "1Y"
	RangeMAX TimeRange = "MAX"
)

// TimeRanges lists the windows in display order
var TimeRanges = []TimeRange{Range1D, Range1W, Range1M, Range3M, Range6M, RangeYTD, Range1Y, RangeMAX}

// ParseTimeRange validates a time range
func ParseTimeRange(s string) (TimeRange, error) {
	for _, r := range TimeRanges {
		if string(r) == s {
			return r, nil
		}
	}
	return "", fmt.Errorf("unknown time range %q: %w", s, ErrInvalidArgument)
}
