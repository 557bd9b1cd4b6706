package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2026-01-02", Day(2026, 1, 2)},
		{"2026-1-2", Day(2026, 1, 2)},
		{" 2026-01-02 ", Day(2026, 1, 2)},
		{"2026-01-02T00:00:00", Day(2026, 1, 2)},
		{"2026-01-02T15:30:00Z", Day(2026, 1, 2)},
		{"2026/1/2", Day(2026, 1, 2)},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDate(tt.in)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s", got)
		})
	}

	_, err := ParseDate("yesterday")
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestPriceHistory_Add(t *testing.T) {
	h := PriceHistory{}
	h.Add("A", Day(2026, 1, 3), 12)
	h.Add("A", Day(2026, 1, 1), 10)
	h.Add("A", Day(2026, 1, 2), 11)
	h.Add("A", Day(2026, 1, 2), 11.5)

	require.Len(t, h["A"], 3)
	assert.Equal(t, []float64{10, 11.5, 12}, []float64{h["A"][0].Price, h["A"][1].Price, h["A"][2].Price})

	p, ok := h.PriceOn("A", Day(2026, 1, 2))
	assert.True(t, ok)
	assert.Equal(t, 11.5, p)

	_, ok = h.PriceOn("A", Day(2026, 1, 4))
	assert.False(t, ok)
	_, ok = h.PriceOn("missing", Day(2026, 1, 1))
	assert.False(t, ok)

	assert.Equal(t, 2, h.Index("A", Day(2026, 1, 3)))
	assert.Equal(t, -1, h.Index("A", Day(2025, 12, 31)))
}

func TestPriceHistory_DatesAndLatest(t *testing.T) {
	h := PriceHistory{}
	h.Add("A", Day(2026, 1, 1), 10)
	h.Add("A", Day(2026, 1, 3), 10)
	h.Add("B", Day(2026, 1, 2), 5)
	h.Add("B", Day(2026, 1, 3), 5)

	dates := h.Dates()
	require.Len(t, dates, 3)
	assert.True(t, dates[0].Equal(Day(2026, 1, 1)))
	assert.True(t, dates[2].Equal(Day(2026, 1, 3)))

	latest, ok := h.Latest()
	assert.True(t, ok)
	assert.True(t, latest.Equal(Day(2026, 1, 3)))

	assert.Equal(t, []string{"A", "B"}, h.Tickers())

	_, ok = PriceHistory{}.Latest()
	assert.False(t, ok)
}

func TestPriceHistory_PriceAt(t *testing.T) {
	h := PriceHistory{}
	h.Add("A", Day(2026, 1, 1), 10)

	price, err := h.PriceAt("A", Day(2026, 1, 1))
	require.NoError(t, err)
	assert.Equal(t, 10.0, price)

	_, err = h.PriceAt("A", Day(2026, 1, 2))
	assert.ErrorIs(t, err, ErrDataGap)
	_, err = h.PriceAt("B", Day(2026, 1, 1))
	assert.ErrorIs(t, err, ErrDataGap)
}

func TestPriceHistory_Clone(t *testing.T) {
	h := PriceHistory{}
	h.Add("A", Day(2026, 1, 1), 10)

	c := h.Clone()
	c.Add("A", Day(2026, 1, 1), 99)

	p, _ := h.PriceOn("A", Day(2026, 1, 1))
	assert.Equal(t, 10.0, p)
}

func TestPointJSON(t *testing.T) {
	data, err := json.Marshal(PerformancePoint{Date: Day(2026, 3, 4), Value: 1.5})
	require.NoError(t, err)
	assert.JSONEq(t, `{"date":"2026-03-04","value":1.5}`, string(data))

	var pp PricePoint
	require.NoError(t, json.Unmarshal([]byte(`{"date":"2026-3-4","price":2}`), &pp))
	assert.True(t, pp.Date.Equal(Day(2026, 3, 4)))
	assert.Equal(t, 2.0, pp.Price)

	assert.Error(t, json.Unmarshal([]byte(`{"date":"bad","price":2}`), &pp))
}

func TestPriceChange_NeutralJSON(t *testing.T) {
	data, err := json.Marshal(PriceChange{Name: "A"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"A","increased":null,"change_amount":null}`, string(data))
	assert.True(t, PriceChange{Name: "A"}.Neutral())
}

func TestSnapshotInfo(t *testing.T) {
	var nilSnap *Snapshot
	assert.True(t, nilSnap.Empty())
	assert.Equal(t, SnapshotInfo{}, nilSnap.Info())

	h := PriceHistory{}
	h.Add("A", Day(2026, 1, 1), 10)
	h.Add("A", Day(2026, 1, 2), 11)
	s := &Snapshot{UploadID: "u1", Rows: []HoldingRow{{Name: "A", Weight: 1, LatestPrice: 11}}, History: h}

	info := s.Info()
	assert.Equal(t, "u1", info.UploadID)
	assert.Equal(t, 1, info.Holdings)
	assert.Equal(t, 2, info.Dates)
	assert.Equal(t, "2026-01-01", info.FirstDate)
	assert.Equal(t, "2026-01-02", info.LastDate)
}

func TestParseEnums(t *testing.T) {
	k, err := ParseSortKey("latest_price")
	require.NoError(t, err)
	assert.Equal(t, SortByLatestPrice, k)
	_, err = ParseSortKey("price")
	assert.ErrorIs(t, err, ErrInvalidArgument)

	d, err := ParseDirection("desc")
	require.NoError(t, err)
	assert.Equal(t, Descending, d)
	_, err = ParseDirection("up")
	assert.ErrorIs(t, err, ErrInvalidArgument)

	r, err := ParseTimeRange("YTD")
	require.NoError(t, err)
	assert.Equal(t, RangeYTD, r)
	_, err = ParseTimeRange("2Y")
	assert.ErrorIs(t, err, ErrInvalidArgument)

	assert.Equal(t, SortConfig{Key: SortByWeight, Direction: Descending}, DefaultSortConfig())
}
