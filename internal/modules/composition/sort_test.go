package composition

import (
	"testing"

	"github.com/aristath/etfmonitor/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func names(rows []domain.HoldingRow) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.Name
	}
	return out
}

func TestSort_ToggleScenario(t *testing.T) {
	rows := []domain.HoldingRow{
		{Name: "B", Weight: 0.3, LatestPrice: 10},
		{Name: "C", Weight: 0.2, LatestPrice: 5},
		{Name: "A", Weight: 0.5, LatestPrice: 20},
	}

	cfg := domain.SortConfig{Key: domain.SortByName, Direction: domain.Ascending}
	assert.Equal(t, []string{"A", "B", "C"}, names(Sort(rows, cfg)))

	cfg = Toggle(cfg, domain.SortByWeight)
	assert.Equal(t, domain.SortConfig{Key: domain.SortByWeight, Direction: domain.Ascending}, cfg)
	assert.Equal(t, []string{"C", "B", "A"}, names(Sort(rows, cfg)))

	cfg = Toggle(cfg, domain.SortByWeight)
	assert.Equal(t, domain.Descending, cfg.Direction)
	assert.Equal(t, []string{"A", "B", "C"}, names(Sort(rows, cfg)))

	// input untouched
	assert.Equal(t, []string{"B", "C", "A"}, names(rows))
}

func TestSort_LatestPrice(t *testing.T) {
	rows := []domain.HoldingRow{
		{Name: "B", Weight: 0.3, LatestPrice: 10},
		{Name: "C", Weight: 0.2, LatestPrice: 5},
		{Name: "A", Weight: 0.5, LatestPrice: 20},
	}
	got := Sort(rows, domain.SortConfig{Key: domain.SortByLatestPrice, Direction: domain.Descending})
	assert.Equal(t, []string{"A", "B", "C"}, names(got))
}

func TestSort_StableWithDuplicates(t *testing.T) {
	rows := []domain.HoldingRow{
		{Name: "X1", Weight: 0.2},
		{Name: "Y", Weight: 0.1},
		{Name: "X2", Weight: 0.2},
		{Name: "X3", Weight: 0.2},
	}

	asc := Sort(rows, domain.SortConfig{Key: domain.SortByWeight, Direction: domain.Ascending})
	assert.Equal(t, []string{"Y", "X1", "X2", "X3"}, names(asc))

	desc := Sort(rows, domain.SortConfig{Key: domain.SortByWeight, Direction: domain.Descending})
	require.Len(t, desc, len(asc))
	for i := range asc {
		assert.Equal(t, asc[i], desc[len(desc)-1-i], "desc must be the exact reverse of asc")
	}
}

func TestSort_DescendingTiesMirrorAscending(t *testing.T) {
	rows := []domain.HoldingRow{
		{Name: "X1", Weight: 0.2},
		{Name: "Y", Weight: 0.1},
		{Name: "X2", Weight: 0.2},
	}
	desc := Sort(rows, domain.SortConfig{Key: domain.SortByWeight, Direction: domain.Descending})
	assert.Equal(t, []string{"X2", "X1", "Y"}, names(desc))
}

func TestSort_Empty(t *testing.T) {
	got := Sort(nil, domain.DefaultSortConfig())
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestSort_LexicographicNames(t *testing.T) {
	rows := []domain.HoldingRow{{Name: "b"}, {Name: "B"}, {Name: "a"}, {Name: "AA"}}
	got := Sort(rows, domain.SortConfig{Key: domain.SortByName, Direction: domain.Ascending})
	assert.Equal(t, []string{"AA", "B", "a", "b"}, names(got))
}

func TestToggle(t *testing.T) {
	tests := []struct {
		name string
		cfg  domain.SortConfig
		key  domain.SortKey
		want domain.SortConfig
	}{
		{"same key asc flips", domain.SortConfig{Key: domain.SortByName, Direction: domain.Ascending}, domain.SortByName, domain.SortConfig{Key: domain.SortByName, Direction: domain.Descending}},
		{"same key desc flips", domain.SortConfig{Key: domain.SortByName, Direction: domain.Descending}, domain.SortByName, domain.SortConfig{Key: domain.SortByName, Direction: domain.Ascending}},
		{"new key resets asc", domain.DefaultSortConfig(), domain.SortByLatestPrice, domain.SortConfig{Key: domain.SortByLatestPrice, Direction: domain.Ascending}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Toggle(tt.cfg, tt.key))
		})
	}
}

func TestMaxWeight(t *testing.T) {
	assert.Equal(t, 0.0, MaxWeight(nil))
	assert.Equal(t, 0.5, MaxWeight([]domain.HoldingRow{{Weight: 0.2}, {Weight: 0.5}, {Weight: 0.3}}))
}

func TestSort_WeightDescThenToggle(t *testing.T) {
	rows := []domain.HoldingRow{{Name: "A", Weight: 0.1}, {Name: "B", Weight: 0.5}, {Name: "C", Weight: 0.3}}

	cfg := domain.SortConfig{Key: domain.SortByWeight, Direction: domain.Descending}
	assert.Equal(t, []string{"B", "C", "A"}, names(Sort(rows, cfg)))

	cfg = Toggle(cfg, domain.SortByWeight)
	assert.Equal(t, []string{"A", "C", "B"}, names(Sort(rows, cfg)))
}
