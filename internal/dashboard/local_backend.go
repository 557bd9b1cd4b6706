package dashboard

import (
	"context"
	"time"

	"github.com/aristath/etfmonitor/internal/domain"
	"github.com/aristath/etfmonitor/internal/modules/holdings"
	"github.com/aristath/etfmonitor/internal/modules/ingest"
)

// LocalBackend serves a session straight from the in-process holdings service
type LocalBackend struct {
	service *holdings.Service
}

// NewLocalBackend creates a backend over service
func NewLocalBackend(service *holdings.Service) *LocalBackend {
	return &LocalBackend{service: service}
}

func (b *LocalBackend) Upload(ctx context.Context, weights, prices *ingest.Upload) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := b.service.Upload(weights, prices)
	return err
}

func (b *LocalBackend) Composition(ctx context.Context) ([]domain.HoldingRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return b.service.Composition(nil), nil
}

func (b *LocalBackend) Performance(ctx context.Context) (domain.PerformanceSeries, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return b.service.Performance(nil), nil
}

func (b *LocalBackend) PriceHistory(ctx context.Context) (domain.PriceHistory, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return b.service.PriceHistory(), nil
}

func (b *LocalBackend) TopHoldings(ctx context.Context, n int, date *time.Time) ([]domain.RankedHolding, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return b.service.TopHoldings(n, date)
}

func (b *LocalBackend) PriceChanges(ctx context.Context, date *time.Time) ([]domain.PriceChange, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return b.service.PriceChanges(date), nil
}
