package holdings

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aristath/etfmonitor/internal/config"
	"github.com/aristath/etfmonitor/internal/domain"
	"github.com/aristath/etfmonitor/internal/events"
	"github.com/aristath/etfmonitor/internal/modules/composition"
	"github.com/aristath/etfmonitor/internal/modules/dateindex"
	"github.com/aristath/etfmonitor/internal/modules/ingest"
	"github.com/aristath/etfmonitor/internal/modules/performance"
	"github.com/aristath/etfmonitor/internal/modules/pricechange"
	"github.com/aristath/etfmonitor/internal/modules/ranking"
	"github.com/rs/zerolog"
)

// Service answers composition, performance, top-N and price-change queries
// against the current snapshot.
type Service struct {
	current   atomic.Pointer[domain.Snapshot]
	uploadMu  sync.Mutex // serializes replacements
	repo      *Repository
	processor *ingest.Processor
	events    *events.Manager
	log       zerolog.Logger
}

// NewService creates a new holdings service
func NewService(repo *Repository, processor *ingest.Processor, eventManager *events.Manager, log zerolog.Logger) *Service {
	return &Service{
		repo:      repo,
		processor: processor,
		events:    eventManager,
		log:       log.With().Str("service", "holdings").Logger(),
	}
}

// Init loads the stored snapshot, if any
func (s *Service) Init() error {
	snap, err := s.repo.Load()
	if err != nil {
		return fmt.Errorf("failed to load snapshot: %w", err)
	}
	if snap != nil {
		s.current.Store(snap)
		s.log.Info().Str("upload_id", snap.UploadID).Int("holdings", len(snap.Rows)).Msg("Snapshot restored")
	}
	return nil
}

// Snapshot returns the current snapshot, nil before the first upload
func (s *Service) Snapshot() *domain.Snapshot {
	return s.current.Load()
}

// Upload processes both files and replaces the snapshot. On failure the
// previous snapshot stays in place.
func (s *Service) Upload(weights, prices *ingest.Upload) (*domain.Snapshot, error) {
	s.uploadMu.Lock()
	defer s.uploadMu.Unlock()

	snap, err := s.processor.Process(weights, prices)
	if err != nil {
		s.uploadFailed(err)
		return nil, err
	}

	if err := s.repo.Replace(snap); err != nil {
		err = fmt.Errorf("failed to store snapshot: %w", err)
		s.uploadFailed(err)
		return nil, err
	}
	s.current.Store(snap)

	if s.events != nil {
		info := snap.Info()
		s.events.EmitTyped("holdings", &events.SnapshotReplacedData{
			UploadID:  info.UploadID,
			Holdings:  info.Holdings,
			Dates:     info.Dates,
			FirstDate: info.FirstDate,
			LastDate:  info.LastDate,
		})
	}
	return snap, nil
}

// Composition returns the holdings, ordered by cfg when given, otherwise in
// upload order.
func (s *Service) Composition(cfg *domain.SortConfig) []domain.HoldingRow {
	snap := s.current.Load()
	if snap.Empty() {
		return []domain.HoldingRow{}
	}
	if cfg == nil {
		out := make([]domain.HoldingRow, len(snap.Rows))
		copy(out, snap.Rows)
		return out
	}
	return composition.Sort(snap.Rows, *cfg)
}

// Performance returns the fund value series, windowed by r when given.
func (s *Service) Performance(r *domain.TimeRange) domain.PerformanceSeries {
	snap := s.current.Load()
	if snap.Empty() {
		return domain.PerformanceSeries{}
	}
	if r == nil {
		return append(domain.PerformanceSeries{}, snap.Performance...)
	}
	return performance.Filter(snap.Performance, *r)
}

// TopHoldings ranks holdings at date (latest when nil). n is clamped to
// [1, min(holdings, MaxTopN)].
func (s *Service) TopHoldings(n int, date *time.Time) ([]domain.RankedHolding, error) {
	snap := s.current.Load()
	if snap.Empty() {
		return []domain.RankedHolding{}, nil
	}

	resolved, ok := dateindex.Resolve(date, snap.History)
	if !ok {
		return []domain.RankedHolding{}, nil
	}

	n = ranking.ClampN(n, len(snap.Rows), config.MaxTopN)
	return ranking.SelectTopN(snap.Rows, snap.History, resolved, n)
}

// PriceChanges reports each holding's direction at date (latest when nil).
func (s *Service) PriceChanges(date *time.Time) []domain.PriceChange {
	snap := s.current.Load()
	if snap.Empty() {
		return []domain.PriceChange{}
	}

	resolved, ok := dateindex.Resolve(date, snap.History)
	if !ok {
		// nothing on or before the date: every holding is neutral
		return pricechange.ComputeChanges(snap.Rows, domain.PriceHistory{}, time.Time{})
	}
	return pricechange.ComputeChanges(snap.Rows, snap.History, resolved)
}

// PriceHistory returns a copy of the full price history
func (s *Service) PriceHistory() domain.PriceHistory {
	snap := s.current.Load()
	if snap.Empty() {
		return domain.PriceHistory{}
	}
	return snap.History.Clone()
}

func (s *Service) uploadFailed(err error) {
	kind := "internal"
	switch {
	case errors.Is(err, domain.ErrMissingInput):
		kind = "missing_input"
	case errors.Is(err, domain.ErrMalformedInput):
		kind = "malformed_input"
	}

	s.log.Warn().Err(err).Str("kind", kind).Msg("Upload rejected")
	if s.events != nil {
		s.events.EmitTyped("holdings", &events.UploadFailedData{Reason: err.Error(), Kind: kind})
	}
}
