package dashboard

import "sync"

// View names a derived view refreshed by the session
type View string

const (
	ViewComposition  View = "composition"
	ViewPerformance  View = "performance"
	ViewPriceHistory View = "price_history"
	ViewTopHoldings  View = "top_holdings"
	ViewPriceChanges View = "price_changes"

	// ViewStatus carries upload status changes; it has no fetch of its own
	ViewStatus View = "status"
)

// Views lists every view in refresh order
var Views = []View{ViewComposition, ViewPerformance, ViewPriceHistory, ViewTopHoldings, ViewPriceChanges}

// Sequencer issues a monotonic request number per view. A response may only
// be applied while its number is still the latest issued for the view.
type Sequencer struct {
	mu  sync.Mutex
	seq map[View]uint64
}

// NewSequencer creates a sequencer with every view at zero
func NewSequencer() *Sequencer {
	return &Sequencer{seq: make(map[View]uint64)}
}

// Next issues the next request number for v
func (s *Sequencer) Next(v View) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq[v]++
	return s.seq[v]
}

// IsLatest reports whether seq is the most recent number issued for v
func (s *Sequencer) IsLatest(v View, seq uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq[v] == seq
}

// Invalidate advances the given views (all when none are given) so every
// request already in flight for them is stale.
func (s *Sequencer) Invalidate(views ...View) {
	if len(views) == 0 {
		views = Views
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range views {
		s.seq[v]++
	}
}

// Current returns the latest number issued for v
func (s *Sequencer) Current(v View) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq[v]
}
