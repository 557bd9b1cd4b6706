// Package dashboard holds the presentation-side controllers: the table sort,
// the chart controls, the hover-selected date and the fetches that keep the
// derived views in step with them.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/aristath/etfmonitor/internal/domain"
	"github.com/aristath/etfmonitor/internal/modules/composition"
	"github.com/aristath/etfmonitor/internal/modules/dateindex"
	"github.com/aristath/etfmonitor/internal/modules/hover"
	"github.com/aristath/etfmonitor/internal/modules/ingest"
	"github.com/aristath/etfmonitor/internal/modules/pricechange"
	"github.com/rs/zerolog"
)

// Status messages shown next to the upload button
const (
	StatusProcessing = "Processing..."
	StatusComplete   = "Update Complete!"
	StatusFailed     = "Error processing files."
)

// Backend serves the raw data the session derives its views from
type Backend interface {
	Upload(ctx context.Context, weights, prices *ingest.Upload) error
	Composition(ctx context.Context) ([]domain.HoldingRow, error)
	Performance(ctx context.Context) (domain.PerformanceSeries, error)
	PriceHistory(ctx context.Context) (domain.PriceHistory, error)
	TopHoldings(ctx context.Context, n int, date *time.Time) ([]domain.RankedHolding, error)
	PriceChanges(ctx context.Context, date *time.Time) ([]domain.PriceChange, error)
}

// Options configures a session
type Options struct {
	TopN      int
	Logger    zerolog.Logger
	OnDiscard func(view View, seq uint64) // called for every stale response
}

// State is what the dashboard renders
type State struct {
	Status       string                   `json:"status"`
	Error        string                   `json:"error,omitempty"`
	Sort         domain.SortConfig        `json:"sort"`
	Rows         []domain.HoldingRow      `json:"rows"`
	MaxWeight    float64                  `json:"max_weight"`
	Range        domain.TimeRange         `json:"range"`
	Performance  domain.PerformanceSeries `json:"performance"`
	TopN         int                      `json:"top_n"`
	TopHoldings  []domain.RankedHolding   `json:"top_holdings"`
	PriceChanges []domain.PriceChange     `json:"price_changes"`
	Hover        string                   `json:"hover"`
	SelectedDate string                   `json:"selected_date,omitempty"`
	ResolvedDate string                   `json:"resolved_date,omitempty"`
	Dates        []string                 `json:"dates"`
}

// Session is one user's dashboard. Handlers are the only writers of its
// controllers; fetch results are applied only when still current.
type Session struct {
	backend Backend
	opts    Options
	log     zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	hover       *hover.Controller
	unsubscribe func()
	seq         *Sequencer

	mu           sync.Mutex
	table        *TableController
	chart        *ChartControls
	rows         []domain.HoldingRow // upload order
	series       domain.PerformanceSeries
	history      domain.PriceHistory
	topHoldings  []domain.RankedHolding
	priceChanges []domain.PriceChange
	status       string
	fetchErrs    map[View]error // last failure per view, cleared when the view applies

	observers map[int]func(View, State)
	nextID    int
}

// NewSession creates a session bound to ctx. Nothing is fetched until
// Refresh or UploadAndProcess is called.
func NewSession(ctx context.Context, backend Backend, opts Options) *Session {
	ctx, cancel := context.WithCancel(ctx)
	s := &Session{
		backend:      backend,
		opts:         opts,
		log:          opts.Logger.With().Str("component", "dashboard").Logger(),
		ctx:          ctx,
		cancel:       cancel,
		hover:        hover.NewController(),
		seq:          NewSequencer(),
		table:        NewTableController(),
		chart:        NewChartControls(opts.TopN),
		rows:         []domain.HoldingRow{},
		history:      domain.PriceHistory{},
		topHoldings:  []domain.RankedHolding{},
		priceChanges: []domain.PriceChange{},
		fetchErrs:    make(map[View]error),
		observers:    make(map[int]func(View, State)),
	}
	s.unsubscribe = s.hover.Subscribe(s.onHover)
	return s
}

// Subscribe registers fn for every applied view update and returns a function
// that removes it. fn runs on the goroutine that applied the update.
func (s *Session) Subscribe(fn func(View, State)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	s.observers[id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.observers, id)
	}
}

// State returns the current rendered state
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

// Refresh re-fetches every view
func (s *Session) Refresh() {
	s.mu.Lock()
	clear(s.fetchErrs)
	s.refreshLocked()
	s.mu.Unlock()
}

// UploadAndProcess sends both files, then refreshes every view. Views already
// in flight are invalidated first. On failure the previous state is kept.
func (s *Session) UploadAndProcess(ctx context.Context, weights, prices *ingest.Upload) error {
	if weights == nil || prices == nil || weights.Body == nil || prices.Body == nil {
		return fmt.Errorf("%w: select both files", domain.ErrMissingInput)
	}

	s.mu.Lock()
	s.seq.Invalidate()
	s.status = StatusProcessing
	clear(s.fetchErrs)
	s.mu.Unlock()

	if err := s.backend.Upload(ctx, weights, prices); err != nil {
		s.finish(err)
		return fmt.Errorf("upload failed: %w", err)
	}

	s.Refresh()
	s.Wait()

	s.mu.Lock()
	err := s.fetchErrLocked()
	s.mu.Unlock()
	s.finish(err)
	if err != nil {
		return fmt.Errorf("refresh after upload failed: %w", err)
	}
	return nil
}

// Sort handles a table header click. Hover does not affect the table.
func (s *Session) Sort(key domain.SortKey) domain.SortConfig {
	s.mu.Lock()
	cfg := s.table.Toggle(key)
	s.mu.Unlock()

	s.notify(ViewComposition)
	return cfg
}

// SetTopN selects how many holdings the ranked chart shows
func (s *Session) SetTopN(n int) error {
	s.mu.Lock()
	if err := s.chart.SetTopN(n, len(s.rows)); err != nil {
		s.mu.Unlock()
		return err
	}
	s.fetchTopLocked(s.hover.Selected())
	s.mu.Unlock()
	return nil
}

// SetRange selects the performance window. Hover does not affect it.
func (s *Session) SetRange(r domain.TimeRange) {
	s.mu.Lock()
	s.chart.SetRange(r)
	s.mu.Unlock()

	s.notify(ViewPerformance)
}

// PointerMove handles a chart pointer move over a date label
func (s *Session) PointerMove(label string) error {
	return s.hover.PointerMove(label)
}

// Select handles the date slider
func (s *Session) Select(label string) error {
	return s.hover.Select(label)
}

// PointerLeave handles the pointer leaving the chart
func (s *Session) PointerLeave() {
	s.hover.PointerLeave()
}

// Wait blocks until every fetch in flight has settled
func (s *Session) Wait() {
	s.wg.Wait()
}

// Close stops the session and waits for its fetches
func (s *Session) Close() {
	s.unsubscribe()
	s.cancel()
	s.wg.Wait()
}

func (s *Session) onHover(tr hover.Transition) {
	s.log.Debug().Str("state", tr.State().String()).Msg("Hover transition")

	s.mu.Lock()
	s.fetchDatedLocked(tr.To)
	s.mu.Unlock()
}

func (s *Session) finish(err error) {
	s.mu.Lock()
	if err != nil {
		s.status = StatusFailed
		s.log.Warn().Err(err).Msg("Upload and process failed")
	} else {
		s.status = StatusComplete
	}
	s.mu.Unlock()

	s.notify(ViewStatus)
}

// refreshLocked issues composition, performance and history fetches. The
// dated views follow once the history has arrived, since the selected date
// is resolved against it.
func (s *Session) refreshLocked() {
	startFetch(s, ViewComposition, s.backend.Composition, func(rows []domain.HoldingRow) {
		s.rows = rows
		s.chart.Fit(len(rows))
	})
	startFetch(s, ViewPerformance, s.backend.Performance, func(series domain.PerformanceSeries) {
		s.series = series
	})
	startFetch(s, ViewPriceHistory, s.backend.PriceHistory, func(h domain.PriceHistory) {
		s.history = h
		s.fetchDatedLocked(s.hover.Selected())
	})
}

func (s *Session) fetchDatedLocked(selected *time.Time) {
	s.fetchTopLocked(selected)
	s.fetchChangesLocked(selected)
}

// resolveLocked maps the selected date onto the loaded history. The returned
// pointer is nil when nothing is selected; ok is false when the selection
// predates every price.
func (s *Session) resolveLocked(selected *time.Time) (*time.Time, bool) {
	if selected == nil {
		return nil, true
	}
	if len(s.history) == 0 {
		// history not loaded yet; let the backend resolve
		return selected, true
	}
	d, ok := dateindex.Resolve(selected, s.history)
	if !ok {
		return nil, false
	}
	return &d, true
}

func (s *Session) fetchTopLocked(selected *time.Time) {
	date, ok := s.resolveLocked(selected)
	if !ok {
		s.seq.Invalidate(ViewTopHoldings)
		delete(s.fetchErrs, ViewTopHoldings)
		s.topHoldings = []domain.RankedHolding{}
		s.notifyAsync(ViewTopHoldings)
		return
	}
	n := s.chart.TopN()
	startFetch(s, ViewTopHoldings, func(ctx context.Context) ([]domain.RankedHolding, error) {
		return s.backend.TopHoldings(ctx, n, date)
	}, func(top []domain.RankedHolding) {
		s.topHoldings = top
	})
}

func (s *Session) fetchChangesLocked(selected *time.Time) {
	date, ok := s.resolveLocked(selected)
	if !ok {
		s.seq.Invalidate(ViewPriceChanges)
		delete(s.fetchErrs, ViewPriceChanges)
		s.priceChanges = pricechange.ComputeChanges(s.rows, domain.PriceHistory{}, time.Time{})
		s.notifyAsync(ViewPriceChanges)
		return
	}
	startFetch(s, ViewPriceChanges, func(ctx context.Context) ([]domain.PriceChange, error) {
		return s.backend.PriceChanges(ctx, date)
	}, func(changes []domain.PriceChange) {
		s.priceChanges = changes
	})
}

// startFetch runs call in its own goroutine and applies the result under the
// session lock if no newer request for view was issued meanwhile. The caller
// holds s.mu.
func startFetch[T any](s *Session, view View, call func(context.Context) (T, error), apply func(T)) {
	seq := s.seq.Next(view)
	s.wg.Add(1)

	go func() {
		defer s.wg.Done()
		v, err := call(s.ctx)

		s.mu.Lock()
		if !s.seq.IsLatest(view, seq) {
			s.mu.Unlock()
			s.log.Debug().Str("view", string(view)).Uint64("seq", seq).Msg("Discarded stale response")
			if s.opts.OnDiscard != nil {
				s.opts.OnDiscard(view, seq)
			}
			return
		}
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				s.log.Warn().Err(err).Str("view", string(view)).Msg("Fetch failed, keeping last good data")
			}
			s.fetchErrs[view] = err
			s.mu.Unlock()
			s.notify(view)
			return
		}
		delete(s.fetchErrs, view)
		apply(v)
		s.mu.Unlock()

		s.notify(view)
	}()
}

// notifyAsync is notify for callers holding s.mu. Delivery is tracked by
// the wait group so Wait covers it.
func (s *Session) notifyAsync(view View) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.notify(view)
	}()
}

func (s *Session) notify(view View) {
	s.mu.Lock()
	st := s.stateLocked()
	ids := make([]int, 0, len(s.observers))
	for id := range s.observers {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(View, State), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, s.observers[id])
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(view, st)
	}
}

// fetchErrLocked returns the failure of the first view, in Views order, whose
// latest fetch failed.
func (s *Session) fetchErrLocked() error {
	for _, v := range Views {
		if err := s.fetchErrs[v]; err != nil {
			return err
		}
	}
	return nil
}

func (s *Session) stateLocked() State {
	st := State{
		Status:       s.status,
		Sort:         s.table.Config(),
		Rows:         s.table.Apply(s.rows),
		MaxWeight:    composition.MaxWeight(s.rows),
		Range:        s.chart.Range(),
		Performance:  s.chart.Window(s.series),
		TopN:         s.chart.TopN(),
		TopHoldings:  s.topHoldings,
		PriceChanges: s.priceChanges,
		Hover:        s.hover.State().String(),
		Dates:        []string{},
	}
	if err := s.fetchErrLocked(); err != nil {
		st.Error = err.Error()
	}

	selected := s.hover.Selected()
	if selected != nil {
		st.SelectedDate = domain.FormatDate(*selected)
	}
	if d, ok := dateindex.Resolve(selected, s.history); ok {
		st.ResolvedDate = domain.FormatDate(d)
	}
	for _, d := range s.history.Dates() {
		st.Dates = append(st.Dates, domain.FormatDate(d))
	}
	return st
}
