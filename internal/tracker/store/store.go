package store

import (
	"math"
	"sync"
	"time"

	"go.uber.org/zap"
)

// SnapshotStore keeps one SymbolState per tracked symbol behind a single
// lock. All mutation goes through ApplyQuote/ApplyHistory so that a
// reader never observes a sequence paired with stale derived fields.
//
// The symbol universe is fixed at construction; applies for unknown
// symbols are logged and ignored.
type SnapshotStore struct {
	mu        sync.RWMutex
	states    map[string]*SymbolState
	maxRecent int
	logger    *zap.Logger

	// Time of the last completed quote pass. Written only by the quote
	// scheduler, read by consumers.
	luMu       sync.Mutex
	lastUpdate time.Time
}

// New creates a store pre-populated with an empty state per symbol.
// Must complete before any scheduler starts.
func New(symbols []string, maxRecent int, logger *zap.Logger) *SnapshotStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	states := make(map[string]*SymbolState, len(symbols))
	for _, sym := range symbols {
		states[sym] = &SymbolState{
			Symbol:     sym,
			RecentMin:  math.Inf(1),
			RecentMax:  math.Inf(-1),
			HistoryMin: math.Inf(1),
			HistoryMax: math.Inf(-1),
		}
	}
	return &SnapshotStore{
		states:    states,
		maxRecent: maxRecent,
		logger:    logger,
	}
}

// ApplyQuote appends one price sample, evicts the oldest when the bound
// is exceeded, updates the current quote fields and recomputes the
// recent extrema and the 24h change. Atomic per symbol.
func (s *SnapshotStore) ApplyQuote(symbol string, q Quote, observedAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.states[symbol]
	if !ok {
		s.logger.Warn("quote for untracked symbol", zap.String("symbol", symbol))
		return
	}

	st.RecentPrices = append(st.RecentPrices, q.Price)
	st.RecentTimestamps = append(st.RecentTimestamps, observedAt)
	if n := len(st.RecentPrices); n > s.maxRecent {
		// Strict FIFO eviction; shift in place so the backing arrays
		// stay bounded.
		copy(st.RecentPrices, st.RecentPrices[1:])
		st.RecentPrices = st.RecentPrices[:n-1]
		copy(st.RecentTimestamps, st.RecentTimestamps[1:])
		st.RecentTimestamps = st.RecentTimestamps[:n-1]
	}

	st.CurrentPrice = q.Price
	st.ChangePercent = q.ChangePercent
	st.RecentMin, st.RecentMax = extrema(st.RecentPrices)
	recompute24h(st)
}

// ApplyHistory replaces the history window wholesale and recomputes its
// extrema and the 24h change against the current price. Atomic per
// symbol.
func (s *SnapshotStore) ApplyHistory(symbol string, series []PricePoint) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.states[symbol]
	if !ok {
		s.logger.Warn("history for untracked symbol", zap.String("symbol", symbol))
		return
	}

	st.HistoryWindow = append([]PricePoint(nil), series...)

	st.HistoryMin = math.Inf(1)
	st.HistoryMax = math.Inf(-1)
	for _, p := range st.HistoryWindow {
		if p.Price < st.HistoryMin {
			st.HistoryMin = p.Price
		}
		if p.Price > st.HistoryMax {
			st.HistoryMax = p.Price
		}
	}
	recompute24h(st)
}

// Snapshot returns a deep copy of every symbol's state. The result is
// isolated from further writes and safe to hold indefinitely.
func (s *SnapshotStore) Snapshot() map[string]SymbolState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]SymbolState, len(s.states))
	for sym, st := range s.states {
		cp := *st
		cp.RecentPrices = append([]float64(nil), st.RecentPrices...)
		cp.RecentTimestamps = append([]time.Time(nil), st.RecentTimestamps...)
		cp.HistoryWindow = append([]PricePoint(nil), st.HistoryWindow...)
		out[sym] = cp
	}
	return out
}

// SetLastUpdate records the completion time of a quote pass.
func (s *SnapshotStore) SetLastUpdate(t time.Time) {
	s.luMu.Lock()
	s.lastUpdate = t
	s.luMu.Unlock()
}

// LastUpdate returns the completion time of the most recent quote pass,
// zero before the first pass finishes.
func (s *SnapshotStore) LastUpdate() time.Time {
	s.luMu.Lock()
	defer s.luMu.Unlock()
	return s.lastUpdate
}

// recompute24h updates ChangePercent24h against the first sample of the
// history window. The value is left untouched when the comparison is
// not computable (empty window, non-positive reference price, or no
// quote yet) so a consumer keeps the last good figure.
func recompute24h(st *SymbolState) {
	if len(st.HistoryWindow) == 0 || st.CurrentPrice <= 0 {
		return
	}
	ref := st.HistoryWindow[0].Price
	if ref <= 0 {
		return
	}
	st.ChangePercent24h = (st.CurrentPrice - ref) / ref * 100
}

// extrema folds the whole slice; the recent window is bounded to a
// small fixed size.
func extrema(prices []float64) (min, max float64) {
	min, max = math.Inf(1), math.Inf(-1)
	for _, p := range prices {
		if p < min {
			min = p
		}
		if p > max {
			max = p
		}
	}
	return min, max
}
