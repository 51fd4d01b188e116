package scheduler

import (
	"context"
	"sync"
	"time"

	"stockwatch/internal/tracker/store"

	"go.uber.org/zap"
)

// Fetcher is the upstream contract the schedulers depend on. Both calls
// are one network round trip for one symbol; a failure means the symbol
// is skipped for that pass.
type Fetcher interface {
	FetchQuote(ctx context.Context, symbol string) (store.Quote, error)
	FetchHistory(ctx context.Context, symbol string) ([]store.PricePoint, error)
}

// Config holds the cadence parameters. All fields are fixed at startup.
type Config struct {
	Symbols          []string
	QuoteInterval    time.Duration // fast cadence, one quote per symbol
	HistoryInterval  time.Duration // slow cadence, one history series per symbol
	BootstrapDelay   time.Duration // pause between the initial quote and history passes
	FetchTimeout     time.Duration // per-call upstream timeout
	FetchConcurrency int           // max in-flight fetches within a pass
}

// Scheduler runs the three update loops: a one-shot bootstrap, a fast
// quote loop and a slow history loop. The loops share nothing but the
// store and exit promptly when the context is cancelled.
type Scheduler struct {
	fetcher Fetcher
	store   *store.SnapshotStore
	cfg     Config
	logger  *zap.Logger

	wg sync.WaitGroup
}

func New(fetcher Fetcher, st *store.SnapshotStore, cfg Config, logger *zap.Logger) *Scheduler {
	if cfg.FetchConcurrency <= 0 {
		cfg.FetchConcurrency = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		fetcher: fetcher,
		store:   st,
		cfg:     cfg,
		logger:  logger,
	}
}

// Start launches the bootstrap, quote and history loops. It returns
// immediately; use Wait to block until all loops have exited after
// cancellation.
func (s *Scheduler) Start(ctx context.Context) {
	s.wg.Add(3)
	go func() {
		defer s.wg.Done()
		s.bootstrap(ctx)
	}()
	go func() {
		defer s.wg.Done()
		s.quoteLoop(ctx)
	}()
	go func() {
		defer s.wg.Done()
		s.historyLoop(ctx)
	}()
}

// Wait blocks until every loop started by Start has returned.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

// bootstrap fills the store right after startup: one quote pass, a
// short delay to avoid bursting the upstream, then one history pass.
func (s *Scheduler) bootstrap(ctx context.Context) {
	s.quotePass(ctx)
	s.store.SetLastUpdate(time.Now().UTC())

	if !sleep(ctx, s.cfg.BootstrapDelay) {
		return
	}
	s.historyPass(ctx)
	s.logger.Info("bootstrap complete", zap.Int("symbols", len(s.cfg.Symbols)))
}

func (s *Scheduler) quoteLoop(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.QuoteInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		s.quotePass(ctx)
		s.store.SetLastUpdate(time.Now().UTC())
	}
}

func (s *Scheduler) historyLoop(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.HistoryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		s.historyPass(ctx)
	}
}

// quotePass fetches a quote for every tracked symbol with bounded
// concurrency and applies each successful result. One symbol's failure
// has no effect on any other symbol's update.
func (s *Scheduler) quotePass(ctx context.Context) {
	sem := make(chan struct{}, s.cfg.FetchConcurrency)
	var wg sync.WaitGroup

	for _, symbol := range s.cfg.Symbols {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		sem <- struct{}{}

		go func(symbol string) {
			defer wg.Done()
			defer func() { <-sem }()

			fctx, cancel := context.WithTimeout(ctx, s.cfg.FetchTimeout)
			defer cancel()

			q, err := s.fetcher.FetchQuote(fctx, symbol)
			if err != nil {
				s.logger.Warn("quote fetch failed", zap.String("symbol", symbol), zap.Error(err))
				return
			}
			s.store.ApplyQuote(symbol, q, time.Now().UTC())
		}(symbol)
	}
	wg.Wait()
}

// historyPass is the slow-cadence twin of quotePass.
func (s *Scheduler) historyPass(ctx context.Context) {
	sem := make(chan struct{}, s.cfg.FetchConcurrency)
	var wg sync.WaitGroup

	for _, symbol := range s.cfg.Symbols {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		sem <- struct{}{}

		go func(symbol string) {
			defer wg.Done()
			defer func() { <-sem }()

			fctx, cancel := context.WithTimeout(ctx, s.cfg.FetchTimeout)
			defer cancel()

			series, err := s.fetcher.FetchHistory(fctx, symbol)
			if err != nil {
				s.logger.Warn("history fetch failed", zap.String("symbol", symbol), zap.Error(err))
				return
			}
			s.store.ApplyHistory(symbol, series)
		}(symbol)
	}
	wg.Wait()
}

// sleep waits for d or until ctx is cancelled; it reports whether the
// full duration elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
