package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"stockwatch/config"
	"stockwatch/internal/tracker/scheduler"
	"stockwatch/internal/tracker/store"
	"stockwatch/internal/tracker/web"
	"stockwatch/logger"
	"stockwatch/pkg/yahoo"

	"go.uber.org/zap"
)

func main() {
	// viper config
	cfg := config.Load()

	// zap logger
	log, err := logger.New(cfg.Log)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Snapshot store: one empty state per tracked symbol, populated
	// before any scheduler starts.
	st := store.New(cfg.Tracker.Symbols, cfg.Tracker.MaxRecentSamples, log)

	apiKey := cfg.Upstream.ResolveAPIKey(cfg.Log.Environment)
	client := yahoo.NewClient(cfg.Upstream.BaseURL, cfg.Upstream.Timeout, apiKey)

	sched := scheduler.New(client, st, scheduler.Config{
		Symbols:          cfg.Tracker.Symbols,
		QuoteInterval:    cfg.Tracker.QuoteInterval,
		HistoryInterval:  cfg.Tracker.HistoryInterval,
		BootstrapDelay:   cfg.Tracker.BootstrapDelay,
		FetchTimeout:     cfg.Upstream.Timeout,
		FetchConcurrency: cfg.Tracker.FetchConcurrency,
	}, log)
	sched.Start(ctx)
	log.Info("tracker started",
		zap.Int("symbols", len(cfg.Tracker.Symbols)),
		zap.Duration("quote_interval", cfg.Tracker.QuoteInterval),
		zap.Duration("history_interval", cfg.Tracker.HistoryInterval))

	srv := web.NewServer(cfg.Server.Addr, st, cfg.Server.PushInterval, log)
	if err := srv.Start(ctx); err != nil {
		log.Error("web server failed", zap.Error(err))
	}

	sched.Wait()
	log.Info("shutdown complete")
}
