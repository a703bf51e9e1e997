package worker

import (
	"context"
	"log/slog"
	"time"
)

// QuoteRefresher refreshes held symbols and archives their quotes.
type QuoteRefresher interface {
	FetchAndStoreQuotes(ctx context.Context) error
}

// QuoteWorker keeps the prices of held symbols warm.
type QuoteWorker struct {
	refresher QuoteRefresher
	interval  time.Duration
}

// NewQuoteWorker creates a new QuoteWorker.
func NewQuoteWorker(refresher QuoteRefresher, interval time.Duration) *QuoteWorker {
	return &QuoteWorker{
		refresher: refresher,
		interval:  interval,
	}
}

// Run refreshes once immediately and then on every tick. It blocks until
// the context is cancelled. A non-positive interval disables the worker.
func (w *QuoteWorker) Run(ctx context.Context) {
	if w.interval <= 0 {
		slog.Info("QuoteWorker: disabled")
		return
	}
	slog.Info("QuoteWorker: starting", "interval", w.interval)

	w.tick(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("QuoteWorker: shutting down")
			return
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *QuoteWorker) tick(ctx context.Context) {
	start := time.Now()
	if err := w.refresher.FetchAndStoreQuotes(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		slog.Error("QuoteWorker: refresh failed", "error", err)
		return
	}
	slog.Info("QuoteWorker: refresh completed", "duration", time.Since(start))
}
