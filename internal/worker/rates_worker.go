package worker

import (
	"context"
	"time"

	"fxledger/internal/log"
)

// Refresher refreshes a set of base currencies.
type Refresher interface {
	RefreshAll(ctx context.Context, bases []string) (int, error)
}

// RatesWorker keeps the rate cache warm by refreshing every configured base on an interval
type RatesWorker struct {
	refresher Refresher
	bases     []string
	interval  time.Duration
	logger    *log.Logger
}

func NewRatesWorker(refresher Refresher, bases []string, interval time.Duration, logger *log.Logger) *RatesWorker {
	if logger == nil {
		logger = log.Discard()
	}
	return &RatesWorker{
		refresher: refresher,
		bases:     append([]string(nil), bases...),
		interval:  interval,
		logger:    logger.WithComponent(log.ComponentWorker),
	}
}

// RefreshNow runs one refresh pass and reports how many bases were refreshed.
func (w *RatesWorker) RefreshNow(ctx context.Context) int {
	start := time.Now()
	count, err := w.refresher.RefreshAll(ctx, w.bases)
	if err != nil {
		w.logger.ErrorContext(ctx, "Rate refresh pass had failures",
			log.FieldError, err.Error(),
			"refreshed", count,
			"total", len(w.bases))
	}
	w.logger.InfoContext(ctx, "Rate refresh pass complete",
		"refreshed", count,
		log.FieldDuration, time.Since(start).Milliseconds())
	return count
}

// Run refreshes immediately and then on every tick until ctx is cancelled.
func (w *RatesWorker) Run(ctx context.Context) error {
	w.logger.InfoContext(ctx, "Running initial rate refresh...",
		"bases", w.bases,
		"interval", w.interval)
	w.RefreshNow(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			w.RefreshNow(ctx)
			w.logger.DebugContext(ctx, "Next rate refresh scheduled",
				"next_check", now.Add(w.interval).Format("15:04:05"))
		}
	}
}
