package rates

import (
	"context"
	"fmt"
	"maps"
	"time"

	"github.com/shopspring/decimal"

	"fxledger/internal/core"
	"fxledger/internal/log"
)

// FreshnessWindow is how long a fetched snapshot is served without refetching.
const FreshnessWindow = time.Hour

// SnapshotStore is the durable collaborator behind RateCache.
type SnapshotStore interface {
	LoadSnapshot(ctx context.Context, base string) (core.RateSnapshot, bool, error)
	SaveSnapshot(ctx context.Context, snapshot core.RateSnapshot) error
}

// RateCache keeps the last fetched snapshot per base currency.
type RateCache struct {
	store  SnapshotStore
	logger *log.Logger
}

func NewRateCache(store SnapshotStore, logger *log.Logger) *RateCache {
	if logger == nil {
		logger = log.Discard()
	}
	return &RateCache{store: store, logger: logger.WithComponent(log.ComponentCache)}
}

// Get returns the cached snapshot for base, or nil when none exists.
// Freshness is not checked here.
func (c *RateCache) Get(ctx context.Context, base string) (*core.RateSnapshot, error) {
	snap, ok, err := c.store.LoadSnapshot(ctx, base)
	if err != nil {
		return nil, fmt.Errorf("read cached rates for %s: %w", base, err)
	}
	if !ok {
		return nil, nil
	}
	return &snap, nil
}

// Put overwrites the snapshot for base. A store failure is logged and swallowed:
// the fetched rates are still returned to the caller.
func (c *RateCache) Put(ctx context.Context, base string, rates map[string]decimal.Decimal, lastUpdated time.Time) {
	snap := core.RateSnapshot{
		BaseCurrency: base,
		Rates:        maps.Clone(rates),
		LastUpdated:  lastUpdated,
	}
	if err := c.store.SaveSnapshot(ctx, snap); err != nil {
		fields := log.NewFields().
			WithOperation(log.OpWrite).
			WithErrorType(log.ErrorTypeDatabase).
			WithError(err)
		fields[log.FieldBaseCurrency] = base
		c.logger.WarnContext(ctx, "Failed to persist rate snapshot", fields.ToSlice()...)
		return
	}
	c.logger.DebugContext(ctx, "Rate snapshot cached",
		log.FieldBaseCurrency, base,
		log.FieldCurrencies, len(rates))
}

// IsFresh reports whether the snapshot is younger than FreshnessWindow at now.
// A snapshot exactly FreshnessWindow old is stale.
func IsFresh(snapshot core.RateSnapshot, now time.Time) bool {
	return now.Sub(snapshot.LastUpdated) < FreshnessWindow
}
