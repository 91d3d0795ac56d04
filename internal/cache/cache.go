// Package cache holds in-process stores for rate snapshots.
package cache

import (
	"context"
	"maps"
	"sync"
	"time"

	"fxledger/internal/core"
	"fxledger/internal/log"
)

// Cache defines a generic cache interface
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, data T)
	Delete(key string)
	Size() int
}

var _ Cache[core.RateSnapshot] = (*LRUCache[core.RateSnapshot])(nil)

// Store is the durable side of a snapshot store.
type Store interface {
	LoadSnapshot(ctx context.Context, base string) (core.RateSnapshot, bool, error)
	SaveSnapshot(ctx context.Context, snapshot core.RateSnapshot) error
}

// MemoryStore keeps one snapshot per base currency in memory.
// Entries are only replaced, never evicted.
type MemoryStore struct {
	mu        sync.RWMutex
	snapshots map[string]core.RateSnapshot
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{snapshots: make(map[string]core.RateSnapshot)}
}

func (s *MemoryStore) LoadSnapshot(_ context.Context, base string) (core.RateSnapshot, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.snapshots[base]
	if !ok {
		return core.RateSnapshot{}, false, nil
	}
	return clone(snap), true, nil
}

func (s *MemoryStore) SaveSnapshot(_ context.Context, snapshot core.RateSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots[snapshot.BaseCurrency] = clone(snapshot)
	return nil
}

// Layered serves reads from an in-process LRU and falls back to a durable store.
// Writes go through to the durable store first, then refresh the front.
type Layered struct {
	front *LRUCache[core.RateSnapshot]
	back  Store
}

// NewLayered wraps back with an LRU of at most maxEntries snapshots. Front
// copies expire after ttl so writes from another process become visible; a
// non-positive ttl keeps them until evicted. Evictions only drop the
// in-process copy.
func NewLayered(back Store, maxEntries int, ttl time.Duration) *Layered {
	return &Layered{
		front: NewLRUCache[core.RateSnapshot](maxEntries, ttl),
		back:  back,
	}
}

func (l *Layered) LoadSnapshot(ctx context.Context, base string) (core.RateSnapshot, bool, error) {
	if snap, ok := l.front.Get(base); ok {
		return clone(snap), true, nil
	}
	snap, ok, err := l.back.LoadSnapshot(ctx, base)
	if err != nil || !ok {
		return snap, ok, err
	}
	l.front.Set(base, clone(snap))
	return snap, true, nil
}

func (l *Layered) SaveSnapshot(ctx context.Context, snapshot core.RateSnapshot) error {
	if err := l.back.SaveSnapshot(ctx, snapshot); err != nil {
		// keep the front consistent with what is durable
		l.front.Delete(snapshot.BaseCurrency)
		return err
	}
	l.front.Set(snapshot.BaseCurrency, clone(snapshot))
	log.FromContext(ctx).WithComponent(log.ComponentCache).DebugContext(ctx, "Snapshot cached in memory",
		log.FieldBaseCurrency, snapshot.BaseCurrency,
		"cached_bases", l.front.Size())
	return nil
}

func clone(s core.RateSnapshot) core.RateSnapshot {
	s.Rates = maps.Clone(s.Rates)
	return s
}
