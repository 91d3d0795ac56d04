package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type countingRefresher struct {
	mu    sync.Mutex
	calls int
	bases []string
	err   error
	done  chan struct{}
	stop  int
}

func (r *countingRefresher) RefreshAll(_ context.Context, bases []string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	r.bases = bases
	if r.calls == r.stop {
		close(r.done)
	}
	if r.err != nil {
		return 0, r.err
	}
	return len(bases), nil
}

func TestRatesWorkerRunRefreshesOnStartupAndTick(t *testing.T) {
	r := &countingRefresher{done: make(chan struct{}), stop: 3}
	w := NewRatesWorker(r, []string{"USD", "EUR"}, 10*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- w.Run(ctx) }()

	select {
	case <-r.done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not tick")
	}
	cancel()

	if err := <-errCh; !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.bases) != 2 {
		t.Errorf("bases = %v", r.bases)
	}
}

func TestRatesWorkerRefreshNowReportsFailures(t *testing.T) {
	r := &countingRefresher{err: errors.New("all down"), done: make(chan struct{}), stop: -1}
	w := NewRatesWorker(r, []string{"USD"}, time.Hour, nil)

	if got := w.RefreshNow(context.Background()); got != 0 {
		t.Errorf("RefreshNow() = %d, want 0", got)
	}
	if r.calls != 1 {
		t.Errorf("calls = %d, want 1", r.calls)
	}
}
