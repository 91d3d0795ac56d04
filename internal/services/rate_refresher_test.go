package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"fxledger/internal/amqp"
	"fxledger/internal/core"
	"fxledger/internal/rates"
)

type recordingPublisher struct {
	mu    sync.Mutex
	bases []string
	err   error
}

func (p *recordingPublisher) PublishRatesRefreshed(_ context.Context, snap core.RateSnapshot) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.bases = append(p.bases, snap.BaseCurrency)
	return p.err
}

type scriptedSource struct {
	mu      sync.Mutex
	results map[string]rates.RateResult
	errs    map[string]error

	inFlight atomic.Int32
	peak     atomic.Int32
}

func (s *scriptedSource) GetRates(ctx context.Context, base string, _ bool) (rates.RateResult, error) {
	return s.ForceRefresh(ctx, base)
}

func (s *scriptedSource) ForceRefresh(_ context.Context, base string) (rates.RateResult, error) {
	n := s.inFlight.Add(1)
	defer s.inFlight.Add(-1)
	for {
		p := s.peak.Load()
		if n <= p || s.peak.CompareAndSwap(p, n) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.errs[base]; err != nil {
		return rates.RateResult{}, err
	}
	if res, ok := s.results[base]; ok {
		return res, nil
	}
	return rates.RateResult{Snapshot: core.RateSnapshot{BaseCurrency: base}}, nil
}

func TestRefreshAllContinuesAfterFailure(t *testing.T) {
	source := &scriptedSource{
		errs: map[string]error{"GBP": &rates.APIError{Base: "GBP", StatusCode: 500, Message: "boom"}},
		results: map[string]rates.RateResult{
			"CHF": {Snapshot: core.RateSnapshot{BaseCurrency: "CHF"}, FromCache: true, Stale: true},
		},
	}
	pub := &recordingPublisher{}
	r := NewRateRefresher(source, pub, 2, nil)

	n, err := r.RefreshAll(context.Background(), []string{"USD", "GBP", "EUR", "CHF"})
	if n != 2 {
		t.Errorf("refreshed = %d, want 2", n)
	}
	var apiErr *rates.APIError
	if !errors.As(err, &apiErr) {
		t.Errorf("expected joined APIError, got %v", err)
	}
	if !errors.Is(err, ErrStaleRefresh) {
		t.Errorf("expected stale refresh to be reported, got %v", err)
	}
	if len(pub.bases) != 2 {
		t.Errorf("published %v, want USD and EUR", pub.bases)
	}
}

func TestRefreshAllRespectsConcurrencyLimit(t *testing.T) {
	source := &scriptedSource{}
	r := NewRateRefresher(source, nil, 2, nil)

	n, err := r.RefreshAll(context.Background(), []string{"USD", "EUR", "GBP", "JPY", "CHF", "CAD"})
	if err != nil || n != 6 {
		t.Fatalf("RefreshAll() = %d, %v", n, err)
	}
	if peak := source.peak.Load(); peak > 2 {
		t.Errorf("peak concurrency = %d, want <= 2", peak)
	}
}

func TestRefreshAllPublishFailureIsNotFatal(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("circuit open")}
	r := NewRateRefresher(&scriptedSource{}, pub, 0, nil)

	n, err := r.RefreshAll(context.Background(), []string{"USD"})
	if err != nil || n != 1 {
		t.Fatalf("RefreshAll() = %d, %v", n, err)
	}
	if r.concurrency != DefaultRefreshConcurrency {
		t.Errorf("concurrency = %d, want default", r.concurrency)
	}
}

func TestRefreshAllUninitialized(t *testing.T) {
	r := &RateRefresher{}
	if _, err := r.RefreshAll(context.Background(), []string{"USD"}); err == nil {
		t.Error("expected error for refresher without rate source")
	}
}

func TestHandleRefreshRequest(t *testing.T) {
	source := &scriptedSource{
		errs: map[string]error{
			"AUD": &rates.APIError{Base: "AUD", StatusCode: 404, Message: "not found"},
			"XXX": &core.ValidationError{Field: "currency", Value: "XXX", Err: core.ErrInvalidCurrency},
			"NZD": &rates.NetworkError{Base: "NZD", Err: errors.New("timeout")},
			"NOK": &rates.APIError{Base: "NOK", StatusCode: 503, Message: "unavailable"},
			"SEK": errors.Join(&rates.NetworkError{Base: "SEK", Err: errors.New("timeout")}, errors.New("database is locked")),
			"DKK": errors.New("database is locked"),
		},
		results: map[string]rates.RateResult{
			"CHF": {Snapshot: core.RateSnapshot{BaseCurrency: "CHF"}, FromCache: true, Stale: true},
		},
	}
	pub := &recordingPublisher{}
	r := NewRateRefresher(source, pub, 1, nil)
	ctx := context.Background()

	tests := []struct {
		base    string
		wantErr bool
	}{
		{"USD", false},
		{"AUD", false}, // no data upstream, acknowledged
		{"XXX", false}, // invalid base, acknowledged
		{"CHF", false}, // stale fallback, acknowledged
		{"NZD", false}, // cold cache outage, left to the periodic refresh
		{"NOK", false}, // upstream 5xx, left to the periodic refresh
		{"SEK", false}, // outage plus cache read failure
		{"DKK", true},  // local failure, requeued
	}
	for _, tt := range tests {
		t.Run(tt.base, func(t *testing.T) {
			err := r.HandleRefreshRequest(ctx, &amqp.RefreshRequestMessage{Base: tt.base})
			if (err != nil) != tt.wantErr {
				t.Errorf("HandleRefreshRequest(%s) error = %v, wantErr %v", tt.base, err, tt.wantErr)
			}
		})
	}
	if len(pub.bases) != 1 || pub.bases[0] != "USD" {
		t.Errorf("published %v, want [USD]", pub.bases)
	}
}

func TestHandleRefreshRequestRequeuesOnShutdown(t *testing.T) {
	source := &scriptedSource{
		errs: map[string]error{
			"NZD": &rates.NetworkError{Base: "NZD", Err: context.Canceled},
		},
	}
	r := NewRateRefresher(source, nil, 1, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := r.HandleRefreshRequest(ctx, &amqp.RefreshRequestMessage{Base: "NZD"}); err == nil {
		t.Fatal("expected error so the request is requeued")
	}
}
