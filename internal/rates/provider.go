// Package rates fetches exchange-rate tables from a remote source and keeps
// the last good table per base currency as a fallback for outages.
package rates

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"fxledger/internal/core"
	"fxledger/internal/log"
)

// RateResult is a snapshot plus how it was obtained.
type RateResult struct {
	Snapshot  core.RateSnapshot
	FromCache bool
	Stale     bool
}

// Provider serves rate snapshots, preferring a fresh cache entry, then the
// network, then any cached entry regardless of age.
//
// Concurrent calls for the same base are not coordinated: each may fetch and
// the last one to finish wins in the cache.
type Provider struct {
	transport Transport
	cache     *RateCache
	logger    *log.Logger
	now       func() time.Time
}

func NewProvider(transport Transport, cache *RateCache, logger *log.Logger) *Provider {
	if logger == nil {
		logger = log.Discard()
	}
	return &Provider{
		transport: transport,
		cache:     cache,
		logger:    logger.WithComponent(log.ComponentRates),
		now:       time.Now,
	}
}

// FetchLive fetches base from the remote source and writes the result through to the cache.
func (p *Provider) FetchLive(ctx context.Context, base string) (core.RateSnapshot, error) {
	base, err := normalizeBase(base)
	if err != nil {
		return core.RateSnapshot{}, err
	}
	return p.fetch(ctx, base)
}

// GetRates returns rates for base. Unless forceRefresh is set, a fresh cached
// snapshot is returned without touching the network. When the fetch fails any
// cached snapshot is returned marked Stale; only a cold cache propagates the
// fetch error.
func (p *Provider) GetRates(ctx context.Context, base string, forceRefresh bool) (RateResult, error) {
	base, err := normalizeBase(base)
	if err != nil {
		return RateResult{}, err
	}

	if !forceRefresh {
		cached, err := p.cache.Get(ctx, base)
		if err != nil {
			p.logger.WarnContext(ctx, "Rate cache read failed, treating as miss",
				log.FieldBaseCurrency, base,
				log.FieldError, err.Error())
		} else if cached != nil && IsFresh(*cached, p.now()) {
			p.logger.DebugContext(ctx, "Serving fresh cached rates",
				log.NewFields().WithRates(base, cached.Currencies(), true, false).ToSlice()...)
			return RateResult{Snapshot: *cached, FromCache: true}, nil
		}
	}

	snap, fetchErr := p.fetch(ctx, base)
	if fetchErr == nil {
		return RateResult{Snapshot: snap}, nil
	}

	cached, err := p.cache.Get(ctx, base)
	if err != nil {
		return RateResult{}, errors.Join(fetchErr, err)
	}
	if cached == nil {
		p.logger.ErrorContext(ctx, "Rates unavailable and nothing cached",
			append(log.NewFields().
				WithOperation(log.OpFetch).
				WithError(fetchErr).
				WithErrorType(errorType(fetchErr)).
				ToSlice(), log.FieldBaseCurrency, base)...)
		return RateResult{}, fetchErr
	}

	p.logger.WarnContext(ctx, "Serving stale cached rates after fetch failure",
		append(log.NewFields().
			WithRates(base, cached.Currencies(), true, true).
			WithError(fetchErr).
			WithErrorType(errorType(fetchErr)).ToSlice(),
			log.FieldLastUpdated, cached.LastUpdated.Format(time.RFC3339))...)
	return RateResult{Snapshot: *cached, FromCache: true, Stale: true}, nil
}

// ForceRefresh is GetRates with forceRefresh set.
func (p *Provider) ForceRefresh(ctx context.Context, base string) (RateResult, error) {
	return p.GetRates(ctx, base, true)
}

func (p *Provider) fetch(ctx context.Context, base string) (core.RateSnapshot, error) {
	resp, err := p.transport.Latest(ctx, base)
	if err != nil {
		var netErr *NetworkError
		var apiErr *APIError
		if errors.As(err, &netErr) || errors.As(err, &apiErr) {
			return core.RateSnapshot{}, err
		}
		return core.RateSnapshot{}, &NetworkError{Base: base, Err: err}
	}

	switch {
	case resp == nil:
		return core.RateSnapshot{}, &APIError{Base: base, Message: "empty response"}
	case resp.Result != "success":
		msg := "unsuccessful result"
		if resp.Result != "" {
			msg = fmt.Sprintf("result %q", resp.Result)
		}
		return core.RateSnapshot{}, &APIError{Base: base, Type: resp.ErrorType, Message: msg}
	case resp.ErrorType != "":
		return core.RateSnapshot{}, &APIError{Base: base, Type: resp.ErrorType, Message: "error reported"}
	case len(resp.Rates) == 0:
		return core.RateSnapshot{}, &APIError{Base: base, Message: "response carries no rates"}
	}

	for cur, r := range resp.Rates {
		if !r.IsPositive() {
			return core.RateSnapshot{}, &APIError{Base: base, Message: fmt.Sprintf("non-positive rate for %s", cur)}
		}
	}

	snap := core.RateSnapshot{
		BaseCurrency: base,
		Rates:        resp.Rates,
		LastUpdated:  p.now(),
	}
	p.cache.Put(ctx, base, snap.Rates, snap.LastUpdated)

	p.logger.InfoContext(ctx, "Fetched live rates",
		log.FieldBaseCurrency, base,
		log.FieldCurrencies, len(snap.Rates))
	return snap, nil
}

func normalizeBase(base string) (string, error) {
	base = strings.ToUpper(strings.TrimSpace(base))
	if err := core.ValidateCurrency(base); err != nil {
		return "", err
	}
	return base, nil
}

func errorType(err error) string {
	var netErr *NetworkError
	var apiErr *APIError
	var valErr *core.ValidationError
	switch {
	case errors.As(err, &netErr):
		return log.ErrorTypeNetwork
	case errors.As(err, &apiErr):
		return log.ErrorTypeAPI
	case errors.As(err, &valErr):
		return log.ErrorTypeValidation
	default:
		return log.ErrorTypeNetwork
	}
}
