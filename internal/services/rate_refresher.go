package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"fxledger/internal/amqp"
	"fxledger/internal/core"
	"fxledger/internal/log"
	"fxledger/internal/rates"
)

// DefaultRefreshConcurrency bounds parallel fetches when none is configured.
const DefaultRefreshConcurrency = 4

// ErrStaleRefresh reports a refresh that could only serve cached rates.
var ErrStaleRefresh = errors.New("refresh failed, serving stale rates")

// RateRefresher force-refreshes configured base currencies and announces the results
type RateRefresher struct {
	rates       RateSource
	publisher   RefreshPublisher
	concurrency int
	logger      *log.Logger
}

// NewRateRefresher creates a refresher. publisher may be nil.
func NewRateRefresher(source RateSource, publisher RefreshPublisher, concurrency int, logger *log.Logger) *RateRefresher {
	if concurrency < 1 {
		concurrency = DefaultRefreshConcurrency
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &RateRefresher{
		rates:       source,
		publisher:   publisher,
		concurrency: concurrency,
		logger:      logger.WithComponent(log.ComponentWorker),
	}
}

// RefreshAll refreshes every base concurrently. A failing base does not stop
// the others; the count of refreshed bases is returned with the joined errors.
func (r *RateRefresher) RefreshAll(ctx context.Context, bases []string) (int, error) {
	if r.rates == nil {
		return 0, fmt.Errorf("refresher not properly initialized")
	}

	var (
		g         errgroup.Group
		refreshed atomic.Int64
		mu        sync.Mutex
		errs      []error
	)
	g.SetLimit(r.concurrency)

	for _, base := range bases {
		g.Go(func() error {
			if err := r.refresh(ctx, base); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
				return nil
			}
			refreshed.Add(1)
			return nil
		})
	}
	g.Wait()

	n := int(refreshed.Load())
	r.logger.InfoContext(ctx, "Rate refresh complete",
		"refreshed", n,
		"failed", len(errs),
		"total", len(bases))

	return n, errors.Join(errs...)
}

// HandleRefreshRequest serves one AMQP refresh request. Requests that can never
// succeed (unknown base, no data upstream) are logged and acknowledged, as are
// upstream failures: the periodic worker retries those on its next tick.
// Returning an error requeues the request.
func (r *RateRefresher) HandleRefreshRequest(ctx context.Context, msg *amqp.RefreshRequestMessage) error {
	err := r.refresh(ctx, msg.Base)

	var (
		verr   *core.ValidationError
		netErr *rates.NetworkError
		apiErr *rates.APIError
	)
	switch {
	case err == nil:
		return nil
	case ctx.Err() != nil:
		return err
	case errors.As(err, &verr), errors.Is(err, rates.ErrNoData):
		r.logger.WarnContext(ctx, "Dropping refresh request that cannot succeed",
			log.FieldBaseCurrency, msg.Base,
			log.FieldError, err.Error())
		return nil
	case errors.As(err, &netErr), errors.As(err, &apiErr):
		r.logger.WarnContext(ctx, "Rate source unavailable, leaving refresh to the next tick",
			log.FieldBaseCurrency, msg.Base,
			log.FieldErrorType, errorType(err),
			log.FieldError, err.Error())
		return nil
	case errors.Is(err, ErrStaleRefresh):
		// cached rates stay in place, no requeue
		return nil
	default:
		return err
	}
}

func (r *RateRefresher) refresh(ctx context.Context, base string) error {
	res, err := r.rates.ForceRefresh(ctx, base)
	if err != nil {
		fields := log.NewFields().WithOperation(log.OpRefresh).WithError(err)
		fields[log.FieldBaseCurrency] = base
		r.logger.ErrorContext(ctx, "Rate refresh failed", fields.ToSlice()...)
		return fmt.Errorf("refresh %s: %w", base, err)
	}
	if res.Stale {
		r.logger.WarnContext(ctx, "Rate refresh fell back to cache",
			log.FieldBaseCurrency, res.Snapshot.BaseCurrency,
			log.FieldLastUpdated, res.Snapshot.LastUpdated)
		return fmt.Errorf("refresh %s: %w", base, ErrStaleRefresh)
	}

	r.logger.InfoContext(ctx, "Rates refreshed",
		log.FieldBaseCurrency, res.Snapshot.BaseCurrency,
		log.FieldCurrencies, res.Snapshot.Currencies())

	if r.publisher == nil {
		r.logger.DebugContext(ctx, "AMQP publisher not available, skipping refresh message")
		return nil
	}
	if err := r.publisher.PublishRatesRefreshed(ctx, res.Snapshot); err != nil {
		r.logger.ErrorContext(ctx, "Failed to publish rates refreshed message",
			log.FieldBaseCurrency, res.Snapshot.BaseCurrency,
			log.FieldError, err.Error())
	}
	return nil
}

var _ RefreshPublisher = (*amqp.Client)(nil)

func errorType(err error) string {
	var netErr *rates.NetworkError
	if errors.As(err, &netErr) {
		return log.ErrorTypeNetwork
	}
	return log.ErrorTypeAPI
}
