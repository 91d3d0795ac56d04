package services

import (
	"context"

	"fxledger/internal/core"
	"fxledger/internal/rates"
)

// EntityReader is the read side of the external entity store.
type EntityReader interface {
	ListAccounts(ctx context.Context) ([]core.Account, error)
	ListTransactions(ctx context.Context) ([]core.Transaction, error)
	ListBudgets(ctx context.Context) ([]core.Budget, error)
	ListGoals(ctx context.Context) ([]core.Goal, error)
}

// RateSource serves rate snapshots with cache fallback.
type RateSource interface {
	GetRates(ctx context.Context, base string, forceRefresh bool) (rates.RateResult, error)
	ForceRefresh(ctx context.Context, base string) (rates.RateResult, error)
}

// RefreshPublisher announces freshly cached snapshots.
type RefreshPublisher interface {
	PublishRatesRefreshed(ctx context.Context, snap core.RateSnapshot) error
}

var _ RateSource = (*rates.Provider)(nil)
