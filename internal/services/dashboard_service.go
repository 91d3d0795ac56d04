package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"fxledger/internal/core"
	"fxledger/internal/fx"
	"fxledger/internal/ledger"
	"fxledger/internal/log"
	"fxledger/internal/pacing"
)

type AccountBalance struct {
	Account         core.Account
	Balance         int64 // account currency
	BalanceInTarget int64
}

// GoalStatus is a goal's progress; DailyRequired is only meaningful when Projectable.
type GoalStatus struct {
	pacing.GoalProgress
	Projectable bool
}

type RateInfo struct {
	Base        string
	LastUpdated time.Time
	FromCache   bool
	Stale       bool
}

// Overview is everything a dashboard shows for one period, in one currency.
type Overview struct {
	Currency      string
	Start, End    core.Date
	PrevStart     core.Date
	PrevEnd       core.Date
	Accounts      []AccountBalance
	NetWorth      int64
	Current       core.PeriodStats
	Previous      core.PeriodStats
	Deltas        ledger.StatsComparison
	Budgets       []pacing.BudgetProgress
	Goals         []GoalStatus
	Rates         RateInfo
	DegradedRates int64 // conversions that fell back to 1:1
}

// DashboardService composes balances, period stats and pacing for a presentation layer
type DashboardService struct {
	entities EntityReader
	rates    RateSource
	logger   *log.Logger
	now      func() time.Time
}

func NewDashboardService(entities EntityReader, rates RateSource, logger *log.Logger) *DashboardService {
	if logger == nil {
		logger = log.Discard()
	}
	return &DashboardService{
		entities: entities,
		rates:    rates,
		logger:   logger.WithComponent(log.ComponentServices),
		now:      time.Now,
	}
}

// Overview builds the dashboard for [start, end] in target currency.
// Rates come from the provider for target as base, stale rates included.
func (s *DashboardService) Overview(ctx context.Context, target string, start, end core.Date) (*Overview, error) {
	target = strings.ToUpper(strings.TrimSpace(target))
	if err := core.ValidateCurrency(target); err != nil {
		return nil, err
	}
	prevStart, prevEnd, err := ledger.PreviousPeriod(start, end)
	if err != nil {
		return nil, err
	}

	accounts, err := s.entities.ListAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	txs, err := s.entities.ListTransactions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	budgets, err := s.entities.ListBudgets(ctx)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	goals, err := s.entities.ListGoals(ctx)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}

	res, err := s.rates.GetRates(ctx, target, false)
	if err != nil {
		return nil, fmt.Errorf("get rates for %s: %w", target, err)
	}
	table, err := fx.FromSnapshot(res.Snapshot)
	if err != nil {
		return nil, fmt.Errorf("rate table for %s: %w", target, err)
	}

	converter := fx.NewConverter(s.logger)
	conv := ledger.With(converter, table)

	out := &Overview{
		Currency:  target,
		Start:     start,
		End:       end,
		PrevStart: prevStart,
		PrevEnd:   prevEnd,
		Rates: RateInfo{
			Base:        res.Snapshot.BaseCurrency,
			LastUpdated: res.Snapshot.LastUpdated,
			FromCache:   res.FromCache,
			Stale:       res.Stale,
		},
	}

	balances, err := ledger.Balances(ctx, accounts, txs, conv)
	if err != nil {
		return nil, err
	}
	for _, a := range accounts {
		b := balances[a.ID]
		out.Accounts = append(out.Accounts, AccountBalance{
			Account:         a,
			Balance:         b,
			BalanceInTarget: convertSigned(ctx, conv, b, a.Currency, target),
		})
	}
	if out.NetWorth, err = ledger.NetWorth(ctx, accounts, txs, target, conv); err != nil {
		return nil, err
	}

	out.Current = ledger.Stats(ctx, txs, start, end, target, conv)
	out.Previous = ledger.Stats(ctx, txs, prevStart, prevEnd, target, conv)
	out.Deltas = ledger.Compare(out.Current, out.Previous)

	today := core.DateOf(s.now())
	for _, b := range budgets {
		out.Budgets = append(out.Budgets, pacing.BudgetStatus(ctx, b, txs, today, conv))
	}
	for _, g := range goals {
		p, ok := pacing.GoalProjection(g, today)
		out.Goals = append(out.Goals, GoalStatus{GoalProgress: p, Projectable: ok})
	}

	out.DegradedRates = converter.Degraded()
	if out.DegradedRates > 0 || res.Stale {
		s.logger.WarnContext(ctx, "Overview built with degraded rates",
			log.FieldBaseCurrency, target,
			log.FieldStale, res.Stale,
			"degraded_conversions", out.DegradedRates)
	}

	s.logger.InfoContext(ctx, "Overview built",
		"currency", target,
		"accounts", len(accounts),
		"transactions", out.Current.Count,
		log.FieldFromCache, res.FromCache)

	return out, nil
}

func convertSigned(ctx context.Context, conv ledger.Conversion, amount int64, from, to string) int64 {
	if amount < 0 {
		return -conv(ctx, -amount, from, to)
	}
	return conv(ctx, amount, from, to)
}
