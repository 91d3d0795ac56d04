package ledger

import (
	"context"
	"fmt"
	"math"
	"sort"

	"fxledger/internal/core"
)

// StatsComparison holds percentage changes between two periods.
type StatsComparison struct {
	Income  float64
	Expense float64
	Net     float64
}

// Entry is one step of a running balance.
type Entry struct {
	Date          core.Date
	TransactionID string
	Balance       int64
}

// FilterByPeriod keeps transactions dated within [start, end], both inclusive.
func FilterByPeriod(txs []core.Transaction, start, end core.Date) []core.Transaction {
	var out []core.Transaction
	for _, tx := range txs {
		if tx.Date.Before(start) || tx.Date.After(end) {
			continue
		}
		out = append(out, tx)
	}
	return out
}

// Stats sums income and expense within [start, end] converted into target.
// Count includes transfers, which contribute to neither sum.
func Stats(ctx context.Context, txs []core.Transaction, start, end core.Date, target string, conv Conversion) core.PeriodStats {
	var s core.PeriodStats
	for _, tx := range FilterByPeriod(txs, start, end) {
		s.Count++
		switch tx.Type {
		case core.Income:
			s.Income += conv(ctx, tx.Amount, tx.Currency, target)
		case core.Expense:
			s.Expense += conv(ctx, tx.Amount, tx.Currency, target)
		}
	}
	s.Net = s.Income - s.Expense
	return s
}

// Delta is the percentage change from previous to current.
// A zero previous value yields 100 when current is positive and 0 otherwise.
// A negative previous value divides by its magnitude so the sign follows the
// direction of change.
func Delta(current, previous int64) float64 {
	if previous == 0 {
		if current > 0 {
			return 100
		}
		return 0
	}
	return float64(current-previous) / math.Abs(float64(previous)) * 100
}

func Compare(current, previous core.PeriodStats) StatsComparison {
	return StatsComparison{
		Income:  Delta(current.Income, previous.Income),
		Expense: Delta(current.Expense, previous.Expense),
		Net:     Delta(current.Net, previous.Net),
	}
}

// PreviousPeriod returns the window of equal length ending the day before start.
func PreviousPeriod(start, end core.Date) (core.Date, core.Date, error) {
	if end.Before(start) {
		return core.Date{}, core.Date{}, &core.ValidationError{Field: "end", Value: end.String(), Err: core.ErrInvalidPeriod}
	}
	days := start.DaysUntil(end) + 1
	prevEnd := start.AddDays(-1)
	return prevEnd.AddDays(-(days - 1)), prevEnd, nil
}

// RunningBalance replays the account's transactions in date order and records
// the balance after each one. Transactions on the same day keep their input order.
func RunningBalance(ctx context.Context, account core.Account, txs []core.Transaction, conv Conversion) ([]Entry, error) {
	var touching []core.Transaction
	for _, tx := range txs {
		if !tx.Touches(account.ID) {
			continue
		}
		if err := tx.Validate(); err != nil {
			return nil, fmt.Errorf("transaction %s: %w", tx.ID, err)
		}
		touching = append(touching, tx)
	}
	sort.SliceStable(touching, func(i, j int) bool {
		return touching[i].Date.Before(touching[j].Date)
	})

	balance := account.InitialBalance
	entries := make([]Entry, 0, len(touching))
	for _, tx := range touching {
		balance += effect(ctx, account, tx, conv)
		entries = append(entries, Entry{Date: tx.Date, TransactionID: tx.ID, Balance: balance})
	}
	return entries, nil
}
