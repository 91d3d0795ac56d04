// Package pacing projects budget spending and savings-goal contributions.
package pacing

import (
	"context"

	"github.com/shopspring/decimal"

	"fxledger/internal/core"
	"fxledger/internal/ledger"
)

// Projection extrapolates the spending rate so far over the whole period.
type Projection struct {
	DailyPace  int64
	Projected  int64
	WillExceed bool
	Remaining  int64 // negative once the limit is exceeded
}

type BudgetProgress struct {
	Budget      core.Budget
	Spent       int64 // in the budget currency
	Percentage  int64
	ElapsedDays int
	TotalDays   int
	Projection  Projection
}

type GoalProgress struct {
	Goal          core.Goal
	Remaining     int64
	DaysLeft      int
	DailyRequired int64
	Percentage    int64
}

// Percentage returns round(spent / limit * 100), or 0 when limit is 0.
func Percentage(spent, limit int64) int64 {
	if limit == 0 {
		return 0
	}
	return decimal.NewFromInt(spent).
		Mul(decimal.NewFromInt(100)).
		DivRound(decimal.NewFromInt(limit), 0).
		IntPart()
}

// Pace projects spending over totalDays. Elapsed days below 1 count as 1.
// Projected is computed from the exact daily pace, not the rounded one.
func Pace(spent, limit int64, elapsedDays, totalDays int) Projection {
	if elapsedDays < 1 {
		elapsedDays = 1
	}
	daily := decimal.NewFromInt(spent).DivRound(decimal.NewFromInt(int64(elapsedDays)), 16)
	projected := daily.Mul(decimal.NewFromInt(int64(totalDays))).Round(0).IntPart()
	return Projection{
		DailyPace:  daily.Round(0).IntPart(),
		Projected:  projected,
		WillExceed: projected > limit,
		Remaining:  limit - spent,
	}
}

// BudgetStatus sums the expenses within the budget period, restricted to the
// budget category when one is set, converted into the budget currency.
func BudgetStatus(ctx context.Context, budget core.Budget, txs []core.Transaction, today core.Date, conv ledger.Conversion) BudgetProgress {
	var spent int64
	for _, tx := range ledger.FilterByPeriod(txs, budget.Start, budget.End) {
		if tx.Type != core.Expense {
			continue
		}
		if budget.Category != "" && tx.Category != budget.Category {
			continue
		}
		spent += conv(ctx, tx.Amount, tx.Currency, budget.Currency)
	}

	total := budget.Start.DaysUntil(budget.End) + 1
	if total < 1 {
		total = 1
	}
	elapsed := budget.Start.DaysUntil(today) + 1
	elapsed = max(1, min(elapsed, total))

	return BudgetProgress{
		Budget:      budget,
		Spent:       spent,
		Percentage:  Percentage(spent, budget.Limit),
		ElapsedDays: elapsed,
		TotalDays:   total,
		Projection:  Pace(spent, budget.Limit, elapsed, total),
	}
}

// GoalProjection reports the daily contribution needed to reach the goal by
// its deadline. ok is false when the goal has no deadline, the deadline is not
// in the future, or nothing remains to save.
func GoalProjection(goal core.Goal, today core.Date) (GoalProgress, bool) {
	p := GoalProgress{
		Goal:       goal,
		Remaining:  goal.TargetAmount - goal.CurrentAmount,
		Percentage: Percentage(goal.CurrentAmount, goal.TargetAmount),
	}
	if goal.Deadline.IsZero() {
		return p, false
	}
	p.DaysLeft = today.DaysUntil(goal.Deadline)
	if p.Remaining <= 0 || p.DaysLeft <= 0 {
		return p, false
	}
	p.DailyRequired = (p.Remaining + int64(p.DaysLeft) - 1) / int64(p.DaysLeft)
	return p, true
}
