// Package ledger derives balances and period statistics by replaying transactions.
package ledger

import (
	"context"
	"fmt"

	"fxledger/internal/core"
	"fxledger/internal/fx"
)

// Conversion converts an amount between currencies with a fixed rate table.
type Conversion func(ctx context.Context, amount int64, from, to string) int64

// With binds a converter to one rate table.
func With(c *fx.Converter, table fx.RateTable) Conversion {
	return func(ctx context.Context, amount int64, from, to string) int64 {
		return c.ConvertContext(ctx, amount, from, to, table)
	}
}

// BalanceOf replays every transaction touching account over its initial balance.
// Each transaction is converted into the account's currency; transfer legs are
// converted independently. Order of txs does not matter.
func BalanceOf(ctx context.Context, account core.Account, txs []core.Transaction, conv Conversion) (int64, error) {
	balance := account.InitialBalance
	for _, tx := range txs {
		if !tx.Touches(account.ID) {
			continue
		}
		if err := tx.Validate(); err != nil {
			return 0, fmt.Errorf("transaction %s: %w", tx.ID, err)
		}
		balance += effect(ctx, account, tx, conv)
	}
	return balance, nil
}

// effect is the signed amount tx adds to account, in the account's currency.
func effect(ctx context.Context, account core.Account, tx core.Transaction, conv Conversion) int64 {
	var delta int64
	switch tx.Type {
	case core.Income:
		if tx.AccountID == account.ID {
			delta += conv(ctx, tx.Amount, tx.Currency, account.Currency)
		}
	case core.Expense:
		if tx.AccountID == account.ID {
			delta -= conv(ctx, tx.Amount, tx.Currency, account.Currency)
		}
	case core.Transfer:
		if tx.AccountID == account.ID {
			delta -= conv(ctx, tx.Amount, tx.Currency, account.Currency)
		}
		if tx.ToAccountID == account.ID {
			delta += conv(ctx, tx.Amount, tx.Currency, account.Currency)
		}
	}
	return delta
}

// Balances returns BalanceOf for every account, keyed by account ID.
func Balances(ctx context.Context, accounts []core.Account, txs []core.Transaction, conv Conversion) (map[string]int64, error) {
	out := make(map[string]int64, len(accounts))
	for _, a := range accounts {
		b, err := BalanceOf(ctx, a, txs, conv)
		if err != nil {
			return nil, fmt.Errorf("balance of %s: %w", a.ID, err)
		}
		out[a.ID] = b
	}
	return out, nil
}

// NetWorth sums the balances of non-archived accounts converted into target.
func NetWorth(ctx context.Context, accounts []core.Account, txs []core.Transaction, target string, conv Conversion) (int64, error) {
	var total int64
	for _, a := range accounts {
		if a.IsArchived {
			continue
		}
		b, err := BalanceOf(ctx, a, txs, conv)
		if err != nil {
			return 0, fmt.Errorf("balance of %s: %w", a.ID, err)
		}
		if b < 0 {
			total -= conv(ctx, -b, a.Currency, target)
		} else {
			total += conv(ctx, b, a.Currency, target)
		}
	}
	return total, nil
}
