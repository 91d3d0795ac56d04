package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"

	"fxledger/internal/core"
	"fxledger/internal/log"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// DB exposes the underlying handle, for the entity store that owns the writes.
func (r *SQLiteRepository) DB() *sql.DB {
	return r.db
}

// LoadSnapshot returns the cached rate snapshot for a base currency.
func (r *SQLiteRepository) LoadSnapshot(ctx context.Context, base string) (core.RateSnapshot, bool, error) {
	var (
		rawRates    string
		lastUpdated int64
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT rates, last_updated FROM rate_snapshots WHERE base_currency = ?`, base,
	).Scan(&rawRates, &lastUpdated)
	if errors.Is(err, sql.ErrNoRows) {
		return core.RateSnapshot{}, false, nil
	}
	if err != nil {
		return core.RateSnapshot{}, false, fmt.Errorf("get rate snapshot %s: %w", base, err)
	}

	rates := make(map[string]decimal.Decimal)
	if err := json.Unmarshal([]byte(rawRates), &rates); err != nil {
		return core.RateSnapshot{}, false, fmt.Errorf("decode rate snapshot %s: %w", base, err)
	}

	return core.RateSnapshot{
		BaseCurrency: base,
		Rates:        rates,
		LastUpdated:  time.UnixMilli(lastUpdated).UTC(),
	}, true, nil
}

// SaveSnapshot replaces the cached snapshot for the snapshot's base currency.
func (r *SQLiteRepository) SaveSnapshot(ctx context.Context, s core.RateSnapshot) error {
	raw, err := json.Marshal(s.Rates)
	if err != nil {
		return fmt.Errorf("encode rate snapshot %s: %w", s.BaseCurrency, err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO rate_snapshots (base_currency, rates, last_updated) VALUES (?, ?, ?)
		 ON CONFLICT(base_currency) DO UPDATE SET rates = excluded.rates, last_updated = excluded.last_updated`,
		s.BaseCurrency, string(raw), s.LastUpdated.UnixMilli())
	if err != nil {
		return fmt.Errorf("save rate snapshot %s: %w", s.BaseCurrency, err)
	}

	log.FromContext(ctx).WithComponent(log.ComponentStorage).DebugContext(ctx, "Rate snapshot saved to SQLite",
		log.FieldBaseCurrency, s.BaseCurrency,
		log.FieldCurrencies, len(s.Rates),
		log.FieldLastUpdated, s.LastUpdated.Format(time.RFC3339))
	return nil
}

// ListAccounts implements the entity reader.
func (r *SQLiteRepository) ListAccounts(ctx context.Context) ([]core.Account, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, currency, initial_balance, is_archived, is_primary FROM accounts ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []core.Account
	for rows.Next() {
		var a core.Account
		if err := rows.Scan(&a.ID, &a.Name, &a.Currency, &a.InitialBalance, &a.IsArchived, &a.IsPrimary); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// ListTransactions implements the entity reader. Rows come back in date order.
func (r *SQLiteRepository) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, type, amount, currency, date, account_id, COALESCE(to_account_id, ''),
		        category, description, exchange_rate, COALESCE(exchange_rate_base, '')
		 FROM transactions ORDER BY date, id`)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var txs []core.Transaction
	for rows.Next() {
		var (
			tx      core.Transaction
			txType  string
			day     string
			rawRate sql.NullString
		)
		if err := rows.Scan(&tx.ID, &txType, &tx.Amount, &tx.Currency, &day, &tx.AccountID, &tx.ToAccountID,
			&tx.Category, &tx.Description, &rawRate, &tx.ExchangeRateBase); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		tx.Type = core.TransactionType(txType)
		if tx.Date, err = core.ParseDate(day); err != nil {
			return nil, fmt.Errorf("transaction %s: %w", tx.ID, err)
		}
		if rawRate.Valid && rawRate.String != "" {
			rate, err := decimal.NewFromString(rawRate.String)
			if err != nil {
				return nil, fmt.Errorf("transaction %s exchange rate: %w", tx.ID, err)
			}
			tx.ExchangeRate = decimal.NewNullDecimal(rate)
		}
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}

// ListBudgets implements the entity reader.
func (r *SQLiteRepository) ListBudgets(ctx context.Context) ([]core.Budget, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, limit_amount, currency, category, start_date, end_date FROM budgets ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	defer rows.Close()

	var budgets []core.Budget
	for rows.Next() {
		var (
			b          core.Budget
			start, end string
		)
		if err := rows.Scan(&b.ID, &b.Name, &b.Limit, &b.Currency, &b.Category, &start, &end); err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		if b.Start, err = core.ParseDate(start); err != nil {
			return nil, fmt.Errorf("budget %s: %w", b.ID, err)
		}
		if b.End, err = core.ParseDate(end); err != nil {
			return nil, fmt.Errorf("budget %s: %w", b.ID, err)
		}
		budgets = append(budgets, b)
	}
	return budgets, rows.Err()
}

// ListGoals implements the entity reader.
func (r *SQLiteRepository) ListGoals(ctx context.Context) ([]core.Goal, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, target_amount, current_amount, currency, COALESCE(deadline, '') FROM goals ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	defer rows.Close()

	var goals []core.Goal
	for rows.Next() {
		var (
			g        core.Goal
			deadline string
		)
		if err := rows.Scan(&g.ID, &g.Name, &g.TargetAmount, &g.CurrentAmount, &g.Currency, &deadline); err != nil {
			return nil, fmt.Errorf("scan goal: %w", err)
		}
		if deadline != "" {
			if g.Deadline, err = core.ParseDate(deadline); err != nil {
				return nil, fmt.Errorf("goal %s: %w", g.ID, err)
			}
		}
		goals = append(goals, g)
	}
	return goals, rows.Err()
}
