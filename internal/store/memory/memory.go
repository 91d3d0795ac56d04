// Package memory is an in-process entity store seeded from JSON files, used
// for local runs and tests in place of the SQLite tables.
package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"fxledger/internal/core"
)

type Store struct {
	mu       sync.RWMutex
	accounts []core.Account
	txs      []core.Transaction
	budgets  []core.Budget
	goals    []core.Goal
}

func New() *Store {
	return &Store{}
}

// NewFromFiles loads seed_accounts.json, seed_transactions.json,
// seed_budgets.json and seed_goals.json from base. Missing files are skipped.
// Amounts are decimal strings in major units, e.g. "12.50".
func NewFromFiles(base string) (*Store, error) {
	s := New()

	var accounts []accountRecord
	if err := readJSON(filepath.Join(base, "seed_accounts.json"), &accounts); err != nil {
		return nil, err
	}
	for _, r := range accounts {
		a, err := r.toAccount()
		if err != nil {
			return nil, fmt.Errorf("seed account %s: %w", r.ID, err)
		}
		if err := s.AddAccount(a); err != nil {
			return nil, fmt.Errorf("seed account %s: %w", r.ID, err)
		}
	}

	var txs []transactionRecord
	if err := readJSON(filepath.Join(base, "seed_transactions.json"), &txs); err != nil {
		return nil, err
	}
	for _, r := range txs {
		tx, err := r.toTransaction()
		if err != nil {
			return nil, fmt.Errorf("seed transaction %s: %w", r.ID, err)
		}
		if _, err := s.AddTransaction(tx); err != nil {
			return nil, fmt.Errorf("seed transaction %s: %w", r.ID, err)
		}
	}

	var budgets []budgetRecord
	if err := readJSON(filepath.Join(base, "seed_budgets.json"), &budgets); err != nil {
		return nil, err
	}
	for _, r := range budgets {
		b, err := r.toBudget()
		if err != nil {
			return nil, fmt.Errorf("seed budget %s: %w", r.ID, err)
		}
		if err := b.Validate(); err != nil {
			return nil, fmt.Errorf("seed budget %s: %w", r.ID, err)
		}
		s.budgets = append(s.budgets, b)
	}

	var goals []goalRecord
	if err := readJSON(filepath.Join(base, "seed_goals.json"), &goals); err != nil {
		return nil, err
	}
	for _, r := range goals {
		g, err := r.toGoal()
		if err != nil {
			return nil, fmt.Errorf("seed goal %s: %w", r.ID, err)
		}
		if err := g.Validate(); err != nil {
			return nil, fmt.Errorf("seed goal %s: %w", r.ID, err)
		}
		s.goals = append(s.goals, g)
	}

	return s, nil
}

func (s *Store) AddAccount(a core.Account) error {
	if err := a.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts = append(s.accounts, a)
	return nil
}

// AddTransaction stores the transaction and returns its ID, generating one when empty.
func (s *Store) AddTransaction(tx core.Transaction) (string, error) {
	if err := tx.Validate(); err != nil {
		return "", err
	}
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.txs = append(s.txs, tx)
	return tx.ID, nil
}

func (s *Store) ListAccounts(_ context.Context) ([]core.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]core.Account(nil), s.accounts...), nil
}

// ListTransactions returns transactions in date order.
func (s *Store) ListTransactions(_ context.Context) ([]core.Transaction, error) {
	s.mu.RLock()
	out := append([]core.Transaction(nil), s.txs...)
	s.mu.RUnlock()
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (s *Store) ListBudgets(_ context.Context) ([]core.Budget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]core.Budget(nil), s.budgets...), nil
}

func (s *Store) ListGoals(_ context.Context) ([]core.Goal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]core.Goal(nil), s.goals...), nil
}

type accountRecord struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Currency       string `json:"currency"`
	InitialBalance string `json:"initial_balance"`
	Archived       bool   `json:"archived"`
	Primary        bool   `json:"primary"`
}

func (r accountRecord) toAccount() (core.Account, error) {
	balance, err := parseOptionalAmount(r.InitialBalance, r.Currency)
	if err != nil {
		return core.Account{}, err
	}
	return core.Account{
		ID:             r.ID,
		Name:           r.Name,
		Currency:       r.Currency,
		InitialBalance: balance,
		IsArchived:     r.Archived,
		IsPrimary:      r.Primary,
	}, nil
}

type transactionRecord struct {
	ID               string    `json:"id"`
	Type             string    `json:"type"`
	Amount           string    `json:"amount"`
	Currency         string    `json:"currency"`
	Date             core.Date `json:"date"`
	AccountID        string    `json:"account_id"`
	ToAccountID      string    `json:"to_account_id"`
	Category         string    `json:"category"`
	Description      string    `json:"description"`
	ExchangeRate     string    `json:"exchange_rate"`
	ExchangeRateBase string    `json:"exchange_rate_base"`
}

func (r transactionRecord) toTransaction() (core.Transaction, error) {
	amount, err := core.ParseAmount(r.Amount, r.Currency)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("amount %q: %w", r.Amount, err)
	}
	tx := core.Transaction{
		ID:               r.ID,
		Type:             core.TransactionType(r.Type),
		Amount:           amount,
		Currency:         r.Currency,
		Date:             r.Date,
		AccountID:        r.AccountID,
		ToAccountID:      r.ToAccountID,
		Category:         r.Category,
		Description:      r.Description,
		ExchangeRateBase: r.ExchangeRateBase,
	}
	if r.ExchangeRate != "" {
		rate, err := decimal.NewFromString(r.ExchangeRate)
		if err != nil {
			return core.Transaction{}, fmt.Errorf("exchange rate %q: %w", r.ExchangeRate, err)
		}
		tx.ExchangeRate = decimal.NewNullDecimal(rate)
	}
	return tx, nil
}

type budgetRecord struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Limit    string    `json:"limit"`
	Currency string    `json:"currency"`
	Category string    `json:"category"`
	Start    core.Date `json:"start"`
	End      core.Date `json:"end"`
}

func (r budgetRecord) toBudget() (core.Budget, error) {
	limit, err := core.ParseAmount(r.Limit, r.Currency)
	if err != nil {
		return core.Budget{}, fmt.Errorf("limit %q: %w", r.Limit, err)
	}
	return core.Budget{
		ID:       r.ID,
		Name:     r.Name,
		Limit:    limit,
		Currency: r.Currency,
		Category: r.Category,
		Start:    r.Start,
		End:      r.End,
	}, nil
}

type goalRecord struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Target   string    `json:"target"`
	Current  string    `json:"current"`
	Currency string    `json:"currency"`
	Deadline core.Date `json:"deadline"`
}

func (r goalRecord) toGoal() (core.Goal, error) {
	target, err := core.ParseAmount(r.Target, r.Currency)
	if err != nil {
		return core.Goal{}, fmt.Errorf("target %q: %w", r.Target, err)
	}
	current, err := parseOptionalAmount(r.Current, r.Currency)
	if err != nil {
		return core.Goal{}, fmt.Errorf("current %q: %w", r.Current, err)
	}
	return core.Goal{
		ID:            r.ID,
		Name:          r.Name,
		TargetAmount:  target,
		CurrentAmount: current,
		Currency:      r.Currency,
		Deadline:      r.Deadline,
	}, nil
}

func parseOptionalAmount(s, currency string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	return core.ParseAmount(s, currency)
}

func readJSON(path string, v any) error {
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return nil
}
