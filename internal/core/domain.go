package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Income   TransactionType = "income"
	Expense  TransactionType = "expense"
	Transfer TransactionType = "transfer"
)

type (
	TransactionType string

	Account struct {
		ID             string
		Name           string
		Currency       string
		InitialBalance int64 // minor units
		IsArchived     bool
		IsPrimary      bool
	}

	Transaction struct {
		ID          string
		Type        TransactionType
		Amount      int64 // minor units, never negative
		Currency    string
		Date        Date
		AccountID   string
		ToAccountID string // transfers only
		Category    string
		Description string

		// Rate captured when the transaction was created, for display only.
		ExchangeRate     decimal.NullDecimal
		ExchangeRateBase string
	}

	// RateSnapshot is the rate table fetched for one base currency.
	RateSnapshot struct {
		BaseCurrency string
		Rates        map[string]decimal.Decimal
		LastUpdated  time.Time
	}

	// PeriodStats aggregates a window of transactions in one target currency.
	PeriodStats struct {
		Income  int64
		Expense int64
		Net     int64
		Count   int
	}

	Budget struct {
		ID       string
		Name     string
		Limit    int64 // minor units
		Currency string
		Category string // empty means every expense counts
		Start    Date
		End      Date
	}

	Goal struct {
		ID            string
		Name          string
		TargetAmount  int64
		CurrentAmount int64
		Currency      string
		Deadline      Date // zero when the goal has no deadline
	}
)

var (
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrInvalidCurrency   = errors.New("invalid currency")
	ErrInvalidType       = errors.New("invalid transaction type")
	ErrMissingAccount    = errors.New("missing account")
	ErrMissingToAccount  = errors.New("transfer requires a destination account")
	ErrSelfTransfer      = errors.New("transfer source and destination are the same account")
	ErrUnexpectedAccount = errors.New("destination account only allowed on transfers")
	ErrInvalidPeriod     = errors.New("period end is before start")
)

// ValidationError reports a contract violation on an input value.
type ValidationError struct {
	Field string
	Value string
	Err   error
}

func (e *ValidationError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("invalid %s: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("invalid %s %q: %v", e.Field, e.Value, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

func invalid(field, value string, err error) error {
	return &ValidationError{Field: field, Value: value, Err: err}
}

func (t TransactionType) IsValid() bool {
	switch t {
	case Income, Expense, Transfer:
		return true
	default:
		return false
	}
}

// Touches reports whether the transaction moves money in or out of the account.
func (tx Transaction) Touches(accountID string) bool {
	return tx.AccountID == accountID || (tx.Type == Transfer && tx.ToAccountID == accountID)
}

func (tx Transaction) Validate() error {
	if !tx.Type.IsValid() {
		return invalid("type", string(tx.Type), ErrInvalidType)
	}
	if tx.Amount < 0 {
		return invalid("amount", fmt.Sprint(tx.Amount), ErrInvalidAmount)
	}
	if err := ValidateCurrency(tx.Currency); err != nil {
		return err
	}
	if strings.TrimSpace(tx.AccountID) == "" {
		return invalid("account_id", "", ErrMissingAccount)
	}
	if err := tx.Date.Validate(); err != nil {
		return invalid("date", "", err)
	}

	switch tx.Type {
	case Transfer:
		if strings.TrimSpace(tx.ToAccountID) == "" {
			return invalid("to_account_id", "", ErrMissingToAccount)
		}
		if tx.ToAccountID == tx.AccountID {
			return invalid("to_account_id", tx.ToAccountID, ErrSelfTransfer)
		}
	default:
		if tx.ToAccountID != "" {
			return invalid("to_account_id", tx.ToAccountID, ErrUnexpectedAccount)
		}
	}
	return nil
}

func (a Account) Validate() error {
	if strings.TrimSpace(a.ID) == "" {
		return invalid("account_id", "", ErrMissingAccount)
	}
	return ValidateCurrency(a.Currency)
}

func (b Budget) Validate() error {
	if b.Limit < 0 {
		return invalid("limit", fmt.Sprint(b.Limit), ErrInvalidAmount)
	}
	if err := ValidateCurrency(b.Currency); err != nil {
		return err
	}
	if err := b.Start.Validate(); err != nil {
		return invalid("start", "", err)
	}
	if err := b.End.Validate(); err != nil {
		return invalid("end", "", err)
	}
	if b.End.Before(b.Start) {
		return invalid("end", b.End.String(), ErrInvalidPeriod)
	}
	return nil
}

func (g Goal) Validate() error {
	if g.TargetAmount < 0 {
		return invalid("target_amount", fmt.Sprint(g.TargetAmount), ErrInvalidAmount)
	}
	if g.CurrentAmount < 0 {
		return invalid("current_amount", fmt.Sprint(g.CurrentAmount), ErrInvalidAmount)
	}
	return ValidateCurrency(g.Currency)
}

// Rate returns the snapshot rate for a currency. The base always maps to 1.
func (s RateSnapshot) Rate(currency string) (decimal.Decimal, bool) {
	if r, ok := s.Rates[currency]; ok {
		return r, true
	}
	if currency == s.BaseCurrency {
		return decimal.NewFromInt(1), true
	}
	return decimal.Decimal{}, false
}

// Currencies returns the number of quoted currencies.
func (s RateSnapshot) Currencies() int {
	return len(s.Rates)
}
