// Package fx converts minor-unit amounts between currencies using a rate table.
package fx

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"fxledger/internal/core"
)

var (
	ErrNonPositiveRate = errors.New("rate must be positive")
	ErrUnknownShape    = errors.New("rate table is neither an object nor an array")
)

// RateTable holds rates relative to one base currency. The base always maps to 1.
type RateTable struct {
	base  string
	rates map[string]decimal.Decimal
}

// Pair is one entry of the legacy list-shaped table.
type Pair struct {
	Currency string          `json:"currency"`
	Rate     decimal.Decimal `json:"rate"`
}

// NewRateTable copies rates into a table for base. Every rate must be positive.
func NewRateTable(base string, rates map[string]decimal.Decimal) (RateTable, error) {
	t := RateTable{base: base, rates: make(map[string]decimal.Decimal, len(rates))}
	for cur, r := range rates {
		if !r.IsPositive() {
			return RateTable{}, &core.ValidationError{Field: "rate", Value: cur, Err: ErrNonPositiveRate}
		}
		t.rates[cur] = r
	}
	return t, nil
}

// FromSnapshot builds a table from a cached or freshly fetched snapshot.
func FromSnapshot(s core.RateSnapshot) (RateTable, error) {
	return NewRateTable(s.BaseCurrency, s.Rates)
}

// FromPairs normalizes the legacy list shape. When a currency repeats, the
// first entry wins.
func FromPairs(base string, pairs []Pair) (RateTable, error) {
	rates := make(map[string]decimal.Decimal, len(pairs))
	for _, p := range pairs {
		if _, seen := rates[p.Currency]; seen {
			continue
		}
		rates[p.Currency] = p.Rate
	}
	return NewRateTable(base, rates)
}

// NormalizeJSON accepts either `{"EUR": 0.9}` or `[{"currency":"EUR","rate":0.9}]`
// and returns the table for base.
func NormalizeJSON(base string, raw []byte) (RateTable, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return RateTable{}, ErrUnknownShape
	}

	switch trimmed[0] {
	case '{':
		var rates map[string]decimal.Decimal
		if err := json.Unmarshal(trimmed, &rates); err != nil {
			return RateTable{}, fmt.Errorf("decode rate map: %w", err)
		}
		return NewRateTable(base, rates)
	case '[':
		var pairs []Pair
		if err := json.Unmarshal(trimmed, &pairs); err != nil {
			return RateTable{}, fmt.Errorf("decode rate pairs: %w", err)
		}
		return FromPairs(base, pairs)
	default:
		return RateTable{}, ErrUnknownShape
	}
}

func (t RateTable) Base() string { return t.base }

// Len returns the number of quoted currencies.
func (t RateTable) Len() int { return len(t.rates) }

// Rate returns the rate of currency relative to the base.
func (t RateTable) Rate(currency string) (decimal.Decimal, bool) {
	if r, ok := t.rates[currency]; ok {
		return r, true
	}
	if currency != "" && strings.EqualFold(currency, t.base) {
		return decimal.NewFromInt(1), true
	}
	return decimal.Decimal{}, false
}
