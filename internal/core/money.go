// Package core provides money parsing and handling utilities.
//
// This file contains functions for parsing monetary amounts from strings
// into integer minor units and formatting them back for display.
package core

import (
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// ValidateCurrency checks that code is a known ISO 4217 currency code.
func ValidateCurrency(code string) error {
	if strings.TrimSpace(code) == "" {
		return invalid("currency", "", ErrInvalidCurrency)
	}
	if code != strings.ToUpper(code) || money.GetCurrency(code) == nil {
		return invalid("currency", code, ErrInvalidCurrency)
	}
	return nil
}

// MinorDigits returns the number of fractional digits of a currency (2 for USD, 0 for JPY).
// Unknown currencies default to 2.
func MinorDigits(code string) int {
	if c := money.GetCurrency(code); c != nil {
		return c.Fraction
	}
	return 2
}

// ParseAmount converts a decimal string to minor units of the given currency.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators, ASCII
// digits only, and rounds half-up to the currency's precision. Negative
// values are rejected; zero is allowed since transactions may carry 0.
//
// Examples:
//
//	ParseAmount("12.34", "USD") -> 1234, nil
//	ParseAmount("12,345", "EUR") -> 1235, nil (rounds up)
//	ParseAmount("1500", "JPY") -> 1500, nil
func ParseAmount(s, currency string) (int64, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	digits := 0
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == '.':
		default:
			return 0, ErrInvalidAmount
		}
	}
	if digits == 0 {
		return 0, ErrInvalidAmount
	}

	if strings.HasPrefix(s, ".") {
		s = "0" + s
	}
	if strings.HasSuffix(s, ".") {
		s += "0"
	}
	d, err := decimal.NewFromString(s)
	if err != nil || d.IsNegative() {
		return 0, ErrInvalidAmount
	}

	places := int32(MinorDigits(currency))
	minor := d.Round(places).Shift(places)
	if !minor.BigInt().IsInt64() {
		return 0, ErrInvalidAmount
	}
	return minor.IntPart(), nil
}

// FormatAmount renders minor units with the currency's symbol and precision.
func FormatAmount(amount int64, currency string) string {
	return money.New(amount, currency).Display()
}
