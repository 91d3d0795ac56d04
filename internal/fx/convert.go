package fx

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/shopspring/decimal"

	"fxledger/internal/core"
	"fxledger/internal/log"
)

// DivisionPrecision is the number of decimal places kept when dividing by a rate.
const DivisionPrecision = 16

// MissingRate describes a conversion that fell back to 1:1.
type MissingRate struct {
	Amount int64
	From   string
	To     string
	Base   string
}

// Observer is notified when a conversion degrades to identity.
type Observer interface {
	MissingRate(ctx context.Context, m MissingRate)
}

// Converter converts amounts and counts degraded conversions.
type Converter struct {
	logger   *log.Logger
	observer Observer
	degraded atomic.Int64
}

func NewConverter(logger *log.Logger) *Converter {
	if logger == nil {
		logger = log.Discard()
	}
	return &Converter{logger: logger.WithComponent(log.ComponentFX)}
}

// WithObserver registers an additional observer for missing rates.
func (c *Converter) WithObserver(o Observer) *Converter {
	c.observer = o
	return c
}

// Degraded returns how many conversions fell back to 1:1 since construction.
func (c *Converter) Degraded() int64 {
	return c.degraded.Load()
}

// Convert converts amount from one currency to another as
// round(amount / rate[from] * rate[to]), half away from zero.
//
// When either rate is missing both are taken as 1 and the miss is reported.
func (c *Converter) Convert(amount int64, from, to string, table RateTable) int64 {
	return c.ConvertContext(context.Background(), amount, from, to, table)
}

func (c *Converter) ConvertContext(ctx context.Context, amount int64, from, to string, table RateTable) int64 {
	if from == to || amount == 0 {
		return amount
	}

	fromRate, okFrom := table.Rate(from)
	toRate, okTo := table.Rate(to)
	if !okFrom || !okTo {
		c.reportMissing(ctx, MissingRate{Amount: amount, From: from, To: to, Base: table.Base()})
		return amount
	}

	return apply(amount, fromRate, toRate)
}

// ConvertChecked rejects negative amounts and empty currency codes instead of converting.
func (c *Converter) ConvertChecked(ctx context.Context, amount int64, from, to string, table RateTable) (int64, error) {
	if amount < 0 {
		return 0, &core.ValidationError{Field: "amount", Value: fmt.Sprint(amount), Err: core.ErrInvalidAmount}
	}
	if strings.TrimSpace(from) == "" {
		return 0, &core.ValidationError{Field: "from_currency", Err: core.ErrInvalidCurrency}
	}
	if strings.TrimSpace(to) == "" {
		return 0, &core.ValidationError{Field: "to_currency", Err: core.ErrInvalidCurrency}
	}
	return c.ConvertContext(ctx, amount, from, to, table), nil
}

func (c *Converter) reportMissing(ctx context.Context, m MissingRate) {
	c.degraded.Add(1)
	c.logger.WarnContext(ctx, "Missing exchange rate, converting 1:1",
		log.NewFields().
			WithOperation(log.OpConvert).
			WithErrorType(log.ErrorTypeMissingRate).
			WithConversion(m.Amount, m.From, m.To, m.Base).
			ToSlice()...)
	if c.observer != nil {
		c.observer.MissingRate(ctx, m)
	}
}

func apply(amount int64, fromRate, toRate decimal.Decimal) int64 {
	// multiply first so an exact .5 quotient terminates and rounds up
	v := decimal.NewFromInt(amount).
		Mul(toRate).
		DivRound(fromRate, DivisionPrecision).
		Round(0)
	return v.IntPart()
}
