package fx

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fxledger/internal/core"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func usdTable(t *testing.T) RateTable {
	t.Helper()
	table, err := NewRateTable("USD", map[string]decimal.Decimal{
		"USD": d("1"),
		"EUR": d("0.9"),
		"GBP": d("0.8"),
	})
	require.NoError(t, err)
	return table
}

type recordingObserver struct {
	mu     sync.Mutex
	misses []MissingRate
}

func (r *recordingObserver) MissingRate(_ context.Context, m MissingRate) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.misses = append(r.misses, m)
}

func TestConvertScenarios(t *testing.T) {
	table := usdTable(t)
	c := NewConverter(nil)

	tests := []struct {
		name   string
		amount int64
		from   string
		to     string
		want   int64
	}{
		{"eur income into usd", 1000, "EUR", "USD", 1111},
		{"gbp outgoing leg into usd", 500, "GBP", "USD", 625},
		{"gbp incoming leg into eur rounds half up", 500, "GBP", "EUR", 563},
		{"usd into eur", 1000, "USD", "EUR", 900},
		{"zero", 0, "EUR", "USD", 0},
		{"identity", 123456, "GBP", "GBP", 123456},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Convert(tt.amount, tt.from, tt.to, table))
		})
	}
	assert.Zero(t, c.Degraded())
}

func TestConvertExactTiesRoundUp(t *testing.T) {
	table, err := NewRateTable("USD", map[string]decimal.Decimal{
		"AUD": d("3"),
		"CAD": d("1.5"),
	})
	require.NoError(t, err)
	c := NewConverter(nil)

	tests := []struct {
		amount int64
		want   int64
	}{
		{1, 1},      // 0.5
		{7, 4},      // 3.5
		{1003, 502}, // 501.5
		{4, 2},      // 2.0
		{5, 3},      // 2.5
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, c.Convert(tt.amount, "AUD", "CAD", table), "amount %d", tt.amount)
	}
}

func TestConvertIdentityIgnoresTable(t *testing.T) {
	c := NewConverter(nil)
	for _, amount := range []int64{0, 1, 99, 1 << 40} {
		assert.Equal(t, amount, c.Convert(amount, "XYZ", "XYZ", RateTable{}))
	}
	assert.Zero(t, c.Degraded(), "identity never consults the table")
}

func TestConvertRoundTripWithinOneMinorUnit(t *testing.T) {
	table, err := NewRateTable("USD", map[string]decimal.Decimal{
		"EUR": d("0.9123"),
		"GBP": d("0.7871"),
		"CHF": d("0.8841"),
		"CAD": d("1.3702"),
	})
	require.NoError(t, err)
	c := NewConverter(nil)

	currencies := []string{"USD", "EUR", "GBP", "CHF"}
	for _, a := range currencies {
		for _, b := range currencies {
			for amount := int64(0); amount <= 5000; amount += 7 {
				back := c.Convert(c.Convert(amount, a, b, table), b, a, table)
				diff := back - amount
				if diff < -1 || diff > 1 {
					t.Fatalf("%d %s->%s->%s = %d", amount, a, b, a, back)
				}
			}
		}
	}
}

func TestConvertMissingRateFallsBackAndIsObservable(t *testing.T) {
	table := usdTable(t)
	obs := &recordingObserver{}
	c := NewConverter(nil).WithObserver(obs)

	assert.Equal(t, int64(1000), c.Convert(1000, "JPY", "USD", table))
	assert.Equal(t, int64(250), c.Convert(250, "EUR", "CHF", table))
	assert.Equal(t, int64(2), c.Degraded())

	require.Len(t, obs.misses, 2)
	assert.Equal(t, MissingRate{Amount: 1000, From: "JPY", To: "USD", Base: "USD"}, obs.misses[0])
	assert.Equal(t, "CHF", obs.misses[1].To)
}

func TestConvertDegradedCounterIsConcurrencySafe(t *testing.T) {
	c := NewConverter(nil)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Convert(10, "AAA", "BBB", RateTable{})
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(50), c.Degraded())
}

func TestConvertChecked(t *testing.T) {
	table := usdTable(t)
	c := NewConverter(nil)
	ctx := context.Background()

	got, err := c.ConvertChecked(ctx, 1000, "EUR", "USD", table)
	require.NoError(t, err)
	assert.Equal(t, int64(1111), got)

	var verr *core.ValidationError
	_, err = c.ConvertChecked(ctx, -1, "EUR", "USD", table)
	require.ErrorAs(t, err, &verr)
	assert.ErrorIs(t, err, core.ErrInvalidAmount)

	_, err = c.ConvertChecked(ctx, 1, "", "USD", table)
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "from_currency", verr.Field)

	_, err = c.ConvertChecked(ctx, 1, "USD", " ", table)
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "to_currency", verr.Field)
}
