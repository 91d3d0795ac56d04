package fx

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fxledger/internal/core"
)

func TestLegacyPairsAndMapConvertIdentically(t *testing.T) {
	fromMap, err := NormalizeJSON("USD", []byte(`{"USD":1,"EUR":0.9,"GBP":0.8}`))
	require.NoError(t, err)
	fromPairs, err := NormalizeJSON("USD", []byte(`[
		{"currency":"USD","rate":1},
		{"currency":"EUR","rate":0.9},
		{"currency":"GBP","rate":0.8}
	]`))
	require.NoError(t, err)

	c := NewConverter(nil)
	pairs := [][2]string{{"EUR", "USD"}, {"GBP", "EUR"}, {"USD", "GBP"}, {"GBP", "USD"}}
	for _, p := range pairs {
		for _, amount := range []int64{1, 500, 1000, 987654} {
			assert.Equal(t,
				c.Convert(amount, p[0], p[1], fromMap),
				c.Convert(amount, p[0], p[1], fromPairs),
				"%d %s->%s", amount, p[0], p[1])
		}
	}
	assert.Equal(t, 3, fromPairs.Len())
}

func TestFromPairsFirstEntryWins(t *testing.T) {
	table, err := FromPairs("USD", []Pair{
		{Currency: "EUR", Rate: decimal.RequireFromString("0.9")},
		{Currency: "EUR", Rate: decimal.RequireFromString("0.5")},
	})
	require.NoError(t, err)
	r, ok := table.Rate("EUR")
	require.True(t, ok)
	assert.Equal(t, "0.9", r.String())
}

func TestRateTableBaseIsImplicitlyOne(t *testing.T) {
	table, err := NewRateTable("EUR", map[string]decimal.Decimal{"USD": decimal.RequireFromString("1.1")})
	require.NoError(t, err)

	r, ok := table.Rate("EUR")
	require.True(t, ok)
	assert.True(t, r.Equal(decimal.NewFromInt(1)))

	_, ok = table.Rate("GBP")
	assert.False(t, ok)
}

func TestNonPositiveRatesRejected(t *testing.T) {
	for _, raw := range []string{`{"EUR":0}`, `{"EUR":-0.9}`, `[{"currency":"EUR","rate":0}]`} {
		_, err := NormalizeJSON("USD", []byte(raw))
		var verr *core.ValidationError
		require.ErrorAs(t, err, &verr, raw)
		assert.ErrorIs(t, err, ErrNonPositiveRate)
	}
}

func TestNormalizeJSONRejectsOtherShapes(t *testing.T) {
	for _, raw := range []string{``, `  `, `"EUR"`, `42`} {
		_, err := NormalizeJSON("USD", []byte(raw))
		assert.ErrorIs(t, err, ErrUnknownShape, raw)
	}

	_, err := NormalizeJSON("USD", []byte(`{"EUR":"abc"}`))
	assert.Error(t, err)
}

func TestFromSnapshot(t *testing.T) {
	table, err := FromSnapshot(core.RateSnapshot{
		BaseCurrency: "USD",
		Rates:        map[string]decimal.Decimal{"JPY": decimal.RequireFromString("151.37")},
		LastUpdated:  time.Now(),
	})
	require.NoError(t, err)
	assert.Equal(t, "USD", table.Base())
	assert.Equal(t, int64(15137), NewConverter(nil).Convert(100, "USD", "JPY", table))
}
