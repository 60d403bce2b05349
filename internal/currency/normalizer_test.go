package currency

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize_EverySupportedCurrency(t *testing.T) {
	n := NewNormalizer("AOA", DefaultRates())
	amount := decimal.RequireFromString("59.90")

	for _, code := range n.Supported() {
		t.Run(code, func(t *testing.T) {
			rate, ok := n.Rate(code)
			require.True(t, ok)

			got := n.Normalize(context.Background(), amount, code)
			assert.True(t, amount.Mul(rate).Round(2).Equal(got), "got %s", got)
			assert.Equal(t, int32(-2), got.Round(2).Exponent())
		})
	}
}

func TestNormalize_KnownValues(t *testing.T) {
	n := NewNormalizer("AOA", DefaultRates())

	tests := []struct {
		amount   string
		currency string
		want     string
	}{
		{"5900", "AOA", "5900"},
		{"10", "USD", "9125"},
		{"6.47", "USD", "5903.88"},
		{"100000", "IDR", "5600"},
		{"1", "usd", "912.5"},
	}

	for _, tt := range tests {
		t.Run(tt.amount+tt.currency, func(t *testing.T) {
			got := n.Normalize(context.Background(), decimal.RequireFromString(tt.amount), tt.currency)
			assert.True(t, decimal.RequireFromString(tt.want).Equal(got), "got %s", got)
		})
	}
}

func TestNormalize_UnknownCurrencyPassesThrough(t *testing.T) {
	n := NewNormalizer("AOA", DefaultRates())

	got := n.Normalize(context.Background(), decimal.RequireFromString("5900"), "XYZ")
	assert.True(t, decimal.RequireFromString("5900").Equal(got))

	got = n.Normalize(context.Background(), decimal.RequireFromString("5900"), "")
	assert.True(t, decimal.RequireFromString("5900").Equal(got))
}

func TestNormalize_UnknownCurrencyLogsWithRequestLogger(t *testing.T) {
	n := NewNormalizer("AOA", DefaultRates())

	var buf bytes.Buffer
	ctx := zerolog.New(&buf).With().Str("request_id", "req-42").Logger().WithContext(context.Background())

	n.Normalize(ctx, decimal.RequireFromString("5900"), "XYZ")
	assert.Contains(t, buf.String(), `"request_id":"req-42"`)
	assert.Contains(t, buf.String(), `"currency":"XYZ"`)

	buf.Reset()
	n.FromSettlement(ctx, decimal.RequireFromString("5900"), "XYZ")
	assert.Contains(t, buf.String(), `"request_id":"req-42"`)
}

func TestFromSettlement_RoundTrip(t *testing.T) {
	n := NewNormalizer("AOA", DefaultRates())
	settlement := decimal.RequireFromString("5900")

	for _, code := range n.Supported() {
		native := n.FromSettlement(context.Background(), settlement, code)
		back := n.Normalize(context.Background(), native, code)

		rate, _ := n.Rate(code)
		// one cent of native rounding, scaled by the rate
		tolerance := rate.Mul(decimal.RequireFromString("0.01")).Add(decimal.RequireFromString("0.01"))
		assert.True(t, back.Sub(settlement).Abs().LessThanOrEqual(tolerance), "%s: %s -> %s", code, native, back)
	}
}

func TestNewNormalizer_SettlementAlwaysOne(t *testing.T) {
	n := NewNormalizer("usd", map[string]decimal.Decimal{"USD": decimal.NewFromInt(3)})

	rate, ok := n.Rate("USD")
	require.True(t, ok)
	assert.True(t, rate.Equal(decimal.NewFromInt(1)))
	assert.Equal(t, "USD", n.SettlementCurrency())
}

func TestLoadRates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rates.yaml")
	require.NoError(t, os.WriteFile(path, []byte("settlement_currency: AOA\nrates:\n  USD: \"900\"\n  EUR: 1000.5\n"), 0o600))

	settlement, rates, err := LoadRates(path)
	require.NoError(t, err)
	assert.Equal(t, "AOA", settlement)
	assert.True(t, rates["USD"].Equal(decimal.NewFromInt(900)))
	assert.True(t, rates["EUR"].Equal(decimal.RequireFromString("1000.5")))
}

func TestLoadRates_RejectsNonPositive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rates.yaml")
	require.NoError(t, os.WriteFile(path, []byte("rates:\n  USD: \"0\"\n"), 0o600))

	_, _, err := LoadRates(path)
	assert.Error(t, err)
}
