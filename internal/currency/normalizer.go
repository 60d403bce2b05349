// Package currency converts provider-native amounts into the settlement
// currency using a fixed rate table.
package currency

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

const DefaultSettlementCurrency = "AOA"

// Normalizer is safe for concurrent use; the rate table is never mutated
// after construction.
type Normalizer struct {
	settlement string
	rates      map[string]decimal.Decimal
}

// DefaultRates are multipliers from each source currency into AOA.
func DefaultRates() map[string]decimal.Decimal {
	return map[string]decimal.Decimal{
		"AOA": decimal.NewFromInt(1),
		"USD": decimal.RequireFromString("912.50"),
		"EUR": decimal.RequireFromString("985.00"),
		"BRL": decimal.RequireFromString("165.00"),
		"ZAR": decimal.RequireFromString("49.60"),
		"MZN": decimal.RequireFromString("14.30"),
		"IDR": decimal.RequireFromString("0.056"),
	}
}

func NewNormalizer(settlement string, rates map[string]decimal.Decimal) *Normalizer {
	settlement = strings.ToUpper(strings.TrimSpace(settlement))
	if settlement == "" {
		settlement = DefaultSettlementCurrency
	}

	table := make(map[string]decimal.Decimal, len(rates)+1)
	for code, rate := range rates {
		table[strings.ToUpper(code)] = rate
	}
	table[settlement] = decimal.NewFromInt(1)

	return &Normalizer{settlement: settlement, rates: table}
}

func (n *Normalizer) SettlementCurrency() string {
	return n.settlement
}

func (n *Normalizer) Rate(currency string) (decimal.Decimal, bool) {
	rate, ok := n.rates[strings.ToUpper(strings.TrimSpace(currency))]
	return rate, ok
}

// Supported lists the known source currencies in a stable order.
func (n *Normalizer) Supported() []string {
	codes := make([]string, 0, len(n.rates))
	for code := range n.rates {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// Normalize converts amount in sourceCurrency to the settlement currency,
// rounded to cents. An unknown or empty currency is treated as already being
// in the settlement currency.
func (n *Normalizer) Normalize(ctx context.Context, amount decimal.Decimal, sourceCurrency string) decimal.Decimal {
	rate, ok := n.Rate(sourceCurrency)
	if !ok {
		log.Ctx(ctx).Warn().
			Str("component", "CurrencyNormalizer").
			Str("currency", sourceCurrency).
			Str("settlement_currency", n.settlement).
			Msg("unknown currency, passing amount through unconverted")
		rate = decimal.NewFromInt(1)
	}

	return amount.Mul(rate).Round(2)
}

// FromSettlement is the inverse of Normalize, used when a provider must be
// charged in its own currency.
func (n *Normalizer) FromSettlement(ctx context.Context, amount decimal.Decimal, targetCurrency string) decimal.Decimal {
	rate, ok := n.Rate(targetCurrency)
	if !ok || rate.IsZero() {
		log.Ctx(ctx).Warn().
			Str("component", "CurrencyNormalizer").
			Str("currency", targetCurrency).
			Msg("unknown currency, charging settlement amount unconverted")
		return amount.Round(2)
	}

	return amount.DivRound(rate, 2)
}

type rateFile struct {
	SettlementCurrency string            `yaml:"settlement_currency"`
	Rates              map[string]string `yaml:"rates"`
}

// LoadRates reads a YAML rate table:
//
//	settlement_currency: AOA
//	rates:
//	  USD: "912.50"
func LoadRates(path string) (string, map[string]decimal.Decimal, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", nil, fmt.Errorf("reading rate table: %w", err)
	}

	var file rateFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return "", nil, fmt.Errorf("parsing rate table: %w", err)
	}

	rates := make(map[string]decimal.Decimal, len(file.Rates))
	for code, value := range file.Rates {
		rate, err := decimal.NewFromString(value)
		if err != nil {
			return "", nil, fmt.Errorf("rate for %s: %w", code, err)
		}
		if !rate.IsPositive() {
			return "", nil, fmt.Errorf("rate for %s must be positive, got %s", code, value)
		}
		rates[code] = rate
	}

	return file.SettlementCurrency, rates, nil
}
