// Package currency converts transaction amounts into the canonical unit
// using a static, configuration-supplied rate table.
package currency

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Normalizer converts amounts in a given currency into the canonical unit
// by multiplying with a fixed rate. Rates are injected at construction so
// tests can supply alternates; there is no hidden global table.
type Normalizer struct {
	rates map[string]decimal.Decimal
	base  string
}

// New builds a Normalizer from a code -> multiplicative rate table.
// The base code is implied rate 1 whether or not it appears in the table.
func New(base string, rates map[string]decimal.Decimal) *Normalizer {
	copied := make(map[string]decimal.Decimal, len(rates))
	for code, rate := range rates {
		copied[normalizeCode(code)] = rate
	}
	return &Normalizer{rates: copied, base: normalizeCode(base)}
}

// Base returns the canonical currency code.
func (n *Normalizer) Base() string {
	return n.base
}

// Rate returns the multiplicative rate for a currency code. An unknown or
// absent code yields rate 1: the amount is assumed to already be canonical.
// This fail-open policy is deliberate, not an error.
func (n *Normalizer) Rate(code string) decimal.Decimal {
	if rate, ok := n.rates[normalizeCode(code)]; ok {
		return rate
	}
	return decimal.NewFromInt(1)
}

// Normalize converts amount in the given currency to the canonical unit.
// Pure and total: zero and negative amounts pass through with their sign;
// amount positivity is the caller's concern.
func (n *Normalizer) Normalize(amount decimal.Decimal, code string) decimal.Decimal {
	return amount.Mul(n.Rate(code))
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
