// =============================================================================
// Plano de Aplicação Converter - Value Transformations
// =============================================================================
//
// This module converts the cleaned monetary text captured from the document
// into numbers.
//
// AMOUNT FORMAT:
//   Amounts are printed the Brazilian way: "R$ 1.234,56".
//     - "R$" and any spacing are dropped
//     - "." is a thousands separator, "," the decimal separator
//     - an amount without a comma is only treated as having thousands
//       separators when every group after the first has three digits
//       ("1.000" is one thousand, "1.5" stays one and a half)
//
// Totals across a document are kept in integer centavos with go-money so the
// summary never accumulates float error.
//
// =============================================================================

package converter

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// CurrencyCode is the ISO-4217 code of every amount in a Plano de Aplicação.
const CurrencyCode = "BRL"

var errEmptyAmount = errors.New("empty amount")

// thousandsOnly matches "1.000" or "12.345.678" with no decimal part.
var thousandsOnly = regexp.MustCompile(`^-?\d{1,3}(?:\.\d{3})+$`)

// plainNumber is what remains of an amount once separators are normalized.
// Exponents such as "1e5" are not amounts.
var plainNumber = regexp.MustCompile(`^-?\d+(?:\.\d+)?$`)

// ParseAmount converts a monetary string such as "R$ 1.234,56" to a decimal.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.ReplaceAll(s, "R$", "")
	s = strings.Join(strings.Fields(s), "")
	if s == "" {
		return decimal.Zero, errEmptyAmount
	}

	switch {
	case strings.Contains(s, ","):
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	case thousandsOnly.MatchString(s):
		s = strings.ReplaceAll(s, ".", "")
	}

	if !plainNumber.MatchString(s) {
		return decimal.Zero, fmt.Errorf("invalid amount: %q", s)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount: %w", err)
	}
	return d, nil
}

// =============================================================================
// TOTALS
// =============================================================================

// AmountTotal sums amounts in centavos.
type AmountTotal struct {
	m *money.Money
}

// NewAmountTotal returns a zero total.
func NewAmountTotal() *AmountTotal {
	return &AmountTotal{m: money.New(0, CurrencyCode)}
}

// Add adds d, rounded to centavos.
func (t *AmountTotal) Add(d decimal.Decimal) {
	cents := d.Mul(decimal.New(100, 0)).Round(0).IntPart()
	sum, err := t.m.Add(money.New(cents, CurrencyCode))
	if err != nil {
		// Both operands share CurrencyCode.
		return
	}
	t.m = sum
}

// Merge adds another total.
func (t *AmountTotal) Merge(other *AmountTotal) {
	if other == nil {
		return
	}
	if sum, err := t.m.Add(other.m); err == nil {
		t.m = sum
	}
}

// Cents returns the total in centavos.
func (t *AmountTotal) Cents() int64 {
	return t.m.Amount()
}

// Display formats the total as "R$1.234,56".
func (t *AmountTotal) Display() string {
	return t.m.Display()
}
