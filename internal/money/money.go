// Package money derives order totals from line items.
//
// Accumulation is exact; rounding to two decimal places happens only when an
// amount is formatted for an external system.
package money

import (
	"fmt"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/angelmondragon/mycms-backend/pkg/errors"
)

const places = 2

// LineItem is the priced unit the calculator works on.
type LineItem struct {
	Quantity  int64
	UnitPrice decimal.Decimal
	Tax       decimal.Decimal
}

// Totals holds unrounded sums.
type Totals struct {
	Subtotal decimal.Decimal
	TotalTax decimal.Decimal
}

// Compute sums quantity*unitPrice and quantity*tax across items.
func Compute(items []LineItem) (Totals, error) {
	totals := Totals{Subtotal: decimal.Zero, TotalTax: decimal.Zero}
	var problems []string
	for i, item := range items {
		if item.Quantity <= 0 {
			problems = append(problems, fmt.Sprintf("items[%d].quantity must be positive", i))
		}
		if item.UnitPrice.IsNegative() {
			problems = append(problems, fmt.Sprintf("items[%d].unitPrice must not be negative", i))
		}
		if item.Tax.IsNegative() {
			problems = append(problems, fmt.Sprintf("items[%d].tax must not be negative", i))
		}
		if len(problems) > 0 {
			continue
		}
		qty := decimal.NewFromInt(item.Quantity)
		totals.Subtotal = totals.Subtotal.Add(qty.Mul(item.UnitPrice))
		totals.TotalTax = totals.TotalTax.Add(qty.Mul(item.Tax))
	}
	if len(problems) > 0 {
		return Totals{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid line items").
			WithDetails(map[string]any{"problems": problems})
	}
	return totals, nil
}

// Grand returns subtotal + tax + handling.
func (t Totals) Grand(handling decimal.Decimal) decimal.Decimal {
	return t.Subtotal.Add(t.TotalTax).Add(handling)
}

// Round rounds half away from zero to two places, which is half-up for the
// non-negative amounts this package produces.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(places)
}

// FormatAmount renders d with exactly two decimal places.
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(places)
}
