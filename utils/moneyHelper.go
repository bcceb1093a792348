package utils

import (
	"github.com/shopspring/decimal"
)

var decimalOneHundred = decimal.NewFromInt(100)

// CalculateItemAmount returns qty*rate - discount for a single line item.
// Discounts are absolute amounts; validation elsewhere keeps them within
// the line value, so the result is never negative for accepted input.
func CalculateItemAmount(qty decimal.Decimal, unitRate decimal.Decimal, discount decimal.Decimal) decimal.Decimal {
	return qty.Mul(unitRate).Sub(discount)
}

// CalculateSubtotal sums the given line amounts.
func CalculateSubtotal(amounts []decimal.Decimal) decimal.Decimal {
	var subtotal decimal.Decimal
	for _, amount := range amounts {
		subtotal = subtotal.Add(amount)
	}
	return subtotal
}

// CalculateTaxAmount returns subtotal * taxRate / 100, tax-exclusive.
// Multiplying before dividing keeps the rounding step last, so small
// subtotals do not lose precision to an intermediate round.
func CalculateTaxAmount(subtotal decimal.Decimal, taxRate decimal.Decimal) decimal.Decimal {
	if taxRate.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}
	return subtotal.Mul(taxRate).DivRound(decimalOneHundred, 4)
}

// CalculateTotal returns subtotal + tax.
func CalculateTotal(subtotal decimal.Decimal, taxAmount decimal.Decimal) decimal.Decimal {
	return subtotal.Add(taxAmount)
}
