package models

import "github.com/shopspring/decimal"

func init() {
	// Amounts are JSON numbers on the wire, not quoted strings.
	decimal.MarshalJSONWithoutQuotes = true
}

// Cents is the number of decimal places currency values are rounded to.
const Cents = 2

// RoundCents rounds d to two decimal places, half away from zero.
func RoundCents(d decimal.Decimal) decimal.Decimal {
	return d.Round(Cents)
}
