package domain

import "github.com/shopspring/decimal"

// RoundPrice fixes a monetary amount to two decimal places, rounding half up.
// It is applied when a show price is assigned and when an order total is
// computed, never afterwards.
func RoundPrice(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// SumPrices adds ticket prices and rounds the result once.
func SumPrices(prices ...decimal.Decimal) decimal.Decimal {
	return RoundPrice(decimal.Sum(decimal.Zero, prices...))
}
