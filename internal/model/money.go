package model

import "github.com/shopspring/decimal"

// SyliusMinorUnits is the number of implied decimals in every Sylius amount.
// Sylius stores all currencies as integer x100, zero-decimal ones such as JPY
// included, so the scale does not follow CurrencyCode.
const SyliusMinorUnits = 2

// MinorToMajor converts a Sylius amount into major units, e.g. 12345 → 123.45.
func MinorToMajor(amount int64) float64 {
	return decimal.New(amount, -SyliusMinorUnits).InexactFloat64()
}
