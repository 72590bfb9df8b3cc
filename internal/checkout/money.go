package checkout

import "github.com/shopspring/decimal"

// Currency is the only currency the shop charges in.
const Currency = "usd"

// MinorUnits converts a major-unit amount to cents, rounding half away from zero.
func MinorUnits(amount float64) int64 {
	return decimal.NewFromFloat(amount).Shift(2).Round(0).IntPart()
}
