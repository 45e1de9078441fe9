// Package scale converts between on-chain integer amounts and human-scale
// decimals.
package scale

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// RatioPrecision is the number of decimal places kept by Ratio.
const RatioPrecision = 18

const secondsPerDay = 86400

// WeightDecimals is the fixed-point precision of pool weights and fee percentages.
const WeightDecimals = 18

// ToDecimal scales an integer amount down by the token's decimals.
func ToDecimal(amount *big.Int, decimals uint8) decimal.Decimal {
	if amount == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(amount, -int32(decimals))
}

// FromDecimal scales a human amount back up, truncating sub-unit dust.
func FromDecimal(value decimal.Decimal, decimals uint8) *big.Int {
	return value.Shift(int32(decimals)).Truncate(0).BigInt()
}

// Ratio returns num/den rounded to RatioPrecision places. ok is false when
// den is zero.
func Ratio(num, den decimal.Decimal) (decimal.Decimal, bool) {
	if den.IsZero() {
		return decimal.Zero, false
	}
	return num.DivRound(den, RatioPrecision), true
}

// BucketStart returns the start of the window containing ts.
func BucketStart(ts, window int64) int64 {
	if window <= 0 {
		return ts
	}
	return ts - (ts % window)
}

// DayID returns the day bucket of a unix timestamp.
func DayID(ts int64) int64 {
	return BucketStart(ts, secondsPerDay) / secondsPerDay
}

// DayStart returns the first second of a day bucket.
func DayStart(dayID int64) int64 {
	return dayID * secondsPerDay
}
