// Package money converts between decimal currency values and the int64
// minor units the ledger stores.
package money

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// Scale is the number of fractional digits in one currency unit.
const Scale = 2

// Currency is the display currency of every wallet.
const Currency = "PKR"

var (
	ErrTooPrecise = errors.New("amount has more than two fractional digits")
	ErrOverflow   = errors.New("amount exceeds representable range")

	maxMinor = decimal.NewFromInt(math.MaxInt64)
	minMinor = decimal.NewFromInt(math.MinInt64)
)

// ToMinor converts a decimal amount to minor units without rounding.
func ToMinor(d decimal.Decimal) (int64, error) {
	shifted := d.Shift(Scale)
	if !shifted.Equal(shifted.Truncate(0)) {
		return 0, fmt.Errorf("%s: %w", d.String(), ErrTooPrecise)
	}
	if shifted.GreaterThan(maxMinor) || shifted.LessThan(minMinor) {
		return 0, fmt.Errorf("%s: %w", d.String(), ErrOverflow)
	}
	return shifted.IntPart(), nil
}

// FromMinor converts minor units back to a decimal amount.
func FromMinor(minor int64) decimal.Decimal {
	return decimal.New(minor, -Scale)
}

// Format renders minor units with exactly two fractional digits.
func Format(minor int64) string {
	return FromMinor(minor).StringFixed(Scale)
}

// JSON renders minor units as a JSON number with two fractional digits.
func JSON(minor int64) json.Number {
	return json.Number(Format(minor))
}

// Sum adds minor-unit amounts, failing on overflow.
func Sum(amounts ...int64) (int64, error) {
	var total int64
	for _, a := range amounts {
		if (a > 0 && total > math.MaxInt64-a) || (a < 0 && total < math.MinInt64-a) {
			return 0, ErrOverflow
		}
		total += a
	}
	return total, nil
}
