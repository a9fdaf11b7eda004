package domain

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// Truthy reports whether an intake value counts as set: nil, false,
// the empty string and numeric zero are falsy, everything else is truthy.
func Truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	case float64:
		return x != 0
	case float32:
		return x != 0
	case int:
		return x != 0
	case int64:
		return x != 0
	case json.Number:
		d, err := decimal.NewFromString(x.String())
		return err != nil || !d.IsZero()
	case decimal.Decimal:
		return !x.IsZero()
	}
	return true
}

// Count reads a non-negative whole number from an intake value.
// Strings contribute their leading digits; absent, blank or
// unparseable values and negatives yield zero.
func Count(v any) decimal.Decimal {
	switch x := v.(type) {
	case string:
		return leadingDigits(x)
	case json.Number:
		return leadingDigits(x.String())
	case float64:
		return nonNegative(decimal.NewFromFloat(x).Truncate(0))
	case float32:
		return nonNegative(decimal.NewFromFloat32(x).Truncate(0))
	case int:
		return nonNegative(decimal.NewFromInt(int64(x)))
	case int64:
		return nonNegative(decimal.NewFromInt(x))
	case decimal.Decimal:
		return nonNegative(x.Truncate(0))
	}
	return decimal.Zero
}

func leadingDigits(s string) decimal.Decimal {
	s = strings.TrimPrefix(strings.TrimSpace(s), "+")
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s[:end])
	if err != nil {
		return decimal.Zero
	}
	return d
}

func nonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
