package core

// convert.go provides the total coercion functions applied to every cell.
// None of them fail: unparseable input becomes the zero value.

import (
	"math"
	"strconv"
	"strings"
)

// CoerceText trims surrounding whitespace.
func CoerceText(raw string) string {
	return strings.TrimSpace(raw)
}

// CoerceInt parses raw as a decimal number and truncates it toward zero.
//
//	CoerceInt("12")   == 12
//	CoerceInt("12.9") == 12
//	CoerceInt("-5")   == -5
//	CoerceInt("12,0") == 0  // comma decimals are not recognised
//	CoerceInt("abc")  == 0
//	CoerceInt("")     == 0
//
// NaN, infinities and values outside the int64 range also yield 0.
func CoerceInt(raw string) int64 {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}

	f = math.Trunc(f)
	if f < math.MinInt64 || f >= math.MaxInt64 {
		return 0
	}
	return int64(f)
}
