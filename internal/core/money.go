// Package core holds the money, calendar and payoff primitives for the
// budget planner.
//
// This file contains the minor-unit money representation and the
// conversions between cents and decimal dollar amounts. Every iterative
// balance computation in the repository works on cents; float64 appears
// only at the input/output boundary.
package core

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Money is a currency amount in integer cents. On the JSON boundary it
// reads and writes decimal major units.
type Money struct {
	Cents int64
}

// MarshalJSON writes the amount as a decimal number in major units.
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.Amount())
}

// UnmarshalJSON accepts either a decimal number or an amount string.
func (m *Money) UnmarshalJSON(data []byte) error {
	var v float64
	if err := json.Unmarshal(data, &v); err == nil {
		m.Cents = CentsFromAmount(v)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*m = ParseAmount(s)
		return nil
	}
	return fmt.Errorf("invalid money value %s", data)
}

// CentsFromAmount converts a decimal dollar amount to cents, rounding
// half away from zero at the hundredths place.
//
// Examples:
//
//	CentsFromAmount(12.34)  -> 1234
//	CentsFromAmount(12.345) -> 1235
//	CentsFromAmount(-0.005) -> -1
func CentsFromAmount(amount float64) int64 {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return 0
	}
	return int64(math.Round(amount * 100))
}

// Amount returns the decimal dollar value. Exact inverse of
// CentsFromAmount for every representable cent count.
func (m Money) Amount() float64 {
	return float64(m.Cents) / 100.0
}

// ParseAmount converts a user-entered amount string to cents. Invalid,
// non-finite or negative input normalizes to 0; it never errors. Both
// dot and comma decimal separators are accepted.
func ParseAmount(s string) Money {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}
	}
	s = strings.ReplaceAll(s, ",", ".")
	s = strings.TrimPrefix(s, "$")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return Money{}
	}
	return Money{Cents: CentsFromAmount(v)}
}

// FormatDollars renders cents as a dollar string for display, e.g.
// 145000 -> "$1450.00". Calculations never consume this output.
func FormatDollars(cents int64) string {
	neg := cents < 0
	if neg {
		cents = -cents
	}
	s := fmt.Sprintf("$%d.%02d", cents/100, cents%100)
	if neg {
		return "-" + s
	}
	return s
}
