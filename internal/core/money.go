// Package core provides money parsing and handling utilities.
//
// This file contains the cent splitter used by installment series, signed
// decimal rendering, and parsing of user-entered amounts into cents.
package core

import (
	"errors"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// Money is a signed amount in cents.
type Money struct {
	Cents int64
}

var (
	ErrInvalidAmount = errors.New("invalid amount")
	ErrInvalidSplit  = errors.New("invalid split")

	maxCents = decimal.NewFromInt(math.MaxInt64 / 100)
)

// MaxSplitParts bounds the number of parts SplitCents produces: thirty years
// of monthly installments.
const MaxSplitParts = 360

// SplitCents divides total into n parts that sum exactly to total and differ
// by at most one cent. The first total%n parts carry the extra cent, so
// earlier installments absorb the remainder deterministically.
//
// Examples:
//
//	SplitCents(1000, 3) -> [334 333 333]
//	SplitCents(2, 4)    -> [1 1 0 0]
func SplitCents(total int64, n int) ([]int64, error) {
	if total < 0 || n < 1 || n > MaxSplitParts {
		return nil, ErrInvalidSplit
	}
	base := total / int64(n)
	remainder := total % int64(n)
	parts := make([]int64, n)
	for i := range parts {
		parts[i] = base
		if int64(i) < remainder {
			parts[i]++
		}
	}
	return parts, nil
}

// FormatSigned renders cents with the given sign (+1 or -1) using two
// decimals. Zero always renders as "0.00", never "-0.00".
func FormatSigned(cents int64, sign int) string {
	if sign < 0 {
		cents = -cents
	}
	return decimal.New(cents, -2).StringFixed(2)
}

// ParseDecimalToCents converts a positive decimal string to cents.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and rounds
// half-up on the third decimal place. Negative and zero amounts are rejected.
//
// Examples:
//
//	ParseDecimalToCents("12.34")  -> 1234, nil
//	ParseDecimalToCents("12,34")  -> 1234, nil
//	ParseDecimalToCents("12.345") -> 1235, nil
func ParseDecimalToCents(s string) (int64, error) {
	cents, err := ParseNonNegativeCents(s)
	if err != nil {
		return 0, err
	}
	if cents == 0 {
		return 0, ErrInvalidAmount
	}
	return cents, nil
}

// ParseNonNegativeCents is ParseDecimalToCents that also accepts zero, used
// for discounts.
func ParseNonNegativeCents(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.HasPrefix(s, "-") || strings.HasPrefix(s, "+") || strings.ContainsAny(s, "eE") {
		return 0, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	if d.IsNegative() || d.GreaterThan(maxCents) {
		return 0, ErrInvalidAmount
	}
	return d.Round(2).Shift(2).IntPart(), nil
}

func (m Money) String() string {
	return FormatSigned(m.Cents, 1)
}

// Abs returns the magnitude in cents.
func (m Money) Abs() int64 {
	if m.Cents < 0 {
		return -m.Cents
	}
	return m.Cents
}

func (m Money) Add(o Money) Money {
	return Money{Cents: m.Cents + o.Cents}
}

// Decimal exposes the amount for display arithmetic.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

// Signed applies the sign of a transaction type to a magnitude.
func Signed(t TransactionType, magnitude int64) Money {
	return Money{Cents: t.Sign() * magnitude}
}
