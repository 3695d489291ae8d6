// Package money provides fixed-decimal arithmetic for deal amounts.
// Floating point is never used for money: every value is backed by
// shopspring/decimal, which stores an arbitrary-precision integer
// coefficient plus an exponent, matching the nanounit scale TON (and most
// chains) use on the wire.
package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Scale is the minimum decimal scale money values are carried at,
// matching chain nanounit precision (1 TON = 1e9 nanoton).
const Scale = 9

// Money wraps decimal.Decimal so call sites can't accidentally mix it with
// a plain numeric type and skip the rounding rules below.
type Money struct {
	d decimal.Decimal
}

// Zero is the additive identity.
var Zero = Money{d: decimal.Zero}

// Parse reads a money value out of its canonical string form (as stored in
// price_ton-style columns).
func Parse(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, fmt.Errorf("money: parse %q: %w", s, err)
	}
	return Money{d: d}, nil
}

// MustParse panics on invalid input; only used for compile-time constants
// in tests and bootstrap code, never on user input.
func MustParse(s string) Money {
	m, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return m
}

func (m Money) String() string {
	return m.d.StringFixed(Scale)
}

// IsPositive reports whether the amount is strictly greater than zero.
// Deal.Amount is always validated against this before escrow creation.
func (m Money) IsPositive() bool {
	return m.d.IsPositive()
}

// Add returns m + other.
func (m Money) Add(other Money) Money {
	return Money{d: m.d.Add(other.d)}
}

// Sub returns m - other.
func (m Money) Sub(other Money) Money {
	return Money{d: m.d.Sub(other.d)}
}

// Mul returns m scaled by percent/100 (e.g. Mul(5) is 5%).
func (m Money) Mul(percent float64) Money {
	factor := decimal.NewFromFloat(percent).Div(decimal.NewFromInt(100))
	return Money{d: m.d.Mul(factor).Round(Scale)}
}

// ToNano converts to integer nanounits (scale 9), the unit the chain RPC
// expects in transfer messages.
func (m Money) ToNano() int64 {
	return m.d.Shift(Scale).Round(0).IntPart()
}

// FromNano converts integer nanounits back into a Money value.
func FromNano(nano int64) Money {
	return Money{d: decimal.NewFromInt(nano).Shift(-Scale)}
}

// Cmp compares m against other: -1, 0, or 1.
func (m Money) Cmp(other Money) int {
	return m.d.Cmp(other.d)
}

// LessThan reports whether m < other.
func (m Money) LessThan(other Money) bool {
	return m.d.LessThan(other.d)
}

// Split is the result of SubtractFee: fee + payout == the original amount.
type Split struct {
	Fee    Money
	Payout Money
}

// SubtractFee splits amount into {fee, payout} where fee = amount *
// percent/100, rounded half-even at Scale, and payout = amount - fee.
// Rounding half-even (banker's rounding) avoids systematically favoring
// either the platform or the payee across many deals.
func SubtractFee(amount Money, percent float64) Split {
	factor := decimal.NewFromFloat(percent).Div(decimal.NewFromInt(100))
	fee := amount.d.Mul(factor).RoundBank(Scale)
	payout := amount.d.Sub(fee)
	return Split{Fee: Money{d: fee}, Payout: Money{d: payout}}
}
