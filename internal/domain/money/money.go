// Package money provides a fixed-precision monetary amount.
//
// Every Money value holds exactly two decimal digits. Rounding (half away
// from zero) happens on construction and after every arithmetic operation,
// so fractional cents never accumulate across a computation.
package money

import (
	"github.com/shopspring/decimal"
)

// Money is an immutable monetary amount rounded to two decimal digits.
// The zero value is 0.00.
type Money struct {
	value decimal.Decimal
}

// New returns the Money value of v rounded to two decimal digits.
func New(v decimal.Decimal) Money {
	return Money{value: v.Round(2)}
}

// FromFloat returns the Money value of f rounded to two decimal digits.
func FromFloat(f float64) Money {
	return New(decimal.NewFromFloat(f))
}

// Zero returns the zero amount.
func Zero() Money {
	return Money{value: decimal.Zero}
}

// Add returns m + o, rounded.
func (m Money) Add(o Money) Money {
	return New(m.value.Add(o.value))
}

// Mul returns m scaled by factor, rounded.
func (m Money) Mul(factor decimal.Decimal) Money {
	return New(m.value.Mul(factor))
}

// MulInt returns m multiplied by the integer n, rounded.
func (m Money) MulInt(n int) Money {
	return New(m.value.Mul(decimal.NewFromInt(int64(n))))
}

// Equal reports whether two amounts are equal.
func (m Money) Equal(o Money) bool {
	return m.value.Equal(o.value)
}

// Decimal returns the underlying decimal value.
func (m Money) Decimal() decimal.Decimal {
	return m.value
}

// Float64 returns the amount as a float64. The result is exact for any
// amount representable as an integer number of cents within float64 range.
func (m Money) Float64() float64 {
	return m.value.InexactFloat64()
}

// String formats the amount with exactly two decimal digits, e.g. "15.00".
func (m Money) String() string {
	return m.value.StringFixed(2)
}

// MarshalJSON encodes the amount as a JSON number with two decimal digits.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.value.StringFixed(2)), nil
}

// UnmarshalJSON decodes a JSON number, rounding to two decimal digits.
func (m *Money) UnmarshalJSON(data []byte) error {
	d, err := decimal.NewFromString(string(data))
	if err != nil {
		return err
	}
	m.value = d.Round(2)
	return nil
}
