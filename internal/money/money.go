package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Amount is a monetary value with two fractional digits. It embeds
// decimal.Decimal so gorm and encoding/json handle it directly.
type Amount struct {
	decimal.Decimal
}

var Zero = Amount{}

func New(d decimal.Decimal) Amount { return Amount{d.Round(2)} }

// Parse reads a decimal string like "840.00".
func Parse(s string) (Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}, fmt.Errorf("parse amount %q: %w", s, err)
	}
	return New(d), nil
}

func FromInt(n int64) Amount { return Amount{decimal.NewFromInt(n)} }

func (a Amount) Add(b Amount) Amount { return Amount{a.Decimal.Add(b.Decimal)} }
func (a Amount) Sub(b Amount) Amount { return Amount{a.Decimal.Sub(b.Decimal)} }

// Mul keeps full precision; callers round when presenting or persisting.
func (a Amount) Mul(d decimal.Decimal) Amount { return Amount{a.Decimal.Mul(d)} }

func (a Amount) Round2() Amount { return Amount{a.Decimal.Round(2)} }

func (a Amount) Equal(b Amount) bool        { return a.Decimal.Equal(b.Decimal) }
func (a Amount) GreaterThan(b Amount) bool  { return a.Decimal.GreaterThan(b.Decimal) }
func (a Amount) LessThan(b Amount) bool     { return a.Decimal.LessThan(b.Decimal) }
func (a Amount) IsZero() bool               { return a.Decimal.IsZero() }
func (a Amount) IsPositive() bool           { return a.Decimal.IsPositive() }

// Cents returns the amount in minor currency units, the form the payment
// processor expects.
func (a Amount) Cents() int64 {
	return a.Decimal.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// Within reports whether min <= a <= max.
func (a Amount) Within(min, max Amount) bool {
	return !a.LessThan(min) && !a.GreaterThan(max)
}
