// Package core holds the expense domain model, input validation and the
// arithmetic used for totals.
//
// Amounts are stored as float64 but summed as decimals so that totals such
// as 2.75 + 12.00 come out as 14.75 rather than 14.749999....
package core

import "github.com/shopspring/decimal"

// Money is a decimal accumulator for currency amounts.
type Money struct {
	d decimal.Decimal
}

// Zero returns an empty accumulator.
func Zero() Money {
	return Money{d: decimal.Zero}
}

// FromFloat converts a stored amount to Money.
func FromFloat(f float64) Money {
	return Money{d: decimal.NewFromFloat(f)}
}

// Add returns m + o.
func (m Money) Add(o Money) Money {
	return Money{d: m.d.Add(o.d)}
}

// Float64 returns the nearest float64 to m.
func (m Money) Float64() float64 {
	return m.d.InexactFloat64()
}

// Total sums the amounts of expenses. An empty slice totals 0.
func Total(expenses []Expense) float64 {
	sum := Zero()
	for _, e := range expenses {
		sum = sum.Add(FromFloat(e.Amount))
	}
	return sum.Float64()
}
