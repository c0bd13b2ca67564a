// Package model defines domain entities used by services and repositories.
package model

import "github.com/shopspring/decimal"

// Money carries an amount in both store currencies. IQD is authoritative,
// USD is the legacy column kept for older reports.
type Money struct {
	IQD decimal.Decimal
	USD decimal.Decimal
}

// NewMoney builds Money from two decimal amounts.
func NewMoney(iqd, usd decimal.Decimal) Money {
	return Money{IQD: iqd, USD: usd}
}

// Add returns m + o in both currencies.
func (m Money) Add(o Money) Money {
	return Money{IQD: m.IQD.Add(o.IQD), USD: m.USD.Add(o.USD)}
}

// Mul returns m multiplied by a whole quantity.
func (m Money) Mul(qty int) Money {
	q := decimal.NewFromInt(int64(qty))
	return Money{IQD: m.IQD.Mul(q), USD: m.USD.Mul(q)}
}

// Equal compares both currencies numerically (scale-insensitive).
func (m Money) Equal(o Money) bool {
	return m.IQD.Equal(o.IQD) && m.USD.Equal(o.USD)
}

// IsNegative reports whether either amount is below zero.
func (m Money) IsNegative() bool {
	return m.IQD.IsNegative() || m.USD.IsNegative()
}
