/*
Package billing provides the rental billing calculation engine.

PURPOSE:
  This package contains the pure calculation core of the rental management
  system: billing-cycle boundaries, metered and fixed utility charges,
  overdue penalties, move-out proration, and the deposit application policy
  that decides what a departing tenant owes or is owed.

KEY CONCEPTS IN THIS FILE (money.go):
  - Money: A currency amount backed by decimal.Decimal
  - Rounding: half-up, applied explicitly where a contract requires it

DESIGN PRINCIPLES:
  1. Purity: Every function reads only its arguments and returns new values.
     No I/O, no globals, no hidden state. Safe for concurrent callers.
  2. Precision: Uses decimal.Decimal to avoid floating-point errors in
     currency math.
  3. Loud failure: Invalid inputs (meter regressions, bad cycle numbers)
     return errors instead of silently clamped values.

USAGE:
  rent := billing.NewMoney(10000)
  cycle, err := billing.CycleFor(start, 3)
  charge, err := billing.ElectricityCharge(present, previous, rate)

SEE ALSO:
  - cycle.go: Billing period boundaries
  - charges.go: Electricity, water, penalty, prorated rent
  - deposit.go: Deposit application and forfeiture policy
  - settlement.go: Move-out settlement composition
*/
package billing

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// MONEY - Currency amount
// =============================================================================

// Money is a currency amount. All bill components, deposits, and settlement
// figures are Money values; meter readings and rates use raw decimals.
type Money struct {
	Value decimal.Decimal
}

func NewMoney(value float64) Money {
	return Money{Value: decimal.NewFromFloat(value)}
}

func NewMoneyFromInt(value int) Money {
	return Money{Value: decimal.NewFromInt(int64(value))}
}

func ZeroMoney() Money {
	return Money{Value: decimal.Zero}
}

// MustParseMoney parses a decimal string, returning zero on malformed input.
// Intended for constants and storage round-trips, not user input.
func MustParseMoney(s string) Money {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return ZeroMoney()
	}
	return Money{Value: d}
}

func (m Money) Add(b Money) Money              { return Money{Value: m.Value.Add(b.Value)} }
func (m Money) Sub(b Money) Money              { return Money{Value: m.Value.Sub(b.Value)} }
func (m Money) Mul(s decimal.Decimal) Money    { return Money{Value: m.Value.Mul(s)} }
func (m Money) Div(s decimal.Decimal) Money    { return Money{Value: m.Value.Div(s)} }
func (m Money) Neg() Money                     { return Money{Value: m.Value.Neg()} }
func (m Money) IsNegative() bool               { return m.Value.IsNegative() }
func (m Money) IsZero() bool                   { return m.Value.IsZero() }
func (m Money) IsPositive() bool               { return m.Value.IsPositive() }
func (m Money) Equal(b Money) bool             { return m.Value.Equal(b.Value) }
func (m Money) GreaterThan(b Money) bool       { return m.Value.GreaterThan(b.Value) }
func (m Money) GreaterOrEqual(b Money) bool    { return m.Value.GreaterThanOrEqual(b.Value) }
func (m Money) LessThan(b Money) bool          { return m.Value.LessThan(b.Value) }
func (m Money) Min(b Money) Money              { if m.LessThan(b) { return m }; return b }
func (m Money) Max(b Money) Money              { if m.GreaterThan(b) { return m }; return b }
func (m Money) String() string                 { return m.Value.String() }

// RoundCentavos rounds half-up to 2 decimal places. Used for metered charges
// and penalties, where rates can produce sub-centavo fractions.
func (m Money) RoundCentavos() Money {
	return Money{Value: m.Value.Round(2)}
}

// RoundWhole rounds half-up to a whole currency unit. Used for prorated rent,
// whose contract specifies whole-unit rounding.
func (m Money) RoundWhole() Money {
	return Money{Value: m.Value.Round(0)}
}
