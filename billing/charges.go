/*
charges.go - Individual bill component calculators

PURPOSE:
  Computes each charge that makes up a bill: metered electricity, the fixed
  water charge, the flat overdue penalty, and the prorated rent for a
  partial final cycle.

ROUNDING POLICY:
  - Electricity and penalty: half-up to 2 decimal places (centavos), since
    rates and percentages can produce sub-centavo fractions.
  - Prorated rent: half-up to a whole currency unit. Downstream settlement
    totals depend on this being applied here, exactly once.

VALIDATION:
  ElectricityCharge rejects a present reading below the previous reading.
  Negative consumption means a mis-keyed reading upstream; returning a
  negative (or zero) charge would hide it. Callers validate readings before
  a bill is generated and surface the expected minimum to the operator.

SEE ALSO:
  - cycle.go: Period boundaries consumed by ProratedRent
  - settlement.go: Composes these into the move-out settlement
*/
package billing

import "github.com/shopspring/decimal"

// =============================================================================
// ELECTRICITY - Metered charge
// =============================================================================

// ElectricityCharge returns (present - previous) * rate, rounded to
// centavos. Readings are kWh; rate is currency per kWh.
//
// Returns *MeterRegressionError (wrapping ErrMeterRegression) when present
// is below previous. It never produces a negative charge.
func ElectricityCharge(present, previous decimal.Decimal, rate Money) (Money, error) {
	if present.LessThan(previous) {
		return ZeroMoney(), &MeterRegressionError{
			Present:  present.String(),
			Previous: previous.String(),
		}
	}
	consumed := present.Sub(previous)
	return rate.Mul(consumed).RoundCentavos(), nil
}

// =============================================================================
// WATER - Fixed charge
// =============================================================================

// WaterCharge returns the branch's fixed per-cycle water rate.
//
// Water is NOT metered: every occupied room in a branch pays the same flat
// amount per cycle regardless of consumption. The function exists so the
// charge has one named home rather than being inlined at call sites.
func WaterCharge(branchRate Money) Money {
	return branchRate
}

// =============================================================================
// PENALTY - Flat one-time overdue charge
// =============================================================================

// Penalty returns the overdue penalty for a bill: zero when today is on or
// before the due date, otherwise originalTotal * percent/100, rounded to
// centavos.
//
// The penalty is flat and applied once a bill becomes overdue. It does NOT
// compound with days overdue: 1 day late and 90 days late cost the same.
// The percentage is an externally configured setting injected by the
// caller (default 5), never read from ambient state here.
func Penalty(originalTotal Money, today, dueDate Date, percent decimal.Decimal) Money {
	if today.BeforeOrEqual(dueDate) {
		return ZeroMoney()
	}
	return originalTotal.Mul(percent).Div(decimal.NewFromInt(100)).RoundCentavos()
}

// =============================================================================
// PRORATED RENT - Partial final cycle
// =============================================================================

// ProratedRent returns the rent owed for the days actually occupied within
// a billing cycle, rounded half-up to a whole currency unit:
//
//	totalDays    = periodEnd - periodStart + 1   (inclusive)
//	daysOccupied = min(actualEnd, periodEnd) - periodStart + 1
//	rent         = round(monthlyRent / totalDays * daysOccupied)
//
// A full occupancy (actualEnd >= periodEnd) returns the full monthly rent
// unrounded, avoiding a needless divide of an already-exact amount.
//
// Returns *ProrationError (wrapping ErrInvalidProration) when the period is
// inverted or the occupancy ends before the period starts. The latter means
// the caller picked the wrong cycle for the move-out date; charging zero
// silently would mask that.
func ProratedRent(monthlyRent Money, periodStart, periodEnd, actualEnd Date) (Money, error) {
	if periodEnd.Before(periodStart) {
		return ZeroMoney(), &ProrationError{
			PeriodStart: periodStart, PeriodEnd: periodEnd, ActualEnd: actualEnd,
			Reason: "period end before period start",
		}
	}
	if actualEnd.Before(periodStart) {
		return ZeroMoney(), &ProrationError{
			PeriodStart: periodStart, PeriodEnd: periodEnd, ActualEnd: actualEnd,
			Reason: "occupancy ends before period starts",
		}
	}

	if actualEnd.AfterOrEqual(periodEnd) {
		return monthlyRent, nil
	}

	totalDays := DaysBetween(periodStart, periodEnd) + 1
	daysOccupied := DaysBetween(periodStart, actualEnd) + 1

	return monthlyRent.
		Div(decimal.NewFromInt(int64(totalDays))).
		Mul(decimal.NewFromInt(int64(daysOccupied))).
		RoundWhole(), nil
}
