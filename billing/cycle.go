/*
cycle.go - Billing period boundaries

PURPOSE:
  Computes the calendar span of a tenant's monthly billing cycle from the
  rent start date and a 1-based cycle number.

KEY INSIGHT:
  Every boundary is derived directly from the rent start date, never from
  the previous cycle's (possibly clamped) start. Deriving from a clamped
  boundary drifts: a tenant starting Jan 31 would land on Feb 28, and a
  naive "add one month to the last start" then yields Mar 28 instead of
  Mar 31. Anchoring at the rent start date keeps the anchor day-of-month
  for every cycle and makes the contiguity invariant hold by construction:

      end(n) = start(n+1) - 1 day

  so consecutive cycles can never gap or overlap, whatever the anchor day.

CLAMPING:
  When the anchor day-of-month (29/30/31) exceeds the target month's
  length, the boundary clamps to that month's last day. Both boundaries of
  a cycle clamp by the same rule because both come from the same anchor.

CYCLE NUMBERING:
  Cycle numbers are 1-based and advance by fully-paid bill count, not by
  elapsed calendar time. That policy lives with the caller; this file only
  maps (rentStart, n) to dates.

SEE ALSO:
  - charges.go: ProratedRent consumes these boundaries for final bills
*/
package billing

import "time"

// =============================================================================
// BILLING CYCLE - One month-long period, inclusive on both ends
// =============================================================================

// Cycle is the calendar span of one billing period. End is inclusive.
type Cycle struct {
	Number int
	Start  Date
	End    Date
}

// TotalDays returns the inclusive length of the cycle in days.
func (c Cycle) TotalDays() int {
	return DaysBetween(c.Start, c.End) + 1
}

// Contains returns true if the date falls within [Start, End].
func (c Cycle) Contains(d Date) bool {
	return d.AfterOrEqual(c.Start) && d.BeforeOrEqual(c.End)
}

func (c Cycle) String() string {
	return "[" + c.Start.String() + ", " + c.End.String() + "]"
}

// =============================================================================
// CYCLE CALCULATOR
// =============================================================================

// CycleFor returns the calendar span of the tenant's n-th billing cycle.
// The cycle starts on the rent start date's day-of-month, n-1 months after
// the rent start date, clamped to month end when the target month is
// shorter. The cycle ends the day before the next cycle starts.
//
// Returns ErrInvalidCycleNumber for n < 1.
func CycleFor(rentStart Date, n int) (Cycle, error) {
	if n < 1 {
		return Cycle{}, ErrInvalidCycleNumber
	}
	start := anchoredMonthAdd(rentStart, n-1)
	nextStart := anchoredMonthAdd(rentStart, n)
	return Cycle{
		Number: n,
		Start:  start,
		End:    nextStart.AddDays(-1),
	}, nil
}

// anchoredMonthAdd adds n calendar months to the anchor date, keeping the
// anchor's day-of-month and clamping to the target month's last day when
// the target month is shorter.
//
// time.AddDate is deliberately avoided here: it normalizes overflow (Jan 31
// + 1 month = Mar 3) instead of clamping (Feb 28/29).
func anchoredMonthAdd(anchor Date, n int) Date {
	year := anchor.Year()
	// Months are counted from zero so the divmod below stays simple.
	month := int(anchor.Month()) - 1 + n
	year += month / 12
	month = month % 12
	if month < 0 {
		month += 12
		year--
	}
	targetMonth := time.Month(month + 1)

	day := anchor.Day()
	if last := DaysInMonth(year, targetMonth); day > last {
		day = last
	}
	return NewDate(year, targetMonth, day)
}
