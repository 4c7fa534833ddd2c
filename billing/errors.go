/*
errors.go - Centralized error types for the billing engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  The engine fails loudly on invalid input: a meter reading below the
  recorded previous reading or a non-positive cycle number is a data-entry
  or programming error upstream, and silently clamping it has historically
  masked real mistakes.

ERROR CATEGORIES:
  1. Input errors - Caller supplied inconsistent data (client errors)
  2. Structured errors - Carry the offending values for error messages

USAGE:
  Callers classify with errors.Is:

    if errors.Is(err, billing.ErrMeterRegression) {
        // block bill generation, report expected minimum reading
    }

SEE ALSO:
  - charges.go: Returns ErrMeterRegression, ErrInvalidProration
  - cycle.go: Returns ErrInvalidCycleNumber
  - deposit.go: Returns ErrNegativeInput
*/
package billing

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrMeterRegression is returned when a present electricity reading is
	// below the recorded previous reading. Negative consumption is always a
	// data-entry error, never a real charge.
	ErrMeterRegression = errors.New("present meter reading below previous reading")

	// ErrInvalidCycleNumber is returned for cycle numbers < 1. Cycle numbers
	// are 1-based; anything else is a programming error at the call site.
	ErrInvalidCycleNumber = errors.New("cycle number must be >= 1")

	// ErrInvalidProration is returned when a proration request is malformed
	// (end before start, or occupancy ending before the period begins).
	ErrInvalidProration = errors.New("invalid proration range")

	// ErrNegativeInput is returned when a deposit or balance argument that
	// must be non-negative is negative.
	ErrNegativeInput = errors.New("negative amount where non-negative required")

	// ErrNegativePayment is returned when allocating a non-positive payment.
	ErrNegativePayment = errors.New("payment amount must be positive")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// MeterRegressionError reports the readings that failed validation, so the
// caller can name the expected minimum in its message.
type MeterRegressionError struct {
	Present  string
	Previous string
}

func (e *MeterRegressionError) Error() string {
	return fmt.Sprintf("meter regression: present reading %s below previous %s", e.Present, e.Previous)
}

func (e *MeterRegressionError) Unwrap() error { return ErrMeterRegression }

// ProrationError reports the dates that made a proration request invalid.
type ProrationError struct {
	PeriodStart Date
	PeriodEnd   Date
	ActualEnd   Date
	Reason      string
}

func (e *ProrationError) Error() string {
	return fmt.Sprintf("invalid proration [%s, %s] actual end %s: %s",
		e.PeriodStart, e.PeriodEnd, e.ActualEnd, e.Reason)
}

func (e *ProrationError) Unwrap() error { return ErrInvalidProration }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsInputError returns true if the error is due to invalid caller input,
// as opposed to an internal failure. The HTTP layer maps these to 400.
func IsInputError(err error) bool {
	return errors.Is(err, ErrMeterRegression) ||
		errors.Is(err, ErrInvalidCycleNumber) ||
		errors.Is(err, ErrInvalidProration) ||
		errors.Is(err, ErrNegativeInput) ||
		errors.Is(err, ErrNegativePayment)
}
