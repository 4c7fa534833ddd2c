/*
errors.go - Centralized error types for the tenancy domain

PURPOSE:
  Domain-level failures, kept alongside the billing engine's input errors.
  The HTTP layer classifies with the helpers at the bottom.
*/
package tenancy

import (
	"errors"

	"github.com/haven/rental-engine/billing"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	ErrBranchNotFound = errors.New("branch not found")
	ErrRoomNotFound   = errors.New("room not found")
	ErrTenantNotFound = errors.New("tenant not found")
	ErrBillNotFound   = errors.New("bill not found")

	// ErrTenantInactive is returned when billing or settling a tenant who
	// has already moved out.
	ErrTenantInactive = errors.New("tenant is not active")

	// ErrCycleNotSettled is returned when generating a new bill while the
	// tenant's latest bill is not fully paid. Cycles advance only as bills
	// are settled; generating again would duplicate the open cycle.
	ErrCycleNotSettled = errors.New("latest bill not fully paid; cycle has not advanced")

	// ErrPenaltyAlreadyApplied is returned on a second penalty application.
	// The penalty is flat and one-time per bill.
	ErrPenaltyAlreadyApplied = errors.New("penalty already applied to bill")

	// ErrNotFinalBill is returned when a settlement-only operation targets
	// an ordinary cycle bill.
	ErrNotFinalBill = errors.New("bill is not a final bill")

	// ErrFinalBillEdit is returned when an ordinary edit targets a final
	// bill. Final bills are fully regenerated, never patched.
	ErrFinalBillEdit = errors.New("final bills are regenerated, not edited")

	// ErrBillClosed is returned when paying or editing a refund bill that a
	// human has already marked complete.
	ErrBillClosed = errors.New("bill is closed")

	// ErrRoomOccupied is returned when moving a tenant into a room that
	// already has an active tenant.
	ErrRoomOccupied = errors.New("room already has an active tenant")
)

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsNotFound returns true for missing-record errors. Maps to HTTP 404.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrBranchNotFound) ||
		errors.Is(err, ErrRoomNotFound) ||
		errors.Is(err, ErrTenantNotFound) ||
		errors.Is(err, ErrBillNotFound)
}

// IsClientError returns true for errors caused by the caller's request,
// including the billing engine's input errors. Maps to HTTP 400/409.
func IsClientError(err error) bool {
	return billing.IsInputError(err) ||
		errors.Is(err, ErrTenantInactive) ||
		errors.Is(err, ErrCycleNotSettled) ||
		errors.Is(err, ErrPenaltyAlreadyApplied) ||
		errors.Is(err, ErrNotFinalBill) ||
		errors.Is(err, ErrFinalBillEdit) ||
		errors.Is(err, ErrBillClosed) ||
		errors.Is(err, ErrRoomOccupied)
}
