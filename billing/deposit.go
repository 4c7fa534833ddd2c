/*
deposit.go - Deposit application and forfeiture policy

PURPOSE:
  Decides how a departing tenant's advance payment and security deposit are
  consumed against an outstanding balance. This is the central business
  rule of the system: get it wrong and tenants are over- or under-refunded
  at move-out.

THE POLICY:
  Every tenancy starts with two deposits, each equal to one month's rent:
  the advance payment and the security deposit.

  - The ADVANCE PAYMENT is always available to offset the final balance.
  - The SECURITY DEPOSIT is at forfeiture risk early in the tenancy. It
    becomes available only once the tenant has FULLY PAID at least
    ForfeitureThreshold (5) cycles - i.e. from their 6th cycle onward - or
    when the move-out is a room transfer (the tenancy continues, so nothing
    is forfeited).
  - Whatever is available covers the balance, capped at the balance itself.
  - Available money left over after covering the balance is refunded.
  - In the forfeited branch the WHOLE security deposit is forfeited, even
    when the advance payment alone covers the balance.

  The threshold is inclusive at exactly 5: a count of 5 keeps the security
  deposit, a count of 4 loses it.

CYCLE COUNTING:
  fullyPaidCycles counts bills with status fully_paid, not calendar months
  elapsed. A tenant who pays late crosses the threshold late.

SEE ALSO:
  - settlement.go: Feeds the move-out balance into this policy
*/
package billing

// ForfeitureThreshold is the fully-paid-cycle count at which the security
// deposit stops being forfeited on move-out. Inclusive: a count of exactly
// 5 keeps the deposit.
const ForfeitureThreshold = 5

// =============================================================================
// DEPOSIT DECISION
// =============================================================================

// DepositDecision is the outcome of applying deposits to a balance.
//
// Invariants (for non-negative inputs):
//
//	Available = Applied + Refund
//	Applied   = min(Available, outstanding)
//	Forfeited = security deposit, or zero - never partial
type DepositDecision struct {
	// Available is the total deposit money usable against the balance.
	Available Money

	// Applied is how much of Available actually offsets the balance.
	Applied Money

	// Forfeited is the security deposit lost to the landlord. Zero when the
	// deposit is available (threshold reached or room transfer).
	Forfeited Money

	// Refund is available money left over after covering the balance, owed
	// back to the tenant.
	Refund Money
}

// ApplyDeposits runs the deposit application policy.
//
// fullyPaidCycles is the count of the tenant's fully-paid bills at
// settlement time. outstanding is the balance the deposits are applied
// against (the final bill total before deposits, plus any unpaid prior
// cycles); it must be non-negative - the caller computes it as a sum of
// charges, and a negative value means the caller's math is wrong.
//
// Returns ErrNegativeInput when any amount argument or the cycle count is
// negative.
func ApplyDeposits(fullyPaidCycles int, advancePayment, securityDeposit, outstanding Money, isRoomTransfer bool) (DepositDecision, error) {
	if fullyPaidCycles < 0 ||
		advancePayment.IsNegative() ||
		securityDeposit.IsNegative() ||
		outstanding.IsNegative() {
		return DepositDecision{}, ErrNegativeInput
	}

	var d DepositDecision
	if isRoomTransfer || fullyPaidCycles >= ForfeitureThreshold {
		d.Available = advancePayment.Add(securityDeposit)
		d.Forfeited = ZeroMoney()
	} else {
		d.Available = advancePayment
		d.Forfeited = securityDeposit
	}

	d.Applied = d.Available.Min(outstanding)
	d.Refund = d.Available.Sub(d.Applied)
	return d, nil
}
