/*
settlement.go - Move-out settlement composition

PURPOSE:
  Composes proration, utility charges, prior balances, and the deposit
  policy into a tenant's complete move-out settlement: one signed figure
  saying what is still due or what must be refunded.

OUTCOME ENCODING:
  Internally the result is a proper variant - Due(amount), Settled, or
  Refund(amount) - so nothing downstream has to reason about signs.
  Legacy reporting, however, depends on the stored bill's sign convention:
  a refund bill carries total_amount_due == amount_paid == -refund.
  LegacyAmounts() produces that encoding at the storage boundary; the
  variant stays authoritative everywhere else.

RE-EDIT SEMANTICS:
  Editing any input of an existing final bill recomputes the whole
  settlement from scratch. The fields are too interdependent for
  incremental patching: a one-day change to the move-out date moves the
  prorated rent, the balance, the deposit split, and the outcome. The
  domain layer treats an edit as full regeneration and replaces the
  synthetic deposit-application payment accordingly.

SEE ALSO:
  - deposit.go: The policy applied to the pre-deposit total
  - charges.go: ProratedRent for the partial final cycle
*/
package billing

// =============================================================================
// OUTCOME - Due / Settled / Refund variant
// =============================================================================

type OutcomeKind string

const (
	// OutcomeDue: deposits did not cover the balance; Amount is still owed.
	OutcomeDue OutcomeKind = "due"
	// OutcomeSettled: deposits covered the balance exactly, nothing refunds.
	OutcomeSettled OutcomeKind = "settled"
	// OutcomeRefund: available deposits exceeded the balance; Amount is
	// owed back to the tenant.
	OutcomeRefund OutcomeKind = "refund"
)

// Outcome is the net result of a settlement. Amount is zero for
// OutcomeSettled, the remaining debt for OutcomeDue, and the refund owed
// for OutcomeRefund (always stored positive; the sign convention is
// applied only by LegacyAmounts).
type Outcome struct {
	Kind   OutcomeKind
	Amount Money
}

// =============================================================================
// SETTLEMENT
// =============================================================================

// SettlementInput carries everything the settlement needs. All values come
// from records the caller has already loaded; the calculator performs no
// I/O.
type SettlementInput struct {
	MonthlyRent Money
	PeriodStart Date
	PeriodEnd   Date
	MoveOutDate Date

	// Final-cycle utility charges and ad hoc fee, already computed.
	Electricity Money
	Water       Money
	ExtraFee    Money

	// Unpaid remainder across the tenant's prior bills.
	PriorOutstanding Money

	FullyPaidCycles int
	AdvancePayment  Money
	SecurityDeposit Money
	IsRoomTransfer  bool
}

// Settlement is the complete move-out computation. Pure data; persisting
// it onto the final bill is the caller's job.
type Settlement struct {
	ProratedRent Money

	// TotalBeforeDeposits = prorated rent + electricity + water + extra fee
	// + prior outstanding.
	TotalBeforeDeposits Money

	Deposits DepositDecision

	Outcome Outcome
}

// CalculateFinalBill produces a tenant's move-out settlement. Deterministic
// and side-effect free: identical inputs yield identical output.
func CalculateFinalBill(in SettlementInput) (Settlement, error) {
	prorated, err := ProratedRent(in.MonthlyRent, in.PeriodStart, in.PeriodEnd, in.MoveOutDate)
	if err != nil {
		return Settlement{}, err
	}

	total := prorated.
		Add(in.Electricity).
		Add(in.Water).
		Add(in.ExtraFee).
		Add(in.PriorOutstanding)

	deposits, err := ApplyDeposits(in.FullyPaidCycles, in.AdvancePayment, in.SecurityDeposit, total, in.IsRoomTransfer)
	if err != nil {
		return Settlement{}, err
	}

	remaining := total.Sub(deposits.Applied)

	var outcome Outcome
	switch {
	case deposits.Refund.IsPositive():
		outcome = Outcome{Kind: OutcomeRefund, Amount: deposits.Refund}
	case remaining.IsZero():
		outcome = Outcome{Kind: OutcomeSettled, Amount: ZeroMoney()}
	default:
		outcome = Outcome{Kind: OutcomeDue, Amount: remaining}
	}

	return Settlement{
		ProratedRent:        prorated,
		TotalBeforeDeposits: total,
		Deposits:            deposits,
		Outcome:             outcome,
	}, nil
}

// LegacyAmounts returns the (totalAmountDue, amountPaid) pair under the
// stored-bill sign convention:
//
//	Refund:  both are the negated refund amount
//	Settled: totalAmountDue = total before deposits, amountPaid equal
//	Due:     totalAmountDue = total before deposits, amountPaid = applied
//
// Downstream reporting reads this sign to detect refund bills; keep the
// convention even though Outcome is the authoritative form.
func (s Settlement) LegacyAmounts() (totalAmountDue, amountPaid Money) {
	if s.Outcome.Kind == OutcomeRefund {
		neg := s.Outcome.Amount.Neg()
		return neg, neg
	}
	return s.TotalBeforeDeposits, s.Deposits.Applied
}
