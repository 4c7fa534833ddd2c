/*
allocation.go - Payment-to-component allocation

PURPOSE:
  Splits a recorded payment across a bill's component charges in a fixed
  priority order, purely for reporting granularity ("how much of this
  payment covered the penalty vs. the rent"). The bill's own status and
  amount_paid are tracked at the aggregate level and are NOT affected by
  this breakdown.

PRIORITY ORDER:
  penalty -> extra fee -> electricity -> water -> rent

  Penalties collect first so reports never show a penalty lingering unpaid
  while rent money came in; rent collects last as the largest bucket.

OVERPAYMENT:
  A payment larger than the sum of component balances is NOT rejected and
  NOT dropped: the excess is recorded against the rent component, the last
  in priority order. Overpayments are legitimate (tenants rounding up, or
  paying ahead) and every centavo must appear in the ledger.
*/
package billing

// =============================================================================
// COMPONENT TYPES
// =============================================================================

type ComponentType string

const (
	ComponentPenalty     ComponentType = "penalty"
	ComponentExtraFee    ComponentType = "extra_fee"
	ComponentElectricity ComponentType = "electricity"
	ComponentWater       ComponentType = "water"
	ComponentRent        ComponentType = "rent"
)

// ComponentBreakdown is a bill's charges by component, the allocation
// targets for an incoming payment.
type ComponentBreakdown struct {
	Penalty     Money
	ExtraFee    Money
	Electricity Money
	Water       Money
	Rent        Money
}

// Total returns the sum of all component balances.
func (c ComponentBreakdown) Total() Money {
	return c.Penalty.Add(c.ExtraFee).Add(c.Electricity).Add(c.Water).Add(c.Rent)
}

// ComponentAllocation is one slice of a payment attributed to a component.
type ComponentAllocation struct {
	Component ComponentType
	Amount    Money
}

// =============================================================================
// ALLOCATOR
// =============================================================================

// AllocatePayment splits a payment across components in priority order.
// Each component absorbs min(remaining, componentBalance); what is left
// carries to the next. Components that absorb nothing are omitted from the
// result. Any excess beyond the component total lands on the rent entry.
//
// Returns ErrNegativePayment for a zero or negative payment.
func AllocatePayment(payment Money, components ComponentBreakdown) ([]ComponentAllocation, error) {
	if !payment.IsPositive() {
		return nil, ErrNegativePayment
	}

	targets := []struct {
		component ComponentType
		balance   Money
	}{
		{ComponentPenalty, components.Penalty},
		{ComponentExtraFee, components.ExtraFee},
		{ComponentElectricity, components.Electricity},
		{ComponentWater, components.Water},
		{ComponentRent, components.Rent},
	}

	var allocations []ComponentAllocation
	remaining := payment

	for _, t := range targets {
		if remaining.IsZero() {
			break
		}
		absorbed := remaining.Min(t.balance.Max(ZeroMoney()))
		if t.component == ComponentRent {
			// Last bucket takes whatever is left, including overpayment.
			absorbed = remaining
		}
		if absorbed.IsPositive() {
			allocations = append(allocations, ComponentAllocation{Component: t.component, Amount: absorbed})
			remaining = remaining.Sub(absorbed)
		}
	}

	return allocations, nil
}
