/*
Package tenancy implements the rental domain on top of the billing engine.

PURPOSE:
  Owns the plain records the system persists - branches, rooms, tenants,
  bills, payments - and the lifecycle rules connecting them: how cycle
  numbers advance, how meter readings chain between bills, how a bill's
  status derives from its amounts, and how move-in / renewal / move-out
  mutate the records. All arithmetic is delegated to the billing package;
  nothing here re-derives a calculation.

KEY CONCEPTS IN THIS FILE (types.go):
  - Branch/Room/Tenant: The property hierarchy and who occupies it
  - Bill: One billing cycle's charges, amounts paid, and derived status
  - Payment: Money received against a bill, with its component breakdown
  - DeriveStatus: Bill status as a pure function of due and paid amounts

CYCLE NUMBERING:
  A tenant's next cycle number is (count of fully-paid bills) + 1. Cycles
  advance only as bills are fully settled, never by calendar time alone: a
  tenant whose payment lags stays on the same cycle.

SEE ALSO:
  - service.go: Lifecycle operations (move-in, billing, payments, move-out)
  - store.go: Persistence interfaces
*/
package tenancy

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/haven/rental-engine/billing"
)

// =============================================================================
// PROPERTY HIERARCHY
// =============================================================================

// Branch is one property location. Utility rates are set per branch.
type Branch struct {
	ID   string
	Name string

	// ElectricityRate is currency per kWh.
	ElectricityRate billing.Money

	// WaterRate is a fixed charge per billing cycle, not metered.
	WaterRate billing.Money

	CreatedAt time.Time
}

// Room belongs to exactly one branch.
type Room struct {
	ID          string
	BranchID    string
	Label       string
	MonthlyRent billing.Money
	CreatedAt   time.Time
}

// =============================================================================
// TENANT
// =============================================================================

// Tenant occupies one room. RentStartDate and the two deposits are fixed
// for the life of the tenancy once set.
type Tenant struct {
	ID     string
	RoomID string
	Name   string
	Email  string

	// RentStartDate anchors every billing cycle boundary. Immutable.
	RentStartDate billing.Date

	// InitialElectricityReading seeds the first bill's previous reading.
	InitialElectricityReading decimal.Decimal

	// AdvancePayment and SecurityDeposit both equal one month's rent at
	// move-in and never change during the tenancy.
	AdvancePayment  billing.Money
	SecurityDeposit billing.Money

	ContractEndDate billing.Date

	IsActive    bool
	MoveOutDate *billing.Date

	CreatedAt time.Time
}

// =============================================================================
// BILL
// =============================================================================

type BillStatus string

const (
	StatusActive        BillStatus = "active"
	StatusPartiallyPaid BillStatus = "partially_paid"
	StatusFullyPaid     BillStatus = "fully_paid"
	StatusRefund        BillStatus = "refund"
)

// Bill is one billing cycle's charges for a tenant. Amounts are computed
// by the billing package and persisted here; a bill is regenerated, never
// patched, when its inputs change.
//
// Sign convention: a refund bill (final bills only) stores
// TotalAmountDue == AmountPaid == -refund. Reporting depends on this.
type Bill struct {
	ID       string
	TenantID string

	CycleNumber int
	PeriodStart billing.Date
	PeriodEnd   billing.Date

	// DueDate is the last day of the cycle; the penalty applies after it.
	DueDate billing.Date

	PreviousReading decimal.Decimal
	PresentReading  decimal.Decimal

	ElectricityAmount billing.Money
	WaterAmount       billing.Money
	MonthlyRentAmount billing.Money
	ExtraFee          billing.Money
	PenaltyAmount     billing.Money

	TotalAmountDue billing.Money
	AmountPaid     billing.Money
	Status         BillStatus

	// Final-bill fields. Deposits are snapshotted from the tenant at bill
	// creation so later tenant edits cannot drift a settled bill.
	IsFinalBill             bool
	AdvancePayment          billing.Money
	SecurityDeposit         billing.Money
	AppliedAdvancePayment   billing.Money
	AppliedSecurityDeposit  billing.Money
	ForfeitedAmount         billing.Money
	RefundAmount            billing.Money

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Components returns the bill's charges as allocation targets for the
// payment allocator.
func (b Bill) Components() billing.ComponentBreakdown {
	return billing.ComponentBreakdown{
		Penalty:     b.PenaltyAmount,
		ExtraFee:    b.ExtraFee,
		Electricity: b.ElectricityAmount,
		Water:       b.WaterAmount,
		Rent:        b.MonthlyRentAmount,
	}
}

// Outstanding returns the unpaid remainder of the bill, never negative.
func (b Bill) Outstanding() billing.Money {
	out := b.TotalAmountDue.Sub(b.AmountPaid)
	return out.Max(billing.ZeroMoney())
}

// DeriveStatus computes a bill's status from its amounts. It is the only
// way status is ever set:
//
//	refund          total due is negative (net refund bill)
//	fully_paid      paid covers the total
//	partially_paid  something paid, not everything
//	active          nothing paid yet
func DeriveStatus(totalDue, paid billing.Money) BillStatus {
	switch {
	case totalDue.IsNegative():
		return StatusRefund
	case paid.GreaterOrEqual(totalDue):
		return StatusFullyPaid
	case paid.IsPositive():
		return StatusPartiallyPaid
	default:
		return StatusActive
	}
}

// FullyPaidCount returns how many of the bills are fully paid. The next
// cycle number is this count + 1.
func FullyPaidCount(bills []Bill) int {
	n := 0
	for _, b := range bills {
		if b.Status == StatusFullyPaid {
			n++
		}
	}
	return n
}

// PreviousReadingFor returns the previous electricity reading for the
// tenant's next bill: the latest bill's present reading, or the tenant's
// initial reading when no bill exists yet. Bills must be in creation order.
func PreviousReadingFor(tenant Tenant, bills []Bill) decimal.Decimal {
	if len(bills) == 0 {
		return tenant.InitialElectricityReading
	}
	return bills[len(bills)-1].PresentReading
}

// =============================================================================
// PAYMENT
// =============================================================================

type PaymentMethod string

const (
	MethodCash  PaymentMethod = "cash"
	MethodGCash PaymentMethod = "gcash"

	// MethodDepositApplication marks the synthetic payment recording the
	// deposit engine's applied amount on a final bill. It is not physical
	// money received; it exists so reports see one consistent ledger.
	MethodDepositApplication PaymentMethod = "deposit_application"
)

// Payment is money received against one bill, with the component breakdown
// the allocator attributed it to.
type Payment struct {
	ID          string
	BillID      string
	Amount      billing.Money
	PaymentDate billing.Date
	Method      PaymentMethod

	Allocations []billing.ComponentAllocation

	CreatedAt time.Time
}
