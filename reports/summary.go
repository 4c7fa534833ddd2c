/*
Package reports aggregates stored bills and payments into branch reports.

PURPOSE:
  Read-side reporting over the records the tenancy package produces:
  per-branch period summaries (how much was billed, collected by method,
  outstanding, penalties, forfeited deposits, refunds) and the
  component-level collection breakdown. Everything here consumes stored
  amounts and allocations; nothing re-derives a calculation.

SIGN CONVENTION:
  Refund bills store their amounts negated, so they are excluded from the
  billed and outstanding totals and surface through RefundsIssued instead.

SEE ALSO:
  - xlsx.go: Spreadsheet export of a report
  - ../tenancy/types.go: The records being aggregated
*/
package reports

import (
	"context"

	"github.com/haven/rental-engine/billing"
	"github.com/haven/rental-engine/tenancy"
)

// =============================================================================
// REPORT TYPES
// =============================================================================

// MethodTotal is the amount collected through one payment method.
type MethodTotal struct {
	Method tenancy.PaymentMethod
	Amount billing.Money
}

// ComponentTotal is the amount collected against one bill component,
// summed from the stored payment allocations.
type ComponentTotal struct {
	Component billing.ComponentType
	Amount    billing.Money
}

// BranchReport is one branch's financials for a period. Bills are matched
// by period start, payments by payment date; a payment against an older
// bill still counts in the period the money arrived.
type BranchReport struct {
	Branch tenancy.Branch
	From   billing.Date
	To     billing.Date

	BillCount    int
	PaymentCount int

	// TotalBilled sums TotalAmountDue across ordinary bills (refund bills
	// excluded; their negated amounts would cancel real charges).
	TotalBilled billing.Money

	// TotalCollected sums all payments, the synthetic deposit application
	// included. Deduct the deposit_application method total for cash flow.
	TotalCollected billing.Money

	TotalOutstanding  billing.Money
	PenaltiesCharged  billing.Money
	DepositsForfeited billing.Money
	RefundsIssued     billing.Money

	CollectedByMethod    []MethodTotal
	CollectedByComponent []ComponentTotal

	Bills []tenancy.Bill
}

// reportMethods fixes the row order of the by-method table.
var reportMethods = []tenancy.PaymentMethod{
	tenancy.MethodCash,
	tenancy.MethodGCash,
	tenancy.MethodDepositApplication,
}

// reportComponents fixes the row order of the by-component table, matching
// the allocator's priority order.
var reportComponents = []billing.ComponentType{
	billing.ComponentPenalty,
	billing.ComponentExtraFee,
	billing.ComponentElectricity,
	billing.ComponentWater,
	billing.ComponentRent,
}

// =============================================================================
// REPORTER
// =============================================================================

type Reporter struct {
	store tenancy.Store
}

func NewReporter(store tenancy.Store) *Reporter {
	return &Reporter{store: store}
}

// BranchReport builds the financial report for one branch over a period.
// Zero from/to dates leave that side of the period unbounded.
func (r *Reporter) BranchReport(ctx context.Context, branchID string, from, to billing.Date) (*BranchReport, error) {
	branch, err := r.store.GetBranch(ctx, branchID)
	if err != nil {
		return nil, err
	}
	if branch == nil {
		return nil, tenancy.ErrBranchNotFound
	}

	bills, err := r.store.ListBillsByBranch(ctx, branchID, from, to)
	if err != nil {
		return nil, err
	}
	payments, err := r.store.ListPaymentsByBranch(ctx, branchID, from, to)
	if err != nil {
		return nil, err
	}

	report := &BranchReport{
		Branch: *branch,
		From:   from,
		To:     to,

		BillCount:    len(bills),
		PaymentCount: len(payments),

		TotalBilled:       billing.ZeroMoney(),
		TotalCollected:    billing.ZeroMoney(),
		TotalOutstanding:  billing.ZeroMoney(),
		PenaltiesCharged:  billing.ZeroMoney(),
		DepositsForfeited: billing.ZeroMoney(),
		RefundsIssued:     billing.ZeroMoney(),

		Bills: bills,
	}

	for _, b := range bills {
		if b.Status == tenancy.StatusRefund {
			report.RefundsIssued = report.RefundsIssued.Add(b.RefundAmount)
		} else {
			report.TotalBilled = report.TotalBilled.Add(b.TotalAmountDue)
			report.TotalOutstanding = report.TotalOutstanding.Add(b.Outstanding())
		}
		report.PenaltiesCharged = report.PenaltiesCharged.Add(b.PenaltyAmount)
		report.DepositsForfeited = report.DepositsForfeited.Add(b.ForfeitedAmount)
	}

	byMethod := make(map[tenancy.PaymentMethod]billing.Money)
	byComponent := make(map[billing.ComponentType]billing.Money)
	for _, p := range payments {
		report.TotalCollected = report.TotalCollected.Add(p.Amount)
		byMethod[p.Method] = byMethod[p.Method].Add(p.Amount)
		for _, a := range p.Allocations {
			byComponent[a.Component] = byComponent[a.Component].Add(a.Amount)
		}
	}

	for _, m := range reportMethods {
		if total, ok := byMethod[m]; ok {
			report.CollectedByMethod = append(report.CollectedByMethod, MethodTotal{Method: m, Amount: total})
		}
	}
	for _, c := range reportComponents {
		if total, ok := byComponent[c]; ok {
			report.CollectedByComponent = append(report.CollectedByComponent, ComponentTotal{Component: c, Amount: total})
		}
	}

	return report, nil
}
