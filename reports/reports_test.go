package reports_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/haven/rental-engine/billing"
	"github.com/haven/rental-engine/reports"
	"github.com/haven/rental-engine/tenancy"
	memstore "github.com/haven/rental-engine/tenancy/store"
)

// seedBranch loads a branch with one ordinary bill (partially collected in
// cash and gcash) and one refund final bill with its synthetic deposit
// payment.
func seedBranch(t *testing.T) *memstore.Memory {
	t.Helper()
	ctx := context.Background()
	st := memstore.NewMemory()

	require.NoError(t, st.SaveBranch(ctx, tenancy.Branch{
		ID: "branch-1", Name: "Main",
		ElectricityRate: billing.NewMoney(12), WaterRate: billing.NewMoney(500),
	}))
	require.NoError(t, st.SaveRoom(ctx, tenancy.Room{
		ID: "room-101", BranchID: "branch-1", Label: "101", MonthlyRent: billing.NewMoney(10000),
	}))
	require.NoError(t, st.SaveTenant(ctx, tenancy.Tenant{
		ID: "tenant-1", RoomID: "room-101", Name: "Maria Santos",
		RentStartDate:             billing.NewDate(2025, time.January, 7),
		InitialElectricityReading: decimal.NewFromInt(1000),
		AdvancePayment:            billing.NewMoney(10000),
		SecurityDeposit:           billing.NewMoney(10000),
		IsActive:                  true,
	}))

	ordinary := tenancy.Bill{
		ID: "bill-1", TenantID: "tenant-1", CycleNumber: 1,
		PeriodStart: billing.NewDate(2025, time.January, 7),
		PeriodEnd:   billing.NewDate(2025, time.February, 6),
		DueDate:     billing.NewDate(2025, time.February, 6),
		ElectricityAmount: billing.NewMoney(720),
		WaterAmount:       billing.NewMoney(500),
		MonthlyRentAmount: billing.NewMoney(10000),
		ExtraFee:          billing.ZeroMoney(),
		PenaltyAmount:     billing.NewMoney(561),
		TotalAmountDue:    billing.NewMoney(11781),
		AmountPaid:        billing.NewMoney(6000),
		Status:            tenancy.StatusPartiallyPaid,
	}
	require.NoError(t, st.SaveBill(ctx, ordinary))

	final := tenancy.Bill{
		ID: "bill-2", TenantID: "tenant-1", CycleNumber: 2,
		PeriodStart: billing.NewDate(2025, time.February, 7),
		PeriodEnd:   billing.NewDate(2025, time.March, 6),
		DueDate:     billing.NewDate(2025, time.February, 21),
		MonthlyRentAmount: billing.NewMoney(5000),
		ElectricityAmount: billing.NewMoney(600),
		WaterAmount:       billing.NewMoney(500),
		ExtraFee:          billing.ZeroMoney(),
		PenaltyAmount:     billing.ZeroMoney(),
		TotalAmountDue:    billing.NewMoney(-3900),
		AmountPaid:        billing.NewMoney(-3900),
		Status:            tenancy.StatusRefund,
		IsFinalBill:       true,
		ForfeitedAmount:   billing.NewMoney(10000),
		RefundAmount:      billing.NewMoney(3900),
	}
	require.NoError(t, st.SaveBill(ctx, final))

	payments := []tenancy.Payment{
		{
			ID: "pay-1", BillID: "bill-1", Amount: billing.NewMoney(2000),
			PaymentDate: billing.NewDate(2025, time.February, 6), Method: tenancy.MethodCash,
			Allocations: []billing.ComponentAllocation{
				{Component: billing.ComponentPenalty, Amount: billing.NewMoney(561)},
				{Component: billing.ComponentElectricity, Amount: billing.NewMoney(720)},
				{Component: billing.ComponentWater, Amount: billing.NewMoney(500)},
				{Component: billing.ComponentRent, Amount: billing.NewMoney(219)},
			},
			CreatedAt: time.Now().UTC(),
		},
		{
			ID: "pay-2", BillID: "bill-1", Amount: billing.NewMoney(4000),
			PaymentDate: billing.NewDate(2025, time.February, 10), Method: tenancy.MethodGCash,
			Allocations: []billing.ComponentAllocation{
				{Component: billing.ComponentRent, Amount: billing.NewMoney(4000)},
			},
			CreatedAt: time.Now().UTC().Add(time.Second),
		},
		{
			ID: "pay-3", BillID: "bill-2", Amount: billing.NewMoney(6100),
			PaymentDate: billing.NewDate(2025, time.February, 21), Method: tenancy.MethodDepositApplication,
			Allocations: []billing.ComponentAllocation{
				{Component: billing.ComponentElectricity, Amount: billing.NewMoney(600)},
				{Component: billing.ComponentWater, Amount: billing.NewMoney(500)},
				{Component: billing.ComponentRent, Amount: billing.NewMoney(5000)},
			},
			CreatedAt: time.Now().UTC().Add(2 * time.Second),
		},
	}
	for _, p := range payments {
		require.NoError(t, st.SavePayment(ctx, p))
	}

	return st
}

func TestBranchReport_Totals(t *testing.T) {
	st := seedBranch(t)
	r := reports.NewReporter(st)

	report, err := r.BranchReport(context.Background(), "branch-1", billing.Date{}, billing.Date{})
	require.NoError(t, err)

	assert.Equal(t, 2, report.BillCount)
	assert.Equal(t, 3, report.PaymentCount)

	// The refund bill's negated amounts stay out of billed/outstanding.
	assert.True(t, report.TotalBilled.Equal(billing.NewMoney(11781)), "got %s", report.TotalBilled)
	assert.True(t, report.TotalOutstanding.Equal(billing.NewMoney(5781)), "got %s", report.TotalOutstanding)
	assert.True(t, report.TotalCollected.Equal(billing.NewMoney(12100)))
	assert.True(t, report.PenaltiesCharged.Equal(billing.NewMoney(561)))
	assert.True(t, report.DepositsForfeited.Equal(billing.NewMoney(10000)))
	assert.True(t, report.RefundsIssued.Equal(billing.NewMoney(3900)))
}

func TestBranchReport_CollectedByMethod(t *testing.T) {
	st := seedBranch(t)
	r := reports.NewReporter(st)

	report, err := r.BranchReport(context.Background(), "branch-1", billing.Date{}, billing.Date{})
	require.NoError(t, err)

	require.Len(t, report.CollectedByMethod, 3)
	assert.Equal(t, tenancy.MethodCash, report.CollectedByMethod[0].Method)
	assert.True(t, report.CollectedByMethod[0].Amount.Equal(billing.NewMoney(2000)))
	assert.Equal(t, tenancy.MethodGCash, report.CollectedByMethod[1].Method)
	assert.True(t, report.CollectedByMethod[1].Amount.Equal(billing.NewMoney(4000)))
	assert.Equal(t, tenancy.MethodDepositApplication, report.CollectedByMethod[2].Method)
	assert.True(t, report.CollectedByMethod[2].Amount.Equal(billing.NewMoney(6100)))
}

func TestBranchReport_CollectedByComponent(t *testing.T) {
	st := seedBranch(t)
	r := reports.NewReporter(st)

	report, err := r.BranchReport(context.Background(), "branch-1", billing.Date{}, billing.Date{})
	require.NoError(t, err)

	// Rows follow the allocator's priority order.
	require.Len(t, report.CollectedByComponent, 4)
	assert.Equal(t, billing.ComponentPenalty, report.CollectedByComponent[0].Component)
	assert.True(t, report.CollectedByComponent[0].Amount.Equal(billing.NewMoney(561)))
	assert.Equal(t, billing.ComponentElectricity, report.CollectedByComponent[1].Component)
	assert.True(t, report.CollectedByComponent[1].Amount.Equal(billing.NewMoney(1320)))
	assert.Equal(t, billing.ComponentWater, report.CollectedByComponent[2].Component)
	assert.True(t, report.CollectedByComponent[2].Amount.Equal(billing.NewMoney(1000)))
	assert.Equal(t, billing.ComponentRent, report.CollectedByComponent[3].Component)
	assert.True(t, report.CollectedByComponent[3].Amount.Equal(billing.NewMoney(9219)))
}

func TestBranchReport_PeriodFilter(t *testing.T) {
	st := seedBranch(t)
	r := reports.NewReporter(st)

	// Only the February-starting bill and the payments dated Feb 10-28.
	report, err := r.BranchReport(context.Background(), "branch-1",
		billing.NewDate(2025, time.February, 7), billing.NewDate(2025, time.February, 28))
	require.NoError(t, err)

	assert.Equal(t, 1, report.BillCount)
	assert.Equal(t, 2, report.PaymentCount)
	assert.True(t, report.TotalCollected.Equal(billing.NewMoney(10100)))
}

func TestBranchReport_UnknownBranch(t *testing.T) {
	st := seedBranch(t)
	r := reports.NewReporter(st)

	_, err := r.BranchReport(context.Background(), "nope", billing.Date{}, billing.Date{})
	assert.ErrorIs(t, err, tenancy.ErrBranchNotFound)
}

func TestWriteXLSX(t *testing.T) {
	st := seedBranch(t)
	r := reports.NewReporter(st)

	report, err := r.BranchReport(context.Background(), "branch-1", billing.Date{}, billing.Date{})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, reports.WriteXLSX(&buf, report))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.ElementsMatch(t, []string{"Summary", "Bills"}, f.GetSheetList())

	branchName, err := f.GetCellValue("Summary", "B1")
	require.NoError(t, err)
	assert.Equal(t, "Main", branchName)

	billRows, err := f.GetRows("Bills")
	require.NoError(t, err)
	require.Len(t, billRows, 3, "header plus two bills")
	assert.Equal(t, "Bill ID", billRows[0][0])
	assert.Equal(t, "bill-1", billRows[1][0])
	assert.Equal(t, "bill-2", billRows[2][0])
}
