package tenancy_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haven/rental-engine/billing"
	"github.com/haven/rental-engine/tenancy"
)

// =============================================================================
// MOVE-OUT SETTLEMENT
// =============================================================================

// settleThreeCycles moves a tenant in on Jan 7 and pays three full cycles,
// leaving the meter at 1200. The tenant is then mid cycle 4 (Apr 7 to May 6,
// a 30 day period) with 3 fully paid cycles, below the forfeiture threshold.
func settleThreeCycles(t *testing.T, f *fixture) *tenancy.Tenant {
	t.Helper()
	tenant := f.moveIn(t)
	f.payInFull(t, tenant.ID, 1060)
	f.payInFull(t, tenant.ID, 1130)
	f.payInFull(t, tenant.ID, 1200)
	return tenant
}

func TestMoveOut_BelowThreshold_SecurityForfeited(t *testing.T) {
	// GIVEN: 3 fully paid cycles, moving out halfway through cycle 4
	// WHEN: Settling on April 21 with 50 kWh consumed
	// THEN: Prorated rent 5000 (15 of 30 days), total 6100; the advance
	//       payment covers it, the security deposit is forfeited, and the
	//       excess 3900 is refunded

	f := newFixture(t)
	tenant := settleThreeCycles(t, f)

	bill, err := f.svc.MoveOut(context.Background(), tenancy.MoveOutInput{
		TenantID:       tenant.ID,
		MoveOutDate:    billing.NewDate(2025, time.April, 21),
		PresentReading: decimal.NewFromInt(1250),
	})
	require.NoError(t, err)

	assert.True(t, bill.IsFinalBill)
	assert.Equal(t, 4, bill.CycleNumber)
	assert.True(t, bill.MonthlyRentAmount.Equal(billing.NewMoney(5000)), "got %s", bill.MonthlyRentAmount)
	assert.True(t, bill.ElectricityAmount.Equal(billing.NewMoney(600)))
	assert.True(t, bill.WaterAmount.Equal(billing.NewMoney(500)))

	assert.True(t, bill.AppliedAdvancePayment.Equal(billing.NewMoney(6100)))
	assert.True(t, bill.AppliedSecurityDeposit.IsZero())
	assert.True(t, bill.ForfeitedAmount.Equal(billing.NewMoney(10000)))
	assert.True(t, bill.RefundAmount.Equal(billing.NewMoney(3900)))

	// Refund bills carry the refund, negated, in both amount columns.
	assert.True(t, bill.TotalAmountDue.Equal(billing.NewMoney(-3900)))
	assert.True(t, bill.AmountPaid.Equal(billing.NewMoney(-3900)))
	assert.Equal(t, tenancy.StatusRefund, bill.Status)

	// The tenant is out.
	stored, err := f.store.GetTenant(context.Background(), tenant.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsActive)
	require.NotNil(t, stored.MoveOutDate)
	assert.True(t, stored.MoveOutDate.Equal(billing.NewDate(2025, time.April, 21)))
}

func TestMoveOut_AtThreshold_BothDepositsAvailable(t *testing.T) {
	f := newFixture(t)
	tenant := f.moveIn(t)
	for _, reading := range []int64{1060, 1130, 1200, 1270, 1340} {
		f.payInFull(t, tenant.ID, reading)
	}

	// Cycle 6 runs Jun 7 to Jul 6 (30 days); out on Jun 21 with 50 kWh.
	bill, err := f.svc.MoveOut(context.Background(), tenancy.MoveOutInput{
		TenantID:       tenant.ID,
		MoveOutDate:    billing.NewDate(2025, time.June, 21),
		PresentReading: decimal.NewFromInt(1390),
	})
	require.NoError(t, err)

	// 20000 available against a 6100 total.
	assert.True(t, bill.ForfeitedAmount.IsZero())
	assert.True(t, bill.RefundAmount.Equal(billing.NewMoney(13900)), "got %s", bill.RefundAmount)
	assert.True(t, bill.AppliedAdvancePayment.Equal(billing.NewMoney(6100)))
	assert.True(t, bill.AppliedSecurityDeposit.IsZero())
	assert.Equal(t, tenancy.StatusRefund, bill.Status)
}

func TestMoveOut_DepositsShortOfTotal_BalanceDue(t *testing.T) {
	// GIVEN: 3 fully paid cycles, moving out on the cycle 4 end date
	// WHEN: The full month's charges (11100) exceed the available 10000
	// THEN: The bill stays open with 1100 outstanding

	f := newFixture(t)
	tenant := settleThreeCycles(t, f)

	bill, err := f.svc.MoveOut(context.Background(), tenancy.MoveOutInput{
		TenantID:       tenant.ID,
		MoveOutDate:    billing.NewDate(2025, time.May, 6),
		PresentReading: decimal.NewFromInt(1250),
	})
	require.NoError(t, err)

	assert.True(t, bill.MonthlyRentAmount.Equal(billing.NewMoney(10000)), "occupied to period end, no proration")
	assert.True(t, bill.TotalAmountDue.Equal(billing.NewMoney(11100)))
	assert.True(t, bill.AmountPaid.Equal(billing.NewMoney(10000)))
	assert.True(t, bill.Outstanding().Equal(billing.NewMoney(1100)))
	assert.Equal(t, tenancy.StatusPartiallyPaid, bill.Status)
	assert.True(t, bill.RefundAmount.IsZero())
}

func TestMoveOut_RecordsSyntheticDepositPayment(t *testing.T) {
	f := newFixture(t)
	tenant := settleThreeCycles(t, f)
	ctx := context.Background()

	bill, err := f.svc.MoveOut(ctx, tenancy.MoveOutInput{
		TenantID:       tenant.ID,
		MoveOutDate:    billing.NewDate(2025, time.April, 21),
		PresentReading: decimal.NewFromInt(1250),
	})
	require.NoError(t, err)

	payments, err := f.store.ListPaymentsByBill(ctx, bill.ID)
	require.NoError(t, err)
	require.Len(t, payments, 1)

	p := payments[0]
	assert.Equal(t, tenancy.MethodDepositApplication, p.Method)
	assert.True(t, p.Amount.Equal(billing.NewMoney(6100)))

	// Component ledger: electricity 600, water 500, rent takes the rest.
	require.Len(t, p.Allocations, 3)
	assert.Equal(t, billing.ComponentElectricity, p.Allocations[0].Component)
	assert.True(t, p.Allocations[0].Amount.Equal(billing.NewMoney(600)))
	assert.Equal(t, billing.ComponentWater, p.Allocations[1].Component)
	assert.True(t, p.Allocations[1].Amount.Equal(billing.NewMoney(500)))
	assert.Equal(t, billing.ComponentRent, p.Allocations[2].Component)
	assert.True(t, p.Allocations[2].Amount.Equal(billing.NewMoney(5000)))
}

func TestMoveOut_InactiveTenant_Rejected(t *testing.T) {
	f := newFixture(t)
	tenant := settleThreeCycles(t, f)
	ctx := context.Background()

	_, err := f.svc.MoveOut(ctx, tenancy.MoveOutInput{
		TenantID:       tenant.ID,
		MoveOutDate:    billing.NewDate(2025, time.April, 21),
		PresentReading: decimal.NewFromInt(1250),
	})
	require.NoError(t, err)

	_, err = f.svc.MoveOut(ctx, tenancy.MoveOutInput{
		TenantID:       tenant.ID,
		MoveOutDate:    billing.NewDate(2025, time.April, 22),
		PresentReading: decimal.NewFromInt(1251),
	})
	assert.ErrorIs(t, err, tenancy.ErrTenantInactive)
}

func TestMoveOut_OpenCurrentCycleBill_Rejected(t *testing.T) {
	// GIVEN: 3 fully paid cycles and an unpaid bill already covering cycle 4
	f := newFixture(t)
	tenant := settleThreeCycles(t, f)
	ctx := context.Background()

	open, err := f.svc.GenerateBill(ctx, tenancy.GenerateBillInput{
		TenantID:       tenant.ID,
		PresentReading: decimal.NewFromInt(1250),
	})
	require.NoError(t, err)
	require.Equal(t, 4, open.CycleNumber)
	require.True(t, open.TotalAmountDue.Equal(billing.NewMoney(11100)))

	// WHEN: Moving out mid cycle while that bill is open
	_, err = f.svc.MoveOut(ctx, tenancy.MoveOutInput{
		TenantID:       tenant.ID,
		MoveOutDate:    billing.NewDate(2025, time.April, 21),
		PresentReading: decimal.NewFromInt(1250),
	})

	// THEN: Refused. The open bill already charges cycle 4 in full; a
	// prorated final bill for the same cycle would bill those days twice.
	require.ErrorIs(t, err, tenancy.ErrCycleNotSettled)

	// Nothing was persisted: the tenant stays active with the same 4 bills.
	stored, err := f.store.GetTenant(ctx, tenant.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsActive)
	assert.Nil(t, stored.MoveOutDate)

	bills, err := f.store.ListBillsByTenant(ctx, tenant.ID)
	require.NoError(t, err)
	assert.Len(t, bills, 4)
}

func TestTransferRoom_OpenCurrentCycleBill_Rejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	newRoom := tenancy.Room{ID: "room-202", BranchID: f.branch.ID, Label: "202", MonthlyRent: billing.NewMoney(12000)}
	require.NoError(t, f.store.SaveRoom(ctx, newRoom))

	tenant := settleThreeCycles(t, f)
	_, err := f.svc.GenerateBill(ctx, tenancy.GenerateBillInput{
		TenantID:       tenant.ID,
		PresentReading: decimal.NewFromInt(1250),
	})
	require.NoError(t, err)

	// The open cycle-4 bill blocks the transfer settlement too.
	_, _, err = f.svc.TransferRoom(ctx, tenancy.TransferRoomInput{
		TenantID:       tenant.ID,
		NewRoomID:      newRoom.ID,
		TransferDate:   billing.NewDate(2025, time.April, 21),
		PresentReading: decimal.NewFromInt(1250),
	})
	require.ErrorIs(t, err, tenancy.ErrCycleNotSettled)

	stored, err := f.store.GetTenant(ctx, tenant.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsActive)
}

// =============================================================================
// FINAL BILL REGENERATION
// =============================================================================

func TestRegenerateFinalBill_RecomputesAndReplacesDepositPayment(t *testing.T) {
	// GIVEN: A settled move-out with refund 3900
	// WHEN: Correcting the final reading from 1250 to 1300
	// THEN: Electricity doubles, the refund shrinks to 3300, and the
	//       synthetic payment is replaced rather than accumulated

	f := newFixture(t)
	tenant := settleThreeCycles(t, f)
	ctx := context.Background()

	original, err := f.svc.MoveOut(ctx, tenancy.MoveOutInput{
		TenantID:       tenant.ID,
		MoveOutDate:    billing.NewDate(2025, time.April, 21),
		PresentReading: decimal.NewFromInt(1250),
	})
	require.NoError(t, err)

	regenerated, err := f.svc.RegenerateFinalBill(ctx, tenancy.RegenerateFinalBillInput{
		BillID:         original.ID,
		MoveOutDate:    billing.NewDate(2025, time.April, 21),
		PresentReading: decimal.NewFromInt(1300),
	})
	require.NoError(t, err)

	assert.Equal(t, original.ID, regenerated.ID)
	assert.True(t, regenerated.ElectricityAmount.Equal(billing.NewMoney(1200)))
	assert.True(t, regenerated.RefundAmount.Equal(billing.NewMoney(3300)), "got %s", regenerated.RefundAmount)
	assert.True(t, regenerated.TotalAmountDue.Equal(billing.NewMoney(-3300)))

	payments, err := f.store.ListPaymentsByBill(ctx, original.ID)
	require.NoError(t, err)
	require.Len(t, payments, 1, "old synthetic payment must be gone")
	assert.True(t, payments[0].Amount.Equal(billing.NewMoney(6700)))
}

func TestRegenerateFinalBill_OrdinaryBill_Rejected(t *testing.T) {
	f := newFixture(t)
	tenant := f.moveIn(t)
	ctx := context.Background()

	bill, err := f.svc.GenerateBill(ctx, tenancy.GenerateBillInput{
		TenantID:       tenant.ID,
		PresentReading: decimal.NewFromInt(1060),
	})
	require.NoError(t, err)

	_, err = f.svc.RegenerateFinalBill(ctx, tenancy.RegenerateFinalBillInput{
		BillID:         bill.ID,
		MoveOutDate:    billing.NewDate(2025, time.February, 1),
		PresentReading: decimal.NewFromInt(1060),
	})
	assert.ErrorIs(t, err, tenancy.ErrNotFinalBill)
}

func TestEditBill_FinalBill_Rejected(t *testing.T) {
	f := newFixture(t)
	tenant := settleThreeCycles(t, f)
	ctx := context.Background()

	bill, err := f.svc.MoveOut(ctx, tenancy.MoveOutInput{
		TenantID:       tenant.ID,
		MoveOutDate:    billing.NewDate(2025, time.April, 21),
		PresentReading: decimal.NewFromInt(1250),
	})
	require.NoError(t, err)

	_, err = f.svc.EditBill(ctx, tenancy.EditBillInput{
		BillID:         bill.ID,
		PresentReading: decimal.NewFromInt(1300),
	})
	assert.ErrorIs(t, err, tenancy.ErrFinalBillEdit)
}

// =============================================================================
// ROOM TRANSFER
// =============================================================================

func TestTransferRoom_NoForfeitureAndSuccessorTenancy(t *testing.T) {
	// GIVEN: 2 fully paid cycles, far below the forfeiture threshold
	// WHEN: Transferring to a 12000/month room mid cycle 3
	// THEN: Both deposits stay available (no forfeiture), and the successor
	//       tenancy starts fresh with the new room's rent as deposits

	f := newFixture(t)
	ctx := context.Background()

	newRoom := tenancy.Room{
		ID:          "room-202",
		BranchID:    f.branch.ID,
		Label:       "202",
		MonthlyRent: billing.NewMoney(12000),
	}
	require.NoError(t, f.store.SaveRoom(ctx, newRoom))

	tenant := f.moveIn(t)
	f.payInFull(t, tenant.ID, 1060)
	f.payInFull(t, tenant.ID, 1130)

	// Cycle 3 runs Mar 7 to Apr 6 (31 days); transfer on Mar 21 is 15
	// occupied days, so rent prorates to 4839.
	bill, successor, err := f.svc.TransferRoom(ctx, tenancy.TransferRoomInput{
		TenantID:          tenant.ID,
		NewRoomID:         newRoom.ID,
		TransferDate:      billing.NewDate(2025, time.March, 21),
		PresentReading:    decimal.NewFromInt(1180),
		NewInitialReading: decimal.NewFromInt(400),
	})
	require.NoError(t, err)

	assert.True(t, bill.MonthlyRentAmount.Equal(billing.NewMoney(4839)), "got %s", bill.MonthlyRentAmount)
	assert.True(t, bill.ForfeitedAmount.IsZero(), "transfers never forfeit")
	assert.True(t, bill.RefundAmount.Equal(billing.NewMoney(14061)), "got %s", bill.RefundAmount)
	assert.Equal(t, tenancy.StatusRefund, bill.Status)

	assert.Equal(t, newRoom.ID, successor.RoomID)
	assert.Equal(t, tenant.Name, successor.Name)
	assert.True(t, successor.RentStartDate.Equal(billing.NewDate(2025, time.March, 21)))
	assert.True(t, successor.AdvancePayment.Equal(billing.NewMoney(12000)))
	assert.True(t, successor.SecurityDeposit.Equal(billing.NewMoney(12000)))
	assert.True(t, successor.InitialElectricityReading.Equal(decimal.NewFromInt(400)))
	assert.True(t, successor.IsActive)

	// The outgoing tenant is deactivated and the new room is now occupied.
	old, err := f.store.GetTenant(ctx, tenant.ID)
	require.NoError(t, err)
	assert.False(t, old.IsActive)

	occupant, err := f.store.ActiveTenantInRoom(ctx, newRoom.ID)
	require.NoError(t, err)
	require.NotNil(t, occupant)
	assert.Equal(t, successor.ID, occupant.ID)
}

func TestTransferRoom_OccupiedTarget_Rejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	newRoom := tenancy.Room{ID: "room-202", BranchID: f.branch.ID, Label: "202", MonthlyRent: billing.NewMoney(12000)}
	require.NoError(t, f.store.SaveRoom(ctx, newRoom))

	tenant := f.moveIn(t)

	// Occupy the target first.
	_, err := f.svc.MoveIn(ctx, tenancy.MoveInInput{
		RoomID:        newRoom.ID,
		Name:          "Existing Occupant",
		RentStartDate: billing.NewDate(2025, time.January, 1),
	})
	require.NoError(t, err)

	_, _, err = f.svc.TransferRoom(ctx, tenancy.TransferRoomInput{
		TenantID:       tenant.ID,
		NewRoomID:      newRoom.ID,
		TransferDate:   billing.NewDate(2025, time.February, 1),
		PresentReading: decimal.NewFromInt(1030),
	})
	assert.ErrorIs(t, err, tenancy.ErrRoomOccupied)
}

// =============================================================================
// AUDIT TRAIL
// =============================================================================

func TestLifecycle_WritesAuditTrail(t *testing.T) {
	f := newFixture(t)
	tenant := settleThreeCycles(t, f)
	ctx := context.Background()

	_, err := f.svc.MoveOut(ctx, tenancy.MoveOutInput{
		TenantID:       tenant.ID,
		MoveOutDate:    billing.NewDate(2025, time.April, 21),
		PresentReading: decimal.NewFromInt(1250),
		Actor:          "admin",
	})
	require.NoError(t, err)

	entries, err := f.store.QueryAudit(ctx, tenancy.AuditFilter{TenantID: tenant.ID})
	require.NoError(t, err)

	var actions []tenancy.AuditAction
	for _, e := range entries {
		actions = append(actions, e.Action)
	}
	// move_in, then (bill_generated, payment_recorded) x3, then the final.
	assert.Equal(t, []tenancy.AuditAction{
		tenancy.AuditMoveIn,
		tenancy.AuditBillGenerated, tenancy.AuditPaymentRecorded,
		tenancy.AuditBillGenerated, tenancy.AuditPaymentRecorded,
		tenancy.AuditBillGenerated, tenancy.AuditPaymentRecorded,
		tenancy.AuditFinalBillGenerated,
	}, actions)

	final := entries[len(entries)-1]
	assert.Equal(t, "admin", final.Actor)
	assert.Equal(t, "10000", final.Detail["forfeited"])
	assert.Equal(t, "3900", final.Detail["refund"])
}
