/*
service.go - Tenancy lifecycle operations

PURPOSE:
  The write-side of the system: move-in, contract renewal, bill
  generation, edits, penalties, payments, move-out settlement, and room
  transfers. Each operation loads records, calls the billing engine with
  plain values, and persists the computed fields back - the engine itself
  never touches storage.

ATOMICITY:
  Every operation runs inside TxStore.WithTx so the read-compute-write of
  a bill row is atomic. Two concurrent payments against the same bill
  serialize at the store.

AUDIT:
  When the transactional store also implements AuditLog (both bundled
  implementations do), the audit entry commits atomically with the change.

SEE ALSO:
  - types.go: Records and derivations
  - ../billing: All the arithmetic
*/
package tenancy

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/haven/rental-engine/billing"
)

// =============================================================================
// SETTINGS
// =============================================================================

// SettingPenaltyPercent is the settings key for the overdue penalty, in
// percentage points. Editable at runtime; injected into the penalty
// calculation at call time, never read inside the billing package.
const SettingPenaltyPercent = "penalty_percentage"

// DefaultPenaltyPercent applies when no setting row exists.
const DefaultPenaltyPercent = 5

// =============================================================================
// SERVICE
// =============================================================================

type Service struct {
	store TxStore
}

func NewService(store TxStore) *Service {
	return &Service{store: store}
}

// PenaltyPercent returns the configured penalty percentage points.
func (s *Service) PenaltyPercent(ctx context.Context) (decimal.Decimal, error) {
	raw, ok, err := s.store.GetSetting(ctx, SettingPenaltyPercent)
	if err != nil {
		return decimal.Zero, err
	}
	if !ok {
		return decimal.NewFromInt(DefaultPenaltyPercent), nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("malformed %s setting %q: %w", SettingPenaltyPercent, raw, err)
	}
	return d, nil
}

// SetPenaltyPercent updates the penalty setting.
func (s *Service) SetPenaltyPercent(ctx context.Context, percent decimal.Decimal, actor string) error {
	if percent.IsNegative() {
		return billing.ErrNegativeInput
	}
	return s.store.WithTx(ctx, func(st Store) error {
		if err := st.SetSetting(ctx, SettingPenaltyPercent, percent.String()); err != nil {
			return err
		}
		return appendAudit(ctx, st, AuditEntry{
			ID: uuid.NewString(), At: now(), Actor: actor, Action: AuditSettingChanged,
			Detail: map[string]string{"key": SettingPenaltyPercent, "value": percent.String()},
		})
	})
}

// =============================================================================
// MOVE-IN AND RENEWAL
// =============================================================================

type MoveInInput struct {
	RoomID         string
	Name           string
	Email          string
	RentStartDate  billing.Date
	InitialReading decimal.Decimal
	ContractMonths int // defaults to 12
	Actor          string
}

// MoveIn creates a tenant in the given room. Both deposits are set to the
// room's monthly rent, the invariant every settlement later relies on.
func (s *Service) MoveIn(ctx context.Context, in MoveInInput) (*Tenant, error) {
	if in.InitialReading.IsNegative() {
		return nil, billing.ErrNegativeInput
	}
	months := in.ContractMonths
	if months <= 0 {
		months = 12
	}

	var tenant Tenant
	err := s.store.WithTx(ctx, func(st Store) error {
		room, err := st.GetRoom(ctx, in.RoomID)
		if err != nil {
			return err
		}
		if room == nil {
			return ErrRoomNotFound
		}
		occupant, err := st.ActiveTenantInRoom(ctx, in.RoomID)
		if err != nil {
			return err
		}
		if occupant != nil {
			return ErrRoomOccupied
		}

		contract, err := billing.CycleFor(in.RentStartDate, months)
		if err != nil {
			return err
		}

		tenant = Tenant{
			ID:                        uuid.NewString(),
			RoomID:                    in.RoomID,
			Name:                      in.Name,
			Email:                     in.Email,
			RentStartDate:             in.RentStartDate,
			InitialElectricityReading: in.InitialReading,
			AdvancePayment:            room.MonthlyRent,
			SecurityDeposit:           room.MonthlyRent,
			ContractEndDate:           contract.End,
			IsActive:                  true,
			CreatedAt:                 time.Now().UTC(),
		}
		if err := st.SaveTenant(ctx, tenant); err != nil {
			return err
		}
		return appendAudit(ctx, st, AuditEntry{
			ID: uuid.NewString(), At: now(), Actor: in.Actor, Action: AuditMoveIn,
			TenantID: tenant.ID,
			Detail:   map[string]string{"room_id": in.RoomID, "rent_start": in.RentStartDate.String()},
		})
	})
	if err != nil {
		return nil, err
	}
	return &tenant, nil
}

// RenewContract extends the tenant's contract end date by the given number
// of calendar months, clamped the same way cycle boundaries are.
func (s *Service) RenewContract(ctx context.Context, tenantID string, months int, actor string) (*Tenant, error) {
	if months < 1 {
		return nil, billing.ErrInvalidCycleNumber
	}

	var tenant Tenant
	err := s.store.WithTx(ctx, func(st Store) error {
		t, err := st.GetTenant(ctx, tenantID)
		if err != nil {
			return err
		}
		if t == nil {
			return ErrTenantNotFound
		}
		if !t.IsActive {
			return ErrTenantInactive
		}

		// The contract end is always a cycle boundary; count how many
		// cycles the current contract covers and extend from there.
		elapsed := monthsCovered(t.RentStartDate, t.ContractEndDate)
		renewed, err := billing.CycleFor(t.RentStartDate, elapsed+months)
		if err != nil {
			return err
		}
		t.ContractEndDate = renewed.End

		if err := st.SaveTenant(ctx, *t); err != nil {
			return err
		}
		tenant = *t
		return appendAudit(ctx, st, AuditEntry{
			ID: uuid.NewString(), At: now(), Actor: actor, Action: AuditContractRenewed,
			TenantID: t.ID,
			Detail:   map[string]string{"months": fmt.Sprint(months), "new_end": t.ContractEndDate.String()},
		})
	})
	if err != nil {
		return nil, err
	}
	return &tenant, nil
}

// monthsCovered returns how many whole cycles fit between the rent start
// and the contract end (which always falls on a cycle end).
func monthsCovered(rentStart, contractEnd billing.Date) int {
	for n := 1; ; n++ {
		c, err := billing.CycleFor(rentStart, n)
		if err != nil || c.End.AfterOrEqual(contractEnd) {
			return n
		}
	}
}

// =============================================================================
// BILL GENERATION
// =============================================================================

type GenerateBillInput struct {
	TenantID       string
	PresentReading decimal.Decimal
	ExtraFee       billing.Money
	Actor          string
}

// GenerateBill creates the tenant's next cycle bill. The cycle number is
// the fully-paid bill count + 1; generation is refused while the latest
// bill is still unpaid, because the cycle has not advanced yet.
//
// The present reading is validated against the chained previous reading
// before any bill is written; a regression aborts with the expected
// minimum in the error.
func (s *Service) GenerateBill(ctx context.Context, in GenerateBillInput) (*Bill, error) {
	var bill Bill
	err := s.store.WithTx(ctx, func(st Store) error {
		tenant, room, branch, bills, err := s.loadTenancy(ctx, st, in.TenantID)
		if err != nil {
			return err
		}
		if !tenant.IsActive {
			return ErrTenantInactive
		}
		if len(bills) > 0 && bills[len(bills)-1].Status != StatusFullyPaid {
			return ErrCycleNotSettled
		}

		cycleNumber := FullyPaidCount(bills) + 1
		cycle, err := billing.CycleFor(tenant.RentStartDate, cycleNumber)
		if err != nil {
			return err
		}

		previous := PreviousReadingFor(*tenant, bills)
		electricity, err := billing.ElectricityCharge(in.PresentReading, previous, branch.ElectricityRate)
		if err != nil {
			return err
		}
		water := billing.WaterCharge(branch.WaterRate)
		rent := room.MonthlyRent
		total := rent.Add(electricity).Add(water).Add(in.ExtraFee)

		bill = Bill{
			ID:                uuid.NewString(),
			TenantID:          tenant.ID,
			CycleNumber:       cycleNumber,
			PeriodStart:       cycle.Start,
			PeriodEnd:         cycle.End,
			DueDate:           cycle.End,
			PreviousReading:   previous,
			PresentReading:    in.PresentReading,
			ElectricityAmount: electricity,
			WaterAmount:       water,
			MonthlyRentAmount: rent,
			ExtraFee:          in.ExtraFee,
			PenaltyAmount:     billing.ZeroMoney(),
			TotalAmountDue:    total,
			AmountPaid:        billing.ZeroMoney(),
			Status:            DeriveStatus(total, billing.ZeroMoney()),
			AdvancePayment:    tenant.AdvancePayment,
			SecurityDeposit:   tenant.SecurityDeposit,
			CreatedAt:         time.Now().UTC(),
			UpdatedAt:         time.Now().UTC(),
		}
		if err := st.SaveBill(ctx, bill); err != nil {
			return err
		}
		return appendAudit(ctx, st, AuditEntry{
			ID: uuid.NewString(), At: now(), Actor: in.Actor, Action: AuditBillGenerated,
			TenantID: tenant.ID, BillID: bill.ID,
			Detail: map[string]string{"cycle": fmt.Sprint(cycleNumber), "total": total.String()},
		})
	})
	if err != nil {
		return nil, err
	}
	return &bill, nil
}

type EditBillInput struct {
	BillID         string
	PresentReading decimal.Decimal
	ExtraFee       billing.Money
	Actor          string
}

// EditBill recomputes an ordinary bill's components from corrected inputs.
// All dependent fields are recalculated from scratch; the already-applied
// penalty is preserved. Final bills are regenerated through
// RegenerateFinalBill instead.
func (s *Service) EditBill(ctx context.Context, in EditBillInput) (*Bill, error) {
	var bill Bill
	err := s.store.WithTx(ctx, func(st Store) error {
		b, err := st.GetBill(ctx, in.BillID)
		if err != nil {
			return err
		}
		if b == nil {
			return ErrBillNotFound
		}
		if b.IsFinalBill {
			return ErrFinalBillEdit
		}

		_, room, branch, _, err := s.loadTenancy(ctx, st, b.TenantID)
		if err != nil {
			return err
		}

		electricity, err := billing.ElectricityCharge(in.PresentReading, b.PreviousReading, branch.ElectricityRate)
		if err != nil {
			return err
		}

		b.PresentReading = in.PresentReading
		b.ElectricityAmount = electricity
		b.WaterAmount = billing.WaterCharge(branch.WaterRate)
		b.MonthlyRentAmount = room.MonthlyRent
		b.ExtraFee = in.ExtraFee
		b.TotalAmountDue = b.MonthlyRentAmount.
			Add(b.ElectricityAmount).
			Add(b.WaterAmount).
			Add(b.ExtraFee).
			Add(b.PenaltyAmount)
		b.Status = DeriveStatus(b.TotalAmountDue, b.AmountPaid)
		b.UpdatedAt = time.Now().UTC()

		if err := st.SaveBill(ctx, *b); err != nil {
			return err
		}
		bill = *b
		return appendAudit(ctx, st, AuditEntry{
			ID: uuid.NewString(), At: now(), Actor: in.Actor, Action: AuditBillEdited,
			TenantID: b.TenantID, BillID: b.ID,
			Detail: map[string]string{"total": b.TotalAmountDue.String()},
		})
	})
	if err != nil {
		return nil, err
	}
	return &bill, nil
}

// ApplyPenalty adds the flat overdue penalty to a bill, once. A bill that
// is not yet overdue is returned unchanged. The percentage comes from the
// settings table and is passed into the calculator explicitly.
func (s *Service) ApplyPenalty(ctx context.Context, billID string, today billing.Date, actor string) (*Bill, error) {
	percent, err := s.PenaltyPercent(ctx)
	if err != nil {
		return nil, err
	}

	var bill Bill
	err = s.store.WithTx(ctx, func(st Store) error {
		b, err := st.GetBill(ctx, billID)
		if err != nil {
			return err
		}
		if b == nil {
			return ErrBillNotFound
		}
		if b.Status == StatusFullyPaid || b.Status == StatusRefund {
			return ErrBillClosed
		}
		if b.PenaltyAmount.IsPositive() {
			return ErrPenaltyAlreadyApplied
		}

		penalty := billing.Penalty(b.TotalAmountDue, today, b.DueDate, percent)
		if penalty.IsZero() {
			bill = *b // not overdue; nothing to apply
			return nil
		}

		b.PenaltyAmount = penalty
		b.TotalAmountDue = b.TotalAmountDue.Add(penalty)
		b.Status = DeriveStatus(b.TotalAmountDue, b.AmountPaid)
		b.UpdatedAt = time.Now().UTC()

		if err := st.SaveBill(ctx, *b); err != nil {
			return err
		}
		bill = *b
		return appendAudit(ctx, st, AuditEntry{
			ID: uuid.NewString(), At: now(), Actor: actor, Action: AuditPenaltyApplied,
			TenantID: b.TenantID, BillID: b.ID,
			Detail: map[string]string{"penalty": penalty.String(), "percent": percent.String()},
		})
	})
	if err != nil {
		return nil, err
	}
	return &bill, nil
}

// =============================================================================
// PAYMENTS
// =============================================================================

type RecordPaymentInput struct {
	BillID      string
	Amount      billing.Money
	PaymentDate billing.Date
	Method      PaymentMethod
	Actor       string
}

// RecordPayment records money received against a bill. The amount is
// allocated across the bill's still-unpaid components (penalty first, rent
// last) for reporting; the bill's own status tracks only the aggregate.
func (s *Service) RecordPayment(ctx context.Context, in RecordPaymentInput) (*Payment, *Bill, error) {
	var (
		payment Payment
		bill    Bill
	)
	err := s.store.WithTx(ctx, func(st Store) error {
		b, err := st.GetBill(ctx, in.BillID)
		if err != nil {
			return err
		}
		if b == nil {
			return ErrBillNotFound
		}
		if b.Status == StatusFullyPaid || b.Status == StatusRefund {
			return ErrBillClosed
		}

		prior, err := st.ListPaymentsByBill(ctx, b.ID)
		if err != nil {
			return err
		}
		allocations, err := billing.AllocatePayment(in.Amount, remainingComponents(*b, prior))
		if err != nil {
			return err
		}

		payment = Payment{
			ID:          uuid.NewString(),
			BillID:      b.ID,
			Amount:      in.Amount,
			PaymentDate: in.PaymentDate,
			Method:      in.Method,
			Allocations: allocations,
			CreatedAt:   time.Now().UTC(),
		}
		if err := st.SavePayment(ctx, payment); err != nil {
			return err
		}

		b.AmountPaid = b.AmountPaid.Add(in.Amount)
		b.Status = DeriveStatus(b.TotalAmountDue, b.AmountPaid)
		b.UpdatedAt = time.Now().UTC()
		if err := st.SaveBill(ctx, *b); err != nil {
			return err
		}
		bill = *b
		return appendAudit(ctx, st, AuditEntry{
			ID: uuid.NewString(), At: now(), Actor: in.Actor, Action: AuditPaymentRecorded,
			TenantID: b.TenantID, BillID: b.ID,
			Detail: map[string]string{"amount": in.Amount.String(), "method": string(in.Method)},
		})
	})
	if err != nil {
		return nil, nil, err
	}
	return &payment, &bill, nil
}

// remainingComponents subtracts prior payments' allocations from the
// bill's components so successive partial payments keep filling buckets in
// order instead of re-filling the penalty every time.
func remainingComponents(b Bill, prior []Payment) billing.ComponentBreakdown {
	c := b.Components()
	for _, p := range prior {
		for _, a := range p.Allocations {
			switch a.Component {
			case billing.ComponentPenalty:
				c.Penalty = c.Penalty.Sub(a.Amount)
			case billing.ComponentExtraFee:
				c.ExtraFee = c.ExtraFee.Sub(a.Amount)
			case billing.ComponentElectricity:
				c.Electricity = c.Electricity.Sub(a.Amount)
			case billing.ComponentWater:
				c.Water = c.Water.Sub(a.Amount)
			case billing.ComponentRent:
				c.Rent = c.Rent.Sub(a.Amount)
			}
		}
	}
	zero := billing.ZeroMoney()
	c.Penalty = c.Penalty.Max(zero)
	c.ExtraFee = c.ExtraFee.Max(zero)
	c.Electricity = c.Electricity.Max(zero)
	c.Water = c.Water.Max(zero)
	c.Rent = c.Rent.Max(zero)
	return c
}

// =============================================================================
// HELPERS
// =============================================================================

func (s *Service) loadTenancy(ctx context.Context, st Store, tenantID string) (*Tenant, *Room, *Branch, []Bill, error) {
	tenant, err := st.GetTenant(ctx, tenantID)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	if tenant == nil {
		return nil, nil, nil, nil, ErrTenantNotFound
	}
	room, err := st.GetRoom(ctx, tenant.RoomID)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	if room == nil {
		return nil, nil, nil, nil, ErrRoomNotFound
	}
	branch, err := st.GetBranch(ctx, room.BranchID)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	if branch == nil {
		return nil, nil, nil, nil, ErrBranchNotFound
	}
	bills, err := st.ListBillsByTenant(ctx, tenantID)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	return tenant, room, branch, bills, nil
}

func appendAudit(ctx context.Context, st Store, e AuditEntry) error {
	if al, ok := st.(AuditLog); ok {
		return al.AppendAudit(ctx, e)
	}
	return nil
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}
