/*
moveout.go - Move-out settlement, regeneration, and room transfers

PURPOSE:
  Produces a tenant's final bill: prorated rent for the partial last
  cycle, final utility charges, the unpaid remainder of every prior bill,
  and the deposit application - one net figure, due or refund.

THE SYNTHETIC PAYMENT:
  The applied deposit amount is recorded as a payment with method
  deposit_application so reports see one consistent payment ledger. It is
  bookkeeping, not money received.

REGENERATION:
  Editing any input of an existing final bill recomputes the entire
  settlement from scratch and REPLACES the synthetic payment (delete,
  then insert with the new applied amount). Patching deltas across this
  many interdependent fields drifts; regeneration cannot.

ROOM TRANSFERS:
  A transfer settles the outgoing tenancy with the room-transfer flag
  (the security deposit is never forfeited, since the tenancy continues)
  and opens a fresh tenancy in the new room with deposits equal to the
  new room's rent.
*/
package tenancy

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/haven/rental-engine/billing"
)

// =============================================================================
// FINAL BILL ASSEMBLY
// =============================================================================

// finalBillInputs is everything buildFinalBill needs, already loaded.
type finalBillInputs struct {
	tenant     Tenant
	room       Room
	branch     Branch
	priorBills []Bill // the tenant's existing bills, creation order

	moveOutDate    billing.Date
	presentReading decimal.Decimal
	extraFee       billing.Money
	isRoomTransfer bool

	// billID reuses an existing ID on regeneration; empty means new bill.
	billID string
}

// buildFinalBill runs the settlement and assembles the bill record plus
// the synthetic deposit-application payment (nil when nothing applied).
// Pure assembly over loaded records; persistence is the caller's job.
func buildFinalBill(in finalBillInputs) (Bill, *Payment, error) {
	// A latest bill that is not fully paid is the open bill for the current
	// cycle: the fully-paid count has not advanced past it, so the final
	// bill would carry the same cycle number and charge those days twice
	// (the open bill's full rent plus the settlement's prorated rent).
	// The open bill must be settled or corrected before settling out.
	if n := len(in.priorBills); n > 0 && in.priorBills[n-1].Status != StatusFullyPaid {
		return Bill{}, nil, ErrCycleNotSettled
	}

	fullyPaid := FullyPaidCount(in.priorBills)
	cycle, err := billing.CycleFor(in.tenant.RentStartDate, fullyPaid+1)
	if err != nil {
		return Bill{}, nil, err
	}

	previous := PreviousReadingFor(in.tenant, in.priorBills)
	electricity, err := billing.ElectricityCharge(in.presentReading, previous, in.branch.ElectricityRate)
	if err != nil {
		return Bill{}, nil, err
	}
	water := billing.WaterCharge(in.branch.WaterRate)

	priorOutstanding := billing.ZeroMoney()
	for _, b := range in.priorBills {
		priorOutstanding = priorOutstanding.Add(b.Outstanding())
	}

	settlement, err := billing.CalculateFinalBill(billing.SettlementInput{
		MonthlyRent:      in.room.MonthlyRent,
		PeriodStart:      cycle.Start,
		PeriodEnd:        cycle.End,
		MoveOutDate:      in.moveOutDate,
		Electricity:      electricity,
		Water:            water,
		ExtraFee:         in.extraFee,
		PriorOutstanding: priorOutstanding,
		FullyPaidCycles:  fullyPaid,
		AdvancePayment:   in.tenant.AdvancePayment,
		SecurityDeposit:  in.tenant.SecurityDeposit,
		IsRoomTransfer:   in.isRoomTransfer,
	})
	if err != nil {
		return Bill{}, nil, err
	}

	totalDue, paid := settlement.LegacyAmounts()

	// The advance payment is consumed before the security deposit; the
	// split is recorded for the settlement preview and reports.
	appliedAdvance := in.tenant.AdvancePayment.Min(settlement.Deposits.Applied)
	appliedSecurity := settlement.Deposits.Applied.Sub(appliedAdvance)

	id := in.billID
	if id == "" {
		id = uuid.NewString()
	}
	nowT := time.Now().UTC()

	bill := Bill{
		ID:                     id,
		TenantID:               in.tenant.ID,
		CycleNumber:            fullyPaid + 1,
		PeriodStart:            cycle.Start,
		PeriodEnd:              cycle.End,
		DueDate:                in.moveOutDate,
		PreviousReading:        previous,
		PresentReading:         in.presentReading,
		ElectricityAmount:      electricity,
		WaterAmount:            water,
		MonthlyRentAmount:      settlement.ProratedRent,
		ExtraFee:               in.extraFee,
		PenaltyAmount:          billing.ZeroMoney(),
		TotalAmountDue:         totalDue,
		AmountPaid:             paid,
		Status:                 DeriveStatus(totalDue, paid),
		IsFinalBill:            true,
		AdvancePayment:         in.tenant.AdvancePayment,
		SecurityDeposit:        in.tenant.SecurityDeposit,
		AppliedAdvancePayment:  appliedAdvance,
		AppliedSecurityDeposit: appliedSecurity,
		ForfeitedAmount:        settlement.Deposits.Forfeited,
		RefundAmount:           settlement.Deposits.Refund,
		CreatedAt:              nowT,
		UpdatedAt:              nowT,
	}

	var depositPayment *Payment
	if settlement.Deposits.Applied.IsPositive() {
		allocations, err := billing.AllocatePayment(settlement.Deposits.Applied, bill.Components())
		if err != nil {
			return Bill{}, nil, err
		}
		depositPayment = &Payment{
			ID:          uuid.NewString(),
			BillID:      bill.ID,
			Amount:      settlement.Deposits.Applied,
			PaymentDate: in.moveOutDate,
			Method:      MethodDepositApplication,
			Allocations: allocations,
			CreatedAt:   nowT,
		}
	}

	return bill, depositPayment, nil
}

// =============================================================================
// MOVE-OUT
// =============================================================================

type MoveOutInput struct {
	TenantID       string
	MoveOutDate    billing.Date
	PresentReading decimal.Decimal
	ExtraFee       billing.Money
	IsRoomTransfer bool
	Actor          string
}

// MoveOut settles the tenancy: generates the final bill for the current
// cycle, records the deposit application as a synthetic payment, and
// deactivates the tenant. Like GenerateBill, it refuses while the latest
// bill is still unsettled.
func (s *Service) MoveOut(ctx context.Context, in MoveOutInput) (*Bill, error) {
	var bill Bill
	err := s.store.WithTx(ctx, func(st Store) error {
		tenant, room, branch, bills, err := s.loadTenancy(ctx, st, in.TenantID)
		if err != nil {
			return err
		}
		if !tenant.IsActive {
			return ErrTenantInactive
		}

		b, depositPayment, err := buildFinalBill(finalBillInputs{
			tenant:         *tenant,
			room:           *room,
			branch:         *branch,
			priorBills:     bills,
			moveOutDate:    in.MoveOutDate,
			presentReading: in.PresentReading,
			extraFee:       in.ExtraFee,
			isRoomTransfer: in.IsRoomTransfer,
		})
		if err != nil {
			return err
		}

		if err := st.SaveBill(ctx, b); err != nil {
			return err
		}
		if depositPayment != nil {
			if err := st.SavePayment(ctx, *depositPayment); err != nil {
				return err
			}
		}

		moveOut := in.MoveOutDate
		tenant.IsActive = false
		tenant.MoveOutDate = &moveOut
		if err := st.SaveTenant(ctx, *tenant); err != nil {
			return err
		}

		bill = b
		return appendAudit(ctx, st, AuditEntry{
			ID: uuid.NewString(), At: now(), Actor: in.Actor, Action: AuditFinalBillGenerated,
			TenantID: tenant.ID, BillID: b.ID,
			Detail: map[string]string{
				"outcome":   string(b.Status),
				"forfeited": b.ForfeitedAmount.String(),
				"refund":    b.RefundAmount.String(),
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return &bill, nil
}

// =============================================================================
// FINAL BILL REGENERATION
// =============================================================================

type RegenerateFinalBillInput struct {
	BillID         string
	MoveOutDate    billing.Date
	PresentReading decimal.Decimal
	ExtraFee       billing.Money
	IsRoomTransfer bool
	Actor          string
}

// RegenerateFinalBill recomputes an existing final bill from corrected
// inputs. The whole settlement is rebuilt from scratch and the synthetic
// deposit-application payment is replaced, never patched.
func (s *Service) RegenerateFinalBill(ctx context.Context, in RegenerateFinalBillInput) (*Bill, error) {
	var bill Bill
	err := s.store.WithTx(ctx, func(st Store) error {
		existing, err := st.GetBill(ctx, in.BillID)
		if err != nil {
			return err
		}
		if existing == nil {
			return ErrBillNotFound
		}
		if !existing.IsFinalBill {
			return ErrNotFinalBill
		}

		tenant, room, branch, bills, err := s.loadTenancy(ctx, st, existing.TenantID)
		if err != nil {
			return err
		}

		// The settlement derives from the bills BEFORE this final bill.
		prior := bills[:0:0]
		for _, b := range bills {
			if b.ID != existing.ID {
				prior = append(prior, b)
			}
		}

		b, depositPayment, err := buildFinalBill(finalBillInputs{
			tenant:         *tenant,
			room:           *room,
			branch:         *branch,
			priorBills:     prior,
			moveOutDate:    in.MoveOutDate,
			presentReading: in.PresentReading,
			extraFee:       in.ExtraFee,
			isRoomTransfer: in.IsRoomTransfer,
			billID:         existing.ID,
		})
		if err != nil {
			return err
		}
		b.CreatedAt = existing.CreatedAt

		// Replace the synthetic payment so the component ledger matches
		// the recomputed settlement.
		payments, err := st.ListPaymentsByBill(ctx, existing.ID)
		if err != nil {
			return err
		}
		for _, p := range payments {
			if p.Method == MethodDepositApplication {
				if err := st.DeletePayment(ctx, p.ID); err != nil {
					return err
				}
			}
		}

		if err := st.SaveBill(ctx, b); err != nil {
			return err
		}
		if depositPayment != nil {
			if err := st.SavePayment(ctx, *depositPayment); err != nil {
				return err
			}
		}

		if tenant.MoveOutDate == nil || !tenant.MoveOutDate.Equal(in.MoveOutDate) {
			moveOut := in.MoveOutDate
			tenant.MoveOutDate = &moveOut
			if err := st.SaveTenant(ctx, *tenant); err != nil {
				return err
			}
		}

		bill = b
		return appendAudit(ctx, st, AuditEntry{
			ID: uuid.NewString(), At: now(), Actor: in.Actor, Action: AuditFinalBillRegenerated,
			TenantID: tenant.ID, BillID: b.ID,
			Detail: map[string]string{"outcome": string(b.Status), "refund": b.RefundAmount.String()},
		})
	})
	if err != nil {
		return nil, err
	}
	return &bill, nil
}

// =============================================================================
// ROOM TRANSFER
// =============================================================================

type TransferRoomInput struct {
	TenantID          string
	NewRoomID         string
	TransferDate      billing.Date
	PresentReading    decimal.Decimal // outgoing room's final meter reading
	NewInitialReading decimal.Decimal // incoming room's meter reading
	ExtraFee          billing.Money
	Actor             string
}

// TransferRoom settles the outgoing tenancy without forfeiture and opens
// a new tenancy in the target room. Deposits for the new tenancy equal
// the new room's monthly rent, per the move-in invariant.
func (s *Service) TransferRoom(ctx context.Context, in TransferRoomInput) (*Bill, *Tenant, error) {
	var (
		finalBill Bill
		newTenant Tenant
	)
	err := s.store.WithTx(ctx, func(st Store) error {
		tenant, room, branch, bills, err := s.loadTenancy(ctx, st, in.TenantID)
		if err != nil {
			return err
		}
		if !tenant.IsActive {
			return ErrTenantInactive
		}

		newRoom, err := st.GetRoom(ctx, in.NewRoomID)
		if err != nil {
			return err
		}
		if newRoom == nil {
			return ErrRoomNotFound
		}
		occupant, err := st.ActiveTenantInRoom(ctx, in.NewRoomID)
		if err != nil {
			return err
		}
		if occupant != nil {
			return ErrRoomOccupied
		}

		b, depositPayment, err := buildFinalBill(finalBillInputs{
			tenant:         *tenant,
			room:           *room,
			branch:         *branch,
			priorBills:     bills,
			moveOutDate:    in.TransferDate,
			presentReading: in.PresentReading,
			extraFee:       in.ExtraFee,
			isRoomTransfer: true,
		})
		if err != nil {
			return err
		}
		if err := st.SaveBill(ctx, b); err != nil {
			return err
		}
		if depositPayment != nil {
			if err := st.SavePayment(ctx, *depositPayment); err != nil {
				return err
			}
		}

		transferDate := in.TransferDate
		tenant.IsActive = false
		tenant.MoveOutDate = &transferDate
		if err := st.SaveTenant(ctx, *tenant); err != nil {
			return err
		}

		contract, err := billing.CycleFor(in.TransferDate, 12)
		if err != nil {
			return err
		}
		newTenant = Tenant{
			ID:                        uuid.NewString(),
			RoomID:                    in.NewRoomID,
			Name:                      tenant.Name,
			Email:                     tenant.Email,
			RentStartDate:             in.TransferDate,
			InitialElectricityReading: in.NewInitialReading,
			AdvancePayment:            newRoom.MonthlyRent,
			SecurityDeposit:           newRoom.MonthlyRent,
			ContractEndDate:           contract.End,
			IsActive:                  true,
			CreatedAt:                 time.Now().UTC(),
		}
		if err := st.SaveTenant(ctx, newTenant); err != nil {
			return err
		}

		finalBill = b
		return appendAudit(ctx, st, AuditEntry{
			ID: uuid.NewString(), At: now(), Actor: in.Actor, Action: AuditRoomTransfer,
			TenantID: tenant.ID, BillID: b.ID,
			Detail: map[string]string{
				"from_room": room.ID,
				"to_room":   newRoom.ID,
				"successor": newTenant.ID,
			},
		})
	})
	if err != nil {
		return nil, nil, err
	}
	return &finalBill, &newTenant, nil
}
