/*
dto.go - Request/response data structures for the HTTP API

PURPOSE:
  Wire-format types and their conversions to and from domain records.
  Money travels as decimal strings (never floats), dates as YYYY-MM-DD.
  Request structs carry validator tags; handlers validate before touching
  the domain.

SEE ALSO:
  - handlers.go: The handlers consuming these
*/
package api

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/haven/rental-engine/billing"
	"github.com/haven/rental-engine/reports"
	"github.com/haven/rental-engine/tenancy"
)

var validate = validator.New()

const dateLayout = "2006-01-02"

// =============================================================================
// REQUEST TYPES
// =============================================================================

type CreateBranchRequest struct {
	ID              string `json:"id"`
	Name            string `json:"name" validate:"required"`
	ElectricityRate string `json:"electricity_rate" validate:"required"`
	WaterRate       string `json:"water_rate" validate:"required"`
}

type CreateRoomRequest struct {
	ID          string `json:"id"`
	Label       string `json:"label" validate:"required"`
	MonthlyRent string `json:"monthly_rent" validate:"required"`
}

type MoveInRequest struct {
	RoomID         string `json:"room_id" validate:"required"`
	Name           string `json:"name" validate:"required"`
	Email          string `json:"email" validate:"omitempty,email"`
	RentStartDate  string `json:"rent_start_date" validate:"required,datetime=2006-01-02"`
	InitialReading string `json:"initial_reading" validate:"required"`
	ContractMonths int    `json:"contract_months" validate:"omitempty,min=1"`
	Actor          string `json:"actor"`
}

type RenewContractRequest struct {
	Months int    `json:"months" validate:"required,min=1"`
	Actor  string `json:"actor"`
}

type GenerateBillRequest struct {
	PresentReading string `json:"present_reading" validate:"required"`
	ExtraFee       string `json:"extra_fee"`
	Actor          string `json:"actor"`
}

type EditBillRequest struct {
	PresentReading string `json:"present_reading" validate:"required"`
	ExtraFee       string `json:"extra_fee"`
	Actor          string `json:"actor"`
}

type ApplyPenaltyRequest struct {
	// Today lets backfills apply the penalty as of a past date; empty
	// means the current date.
	Today string `json:"today" validate:"omitempty,datetime=2006-01-02"`
	Actor string `json:"actor"`
}

type RecordPaymentRequest struct {
	Amount      string `json:"amount" validate:"required"`
	PaymentDate string `json:"payment_date" validate:"required,datetime=2006-01-02"`
	Method      string `json:"method" validate:"required,oneof=cash gcash"`
	Actor       string `json:"actor"`
}

type MoveOutRequest struct {
	MoveOutDate    string `json:"move_out_date" validate:"required,datetime=2006-01-02"`
	PresentReading string `json:"present_reading" validate:"required"`
	ExtraFee       string `json:"extra_fee"`
	Actor          string `json:"actor"`
}

type RegenerateFinalBillRequest struct {
	MoveOutDate    string `json:"move_out_date" validate:"required,datetime=2006-01-02"`
	PresentReading string `json:"present_reading" validate:"required"`
	ExtraFee       string `json:"extra_fee"`
	IsRoomTransfer bool   `json:"is_room_transfer"`
	Actor          string `json:"actor"`
}

type TransferRoomRequest struct {
	NewRoomID         string `json:"new_room_id" validate:"required"`
	TransferDate      string `json:"transfer_date" validate:"required,datetime=2006-01-02"`
	PresentReading    string `json:"present_reading" validate:"required"`
	NewInitialReading string `json:"new_initial_reading" validate:"required"`
	ExtraFee          string `json:"extra_fee"`
	Actor             string `json:"actor"`
}

type UpdatePenaltyRequest struct {
	PenaltyPercent string `json:"penalty_percentage" validate:"required"`
	Actor          string `json:"actor"`
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

type BranchDTO struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	ElectricityRate string `json:"electricity_rate"`
	WaterRate       string `json:"water_rate"`
	CreatedAt       string `json:"created_at"`
}

type RoomDTO struct {
	ID          string `json:"id"`
	BranchID    string `json:"branch_id"`
	Label       string `json:"label"`
	MonthlyRent string `json:"monthly_rent"`
	CreatedAt   string `json:"created_at"`
}

type TenantDTO struct {
	ID                        string `json:"id"`
	RoomID                    string `json:"room_id"`
	Name                      string `json:"name"`
	Email                     string `json:"email,omitempty"`
	RentStartDate             string `json:"rent_start_date"`
	InitialElectricityReading string `json:"initial_electricity_reading"`
	AdvancePayment            string `json:"advance_payment"`
	SecurityDeposit           string `json:"security_deposit"`
	ContractEndDate           string `json:"contract_end_date"`
	IsActive                  bool   `json:"is_active"`
	MoveOutDate               string `json:"move_out_date,omitempty"`
	CreatedAt                 string `json:"created_at"`
}

type BillDTO struct {
	ID          string `json:"id"`
	TenantID    string `json:"tenant_id"`
	CycleNumber int    `json:"cycle_number"`
	PeriodStart string `json:"period_start"`
	PeriodEnd   string `json:"period_end"`
	DueDate     string `json:"due_date"`

	PreviousReading string `json:"previous_reading"`
	PresentReading  string `json:"present_reading"`

	ElectricityAmount string `json:"electricity_amount"`
	WaterAmount       string `json:"water_amount"`
	MonthlyRentAmount string `json:"monthly_rent_amount"`
	ExtraFee          string `json:"extra_fee"`
	PenaltyAmount     string `json:"penalty_amount"`

	TotalAmountDue string `json:"total_amount_due"`
	AmountPaid     string `json:"amount_paid"`
	Outstanding    string `json:"outstanding"`
	Status         string `json:"status"`

	IsFinalBill            bool   `json:"is_final_bill"`
	AdvancePayment         string `json:"advance_payment,omitempty"`
	SecurityDeposit        string `json:"security_deposit,omitempty"`
	AppliedAdvancePayment  string `json:"applied_advance_payment,omitempty"`
	AppliedSecurityDeposit string `json:"applied_security_deposit,omitempty"`
	ForfeitedAmount        string `json:"forfeited_amount,omitempty"`
	RefundAmount           string `json:"refund_amount,omitempty"`

	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

type AllocationDTO struct {
	Component string `json:"component"`
	Amount    string `json:"amount"`
}

type PaymentDTO struct {
	ID          string          `json:"id"`
	BillID      string          `json:"bill_id"`
	Amount      string          `json:"amount"`
	PaymentDate string          `json:"payment_date"`
	Method      string          `json:"method"`
	Allocations []AllocationDTO `json:"allocations"`
	CreatedAt   string          `json:"created_at"`
}

type PaymentResultDTO struct {
	Payment PaymentDTO `json:"payment"`
	Bill    BillDTO    `json:"bill"`
}

type TransferResultDTO struct {
	FinalBill BillDTO   `json:"final_bill"`
	NewTenant TenantDTO `json:"new_tenant"`
}

type SettingDTO struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type AuditEntryDTO struct {
	ID       string            `json:"id"`
	At       string            `json:"at"`
	Actor    string            `json:"actor,omitempty"`
	Action   string            `json:"action"`
	TenantID string            `json:"tenant_id,omitempty"`
	BillID   string            `json:"bill_id,omitempty"`
	Detail   map[string]string `json:"detail,omitempty"`
}

type MethodTotalDTO struct {
	Method string `json:"method"`
	Amount string `json:"amount"`
}

type ComponentTotalDTO struct {
	Component string `json:"component"`
	Amount    string `json:"amount"`
}

type BranchReportDTO struct {
	BranchID   string `json:"branch_id"`
	BranchName string `json:"branch_name"`
	From       string `json:"from,omitempty"`
	To         string `json:"to,omitempty"`

	BillCount    int `json:"bill_count"`
	PaymentCount int `json:"payment_count"`

	TotalBilled       string `json:"total_billed"`
	TotalCollected    string `json:"total_collected"`
	TotalOutstanding  string `json:"total_outstanding"`
	PenaltiesCharged  string `json:"penalties_charged"`
	DepositsForfeited string `json:"deposits_forfeited"`
	RefundsIssued     string `json:"refunds_issued"`

	CollectedByMethod    []MethodTotalDTO    `json:"collected_by_method"`
	CollectedByComponent []ComponentTotalDTO `json:"collected_by_component"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toBranchDTO(b tenancy.Branch) BranchDTO {
	return BranchDTO{
		ID:              b.ID,
		Name:            b.Name,
		ElectricityRate: b.ElectricityRate.String(),
		WaterRate:       b.WaterRate.String(),
		CreatedAt:       b.CreatedAt.Format(time.RFC3339),
	}
}

func toRoomDTO(r tenancy.Room) RoomDTO {
	return RoomDTO{
		ID:          r.ID,
		BranchID:    r.BranchID,
		Label:       r.Label,
		MonthlyRent: r.MonthlyRent.String(),
		CreatedAt:   r.CreatedAt.Format(time.RFC3339),
	}
}

func toTenantDTO(t tenancy.Tenant) TenantDTO {
	dto := TenantDTO{
		ID:                        t.ID,
		RoomID:                    t.RoomID,
		Name:                      t.Name,
		Email:                     t.Email,
		RentStartDate:             t.RentStartDate.String(),
		InitialElectricityReading: t.InitialElectricityReading.String(),
		AdvancePayment:            t.AdvancePayment.String(),
		SecurityDeposit:           t.SecurityDeposit.String(),
		ContractEndDate:           t.ContractEndDate.String(),
		IsActive:                  t.IsActive,
		CreatedAt:                 t.CreatedAt.Format(time.RFC3339),
	}
	if t.MoveOutDate != nil {
		dto.MoveOutDate = t.MoveOutDate.String()
	}
	return dto
}

func toBillDTO(b tenancy.Bill) BillDTO {
	dto := BillDTO{
		ID:                b.ID,
		TenantID:          b.TenantID,
		CycleNumber:       b.CycleNumber,
		PeriodStart:       b.PeriodStart.String(),
		PeriodEnd:         b.PeriodEnd.String(),
		DueDate:           b.DueDate.String(),
		PreviousReading:   b.PreviousReading.String(),
		PresentReading:    b.PresentReading.String(),
		ElectricityAmount: b.ElectricityAmount.String(),
		WaterAmount:       b.WaterAmount.String(),
		MonthlyRentAmount: b.MonthlyRentAmount.String(),
		ExtraFee:          b.ExtraFee.String(),
		PenaltyAmount:     b.PenaltyAmount.String(),
		TotalAmountDue:    b.TotalAmountDue.String(),
		AmountPaid:        b.AmountPaid.String(),
		Outstanding:       b.Outstanding().String(),
		Status:            string(b.Status),
		IsFinalBill:       b.IsFinalBill,
		CreatedAt:         b.CreatedAt.Format(time.RFC3339),
		UpdatedAt:         b.UpdatedAt.Format(time.RFC3339),
	}
	if b.IsFinalBill {
		dto.AdvancePayment = b.AdvancePayment.String()
		dto.SecurityDeposit = b.SecurityDeposit.String()
		dto.AppliedAdvancePayment = b.AppliedAdvancePayment.String()
		dto.AppliedSecurityDeposit = b.AppliedSecurityDeposit.String()
		dto.ForfeitedAmount = b.ForfeitedAmount.String()
		dto.RefundAmount = b.RefundAmount.String()
	}
	return dto
}

func toPaymentDTO(p tenancy.Payment) PaymentDTO {
	dto := PaymentDTO{
		ID:          p.ID,
		BillID:      p.BillID,
		Amount:      p.Amount.String(),
		PaymentDate: p.PaymentDate.String(),
		Method:      string(p.Method),
		Allocations: []AllocationDTO{},
		CreatedAt:   p.CreatedAt.Format(time.RFC3339),
	}
	for _, a := range p.Allocations {
		dto.Allocations = append(dto.Allocations, AllocationDTO{
			Component: string(a.Component),
			Amount:    a.Amount.String(),
		})
	}
	return dto
}

func toAuditDTO(e tenancy.AuditEntry) AuditEntryDTO {
	return AuditEntryDTO{
		ID:       e.ID,
		At:       e.At,
		Actor:    e.Actor,
		Action:   string(e.Action),
		TenantID: e.TenantID,
		BillID:   e.BillID,
		Detail:   e.Detail,
	}
}

func toReportDTO(r *reports.BranchReport) BranchReportDTO {
	dto := BranchReportDTO{
		BranchID:             r.Branch.ID,
		BranchName:           r.Branch.Name,
		BillCount:            r.BillCount,
		PaymentCount:         r.PaymentCount,
		TotalBilled:          r.TotalBilled.String(),
		TotalCollected:       r.TotalCollected.String(),
		TotalOutstanding:     r.TotalOutstanding.String(),
		PenaltiesCharged:     r.PenaltiesCharged.String(),
		DepositsForfeited:    r.DepositsForfeited.String(),
		RefundsIssued:        r.RefundsIssued.String(),
		CollectedByMethod:    []MethodTotalDTO{},
		CollectedByComponent: []ComponentTotalDTO{},
	}
	if !r.From.IsZero() {
		dto.From = r.From.String()
	}
	if !r.To.IsZero() {
		dto.To = r.To.String()
	}
	for _, m := range r.CollectedByMethod {
		dto.CollectedByMethod = append(dto.CollectedByMethod, MethodTotalDTO{
			Method: string(m.Method), Amount: m.Amount.String(),
		})
	}
	for _, c := range r.CollectedByComponent {
		dto.CollectedByComponent = append(dto.CollectedByComponent, ComponentTotalDTO{
			Component: string(c.Component), Amount: c.Amount.String(),
		})
	}
	return dto
}

// =============================================================================
// PARSING HELPERS
// =============================================================================

func parseDate(s string) (billing.Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return billing.Date{}, fmt.Errorf("invalid date %q (use YYYY-MM-DD): %w", s, err)
	}
	return billing.DateOf(t), nil
}

// parseOptionalDate returns a zero Date for the empty string.
func parseOptionalDate(s string) (billing.Date, error) {
	if s == "" {
		return billing.Date{}, nil
	}
	return parseDate(s)
}

func parseMoney(s string) (billing.Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return billing.ZeroMoney(), fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return billing.Money{Value: d}, nil
}

// parseOptionalMoney returns zero for the empty string.
func parseOptionalMoney(s string) (billing.Money, error) {
	if s == "" {
		return billing.ZeroMoney(), nil
	}
	return parseMoney(s)
}

func parseReading(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid meter reading %q: %w", s, err)
	}
	return d, nil
}
