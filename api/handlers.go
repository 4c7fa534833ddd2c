/*
handlers.go - HTTP API handlers for the rental management system

PURPOSE:
  Exposes the tenancy engine via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Branches:
    GET    /api/branches                    List branches
    POST   /api/branches                    Create branch
    GET    /api/branches/{id}               Get branch
    GET    /api/branches/{id}/rooms         List rooms
    POST   /api/branches/{id}/rooms         Create room
    GET    /api/branches/{id}/report        Branch financial summary (JSON)
    GET    /api/branches/{id}/report.xlsx   Same summary as a spreadsheet

  Tenants:
    POST   /api/tenants                     Move a tenant in
    GET    /api/tenants/{id}                Get tenant
    GET    /api/tenants/{id}/bills          Bill history
    POST   /api/tenants/{id}/bills          Generate next cycle bill
    POST   /api/tenants/{id}/renew          Extend the contract
    POST   /api/tenants/{id}/move-out       Settle and deactivate
    POST   /api/tenants/{id}/transfer       Settle and re-open in a new room

  Bills:
    GET    /api/bills/{id}                  Get bill
    PUT    /api/bills/{id}                  Edit an ordinary bill
    POST   /api/bills/{id}/penalty          Apply the overdue penalty
    GET    /api/bills/{id}/payments         Payments against the bill
    POST   /api/bills/{id}/payments         Record a payment
    POST   /api/bills/{id}/regenerate       Rebuild a final bill

  Settings:
    GET    /api/settings/penalty            Current penalty percentage
    PUT    /api/settings/penalty            Change it

  Audit:
    GET    /api/audit                       Query the audit trail

REQUEST FLOW:
  1. Parse HTTP request
  2. Validate input (validator tags on the request structs)
  3. Call domain logic (tenancy.Service, reports.Reporter)
  4. Serialize response
  5. Handle errors

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Resource not found
  - 409: Conflict (occupied room, unsettled cycle, repeated penalty)
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/haven/rental-engine/billing"
	"github.com/haven/rental-engine/reports"
	"github.com/haven/rental-engine/tenancy"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store    tenancy.TxStore
	Service  *tenancy.Service
	Reporter *reports.Reporter
}

// NewHandler creates a new handler over the given store.
func NewHandler(store tenancy.TxStore) *Handler {
	return &Handler{
		Store:    store,
		Service:  tenancy.NewService(store),
		Reporter: reports.NewReporter(store),
	}
}

// decode unmarshals the request body into req and runs validation. A false
// return means the error response has already been written.
func decode(w http.ResponseWriter, r *http.Request, req any) bool {
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "Validation failed", err)
		return false
	}
	return true
}

// writeDomainError maps a domain error onto the right HTTP status.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case tenancy.IsNotFound(err):
		writeError(w, http.StatusNotFound, "Not found", err)
	case errors.Is(err, tenancy.ErrRoomOccupied),
		errors.Is(err, tenancy.ErrCycleNotSettled),
		errors.Is(err, tenancy.ErrPenaltyAlreadyApplied):
		writeError(w, http.StatusConflict, "Conflict", err)
	case tenancy.IsClientError(err):
		writeError(w, http.StatusBadRequest, "Invalid request", err)
	default:
		writeError(w, http.StatusInternalServerError, "Internal error", err)
	}
}

// =============================================================================
// BRANCH ENDPOINTS
// =============================================================================

// ListBranches returns every branch.
// GET /api/branches
func (h *Handler) ListBranches(w http.ResponseWriter, r *http.Request) {
	branches, err := h.Store.ListBranches(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list branches", err)
		return
	}
	dtos := make([]BranchDTO, 0, len(branches))
	for _, b := range branches {
		dtos = append(dtos, toBranchDTO(b))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateBranch creates a branch.
// POST /api/branches
func (h *Handler) CreateBranch(w http.ResponseWriter, r *http.Request) {
	var req CreateBranchRequest
	if !decode(w, r, &req) {
		return
	}
	elecRate, err := parseMoney(req.ElectricityRate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid electricity rate", err)
		return
	}
	waterRate, err := parseMoney(req.WaterRate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid water rate", err)
		return
	}
	branch := tenancy.Branch{
		ID:              req.ID,
		Name:            req.Name,
		ElectricityRate: elecRate,
		WaterRate:       waterRate,
		CreatedAt:       time.Now().UTC(),
	}
	if branch.ID == "" {
		branch.ID = uuid.NewString()
	}
	if err := h.Store.SaveBranch(r.Context(), branch); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save branch", err)
		return
	}
	writeJSON(w, http.StatusCreated, toBranchDTO(branch))
}

// GetBranch returns one branch.
// GET /api/branches/{id}
func (h *Handler) GetBranch(w http.ResponseWriter, r *http.Request) {
	branch, err := h.Store.GetBranch(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load branch", err)
		return
	}
	if branch == nil {
		writeError(w, http.StatusNotFound, "Branch not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toBranchDTO(*branch))
}

// ListRooms returns the branch's rooms.
// GET /api/branches/{id}/rooms
func (h *Handler) ListRooms(w http.ResponseWriter, r *http.Request) {
	branchID := chi.URLParam(r, "id")
	branch, err := h.Store.GetBranch(r.Context(), branchID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load branch", err)
		return
	}
	if branch == nil {
		writeError(w, http.StatusNotFound, "Branch not found", nil)
		return
	}
	rooms, err := h.Store.ListRoomsByBranch(r.Context(), branchID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list rooms", err)
		return
	}
	dtos := make([]RoomDTO, 0, len(rooms))
	for _, room := range rooms {
		dtos = append(dtos, toRoomDTO(room))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateRoom adds a room to a branch.
// POST /api/branches/{id}/rooms
func (h *Handler) CreateRoom(w http.ResponseWriter, r *http.Request) {
	branchID := chi.URLParam(r, "id")
	var req CreateRoomRequest
	if !decode(w, r, &req) {
		return
	}
	branch, err := h.Store.GetBranch(r.Context(), branchID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load branch", err)
		return
	}
	if branch == nil {
		writeError(w, http.StatusNotFound, "Branch not found", nil)
		return
	}
	rent, err := parseMoney(req.MonthlyRent)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid monthly rent", err)
		return
	}
	room := tenancy.Room{
		ID:          req.ID,
		BranchID:    branchID,
		Label:       req.Label,
		MonthlyRent: rent,
		CreatedAt:   time.Now().UTC(),
	}
	if room.ID == "" {
		room.ID = uuid.NewString()
	}
	if err := h.Store.SaveRoom(r.Context(), room); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save room", err)
		return
	}
	writeJSON(w, http.StatusCreated, toRoomDTO(room))
}

// GetBranchReport returns the branch financial summary for an optional
// ?from=YYYY-MM-DD&to=YYYY-MM-DD window.
// GET /api/branches/{id}/report
func (h *Handler) GetBranchReport(w http.ResponseWriter, r *http.Request) {
	report, ok := h.buildReport(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toReportDTO(report))
}

// DownloadBranchReport streams the same summary as an XLSX workbook.
// GET /api/branches/{id}/report.xlsx
func (h *Handler) DownloadBranchReport(w http.ResponseWriter, r *http.Request) {
	report, ok := h.buildReport(w, r)
	if !ok {
		return
	}
	filename := fmt.Sprintf("branch-report-%s-%s.xlsx",
		report.Branch.ID, time.Now().Format("2006-01-02"))
	w.Header().Set("Content-Type",
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if err := reports.WriteXLSX(w, report); err != nil {
		// Headers are already out; the truncated body is the best we can do.
		writeError(w, http.StatusInternalServerError, "Failed to write report", err)
	}
}

func (h *Handler) buildReport(w http.ResponseWriter, r *http.Request) (*reports.BranchReport, bool) {
	from, err := parseOptionalDate(r.URL.Query().Get("from"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid from date", err)
		return nil, false
	}
	to, err := parseOptionalDate(r.URL.Query().Get("to"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid to date", err)
		return nil, false
	}
	report, err := h.Reporter.BranchReport(r.Context(), chi.URLParam(r, "id"), from, to)
	if err != nil {
		writeDomainError(w, err)
		return nil, false
	}
	return report, true
}

// =============================================================================
// TENANT ENDPOINTS
// =============================================================================

// MoveIn creates a tenancy in a vacant room.
// POST /api/tenants
func (h *Handler) MoveIn(w http.ResponseWriter, r *http.Request) {
	var req MoveInRequest
	if !decode(w, r, &req) {
		return
	}
	startDate, err := parseDate(req.RentStartDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid rent start date", err)
		return
	}
	reading, err := parseReading(req.InitialReading)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid initial reading", err)
		return
	}
	tenant, err := h.Service.MoveIn(r.Context(), tenancy.MoveInInput{
		RoomID:         req.RoomID,
		Name:           req.Name,
		Email:          req.Email,
		RentStartDate:  startDate,
		InitialReading: reading,
		ContractMonths: req.ContractMonths,
		Actor:          req.Actor,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTenantDTO(*tenant))
}

// GetTenant returns one tenant.
// GET /api/tenants/{id}
func (h *Handler) GetTenant(w http.ResponseWriter, r *http.Request) {
	tenant, err := h.Store.GetTenant(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load tenant", err)
		return
	}
	if tenant == nil {
		writeError(w, http.StatusNotFound, "Tenant not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toTenantDTO(*tenant))
}

// ListBills returns the tenant's bill history in cycle order.
// GET /api/tenants/{id}/bills
func (h *Handler) ListBills(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "id")
	tenant, err := h.Store.GetTenant(r.Context(), tenantID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load tenant", err)
		return
	}
	if tenant == nil {
		writeError(w, http.StatusNotFound, "Tenant not found", nil)
		return
	}
	bills, err := h.Store.ListBillsByTenant(r.Context(), tenantID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list bills", err)
		return
	}
	dtos := make([]BillDTO, 0, len(bills))
	for _, b := range bills {
		dtos = append(dtos, toBillDTO(b))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GenerateBill creates the tenant's next cycle bill.
// POST /api/tenants/{id}/bills
func (h *Handler) GenerateBill(w http.ResponseWriter, r *http.Request) {
	var req GenerateBillRequest
	if !decode(w, r, &req) {
		return
	}
	reading, err := parseReading(req.PresentReading)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid present reading", err)
		return
	}
	extraFee, err := parseOptionalMoney(req.ExtraFee)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid extra fee", err)
		return
	}
	bill, err := h.Service.GenerateBill(r.Context(), tenancy.GenerateBillInput{
		TenantID:       chi.URLParam(r, "id"),
		PresentReading: reading,
		ExtraFee:       extraFee,
		Actor:          req.Actor,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toBillDTO(*bill))
}

// RenewContract extends the tenant's contract end date.
// POST /api/tenants/{id}/renew
func (h *Handler) RenewContract(w http.ResponseWriter, r *http.Request) {
	var req RenewContractRequest
	if !decode(w, r, &req) {
		return
	}
	tenant, err := h.Service.RenewContract(r.Context(), chi.URLParam(r, "id"), req.Months, req.Actor)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTenantDTO(*tenant))
}

// MoveOut settles the tenancy and returns the final bill.
// POST /api/tenants/{id}/move-out
func (h *Handler) MoveOut(w http.ResponseWriter, r *http.Request) {
	var req MoveOutRequest
	if !decode(w, r, &req) {
		return
	}
	moveOutDate, err := parseDate(req.MoveOutDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid move out date", err)
		return
	}
	reading, err := parseReading(req.PresentReading)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid present reading", err)
		return
	}
	extraFee, err := parseOptionalMoney(req.ExtraFee)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid extra fee", err)
		return
	}
	bill, err := h.Service.MoveOut(r.Context(), tenancy.MoveOutInput{
		TenantID:       chi.URLParam(r, "id"),
		MoveOutDate:    moveOutDate,
		PresentReading: reading,
		ExtraFee:       extraFee,
		Actor:          req.Actor,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toBillDTO(*bill))
}

// TransferRoom settles the current room without forfeiture and opens a
// successor tenancy in the target room.
// POST /api/tenants/{id}/transfer
func (h *Handler) TransferRoom(w http.ResponseWriter, r *http.Request) {
	var req TransferRoomRequest
	if !decode(w, r, &req) {
		return
	}
	transferDate, err := parseDate(req.TransferDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid transfer date", err)
		return
	}
	reading, err := parseReading(req.PresentReading)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid present reading", err)
		return
	}
	newReading, err := parseReading(req.NewInitialReading)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid new initial reading", err)
		return
	}
	extraFee, err := parseOptionalMoney(req.ExtraFee)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid extra fee", err)
		return
	}
	finalBill, newTenant, err := h.Service.TransferRoom(r.Context(), tenancy.TransferRoomInput{
		TenantID:          chi.URLParam(r, "id"),
		NewRoomID:         req.NewRoomID,
		TransferDate:      transferDate,
		PresentReading:    reading,
		NewInitialReading: newReading,
		ExtraFee:          extraFee,
		Actor:             req.Actor,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, TransferResultDTO{
		FinalBill: toBillDTO(*finalBill),
		NewTenant: toTenantDTO(*newTenant),
	})
}

// =============================================================================
// BILL ENDPOINTS
// =============================================================================

// GetBill returns one bill.
// GET /api/bills/{id}
func (h *Handler) GetBill(w http.ResponseWriter, r *http.Request) {
	bill, err := h.Store.GetBill(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load bill", err)
		return
	}
	if bill == nil {
		writeError(w, http.StatusNotFound, "Bill not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toBillDTO(*bill))
}

// EditBill recomputes an ordinary bill from corrected inputs.
// PUT /api/bills/{id}
func (h *Handler) EditBill(w http.ResponseWriter, r *http.Request) {
	var req EditBillRequest
	if !decode(w, r, &req) {
		return
	}
	reading, err := parseReading(req.PresentReading)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid present reading", err)
		return
	}
	extraFee, err := parseOptionalMoney(req.ExtraFee)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid extra fee", err)
		return
	}
	bill, err := h.Service.EditBill(r.Context(), tenancy.EditBillInput{
		BillID:         chi.URLParam(r, "id"),
		PresentReading: reading,
		ExtraFee:       extraFee,
		Actor:          req.Actor,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBillDTO(*bill))
}

// ApplyPenalty adds the flat overdue penalty to a bill. The optional
// "today" field supports backfilling as of a past date.
// POST /api/bills/{id}/penalty
func (h *Handler) ApplyPenalty(w http.ResponseWriter, r *http.Request) {
	var req ApplyPenaltyRequest
	if !decode(w, r, &req) {
		return
	}
	today, err := parseOptionalDate(req.Today)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date", err)
		return
	}
	if today.IsZero() {
		today = billing.DateOf(time.Now())
	}
	bill, err := h.Service.ApplyPenalty(r.Context(), chi.URLParam(r, "id"), today, req.Actor)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBillDTO(*bill))
}

// ListPayments returns the payments recorded against a bill.
// GET /api/bills/{id}/payments
func (h *Handler) ListPayments(w http.ResponseWriter, r *http.Request) {
	billID := chi.URLParam(r, "id")
	bill, err := h.Store.GetBill(r.Context(), billID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load bill", err)
		return
	}
	if bill == nil {
		writeError(w, http.StatusNotFound, "Bill not found", nil)
		return
	}
	payments, err := h.Store.ListPaymentsByBill(r.Context(), billID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list payments", err)
		return
	}
	dtos := make([]PaymentDTO, 0, len(payments))
	for _, p := range payments {
		dtos = append(dtos, toPaymentDTO(p))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// RecordPayment records money received against a bill and returns the
// payment with its component allocation plus the updated bill.
// POST /api/bills/{id}/payments
func (h *Handler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	var req RecordPaymentRequest
	if !decode(w, r, &req) {
		return
	}
	amount, err := parseMoney(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid amount", err)
		return
	}
	paymentDate, err := parseDate(req.PaymentDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid payment date", err)
		return
	}
	payment, bill, err := h.Service.RecordPayment(r.Context(), tenancy.RecordPaymentInput{
		BillID:      chi.URLParam(r, "id"),
		Amount:      amount,
		PaymentDate: paymentDate,
		Method:      tenancy.PaymentMethod(req.Method),
		Actor:       req.Actor,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, PaymentResultDTO{
		Payment: toPaymentDTO(*payment),
		Bill:    toBillDTO(*bill),
	})
}

// RegenerateFinalBill rebuilds a final bill from corrected inputs.
// POST /api/bills/{id}/regenerate
func (h *Handler) RegenerateFinalBill(w http.ResponseWriter, r *http.Request) {
	var req RegenerateFinalBillRequest
	if !decode(w, r, &req) {
		return
	}
	moveOutDate, err := parseDate(req.MoveOutDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid move out date", err)
		return
	}
	reading, err := parseReading(req.PresentReading)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid present reading", err)
		return
	}
	extraFee, err := parseOptionalMoney(req.ExtraFee)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid extra fee", err)
		return
	}
	bill, err := h.Service.RegenerateFinalBill(r.Context(), tenancy.RegenerateFinalBillInput{
		BillID:         chi.URLParam(r, "id"),
		MoveOutDate:    moveOutDate,
		PresentReading: reading,
		ExtraFee:       extraFee,
		IsRoomTransfer: req.IsRoomTransfer,
		Actor:          req.Actor,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBillDTO(*bill))
}

// =============================================================================
// SETTINGS ENDPOINTS
// =============================================================================

// GetPenaltySetting returns the configured penalty percentage.
// GET /api/settings/penalty
func (h *Handler) GetPenaltySetting(w http.ResponseWriter, r *http.Request) {
	percent, err := h.Service.PenaltyPercent(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load setting", err)
		return
	}
	writeJSON(w, http.StatusOK, SettingDTO{
		Key:   tenancy.SettingPenaltyPercent,
		Value: percent.String(),
	})
}

// UpdatePenaltySetting changes the penalty percentage for future penalties.
// Already-applied penalties keep their amounts.
// PUT /api/settings/penalty
func (h *Handler) UpdatePenaltySetting(w http.ResponseWriter, r *http.Request) {
	var req UpdatePenaltyRequest
	if !decode(w, r, &req) {
		return
	}
	percent, err := decimal.NewFromString(req.PenaltyPercent)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid penalty percentage", err)
		return
	}
	if err := h.Service.SetPenaltyPercent(r.Context(), percent, req.Actor); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, SettingDTO{
		Key:   tenancy.SettingPenaltyPercent,
		Value: percent.String(),
	})
}

// =============================================================================
// AUDIT ENDPOINTS
// =============================================================================

// QueryAudit returns audit entries filtered by ?tenant_id=&bill_id=&action=&limit=.
// GET /api/audit
func (h *Handler) QueryAudit(w http.ResponseWriter, r *http.Request) {
	log, ok := h.Store.(tenancy.AuditLog)
	if !ok {
		writeError(w, http.StatusNotImplemented, "Audit log not supported by this store", nil)
		return
	}
	q := r.URL.Query()
	filter := tenancy.AuditFilter{
		TenantID: q.Get("tenant_id"),
		BillID:   q.Get("bill_id"),
		Action:   tenancy.AuditAction(q.Get("action")),
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			writeError(w, http.StatusBadRequest, "Invalid limit", err)
			return
		}
		filter.Limit = limit
	}
	entries, err := log.QueryAudit(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to query audit log", err)
		return
	}
	dtos := make([]AuditEntryDTO, 0, len(entries))
	for _, e := range entries {
		dtos = append(dtos, toAuditDTO(e))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
