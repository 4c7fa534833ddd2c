/*
store.go - Persistence interfaces for the tenancy domain

PURPOSE:
  Defines the contract between the domain services and the database.
  Implementations: store/sqlite (production), tenancy/store (in-memory,
  for tests).

ATOMICITY:
  Two concurrent payment or edit requests against the same bill race if
  the read-compute-write is not atomic. Every bill mutation in service.go
  runs inside WithTx, so implementations must guarantee at most one writer
  at a time per bill row (a database transaction, or a lock in memory).

DELETE SEMANTICS:
  Payments are deletable for exactly one reason: regenerating a final bill
  replaces its synthetic deposit-application payment (delete, then insert
  with the new applied amount) so the component ledger stays consistent.
  Bills are never deleted in normal flow.

SEE ALSO:
  - service.go: The only caller of these interfaces
  - store/memory.go: In-memory implementation
  - ../store/sqlite: SQLite implementation
*/
package tenancy

import (
	"context"

	"github.com/haven/rental-engine/billing"
)

// =============================================================================
// STORE - Record persistence
// =============================================================================

type Store interface {
	// Branches and rooms
	SaveBranch(ctx context.Context, b Branch) error
	GetBranch(ctx context.Context, id string) (*Branch, error)
	ListBranches(ctx context.Context) ([]Branch, error)
	SaveRoom(ctx context.Context, r Room) error
	GetRoom(ctx context.Context, id string) (*Room, error)
	ListRoomsByBranch(ctx context.Context, branchID string) ([]Room, error)

	// Tenants
	SaveTenant(ctx context.Context, t Tenant) error
	GetTenant(ctx context.Context, id string) (*Tenant, error)
	ListTenants(ctx context.Context, activeOnly bool) ([]Tenant, error)
	// ActiveTenantInRoom returns the active tenant occupying the room, or
	// nil when the room is vacant.
	ActiveTenantInRoom(ctx context.Context, roomID string) (*Tenant, error)

	// Bills. ListBillsByTenant returns bills in creation (cycle) order.
	// Branch listings filter on the bill's period start; zero dates mean
	// unbounded on that side.
	SaveBill(ctx context.Context, b Bill) error
	GetBill(ctx context.Context, id string) (*Bill, error)
	ListBillsByTenant(ctx context.Context, tenantID string) ([]Bill, error)
	ListBillsByBranch(ctx context.Context, branchID string, from, to billing.Date) ([]Bill, error)

	// Payments. Branch listings filter on the payment date.
	SavePayment(ctx context.Context, p Payment) error
	DeletePayment(ctx context.Context, id string) error
	ListPaymentsByBill(ctx context.Context, billID string) ([]Payment, error)
	ListPaymentsByBranch(ctx context.Context, branchID string, from, to billing.Date) ([]Payment, error)

	// Settings (key/value, e.g. the penalty percentage)
	GetSetting(ctx context.Context, key string) (string, bool, error)
	SetSetting(ctx context.Context, key, value string) error
}

// TxStore extends Store with transactional execution. fn runs with a Store
// whose writes commit together or not at all.
type TxStore interface {
	Store
	WithTx(ctx context.Context, fn func(Store) error) error
}

// =============================================================================
// AUDIT LOG - Who did what, when
// =============================================================================

type AuditAction string

const (
	AuditMoveIn               AuditAction = "move_in"
	AuditContractRenewed      AuditAction = "contract_renewed"
	AuditBillGenerated        AuditAction = "bill_generated"
	AuditBillEdited           AuditAction = "bill_edited"
	AuditPenaltyApplied       AuditAction = "penalty_applied"
	AuditPaymentRecorded      AuditAction = "payment_recorded"
	AuditFinalBillGenerated   AuditAction = "final_bill_generated"
	AuditFinalBillRegenerated AuditAction = "final_bill_regenerated"
	AuditRoomTransfer         AuditAction = "room_transfer"
	AuditSettingChanged       AuditAction = "setting_changed"
)

// AuditEntry records one domain action. Append-only.
type AuditEntry struct {
	ID       string
	At       string // RFC3339
	Actor    string
	Action   AuditAction
	TenantID string
	BillID   string
	Detail   map[string]string
}

type AuditLog interface {
	AppendAudit(ctx context.Context, e AuditEntry) error
	QueryAudit(ctx context.Context, filter AuditFilter) ([]AuditEntry, error)
}

type AuditFilter struct {
	TenantID string
	BillID   string
	Action   AuditAction
	Limit    int
}
