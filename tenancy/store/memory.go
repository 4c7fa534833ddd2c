// Package store provides an in-memory tenancy.Store for tests and dev.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/haven/rental-engine/billing"
	"github.com/haven/rental-engine/tenancy"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory implements tenancy.TxStore and tenancy.AuditLog. A single mutex
// serializes writers, which satisfies the one-writer-per-bill guarantee
// trivially. WithTx snapshots the maps and restores them on error, so a
// failed operation leaves no partial state behind.
type Memory struct {
	mu   sync.Mutex
	data *tables
}

type tables struct {
	branches map[string]tenancy.Branch
	rooms    map[string]tenancy.Room
	tenants  map[string]tenancy.Tenant
	bills    map[string]tenancy.Bill
	payments map[string]tenancy.Payment
	settings map[string]string
	audit    []tenancy.AuditEntry

	// billSeq preserves creation order for ListBillsByTenant.
	billSeq []string
}

func NewMemory() *Memory {
	return &Memory{data: &tables{
		branches: make(map[string]tenancy.Branch),
		rooms:    make(map[string]tenancy.Room),
		tenants:  make(map[string]tenancy.Tenant),
		bills:    make(map[string]tenancy.Bill),
		payments: make(map[string]tenancy.Payment),
		settings: make(map[string]string),
	}}
}

// WithTx runs fn under the store lock with rollback-on-error semantics.
func (m *Memory) WithTx(_ context.Context, fn func(tenancy.Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.data.clone()
	if err := fn(&view{data: m.data}); err != nil {
		m.data = snapshot
		return err
	}
	return nil
}

func (t *tables) clone() *tables {
	c := &tables{
		branches: make(map[string]tenancy.Branch, len(t.branches)),
		rooms:    make(map[string]tenancy.Room, len(t.rooms)),
		tenants:  make(map[string]tenancy.Tenant, len(t.tenants)),
		bills:    make(map[string]tenancy.Bill, len(t.bills)),
		payments: make(map[string]tenancy.Payment, len(t.payments)),
		settings: make(map[string]string, len(t.settings)),
		audit:    append([]tenancy.AuditEntry(nil), t.audit...),
		billSeq:  append([]string(nil), t.billSeq...),
	}
	for k, v := range t.branches {
		c.branches[k] = v
	}
	for k, v := range t.rooms {
		c.rooms[k] = v
	}
	for k, v := range t.tenants {
		c.tenants[k] = v
	}
	for k, v := range t.bills {
		c.bills[k] = v
	}
	for k, v := range t.payments {
		c.payments[k] = v
	}
	for k, v := range t.settings {
		c.settings[k] = v
	}
	return c
}

// Locked single-call methods delegate to an unlocked view.

func (m *Memory) locked() (*view, func()) {
	m.mu.Lock()
	return &view{data: m.data}, m.mu.Unlock
}

func (m *Memory) SaveBranch(ctx context.Context, b tenancy.Branch) error {
	v, done := m.locked()
	defer done()
	return v.SaveBranch(ctx, b)
}

func (m *Memory) GetBranch(ctx context.Context, id string) (*tenancy.Branch, error) {
	v, done := m.locked()
	defer done()
	return v.GetBranch(ctx, id)
}

func (m *Memory) ListBranches(ctx context.Context) ([]tenancy.Branch, error) {
	v, done := m.locked()
	defer done()
	return v.ListBranches(ctx)
}

func (m *Memory) SaveRoom(ctx context.Context, r tenancy.Room) error {
	v, done := m.locked()
	defer done()
	return v.SaveRoom(ctx, r)
}

func (m *Memory) GetRoom(ctx context.Context, id string) (*tenancy.Room, error) {
	v, done := m.locked()
	defer done()
	return v.GetRoom(ctx, id)
}

func (m *Memory) ListRoomsByBranch(ctx context.Context, branchID string) ([]tenancy.Room, error) {
	v, done := m.locked()
	defer done()
	return v.ListRoomsByBranch(ctx, branchID)
}

func (m *Memory) SaveTenant(ctx context.Context, t tenancy.Tenant) error {
	v, done := m.locked()
	defer done()
	return v.SaveTenant(ctx, t)
}

func (m *Memory) GetTenant(ctx context.Context, id string) (*tenancy.Tenant, error) {
	v, done := m.locked()
	defer done()
	return v.GetTenant(ctx, id)
}

func (m *Memory) ListTenants(ctx context.Context, activeOnly bool) ([]tenancy.Tenant, error) {
	v, done := m.locked()
	defer done()
	return v.ListTenants(ctx, activeOnly)
}

func (m *Memory) ActiveTenantInRoom(ctx context.Context, roomID string) (*tenancy.Tenant, error) {
	v, done := m.locked()
	defer done()
	return v.ActiveTenantInRoom(ctx, roomID)
}

func (m *Memory) SaveBill(ctx context.Context, b tenancy.Bill) error {
	v, done := m.locked()
	defer done()
	return v.SaveBill(ctx, b)
}

func (m *Memory) GetBill(ctx context.Context, id string) (*tenancy.Bill, error) {
	v, done := m.locked()
	defer done()
	return v.GetBill(ctx, id)
}

func (m *Memory) ListBillsByTenant(ctx context.Context, tenantID string) ([]tenancy.Bill, error) {
	v, done := m.locked()
	defer done()
	return v.ListBillsByTenant(ctx, tenantID)
}

func (m *Memory) ListBillsByBranch(ctx context.Context, branchID string, from, to billing.Date) ([]tenancy.Bill, error) {
	v, done := m.locked()
	defer done()
	return v.ListBillsByBranch(ctx, branchID, from, to)
}

func (m *Memory) SavePayment(ctx context.Context, p tenancy.Payment) error {
	v, done := m.locked()
	defer done()
	return v.SavePayment(ctx, p)
}

func (m *Memory) DeletePayment(ctx context.Context, id string) error {
	v, done := m.locked()
	defer done()
	return v.DeletePayment(ctx, id)
}

func (m *Memory) ListPaymentsByBill(ctx context.Context, billID string) ([]tenancy.Payment, error) {
	v, done := m.locked()
	defer done()
	return v.ListPaymentsByBill(ctx, billID)
}

func (m *Memory) ListPaymentsByBranch(ctx context.Context, branchID string, from, to billing.Date) ([]tenancy.Payment, error) {
	v, done := m.locked()
	defer done()
	return v.ListPaymentsByBranch(ctx, branchID, from, to)
}

func (m *Memory) GetSetting(ctx context.Context, key string) (string, bool, error) {
	v, done := m.locked()
	defer done()
	return v.GetSetting(ctx, key)
}

func (m *Memory) SetSetting(ctx context.Context, key, value string) error {
	v, done := m.locked()
	defer done()
	return v.SetSetting(ctx, key, value)
}

func (m *Memory) AppendAudit(ctx context.Context, e tenancy.AuditEntry) error {
	v, done := m.locked()
	defer done()
	return v.AppendAudit(ctx, e)
}

func (m *Memory) QueryAudit(ctx context.Context, f tenancy.AuditFilter) ([]tenancy.AuditEntry, error) {
	v, done := m.locked()
	defer done()
	return v.QueryAudit(ctx, f)
}

// =============================================================================
// VIEW - Unlocked operations over the tables, used inside WithTx
// =============================================================================

type view struct {
	data *tables
}

func (v *view) SaveBranch(_ context.Context, b tenancy.Branch) error {
	v.data.branches[b.ID] = b
	return nil
}

func (v *view) GetBranch(_ context.Context, id string) (*tenancy.Branch, error) {
	if b, ok := v.data.branches[id]; ok {
		return &b, nil
	}
	return nil, nil
}

func (v *view) ListBranches(_ context.Context) ([]tenancy.Branch, error) {
	out := make([]tenancy.Branch, 0, len(v.data.branches))
	for _, b := range v.data.branches {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (v *view) SaveRoom(_ context.Context, r tenancy.Room) error {
	v.data.rooms[r.ID] = r
	return nil
}

func (v *view) GetRoom(_ context.Context, id string) (*tenancy.Room, error) {
	if r, ok := v.data.rooms[id]; ok {
		return &r, nil
	}
	return nil, nil
}

func (v *view) ListRoomsByBranch(_ context.Context, branchID string) ([]tenancy.Room, error) {
	var out []tenancy.Room
	for _, r := range v.data.rooms {
		if r.BranchID == branchID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out, nil
}

func (v *view) SaveTenant(_ context.Context, t tenancy.Tenant) error {
	v.data.tenants[t.ID] = t
	return nil
}

func (v *view) GetTenant(_ context.Context, id string) (*tenancy.Tenant, error) {
	if t, ok := v.data.tenants[id]; ok {
		return &t, nil
	}
	return nil, nil
}

func (v *view) ListTenants(_ context.Context, activeOnly bool) ([]tenancy.Tenant, error) {
	var out []tenancy.Tenant
	for _, t := range v.data.tenants {
		if activeOnly && !t.IsActive {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (v *view) ActiveTenantInRoom(_ context.Context, roomID string) (*tenancy.Tenant, error) {
	for _, t := range v.data.tenants {
		if t.RoomID == roomID && t.IsActive {
			tt := t
			return &tt, nil
		}
	}
	return nil, nil
}

func (v *view) SaveBill(_ context.Context, b tenancy.Bill) error {
	if _, exists := v.data.bills[b.ID]; !exists {
		v.data.billSeq = append(v.data.billSeq, b.ID)
	}
	v.data.bills[b.ID] = b
	return nil
}

func (v *view) GetBill(_ context.Context, id string) (*tenancy.Bill, error) {
	if b, ok := v.data.bills[id]; ok {
		return &b, nil
	}
	return nil, nil
}

func (v *view) ListBillsByTenant(_ context.Context, tenantID string) ([]tenancy.Bill, error) {
	var out []tenancy.Bill
	for _, id := range v.data.billSeq {
		if b, ok := v.data.bills[id]; ok && b.TenantID == tenantID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (v *view) ListBillsByBranch(_ context.Context, branchID string, from, to billing.Date) ([]tenancy.Bill, error) {
	var out []tenancy.Bill
	for _, id := range v.data.billSeq {
		b, ok := v.data.bills[id]
		if !ok {
			continue
		}
		tenant, ok := v.data.tenants[b.TenantID]
		if !ok {
			continue
		}
		room, ok := v.data.rooms[tenant.RoomID]
		if !ok || room.BranchID != branchID {
			continue
		}
		if !from.IsZero() && b.PeriodStart.Before(from) {
			continue
		}
		if !to.IsZero() && b.PeriodStart.After(to) {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

func (v *view) SavePayment(_ context.Context, p tenancy.Payment) error {
	v.data.payments[p.ID] = p
	return nil
}

func (v *view) DeletePayment(_ context.Context, id string) error {
	delete(v.data.payments, id)
	return nil
}

func (v *view) ListPaymentsByBill(_ context.Context, billID string) ([]tenancy.Payment, error) {
	var out []tenancy.Payment
	for _, p := range v.data.payments {
		if p.BillID == billID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (v *view) ListPaymentsByBranch(_ context.Context, branchID string, from, to billing.Date) ([]tenancy.Payment, error) {
	var out []tenancy.Payment
	for _, p := range v.data.payments {
		bill, ok := v.data.bills[p.BillID]
		if !ok {
			continue
		}
		tenant, ok := v.data.tenants[bill.TenantID]
		if !ok {
			continue
		}
		room, ok := v.data.rooms[tenant.RoomID]
		if !ok || room.BranchID != branchID {
			continue
		}
		if !from.IsZero() && p.PaymentDate.Before(from) {
			continue
		}
		if !to.IsZero() && p.PaymentDate.After(to) {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (v *view) GetSetting(_ context.Context, key string) (string, bool, error) {
	val, ok := v.data.settings[key]
	return val, ok, nil
}

func (v *view) SetSetting(_ context.Context, key, value string) error {
	v.data.settings[key] = value
	return nil
}

func (v *view) AppendAudit(_ context.Context, e tenancy.AuditEntry) error {
	v.data.audit = append(v.data.audit, e)
	return nil
}

func (v *view) QueryAudit(_ context.Context, f tenancy.AuditFilter) ([]tenancy.AuditEntry, error) {
	var out []tenancy.AuditEntry
	for _, e := range v.data.audit {
		if f.TenantID != "" && e.TenantID != f.TenantID {
			continue
		}
		if f.BillID != "" && e.BillID != f.BillID {
			continue
		}
		if f.Action != "" && e.Action != f.Action {
			continue
		}
		out = append(out, e)
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[len(out)-f.Limit:]
	}
	return out, nil
}

// Compile-time interface checks.
var (
	_ tenancy.TxStore  = (*Memory)(nil)
	_ tenancy.AuditLog = (*Memory)(nil)
	_ tenancy.Store    = (*view)(nil)
	_ tenancy.AuditLog = (*view)(nil)
)
