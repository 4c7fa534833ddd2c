/*
Package sqlite provides the SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Implements tenancy.TxStore and tenancy.AuditLog using SQLite. In
  production, the same patterns apply to PostgreSQL - only minor SQL
  dialect differences.

KEY TABLES:
  branches:  Property locations with per-branch utility rates
  rooms:     Rooms within a branch
  tenants:   Tenancies, one active per room at most
  bills:     One row per billing cycle, regenerated final bills included
  payments:  Money received, with the component allocation stored as JSON
  settings:  Key-value runtime configuration (penalty percentage)
  audit_log: Append-only trail of lifecycle operations

AMOUNT STORAGE:
  Money and meter readings are stored as decimal TEXT, never as REAL.
  Parsing back through the decimal package keeps currency math exact
  across a save/load round trip.

CONCURRENCY:
  A sync.RWMutex serializes writers, which satisfies the one-writer-per-
  bill guarantee. WithTx additionally wraps its callback in a database
  transaction so a failed operation rolls back every row it touched.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/rental.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  svc := tenancy.NewService(store)

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - tenancy/store.go: Interface definitions
  - tenancy/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/haven/rental-engine/billing"
	"github.com/haven/rental-engine/tenancy"
)

// Store implements tenancy.TxStore and tenancy.AuditLog using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
	q  queries
}

// New opens (or creates) the database at the given path and migrates the
// schema. Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db, q: queries{db: db}}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS branches (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		electricity_rate TEXT NOT NULL,
		water_rate TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS rooms (
		id TEXT PRIMARY KEY,
		branch_id TEXT NOT NULL,
		label TEXT NOT NULL,
		monthly_rent TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_rooms_branch ON rooms(branch_id);

	CREATE TABLE IF NOT EXISTS tenants (
		id TEXT PRIMARY KEY,
		room_id TEXT NOT NULL,
		name TEXT NOT NULL,
		email TEXT NOT NULL DEFAULT '',
		rent_start_date TEXT NOT NULL,
		initial_reading TEXT NOT NULL,
		advance_payment TEXT NOT NULL,
		security_deposit TEXT NOT NULL,
		contract_end_date TEXT NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		move_out_date TEXT,
		created_at TEXT NOT NULL
	);

	-- Occupancy checks and active-tenant listings (hot path)
	CREATE INDEX IF NOT EXISTS idx_tenants_room_active
		ON tenants(room_id, is_active);

	CREATE TABLE IF NOT EXISTS bills (
		id TEXT PRIMARY KEY,
		tenant_id TEXT NOT NULL,
		cycle_number INTEGER NOT NULL,
		period_start TEXT NOT NULL,
		period_end TEXT NOT NULL,
		due_date TEXT NOT NULL,
		previous_reading TEXT NOT NULL,
		present_reading TEXT NOT NULL,
		electricity_amount TEXT NOT NULL,
		water_amount TEXT NOT NULL,
		monthly_rent_amount TEXT NOT NULL,
		extra_fee TEXT NOT NULL,
		penalty_amount TEXT NOT NULL,
		total_amount_due TEXT NOT NULL,
		amount_paid TEXT NOT NULL,
		status TEXT NOT NULL,
		is_final_bill BOOLEAN NOT NULL DEFAULT FALSE,
		advance_payment TEXT NOT NULL,
		security_deposit TEXT NOT NULL,
		applied_advance_payment TEXT NOT NULL,
		applied_security_deposit TEXT NOT NULL,
		forfeited_amount TEXT NOT NULL,
		refund_amount TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- Cycle counting and reading chains walk a tenant's bills in order
	CREATE INDEX IF NOT EXISTS idx_bills_tenant ON bills(tenant_id);
	CREATE INDEX IF NOT EXISTS idx_bills_status ON bills(status);
	CREATE INDEX IF NOT EXISTS idx_bills_period_start ON bills(period_start);

	CREATE TABLE IF NOT EXISTS payments (
		id TEXT PRIMARY KEY,
		bill_id TEXT NOT NULL,
		amount TEXT NOT NULL,
		payment_date TEXT NOT NULL,
		method TEXT NOT NULL,
		allocations_json TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_payments_bill ON payments(bill_id);
	CREATE INDEX IF NOT EXISTS idx_payments_date ON payments(payment_date);

	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS audit_log (
		id TEXT PRIMARY KEY,
		at TEXT NOT NULL,
		actor TEXT NOT NULL DEFAULT '',
		action TEXT NOT NULL,
		tenant_id TEXT NOT NULL DEFAULT '',
		bill_id TEXT NOT NULL DEFAULT '',
		detail_json TEXT NOT NULL DEFAULT '{}'
	);

	CREATE INDEX IF NOT EXISTS idx_audit_tenant ON audit_log(tenant_id);
	CREATE INDEX IF NOT EXISTS idx_audit_action ON audit_log(action);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// TRANSACTIONAL STORE (tenancy.TxStore interface)
// =============================================================================

// WithTx executes fn within a database transaction. The store passed to fn
// also implements tenancy.AuditLog, so audit rows commit with the change.
func (s *Store) WithTx(ctx context.Context, fn func(st tenancy.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&queries{db: sqlTx}); err != nil {
		return err
	}
	return sqlTx.Commit()
}

// Locked single-call methods delegate to the shared query layer.

func (s *Store) SaveBranch(ctx context.Context, b tenancy.Branch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.q.SaveBranch(ctx, b)
}

func (s *Store) GetBranch(ctx context.Context, id string) (*tenancy.Branch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.q.GetBranch(ctx, id)
}

func (s *Store) ListBranches(ctx context.Context) ([]tenancy.Branch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.q.ListBranches(ctx)
}

func (s *Store) SaveRoom(ctx context.Context, r tenancy.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.q.SaveRoom(ctx, r)
}

func (s *Store) GetRoom(ctx context.Context, id string) (*tenancy.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.q.GetRoom(ctx, id)
}

func (s *Store) ListRoomsByBranch(ctx context.Context, branchID string) ([]tenancy.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.q.ListRoomsByBranch(ctx, branchID)
}

func (s *Store) SaveTenant(ctx context.Context, t tenancy.Tenant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.q.SaveTenant(ctx, t)
}

func (s *Store) GetTenant(ctx context.Context, id string) (*tenancy.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.q.GetTenant(ctx, id)
}

func (s *Store) ListTenants(ctx context.Context, activeOnly bool) ([]tenancy.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.q.ListTenants(ctx, activeOnly)
}

func (s *Store) ActiveTenantInRoom(ctx context.Context, roomID string) (*tenancy.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.q.ActiveTenantInRoom(ctx, roomID)
}

func (s *Store) SaveBill(ctx context.Context, b tenancy.Bill) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.q.SaveBill(ctx, b)
}

func (s *Store) GetBill(ctx context.Context, id string) (*tenancy.Bill, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.q.GetBill(ctx, id)
}

func (s *Store) ListBillsByTenant(ctx context.Context, tenantID string) ([]tenancy.Bill, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.q.ListBillsByTenant(ctx, tenantID)
}

func (s *Store) ListBillsByBranch(ctx context.Context, branchID string, from, to billing.Date) ([]tenancy.Bill, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.q.ListBillsByBranch(ctx, branchID, from, to)
}

func (s *Store) SavePayment(ctx context.Context, p tenancy.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.q.SavePayment(ctx, p)
}

func (s *Store) DeletePayment(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.q.DeletePayment(ctx, id)
}

func (s *Store) ListPaymentsByBill(ctx context.Context, billID string) ([]tenancy.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.q.ListPaymentsByBill(ctx, billID)
}

func (s *Store) ListPaymentsByBranch(ctx context.Context, branchID string, from, to billing.Date) ([]tenancy.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.q.ListPaymentsByBranch(ctx, branchID, from, to)
}

func (s *Store) GetSetting(ctx context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.q.GetSetting(ctx, key)
}

func (s *Store) SetSetting(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.q.SetSetting(ctx, key, value)
}

func (s *Store) AppendAudit(ctx context.Context, e tenancy.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.q.AppendAudit(ctx, e)
}

func (s *Store) QueryAudit(ctx context.Context, f tenancy.AuditFilter) ([]tenancy.AuditEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.q.QueryAudit(ctx, f)
}

// =============================================================================
// QUERY LAYER - Shared between the store and its transactions
// =============================================================================

// dbtx is the common surface of *sql.DB and *sql.Tx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type queries struct {
	db dbtx
}

// ---------------------------------------------------------------------------
// Branches

func (q *queries) SaveBranch(ctx context.Context, b tenancy.Branch) error {
	query := `
		INSERT INTO branches (id, name, electricity_rate, water_rate, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			electricity_rate = excluded.electricity_rate,
			water_rate = excluded.water_rate
	`
	_, err := q.db.ExecContext(ctx, query,
		b.ID, b.Name, b.ElectricityRate.String(), b.WaterRate.String(),
		timestamp(b.CreatedAt),
	)
	return err
}

func (q *queries) GetBranch(ctx context.Context, id string) (*tenancy.Branch, error) {
	row := q.db.QueryRowContext(ctx,
		"SELECT id, name, electricity_rate, water_rate, created_at FROM branches WHERE id = ?", id)
	b, err := scanBranch(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (q *queries) ListBranches(ctx context.Context) ([]tenancy.Branch, error) {
	rows, err := q.db.QueryContext(ctx,
		"SELECT id, name, electricity_rate, water_rate, created_at FROM branches ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var branches []tenancy.Branch
	for rows.Next() {
		b, err := scanBranch(rows)
		if err != nil {
			return nil, err
		}
		branches = append(branches, b)
	}
	return branches, rows.Err()
}

func scanBranch(row scanner) (tenancy.Branch, error) {
	var b tenancy.Branch
	var rate, water, createdAt string
	if err := row.Scan(&b.ID, &b.Name, &rate, &water, &createdAt); err != nil {
		return b, err
	}
	b.ElectricityRate = billing.MustParseMoney(rate)
	b.WaterRate = billing.MustParseMoney(water)
	b.CreatedAt = parseTimestamp(createdAt)
	return b, nil
}

// ---------------------------------------------------------------------------
// Rooms

func (q *queries) SaveRoom(ctx context.Context, r tenancy.Room) error {
	query := `
		INSERT INTO rooms (id, branch_id, label, monthly_rent, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			branch_id = excluded.branch_id,
			label = excluded.label,
			monthly_rent = excluded.monthly_rent
	`
	_, err := q.db.ExecContext(ctx, query,
		r.ID, r.BranchID, r.Label, r.MonthlyRent.String(), timestamp(r.CreatedAt))
	return err
}

func (q *queries) GetRoom(ctx context.Context, id string) (*tenancy.Room, error) {
	row := q.db.QueryRowContext(ctx,
		"SELECT id, branch_id, label, monthly_rent, created_at FROM rooms WHERE id = ?", id)
	r, err := scanRoom(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (q *queries) ListRoomsByBranch(ctx context.Context, branchID string) ([]tenancy.Room, error) {
	rows, err := q.db.QueryContext(ctx,
		"SELECT id, branch_id, label, monthly_rent, created_at FROM rooms WHERE branch_id = ? ORDER BY label",
		branchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []tenancy.Room
	for rows.Next() {
		r, err := scanRoom(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func scanRoom(row scanner) (tenancy.Room, error) {
	var r tenancy.Room
	var rent, createdAt string
	if err := row.Scan(&r.ID, &r.BranchID, &r.Label, &rent, &createdAt); err != nil {
		return r, err
	}
	r.MonthlyRent = billing.MustParseMoney(rent)
	r.CreatedAt = parseTimestamp(createdAt)
	return r, nil
}

// ---------------------------------------------------------------------------
// Tenants

const tenantColumns = `id, room_id, name, email, rent_start_date, initial_reading,
	advance_payment, security_deposit, contract_end_date, is_active, move_out_date, created_at`

func (q *queries) SaveTenant(ctx context.Context, t tenancy.Tenant) error {
	query := `
		INSERT INTO tenants (` + tenantColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			room_id = excluded.room_id,
			name = excluded.name,
			email = excluded.email,
			rent_start_date = excluded.rent_start_date,
			initial_reading = excluded.initial_reading,
			advance_payment = excluded.advance_payment,
			security_deposit = excluded.security_deposit,
			contract_end_date = excluded.contract_end_date,
			is_active = excluded.is_active,
			move_out_date = excluded.move_out_date
	`
	var moveOut *string
	if t.MoveOutDate != nil {
		d := t.MoveOutDate.String()
		moveOut = &d
	}
	_, err := q.db.ExecContext(ctx, query,
		t.ID, t.RoomID, t.Name, t.Email,
		t.RentStartDate.String(), t.InitialElectricityReading.String(),
		t.AdvancePayment.String(), t.SecurityDeposit.String(),
		t.ContractEndDate.String(), t.IsActive, moveOut,
		timestamp(t.CreatedAt),
	)
	return err
}

func (q *queries) GetTenant(ctx context.Context, id string) (*tenancy.Tenant, error) {
	row := q.db.QueryRowContext(ctx,
		"SELECT "+tenantColumns+" FROM tenants WHERE id = ?", id)
	t, err := scanTenant(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (q *queries) ListTenants(ctx context.Context, activeOnly bool) ([]tenancy.Tenant, error) {
	query := "SELECT " + tenantColumns + " FROM tenants"
	if activeOnly {
		query += " WHERE is_active = TRUE"
	}
	query += " ORDER BY name"

	rows, err := q.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []tenancy.Tenant
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (q *queries) ActiveTenantInRoom(ctx context.Context, roomID string) (*tenancy.Tenant, error) {
	row := q.db.QueryRowContext(ctx,
		"SELECT "+tenantColumns+" FROM tenants WHERE room_id = ? AND is_active = TRUE LIMIT 1", roomID)
	t, err := scanTenant(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func scanTenant(row scanner) (tenancy.Tenant, error) {
	var (
		t                        tenancy.Tenant
		rentStart, contractEnd   string
		initialReading           string
		advance, security        string
		moveOut                  sql.NullString
		createdAt                string
	)
	err := row.Scan(&t.ID, &t.RoomID, &t.Name, &t.Email, &rentStart, &initialReading,
		&advance, &security, &contractEnd, &t.IsActive, &moveOut, &createdAt)
	if err != nil {
		return t, err
	}
	t.RentStartDate = parseDate(rentStart)
	t.InitialElectricityReading = parseDecimal(initialReading)
	t.AdvancePayment = billing.MustParseMoney(advance)
	t.SecurityDeposit = billing.MustParseMoney(security)
	t.ContractEndDate = parseDate(contractEnd)
	if moveOut.Valid {
		d := parseDate(moveOut.String)
		t.MoveOutDate = &d
	}
	t.CreatedAt = parseTimestamp(createdAt)
	return t, nil
}

// ---------------------------------------------------------------------------
// Bills

const billColumns = `id, tenant_id, cycle_number, period_start, period_end, due_date,
	previous_reading, present_reading, electricity_amount, water_amount,
	monthly_rent_amount, extra_fee, penalty_amount, total_amount_due, amount_paid,
	status, is_final_bill, advance_payment, security_deposit,
	applied_advance_payment, applied_security_deposit, forfeited_amount,
	refund_amount, created_at, updated_at`

// billColumnsPrefixed qualifies every bill column with the "b" alias for
// joined queries, where id and created_at would otherwise be ambiguous.
const billColumnsPrefixed = `b.id, b.tenant_id, b.cycle_number, b.period_start, b.period_end, b.due_date,
	b.previous_reading, b.present_reading, b.electricity_amount, b.water_amount,
	b.monthly_rent_amount, b.extra_fee, b.penalty_amount, b.total_amount_due, b.amount_paid,
	b.status, b.is_final_bill, b.advance_payment, b.security_deposit,
	b.applied_advance_payment, b.applied_security_deposit, b.forfeited_amount,
	b.refund_amount, b.created_at, b.updated_at`

func (q *queries) SaveBill(ctx context.Context, b tenancy.Bill) error {
	query := `
		INSERT INTO bills (` + billColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			cycle_number = excluded.cycle_number,
			period_start = excluded.period_start,
			period_end = excluded.period_end,
			due_date = excluded.due_date,
			previous_reading = excluded.previous_reading,
			present_reading = excluded.present_reading,
			electricity_amount = excluded.electricity_amount,
			water_amount = excluded.water_amount,
			monthly_rent_amount = excluded.monthly_rent_amount,
			extra_fee = excluded.extra_fee,
			penalty_amount = excluded.penalty_amount,
			total_amount_due = excluded.total_amount_due,
			amount_paid = excluded.amount_paid,
			status = excluded.status,
			is_final_bill = excluded.is_final_bill,
			advance_payment = excluded.advance_payment,
			security_deposit = excluded.security_deposit,
			applied_advance_payment = excluded.applied_advance_payment,
			applied_security_deposit = excluded.applied_security_deposit,
			forfeited_amount = excluded.forfeited_amount,
			refund_amount = excluded.refund_amount,
			updated_at = excluded.updated_at
	`
	_, err := q.db.ExecContext(ctx, query,
		b.ID, b.TenantID, b.CycleNumber,
		b.PeriodStart.String(), b.PeriodEnd.String(), b.DueDate.String(),
		b.PreviousReading.String(), b.PresentReading.String(),
		b.ElectricityAmount.String(), b.WaterAmount.String(),
		b.MonthlyRentAmount.String(), b.ExtraFee.String(), b.PenaltyAmount.String(),
		b.TotalAmountDue.String(), b.AmountPaid.String(),
		string(b.Status), b.IsFinalBill,
		b.AdvancePayment.String(), b.SecurityDeposit.String(),
		b.AppliedAdvancePayment.String(), b.AppliedSecurityDeposit.String(),
		b.ForfeitedAmount.String(), b.RefundAmount.String(),
		timestamp(b.CreatedAt), timestamp(b.UpdatedAt),
	)
	return err
}

func (q *queries) GetBill(ctx context.Context, id string) (*tenancy.Bill, error) {
	row := q.db.QueryRowContext(ctx, "SELECT "+billColumns+" FROM bills WHERE id = ?", id)
	b, err := scanBill(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// ListBillsByTenant returns the tenant's bills in creation order. The upsert
// in SaveBill preserves rowid, so rowid order is insertion order even for
// regenerated bills.
func (q *queries) ListBillsByTenant(ctx context.Context, tenantID string) ([]tenancy.Bill, error) {
	rows, err := q.db.QueryContext(ctx,
		"SELECT "+billColumns+" FROM bills WHERE tenant_id = ? ORDER BY rowid ASC", tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectBills(rows)
}

func (q *queries) ListBillsByBranch(ctx context.Context, branchID string, from, to billing.Date) ([]tenancy.Bill, error) {
	query := `
		SELECT ` + billColumnsPrefixed + `
		FROM bills b
		JOIN tenants t ON t.id = b.tenant_id
		JOIN rooms r ON r.id = t.room_id
		WHERE r.branch_id = ?
	`
	args := []any{branchID}
	if !from.IsZero() {
		query += " AND b.period_start >= ?"
		args = append(args, from.String())
	}
	if !to.IsZero() {
		query += " AND b.period_start <= ?"
		args = append(args, to.String())
	}
	query += " ORDER BY b.rowid ASC"

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectBills(rows)
}

func collectBills(rows *sql.Rows) ([]tenancy.Bill, error) {
	var out []tenancy.Bill
	for rows.Next() {
		b, err := scanBill(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func scanBill(row scanner) (tenancy.Bill, error) {
	var (
		b                                  tenancy.Bill
		periodStart, periodEnd, dueDate    string
		prevReading, presReading           string
		electricity, water, rent           string
		extraFee, penalty, totalDue, paid  string
		status                             string
		advance, security                  string
		appliedAdvance, appliedSecurity    string
		forfeited, refund                  string
		createdAt, updatedAt               string
	)
	err := row.Scan(&b.ID, &b.TenantID, &b.CycleNumber,
		&periodStart, &periodEnd, &dueDate,
		&prevReading, &presReading,
		&electricity, &water, &rent, &extraFee, &penalty, &totalDue, &paid,
		&status, &b.IsFinalBill, &advance, &security,
		&appliedAdvance, &appliedSecurity, &forfeited, &refund,
		&createdAt, &updatedAt)
	if err != nil {
		return b, err
	}
	b.PeriodStart = parseDate(periodStart)
	b.PeriodEnd = parseDate(periodEnd)
	b.DueDate = parseDate(dueDate)
	b.PreviousReading = parseDecimal(prevReading)
	b.PresentReading = parseDecimal(presReading)
	b.ElectricityAmount = billing.MustParseMoney(electricity)
	b.WaterAmount = billing.MustParseMoney(water)
	b.MonthlyRentAmount = billing.MustParseMoney(rent)
	b.ExtraFee = billing.MustParseMoney(extraFee)
	b.PenaltyAmount = billing.MustParseMoney(penalty)
	b.TotalAmountDue = billing.MustParseMoney(totalDue)
	b.AmountPaid = billing.MustParseMoney(paid)
	b.Status = tenancy.BillStatus(status)
	b.AdvancePayment = billing.MustParseMoney(advance)
	b.SecurityDeposit = billing.MustParseMoney(security)
	b.AppliedAdvancePayment = billing.MustParseMoney(appliedAdvance)
	b.AppliedSecurityDeposit = billing.MustParseMoney(appliedSecurity)
	b.ForfeitedAmount = billing.MustParseMoney(forfeited)
	b.RefundAmount = billing.MustParseMoney(refund)
	b.CreatedAt = parseTimestamp(createdAt)
	b.UpdatedAt = parseTimestamp(updatedAt)
	return b, nil
}

// ---------------------------------------------------------------------------
// Payments

func (q *queries) SavePayment(ctx context.Context, p tenancy.Payment) error {
	allocationsJSON, err := json.Marshal(storedAllocations(p.Allocations))
	if err != nil {
		return fmt.Errorf("failed to encode allocations: %w", err)
	}

	query := `
		INSERT INTO payments (id, bill_id, amount, payment_date, method, allocations_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			amount = excluded.amount,
			payment_date = excluded.payment_date,
			method = excluded.method,
			allocations_json = excluded.allocations_json
	`
	_, err = q.db.ExecContext(ctx, query,
		p.ID, p.BillID, p.Amount.String(), p.PaymentDate.String(),
		string(p.Method), string(allocationsJSON), timestamp(p.CreatedAt))
	return err
}

func (q *queries) DeletePayment(ctx context.Context, id string) error {
	_, err := q.db.ExecContext(ctx, "DELETE FROM payments WHERE id = ?", id)
	return err
}

func (q *queries) ListPaymentsByBill(ctx context.Context, billID string) ([]tenancy.Payment, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, bill_id, amount, payment_date, method, allocations_json, created_at
		FROM payments WHERE bill_id = ? ORDER BY rowid ASC`, billID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectPayments(rows)
}

func (q *queries) ListPaymentsByBranch(ctx context.Context, branchID string, from, to billing.Date) ([]tenancy.Payment, error) {
	query := `
		SELECT p.id, p.bill_id, p.amount, p.payment_date, p.method, p.allocations_json, p.created_at
		FROM payments p
		JOIN bills b ON b.id = p.bill_id
		JOIN tenants t ON t.id = b.tenant_id
		JOIN rooms r ON r.id = t.room_id
		WHERE r.branch_id = ?
	`
	args := []any{branchID}
	if !from.IsZero() {
		query += " AND p.payment_date >= ?"
		args = append(args, from.String())
	}
	if !to.IsZero() {
		query += " AND p.payment_date <= ?"
		args = append(args, to.String())
	}
	query += " ORDER BY p.rowid ASC"

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectPayments(rows)
}

func collectPayments(rows *sql.Rows) ([]tenancy.Payment, error) {
	var out []tenancy.Payment
	for rows.Next() {
		var (
			p                           tenancy.Payment
			amount, paymentDate, method string
			allocationsJSON, createdAt  string
		)
		if err := rows.Scan(&p.ID, &p.BillID, &amount, &paymentDate, &method,
			&allocationsJSON, &createdAt); err != nil {
			return nil, err
		}
		p.Amount = billing.MustParseMoney(amount)
		p.PaymentDate = parseDate(paymentDate)
		p.Method = tenancy.PaymentMethod(method)
		p.CreatedAt = parseTimestamp(createdAt)

		var stored []storedAllocation
		if err := json.Unmarshal([]byte(allocationsJSON), &stored); err != nil {
			return nil, fmt.Errorf("failed to decode allocations for payment %s: %w", p.ID, err)
		}
		for _, a := range stored {
			p.Allocations = append(p.Allocations, billing.ComponentAllocation{
				Component: billing.ComponentType(a.Component),
				Amount:    billing.MustParseMoney(a.Amount),
			})
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// storedAllocation is the JSON shape of one component allocation. Amounts
// are decimal strings, matching the rest of the schema.
type storedAllocation struct {
	Component string `json:"component"`
	Amount    string `json:"amount"`
}

func storedAllocations(allocations []billing.ComponentAllocation) []storedAllocation {
	out := make([]storedAllocation, 0, len(allocations))
	for _, a := range allocations {
		out = append(out, storedAllocation{
			Component: string(a.Component),
			Amount:    a.Amount.String(),
		})
	}
	return out
}

// ---------------------------------------------------------------------------
// Settings

func (q *queries) GetSetting(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := q.db.QueryRowContext(ctx, "SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (q *queries) SetSetting(ctx context.Context, key, value string) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	return err
}

// ---------------------------------------------------------------------------
// Audit

func (q *queries) AppendAudit(ctx context.Context, e tenancy.AuditEntry) error {
	detailJSON, err := json.Marshal(e.Detail)
	if err != nil {
		return fmt.Errorf("failed to encode audit detail: %w", err)
	}
	_, err = q.db.ExecContext(ctx, `
		INSERT INTO audit_log (id, at, actor, action, tenant_id, bill_id, detail_json)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.At, e.Actor, string(e.Action), e.TenantID, e.BillID, string(detailJSON))
	return err
}

func (q *queries) QueryAudit(ctx context.Context, f tenancy.AuditFilter) ([]tenancy.AuditEntry, error) {
	query := `
		SELECT id, at, actor, action, tenant_id, bill_id, detail_json
		FROM audit_log WHERE 1=1
	`
	var args []any
	if f.TenantID != "" {
		query += " AND tenant_id = ?"
		args = append(args, f.TenantID)
	}
	if f.BillID != "" {
		query += " AND bill_id = ?"
		args = append(args, f.BillID)
	}
	if f.Action != "" {
		query += " AND action = ?"
		args = append(args, string(f.Action))
	}
	query += " ORDER BY rowid ASC"

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []tenancy.AuditEntry
	for rows.Next() {
		var e tenancy.AuditEntry
		var action, detailJSON string
		if err := rows.Scan(&e.ID, &e.At, &e.Actor, &action, &e.TenantID, &e.BillID, &detailJSON); err != nil {
			return nil, err
		}
		e.Action = tenancy.AuditAction(action)
		if err := json.Unmarshal([]byte(detailJSON), &e.Detail); err != nil {
			return nil, fmt.Errorf("failed to decode audit detail for %s: %w", e.ID, err)
		}
		out = append(out, e)
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[len(out)-f.Limit:]
	}
	return out, rows.Err()
}

// =============================================================================
// HELPERS
// =============================================================================

// scanner is the shared surface of *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func parseTimestamp(s string) time.Time {
	t, _ := time.Parse(time.RFC3339, s)
	return t
}

func parseDate(s string) billing.Date {
	t, _ := time.Parse("2006-01-02", s)
	return billing.DateOf(t)
}

func parseDecimal(s string) decimal.Decimal {
	d, _ := decimal.NewFromString(s)
	return d
}

// Compile-time interface checks.
var (
	_ tenancy.TxStore  = (*Store)(nil)
	_ tenancy.AuditLog = (*Store)(nil)
	_ tenancy.Store    = (*queries)(nil)
	_ tenancy.AuditLog = (*queries)(nil)
)
