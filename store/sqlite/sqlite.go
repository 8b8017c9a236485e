/*
Package sqlite provides the SQLite-backed leave.Store.

PURPOSE:
  Persists employees, recalculated ledgers, and reconciliation audit
  records. In production the same patterns apply to PostgreSQL - only
  minor SQL dialect differences.

KEY TABLES:
  employees:            Employee records
  ledgers:              One row of ledger-level state per employee
  grant_periods:        The recalculated period array, one row per period
  usage_dates:          Itemized consumed days, one row per calendar day
  reconciliation_runs:  Audit trail of merges

DATE DISJOINTNESS:
  usage_dates has PRIMARY KEY (employee_id, date): a calendar day can
  belong to at most one period per employee, enforced at the database
  level on top of the engine's own checks.

ATOMIC LEDGER SAVES:
  A ledger is the unit of consistency, so SaveLedger replaces the
  employee's ledger row, period rows, and date rows inside one SQL
  transaction. Readers never observe a half-written recalculation.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/leave.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - leave/store.go: Interface definition
  - store/memory: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/warp/leave-ledger/leave"
)

// Store implements leave.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
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

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS employees (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		hire_date TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'active',
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS ledgers (
		employee_id TEXT PRIMARY KEY,
		external_date_count INTEGER NOT NULL DEFAULT 0,
		recalculated_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS grant_periods (
		employee_id TEXT NOT NULL,
		period_index INTEGER NOT NULL,
		elapsed_months INTEGER NOT NULL,
		grant_date TEXT NOT NULL,
		expiry_date TEXT NOT NULL,
		granted TEXT NOT NULL,
		used TEXT NOT NULL,
		carry_over TEXT NOT NULL,
		expired TEXT NOT NULL,
		cap_exceeded TEXT NOT NULL,
		is_expired BOOLEAN NOT NULL DEFAULT FALSE,
		is_current BOOLEAN NOT NULL DEFAULT FALSE,
		PRIMARY KEY (employee_id, period_index)
	);

	CREATE INDEX IF NOT EXISTS idx_grant_periods_grant_date
		ON grant_periods(employee_id, grant_date);

	-- CRITICAL: one calendar day belongs to at most one period per
	-- employee. The engine checks this too; the primary key makes it
	-- impossible to persist a violation.
	CREATE TABLE IF NOT EXISTS usage_dates (
		employee_id TEXT NOT NULL,
		date TEXT NOT NULL,
		half BOOLEAN NOT NULL DEFAULT FALSE,
		origin TEXT NOT NULL DEFAULT 'local',
		period_index INTEGER NOT NULL,
		PRIMARY KEY (employee_id, date)
	);

	CREATE INDEX IF NOT EXISTS idx_usage_dates_period
		ON usage_dates(employee_id, period_index);

	CREATE TABLE IF NOT EXISTS reconciliation_runs (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		mode TEXT NOT NULL,
		conflicts INTEGER NOT NULL DEFAULT 0,
		warnings INTEGER NOT NULL DEFAULT 0,
		notes TEXT,
		run_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_reconciliation_runs_employee
		ON reconciliation_runs(employee_id, run_at DESC);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// EMPLOYEES
// =============================================================================

// SaveEmployee inserts or updates an employee.
func (s *Store) SaveEmployee(ctx context.Context, emp leave.Employee) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO employees (id, name, hire_date, status, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			hire_date = excluded.hire_date,
			status = excluded.status
	`

	_, err := s.db.ExecContext(ctx, query,
		emp.ID, emp.Name,
		emp.HireDate.String(),
		string(emp.Status),
		time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// GetEmployee retrieves an employee by ID. Returns
// leave.ErrEmployeeNotFound when no record exists.
func (s *Store) GetEmployee(ctx context.Context, id string) (*leave.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		emp      leave.Employee
		hireDate string
		status   string
	)

	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, hire_date, status FROM employees WHERE id = ?",
		id,
	).Scan(&emp.ID, &emp.Name, &hireDate, &status)

	if err == sql.ErrNoRows {
		return nil, leave.ErrEmployeeNotFound
	}
	if err != nil {
		return nil, err
	}

	emp.HireDate, err = leave.ParseDate(hireDate)
	if err != nil {
		return nil, fmt.Errorf("corrupt hire_date for %s: %w", id, err)
	}
	emp.Status = leave.EmploymentStatus(status)
	return &emp, nil
}

// ListEmployees returns all employees ordered by ID.
func (s *Store) ListEmployees(ctx context.Context) ([]leave.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, hire_date, status FROM employees ORDER BY id",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var employees []leave.Employee
	for rows.Next() {
		var (
			emp      leave.Employee
			hireDate string
			status   string
		)
		if err := rows.Scan(&emp.ID, &emp.Name, &hireDate, &status); err != nil {
			return nil, err
		}
		emp.HireDate, err = leave.ParseDate(hireDate)
		if err != nil {
			return nil, fmt.Errorf("corrupt hire_date for %s: %w", emp.ID, err)
		}
		emp.Status = leave.EmploymentStatus(status)
		employees = append(employees, emp)
	}
	return employees, rows.Err()
}

// =============================================================================
// LEDGERS
// =============================================================================

// SaveLedger replaces the employee's persisted ledger in one SQL
// transaction: ledger row, period rows, and date rows all swap together.
func (s *Store) SaveLedger(ctx context.Context, l leave.Ledger) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC().Format(time.RFC3339)
	_, err = tx.ExecContext(ctx, `
		INSERT INTO ledgers (employee_id, external_date_count, recalculated_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(employee_id) DO UPDATE SET
			external_date_count = excluded.external_date_count,
			recalculated_at = excluded.recalculated_at,
			updated_at = excluded.updated_at
	`, l.EmployeeID, l.ExternalDateCount, l.RecalculatedAt.String(), now)
	if err != nil {
		return fmt.Errorf("failed to save ledger: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM grant_periods WHERE employee_id = ?", l.EmployeeID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM usage_dates WHERE employee_id = ?", l.EmployeeID); err != nil {
		return err
	}

	for _, p := range l.Periods {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO grant_periods
			(employee_id, period_index, elapsed_months, grant_date, expiry_date,
			 granted, used, carry_over, expired, cap_exceeded, is_expired, is_current)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			l.EmployeeID, p.PeriodIndex, p.ElapsedMonths,
			p.GrantDate.String(), p.ExpiryDate.String(),
			p.Granted.String(), p.Used.String(), p.CarryOver.String(),
			p.Expired.String(), p.CapExceeded.String(),
			p.IsExpired, p.IsCurrent,
		)
		if err != nil {
			return fmt.Errorf("failed to save period %d: %w", p.PeriodIndex, err)
		}

		for _, u := range p.UsageDates {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO usage_dates (employee_id, date, half, origin, period_index)
				VALUES (?, ?, ?, ?, ?)
			`, l.EmployeeID, u.Date.String(), u.Half, string(u.Origin), p.PeriodIndex)
			if err != nil {
				if isUniqueConstraintError(err) {
					return fmt.Errorf("%w: %s on %s", leave.ErrDuplicateDate, l.EmployeeID, u.Date)
				}
				return fmt.Errorf("failed to save usage date: %w", err)
			}
		}
	}

	return tx.Commit()
}

// GetLedger loads the employee's ledger and recomputes the derived
// totals from the stored periods, so callers always see aggregates
// consistent with the period rows even if the schema gains columns
// later. Returns leave.ErrLedgerNotFound when the employee has no
// persisted ledger.
func (s *Store) GetLedger(ctx context.Context, employeeID string) (*leave.Ledger, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l := leave.NewLedger(employeeID)

	var recalculatedAt string
	err := s.db.QueryRowContext(ctx,
		"SELECT external_date_count, recalculated_at FROM ledgers WHERE employee_id = ?",
		employeeID,
	).Scan(&l.ExternalDateCount, &recalculatedAt)
	if err == sql.ErrNoRows {
		return nil, leave.ErrLedgerNotFound
	}
	if err != nil {
		return nil, err
	}
	if l.RecalculatedAt, err = leave.ParseDate(recalculatedAt); err != nil {
		return nil, fmt.Errorf("corrupt recalculated_at for %s: %w", employeeID, err)
	}

	periods, err := s.loadPeriods(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	if err := s.loadUsageDates(ctx, employeeID, periods); err != nil {
		return nil, err
	}
	l.Periods = periods

	rebuilt := leave.Recalculate(l, l.RecalculatedAt)
	return &rebuilt, nil
}

func (s *Store) loadPeriods(ctx context.Context, employeeID string) ([]leave.GrantPeriod, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT period_index, elapsed_months, grant_date, expiry_date,
		       granted, used, carry_over, expired, cap_exceeded, is_expired, is_current
		FROM grant_periods
		WHERE employee_id = ?
		ORDER BY period_index ASC
	`, employeeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var periods []leave.GrantPeriod
	for rows.Next() {
		var (
			p                                              leave.GrantPeriod
			grantDate, expiryDate                          string
			granted, used, carryOver, expired, capExceeded string
		)
		if err := rows.Scan(
			&p.PeriodIndex, &p.ElapsedMonths, &grantDate, &expiryDate,
			&granted, &used, &carryOver, &expired, &capExceeded,
			&p.IsExpired, &p.IsCurrent,
		); err != nil {
			return nil, err
		}

		if p.GrantDate, err = leave.ParseDate(grantDate); err != nil {
			return nil, fmt.Errorf("corrupt grant_date: %w", err)
		}
		if p.ExpiryDate, err = leave.ParseDate(expiryDate); err != nil {
			return nil, fmt.Errorf("corrupt expiry_date: %w", err)
		}
		if p.Granted, err = parseDecimal(granted); err != nil {
			return nil, err
		}
		if p.Used, err = parseDecimal(used); err != nil {
			return nil, err
		}
		if p.CarryOver, err = parseDecimal(carryOver); err != nil {
			return nil, err
		}
		if p.Expired, err = parseDecimal(expired); err != nil {
			return nil, err
		}
		if p.CapExceeded, err = parseDecimal(capExceeded); err != nil {
			return nil, err
		}

		periods = append(periods, p)
	}
	return periods, rows.Err()
}

func (s *Store) loadUsageDates(ctx context.Context, employeeID string, periods []leave.GrantPeriod) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT date, half, origin, period_index
		FROM usage_dates
		WHERE employee_id = ?
		ORDER BY date ASC
	`, employeeID)
	if err != nil {
		return err
	}
	defer rows.Close()

	byIndex := make(map[int]int, len(periods))
	for i, p := range periods {
		byIndex[p.PeriodIndex] = i
	}

	for rows.Next() {
		var (
			dateStr     string
			u           leave.UsageDate
			origin      string
			periodIndex int
		)
		if err := rows.Scan(&dateStr, &u.Half, &origin, &periodIndex); err != nil {
			return err
		}
		if u.Date, err = leave.ParseDate(dateStr); err != nil {
			return fmt.Errorf("corrupt usage date: %w", err)
		}
		u.Origin = leave.UsageOrigin(origin)

		i, ok := byIndex[periodIndex]
		if !ok {
			return fmt.Errorf("usage date %s references unknown period %d for %s",
				dateStr, periodIndex, employeeID)
		}
		periods[i].UsageDates = append(periods[i].UsageDates, u)
	}
	return rows.Err()
}

// =============================================================================
// RECONCILIATION RUNS
// =============================================================================

// SaveReconciliationRun records a merge for audit.
func (s *Store) SaveReconciliationRun(ctx context.Context, run leave.ReconciliationRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO reconciliation_runs (id, employee_id, mode, conflicts, warnings, notes, run_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		run.ID, run.EmployeeID, string(run.Mode),
		run.Conflicts, run.Warnings, run.Notes,
		run.RunAt.UTC().Format(time.RFC3339),
	)
	return err
}

// ListReconciliationRuns returns the most recent runs, newest first.
func (s *Store) ListReconciliationRuns(ctx context.Context, limit int) ([]leave.ReconciliationRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, employee_id, mode, conflicts, warnings, notes, run_at
		FROM reconciliation_runs
		ORDER BY run_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []leave.ReconciliationRun
	for rows.Next() {
		var (
			r     leave.ReconciliationRun
			mode  string
			notes sql.NullString
			runAt string
		)
		if err := rows.Scan(&r.ID, &r.EmployeeID, &mode, &r.Conflicts, &r.Warnings, &notes, &runAt); err != nil {
			return nil, err
		}
		r.Mode = leave.MergeMode(mode)
		r.Notes = notes.String
		r.RunAt, _ = time.Parse(time.RFC3339, runAt)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"usage_dates", "grant_periods", "ledgers", "reconciliation_runs", "employees"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

func parseDecimal(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("corrupt decimal %q: %w", s, err)
	}
	return d, nil
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

var _ leave.Store = (*Store)(nil)
