/*
store.go - Persistence interface for employees and ledgers

PURPOSE:
  Defines the boundary between the engine and the database. The engine
  itself is pure; stores hold the inputs it reads and the recalculated
  ledgers it produces. Implementations:

  - store/sqlite: production SQLite store
  - store/memory: in-memory store for tests and demos

  Reconciliation runs are recorded for audit: who was merged, in which
  mode, and how many conflicts/warnings surfaced.
*/
package leave

import (
	"context"
	"time"
)

// Store persists employees, their ledgers, and reconciliation audit
// records. Ledgers are saved whole: the recalculated period array is the
// unit of consistency.
type Store interface {
	SaveEmployee(ctx context.Context, emp Employee) error
	GetEmployee(ctx context.Context, id string) (*Employee, error)
	ListEmployees(ctx context.Context) ([]Employee, error)

	// SaveLedger replaces the employee's persisted ledger atomically.
	SaveLedger(ctx context.Context, l Ledger) error

	// GetLedger returns ErrLedgerNotFound when the employee has no
	// persisted ledger yet.
	GetLedger(ctx context.Context, employeeID string) (*Ledger, error)

	SaveReconciliationRun(ctx context.Context, run ReconciliationRun) error
	ListReconciliationRuns(ctx context.Context, limit int) ([]ReconciliationRun, error)

	Close() error
}

// ReconciliationRun is the audit record of one merge.
type ReconciliationRun struct {
	ID         string
	EmployeeID string
	Mode       MergeMode
	Conflicts  int
	Warnings   int
	Notes      string
	RunAt      time.Time
}
