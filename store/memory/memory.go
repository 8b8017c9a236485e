// Package memory provides an in-memory leave.Store for tests and demos.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/leave-ledger/leave"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Store struct {
	mu        sync.RWMutex
	employees map[string]leave.Employee
	ledgers   map[string]leave.Ledger
	runs      []leave.ReconciliationRun
}

func New() *Store {
	return &Store{
		employees: make(map[string]leave.Employee),
		ledgers:   make(map[string]leave.Ledger),
	}
}

func (s *Store) SaveEmployee(_ context.Context, emp leave.Employee) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.employees[emp.ID] = emp
	return nil
}

func (s *Store) GetEmployee(_ context.Context, id string) (*leave.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	emp, ok := s.employees[id]
	if !ok {
		return nil, leave.ErrEmployeeNotFound
	}
	return &emp, nil
}

func (s *Store) ListEmployees(_ context.Context) ([]leave.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]leave.Employee, 0, len(s.employees))
	for _, emp := range s.employees {
		out = append(out, emp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) SaveLedger(_ context.Context, l leave.Ledger) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ledgers[l.EmployeeID] = l.Clone()
	return nil
}

func (s *Store) GetLedger(_ context.Context, employeeID string) (*leave.Ledger, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.ledgers[employeeID]
	if !ok {
		return nil, leave.ErrLedgerNotFound
	}
	clone := l.Clone()
	return &clone, nil
}

func (s *Store) SaveReconciliationRun(_ context.Context, run leave.ReconciliationRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs = append(s.runs, run)
	return nil
}

func (s *Store) ListReconciliationRuns(_ context.Context, limit int) ([]leave.ReconciliationRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	runs := append([]leave.ReconciliationRun(nil), s.runs...)
	sort.Slice(runs, func(i, j int) bool { return runs[i].RunAt.After(runs[j].RunAt) })
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

func (s *Store) Close() error { return nil }

var _ leave.Store = (*Store)(nil)
