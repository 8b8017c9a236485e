/*
scheduler.go - Nightly expiry and cap sweep

PURPOSE:
  Balances only move when a recalculation runs, so a ledger left alone
  past a grant anniversary would keep showing days that have legally
  expired. The scheduler re-runs the recalculation for every employee on
  a cron cadence (default: 02:00 daily) and once at startup.

IDEMPOTENCE:
  Recalculation is safe to re-run: a sweep over an already-current
  ledger changes nothing, so overlapping or repeated runs are harmless.

SEE ALSO:
  - handlers.go: Exposes the same sweep on demand via the admin route
*/
package api

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/warp/leave-ledger/leave"
)

// Scheduler runs the periodic recalculation sweep.
type Scheduler struct {
	cron   *cron.Cron
	store  leave.Store
	logger *zap.Logger
	spec   string
}

// NewScheduler creates a scheduler sweeping on the given cron spec
// (standard 5-field cron).
func NewScheduler(store leave.Store, spec string, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		cron:   cron.New(),
		store:  store,
		logger: logger,
		spec:   spec,
	}
}

// Start registers the cron entry and runs one sweep immediately so a
// freshly restarted server catches up on missed expiries.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.spec, s.sweep); err != nil {
		return err
	}
	s.logger.Info("scheduler started", zap.String("spec", s.spec))
	go s.sweep()
	s.cron.Start()
	return nil
}

// Stop stops the cron loop. Already-running sweeps finish.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	s.cron.Stop()
}

func (s *Scheduler) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	ref := leave.Today()
	employees, err := s.store.ListEmployees(ctx)
	if err != nil {
		s.logger.Error("sweep failed to list employees", zap.Error(err))
		return
	}

	count := 0
	for _, emp := range employees {
		l, err := s.store.GetLedger(ctx, emp.ID)
		if err != nil {
			// No ledger yet means nothing to expire.
			continue
		}
		recalced := leave.Recalculate(*l, ref)
		if err := s.store.SaveLedger(ctx, recalced); err != nil {
			s.logger.Error("sweep failed to save ledger",
				zap.String("employee_id", emp.ID), zap.Error(err))
			continue
		}
		count++
	}

	s.logger.Info("sweep complete",
		zap.String("reference_date", ref.String()),
		zap.Int("employees", count))
}
