/*
recalc.go - Expiration & Cap Recalculator

PURPOSE:
  The idempotent sweep that keeps a ledger legally correct: ages periods
  into expiration after their two-year validity window, forfeits unused
  balance at expiry, enforces the 40-day aggregate cap, and maintains the
  current and historical aggregates.

IDEMPOTENCE:
  Both forfeiture moves are gated on state: expiry forfeits only while a
  positive balance remains (the move zeroes it), and the cap transfer only
  fires while the current balance is above 40 (the move brings it to 40).
  Running the recalculator on its own output is therefore a no-op -
  callers may invoke it after every mutation without bookkeeping.

TRIGGERS (caller side):
  Invoked whenever a period is added, a usage allocation succeeds, a
  reconciliation completes, or the scheduler crosses a fiscal boundary.

SEE ALSO:
  - ledger.go:    Derived balance and invariant checks
  - reconcile.go: Runs merge output through this before returning it
*/
package leave

import "github.com/shopspring/decimal"

// AggregateCap is the statutory ceiling on an employee's spendable
// balance across all non-expired periods.
var AggregateCap = DaysInt(40)

// Recalculate returns a copy of the ledger with expiry state, cap
// enforcement and aggregates recomputed for the given reference date.
// It is a total function over any syntactically valid ledger; malformed
// input (negative granted) is a precondition violated upstream.
func Recalculate(l Ledger, referenceDate Date) Ledger {
	out := l.Clone()

	// 1+2. Age periods out and forfeit remaining balance exactly once.
	for i := range out.Periods {
		p := &out.Periods[i]
		reached := referenceDate.AfterOrEqual(p.ExpiryDate)
		p.IsExpired = reached || p.Expired.GreaterThan(p.CapExceeded)
		if reached {
			if bal := p.Balance(); bal.IsPositive() {
				p.Expired = p.Expired.Add(bal)
			}
		}
	}

	// 3. Aggregates over non-expired periods.
	currentGranted, currentUsed := decimal.Zero, decimal.Zero
	for i := range out.Periods {
		p := &out.Periods[i]
		if p.IsExpired {
			continue
		}
		currentGranted = currentGranted.Add(p.Granted).Add(p.CarryOver).Sub(p.Expired)
		currentUsed = currentUsed.Add(p.Used)
	}
	currentBalance := currentGranted.Sub(currentUsed)

	// 4. Enforce the aggregate cap: excess is forfeited on the oldest
	// non-expired period, recorded separately as cap excess.
	if currentBalance.GreaterThan(AggregateCap) {
		excess := currentBalance.Sub(AggregateCap)
		for i := range out.Periods {
			p := &out.Periods[i]
			if p.IsExpired {
				continue
			}
			p.Expired = p.Expired.Add(excess)
			p.CapExceeded = p.CapExceeded.Add(excess)
			break
		}
		currentGranted = currentGranted.Sub(excess)
		currentBalance = AggregateCap
	}

	// 5. Historical aggregates over all periods, expired included.
	histGranted, histUsed := decimal.Zero, decimal.Zero
	for i := range out.Periods {
		p := &out.Periods[i]
		histGranted = histGranted.Add(p.Granted).Add(p.CarryOver)
		histUsed = histUsed.Add(p.Used)
	}

	out.CurrentGrantedTotal = currentGranted
	out.CurrentUsedTotal = currentUsed
	out.CurrentBalance = currentBalance
	out.HistoricalGrantedTotal = histGranted
	out.HistoricalUsedTotal = histUsed
	out.HistoricalBalance = histGranted.Sub(histUsed)

	exceeded := decimal.Zero
	for i := range out.Periods {
		exceeded = exceeded.Add(out.Periods[i].CapExceeded)
	}
	out.ExceededDays = exceeded
	out.RecalculatedAt = referenceDate

	for i := range out.Periods {
		out.Periods[i].IsCurrent = false
	}
	if cur := out.CurrentPeriod(); cur != nil {
		cur.IsCurrent = true
	}

	out.mustHoldInvariants()
	return out
}
