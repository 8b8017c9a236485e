/*
ledger.go - Grant periods and the per-employee entitlement ledger

PURPOSE:
  A GrantPeriod is one statutory grant event: an amount of days granted
  on an employment anniversary, valid for exactly two years. The Ledger
  is the ordered sequence of an employee's periods plus the aggregates
  the recalculator maintains over them.

CRITICAL INVARIANTS:
  1. balance = granted + carryOver - used - expired, never negative
  2. current balance across non-expired periods is capped at 40 days;
     excess is forfeited on the oldest contributing period, never dropped
  3. expiry is grant date + 2 years (exclusive); windows never extend
  4. usage dates across all periods of one employee are disjoint
  5. recalculation is idempotent

  Periods are never deleted. An expired period stays in history and feeds
  the historical aggregates even though it no longer contributes to the
  current ones.

SEE ALSO:
  - builder.go: Creates periods from hire date + import rows
  - recalc.go:  Maintains expiry state and aggregates
*/
package leave

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// =============================================================================
// GRANT PERIOD - One statutory grant event
// =============================================================================

type GrantPeriod struct {
	// PeriodIndex is the ordinal position in the ledger (0 = first grant).
	PeriodIndex int

	// ElapsedMonths is the statutory anchor this period resolved to
	// (6, 18, 30, 42, 54, 66, 78, 90, ...).
	ElapsedMonths int

	GrantDate Date

	// ExpiryDate is GrantDate + 2 years, exclusive. Never extended.
	ExpiryDate Date

	// Granted is the statutory amount for this anchor.
	Granted decimal.Decimal

	// Used is the sum of usage amounts allocated to this period.
	Used decimal.Decimal

	// CarryOver is balance rolled in from an adjacent older period,
	// when the external source tracks it explicitly.
	CarryOver decimal.Decimal

	// Expired is the amount forfeited: unused balance at expiry plus any
	// share of a 40-day-cap excess charged to this period.
	Expired decimal.Decimal

	// CapExceeded is the portion of Expired attributable to the 40-day
	// aggregate cap, kept separate for reporting.
	CapExceeded decimal.Decimal

	// IsExpired is derived: reference date reached ExpiryDate, or a
	// forfeiture was recorded.
	IsExpired bool

	// IsCurrent marks the latest non-expired period.
	IsCurrent bool

	// UsageDates are the usage events assigned to this period, ordered
	// by date. A calendar day appears in at most one period.
	UsageDates []UsageDate
}

// Balance is derived, never stored: granted + carryOver - used - expired.
func (p GrantPeriod) Balance() decimal.Decimal {
	return p.Granted.Add(p.CarryOver).Sub(p.Used).Sub(p.Expired)
}

// InWindow reports whether a date falls inside [GrantDate, ExpiryDate).
func (p GrantPeriod) InWindow(d Date) bool {
	return d.AfterOrEqual(p.GrantDate) && d.Before(p.ExpiryDate)
}

func (p GrantPeriod) clone() GrantPeriod {
	out := p
	out.UsageDates = append([]UsageDate(nil), p.UsageDates...)
	return out
}

func (p *GrantPeriod) sortUsageDates() {
	sort.Slice(p.UsageDates, func(i, j int) bool {
		return p.UsageDates[i].Date.Before(p.UsageDates[j].Date)
	})
}

// =============================================================================
// LEDGER - All periods for one employee plus maintained aggregates
// =============================================================================

type Ledger struct {
	EmployeeID string

	// Periods is ordered ascending by grant date.
	Periods []GrantPeriod

	// Aggregates over non-expired periods, maintained by Recalculate.
	CurrentGrantedTotal decimal.Decimal
	CurrentUsedTotal    decimal.Decimal
	CurrentBalance      decimal.Decimal

	// Aggregates over ALL periods, for audit and compliance reporting.
	HistoricalGrantedTotal decimal.Decimal
	HistoricalUsedTotal    decimal.Decimal
	HistoricalBalance      decimal.Decimal

	// ExceededDays is the cumulative amount forfeited to the 40-day cap.
	ExceededDays decimal.Decimal

	// ExternalDateCount is the total number of usage dates supplied by
	// the external source at the last sync; reconciliation uses it to
	// detect snapshots that shrank.
	ExternalDateCount int

	// RecalculatedAt is the reference date of the last recalculation.
	RecalculatedAt Date
}

// NewLedger returns an empty ledger with zeroed aggregates.
func NewLedger(employeeID string) Ledger {
	zero := decimal.Zero
	return Ledger{
		EmployeeID:             employeeID,
		CurrentGrantedTotal:    zero,
		CurrentUsedTotal:       zero,
		CurrentBalance:         zero,
		HistoricalGrantedTotal: zero,
		HistoricalUsedTotal:    zero,
		HistoricalBalance:      zero,
		ExceededDays:           zero,
	}
}

// Clone deep-copies the ledger so pure transformations never alias the
// caller's period slices.
func (l Ledger) Clone() Ledger {
	out := l
	out.Periods = make([]GrantPeriod, len(l.Periods))
	for i, p := range l.Periods {
		out.Periods[i] = p.clone()
	}
	return out
}

// CurrentPeriod returns the latest non-expired period, or nil.
func (l *Ledger) CurrentPeriod() *GrantPeriod {
	for i := len(l.Periods) - 1; i >= 0; i-- {
		if !l.Periods[i].IsExpired {
			return &l.Periods[i]
		}
	}
	return nil
}

// PeriodHolding returns the index of the period whose usage list contains
// the given calendar day, or -1.
func (l *Ledger) PeriodHolding(d Date) int {
	for i := range l.Periods {
		for _, u := range l.Periods[i].UsageDates {
			if u.Date.Equal(d) {
				return i
			}
		}
	}
	return -1
}

// UsageDateCount returns the total number of usage dates across all periods.
func (l *Ledger) UsageDateCount() int {
	n := 0
	for i := range l.Periods {
		n += len(l.Periods[i].UsageDates)
	}
	return n
}

// EligibleBalance sums the balance of every non-expired period.
func (l *Ledger) EligibleBalance() decimal.Decimal {
	total := decimal.Zero
	for i := range l.Periods {
		if !l.Periods[i].IsExpired {
			total = total.Add(l.Periods[i].Balance())
		}
	}
	return total
}

func (l *Ledger) sortPeriods() {
	sort.Slice(l.Periods, func(i, j int) bool {
		return l.Periods[i].GrantDate.Before(l.Periods[j].GrantDate)
	})
	for i := range l.Periods {
		l.Periods[i].PeriodIndex = i
	}
}

// =============================================================================
// INVARIANT CHECKS - Programming errors fail loudly
// =============================================================================

// mustHoldInvariants panics when the ledger is in a state the engine can
// never legally produce. A panic here means a bug in the engine, not bad
// input; clamping instead would hide a defect behind a wrong compliance
// figure.
func (l *Ledger) mustHoldInvariants() {
	seen := make(map[string]int, l.UsageDateCount())
	for i := range l.Periods {
		p := &l.Periods[i]
		if p.Balance().IsNegative() {
			panic(fmt.Sprintf("leave: negative balance %s on period %d of %s",
				p.Balance(), p.PeriodIndex, l.EmployeeID))
		}
		for _, u := range p.UsageDates {
			if prev, ok := seen[u.Date.Key()]; ok {
				panic(fmt.Sprintf("leave: usage date %s of %s assigned to periods %d and %d",
					u.Date, l.EmployeeID, prev, p.PeriodIndex))
			}
			seen[u.Date.Key()] = p.PeriodIndex
		}
	}
}
