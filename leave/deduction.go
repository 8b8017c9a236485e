/*
deduction.go - LIFO allocation of consumed days

PURPOSE:
  Allocates a usage request across an employee's non-expired grant
  periods. Deduction is LIFO across periods: the most recently granted
  eligible period is debited first. Debiting the newest grant first
  preserves the oldest (soonest-to-expire) balance for as long as
  possible, maximizing the window available to satisfy the mandatory
  5-day rule before those older days are lost.

ALL-OR-NOTHING:
  The eligible balance is checked before any mutation. If the request
  exceeds it, nothing changes and the caller gets INSUFFICIENT_BALANCE -
  there is never a partially committed allocation.

DATE ASSIGNMENT:
  Every calendar day belongs to exactly one period. Requested dates are
  distributed to periods in the same LIFO order as the debits; a date
  whose amount straddles two periods' debit capacity is assigned to the
  older period, keeping the disjointness invariant intact.

CONCURRENCY:
  The balance check is only correct against a consistent snapshot, so
  two concurrent allocations for the same employee must be serialized by
  the caller (the API layer holds a per-employee mutex).
*/
package leave

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// PeriodDebit is one period's share of an allocation.
type PeriodDebit struct {
	PeriodIndex int
	Amount      decimal.Decimal
}

// AllocationResult is the breakdown of a committed allocation.
type AllocationResult struct {
	Total  decimal.Decimal
	Debits []PeriodDebit
}

// Allocate debits the requested usage dates against the ledger. On
// success it increments each debited period's used amount and assigns the
// dates; on any rejection the ledger is untouched.
//
// Rejections: ErrEmployeeRetired, ErrInvalidAmount (empty request),
// ErrDuplicateDate, ErrInsufficientBalance.
func Allocate(l *Ledger, emp Employee, dates []UsageDate) (*AllocationResult, error) {
	if !emp.CanConsume() {
		return nil, fmt.Errorf("%w: %s is %s", ErrEmployeeRetired, emp.ID, emp.Status)
	}
	if len(dates) == 0 {
		return nil, fmt.Errorf("%w: no usage dates", ErrInvalidAmount)
	}

	// Disjointness: no date may repeat within the request or collide
	// with a date already held by any period.
	inRequest := make(map[string]bool, len(dates))
	total := decimal.Zero
	for _, u := range dates {
		if inRequest[u.Date.Key()] {
			return nil, &DuplicateDateError{EmployeeID: l.EmployeeID, Date: u.Date, PeriodIndex: -1}
		}
		inRequest[u.Date.Key()] = true
		if idx := l.PeriodHolding(u.Date); idx >= 0 {
			return nil, &DuplicateDateError{EmployeeID: l.EmployeeID, Date: u.Date, PeriodIndex: idx}
		}
		total = total.Add(u.Amount())
	}

	// All-or-nothing: check the full eligible balance before touching
	// anything.
	eligible := l.EligibleBalance()
	if total.GreaterThan(eligible) {
		return nil, &InsufficientBalanceError{
			EmployeeID: l.EmployeeID,
			Available:  eligible,
			Requested:  total,
		}
	}

	// Debit newest grant first, skipping expired periods.
	var debits []PeriodDebit
	remaining := total
	for i := len(l.Periods) - 1; i >= 0 && remaining.IsPositive(); i-- {
		p := &l.Periods[i]
		if p.IsExpired {
			continue
		}
		bal := p.Balance()
		if !bal.IsPositive() {
			continue
		}
		debit := decimal.Min(remaining, bal)
		debits = append(debits, PeriodDebit{PeriodIndex: i, Amount: debit})
		remaining = remaining.Sub(debit)
	}

	// Commit: increment used and hand out the dates period by period in
	// the same order as the debits.
	di := 0
	capacity := decimal.Zero
	if len(debits) > 0 {
		capacity = debits[0].Amount
	}
	for _, u := range dates {
		for di < len(debits)-1 && capacity.LessThan(u.Amount()) {
			di++
			capacity = debits[di].Amount
		}
		p := &l.Periods[debits[di].PeriodIndex]
		p.UsageDates = append(p.UsageDates, u)
		capacity = capacity.Sub(u.Amount())
	}
	for _, d := range debits {
		p := &l.Periods[d.PeriodIndex]
		p.Used = p.Used.Add(d.Amount)
		p.sortUsageDates()
	}

	return &AllocationResult{Total: total, Debits: debits}, nil
}

// ParseUsageAmount validates a raw request amount: a single usage event
// is either a half day or a full day.
func ParseUsageAmount(amount float64) (half bool, err error) {
	switch amount {
	case 0.5:
		return true, nil
	case 1.0:
		return false, nil
	default:
		return false, fmt.Errorf("%w: got %v, want 0.5 or 1.0", ErrInvalidAmount, amount)
	}
}
