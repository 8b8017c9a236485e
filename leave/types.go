/*
Package leave implements the statutory paid-leave entitlement engine.

PURPOSE:
  This package contains the domain types and algorithms for tracking
  Japanese statutory paid-leave: how many days are granted on each
  employment anniversary, how consumed days are allocated against those
  grants, when unused days legally expire, and whether the employer meets
  the mandatory minimum-usage rule.

KEY CONCEPTS IN THIS FILE (types.go):
  - Date: A day-granular point in time (used as ledger keys)
  - UsageDate: A single day or half-day of leave taken, with its origin
  - Employee: The subject of a ledger (hire date + employment status)

DESIGN PRINCIPLES:
  1. Purity: Every computation takes its reference date explicitly -
     there is no hidden clock, so reruns are reproducible.
  2. Precision: Uses decimal.Decimal so half-day amounts never round.
  3. Auditability: Expired periods are never deleted; they stay in the
     ledger and feed the historical aggregates.

SEE ALSO:
  - granttable.go: Statutory anchor-to-days mapping
  - builder.go:    Deriving grant periods from hire date + import rows
  - deduction.go:  LIFO allocation of consumed days
  - recalc.go:     Expiration and 40-day-cap sweep
  - compliance.go: Mandatory 5-day rule evaluation
  - reconcile.go:  Merging external snapshots with local state
*/
package leave

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// AMOUNT HELPERS - All quantities are days with 0.5 granularity
// =============================================================================

// Days builds a day amount from a float. Use only for literals that are
// exact halves; arbitrary floats go through decimal parsing upstream.
func Days(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v)
}

// DaysInt builds a whole-day amount.
func DaysInt(v int) decimal.Decimal {
	return decimal.NewFromInt(int64(v))
}

var halfDay = decimal.NewFromFloat(0.5)

// IsHalfDayMultiple reports whether v is a multiple of 0.5.
func IsHalfDayMultiple(v decimal.Decimal) bool {
	return v.Div(halfDay).IsInteger()
}

// =============================================================================
// DATE - Day-granular time point
// =============================================================================

// Date is a calendar day in UTC. All grant, expiry and usage bookkeeping
// happens at day granularity; anything finer is irrelevant to entitlement.
type Date struct {
	Time time.Time
}

const dateLayout = "2006-01-02"

func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{Time: t}, nil
}

func (d Date) normalize() time.Time {
	return time.Date(d.Time.Year(), d.Time.Month(), d.Time.Day(), 0, 0, 0, 0, time.UTC)
}

// Comparison
func (d Date) Before(other Date) bool        { return d.normalize().Before(other.normalize()) }
func (d Date) After(other Date) bool         { return d.normalize().After(other.normalize()) }
func (d Date) Equal(other Date) bool         { return d.normalize().Equal(other.normalize()) }
func (d Date) BeforeOrEqual(other Date) bool { return !d.After(other) }
func (d Date) AfterOrEqual(other Date) bool  { return !d.Before(other) }

// Arithmetic
func (d Date) AddDays(n int) Date   { return Date{Time: d.normalize().AddDate(0, 0, n)} }
func (d Date) AddMonths(n int) Date { return Date{Time: d.normalize().AddDate(0, n, 0)} }
func (d Date) AddYears(n int) Date  { return Date{Time: d.normalize().AddDate(n, 0, 0)} }

// MonthsUntil returns the number of whole months from d to other.
// Negative when other precedes d.
func (d Date) MonthsUntil(other Date) int {
	a, b := d.normalize(), other.normalize()
	months := (b.Year()-a.Year())*12 + int(b.Month()) - int(a.Month())
	if b.Day() < a.Day() {
		months--
	}
	return months
}

func (d Date) IsZero() bool   { return d.Time.IsZero() }
func (d Date) String() string { return d.normalize().Format(dateLayout) }

// Today returns the current calendar day in UTC.
func Today() Date {
	now := time.Now().UTC()
	return Date{Time: time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)}
}

// Key returns the canonical date-key used for disjointness checks.
func (d Date) Key() string { return d.String() }

// =============================================================================
// USAGE DATE - One day or half-day of leave taken
// =============================================================================

// UsageOrigin records which side of the reconciliation boundary a usage
// date came from. Local approvals must survive external re-imports.
type UsageOrigin string

const (
	// OriginLocal marks a usage date recorded through this system
	// (an approval entered directly, not yet in the external source).
	OriginLocal UsageOrigin = "local"

	// OriginExternal marks a usage date supplied by the periodic
	// spreadsheet re-import.
	OriginExternal UsageOrigin = "external"
)

// UsageDate is a single usage event. Half-days are encoded on the event
// itself, never inferred from the amount, so any date-keyed representation
// stays unambiguous.
type UsageDate struct {
	Date   Date
	Half   bool
	Origin UsageOrigin
}

// Amount returns the day amount consumed by this event: 0.5 or 1.
func (u UsageDate) Amount() decimal.Decimal {
	if u.Half {
		return halfDay
	}
	return decimal.NewFromInt(1)
}

// =============================================================================
// EMPLOYEE - Owned by the external registry; only hire date and status
// matter to the engine
// =============================================================================

type EmploymentStatus string

const (
	StatusActive    EmploymentStatus = "active"
	StatusOnLeave   EmploymentStatus = "on_leave"
	StatusSeparated EmploymentStatus = "separated"
)

type Employee struct {
	ID       string
	Name     string
	HireDate Date
	Status   EmploymentStatus
}

// CanConsume reports whether new allocations are permitted for this
// employee. Separated employees keep their history but take no new leave.
func (e Employee) CanConsume() bool {
	return e.Status != StatusSeparated
}
