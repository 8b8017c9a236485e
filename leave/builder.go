/*
builder.go - Period Ledger Builder

PURPOSE:
  Derives the ordered sequence of grant periods for an employee from the
  hire date, the statutory grant table, and (optionally) raw period rows
  supplied by an external import.

ANCHOR RESOLUTION:
  Each raw row is resolved to a statutory anchor in this order:
    1. Explicit grant date + known hire date: month difference, snapped
       to the nearest anchor
    2. Explicit elapsed-months value: snapped to the nearest anchor
    3. Inverse grant-table lookup from the granted amount

  Rows resolving to the same anchor are deduplicated: a row carrying a
  concrete grant date beats one without; when both carry dates, the row
  with the larger used value wins (more complete data).

DEGRADATION:
  A future hire date or a granted amount not present in the grant table
  is a data-quality warning, not a hard failure - the builder falls back
  to the nearest table anchor rather than rejecting the employee.

SEE ALSO:
  - granttable.go: Anchor set and snapping
  - recalc.go:     Authoritative expiry/cap state after building
*/
package leave

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// RAW PERIOD ROW - Tagged import shape
// =============================================================================

// RawPeriodRow is one externally supplied period. The grant date is a
// tagged field, not a sentinel: HasGrantDate says explicitly whether the
// source knew the date.
type RawPeriodRow struct {
	HasGrantDate  bool
	GrantDate     Date
	ElapsedMonths *int
	Granted       decimal.Decimal
	Used          decimal.Decimal
	CarryOver     decimal.Decimal
	UsageDates    []UsageDate
}

// BuildInput bundles everything the builder needs. ReferenceDate bounds
// which statutory periods are due; it is explicit so builds are
// reproducible.
type BuildInput struct {
	Employee      Employee
	Rows          []RawPeriodRow
	ReferenceDate Date
}

type resolvedRow struct {
	anchor    int
	row       RawPeriodRow
	grantDate Date
	hasDate   bool
}

// =============================================================================
// BUILDER
// =============================================================================

// BuildLedger derives an employee's grant periods. Statutory periods
// implied by the hire date but missing from the rows are generated with
// zero usage. Data problems surface as warnings on the side; the builder
// never rejects an employee.
//
// The returned ledger has not been through the recalculator; callers run
// Recalculate before treating expiry state and aggregates as
// authoritative.
func BuildLedger(in BuildInput) (Ledger, []Warning) {
	var warnings []Warning
	emp := in.Employee
	ledger := NewLedger(emp.ID)

	hire := emp.HireDate
	if !hire.IsZero() && hire.After(in.ReferenceDate) {
		warnings = append(warnings, Warning{
			Code:       WarnFutureHireDate,
			EmployeeID: emp.ID,
			Message:    fmt.Sprintf("hire date %s is after reference date %s", hire, in.ReferenceDate),
		})
	}

	byAnchor := make(map[int]resolvedRow)
	for _, row := range in.Rows {
		res, ws := resolveRow(emp, row)
		warnings = append(warnings, ws...)
		existing, ok := byAnchor[res.anchor]
		if !ok || preferRow(res, existing) {
			byAnchor[res.anchor] = res
		}
	}

	// Statutory periods implied by the hire date but absent from the
	// import are generated with zero usage.
	for _, anchor := range DueAnchors(hire, in.ReferenceDate) {
		if _, ok := byAnchor[anchor]; !ok {
			byAnchor[anchor] = resolvedRow{
				anchor: anchor,
				row: RawPeriodRow{
					Granted: GrantedDays(anchor),
					Used:    decimal.Zero,
				},
			}
		}
	}

	for anchor, res := range byAnchor {
		period, ws := materializePeriod(emp, anchor, res)
		warnings = append(warnings, ws...)
		ledger.Periods = append(ledger.Periods, period)
	}
	ledger.sortPeriods()

	warnings = append(warnings, placeUsageDates(&ledger)...)
	markCurrent(&ledger, in.ReferenceDate)

	return ledger, warnings
}

// resolveRow maps a raw row to its statutory anchor.
func resolveRow(emp Employee, row RawPeriodRow) (resolvedRow, []Warning) {
	var warnings []Warning

	switch {
	case row.HasGrantDate && !emp.HireDate.IsZero():
		months := emp.HireDate.MonthsUntil(row.GrantDate)
		return resolvedRow{
			anchor:    NearestAnchor(months),
			row:       row,
			grantDate: row.GrantDate,
			hasDate:   true,
		}, nil

	case row.HasGrantDate:
		// Grant date but no hire date to anchor against: infer the
		// anchor from the granted amount, keep the concrete date.
		anchor, ws := anchorFromGranted(emp, row.Granted)
		warnings = append(warnings, ws...)
		return resolvedRow{anchor: anchor, row: row, grantDate: row.GrantDate, hasDate: true}, warnings

	case row.ElapsedMonths != nil:
		anchor := NearestAnchor(*row.ElapsedMonths)
		if _, exact := grantTable[*row.ElapsedMonths]; !exact && *row.ElapsedMonths < 78 {
			warnings = append(warnings, Warning{
				Code:       WarnUnresolvedAnchor,
				EmployeeID: emp.ID,
				Message:    fmt.Sprintf("elapsed months %d snapped to anchor %d", *row.ElapsedMonths, anchor),
			})
		}
		return resolvedRow{anchor: anchor, row: row}, warnings

	default:
		anchor, ws := anchorFromGranted(emp, row.Granted)
		warnings = append(warnings, ws...)
		return resolvedRow{anchor: anchor, row: row}, warnings
	}
}

func anchorFromGranted(emp Employee, granted decimal.Decimal) (int, []Warning) {
	if anchor, ok := AnchorForGranted(granted); ok {
		return anchor, nil
	}
	anchor := NearestAnchorForGranted(granted)
	return anchor, []Warning{{
		Code:       WarnUnknownGrantAmount,
		EmployeeID: emp.ID,
		Message:    fmt.Sprintf("granted amount %s not in grant table, using anchor %d", granted, anchor),
	}}
}

// preferRow decides whether candidate should replace incumbent for the
// same anchor.
func preferRow(candidate, incumbent resolvedRow) bool {
	if candidate.hasDate != incumbent.hasDate {
		return candidate.hasDate
	}
	return candidate.row.Used.GreaterThan(incumbent.row.Used)
}

// materializePeriod turns a resolved row into a GrantPeriod. The grant
// date comes from the row when concrete, otherwise hire + anchor months.
// Granted amounts outside the table degrade to the anchor's statutory
// value.
func materializePeriod(emp Employee, anchor int, res resolvedRow) (GrantPeriod, []Warning) {
	var warnings []Warning

	grantDate := res.grantDate
	if !res.hasDate {
		grantDate = emp.HireDate.AddMonths(anchor)
	}

	granted := res.row.Granted
	if granted.IsZero() {
		granted = GrantedDays(anchor)
	} else if _, ok := AnchorForGranted(granted); !ok && anchor < 78 {
		warnings = append(warnings, Warning{
			Code:       WarnUnknownGrantAmount,
			EmployeeID: emp.ID,
			Message:    fmt.Sprintf("granted %s replaced by statutory %s for anchor %d", granted, GrantedDays(anchor), anchor),
		})
		granted = GrantedDays(anchor)
	}

	carry := res.row.CarryOver
	if carry.IsZero() {
		carry = decimal.Zero
	}

	// Spreadsheet rows sometimes report more used days than the period
	// can hold (e.g. used includes carryover the source never itemized).
	// Cap rather than reject: a negative balance is an engine invariant,
	// not a shape external data is allowed to put us in.
	used := res.row.Used
	if capacity := granted.Add(carry); used.GreaterThan(capacity) {
		warnings = append(warnings, Warning{
			Code:       WarnOverUsedRow,
			EmployeeID: emp.ID,
			Message: fmt.Sprintf("used %s exceeds granted %s plus carry-over %s for anchor %d; capped",
				used, granted, carry, anchor),
		})
		used = capacity
	}

	p := GrantPeriod{
		ElapsedMonths: anchor,
		GrantDate:     grantDate,
		ExpiryDate:    grantDate.AddYears(2),
		Granted:       granted,
		Used:          used,
		CarryOver:     carry,
		Expired:       decimal.Zero,
		CapExceeded:   decimal.Zero,
		UsageDates:    append([]UsageDate(nil), res.row.UsageDates...),
	}
	return p, warnings
}

// placeUsageDates enforces window membership and disjointness across the
// freshly built periods. A date outside every window lands on the most
// recent period with a warning; a calendar day seen twice keeps its first
// assignment.
func placeUsageDates(l *Ledger) []Warning {
	if len(l.Periods) == 0 {
		return nil
	}

	var warnings []Warning
	seen := make(map[string]bool)
	buckets := make([][]UsageDate, len(l.Periods))

	for i := range l.Periods {
		for _, u := range l.Periods[i].UsageDates {
			u := u
			if seen[u.Date.Key()] {
				warnings = append(warnings, Warning{
					Code:       WarnDuplicateRowDate,
					EmployeeID: l.EmployeeID,
					Date:       &u.Date,
					Message:    "calendar date supplied on more than one row; first occurrence kept",
				})
				continue
			}
			seen[u.Date.Key()] = true

			target := -1
			if l.Periods[i].InWindow(u.Date) {
				target = i
			} else {
				for j := range l.Periods {
					if l.Periods[j].InWindow(u.Date) {
						target = j
						break
					}
				}
			}
			if target < 0 {
				target = len(l.Periods) - 1
				warnings = append(warnings, Warning{
					Code:        WarnUnassignedDate,
					EmployeeID:  l.EmployeeID,
					PeriodIndex: target,
					Date:        &u.Date,
					Message:     "usage date outside every period window; placed on most recent period",
				})
			}
			buckets[target] = append(buckets[target], u)
		}
	}

	for i := range l.Periods {
		l.Periods[i].UsageDates = buckets[i]
		l.Periods[i].sortUsageDates()
	}
	return warnings
}

// markCurrent sets provisional expiry flags and the current-period
// marker. Recalculate owns the authoritative version of this state.
func markCurrent(l *Ledger, ref Date) {
	for i := range l.Periods {
		l.Periods[i].IsExpired = ref.AfterOrEqual(l.Periods[i].ExpiryDate)
		l.Periods[i].IsCurrent = false
	}
	if cur := l.CurrentPeriod(); cur != nil {
		cur.IsCurrent = true
	}
}
