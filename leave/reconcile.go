/*
reconcile.go - Reconciliation Engine

PURPOSE:
  Merges an externally supplied ledger snapshot (a periodic spreadsheet
  re-import) with the currently held state without losing data. Locally
  recorded approvals that the external source hasn't caught up with are
  preserved; anything that looks like the external source dropped data is
  flagged for human review instead of being silently overwritten.

MODES:
  first_sync - no existing ledger (or the caller discards it): the
               incoming ledger is adopted verbatim, then recalculated.
  re_sync    - period structure (grant dates, granted amounts) comes from
               the incoming ledger; usage dates are unioned per period
               from both sources, de-duplicated by date-key.

GUARANTEES:
  A merge never discards data; it only flags. The merged result is run
  through the Expiration & Cap Recalculator before it is returned, since
  merged data may re-trigger cap or expiry logic (a newly discovered
  period can push the employee over 40 days).

SEE ALSO:
  - builder.go: Produces the incoming ledger from raw import rows
  - recalc.go:  Applied to every merge result
*/
package leave

import "fmt"

type MergeMode string

const (
	FirstSync MergeMode = "first_sync"
	ReSync    MergeMode = "re_sync"
)

// MergeResult is the merged ledger plus everything the caller should
// surface before accepting it.
type MergeResult struct {
	Merged    Ledger
	Conflicts []Conflict
	Warnings  []Warning
}

// Merge reconciles an incoming external ledger with the existing one.
// The reference date drives the recalculation of the merged result.
func Merge(existing, incoming Ledger, mode MergeMode, referenceDate Date) MergeResult {
	if mode == FirstSync {
		merged := incoming.Clone()
		merged.ExternalDateCount = merged.UsageDateCount()
		return MergeResult{Merged: Recalculate(merged, referenceDate)}
	}
	return reSync(existing, incoming, referenceDate)
}

func reSync(existing, incoming Ledger, referenceDate Date) MergeResult {
	var (
		conflicts []Conflict
		warnings  []Warning
	)

	// An empty incoming snapshot for an employee we already track is a
	// dropped export, not a real ledger. Keep the existing state.
	if len(incoming.Periods) == 0 && len(existing.Periods) > 0 {
		return MergeResult{
			Merged: Recalculate(existing, referenceDate),
			Conflicts: []Conflict{{
				Code:        ConflictDateCountShrunk,
				EmployeeID:  existing.EmployeeID,
				PeriodIndex: -1,
				Message:     "incoming snapshot has no periods; existing ledger retained",
			}},
		}
	}

	// Structure from the incoming snapshot.
	merged := incoming.Clone()
	incomingCount := merged.UsageDateCount()

	// Union in every existing date the incoming snapshot doesn't carry.
	for i := range existing.Periods {
		for _, u := range existing.Periods[i].UsageDates {
			u := u
			if merged.PeriodHolding(u.Date) >= 0 {
				continue
			}

			target, placed := findWindow(&merged, u.Date)
			if !placed {
				warnings = append(warnings, Warning{
					Code:        WarnUnassignedDate,
					EmployeeID:  merged.EmployeeID,
					PeriodIndex: target,
					Date:        &u.Date,
					Message:     "preserved date outside every incoming period window; placed on most recent period",
				})
			}

			switch u.Origin {
			case OriginExternal:
				// The external source knew this date before and no
				// longer reports it. Preserve it and escalate.
				conflicts = append(conflicts, Conflict{
					Code:        ConflictExternalDateRemoved,
					EmployeeID:  merged.EmployeeID,
					PeriodIndex: target,
					Date:        &u.Date,
					Message:     "date disappeared from external source; preserved pending review",
				})
			default:
				warnings = append(warnings, Warning{
					Code:        WarnLocalDatePreserved,
					EmployeeID:  merged.EmployeeID,
					PeriodIndex: target,
					Date:        &u.Date,
					Message:     "locally approved date not present in external source; preserved",
				})
			}

			if target >= 0 {
				p := &merged.Periods[target]
				p.UsageDates = append(p.UsageDates, u)
				// External rows may carry a used total without itemized
				// dates, so used is additive for preserved dates, never
				// recomputed down from the date list.
				p.Used = p.Used.Add(u.Amount())
				if capacity := p.Granted.Add(p.CarryOver); p.Used.GreaterThan(capacity) {
					warnings = append(warnings, Warning{
						Code:        WarnOverUsedRow,
						EmployeeID:  merged.EmployeeID,
						PeriodIndex: target,
						Date:        &u.Date,
						Message:     "preserved date pushes used past granted plus carry-over; capped",
					})
					p.Used = capacity
				}
			}
		}
	}

	// A shrinking external snapshot is suspicious even when we cannot
	// pin down which date vanished (e.g. dates the source never
	// itemized).
	if existing.ExternalDateCount > 0 && incomingCount < existing.ExternalDateCount {
		conflicts = append(conflicts, Conflict{
			Code:        ConflictDateCountShrunk,
			EmployeeID:  merged.EmployeeID,
			PeriodIndex: -1,
			Message: fmt.Sprintf("external source reports %d usage dates, previously %d",
				incomingCount, existing.ExternalDateCount),
		})
	}

	for i := range merged.Periods {
		merged.Periods[i].sortUsageDates()
	}
	merged.ExternalDateCount = incomingCount

	return MergeResult{
		Merged:    Recalculate(merged, referenceDate),
		Conflicts: conflicts,
		Warnings:  warnings,
	}
}

// findWindow locates the period whose validity window contains the date.
// Falls back to the most recent period (placed=false) when none does.
func findWindow(l *Ledger, d Date) (index int, placed bool) {
	for i := range l.Periods {
		if l.Periods[i].InWindow(d) {
			return i, true
		}
	}
	if len(l.Periods) == 0 {
		return -1, false
	}
	return len(l.Periods) - 1, false
}
