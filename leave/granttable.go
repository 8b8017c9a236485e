package leave

import "github.com/shopspring/decimal"

// =============================================================================
// GRANT TABLE - Statutory mapping from elapsed employment to granted days
// =============================================================================

// The statutory schedule grants leave at fixed employment anniversaries:
//
//   6 months  -> 10 days
//   1.5 years -> 11 days
//   2.5 years -> 12 days
//   3.5 years -> 14 days
//   4.5 years -> 16 days
//   5.5 years -> 18 days
//   6.5 years -> 20 days, and 20 days every 12 months thereafter
//
// Anchors are expressed in elapsed months since hire.

var grantAnchors = []int{6, 18, 30, 42, 54, 66, 78}

var grantTable = map[int]int{
	6:  10,
	18: 11,
	30: 12,
	42: 14,
	54: 16,
	66: 18,
	78: 20,
}

// MaxGrantDays is the statutory ceiling per grant (78 months and beyond).
const MaxGrantDays = 20

// GrantedDays returns the statutory grant for an elapsed-months anchor.
// Values at or past 78 months always yield 20; values between anchors are
// snapped to the nearest anchor first.
func GrantedDays(elapsedMonths int) decimal.Decimal {
	if elapsedMonths >= 78 {
		return DaysInt(MaxGrantDays)
	}
	return DaysInt(grantTable[NearestAnchor(elapsedMonths)])
}

// NearestAnchor snaps an elapsed-months value to the closest statutory
// anchor. Past 78 months the anchors continue every 12 months (78, 90,
// 102, ...) so later periods keep distinct grant dates. Ties snap to the
// earlier anchor.
func NearestAnchor(elapsedMonths int) int {
	if elapsedMonths >= 78 {
		// +5 not +6: a value equidistant between two repeats snaps to
		// the earlier one, matching the tie rule below 78.
		k := (elapsedMonths - 78 + 5) / 12
		return 78 + 12*k
	}

	best := grantAnchors[0]
	bestDist := abs(elapsedMonths - best)
	for _, a := range grantAnchors[1:] {
		d := abs(elapsedMonths - a)
		if d < bestDist {
			best, bestDist = a, d
		}
	}
	return best
}

// AnchorForGranted is the inverse lookup: granted amount -> anchor.
// A 20-day grant maps to the first 20-day anchor (78 months); callers
// that need a later repeat anchor must disambiguate by grant date.
func AnchorForGranted(granted decimal.Decimal) (int, bool) {
	for _, a := range grantAnchors {
		if granted.Equal(DaysInt(grantTable[a])) {
			return a, true
		}
	}
	return 0, false
}

// NearestAnchorForGranted finds the anchor whose statutory grant is
// closest to the supplied amount. Used as a degraded fallback when the
// amount is not in the table.
func NearestAnchorForGranted(granted decimal.Decimal) int {
	best := grantAnchors[0]
	bestDist := granted.Sub(DaysInt(grantTable[best])).Abs()
	for _, a := range grantAnchors[1:] {
		d := granted.Sub(DaysInt(grantTable[a])).Abs()
		if d.LessThan(bestDist) {
			best, bestDist = a, d
		}
	}
	return best
}

// DueAnchors lists every anchor whose grant date (hire + anchor months)
// falls on or before the reference date. Past 78 months the sequence
// continues every 12 months.
func DueAnchors(hireDate, referenceDate Date) []int {
	if hireDate.IsZero() || hireDate.After(referenceDate) {
		return nil
	}

	var due []int
	for _, a := range grantAnchors {
		if hireDate.AddMonths(a).After(referenceDate) {
			break
		}
		due = append(due, a)
	}
	if len(due) == len(grantAnchors) {
		for a := 90; !hireDate.AddMonths(a).After(referenceDate); a += 12 {
			due = append(due, a)
		}
	}
	return due
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
