/*
compliance.go - Mandatory 5-day usage rule

PURPOSE:
  Classifies each employee against the statutory requirement that anyone
  granted 10 or more days must use at least 5 within the period's
  validity window. Getting this wrong has direct legal consequences, so
  the classification is a pure function of (ledger, reference date).

CLASSIFICATION:
  exempt        - no current period, or current grant below 10 days
  compliant     - 5 or more days used in the current period
  non_compliant - fewer than 3 used and fewer than 3 months remain
  at_risk       - everything in between

  The deadline is measured against the current period's own expiry date.
*/
package leave

import "github.com/shopspring/decimal"

type ComplianceStatus string

const (
	ComplianceCompliant    ComplianceStatus = "compliant"
	ComplianceAtRisk       ComplianceStatus = "at_risk"
	ComplianceNonCompliant ComplianceStatus = "non_compliant"
	ComplianceExempt       ComplianceStatus = "exempt"
)

// Thresholds of the mandatory usage rule.
var (
	mandatoryUsage  = DaysInt(5)
	mandatoryFloor  = DaysInt(10)
	criticalUsage   = DaysInt(3)
	criticalWindow  = 3 // months before expiry
)

// ComplianceResult is the classification plus the reporting fields the
// caller renders.
type ComplianceResult struct {
	EmployeeID  string
	Status      ComplianceStatus
	Deficit     decimal.Decimal // max(0, 5 - used) in the current period
	Used        decimal.Decimal
	PeriodIndex int  // -1 when no current period exists
	ExpiryDate  Date // zero when no current period exists
}

// Evaluate classifies an employee against the 5-day rule as of the
// reference date. It always returns a classification: an employee with
// zero grant history is exempt.
func Evaluate(emp Employee, l Ledger, referenceDate Date) ComplianceResult {
	res := ComplianceResult{
		EmployeeID:  emp.ID,
		Status:      ComplianceExempt,
		Deficit:     decimal.Zero,
		Used:        decimal.Zero,
		PeriodIndex: -1,
	}

	cur := l.CurrentPeriod()
	if cur == nil {
		return res
	}

	res.PeriodIndex = cur.PeriodIndex
	res.ExpiryDate = cur.ExpiryDate
	res.Used = cur.Used

	if cur.Granted.LessThan(mandatoryFloor) {
		return res
	}

	res.Deficit = decimal.Max(decimal.Zero, mandatoryUsage.Sub(cur.Used))

	switch {
	case cur.Used.GreaterThanOrEqual(mandatoryUsage):
		res.Status = ComplianceCompliant
	case cur.Used.LessThan(criticalUsage) && referenceDate.After(cur.ExpiryDate.AddMonths(-criticalWindow)):
		res.Status = ComplianceNonCompliant
	default:
		res.Status = ComplianceAtRisk
	}
	return res
}
