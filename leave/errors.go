/*
errors.go - Centralized error and warning types for the entitlement engine

PURPOSE:
  All error types in one place. The engine distinguishes three layers:

  1. Validation errors   - caller-correctable input problems
  2. Business rejections - expected, frequent, carry a stable code the
                           caller can render (INSUFFICIENT_BALANCE etc.)
  3. Warnings            - non-blocking data-quality findings returned
                           alongside a successful result

  Invariant violations (negative balance after recalculation, broken
  date disjointness) are programming errors and panic instead of
  returning; silently clamping them would hide the defect that produced
  an incorrect legal compliance figure.

USAGE:
  if errors.Is(err, leave.ErrInsufficientBalance) { ... }

  switch leave.CodeOf(err) {
  case leave.CodeInsufficientBalance: ...
  }
*/
package leave

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInsufficientBalance is returned when a requested allocation
	// exceeds the eligible balance across all non-expired periods.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrDuplicateDate is returned when a usage date is already present
	// in some period's usage list for the employee.
	ErrDuplicateDate = errors.New("usage date already recorded")

	// ErrEmployeeRetired is returned when the employee's status forbids
	// new allocations.
	ErrEmployeeRetired = errors.New("employee status forbids new allocations")

	// ErrInvalidAmount is returned for amounts that are not positive
	// multiples of 0.5 days.
	ErrInvalidAmount = errors.New("amount must be a positive multiple of 0.5")

	// ErrInvalidDate is returned for unparseable dates.
	ErrInvalidDate = errors.New("invalid date")

	// ErrEmployeeNotFound is returned when a referenced employee doesn't exist.
	ErrEmployeeNotFound = errors.New("employee not found")

	// ErrLedgerNotFound is returned when an employee has no persisted ledger.
	ErrLedgerNotFound = errors.New("ledger not found")
)

// =============================================================================
// STABLE CODES - Business rejections the caller renders specifically
// =============================================================================

type Code string

const (
	CodeInsufficientBalance Code = "INSUFFICIENT_BALANCE"
	CodeDuplicateDate       Code = "DUPLICATE_DATE"
	CodeEmployeeRetired     Code = "EMPLOYEE_RETIRED"
	CodeInvalidAmount       Code = "INVALID_AMOUNT"
	CodeInvalidDate         Code = "INVALID_DATE"
	CodeEmployeeNotFound    Code = "EMPLOYEE_NOT_FOUND"
	CodeLedgerNotFound      Code = "LEDGER_NOT_FOUND"
)

// CodeOf maps an error to its stable rejection code, or "" for errors
// that are not business rejections or validation failures.
func CodeOf(err error) Code {
	switch {
	case errors.Is(err, ErrInsufficientBalance):
		return CodeInsufficientBalance
	case errors.Is(err, ErrDuplicateDate):
		return CodeDuplicateDate
	case errors.Is(err, ErrEmployeeRetired):
		return CodeEmployeeRetired
	case errors.Is(err, ErrInvalidAmount):
		return CodeInvalidAmount
	case errors.Is(err, ErrInvalidDate):
		return CodeInvalidDate
	case errors.Is(err, ErrEmployeeNotFound):
		return CodeEmployeeNotFound
	case errors.Is(err, ErrLedgerNotFound):
		return CodeLedgerNotFound
	default:
		return ""
	}
}

// IsClientError returns true if the error is due to invalid client input
// or an expected business rejection.
func IsClientError(err error) bool {
	return CodeOf(err) != ""
}

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InsufficientBalanceError details a balance shortage.
type InsufficientBalanceError struct {
	EmployeeID string
	Available  decimal.Decimal
	Requested  decimal.Decimal
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance for %s: available %s, requested %s",
		e.EmployeeID, e.Available, e.Requested)
}

func (e *InsufficientBalanceError) Unwrap() error { return ErrInsufficientBalance }

// DuplicateDateError details a date disjointness rejection.
type DuplicateDateError struct {
	EmployeeID  string
	Date        Date
	PeriodIndex int // period already holding the date; -1 for within-request duplicates
}

func (e *DuplicateDateError) Error() string {
	if e.PeriodIndex < 0 {
		return fmt.Sprintf("duplicate date in request: %s", e.Date)
	}
	return fmt.Sprintf("usage date %s already recorded on period %d", e.Date, e.PeriodIndex)
}

func (e *DuplicateDateError) Unwrap() error { return ErrDuplicateDate }

// =============================================================================
// WARNINGS - Non-blocking data-quality findings
// =============================================================================

type WarningCode string

const (
	// WarnUnresolvedAnchor: a row's elapsed-months value didn't match a
	// statutory anchor and was snapped to the nearest one.
	WarnUnresolvedAnchor WarningCode = "UNRESOLVED_ANCHOR"

	// WarnUnknownGrantAmount: a granted amount not in the grant table;
	// fell back to the nearest table anchor.
	WarnUnknownGrantAmount WarningCode = "UNKNOWN_GRANT_AMOUNT"

	// WarnOverUsedRow: a period's used amount exceeded granted plus
	// carry-over; used was capped at that sum so the balance stays
	// non-negative.
	WarnOverUsedRow WarningCode = "OVER_USED_ROW"

	// WarnFutureHireDate: hire date lies after the reference date.
	WarnFutureHireDate WarningCode = "FUTURE_HIRE_DATE"

	// WarnUnassignedDate: a usage date outside every period's validity
	// window; placed on the most recent period.
	WarnUnassignedDate WarningCode = "UNASSIGNED_DATE"

	// WarnLocalDatePreserved: a locally approved date absent from the
	// external source was retained during reconciliation.
	WarnLocalDatePreserved WarningCode = "LOCAL_DATE_PRESERVED"

	// WarnDuplicateRowDate: the same calendar date appeared on more than
	// one import row; the first occurrence won.
	WarnDuplicateRowDate WarningCode = "DUPLICATE_ROW_DATE"
)

// Warning is returned alongside a successful result; it never blocks the
// operation.
type Warning struct {
	Code        WarningCode
	EmployeeID  string
	PeriodIndex int
	Date        *Date
	Message     string
}

func (w Warning) String() string {
	if w.Date != nil {
		return fmt.Sprintf("%s [%s %s]: %s", w.Code, w.EmployeeID, w.Date, w.Message)
	}
	return fmt.Sprintf("%s [%s]: %s", w.Code, w.EmployeeID, w.Message)
}

// =============================================================================
// CONFLICTS - Reconciliation findings that require human review
// =============================================================================

type ConflictCode string

const (
	// ConflictExternalDateRemoved: a date previously supplied by the
	// external source disappeared from the incoming snapshot. The date is
	// preserved in the merge, not dropped.
	ConflictExternalDateRemoved ConflictCode = "EXTERNAL_DATE_REMOVED"

	// ConflictDateCountShrunk: the incoming snapshot carries fewer total
	// usage dates than the last known external count.
	ConflictDateCountShrunk ConflictCode = "DATE_COUNT_SHRUNK"
)

type Conflict struct {
	Code        ConflictCode
	EmployeeID  string
	PeriodIndex int
	Date        *Date
	Message     string
}

func (c Conflict) String() string {
	if c.Date != nil {
		return fmt.Sprintf("%s [%s %s]: %s", c.Code, c.EmployeeID, c.Date, c.Message)
	}
	return fmt.Sprintf("%s [%s]: %s", c.Code, c.EmployeeID, c.Message)
}
