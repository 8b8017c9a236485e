/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"github.com/shopspring/decimal"

	"github.com/warp/leave-ledger/leave"
)

// f64 renders a decimal day count for JSON. Day amounts are always
// half-day multiples, so the conversion is exact.
func f64(d decimal.Decimal) float64 {
	v, _ := d.Float64()
	return v
}

// =============================================================================
// EMPLOYEES
// =============================================================================

// EmployeeDTO represents an employee in API responses.
type EmployeeDTO struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	HireDate string `json:"hire_date"`
	Status   string `json:"status"`
}

// CreateEmployeeRequest is the request to create or update an employee.
type CreateEmployeeRequest struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	HireDate string `json:"hire_date"`
	Status   string `json:"status,omitempty"`
}

// =============================================================================
// LEDGERS
// =============================================================================

// UsageDateDTO is one consumed calendar day.
type UsageDateDTO struct {
	Date   string  `json:"date"`
	Amount float64 `json:"amount"`
	Origin string  `json:"origin"`
}

// PeriodDTO is one grant period in a ledger response.
type PeriodDTO struct {
	PeriodIndex   int            `json:"period_index"`
	ElapsedMonths int            `json:"elapsed_months"`
	GrantDate     string         `json:"grant_date"`
	ExpiryDate    string         `json:"expiry_date"`
	Granted       float64        `json:"granted"`
	Used          float64        `json:"used"`
	CarryOver     float64        `json:"carry_over"`
	Expired       float64        `json:"expired"`
	Balance       float64        `json:"balance"`
	IsExpired     bool           `json:"is_expired"`
	IsCurrent     bool           `json:"is_current"`
	UsageDates    []UsageDateDTO `json:"usage_dates"`
}

// LedgerDTO is the full ledger response.
type LedgerDTO struct {
	EmployeeID             string      `json:"employee_id"`
	Periods                []PeriodDTO `json:"periods"`
	CurrentGrantedTotal    float64     `json:"current_granted_total"`
	CurrentUsedTotal       float64     `json:"current_used_total"`
	CurrentBalance         float64     `json:"current_balance"`
	HistoricalGrantedTotal float64     `json:"historical_granted_total"`
	HistoricalUsedTotal    float64     `json:"historical_used_total"`
	HistoricalBalanceTotal float64     `json:"historical_balance_total"`
	ExceededDays           float64     `json:"exceeded_days"`
	RecalculatedAt         string      `json:"recalculated_at"`
}

// =============================================================================
// USAGE
// =============================================================================

// UsageRequest records consumed days against the ledger.
type UsageRequest struct {
	Dates []UsageRequestDate `json:"dates"`
}

// UsageRequestDate is one requested day off.
type UsageRequestDate struct {
	Date   string  `json:"date"`
	Amount float64 `json:"amount"` // 0.5 or 1.0
}

// DebitDTO is one period's share of an allocation.
type DebitDTO struct {
	PeriodIndex int     `json:"period_index"`
	Amount      float64 `json:"amount"`
}

// UsageResponse is the breakdown of a committed allocation plus the
// updated ledger.
type UsageResponse struct {
	Total  float64    `json:"total"`
	Debits []DebitDTO `json:"debits"`
	Ledger LedgerDTO  `json:"ledger"`
}

// =============================================================================
// COMPLIANCE
// =============================================================================

// ComplianceDTO is the mandatory-usage classification for one employee.
type ComplianceDTO struct {
	EmployeeID  string  `json:"employee_id"`
	Status      string  `json:"status"`
	Used        float64 `json:"used"`
	Deficit     float64 `json:"deficit"`
	PeriodIndex int     `json:"period_index"`
	ExpiryDate  string  `json:"expiry_date,omitempty"`
}

// =============================================================================
// IMPORT / RECONCILIATION
// =============================================================================

// ImportRow is one raw spreadsheet row of the external snapshot.
type ImportRow struct {
	GrantDate     string             `json:"grant_date,omitempty"`
	ElapsedMonths *int               `json:"elapsed_months,omitempty"`
	Granted       float64            `json:"granted"`
	Used          float64            `json:"used"`
	CarryOver     float64            `json:"carry_over"`
	UsageDates    []UsageRequestDate `json:"usage_dates,omitempty"`
}

// ImportRequest submits an external snapshot for one employee.
type ImportRequest struct {
	Mode          string      `json:"mode,omitempty"` // first_sync | re_sync; inferred when empty
	ReferenceDate string      `json:"reference_date,omitempty"`
	Rows          []ImportRow `json:"rows"`
}

// ConflictDTO is one flagged discrepancy of a merge.
type ConflictDTO struct {
	Code        string `json:"code"`
	PeriodIndex int    `json:"period_index"`
	Date        string `json:"date,omitempty"`
	Message     string `json:"message"`
}

// WarningDTO is one non-blocking anomaly of a build or merge.
type WarningDTO struct {
	Code        string `json:"code"`
	PeriodIndex int    `json:"period_index"`
	Date        string `json:"date,omitempty"`
	Message     string `json:"message"`
}

// ImportResponse is the merge outcome plus the persisted ledger.
type ImportResponse struct {
	Mode      string        `json:"mode"`
	RunID     string        `json:"run_id"`
	Conflicts []ConflictDTO `json:"conflicts"`
	Warnings  []WarningDTO  `json:"warnings"`
	Ledger    LedgerDTO     `json:"ledger"`
}

// ReconciliationRunDTO is one audit record.
type ReconciliationRunDTO struct {
	ID         string `json:"id"`
	EmployeeID string `json:"employee_id"`
	Mode       string `json:"mode"`
	Conflicts  int    `json:"conflicts"`
	Warnings   int    `json:"warnings"`
	Notes      string `json:"notes,omitempty"`
	RunAt      string `json:"run_at"`
}

// =============================================================================
// ADMIN
// =============================================================================

// RecalculateRequest triggers a sweep for one or all employees.
type RecalculateRequest struct {
	EmployeeID    string `json:"employee_id,omitempty"` // empty = all
	ReferenceDate string `json:"reference_date,omitempty"`
}

// RecalculateResponse summarizes a sweep.
type RecalculateResponse struct {
	Recalculated  int    `json:"recalculated"`
	ReferenceDate string `json:"reference_date"`
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrorResponse is the JSON error envelope. Code is a stable
// machine-readable identifier; Details is free-form.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toEmployeeDTO(emp leave.Employee) EmployeeDTO {
	return EmployeeDTO{
		ID:       emp.ID,
		Name:     emp.Name,
		HireDate: emp.HireDate.String(),
		Status:   string(emp.Status),
	}
}

func toLedgerDTO(l leave.Ledger) LedgerDTO {
	dto := LedgerDTO{
		EmployeeID:             l.EmployeeID,
		Periods:                make([]PeriodDTO, 0, len(l.Periods)),
		CurrentGrantedTotal:    f64(l.CurrentGrantedTotal),
		CurrentUsedTotal:       f64(l.CurrentUsedTotal),
		CurrentBalance:         f64(l.CurrentBalance),
		HistoricalGrantedTotal: f64(l.HistoricalGrantedTotal),
		HistoricalUsedTotal:    f64(l.HistoricalUsedTotal),
		HistoricalBalanceTotal: f64(l.HistoricalBalance),
		ExceededDays:           f64(l.ExceededDays),
		RecalculatedAt:         l.RecalculatedAt.String(),
	}
	for _, p := range l.Periods {
		pd := PeriodDTO{
			PeriodIndex:   p.PeriodIndex,
			ElapsedMonths: p.ElapsedMonths,
			GrantDate:     p.GrantDate.String(),
			ExpiryDate:    p.ExpiryDate.String(),
			Granted:       f64(p.Granted),
			Used:          f64(p.Used),
			CarryOver:     f64(p.CarryOver),
			Expired:       f64(p.Expired),
			Balance:       f64(p.Balance()),
			IsExpired:     p.IsExpired,
			IsCurrent:     p.IsCurrent,
			UsageDates:    make([]UsageDateDTO, 0, len(p.UsageDates)),
		}
		for _, u := range p.UsageDates {
			pd.UsageDates = append(pd.UsageDates, UsageDateDTO{
				Date:   u.Date.String(),
				Amount: f64(u.Amount()),
				Origin: string(u.Origin),
			})
		}
		dto.Periods = append(dto.Periods, pd)
	}
	return dto
}

func toConflictDTOs(conflicts []leave.Conflict) []ConflictDTO {
	out := make([]ConflictDTO, 0, len(conflicts))
	for _, c := range conflicts {
		dto := ConflictDTO{
			Code:        string(c.Code),
			PeriodIndex: c.PeriodIndex,
			Message:     c.Message,
		}
		if c.Date != nil {
			dto.Date = c.Date.String()
		}
		out = append(out, dto)
	}
	return out
}

func toWarningDTOs(warnings []leave.Warning) []WarningDTO {
	out := make([]WarningDTO, 0, len(warnings))
	for _, w := range warnings {
		dto := WarningDTO{
			Code:        string(w.Code),
			PeriodIndex: w.PeriodIndex,
			Message:     w.Message,
		}
		if w.Date != nil {
			dto.Date = w.Date.String()
		}
		out = append(out, dto)
	}
	return out
}
