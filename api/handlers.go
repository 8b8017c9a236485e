/*
handlers.go - HTTP API handlers for the leave ledger service

PURPOSE:
  Exposes the entitlement engine via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Employees:
    GET    /api/employees                  List all employees
    POST   /api/employees                  Create/update employee
    GET    /api/employees/{id}             Get employee details
    GET    /api/employees/{id}/ledger      Recalculated ledger as of today (or ?date=)
    POST   /api/employees/{id}/usage       Record approved days off
    GET    /api/employees/{id}/compliance  Mandatory-usage classification
    POST   /api/employees/{id}/import      Merge an external snapshot

  Reconciliation:
    GET    /api/reconciliation/runs        Audit trail of merges

  Admin:
    POST   /api/admin/recalculate          Expiry/cap sweep (one or all employees)

ERROR HANDLING:
  Errors are returned as JSON with a stable machine-readable code:
  - 400: Malformed input (bad JSON, bad dates, bad amounts)
  - 404: Unknown employee or missing ledger
  - 422: Domain rejection (insufficient balance, duplicate date, retired)
  - 500: Internal errors

CONCURRENCY:
  The all-or-nothing balance check in Allocate is only sound against a
  consistent snapshot, so writes for one employee are serialized through
  a per-employee mutex. Different employees proceed in parallel.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/warp/leave-ledger/leave"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store  leave.Store
	Logger *zap.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewHandler creates a new handler with the given store and logger.
func NewHandler(store leave.Store, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{
		Store:  store,
		Logger: log,
		locks:  make(map[string]*sync.Mutex),
	}
}

// lockEmployee returns the mutex serializing writes for one employee.
func (h *Handler) lockEmployee(id string) *sync.Mutex {
	h.mu.Lock()
	defer h.mu.Unlock()
	m, ok := h.locks[id]
	if !ok {
		m = &sync.Mutex{}
		h.locks[id] = m
	}
	return m
}

// =============================================================================
// EMPLOYEE HANDLERS
// =============================================================================

// ListEmployees returns all employees.
func (h *Handler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	employees, err := h.Store.ListEmployees(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list employees", err)
		return
	}

	dtos := make([]EmployeeDTO, 0, len(employees))
	for _, emp := range employees {
		dtos = append(dtos, toEmployeeDTO(emp))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetEmployee returns a single employee.
func (h *Handler) GetEmployee(w http.ResponseWriter, r *http.Request) {
	emp, err := h.Store.GetEmployee(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toEmployeeDTO(*emp))
}

// CreateEmployee creates or updates an employee.
func (h *Handler) CreateEmployee(w http.ResponseWriter, r *http.Request) {
	var req CreateEmployeeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if req.ID == "" || req.Name == "" {
		writeError(w, http.StatusBadRequest, "id and name are required", nil)
		return
	}

	hireDate, err := leave.ParseDate(req.HireDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid hire_date", err)
		return
	}

	status := leave.EmploymentStatus(req.Status)
	if req.Status == "" {
		status = leave.StatusActive
	}
	switch status {
	case leave.StatusActive, leave.StatusOnLeave, leave.StatusSeparated:
	default:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown status %q", req.Status), nil)
		return
	}

	emp := leave.Employee{
		ID:       req.ID,
		Name:     req.Name,
		HireDate: hireDate,
		Status:   status,
	}
	if err := h.Store.SaveEmployee(r.Context(), emp); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to save employee", err)
		return
	}

	writeJSON(w, http.StatusCreated, toEmployeeDTO(emp))
}

// =============================================================================
// LEDGER HANDLERS
// =============================================================================

// GetLedger returns the employee's ledger recalculated as of the
// reference date (?date=YYYY-MM-DD, default today).
func (h *Handler) GetLedger(w http.ResponseWriter, r *http.Request) {
	ref, err := referenceDate(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date", err)
		return
	}

	l, err := h.Store.GetLedger(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toLedgerDTO(leave.Recalculate(*l, ref)))
}

// SubmitUsage records approved days off against the ledger. The request
// is all-or-nothing: either every date commits, or nothing changes.
// Expiry state is brought current as of the reference date
// (?date=YYYY-MM-DD, default today) before the balance check, so a
// period that lapsed since the last nightly sweep cannot be debited.
func (h *Handler) SubmitUsage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	ref, err := referenceDate(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date", err)
		return
	}

	var req UsageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	dates := make([]leave.UsageDate, 0, len(req.Dates))
	for _, d := range req.Dates {
		date, err := leave.ParseDate(d.Date)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid date %q", d.Date), err)
			return
		}
		half, err := leave.ParseUsageAmount(d.Amount)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid amount for %s", d.Date), err)
			return
		}
		dates = append(dates, leave.UsageDate{Date: date, Half: half, Origin: leave.OriginLocal})
	}

	lock := h.lockEmployee(id)
	lock.Lock()
	defer lock.Unlock()

	emp, err := h.Store.GetEmployee(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	l, err := h.Store.GetLedger(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	current := leave.Recalculate(*l, ref)
	res, err := leave.Allocate(&current, *emp, dates)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	updated := leave.Recalculate(current, ref)

	if err := h.Store.SaveLedger(r.Context(), updated); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to save ledger", err)
		return
	}

	h.Logger.Info("usage recorded",
		zap.String("employee_id", id),
		zap.Int("dates", len(dates)),
		zap.String("total", res.Total.String()))

	resp := UsageResponse{
		Total:  f64(res.Total),
		Debits: make([]DebitDTO, 0, len(res.Debits)),
		Ledger: toLedgerDTO(updated),
	}
	for _, d := range res.Debits {
		resp.Debits = append(resp.Debits, DebitDTO{PeriodIndex: d.PeriodIndex, Amount: f64(d.Amount)})
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetCompliance classifies the employee against the mandatory usage rule
// as of the reference date (?date=, default today).
func (h *Handler) GetCompliance(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	ref, err := referenceDate(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date", err)
		return
	}

	emp, err := h.Store.GetEmployee(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	l, err := h.Store.GetLedger(r.Context(), id)
	if errors.Is(err, leave.ErrLedgerNotFound) {
		// No grants yet: exempt by definition.
		empty := leave.NewLedger(id)
		l = &empty
	} else if err != nil {
		writeDomainError(w, err)
		return
	}

	res := leave.Evaluate(*emp, leave.Recalculate(*l, ref), ref)
	dto := ComplianceDTO{
		EmployeeID:  res.EmployeeID,
		Status:      string(res.Status),
		Used:        f64(res.Used),
		Deficit:     f64(res.Deficit),
		PeriodIndex: res.PeriodIndex,
	}
	if !res.ExpiryDate.IsZero() {
		dto.ExpiryDate = res.ExpiryDate.String()
	}
	writeJSON(w, http.StatusOK, dto)
}

// =============================================================================
// IMPORT / RECONCILIATION HANDLERS
// =============================================================================

// ImportSnapshot builds a ledger from raw external rows and merges it
// with the persisted state. Mode defaults to first_sync when the
// employee has no ledger yet, re_sync otherwise.
func (h *Handler) ImportSnapshot(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req ImportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	ref := leave.Today()
	if req.ReferenceDate != "" {
		var err error
		if ref, err = leave.ParseDate(req.ReferenceDate); err != nil {
			writeError(w, http.StatusBadRequest, "invalid reference_date", err)
			return
		}
	}

	rows, err := toRawRows(req.Rows)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid import rows", err)
		return
	}

	lock := h.lockEmployee(id)
	lock.Lock()
	defer lock.Unlock()

	emp, err := h.Store.GetEmployee(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	existing, err := h.Store.GetLedger(r.Context(), id)
	mode := leave.ReSync
	if errors.Is(err, leave.ErrLedgerNotFound) {
		mode = leave.FirstSync
		empty := leave.NewLedger(id)
		existing = &empty
	} else if err != nil {
		writeDomainError(w, err)
		return
	}

	switch req.Mode {
	case "":
	case string(leave.FirstSync):
		mode = leave.FirstSync
	case string(leave.ReSync):
		mode = leave.ReSync
	default:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown mode %q", req.Mode), nil)
		return
	}

	incoming, buildWarnings := leave.BuildLedger(leave.BuildInput{
		Employee:      *emp,
		Rows:          rows,
		ReferenceDate: ref,
	})

	merge := leave.Merge(*existing, incoming, mode, ref)
	warnings := append(buildWarnings, merge.Warnings...)

	if err := h.Store.SaveLedger(r.Context(), merge.Merged); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to save ledger", err)
		return
	}

	run := leave.ReconciliationRun{
		ID:         uuid.NewString(),
		EmployeeID: id,
		Mode:       mode,
		Conflicts:  len(merge.Conflicts),
		Warnings:   len(warnings),
		RunAt:      time.Now().UTC(),
	}
	if err := h.Store.SaveReconciliationRun(r.Context(), run); err != nil {
		h.Logger.Error("failed to record reconciliation run",
			zap.String("employee_id", id), zap.Error(err))
	}

	h.Logger.Info("snapshot merged",
		zap.String("employee_id", id),
		zap.String("mode", string(mode)),
		zap.Int("conflicts", len(merge.Conflicts)),
		zap.Int("warnings", len(warnings)))

	writeJSON(w, http.StatusOK, ImportResponse{
		Mode:      string(mode),
		RunID:     run.ID,
		Conflicts: toConflictDTOs(merge.Conflicts),
		Warnings:  toWarningDTOs(warnings),
		Ledger:    toLedgerDTO(merge.Merged),
	})
}

// ListReconciliationRuns returns the most recent merge audit records.
func (h *Handler) ListReconciliationRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := h.Store.ListReconciliationRuns(r.Context(), 100)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list runs", err)
		return
	}

	dtos := make([]ReconciliationRunDTO, 0, len(runs))
	for _, run := range runs {
		dtos = append(dtos, ReconciliationRunDTO{
			ID:         run.ID,
			EmployeeID: run.EmployeeID,
			Mode:       string(run.Mode),
			Conflicts:  run.Conflicts,
			Warnings:   run.Warnings,
			Notes:      run.Notes,
			RunAt:      run.RunAt.Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": dtos})
}

// =============================================================================
// ADMIN HANDLERS
// =============================================================================

// TriggerRecalculate runs the expiry/cap sweep for one employee or all.
func (h *Handler) TriggerRecalculate(w http.ResponseWriter, r *http.Request) {
	var req RecalculateRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body", err)
			return
		}
	}

	ref := leave.Today()
	if req.ReferenceDate != "" {
		var err error
		if ref, err = leave.ParseDate(req.ReferenceDate); err != nil {
			writeError(w, http.StatusBadRequest, "invalid reference_date", err)
			return
		}
	}

	var ids []string
	if req.EmployeeID != "" {
		ids = []string{req.EmployeeID}
	} else {
		employees, err := h.Store.ListEmployees(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to list employees", err)
			return
		}
		for _, emp := range employees {
			ids = append(ids, emp.ID)
		}
	}

	count := 0
	for _, id := range ids {
		if err := h.recalcOne(r, id, ref); err != nil {
			if errors.Is(err, leave.ErrLedgerNotFound) {
				continue
			}
			writeDomainError(w, err)
			return
		}
		count++
	}

	h.Logger.Info("recalculation sweep complete",
		zap.Int("employees", count), zap.String("reference_date", ref.String()))

	writeJSON(w, http.StatusOK, RecalculateResponse{
		Recalculated:  count,
		ReferenceDate: ref.String(),
	})
}

func (h *Handler) recalcOne(r *http.Request, id string, ref leave.Date) error {
	lock := h.lockEmployee(id)
	lock.Lock()
	defer lock.Unlock()

	l, err := h.Store.GetLedger(r.Context(), id)
	if err != nil {
		return err
	}
	recalced := leave.Recalculate(*l, ref)
	return h.Store.SaveLedger(r.Context(), recalced)
}

// =============================================================================
// HELPERS
// =============================================================================

func referenceDate(r *http.Request) (leave.Date, error) {
	raw := r.URL.Query().Get("date")
	if raw == "" {
		return leave.Today(), nil
	}
	return leave.ParseDate(raw)
}

func toRawRows(rows []ImportRow) ([]leave.RawPeriodRow, error) {
	out := make([]leave.RawPeriodRow, 0, len(rows))
	for i, row := range rows {
		raw := leave.RawPeriodRow{
			ElapsedMonths: row.ElapsedMonths,
			Granted:       leave.Days(row.Granted),
			Used:          leave.Days(row.Used),
			CarryOver:     leave.Days(row.CarryOver),
		}
		if row.GrantDate != "" {
			d, err := leave.ParseDate(row.GrantDate)
			if err != nil {
				return nil, fmt.Errorf("row %d: %w", i, err)
			}
			raw.HasGrantDate = true
			raw.GrantDate = d
		}
		for _, u := range row.UsageDates {
			d, err := leave.ParseDate(u.Date)
			if err != nil {
				return nil, fmt.Errorf("row %d: %w", i, err)
			}
			half, err := leave.ParseUsageAmount(u.Amount)
			if err != nil {
				return nil, fmt.Errorf("row %d: %w", i, err)
			}
			raw.UsageDates = append(raw.UsageDates, leave.UsageDate{
				Date: d, Half: half, Origin: leave.OriginExternal,
			})
		}
		out = append(out, raw)
	}
	return out, nil
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps engine errors to HTTP statuses with their stable
// codes.
func writeDomainError(w http.ResponseWriter, err error) {
	code := leave.CodeOf(err)
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, leave.ErrEmployeeNotFound), errors.Is(err, leave.ErrLedgerNotFound):
		status = http.StatusNotFound
	case errors.Is(err, leave.ErrInvalidDate), errors.Is(err, leave.ErrInvalidAmount):
		status = http.StatusBadRequest
	case leave.IsClientError(err):
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, ErrorResponse{
		Error:   err.Error(),
		Code:    string(code),
		Details: "",
	})
}
