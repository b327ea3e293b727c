package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"paycore.org/internal/audit"
	"paycore.org/internal/auth"
	"paycore.org/internal/payroll"
)

type createPayRunRequest struct {
	PayPeriodStart   string  `json:"pay_period_start"`
	PayPeriodEnd     string  `json:"pay_period_end"`
	PayRunDate       string  `json:"pay_run_date"`
	PayGroupID       string  `json:"pay_group_id"`
	PayGroupMasterID string  `json:"pay_group_master_id"`
	Category         string  `json:"category"`
	SubType          string  `json:"sub_type"`
	PayFrequency     string  `json:"pay_frequency"`
	PayrollType      string  `json:"payroll_type"`
	Status           string  `json:"status"`
	ExchangeRate     float64 `json:"exchange_rate"`
	DaysWorked       float64 `json:"days_worked"`
}

type updatePayRunRequest struct {
	Status       *string  `json:"status"`
	PayRunDate   *string  `json:"pay_run_date"`
	PeriodStart  *string  `json:"pay_period_start"`
	PeriodEnd    *string  `json:"pay_period_end"`
	SubType      *string  `json:"sub_type"`
	PayFrequency *string  `json:"pay_frequency"`
	PayrollType  *string  `json:"payroll_type"`
	ExchangeRate *float64 `json:"exchange_rate"`
	DaysWorked   *float64 `json:"days_worked"`
	ApprovedBy   *string  `json:"approved_by"`
}

func (a *API) handlePayRunsCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		a.createPayRun(w, r)
	case http.MethodGet:
		a.listPayRuns(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handlePayRunResource(w http.ResponseWriter, r *http.Request) {
	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/payruns/"), "/")
	if id == "" || strings.Contains(id, "/") {
		writeFail(w, r, http.StatusNotFound, codeNotFound, "resource not found")
		return
	}
	switch r.Method {
	case http.MethodGet:
		a.getPayRun(w, r, id)
	case http.MethodPut, http.MethodPatch:
		a.updatePayRun(w, r, id)
	case http.MethodDelete:
		a.deletePayRun(w, r, id)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPut, http.MethodPatch, http.MethodDelete)
	}
}

func (a *API) createPayRun(w http.ResponseWriter, r *http.Request) {
	const action = "payroll.run.create"
	principal, ok := a.ensurePermission(w, r, action, "pay_run", auth.PermPreparePayroll)
	if !ok {
		return
	}

	var req createPayRunRequest
	if err := decodeJSON(w, r, &req); err != nil {
		a.recordAudit(r, action, "pay_run", "", audit.Failure, map[string]any{"error": err.Error()})
		writeFail(w, r, http.StatusBadRequest, codeValidation, err.Error())
		return
	}

	var verrs ValidationErrors
	start := verrs.checkDate("pay_period_start", req.PayPeriodStart)
	end := verrs.checkDate("pay_period_end", req.PayPeriodEnd)
	if !start.IsZero() && !end.IsZero() && end.Before(start) {
		verrs.add("pay_period_end", "must not precede pay_period_start")
	}
	runDate := verrs.checkOptionalDate("pay_run_date", req.PayRunDate)
	if req.PayGroupID == "" && req.PayGroupMasterID == "" {
		verrs.add("pay_group_id", "a pay group reference is required")
	}
	verrs.checkEnum("status", req.Status,
		string(payroll.StatusDraft), string(payroll.StatusPendingApproval),
		string(payroll.StatusApproved), string(payroll.StatusProcessed))
	verrs.checkNonNegativeFloat("exchange_rate", req.ExchangeRate)
	verrs.checkNonNegativeFloat("days_worked", req.DaysWorked)
	if len(verrs) > 0 {
		a.recordAudit(r, action, "pay_run", "", audit.Failure, map[string]any{"validation": verrs.Error()})
		writeValidationFail(w, r, verrs)
		return
	}

	result, err := a.payroll.CreateRun(r.Context(), payroll.CreateRunInput{
		OrganizationID:   principal.OrganizationID,
		CreatedBy:        principal.UserID,
		PeriodStart:      start,
		PeriodEnd:        end,
		RunDate:          runDate,
		PayGroupID:       req.PayGroupID,
		PayGroupMasterID: req.PayGroupMasterID,
		Category:         req.Category,
		SubType:          req.SubType,
		PayFrequency:     req.PayFrequency,
		PayrollType:      req.PayrollType,
		Status:           payroll.Status(req.Status),
		ExchangeRate:     req.ExchangeRate,
		DaysWorked:       req.DaysWorked,
	})
	if err != nil {
		a.failPayrollOp(w, r, action, "pay_run", "", err)
		return
	}

	a.recordAudit(r, action, "pay_run", result.Run.ID, audit.Success, map[string]any{
		"pay_run_id":    result.Run.RunID,
		"members":       result.MembersPopulated,
		"member_source": result.MemberSource,
	})

	payload := map[string]any{
		"success":           true,
		"message":           result.PopulationMessage,
		"pay_run":           result.Run,
		"members_populated": result.MembersPopulated,
	}
	if rid := RequestIDFromContext(r.Context()); rid != "" {
		payload["request_id"] = rid
	}
	w.Header().Set("Location", "/v1/payruns/"+result.Run.ID)
	writeEnvelope(w, http.StatusOK, payload)
}

func (a *API) listPayRuns(w http.ResponseWriter, r *http.Request) {
	principal, ok := a.ensurePermission(w, r, "payroll.run.list", "pay_run", auth.PermViewPayroll)
	if !ok {
		return
	}
	runs, err := a.payroll.ListRuns(r.Context(), principal.OrganizationID)
	if err != nil {
		writeFail(w, r, http.StatusInternalServerError, codeInternal, "internal error")
		return
	}
	writeSuccess(w, r, http.StatusOK, "pay runs listed", "pay_runs", runs)
}

func (a *API) getPayRun(w http.ResponseWriter, r *http.Request, id string) {
	principal, ok := a.ensurePermission(w, r, "payroll.run.get", "pay_run", auth.PermViewPayroll)
	if !ok {
		return
	}
	run, items, err := a.payroll.GetRun(r.Context(), principal.OrganizationID, id)
	if err != nil {
		if errors.Is(err, payroll.ErrNotFound) {
			writeFail(w, r, http.StatusNotFound, codeNotFound, "pay run not found")
			return
		}
		writeFail(w, r, http.StatusInternalServerError, codeInternal, "internal error")
		return
	}
	payload := map[string]any{
		"success":   true,
		"message":   "pay run found",
		"pay_run":   run,
		"pay_items": items,
	}
	if rid := RequestIDFromContext(r.Context()); rid != "" {
		payload["request_id"] = rid
	}
	writeEnvelope(w, http.StatusOK, payload)
}

func (a *API) updatePayRun(w http.ResponseWriter, r *http.Request, id string) {
	principal, ok := a.ensurePermission(w, r, "payroll.run.update", "pay_run", auth.PermPreparePayroll)
	if !ok {
		return
	}

	var req updatePayRunRequest
	if err := decodeJSON(w, r, &req); err != nil {
		a.recordAudit(r, "payroll.run.update", "pay_run", id, audit.Failure, map[string]any{"error": err.Error()})
		writeFail(w, r, http.StatusBadRequest, codeValidation, err.Error())
		return
	}

	var verrs ValidationErrors
	patch := payroll.RunPatch{
		SubType:      req.SubType,
		PayFrequency: req.PayFrequency,
		PayrollType:  req.PayrollType,
		ExchangeRate: req.ExchangeRate,
		DaysWorked:   req.DaysWorked,
		ApprovedBy:   req.ApprovedBy,
	}
	if req.Status != nil {
		verrs.checkEnum("status", *req.Status,
			string(payroll.StatusDraft), string(payroll.StatusPendingApproval),
			string(payroll.StatusApproved), string(payroll.StatusProcessed))
		status := payroll.Status(*req.Status)
		patch.Status = &status
	}
	if req.PayRunDate != nil {
		patch.RunDate = verrs.checkOptionalDate("pay_run_date", *req.PayRunDate)
	}
	if req.PeriodStart != nil {
		patch.PeriodStart = verrs.checkOptionalDate("pay_period_start", *req.PeriodStart)
	}
	if req.PeriodEnd != nil {
		patch.PeriodEnd = verrs.checkOptionalDate("pay_period_end", *req.PeriodEnd)
	}
	if req.ExchangeRate != nil {
		verrs.checkNonNegativeFloat("exchange_rate", *req.ExchangeRate)
	}
	if req.DaysWorked != nil {
		verrs.checkNonNegativeFloat("days_worked", *req.DaysWorked)
	}
	if len(verrs) > 0 {
		a.recordAudit(r, "payroll.run.update", "pay_run", id, audit.Failure, map[string]any{"validation": verrs.Error()})
		writeValidationFail(w, r, verrs)
		return
	}

	run, statusChanged, err := a.payroll.UpdateRun(r.Context(), principal.OrganizationID, id, principal.UserID, patch)
	if err != nil {
		a.failPayrollOp(w, r, "payroll.run.update", "pay_run", id, err)
		return
	}

	// A status transition is audited under its own action label so it
	// stays individually attributable.
	action := "payroll.run.update"
	message := "pay run updated"
	if statusChanged {
		action = "payroll.run.status_change"
		message = "pay run status changed to " + string(run.Status)
	}
	a.recordAudit(r, action, "pay_run", run.ID, audit.Success, map[string]any{
		"status": string(run.Status),
	})
	writeSuccess(w, r, http.StatusOK, message, "pay_run", run)
}

func (a *API) deletePayRun(w http.ResponseWriter, r *http.Request, id string) {
	const action = "payroll.run.delete"
	principal, ok := a.ensurePermission(w, r, action, "pay_run", auth.PermPreparePayroll)
	if !ok {
		return
	}

	hard := strings.EqualFold(r.URL.Query().Get("hard"), "true")
	if hard && !a.ensureAdmin(w, r, principal, action, "pay_run", id) {
		return
	}

	if err := a.payroll.DeleteRun(r.Context(), principal.OrganizationID, id, hard); err != nil {
		a.failPayrollOp(w, r, action, "pay_run", id, err)
		return
	}

	mode := "soft"
	message := "pay run retired"
	if hard {
		mode = "hard"
		message = "pay run and its pay items removed"
	}
	a.recordAudit(r, action, "pay_run", id, audit.Success, map[string]any{"mode": mode})
	writeSuccess(w, r, http.StatusOK, message, "", nil)
}

// failPayrollOp maps a service error onto the envelope and writes the
// single audit entry for the failed call.
func (a *API) failPayrollOp(w http.ResponseWriter, r *http.Request, action, resource, resourceID string, err error) {
	status, code, result := payrollErrorDetails(err)
	a.recordAudit(r, action, resource, resourceID, result, map[string]any{
		"error": err.Error(),
		"code":  code,
	})
	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "internal error"
	}
	writeFail(w, r, status, code, message)
}

func payrollErrorDetails(err error) (status int, code string, result audit.Result) {
	var terr *payroll.TransitionError
	switch {
	case errors.As(err, &terr):
		return http.StatusBadRequest, codeInvalidTransition, audit.Failure
	case errors.Is(err, payroll.ErrProcessedPayRun):
		// Policy denial, not a technical failure.
		return http.StatusBadRequest, codeProcessedProtected, audit.Denied
	case errors.Is(err, payroll.ErrDuplicatePayItem):
		return http.StatusBadRequest, codeDuplicatePayItem, audit.Failure
	case errors.Is(err, payroll.ErrInvalidStatus):
		return http.StatusBadRequest, codeInvalidStatus, audit.Failure
	case errors.Is(err, payroll.ErrMissingTenant):
		return http.StatusBadRequest, codeMissingTenant, audit.Failure
	case errors.Is(err, payroll.ErrMissingPayGroup):
		return http.StatusBadRequest, codeMissingPayGroup, audit.Failure
	case errors.Is(err, payroll.ErrNotFound):
		return http.StatusNotFound, codeNotFound, audit.Failure
	default:
		return http.StatusInternalServerError, codeInternal, audit.Failure
	}
}
