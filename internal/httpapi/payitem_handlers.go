package httpapi

import (
	"net/http"
	"strings"

	"paycore.org/internal/audit"
	"paycore.org/internal/auth"
	"paycore.org/internal/payroll"
)

type createPayItemRequest struct {
	PayRunID              string  `json:"pay_run_id"`
	EmployeeID            string  `json:"employee_id"`
	HoursWorked           float64 `json:"hours_worked"`
	PiecesCompleted       int64   `json:"pieces_completed"`
	GrossPay              int64   `json:"gross_pay"`
	TaxDeduction          int64   `json:"tax_deduction"`
	BenefitDeductions     int64   `json:"benefit_deductions"`
	EmployerContributions int64   `json:"employer_contributions"`
	Status                string  `json:"status"`
	Notes                 string  `json:"notes"`
}

type updatePayItemRequest struct {
	HoursWorked           *float64 `json:"hours_worked"`
	PiecesCompleted       *int64   `json:"pieces_completed"`
	GrossPay              *int64   `json:"gross_pay"`
	TaxDeduction          *int64   `json:"tax_deduction"`
	BenefitDeductions     *int64   `json:"benefit_deductions"`
	EmployerContributions *int64   `json:"employer_contributions"`
	Status                *string  `json:"status"`
	Notes                 *string  `json:"notes"`
}

func (a *API) handlePayItemsCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		a.createPayItem(w, r)
	default:
		methodNotAllowed(w, r, http.MethodPost)
	}
}

func (a *API) handlePayItemResource(w http.ResponseWriter, r *http.Request) {
	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/payitems/"), "/")
	if id == "" || strings.Contains(id, "/") {
		writeFail(w, r, http.StatusNotFound, codeNotFound, "resource not found")
		return
	}
	switch r.Method {
	case http.MethodPut, http.MethodPatch:
		a.updatePayItem(w, r, id)
	case http.MethodDelete:
		a.deletePayItem(w, r, id)
	default:
		methodNotAllowed(w, r, http.MethodPut, http.MethodPatch, http.MethodDelete)
	}
}

func (a *API) createPayItem(w http.ResponseWriter, r *http.Request) {
	const action = "payroll.item.create"
	principal, ok := a.ensurePermission(w, r, action, "pay_item", auth.PermPreparePayroll)
	if !ok {
		return
	}

	var req createPayItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		a.recordAudit(r, action, "pay_item", "", audit.Failure, map[string]any{"error": err.Error()})
		writeFail(w, r, http.StatusBadRequest, codeValidation, err.Error())
		return
	}

	var verrs ValidationErrors
	verrs.checkUUID("pay_run_id", req.PayRunID)
	if strings.TrimSpace(req.EmployeeID) == "" {
		verrs.add("employee_id", "is required")
	}
	verrs.checkNonNegativeFloat("hours_worked", req.HoursWorked)
	if req.PiecesCompleted < 0 {
		verrs.add("pieces_completed", "must be >= 0")
	}
	verrs.checkNonNegative("gross_pay", req.GrossPay)
	verrs.checkNonNegative("tax_deduction", req.TaxDeduction)
	verrs.checkNonNegative("benefit_deductions", req.BenefitDeductions)
	verrs.checkNonNegative("employer_contributions", req.EmployerContributions)
	verrs.checkEnum("status", req.Status,
		string(payroll.ItemDraft), string(payroll.ItemPending),
		string(payroll.ItemApproved), string(payroll.ItemPaid))
	if len(verrs) > 0 {
		a.recordAudit(r, action, "pay_item", "", audit.Failure, map[string]any{"validation": verrs.Error()})
		writeValidationFail(w, r, verrs)
		return
	}

	item, err := a.payroll.CreateItem(r.Context(), principal.OrganizationID, payroll.ItemInput{
		PayRunID:              req.PayRunID,
		EmployeeID:            req.EmployeeID,
		HoursWorked:           req.HoursWorked,
		PiecesCompleted:       req.PiecesCompleted,
		GrossPay:              req.GrossPay,
		TaxDeduction:          req.TaxDeduction,
		BenefitDeductions:     req.BenefitDeductions,
		EmployerContributions: req.EmployerContributions,
		Status:                payroll.ItemStatus(req.Status),
		Notes:                 req.Notes,
	})
	if err != nil {
		a.failPayrollOp(w, r, action, "pay_item", "", err)
		return
	}

	a.recordAudit(r, action, "pay_item", item.ID, audit.Success, map[string]any{
		"pay_run_id":  item.PayRunID,
		"employee_id": item.EmployeeID,
	})
	w.Header().Set("Location", "/v1/payitems/"+item.ID)
	writeSuccess(w, r, http.StatusOK, "pay item created", "pay_item", item)
}

func (a *API) updatePayItem(w http.ResponseWriter, r *http.Request, id string) {
	const action = "payroll.item.update"
	principal, ok := a.ensurePermission(w, r, action, "pay_item", auth.PermPreparePayroll)
	if !ok {
		return
	}

	var req updatePayItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		a.recordAudit(r, action, "pay_item", id, audit.Failure, map[string]any{"error": err.Error()})
		writeFail(w, r, http.StatusBadRequest, codeValidation, err.Error())
		return
	}

	var verrs ValidationErrors
	if req.HoursWorked != nil {
		verrs.checkNonNegativeFloat("hours_worked", *req.HoursWorked)
	}
	if req.PiecesCompleted != nil && *req.PiecesCompleted < 0 {
		verrs.add("pieces_completed", "must be >= 0")
	}
	if req.GrossPay != nil {
		verrs.checkNonNegative("gross_pay", *req.GrossPay)
	}
	if req.TaxDeduction != nil {
		verrs.checkNonNegative("tax_deduction", *req.TaxDeduction)
	}
	if req.BenefitDeductions != nil {
		verrs.checkNonNegative("benefit_deductions", *req.BenefitDeductions)
	}
	if req.EmployerContributions != nil {
		verrs.checkNonNegative("employer_contributions", *req.EmployerContributions)
	}
	patch := payroll.ItemPatch{
		HoursWorked:           req.HoursWorked,
		PiecesCompleted:       req.PiecesCompleted,
		GrossPay:              req.GrossPay,
		TaxDeduction:          req.TaxDeduction,
		BenefitDeductions:     req.BenefitDeductions,
		EmployerContributions: req.EmployerContributions,
		Notes:                 req.Notes,
	}
	if req.Status != nil {
		verrs.checkEnum("status", *req.Status,
			string(payroll.ItemDraft), string(payroll.ItemPending),
			string(payroll.ItemApproved), string(payroll.ItemPaid))
		status := payroll.ItemStatus(*req.Status)
		patch.Status = &status
	}
	if len(verrs) > 0 {
		a.recordAudit(r, action, "pay_item", id, audit.Failure, map[string]any{"validation": verrs.Error()})
		writeValidationFail(w, r, verrs)
		return
	}

	item, err := a.payroll.UpdateItem(r.Context(), principal.OrganizationID, id, patch)
	if err != nil {
		a.failPayrollOp(w, r, action, "pay_item", id, err)
		return
	}

	a.recordAudit(r, action, "pay_item", item.ID, audit.Success, map[string]any{
		"pay_run_id": item.PayRunID,
	})
	writeSuccess(w, r, http.StatusOK, "pay item updated", "pay_item", item)
}

func (a *API) deletePayItem(w http.ResponseWriter, r *http.Request, id string) {
	const action = "payroll.item.delete"
	principal, ok := a.ensurePermission(w, r, action, "pay_item", auth.PermPreparePayroll)
	if !ok {
		return
	}

	if err := a.payroll.DeleteItem(r.Context(), principal.OrganizationID, id); err != nil {
		a.failPayrollOp(w, r, action, "pay_item", id, err)
		return
	}

	a.recordAudit(r, action, "pay_item", id, audit.Success, nil)
	writeSuccess(w, r, http.StatusOK, "pay item deleted", "", nil)
}
