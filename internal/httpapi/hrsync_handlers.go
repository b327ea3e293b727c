package httpapi

import (
	"net/http"

	"paycore.org/internal/audit"
	"paycore.org/internal/auth"
)

func (a *API) handleSyncStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	_, ok := a.ensurePermission(w, r, "hrsync.status", "hr_sync", auth.PermManageHRSync)
	if !ok {
		return
	}
	if a.sync == nil {
		writeFail(w, r, http.StatusServiceUnavailable, codeSyncFailed, "hr sync is not configured")
		return
	}
	writeSuccess(w, r, http.StatusOK, "hr sync status", "health", a.sync.Status())
}

func (a *API) handleSyncRun(w http.ResponseWriter, r *http.Request) {
	const action = "hrsync.run"
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	_, ok := a.ensurePermission(w, r, action, "hr_sync", auth.PermManageHRSync)
	if !ok {
		return
	}
	if a.sync == nil {
		writeFail(w, r, http.StatusServiceUnavailable, codeSyncFailed, "hr sync is not configured")
		return
	}

	summary, err := a.sync.Run(r.Context())
	if err != nil {
		a.recordAudit(r, action, "hr_sync", "", audit.Failure, map[string]any{"error": err.Error()})
		writeFail(w, r, http.StatusBadGateway, codeSyncFailed, "hr sync failed: "+err.Error())
		return
	}

	a.recordAudit(r, action, "hr_sync", "", audit.Success, map[string]any{
		"employees": summary.Employees,
	})
	writeSuccess(w, r, http.StatusOK, "hr sync completed", "summary", summary)
}
