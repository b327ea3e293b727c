package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"paycore.org/internal/audit"
	"paycore.org/internal/auth"
)

type updateUserRequest struct {
	Email    *string `json:"email"`
	FullName *string `json:"full_name"`
	Role     *string `json:"role"`
	Password *string `json:"password"`
}

func (a *API) handleUserResource(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/users/"), "/")
	if path == "" {
		writeFail(w, r, http.StatusNotFound, codeNotFound, "resource not found")
		return
	}
	parts := strings.Split(path, "/")
	switch {
	case len(parts) == 1:
		userID := parts[0]
		switch r.Method {
		case http.MethodPut, http.MethodPatch:
			a.updateUser(w, r, userID)
		case http.MethodDelete:
			a.deleteUser(w, r, userID)
		default:
			methodNotAllowed(w, r, http.MethodPut, http.MethodPatch, http.MethodDelete)
		}
	case len(parts) == 2 && parts[1] == "access":
		if r.Method != http.MethodGet {
			methodNotAllowed(w, r, http.MethodGet)
			return
		}
		a.getUserAccess(w, r, parts[0])
	default:
		writeFail(w, r, http.StatusNotFound, codeNotFound, "resource not found")
	}
}

func (a *API) updateUser(w http.ResponseWriter, r *http.Request, userID string) {
	const action = "users.update"
	principal, ok := a.ensurePermission(w, r, action, "user", auth.PermManageUsers)
	if !ok {
		return
	}

	var req updateUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		a.recordAudit(r, action, "user", userID, audit.Failure, map[string]any{"error": err.Error()})
		writeFail(w, r, http.StatusBadRequest, codeValidation, err.Error())
		return
	}

	// Role changes sit a tier above general user management.
	if req.Role != nil && !a.ensureAdmin(w, r, principal, action, "user", userID) {
		return
	}

	var verrs ValidationErrors
	if req.Email != nil {
		email := strings.TrimSpace(strings.ToLower(*req.Email))
		if email == "" || !strings.Contains(email, "@") {
			verrs.add("email", "must be a valid email address")
		}
	}
	if req.Role != nil && !auth.KnownRole(strings.TrimSpace(strings.ToLower(*req.Role))) {
		verrs.add("role", "unknown role")
	}
	if req.Password != nil && len(*req.Password) < auth.MinPasswordLength {
		verrs.add("password", "must be at least 8 characters")
	}
	if len(verrs) > 0 {
		a.recordAudit(r, action, "user", userID, audit.Failure, map[string]any{"validation": verrs.Error()})
		writeValidationFail(w, r, verrs)
		return
	}

	user, err := a.users.Update(r.Context(), principal.OrganizationID, userID, auth.UserPatch{
		Email:    req.Email,
		FullName: req.FullName,
		Role:     req.Role,
		Password: req.Password,
	})
	if err != nil {
		a.failUserOp(w, r, action, userID, err)
		return
	}

	details := map[string]any{}
	if req.Role != nil {
		details["role"] = user.Role
	}
	a.recordAudit(r, action, "user", user.ID, audit.Success, details)
	writeSuccess(w, r, http.StatusOK, "user updated", "user", user)
}

func (a *API) deleteUser(w http.ResponseWriter, r *http.Request, userID string) {
	const action = "users.delete"
	principal, ok := a.ensurePermission(w, r, action, "user", auth.PermManageUsers)
	if !ok {
		return
	}

	hard := strings.EqualFold(r.URL.Query().Get("hard"), "true")
	if hard {
		if !a.ensureAdmin(w, r, principal, action, "user", userID) {
			return
		}
		if err := a.users.HardDelete(r.Context(), principal.OrganizationID, userID); err != nil {
			a.failUserOp(w, r, action, userID, err)
			return
		}
		a.recordAudit(r, action, "user", userID, audit.Success, map[string]any{"mode": "hard"})
		writeSuccess(w, r, http.StatusOK, "user removed", "", nil)
		return
	}

	user, err := a.users.Ban(r.Context(), principal.OrganizationID, userID)
	if err != nil {
		a.failUserOp(w, r, action, userID, err)
		return
	}
	a.recordAudit(r, action, "user", user.ID, audit.Success, map[string]any{"mode": "ban"})
	writeSuccess(w, r, http.StatusOK, "user banned", "user", user)
}

func (a *API) getUserAccess(w http.ResponseWriter, r *http.Request, userID string) {
	principal, ok := a.ensurePermission(w, r, "users.access.get", "user", auth.PermManageUsers)
	if !ok {
		return
	}
	access, err := a.users.Access(r.Context(), principal.OrganizationID, userID)
	if err != nil {
		if errors.Is(err, auth.ErrNotFound) {
			writeFail(w, r, http.StatusNotFound, codeNotFound, "user not found")
			return
		}
		writeFail(w, r, http.StatusInternalServerError, codeInternal, "internal error")
		return
	}
	writeSuccess(w, r, http.StatusOK, "effective access computed", "access", access)
}

func (a *API) failUserOp(w http.ResponseWriter, r *http.Request, action, userID string, err error) {
	status, code := http.StatusInternalServerError, codeInternal
	switch {
	case errors.Is(err, auth.ErrNotFound):
		status, code = http.StatusNotFound, codeNotFound
	case errors.Is(err, auth.ErrInvalidInput):
		status, code = http.StatusBadRequest, codeValidation
	case errors.Is(err, auth.ErrConflict):
		status, code = http.StatusConflict, codeValidation
	}
	a.recordAudit(r, action, "user", userID, audit.Failure, map[string]any{
		"error": err.Error(),
		"code":  code,
	})
	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "internal error"
	}
	writeFail(w, r, status, code, message)
}
