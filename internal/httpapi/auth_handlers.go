package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"paycore.org/internal/audit"
	"paycore.org/internal/auth"
)

type tokenRequest struct {
	// Credentialed login.
	Email    string `json:"email"`
	Password string `json:"password"`

	// Claims-asserting login for trusted automation.
	User           string   `json:"user"`
	OrganizationID string   `json:"organization_id"`
	Roles          []string `json:"roles"`
}

type tokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

const tokenTTL = 15 * time.Minute

func (a *API) handleAuthToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}

	var req tokenRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeFail(w, r, http.StatusBadRequest, codeValidation, err.Error())
		return
	}

	if strings.TrimSpace(req.Email) != "" {
		a.issueForCredentials(w, r, req.Email, req.Password)
		return
	}

	var verrs ValidationErrors
	user := strings.TrimSpace(req.User)
	if user == "" {
		verrs.add("user", "is required")
	}
	org := strings.TrimSpace(req.OrganizationID)
	if org == "" {
		verrs.add("organization_id", "is required")
	}
	roles := make([]string, 0, len(req.Roles))
	for _, role := range req.Roles {
		role = strings.TrimSpace(strings.ToLower(role))
		if role == "" {
			continue
		}
		if !auth.KnownRole(role) {
			verrs.add("roles", "unknown role: "+role)
			continue
		}
		roles = append(roles, role)
	}
	if len(roles) == 0 && len(verrs) == 0 {
		verrs.add("roles", "at least one role is required")
	}
	if len(verrs) > 0 {
		writeValidationFail(w, r, verrs)
		return
	}

	token, err := auth.GenerateToken(user, org, roles, tokenTTL)
	if err != nil {
		writeFail(w, r, http.StatusInternalServerError, codeInternal, "token generation failed")
		return
	}

	expiresAt := time.Now().UTC().Add(tokenTTL)
	a.recorder.Record(r.Context(), audit.Entry{
		Actor:    user,
		Action:   "auth.token.issued",
		Resource: "token",
		Details: map[string]any{
			"roles":      roles,
			"expires_at": expiresAt.Format(time.RFC3339),
		},
		IP:        clientIP(r),
		UserAgent: r.UserAgent(),
		Result:    audit.Success,
	})

	writeSuccess(w, r, http.StatusOK, "token issued", "auth", tokenResponse{
		Token:     token,
		ExpiresAt: expiresAt,
	})
}

// issueForCredentials authenticates email/password against the user
// store and mints a token carrying the stored role and organization.
func (a *API) issueForCredentials(w http.ResponseWriter, r *http.Request, email, password string) {
	user, err := a.users.Authenticate(r.Context(), email, password)
	if err != nil {
		if errors.Is(err, auth.ErrUnauthorized) {
			a.recorder.Record(r.Context(), audit.Entry{
				Actor:     strings.TrimSpace(strings.ToLower(email)),
				Action:    "auth.token.issue",
				Resource:  "token",
				Details:   map[string]any{"reason": "invalid_credentials"},
				IP:        clientIP(r),
				UserAgent: r.UserAgent(),
				Result:    audit.Denied,
			})
			writeFail(w, r, http.StatusUnauthorized, codeUnauthorized, "invalid credentials")
			return
		}
		writeFail(w, r, http.StatusInternalServerError, codeInternal, "internal error")
		return
	}

	token, err := auth.GenerateToken(user.ID, user.OrganizationID, []string{user.Role}, tokenTTL)
	if err != nil {
		writeFail(w, r, http.StatusInternalServerError, codeInternal, "token generation failed")
		return
	}

	expiresAt := time.Now().UTC().Add(tokenTTL)
	a.recorder.Record(r.Context(), audit.Entry{
		Actor:    user.ID,
		Action:   "auth.token.issued",
		Resource: "token",
		Details: map[string]any{
			"roles":      []string{user.Role},
			"expires_at": expiresAt.Format(time.RFC3339),
		},
		IP:        clientIP(r),
		UserAgent: r.UserAgent(),
		Result:    audit.Success,
	})

	writeSuccess(w, r, http.StatusOK, "token issued", "auth", tokenResponse{
		Token:     token,
		ExpiresAt: expiresAt,
	})
}
