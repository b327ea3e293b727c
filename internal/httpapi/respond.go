package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
)

// Machine-readable error categories carried in the response envelope.
const (
	codeValidation         = "VALIDATION_ERROR"
	codePermissionDenied   = "PERMISSION_DENIED"
	codeUnauthorized       = "UNAUTHORIZED"
	codeNotFound           = "NOT_FOUND"
	codeMethodNotAllowed   = "METHOD_NOT_ALLOWED"
	codeInternal           = "INTERNAL_ERROR"
	codeRateLimited        = "RATE_LIMITED"
	codeInvalidTransition  = "INVALID_STATUS_TRANSITION"
	codeProcessedProtected = "PROCESSED_PAYRUN_PROTECTION"
	codeDuplicatePayItem   = "DUPLICATE_PAY_ITEM"
	codeInvalidStatus      = "INVALID_STATUS"
	codeMissingTenant      = "MISSING_TENANT_CONTEXT"
	codeMissingPayGroup    = "MISSING_PAY_GROUP"
	codeSyncFailed         = "SYNC_FAILED"
)

func writeEnvelope(w http.ResponseWriter, code int, payload map[string]any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeSuccess emits the common envelope with an optional resource.
func writeSuccess(w http.ResponseWriter, r *http.Request, status int, message, resourceKey string, resource any) {
	payload := map[string]any{
		"success": true,
		"message": message,
	}
	if resourceKey != "" {
		payload[resourceKey] = resource
	}
	if rid := RequestIDFromContext(r.Context()); rid != "" {
		payload["request_id"] = rid
	}
	writeEnvelope(w, status, payload)
}

// writeFail emits the envelope for a rejected request with a stable code.
func writeFail(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	payload := map[string]any{
		"success": false,
		"message": message,
		"code":    code,
	}
	if rid := RequestIDFromContext(r.Context()); rid != "" {
		payload["request_id"] = rid
	}
	writeEnvelope(w, status, payload)
}

// writeValidationFail lists every offending field, not just the first.
func writeValidationFail(w http.ResponseWriter, r *http.Request, verrs ValidationErrors) {
	payload := map[string]any{
		"success": false,
		"message": "validation failed",
		"code":    codeValidation,
		"errors":  verrs,
	}
	if rid := RequestIDFromContext(r.Context()); rid != "" {
		payload["request_id"] = rid
	}
	writeEnvelope(w, http.StatusBadRequest, payload)
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request, allowed ...string) {
	w.Header().Set("Allow", joinAllowed(allowed))
	writeFail(w, r, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
}

func joinAllowed(methods []string) string {
	out := ""
	for i, m := range methods {
		if i > 0 {
			out += ", "
		}
		out += m
	}
	return out
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	reader := http.MaxBytesReader(w, r.Body, 1<<20)
	defer reader.Close()
	dec := json.NewDecoder(reader)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return errors.New("unexpected data after JSON body")
		}
		return err
	}
	return nil
}
