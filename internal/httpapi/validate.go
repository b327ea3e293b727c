package httpapi

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// FieldError pairs an offending field with a human-readable reason.
type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// ValidationErrors accumulates every problem in a payload so the caller
// can fix all of them in one round trip.
type ValidationErrors []FieldError

func (v ValidationErrors) Error() string {
	parts := make([]string, len(v))
	for i, fe := range v {
		parts[i] = fmt.Sprintf("%s: %s", fe.Field, fe.Reason)
	}
	return strings.Join(parts, "; ")
}

func (v *ValidationErrors) add(field, reason string) {
	*v = append(*v, FieldError{Field: field, Reason: reason})
}

const dateLayout = "2006-01-02"

// parseDate accepts calendar dates in YYYY-MM-DD form.
func parseDate(raw string) (time.Time, error) {
	return time.Parse(dateLayout, strings.TrimSpace(raw))
}

// checkDate validates and parses a required date field.
func (v *ValidationErrors) checkDate(field, raw string) time.Time {
	if strings.TrimSpace(raw) == "" {
		v.add(field, "is required")
		return time.Time{}
	}
	t, err := parseDate(raw)
	if err != nil {
		v.add(field, "must be a date in YYYY-MM-DD format")
		return time.Time{}
	}
	return t
}

// checkOptionalDate validates a date field when present.
func (v *ValidationErrors) checkOptionalDate(field, raw string) *time.Time {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	t, err := parseDate(raw)
	if err != nil {
		v.add(field, "must be a date in YYYY-MM-DD format")
		return nil
	}
	return &t
}

// checkUUID validates UUID shape for identifier fields.
func (v *ValidationErrors) checkUUID(field, raw string) {
	if strings.TrimSpace(raw) == "" {
		v.add(field, "is required")
		return
	}
	if _, err := uuid.Parse(raw); err != nil {
		v.add(field, "must be a valid UUID")
	}
}

// checkNonNegative rejects negative monetary components.
func (v *ValidationErrors) checkNonNegative(field string, value int64) {
	if value < 0 {
		v.add(field, "must be >= 0")
	}
}

// checkNonNegativeFloat rejects negative quantities.
func (v *ValidationErrors) checkNonNegativeFloat(field string, value float64) {
	if value < 0 {
		v.add(field, "must be >= 0")
	}
}

// checkEnum rejects values outside an enumerated set. Empty values pass;
// required-ness is checked separately.
func (v *ValidationErrors) checkEnum(field, value string, allowed ...string) {
	if value == "" {
		return
	}
	for _, a := range allowed {
		if value == a {
			return
		}
	}
	v.add(field, fmt.Sprintf("must be one of: %s", strings.Join(allowed, ", ")))
}
