package audit

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"paycore.org/internal/ids"
	"paycore.org/internal/obs"
)

// Result tags the outcome an entry records.
type Result string

const (
	Success Result = "success"
	Failure Result = "failure"
	Denied  Result = "denied"
)

// Entry is one immutable audit record. Entries are appended, never
// updated or deleted.
type Entry struct {
	ID         string         `json:"id"`
	Time       time.Time      `json:"ts"`
	Actor      string         `json:"actor"`
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	ResourceID string         `json:"resource_id,omitempty"`
	Details    map[string]any `json:"details,omitempty"`
	IP         string         `json:"ip,omitempty"`
	UserAgent  string         `json:"user_agent,omitempty"`
	RequestID  string         `json:"request_id,omitempty"`
	Result     Result         `json:"result"`
}

// Sink persists entries.
type Sink interface {
	Append(ctx context.Context, entry Entry) error
}

// Recorder fans an entry out to its sinks. Recording is best-effort:
// a sink failure is routed to operator diagnostics and never reaches,
// or alters the outcome of, the triggering business operation.
type Recorder struct {
	sinks []Sink
	now   func() time.Time
}

// NewRecorder builds a recorder over the given sinks.
func NewRecorder(sinks ...Sink) *Recorder {
	return &Recorder{sinks: sinks, now: time.Now}
}

// Record completes and persists the entry. It never returns an error.
func (r *Recorder) Record(ctx context.Context, entry Entry) {
	if r == nil {
		return
	}
	if entry.ID == "" {
		entry.ID = ids.New()
	}
	if entry.Time.IsZero() {
		entry.Time = r.now().UTC()
	}
	if entry.Result == "" {
		entry.Result = Success
	}
	if entry.RequestID == "" {
		entry.RequestID = RequestIDFromContext(ctx)
	}
	for _, sink := range r.sinks {
		if err := sink.Append(ctx, entry); err != nil {
			obs.CountAuditDrop()
			obs.LogError("audit entry dropped", map[string]any{
				"action":   entry.Action,
				"resource": entry.Resource,
				"error":    err.Error(),
			})
		}
	}
}

// LogSink writes entries as JSON lines through the shared logger.
type LogSink struct{}

var _ Sink = LogSink{}

func (LogSink) Append(ctx context.Context, entry Entry) error {
	payload := map[string]any{
		"type":     "audit",
		"id":       entry.ID,
		"ts":       entry.Time.Format(time.RFC3339Nano),
		"actor":    entry.Actor,
		"action":   entry.Action,
		"resource": entry.Resource,
		"result":   string(entry.Result),
	}
	if entry.ResourceID != "" {
		payload["resource_id"] = entry.ResourceID
	}
	if entry.RequestID != "" {
		payload["request_id"] = entry.RequestID
	}
	if entry.IP != "" {
		payload["ip"] = entry.IP
	}
	if entry.UserAgent != "" {
		payload["user_agent"] = entry.UserAgent
	}
	if len(entry.Details) > 0 {
		payload["details"] = entry.Details
	} else {
		payload["details"] = map[string]any{}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	obs.Logger().Println(string(data))
	return nil
}

type ctxKey string

const requestIDKey ctxKey = "audit_request_id"

// WithRequestID attaches the request identifier to the context for audit logging.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestIDFromContext extracts the audit request id from context if present.
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(requestIDKey).(string); ok {
		return v
	}
	return ""
}
