package pg

import (
	"context"
	"encoding/json"

	"paycore.org/internal/audit"
)

// AuditSink appends audit entries to the audit_log table.
type AuditSink struct {
	store *Store
}

var _ audit.Sink = (*AuditSink)(nil)

// Audit returns an append-only sink backed by this store.
func (s *Store) Audit() *AuditSink {
	return &AuditSink{store: s}
}

func (a *AuditSink) Append(ctx context.Context, entry audit.Entry) error {
	details := []byte("{}")
	if len(entry.Details) > 0 {
		data, err := json.Marshal(entry.Details)
		if err != nil {
			return err
		}
		details = data
	}
	_, err := a.store.db.ExecContext(ctx, `
		insert into audit_log(id, ts, actor, action, resource, resource_id, details, ip, user_agent, request_id, result)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	`,
		entry.ID, entry.Time, entry.Actor, entry.Action, entry.Resource,
		nullable(entry.ResourceID), details, nullable(entry.IP),
		nullable(entry.UserAgent), nullable(entry.RequestID), string(entry.Result),
	)
	return err
}
