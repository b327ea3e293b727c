package pg

import (
	"context"

	"paycore.org/internal/hrsync"
)

var _ hrsync.EmployeeSink = (*Store)(nil)

// UpsertEmployees merges synced HR records into the employees table.
// Returns the number of records written.
func (s *Store) UpsertEmployees(ctx context.Context, organizationID string, employees []hrsync.Employee) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	count := 0
	for _, e := range employees {
		if e.ID == "" {
			continue
		}
		_, err := tx.ExecContext(ctx, `
			insert into employees(id, organization_id, email, first_name, last_name, department, status, synced_at)
			values ($1,$2,$3,$4,$5,$6,$7,now())
			on conflict (id) do update set
				email=excluded.email,
				first_name=excluded.first_name,
				last_name=excluded.last_name,
				department=excluded.department,
				status=excluded.status,
				synced_at=now()
		`, e.ID, organizationID, e.Email, e.FirstName, e.LastName, nullable(e.Department), e.Status)
		if err != nil {
			return 0, err
		}
		count++
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return count, nil
}
