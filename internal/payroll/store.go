package payroll

import "context"

// Store describes persistence operations required by the payroll subsystem.
type Store interface {
	CreatePayRun(ctx context.Context, run *PayRun) error
	GetPayRun(ctx context.Context, id string) (*PayRun, error)
	UpdatePayRun(ctx context.Context, run *PayRun) error
	// DeletePayRun removes the run and, transitively, its pay items.
	DeletePayRun(ctx context.Context, id string) error
	ListPayRuns(ctx context.Context, organizationID string) ([]*PayRun, error)

	// CreatePayItem returns ErrDuplicatePayItem for a second item with
	// the same (pay_run_id, employee_id) pair.
	CreatePayItem(ctx context.Context, item *PayItem) error
	GetPayItem(ctx context.Context, id string) (*PayItem, error)
	UpdatePayItem(ctx context.Context, item *PayItem) error
	DeletePayItem(ctx context.Context, id string) error
	ListPayItems(ctx context.Context, payRunID string) ([]*PayItem, error)

	// UpdateTotals writes recalculated aggregates onto the parent run.
	UpdateTotals(ctx context.Context, payRunID string, totals Totals) error

	// ResolvePayGroupMaster maps a loose pay group handle to the concrete
	// master reference within the tenant. Returns ErrMissingPayGroup when
	// no mapping exists.
	ResolvePayGroupMaster(ctx context.Context, organizationID, payGroupID string) (string, error)
}
