package payroll

import (
	"errors"
	"fmt"
	"time"
)

// Monetary amounts are represented in minor units (e.g., cents). No floats.

// Status is the pay run lifecycle state.
type Status string

const (
	StatusDraft           Status = "draft"
	StatusPendingApproval Status = "pending_approval"
	StatusApproved        Status = "approved"
	StatusProcessed       Status = "processed"
)

// ItemStatus is the per-employee pay line state.
type ItemStatus string

const (
	ItemDraft    ItemStatus = "draft"
	ItemPending  ItemStatus = "pending"
	ItemApproved ItemStatus = "approved"
	ItemPaid     ItemStatus = "paid"
)

// PayRun is one payroll processing cycle for a pay group over a period.
// Aggregate totals are derived from the live PayItems, never authored.
type PayRun struct {
	ID               string     `json:"id"`
	RunID            string     `json:"pay_run_id"`
	OrganizationID   string     `json:"organization_id"`
	PayGroupID       string     `json:"pay_group_id,omitempty"`
	PayGroupMasterID string     `json:"pay_group_master_id"`
	RunDate          time.Time  `json:"pay_run_date"`
	PeriodStart      time.Time  `json:"pay_period_start"`
	PeriodEnd        time.Time  `json:"pay_period_end"`
	Status           Status     `json:"status"`
	Category         string     `json:"category,omitempty"`
	SubType          string     `json:"sub_type,omitempty"`
	PayFrequency     string     `json:"pay_frequency,omitempty"`
	PayrollType      string     `json:"payroll_type,omitempty"`
	ExchangeRate     float64    `json:"exchange_rate,omitempty"`
	DaysWorked       float64    `json:"days_worked,omitempty"`
	TotalGrossPay    int64      `json:"total_gross_pay"`
	TotalDeductions  int64      `json:"total_deductions"`
	TotalNetPay      int64      `json:"total_net_pay"`
	ApprovedBy       string     `json:"approved_by,omitempty"`
	ApprovedAt       *time.Time `json:"approved_at,omitempty"`
	CreatedBy        string     `json:"created_by,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// PayItem is one employee's computed pay line within a pay run.
// TotalDeductions and NetPay are recomputed server-side on every write.
type PayItem struct {
	ID                    string     `json:"id"`
	PayRunID              string     `json:"pay_run_id"`
	EmployeeID            string     `json:"employee_id"`
	HoursWorked           float64    `json:"hours_worked,omitempty"`
	PiecesCompleted       int64      `json:"pieces_completed,omitempty"`
	GrossPay              int64      `json:"gross_pay"`
	TaxDeduction          int64      `json:"tax_deduction"`
	BenefitDeductions     int64      `json:"benefit_deductions"`
	EmployerContributions int64      `json:"employer_contributions"`
	TotalDeductions       int64      `json:"total_deductions"`
	NetPay                int64      `json:"net_pay"`
	Status                ItemStatus `json:"status"`
	Notes                 string     `json:"notes,omitempty"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
}

// Derive recomputes the dependent fields from the raw components.
func (p *PayItem) Derive() {
	p.TotalDeductions = p.TaxDeduction + p.BenefitDeductions
	p.NetPay = p.GrossPay - p.TotalDeductions
}

// Totals is an aggregate over a pay run's live items.
type Totals struct {
	GrossPay   int64 `json:"total_gross_pay"`
	Deductions int64 `json:"total_deductions"`
	NetPay     int64 `json:"total_net_pay"`
}

var (
	ErrNotFound         = errors.New("not found")
	ErrDuplicatePayItem = errors.New("pay item already exists for employee in this pay run")
	ErrProcessedPayRun  = errors.New("pay run is processed and immutable")
	ErrInvalidStatus    = errors.New("operation not valid for current pay run status")
	ErrMissingTenant    = errors.New("tenant context could not be resolved")
	ErrMissingPayGroup  = errors.New("pay group reference could not be resolved")
)

// TransitionError reports a rejected status transition with both ends
// of the attempted edge for diagnostics.
type TransitionError struct {
	Current   Status
	Requested Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid status transition %s -> %s", e.Current, e.Requested)
}
