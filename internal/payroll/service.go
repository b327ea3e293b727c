package payroll

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"paycore.org/internal/obs"
)

// Service owns the pay run lifecycle and keeps run totals consistent
// with the live set of pay items.
type Service struct {
	store   Store
	members *MembershipResolver
	now     func() time.Time
	newID   func() string
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service)

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) ServiceOption {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// WithIDGenerator overrides entity id generation.
func WithIDGenerator(fn func() string) ServiceOption {
	return func(s *Service) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// NewService constructs the lifecycle service.
func NewService(store Store, members *MembershipResolver, opts ...ServiceOption) *Service {
	s := &Service{
		store:   store,
		members: members,
		now:     time.Now,
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateRunInput carries everything needed to open a pay run.
type CreateRunInput struct {
	OrganizationID   string
	CreatedBy        string
	PeriodStart      time.Time
	PeriodEnd        time.Time
	RunDate          *time.Time
	PayGroupID       string
	PayGroupMasterID string
	Category         string
	SubType          string
	PayFrequency     string
	PayrollType      string
	Status           Status
	ExchangeRate     float64
	DaysWorked       float64
}

// CreateRunResult reports the created run plus the population outcome.
// Population problems are communicated here, never as a create failure.
type CreateRunResult struct {
	Run               *PayRun
	MembersPopulated  int
	MemberSource      string
	PopulationMessage string
}

// CreateRun opens a pay run and seeds one zeroed pay item per active
// member of the resolved pay group.
func (s *Service) CreateRun(ctx context.Context, in CreateRunInput) (CreateRunResult, error) {
	if in.OrganizationID == "" {
		return CreateRunResult{}, ErrMissingTenant
	}
	masterID := in.PayGroupMasterID
	if masterID == "" {
		if in.PayGroupID == "" {
			return CreateRunResult{}, ErrMissingPayGroup
		}
		resolved, err := s.store.ResolvePayGroupMaster(ctx, in.OrganizationID, in.PayGroupID)
		if err != nil {
			return CreateRunResult{}, err
		}
		masterID = resolved
	}

	status := in.Status
	if status == "" {
		status = StatusDraft
	}
	if !ValidStatus(status) {
		return CreateRunResult{}, fmt.Errorf("%w: unknown status %q", ErrInvalidStatus, status)
	}

	now := s.now().UTC()
	runDate := now
	if in.RunDate != nil {
		runDate = in.RunDate.UTC()
	}

	run := &PayRun{
		ID:               s.newID(),
		RunID:            FormatRunID(now, in.Category),
		OrganizationID:   in.OrganizationID,
		PayGroupID:       in.PayGroupID,
		PayGroupMasterID: masterID,
		RunDate:          runDate,
		PeriodStart:      in.PeriodStart,
		PeriodEnd:        in.PeriodEnd,
		Status:           status,
		Category:         in.Category,
		SubType:          in.SubType,
		PayFrequency:     in.PayFrequency,
		PayrollType:      in.PayrollType,
		ExchangeRate:     in.ExchangeRate,
		DaysWorked:       in.DaysWorked,
		CreatedBy:        in.CreatedBy,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.store.CreatePayRun(ctx, run); err != nil {
		return CreateRunResult{}, err
	}

	result := CreateRunResult{Run: run}
	s.populateItems(ctx, run, &result)
	return result, nil
}

// populateItems seeds zeroed pay items from group membership. Failures
// here never fail run creation; they are reported in the result message.
func (s *Service) populateItems(ctx context.Context, run *PayRun, result *CreateRunResult) {
	members, source, err := s.members.Resolve(ctx, run.OrganizationID, run.PayGroupMasterID)
	if err != nil {
		result.PopulationMessage = fmt.Sprintf("pay run created; membership lookup failed: %v", err)
		obs.LogError("pay run population: membership lookup failed", map[string]any{
			"pay_run_id": run.ID,
			"pay_group":  run.PayGroupMasterID,
			"error":      err.Error(),
		})
		return
	}
	if len(members) == 0 {
		result.PopulationMessage = "pay run created; pay group has no active members"
		return
	}

	now := s.now().UTC()
	created := 0
	var firstErr error
	for _, m := range members {
		item := &PayItem{
			ID:         s.newID(),
			PayRunID:   run.ID,
			EmployeeID: m.EmployeeID,
			Status:     ItemDraft,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		item.Derive()
		if err := s.store.CreatePayItem(ctx, item); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		created++
	}

	result.MembersPopulated = created
	result.MemberSource = source
	if firstErr != nil {
		result.PopulationMessage = fmt.Sprintf("pay run created; populated %d of %d pay items (first error: %v)", created, len(members), firstErr)
		obs.LogError("pay run population: partial failure", map[string]any{
			"pay_run_id": run.ID,
			"created":    created,
			"expected":   len(members),
			"error":      firstErr.Error(),
		})
		return
	}
	result.PopulationMessage = fmt.Sprintf("pay run created; populated %d pay items from %s", created, source)
}

// getRunScoped loads a run and enforces the tenant boundary. A run
// belonging to another organization is reported as missing, so callers
// cannot probe foreign ids.
func (s *Service) getRunScoped(ctx context.Context, organizationID, id string) (*PayRun, error) {
	run, err := s.store.GetPayRun(ctx, id)
	if err != nil {
		return nil, err
	}
	if run.OrganizationID != organizationID {
		return nil, ErrNotFound
	}
	return run, nil
}

// RunPatch is a partial pay run update. Nil fields are left unchanged.
type RunPatch struct {
	Status       *Status
	RunDate      *time.Time
	PeriodStart  *time.Time
	PeriodEnd    *time.Time
	SubType      *string
	PayFrequency *string
	PayrollType  *string
	ExchangeRate *float64
	DaysWorked   *float64
	ApprovedBy   *string
}

// UpdateRun applies a patch, validating status transitions against the
// lifecycle graph. The returned bool reports whether the status changed,
// so callers can label the audit entry accordingly.
func (s *Service) UpdateRun(ctx context.Context, organizationID, id, actor string, patch RunPatch) (*PayRun, bool, error) {
	run, err := s.getRunScoped(ctx, organizationID, id)
	if err != nil {
		return nil, false, err
	}

	now := s.now().UTC()
	statusChanged := false
	if patch.Status != nil && *patch.Status != run.Status {
		if !ValidStatus(*patch.Status) {
			return nil, false, fmt.Errorf("%w: unknown status %q", ErrInvalidStatus, *patch.Status)
		}
		if err := CheckTransition(run.Status, *patch.Status); err != nil {
			return nil, false, err
		}
		run.Status = *patch.Status
		statusChanged = true

		// First entry into approved stamps the approver.
		if run.Status == StatusApproved && run.ApprovedAt == nil {
			approvedBy := actor
			if patch.ApprovedBy != nil {
				approvedBy = *patch.ApprovedBy
			}
			run.ApprovedBy = approvedBy
			stamp := now
			run.ApprovedAt = &stamp
		}
	}

	if patch.RunDate != nil {
		run.RunDate = patch.RunDate.UTC()
	}
	if patch.PeriodStart != nil {
		run.PeriodStart = *patch.PeriodStart
	}
	if patch.PeriodEnd != nil {
		run.PeriodEnd = *patch.PeriodEnd
	}
	if patch.SubType != nil {
		run.SubType = *patch.SubType
	}
	if patch.PayFrequency != nil {
		run.PayFrequency = *patch.PayFrequency
	}
	if patch.PayrollType != nil {
		run.PayrollType = *patch.PayrollType
	}
	if patch.ExchangeRate != nil {
		run.ExchangeRate = *patch.ExchangeRate
	}
	if patch.DaysWorked != nil {
		run.DaysWorked = *patch.DaysWorked
	}
	run.UpdatedAt = now

	if err := s.store.UpdatePayRun(ctx, run); err != nil {
		return nil, false, err
	}
	return run, statusChanged, nil
}

// DeleteRun removes or retires a pay run.
//
// Hard delete removes the row and its items; the caller is responsible
// for the privilege check. Soft delete is only meaningful from draft:
// a processed run yields ErrProcessedPayRun (a policy denial), any
// other non-draft status yields ErrInvalidStatus.
func (s *Service) DeleteRun(ctx context.Context, organizationID, id string, hard bool) error {
	run, err := s.getRunScoped(ctx, organizationID, id)
	if err != nil {
		return err
	}
	if hard {
		return s.store.DeletePayRun(ctx, id)
	}
	switch run.Status {
	case StatusProcessed:
		return ErrProcessedPayRun
	case StatusDraft:
		run.Status = StatusDraft
		run.UpdatedAt = s.now().UTC()
		return s.store.UpdatePayRun(ctx, run)
	default:
		return fmt.Errorf("%w: soft delete requires draft, current %s", ErrInvalidStatus, run.Status)
	}
}

// GetRun loads a run together with its items.
func (s *Service) GetRun(ctx context.Context, organizationID, id string) (*PayRun, []*PayItem, error) {
	run, err := s.getRunScoped(ctx, organizationID, id)
	if err != nil {
		return nil, nil, err
	}
	items, err := s.store.ListPayItems(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return run, items, nil
}

// ListRuns returns the tenant's runs.
func (s *Service) ListRuns(ctx context.Context, organizationID string) ([]*PayRun, error) {
	return s.store.ListPayRuns(ctx, organizationID)
}
