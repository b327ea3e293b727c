package payroll

import (
	"context"
	"fmt"
)

// ItemInput carries a new pay item. Derived fields submitted by the
// caller are ignored; only the raw components are trusted.
type ItemInput struct {
	PayRunID              string
	EmployeeID            string
	HoursWorked           float64
	PiecesCompleted       int64
	GrossPay              int64
	TaxDeduction          int64
	BenefitDeductions     int64
	EmployerContributions int64
	Status                ItemStatus
	Notes                 string
}

// ItemPatch is a partial pay item update. Component fields that are nil
// fall back to their pre-update values before re-derivation.
type ItemPatch struct {
	HoursWorked           *float64
	PiecesCompleted       *int64
	GrossPay              *int64
	TaxDeduction          *int64
	BenefitDeductions     *int64
	EmployerContributions *int64
	Status                *ItemStatus
	Notes                 *string
}

// CreateItem inserts a pay item under a non-processed run and
// recalculates the parent totals.
func (s *Service) CreateItem(ctx context.Context, organizationID string, in ItemInput) (*PayItem, error) {
	run, err := s.getRunScoped(ctx, organizationID, in.PayRunID)
	if err != nil {
		return nil, err
	}
	if run.Status == StatusProcessed {
		return nil, ErrProcessedPayRun
	}

	status := in.Status
	if status == "" {
		status = ItemDraft
	}
	if !ValidItemStatus(status) {
		return nil, fmt.Errorf("%w: unknown item status %q", ErrInvalidStatus, status)
	}

	now := s.now().UTC()
	item := &PayItem{
		ID:                    s.newID(),
		PayRunID:              in.PayRunID,
		EmployeeID:            in.EmployeeID,
		HoursWorked:           in.HoursWorked,
		PiecesCompleted:       in.PiecesCompleted,
		GrossPay:              in.GrossPay,
		TaxDeduction:          in.TaxDeduction,
		BenefitDeductions:     in.BenefitDeductions,
		EmployerContributions: in.EmployerContributions,
		Status:                status,
		Notes:                 in.Notes,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
	item.Derive()

	if err := s.store.CreatePayItem(ctx, item); err != nil {
		return nil, err
	}
	s.recalcTotals(ctx, in.PayRunID)
	return item, nil
}

// UpdateItem patches a pay item, re-deriving the dependent fields from
// the post-update components, and recalculates the parent totals.
// The processed-run check is re-derived from the parent at load time.
func (s *Service) UpdateItem(ctx context.Context, organizationID, id string, patch ItemPatch) (*PayItem, error) {
	item, err := s.store.GetPayItem(ctx, id)
	if err != nil {
		return nil, err
	}
	run, err := s.getRunScoped(ctx, organizationID, item.PayRunID)
	if err != nil {
		return nil, err
	}
	if run.Status == StatusProcessed {
		return nil, ErrProcessedPayRun
	}

	if patch.HoursWorked != nil {
		item.HoursWorked = *patch.HoursWorked
	}
	if patch.PiecesCompleted != nil {
		item.PiecesCompleted = *patch.PiecesCompleted
	}
	if patch.GrossPay != nil {
		item.GrossPay = *patch.GrossPay
	}
	if patch.TaxDeduction != nil {
		item.TaxDeduction = *patch.TaxDeduction
	}
	if patch.BenefitDeductions != nil {
		item.BenefitDeductions = *patch.BenefitDeductions
	}
	if patch.EmployerContributions != nil {
		item.EmployerContributions = *patch.EmployerContributions
	}
	if patch.Status != nil {
		if !ValidItemStatus(*patch.Status) {
			return nil, fmt.Errorf("%w: unknown item status %q", ErrInvalidStatus, *patch.Status)
		}
		item.Status = *patch.Status
	}
	if patch.Notes != nil {
		item.Notes = *patch.Notes
	}
	item.Derive()
	item.UpdatedAt = s.now().UTC()

	if err := s.store.UpdatePayItem(ctx, item); err != nil {
		return nil, err
	}
	s.recalcTotals(ctx, item.PayRunID)
	return item, nil
}

// DeleteItem removes a pay item under a non-processed run and
// recalculates the parent totals against the remaining siblings.
func (s *Service) DeleteItem(ctx context.Context, organizationID, id string) error {
	item, err := s.store.GetPayItem(ctx, id)
	if err != nil {
		return err
	}
	run, err := s.getRunScoped(ctx, organizationID, item.PayRunID)
	if err != nil {
		return err
	}
	if run.Status == StatusProcessed {
		return ErrProcessedPayRun
	}

	if err := s.store.DeletePayItem(ctx, id); err != nil {
		return err
	}
	s.recalcTotals(ctx, item.PayRunID)
	return nil
}
