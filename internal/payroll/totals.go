package payroll

import (
	"context"

	"paycore.org/internal/obs"
)

// SumItems aggregates gross, deductions and net across items.
func SumItems(items []*PayItem) Totals {
	var t Totals
	for _, item := range items {
		t.GrossPay += item.GrossPay
		t.Deductions += item.TotalDeductions
		t.NetPay += item.NetPay
	}
	return t
}

// recalcTotals resummarizes the run's items and writes the aggregates
// back onto the parent. A failure here never fails the triggering item
// mutation; the inconsistency is surfaced via operator diagnostics.
func (s *Service) recalcTotals(ctx context.Context, payRunID string) {
	items, err := s.store.ListPayItems(ctx, payRunID)
	if err != nil {
		s.reportRecalcFailure(payRunID, err)
		return
	}
	if err := s.store.UpdateTotals(ctx, payRunID, SumItems(items)); err != nil {
		s.reportRecalcFailure(payRunID, err)
	}
}

func (s *Service) reportRecalcFailure(payRunID string, err error) {
	obs.CountTotalsRecalcFailure()
	obs.LogError("pay run totals recalculation failed", map[string]any{
		"pay_run_id": payRunID,
		"error":      err.Error(),
	})
}
