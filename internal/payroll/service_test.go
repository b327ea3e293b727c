package payroll

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

func fixedClock() func() time.Time {
	at := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)
	return func() time.Time { return at }
}

func seqIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%04d", n)
	}
}

func newTestService(t *testing.T, sources ...MemberSource) (*Service, *Memory) {
	t.Helper()
	store := NewMemory()
	store.MapPayGroup("org-1", "grp-a", "master-a")
	svc := NewService(store, NewMembershipResolver(sources...),
		WithClock(fixedClock()), WithIDGenerator(seqIDs()))
	return svc, store
}

func TestCreateRunPopulatesMembers(t *testing.T) {
	primary := &StaticMembers{
		SourceName: "primary",
		Groups:     map[string][]string{"master-a": {"emp-1", "emp-2", "emp-3"}},
	}
	svc, store := newTestService(t, primary)

	res, err := svc.CreateRun(context.Background(), CreateRunInput{
		OrganizationID: "org-1",
		PayGroupID:     "grp-a",
		PeriodStart:    time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
		PeriodEnd:      time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC),
		CreatedBy:      "usr-1",
	})
	if err != nil {
		t.Fatalf("CreateRun: %v", err)
	}
	if res.Run.Status != StatusDraft {
		t.Fatalf("expected draft, got %s", res.Run.Status)
	}
	if res.Run.RunID != "HOF-20260210-120000" {
		t.Fatalf("unexpected run id %q", res.Run.RunID)
	}
	if res.Run.PayGroupMasterID != "master-a" {
		t.Fatalf("unexpected master id %q", res.Run.PayGroupMasterID)
	}
	if res.MembersPopulated != 3 || res.MemberSource != "primary" {
		t.Fatalf("unexpected population: %d from %q", res.MembersPopulated, res.MemberSource)
	}

	items, err := store.ListPayItems(context.Background(), res.Run.ID)
	if err != nil {
		t.Fatalf("ListPayItems: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("expected 3 seeded items, got %d", len(items))
	}
	for _, item := range items {
		if item.GrossPay != 0 || item.NetPay != 0 || item.Status != ItemDraft {
			t.Fatalf("seeded item not zeroed: %+v", item)
		}
	}
}

func TestCreateRunLegacyFallback(t *testing.T) {
	primary := &StaticMembers{SourceName: "primary", Groups: map[string][]string{}}
	legacy := &StaticMembers{
		SourceName: "legacy",
		Groups:     map[string][]string{"master-a": {"emp-9"}},
	}
	svc, _ := newTestService(t, primary, legacy)

	res, err := svc.CreateRun(context.Background(), CreateRunInput{
		OrganizationID: "org-1",
		PayGroupID:     "grp-a",
	})
	if err != nil {
		t.Fatalf("CreateRun: %v", err)
	}
	if res.MemberSource != "legacy" || res.MembersPopulated != 1 {
		t.Fatalf("expected legacy fallback, got %d from %q", res.MembersPopulated, res.MemberSource)
	}
}

func TestCreateRunEmptyGroupSucceeds(t *testing.T) {
	svc, _ := newTestService(t, &StaticMembers{SourceName: "primary"})

	res, err := svc.CreateRun(context.Background(), CreateRunInput{
		OrganizationID: "org-1",
		PayGroupID:     "grp-a",
	})
	if err != nil {
		t.Fatalf("CreateRun should not fail on empty membership: %v", err)
	}
	if res.MembersPopulated != 0 {
		t.Fatalf("expected zero populated, got %d", res.MembersPopulated)
	}
	if !strings.Contains(res.PopulationMessage, "no active members") {
		t.Fatalf("unexpected message %q", res.PopulationMessage)
	}
}

func TestCreateRunMembershipFailureIsNonFatal(t *testing.T) {
	svc, _ := newTestService(t, failingMembers{})

	res, err := svc.CreateRun(context.Background(), CreateRunInput{
		OrganizationID: "org-1",
		PayGroupID:     "grp-a",
	})
	if err != nil {
		t.Fatalf("CreateRun should not fail on membership error: %v", err)
	}
	if !strings.Contains(res.PopulationMessage, "membership lookup failed") {
		t.Fatalf("unexpected message %q", res.PopulationMessage)
	}
}

type failingMembers struct{}

func (failingMembers) Name() string { return "broken" }
func (failingMembers) ActiveMembers(context.Context, string, string) ([]Member, error) {
	return nil, errors.New("source down")
}

func TestCreateRunRequiresTenant(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.CreateRun(context.Background(), CreateRunInput{PayGroupID: "grp-a"})
	if !errors.Is(err, ErrMissingTenant) {
		t.Fatalf("expected ErrMissingTenant, got %v", err)
	}
}

func TestCreateRunUnknownGroup(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.CreateRun(context.Background(), CreateRunInput{
		OrganizationID: "org-1",
		PayGroupID:     "grp-missing",
	})
	if !errors.Is(err, ErrMissingPayGroup) {
		t.Fatalf("expected ErrMissingPayGroup, got %v", err)
	}
}

func TestRunIDProjectPrefix(t *testing.T) {
	svc, _ := newTestService(t)
	res, err := svc.CreateRun(context.Background(), CreateRunInput{
		OrganizationID:   "org-1",
		PayGroupMasterID: "master-a",
		Category:         "project",
	})
	if err != nil {
		t.Fatalf("CreateRun: %v", err)
	}
	if !strings.HasPrefix(res.Run.RunID, "PRJ-") {
		t.Fatalf("expected PRJ prefix, got %q", res.Run.RunID)
	}
}

func TestTotalsFollowItemLifecycle(t *testing.T) {
	svc, store := newTestService(t)
	res, err := svc.CreateRun(context.Background(), CreateRunInput{
		OrganizationID:   "org-1",
		PayGroupMasterID: "master-a",
	})
	if err != nil {
		t.Fatalf("CreateRun: %v", err)
	}
	runID := res.Run.ID

	itemA, err := svc.CreateItem(context.Background(), "org-1", ItemInput{
		PayRunID:          runID,
		EmployeeID:        "emp-1",
		GrossPay:          500000,
		TaxDeduction:      50000,
		BenefitDeductions: 20000,
	})
	if err != nil {
		t.Fatalf("CreateItem: %v", err)
	}
	if itemA.TotalDeductions != 70000 || itemA.NetPay != 430000 {
		t.Fatalf("derivation wrong: deductions=%d net=%d", itemA.TotalDeductions, itemA.NetPay)
	}

	itemB, err := svc.CreateItem(context.Background(), "org-1", ItemInput{
		PayRunID:     runID,
		EmployeeID:   "emp-2",
		GrossPay:     300000,
		TaxDeduction: 30000,
	})
	if err != nil {
		t.Fatalf("CreateItem: %v", err)
	}

	assertTotals := func(gross, deductions, net int64) {
		t.Helper()
		run, err := store.GetPayRun(context.Background(), runID)
		if err != nil {
			t.Fatalf("GetPayRun: %v", err)
		}
		if run.TotalGrossPay != gross || run.TotalDeductions != deductions || run.TotalNetPay != net {
			t.Fatalf("totals = %d/%d/%d, want %d/%d/%d",
				run.TotalGrossPay, run.TotalDeductions, run.TotalNetPay, gross, deductions, net)
		}
	}
	assertTotals(800000, 100000, 700000)

	newGross := int64(600000)
	if _, err := svc.UpdateItem(context.Background(), "org-1", itemA.ID, ItemPatch{GrossPay: &newGross}); err != nil {
		t.Fatalf("UpdateItem: %v", err)
	}
	assertTotals(900000, 100000, 800000)

	if err := svc.DeleteItem(context.Background(), "org-1", itemB.ID); err != nil {
		t.Fatalf("DeleteItem: %v", err)
	}
	assertTotals(600000, 70000, 530000)
}

func TestDuplicateEmployeeRejected(t *testing.T) {
	svc, _ := newTestService(t)
	res, _ := svc.CreateRun(context.Background(), CreateRunInput{
		OrganizationID:   "org-1",
		PayGroupMasterID: "master-a",
	})

	if _, err := svc.CreateItem(context.Background(), "org-1", ItemInput{
		PayRunID: res.Run.ID, EmployeeID: "emp-1", GrossPay: 100,
	}); err != nil {
		t.Fatalf("first item: %v", err)
	}
	_, err := svc.CreateItem(context.Background(), "org-1", ItemInput{
		PayRunID: res.Run.ID, EmployeeID: "emp-1", GrossPay: 200,
	})
	if !errors.Is(err, ErrDuplicatePayItem) {
		t.Fatalf("expected ErrDuplicatePayItem, got %v", err)
	}
}

func TestProcessedRunIsImmutable(t *testing.T) {
	svc, _ := newTestService(t)
	res, _ := svc.CreateRun(context.Background(), CreateRunInput{
		OrganizationID:   "org-1",
		PayGroupMasterID: "master-a",
	})
	runID := res.Run.ID

	item, err := svc.CreateItem(context.Background(), "org-1", ItemInput{
		PayRunID: runID, EmployeeID: "emp-1", GrossPay: 1000,
	})
	if err != nil {
		t.Fatalf("CreateItem: %v", err)
	}

	advance := func(to Status) {
		t.Helper()
		if _, _, err := svc.UpdateRun(context.Background(), "org-1", runID, "usr-1", RunPatch{Status: &to}); err != nil {
			t.Fatalf("transition to %s: %v", to, err)
		}
	}
	advance(StatusPendingApproval)
	advance(StatusApproved)
	advance(StatusProcessed)

	if _, err := svc.CreateItem(context.Background(), "org-1", ItemInput{
		PayRunID: runID, EmployeeID: "emp-2",
	}); !errors.Is(err, ErrProcessedPayRun) {
		t.Fatalf("create under processed run: got %v", err)
	}
	gross := int64(2000)
	if _, err := svc.UpdateItem(context.Background(), "org-1", item.ID, ItemPatch{GrossPay: &gross}); !errors.Is(err, ErrProcessedPayRun) {
		t.Fatalf("update under processed run: got %v", err)
	}
	if err := svc.DeleteItem(context.Background(), "org-1", item.ID); !errors.Is(err, ErrProcessedPayRun) {
		t.Fatalf("delete under processed run: got %v", err)
	}
	if err := svc.DeleteRun(context.Background(), "org-1", runID, false); !errors.Is(err, ErrProcessedPayRun) {
		t.Fatalf("soft delete of processed run: got %v", err)
	}

	draft := StatusDraft
	_, _, err = svc.UpdateRun(context.Background(), "org-1", runID, "usr-1", RunPatch{Status: &draft})
	var te *TransitionError
	if !errors.As(err, &te) {
		t.Fatalf("expected TransitionError leaving processed, got %v", err)
	}
}

func TestApprovalStampsApprover(t *testing.T) {
	svc, _ := newTestService(t)
	res, _ := svc.CreateRun(context.Background(), CreateRunInput{
		OrganizationID:   "org-1",
		PayGroupMasterID: "master-a",
	})
	runID := res.Run.ID

	pending := StatusPendingApproval
	if _, _, err := svc.UpdateRun(context.Background(), "org-1", runID, "usr-1", RunPatch{Status: &pending}); err != nil {
		t.Fatalf("to pending: %v", err)
	}
	approved := StatusApproved
	run, changed, err := svc.UpdateRun(context.Background(), "org-1", runID, "usr-approver", RunPatch{Status: &approved})
	if err != nil {
		t.Fatalf("to approved: %v", err)
	}
	if !changed {
		t.Fatal("expected status change reported")
	}
	if run.ApprovedBy != "usr-approver" || run.ApprovedAt == nil {
		t.Fatalf("approval not stamped: by=%q at=%v", run.ApprovedBy, run.ApprovedAt)
	}

	// Bouncing back and re-approving keeps the original stamp.
	firstStamp := *run.ApprovedAt
	if _, _, err := svc.UpdateRun(context.Background(), "org-1", runID, "usr-other", RunPatch{Status: &pending}); err != nil {
		t.Fatalf("back to pending: %v", err)
	}
	run, _, err = svc.UpdateRun(context.Background(), "org-1", runID, "usr-other", RunPatch{Status: &approved})
	if err != nil {
		t.Fatalf("re-approve: %v", err)
	}
	if run.ApprovedBy != "usr-approver" || !run.ApprovedAt.Equal(firstStamp) {
		t.Fatalf("original approval overwritten: by=%q", run.ApprovedBy)
	}
}

func TestSoftDeleteRequiresDraft(t *testing.T) {
	svc, _ := newTestService(t)
	res, _ := svc.CreateRun(context.Background(), CreateRunInput{
		OrganizationID:   "org-1",
		PayGroupMasterID: "master-a",
	})
	runID := res.Run.ID

	if err := svc.DeleteRun(context.Background(), "org-1", runID, false); err != nil {
		t.Fatalf("soft delete of draft: %v", err)
	}

	pending := StatusPendingApproval
	if _, _, err := svc.UpdateRun(context.Background(), "org-1", runID, "usr-1", RunPatch{Status: &pending}); err != nil {
		t.Fatalf("to pending: %v", err)
	}
	if err := svc.DeleteRun(context.Background(), "org-1", runID, false); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
}

func TestHardDeleteCascades(t *testing.T) {
	svc, store := newTestService(t)
	res, _ := svc.CreateRun(context.Background(), CreateRunInput{
		OrganizationID:   "org-1",
		PayGroupMasterID: "master-a",
	})
	runID := res.Run.ID

	item, err := svc.CreateItem(context.Background(), "org-1", ItemInput{
		PayRunID: runID, EmployeeID: "emp-1", GrossPay: 100,
	})
	if err != nil {
		t.Fatalf("CreateItem: %v", err)
	}

	if err := svc.DeleteRun(context.Background(), "org-1", runID, true); err != nil {
		t.Fatalf("hard delete: %v", err)
	}
	if _, err := store.GetPayRun(context.Background(), runID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("run should be gone, got %v", err)
	}
	if _, err := store.GetPayItem(context.Background(), item.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("item should be gone, got %v", err)
	}
}

func TestTenantScopeHidesForeignRuns(t *testing.T) {
	svc, _ := newTestService(t)
	res, err := svc.CreateRun(context.Background(), CreateRunInput{
		OrganizationID:   "org-1",
		PayGroupMasterID: "master-a",
	})
	if err != nil {
		t.Fatalf("CreateRun: %v", err)
	}
	runID := res.Run.ID

	item, err := svc.CreateItem(context.Background(), "org-1", ItemInput{
		PayRunID: runID, EmployeeID: "emp-1", GrossPay: 1000,
	})
	if err != nil {
		t.Fatalf("CreateItem: %v", err)
	}

	// Every by-id operation from another tenant reads as not found.
	if _, _, err := svc.GetRun(context.Background(), "org-2", runID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("foreign GetRun: got %v", err)
	}
	pending := StatusPendingApproval
	if _, _, err := svc.UpdateRun(context.Background(), "org-2", runID, "usr-x", RunPatch{Status: &pending}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("foreign UpdateRun: got %v", err)
	}
	if err := svc.DeleteRun(context.Background(), "org-2", runID, true); !errors.Is(err, ErrNotFound) {
		t.Fatalf("foreign DeleteRun: got %v", err)
	}
	if _, err := svc.CreateItem(context.Background(), "org-2", ItemInput{
		PayRunID: runID, EmployeeID: "emp-9",
	}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("foreign CreateItem: got %v", err)
	}
	gross := int64(5)
	if _, err := svc.UpdateItem(context.Background(), "org-2", item.ID, ItemPatch{GrossPay: &gross}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("foreign UpdateItem: got %v", err)
	}
	if err := svc.DeleteItem(context.Background(), "org-2", item.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("foreign DeleteItem: got %v", err)
	}

	// The owning tenant still sees the run untouched.
	run, items, err := svc.GetRun(context.Background(), "org-1", runID)
	if err != nil {
		t.Fatalf("owner GetRun: %v", err)
	}
	if run.Status != StatusDraft || len(items) != 1 {
		t.Fatalf("run mutated by foreign tenant: status=%s items=%d", run.Status, len(items))
	}
}

func TestUpdateTotalsTouchesTimestamp(t *testing.T) {
	store := NewMemory()
	stale := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	run := &PayRun{ID: "run-1", OrganizationID: "org-1", CreatedAt: stale, UpdatedAt: stale}
	if err := store.CreatePayRun(context.Background(), run); err != nil {
		t.Fatalf("CreatePayRun: %v", err)
	}

	if err := store.UpdateTotals(context.Background(), "run-1", Totals{GrossPay: 100}); err != nil {
		t.Fatalf("UpdateTotals: %v", err)
	}
	got, err := store.GetPayRun(context.Background(), "run-1")
	if err != nil {
		t.Fatalf("GetPayRun: %v", err)
	}
	if got.TotalGrossPay != 100 {
		t.Fatalf("totals not written: %d", got.TotalGrossPay)
	}
	if !got.UpdatedAt.After(stale) {
		t.Fatalf("updated_at not advanced: %v", got.UpdatedAt)
	}
}

func TestSumItems(t *testing.T) {
	items := []*PayItem{
		{GrossPay: 100, TotalDeductions: 30, NetPay: 70},
		{GrossPay: 200, TotalDeductions: 50, NetPay: 150},
	}
	got := SumItems(items)
	want := Totals{GrossPay: 300, Deductions: 80, NetPay: 220}
	if got != want {
		t.Fatalf("SumItems = %+v, want %+v", got, want)
	}
	if (SumItems(nil) != Totals{}) {
		t.Fatal("empty sum should be zero")
	}
}
