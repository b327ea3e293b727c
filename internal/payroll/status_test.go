package payroll

import (
	"errors"
	"testing"
)

func TestStatusTransitionGraph(t *testing.T) {
	all := []Status{StatusDraft, StatusPendingApproval, StatusApproved, StatusProcessed}

	allowed := map[Status]map[Status]bool{
		StatusDraft:           {StatusPendingApproval: true, StatusDraft: true},
		StatusPendingApproval: {StatusApproved: true, StatusDraft: true},
		StatusApproved:        {StatusProcessed: true, StatusPendingApproval: true},
		StatusProcessed:       {},
	}

	for _, from := range all {
		for _, to := range all {
			got := CanTransition(from, to)
			want := allowed[from][to]
			if got != want {
				t.Errorf("CanTransition(%s, %s) = %v, want %v", from, to, got, want)
			}
		}
	}
}

func TestCheckTransitionError(t *testing.T) {
	err := CheckTransition(StatusProcessed, StatusDraft)
	if err == nil {
		t.Fatal("expected error for processed -> draft")
	}
	var te *TransitionError
	if !errors.As(err, &te) {
		t.Fatalf("expected TransitionError, got %T", err)
	}
	if te.Current != StatusProcessed || te.Requested != StatusDraft {
		t.Fatalf("unexpected edge in error: %s -> %s", te.Current, te.Requested)
	}
}

func TestValidStatus(t *testing.T) {
	if !ValidStatus(StatusDraft) {
		t.Fatal("draft should be valid")
	}
	if ValidStatus(Status("archived")) {
		t.Fatal("unknown status should be invalid")
	}
	if ValidItemStatus(ItemStatus("void")) {
		t.Fatal("unknown item status should be invalid")
	}
}
