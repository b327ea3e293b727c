package payroll

// transitions is the directed graph of permitted status changes.
// processed is terminal.
var transitions = map[Status][]Status{
	StatusDraft:           {StatusPendingApproval, StatusDraft},
	StatusPendingApproval: {StatusApproved, StatusDraft},
	StatusApproved:        {StatusProcessed, StatusPendingApproval},
	StatusProcessed:       {},
}

// ValidStatus reports whether s is a known pay run status.
func ValidStatus(s Status) bool {
	_, ok := transitions[s]
	return ok
}

// CanTransition reports whether current -> requested is a permitted edge.
func CanTransition(current, requested Status) bool {
	for _, next := range transitions[current] {
		if next == requested {
			return true
		}
	}
	return false
}

// CheckTransition returns a TransitionError when the edge is not permitted.
func CheckTransition(current, requested Status) error {
	if !CanTransition(current, requested) {
		return &TransitionError{Current: current, Requested: requested}
	}
	return nil
}

// ValidItemStatus reports whether s is a known pay item status.
func ValidItemStatus(s ItemStatus) bool {
	switch s {
	case ItemDraft, ItemPending, ItemApproved, ItemPaid:
		return true
	}
	return false
}
