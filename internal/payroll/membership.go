package payroll

import "context"

// Member is one active employee in a pay group.
type Member struct {
	EmployeeID string
}

// MemberSource looks up active members of a pay group. Implementations
// are consulted in order; an empty result moves resolution to the next
// source rather than concluding the group is empty.
type MemberSource interface {
	Name() string
	ActiveMembers(ctx context.Context, organizationID, payGroupMasterID string) ([]Member, error)
}

// MembershipResolver tries an ordered list of sources. The legacy table
// fallback is policy, not an error path.
type MembershipResolver struct {
	sources []MemberSource
}

// NewMembershipResolver builds a resolver over the given sources.
func NewMembershipResolver(sources ...MemberSource) *MembershipResolver {
	return &MembershipResolver{sources: sources}
}

// Resolve returns the first non-empty member set together with the name
// of the source that produced it. A source error is recorded and the
// next source is tried; the last error is returned only when every
// source came up empty.
func (r *MembershipResolver) Resolve(ctx context.Context, organizationID, payGroupMasterID string) ([]Member, string, error) {
	var lastErr error
	for _, src := range r.sources {
		members, err := src.ActiveMembers(ctx, organizationID, payGroupMasterID)
		if err != nil {
			lastErr = err
			continue
		}
		if len(members) > 0 {
			return members, src.Name(), nil
		}
	}
	return nil, "", lastErr
}
