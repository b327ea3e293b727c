package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Users provides user administration on top of a UserStore.
type Users struct {
	store UserStore
	now   func() time.Time
}

// NewUsers constructs the user administration service.
func NewUsers(store UserStore) *Users {
	return &Users{store: store, now: time.Now}
}

// UserPatch is a partial user update. A non-nil Role requires the
// caller to hold the admin tier; that check happens at the entry point.
type UserPatch struct {
	Email    *string
	FullName *string
	Role     *string
	Password *string
}

// getScoped loads a user and enforces the tenant boundary. Users of
// another organization read as missing.
func (u *Users) getScoped(ctx context.Context, organizationID, id string) (*User, error) {
	user, err := u.store.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if user.OrganizationID != organizationID {
		return nil, ErrNotFound
	}
	return user, nil
}

// Update applies profile and role changes.
func (u *Users) Update(ctx context.Context, organizationID, id string, patch UserPatch) (*User, error) {
	user, err := u.getScoped(ctx, organizationID, id)
	if err != nil {
		return nil, err
	}
	if patch.Email != nil {
		email := strings.TrimSpace(strings.ToLower(*patch.Email))
		if email == "" || !strings.Contains(email, "@") {
			return nil, fmt.Errorf("%w: valid email is required", ErrInvalidInput)
		}
		user.Email = email
	}
	if patch.FullName != nil {
		user.FullName = strings.TrimSpace(*patch.FullName)
	}
	if patch.Role != nil {
		role := strings.TrimSpace(strings.ToLower(*patch.Role))
		if !KnownRole(role) {
			return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidInput, role)
		}
		user.Role = role
	}
	if patch.Password != nil {
		hash, err := HashPassword(*patch.Password)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		user.PasswordHash = hash
	}
	user.UpdatedAt = u.now().UTC()
	if err := u.store.UpdateUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Ban retires a user without removing the row (soft delete).
func (u *Users) Ban(ctx context.Context, organizationID, id string) (*User, error) {
	user, err := u.getScoped(ctx, organizationID, id)
	if err != nil {
		return nil, err
	}
	user.Status = UserStatusBanned
	user.UpdatedAt = u.now().UTC()
	if err := u.store.UpdateUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// HardDelete removes the user row. Admin tier only; checked at the
// entry point.
func (u *Users) HardDelete(ctx context.Context, organizationID, id string) error {
	if _, err := u.getScoped(ctx, organizationID, id); err != nil {
		return err
	}
	return u.store.DeleteUser(ctx, id)
}

// Access returns the user's effective capability map after layering
// explicit grants over role defaults.
func (u *Users) Access(ctx context.Context, organizationID, id string) (map[string]bool, error) {
	user, err := u.getScoped(ctx, organizationID, id)
	if err != nil {
		return nil, err
	}
	grants, err := u.store.Grants(ctx, id)
	if err != nil {
		return nil, err
	}
	return EffectiveAccess([]string{user.Role}, grants), nil
}

// GrantsFor exposes the raw grant list for principal resolution.
func (u *Users) GrantsFor(ctx context.Context, id string) ([]Grant, error) {
	return u.store.Grants(ctx, id)
}

// Authenticate checks a credential pair and returns the matching active
// user. Unknown emails, wrong passwords, and banned accounts all
// collapse into ErrUnauthorized.
func (u *Users) Authenticate(ctx context.Context, email, password string) (*User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	user, err := u.store.GetUserByEmail(ctx, email)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrUnauthorized
	}
	if err != nil {
		return nil, err
	}
	if user.Status != UserStatusActive {
		return nil, ErrUnauthorized
	}
	if err := VerifyPassword(user.PasswordHash, password); err != nil {
		return nil, ErrUnauthorized
	}
	return user, nil
}
