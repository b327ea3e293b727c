package auth

import (
	"context"
	"errors"
	"testing"
	"time"
)

func seedUser(t *testing.T) (*Users, *MemoryUsers) {
	t.Helper()
	store := NewMemoryUsers()
	err := store.CreateUser(context.Background(), &User{
		ID:             "usr-1",
		OrganizationID: "org-1",
		Email:          "one@example.com",
		FullName:       "User One",
		Role:           RoleViewer,
		Status:         UserStatusActive,
		CreatedAt:      time.Now().UTC(),
		UpdatedAt:      time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return NewUsers(store), store
}

func TestUsersUpdateProfile(t *testing.T) {
	users, _ := seedUser(t)

	email := " NEW@Example.com "
	name := "  New Name "
	updated, err := users.Update(context.Background(), "org-1", "usr-1", UserPatch{
		Email:    &email,
		FullName: &name,
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Email != "new@example.com" {
		t.Fatalf("email not normalized: %q", updated.Email)
	}
	if updated.FullName != "New Name" {
		t.Fatalf("name not trimmed: %q", updated.FullName)
	}
}

func TestUsersUpdateRejectsBadInput(t *testing.T) {
	users, _ := seedUser(t)

	bad := "not-an-email"
	if _, err := users.Update(context.Background(), "org-1", "usr-1", UserPatch{Email: &bad}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for email, got %v", err)
	}
	role := "superuser"
	if _, err := users.Update(context.Background(), "org-1", "usr-1", UserPatch{Role: &role}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for role, got %v", err)
	}
	if _, err := users.Update(context.Background(), "org-1", "usr-missing", UserPatch{}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUsersRoleChange(t *testing.T) {
	users, _ := seedUser(t)

	role := "Payroll_Manager"
	updated, err := users.Update(context.Background(), "org-1", "usr-1", UserPatch{Role: &role})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Role != RolePayrollManager {
		t.Fatalf("role not normalized: %q", updated.Role)
	}
}

func TestUsersBanKeepsRow(t *testing.T) {
	users, store := seedUser(t)

	banned, err := users.Ban(context.Background(), "org-1", "usr-1")
	if err != nil {
		t.Fatalf("Ban: %v", err)
	}
	if banned.Status != UserStatusBanned {
		t.Fatalf("unexpected status %q", banned.Status)
	}
	if _, err := store.GetUser(context.Background(), "usr-1"); err != nil {
		t.Fatalf("banned user row should remain: %v", err)
	}
}

func TestUsersHardDelete(t *testing.T) {
	users, store := seedUser(t)

	if err := users.HardDelete(context.Background(), "org-1", "usr-1"); err != nil {
		t.Fatalf("HardDelete: %v", err)
	}
	if _, err := store.GetUser(context.Background(), "usr-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after hard delete, got %v", err)
	}
}

func TestUsersAccessLayersGrants(t *testing.T) {
	users, store := seedUser(t)

	if err := store.PutGrant(context.Background(), Grant{
		UserID: "usr-1", Permission: PermPreparePayroll, Effect: Allow,
	}); err != nil {
		t.Fatalf("PutGrant: %v", err)
	}
	if err := store.PutGrant(context.Background(), Grant{
		UserID: "usr-1", Permission: PermViewPayroll, Effect: Deny,
	}); err != nil {
		t.Fatalf("PutGrant: %v", err)
	}

	access, err := users.Access(context.Background(), "org-1", "usr-1")
	if err != nil {
		t.Fatalf("Access: %v", err)
	}
	if !access[PermPreparePayroll] {
		t.Fatal("explicit ALLOW should extend viewer defaults")
	}
	if access[PermViewPayroll] {
		t.Fatal("explicit DENY should revoke viewer default")
	}
}

func TestUsersTenantScope(t *testing.T) {
	users, store := seedUser(t)

	// Administration from another organization reads as not found.
	name := "Intruder"
	if _, err := users.Update(context.Background(), "org-2", "usr-1", UserPatch{FullName: &name}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("foreign Update: got %v", err)
	}
	if _, err := users.Ban(context.Background(), "org-2", "usr-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("foreign Ban: got %v", err)
	}
	if err := users.HardDelete(context.Background(), "org-2", "usr-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("foreign HardDelete: got %v", err)
	}
	if _, err := users.Access(context.Background(), "org-2", "usr-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("foreign Access: got %v", err)
	}

	u, err := store.GetUser(context.Background(), "usr-1")
	if err != nil {
		t.Fatalf("user should be untouched: %v", err)
	}
	if u.Status != UserStatusActive || u.FullName != "User One" {
		t.Fatalf("user mutated across tenants: %+v", u)
	}
}

func TestUsersAuthenticate(t *testing.T) {
	users, _ := seedUser(t)
	pwd := "s3cret-password"
	if _, err := users.Update(context.Background(), "org-1", "usr-1", UserPatch{Password: &pwd}); err != nil {
		t.Fatalf("set password: %v", err)
	}

	got, err := users.Authenticate(context.Background(), " ONE@example.com ", pwd)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if got.ID != "usr-1" || got.OrganizationID != "org-1" {
		t.Fatalf("wrong user returned: %+v", got)
	}

	if _, err := users.Authenticate(context.Background(), "one@example.com", "wrong"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("wrong password: got %v", err)
	}
	if _, err := users.Authenticate(context.Background(), "nobody@example.com", pwd); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("unknown email: got %v", err)
	}

	if _, err := users.Ban(context.Background(), "org-1", "usr-1"); err != nil {
		t.Fatalf("Ban: %v", err)
	}
	if _, err := users.Authenticate(context.Background(), "one@example.com", pwd); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("banned user: got %v", err)
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("s3cret-password")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if hash == "s3cret-password" {
		t.Fatal("hash must not equal the plaintext")
	}
	if err := VerifyPassword(hash, "s3cret-password"); err != nil {
		t.Fatalf("correct password should verify: %v", err)
	}
	if err := VerifyPassword(hash, "wrong"); err == nil {
		t.Fatal("wrong password should not verify")
	}
}
