package auth

import (
	"errors"
	"testing"
	"time"
)

func setSecret(t *testing.T) {
	t.Helper()
	t.Setenv("PAYCORE_AUTH_SECRET", "test-secret")
	ResetSecretForTests()
	t.Cleanup(ResetSecretForTests)
}

func TestTokenRoundTrip(t *testing.T) {
	setSecret(t)

	token, err := GenerateToken("usr-1", "org-1", []string{"Admin", "admin", " viewer "}, time.Minute)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	claims, err := ParseAndValidate(token)
	if err != nil {
		t.Fatalf("ParseAndValidate: %v", err)
	}
	if claims.Subject != "usr-1" {
		t.Fatalf("unexpected subject %q", claims.Subject)
	}
	if claims.OrganizationID != "org-1" {
		t.Fatalf("unexpected organization %q", claims.OrganizationID)
	}
	if len(claims.Roles) != 2 || claims.Roles[0] != "admin" || claims.Roles[1] != "viewer" {
		t.Fatalf("roles not deduped/normalized: %v", claims.Roles)
	}
}

func TestGenerateTokenValidation(t *testing.T) {
	setSecret(t)

	if _, err := GenerateToken("", "org-1", nil, time.Minute); err == nil {
		t.Fatal("expected error for empty user")
	}
	if _, err := GenerateToken("usr-1", "", nil, time.Minute); err == nil {
		t.Fatal("expected error for empty organization")
	}
	if _, err := GenerateToken("usr-1", "org-1", nil, 0); err == nil {
		t.Fatal("expected error for zero ttl")
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	setSecret(t)

	for _, tok := range []string{"", "not-a-jwt", "a.b.c"} {
		if _, err := ParseAndValidate(tok); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("token %q: expected ErrInvalidToken, got %v", tok, err)
		}
	}
}

func TestParseRejectsWrongSecret(t *testing.T) {
	setSecret(t)
	token, err := GenerateToken("usr-1", "org-1", []string{"admin"}, time.Minute)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	t.Setenv("PAYCORE_AUTH_SECRET", "different-secret")
	ResetSecretForTests()

	if _, err := ParseAndValidate(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestMissingSecret(t *testing.T) {
	t.Setenv("PAYCORE_AUTH_SECRET", "")
	ResetSecretForTests()
	t.Cleanup(ResetSecretForTests)

	if _, err := GenerateToken("usr-1", "org-1", nil, time.Minute); err == nil {
		t.Fatal("expected error without configured secret")
	}
}
