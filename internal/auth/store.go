package auth

import "context"

// UserStore describes persistence for user administration and grants.
type UserStore interface {
	CreateUser(ctx context.Context, u *User) error
	GetUser(ctx context.Context, id string) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	UpdateUser(ctx context.Context, u *User) error
	DeleteUser(ctx context.Context, id string) error

	// Grants returns the user's explicit ALLOW/DENY overrides.
	Grants(ctx context.Context, userID string) ([]Grant, error)
	PutGrant(ctx context.Context, grant Grant) error
}
