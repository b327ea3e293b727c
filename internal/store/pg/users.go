package pg

import (
	"context"
	"database/sql"
	"errors"

	"paycore.org/internal/auth"
)

var _ auth.UserStore = (*Store)(nil)

const userColumns = `id, organization_id, email, full_name, role, status, password_hash, created_at, updated_at`

func (s *Store) CreateUser(ctx context.Context, u *auth.User) error {
	_, err := s.db.ExecContext(ctx, `
		insert into users(`+userColumns+`)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, u.ID, u.OrganizationID, u.Email, nullable(u.FullName), u.Role, u.Status,
		u.PasswordHash, u.CreatedAt, u.UpdatedAt)
	if isUniqueViolation(err) {
		return auth.ErrConflict
	}
	return err
}

func (s *Store) GetUser(ctx context.Context, id string) (*auth.User, error) {
	var (
		u        auth.User
		fullName sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		`select `+userColumns+` from users where id=$1`, id).Scan(
		&u.ID, &u.OrganizationID, &u.Email, &fullName, &u.Role, &u.Status,
		&u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, auth.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	u.FullName = fullName.String
	return &u, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*auth.User, error) {
	var (
		u        auth.User
		fullName sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		`select `+userColumns+` from users where email=$1`, email).Scan(
		&u.ID, &u.OrganizationID, &u.Email, &fullName, &u.Role, &u.Status,
		&u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, auth.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	u.FullName = fullName.String
	return &u, nil
}

func (s *Store) UpdateUser(ctx context.Context, u *auth.User) error {
	res, err := s.db.ExecContext(ctx, `
		update users set
			email=$2, full_name=$3, role=$4, status=$5, password_hash=$6, updated_at=$7
		where id=$1
	`, u.ID, u.Email, nullable(u.FullName), u.Role, u.Status, u.PasswordHash, u.UpdatedAt)
	if isUniqueViolation(err) {
		return auth.ErrConflict
	}
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return auth.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteUser(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `delete from users where id=$1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return auth.ErrNotFound
	}
	return nil
}

func (s *Store) Grants(ctx context.Context, userID string) ([]auth.Grant, error) {
	rows, err := s.db.QueryContext(ctx,
		`select user_id, permission, effect from user_grants where user_id=$1 order by permission`,
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var grants []auth.Grant
	for rows.Next() {
		var (
			g      auth.Grant
			effect string
		)
		if err := rows.Scan(&g.UserID, &g.Permission, &effect); err != nil {
			return nil, err
		}
		g.Effect = auth.Effect(effect)
		grants = append(grants, g)
	}
	return grants, rows.Err()
}

func (s *Store) PutGrant(ctx context.Context, grant auth.Grant) error {
	_, err := s.db.ExecContext(ctx, `
		insert into user_grants(user_id, permission, effect)
		values ($1,$2,$3)
		on conflict (user_id, permission) do update set effect=excluded.effect
	`, grant.UserID, grant.Permission, string(grant.Effect))
	return err
}
