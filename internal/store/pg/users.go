package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"clinicdesk.org/internal/auth"
	"clinicdesk.org/internal/identity"
)

const userColumns = `id, username, email, password_hash, role, first_name, last_name, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (*identity.User, error) {
	var (
		u    identity.User
		role string
	)
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &role, &u.FirstName, &u.LastName, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	u.Role = auth.Role(role)
	return &u, nil
}

func userError(err error) error {
	switch pgCode(err) {
	case pgErrUniqueViolation:
		return fmt.Errorf("%w: username or email already registered", identity.ErrConflict)
	case pgErrForeignKeyViolation:
		return fmt.Errorf("%w: user is referenced by clinic records", identity.ErrConflict)
	}
	return err
}

func (s *Store) CreateUser(ctx context.Context, u *identity.User) error {
	err := s.db.QueryRowContext(ctx, `
		insert into users (username, email, password_hash, role, first_name, last_name, created_at, updated_at)
		values ($1, $2, $3, $4, $5, $6, $7, $8)
		returning id
	`, u.Username, u.Email, u.PasswordHash, string(u.Role), u.FirstName, u.LastName, u.CreatedAt, u.UpdatedAt).Scan(&u.ID)
	if err != nil {
		return userError(err)
	}
	return nil
}

func (s *Store) GetUser(ctx context.Context, id int64) (*identity.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, `select `+userColumns+` from users where id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, identity.ErrNotFound
	}
	return u, err
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*identity.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, `select `+userColumns+` from users where lower(username) = lower($1)`, username))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, identity.ErrNotFound
	}
	return u, err
}

func (s *Store) ListUsers(ctx context.Context) ([]identity.User, error) {
	rows, err := s.db.QueryContext(ctx, `select `+userColumns+` from users order by id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []identity.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *u)
	}
	return out, rows.Err()
}

func (s *Store) UpdateUser(ctx context.Context, u *identity.User) error {
	res, err := s.db.ExecContext(ctx, `
		update users
		set username = $1, email = $2, password_hash = $3, role = $4, first_name = $5, last_name = $6, updated_at = $7
		where id = $8
	`, u.Username, u.Email, u.PasswordHash, string(u.Role), u.FirstName, u.LastName, u.UpdatedAt, u.ID)
	if err != nil {
		return userError(err)
	}
	return affected(res, identity.ErrNotFound)
}

func (s *Store) DeleteUser(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `delete from users where id = $1`, id)
	if err != nil {
		return userError(err)
	}
	return affected(res, identity.ErrNotFound)
}

// UserExists implements clinic.UserChecker.
func (s *Store) UserExists(ctx context.Context, id int64) (bool, error) {
	var ok bool
	err := s.db.QueryRowContext(ctx, `select exists(select 1 from users where id = $1)`, id).Scan(&ok)
	return ok, err
}
