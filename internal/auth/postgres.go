package auth

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

const pgErrUniqueViolation = "23505"

var _ Store = (*PGStore)(nil)

// PGStore implements Store using PostgreSQL through database/sql with the
// pgx stdlib driver.
type PGStore struct {
	db *sql.DB
}

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) Users(ctx context.Context) UserStore             { return pgUsers{db: s.db} }
func (s *PGStore) Sessions(ctx context.Context) SessionStore       { return pgSessions{db: s.db} }
func (s *PGStore) Roles(ctx context.Context) RoleStore             { return pgRoles{db: s.db} }
func (s *PGStore) Permissions(ctx context.Context) PermissionStore { return pgPermissions{db: s.db} }

type pgUsers struct {
	db *sql.DB
}

func (u pgUsers) Create(ctx context.Context, nu NewUser) (*User, error) {
	tx, err := u.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var user User
	row := tx.QueryRowContext(ctx, `
		insert into users (id, email, first_name, last_name, password_hash)
		values ($1, $2, $3, $4, $5)
		returning id, email, first_name, last_name, created_at, updated_at
	`, nu.ID, nu.Email, nu.FirstName, nu.LastName, nu.PasswordHash)
	if err := row.Scan(&user.ID, &user.Email, &user.FirstName, &user.LastName, &user.CreatedAt, &user.UpdatedAt); err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
			return nil, ErrAlreadyExists
		}
		return nil, err
	}

	for _, roleName := range nu.Roles {
		if _, err := tx.ExecContext(ctx, `
			insert into user_roles (user_id, role_id)
			select $1, id from roles where name = $2
			on conflict do nothing
		`, user.ID, roleName); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &user, nil
}

func (u pgUsers) Find(ctx context.Context, id string) (*User, error) {
	return u.scanOne(u.db.QueryRowContext(ctx, `
		select id, email, first_name, last_name, created_at, updated_at
		from users where id = $1
	`, id))
}

func (u pgUsers) FindByEmail(ctx context.Context, email string) (*User, error) {
	return u.scanOne(u.db.QueryRowContext(ctx, `
		select id, email, first_name, last_name, created_at, updated_at
		from users where email = $1
	`, email))
}

func (u pgUsers) PasswordHash(ctx context.Context, userID string) (string, error) {
	var hash sql.NullString
	err := u.db.QueryRowContext(ctx, `
		select password_hash from users where id = $1
	`, userID).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	if !hash.Valid || hash.String == "" {
		return "", ErrNotFound
	}
	return hash.String, nil
}

func (u pgUsers) scanOne(row *sql.Row) (*User, error) {
	var user User
	err := row.Scan(&user.ID, &user.Email, &user.FirstName, &user.LastName, &user.CreatedAt, &user.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

type pgSessions struct {
	db *sql.DB
}

func (s pgSessions) Create(ctx context.Context, session Session) error {
	_, err := s.db.ExecContext(ctx, `
		insert into sessions (id, user_id, expires_at)
		values ($1, $2, $3)
	`, session.ID, session.UserID, session.ExpiresAt)
	return err
}

func (s pgSessions) Find(ctx context.Context, id string) (Session, error) {
	var session Session
	err := s.db.QueryRowContext(ctx, `
		select id, user_id, expires_at from sessions where id = $1
	`, id).Scan(&session.ID, &session.UserID, &session.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, ErrNotFound
	}
	if err != nil {
		return Session{}, err
	}
	return session, nil
}

func (s pgSessions) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `delete from sessions where id = $1`, id)
	return err
}

func (s pgSessions) UpdateExpiry(ctx context.Context, id string, expiresAt time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		update sessions set expires_at = $2 where id = $1
	`, id, expiresAt)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

type pgRoles struct {
	db *sql.DB
}

func (r pgRoles) Find(ctx context.Context, id string) (Role, error) {
	return r.scanOne(r.db.QueryRowContext(ctx, `
		select id, name, description, created_at, updated_at
		from roles where id = $1
	`, id))
}

func (r pgRoles) FindByName(ctx context.Context, name string) (Role, error) {
	return r.scanOne(r.db.QueryRowContext(ctx, `
		select id, name, description, created_at, updated_at
		from roles where name = $1
	`, name))
}

func (r pgRoles) RolesForUser(ctx context.Context, userID string) ([]Role, error) {
	rows, err := r.db.QueryContext(ctx, `
		select r.id, r.name, r.description, r.created_at, r.updated_at
		from roles r
		join user_roles ur on ur.role_id = r.id
		where ur.user_id = $1
		order by r.name
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Role
	for rows.Next() {
		var role Role
		if err := rows.Scan(&role.ID, &role.Name, &role.Description, &role.CreatedAt, &role.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, role)
	}
	return result, rows.Err()
}

func (r pgRoles) Assign(ctx context.Context, assignment RoleAssignment) error {
	_, err := r.db.ExecContext(ctx, `
		insert into user_roles (user_id, role_id)
		values ($1, $2)
		on conflict do nothing
	`, assignment.UserID, assignment.RoleID)
	return err
}

func (r pgRoles) Ensure(ctx context.Context, roles []Role) error {
	for _, role := range roles {
		if _, err := r.db.ExecContext(ctx, `
			insert into roles (id, name, description)
			values ($1, $2, $3)
			on conflict (name) do nothing
		`, role.ID, role.Name, role.Description); err != nil {
			return err
		}
	}
	return nil
}

func (r pgRoles) scanOne(row *sql.Row) (Role, error) {
	var role Role
	err := row.Scan(&role.ID, &role.Name, &role.Description, &role.CreatedAt, &role.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Role{}, ErrNotFound
	}
	if err != nil {
		return Role{}, err
	}
	return role, nil
}

type pgPermissions struct {
	db *sql.DB
}

func (p pgPermissions) Ensure(ctx context.Context, perms []Permission) error {
	for _, perm := range perms {
		if _, err := p.db.ExecContext(ctx, `
			insert into permissions (id, key, description)
			values ($1, $2, $3)
			on conflict (key) do nothing
		`, perm.ID, perm.Key, perm.Description); err != nil {
			return err
		}
	}
	return nil
}

func (p pgPermissions) PermissionsForRole(ctx context.Context, roleID string) ([]Permission, error) {
	rows, err := p.db.QueryContext(ctx, `
		select p.id, p.key, p.description, p.created_at
		from permissions p
		join role_permissions rp on rp.permission_id = p.id
		where rp.role_id = $1
		order by p.key
	`, roleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Permission
	for rows.Next() {
		var perm Permission
		if err := rows.Scan(&perm.ID, &perm.Key, &perm.Description, &perm.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, perm)
	}
	return result, rows.Err()
}

func (p pgPermissions) SetForRole(ctx context.Context, roleID string, keys []string) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `delete from role_permissions where role_id = $1`, roleID); err != nil {
		return err
	}
	for _, key := range keys {
		res, err := tx.ExecContext(ctx, `
			insert into role_permissions (role_id, permission_id)
			select $1, id from permissions where key = $2
		`, roleID, key)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return ErrNotFound
		}
	}
	return tx.Commit()
}

func maybePgError(err error) (*pgconn.PgError, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr, true
	}
	return nil, false
}
