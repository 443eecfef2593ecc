package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/sakif/taskboard/internal/apperror"
	"github.com/sakif/taskboard/internal/model"
	"github.com/sakif/taskboard/internal/repository"
)

// compile-time check that *UserDB implements repository.UserRepository
var _ repository.UserRepository = (*UserDB)(nil)

// UserDB implements repository.UserRepository.
type UserDB struct {
	db *DB
}

// Create inserts a new account. The email column is UNIQUE — a duplicate
// registration comes back as apperror.ErrConflict, which the service maps
// to a generic conflict (never "this email exists").
func (u *UserDB) Create(ctx context.Context, user *model.User) error {
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now
	if user.Privileges == "" {
		user.Privileges = model.PrivilegeUser
	}

	res, err := u.db.conn.ExecContext(ctx,
		`INSERT INTO users (name, email, password_hash, privileges, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		user.Name,
		user.Email,
		user.PasswordHash,
		string(user.Privileges),
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("user", user.Email)
		}
		return fmt.Errorf("sqlite: inserting user: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("sqlite: reading new user id: %w", err)
	}
	user.ID = id
	return nil
}

const userColumns = `id, name, email, password_hash, privileges, created_at, updated_at`

func scanUser(row *sql.Row) (*model.User, error) {
	var u model.User
	var privileges string
	err := row.Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.PasswordHash,
		&privileges,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	u.Privileges = model.Privilege(privileges)
	return &u, nil
}

// GetByID retrieves a user by their ID.
// Returns apperror.ErrNotFound if no such user exists — the identity
// resolver relies on this to reject tokens for deleted accounts.
func (u *UserDB) GetByID(ctx context.Context, id int64) (*model.User, error) {
	row := u.db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id)

	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", strconv.FormatInt(id, 10))
		}
		return nil, fmt.Errorf("sqlite: getting user %d: %w", id, err)
	}
	return user, nil
}

// GetByEmail retrieves a user by email (used by login and by invitations
// addressed to an email).
func (u *UserDB) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	row := u.db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, email)

	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", email)
		}
		return nil, fmt.Errorf("sqlite: getting user by email: %w", err)
	}
	return user, nil
}

// List returns all accounts, oldest first. Admin-only at the service layer.
func (u *UserDB) List(ctx context.Context) ([]model.User, error) {
	rows, err := u.db.conn.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing users: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		var usr model.User
		var privileges string
		if err := rows.Scan(
			&usr.ID,
			&usr.Name,
			&usr.Email,
			&usr.PasswordHash,
			&privileges,
			&usr.CreatedAt,
			&usr.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning user row: %w", err)
		}
		usr.Privileges = model.Privilege(privileges)
		users = append(users, usr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating users: %w", err)
	}
	return users, nil
}

// UpdatePrivileges changes a user's account-wide privilege.
func (u *UserDB) UpdatePrivileges(ctx context.Context, id int64, p model.Privilege) error {
	res, err := u.db.conn.ExecContext(ctx,
		`UPDATE users SET privileges = ?, updated_at = ? WHERE id = ?`,
		string(p), time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("sqlite: updating privileges for user %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperror.NotFound("user", strconv.FormatInt(id, 10))
	}
	return nil
}

// Delete removes an account. Foreign keys decide what happens to the rest:
// grants, invitations and votes cascade away; idea authorship is nulled;
// a user still referenced as a project or task creator cannot be deleted
// (the FK rejects it) — that surfaces as a conflict.
func (u *UserDB) Delete(ctx context.Context, id int64) error {
	res, err := u.db.conn.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return apperror.Conflict("user", strconv.FormatInt(id, 10))
		}
		return fmt.Errorf("sqlite: deleting user %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperror.NotFound("user", strconv.FormatInt(id, 10))
	}
	return nil
}
