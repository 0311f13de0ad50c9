package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/poetry-share/internal/apperror"
	"github.com/sakif/poetry-share/internal/model"
	"github.com/sakif/poetry-share/internal/repository"
)

// compile-time check that *DB implements repository.UserRepository
var _ repository.UserRepository = (*DB)(nil)

const userColumns = `id, first_name, last_name, nick_name, email, photo,
	password_hash, role, github_id, created_at, updated_at`

// CreateUser inserts a new account. The ID is generated here (xid: 20 chars,
// URL-safe, sortable by creation time). A UNIQUE violation on email or
// nick_name comes back as apperror.ErrConflict so the service can report
// "already exists" instead of a bare database error.
func (db *DB) CreateUser(ctx context.Context, user *model.User) error {
	user.ID = xid.New().String()

	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	if user.Role == "" {
		user.Role = model.RoleUser
	}

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.FirstName,
		user.LastName,
		user.NickName,
		user.Email,
		user.Photo,
		user.PasswordHash,
		user.Role,
		user.GitHubID,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("email", "email or nickname already exists")
		}
		return fmt.Errorf("sqlite: creating user: %w", err)
	}

	return nil
}

// GetUserByID retrieves an account by its internal ID.
func (db *DB) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	return db.getUser(ctx, `WHERE id = ?`, id)
}

// GetUserByEmail retrieves an account by email. Used by login.
func (db *DB) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return db.getUser(ctx, `WHERE email = ?`, email)
}

// GetUserByGitHubID retrieves an account created through the OAuth flow.
func (db *DB) GetUserByGitHubID(ctx context.Context, githubID int64) (*model.User, error) {
	return db.getUser(ctx, `WHERE github_id = ? AND github_id != 0`, githubID)
}

func (db *DB) getUser(ctx context.Context, where string, arg any) (*model.User, error) {
	var u model.User

	err := db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users `+where, arg,
	).Scan(
		&u.ID,
		&u.FirstName,
		&u.LastName,
		&u.NickName,
		&u.Email,
		&u.Photo,
		&u.PasswordHash,
		&u.Role,
		&u.GitHubID,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user", fmt.Sprint(arg))
		}
		return nil, fmt.Errorf("sqlite: getting user (%v): %w", arg, err)
	}

	return &u, nil
}

// ListUsers returns all accounts, newest first.
func (db *DB) ListUsers(ctx context.Context) ([]model.User, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing users: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		var u model.User
		if err := rows.Scan(
			&u.ID, &u.FirstName, &u.LastName, &u.NickName, &u.Email,
			&u.Photo, &u.PasswordHash, &u.Role, &u.GitHubID,
			&u.CreatedAt, &u.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning user row: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating users: %w", err)
	}

	return users, nil
}

// UpdateUser persists the mutable account fields. ID and created_at never
// change; updated_at is stamped here.
func (db *DB) UpdateUser(ctx context.Context, user *model.User) error {
	user.UpdatedAt = time.Now()

	result, err := db.conn.ExecContext(ctx,
		`UPDATE users
		 SET first_name = ?, last_name = ?, nick_name = ?, email = ?,
		     photo = ?, password_hash = ?, role = ?, updated_at = ?
		 WHERE id = ?`,
		user.FirstName,
		user.LastName,
		user.NickName,
		user.Email,
		user.Photo,
		user.PasswordHash,
		user.Role,
		user.UpdatedAt,
		user.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("email", "email or nickname already exists")
		}
		return fmt.Errorf("sqlite: updating user %s: %w", user.ID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("user", user.ID)
	}

	return nil
}

// DeleteUser removes an account. The account's poems are left in place — they
// become orphans and the poem service purges them on the next listing read.
// The account's likes on other poems are removed here so like counts don't
// include ghosts.
func (db *DB) DeleteUser(ctx context.Context, id string) error {
	result, err := db.conn.ExecContext(ctx,
		`DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting user %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("user", id)
	}

	if _, err := db.conn.ExecContext(ctx,
		`DELETE FROM poem_likes WHERE user_id = ?`, id); err != nil {
		return fmt.Errorf("sqlite: removing likes of user %s: %w", id, err)
	}

	return nil
}

// UserExists reports whether an account with the given ID exists. The poem
// service calls this once per poem during orphan pruning.
func (db *DB) UserExists(ctx context.Context, id string) (bool, error) {
	var one int
	err := db.conn.QueryRowContext(ctx,
		`SELECT 1 FROM users WHERE id = ?`, id).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("sqlite: checking user %s: %w", id, err)
	}
	return true, nil
}

// isUniqueViolation detects a UNIQUE constraint failure. The modernc
// driver surfaces it in the error text; matching on the message is crude
// but avoids depending on driver-internal error codes.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
