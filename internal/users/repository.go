package users

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-ops/meridian/internal/platform/db"
	"github.com/meridian-ops/meridian/internal/shared"
)

// RepositoryPort defines data access methods for user accounts.
type RepositoryPort interface {
	ListUsers(ctx context.Context) ([]User, error)
	GetUser(ctx context.Context, id int64) (*User, error)
	GetUserByUsername(ctx context.Context, username string) (*User, error)
	CreateUser(ctx context.Context, u User) (*User, error)
	UpdateUser(ctx context.Context, u User) (*User, error)
	UpdatePassword(ctx context.Context, id int64, hash, salt string) error
	ResetFailedLoginAttempts(ctx context.Context, id int64) error
	IncrementFailedLoginAttempts(ctx context.Context, id int64) (int, error)
	RecordLogin(ctx context.Context, id int64, at time.Time) error
	UpdateNotificationPrefs(ctx context.Context, id int64, prefs map[string]any) error
	SetStatus(ctx context.Context, id int64, status Status) error
	HardDeleteUser(ctx context.Context, id int64) error
	SearchUsers(ctx context.Context, c SearchCriteria) ([]User, error)
}

const userColumns = `id, username, email, first_name, last_name, role_id, status,
	failed_login_attempts, last_login_at, notification_prefs,
	password_hash, password_salt, created_at, updated_at`

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListUsers returns all users ordered by id.
func (r *Repository) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanUsers(rows)
}

// GetUser fetches a user by id.
func (r *Repository) GetUser(ctx context.Context, id int64) (*User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

// GetUserByUsername fetches a user by its canonical username.
func (r *Repository) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username)
	return scanUser(row)
}

// CreateUser inserts a new user. Returns ErrDuplicate when the username or
// email is already taken.
func (r *Repository) CreateUser(ctx context.Context, u User) (*User, error) {
	prefsJSON, err := marshalPrefs(u.NotificationPrefs)
	if err != nil {
		return nil, err
	}
	row := r.pool.QueryRow(ctx,
		`INSERT INTO users (username, email, first_name, last_name, role_id, status,
			notification_prefs, password_hash, password_salt, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
		 RETURNING `+userColumns,
		u.Username, u.Email, u.FirstName, u.LastName, u.RoleID, u.Status,
		prefsJSON, u.PasswordHash, u.PasswordSalt)
	created, err := scanUser(row)
	if err != nil {
		return nil, mapDuplicate(err)
	}
	return created, nil
}

// UpdateUser writes the mutable profile columns of u.
func (r *Repository) UpdateUser(ctx context.Context, u User) (*User, error) {
	row := r.pool.QueryRow(ctx,
		`UPDATE users
		 SET username = $2, email = $3, first_name = $4, last_name = $5,
		     role_id = $6, status = $7, updated_at = NOW()
		 WHERE id = $1
		 RETURNING `+userColumns,
		u.ID, u.Username, u.Email, u.FirstName, u.LastName, u.RoleID, u.Status)
	updated, err := scanUser(row)
	if err != nil {
		return nil, mapDuplicate(err)
	}
	return updated, nil
}

// UpdatePassword stores a new hash and salt.
func (r *Repository) UpdatePassword(ctx context.Context, id int64, hash, salt string) error {
	return r.exec(ctx,
		`UPDATE users SET password_hash = $2, password_salt = $3, updated_at = NOW() WHERE id = $1`,
		id, hash, salt)
}

// ResetFailedLoginAttempts clears the lockout counter.
func (r *Repository) ResetFailedLoginAttempts(ctx context.Context, id int64) error {
	return r.exec(ctx,
		`UPDATE users SET failed_login_attempts = 0, updated_at = NOW() WHERE id = $1`, id)
}

// IncrementFailedLoginAttempts bumps the lockout counter and returns the new value.
func (r *Repository) IncrementFailedLoginAttempts(ctx context.Context, id int64) (int, error) {
	var attempts int
	err := r.pool.QueryRow(ctx,
		`UPDATE users SET failed_login_attempts = failed_login_attempts + 1, updated_at = NOW()
		 WHERE id = $1
		 RETURNING failed_login_attempts`, id).Scan(&attempts)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, shared.ErrNotFound
	}
	return attempts, err
}

// RecordLogin stores the last successful login timestamp.
func (r *Repository) RecordLogin(ctx context.Context, id int64, at time.Time) error {
	return r.exec(ctx,
		`UPDATE users SET last_login_at = $2, updated_at = NOW() WHERE id = $1`, id, at.UTC())
}

// UpdateNotificationPrefs replaces the notification preference mapping.
func (r *Repository) UpdateNotificationPrefs(ctx context.Context, id int64, prefs map[string]any) error {
	prefsJSON, err := marshalPrefs(prefs)
	if err != nil {
		return err
	}
	return r.exec(ctx,
		`UPDATE users SET notification_prefs = $2, updated_at = NOW() WHERE id = $1`, id, prefsJSON)
}

// SetStatus flips the account status. Used for soft deletion among others.
func (r *Repository) SetStatus(ctx context.Context, id int64, status Status) error {
	return r.exec(ctx,
		`UPDATE users SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
}

// HardDeleteUser removes the row permanently. The dependent-record check and
// the delete run in one transaction so no message can appear in between.
func (r *Repository) HardDeleteUser(ctx context.Context, id int64) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var dependents int64
		if err := tx.QueryRow(ctx,
			`SELECT COUNT(*) FROM messages WHERE author_id = $1`, id).Scan(&dependents); err != nil {
			return err
		}
		if dependents > 0 {
			return ErrHasDependents
		}
		tag, err := tx.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
}

// SearchUsers returns users matching the criteria. Soft-deleted accounts are
// always excluded.
func (r *Repository) SearchUsers(ctx context.Context, c SearchCriteria) ([]User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE status <> 'deleted'`
	args := make([]any, 0, 6)

	add := func(clause string, value any) {
		args = append(args, value)
		query += fmt.Sprintf(clause, len(args))
	}

	if c.Username != "" {
		add(` AND username ILIKE '%%' || $%d || '%%'`, c.Username)
	}
	if c.Email != "" {
		add(` AND email ILIKE '%%' || $%d || '%%'`, c.Email)
	}
	if c.Name != "" {
		args = append(args, c.Name)
		n := len(args)
		query += fmt.Sprintf(` AND (first_name ILIKE '%%' || $%d || '%%' OR last_name ILIKE '%%' || $%d || '%%')`, n, n)
	}
	if c.RoleID > 0 {
		add(` AND role_id = $%d`, c.RoleID)
	}
	if c.Status != "" {
		add(` AND status = $%d`, c.Status)
	}

	limit := c.Limit
	if limit <= 0 {
		limit = shared.DefaultPageLimit
	}
	offset := c.Offset
	if offset < 0 {
		offset = 0
	}
	add(` ORDER BY id LIMIT $%d`, limit)
	add(` OFFSET $%d`, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanUsers(rows)
}

func (r *Repository) exec(ctx context.Context, sql string, args ...any) error {
	tag, err := r.pool.Exec(ctx, sql, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func scanUser(row pgx.Row) (*User, error) {
	var u User
	var prefsJSON []byte
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.FirstName, &u.LastName, &u.RoleID, &u.Status,
		&u.FailedLoginAttempts, &u.LastLoginAt, &prefsJSON,
		&u.PasswordHash, &u.PasswordSalt, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	if len(prefsJSON) > 0 {
		if err := json.Unmarshal(prefsJSON, &u.NotificationPrefs); err != nil {
			return nil, err
		}
	}
	return &u, nil
}

func scanUsers(rows pgx.Rows) ([]User, error) {
	var userList []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		userList = append(userList, *u)
	}
	return userList, rows.Err()
}

func marshalPrefs(prefs map[string]any) ([]byte, error) {
	if prefs == nil {
		prefs = map[string]any{}
	}
	return json.Marshal(prefs)
}

func mapDuplicate(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicate
	}
	return err
}

var _ RepositoryPort = (*Repository)(nil)
