// Package postgres provides PostgreSQL implementation of identity repository.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/staffboard/staffboard/internal/domain"
	"github.com/staffboard/staffboard/internal/identity"
)

// Repository implements identity.Repository using PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

const userColumns = `
	id, name, surname, username, email, password_hash, profile_photo,
	birthday, role, permissions, active, created_at, updated_at
`

func scanUser(row pgx.Row) (*domain.User, error) {
	var user domain.User
	var perms []string
	err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Surname,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.ProfilePhoto,
		&user.Birthday,
		&user.Role,
		&perms,
		&user.Active,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	user.Permissions = permissionsFromStrings(perms)
	return &user, nil
}

func permissionsFromStrings(tags []string) domain.PermissionSet {
	set := domain.NewPermissionSet()
	for _, tag := range tags {
		set[domain.Permission(tag)] = struct{}{}
	}
	return set
}

func permissionsToStrings(set domain.PermissionSet) []string {
	tags := make([]string, 0, len(set))
	for _, tag := range set.List() {
		tags = append(tags, string(tag))
	}
	return tags
}

// CreateUser creates a new user in the database.
func (r *Repository) CreateUser(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO users (
			name, surname, username, email, password_hash, profile_photo,
			birthday, role, permissions, active
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query,
		user.Name,
		user.Surname,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.ProfilePhoto,
		user.Birthday,
		user.Role,
		permissionsToStrings(user.Permissions),
		user.Active,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			switch pgErr.ConstraintName {
			case "users_email_key":
				return identity.ErrEmailExists
			case "users_username_key":
				return identity.ErrUsernameExists
			}
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// GetUserByID retrieves a user by ID.
func (r *Repository) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	user, err := scanUser(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, identity.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

// GetUserByLogin retrieves an active user by email or username.
func (r *Repository) GetUserByLogin(ctx context.Context, login string) (*domain.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE (email = $1 OR username = $1) AND active = TRUE
	`
	user, err := scanUser(r.db.QueryRow(ctx, query, login))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, identity.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user by login: %w", err)
	}
	return user, nil
}

// GetUserByEmail retrieves a user by email.
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	user, err := scanUser(r.db.QueryRow(ctx, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, identity.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return user, nil
}

// ListUsers retrieves all active users.
func (r *Repository) ListUsers(ctx context.Context) ([]domain.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE active = TRUE
		ORDER BY created_at DESC
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	return collectUsers(rows)
}

// SearchUsers matches the term against id, username, name, surname, full name,
// and email of active users.
func (r *Repository) SearchUsers(ctx context.Context, term string) ([]domain.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE active = TRUE
		  AND (
			id::text = $1
			OR username ILIKE '%' || $1 || '%'
			OR name ILIKE '%' || $1 || '%'
			OR surname ILIKE '%' || $1 || '%'
			OR (name || ' ' || surname) ILIKE '%' || $1 || '%'
			OR email ILIKE '%' || $1 || '%'
		  )
		ORDER BY created_at DESC
	`
	rows, err := r.db.Query(ctx, query, term)
	if err != nil {
		return nil, fmt.Errorf("search users: %w", err)
	}
	defer rows.Close()

	return collectUsers(rows)
}

func collectUsers(rows pgx.Rows) ([]domain.User, error) {
	users := make([]domain.User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, *user)
	}
	return users, rows.Err()
}

// UpdateUser updates a user's profile fields.
func (r *Repository) UpdateUser(ctx context.Context, user *domain.User) error {
	query := `
		UPDATE users
		SET name = $2, surname = $3, username = $4, profile_photo = $5,
		    birthday = $6, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`
	err := r.db.QueryRow(ctx, query,
		user.ID,
		user.Name,
		user.Surname,
		user.Username,
		user.ProfilePhoto,
		user.Birthday,
	).Scan(&user.UpdatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return identity.ErrUserNotFound
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == "users_username_key" {
			return identity.ErrUsernameExists
		}
		return fmt.Errorf("update user: %w", err)
	}
	return nil
}

// UpdatePassword replaces a user's password hash.
func (r *Repository) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	query := `UPDATE users SET password_hash = $2, updated_at = NOW() WHERE id = $1`
	result, err := r.db.Exec(ctx, query, userID, passwordHash)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if result.RowsAffected() == 0 {
		return identity.ErrUserNotFound
	}
	return nil
}

// SetUserActive flips the soft-delete flag on a user account.
func (r *Repository) SetUserActive(ctx context.Context, userID string, active bool) error {
	query := `UPDATE users SET active = $2, updated_at = NOW() WHERE id = $1`
	result, err := r.db.Exec(ctx, query, userID, active)
	if err != nil {
		return fmt.Errorf("set user active: %w", err)
	}
	if result.RowsAffected() == 0 {
		return identity.ErrUserNotFound
	}
	return nil
}

// UpdatePermissions replaces a user's permission tags.
func (r *Repository) UpdatePermissions(ctx context.Context, userID string, perms domain.PermissionSet) error {
	query := `UPDATE users SET permissions = $2, updated_at = NOW() WHERE id = $1`
	result, err := r.db.Exec(ctx, query, userID, permissionsToStrings(perms))
	if err != nil {
		return fmt.Errorf("update permissions: %w", err)
	}
	if result.RowsAffected() == 0 {
		return identity.ErrUserNotFound
	}
	return nil
}

// SetResetToken stores a reset token on a user, replacing any previous one.
func (r *Repository) SetResetToken(ctx context.Context, userID, token string, expires time.Time) error {
	query := `
		UPDATE users
		SET reset_token = $2, reset_token_expires = $3, updated_at = NOW()
		WHERE id = $1
	`
	result, err := r.db.Exec(ctx, query, userID, token, expires)
	if err != nil {
		return fmt.Errorf("set reset token: %w", err)
	}
	if result.RowsAffected() == 0 {
		return identity.ErrUserNotFound
	}
	return nil
}

// GetUserByResetToken retrieves the user holding the token and its expiry.
func (r *Repository) GetUserByResetToken(ctx context.Context, token string) (*domain.User, time.Time, error) {
	query := `
		SELECT ` + userColumns + `, reset_token_expires
		FROM users
		WHERE reset_token = $1
	`
	var user domain.User
	var perms []string
	var expires time.Time
	err := r.db.QueryRow(ctx, query, token).Scan(
		&user.ID,
		&user.Name,
		&user.Surname,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.ProfilePhoto,
		&user.Birthday,
		&user.Role,
		&perms,
		&user.Active,
		&user.CreatedAt,
		&user.UpdatedAt,
		&expires,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, time.Time{}, identity.ErrResetTokenInvalid
		}
		return nil, time.Time{}, fmt.Errorf("get user by reset token: %w", err)
	}
	user.Permissions = permissionsFromStrings(perms)
	return &user, expires, nil
}

// ConsumeResetToken replaces the password hash and clears the token in one
// guarded update. Returns false when the token does not match a live row.
func (r *Repository) ConsumeResetToken(ctx context.Context, token, passwordHash string, now time.Time) (bool, error) {
	query := `
		UPDATE users
		SET password_hash = $2, reset_token = NULL, reset_token_expires = NULL,
		    updated_at = NOW()
		WHERE reset_token = $1 AND reset_token_expires > $3
	`
	result, err := r.db.Exec(ctx, query, token, passwordHash, now)
	if err != nil {
		return false, fmt.Errorf("consume reset token: %w", err)
	}
	return result.RowsAffected() > 0, nil
}
