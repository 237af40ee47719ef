package identity

import (
	"context"
	"time"

	"github.com/staffboard/staffboard/internal/domain"
)

// Repository defines the interface for identity data operations.
type Repository interface {
	CreateUser(ctx context.Context, user *domain.User) error
	GetUserByID(ctx context.Context, id string) (*domain.User, error)
	// GetUserByLogin looks up an active user by email or username.
	GetUserByLogin(ctx context.Context, login string) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	ListUsers(ctx context.Context) ([]domain.User, error)
	// SearchUsers matches the term against id, username, name, surname,
	// full name, and email of active users.
	SearchUsers(ctx context.Context, term string) ([]domain.User, error)
	UpdateUser(ctx context.Context, user *domain.User) error
	UpdatePassword(ctx context.Context, userID, passwordHash string) error
	SetUserActive(ctx context.Context, userID string, active bool) error
	UpdatePermissions(ctx context.Context, userID string, perms domain.PermissionSet) error

	// Reset token lifecycle. A user holds at most one live token; SetResetToken
	// overwrites unconditionally. ConsumeResetToken atomically replaces the
	// password hash and clears the token in one guarded update, returning
	// false when the token no longer matches a live row.
	SetResetToken(ctx context.Context, userID, token string, expires time.Time) error
	GetUserByResetToken(ctx context.Context, token string) (*domain.User, time.Time, error)
	ConsumeResetToken(ctx context.Context, token, passwordHash string, now time.Time) (bool, error)
}
