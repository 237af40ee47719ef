// Package identity implements account management, authentication, permission
// grants, and the password reset lifecycle.
package identity

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/staffboard/staffboard/internal/domain"
	"github.com/staffboard/staffboard/internal/pkg/ctxlog"
	"github.com/staffboard/staffboard/internal/pkg/metrics"
	"github.com/staffboard/staffboard/internal/policy"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// resetTokenTTL is how long an issued password reset token stays valid.
const resetTokenTTL = time.Hour

// TokenAuthenticator issues and validates bearer access tokens.
type TokenAuthenticator interface {
	GenerateToken(user *domain.User) (string, error)
	ValidateToken(token string) (string, error)
}

// Mailer delivers outbound mail. Send failures are reported to the caller
// but never roll back the operation that triggered the mail.
type Mailer interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// Service implements identity business logic.
type Service struct {
	repo         Repository
	policy       *policy.Engine
	auth         TokenAuthenticator
	mailer       Mailer
	resetBaseURL string
	now          func() time.Time
}

// NewService creates a new identity service.
func NewService(repo Repository, engine *policy.Engine, auth TokenAuthenticator, mailer Mailer, resetBaseURL string) *Service {
	return &Service{
		repo:         repo,
		policy:       engine,
		auth:         auth,
		mailer:       mailer,
		resetBaseURL: resetBaseURL,
		now:          time.Now,
	}
}

// RegisterInput holds data for registering a user.
type RegisterInput struct {
	Name     string
	Surname  string
	Username string
	Email    string
	Password string
	Role     domain.Role
}

// Register creates a new account. The actor needs the register_user or
// area_admin permission; area admins may only register workers of their area.
func (s *Service) Register(ctx context.Context, actor *domain.User, input RegisterInput) (*domain.User, error) {
	if !input.Role.IsValid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidRole, input.Role)
	}

	if err := s.policy.CanRegisterUser(actor, input.Role); err != nil {
		metrics.AuthorizationDenials.WithLabelValues(policy.Reason(err)).Inc()
		return nil, err
	}

	hash, err := hashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Name:         input.Name,
		Surname:      input.Surname,
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: hash,
		Role:         input.Role,
		Permissions:  domain.NewPermissionSet(),
		Active:       true,
	}

	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	return user, nil
}

// Login authenticates by email or username and returns the user with a
// signed access token.
func (s *Service) Login(ctx context.Context, login, password string) (*domain.User, string, error) {
	user, err := s.repo.GetUserByLogin(ctx, login)
	if err != nil {
		// Same error for unknown login and bad password.
		return nil, "", ErrInvalidCredentials
	}

	if !verifyPassword(user.PasswordHash, password) {
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.auth.GenerateToken(user)
	if err != nil {
		return nil, "", fmt.Errorf("generate token: %w", err)
	}

	return user, token, nil
}

// Authenticate resolves a bearer token to its user. Permissions come from
// storage, not the token, so grant changes apply to live sessions.
func (s *Service) Authenticate(ctx context.Context, token string) (*domain.User, error) {
	userID, err := s.auth.ValidateToken(token)
	if err != nil {
		return nil, ErrInvalidToken
	}

	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, ErrInvalidToken
	}
	if !user.Active {
		return nil, ErrUserInactive
	}
	return user, nil
}

// GetUser retrieves a user by ID.
func (s *Service) GetUser(ctx context.Context, id string) (*domain.User, error) {
	return s.repo.GetUserByID(ctx, id)
}

// ListUsers retrieves all active users.
func (s *Service) ListUsers(ctx context.Context) ([]domain.User, error) {
	return s.repo.ListUsers(ctx)
}

// SearchUsers finds active users by id, username, name, surname, or email.
func (s *Service) SearchUsers(ctx context.Context, term string) ([]domain.User, error) {
	return s.repo.SearchUsers(ctx, term)
}

// UpdateUserInput holds updatable profile fields. Role, email, and password
// are immutable through this operation.
type UpdateUserInput struct {
	Name         *string
	Surname      *string
	Username     *string
	ProfilePhoto *string
	Birthday     *time.Time
}

// UpdateUser updates profile fields of the target account. Self or superuser.
func (s *Service) UpdateUser(ctx context.Context, actor *domain.User, targetID string, input UpdateUserInput) (*domain.User, error) {
	if err := s.policy.CanEditAccount(actor, targetID); err != nil {
		metrics.AuthorizationDenials.WithLabelValues(policy.Reason(err)).Inc()
		return nil, err
	}

	user, err := s.repo.GetUserByID(ctx, targetID)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		user.Name = *input.Name
	}
	if input.Surname != nil {
		user.Surname = *input.Surname
	}
	if input.Username != nil {
		user.Username = *input.Username
	}
	if input.ProfilePhoto != nil {
		user.ProfilePhoto = *input.ProfilePhoto
	}
	if input.Birthday != nil {
		user.Birthday = input.Birthday
	}

	if err := s.repo.UpdateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	return user, nil
}

// DeleteUser soft-deletes the target account. Superuser only.
func (s *Service) DeleteUser(ctx context.Context, actor *domain.User, targetID string) error {
	if err := s.policy.CanDeleteAccount(actor); err != nil {
		metrics.AuthorizationDenials.WithLabelValues(policy.Reason(err)).Inc()
		return err
	}

	if _, err := s.repo.GetUserByID(ctx, targetID); err != nil {
		return err
	}
	return s.repo.SetUserActive(ctx, targetID, false)
}

// ChangePassword replaces the target account password after verifying the
// current one. Superuser only, matching the admin endpoint it backs.
func (s *Service) ChangePassword(ctx context.Context, actor *domain.User, targetID, oldPassword, newPassword string) error {
	if err := s.policy.CanChangePassword(actor); err != nil {
		metrics.AuthorizationDenials.WithLabelValues(policy.Reason(err)).Inc()
		return err
	}

	user, err := s.repo.GetUserByID(ctx, targetID)
	if err != nil {
		return err
	}

	if !verifyPassword(user.PasswordHash, oldPassword) {
		return ErrInvalidCredentials
	}

	hash, err := hashPassword(newPassword)
	if err != nil {
		return err
	}
	return s.repo.UpdatePassword(ctx, targetID, hash)
}

// GrantPermission toggles the tag on the target user: present tags are
// revoked, absent ones granted. Returns the resulting permission set.
func (s *Service) GrantPermission(ctx context.Context, actor *domain.User, targetID string, tag domain.Permission) (domain.PermissionSet, error) {
	switch tag {
	case domain.PermissionCreatePublication, domain.PermissionRegisterUser, domain.PermissionAreaAdmin:
	default:
		return nil, fmt.Errorf("%w: %s", ErrInvalidPermission, tag)
	}

	target, err := s.repo.GetUserByID(ctx, targetID)
	if err != nil {
		return nil, err
	}

	if err := s.policy.CanGrantPermission(actor, target, tag); err != nil {
		metrics.AuthorizationDenials.WithLabelValues(policy.Reason(err)).Inc()
		return nil, err
	}

	perms := domain.NewPermissionSet(target.Permissions.List()...)
	perms.Toggle(tag)

	if err := s.repo.UpdatePermissions(ctx, targetID, perms); err != nil {
		return nil, fmt.Errorf("update permissions: %w", err)
	}
	return perms, nil
}

// RequestPasswordReset issues a single-use reset token for the account with
// the given email and mails the reset link. Issuing overwrites any previous
// live token. A mail delivery failure is returned to the caller but leaves
// the issued token in place.
func (s *Service) RequestPasswordReset(ctx context.Context, actor *domain.User, email string) (string, error) {
	if err := s.policy.CanIssuePasswordReset(actor); err != nil {
		metrics.AuthorizationDenials.WithLabelValues(policy.Reason(err)).Inc()
		return "", err
	}

	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		return "", err
	}

	token, err := generateResetToken()
	if err != nil {
		return "", err
	}

	expires := s.now().Add(resetTokenTTL)
	if err := s.repo.SetResetToken(ctx, user.ID, token, expires); err != nil {
		return "", fmt.Errorf("store reset token: %w", err)
	}
	metrics.ResetTokensIssued.Inc()

	resetURL := fmt.Sprintf("%s/reset-password/%s", s.resetBaseURL, token)
	greeting := cases.Title(language.English).String(user.Name)
	body := fmt.Sprintf(
		`<p>Hi %s,</p><p>Click the link below to reset your password:</p><a href="%s">%s</a>`,
		greeting, resetURL, resetURL,
	)
	if err := s.mailer.Send(ctx, user.Email, "Password recovery", body); err != nil {
		ctxlog.FromContext(ctx).Error("failed to send reset email",
			"user_id", user.ID,
			"error", err,
		)
		return resetURL, fmt.Errorf("send reset email: %w", err)
	}

	return resetURL, nil
}

// ValidateResetToken resolves a reset token to its user, distinguishing
// unknown tokens from expired ones.
func (s *Service) ValidateResetToken(ctx context.Context, token string) (*domain.User, error) {
	user, expires, err := s.repo.GetUserByResetToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if !s.now().Before(expires) {
		return nil, ErrResetTokenExpired
	}
	return user, nil
}

// ResetPassword consumes a reset token and sets the new password. The token
// is cleared in the same guarded update that writes the hash, so a second
// consume of the same token fails as invalid.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	if _, err := s.ValidateResetToken(ctx, token); err != nil {
		return err
	}

	hash, err := hashPassword(newPassword)
	if err != nil {
		return err
	}

	ok, err := s.repo.ConsumeResetToken(ctx, token, hash, s.now())
	if err != nil {
		return fmt.Errorf("consume reset token: %w", err)
	}
	if !ok {
		// Lost the race with another consumer.
		return ErrResetTokenInvalid
	}
	return nil
}

// EnsureBootstrapAdmin idempotently seeds the superuser account at startup.
// No-op when the email is unset or the account already exists.
func (s *Service) EnsureBootstrapAdmin(ctx context.Context, username, email, password string) error {
	if email == "" {
		return nil
	}

	if _, err := s.repo.GetUserByEmail(ctx, email); err == nil {
		return nil
	}

	hash, err := hashPassword(password)
	if err != nil {
		return err
	}

	admin := &domain.User{
		Name:         "Admin",
		Surname:      "Admin",
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         domain.RoleSuperuser,
		Permissions:  domain.NewPermissionSet(),
		Active:       true,
	}
	if err := s.repo.CreateUser(ctx, admin); err != nil {
		return fmt.Errorf("seed bootstrap admin: %w", err)
	}

	ctxlog.FromContext(ctx).Info("bootstrap admin created", "email", email)
	return nil
}

// generateResetToken returns 32 random bytes hex-encoded (256 bits).
func generateResetToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate reset token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
