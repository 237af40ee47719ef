package identity

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/staffboard/staffboard/internal/domain"
	"github.com/staffboard/staffboard/internal/pkg/httputil"
	"github.com/staffboard/staffboard/internal/policy"
)

// Handler handles HTTP requests for the identity module.
type Handler struct {
	service   *Service
	validator *validator.Validate
}

// NewHandler creates a new identity handler.
func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: validator.New(),
	}
}

// policyMappings translate denial reasons into 403 responses.
var policyMappings = []httputil.ErrorMapping{
	{Error: policy.ErrMissingPermission, Status: http.StatusForbidden},
	{Error: policy.ErrWrongArea, Status: http.StatusForbidden},
	{Error: policy.ErrNotOwner, Status: http.StatusForbidden},
	{Error: policy.ErrNotSelf, Status: http.StatusForbidden},
	{Error: policy.ErrSuperuserOnly, Status: http.StatusForbidden},
	{Error: policy.ErrMissingAdminFlag, Status: http.StatusForbidden},
	{Error: policy.ErrUngrantablePermission, Status: http.StatusForbidden},
	{Error: policy.ErrRoleNotRegistrable, Status: http.StatusForbidden},
}

func (h *Handler) errorMappings() []httputil.ErrorMapping {
	mappings := []httputil.ErrorMapping{
		{Error: ErrUserNotFound, Status: http.StatusNotFound},
		{Error: ErrEmailExists, Status: http.StatusConflict},
		{Error: ErrUsernameExists, Status: http.StatusConflict},
		{Error: ErrInvalidCredentials, Status: http.StatusUnauthorized},
		{Error: ErrInvalidToken, Status: http.StatusUnauthorized},
		{Error: ErrUserInactive, Status: http.StatusUnauthorized},
		{Error: ErrInvalidRole, Status: http.StatusBadRequest},
		{Error: ErrInvalidPermission, Status: http.StatusBadRequest},
		{Error: ErrResetTokenInvalid, Status: http.StatusBadRequest},
		{Error: ErrResetTokenExpired, Status: http.StatusBadRequest},
	}
	return append(mappings, policyMappings...)
}

// RegisterPublicRoutes registers routes reachable without authentication.
func (h *Handler) RegisterPublicRoutes(r chi.Router) {
	r.Post("/auth/login", h.Login)
	r.Get("/auth/reset-password/{token}", h.CheckResetToken)
	r.Post("/auth/reset-password/{token}", h.ResetPassword)
}

// RegisterProtectedRoutes registers routes that require authentication.
func (h *Handler) RegisterProtectedRoutes(r chi.Router) {
	r.Get("/me", h.Me)
	r.Post("/auth/register", h.Register)

	r.Route("/users", func(r chi.Router) {
		r.Get("/", h.ListUsers)
		r.Get("/search", h.SearchUsers)
		r.Put("/{id}", h.UpdateUser)
		r.Patch("/{id}/permissions", h.GrantPermission)
	})
}

// RegisterSuperuserRoutes registers routes gated to the superuser. The policy
// engine checks again inside the service; the route group is the outer gate.
func (h *Handler) RegisterSuperuserRoutes(r chi.Router) {
	r.Post("/auth/forgot-password", h.ForgotPassword)
	r.Delete("/users/{id}", h.DeleteUser)
	r.Put("/users/{id}/password", h.ChangePassword)
}

// userID validates the {id} route parameter.
func userID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, ok := httputil.UUIDParam(r, "id")
	if !ok {
		httputil.Error(w, http.StatusNotFound, "user not found")
	}
	return id, ok
}

// LoginRequest represents login request body. Either email or username is
// accepted as login.
type LoginRequest struct {
	Login    string `json:"login" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse represents login response.
type LoginResponse struct {
	User  *domain.User `json:"user"`
	Token string       `json:"token"`
}

// Login handles POST /auth/login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	user, token, err := h.service.Login(r.Context(), req.Login, req.Password)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, h.errorMappings())
		return
	}

	httputil.Success(w, http.StatusOK, LoginResponse{User: user, Token: token})
}

// RegisterRequest represents registration request body.
type RegisterRequest struct {
	Name     string `json:"name" validate:"required,max=25"`
	Surname  string `json:"surname" validate:"required,max=25"`
	Username string `json:"username" validate:"required,max=25"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Role     string `json:"role" validate:"required"`
}

// Register handles POST /auth/register.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	user, err := h.service.Register(r.Context(), httputil.GetActor(r.Context()), RegisterInput{
		Name:     req.Name,
		Surname:  req.Surname,
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		Role:     domain.Role(req.Role),
	})
	if err != nil {
		httputil.HandleError(r.Context(), w, err, h.errorMappings())
		return
	}

	httputil.Success(w, http.StatusCreated, user)
}

// Me handles GET /me.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	actor := httputil.GetActor(r.Context())
	if actor == nil {
		httputil.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	httputil.Success(w, http.StatusOK, actor)
}

// ListUsers handles GET /users.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.ListUsers(r.Context())
	if err != nil {
		httputil.HandleError(r.Context(), w, err, h.errorMappings())
		return
	}
	httputil.Success(w, http.StatusOK, users)
}

// SearchUsers handles GET /users/search?term=.
func (h *Handler) SearchUsers(w http.ResponseWriter, r *http.Request) {
	term := r.URL.Query().Get("term")
	if term == "" {
		httputil.Error(w, http.StatusBadRequest, "missing search term")
		return
	}

	users, err := h.service.SearchUsers(r.Context(), term)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, h.errorMappings())
		return
	}
	if len(users) == 0 {
		httputil.Error(w, http.StatusNotFound, "no users matched the search term")
		return
	}
	httputil.Success(w, http.StatusOK, users)
}

// UpdateUserRequest represents profile update request body.
type UpdateUserRequest struct {
	Name         *string    `json:"name" validate:"omitempty,max=25"`
	Surname      *string    `json:"surname" validate:"omitempty,max=25"`
	Username     *string    `json:"username" validate:"omitempty,max=25"`
	ProfilePhoto *string    `json:"profile_photo"`
	Birthday     *time.Time `json:"birthday"`
}

// UpdateUser handles PUT /users/{id}.
func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	var req UpdateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	id, ok := userID(w, r)
	if !ok {
		return
	}

	user, err := h.service.UpdateUser(r.Context(), httputil.GetActor(r.Context()), id, UpdateUserInput{
		Name:         req.Name,
		Surname:      req.Surname,
		Username:     req.Username,
		ProfilePhoto: req.ProfilePhoto,
		Birthday:     req.Birthday,
	})
	if err != nil {
		httputil.HandleError(r.Context(), w, err, h.errorMappings())
		return
	}
	httputil.Success(w, http.StatusOK, user)
}

// DeleteUser handles DELETE /users/{id}.
func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}

	err := h.service.DeleteUser(r.Context(), httputil.GetActor(r.Context()), id)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, h.errorMappings())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ChangePasswordRequest represents password change request body.
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8"`
}

// ChangePassword handles PUT /users/{id}/password.
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	id, ok := userID(w, r)
	if !ok {
		return
	}

	err := h.service.ChangePassword(r.Context(), httputil.GetActor(r.Context()), id, req.OldPassword, req.NewPassword)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, h.errorMappings())
		return
	}
	httputil.Success(w, http.StatusOK, map[string]string{"message": "password updated"})
}

// GrantPermissionRequest represents a permission toggle request body.
type GrantPermissionRequest struct {
	Permission string `json:"permission" validate:"required"`
}

// GrantPermissionResponse returns the resulting permission set.
type GrantPermissionResponse struct {
	Permissions domain.PermissionSet `json:"permissions"`
}

// GrantPermission handles PATCH /users/{id}/permissions.
func (h *Handler) GrantPermission(w http.ResponseWriter, r *http.Request) {
	var req GrantPermissionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	id, ok := userID(w, r)
	if !ok {
		return
	}

	perms, err := h.service.GrantPermission(r.Context(), httputil.GetActor(r.Context()), id, domain.Permission(req.Permission))
	if err != nil {
		httputil.HandleError(r.Context(), w, err, h.errorMappings())
		return
	}
	httputil.Success(w, http.StatusOK, GrantPermissionResponse{Permissions: perms})
}

// ForgotPasswordRequest represents a reset mail request body.
type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ForgotPassword handles POST /auth/forgot-password.
func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req ForgotPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	resetLink, err := h.service.RequestPasswordReset(r.Context(), httputil.GetActor(r.Context()), req.Email)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, h.errorMappings())
		return
	}

	httputil.Success(w, http.StatusOK, map[string]string{
		"message":    "recovery email sent",
		"reset_link": resetLink,
	})
}

// CheckResetToken handles GET /auth/reset-password/{token}.
func (h *Handler) CheckResetToken(w http.ResponseWriter, r *http.Request) {
	_, err := h.service.ValidateResetToken(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		httputil.HandleError(r.Context(), w, err, h.errorMappings())
		return
	}
	httputil.Success(w, http.StatusOK, map[string]string{"message": "token valid"})
}

// ResetPasswordRequest represents a reset consumption request body.
type ResetPasswordRequest struct {
	Password string `json:"password" validate:"required,min=8"`
}

// ResetPassword handles POST /auth/reset-password/{token}.
func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	if err := h.service.ResetPassword(r.Context(), chi.URLParam(r, "token"), req.Password); err != nil {
		httputil.HandleError(r.Context(), w, err, h.errorMappings())
		return
	}
	httputil.Success(w, http.StatusOK, map[string]string{"message": "password updated"})
}
