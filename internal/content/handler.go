package content

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/staffboard/staffboard/internal/domain"
	"github.com/staffboard/staffboard/internal/pkg/httputil"
	"github.com/staffboard/staffboard/internal/policy"
)

// Handler handles HTTP requests for the content module.
type Handler struct {
	service   *Service
	validator *validator.Validate
}

// NewHandler creates a new content handler.
func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: validator.New(),
	}
}

func (h *Handler) errorMappings() []httputil.ErrorMapping {
	return []httputil.ErrorMapping{
		{Error: ErrPublicationNotFound, Status: http.StatusNotFound},
		{Error: ErrCommentNotFound, Status: http.StatusNotFound},
		{Error: ErrPublicationDeleted, Status: http.StatusConflict},
		{Error: ErrInvalidArea, Status: http.StatusBadRequest},
		{Error: policy.ErrMissingPermission, Status: http.StatusForbidden},
		{Error: policy.ErrWrongArea, Status: http.StatusForbidden},
		{Error: policy.ErrNotOwner, Status: http.StatusForbidden},
	}
}

// publicationID validates the {id} route parameter for publication routes.
func publicationID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, ok := httputil.UUIDParam(r, "id")
	if !ok {
		httputil.Error(w, http.StatusNotFound, "publication not found")
	}
	return id, ok
}

// commentID validates the {id} route parameter for comment routes.
func commentID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, ok := httputil.UUIDParam(r, "id")
	if !ok {
		httputil.Error(w, http.StatusNotFound, "comment not found")
	}
	return id, ok
}

// RegisterProtectedRoutes registers routes that require authentication.
func (h *Handler) RegisterProtectedRoutes(r chi.Router) {
	r.Route("/publications", func(r chi.Router) {
		r.Post("/", h.CreatePublication)
		r.Get("/", h.ListPublications)
		r.Get("/{id}", h.GetPublication)
		r.Put("/{id}", h.UpdatePublication)
		r.Delete("/{id}", h.DeletePublication)
		r.Post("/{id}/reactivate", h.ReactivatePublication)
		r.Post("/{id}/like", h.ToggleLike)
		r.Get("/{id}/comments", h.ListComments)
		r.Post("/{id}/comments", h.AddComment)
	})

	r.Route("/comments", func(r chi.Router) {
		r.Put("/{id}", h.UpdateComment)
		r.Delete("/{id}", h.DeleteComment)
		r.Post("/{id}/like", h.ToggleCommentLike)
	})
}

// CreatePublicationRequest represents publication creation request body.
type CreatePublicationRequest struct {
	Area        string `json:"area" validate:"required"`
	Description string `json:"description" validate:"max=1000"`
	Image       string `json:"image" validate:"required"`
}

// CreatePublication handles POST /publications.
func (h *Handler) CreatePublication(w http.ResponseWriter, r *http.Request) {
	var req CreatePublicationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	pub, err := h.service.CreatePublication(r.Context(), httputil.GetActor(r.Context()), CreatePublicationInput{
		Area:        domain.Area(strings.ToLower(req.Area)),
		Description: req.Description,
		Image:       req.Image,
	})
	if err != nil {
		httputil.HandleError(r.Context(), w, err, h.errorMappings())
		return
	}
	httputil.Success(w, http.StatusCreated, pub)
}

// ListPublications handles GET /publications?area=&author=.
func (h *Handler) ListPublications(w http.ResponseWriter, r *http.Request) {
	var filters PublicationFilters
	if v := r.URL.Query().Get("area"); v != "" {
		area := domain.Area(strings.ToLower(v))
		filters.Area = &area
	}
	if v := r.URL.Query().Get("author"); v != "" {
		filters.AuthorID = &v
	}

	pubs, err := h.service.ListPublications(r.Context(), filters)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, h.errorMappings())
		return
	}
	httputil.Success(w, http.StatusOK, pubs)
}

// GetPublication handles GET /publications/{id}.
func (h *Handler) GetPublication(w http.ResponseWriter, r *http.Request) {
	id, ok := publicationID(w, r)
	if !ok {
		return
	}

	pub, err := h.service.GetPublication(r.Context(), id)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, h.errorMappings())
		return
	}
	httputil.Success(w, http.StatusOK, pub)
}

// UpdatePublicationRequest represents publication update request body.
type UpdatePublicationRequest struct {
	Description *string `json:"description" validate:"omitempty,max=1000"`
	Image       *string `json:"image" validate:"omitempty,min=1"`
}

// UpdatePublication handles PUT /publications/{id}.
func (h *Handler) UpdatePublication(w http.ResponseWriter, r *http.Request) {
	var req UpdatePublicationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	id, ok := publicationID(w, r)
	if !ok {
		return
	}

	pub, err := h.service.UpdatePublication(r.Context(), httputil.GetActor(r.Context()), id, UpdatePublicationInput{
		Description: req.Description,
		Image:       req.Image,
	})
	if err != nil {
		httputil.HandleError(r.Context(), w, err, h.errorMappings())
		return
	}
	httputil.Success(w, http.StatusOK, pub)
}

// DeletePublication handles DELETE /publications/{id}.
func (h *Handler) DeletePublication(w http.ResponseWriter, r *http.Request) {
	id, ok := publicationID(w, r)
	if !ok {
		return
	}

	err := h.service.DeletePublication(r.Context(), httputil.GetActor(r.Context()), id)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, h.errorMappings())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ReactivatePublication handles POST /publications/{id}/reactivate.
func (h *Handler) ReactivatePublication(w http.ResponseWriter, r *http.Request) {
	id, ok := publicationID(w, r)
	if !ok {
		return
	}

	err := h.service.ReactivatePublication(r.Context(), httputil.GetActor(r.Context()), id)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, h.errorMappings())
		return
	}

	pub, err := h.service.GetPublication(r.Context(), id)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, h.errorMappings())
		return
	}
	httputil.Success(w, http.StatusOK, pub)
}

// LikeResponse reports the resulting state of a like toggle.
type LikeResponse struct {
	Liked     bool `json:"liked"`
	LikeCount int  `json:"like_count"`
}

// ToggleLike handles POST /publications/{id}/like.
func (h *Handler) ToggleLike(w http.ResponseWriter, r *http.Request) {
	id, ok := publicationID(w, r)
	if !ok {
		return
	}

	liked, count, err := h.service.ToggleLike(r.Context(), httputil.GetActor(r.Context()), id)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, h.errorMappings())
		return
	}
	httputil.Success(w, http.StatusOK, LikeResponse{Liked: liked, LikeCount: count})
}

// CommentRequest represents a comment create or update request body.
type CommentRequest struct {
	Text string `json:"text" validate:"required,max=1000"`
}

// AddComment handles POST /publications/{id}/comments.
func (h *Handler) AddComment(w http.ResponseWriter, r *http.Request) {
	var req CommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	id, ok := publicationID(w, r)
	if !ok {
		return
	}

	comment, err := h.service.AddComment(r.Context(), httputil.GetActor(r.Context()), id, req.Text)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, h.errorMappings())
		return
	}
	httputil.Success(w, http.StatusCreated, comment)
}

// ListComments handles GET /publications/{id}/comments.
func (h *Handler) ListComments(w http.ResponseWriter, r *http.Request) {
	id, ok := publicationID(w, r)
	if !ok {
		return
	}

	comments, err := h.service.ListComments(r.Context(), id)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, h.errorMappings())
		return
	}
	httputil.Success(w, http.StatusOK, comments)
}

// UpdateComment handles PUT /comments/{id}.
func (h *Handler) UpdateComment(w http.ResponseWriter, r *http.Request) {
	var req CommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	id, ok := commentID(w, r)
	if !ok {
		return
	}

	comment, err := h.service.UpdateComment(r.Context(), httputil.GetActor(r.Context()), id, req.Text)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, h.errorMappings())
		return
	}
	httputil.Success(w, http.StatusOK, comment)
}

// DeleteComment handles DELETE /comments/{id}.
func (h *Handler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	id, ok := commentID(w, r)
	if !ok {
		return
	}

	err := h.service.DeleteComment(r.Context(), httputil.GetActor(r.Context()), id)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, h.errorMappings())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ToggleCommentLike handles POST /comments/{id}/like.
func (h *Handler) ToggleCommentLike(w http.ResponseWriter, r *http.Request) {
	id, ok := commentID(w, r)
	if !ok {
		return
	}

	liked, count, err := h.service.ToggleCommentLike(r.Context(), httputil.GetActor(r.Context()), id)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, h.errorMappings())
		return
	}
	httputil.Success(w, http.StatusOK, LikeResponse{Liked: liked, LikeCount: count})
}
