package content

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/staffboard/staffboard/internal/domain"
	"github.com/staffboard/staffboard/internal/pkg/ctxlog"
	"github.com/staffboard/staffboard/internal/pkg/metrics"
	"github.com/staffboard/staffboard/internal/policy"
)

// Service implements content business logic.
type Service struct {
	repo   Repository
	policy *policy.Engine
}

// NewService creates a new content service.
func NewService(repo Repository, engine *policy.Engine) *Service {
	return &Service{repo: repo, policy: engine}
}

// CreatePublicationInput holds data for creating a publication.
type CreatePublicationInput struct {
	Area        domain.Area
	Description string
	Image       string
}

// CreatePublication creates an active publication in the target area. The
// actor needs publishing rights in that area.
func (s *Service) CreatePublication(ctx context.Context, actor *domain.User, input CreatePublicationInput) (*domain.Publication, error) {
	if !input.Area.IsValid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidArea, input.Area)
	}

	if err := s.policy.CanCreatePublication(actor, input.Area); err != nil {
		metrics.AuthorizationDenials.WithLabelValues(policy.Reason(err)).Inc()
		return nil, err
	}

	pub := &domain.Publication{
		AuthorID:    actor.ID,
		Area:        input.Area,
		Description: input.Description,
		Image:       input.Image,
		Status:      domain.ContentActive,
	}
	if err := s.repo.CreatePublication(ctx, pub); err != nil {
		return nil, fmt.Errorf("create publication: %w", err)
	}

	metrics.PublicationsCreated.WithLabelValues(string(input.Area)).Inc()
	return pub, nil
}

// GetPublication retrieves a publication by ID, deleted ones included.
func (s *Service) GetPublication(ctx context.Context, id string) (*domain.Publication, error) {
	return s.repo.GetPublication(ctx, id)
}

// ListPublications returns active publications newest first, optionally
// narrowed by area or author.
func (s *Service) ListPublications(ctx context.Context, filters PublicationFilters) ([]domain.Publication, error) {
	if filters.Area != nil && !filters.Area.IsValid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidArea, *filters.Area)
	}
	return s.repo.ListPublications(ctx, filters)
}

// UpdatePublicationInput holds updatable publication fields.
type UpdatePublicationInput struct {
	Description *string
	Image       *string
}

// UpdatePublication updates a publication. Author or superuser.
func (s *Service) UpdatePublication(ctx context.Context, actor *domain.User, id string, input UpdatePublicationInput) (*domain.Publication, error) {
	pub, err := s.repo.GetPublication(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.policy.CanMutateContent(actor, pub.AuthorID); err != nil {
		metrics.AuthorizationDenials.WithLabelValues(policy.Reason(err)).Inc()
		return nil, err
	}

	if input.Description != nil {
		pub.Description = *input.Description
	}
	if input.Image != nil {
		pub.Image = *input.Image
	}

	if err := s.repo.UpdatePublication(ctx, pub); err != nil {
		return nil, fmt.Errorf("update publication: %w", err)
	}
	return pub, nil
}

// DeletePublication soft-deletes a publication and all of its comments in one
// transaction. Author or superuser.
func (s *Service) DeletePublication(ctx context.Context, actor *domain.User, id string) error {
	return s.cascadeStatus(ctx, actor, id, domain.ContentDeleted)
}

// ReactivatePublication restores a soft-deleted publication and resurrects
// all of its comments, including ones deleted individually before the
// publication went down.
func (s *Service) ReactivatePublication(ctx context.Context, actor *domain.User, id string) error {
	return s.cascadeStatus(ctx, actor, id, domain.ContentActive)
}

func (s *Service) cascadeStatus(ctx context.Context, actor *domain.User, id string, status domain.ContentStatus) error {
	pub, err := s.repo.GetPublication(ctx, id)
	if err != nil {
		return err
	}

	if err := s.policy.CanMutateContent(actor, pub.AuthorID); err != nil {
		metrics.AuthorizationDenials.WithLabelValues(policy.Reason(err)).Inc()
		return err
	}

	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			ctxlog.FromContext(ctx).Error("failed to rollback transaction", "error", err)
		}
	}()

	if err := s.repo.SetPublicationStatusTx(ctx, tx, id, status); err != nil {
		return fmt.Errorf("set publication status: %w", err)
	}
	moved, err := s.repo.SetCommentsStatusByPublicationTx(ctx, tx, id, status)
	if err != nil {
		return fmt.Errorf("cascade comment status: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	ctxlog.FromContext(ctx).Info("publication status cascaded",
		"publication_id", id,
		"status", status,
		"comments_moved", moved,
	)
	return nil
}

// AddComment attaches an active comment to an existing active publication.
func (s *Service) AddComment(ctx context.Context, actor *domain.User, publicationID, text string) (*domain.Comment, error) {
	pub, err := s.repo.GetPublication(ctx, publicationID)
	if err != nil {
		return nil, err
	}
	if pub.Status != domain.ContentActive {
		return nil, ErrPublicationDeleted
	}

	comment := &domain.Comment{
		PublicationID: publicationID,
		AuthorID:      actor.ID,
		Text:          text,
		Status:        domain.ContentActive,
	}
	if err := s.repo.CreateComment(ctx, comment); err != nil {
		return nil, fmt.Errorf("create comment: %w", err)
	}
	return comment, nil
}

// UpdateComment rewrites a comment's text. Strictly author only, superusers
// included in the denial.
func (s *Service) UpdateComment(ctx context.Context, actor *domain.User, id, text string) (*domain.Comment, error) {
	comment, err := s.repo.GetComment(ctx, id)
	if err != nil {
		return nil, err
	}

	if actor.ID != comment.AuthorID {
		metrics.AuthorizationDenials.WithLabelValues(policy.Reason(policy.ErrNotOwner)).Inc()
		return nil, policy.ErrNotOwner
	}

	comment.Text = text
	if err := s.repo.UpdateComment(ctx, comment); err != nil {
		return nil, fmt.Errorf("update comment: %w", err)
	}
	return comment, nil
}

// DeleteComment soft-deletes a single comment. Author or superuser. The
// publication's state is untouched.
func (s *Service) DeleteComment(ctx context.Context, actor *domain.User, id string) error {
	comment, err := s.repo.GetComment(ctx, id)
	if err != nil {
		return err
	}

	if err := s.policy.CanMutateContent(actor, comment.AuthorID); err != nil {
		metrics.AuthorizationDenials.WithLabelValues(policy.Reason(err)).Inc()
		return err
	}

	return s.repo.SetCommentStatus(ctx, id, domain.ContentDeleted)
}

// ListComments returns the active comments of a publication newest first.
func (s *Service) ListComments(ctx context.Context, publicationID string) ([]domain.Comment, error) {
	if _, err := s.repo.GetPublication(ctx, publicationID); err != nil {
		return nil, err
	}
	return s.repo.ListComments(ctx, publicationID)
}

// ToggleLike flips the actor's like on a publication and returns whether the
// like is now present and the resulting count.
func (s *Service) ToggleLike(ctx context.Context, actor *domain.User, publicationID string) (bool, int, error) {
	if _, err := s.repo.GetPublication(ctx, publicationID); err != nil {
		return false, 0, err
	}

	liked, count, err := s.repo.TogglePublicationLike(ctx, publicationID, actor.ID)
	if err != nil {
		return false, 0, fmt.Errorf("toggle publication like: %w", err)
	}

	metrics.ReactionsToggled.WithLabelValues("publication", directionLabel(liked)).Inc()
	return liked, count, nil
}

// ToggleCommentLike flips the actor's like on a comment.
func (s *Service) ToggleCommentLike(ctx context.Context, actor *domain.User, commentID string) (bool, int, error) {
	if _, err := s.repo.GetComment(ctx, commentID); err != nil {
		return false, 0, err
	}

	liked, count, err := s.repo.ToggleCommentLike(ctx, commentID, actor.ID)
	if err != nil {
		return false, 0, fmt.Errorf("toggle comment like: %w", err)
	}

	metrics.ReactionsToggled.WithLabelValues("comment", directionLabel(liked)).Inc()
	return liked, count, nil
}

func directionLabel(liked bool) string {
	if liked {
		return "added"
	}
	return "removed"
}
