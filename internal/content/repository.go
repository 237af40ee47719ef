// Package content implements the publication and comment lifecycle: creation,
// soft delete with cascade, reactivation, and like toggles.
package content

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/staffboard/staffboard/internal/domain"
)

// PublicationFilters narrows a publication listing. Nil fields match all.
type PublicationFilters struct {
	Area     *domain.Area
	AuthorID *string
}

// Repository defines the interface for content data operations.
type Repository interface {
	CreatePublication(ctx context.Context, pub *domain.Publication) error
	// GetPublication returns the publication regardless of status; callers
	// decide whether deleted content is visible.
	GetPublication(ctx context.Context, id string) (*domain.Publication, error)
	// ListPublications returns active publications newest first.
	ListPublications(ctx context.Context, filters PublicationFilters) ([]domain.Publication, error)
	UpdatePublication(ctx context.Context, pub *domain.Publication) error

	CreateComment(ctx context.Context, comment *domain.Comment) error
	GetComment(ctx context.Context, id string) (*domain.Comment, error)
	// ListComments returns active comments of a publication newest first.
	ListComments(ctx context.Context, publicationID string) ([]domain.Comment, error)
	UpdateComment(ctx context.Context, comment *domain.Comment) error
	SetCommentStatus(ctx context.Context, id string, status domain.ContentStatus) error

	// Cascade operations. Delete and reactivate of a publication move the
	// publication and all of its comments in one transaction.
	BeginTx(ctx context.Context) (pgx.Tx, error)
	SetPublicationStatusTx(ctx context.Context, tx pgx.Tx, id string, status domain.ContentStatus) error
	SetCommentsStatusByPublicationTx(ctx context.Context, tx pgx.Tx, publicationID string, status domain.ContentStatus) (int64, error)

	// Like toggles. Each runs DELETE first and inserts only when nothing was
	// deleted, so concurrent toggles serialize on the join-table primary key.
	TogglePublicationLike(ctx context.Context, publicationID, userID string) (liked bool, count int, err error)
	ToggleCommentLike(ctx context.Context, commentID, userID string) (liked bool, count int, err error)
}
