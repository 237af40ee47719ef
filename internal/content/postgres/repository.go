// Package postgres provides PostgreSQL implementation of content repository.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/staffboard/staffboard/internal/content"
	"github.com/staffboard/staffboard/internal/domain"
)

// Repository implements content.Repository using PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// CreatePublication creates a new publication in the database.
func (r *Repository) CreatePublication(ctx context.Context, pub *domain.Publication) error {
	query := `
		INSERT INTO publications (author_id, area, description, image, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query,
		pub.AuthorID,
		pub.Area,
		pub.Description,
		pub.Image,
		pub.Status,
	).Scan(&pub.ID, &pub.CreatedAt, &pub.UpdatedAt)

	if err != nil {
		return fmt.Errorf("create publication: %w", err)
	}
	return nil
}

// GetPublication retrieves a publication by ID regardless of status. The like
// count is derived from the join table so it can never drift.
func (r *Repository) GetPublication(ctx context.Context, id string) (*domain.Publication, error) {
	query := `
		SELECT
			p.id, p.author_id, p.area, p.description, p.image, p.status,
			(SELECT COUNT(*) FROM publication_likes pl WHERE pl.publication_id = p.id),
			p.created_at, p.updated_at
		FROM publications p
		WHERE p.id = $1
	`
	var pub domain.Publication
	err := r.db.QueryRow(ctx, query, id).Scan(
		&pub.ID,
		&pub.AuthorID,
		&pub.Area,
		&pub.Description,
		&pub.Image,
		&pub.Status,
		&pub.LikeCount,
		&pub.CreatedAt,
		&pub.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, content.ErrPublicationNotFound
		}
		return nil, fmt.Errorf("get publication: %w", err)
	}
	return &pub, nil
}

// ListPublications retrieves active publications newest first with optional
// area and author filters.
func (r *Repository) ListPublications(ctx context.Context, filters content.PublicationFilters) ([]domain.Publication, error) {
	query := `
		SELECT
			p.id, p.author_id, p.area, p.description, p.image, p.status,
			(SELECT COUNT(*) FROM publication_likes pl WHERE pl.publication_id = p.id),
			p.created_at, p.updated_at
		FROM publications p
		WHERE p.status = 'active'
	`
	args := []interface{}{}
	argNum := 1

	if filters.Area != nil {
		query += fmt.Sprintf(" AND p.area = $%d", argNum)
		args = append(args, *filters.Area)
		argNum++
	}

	if filters.AuthorID != nil {
		query += fmt.Sprintf(" AND p.author_id = $%d", argNum)
		args = append(args, *filters.AuthorID)
	}

	query += " ORDER BY p.created_at DESC"

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list publications: %w", err)
	}
	defer rows.Close()

	pubs := make([]domain.Publication, 0)
	for rows.Next() {
		var pub domain.Publication
		err := rows.Scan(
			&pub.ID,
			&pub.AuthorID,
			&pub.Area,
			&pub.Description,
			&pub.Image,
			&pub.Status,
			&pub.LikeCount,
			&pub.CreatedAt,
			&pub.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan publication: %w", err)
		}
		pubs = append(pubs, pub)
	}

	return pubs, rows.Err()
}

// UpdatePublication updates a publication's content fields.
func (r *Repository) UpdatePublication(ctx context.Context, pub *domain.Publication) error {
	query := `
		UPDATE publications
		SET description = $2, image = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`
	err := r.db.QueryRow(ctx, query, pub.ID, pub.Description, pub.Image).Scan(&pub.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return content.ErrPublicationNotFound
		}
		return fmt.Errorf("update publication: %w", err)
	}
	return nil
}

// CreateComment creates a new comment in the database.
func (r *Repository) CreateComment(ctx context.Context, comment *domain.Comment) error {
	query := `
		INSERT INTO comments (publication_id, author_id, text, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query,
		comment.PublicationID,
		comment.AuthorID,
		comment.Text,
		comment.Status,
	).Scan(&comment.ID, &comment.CreatedAt, &comment.UpdatedAt)

	if err != nil {
		return fmt.Errorf("create comment: %w", err)
	}
	return nil
}

// GetComment retrieves a comment by ID regardless of status.
func (r *Repository) GetComment(ctx context.Context, id string) (*domain.Comment, error) {
	query := `
		SELECT
			c.id, c.publication_id, c.author_id, c.text, c.status,
			(SELECT COUNT(*) FROM comment_likes cl WHERE cl.comment_id = c.id),
			c.created_at, c.updated_at
		FROM comments c
		WHERE c.id = $1
	`
	var comment domain.Comment
	err := r.db.QueryRow(ctx, query, id).Scan(
		&comment.ID,
		&comment.PublicationID,
		&comment.AuthorID,
		&comment.Text,
		&comment.Status,
		&comment.LikeCount,
		&comment.CreatedAt,
		&comment.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, content.ErrCommentNotFound
		}
		return nil, fmt.Errorf("get comment: %w", err)
	}
	return &comment, nil
}

// ListComments retrieves active comments of a publication newest first.
func (r *Repository) ListComments(ctx context.Context, publicationID string) ([]domain.Comment, error) {
	query := `
		SELECT
			c.id, c.publication_id, c.author_id, c.text, c.status,
			(SELECT COUNT(*) FROM comment_likes cl WHERE cl.comment_id = c.id),
			c.created_at, c.updated_at
		FROM comments c
		WHERE c.publication_id = $1 AND c.status = 'active'
		ORDER BY c.created_at DESC
	`
	rows, err := r.db.Query(ctx, query, publicationID)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	defer rows.Close()

	comments := make([]domain.Comment, 0)
	for rows.Next() {
		var comment domain.Comment
		err := rows.Scan(
			&comment.ID,
			&comment.PublicationID,
			&comment.AuthorID,
			&comment.Text,
			&comment.Status,
			&comment.LikeCount,
			&comment.CreatedAt,
			&comment.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		comments = append(comments, comment)
	}

	return comments, rows.Err()
}

// UpdateComment updates a comment's text.
func (r *Repository) UpdateComment(ctx context.Context, comment *domain.Comment) error {
	query := `
		UPDATE comments
		SET text = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`
	err := r.db.QueryRow(ctx, query, comment.ID, comment.Text).Scan(&comment.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return content.ErrCommentNotFound
		}
		return fmt.Errorf("update comment: %w", err)
	}
	return nil
}

// SetCommentStatus flips the soft-delete state of a single comment.
func (r *Repository) SetCommentStatus(ctx context.Context, id string, status domain.ContentStatus) error {
	query := `UPDATE comments SET status = $2, updated_at = NOW() WHERE id = $1`
	result, err := r.db.Exec(ctx, query, id, status)
	if err != nil {
		return fmt.Errorf("set comment status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return content.ErrCommentNotFound
	}
	return nil
}

// BeginTx starts a new database transaction.
func (r *Repository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	return r.db.Begin(ctx)
}

// SetPublicationStatusTx flips a publication's soft-delete state within a
// transaction.
func (r *Repository) SetPublicationStatusTx(ctx context.Context, tx pgx.Tx, id string, status domain.ContentStatus) error {
	query := `UPDATE publications SET status = $2, updated_at = NOW() WHERE id = $1`
	result, err := tx.Exec(ctx, query, id, status)
	if err != nil {
		return fmt.Errorf("set publication status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return content.ErrPublicationNotFound
	}
	return nil
}

// SetCommentsStatusByPublicationTx moves every comment of a publication to
// the given state within a transaction and returns how many rows moved.
func (r *Repository) SetCommentsStatusByPublicationTx(ctx context.Context, tx pgx.Tx, publicationID string, status domain.ContentStatus) (int64, error) {
	query := `UPDATE comments SET status = $2, updated_at = NOW() WHERE publication_id = $1`
	result, err := tx.Exec(ctx, query, publicationID, status)
	if err != nil {
		return 0, fmt.Errorf("set comments status: %w", err)
	}
	return result.RowsAffected(), nil
}

// TogglePublicationLike flips a user's like on a publication. DELETE runs
// first; when nothing was deleted the like is inserted. ON CONFLICT absorbs
// the race where two toggles insert at once, and the join-table primary key
// keeps each (publication, user) pair single.
func (r *Repository) TogglePublicationLike(ctx context.Context, publicationID, userID string) (bool, int, error) {
	return r.toggleLike(ctx, "publication_likes", "publication_id", publicationID, userID)
}

// ToggleCommentLike flips a user's like on a comment.
func (r *Repository) ToggleCommentLike(ctx context.Context, commentID, userID string) (bool, int, error) {
	return r.toggleLike(ctx, "comment_likes", "comment_id", commentID, userID)
}

func (r *Repository) toggleLike(ctx context.Context, table, column, targetID, userID string) (bool, int, error) {
	deleteQuery := fmt.Sprintf(`DELETE FROM %s WHERE %s = $1 AND user_id = $2`, table, column)
	result, err := r.db.Exec(ctx, deleteQuery, targetID, userID)
	if err != nil {
		return false, 0, fmt.Errorf("delete like: %w", err)
	}

	liked := false
	if result.RowsAffected() == 0 {
		insertQuery := fmt.Sprintf(
			`INSERT INTO %s (%s, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			table, column,
		)
		if _, err := r.db.Exec(ctx, insertQuery, targetID, userID); err != nil {
			return false, 0, fmt.Errorf("insert like: %w", err)
		}
		liked = true
	}

	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE %s = $1`, table, column)
	var count int
	if err := r.db.QueryRow(ctx, countQuery, targetID).Scan(&count); err != nil {
		return false, 0, fmt.Errorf("count likes: %w", err)
	}
	return liked, count, nil
}
