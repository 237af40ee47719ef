package content

import (
	"context"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/staffboard/staffboard/internal/domain"
	"github.com/staffboard/staffboard/internal/policy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockTx satisfies pgx.Tx for the cascade path. Only Commit and Rollback are
// implemented; the repository mock mutates its own state directly.
type mockTx struct {
	pgx.Tx
	committed bool
}

func (t *mockTx) Commit(_ context.Context) error {
	t.committed = true
	return nil
}

func (t *mockTx) Rollback(_ context.Context) error {
	if t.committed {
		return pgx.ErrTxClosed
	}
	return nil
}

// mockRepository implements Repository for testing.
type mockRepository struct {
	pubs     map[string]*domain.Publication
	comments map[string]*domain.Comment
	likes    map[string]map[string]bool // target key -> user id -> liked
	nextID   int
	lastTx   *mockTx
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		pubs:     make(map[string]*domain.Publication),
		comments: make(map[string]*domain.Comment),
		likes:    make(map[string]map[string]bool),
	}
}

func (m *mockRepository) id(prefix string) string {
	m.nextID++
	return fmt.Sprintf("%s-%d", prefix, m.nextID)
}

func (m *mockRepository) CreatePublication(_ context.Context, pub *domain.Publication) error {
	pub.ID = m.id("pub")
	m.pubs[pub.ID] = pub
	return nil
}

func (m *mockRepository) GetPublication(_ context.Context, id string) (*domain.Publication, error) {
	if p, ok := m.pubs[id]; ok {
		return p, nil
	}
	return nil, ErrPublicationNotFound
}

func (m *mockRepository) ListPublications(_ context.Context, filters PublicationFilters) ([]domain.Publication, error) {
	pubs := make([]domain.Publication, 0)
	for _, p := range m.pubs {
		if p.Status != domain.ContentActive {
			continue
		}
		if filters.Area != nil && p.Area != *filters.Area {
			continue
		}
		if filters.AuthorID != nil && p.AuthorID != *filters.AuthorID {
			continue
		}
		pubs = append(pubs, *p)
	}
	return pubs, nil
}

func (m *mockRepository) UpdatePublication(_ context.Context, pub *domain.Publication) error {
	if _, ok := m.pubs[pub.ID]; !ok {
		return ErrPublicationNotFound
	}
	m.pubs[pub.ID] = pub
	return nil
}

func (m *mockRepository) CreateComment(_ context.Context, comment *domain.Comment) error {
	comment.ID = m.id("comment")
	m.comments[comment.ID] = comment
	return nil
}

func (m *mockRepository) GetComment(_ context.Context, id string) (*domain.Comment, error) {
	if c, ok := m.comments[id]; ok {
		return c, nil
	}
	return nil, ErrCommentNotFound
}

func (m *mockRepository) ListComments(_ context.Context, publicationID string) ([]domain.Comment, error) {
	comments := make([]domain.Comment, 0)
	for _, c := range m.comments {
		if c.PublicationID == publicationID && c.Status == domain.ContentActive {
			comments = append(comments, *c)
		}
	}
	return comments, nil
}

func (m *mockRepository) UpdateComment(_ context.Context, comment *domain.Comment) error {
	if _, ok := m.comments[comment.ID]; !ok {
		return ErrCommentNotFound
	}
	m.comments[comment.ID] = comment
	return nil
}

func (m *mockRepository) SetCommentStatus(_ context.Context, id string, status domain.ContentStatus) error {
	c, ok := m.comments[id]
	if !ok {
		return ErrCommentNotFound
	}
	c.Status = status
	return nil
}

func (m *mockRepository) BeginTx(_ context.Context) (pgx.Tx, error) {
	m.lastTx = &mockTx{}
	return m.lastTx, nil
}

func (m *mockRepository) SetPublicationStatusTx(_ context.Context, _ pgx.Tx, id string, status domain.ContentStatus) error {
	p, ok := m.pubs[id]
	if !ok {
		return ErrPublicationNotFound
	}
	p.Status = status
	return nil
}

func (m *mockRepository) SetCommentsStatusByPublicationTx(_ context.Context, _ pgx.Tx, publicationID string, status domain.ContentStatus) (int64, error) {
	var moved int64
	for _, c := range m.comments {
		if c.PublicationID == publicationID {
			c.Status = status
			moved++
		}
	}
	return moved, nil
}

func (m *mockRepository) TogglePublicationLike(_ context.Context, publicationID, userID string) (bool, int, error) {
	return m.toggle("pub:"+publicationID, userID), m.count("pub:" + publicationID), nil
}

func (m *mockRepository) ToggleCommentLike(_ context.Context, commentID, userID string) (bool, int, error) {
	return m.toggle("comment:"+commentID, userID), m.count("comment:" + commentID), nil
}

func (m *mockRepository) toggle(key, userID string) bool {
	if m.likes[key] == nil {
		m.likes[key] = make(map[string]bool)
	}
	if m.likes[key][userID] {
		delete(m.likes[key], userID)
		return false
	}
	m.likes[key][userID] = true
	return true
}

func (m *mockRepository) count(key string) int {
	return len(m.likes[key])
}

func superuser() *domain.User {
	return &domain.User{
		ID:          "root-id",
		Role:        domain.RoleSuperuser,
		Permissions: domain.NewPermissionSet(),
		Active:      true,
	}
}

func worker(id string, perms ...domain.Permission) *domain.User {
	return &domain.User{
		ID:          id,
		Role:        domain.RoleITWorker,
		Permissions: domain.NewPermissionSet(perms...),
		Active:      true,
	}
}

func seedPublication(t *testing.T, repo *mockRepository, authorID string) *domain.Publication {
	t.Helper()
	pub := &domain.Publication{
		AuthorID: authorID,
		Area:     domain.AreaIT,
		Image:    "photo.jpg",
		Status:   domain.ContentActive,
	}
	require.NoError(t, repo.CreatePublication(context.Background(), pub))
	return pub
}

func seedComment(t *testing.T, repo *mockRepository, pubID, authorID string) *domain.Comment {
	t.Helper()
	comment := &domain.Comment{
		PublicationID: pubID,
		AuthorID:      authorID,
		Text:          "a comment",
		Status:        domain.ContentActive,
	}
	require.NoError(t, repo.CreateComment(context.Background(), comment))
	return comment
}

func TestCreatePublication_WorkerNeedsPermissionAndArea(t *testing.T) {
	// Arrange
	repo := newMockRepository()
	service := NewService(repo, policy.NewEngine())

	// Act
	_, noPermErr := service.CreatePublication(context.Background(), worker("w1"), CreatePublicationInput{
		Area: domain.AreaIT, Image: "photo.jpg",
	})
	allowed, okErr := service.CreatePublication(context.Background(), worker("w1", domain.PermissionCreatePublication), CreatePublicationInput{
		Area: domain.AreaIT, Image: "photo.jpg",
	})
	_, wrongAreaErr := service.CreatePublication(context.Background(), worker("w1", domain.PermissionCreatePublication), CreatePublicationInput{
		Area: domain.AreaMarketing, Image: "photo.jpg",
	})

	// Assert
	assert.ErrorIs(t, noPermErr, policy.ErrMissingPermission)
	require.NoError(t, okErr)
	assert.Equal(t, domain.ContentActive, allowed.Status)
	assert.Equal(t, "w1", allowed.AuthorID)
	assert.ErrorIs(t, wrongAreaErr, policy.ErrWrongArea)
}

func TestCreatePublication_InvalidArea(t *testing.T) {
	// Arrange
	repo := newMockRepository()
	service := NewService(repo, policy.NewEngine())

	// Act
	_, err := service.CreatePublication(context.Background(), superuser(), CreatePublicationInput{
		Area: domain.Area("finance"), Image: "photo.jpg",
	})

	// Assert
	assert.ErrorIs(t, err, ErrInvalidArea)
}

func TestDeletePublication_CascadesComments(t *testing.T) {
	// Arrange
	repo := newMockRepository()
	service := NewService(repo, policy.NewEngine())
	author := worker("author")
	pub := seedPublication(t, repo, author.ID)
	c1 := seedComment(t, repo, pub.ID, "other-user")
	c2 := seedComment(t, repo, pub.ID, author.ID)
	unrelated := seedPublication(t, repo, author.ID)
	c3 := seedComment(t, repo, unrelated.ID, author.ID)

	// Act
	err := service.DeletePublication(context.Background(), author, pub.ID)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, domain.ContentDeleted, repo.pubs[pub.ID].Status)
	assert.Equal(t, domain.ContentDeleted, repo.comments[c1.ID].Status)
	assert.Equal(t, domain.ContentDeleted, repo.comments[c2.ID].Status)
	assert.Equal(t, domain.ContentActive, repo.comments[c3.ID].Status, "comments of other publications stay untouched")
	assert.True(t, repo.lastTx.committed, "cascade runs in a committed transaction")
}

func TestDeletePublication_NotOwnerDenied(t *testing.T) {
	// Arrange
	repo := newMockRepository()
	service := NewService(repo, policy.NewEngine())
	pub := seedPublication(t, repo, "author")

	// Act
	err := service.DeletePublication(context.Background(), worker("intruder"), pub.ID)

	// Assert
	assert.ErrorIs(t, err, policy.ErrNotOwner)
	assert.Equal(t, domain.ContentActive, repo.pubs[pub.ID].Status)
}

func TestReactivatePublication_ResurrectsAllComments(t *testing.T) {
	// Arrange
	repo := newMockRepository()
	service := NewService(repo, policy.NewEngine())
	author := worker("author")
	pub := seedPublication(t, repo, author.ID)
	individually := seedComment(t, repo, pub.ID, "other-user")

	// A comment deleted on its own before the publication goes down.
	require.NoError(t, repo.SetCommentStatus(context.Background(), individually.ID, domain.ContentDeleted))
	require.NoError(t, service.DeletePublication(context.Background(), author, pub.ID))

	// Act
	err := service.ReactivatePublication(context.Background(), author, pub.ID)

	// Assert — reactivation resurrects every comment, the individually
	// deleted one included
	require.NoError(t, err)
	assert.Equal(t, domain.ContentActive, repo.pubs[pub.ID].Status)
	assert.Equal(t, domain.ContentActive, repo.comments[individually.ID].Status)
}

func TestDeletedPublicationHiddenFromListings(t *testing.T) {
	// Arrange
	repo := newMockRepository()
	service := NewService(repo, policy.NewEngine())
	author := worker("author")
	visible := seedPublication(t, repo, author.ID)
	hidden := seedPublication(t, repo, author.ID)
	require.NoError(t, service.DeletePublication(context.Background(), author, hidden.ID))

	// Act
	pubs, err := service.ListPublications(context.Background(), PublicationFilters{})

	// Assert
	require.NoError(t, err)
	require.Len(t, pubs, 1)
	assert.Equal(t, visible.ID, pubs[0].ID)
}

func TestAddComment_DeletedPublicationRejected(t *testing.T) {
	// Arrange
	repo := newMockRepository()
	service := NewService(repo, policy.NewEngine())
	author := worker("author")
	pub := seedPublication(t, repo, author.ID)
	require.NoError(t, service.DeletePublication(context.Background(), author, pub.ID))

	// Act
	_, err := service.AddComment(context.Background(), worker("commenter"), pub.ID, "hello")

	// Assert
	assert.ErrorIs(t, err, ErrPublicationDeleted)
}

func TestUpdateComment_StrictlyAuthorOnly(t *testing.T) {
	// Arrange
	repo := newMockRepository()
	service := NewService(repo, policy.NewEngine())
	pub := seedPublication(t, repo, "author")
	comment := seedComment(t, repo, pub.ID, "commenter")

	// Act
	updated, authorErr := service.UpdateComment(context.Background(), worker("commenter"), comment.ID, "edited")
	_, superuserErr := service.UpdateComment(context.Background(), superuser(), comment.ID, "hijacked")

	// Assert — unlike delete, comment edits are not open to the superuser
	require.NoError(t, authorErr)
	assert.Equal(t, "edited", updated.Text)
	assert.ErrorIs(t, superuserErr, policy.ErrNotOwner)
}

func TestDeleteComment_AuthorOrSuperuser(t *testing.T) {
	// Arrange
	repo := newMockRepository()
	service := NewService(repo, policy.NewEngine())
	pub := seedPublication(t, repo, "author")
	ownComment := seedComment(t, repo, pub.ID, "commenter")
	otherComment := seedComment(t, repo, pub.ID, "commenter")

	// Act
	authorErr := service.DeleteComment(context.Background(), worker("commenter"), ownComment.ID)
	superuserErr := service.DeleteComment(context.Background(), superuser(), otherComment.ID)
	intruderErr := service.DeleteComment(context.Background(), worker("intruder"), otherComment.ID)

	// Assert
	require.NoError(t, authorErr)
	require.NoError(t, superuserErr)
	assert.ErrorIs(t, intruderErr, policy.ErrNotOwner)
	assert.Equal(t, domain.ContentDeleted, repo.comments[ownComment.ID].Status)
}

func TestToggleLike_DoubleToggleRestoresState(t *testing.T) {
	// Arrange
	repo := newMockRepository()
	service := NewService(repo, policy.NewEngine())
	pub := seedPublication(t, repo, "author")
	actor := worker("liker")

	// Act
	liked, count, err := service.ToggleLike(context.Background(), actor, pub.ID)
	require.NoError(t, err)
	unliked, countAfter, err := service.ToggleLike(context.Background(), actor, pub.ID)

	// Assert
	require.NoError(t, err)
	assert.True(t, liked)
	assert.Equal(t, 1, count)
	assert.False(t, unliked)
	assert.Equal(t, 0, countAfter)
}

func TestToggleLike_IndependentUsers(t *testing.T) {
	// Arrange
	repo := newMockRepository()
	service := NewService(repo, policy.NewEngine())
	pub := seedPublication(t, repo, "author")

	// Act
	_, _, err := service.ToggleLike(context.Background(), worker("alice"), pub.ID)
	require.NoError(t, err)
	liked, count, err := service.ToggleLike(context.Background(), worker("bob"), pub.ID)

	// Assert
	require.NoError(t, err)
	assert.True(t, liked)
	assert.Equal(t, 2, count, "one user's toggle never drops another user's like")
}

func TestToggleLike_UnknownPublication(t *testing.T) {
	// Arrange
	repo := newMockRepository()
	service := NewService(repo, policy.NewEngine())

	// Act
	_, _, err := service.ToggleLike(context.Background(), worker("liker"), "missing")

	// Assert
	assert.ErrorIs(t, err, ErrPublicationNotFound)
}

func TestToggleCommentLike_DoubleToggleRestoresState(t *testing.T) {
	// Arrange
	repo := newMockRepository()
	service := NewService(repo, policy.NewEngine())
	pub := seedPublication(t, repo, "author")
	comment := seedComment(t, repo, pub.ID, "commenter")
	actor := worker("liker")

	// Act
	liked, count, err := service.ToggleCommentLike(context.Background(), actor, comment.ID)
	require.NoError(t, err)
	unliked, countAfter, err := service.ToggleCommentLike(context.Background(), actor, comment.ID)

	// Assert
	require.NoError(t, err)
	assert.True(t, liked)
	assert.Equal(t, 1, count)
	assert.False(t, unliked)
	assert.Equal(t, 0, countAfter)
}
