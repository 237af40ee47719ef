// Package domain defines the core entities shared by all feature packages.
package domain

import "time"

// ContentStatus tracks the soft-delete state of publications and comments.
type ContentStatus string

// Content statuses. Soft-deleted records stay in storage and can be
// reactivated; listings only return active content.
const (
	ContentActive  ContentStatus = "active"
	ContentDeleted ContentStatus = "deleted"
)

// Publication represents an area-scoped post on the board.
type Publication struct {
	ID          string        `json:"id"`
	AuthorID    string        `json:"author_id"`
	Area        Area          `json:"area"`
	Description string        `json:"description,omitempty"`
	Image       string        `json:"image"`
	Status      ContentStatus `json:"status"`
	LikeCount   int           `json:"like_count"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// Comment represents a reply attached to exactly one publication.
type Comment struct {
	ID            string        `json:"id"`
	PublicationID string        `json:"publication_id"`
	AuthorID      string        `json:"author_id"`
	Text          string        `json:"text"`
	Status        ContentStatus `json:"status"`
	LikeCount     int           `json:"like_count"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}
