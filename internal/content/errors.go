package content

import "errors"

// Content errors.
var (
	ErrPublicationNotFound = errors.New("publication not found")
	ErrCommentNotFound     = errors.New("comment not found")
	ErrPublicationDeleted  = errors.New("publication is deleted")
	ErrInvalidArea         = errors.New("invalid area")
)
