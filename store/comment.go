package store

import (
	"context"
)

// Comment is the object representing a comment on a post.
type Comment struct {
	ID        int32
	UID       string
	PostID    int32
	CreatorID int32
	CreatedTs int64
	Content   string
}

// FindComment is the find condition for comment.
type FindComment struct {
	ID        *int32
	UID       *string
	PostID    *int32
	CreatorID *int32

	// OnlyActiveCreators restricts results to comments whose author has a
	// NORMAL row status.
	OnlyActiveCreators bool
}

// DeleteComment is the delete request for comment.
type DeleteComment struct {
	ID int32
}

// CreateComment creates a new comment.
func (s *Store) CreateComment(ctx context.Context, create *Comment) (*Comment, error) {
	return s.driver.CreateComment(ctx, create)
}

// ListComments lists comments with filter.
func (s *Store) ListComments(ctx context.Context, find *FindComment) ([]*Comment, error) {
	return s.driver.ListComments(ctx, find)
}

// GetComment gets a single comment with filter.
func (s *Store) GetComment(ctx context.Context, find *FindComment) (*Comment, error) {
	list, err := s.driver.ListComments(ctx, find)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

// DeleteComment deletes a comment.
func (s *Store) DeleteComment(ctx context.Context, delete *DeleteComment) error {
	return s.driver.DeleteComment(ctx, delete)
}
