package store

import (
	"context"
)

// Post is the object representing a blog post.
type Post struct {
	ID        int32
	UID       string
	CreatorID int32
	RowStatus RowStatus
	CreatedTs int64
	UpdatedTs int64
	Title     string
	Subtitle  string
	Body      string
	ImageURL  string
	Tags      []string
}

// FindPost is the find condition for post.
type FindPost struct {
	ID        *int32
	UID       *string
	CreatorID *int32
	RowStatus *RowStatus

	// IDList restricts results to the given post IDs.
	IDList []int32

	// CreatorIDList restricts results to posts by any of the given
	// creators.
	CreatorIDList []int32

	// Tag filters posts carrying the given tag.
	Tag *string

	// TagList filters posts carrying any of the given tags.
	TagList []string

	// ContentSearch matches posts whose title, subtitle or body contains
	// every given term (case-insensitive substring).
	ContentSearch []string

	// OnlyActiveCreators restricts results to posts whose author has a
	// NORMAL row status.
	OnlyActiveCreators bool

	// Pagination
	Limit  *int
	Offset *int
}

// UpdatePost is the update request for post.
type UpdatePost struct {
	ID        int32
	UpdatedTs *int64
	RowStatus *RowStatus
	Title     *string
	Subtitle  *string
	Body      *string
	ImageURL  *string
	Tags      []string
}

// DeletePost is the delete request for post.
type DeletePost struct {
	ID int32
}

// CreatePost creates a new post.
func (s *Store) CreatePost(ctx context.Context, create *Post) (*Post, error) {
	return s.driver.CreatePost(ctx, create)
}

// ListPosts lists posts with filter.
func (s *Store) ListPosts(ctx context.Context, find *FindPost) ([]*Post, error) {
	return s.driver.ListPosts(ctx, find)
}

// GetPost gets a single post with filter.
func (s *Store) GetPost(ctx context.Context, find *FindPost) (*Post, error) {
	list, err := s.driver.ListPosts(ctx, find)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

// UpdatePost updates a post.
func (s *Store) UpdatePost(ctx context.Context, update *UpdatePost) error {
	return s.driver.UpdatePost(ctx, update)
}

// DeletePost deletes a post and its comments.
func (s *Store) DeletePost(ctx context.Context, delete *DeletePost) error {
	return s.driver.DeletePost(ctx, delete)
}
