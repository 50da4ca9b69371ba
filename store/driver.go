package store

import (
	"context"
	"database/sql"
)

// Driver is an interface for store driver.
// It contains all methods that store database driver should implement.
type Driver interface {
	GetDB() *sql.DB
	Close() error

	IsInitialized(ctx context.Context) (bool, error)

	// Post model related methods.
	CreatePost(ctx context.Context, create *Post) (*Post, error)
	ListPosts(ctx context.Context, find *FindPost) ([]*Post, error)
	UpdatePost(ctx context.Context, update *UpdatePost) error
	DeletePost(ctx context.Context, delete *DeletePost) error

	// Comment model related methods.
	CreateComment(ctx context.Context, create *Comment) (*Comment, error)
	ListComments(ctx context.Context, find *FindComment) ([]*Comment, error)
	DeleteComment(ctx context.Context, delete *DeleteComment) error

	// User model related methods.
	CreateUser(ctx context.Context, create *User) (*User, error)
	ListUsers(ctx context.Context, find *FindUser) ([]*User, error)
	UpdateUser(ctx context.Context, update *UpdateUser) (*User, error)
}
