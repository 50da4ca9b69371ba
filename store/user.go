package store

import (
	"context"
)

// User is the object representing a blog author.
type User struct {
	ID        int32
	RowStatus RowStatus
	CreatedTs int64
	UpdatedTs int64
	Username  string
	Nickname  string
	Email     string
}

// FindUser is the find condition for user.
type FindUser struct {
	ID        *int32
	Username  *string
	RowStatus *RowStatus
}

// UpdateUser is the update request for user.
type UpdateUser struct {
	ID        int32
	UpdatedTs *int64
	RowStatus *RowStatus
	Nickname  *string
	Email     *string
}

// CreateUser creates a new user.
func (s *Store) CreateUser(ctx context.Context, create *User) (*User, error) {
	return s.driver.CreateUser(ctx, create)
}

// ListUsers lists users with filter.
func (s *Store) ListUsers(ctx context.Context, find *FindUser) ([]*User, error) {
	return s.driver.ListUsers(ctx, find)
}

// GetUser gets a single user with filter.
func (s *Store) GetUser(ctx context.Context, find *FindUser) (*User, error) {
	list, err := s.driver.ListUsers(ctx, find)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

// UpdateUser updates a user.
func (s *Store) UpdateUser(ctx context.Context, update *UpdateUser) (*User, error) {
	return s.driver.UpdateUser(ctx, update)
}
