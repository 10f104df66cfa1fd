package db

import (
	"context"
	"errors"

	"github.com/wuwenbin0122/campus-accounts/internal/models"
)

var (
	ErrDuplicateUsername = errors.New("db: username already exists")
	ErrUserNotFound      = errors.New("db: user not found")
)

// UserStore persists user records. Username is the lookup key; an empty
// username is never indexed and never matches a lookup.
type UserStore interface {
	// Create inserts a new record, failing with ErrDuplicateUsername when the
	// non-empty username is already taken.
	Create(ctx context.Context, user *models.User) error

	// FindByUsername returns the record or ErrUserNotFound.
	FindByUsername(ctx context.Context, username string) (*models.User, error)

	// Save persists the mutable profile attributes (interests, MBTI type,
	// updated timestamp) of the record identified by user.ID.
	Save(ctx context.Context, user *models.User) error
}
