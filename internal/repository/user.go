package repository

import (
	"context"
	"errors"

	"blog-server/internal/domain"
)

var (
	// ErrUserNotFound is returned when no user exists for the given id or name.
	ErrUserNotFound = errors.New("user not found")
	// ErrUserAlreadyExists is returned when a create or rename would claim a
	// user name that another live user already holds.
	ErrUserAlreadyExists = errors.New("user already exists")
)

// UserRepository defines persistence operations for User entities. No two
// live users ever share a name: Create and Update perform the uniqueness
// check and the mutation as one atomic step.
type UserRepository interface {
	// List returns users ordered by ascending id (creation order, since ids
	// are time-ordered) after skipping the first skip entries, at most limit
	// of them.
	List(ctx context.Context, skip, limit int) ([]domain.User, error)

	// Get looks up a single user by id.
	Get(ctx context.Context, id domain.UserID) (*domain.User, error)

	// GetByName looks up a single user by exact name.
	GetByName(ctx context.Context, name domain.UserName) (*domain.User, error)

	// Create stores a new user with a fresh id. The name uniqueness check,
	// id allocation and insert happen under one critical section.
	Create(ctx context.Context, name domain.UserName, displayName, intro, email string, showEmail bool, pwHash []byte) (*domain.User, error)

	// Update applies the patch to an existing user. A rename checks the new
	// name against all other users atomically with the commit.
	Update(ctx context.Context, id domain.UserID, patch domain.UserPatch) (*domain.User, error)

	// Delete removes the user. Articles authored by the user keep their
	// author name snapshot.
	Delete(ctx context.Context, id domain.UserID) error

	// ValidateName reports whether the name is free, returning it wrapped on
	// success. The answer is advisory: Create and Update re-check under
	// their own lock, so a name can be claimed between this call and a
	// subsequent mutation.
	ValidateName(ctx context.Context, name string) (domain.UserName, error)
}
