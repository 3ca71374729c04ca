package store

import (
	"context"
	"strings"

	"github.com/murmurapp/murmur-server/internal/domain"
	"github.com/murmurapp/murmur-server/internal/query"
)

// CreateUser stores a new user. The email must be unique ignoring case.
func (s *Store) CreateUser(ctx context.Context, user *domain.User) error {
	if err := PrepareUser(user); err != nil {
		return err
	}
	return s.users.Create(ctx, user)
}

// GetUser loads a user by id.
func (s *Store) GetUser(ctx context.Context, id string) (*domain.User, error) {
	return s.users.Get(ctx, id)
}

// GetUserByEmail loads a user by email, ignoring case.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.users.GetByIndex(ctx, "email", email)
}

// UpdateUser replaces a stored user.
func (s *Store) UpdateUser(ctx context.Context, user *domain.User) error {
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	user.Normalize()
	user.Touch()
	return s.users.Update(ctx, user)
}

// DeleteUser removes a user. Relation entries pointing at the user are left in place.
func (s *Store) DeleteUser(ctx context.Context, id string) error {
	return s.users.Delete(ctx, id)
}

// ListUsers returns every user.
func (s *Store) ListUsers(ctx context.Context) ([]*domain.User, error) {
	return collect(s.users.All(ctx))
}

// Users returns the query source for users.
func (s *Store) Users() query.Source {
	return s.users
}

// UpdateUserFunc applies fn to the latest stored copy of the user and saves
// the result atomically. Fields fn leaves alone keep their stored values.
func (s *Store) UpdateUserFunc(ctx context.Context, id string, fn func(*domain.User) error) (*domain.User, error) {
	return s.users.UpdateFunc(ctx, id, UserUpdater(fn))
}
