package service

import (
	"context"
	"log/slog"

	"github.com/murmurapp/murmur-server/internal/domain"
	domainerrors "github.com/murmurapp/murmur-server/internal/errors"
	"github.com/murmurapp/murmur-server/internal/query"
	"github.com/murmurapp/murmur-server/internal/store"
	"github.com/murmurapp/murmur-server/internal/validation"
)

// UserService manages user profiles.
type UserService struct {
	store     store.RecordStore
	pipeline  *query.Pipeline
	validator *validation.Validator
	logger    *slog.Logger
}

// NewUserService creates a new user service.
func NewUserService(s store.RecordStore, v *validation.Validator, logger *slog.Logger, opts ...query.Option) *UserService {
	return &UserService{
		store:     s,
		pipeline:  query.New(query.UserSchema, opts...),
		validator: v,
		logger:    logger,
	}
}

// List returns a page of users. Password hashes are never included.
func (s *UserService) List(ctx context.Context, params query.Params) (*query.Result, error) {
	return s.pipeline.Run(ctx, s.store.Users(), nil, params, true)
}

// Get returns the public profile of a user.
func (s *UserService) Get(ctx context.Context, id string) (*domain.Profile, error) {
	user, err := loadUser(ctx, s.store, id)
	if err != nil {
		return nil, err
	}
	profile := user.Profile()
	return &profile, nil
}

// UpdateProfile applies upd to the actor's own profile.
func (s *UserService) UpdateProfile(ctx context.Context, actorID, id string, upd domain.ProfileUpdate) (*domain.Profile, error) {
	if id != actorID {
		return nil, domainerrors.Forbidden("you can only update your own profile")
	}
	if upd.Empty() {
		return nil, errNoUpdateFields
	}
	if err := s.validator.Validate(upd); err != nil {
		return nil, err
	}

	user, err := s.store.UpdateUserFunc(ctx, id, func(u *domain.User) error {
		upd.Apply(u)
		return nil
	})
	if err != nil {
		if domainerrors.Is(err, domainerrors.ErrAlreadyExists) {
			return nil, domainerrors.AlreadyExists("email is already in use").WithCause(err)
		}
		return nil, missingUser(err, id)
	}

	profile := user.Profile()
	return &profile, nil
}

// Delete removes the actor's own account. Posts, comments and relation
// entries referring to it are left for the reconciler.
func (s *UserService) Delete(ctx context.Context, actorID, id string) error {
	if id != actorID {
		return domainerrors.Forbidden("you can only delete your own account")
	}
	if _, err := loadUser(ctx, s.store, id); err != nil {
		return err
	}
	if err := s.store.DeleteUser(ctx, id); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "user deleted", "user_id", id)
	return nil
}
