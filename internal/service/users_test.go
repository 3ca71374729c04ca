package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/murmurapp/murmur-server/internal/domain"
	domainerrors "github.com/murmurapp/murmur-server/internal/errors"
	"github.com/murmurapp/murmur-server/internal/interaction"
	"github.com/murmurapp/murmur-server/internal/query"
	"github.com/murmurapp/murmur-server/internal/validation"
)

func ptr[T any](v T) *T { return &v }

func TestUserService_ListHidesPasswordHash(t *testing.T) {
	_, _, users, s := setupServices(t)
	createTestUser(t, s, "user-1")
	createTestUser(t, s, "user-2")

	res, err := users.List(context.Background(), query.Params{"sort": {"name"}})
	require.NoError(t, err)
	require.Len(t, res.Items, 2)
	assert.Equal(t, "user-1", res.Items[0].ID())
	for _, item := range res.Items {
		assert.NotContains(t, item, "passwordHash")
	}

	_, err = users.List(context.Background(), query.Params{"passwordHash": {"secret-hash"}})
	assert.ErrorIs(t, err, domainerrors.ErrQuery)
}

func TestUserService_Get(t *testing.T) {
	_, _, users, s := setupServices(t)
	createTestUser(t, s, "user-1")

	profile, err := users.Get(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, "Name user-1", profile.Name)

	_, err = users.Get(context.Background(), "user-missing")
	require.ErrorIs(t, err, domainerrors.ErrNotFound)
	assert.Contains(t, err.Error(), "no user found with id: user-missing")
}

func TestUserService_UpdateProfile(t *testing.T) {
	_, _, users, s := setupServices(t)
	ctx := context.Background()
	createTestUser(t, s, "user-1")
	createTestUser(t, s, "user-2")

	_, err := users.UpdateProfile(ctx, "user-1", "user-1", domain.ProfileUpdate{})
	require.ErrorIs(t, err, domainerrors.ErrValidation)
	assert.Contains(t, err.Error(), "No valid fields provided to update.")

	_, err = users.UpdateProfile(ctx, "user-2", "user-1", domain.ProfileUpdate{Bio: ptr("hi")})
	assert.ErrorIs(t, err, domainerrors.ErrForbidden)

	_, err = users.UpdateProfile(ctx, "user-1", "user-1", domain.ProfileUpdate{Email: ptr("nope")})
	assert.ErrorIs(t, err, domainerrors.ErrValidation)

	_, err = users.UpdateProfile(ctx, "user-1", "user-1", domain.ProfileUpdate{Email: ptr("USER-2@example.com")})
	assert.ErrorIs(t, err, domainerrors.ErrAlreadyExists)

	profile, err := users.UpdateProfile(ctx, "user-1", "user-1", domain.ProfileUpdate{Bio: ptr("writer"), Name: ptr("Ada")})
	require.NoError(t, err)
	assert.Equal(t, "writer", profile.Bio)
	assert.Equal(t, "Ada", profile.Name)
	assert.Equal(t, "user-1@example.com", profile.Email)

	stored, err := s.GetUser(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "secret-hash", stored.PasswordHash)
}

func TestUserService_UpdateProfileKeepsConcurrentLike(t *testing.T) {
	base := setupTestStore(t)
	s := &interleavingStore{Store: base}
	users := NewUserService(s, validation.New(), testLogger)
	ctx := context.Background()
	createTestUser(t, base, "user-1")
	p := createTestPosts(t, base, "user-1", 1)[0]

	s.before = func() {
		_, err := interaction.New(base).Like(ctx, "user-1", p.ID)
		require.NoError(t, err)
	}

	profile, err := users.UpdateProfile(ctx, "user-1", "user-1", domain.ProfileUpdate{Bio: ptr("writer")})
	require.NoError(t, err)
	assert.Equal(t, "writer", profile.Bio)
	assert.Equal(t, []string{p.ID}, profile.Likes)

	stored, err := base.GetUser(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, []string{p.ID}, stored.Likes)
}

func TestUserService_Delete(t *testing.T) {
	_, _, users, s := setupServices(t)
	ctx := context.Background()
	createTestUser(t, s, "user-1")

	assert.ErrorIs(t, users.Delete(ctx, "user-2", "user-1"), domainerrors.ErrForbidden)
	require.NoError(t, users.Delete(ctx, "user-1", "user-1"))
	assert.ErrorIs(t, users.Delete(ctx, "user-1", "user-1"), domainerrors.ErrNotFound)
}
