package service

import (
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/murmurapp/murmur-server/internal/domain"
	"github.com/murmurapp/murmur-server/internal/store"
	"github.com/murmurapp/murmur-server/internal/validation"
)

var testLogger = slog.New(slog.DiscardHandler)

func setupTestStore(t *testing.T) *store.Store {
	t.Helper()

	s, err := store.NewInMemory(nil, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func setupServices(t *testing.T) (*PostService, *CommentService, *UserService, *store.Store) {
	t.Helper()

	s := setupTestStore(t)
	v := validation.New()
	return NewPostService(s, v, testLogger),
		NewCommentService(s, testLogger),
		NewUserService(s, v, testLogger),
		s
}

func createTestUser(t *testing.T, s store.RecordStore, id string) *domain.User {
	t.Helper()
	u := &domain.User{
		Record:       domain.Record{ID: id},
		Name:         "Name " + id,
		Email:        id + "@example.com",
		PasswordHash: "secret-hash",
		Avatar:       id + ".png",
	}
	require.NoError(t, s.CreateUser(context.Background(), u))
	return u
}

func createTestPosts(t *testing.T, s store.RecordStore, author string, n int) []*domain.Post {
	t.Helper()
	base := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)

	posts := make([]*domain.Post, n)
	for i := range n {
		p := &domain.Post{
			Record:  domain.Record{ID: fmt.Sprintf("post-%s-%02d", author, i+1), CreatedAt: base.Add(time.Duration(i) * time.Minute)},
			Author:  author,
			Title:   fmt.Sprintf("post %d", i+1),
			Content: "content",
		}
		require.NoError(t, s.CreatePost(context.Background(), p))
		posts[i] = p
	}
	return posts
}

// interleavingStore runs before once, ahead of the next read-modify-write,
// to stand in for a request that commits while a service call is in flight.
type interleavingStore struct {
	*store.Store
	before func()
}

func (s *interleavingStore) runBefore() {
	if hook := s.before; hook != nil {
		s.before = nil
		hook()
	}
}

func (s *interleavingStore) UpdatePostFunc(ctx context.Context, id string, fn func(*domain.Post) error) (*domain.Post, error) {
	s.runBefore()
	return s.Store.UpdatePostFunc(ctx, id, fn)
}

func (s *interleavingStore) UpdateUserFunc(ctx context.Context, id string, fn func(*domain.User) error) (*domain.User, error) {
	s.runBefore()
	return s.Store.UpdateUserFunc(ctx, id, fn)
}
