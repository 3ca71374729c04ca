// Package storetest holds behavioural tests shared by every RecordStore backend.
package storetest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/murmurapp/murmur-server/internal/domain"
	domainerrors "github.com/murmurapp/murmur-server/internal/errors"
	"github.com/murmurapp/murmur-server/internal/query"
	"github.com/murmurapp/murmur-server/internal/store"
)

// Factory opens a fresh, empty store for one test.
type Factory func(t *testing.T) store.RecordStore

// Run executes the shared suite against stores produced by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("UserCRUD", func(t *testing.T) { testUserCRUD(t, newStore(t)) })
	t.Run("UniqueEmail", func(t *testing.T) { testUniqueEmail(t, newStore(t)) })
	t.Run("PostCRUD", func(t *testing.T) { testPostCRUD(t, newStore(t)) })
	t.Run("UpdatePostFunc", func(t *testing.T) { testUpdatePostFunc(t, newStore(t)) })
	t.Run("UpdateUserFunc", func(t *testing.T) { testUpdateUserFunc(t, newStore(t)) })
	t.Run("CommentCRUD", func(t *testing.T) { testCommentCRUD(t, newStore(t)) })
	t.Run("ValidationOnWrite", func(t *testing.T) { testValidation(t, newStore(t)) })
	t.Run("QueryScenario", func(t *testing.T) { testQueryScenario(t, newStore(t)) })
	t.Run("QueryOperators", func(t *testing.T) { testQueryOperators(t, newStore(t)) })
	t.Run("QueryProjection", func(t *testing.T) { testQueryProjection(t, newStore(t)) })
	t.Run("CountCoversPageDuringDeletes", func(t *testing.T) { testCountDuringDeletes(t, newStore(t)) })
	t.Run("CancelledContext", func(t *testing.T) { testCancelled(t, newStore(t)) })
}

var baseTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newUser(name string) *domain.User {
	return &domain.User{Name: name, Email: name + "@example.com", PasswordHash: "hash-" + name}
}

func newPost(author string, n int) *domain.Post {
	return &domain.Post{
		Record:    domain.Record{ID: fmt.Sprintf("post-%s-%02d", author, n), CreatedAt: baseTime.Add(time.Duration(n) * time.Hour)},
		Author:    author,
		Title:     fmt.Sprintf("title %02d", n),
		Content:   "content",
		LikeCount: n % 4,
	}
}

func testUserCRUD(t *testing.T, s store.RecordStore) {
	ctx := context.Background()

	u := newUser("ada")
	u.Email = "  Ada@Example.com "
	require.NoError(t, s.CreateUser(ctx, u))
	require.NotEmpty(t, u.ID)
	assert.Equal(t, "ada@example.com", u.Email)
	assert.False(t, u.CreatedAt.IsZero())

	got, err := s.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "ada", got.Name)
	assert.Equal(t, []string{}, got.Likes)
	assert.True(t, got.CreatedAt.Equal(u.CreatedAt))

	byEmail, err := s.GetUserByEmail(ctx, "ADA@example.COM")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byEmail.ID)

	got.Bio = "mathematician"
	got.Likes = []string{"post-1"}
	require.NoError(t, s.UpdateUser(ctx, got))

	again, err := s.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "mathematician", again.Bio)
	assert.Equal(t, []string{"post-1"}, again.Likes)

	users, err := s.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)

	require.NoError(t, s.DeleteUser(ctx, u.ID))
	_, err = s.GetUser(ctx, u.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.ErrorIs(t, s.DeleteUser(ctx, u.ID), store.ErrNotFound)

	_, err = s.GetUserByEmail(ctx, "ada@example.com")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func testUniqueEmail(t *testing.T, s store.RecordStore) {
	ctx := context.Background()

	a := newUser("ada")
	require.NoError(t, s.CreateUser(ctx, a))

	dup := newUser("other")
	dup.Email = "ADA@example.com"
	err := s.CreateUser(ctx, dup)
	require.ErrorIs(t, err, store.ErrAlreadyExists)
	assert.ErrorIs(t, err, domainerrors.ErrAlreadyExists)

	b := newUser("bob")
	require.NoError(t, s.CreateUser(ctx, b))
	b.Email = "ada@example.com"
	assert.ErrorIs(t, s.UpdateUser(ctx, b), store.ErrAlreadyExists)

	// Changing the email frees the old address.
	a.Email = "ada@new.example.com"
	require.NoError(t, s.UpdateUser(ctx, a))
	b.Email = "ada@example.com"
	require.NoError(t, s.UpdateUser(ctx, b))

	got, err := s.GetUserByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, b.ID, got.ID)
}

func testPostCRUD(t *testing.T, s store.RecordStore) {
	ctx := context.Background()

	p := &domain.Post{Author: "user-1", Title: "Hello", Content: "World"}
	require.NoError(t, s.CreatePost(ctx, p))
	require.NotEmpty(t, p.ID)
	assert.ErrorIs(t, s.CreatePost(ctx, p), store.ErrAlreadyExists)

	got, err := s.GetPost(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Hello", got.Title)
	assert.Equal(t, []string{}, got.Likes)
	assert.Empty(t, got.SharedFrom)

	got.Likes = []string{"user-2"}
	got.LikeCount = 1
	require.NoError(t, s.UpdatePost(ctx, got))

	again, err := s.GetPost(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, again.LikeCount)
	assert.Equal(t, []string{"user-2"}, again.Likes)

	missing := &domain.Post{Record: domain.Record{ID: "post-missing"}, Author: "user-1", Title: "x", Content: "y"}
	assert.ErrorIs(t, s.UpdatePost(ctx, missing), store.ErrNotFound)

	posts, err := s.ListPosts(ctx)
	require.NoError(t, err)
	assert.Len(t, posts, 1)

	require.NoError(t, s.DeletePost(ctx, p.ID))
	_, err = s.GetPost(ctx, p.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func testUpdatePostFunc(t *testing.T, s store.RecordStore) {
	ctx := context.Background()

	p := &domain.Post{Author: "user-1", Title: "old", Content: "body"}
	require.NoError(t, s.CreatePost(ctx, p))
	stale, err := s.GetPost(ctx, p.ID)
	require.NoError(t, err)

	// A write that lands after the stale read must survive the next edit.
	_, err = s.UpdatePostFunc(ctx, p.ID, func(p *domain.Post) error {
		p.Likes = append(p.Likes, "user-2")
		p.LikeCount = len(p.Likes)
		return nil
	})
	require.NoError(t, err)

	updated, err := s.UpdatePostFunc(ctx, stale.ID, func(p *domain.Post) error {
		p.Title = "new"
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "new", updated.Title)
	assert.Equal(t, []string{"user-2"}, updated.Likes)
	assert.False(t, updated.UpdatedAt.Before(stale.UpdatedAt))

	got, err := s.GetPost(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "new", got.Title)
	assert.Equal(t, []string{"user-2"}, got.Likes)
	assert.Equal(t, 1, got.LikeCount)

	boom := fmt.Errorf("rejected")
	_, err = s.UpdatePostFunc(ctx, p.ID, func(p *domain.Post) error {
		p.Title = "discarded"
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = s.UpdatePostFunc(ctx, p.ID, func(p *domain.Post) error {
		p.LikeCount = -1
		return nil
	})
	assert.ErrorIs(t, err, domainerrors.ErrValidation)

	got, err = s.GetPost(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "new", got.Title)
	assert.Equal(t, 1, got.LikeCount)

	called := false
	_, err = s.UpdatePostFunc(ctx, "post-missing", func(*domain.Post) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.False(t, called)
}

func testUpdateUserFunc(t *testing.T, s store.RecordStore) {
	ctx := context.Background()

	a := newUser("ada")
	b := newUser("bob")
	require.NoError(t, s.CreateUser(ctx, a))
	require.NoError(t, s.CreateUser(ctx, b))

	_, err := s.UpdateUserFunc(ctx, a.ID, func(u *domain.User) error {
		u.Likes = append(u.Likes, "post-1")
		return nil
	})
	require.NoError(t, err)

	updated, err := s.UpdateUserFunc(ctx, a.ID, func(u *domain.User) error {
		u.Bio = "mathematician"
		u.Email = " ADA@new.example.com "
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ada@new.example.com", updated.Email)
	assert.Equal(t, []string{"post-1"}, updated.Likes)

	byEmail, err := s.GetUserByEmail(ctx, "ada@new.example.com")
	require.NoError(t, err)
	assert.Equal(t, a.ID, byEmail.ID)
	assert.Equal(t, "mathematician", byEmail.Bio)

	_, err = s.UpdateUserFunc(ctx, b.ID, func(u *domain.User) error {
		u.Email = "ada@new.example.com"
		return nil
	})
	assert.ErrorIs(t, err, store.ErrAlreadyExists)

	got, err := s.GetUser(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "bob@example.com", got.Email)

	_, err = s.UpdateUserFunc(ctx, "user-missing", func(*domain.User) error { return nil })
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func testCommentCRUD(t *testing.T, s store.RecordStore) {
	ctx := context.Background()

	c := &domain.Comment{Post: "post-1", Author: "user-1", Text: "  first!  "}
	require.NoError(t, s.CreateComment(ctx, c))
	assert.Equal(t, "first!", c.Text)

	got, err := s.GetComment(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "post-1", got.Post)

	got.Text = "edited"
	require.NoError(t, s.UpdateComment(ctx, got))

	res, err := query.New(query.CommentSchema).Run(ctx, s.Comments(), query.Where(query.Eq("post", "post-1")), query.Params{}, true)
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "edited", res.Items[0]["text"])

	require.NoError(t, s.DeleteComment(ctx, c.ID))
	_, err = s.GetComment(ctx, c.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func testValidation(t *testing.T, s store.RecordStore) {
	ctx := context.Background()

	err := s.CreateUser(ctx, &domain.User{Name: "x", Email: "not-an-email"})
	assert.ErrorIs(t, err, domainerrors.ErrValidation)

	err = s.CreatePost(ctx, &domain.Post{Author: "user-1", Title: "  ", Content: "body"})
	assert.ErrorIs(t, err, domainerrors.ErrValidation)

	err = s.CreateComment(ctx, &domain.Comment{Post: "post-1", Author: "user-1", Text: "   "})
	assert.ErrorIs(t, err, domainerrors.ErrValidation)

	p := &domain.Post{Author: "user-1", Title: "ok", Content: "ok"}
	require.NoError(t, s.CreatePost(ctx, p))
	p.LikeCount = -1
	assert.ErrorIs(t, s.UpdatePost(ctx, p), domainerrors.ErrValidation)
}

func seedPosts(t *testing.T, s store.RecordStore, author string, n int) {
	t.Helper()
	for i := range n {
		require.NoError(t, s.CreatePost(context.Background(), newPost(author, i)))
	}
}

func ids(docs []query.Document) []string {
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = d.ID()
	}
	return out
}

func testQueryScenario(t *testing.T, s store.RecordStore) {
	seedPosts(t, s, "u1", 12)
	seedPosts(t, s, "u2", 3)

	params := query.Params{
		"author":       {"u1"},
		query.KeySort:  {"-createdAt"},
		query.KeyLimit: {"5"},
		query.KeyPage:  {"2"},
	}
	res, err := query.New(query.PostSchema).Run(context.Background(), s.Posts(), nil, params, true)
	require.NoError(t, err)

	assert.Equal(t, []string{"post-u1-06", "post-u1-05", "post-u1-04", "post-u1-03", "post-u1-02"}, ids(res.Items))
	assert.Equal(t, 12, res.Total)
	assert.True(t, res.HasMore)
}

func testQueryOperators(t *testing.T, s store.RecordStore) {
	ctx := context.Background()
	seedPosts(t, s, "u1", 8)

	liked := newPost("u2", 0)
	liked.Likes = []string{"user-a", "user-b"}
	liked.LikeCount = 2
	require.NoError(t, s.CreatePost(ctx, liked))

	p := query.New(query.PostSchema)
	run := func(params query.Params, base query.Predicate) []string {
		t.Helper()
		res, err := p.Run(ctx, s.Posts(), base, params, true)
		require.NoError(t, err)
		assert.Len(t, res.Items, res.Total)
		return ids(res.Items)
	}

	assert.Equal(t, []string{"post-u1-02", "post-u1-03", "post-u1-06", "post-u1-07"},
		run(query.Params{"likeCount[gte]": {"2"}, "author": {"u1"}, query.KeySort: {"createdAt"}}, nil))

	assert.Equal(t, []string{"post-u1-07", "post-u1-03", "post-u1-06", "post-u1-02"},
		run(query.Params{"likeCount[gt]": {"1"}, "author": {"u1"}, query.KeySort: {"-likeCount,-createdAt"}}, nil))

	assert.Equal(t, []string{"post-u1-01", "post-u1-00"},
		run(query.Params{"createdAt[lt]": {baseTime.Add(2 * time.Hour).Format(time.RFC3339)}, "author": {"u1"}}, nil))

	assert.Equal(t, []string{"post-u1-01", "post-u1-04"},
		run(query.Params{"title": {"title 01", "title 04"}, "author": {"u1"}, query.KeySort: {"title"}}, nil))

	assert.Equal(t, []string{"post-u2-00"}, run(query.Params{}, query.Where(query.Eq("likes", "user-b"))))
	assert.Empty(t, run(query.Params{"likes": {"user-z"}}, nil))
}

func testQueryProjection(t *testing.T, s store.RecordStore) {
	ctx := context.Background()
	seedPosts(t, s, "u1", 1)

	res, err := query.New(query.PostSchema).Run(ctx, s.Posts(), nil, query.Params{query.KeyFields: {"title,likeCount"}}, false)
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.ElementsMatch(t, []string{"id", "title", "likeCount"}, keys(res.Items[0]))

	u := newUser("ada")
	require.NoError(t, s.CreateUser(ctx, u))
	users, err := query.New(query.UserSchema).Run(ctx, s.Users(), nil, query.Params{}, true)
	require.NoError(t, err)
	require.Len(t, users.Items, 1)
	assert.NotContains(t, users.Items[0], "passwordHash")
	assert.Equal(t, "ada", users.Items[0]["name"])
}

func testCountDuringDeletes(t *testing.T, s store.RecordStore) {
	ctx := context.Background()
	seedPosts(t, s, "u1", 30)

	done := make(chan error, 1)
	go func() {
		for i := range 30 {
			if err := s.DeletePost(ctx, fmt.Sprintf("post-u1-%02d", i)); err != nil {
				done <- err
				return
			}
		}
		done <- nil
	}()

	p := query.New(query.PostSchema)
	params := query.Params{query.KeyLimit: {"7"}, query.KeyPage: {"2"}}
	for range 50 {
		res, err := p.Run(ctx, s.Posts(), nil, params, true)
		require.NoError(t, err)
		if len(res.Items) > 0 {
			assert.GreaterOrEqual(t, res.Total, res.Skip+len(res.Items))
		}
		assert.Equal(t, res.Skip+len(res.Items) < res.Total, res.HasMore)
	}
	require.NoError(t, <-done)
}

func testCancelled(t *testing.T, s store.RecordStore) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.GetPost(ctx, "post-1")
	assert.ErrorIs(t, err, context.Canceled)

	_, err = query.New(query.PostSchema).Run(ctx, s.Posts(), nil, query.Params{}, true)
	assert.ErrorIs(t, err, context.Canceled)
}

func keys(d query.Document) []string {
	out := make([]string, 0, len(d))
	for k := range d {
		out = append(out, k)
	}
	return out
}
