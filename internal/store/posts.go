package store

import (
	"context"
	"iter"

	"github.com/murmurapp/murmur-server/internal/domain"
	"github.com/murmurapp/murmur-server/internal/query"
)

// CreatePost stores a new post, assigning its id when empty.
func (s *Store) CreatePost(ctx context.Context, post *domain.Post) error {
	if err := PreparePost(post); err != nil {
		return err
	}
	return s.posts.Create(ctx, post)
}

// GetPost loads a post by id.
func (s *Store) GetPost(ctx context.Context, id string) (*domain.Post, error) {
	return s.posts.Get(ctx, id)
}

// UpdatePost replaces a stored post.
func (s *Store) UpdatePost(ctx context.Context, post *domain.Post) error {
	post.Normalize()
	post.Touch()
	return s.posts.Update(ctx, post)
}

// DeletePost removes a post. Comments and relation entries are left in place.
func (s *Store) DeletePost(ctx context.Context, id string) error {
	return s.posts.Delete(ctx, id)
}

// ListPosts returns every post.
func (s *Store) ListPosts(ctx context.Context) ([]*domain.Post, error) {
	return collect(s.posts.All(ctx))
}

// Posts returns the query source for posts.
func (s *Store) Posts() query.Source {
	return s.posts
}

func collect[T any](seq iter.Seq2[*T, error]) ([]*T, error) {
	var out []*T
	for v, err := range seq {
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// UpdatePostFunc applies fn to the latest stored copy of the post and saves
// the result atomically. Fields fn leaves alone keep their stored values.
func (s *Store) UpdatePostFunc(ctx context.Context, id string, fn func(*domain.Post) error) (*domain.Post, error) {
	return s.posts.UpdateFunc(ctx, id, PostUpdater(fn))
}
