package store

import (
	"context"

	"github.com/murmurapp/murmur-server/internal/domain"
	"github.com/murmurapp/murmur-server/internal/query"
)

// CreateComment stores a new comment.
func (s *Store) CreateComment(ctx context.Context, comment *domain.Comment) error {
	if err := PrepareComment(comment); err != nil {
		return err
	}
	return s.comments.Create(ctx, comment)
}

// GetComment loads a comment by id.
func (s *Store) GetComment(ctx context.Context, id string) (*domain.Comment, error) {
	return s.comments.Get(ctx, id)
}

// UpdateComment replaces a stored comment.
func (s *Store) UpdateComment(ctx context.Context, comment *domain.Comment) error {
	comment.SetText(comment.Text)
	comment.Touch()
	return s.comments.Update(ctx, comment)
}

// DeleteComment removes a comment.
func (s *Store) DeleteComment(ctx context.Context, id string) error {
	return s.comments.Delete(ctx, id)
}

// Comments returns the query source for comments.
func (s *Store) Comments() query.Source {
	return s.comments
}
