package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/murmurapp/murmur-server/internal/domain"
	domainerrors "github.com/murmurapp/murmur-server/internal/errors"
	"github.com/murmurapp/murmur-server/internal/query"
	"github.com/murmurapp/murmur-server/internal/store"
)

// CommentService manages comments on posts.
type CommentService struct {
	store    store.RecordStore
	pipeline *query.Pipeline
	logger   *slog.Logger
}

// NewCommentService creates a new comment service.
func NewCommentService(s store.RecordStore, logger *slog.Logger, opts ...query.Option) *CommentService {
	return &CommentService{
		store:    s,
		pipeline: query.New(query.CommentSchema, opts...),
		logger:   logger,
	}
}

// ListByPost returns a page of the comments on postID with authors resolved.
func (s *CommentService) ListByPost(ctx context.Context, postID string, params query.Params) (*query.Result, error) {
	if _, err := loadPost(ctx, s.store, postID); err != nil {
		return nil, err
	}

	res, err := s.pipeline.Run(ctx, s.store.Comments(), query.Where(query.Eq("post", postID)), params, true)
	if err != nil {
		return nil, err
	}
	if err := populateAuthors(ctx, s.store, res.Items, s.logger); err != nil {
		return nil, fmt.Errorf("populate authors: %w", err)
	}
	return res, nil
}

// Get loads a comment by id.
func (s *CommentService) Get(ctx context.Context, id string) (*domain.Comment, error) {
	return s.load(ctx, id)
}

// Create adds a comment by actorID to postID.
func (s *CommentService) Create(ctx context.Context, actorID, postID, text string) (*domain.Comment, error) {
	if strings.TrimSpace(text) == "" {
		return nil, domainerrors.ValidationWithDetails("comment text is required", map[string]string{"text": "is required"})
	}
	if _, err := loadPost(ctx, s.store, postID); err != nil {
		return nil, err
	}
	if _, err := loadUser(ctx, s.store, actorID); err != nil {
		return nil, err
	}

	comment := &domain.Comment{Post: postID, Author: actorID}
	comment.SetText(text)
	if err := s.store.CreateComment(ctx, comment); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "comment created", "comment_id", comment.ID, "post_id", postID, "author_id", actorID)
	return comment, nil
}

// Update replaces the text of a comment owned by actorID. Post and author never change.
func (s *CommentService) Update(ctx context.Context, actorID, id, text string) (*domain.Comment, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errNoUpdateFields
	}

	comment, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if comment.Author != actorID {
		return nil, domainerrors.Forbidden("you can only edit your own comments")
	}

	comment.SetText(text)
	if err := s.store.UpdateComment(ctx, comment); err != nil {
		return nil, err
	}
	return comment, nil
}

// Delete removes a comment owned by actorID.
func (s *CommentService) Delete(ctx context.Context, actorID, id string) error {
	comment, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if comment.Author != actorID {
		return domainerrors.Forbidden("you can only delete your own comments")
	}
	return s.store.DeleteComment(ctx, id)
}

func (s *CommentService) load(ctx context.Context, id string) (*domain.Comment, error) {
	comment, err := s.store.GetComment(ctx, id)
	if domainerrors.Is(err, domainerrors.ErrNotFound) {
		return nil, domainerrors.NotFoundf("no comment found with id: %s", id)
	}
	return comment, err
}
