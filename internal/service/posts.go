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
	"github.com/murmurapp/murmur-server/internal/validation"
)

// Scope restricts a post list to posts related to the actor.
type Scope string

// Scopes.
const (
	ScopeMine       Scope = "mine"
	ScopeLiked      Scope = "likes"
	ScopeBookmarked Scope = "bookmarks"
	ScopeShared     Scope = "shares"
)

// predicate returns the base filter for actorID.
func (s Scope) predicate(actorID string) (query.Predicate, error) {
	switch s {
	case ScopeMine:
		return query.Where(query.Eq("author", actorID)), nil
	case ScopeLiked:
		return query.Where(query.Eq("likes", actorID)), nil
	case ScopeBookmarked:
		return query.Where(query.Eq("bookmarks", actorID)), nil
	case ScopeShared:
		return query.Where(query.Eq("sharedBy", actorID)), nil
	default:
		return nil, domainerrors.Validationf("unknown post scope %q", s)
	}
}

// PostInput is a new post.
type PostInput struct {
	Title   string
	Content string
	Image   string
}

// PostDetail is a single post with its author and first page of comments.
type PostDetail struct {
	domain.PostView
	Comments []query.Document `json:"comments"`
	// CommentCount is the total number of comments, beyond the embedded page.
	CommentCount int `json:"commentCount"`
}

// PostService manages posts.
type PostService struct {
	store     store.RecordStore
	posts     *query.Pipeline
	comments  *query.Pipeline
	validator *validation.Validator
	logger    *slog.Logger
}

// NewPostService creates a new post service.
func NewPostService(s store.RecordStore, v *validation.Validator, logger *slog.Logger, opts ...query.Option) *PostService {
	return &PostService{
		store:     s,
		posts:     query.New(query.PostSchema, opts...),
		comments:  query.New(query.CommentSchema, opts...),
		validator: v,
		logger:    logger,
	}
}

// List returns a page of all posts with authors resolved and the filtered total.
func (s *PostService) List(ctx context.Context, params query.Params) (*query.Result, error) {
	return s.list(ctx, nil, params)
}

// ListScoped returns a page of the actor's own, liked, bookmarked or shared posts.
func (s *PostService) ListScoped(ctx context.Context, scope Scope, actorID string, params query.Params) (*query.Result, error) {
	base, err := scope.predicate(actorID)
	if err != nil {
		return nil, err
	}
	return s.list(ctx, base, params)
}

func (s *PostService) list(ctx context.Context, base query.Predicate, params query.Params) (*query.Result, error) {
	res, err := s.posts.Run(ctx, s.store.Posts(), base, params, true)
	if err != nil {
		return nil, err
	}
	if err := populateAuthors(ctx, s.store, res.Items, s.logger); err != nil {
		return nil, fmt.Errorf("populate authors: %w", err)
	}
	return res, nil
}

// Get returns a post with its author and newest comments.
func (s *PostService) Get(ctx context.Context, id string) (*PostDetail, error) {
	post, err := loadPost(ctx, s.store, id)
	if err != nil {
		return nil, err
	}

	view, err := s.view(ctx, post)
	if err != nil {
		return nil, err
	}

	comments, err := s.comments.Run(ctx, s.store.Comments(), query.Where(query.Eq("post", id)), query.Params{}, true)
	if err != nil {
		return nil, fmt.Errorf("load comments: %w", err)
	}
	if err := populateAuthors(ctx, s.store, comments.Items, s.logger); err != nil {
		return nil, fmt.Errorf("populate comment authors: %w", err)
	}

	return &PostDetail{PostView: *view, Comments: comments.Items, CommentCount: comments.Total}, nil
}

// Create stores a new post authored by actorID.
func (s *PostService) Create(ctx context.Context, actorID string, in PostInput) (*domain.PostView, error) {
	author, err := loadUser(ctx, s.store, actorID)
	if err != nil {
		return nil, err
	}

	post := &domain.Post{
		Author:  author.ID,
		Title:   strings.TrimSpace(in.Title),
		Content: in.Content,
		Image:   strings.TrimSpace(in.Image),
	}
	if err := s.store.CreatePost(ctx, post); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "post created", "post_id", post.ID, "author_id", author.ID)
	return &domain.PostView{Post: *post, AuthorInfo: domain.NewAuthorSummary(author)}, nil
}

// Update edits the title, content or image of a post owned by actorID. Only
// those fields are written, so relation changes made meanwhile are kept.
func (s *PostService) Update(ctx context.Context, actorID, id string, upd domain.PostUpdate) (*domain.PostView, error) {
	if upd.Empty() {
		return nil, errNoUpdateFields
	}
	if err := s.validator.Validate(upd); err != nil {
		return nil, err
	}

	post, err := s.store.UpdatePostFunc(ctx, id, func(p *domain.Post) error {
		if p.Author != actorID {
			return domainerrors.Forbidden("you can only edit your own posts")
		}
		upd.Apply(p)
		return nil
	})
	if err != nil {
		return nil, missingPost(err, id)
	}
	return s.view(ctx, post)
}

// Delete removes a post owned by actorID. Relation entries on users that
// point at it are left for the reconciler.
func (s *PostService) Delete(ctx context.Context, actorID, id string) error {
	post, err := loadPost(ctx, s.store, id)
	if err != nil {
		return err
	}
	if post.Author != actorID {
		return domainerrors.Forbidden("you can only delete your own posts")
	}
	if err := s.store.DeletePost(ctx, id); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "post deleted", "post_id", id, "author_id", actorID)
	return nil
}

func (s *PostService) view(ctx context.Context, post *domain.Post) (*domain.PostView, error) {
	author, err := s.store.GetUser(ctx, post.Author)
	if err != nil && !domainerrors.Is(err, domainerrors.ErrNotFound) {
		return nil, err
	}
	return &domain.PostView{Post: *post, AuthorInfo: domain.NewAuthorSummary(author)}, nil
}
