package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/murmurapp/murmur-server/internal/domain"
	"github.com/murmurapp/murmur-server/internal/service"
)

func (s *Server) registerPostRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listPosts",
		Method:      http.MethodGet,
		Path:        "/api/v1/posts",
		Summary:     "List posts",
		Description: "Returns a page of posts. Supports field filters with [gt|gte|lt|lte], sort, fields, page and limit.",
		Tags:        []string{"Posts"},
	}, s.handleListPosts)

	huma.Register(s.api, huma.Operation{
		OperationID:   "createPost",
		Method:        http.MethodPost,
		Path:          "/api/v1/posts",
		Summary:       "Create post",
		Description:   "Creates a post authored by the caller",
		Tags:          []string{"Posts"},
		DefaultStatus: http.StatusCreated,
	}, s.handleCreatePost)

	for _, scope := range []service.Scope{service.ScopeMine, service.ScopeLiked, service.ScopeBookmarked, service.ScopeShared} {
		huma.Register(s.api, huma.Operation{
			OperationID: "listPosts-" + string(scope),
			Method:      http.MethodGet,
			Path:        "/api/v1/posts/" + string(scope),
			Summary:     "List " + scopeSummary(scope),
			Description: "Returns a page of " + scopeSummary(scope) + " with the same query options as listPosts",
			Tags:        []string{"Posts"},
		}, s.scopedListHandler(scope))
	}

	huma.Register(s.api, huma.Operation{
		OperationID: "getPost",
		Method:      http.MethodGet,
		Path:        "/api/v1/posts/{id}",
		Summary:     "Get post",
		Description: "Returns a post with its author and first page of comments",
		Tags:        []string{"Posts"},
	}, s.handleGetPost)

	huma.Register(s.api, huma.Operation{
		OperationID: "updatePost",
		Method:      http.MethodPatch,
		Path:        "/api/v1/posts/{id}",
		Summary:     "Update post",
		Description: "Updates the title, content or image of the caller's post",
		Tags:        []string{"Posts"},
	}, s.handleUpdatePost)

	huma.Register(s.api, huma.Operation{
		OperationID: "deletePost",
		Method:      http.MethodDelete,
		Path:        "/api/v1/posts/{id}",
		Summary:     "Delete post",
		Description: "Deletes the caller's post",
		Tags:        []string{"Posts"},
	}, s.handleDeletePost)
}

func scopeSummary(scope service.Scope) string {
	switch scope {
	case service.ScopeMine:
		return "own posts"
	case service.ScopeLiked:
		return "liked posts"
	case service.ScopeBookmarked:
		return "bookmarked posts"
	default:
		return "shared posts"
	}
}

// === DTOs ===

// ListPostsInput contains parameters for listing posts.
type ListPostsInput struct {
	QueryInput
}

// CreatePostRequest is the request body for creating a post.
type CreatePostRequest struct {
	Title   string `json:"title" maxLength:"200" doc:"Post title"`
	Content string `json:"content" doc:"Post body"`
	Image   string `json:"image,omitempty" doc:"Image URL"`
}

// CreatePostInput wraps the create post request for Huma.
type CreatePostInput struct {
	Body CreatePostRequest
}

// PostOutput wraps a post with its author for Huma.
type PostOutput struct {
	Body domain.PostView
}

// PostDetailOutput wraps a post with its comments for Huma.
type PostDetailOutput struct {
	Body service.PostDetail
}

// UpdatePostInput wraps the update post request for Huma.
type UpdatePostInput struct {
	ID   string `path:"id" doc:"Post ID"`
	Body domain.PostUpdate
}

// === Handlers ===

func (s *Server) handleListPosts(ctx context.Context, input *ListPostsInput) (*ListOutput, error) {
	res, err := s.services.Posts.List(ctx, input.Params)
	if err != nil {
		return nil, err
	}
	return newListOutput(res), nil
}

func (s *Server) scopedListHandler(scope service.Scope) func(context.Context, *ListPostsInput) (*ListOutput, error) {
	return func(ctx context.Context, input *ListPostsInput) (*ListOutput, error) {
		actorID, err := GetActorID(ctx)
		if err != nil {
			return nil, err
		}

		res, err := s.services.Posts.ListScoped(ctx, scope, actorID, input.Params)
		if err != nil {
			return nil, err
		}
		return newListOutput(res), nil
	}
}

func (s *Server) handleCreatePost(ctx context.Context, input *CreatePostInput) (*PostOutput, error) {
	actorID, err := GetActorID(ctx)
	if err != nil {
		return nil, err
	}

	post, err := s.services.Posts.Create(ctx, actorID, service.PostInput{
		Title:   input.Body.Title,
		Content: input.Body.Content,
		Image:   input.Body.Image,
	})
	if err != nil {
		return nil, err
	}
	return &PostOutput{Body: *post}, nil
}

func (s *Server) handleGetPost(ctx context.Context, input *IDInput) (*PostDetailOutput, error) {
	detail, err := s.services.Posts.Get(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return &PostDetailOutput{Body: *detail}, nil
}

func (s *Server) handleUpdatePost(ctx context.Context, input *UpdatePostInput) (*PostOutput, error) {
	actorID, err := GetActorID(ctx)
	if err != nil {
		return nil, err
	}

	post, err := s.services.Posts.Update(ctx, actorID, input.ID, input.Body)
	if err != nil {
		return nil, err
	}
	return &PostOutput{Body: *post}, nil
}

func (s *Server) handleDeletePost(ctx context.Context, input *IDInput) (*MessageOutput, error) {
	actorID, err := GetActorID(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.services.Posts.Delete(ctx, actorID, input.ID); err != nil {
		return nil, err
	}
	return &MessageOutput{Body: MessageResponse{Message: "Post deleted"}}, nil
}
