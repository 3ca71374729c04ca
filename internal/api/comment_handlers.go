package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/murmurapp/murmur-server/internal/domain"
)

func (s *Server) registerCommentRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listPostComments",
		Method:      http.MethodGet,
		Path:        "/api/v1/posts/{id}/comments",
		Summary:     "List post comments",
		Description: "Returns a page of comments on a post with the same query options as listPosts",
		Tags:        []string{"Comments"},
	}, s.handleListPostComments)

	huma.Register(s.api, huma.Operation{
		OperationID:   "createComment",
		Method:        http.MethodPost,
		Path:          "/api/v1/posts/{id}/comments",
		Summary:       "Create comment",
		Description:   "Adds a comment by the caller to a post",
		Tags:          []string{"Comments"},
		DefaultStatus: http.StatusCreated,
	}, s.handleCreateComment)

	huma.Register(s.api, huma.Operation{
		OperationID: "getComment",
		Method:      http.MethodGet,
		Path:        "/api/v1/comments/{id}",
		Summary:     "Get comment",
		Description: "Returns a comment by ID",
		Tags:        []string{"Comments"},
	}, s.handleGetComment)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateComment",
		Method:      http.MethodPatch,
		Path:        "/api/v1/comments/{id}",
		Summary:     "Update comment",
		Description: "Replaces the text of the caller's comment",
		Tags:        []string{"Comments"},
	}, s.handleUpdateComment)

	huma.Register(s.api, huma.Operation{
		OperationID: "deleteComment",
		Method:      http.MethodDelete,
		Path:        "/api/v1/comments/{id}",
		Summary:     "Delete comment",
		Description: "Deletes the caller's comment",
		Tags:        []string{"Comments"},
	}, s.handleDeleteComment)
}

// === DTOs ===

// ListPostCommentsInput contains parameters for listing a post's comments.
type ListPostCommentsInput struct {
	ID string `path:"id" doc:"Post ID"`
	QueryInput
}

// CommentRequest is the request body for creating or editing a comment.
type CommentRequest struct {
	Text string `json:"text" maxLength:"2000" doc:"Comment text"`
}

// CreateCommentInput wraps the create comment request for Huma.
type CreateCommentInput struct {
	ID   string `path:"id" doc:"Post ID"`
	Body CommentRequest
}

// UpdateCommentInput wraps the update comment request for Huma.
type UpdateCommentInput struct {
	ID   string `path:"id" doc:"Comment ID"`
	Body CommentRequest
}

// CommentOutput wraps a comment for Huma.
type CommentOutput struct {
	Body domain.Comment
}

// === Handlers ===

func (s *Server) handleListPostComments(ctx context.Context, input *ListPostCommentsInput) (*ListOutput, error) {
	res, err := s.services.Comments.ListByPost(ctx, input.ID, input.Params)
	if err != nil {
		return nil, err
	}
	return newListOutput(res), nil
}

func (s *Server) handleCreateComment(ctx context.Context, input *CreateCommentInput) (*CommentOutput, error) {
	actorID, err := GetActorID(ctx)
	if err != nil {
		return nil, err
	}

	comment, err := s.services.Comments.Create(ctx, actorID, input.ID, input.Body.Text)
	if err != nil {
		return nil, err
	}
	return &CommentOutput{Body: *comment}, nil
}

func (s *Server) handleGetComment(ctx context.Context, input *IDInput) (*CommentOutput, error) {
	comment, err := s.services.Comments.Get(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return &CommentOutput{Body: *comment}, nil
}

func (s *Server) handleUpdateComment(ctx context.Context, input *UpdateCommentInput) (*CommentOutput, error) {
	actorID, err := GetActorID(ctx)
	if err != nil {
		return nil, err
	}

	comment, err := s.services.Comments.Update(ctx, actorID, input.ID, input.Body.Text)
	if err != nil {
		return nil, err
	}
	return &CommentOutput{Body: *comment}, nil
}

func (s *Server) handleDeleteComment(ctx context.Context, input *IDInput) (*MessageOutput, error) {
	actorID, err := GetActorID(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.services.Comments.Delete(ctx, actorID, input.ID); err != nil {
		return nil, err
	}
	return &MessageOutput{Body: MessageResponse{Message: "Comment deleted"}}, nil
}
