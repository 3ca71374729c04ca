package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/murmurapp/murmur-server/internal/domain"
	"github.com/murmurapp/murmur-server/internal/interaction"
)

func (s *Server) registerInteractionRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "togglePostLike",
		Method:      http.MethodPatch,
		Path:        "/api/v1/posts/like/{id}",
		Summary:     "Like or unlike post",
		Description: "Toggles the caller's like on a post and returns the resulting state",
		Tags:        []string{"Interactions"},
	}, s.toggleHandler(interaction.Like))

	huma.Register(s.api, huma.Operation{
		OperationID: "togglePostBookmark",
		Method:      http.MethodPatch,
		Path:        "/api/v1/posts/bookmark/{id}",
		Summary:     "Bookmark or unbookmark post",
		Description: "Toggles the caller's bookmark on a post and returns the resulting state",
		Tags:        []string{"Interactions"},
	}, s.toggleHandler(interaction.Bookmark))

	huma.Register(s.api, huma.Operation{
		OperationID:   "sharePost",
		Method:        http.MethodPost,
		Path:          "/api/v1/posts/share/{id}",
		Summary:       "Share post",
		Description:   "Creates a copy of the post authored by the caller",
		Tags:          []string{"Interactions"},
		DefaultStatus: http.StatusCreated,
	}, s.handleSharePost)
}

// === DTOs ===

// InteractionResponse contains the outcome of a like, bookmark or share.
type InteractionResponse struct {
	Relation string          `json:"relation" doc:"like, bookmark or share"`
	State    string          `json:"state" doc:"present or absent after the action"`
	Repaired bool            `json:"repaired" doc:"Whether the action resolved a one-sided relation"`
	Post     domain.PostView `json:"post" doc:"The post after the action. For share, the new copy"`
}

// InteractionOutput wraps the interaction response for Huma.
type InteractionOutput struct {
	Body InteractionResponse
}

// === Handlers ===

func (s *Server) toggleHandler(rel interaction.Relation) func(context.Context, *IDInput) (*InteractionOutput, error) {
	return func(ctx context.Context, input *IDInput) (*InteractionOutput, error) {
		actorID, err := GetActorID(ctx)
		if err != nil {
			return nil, err
		}

		out, err := s.services.Interactions.Toggle(ctx, rel, actorID, input.ID)
		if err != nil {
			return nil, err
		}
		return newInteractionOutput(out), nil
	}
}

func (s *Server) handleSharePost(ctx context.Context, input *IDInput) (*InteractionOutput, error) {
	actorID, err := GetActorID(ctx)
	if err != nil {
		return nil, err
	}

	out, err := s.services.Interactions.Share(ctx, actorID, input.ID)
	if err != nil {
		return nil, err
	}
	return newInteractionOutput(out), nil
}

func newInteractionOutput(out *interaction.Outcome) *InteractionOutput {
	return &InteractionOutput{Body: InteractionResponse{
		Relation: string(out.Relation),
		State:    string(out.State),
		Repaired: out.Repaired,
		Post:     out.Post,
	}}
}
