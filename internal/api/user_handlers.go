package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/murmurapp/murmur-server/internal/domain"
)

func (s *Server) registerUserRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listUsers",
		Method:      http.MethodGet,
		Path:        "/api/v1/users",
		Summary:     "List users",
		Description: "Returns a page of users. Password hashes are never returned or filterable.",
		Tags:        []string{"Users"},
	}, s.handleListUsers)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateProfile",
		Method:      http.MethodPatch,
		Path:        "/api/v1/users",
		Summary:     "Update own profile",
		Description: "Updates the caller's name, email, bio or avatar",
		Tags:        []string{"Users"},
	}, s.handleUpdateProfile)

	huma.Register(s.api, huma.Operation{
		OperationID: "getUser",
		Method:      http.MethodGet,
		Path:        "/api/v1/users/{id}",
		Summary:     "Get user",
		Description: "Returns a user's public profile",
		Tags:        []string{"Users"},
	}, s.handleGetUser)

	huma.Register(s.api, huma.Operation{
		OperationID: "deleteUser",
		Method:      http.MethodDelete,
		Path:        "/api/v1/users/{id}",
		Summary:     "Delete user",
		Description: "Deletes the caller's own account",
		Tags:        []string{"Users"},
	}, s.handleDeleteUser)
}

// === DTOs ===

// ListUsersInput contains parameters for listing users.
type ListUsersInput struct {
	QueryInput
}

// UpdateProfileInput wraps the profile update for Huma.
type UpdateProfileInput struct {
	Body domain.ProfileUpdate
}

// ProfileOutput wraps a public profile for Huma.
type ProfileOutput struct {
	Body domain.Profile
}

// === Handlers ===

func (s *Server) handleListUsers(ctx context.Context, input *ListUsersInput) (*ListOutput, error) {
	res, err := s.services.Users.List(ctx, input.Params)
	if err != nil {
		return nil, err
	}
	return newListOutput(res), nil
}

func (s *Server) handleUpdateProfile(ctx context.Context, input *UpdateProfileInput) (*ProfileOutput, error) {
	actorID, err := GetActorID(ctx)
	if err != nil {
		return nil, err
	}

	profile, err := s.services.Users.UpdateProfile(ctx, actorID, actorID, input.Body)
	if err != nil {
		return nil, err
	}
	return &ProfileOutput{Body: *profile}, nil
}

func (s *Server) handleGetUser(ctx context.Context, input *IDInput) (*ProfileOutput, error) {
	profile, err := s.services.Users.Get(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return &ProfileOutput{Body: *profile}, nil
}

func (s *Server) handleDeleteUser(ctx context.Context, input *IDInput) (*MessageOutput, error) {
	actorID, err := GetActorID(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.services.Users.Delete(ctx, actorID, input.ID); err != nil {
		return nil, err
	}
	return &MessageOutput{Body: MessageResponse{Message: "User deleted"}}, nil
}
