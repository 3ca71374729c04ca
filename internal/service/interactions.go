package service

import (
	"context"
	"log/slog"

	"github.com/murmurapp/murmur-server/internal/events"
	domainerrors "github.com/murmurapp/murmur-server/internal/errors"
	"github.com/murmurapp/murmur-server/internal/interaction"
)

// InteractionService runs like, bookmark and share actions and announces them.
type InteractionService struct {
	engine    *interaction.Engine
	publisher events.Publisher
	logger    *slog.Logger
}

// NewInteractionService creates a new interaction service. A nil publisher discards events.
func NewInteractionService(engine *interaction.Engine, publisher events.Publisher, logger *slog.Logger) *InteractionService {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &InteractionService{engine: engine, publisher: publisher, logger: logger}
}

// Like toggles actorID's like on postID.
func (s *InteractionService) Like(ctx context.Context, actorID, postID string) (*interaction.Outcome, error) {
	return s.Toggle(ctx, interaction.Like, actorID, postID)
}

// Bookmark toggles actorID's bookmark on postID.
func (s *InteractionService) Bookmark(ctx context.Context, actorID, postID string) (*interaction.Outcome, error) {
	return s.Toggle(ctx, interaction.Bookmark, actorID, postID)
}

// Toggle flips rel between actorID and postID.
func (s *InteractionService) Toggle(ctx context.Context, rel interaction.Relation, actorID, postID string) (*interaction.Outcome, error) {
	out, err := s.engine.Toggle(ctx, rel, actorID, postID)
	if err != nil {
		s.reportPartial(ctx, err, actorID, postID)
		return nil, err
	}

	event := events.New(toggleEventType(rel, out.State), actorID, postID)
	event.Relation = string(rel)
	event.State = string(out.State)
	if out.Repaired {
		event.Detail = map[string]string{"repaired": "true"}
	}
	s.publish(ctx, event)
	return out, nil
}

// Share copies postID for actorID.
func (s *InteractionService) Share(ctx context.Context, actorID, postID string) (*interaction.Outcome, error) {
	out, err := s.engine.Share(ctx, actorID, postID)
	if err != nil {
		s.reportPartial(ctx, err, actorID, postID)
		return nil, err
	}

	event := events.New(events.TypePostShared, actorID, postID)
	event.Relation = string(interaction.Share)
	event.Detail = map[string]string{"clone_id": out.Post.ID}
	s.publish(ctx, event)
	return out, nil
}

func toggleEventType(rel interaction.Relation, state interaction.State) events.Type {
	switch {
	case rel == interaction.Bookmark && state == interaction.Present:
		return events.TypePostBookmarked
	case rel == interaction.Bookmark:
		return events.TypePostUnbookmarked
	case state == interaction.Present:
		return events.TypePostLiked
	default:
		return events.TypePostUnliked
	}
}

// reportPartial announces a partially applied action so a reconciler can pick it up.
func (s *InteractionService) reportPartial(ctx context.Context, err error, actorID, postID string) {
	var derr *domainerrors.Error
	if !domainerrors.As(err, &derr) || derr.Code != domainerrors.CodePartialConsistency {
		return
	}

	event := events.New(events.TypePartialFailure, actorID, postID)
	if details, ok := derr.Details.(map[string]string); ok {
		event.Relation = details["relation"]
		event.Detail = details
	}
	s.publish(ctx, event)
}

// publish never fails the action; the records are already written.
func (s *InteractionService) publish(ctx context.Context, event events.Event) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "event publish failed",
			"type", event.Type,
			"event_id", event.ID,
			"error", err,
		)
	}
}
