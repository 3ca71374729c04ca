// Package events publishes interaction events for downstream consumers such as
// feeds and notifications. Publishing is fire-and-forget: the record store is
// the source of truth and a lost event never affects it.
package events

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/murmurapp/murmur-server/internal/domain"
)

// Type identifies an event. Subjects are "<prefix>.<type>".
type Type string

// Event types.
const (
	TypePostLiked        Type = "post.liked"
	TypePostUnliked      Type = "post.unliked"
	TypePostBookmarked   Type = "post.bookmarked"
	TypePostUnbookmarked Type = "post.unbookmarked"
	TypePostShared       Type = "post.shared"
	TypePartialFailure   Type = "interaction.partial_failure"
)

// Event is the envelope sent for every interaction.
type Event struct {
	ID         string            `json:"id"`
	Type       Type              `json:"type"`
	OccurredAt time.Time         `json:"occurredAt"`
	ActorID    string            `json:"actorId"`
	TargetID   string            `json:"targetId"`
	Relation   string            `json:"relation,omitempty"`
	State      string            `json:"state,omitempty"`
	Detail     map[string]string `json:"detail,omitempty"`
}

// New creates an event with a fresh id and the current time.
func New(typ Type, actorID, targetID string) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       typ,
		OccurredAt: domain.Now(),
		ActorID:    actorID,
		TargetID:   targetID,
	}
}

// Publisher sends events.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// HealthReporter is implemented by publishers that hold a broker connection.
type HealthReporter interface {
	Connected() bool
}

// NoopPublisher discards events. Used when no broker is configured.
type NoopPublisher struct{}

// Publish does nothing.
func (NoopPublisher) Publish(context.Context, Event) error { return nil }

// Close does nothing.
func (NoopPublisher) Close() error { return nil }

// RecordingPublisher keeps published events in memory.
type RecordingPublisher struct {
	mu     sync.Mutex
	events []Event
	// Err, when set, is returned from Publish after the event is recorded.
	Err error
}

// Publish records event.
func (r *RecordingPublisher) Publish(_ context.Context, event Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return r.Err
}

// Events returns a copy of everything published so far.
func (r *RecordingPublisher) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Types returns the type of every published event in order.
func (r *RecordingPublisher) Types() []Type {
	events := r.Events()
	out := make([]Type, len(events))
	for i, e := range events {
		out[i] = e.Type
	}
	return out
}

// Close does nothing.
func (r *RecordingPublisher) Close() error { return nil }
