package interaction

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/murmurapp/murmur-server/internal/domain"
	domainerrors "github.com/murmurapp/murmur-server/internal/errors"
)

const tracerName = "github.com/murmurapp/murmur-server/internal/interaction"

// Persist steps named in partial consistency failures.
const (
	StepPersistTarget = "persist_target"
	StepPersistActor  = "persist_actor"
	StepPersistClone  = "persist_clone"
	StepPersistOrigin = "persist_origin"
)

// Records is the slice of the record store the engine reads and writes. The
// Update*Func methods must apply fn to the latest stored copy and save the
// result atomically.
type Records interface {
	GetUser(ctx context.Context, id string) (*domain.User, error)
	UpdateUserFunc(ctx context.Context, id string, fn func(*domain.User) error) (*domain.User, error)
	GetPost(ctx context.Context, id string) (*domain.Post, error)
	CreatePost(ctx context.Context, post *domain.Post) error
	UpdatePostFunc(ctx context.Context, id string, fn func(*domain.Post) error) (*domain.Post, error)
}

// Outcome is the result of a completed action.
type Outcome struct {
	// Post is the toggled post, or the new copy for a share, with its author
	// resolved. AuthorInfo is nil when the author no longer exists.
	Post     domain.PostView
	Relation Relation
	State    State
	// Repaired is set when the two sides disagreed before the toggle.
	Repaired bool
}

// Engine applies like, bookmark and share actions. It keeps no state between
// calls and re-reads both records every time.
type Engine struct {
	records Records
	policy  RepairPolicy
	logger  *slog.Logger
	tracer  trace.Tracer
}

// Option configures an Engine.
type Option func(*Engine)

// WithRepairPolicy sets how disagreeing sides are resolved.
func WithRepairPolicy(p RepairPolicy) Option {
	return func(e *Engine) { e.policy = p }
}

// WithLogger sets the engine logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithTracer overrides the tracer used for engine spans.
func WithTracer(t trace.Tracer) Option {
	return func(e *Engine) { e.tracer = t }
}

// New creates an engine over records.
func New(records Records, opts ...Option) *Engine {
	e := &Engine{records: records, policy: RepairTowardPresent}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.New(slog.DiscardHandler)
	}
	if e.tracer == nil {
		e.tracer = otel.Tracer(tracerName)
	}
	return e
}

// Policy returns the configured repair policy.
func (e *Engine) Policy() RepairPolicy { return e.policy }

// Like toggles actorID's like on targetID.
func (e *Engine) Like(ctx context.Context, actorID, targetID string) (*Outcome, error) {
	return e.Toggle(ctx, Like, actorID, targetID)
}

// Bookmark toggles actorID's bookmark on targetID.
func (e *Engine) Bookmark(ctx context.Context, actorID, targetID string) (*Outcome, error) {
	return e.Toggle(ctx, Bookmark, actorID, targetID)
}

// Toggle flips the relation between actor and target. When both sides agree
// the membership flips; when they disagree the repair policy picks the
// result. The post is written before the user, and each write changes only
// the relation set and counter on its record. If the user write fails the
// error is a PartialConsistency failure and the post write is not undone.
func (e *Engine) Toggle(ctx context.Context, rel Relation, actorID, targetID string) (*Outcome, error) {
	ctx, span := e.tracer.Start(ctx, "interaction.Toggle", trace.WithAttributes(
		attribute.String("interaction.relation", string(rel)),
		attribute.String("interaction.actor_id", actorID),
		attribute.String("interaction.target_id", targetID),
	))
	defer span.End()

	if !rel.toggleable() {
		return nil, fail(span, domainerrors.Validationf("relation %q cannot be toggled", rel))
	}

	if _, err := e.loadPost(ctx, targetID); err != nil {
		return nil, fail(span, err)
	}
	user, err := e.loadUser(ctx, actorID)
	if err != nil {
		return nil, fail(span, err)
	}
	inActor := domain.Contains(*rel.actorSet(user), targetID)

	var (
		state    State
		repaired bool
	)
	post, err := e.records.UpdatePostFunc(ctx, targetID, func(p *domain.Post) error {
		inTarget := domain.Contains(*rel.targetSet(p), actorID)
		state = Decide(inTarget, inActor, e.policy)
		repaired = inTarget != inActor
		rel.applyTarget(state, p, actorID)
		return nil
	})
	if err != nil {
		return nil, fail(span, postNotFound(err, targetID))
	}

	user, err = e.records.UpdateUserFunc(ctx, actorID, func(u *domain.User) error {
		rel.applyActor(state, u, targetID)
		return nil
	})
	if err != nil {
		return nil, fail(span, e.partial(ctx, rel, actorID, targetID, StepPersistActor, err))
	}

	span.SetAttributes(
		attribute.String("interaction.state", string(state)),
		attribute.Bool("interaction.repaired", repaired),
	)
	e.logger.DebugContext(ctx, "toggle applied",
		"relation", rel,
		"actor_id", actorID,
		"target_id", targetID,
		"state", state,
		"repaired", repaired,
		"count", *rel.counter(post),
	)

	author := user
	if post.Author != user.ID {
		author = e.author(ctx, post.Author)
	}

	return &Outcome{
		Post:     domain.PostView{Post: *post, AuthorInfo: domain.NewAuthorSummary(author)},
		Relation: rel,
		State:    state,
		Repaired: repaired,
	}, nil
}

// Share creates a copy of originID authored by actorID and links it back to
// the origin. Writes happen in order: the copy, the origin's share count, the
// actor's shares. A failure after the copy exists is a PartialConsistency
// failure; the copy is left in place.
func (e *Engine) Share(ctx context.Context, actorID, originID string) (*Outcome, error) {
	ctx, span := e.tracer.Start(ctx, "interaction.Share", trace.WithAttributes(
		attribute.String("interaction.actor_id", actorID),
		attribute.String("interaction.target_id", originID),
	))
	defer span.End()

	origin, err := e.loadPost(ctx, originID)
	if err != nil {
		return nil, fail(span, err)
	}
	user, err := e.loadUser(ctx, actorID)
	if err != nil {
		return nil, fail(span, err)
	}

	clone := origin.ShareCopy(user.ID)
	if err := e.records.CreatePost(ctx, &clone); err != nil {
		return nil, fail(span, err)
	}
	span.SetAttributes(attribute.String("interaction.clone_id", clone.ID))

	origin, err = e.records.UpdatePostFunc(ctx, originID, func(p *domain.Post) error {
		p.ShareCount++
		return nil
	})
	if err != nil {
		return nil, fail(span, e.partial(ctx, Share, actorID, originID, StepPersistOrigin, err, "clone_id", clone.ID))
	}

	user, err = e.records.UpdateUserFunc(ctx, actorID, func(u *domain.User) error {
		u.Shares, _ = domain.AddUnique(u.Shares, clone.ID)
		return nil
	})
	if err != nil {
		return nil, fail(span, e.partial(ctx, Share, actorID, originID, StepPersistActor, err, "clone_id", clone.ID))
	}

	e.logger.InfoContext(ctx, "post shared",
		"actor_id", actorID,
		"origin_id", originID,
		"clone_id", clone.ID,
		"share_count", origin.ShareCount,
	)

	return &Outcome{
		Post:     domain.PostView{Post: clone, AuthorInfo: domain.NewAuthorSummary(user)},
		Relation: Share,
		State:    Present,
	}, nil
}

// author resolves a post author for display. A missing author yields nil; a
// failed lookup is logged and also yields nil since the action already succeeded.
func (e *Engine) author(ctx context.Context, id string) *domain.User {
	u, err := e.records.GetUser(ctx, id)
	if err == nil {
		return u
	}
	if !domainerrors.Is(err, domainerrors.ErrNotFound) {
		e.logger.WarnContext(ctx, "resolve post author", "author_id", id, "error", err)
	}
	return nil
}

func (e *Engine) loadPost(ctx context.Context, id string) (*domain.Post, error) {
	post, err := e.records.GetPost(ctx, id)
	if err != nil {
		return nil, postNotFound(err, id)
	}
	return post, nil
}

// postNotFound names the missing post when err is a not-found error and
// returns any other error unchanged.
func postNotFound(err error, id string) error {
	if domainerrors.Is(err, domainerrors.ErrNotFound) {
		return domainerrors.NotFoundf("no post found with id: %s", id).
			WithDetails(map[string]string{"post_id": id})
	}
	return err
}

func (e *Engine) loadUser(ctx context.Context, id string) (*domain.User, error) {
	user, err := e.records.GetUser(ctx, id)
	if domainerrors.Is(err, domainerrors.ErrNotFound) {
		return nil, domainerrors.NotFoundf("no user found with id: %s", id).
			WithDetails(map[string]string{"user_id": id})
	}
	return user, err
}

// partial logs and builds the failure for a write that failed after an
// earlier write of the same action succeeded.
func (e *Engine) partial(ctx context.Context, rel Relation, actorID, targetID, step string, cause error, extra ...string) error {
	details := map[string]string{
		"relation":  string(rel),
		"actor_id":  actorID,
		"target_id": targetID,
		"step":      step,
	}
	for i := 0; i+1 < len(extra); i += 2 {
		details[extra[i]] = extra[i+1]
	}

	e.logger.ErrorContext(ctx, "interaction partially applied",
		"relation", rel,
		"actor_id", actorID,
		"target_id", targetID,
		"step", step,
		"error", cause,
	)

	return domainerrors.PartialConsistency(string(rel)+" partially applied at "+step, details).WithCause(cause)
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
