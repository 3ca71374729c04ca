package interaction

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/murmurapp/murmur-server/internal/domain"
	domainerrors "github.com/murmurapp/murmur-server/internal/errors"
)

// Catalog is the store surface a sweep needs: the engine's records plus full listings.
type Catalog interface {
	Records
	ListUsers(ctx context.Context) ([]*domain.User, error)
	ListPosts(ctx context.Context) ([]*domain.Post, error)
}

// SweepReport summarizes one reconciliation pass.
type SweepReport struct {
	DryRun        bool `json:"dryRun"`
	UsersScanned  int  `json:"usersScanned"`
	PostsScanned  int  `json:"postsScanned"`
	MirrorRepairs int  `json:"mirrorRepairs"`
	// DanglingRemoved counts relation entries pointing at records that no longer exist.
	DanglingRemoved  int `json:"danglingRemoved"`
	CountersFixed    int `json:"countersFixed"`
	ShareCountsFixed int `json:"shareCountsFixed"`
	PostsUpdated     int `json:"postsUpdated"`
	UsersUpdated     int `json:"usersUpdated"`
}

// Reconciler re-establishes the mirror invariant and counters across the whole
// store. It runs out of band; request paths never call it.
type Reconciler struct {
	catalog Catalog
	policy  RepairPolicy
	logger  *slog.Logger
	tracer  trace.Tracer
}

// NewReconciler creates a reconciler that resolves disagreements with policy.
func NewReconciler(catalog Catalog, policy RepairPolicy, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if policy == "" {
		policy = RepairTowardPresent
	}
	return &Reconciler{
		catalog: catalog,
		policy:  policy,
		logger:  logger,
		tracer:  otel.Tracer(tracerName),
	}
}

// Sweep loads every user and post, repairs one-sided relation entries with
// the configured policy, drops entries pointing at missing records, and
// recomputes like, bookmark and share counters. With dryRun nothing is written.
//
// Each repair is recorded as an edit and replayed on the latest stored copy of
// its record, so fields the sweep does not touch keep any concurrent change.
// Posts are written before users. A record deleted since the listing is
// skipped; any other failed write stops the sweep, which returns the report so far.
func (r *Reconciler) Sweep(ctx context.Context, dryRun bool) (*SweepReport, error) {
	ctx, span := r.tracer.Start(ctx, "interaction.Sweep", trace.WithAttributes(
		attribute.Bool("interaction.dry_run", dryRun),
	))
	defer span.End()

	users, err := r.catalog.ListUsers(ctx)
	if err != nil {
		return nil, fail(span, fmt.Errorf("list users: %w", err))
	}
	posts, err := r.catalog.ListPosts(ctx)
	if err != nil {
		return nil, fail(span, fmt.Errorf("list posts: %w", err))
	}

	sw := &sweep{
		report:    &SweepReport{DryRun: dryRun, UsersScanned: len(users), PostsScanned: len(posts)},
		users:     users,
		posts:     posts,
		usersByID: make(map[string]*domain.User, len(users)),
		postsByID: make(map[string]*domain.Post, len(posts)),
		postEdits: make(map[string][]func(*domain.Post)),
		userEdits: make(map[string][]func(*domain.User)),
	}
	for _, u := range users {
		sw.usersByID[u.ID] = u
	}
	for _, p := range posts {
		sw.postsByID[p.ID] = p
	}

	for _, rel := range Toggleable {
		r.repairRelation(sw, rel)
	}
	sw.dropDanglingShares()
	sw.fixCounters()

	report := sw.report
	report.PostsUpdated = len(sw.postEdits)
	report.UsersUpdated = len(sw.userEdits)
	span.SetAttributes(
		attribute.Int("interaction.posts_updated", report.PostsUpdated),
		attribute.Int("interaction.users_updated", report.UsersUpdated),
	)

	if dryRun {
		r.logger.InfoContext(ctx, "reconciliation dry run", "report", report)
		return report, nil
	}

	for _, p := range posts {
		edits, ok := sw.postEdits[p.ID]
		if !ok {
			continue
		}
		_, err := r.catalog.UpdatePostFunc(ctx, p.ID, func(p *domain.Post) error {
			for _, edit := range edits {
				edit(p)
			}
			return nil
		})
		if domainerrors.Is(err, domainerrors.ErrNotFound) {
			r.logger.DebugContext(ctx, "post deleted during sweep", "post_id", p.ID)
			continue
		}
		if err != nil {
			return report, fail(span, fmt.Errorf("update post %s: %w", p.ID, err))
		}
	}
	for _, u := range users {
		edits, ok := sw.userEdits[u.ID]
		if !ok {
			continue
		}
		_, err := r.catalog.UpdateUserFunc(ctx, u.ID, func(u *domain.User) error {
			for _, edit := range edits {
				edit(u)
			}
			return nil
		})
		if domainerrors.Is(err, domainerrors.ErrNotFound) {
			r.logger.DebugContext(ctx, "user deleted during sweep", "user_id", u.ID)
			continue
		}
		if err != nil {
			return report, fail(span, fmt.Errorf("update user %s: %w", u.ID, err))
		}
	}

	r.logger.InfoContext(ctx, "reconciliation complete",
		"users_updated", report.UsersUpdated,
		"posts_updated", report.PostsUpdated,
		"mirror_repairs", report.MirrorRepairs,
		"dangling_removed", report.DanglingRemoved,
	)
	return report, nil
}

// sweep is the working state of one pass. Repairs are applied to the listed
// copies right away, so later checks see them, and recorded as edits for the
// write phase.
type sweep struct {
	report    *SweepReport
	users     []*domain.User
	posts     []*domain.Post
	usersByID map[string]*domain.User
	postsByID map[string]*domain.Post
	postEdits map[string][]func(*domain.Post)
	userEdits map[string][]func(*domain.User)
}

func (sw *sweep) editPost(p *domain.Post, edit func(*domain.Post)) {
	edit(p)
	sw.postEdits[p.ID] = append(sw.postEdits[p.ID], edit)
}

func (sw *sweep) editUser(u *domain.User, edit func(*domain.User)) {
	edit(u)
	sw.userEdits[u.ID] = append(sw.userEdits[u.ID], edit)
}

func (r *Reconciler) repairRelation(sw *sweep, rel Relation) {
	// Post side: every actor listed on a post.
	for _, p := range sw.posts {
		for _, actorID := range domain.Dedupe(*rel.targetSet(p)) {
			u, ok := sw.usersByID[actorID]
			if !ok {
				sw.editPost(p, func(p *domain.Post) {
					*rel.targetSet(p), _ = domain.Remove(*rel.targetSet(p), actorID)
				})
				sw.report.DanglingRemoved++
				continue
			}
			if domain.Contains(*rel.actorSet(u), p.ID) {
				continue
			}
			r.resolve(sw, rel, p, u)
		}
	}

	// User side: entries whose post does not list the user back.
	for _, u := range sw.users {
		for _, postID := range domain.Dedupe(*rel.actorSet(u)) {
			p, ok := sw.postsByID[postID]
			if !ok {
				sw.editUser(u, func(u *domain.User) {
					*rel.actorSet(u), _ = domain.Remove(*rel.actorSet(u), postID)
				})
				sw.report.DanglingRemoved++
				continue
			}
			if domain.Contains(*rel.targetSet(p), u.ID) {
				continue
			}
			r.resolve(sw, rel, p, u)
		}
	}
}

func (r *Reconciler) resolve(sw *sweep, rel Relation, p *domain.Post, u *domain.User) {
	state := r.policy.resolve()
	actorID, postID := u.ID, p.ID
	sw.editPost(p, func(p *domain.Post) { rel.applyTarget(state, p, actorID) })
	sw.editUser(u, func(u *domain.User) { rel.applyActor(state, u, postID) })
	sw.report.MirrorRepairs++

	r.logger.Debug("relation repaired",
		"relation", rel,
		"actor_id", actorID,
		"target_id", postID,
		"state", state,
	)
}

// dropDanglingShares removes share links to records that no longer exist:
// copies listed on a user and sharers listed on a post.
func (sw *sweep) dropDanglingShares() {
	for _, u := range sw.users {
		for _, postID := range domain.Dedupe(u.Shares) {
			if _, ok := sw.postsByID[postID]; ok {
				continue
			}
			sw.editUser(u, func(u *domain.User) {
				u.Shares, _ = domain.Remove(u.Shares, postID)
			})
			sw.report.DanglingRemoved++
		}
	}
	for _, p := range sw.posts {
		for _, userID := range domain.Dedupe(p.SharedBy) {
			if _, ok := sw.usersByID[userID]; ok {
				continue
			}
			sw.editPost(p, func(p *domain.Post) {
				p.SharedBy, _ = domain.Remove(p.SharedBy, userID)
			})
			sw.report.DanglingRemoved++
		}
	}
}

// fixCounters recomputes relation counters from their sets and share counts
// from the copies present. Share counts are corrected by the observed
// difference so shares made during the sweep are kept.
func (sw *sweep) fixCounters() {
	shares := make(map[string]int)
	for _, p := range sw.posts {
		if p.IsShare() {
			shares[p.SharedFrom]++
		}
	}

	for _, p := range sw.posts {
		for _, rel := range Toggleable {
			if *rel.counter(p) != len(domain.Dedupe(*rel.targetSet(p))) {
				sw.editPost(p, func(p *domain.Post) {
					*rel.counter(p) = len(domain.Dedupe(*rel.targetSet(p)))
				})
				sw.report.CountersFixed++
			}
		}
		if delta := shares[p.ID] - p.ShareCount; delta != 0 {
			sw.editPost(p, func(p *domain.Post) {
				p.ShareCount = max(0, p.ShareCount+delta)
			})
			sw.report.ShareCountsFixed++
		}
	}
}
