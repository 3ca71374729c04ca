// Package interaction keeps the like and bookmark relations between users and
// posts mirrored on both records, and clones posts for sharing.
//
// The two records touched by an action are written one after the other with
// no transaction spanning both and no rollback. Each write re-reads its record
// and changes only the relation fields it owns. A toggle that fails between its writes is
// repaired by the next toggle on the same pair, or by a Reconciler sweep.
package interaction

import (
	"strings"

	"github.com/murmurapp/murmur-server/internal/domain"
	domainerrors "github.com/murmurapp/murmur-server/internal/errors"
)

// Relation names a user-to-post relation.
type Relation string

// Relations.
const (
	Like     Relation = "like"
	Bookmark Relation = "bookmark"
	// Share is reported on share outcomes and events. It cannot be toggled.
	Share Relation = "share"
)

// Toggleable lists the relations accepted by Engine.Toggle.
var Toggleable = []Relation{Like, Bookmark}

// ParseRelation resolves a toggleable relation by name.
func ParseRelation(s string) (Relation, error) {
	r := Relation(strings.ToLower(strings.TrimSpace(s)))
	if !r.toggleable() {
		return "", domainerrors.Validationf("unknown relation %q", s)
	}
	return r, nil
}

func (r Relation) toggleable() bool {
	return r == Like || r == Bookmark
}

// targetSet is the set on the post holding actor ids.
func (r Relation) targetSet(p *domain.Post) *[]string {
	if r == Bookmark {
		return &p.Bookmarks
	}
	return &p.Likes
}

// actorSet is the mirrored set on the user holding post ids.
func (r Relation) actorSet(u *domain.User) *[]string {
	if r == Bookmark {
		return &u.Bookmarks
	}
	return &u.Likes
}

func (r Relation) counter(p *domain.Post) *int {
	if r == Bookmark {
		return &p.BookmarkCount
	}
	return &p.LikeCount
}

// State is the membership of one actor in one relation on one post.
type State string

// States.
const (
	Absent  State = "absent"
	Present State = "present"
)

// RepairPolicy decides the resulting state when the two sides of a relation
// disagree. Agreeing sides always flip.
type RepairPolicy string

// Repair policies.
const (
	// RepairTowardPresent completes a half-applied add. This matches how a
	// toggle treats any state other than "both present".
	RepairTowardPresent RepairPolicy = "present"
	// RepairTowardAbsent completes a half-applied removal.
	RepairTowardAbsent RepairPolicy = "absent"
)

// ParseRepairPolicy resolves a policy by name. An empty name selects RepairTowardPresent.
func ParseRepairPolicy(s string) (RepairPolicy, error) {
	switch p := RepairPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return RepairTowardPresent, nil
	case RepairTowardPresent, RepairTowardAbsent:
		return p, nil
	default:
		return "", domainerrors.Validationf("unknown repair policy %q", s)
	}
}

func (p RepairPolicy) resolve() State {
	if p == RepairTowardAbsent {
		return Absent
	}
	return Present
}

// Decide returns the state a toggle moves to given the actor's membership on
// the post (inTarget) and the post's membership on the actor (inActor).
func Decide(inTarget, inActor bool, policy RepairPolicy) State {
	switch {
	case inTarget && inActor:
		return Absent
	case !inTarget && !inActor:
		return Present
	default:
		return policy.resolve()
	}
}

// applyTarget moves actorID's membership in the post's set to state and
// recomputes the post's counter from the set. It reports whether the set changed.
func (r Relation) applyTarget(state State, post *domain.Post, actorID string) bool {
	targets := r.targetSet(post)
	*targets = domain.Dedupe(*targets)

	var changed bool
	if state == Present {
		*targets, changed = domain.AddUnique(*targets, actorID)
	} else {
		*targets, changed = domain.Remove(*targets, actorID)
	}
	*r.counter(post) = len(*targets)
	return changed
}

// applyActor moves postID's membership in the user's mirrored set to state.
func (r Relation) applyActor(state State, user *domain.User, postID string) bool {
	actors := r.actorSet(user)
	*actors = domain.Dedupe(*actors)

	var changed bool
	if state == Present {
		*actors, changed = domain.AddUnique(*actors, postID)
	} else {
		*actors, changed = domain.Remove(*actors, postID)
	}
	return changed
}
