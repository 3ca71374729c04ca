package interaction

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSweep_RepairsMirrorsAndCounters(t *testing.T) {
	_, s := setupEngine(t)
	ctx := context.Background()

	createUser(t, s, "user-a")
	b := createUser(t, s, "user-b")
	p := createPost(t, s, "post-p", "user-a")
	createPost(t, s, "post-q", "user-b")
	share := createPost(t, s, "post-s", "user-b")

	// post-p lists user-a but user-a does not list post-p.
	p.Likes = []string{"user-a", "user-gone"}
	p.LikeCount = 5
	require.NoError(t, s.Store.UpdatePost(ctx, p))

	// user-b bookmarks post-q one-sidedly and likes a deleted post.
	b.Bookmarks = []string{"post-q"}
	b.Likes = []string{"post-deleted"}
	require.NoError(t, s.Store.UpdateUser(ctx, b))

	share.SharedFrom = "post-q"
	require.NoError(t, s.Store.UpdatePost(ctx, share))

	r := NewReconciler(s, RepairTowardPresent, nil)
	report, err := r.Sweep(ctx, false)
	require.NoError(t, err)

	assert.Equal(t, 2, report.UsersScanned)
	assert.Equal(t, 3, report.PostsScanned)
	assert.Equal(t, 2, report.MirrorRepairs)
	assert.Equal(t, 2, report.DanglingRemoved)
	assert.Equal(t, 1, report.ShareCountsFixed)

	a2, p2 := load(t, s, "user-a", "post-p")
	assert.Equal(t, []string{"user-a"}, p2.Likes)
	assert.Equal(t, 1, p2.LikeCount)
	assert.Equal(t, []string{"post-p"}, a2.Likes)

	b2, q2 := load(t, s, "user-b", "post-q")
	assert.Equal(t, []string{"user-b"}, q2.Bookmarks)
	assert.Equal(t, 1, q2.BookmarkCount)
	assert.Equal(t, 1, q2.ShareCount)
	assert.Empty(t, b2.Likes)

	again, err := r.Sweep(ctx, false)
	require.NoError(t, err)
	assert.Zero(t, again.MirrorRepairs)
	assert.Zero(t, again.DanglingRemoved)
	assert.Zero(t, again.PostsUpdated)
	assert.Zero(t, again.UsersUpdated)
}

func TestSweep_TowardAbsent(t *testing.T) {
	_, s := setupEngine(t)
	ctx := context.Background()

	createUser(t, s, "user-a")
	p := createPost(t, s, "post-p", "user-a")
	p.Likes = []string{"user-a"}
	p.LikeCount = 1
	require.NoError(t, s.Store.UpdatePost(ctx, p))

	report, err := NewReconciler(s, RepairTowardAbsent, nil).Sweep(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, 1, report.MirrorRepairs)

	u, p2 := load(t, s, "user-a", "post-p")
	assert.Empty(t, p2.Likes)
	assert.Equal(t, 0, p2.LikeCount)
	assert.Empty(t, u.Likes)
}

func TestSweep_DryRunWritesNothing(t *testing.T) {
	_, s := setupEngine(t)
	ctx := context.Background()

	createUser(t, s, "user-a")
	p := createPost(t, s, "post-p", "user-a")
	p.Likes = []string{"user-a"}
	require.NoError(t, s.Store.UpdatePost(ctx, p))

	report, err := NewReconciler(s, RepairTowardPresent, nil).Sweep(ctx, true)
	require.NoError(t, err)
	assert.True(t, report.DryRun)
	assert.Equal(t, 1, report.MirrorRepairs)
	assert.Equal(t, 1, report.PostsUpdated)
	assert.Empty(t, s.writes)

	u, _ := load(t, s, "user-a", "post-p")
	assert.Empty(t, u.Likes)
}

func TestSweep_StopsAtFirstFailedWrite(t *testing.T) {
	_, s := setupEngine(t)
	ctx := context.Background()

	createUser(t, s, "user-a")
	p := createPost(t, s, "post-p", "user-a")
	p.Likes = []string{"user-a"}
	require.NoError(t, s.Store.UpdatePost(ctx, p))

	boom := errors.New("read only")
	s.failUpdatePost = boom

	report, err := NewReconciler(s, RepairTowardPresent, nil).Sweep(ctx, false)
	require.ErrorIs(t, err, boom)
	require.NotNil(t, report)
	assert.Equal(t, []string{"post:post-p"}, s.writes)
}

func TestSweep_DropsDanglingShareLinks(t *testing.T) {
	_, s := setupEngine(t)
	ctx := context.Background()

	a := createUser(t, s, "user-a")
	createPost(t, s, "post-t", "user-author")
	kept := createPost(t, s, "post-copy", "user-a")
	kept.SharedFrom = "post-t"
	kept.SharedBy = []string{"user-a", "user-gone"}
	require.NoError(t, s.Store.UpdatePost(ctx, kept))

	a.Shares = []string{"post-copy", "post-deleted"}
	require.NoError(t, s.Store.UpdateUser(ctx, a))

	report, err := NewReconciler(s, RepairTowardPresent, nil).Sweep(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, 2, report.DanglingRemoved)
	assert.Zero(t, report.MirrorRepairs)

	u, p := load(t, s, "user-a", "post-copy")
	assert.Equal(t, []string{"post-copy"}, u.Shares)
	assert.Equal(t, []string{"user-a"}, p.SharedBy)

	again, err := NewReconciler(s, RepairTowardPresent, nil).Sweep(ctx, false)
	require.NoError(t, err)
	assert.Zero(t, again.DanglingRemoved)
	assert.Zero(t, again.PostsUpdated)
	assert.Zero(t, again.UsersUpdated)
}

func TestSweep_KeepsConcurrentEdits(t *testing.T) {
	_, s := setupEngine(t)
	ctx := context.Background()

	createUser(t, s, "user-a")
	createUser(t, s, "user-b")
	p := createPost(t, s, "post-p", "user-a")
	p.Likes = []string{"user-a"}
	require.NoError(t, s.Store.UpdatePost(ctx, p))

	// A title edit and another user's like land after the listing.
	other := New(s.Store)
	s.beforePostWrite = func() {
		fresh, err := s.Store.GetPost(ctx, "post-p")
		require.NoError(t, err)
		fresh.Title = "edited"
		require.NoError(t, s.Store.UpdatePost(ctx, fresh))
		_, err = other.Like(ctx, "user-b", "post-p")
		require.NoError(t, err)
	}

	report, err := NewReconciler(s, RepairTowardPresent, nil).Sweep(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, 1, report.MirrorRepairs)

	a, got := load(t, s, "user-a", "post-p")
	assert.Equal(t, "edited", got.Title)
	assert.ElementsMatch(t, []string{"user-a", "user-b"}, got.Likes)
	assert.Equal(t, 2, got.LikeCount)
	assert.Equal(t, []string{"post-p"}, a.Likes)

	b, _ := load(t, s, "user-b", "post-p")
	assert.Equal(t, []string{"post-p"}, b.Likes)
}
