package interaction

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/murmurapp/murmur-server/internal/domain"
	domainerrors "github.com/murmurapp/murmur-server/internal/errors"
	"github.com/murmurapp/murmur-server/internal/store"
)

// flakyStore fails selected writes on top of a real in-memory store.
// beforePostWrite runs once, after the engine has read its records and before
// the next post write reaches the store.
type flakyStore struct {
	*store.Store
	failUpdateUser  error
	failUpdatePost  error
	failCreatePost  error
	beforePostWrite func()
	writes          []string
}

func (f *flakyStore) UpdateUserFunc(ctx context.Context, id string, fn func(*domain.User) error) (*domain.User, error) {
	f.writes = append(f.writes, "user:"+id)
	if f.failUpdateUser != nil {
		return nil, f.failUpdateUser
	}
	return f.Store.UpdateUserFunc(ctx, id, fn)
}

func (f *flakyStore) UpdatePostFunc(ctx context.Context, id string, fn func(*domain.Post) error) (*domain.Post, error) {
	f.writes = append(f.writes, "post:"+id)
	if f.failUpdatePost != nil {
		return nil, f.failUpdatePost
	}
	if hook := f.beforePostWrite; hook != nil {
		f.beforePostWrite = nil
		hook()
	}
	return f.Store.UpdatePostFunc(ctx, id, fn)
}

func (f *flakyStore) CreatePost(ctx context.Context, p *domain.Post) error {
	if f.failCreatePost != nil {
		return f.failCreatePost
	}
	if err := f.Store.CreatePost(ctx, p); err != nil {
		return err
	}
	f.writes = append(f.writes, "create:"+p.ID)
	return nil
}

func setupEngine(t *testing.T, opts ...Option) (*Engine, *flakyStore) {
	t.Helper()

	s, err := store.NewInMemory(nil, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	fs := &flakyStore{Store: s}
	return New(fs, opts...), fs
}

func createUser(t *testing.T, s *flakyStore, id string) *domain.User {
	t.Helper()
	u := &domain.User{Record: domain.Record{ID: id}, Name: id, Email: id + "@example.com"}
	require.NoError(t, s.Store.CreateUser(context.Background(), u))
	return u
}

func createPost(t *testing.T, s *flakyStore, id, author string) *domain.Post {
	t.Helper()
	p := &domain.Post{Record: domain.Record{ID: id}, Author: author, Title: "title " + id, Content: "content", Image: "img.png"}
	require.NoError(t, s.Store.CreatePost(context.Background(), p))
	return p
}

func load(t *testing.T, s *flakyStore, userID, postID string) (*domain.User, *domain.Post) {
	t.Helper()
	u, err := s.GetUser(context.Background(), userID)
	require.NoError(t, err)
	p, err := s.GetPost(context.Background(), postID)
	require.NoError(t, err)
	return u, p
}

func TestDecide(t *testing.T) {
	tests := []struct {
		name     string
		inTarget bool
		inActor  bool
		policy   RepairPolicy
		want     State
	}{
		{"both absent", false, false, RepairTowardPresent, Present},
		{"both present", true, true, RepairTowardPresent, Absent},
		{"target only, toward present", true, false, RepairTowardPresent, Present},
		{"actor only, toward present", false, true, RepairTowardPresent, Present},
		{"target only, toward absent", true, false, RepairTowardAbsent, Absent},
		{"actor only, toward absent", false, true, RepairTowardAbsent, Absent},
		{"both absent ignores policy", false, false, RepairTowardAbsent, Present},
		{"both present ignores policy", true, true, RepairTowardAbsent, Absent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Decide(tt.inTarget, tt.inActor, tt.policy))
		})
	}
}

func TestParseRelationAndPolicy(t *testing.T) {
	r, err := ParseRelation(" Like ")
	require.NoError(t, err)
	assert.Equal(t, Like, r)

	_, err = ParseRelation("share")
	assert.ErrorIs(t, err, domainerrors.ErrValidation)

	p, err := ParseRepairPolicy("")
	require.NoError(t, err)
	assert.Equal(t, RepairTowardPresent, p)

	p, err = ParseRepairPolicy("ABSENT")
	require.NoError(t, err)
	assert.Equal(t, RepairTowardAbsent, p)

	_, err = ParseRepairPolicy("newest")
	assert.ErrorIs(t, err, domainerrors.ErrValidation)
}

func TestToggle_LikeThenUnlike(t *testing.T) {
	e, s := setupEngine(t)
	ctx := context.Background()
	createUser(t, s, "user-u")
	createPost(t, s, "post-p", "user-author")

	out, err := e.Like(ctx, "user-u", "post-p")
	require.NoError(t, err)
	assert.Equal(t, Present, out.State)
	assert.Equal(t, Like, out.Relation)
	assert.False(t, out.Repaired)
	assert.Equal(t, 1, out.Post.LikeCount)
	assert.Equal(t, []string{"user-u"}, out.Post.Likes)

	u, p := load(t, s, "user-u", "post-p")
	assert.Equal(t, []string{"post-p"}, u.Likes)
	assert.Equal(t, []string{"user-u"}, p.Likes)
	assert.Equal(t, 1, p.LikeCount)

	out, err = e.Like(ctx, "user-u", "post-p")
	require.NoError(t, err)
	assert.Equal(t, Absent, out.State)
	assert.Equal(t, 0, out.Post.LikeCount)

	u, p = load(t, s, "user-u", "post-p")
	assert.Empty(t, u.Likes)
	assert.Empty(t, p.Likes)
	assert.Equal(t, 0, p.LikeCount)
}

func TestToggle_ResolvesPostAuthor(t *testing.T) {
	e, s := setupEngine(t)
	ctx := context.Background()
	createUser(t, s, "user-u")
	createUser(t, s, "user-author")
	createPost(t, s, "post-p", "user-author")
	createPost(t, s, "post-own", "user-u")
	createPost(t, s, "post-orphan", "user-gone")

	out, err := e.Like(ctx, "user-u", "post-p")
	require.NoError(t, err)
	require.NotNil(t, out.Post.AuthorInfo)
	assert.Equal(t, "user-author", out.Post.AuthorInfo.ID)
	assert.Equal(t, "user-author", out.Post.AuthorInfo.Name)

	out, err = e.Bookmark(ctx, "user-u", "post-own")
	require.NoError(t, err)
	require.NotNil(t, out.Post.AuthorInfo)
	assert.Equal(t, "user-u", out.Post.AuthorInfo.ID)

	out, err = e.Like(ctx, "user-u", "post-orphan")
	require.NoError(t, err)
	assert.Nil(t, out.Post.AuthorInfo)
	assert.Equal(t, Present, out.State)
}

func TestToggle_KeepsConcurrentTitleEdit(t *testing.T) {
	e, s := setupEngine(t)
	ctx := context.Background()
	createUser(t, s, "user-u")
	createPost(t, s, "post-p", "user-author")

	s.beforePostWrite = func() {
		p, err := s.Store.GetPost(ctx, "post-p")
		require.NoError(t, err)
		p.Title = "new"
		require.NoError(t, s.Store.UpdatePost(ctx, p))
	}

	out, err := e.Like(ctx, "user-u", "post-p")
	require.NoError(t, err)
	assert.Equal(t, "new", out.Post.Title)

	u, p := load(t, s, "user-u", "post-p")
	assert.Equal(t, "new", p.Title)
	assert.Equal(t, []string{"user-u"}, p.Likes)
	assert.Equal(t, []string{"post-p"}, u.Likes)
}

func TestToggle_DecidesFromLatestPost(t *testing.T) {
	e, s := setupEngine(t)
	ctx := context.Background()
	createUser(t, s, "user-u")
	createUser(t, s, "user-v")
	createPost(t, s, "post-p", "user-author")

	// Another actor's like lands between the read and the write.
	other := New(s.Store)
	s.beforePostWrite = func() {
		_, err := other.Like(ctx, "user-v", "post-p")
		require.NoError(t, err)
	}

	_, err := e.Like(ctx, "user-u", "post-p")
	require.NoError(t, err)

	_, p := load(t, s, "user-u", "post-p")
	assert.ElementsMatch(t, []string{"user-u", "user-v"}, p.Likes)
	assert.Equal(t, 2, p.LikeCount)
}

func TestToggle_BookmarkLeavesLikesAlone(t *testing.T) {
	e, s := setupEngine(t)
	ctx := context.Background()
	createUser(t, s, "user-u")
	createPost(t, s, "post-p", "user-author")

	_, err := e.Like(ctx, "user-u", "post-p")
	require.NoError(t, err)
	out, err := e.Bookmark(ctx, "user-u", "post-p")
	require.NoError(t, err)
	assert.Equal(t, Present, out.State)
	assert.Equal(t, 1, out.Post.BookmarkCount)
	assert.Equal(t, 1, out.Post.LikeCount)

	u, p := load(t, s, "user-u", "post-p")
	assert.Equal(t, []string{"post-p"}, u.Bookmarks)
	assert.Equal(t, []string{"post-p"}, u.Likes)
	assert.Equal(t, []string{"user-u"}, p.Bookmarks)
}

func TestToggle_PersistOrder(t *testing.T) {
	e, s := setupEngine(t)
	createUser(t, s, "user-u")
	createPost(t, s, "post-p", "user-author")

	_, err := e.Like(context.Background(), "user-u", "post-p")
	require.NoError(t, err)
	assert.Equal(t, []string{"post:post-p", "user:user-u"}, s.writes)
}

func TestToggle_MirrorInvariantAcrossActors(t *testing.T) {
	e, s := setupEngine(t)
	ctx := context.Background()
	for _, id := range []string{"user-a", "user-b", "user-c"} {
		createUser(t, s, id)
	}
	createPost(t, s, "post-p", "user-a")

	for _, step := range []string{"user-a", "user-b", "user-c", "user-b"} {
		_, err := e.Like(ctx, step, "post-p")
		require.NoError(t, err)
	}

	_, p := load(t, s, "user-a", "post-p")
	assert.ElementsMatch(t, []string{"user-a", "user-c"}, p.Likes)
	assert.Equal(t, 2, p.LikeCount)
	for _, id := range []string{"user-a", "user-b", "user-c"} {
		u, _ := load(t, s, id, "post-p")
		assert.Equal(t, domain.Contains(p.Likes, id), domain.Contains(u.Likes, "post-p"), id)
	}
}

func TestToggle_NotFoundNamesMissingID(t *testing.T) {
	e, s := setupEngine(t)
	ctx := context.Background()
	createUser(t, s, "user-u")
	createPost(t, s, "post-p", "user-author")

	_, err := e.Like(ctx, "user-u", "post-missing")
	require.ErrorIs(t, err, domainerrors.ErrNotFound)
	assert.Contains(t, err.Error(), "no post found with id: post-missing")

	_, err = e.Like(ctx, "user-missing", "post-p")
	require.ErrorIs(t, err, domainerrors.ErrNotFound)
	assert.Contains(t, err.Error(), "no user found with id: user-missing")

	assert.Empty(t, s.writes, "nothing is written before both records are loaded")
	_, p := load(t, s, "user-u", "post-p")
	assert.Empty(t, p.Likes)
}

func TestToggle_RejectsShareRelation(t *testing.T) {
	e, _ := setupEngine(t)

	_, err := e.Toggle(context.Background(), Share, "user-u", "post-p")
	assert.ErrorIs(t, err, domainerrors.ErrValidation)
}

func TestToggle_TargetWriteFailureIsReturnedVerbatim(t *testing.T) {
	e, s := setupEngine(t)
	createUser(t, s, "user-u")
	createPost(t, s, "post-p", "user-author")

	boom := errors.New("disk full")
	s.failUpdatePost = boom

	_, err := e.Like(context.Background(), "user-u", "post-p")
	assert.Same(t, boom, err)
	assert.Equal(t, []string{"post:post-p"}, s.writes, "actor is not written after the target fails")
}

func TestToggle_PartialFailureThenReadRepair(t *testing.T) {
	e, s := setupEngine(t)
	ctx := context.Background()
	createUser(t, s, "user-u")
	createPost(t, s, "post-p", "user-author")

	boom := errors.New("connection reset")
	s.failUpdateUser = boom

	_, err := e.Like(ctx, "user-u", "post-p")
	require.Error(t, err)
	assert.ErrorIs(t, err, domainerrors.ErrPartialConsistency)
	assert.ErrorIs(t, err, boom)

	var derr *domainerrors.Error
	require.ErrorAs(t, err, &derr)
	details, ok := derr.Details.(map[string]string)
	require.True(t, ok)
	assert.Equal(t, StepPersistActor, details["step"])
	assert.Equal(t, "like", details["relation"])

	// The post recorded the like, the user did not.
	u, p := load(t, s, "user-u", "post-p")
	assert.Equal(t, []string{"user-u"}, p.Likes)
	assert.Empty(t, u.Likes)

	s.failUpdateUser = nil
	out, err := e.Like(ctx, "user-u", "post-p")
	require.NoError(t, err)
	assert.True(t, out.Repaired)
	assert.Equal(t, Present, out.State)

	u, p = load(t, s, "user-u", "post-p")
	assert.Equal(t, []string{"user-u"}, p.Likes)
	assert.Equal(t, []string{"post-p"}, u.Likes)
	assert.Equal(t, 1, p.LikeCount)
}

func TestToggle_ReadRepairTowardAbsent(t *testing.T) {
	e, s := setupEngine(t, WithRepairPolicy(RepairTowardAbsent))
	ctx := context.Background()
	u := createUser(t, s, "user-u")
	createPost(t, s, "post-p", "user-author")

	// Only the user side records the like.
	u.Likes = []string{"post-p"}
	require.NoError(t, s.Store.UpdateUser(ctx, u))

	out, err := e.Like(ctx, "user-u", "post-p")
	require.NoError(t, err)
	assert.True(t, out.Repaired)
	assert.Equal(t, Absent, out.State)

	u, p := load(t, s, "user-u", "post-p")
	assert.Empty(t, u.Likes)
	assert.Empty(t, p.Likes)
	assert.Equal(t, 0, p.LikeCount)
}

func TestToggle_RecomputesStaleCounter(t *testing.T) {
	e, s := setupEngine(t)
	ctx := context.Background()
	createUser(t, s, "user-u")
	p := createPost(t, s, "post-p", "user-author")
	p.LikeCount = 7
	require.NoError(t, s.Store.UpdatePost(ctx, p))

	out, err := e.Like(ctx, "user-u", "post-p")
	require.NoError(t, err)
	assert.Equal(t, 1, out.Post.LikeCount)
}

func TestToggle_CancelledContext(t *testing.T) {
	e, s := setupEngine(t)
	createUser(t, s, "user-u")
	createPost(t, s, "post-p", "user-author")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.Like(ctx, "user-u", "post-p")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, domainerrors.CodeOf(err))
}

func TestShare(t *testing.T) {
	e, s := setupEngine(t)
	ctx := context.Background()
	createUser(t, s, "user-a")
	createPost(t, s, "post-t", "user-author")

	out, err := e.Share(ctx, "user-a", "post-t")
	require.NoError(t, err)
	assert.Equal(t, Share, out.Relation)

	clone := out.Post
	require.NotEmpty(t, clone.ID)
	assert.NotEqual(t, "post-t", clone.ID)
	assert.Equal(t, "post-t", clone.SharedFrom)
	assert.Equal(t, "user-a", clone.Author)
	assert.Equal(t, []string{"user-a"}, clone.SharedBy)
	assert.Equal(t, "title post-t", clone.Title)
	assert.Equal(t, "img.png", clone.Image)
	require.NotNil(t, clone.AuthorInfo)
	assert.Equal(t, "user-a", clone.AuthorInfo.Name)

	u, origin := load(t, s, "user-a", "post-t")
	assert.Equal(t, 1, origin.ShareCount)
	assert.Equal(t, []string{clone.ID}, u.Shares)

	stored, err := s.GetPost(ctx, clone.ID)
	require.NoError(t, err)
	assert.Equal(t, "post-t", stored.SharedFrom)

	assert.Equal(t, []string{"create:" + clone.ID, "post:post-t", "user:user-a"}, s.writes)

	_, err = e.Share(ctx, "user-a", "post-t")
	require.NoError(t, err)
	_, origin = load(t, s, "user-a", "post-t")
	assert.Equal(t, 2, origin.ShareCount)
}

func TestShare_KeepsConcurrentLike(t *testing.T) {
	e, s := setupEngine(t)
	ctx := context.Background()
	createUser(t, s, "user-a")
	createUser(t, s, "user-b")
	createPost(t, s, "post-t", "user-author")

	other := New(s.Store)
	s.beforePostWrite = func() {
		_, err := other.Like(ctx, "user-b", "post-t")
		require.NoError(t, err)
	}

	_, err := e.Share(ctx, "user-a", "post-t")
	require.NoError(t, err)

	b, origin := load(t, s, "user-b", "post-t")
	assert.Equal(t, 1, origin.ShareCount)
	assert.Equal(t, []string{"user-b"}, origin.Likes)
	assert.Equal(t, 1, origin.LikeCount)
	assert.Equal(t, domain.Contains(origin.Likes, "user-b"), domain.Contains(b.Likes, "post-t"))
}

func TestShare_ConcurrentSharesKeepEveryIncrement(t *testing.T) {
	e, s := setupEngine(t)
	ctx := context.Background()
	createUser(t, s, "user-a")
	createUser(t, s, "user-b")
	createPost(t, s, "post-t", "user-author")

	other := New(s.Store)
	s.beforePostWrite = func() {
		_, err := other.Share(ctx, "user-b", "post-t")
		require.NoError(t, err)
	}

	_, err := e.Share(ctx, "user-a", "post-t")
	require.NoError(t, err)

	_, origin := load(t, s, "user-a", "post-t")
	assert.Equal(t, 2, origin.ShareCount)

	posts, err := s.ListPosts(ctx)
	require.NoError(t, err)
	assert.Len(t, posts, 3)
}

func TestShare_NotFound(t *testing.T) {
	e, s := setupEngine(t)
	createUser(t, s, "user-a")
	createPost(t, s, "post-t", "user-author")

	_, err := e.Share(context.Background(), "user-a", "post-missing")
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)

	_, err = e.Share(context.Background(), "user-missing", "post-t")
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
	assert.Empty(t, s.writes)
}

func TestShare_PartialFailures(t *testing.T) {
	t.Run("origin write fails", func(t *testing.T) {
		e, s := setupEngine(t)
		createUser(t, s, "user-a")
		createPost(t, s, "post-t", "user-author")
		s.failUpdatePost = errors.New("timeout")

		_, err := e.Share(context.Background(), "user-a", "post-t")
		require.ErrorIs(t, err, domainerrors.ErrPartialConsistency)

		var derr *domainerrors.Error
		require.ErrorAs(t, err, &derr)
		assert.Equal(t, StepPersistOrigin, derr.Details.(map[string]string)["step"])

		posts, err := s.ListPosts(context.Background())
		require.NoError(t, err)
		assert.Len(t, posts, 2, "the copy stays in place")
	})

	t.Run("actor write fails", func(t *testing.T) {
		e, s := setupEngine(t)
		createUser(t, s, "user-a")
		createPost(t, s, "post-t", "user-author")
		s.failUpdateUser = errors.New("timeout")

		_, err := e.Share(context.Background(), "user-a", "post-t")
		require.ErrorIs(t, err, domainerrors.ErrPartialConsistency)

		u, origin := load(t, s, "user-a", "post-t")
		assert.Equal(t, 1, origin.ShareCount)
		assert.Empty(t, u.Shares)
	})

	t.Run("clone write fails", func(t *testing.T) {
		e, s := setupEngine(t)
		createUser(t, s, "user-a")
		createPost(t, s, "post-t", "user-author")
		boom := errors.New("timeout")
		s.failCreatePost = boom

		_, err := e.Share(context.Background(), "user-a", "post-t")
		assert.Same(t, boom, err)
		assert.Empty(t, s.writes)
	})
}
