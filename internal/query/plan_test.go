package query

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/murmurapp/murmur-server/internal/errors"
)

func TestPlan_EmptyParamsUsesDefaults(t *testing.T) {
	p := New(PostSchema)

	plan, err := p.Plan(nil, Params{})
	require.NoError(t, err)

	assert.Empty(t, plan.Filter)
	assert.Equal(t, []SortKey{
		{Field: "createdAt", Kind: KindTime, Desc: true},
		{Field: "id", Kind: KindString},
	}, plan.Sort)
	assert.Equal(t, ProjectAll, plan.Projection.Mode)
	assert.Equal(t, 1, plan.Page)
	assert.Equal(t, 0, plan.Skip)
	assert.Equal(t, DefaultLimit, plan.Limit)
	assert.Equal(t, CollectionPosts, plan.Collection)
}

func TestPlan_SeparatorOnlySortUsesDefault(t *testing.T) {
	p := New(PostSchema)
	want := []SortKey{
		{Field: "createdAt", Kind: KindTime, Desc: true},
		{Field: "id", Kind: KindString},
	}

	for _, expr := range []string{",", " , ,", ",\t"} {
		plan, err := p.Plan(nil, params(KeySort, expr))
		require.NoError(t, err, expr)
		assert.Equal(t, want, plan.Sort, "sort=%q", expr)
	}
}

func TestPlan_PaginationClamping(t *testing.T) {
	p := New(PostSchema, WithLimits(10, 50))

	tests := []struct {
		name      string
		page      string
		limit     string
		wantPage  int
		wantLimit int
		wantSkip  int
	}{
		{"zero limit", "1", "0", 1, 10, 0},
		{"zero page", "0", "10", 1, 10, 0},
		{"negative both", "-3", "-7", 1, 10, 0},
		{"garbage", "two", "many", 1, 10, 0},
		{"over max", "2", "500", 2, 50, 50},
		{"regular", "3", "5", 3, 5, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := p.Plan(nil, params(KeyPage, tt.page, KeyLimit, tt.limit))
			require.NoError(t, err)
			assert.Equal(t, tt.wantPage, plan.Page)
			assert.Equal(t, tt.wantLimit, plan.Limit)
			assert.Equal(t, tt.wantSkip, plan.Skip)
			assert.GreaterOrEqual(t, plan.Skip, 0)
		})
	}
}

func TestPlan_HugePageNeverOverflowsSkip(t *testing.T) {
	plan, err := New(PostSchema).Plan(nil, params(KeyPage, "9223372036854775807", KeyLimit, "100"))
	require.NoError(t, err)
	assert.Positive(t, plan.Skip)
	assert.LessOrEqual(t, plan.Skip, maxSkip)
}

func TestPlan_Filters(t *testing.T) {
	p := New(PostSchema)

	plan, err := p.Plan(Where(Eq("author", "user-1")), params(
		"likeCount[gte]", "3",
		"createdAt[lt]", "2026-03-02",
		"likes", "user-9",
		"title", "a",
		"title", "b",
	))
	require.NoError(t, err)

	require.Len(t, plan.Filter, 5)
	assert.Equal(t, Condition{Field: "author", Kind: KindString, Op: OpEq, Values: []any{"user-1"}}, plan.Filter[0])
	// Request filters are planned in key order.
	assert.Equal(t, Condition{Field: "createdAt", Kind: KindTime, Op: OpLt, Values: []any{time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)}}, plan.Filter[1])
	assert.Equal(t, Condition{Field: "likeCount", Kind: KindNumber, Op: OpGte, Values: []any{3.0}}, plan.Filter[2])
	assert.Equal(t, Condition{Field: "likes", Kind: KindSet, Op: OpEq, Values: []any{"user-9"}}, plan.Filter[3])
	assert.Equal(t, Condition{Field: "title", Kind: KindString, Op: OpEq, Values: []any{"a", "b"}}, plan.Filter[4])
}

func TestPlan_QueryFailures(t *testing.T) {
	p := New(UserSchema)

	tests := []struct {
		name   string
		params Params
	}{
		{"unknown field", params("role", "admin")},
		{"hidden field filter", params("passwordHash", "x")},
		{"unknown operator", params("createdAt[ne]", "2026-01-01")},
		{"malformed key", params("createdAt[gte", "2026-01-01")},
		{"stray bracket", params("createdAt]", "2026-01-01")},
		{"empty field name", params("[gte]", "1")},
		{"comparison on set", params("likes[gt]", "post-1")},
		{"uncoercible time", params("createdAt[gte]", "yesterday")},
		{"repeated comparison", params("createdAt[gte]", "2026-01-01", "createdAt[gte]", "2026-02-01")},
		{"sort by unknown", params(KeySort, "karma")},
		{"sort by hidden", params(KeySort, "passwordHash")},
		{"sort by set", params(KeySort, "likes")},
		{"project unknown", params(KeyFields, "karma")},
		{"project hidden", params(KeyFields, "passwordHash")},
		{"mixed projection", params(KeyFields, "name,-email")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.Plan(nil, tt.params)
			require.Error(t, err)
			assert.ErrorIs(t, err, domainerrors.ErrQuery)
		})
	}
}

func TestPlan_NumberCoercionFailure(t *testing.T) {
	_, err := New(PostSchema).Plan(nil, params("likeCount", "lots"))
	require.ErrorIs(t, err, domainerrors.ErrQuery)
	assert.Contains(t, err.Error(), "likeCount")
}

func TestPlan_BaseFieldMustExist(t *testing.T) {
	_, err := New(CommentSchema).Plan(Where(Eq("owner", "user-1")), Params{})
	assert.ErrorIs(t, err, domainerrors.ErrQuery)
}

func TestPlan_Sort(t *testing.T) {
	p := New(PostSchema)

	plan, err := p.Plan(nil, params(KeySort, " -likeCount, title ,,-likeCount"))
	require.NoError(t, err)
	assert.Equal(t, []SortKey{
		{Field: "likeCount", Kind: KindNumber, Desc: true},
		{Field: "title", Kind: KindString},
		{Field: "id", Kind: KindString},
	}, plan.Sort)

	plan, err = p.Plan(nil, params(KeySort, "-id"))
	require.NoError(t, err)
	assert.Equal(t, []SortKey{{Field: "id", Kind: KindString, Desc: true}}, plan.Sort)
}

func TestPlan_Projection(t *testing.T) {
	p := New(PostSchema)

	plan, err := p.Plan(nil, params(KeyFields, "title,likeCount,id,title"))
	require.NoError(t, err)
	assert.Equal(t, Projection{Mode: ProjectInclude, Fields: []string{"title", "likeCount"}}, plan.Projection)

	plan, err = p.Plan(nil, params(KeyFields, "-content,-likes"))
	require.NoError(t, err)
	assert.Equal(t, Projection{Mode: ProjectExclude, Fields: []string{"content", "likes"}}, plan.Projection)

	plan, err = p.Plan(nil, params(KeyFields, ""))
	require.NoError(t, err)
	assert.Equal(t, ProjectAll, plan.Projection.Mode)
}

func TestPlan_Project(t *testing.T) {
	plan, err := New(UserSchema).Plan(nil, params(KeyFields, "-bio"))
	require.NoError(t, err)

	doc := Document{"id": "user-1", "name": "Ada", "bio": "hi", "passwordHash": "secret"}
	assert.Equal(t, Document{"id": "user-1", "name": "Ada"}, plan.Project(doc))

	plan, err = New(UserSchema).Plan(nil, params(KeyFields, "name"))
	require.NoError(t, err)
	assert.Equal(t, Document{"id": "user-1", "name": "Ada"}, plan.Project(doc))

	plan, err = New(UserSchema).Plan(nil, Params{})
	require.NoError(t, err)
	assert.Equal(t, Document{"id": "user-1", "name": "Ada", "bio": "hi"}, plan.Project(doc))
}

func TestParseQuery(t *testing.T) {
	p, err := ParseQuery("?author=user-1&likeCount%5Bgte%5D=2&tag=a&tag=b")
	require.NoError(t, err)
	assert.Equal(t, "user-1", p.Get("author"))
	assert.Equal(t, "2", p.Get("likeCount[gte]"))
	assert.Equal(t, []string{"a", "b"}, p["tag"])
	assert.Empty(t, p.Get("missing"))

	_, err = ParseQuery("a=%zz")
	assert.ErrorIs(t, err, domainerrors.ErrQuery)
}

func TestSchemaFor(t *testing.T) {
	for _, name := range []string{CollectionUsers, CollectionPosts, CollectionComments} {
		s, ok := SchemaFor(name)
		require.True(t, ok, name)
		assert.Equal(t, name, s.Name())
	}

	_, ok := SchemaFor("books")
	assert.False(t, ok)
}
