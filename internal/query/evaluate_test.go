package query

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMatch_MissingFieldNeverMatches(t *testing.T) {
	doc := Document{"id": "post-1"}

	assert.False(t, Match(doc, Predicate{{Field: "sharedFrom", Kind: KindString, Op: OpEq, Values: []any{"post-0"}}}))
	assert.True(t, Match(doc, nil))
}

func TestMatch_TimeComparisons(t *testing.T) {
	doc := Document{"createdAt": "2026-03-01T12:00:00.5Z"}
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	assert.True(t, Match(doc, Predicate{{Field: "createdAt", Kind: KindTime, Op: OpGt, Values: []any{at}}}))
	assert.False(t, Match(doc, Predicate{{Field: "createdAt", Kind: KindTime, Op: OpLte, Values: []any{at}}}))
}

func TestMatch_NumberFromJSON(t *testing.T) {
	doc, err := ToDocument(map[string]any{"likeCount": 3})
	assert.NoError(t, err)

	assert.True(t, Match(doc, Predicate{{Field: "likeCount", Kind: KindNumber, Op: OpEq, Values: []any{3.0}}}))
	assert.True(t, Match(doc, Predicate{{Field: "likeCount", Kind: KindNumber, Op: OpLt, Values: []any{3.5}}}))
	assert.False(t, Match(doc, Predicate{{Field: "likeCount", Kind: KindNumber, Op: OpGt, Values: []any{3.0}}}))
}

func TestCompare_MissingSortsFirst(t *testing.T) {
	keys := []SortKey{{Field: "title", Kind: KindString}}
	a := Document{"id": "a"}
	b := Document{"id": "b", "title": "x"}

	assert.Equal(t, -1, Compare(a, b, keys))
	assert.Equal(t, 1, Compare(a, b, []SortKey{{Field: "title", Kind: KindString, Desc: true}}))
	assert.Equal(t, 0, Compare(a, a, keys))
}

func TestDocument_Decode(t *testing.T) {
	var out struct {
		ID    string   `json:"id"`
		Likes []string `json:"likes"`
	}
	err := Document{"id": "post-1", "likes": []any{"user-1"}}.Decode(&out)

	assert.NoError(t, err)
	assert.Equal(t, "post-1", out.ID)
	assert.Equal(t, []string{"user-1"}, out.Likes)
}
