package query

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type testPost struct {
	ID         string    `json:"id"`
	Author     string    `json:"author"`
	Title      string    `json:"title"`
	Content    string    `json:"content"`
	Likes      []string  `json:"likes"`
	Bookmarks  []string  `json:"bookmarks"`
	SharedBy   []string  `json:"sharedBy"`
	LikeCount  int       `json:"likeCount"`
	ShareCount int       `json:"shareCount"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

func postDoc(t *testing.T, p testPost) Document {
	t.Helper()
	if p.Likes == nil {
		p.Likes = []string{}
	}
	if p.Bookmarks == nil {
		p.Bookmarks = []string{}
	}
	if p.SharedBy == nil {
		p.SharedBy = []string{}
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = p.CreatedAt
	}
	doc, err := ToDocument(p)
	require.NoError(t, err)
	return doc
}

// authoredPosts returns n posts by author created an hour apart, oldest first.
func authoredPosts(t *testing.T, author string, n int, offset int) []Document {
	t.Helper()
	docs := make([]Document, 0, n)
	for i := range n {
		docs = append(docs, postDoc(t, testPost{
			ID:        fmt.Sprintf("post-%s-%02d", author, i),
			Author:    author,
			Title:     fmt.Sprintf("title %02d", i),
			Content:   "body",
			LikeCount: i % 4,
			CreatedAt: baseTime.Add(time.Duration(i+offset) * time.Hour),
		}))
	}
	return docs
}

func ids(docs []Document) []string {
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = d.ID()
	}
	return out
}

func params(kv ...string) Params {
	p := Params{}
	for i := 0; i+1 < len(kv); i += 2 {
		p[kv[i]] = append(p[kv[i]], kv[i+1])
	}
	return p
}
