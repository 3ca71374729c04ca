package id

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate_Uniqueness(t *testing.T) {
	ids := make(map[string]bool)
	count := 1000

	for range count {
		id, err := Generate(PrefixPost)
		require.NoError(t, err)
		assert.False(t, ids[id], "ID should be unique: %s", id)
		ids[id] = true
	}

	assert.Len(t, ids, count)
}

func TestGenerate_Format(t *testing.T) {
	for _, prefix := range []string{PrefixUser, PrefixPost, PrefixComment} {
		t.Run(prefix, func(t *testing.T) {
			id, err := Generate(prefix)
			require.NoError(t, err)

			assert.True(t, strings.HasPrefix(id, prefix+"-"))
			assert.Len(t, id, len(prefix)+1+21)

			for _, c := range strings.TrimPrefix(id, prefix+"-") {
				ok := (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') || c == '_' || c == '-'
				assert.True(t, ok, "unexpected character %q in %s", c, id)
			}
		})
	}
}

func TestMustGenerate(t *testing.T) {
	assert.NotPanics(t, func() {
		id := MustGenerate(PrefixComment)
		assert.True(t, HasPrefix(id, PrefixComment))
	})
}

func TestHasPrefix(t *testing.T) {
	assert.True(t, HasPrefix("post-abc", PrefixPost))
	assert.False(t, HasPrefix("post-", PrefixPost))
	assert.False(t, HasPrefix("user-abc", PrefixPost))
	assert.False(t, HasPrefix("postabc", PrefixPost))
}
