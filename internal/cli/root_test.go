package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/murmurapp/murmur-server/internal/interaction"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "murmurctl", cmd.Use)
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()

	for _, name := range []string{"seed", "reconcile", "query"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err, "command %s should exist", name)
			assert.Equal(t, name, sub.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	format := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, format)
	assert.Equal(t, "text", format.DefValue)

	level := cmd.PersistentFlags().Lookup("log-level")
	require.NotNil(t, level)
	assert.Equal(t, "warn", level.DefValue)

	envFile := cmd.PersistentFlags().Lookup("env-file")
	require.NotNil(t, envFile)
	assert.Equal(t, ".env", envFile.DefValue)
}

func TestSeedCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	seed, _, err := cmd.Find([]string{"seed"})
	require.NoError(t, err)

	assert.Equal(t, "5", seed.Flags().Lookup("users").DefValue)
	assert.Equal(t, "3", seed.Flags().Lookup("posts").DefValue)
	assert.NotNil(t, seed.Flags().Lookup("password"))
}

func TestReconcileCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	reconcile, _, err := cmd.Find([]string{"reconcile"})
	require.NoError(t, err)

	dryRun := reconcile.Flags().Lookup("dry-run")
	require.NotNil(t, dryRun)
	assert.Equal(t, "false", dryRun.DefValue)
}

func TestInvalidFormat(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"reconcile", "--format", "yaml", "--data-path", t.TempDir(), "--env-file", ""})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid format "yaml"`)
}

func TestQueryUnknownCollection(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"query", "books", "--data-path", t.TempDir(), "--env-file", ""})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown collection")
}

// run executes murmurctl against dataPath with JSON output and returns stdout.
func run(t *testing.T, dataPath string, args ...string) []byte {
	t.Helper()

	out := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(append(args, "--data-path", dataPath, "--env-file", "", "--format", "json"))

	require.NoError(t, cmd.Execute())
	return out.Bytes()
}

func TestSeedQueryReconcile(t *testing.T) {
	dataPath := t.TempDir()

	var seeded SeedReport
	require.NoError(t, json.Unmarshal(run(t, dataPath, "seed", "--users", "3", "--posts", "2", "--cost", "4"), &seeded))
	assert.Equal(t, 3, seeded.Users)
	assert.Equal(t, 6, seeded.Posts)
	assert.Equal(t, 6, seeded.Comments)
	assert.Equal(t, 6, seeded.Likes)
	assert.Equal(t, 3, seeded.Bookmarks)
	assert.Equal(t, 1, seeded.Shares)
	assert.Len(t, seeded.UserIDs, 3)

	var liked QueryOutput
	require.NoError(t, json.Unmarshal(run(t, dataPath, "query", "posts", "likeCount[gte]=1&fields=title,likeCount&limit=100"), &liked))
	assert.Equal(t, "posts", liked.Collection)
	assert.Equal(t, 6, liked.Total)
	assert.False(t, liked.HasMore)
	for _, item := range liked.Items {
		assert.NotContains(t, item, "content")
		assert.EqualValues(t, 1, item["likeCount"])
	}

	var users QueryOutput
	require.NoError(t, json.Unmarshal(run(t, dataPath, "query", "users"), &users))
	assert.Equal(t, 3, users.Total)
	for _, item := range users.Items {
		assert.NotContains(t, item, "passwordHash")
	}

	var report interaction.SweepReport
	require.NoError(t, json.Unmarshal(run(t, dataPath, "reconcile", "--dry-run"), &report))
	assert.True(t, report.DryRun)
	assert.Equal(t, 3, report.UsersScanned)
	assert.Equal(t, 7, report.PostsScanned)
	assert.Zero(t, report.MirrorRepairs)
	assert.Zero(t, report.DanglingRemoved)
	assert.Zero(t, report.CountersFixed)
	assert.Zero(t, report.ShareCountsFixed)

	// A second seed run skips the existing accounts.
	var again SeedReport
	require.NoError(t, json.Unmarshal(run(t, dataPath, "seed", "--users", "3", "--cost", "4"), &again))
	assert.Zero(t, again.Users)
	assert.Equal(t, 3, again.Skipped)
}
