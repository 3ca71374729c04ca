package di

import (
	"context"
	"testing"

	"github.com/samber/do/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/murmurapp/murmur-server/internal/di/providers"
	"github.com/murmurapp/murmur-server/internal/events"
	"github.com/murmurapp/murmur-server/internal/interaction"
)

func newTestContainer(t *testing.T, extra ...string) *do.RootScope {
	t.Helper()

	args := append([]string{"-data-path", t.TempDir(), "-env-file", "", "-log-level", "error"}, extra...)
	injector := NewContainer(args)
	t.Cleanup(func() { _ = injector.Shutdown() })
	return injector
}

func TestBootstrap(t *testing.T) {
	injector := newTestContainer(t)
	require.NoError(t, Bootstrap(injector))

	storeHandle := do.MustInvoke[*providers.StoreHandle](injector)
	assert.Equal(t, "badger", storeHandle.Backend)

	publisher := do.MustInvoke[*providers.PublisherHandle](injector)
	assert.IsType(t, events.NoopPublisher{}, publisher.Publisher)

	reconciler := do.MustInvoke[*interaction.Reconciler](injector)
	report, err := reconciler.Sweep(context.Background(), true)
	require.NoError(t, err)
	assert.Zero(t, report.PostsScanned)
}

func TestBootstrap_SQLiteBackend(t *testing.T) {
	injector := newTestContainer(t, "-store-backend", "sqlite")
	require.NoError(t, Bootstrap(injector))

	storeHandle := do.MustInvoke[*providers.StoreHandle](injector)
	assert.Equal(t, "sqlite", storeHandle.Backend)

	n, err := storeHandle.Users().Count(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestBootstrap_InvalidConfig(t *testing.T) {
	injector := newTestContainer(t, "-repair-policy", "sometimes")
	assert.Error(t, Bootstrap(injector))
}
