package providers

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/samber/do/v2"

	"github.com/murmurapp/murmur-server/internal/config"
	"github.com/murmurapp/murmur-server/internal/logger"
	"github.com/murmurapp/murmur-server/internal/store"
	"github.com/murmurapp/murmur-server/internal/store/sqlite"
	"github.com/murmurapp/murmur-server/internal/validation"
)

// StoreHandle wraps the record store with shutdown capability.
type StoreHandle struct {
	store.RecordStore
	Backend string
}

// Shutdown implements do.Shutdownable.
func (h *StoreHandle) Shutdown() error {
	return h.Close()
}

// ProvideStore opens the configured record store backend.
func ProvideStore(i do.Injector) (*StoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	v := do.MustInvoke[*validation.Validator](i)

	if err := os.MkdirAll(cfg.Store.Path, 0o750); err != nil {
		return nil, fmt.Errorf("create data path: %w", err)
	}

	var (
		rs   store.RecordStore
		path string
		err  error
	)
	switch cfg.Store.Backend {
	case config.BackendSQLite:
		path = filepath.Join(cfg.Store.Path, "murmur.db")
		rs, err = sqlite.Open(path, log.WithComponent("sqlite"), v)
	default:
		path = filepath.Join(cfg.Store.Path, "db")
		rs, err = store.New(path, log.WithComponent("store"), v)
	}
	if err != nil {
		return nil, err
	}

	log.Info("Record store initialized", "backend", cfg.Store.Backend, "path", path)
	return &StoreHandle{RecordStore: rs, Backend: cfg.Store.Backend}, nil
}
