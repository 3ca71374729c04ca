package store

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"golang.org/x/text/cases"

	"github.com/murmurapp/murmur-server/internal/domain"
	"github.com/murmurapp/murmur-server/internal/id"
	"github.com/murmurapp/murmur-server/internal/validation"
)

// Store wraps a Badger database instance.
type Store struct {
	db        *badger.DB
	logger    *slog.Logger
	validator *validation.Validator

	users    *Collection[domain.User]
	posts    *Collection[domain.Post]
	comments *Collection[domain.Comment]
}

var _ RecordStore = (*Store)(nil)

// New opens the Badger database at path. A nil validator gets the default one.
func New(path string, logger *slog.Logger, v *validation.Validator) (*Store, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil            // Disable Badger's internal logging
	opts.SyncWrites = true       // Ensure writes are synced to disk to prevent corruption on crashes
	opts.CompactL0OnClose = true // Compact L0 tables on close for faster startup

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}

	return newStore(db, logger, v, path), nil
}

// NewInMemory opens a Badger database that lives only in memory.
func NewInMemory(logger *slog.Logger, v *validation.Validator) (*Store, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open in-memory badger db: %w", err)
	}
	return newStore(db, logger, v, ":memory:"), nil
}

func newStore(db *badger.DB, logger *slog.Logger, v *validation.Validator, path string) *Store {
	if v == nil {
		v = validation.New()
	}
	s := &Store{db: db, logger: logger, validator: v}

	s.users = NewCollection(s, "user:", func(u *domain.User) string { return u.ID }).
		WithIndexTransform("email",
			func(u *domain.User) []string { return []string{NormalizeEmail(u.Email)} },
			NormalizeEmail,
		)
	s.posts = NewCollection(s, "post:", func(p *domain.Post) string { return p.ID })
	s.comments = NewCollection(s, "comment:", func(c *domain.Comment) string { return c.ID })

	if logger != nil {
		logger.Info("Badger database opened successfully", "path", path)
	}
	return s
}

// Close gracefully closes the database connection.
func (s *Store) Close() error {
	if s.logger != nil {
		s.logger.Info("Closing database connection")
	}
	return s.db.Close()
}

func (s *Store) validate(record any) error {
	return s.validator.Validate(record)
}

// NormalizeEmail case-folds an address for uniqueness checks and lookups.
func NormalizeEmail(email string) string {
	return cases.Fold().String(strings.TrimSpace(email))
}

// PrepareUser assigns an id and timestamps to a new user and normalizes its fields.
func PrepareUser(u *domain.User) error {
	if u.ID == "" {
		userID, err := id.Generate(id.PrefixUser)
		if err != nil {
			return err
		}
		u.ID = userID
	}
	if u.CreatedAt.IsZero() {
		u.InitTimestamps()
	}
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	u.Normalize()
	return nil
}

// PreparePost assigns an id and timestamps to a new post and normalizes its sets.
func PreparePost(p *domain.Post) error {
	if p.ID == "" {
		postID, err := id.Generate(id.PrefixPost)
		if err != nil {
			return err
		}
		p.ID = postID
	}
	if p.CreatedAt.IsZero() {
		p.InitTimestamps()
	}
	p.Normalize()
	return nil
}

// UserUpdater wraps fn so the edited user is normalized and touched the same
// way UpdateUser does it.
func UserUpdater(fn func(*domain.User) error) func(*domain.User) error {
	return func(u *domain.User) error {
		if err := fn(u); err != nil {
			return err
		}
		u.Email = strings.ToLower(strings.TrimSpace(u.Email))
		u.Normalize()
		u.Touch()
		return nil
	}
}

// PostUpdater wraps fn so the edited post is normalized and touched the same
// way UpdatePost does it.
func PostUpdater(fn func(*domain.Post) error) func(*domain.Post) error {
	return func(p *domain.Post) error {
		if err := fn(p); err != nil {
			return err
		}
		p.Normalize()
		p.Touch()
		return nil
	}
}

// PrepareComment assigns an id and timestamps to a new comment.
func PrepareComment(c *domain.Comment) error {
	if c.ID == "" {
		commentID, err := id.Generate(id.PrefixComment)
		if err != nil {
			return err
		}
		c.ID = commentID
	}
	if c.CreatedAt.IsZero() {
		c.InitTimestamps()
	}
	c.SetText(c.Text)
	return nil
}
