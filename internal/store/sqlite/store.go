// Package sqlite is a RecordStore backed by SQLite. Records are JSON documents
// and query plans compile to parameterized SQL over json_extract and json_each.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/murmurapp/murmur-server/internal/domain"
	"github.com/murmurapp/murmur-server/internal/query"
	"github.com/murmurapp/murmur-server/internal/store"
	"github.com/murmurapp/murmur-server/internal/validation"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// Store provides SQLite-backed persistence.
type Store struct {
	db     *sql.DB
	logger *slog.Logger

	users    *docTable[domain.User]
	posts    *docTable[domain.Post]
	comments *docTable[domain.Comment]
}

var _ store.RecordStore = (*Store)(nil)

// Open creates a new SQLite store at the given path.
// It configures WAL mode and a busy timeout on every connection, then applies the schema.
func Open(path string, logger *slog.Logger, v *validation.Validator) (*Store, error) {
	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("exec schema: %w", err)
	}

	if v == nil {
		v = validation.New()
	}

	s := &Store{
		db:     db,
		logger: logger,
		users: &docTable[domain.User]{
			db: db, name: "users", v: v,
			idOf: func(u *domain.User) string { return u.ID },
			extra: func(u *domain.User) []column {
				return []column{{name: "email_lower", value: store.NormalizeEmail(u.Email)}}
			},
		},
		posts: &docTable[domain.Post]{
			db: db, name: "posts", v: v,
			idOf: func(p *domain.Post) string { return p.ID },
		},
		comments: &docTable[domain.Comment]{
			db: db, name: "comments", v: v,
			idOf: func(c *domain.Comment) string { return c.ID },
		},
	}

	if logger != nil {
		logger.Info("SQLite database opened successfully", "path", path)
	}
	return s, nil
}

// pragmas are applied by the driver to every pooled connection. busy_timeout
// in particular must hold on each one, or BEGIN IMMEDIATE fails at once while
// another connection holds the write lock.
var pragmas = []string{
	"journal_mode(WAL)",
	"synchronous(NORMAL)",
	"busy_timeout(5000)",
}

func dsn(path string) string {
	q := url.Values{}
	for _, p := range pragmas {
		q.Add("_pragma", p)
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + q.Encode()
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s.logger != nil {
		s.logger.Info("Closing database connection")
	}
	return s.db.Close()
}

// CreateUser stores a new user. The email must be unique ignoring case.
func (s *Store) CreateUser(ctx context.Context, user *domain.User) error {
	if err := store.PrepareUser(user); err != nil {
		return err
	}
	return s.users.insert(ctx, user)
}

// GetUser loads a user by id.
func (s *Store) GetUser(ctx context.Context, id string) (*domain.User, error) {
	return s.users.get(ctx, id)
}

// GetUserByEmail loads a user by email, ignoring case.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.users.getBy(ctx, "email_lower", store.NormalizeEmail(email))
}

// UpdateUser replaces a stored user.
func (s *Store) UpdateUser(ctx context.Context, user *domain.User) error {
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	user.Normalize()
	user.Touch()
	return s.users.update(ctx, user)
}

// UpdateUserFunc applies fn to the latest stored copy of the user and saves
// the result in the same transaction.
func (s *Store) UpdateUserFunc(ctx context.Context, id string, fn func(*domain.User) error) (*domain.User, error) {
	return s.users.modify(ctx, id, store.UserUpdater(fn))
}

// DeleteUser removes a user.
func (s *Store) DeleteUser(ctx context.Context, id string) error {
	return s.users.delete(ctx, id)
}

// ListUsers returns every user.
func (s *Store) ListUsers(ctx context.Context) ([]*domain.User, error) {
	return s.users.all(ctx)
}

// Users returns the query source for users.
func (s *Store) Users() query.Source { return s.users }

// CreatePost stores a new post.
func (s *Store) CreatePost(ctx context.Context, post *domain.Post) error {
	if err := store.PreparePost(post); err != nil {
		return err
	}
	return s.posts.insert(ctx, post)
}

// GetPost loads a post by id.
func (s *Store) GetPost(ctx context.Context, id string) (*domain.Post, error) {
	return s.posts.get(ctx, id)
}

// UpdatePost replaces a stored post.
func (s *Store) UpdatePost(ctx context.Context, post *domain.Post) error {
	post.Normalize()
	post.Touch()
	return s.posts.update(ctx, post)
}

// UpdatePostFunc applies fn to the latest stored copy of the post and saves
// the result in the same transaction.
func (s *Store) UpdatePostFunc(ctx context.Context, id string, fn func(*domain.Post) error) (*domain.Post, error) {
	return s.posts.modify(ctx, id, store.PostUpdater(fn))
}

// DeletePost removes a post.
func (s *Store) DeletePost(ctx context.Context, id string) error {
	return s.posts.delete(ctx, id)
}

// ListPosts returns every post.
func (s *Store) ListPosts(ctx context.Context) ([]*domain.Post, error) {
	return s.posts.all(ctx)
}

// Posts returns the query source for posts.
func (s *Store) Posts() query.Source { return s.posts }

// CreateComment stores a new comment.
func (s *Store) CreateComment(ctx context.Context, comment *domain.Comment) error {
	if err := store.PrepareComment(comment); err != nil {
		return err
	}
	return s.comments.insert(ctx, comment)
}

// GetComment loads a comment by id.
func (s *Store) GetComment(ctx context.Context, id string) (*domain.Comment, error) {
	return s.comments.get(ctx, id)
}

// UpdateComment replaces a stored comment.
func (s *Store) UpdateComment(ctx context.Context, comment *domain.Comment) error {
	comment.SetText(comment.Text)
	comment.Touch()
	return s.comments.update(ctx, comment)
}

// DeleteComment removes a comment.
func (s *Store) DeleteComment(ctx context.Context, id string) error {
	return s.comments.delete(ctx, id)
}

// Comments returns the query source for comments.
func (s *Store) Comments() query.Source { return s.comments }
