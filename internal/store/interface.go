// Package store persists users, posts and comments.
//
// Store is the Badger-backed implementation. The sqlite subpackage provides an
// alternative with the same RecordStore contract. Every write touches a single
// record atomically; there are no multi-record transactions. The Update*Func
// methods read and write inside one transaction, so callers that change a few
// fields never undo a concurrent write to the others.
package store

import (
	"context"

	"github.com/murmurapp/murmur-server/internal/domain"
	"github.com/murmurapp/murmur-server/internal/query"
)

// UserStore persists users.
type UserStore interface {
	CreateUser(ctx context.Context, user *domain.User) error
	GetUser(ctx context.Context, id string) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	UpdateUser(ctx context.Context, user *domain.User) error
	UpdateUserFunc(ctx context.Context, id string, fn func(*domain.User) error) (*domain.User, error)
	DeleteUser(ctx context.Context, id string) error
	ListUsers(ctx context.Context) ([]*domain.User, error)
	Users() query.Source
}

// PostStore persists posts.
type PostStore interface {
	CreatePost(ctx context.Context, post *domain.Post) error
	GetPost(ctx context.Context, id string) (*domain.Post, error)
	UpdatePost(ctx context.Context, post *domain.Post) error
	UpdatePostFunc(ctx context.Context, id string, fn func(*domain.Post) error) (*domain.Post, error)
	DeletePost(ctx context.Context, id string) error
	ListPosts(ctx context.Context) ([]*domain.Post, error)
	Posts() query.Source
}

// CommentStore persists comments.
type CommentStore interface {
	CreateComment(ctx context.Context, comment *domain.Comment) error
	GetComment(ctx context.Context, id string) (*domain.Comment, error)
	UpdateComment(ctx context.Context, comment *domain.Comment) error
	DeleteComment(ctx context.Context, id string) error
	Comments() query.Source
}

// RecordStore is the full persistence contract.
type RecordStore interface {
	UserStore
	PostStore
	CommentStore
	Close() error
}
