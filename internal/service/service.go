// Package service implements the post, comment, user and interaction use cases
// on top of the record store, the query pipeline and the interaction engine.
package service

import (
	"context"
	"log/slog"

	"github.com/murmurapp/murmur-server/internal/domain"
	domainerrors "github.com/murmurapp/murmur-server/internal/errors"
	"github.com/murmurapp/murmur-server/internal/query"
	"github.com/murmurapp/murmur-server/internal/store"
)

// FieldAuthorInfo is the key populated authors are attached under in list items.
const FieldAuthorInfo = "authorInfo"

// errNoUpdateFields is returned for an update that sets nothing.
var errNoUpdateFields = domainerrors.Validation("No valid fields provided to update.")

type userReader interface {
	GetUser(ctx context.Context, id string) (*domain.User, error)
}

// loadPost maps a missing post to a NotFound naming its id.
func loadPost(ctx context.Context, s store.PostStore, id string) (*domain.Post, error) {
	post, err := s.GetPost(ctx, id)
	if err != nil {
		return nil, missingPost(err, id)
	}
	return post, nil
}

func loadUser(ctx context.Context, s userReader, id string) (*domain.User, error) {
	user, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, missingUser(err, id)
	}
	return user, nil
}

func missingPost(err error, id string) error {
	if domainerrors.Is(err, domainerrors.ErrNotFound) {
		return domainerrors.NotFoundf("no post found with id: %s", id)
	}
	return err
}

func missingUser(err error, id string) error {
	if domainerrors.Is(err, domainerrors.ErrNotFound) {
		return domainerrors.NotFoundf("no user found with id: %s", id)
	}
	return err
}

// populateAuthors attaches an author summary to every item carrying an
// "author" field. Authors that no longer exist are left unresolved.
func populateAuthors(ctx context.Context, users userReader, items []query.Document, logger *slog.Logger) error {
	cache := make(map[string]*domain.AuthorSummary)
	for _, item := range items {
		authorID, ok := item["author"].(string)
		if !ok || authorID == "" {
			continue
		}

		summary, seen := cache[authorID]
		if !seen {
			u, err := users.GetUser(ctx, authorID)
			switch {
			case err == nil:
				summary = domain.NewAuthorSummary(u)
			case domainerrors.Is(err, domainerrors.ErrNotFound):
				logger.DebugContext(ctx, "author missing", "author_id", authorID)
			default:
				return err
			}
			cache[authorID] = summary
		}

		if summary != nil {
			item[FieldAuthorInfo] = summary
		}
	}
	return nil
}
