package store

import (
	"errors"

	"github.com/dgraph-io/badger/v4"

	domainerrors "github.com/murmurapp/murmur-server/internal/errors"
)

// Sentinel errors returned by every RecordStore implementation. They are domain
// errors, so errors.Is also matches domainerrors.ErrNotFound and friends.
var (
	ErrNotFound      = &domainerrors.Error{Code: domainerrors.CodeNotFound, Message: "record not found"}
	ErrAlreadyExists = &domainerrors.Error{Code: domainerrors.CodeAlreadyExists, Message: "record already exists"}
	ErrConflict      = &domainerrors.Error{Code: domainerrors.CodeConflict, Message: "concurrent write conflict"}
)

// translate maps backend errors onto the store sentinels.
func translate(err error) error {
	if errors.Is(err, badger.ErrConflict) {
		return ErrConflict.WithCause(err)
	}
	return err
}
