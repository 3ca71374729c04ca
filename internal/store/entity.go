package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"

	"github.com/dgraph-io/badger/v4"

	"github.com/murmurapp/murmur-server/internal/query"
)

// Collection provides generic CRUD and plan execution for one record type
// stored under a key prefix.
type Collection[T any] struct {
	store   *Store
	prefix  string
	idOf    func(*T) string
	indexes []Index[T]
}

// Index defines a unique secondary index on a collection.
type Index[T any] struct {
	name            string
	keyGen          func(*T) []string
	lookupTransform func(string) string // applied to lookup values, e.g. case folding
}

// NewCollection creates a collection for type T. idOf extracts the record identifier.
func NewCollection[T any](s *Store, prefix string, idOf func(*T) string) *Collection[T] {
	return &Collection[T]{store: s, prefix: prefix, idOf: idOf}
}

// WithIndex adds a unique secondary index.
func (c *Collection[T]) WithIndex(name string, keyGen func(*T) []string) *Collection[T] {
	c.indexes = append(c.indexes, Index[T]{name: name, keyGen: keyGen})
	return c
}

// WithIndexTransform adds a unique secondary index whose lookups are passed through transform.
func (c *Collection[T]) WithIndexTransform(name string, keyGen func(*T) []string, transform func(string) string) *Collection[T] {
	c.indexes = append(c.indexes, Index[T]{name: name, keyGen: keyGen, lookupTransform: transform})
	return c
}

func (c *Collection[T]) key(id string) []byte {
	return []byte(c.prefix + id)
}

func (c *Collection[T]) indexKey(name, value string) []byte {
	return []byte(c.prefix + "idx:" + name + ":" + value)
}

func (c *Collection[T]) indexPrefix() []byte {
	return []byte(c.prefix + "idx:")
}

// Create stores a new record. Returns ErrAlreadyExists when the id or a
// unique index value is taken.
func (c *Collection[T]) Create(ctx context.Context, record *T) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := c.store.validate(record); err != nil {
		return err
	}

	id := c.idOf(record)
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", c.prefix, err)
	}

	err = c.store.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(c.key(id)); err == nil {
			return ErrAlreadyExists
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("check existing key: %w", err)
		}

		if err := c.claimIndexes(txn, id, nil, record); err != nil {
			return err
		}
		return txn.Set(c.key(id), data)
	})
	return translate(err)
}

// Get loads a record by id. Returns ErrNotFound when it does not exist.
func (c *Collection[T]) Get(ctx context.Context, id string) (*T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var record T
	err := c.store.db.View(func(txn *badger.Txn) error {
		return c.read(txn, id, &record)
	})
	if err != nil {
		return nil, translate(err)
	}
	return &record, nil
}

// GetByIndex loads a record through a secondary index.
func (c *Collection[T]) GetByIndex(ctx context.Context, name, value string) (*T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for _, idx := range c.indexes {
		if idx.name == name && idx.lookupTransform != nil {
			value = idx.lookupTransform(value)
			break
		}
	}

	var record T
	err := c.store.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(c.indexKey(name, value))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		id, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		return c.read(txn, string(id), &record)
	})
	if err != nil {
		return nil, translate(err)
	}
	return &record, nil
}

// Update replaces an existing record as a single atomic write.
// Returns ErrNotFound when it does not exist.
func (c *Collection[T]) Update(ctx context.Context, record *T) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	id := c.idOf(record)
	err := c.store.db.Update(func(txn *badger.Txn) error {
		var old T
		if err := c.read(txn, id, &old); err != nil {
			return err
		}
		return c.replace(txn, id, &old, record)
	})
	return translate(err)
}

// UpdateFunc loads the record, applies fn and writes the result in one
// transaction, so fn always works on the latest committed copy. A concurrent
// commit to the same key fails with ErrConflict and is not retried. An error
// returned by fn aborts the update and is passed through unchanged.
func (c *Collection[T]) UpdateFunc(ctx context.Context, id string, fn func(*T) error) (*T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var record T
	err := c.store.db.Update(func(txn *badger.Txn) error {
		var old T
		if err := c.read(txn, id, &old); err != nil {
			return err
		}
		if err := c.read(txn, id, &record); err != nil {
			return err
		}
		if err := fn(&record); err != nil {
			return err
		}
		if c.idOf(&record) != id {
			return fmt.Errorf("update %s%s: record id changed", c.prefix, id)
		}
		return c.replace(txn, id, &old, &record)
	})
	if err != nil {
		return nil, translate(err)
	}
	return &record, nil
}

// replace validates record and writes it over old, moving its index entries.
func (c *Collection[T]) replace(txn *badger.Txn, id string, old, record *T) error {
	if err := c.store.validate(record); err != nil {
		return err
	}
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", c.prefix, err)
	}
	if err := c.releaseIndexes(txn, old); err != nil {
		return err
	}
	if err := c.claimIndexes(txn, id, old, record); err != nil {
		return err
	}
	return txn.Set(c.key(id), data)
}

// Delete removes a record and its index entries. Returns ErrNotFound when it does not exist.
func (c *Collection[T]) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := c.store.db.Update(func(txn *badger.Txn) error {
		var old T
		if err := c.read(txn, id, &old); err != nil {
			return err
		}
		if err := c.releaseIndexes(txn, &old); err != nil {
			return err
		}
		return txn.Delete(c.key(id))
	})
	return translate(err)
}

// All iterates over every record in key order.
func (c *Collection[T]) All(ctx context.Context) iter.Seq2[*T, error] {
	return func(yield func(*T, error) bool) {
		err := c.scan(ctx, func(val []byte) (bool, error) {
			var record T
			if err := json.Unmarshal(val, &record); err != nil {
				return false, fmt.Errorf("unmarshal %s: %w", c.prefix, err)
			}
			return yield(&record, nil), nil
		})
		if err != nil {
			yield(nil, err)
		}
	}
}

// Find executes plan over the collection and returns the projected page.
func (c *Collection[T]) Find(ctx context.Context, plan *query.Plan) ([]query.Document, error) {
	docs, err := c.documents(ctx)
	if err != nil {
		return nil, err
	}
	return query.Execute(plan, docs), nil
}

// Count returns how many records satisfy filter.
func (c *Collection[T]) Count(ctx context.Context, filter query.Predicate) (int, error) {
	n := 0
	err := c.scan(ctx, func(val []byte) (bool, error) {
		doc, err := query.DecodeDocument(val)
		if err != nil {
			return false, err
		}
		if query.Match(doc, filter) {
			n++
		}
		return true, nil
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

// FindWithCount executes plan and counts its filter inside one read
// transaction, so the total always covers the returned page.
func (c *Collection[T]) FindWithCount(ctx context.Context, plan *query.Plan) ([]query.Document, int, error) {
	docs, err := c.documents(ctx)
	if err != nil {
		return nil, 0, err
	}
	return query.Execute(plan, docs), query.CountMatches(plan.Filter, docs), nil
}

// documents decodes every record from a single snapshot.
func (c *Collection[T]) documents(ctx context.Context) ([]query.Document, error) {
	var docs []query.Document
	err := c.scan(ctx, func(val []byte) (bool, error) {
		doc, err := query.DecodeDocument(val)
		if err != nil {
			return false, err
		}
		docs = append(docs, doc)
		return true, nil
	})
	return docs, err
}

// scan visits the raw value of every record in one read transaction, skipping
// index keys. fn returns false to stop early.
func (c *Collection[T]) scan(ctx context.Context, fn func(val []byte) (bool, error)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	prefix := []byte(c.prefix)
	idxPrefix := c.indexPrefix()

	return c.store.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := it.Item()
			if hasPrefix(item.Key(), idxPrefix) {
				continue
			}

			var cont bool
			err := item.Value(func(val []byte) error {
				var err error
				cont, err = fn(val)
				return err
			})
			if err != nil {
				return err
			}
			if !cont {
				return nil
			}
		}
		return nil
	})
}

func (c *Collection[T]) read(txn *badger.Txn, id string, out *T) error {
	item, err := txn.Get(c.key(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("get key: %w", err)
	}
	return item.Value(func(val []byte) error {
		if err := json.Unmarshal(val, out); err != nil {
			return fmt.Errorf("unmarshal %s: %w", c.prefix, err)
		}
		return nil
	})
}

// claimIndexes writes index entries for record, failing if another record owns one.
// Values already held by old are reused.
func (c *Collection[T]) claimIndexes(txn *badger.Txn, id string, old, record *T) error {
	for _, idx := range c.indexes {
		held := make(map[string]bool)
		if old != nil {
			for _, k := range idx.keyGen(old) {
				held[k] = true
			}
		}
		for _, k := range idx.keyGen(record) {
			if !held[k] {
				if _, err := txn.Get(c.indexKey(idx.name, k)); err == nil {
					return fmt.Errorf("index %s conflict on %q: %w", idx.name, k, ErrAlreadyExists)
				} else if !errors.Is(err, badger.ErrKeyNotFound) {
					return fmt.Errorf("check index key: %w", err)
				}
			}
			if err := txn.Set(c.indexKey(idx.name, k), []byte(id)); err != nil {
				return fmt.Errorf("set index key: %w", err)
			}
		}
	}
	return nil
}

func (c *Collection[T]) releaseIndexes(txn *badger.Txn, old *T) error {
	for _, idx := range c.indexes {
		for _, k := range idx.keyGen(old) {
			if err := txn.Delete(c.indexKey(idx.name, k)); err != nil {
				return fmt.Errorf("delete index key: %w", err)
			}
		}
	}
	return nil
}

func hasPrefix(key, prefix []byte) bool {
	return len(key) >= len(prefix) && string(key[:len(prefix)]) == string(prefix)
}
