// Package store persists model checkpoints in BadgerDB.
//
// Each scope is stored under the key "checkpoint:<scope>" as the JSON form
// produced by core/model. Values are validated on both write and read.
package store

import (
	"context"
	"sort"
	"strings"

	"github.com/dgraph-io/badger/v4"

	"github.com/noema/hlr/core/model"
	"github.com/noema/hlr/pkg/errors"
	"github.com/noema/hlr/pkg/log"
)

const checkpointKeyPrefix = "checkpoint:"

// Store is a BadgerDB-backed checkpoint store. It is safe for concurrent use.
type Store struct {
	db     *badger.DB
	logger log.Logger
}

// Open opens (or creates) a store at path. With inMemory set the path is
// ignored and nothing touches disk.
func Open(path string, inMemory bool) (*Store, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	if inMemory {
		opts = badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Wrapf(err, "open checkpoint store at %q", path)
	}

	logger := log.GetLoggerWithName("store")
	logger.Info("checkpoint store opened", "path", path, "in_memory", inMemory)
	return &Store{db: db, logger: logger}, nil
}

func checkpointKey(scope string) []byte {
	return []byte(checkpointKeyPrefix + scope)
}

// Save writes cp under its scope, replacing any previous checkpoint.
func (s *Store) Save(ctx context.Context, cp *model.Checkpoint) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := model.Marshal(cp)
	if err != nil {
		return errors.Wrap(err, "marshal checkpoint")
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(checkpointKey(cp.Scope), data)
	})
	if err != nil {
		return errors.Wrapf(err, "save checkpoint %q", cp.Scope)
	}

	s.logger.Debug("checkpoint saved",
		log.ScopeKey, cp.Scope,
		log.FeaturesKey, len(cp.Weights),
		log.SamplesKey, cp.Observations,
	)
	return nil
}

// Load returns the checkpoint for scope. A missing scope yields an error
// matching errors.ErrNotFound.
func (s *Store) Load(ctx context.Context, scope string) (*model.Checkpoint, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var cp *model.Checkpoint
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(checkpointKey(scope))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return errors.Wrapf(errors.ErrNotFound, "checkpoint %q", scope)
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			decoded, err := model.Unmarshal(val)
			if err != nil {
				return err
			}
			cp = decoded
			return nil
		})
	})
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return nil, err
		}
		return nil, errors.Wrapf(err, "load checkpoint %q", scope)
	}
	return cp, nil
}

// Delete removes the checkpoint for scope. Deleting a missing scope yields
// errors.ErrNotFound.
func (s *Store) Delete(ctx context.Context, scope string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		key := checkpointKey(scope)
		if _, err := txn.Get(key); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return errors.Wrapf(errors.ErrNotFound, "checkpoint %q", scope)
			}
			return err
		}
		return txn.Delete(key)
	})
	if err != nil {
		return err
	}
	s.logger.Info("checkpoint deleted", log.ScopeKey, scope)
	return nil
}

// List returns the stored scopes in lexical order.
func (s *Store) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var scopes []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(checkpointKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			key := string(it.Item().Key())
			scopes = append(scopes, strings.TrimPrefix(key, checkpointKeyPrefix))
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "list checkpoints")
	}
	sort.Strings(scopes)
	return scopes, nil
}

// Close flushes and closes the database.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return errors.Wrap(err, "close checkpoint store")
	}
	return nil
}
