// Package replycache is a small Badger-backed KV cache for X API reply
// pages, keyed by conversation id. Replies are public data so the store is
// opened without encryption.
package replycache

import (
	"errors"
	"strings"
	"time"

	badger "github.com/dgraph-io/badger/v4"
)

type Store struct {
	db *badger.DB
}

// Open opens (or creates) the cache at path. An empty path is an error so a
// misconfigured deployment fails at startup, not mid-request.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("replycache: path is required")
	}
	opts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Get returns the cached payload for key, reporting whether it was found.
func (s *Store) Get(key string) ([]byte, bool, error) {
	if s == nil || s.db == nil {
		return nil, false, errors.New("replycache: not opened")
	}
	var out []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return nil
			}
			return err
		}
		out, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, false, err
	}
	return out, out != nil, nil
}

// Set stores payload under key with a TTL so stale conversations age out.
func (s *Store) Set(key string, payload []byte, ttl time.Duration) error {
	if s == nil || s.db == nil {
		return errors.New("replycache: not opened")
	}
	return s.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry([]byte(key), payload)
		if ttl > 0 {
			e = e.WithTTL(ttl)
		}
		return txn.SetEntry(e)
	})
}
