// Package snapshot persists JSON copies of collection state in a local
// bbolt file, keyed per collection and parent id. The store is a display
// accelerator, not a source of truth: a load miss or a corrupt value is
// treated as absent, never as an error, and saves that fail are logged and
// dropped.
package snapshot

import (
	"context"
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/avolkovs/couplesync/internal/logging"
)

var bucketName = []byte("snapshots")

type Store struct {
	db  *bbolt.DB
	log logging.Logger
}

// Open opens (creating if needed) the snapshot database at path.
func Open(path string, log logging.Logger) (*Store, error) {
	db, err := bbolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("opening snapshot db %s: %w", path, err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing snapshot db: %w", err)
	}
	return &Store{db: db, log: log}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Key builds the snapshot key for a collection scoped to one parent.
func Key(collection, parentID string) string {
	return collection + "/" + parentID
}

// Save overwrites the snapshot under key with the JSON encoding of v.
// Failures are logged, not returned; the latest successful write wins.
func (s *Store) Save(ctx context.Context, key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		s.log.Warn(ctx, "snapshot marshal failed", "key", key, "error", err)
		return
	}
	err = s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketName).Put([]byte(key), data)
	})
	if err != nil {
		s.log.Warn(ctx, "snapshot write failed", "key", key, "error", err)
		return
	}
	s.log.Debug(ctx, "snapshot saved", "key", key, "bytes", len(data))
}

// Load reads the snapshot under key into v. Returns false when the key is
// absent or the stored value does not decode; both are cache misses.
func (s *Store) Load(ctx context.Context, key string, v any) bool {
	var data []byte
	_ = s.db.View(func(tx *bbolt.Tx) error {
		if raw := tx.Bucket(bucketName).Get([]byte(key)); raw != nil {
			data = append([]byte(nil), raw...)
		}
		return nil
	})
	if data == nil {
		return false
	}
	if err := json.Unmarshal(data, v); err != nil {
		s.log.Warn(ctx, "snapshot corrupt, treating as miss", "key", key, "error", err)
		return false
	}
	return true
}

// Remove drops the snapshot under key. Idempotent.
func (s *Store) Remove(ctx context.Context, key string) {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketName).Delete([]byte(key))
	})
	if err != nil {
		s.log.Warn(ctx, "snapshot delete failed", "key", key, "error", err)
	}
}
