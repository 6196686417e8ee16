// Package storage provides the key/value stores backing the quote
// collection: a bbolt-backed persistent store and an in-memory session
// store. Both implement ports.KeyValue; values are plain strings per the
// storage format.
package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.etcd.io/bbolt"

	"github.com/jsamuelsen/quote-sync/internal/domain"
)

// bucketStore is the single bucket holding every persistent key: the
// serialized collection, baselines, and scalar preferences share one
// namespace like the flat key/value store they model.
var bucketStore = []byte("store")

// BoltStore is the durable key/value store. It survives restarts and
// registers as a health checker probing the backing file.
type BoltStore struct {
	db *bbolt.DB
}

// NewBoltStore opens (creating if needed) the database file at path and
// ensures the bucket exists. The parent directory is created when missing.
func NewBoltStore(path string) (*BoltStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create storage directory: %w", err)
		}
	}

	db, err := bbolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt database: %w", err)
	}

	store := &BoltStore{db: db}

	if err := store.initBucket(); err != nil {
		db.Close()

		return nil, fmt.Errorf("failed to initialize bucket: %w", err)
	}

	return store, nil
}

func (s *BoltStore) initBucket() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketStore); err != nil {
			return fmt.Errorf("failed to create store bucket: %w", err)
		}

		return nil
	})
}

// Get retrieves the value for key.
// Returns domain.ErrNotFound when the key is absent.
func (s *BoltStore) Get(ctx context.Context, key string) (string, error) {
	var value string

	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketStore).Get([]byte(key))
		if data == nil {
			return domain.NewNotFoundError("key", key)
		}

		value = string(data)

		return nil
	})
	if err != nil {
		if domain.IsNotFound(err) {
			return "", err
		}

		return "", domain.NewStorageError("get", key, err)
	}

	return value, nil
}

// Set stores value under key, overwriting any previous value.
func (s *BoltStore) Set(ctx context.Context, key, value string) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketStore).Put([]byte(key), []byte(value))
	})
	if err != nil {
		return domain.NewStorageError("set", key, err)
	}

	return nil
}

// Has reports whether key exists.
func (s *BoltStore) Has(ctx context.Context, key string) (bool, error) {
	var found bool

	err := s.db.View(func(tx *bbolt.Tx) error {
		found = tx.Bucket(bucketStore).Get([]byte(key)) != nil

		return nil
	})
	if err != nil {
		return false, domain.NewStorageError("has", key, err)
	}

	return found, nil
}

// Delete removes key. Deleting an absent key is not an error.
func (s *BoltStore) Delete(ctx context.Context, key string) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketStore).Delete([]byte(key))
	})
	if err != nil {
		return domain.NewStorageError("delete", key, err)
	}

	return nil
}

// Close releases the database file.
func (s *BoltStore) Close() error {
	if s.db == nil {
		return nil
	}

	return s.db.Close()
}

// Name implements ports.HealthChecker.
func (s *BoltStore) Name() string {
	return "bolt-store"
}

// Check implements ports.HealthChecker with a read probe of the bucket.
func (s *BoltStore) Check(ctx context.Context) error {
	return s.db.View(func(tx *bbolt.Tx) error {
		if tx.Bucket(bucketStore) == nil {
			return fmt.Errorf("store bucket missing")
		}

		return nil
	})
}
