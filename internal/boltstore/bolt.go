// Package boltstore implements the contacts persistence backend on BoltDB.
//
// All values live in one bucket keyed by the big-endian encoding of the
// backend key. New keys come from the bucket sequence, which is seeded past
// backend.IndexKey and carried across Clear.
package boltstore

import (
	"context"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"

	bolt "go.etcd.io/bbolt"

	"github.com/roach88/contactstore/internal/backend"
)

var bucketRecords = []byte("records")

// Store implements backend.Backend backed by BoltDB.
type Store struct {
	db *bolt.DB
}

var _ backend.Backend = (*Store)(nil)

// Open opens (or creates) a BoltDB database at path, creating parent
// directories as needed.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir %s: %w", filepath.Dir(path), err)
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{NoSync: false})
	if err != nil {
		return nil, fmt.Errorf("open bolt db: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(bucketRecords)
		if err != nil {
			return err
		}
		if b.Sequence() < uint64(backend.IndexKey) {
			return b.SetSequence(uint64(backend.IndexKey))
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create buckets: %w", err)
	}
	return &Store{db: db}, nil
}

func encodeKey(key backend.Key) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(key))
	return b
}

// Add implements backend.Backend.
func (s *Store) Add(ctx context.Context, value []byte) (backend.Key, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	var key backend.Key
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketRecords)
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		key = backend.Key(seq)
		return b.Put(encodeKey(key), value)
	})
	if err != nil {
		return 0, fmt.Errorf("add: %w", err)
	}
	return key, nil
}

// Get implements backend.Backend.
func (s *Store) Get(ctx context.Context, key backend.Key) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var value []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketRecords).Get(encodeKey(key))
		if v == nil {
			return backend.ErrNotFound
		}
		// v is only valid for the life of the transaction.
		value = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("get %d: %w", key, err)
	}
	return value, nil
}

// Update implements backend.Backend.
func (s *Store) Update(ctx context.Context, key backend.Key, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketRecords)
		if err := b.Put(encodeKey(key), value); err != nil {
			return err
		}
		if uint64(key) > b.Sequence() {
			return b.SetSequence(uint64(key))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("update %d: %w", key, err)
	}
	return nil
}

// Remove implements backend.Backend.
func (s *Store) Remove(ctx context.Context, key backend.Key) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	removed := false
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketRecords)
		k := encodeKey(key)
		if b.Get(k) == nil {
			return nil
		}
		removed = true
		return b.Delete(k)
	})
	if err != nil {
		return false, fmt.Errorf("remove %d: %w", key, err)
	}
	return removed, nil
}

// Clear implements backend.Backend by recreating the bucket with its
// sequence carried over.
func (s *Store) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.db.Update(func(tx *bolt.Tx) error {
		seq := tx.Bucket(bucketRecords).Sequence()
		if err := tx.DeleteBucket(bucketRecords); err != nil {
			return err
		}
		b, err := tx.CreateBucket(bucketRecords)
		if err != nil {
			return err
		}
		return b.SetSequence(seq)
	})
	if err != nil {
		return fmt.Errorf("clear: %w", err)
	}
	return nil
}

// Len returns the number of stored contact records, excluding the index slot.
func (s *Store) Len() (int, error) {
	n := 0
	err := s.db.View(func(tx *bolt.Tx) error {
		n = tx.Bucket(bucketRecords).Stats().KeyN
		if tx.Bucket(bucketRecords).Get(encodeKey(backend.IndexKey)) != nil {
			n--
		}
		return nil
	})
	return n, err
}

// Close closes the underlying BoltDB.
func (s *Store) Close() error {
	return s.db.Close()
}
