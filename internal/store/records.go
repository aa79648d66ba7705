package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/contactstore/internal/backend"
)

// Add stores value under a freshly allocated key.
// The allocation and the insert share one transaction.
func (s *Store) Add(ctx context.Context, value []byte) (backend.Key, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("add: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	var key int64
	err = tx.QueryRowContext(ctx, `
		UPDATE key_sequence SET next = next + 1
		WHERE name = ?
		RETURNING next
	`, sequenceName).Scan(&key)
	if err != nil {
		return 0, fmt.Errorf("add: allocate key: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO records (id, value) VALUES (?, ?)", key, value,
	); err != nil {
		return 0, fmt.Errorf("add: insert: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("add: commit: %w", err)
	}

	return backend.Key(key), nil
}

// Get returns the value stored at key.
// Returns an error wrapping backend.ErrNotFound if the key is absent.
func (s *Store) Get(ctx context.Context, key backend.Key) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx,
		"SELECT value FROM records WHERE id = ?", int64(key),
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get %d: %w", key, backend.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get %d: %w", key, err)
	}
	return value, nil
}

// Update stores value at key, inserting the row if needed.
// Writing past the allocator advances it so Add never collides.
func (s *Store) Update(ctx context.Context, key backend.Key, value []byte) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("update %d: begin tx: %w", key, err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO records (id, value) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET value = excluded.value
	`, int64(key), value)
	if err != nil {
		return fmt.Errorf("update %d: %w", key, err)
	}

	_, err = tx.ExecContext(ctx,
		"UPDATE key_sequence SET next = MAX(next, ?) WHERE name = ?",
		int64(key), sequenceName,
	)
	if err != nil {
		return fmt.Errorf("update %d: advance sequence: %w", key, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("update %d: commit: %w", key, err)
	}
	return nil
}

// Remove deletes the row at key. Reports whether a row existed.
func (s *Store) Remove(ctx context.Context, key backend.Key) (bool, error) {
	result, err := s.db.ExecContext(ctx, "DELETE FROM records WHERE id = ?", int64(key))
	if err != nil {
		return false, fmt.Errorf("remove %d: %w", key, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("remove %d: rows affected: %w", key, err)
	}
	return rowsAffected > 0, nil
}

// Clear deletes every row, the index slot included. The key sequence is kept.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM records"); err != nil {
		return fmt.Errorf("clear: %w", err)
	}
	return nil
}
