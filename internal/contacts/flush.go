package contacts

import (
	"context"

	"github.com/roach88/contactstore/internal/request"
)

// Flush persists the in-memory index if it has unpersisted changes.
//
// It does not initialize the store: before initialization, or when the
// index is clean, it resolves at once without a backend call. A failed
// persist leaves the index dirty; retrying is up to the caller.
func (s *Store) Flush() *request.Request[struct{}] {
	return submit(s, "flush", true, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.flushIndex(ctx)
	})
}

func (s *Store) flushIndex(ctx context.Context) error {
	if !s.gate.ready() || !s.dirty {
		s.stats.FlushSkippedTotal.Add(1)
		s.logger.Debug("flush skipped: store not initialized or index clean",
			"state", s.gate.status().String(), "dirty", s.dirty)
		return nil
	}
	return s.persistIndex(ctx)
}

// Dirty reports whether the index has changes not yet persisted.
func (s *Store) Dirty() *request.Request[bool] {
	return submit(s, "dirty", true, func(ctx context.Context) (bool, error) {
		return s.dirty, nil
	})
}
