package contacts

import (
	"context"

	"github.com/roach88/contactstore/internal/backend"
	"github.com/roach88/contactstore/internal/contact"
	"github.com/roach88/contactstore/internal/request"
)

// Initialize loads the backend and index if nothing has yet. Every other
// operation does this implicitly; Initialize only makes it observable.
func (s *Store) Initialize() *request.Request[struct{}] {
	return submit(s, "initialize", false, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, nil
	})
}

// Get returns the record stored under uid.
func (s *Store) Get(uid string) *request.Request[contact.Record] {
	return submit(s, "get", false, func(ctx context.Context) (contact.Record, error) {
		key, ok := s.currentIndex().ByUID[uid]
		if !ok {
			return contact.Record{}, newNotFoundError(uid, "uid not found")
		}
		return s.fetch(ctx, key)
	})
}

// GetByPhone returns the record owning number, matching full phone numbers
// before short ones.
func (s *Store) GetByPhone(number string) *request.Request[contact.Record] {
	return submit(s, "get_by_phone", false, func(ctx context.Context) (contact.Record, error) {
		key, ok := s.currentIndex().lookupPhone(number)
		if !ok {
			return contact.Record{}, &Error{
				Code:    ErrCodeNotFound,
				Message: "phone " + number + " not found",
			}
		}
		return s.fetch(ctx, key)
	})
}

func (s *Store) fetch(ctx context.Context, key backend.Key) (contact.Record, error) {
	data, err := s.currentBackend().Get(ctx, key)
	if err != nil {
		return contact.Record{}, err
	}
	return contact.Unmarshal(data)
}

// Length returns the number of indexed records.
func (s *Store) Length() *request.Request[int] {
	return submit(s, "length", false, func(ctx context.Context) (int, error) {
		return s.currentIndex().Len(), nil
	})
}

// Refresh drops the in-memory index, including unflushed changes, and
// reloads it from the backend. It also retries a failed initialization.
func (s *Store) Refresh() *request.Request[struct{}] {
	return submit(s, "refresh", true, func(ctx context.Context) (struct{}, error) {
		s.gate.reset()
		s.index = nil
		s.dirty = false
		return struct{}{}, s.ensureReady(ctx)
	})
}

// Snapshot returns a deep copy of the in-memory index.
func (s *Store) Snapshot() *request.Request[Index] {
	return submit(s, "snapshot", false, func(ctx context.Context) (Index, error) {
		return s.currentIndex().Clone(), nil
	})
}
