package contacts

import (
	"context"

	"github.com/roach88/contactstore/internal/backend"
	"github.com/roach88/contactstore/internal/contact"
	"github.com/roach88/contactstore/internal/request"
)

// Save adds r to the backend and indexes it. The request resolves with the
// backend key only after the updated index has been persisted.
//
// The record is copied at call time. If the index persist fails, the record
// stays in the backend and in the in-memory index; the dirty flag stays set
// so a later Flush can write the index out.
func (s *Store) Save(r contact.Record) *request.Request[backend.Key] {
	if err := r.Validate(); err != nil {
		return request.Rejected[backend.Key](newInvalidRecordError(r.UID, err))
	}
	rec := r.Clone()
	data, err := contact.Marshal(rec)
	if err != nil {
		return request.Rejected[backend.Key](newInvalidRecordError(r.UID, err))
	}

	return submit(s, "save", false, func(ctx context.Context) (backend.Key, error) {
		return s.doSave(ctx, rec, data)
	})
}

func (s *Store) doSave(ctx context.Context, rec contact.Record, data []byte) (backend.Key, error) {
	b := s.currentBackend()

	key, err := b.Add(ctx, data)
	if err != nil {
		return 0, err
	}

	ix := s.currentIndex()
	ix.ByUID[rec.UID] = key
	ix.indexPhones(rec, key)
	s.dirty = true

	if err := s.persistIndex(ctx); err != nil {
		return 0, err
	}
	return key, nil
}

// Update replaces the stored record with r's uid and re-points its phone
// entries. Fails with NOT_FOUND, without touching the backend, when the uid
// is not indexed.
func (s *Store) Update(r contact.Record) *request.Request[struct{}] {
	if err := r.Validate(); err != nil {
		return request.Rejected[struct{}](newInvalidRecordError(r.UID, err))
	}
	rec := r.Clone()
	data, err := contact.Marshal(rec)
	if err != nil {
		return request.Rejected[struct{}](newInvalidRecordError(r.UID, err))
	}

	return submit(s, "update", false, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.doUpdate(ctx, rec, data)
	})
}

func (s *Store) doUpdate(ctx context.Context, rec contact.Record, data []byte) error {
	ix := s.currentIndex()
	key, ok := ix.ByUID[rec.UID]
	if !ok {
		return newNotFoundError(rec.UID, "datastore id cannot be found")
	}

	b := s.currentBackend()
	oldData, err := b.Get(ctx, key)
	if err != nil {
		return err
	}
	old, err := contact.Unmarshal(oldData)
	if err != nil {
		return err
	}

	ix.reindexPhones(old, rec, key)
	s.dirty = true

	if err := b.Update(ctx, key, data); err != nil {
		return err
	}
	return s.persistIndex(ctx)
}

// Remove deletes the record with uid. It resolves true when a record was
// removed and false when the backend had nothing at the indexed key.
//
// Without forceFlush the index change stays in memory only (dirty). With
// forceFlush the index is persisted first and a persist failure fails the
// request.
func (s *Store) Remove(uid string, forceFlush bool) *request.Request[bool] {
	return submit(s, "remove", false, func(ctx context.Context) (bool, error) {
		return s.doRemove(ctx, uid, forceFlush)
	})
}

func (s *Store) doRemove(ctx context.Context, uid string, forceFlush bool) (bool, error) {
	ix := s.currentIndex()
	key, ok := ix.ByUID[uid]
	if !ok {
		return false, newNotFoundError(uid, "uid not found")
	}

	b := s.currentBackend()
	data, err := b.Get(ctx, key)
	if err != nil {
		return false, err
	}
	victim, err := contact.Unmarshal(data)
	if err != nil {
		return false, err
	}

	removed, err := b.Remove(ctx, key)
	if err != nil {
		return false, err
	}
	if !removed {
		return false, nil
	}

	delete(ix.ByUID, uid)
	s.dirty = true
	ix.removePhones(victim, key)

	if forceFlush {
		if err := s.flushIndex(ctx); err != nil {
			return false, err
		}
	}
	return true, nil
}

// Clear removes every record and resets the index to empty. The records are
// gone even when persisting the empty index fails.
func (s *Store) Clear() *request.Request[struct{}] {
	return submit(s, "clear", false, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.doClear(ctx)
	})
}

func (s *Store) doClear(ctx context.Context) error {
	if err := s.currentBackend().Clear(ctx); err != nil {
		return err
	}

	s.index = NewIndex()
	s.dirty = true

	return s.persistIndex(ctx)
}

// persistIndex writes the in-memory index to its reserved key and clears
// the dirty flag. Backend errors are returned unchanged.
func (s *Store) persistIndex(ctx context.Context) error {
	data, err := marshalIndex(s.currentIndex())
	if err != nil {
		return err
	}
	if err := s.currentBackend().Update(ctx, backend.IndexKey, data); err != nil {
		return err
	}
	s.stats.IndexPersistTotal.Add(1)
	s.dirty = false
	return nil
}
