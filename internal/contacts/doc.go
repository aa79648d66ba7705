// Package contacts implements the indexed contact store.
//
// A Store keeps three lookup maps (uid, phone, short phone) in memory and
// persists them as one value at backend.IndexKey next to the records they
// point at. Every public method queues an operation and returns a
// *request.Request; a single goroutine running Store.Run drains the queue in
// submission order, so the index is only ever touched by one goroutine.
//
// Lifecycle:
//
//	s := contacts.New(b, contacts.WithLogger(logger))
//	go s.Run(ctx)
//	key, err := s.Save(rec).Wait(ctx)
//	...
//	s.Stop()
//
// The first operation to run loads the index (creating an empty one if the
// backend has none). A failed load fails that operation and every later one
// with INIT_FAILED until Refresh succeeds.
//
// Mutations persist the index before resolving, except Remove, which only
// marks the index dirty unless asked to flush. Flush writes a dirty index and
// is a no-op otherwise. When an index persist fails, the record write is kept
// and the index stays dirty so a later Flush can catch the backend up.
package contacts
