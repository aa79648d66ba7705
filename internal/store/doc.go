// Package store provides the SQLite-backed persistence backend for the
// contacts store.
//
// Values live in a single records table keyed by backend key. Keys are handed
// out by a key_sequence row rather than rowid reuse, so a key is never
// assigned twice, not even after Clear. The sequence starts past
// backend.IndexKey, which stays reserved for the serialized index.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//
// Each call runs in its own statement or transaction; there is no cross-key
// atomicity, matching the backend contract.
package store
