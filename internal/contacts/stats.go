package contacts

import "sync/atomic"

// Stats holds atomic counters for a store.
type Stats struct {
	OpsTotal          atomic.Int64
	OpsFailedTotal    atomic.Int64
	InitTotal         atomic.Int64
	IndexPersistTotal atomic.Int64
	FlushSkippedTotal atomic.Int64
}

// Snapshot returns all counters as a string-keyed map.
func (m *Stats) Snapshot() map[string]int64 {
	return map[string]int64{
		"ops_total":           m.OpsTotal.Load(),
		"ops_failed_total":    m.OpsFailedTotal.Load(),
		"init_total":          m.InitTotal.Load(),
		"index_persist_total": m.IndexPersistTotal.Load(),
		"flush_skipped_total": m.FlushSkippedTotal.Load(),
	}
}
