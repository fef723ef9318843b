package metrics

import "time"

// RecordStoreOperation records the outcome and latency of an Add,
// Get, or Remove call.
func (r *Registry) RecordStoreOperation(operation, status string, duration time.Duration) {
	r.StoreOperationsTotal.WithLabelValues(operation, status).Inc()
	r.StoreOperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordFlush records one memtable-to-level-0 flush.
func (r *Registry) RecordFlush() {
	r.FlushesTotal.Inc()
}

// RecordMerge records a completed merge into the level identified by
// level (e.g. "1", "2"), along with its duration.
func (r *Registry) RecordMerge(level string, duration time.Duration) {
	r.MergesTotal.WithLabelValues(level).Inc()
	r.MergeDuration.WithLabelValues(level).Observe(duration.Seconds())
}

// SetMemTableBytes reports the memtable's current size accumulator.
func (r *Registry) SetMemTableBytes(bytes int) {
	r.MemTableBytes.Set(float64(bytes))
}

// SetLevelTableCount reports how many SSTables a level currently holds.
func (r *Registry) SetLevelTableCount(level string, count int) {
	r.LevelTableCount.WithLabelValues(level).Set(float64(count))
}
