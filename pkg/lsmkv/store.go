package lsmkv

import (
	"sync"
	"time"

	"github.com/vitillo/kvstore/pkg/metrics"
)

// KVStore is a single-shard, embedded, ordered key-value store: a
// memtable in front of an LSM tree. Grounded on
// original_source/KVStore.hpp.
type KVStore struct {
	mu        sync.Mutex
	cfg       Config
	mt        *memTable
	tree      *LSMTree
	metrics   *metrics.Registry
	destroyed bool
}

// NewKVStore validates cfg and constructs a store with its own
// memtable and LSM tree.
func NewKVStore(cfg Config) (*KVStore, error) {
	cfg.validate()
	tree, err := newLSMTree(cfg)
	if err != nil {
		return nil, err
	}
	return &KVStore{
		cfg:     cfg,
		mt:      newMemTable(),
		tree:    tree,
		metrics: cfg.metrics(),
	}, nil
}

// Add inserts or overwrites (key, value). Both key and value must be
// non-empty; an empty value has no representation other than the
// tombstone encoding reserved for Remove, so passing one is a
// programming error, not a runtime condition.
func (s *KVStore) Add(key, value []byte) error {
	if len(key) == 0 {
		panic("lsmkv: Add requires a non-empty key")
	}
	if len(value) == 0 {
		panic("lsmkv: Add requires a non-empty value; use Remove to delete")
	}
	start := time.Now()
	err := s.add(key, value)
	s.metrics.RecordStoreOperation("add", status(err), time.Since(start))
	return err
}

// Remove deletes key by inserting a tombstone.
func (s *KVStore) Remove(key []byte) error {
	if len(key) == 0 {
		panic("lsmkv: Remove requires a non-empty key")
	}
	start := time.Now()
	err := s.add(key, nil)
	s.metrics.RecordStoreOperation("remove", status(err), time.Since(start))
	return err
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func (s *KVStore) add(key, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.destroyed {
		return ErrStoreDestroyed
	}

	s.mt.add(key, value)
	s.metrics.SetMemTableBytes(s.mt.Size())
	if uint32(s.mt.Size()) <= s.cfg.MemTableSize {
		return nil
	}

	if err := s.tree.flush(s.mt); err != nil {
		return err
	}
	s.mt.clear()
	s.metrics.SetMemTableBytes(0)
	return nil
}

// Get checks the memtable first, then the tree. A tombstone (or any
// miss) surfaces as (nil, false).
func (s *KVStore) Get(key []byte) ([]byte, bool) {
	start := time.Now()
	v, ok := s.get(key)
	if ok {
		s.metrics.RecordStoreOperation("get", "hit", time.Since(start))
	} else {
		s.metrics.RecordStoreOperation("get", "miss", time.Since(start))
	}
	return v, ok
}

func (s *KVStore) get(key []byte) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.destroyed {
		return nil, false
	}

	if v, ok := s.mt.get(key); ok {
		return tombstoneToMiss(v)
	}
	v, ok := s.tree.get(key)
	if !ok {
		return nil, false
	}
	return tombstoneToMiss(v)
}

func tombstoneToMiss(v []byte) ([]byte, bool) {
	if isTombstone(v) {
		return nil, false
	}
	return v, true
}

// Destroy wipes the tree and memtable irrecoverably. Afterwards Add and
// Remove return ErrStoreDestroyed, Get always misses, and Close and a
// second Destroy return nil without doing anything.
func (s *KVStore) Destroy() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.destroyed {
		return nil
	}
	s.destroyed = true
	s.mt.clear()
	return s.tree.destroy()
}

// Close flushes any residual memtable and shuts down the tree's
// background merger, unless Destroy already ran.
func (s *KVStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.destroyed {
		return nil
	}
	if s.mt.Size() > 0 {
		if err := s.tree.flush(s.mt); err != nil {
			return err
		}
		s.mt.clear()
	}
	return s.tree.close()
}

// Stats is a point-in-time snapshot of a store's memtable and level
// table counts, grounded on the
// LSMStorage.GetStats/LSMStatsSnapshot pattern in pkg/lsm/lsm.go. It
// is a read-only accessor, not a new mutating operation.
type Stats struct {
	MemTableBytes   int
	Level0TableCount int
	LevelTableCounts []int // index i = level i+1's table count
}

// Stats returns a snapshot of the store's current memtable size and
// per-level table counts.
func (s *KVStore) Stats() Stats {
	s.mu.Lock()
	memBytes := s.mt.Size()
	s.mu.Unlock()

	counts := make([]int, len(s.tree.levels))
	for i, ln := range s.tree.levels {
		counts[i] = ln.Size()
	}

	return Stats{
		MemTableBytes:    memBytes,
		Level0TableCount: s.tree.l0.Size(),
		LevelTableCounts: counts,
	}
}
