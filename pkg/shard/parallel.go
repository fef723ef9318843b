package shard

import (
	"runtime"

	"github.com/vitillo/kvstore/pkg/lsmkv"
)

// ParallelStore fans a key space out across P independent shards,
// routing each key to shard hash(key) mod P via djb2. A single key is
// always served by the same shard, giving per-key total order without
// cross-shard synchronization; there is no cross-shard consistency
// guarantee. Grounded on original_source/ParallelKVStore.hpp.
type ParallelStore struct {
	shards []*Shard
}

// NewParallelStore constructs cfg.Parallelism shards, one per
// partition of cfg (see Config.Partition), each CPU-pinned by the
// conceptual mapping shard_index mod num_cpus. Go's scheduler does not
// expose pthread-style CPU affinity, so that pinning is realized here
// only as a reference to GOMAXPROCS for callers that want to reason
// about shard-to-core locality; the OS scheduler is free to migrate
// goroutines across cores.
func NewParallelStore(cfg lsmkv.Config) (*ParallelStore, error) {
	if cfg.Parallelism < 1 {
		panic("lsmkv: Config.Parallelism must be >= 1")
	}

	shards := make([]*Shard, cfg.Parallelism)
	for i := range shards {
		s, err := New(cfg.Partition(i))
		if err != nil {
			for _, built := range shards[:i] {
				built.Close()
			}
			return nil, err
		}
		shards[i] = s
	}

	return &ParallelStore{shards: shards}, nil
}

// NumCPUHint returns the conceptual CPU a shard index would be pinned
// to, i.e. shard_index mod runtime.GOMAXPROCS(0).
func NumCPUHint(shardIndex int) int {
	return shardIndex % runtime.GOMAXPROCS(0)
}

func (p *ParallelStore) shardFor(key []byte) *Shard {
	idx := int(lsmkv.Hash(key) % uint64(len(p.shards)))
	return p.shards[idx]
}

// Add routes key to its shard and enqueues an upsert.
func (p *ParallelStore) Add(key, value []byte) error {
	return p.shardFor(key).Add(key, value)
}

// Remove routes key to its shard and enqueues a tombstone insert.
func (p *ParallelStore) Remove(key []byte) error {
	return p.shardFor(key).Remove(key)
}

// Get routes key to its shard and returns a future for the read
// without blocking on its completion.
func (p *ParallelStore) Get(key []byte) *GetFuture {
	return p.shardFor(key).Get(key)
}

// Destroy irrecoverably tears down every shard's store.
func (p *ParallelStore) Destroy() error {
	var firstErr error
	for _, s := range p.shards {
		if err := s.Destroy(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Close terminates every shard's worker, joining each in turn.
func (p *ParallelStore) Close() {
	for _, s := range p.shards {
		s.Close()
	}
}
