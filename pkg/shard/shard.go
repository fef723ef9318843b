// Package shard serializes access to one lsmkv.KVStore behind a
// single worker goroutine and a buffered-channel FIFO task queue, then fans
// out a key space across many such shards by hash. Grounded on the
// single-purpose worker pool in pkg/parallel/worker_pool.go, adapted
// from a bag-of-funcs task queue to a typed task hierarchy
// (original_source/ConcurrentQueue.hpp, ParallelKVStore.hpp) so that
// Get can carry a completion handle back to its caller.
package shard

import "github.com/vitillo/kvstore/pkg/lsmkv"

// task is the closed set of operations a shard's worker understands.
// Grounded on original_source/ParallelKVStore.hpp's Task subclasses:
// Add, Get, Remove, Destroy, Terminate.
type task struct {
	kind   taskKind
	key    []byte
	value  []byte
	result chan<- getResult // non-nil only for kind == taskGet
	done   chan<- error     // non-nil for kinds that report completion
}

type taskKind int

const (
	taskAdd taskKind = iota
	taskGet
	taskRemove
	taskDestroy
	taskTerminate
)

type getResult struct {
	value []byte
	ok    bool
}

// GetFuture is a handle to a read the worker goroutine has accepted but
// may not yet have completed. Grounded on
// original_source/ParallelKVStore.hpp's KVStorePartition::get, which
// returns a std::future<shared_ptr<Buffer>> immediately so the caller
// can do other work before blocking on the result.
type GetFuture struct {
	result <-chan getResult
}

// Wait blocks until the worker has fulfilled the read and returns its
// value, or (nil, false) if the key was absent.
func (f *GetFuture) Wait() ([]byte, bool) {
	r := <-f.result
	return r.value, r.ok
}

// Shard owns one KVStore and the single goroutine that is its only
// mutator, so all operations on the store are applied in strict
// enqueue order.
type Shard struct {
	store *lsmkv.KVStore
	tasks chan task
	done  chan struct{}
}

// New starts a shard's worker goroutine over a freshly constructed
// store. The task queue is a buffered channel holding up to 4096
// pending tasks rather than a truly unbounded queue: enqueueing does
// not block until 4096 tasks are pending, and blocks once it is full.
func New(cfg lsmkv.Config) (*Shard, error) {
	store, err := lsmkv.NewKVStore(cfg)
	if err != nil {
		return nil, err
	}

	s := &Shard{
		store: store,
		tasks: make(chan task, 4096),
		done:  make(chan struct{}),
	}
	go s.run()
	return s, nil
}

func (s *Shard) run() {
	defer close(s.done)
	for t := range s.tasks {
		switch t.kind {
		case taskAdd:
			t.done <- s.store.Add(t.key, t.value)
		case taskRemove:
			t.done <- s.store.Remove(t.key)
		case taskGet:
			v, ok := s.store.Get(t.key)
			t.result <- getResult{value: v, ok: ok}
		case taskDestroy:
			t.done <- s.store.Destroy()
		case taskTerminate:
			s.store.Close()
			return
		}
	}
}

// Add enqueues an upsert and blocks until the worker has applied it.
func (s *Shard) Add(key, value []byte) error {
	done := make(chan error, 1)
	s.tasks <- task{kind: taskAdd, key: key, value: value, done: done}
	return <-done
}

// Remove enqueues a tombstone insert and blocks until applied.
func (s *Shard) Remove(key []byte) error {
	done := make(chan error, 1)
	s.tasks <- task{kind: taskRemove, key: key, done: done}
	return <-done
}

// Get enqueues a read and returns a future immediately, without
// blocking for the worker's completion handle. Because Get is
// enqueued through the same FIFO as Add and Remove, a Get issued after
// an Add for the same key always observes that Add or a later write,
// regardless of when the caller gets around to waiting on the future.
func (s *Shard) Get(key []byte) *GetFuture {
	result := make(chan getResult, 1)
	s.tasks <- task{kind: taskGet, key: key, result: result}
	return &GetFuture{result: result}
}

// Destroy enqueues irrecoverable teardown of the underlying store.
func (s *Shard) Destroy() error {
	done := make(chan error, 1)
	s.tasks <- task{kind: taskDestroy, done: done}
	return <-done
}

// Close enqueues termination after any already-queued work and joins
// the worker goroutine.
func (s *Shard) Close() {
	s.tasks <- task{kind: taskTerminate}
	<-s.done
}
