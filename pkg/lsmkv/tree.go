package lsmkv

import (
	"strconv"
	"sync"
	"time"

	"github.com/vitillo/kvstore/pkg/logging"
	"github.com/vitillo/kvstore/pkg/metrics"
)

// LSMTree owns Level 0 and the disjoint LevelN's above it, plus the
// single background goroutine that cascades merges down the level
// chain whenever a level crosses its threshold. Grounded on
// original_source/LSMTree.hpp, adapted from the
// sync.Cond-driven background-compaction pattern in pkg/lsm.
type LSMTree struct {
	cfg     Config
	l0      *level0
	levels  []*levelN // levels[0] is level 1, levels[len-1] is the last level
	logger  logging.Logger
	metrics *metrics.Registry

	mergeMu   sync.Mutex
	mergeCond *sync.Cond
	wake      bool
	stop      bool
	done      chan struct{}
}

// newLSMTree builds the level chain from cfg (requiring NumLevels>=2,
// enforced by Config.validate) and starts the background merger.
func newLSMTree(cfg Config) (*LSMTree, error) {
	logger := cfg.logger()
	levelCfgs := cfg.levelConfigs()

	l0, err := newLevel0(levelCfgs[0], logger)
	if err != nil {
		return nil, err
	}

	levels := make([]*levelN, 0, len(levelCfgs)-1)
	for _, lc := range levelCfgs[1:] {
		ln, err := newLevelN(lc, logger)
		if err != nil {
			return nil, err
		}
		levels = append(levels, ln)
	}

	tree := &LSMTree{
		cfg:     cfg,
		l0:      l0,
		levels:  levels,
		logger:  logger,
		metrics: cfg.metrics(),
		done:    make(chan struct{}),
	}
	tree.mergeCond = sync.NewCond(&tree.mergeMu)

	go tree.mergeLoop()
	return tree, nil
}

// get probes Level 0 first (most recent data), then each LevelN in order.
func (t *LSMTree) get(key []byte) ([]byte, bool) {
	if v, ok := t.l0.get(key); ok {
		return v, true
	}
	for _, ln := range t.levels {
		if v, ok := ln.get(key); ok {
			return v, true
		}
	}
	return nil, false
}

// flush dumps a memtable's contents into Level 0, a no-op if mt is
// empty, and wakes the background merger to reassess the level chain.
func (t *LSMTree) flush(mt *memTable) error {
	if mt.Size() == 0 {
		return nil
	}
	if err := t.l0.dumpMemtable(mt); err != nil {
		return err
	}
	t.metrics.RecordFlush()
	t.metrics.SetLevelTableCount("0", t.l0.Size())
	t.signalMerge()
	return nil
}

func (t *LSMTree) signalMerge() {
	t.mergeMu.Lock()
	t.wake = true
	t.mergeMu.Unlock()
	t.mergeCond.Signal()
}

// mergeLoop cascades merges down the level chain: whenever Level 0
// crosses its threshold, merge it into Level 1; whenever Level i-1
// then crosses its threshold as a result, merge it into Level i; and
// so on. Grounded on original_source/LSMTree.hpp's background merge
// thread and the condition-variable-driven compaction worker in
// pkg/lsm.
func (t *LSMTree) mergeLoop() {
	defer close(t.done)

	for {
		t.mergeMu.Lock()
		for !t.wake && !t.stop {
			t.mergeCond.Wait()
		}
		if t.stop {
			t.mergeMu.Unlock()
			return
		}
		t.wake = false
		t.mergeMu.Unlock()

		t.runMergeCascade()
	}
}

func (t *LSMTree) runMergeCascade() {
	if t.l0.needsMerging() && len(t.levels) > 0 {
		start := time.Now()
		if err := t.levels[0].mergeWithLevel0(t.l0); err != nil {
			t.logger.Error("merge level 0 into level 1 failed", logging.Error(err))
			return
		}
		t.metrics.RecordMerge("1", time.Since(start))
		t.metrics.SetLevelTableCount("0", t.l0.Size())
		t.metrics.SetLevelTableCount("1", t.levels[0].Size())
	}

	for i := 0; i < len(t.levels)-1; i++ {
		if !t.levels[i].needsMerging() {
			continue
		}
		start := time.Now()
		if err := t.levels[i+1].mergeWithLevelN(t.levels[i]); err != nil {
			t.logger.Error("merge cascade failed", logging.LevelIndex(i+1), logging.Error(err))
			return
		}
		t.metrics.RecordMerge(strconv.Itoa(i+2), time.Since(start))
		t.metrics.SetLevelTableCount(strconv.Itoa(i+1), t.levels[i].Size())
		t.metrics.SetLevelTableCount(strconv.Itoa(i+2), t.levels[i+1].Size())
	}
}

// stopMerger signals the background goroutine to exit and waits for it.
func (t *LSMTree) stopMerger() {
	t.mergeMu.Lock()
	t.stop = true
	t.mergeMu.Unlock()
	t.mergeCond.Signal()
	<-t.done
}

// destroy stops the merger and irrecoverably deletes every level's
// on-disk state.
func (t *LSMTree) destroy() error {
	t.stopMerger()

	if err := t.l0.destroy(); err != nil {
		return err
	}
	for _, ln := range t.levels {
		if err := ln.destroy(); err != nil {
			return err
		}
	}
	return nil
}

// close stops the merger and, if Level 0 holds residual tables, merges
// them into Level 1 so a future reopen of this tree finds Level 0
// empty (newLevel panics otherwise). Callers must not use the tree
// after destroy has already run; Close here assumes a normal
// (non-destroyed) tree.
func (t *LSMTree) close() error {
	t.stopMerger()

	if t.l0.Size() > 0 && len(t.levels) > 0 {
		if err := t.levels[0].mergeWithLevel0(t.l0); err != nil {
			return err
		}
	}

	for _, ln := range t.levels {
		ln.mu.RLock()
		tables := ln.tables
		ln.mu.RUnlock()
		for _, tb := range tables {
			if err := tb.release(); err != nil {
				return err
			}
		}
	}
	t.l0.mu.RLock()
	l0Tables := t.l0.tables
	t.l0.mu.RUnlock()
	for _, tb := range l0Tables {
		if err := tb.release(); err != nil {
			return err
		}
	}
	return nil
}

// String renders every level's table count, mirroring
// original_source/LSMTree.hpp's operator<<.
func (t *LSMTree) String() string {
	s := "level 0: " + t.l0.String()
	for i, ln := range t.levels {
		s += "\nlevel " + strconv.Itoa(i+1) + ": " + ln.String()
	}
	return s
}
