package lsmkv

import (
	"golang.org/x/exp/slices"

	"github.com/vitillo/kvstore/pkg/logging"
)

// levelN holds tables disjoint in key range, sorted ascending by min
// key, so at most one table can contain any given key.
type levelN struct {
	*level
}

func newLevelN(cfg LevelConfig, logger logging.Logger) (*levelN, error) {
	base, err := newLevel(cfg, logger)
	if err != nil {
		return nil, err
	}
	return &levelN{level: base}, nil
}

// get binary searches the disjoint table ranges for the at-most-one
// table that can contain key: since ln.tables is sorted ascending and
// disjoint, both min_key and max_key are ascending, so the first table
// whose max_key >= key is the only candidate.
func (ln *levelN) get(key []byte) ([]byte, bool) {
	ln.mu.RLock()
	defer ln.mu.RUnlock()

	idx, _ := slices.BinarySearchFunc(ln.tables, key, func(t *Table, target []byte) int {
		return compareKeys(t.MaxKey(), target)
	})
	if idx >= len(ln.tables) {
		return nil, false
	}
	t := ln.tables[idx]
	if compareKeys(key, t.MinKey()) < 0 {
		return nil, false
	}
	return t.Get(key)
}

// mergeRange returns [min, max] spanning every table in tables.
func mergeRange(tables []*Table) (min, max []byte) {
	min, max = tables[0].MinKey(), tables[0].MaxKey()
	for _, t := range tables[1:] {
		if compareKeys(t.MinKey(), min) < 0 {
			min = t.MinKey()
		}
		if compareKeys(t.MaxKey(), max) > 0 {
			max = t.MaxKey()
		}
	}
	return min, max
}

// overlappingSpan returns the contiguous [first, last) index range of
// ln.tables whose key range intersects [min, max]. ln.tables is
// disjoint and sorted, so any tables that overlap form one contiguous
// run. Caller must hold at least a read lock.
func (ln *levelN) overlappingSpan(min, max []byte) (first, last int) {
	first, last = -1, -1
	for i, t := range ln.tables {
		if t.Overlaps(min, max) {
			if first == -1 {
				first = i
			}
			last = i + 1
		}
	}
	return first, last
}

// mergeWithLevel0 implements a two-phase merge of Level0 into
// this level: snapshot Level0's tables (reversed, so highest
// precedence comes first) under its lock, compute the overlapping
// span of this level under a read lock, merge with no lock held, then
// publish under both exclusive locks.
// Grounded on original_source/Level.hpp's LevelN::merge_with(Level0).
func (ln *levelN) mergeWithLevel0(lower *level0) error {
	lower.mu.Lock()
	snapshot := make([]*Table, len(lower.tables))
	for i, t := range lower.tables {
		snapshot[len(lower.tables)-1-i] = t // reverse: most recent first
	}
	level0Count := len(lower.tables)
	lower.mu.Unlock()

	if len(snapshot) == 0 {
		return nil
	}

	min, max := mergeRange(snapshot)

	ln.mu.RLock()
	first, last := ln.overlappingSpan(min, max)
	var overlapping []*Table
	if first != -1 {
		overlapping = append(overlapping, ln.tables[first:last]...)
	}
	ln.mu.RUnlock()

	input := append(snapshot, overlapping...)
	merged, err := mergeTables(input, ln.cfg)
	if err != nil {
		return err
	}

	lower.mu.Lock()
	ln.mu.Lock()
	lower.tables = lower.tables[level0Count:]
	if first != -1 {
		ln.tables = spliceTableSpan(ln.tables, first, last, merged)
	} else {
		ln.tables = insertTableSpan(ln.tables, merged, min)
	}
	ln.mu.Unlock()
	lower.mu.Unlock()

	// Only now, after the published list no longer references them, do
	// the merge inputs give up their list-side ownership; any Get that
	// grabbed the old list before the swap already finished its read
	// under the level's read lock, since the exclusive lock above could
	// not have been acquired while that read was in flight.
	for _, t := range input {
		if err := t.release(); err != nil {
			ln.logger.Error("release merged-away table", logging.Error(err))
		}
	}

	ln.logger.Info("merged level 0 into level 1", logging.Count(level0Count), logging.Count(len(merged)))
	return nil
}

// mergeWithLevelN implements the merge of a lower LevelN into this
// level. Level N≥1 has exactly one writer (the merger goroutine), so
// snapshotting and computing the overlap take only read locks — only
// the final publish takes both levels' exclusive locks.
func (ln *levelN) mergeWithLevelN(lower *levelN) error {
	lower.mu.RLock()
	snapshot := append([]*Table(nil), lower.tables...)
	lower.mu.RUnlock()

	if len(snapshot) == 0 {
		return nil
	}

	min, max := mergeRange(snapshot)

	ln.mu.RLock()
	first, last := ln.overlappingSpan(min, max)
	var overlapping []*Table
	if first != -1 {
		overlapping = append(overlapping, ln.tables[first:last]...)
	}
	ln.mu.RUnlock()

	input := append(snapshot, overlapping...)
	merged, err := mergeTables(input, ln.cfg)
	if err != nil {
		return err
	}

	lower.mu.Lock()
	ln.mu.Lock()
	lower.tables = nil
	if first != -1 {
		ln.tables = spliceTableSpan(ln.tables, first, last, merged)
	} else {
		ln.tables = insertTableSpan(ln.tables, merged, min)
	}
	ln.mu.Unlock()
	lower.mu.Unlock()

	for _, t := range input {
		if err := t.release(); err != nil {
			ln.logger.Error("release merged-away table", logging.Error(err))
		}
	}

	ln.logger.Info("merged level into next level", logging.Count(len(snapshot)), logging.Count(len(merged)))
	return nil
}

// spliceTableSpan replaces tables[first:last] with replacement,
// preserving ascending order (replacement is itself already ascending
// and occupies exactly the span being removed).
func spliceTableSpan(tables []*Table, first, last int, replacement []*Table) []*Table {
	out := make([]*Table, 0, len(tables)-(last-first)+len(replacement))
	out = append(out, tables[:first]...)
	out = append(out, replacement...)
	out = append(out, tables[last:]...)
	return out
}

// insertTableSpan inserts replacement at the position that keeps
// tables sorted by min key, used when a merge produced no overlap
// with any existing table in this level.
func insertTableSpan(tables []*Table, replacement []*Table, min []byte) []*Table {
	pos := 0
	for pos < len(tables) && compareKeys(tables[pos].MinKey(), min) < 0 {
		pos++
	}
	return spliceTableSpan(tables, pos, pos, replacement)
}
