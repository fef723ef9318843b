package lsmkv

import (
	"encoding/binary"
	"fmt"
	"sync/atomic"

	"golang.org/x/exp/slices"
)

// Table is an immutable, on-disk sorted table: a dual-ended mmap file
// whose head region holds ascending (key, value) records and whose
// tail region holds a backward-growing offset index plus a trailing
// entry count. Grounded on original_source/Table.hpp and
// pkg/lsm/sstable*.go's read path, adapted to a single read-write mmap
// rather than a separate on-disk index.
type Table struct {
	path       string
	mmap       *mmapFile
	index      []uint32 // offsets into mmap.data, one per record, ascending key order
	entryCount uint32
	end        uint32 // offset just past the last record's value, i.e. the end of the head region
	minKey     []byte
	maxKey     []byte

	// refs counts concurrent owners of mmap: the level list that
	// published this table, plus, while a merge is consuming it, the
	// merge itself. The mmap is only unmapped once every owner has
	// released, so a table being merged stays readable by in-flight
	// Gets until the merge's output is published and the old list
	// entry is released (see mergeTables, mergeWithLevel0/N).
	refs int32
}

// loadTable opens path and constructs a Table from it, validating the
// trailing count and index and caching min/max key.
func loadTable(path string) (*Table, error) {
	m, err := openMmap(path)
	if err != nil {
		return nil, err
	}
	t, err := newTableFromMmap(path, m)
	if err != nil {
		m.close()
		return nil, err
	}
	return t, nil
}

// newTableFromMmap builds a Table over an already-open mmap, used
// both by loadTable (existing file) and by the builder's finalize
// (freshly written file).
func newTableFromMmap(path string, m *mmapFile) (*Table, error) {
	size := m.size()
	if size < 4 {
		return nil, fmt.Errorf("lsmkv: table %s too small to hold an entry count", path)
	}

	entryCount := binary.LittleEndian.Uint32(m.data[size-4:])
	if entryCount == 0 {
		return nil, fmt.Errorf("lsmkv: table %s has zero entries; tables are never finalized empty", path)
	}

	indexStart := size - 4 - 4*entryCount
	if indexStart > size-4 {
		return nil, fmt.Errorf("lsmkv: table %s index overflows file", path)
	}

	index := make([]uint32, entryCount)
	for i := uint32(0); i < entryCount; i++ {
		index[i] = binary.LittleEndian.Uint32(m.data[indexStart+4*i:])
	}

	t := &Table{
		path:       path,
		mmap:       m,
		index:      index,
		entryCount: entryCount,
		refs:       1,
	}

	firstKey, _, _ := readRecord(m.data[index[0]:])
	lastKey, lastValue, lastLen := readRecord(m.data[index[entryCount-1]:])
	t.minKey = append([]byte(nil), firstKey...)
	t.maxKey = append([]byte(nil), lastKey...)
	t.end = index[entryCount-1] + uint32(lastLen)

	if t.end > indexStart {
		return nil, fmt.Errorf("lsmkv: table %s: head region overlaps index region", path)
	}
	_ = lastValue

	return t, nil
}

// Get returns a copy of the value stored for key, or (nil, false).
func (t *Table) Get(key []byte) ([]byte, bool) {
	lo, hi := 0, int(t.entryCount)-1
	for lo <= hi {
		mid := (lo + hi) / 2
		k, v, _ := readRecord(t.mmap.data[t.index[mid]:])
		switch c := compareKeys(key, k); {
		case c < 0:
			hi = mid - 1
		case c > 0:
			lo = mid + 1
		default:
			return append([]byte(nil), v...), true
		}
	}
	return nil, false
}

// MinKey returns the key of record 0.
func (t *Table) MinKey() []byte { return t.minKey }

// MaxKey returns the key of record entryCount-1.
func (t *Table) MaxKey() []byte { return t.maxKey }

// EntryCount returns the number of records in the table.
func (t *Table) EntryCount() int { return int(t.entryCount) }

// Path returns the table's backing file path ("" for anonymous tables).
func (t *Table) Path() string { return t.path }

// Overlaps reports whether [minKey, maxKey] intersects this table's
// key range, using the min/max-of-intervals test from
// original_source/Level.hpp's merge_with.
func (t *Table) Overlaps(minKey, maxKey []byte) bool {
	lowerMax := t.maxKey
	if compareKeys(maxKey, lowerMax) < 0 {
		lowerMax = maxKey
	}
	upperMin := t.minKey
	if compareKeys(minKey, upperMin) > 0 {
		upperMin = minKey
	}
	return compareKeys(lowerMax, upperMin) >= 0
}

// tableIterator walks a Table's records in ascending key order.
type tableIterator struct {
	t   *Table
	off uint32
}

// Iterator returns a forward iterator over the table's records.
func (t *Table) Iterator() *tableIterator {
	return &tableIterator{t: t, off: t.index[0]}
}

// Next returns the next (key, value) pair, or ok=false at end of table.
func (it *tableIterator) Next() (key, value []byte, ok bool) {
	if it.off >= it.t.end {
		return nil, nil, false
	}
	k, v, n := readRecord(it.t.mmap.data[it.off:])
	it.off += uint32(n)
	return k, v, true
}

// retain records an additional concurrent owner of the table's mmap.
// Used to keep a merge input's mapping alive for the duration of the
// merge even though it is still the published, visible table of its
// level until the merge's output is swapped in under the level's
// exclusive lock.
func (t *Table) retain() {
	atomic.AddInt32(&t.refs, 1)
}

// release drops one owner's claim on the table's mmap, unmapping it
// only once every owner — the level list and any in-flight merge —
// has released: reference-counted shared ownership, dropping the
// in-memory mapping only when the count reaches zero.
func (t *Table) release() error {
	if atomic.AddInt32(&t.refs, -1) == 0 {
		return t.mmap.close()
	}
	return nil
}

// deleteFromDisk unlinks the backing file; the mapping stays valid for
// any reader that still holds it, per POSIX unlink-while-open
// semantics.
func (t *Table) deleteFromDisk() error {
	return t.mmap.deleteFromDisk()
}

// sortTablesByMinKey sorts tables in place by ascending min key, the
// order LevelN stores its disjoint tables in.
func sortTablesByMinKey(tables []*Table) {
	slices.SortFunc(tables, func(a, b *Table) int {
		return compareKeys(a.MinKey(), b.MinKey())
	})
}
