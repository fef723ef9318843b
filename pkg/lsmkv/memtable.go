package lsmkv

import "sort"

// memTable is an in-memory ordered map buffering recent writes ahead
// of a flush to Level 0. Grounded on original_source/MemTable.hpp,
// translated from an always-sorted std::map to a Go map plus a
// sorted-on-demand key list — matching pkg/lsm/memtable.go's own
// shape (map + lazily-sorted key slice) rather than reaching for a
// skiplist, since this component never needs range queries, only
// point lookups and a single sorted dump.
type memTable struct {
	data   map[string][]byte
	keys   []string
	sorted bool
	size   int
}

func newMemTable() *memTable {
	return &memTable{data: make(map[string][]byte)}
}

// get returns a copy of the value for key, or (nil, false).
func (mt *memTable) get(key []byte) ([]byte, bool) {
	v, ok := mt.data[string(key)]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), v...), true
}

// add upserts (key, value), maintaining the byte-size accumulator.
// value may be empty — that's how the store layer represents a
// tombstone; the memtable itself has no opinion on deletions.
func (mt *memTable) add(key, value []byte) {
	k := string(key)
	if old, exists := mt.data[k]; exists {
		mt.size += len(value) - len(old)
	} else {
		mt.keys = append(mt.keys, k)
		mt.sorted = false
		mt.size += len(key) + len(value)
	}
	mt.data[k] = append([]byte(nil), value...)
}

// Size returns Σ (len(key)+len(value)) over all live entries.
func (mt *memTable) Size() int { return mt.size }

// clear resets the memtable to empty.
func (mt *memTable) clear() {
	mt.data = make(map[string][]byte)
	mt.keys = nil
	mt.sorted = true
	mt.size = 0
}

// sortedKeys returns the memtable's keys in ascending order,
// computing the sort only when new keys have been added since the
// last call.
func (mt *memTable) sortedKeys() []string {
	if !mt.sorted {
		sort.Slice(mt.keys, func(i, j int) bool {
			return compareKeys([]byte(mt.keys[i]), []byte(mt.keys[j])) < 0
		})
		mt.sorted = true
	}
	return mt.keys
}

// forEach iterates entries in ascending key order.
func (mt *memTable) forEach(fn func(key, value []byte)) {
	for _, k := range mt.sortedKeys() {
		fn([]byte(k), mt.data[k])
	}
}
