package lsmkv

import (
	"fmt"
	"path/filepath"

	"github.com/google/uuid"
)

// tableBuilder accumulates sorted (key, value) pairs into a bounded
// mmap region and, on finalize, produces a Table. Grounded on
// original_source/TableBuilder.hpp: a fresh anonymous mapping for
// tests, a file-backed one named by a v4 UUID under dir otherwise.
type tableBuilder struct {
	mmap      *mmapFile
	offsets   []uint32
	tableSize uint32
	dir       string // "" => anonymous, test-only
}

// newTableBuilder creates a builder that will target tables of at
// most tableSize bytes. If dir is non-empty, finalized tables are
// backed by a file named "<uuid>.sst" under dir; otherwise the builder
// maps anonymous memory, for tests.
func newTableBuilder(tableSize uint32, dir string) *tableBuilder {
	return &tableBuilder{tableSize: tableSize, dir: dir}
}

func (b *tableBuilder) initialize() error {
	if b.mmap != nil {
		return nil
	}
	if b.dir == "" {
		m, err := anonymousMmap(b.tableSize)
		if err != nil {
			return err
		}
		b.mmap = m
		return nil
	}

	path := filepath.Join(b.dir, uuid.NewString()+".sst")
	m, err := createMmap(path, b.tableSize)
	if err != nil {
		return err
	}
	b.mmap = m
	return nil
}

// currentSize returns the number of bytes the builder would occupy on
// disk right now: the head region plus the index-so-far plus the
// trailing count field.
func (b *tableBuilder) currentSize() uint32 {
	if b.mmap == nil {
		return 4 // just the trailing count
	}
	return b.mmap.headIndex + 4*uint32(len(b.offsets)) + 4
}

// add appends (key, value) if it fits within tableSize, returning
// false (not an error — signalling the caller to finalize and retry
// with a fresh builder) if it would not.
func (b *tableBuilder) add(key, value []byte) (bool, error) {
	if len(key) == 0 {
		panic("lsmkv: builder.add requires a non-empty key")
	}
	if len(key) >= MaxFieldLen || len(value) >= MaxFieldLen {
		panic("lsmkv: key and value must each be shorter than 65536 bytes")
	}

	if err := b.initialize(); err != nil {
		return false, err
	}

	need := uint32(recordSize(key, value))
	if b.mmap.headIndex+need+4*uint32(len(b.offsets)+1)+4 > b.tableSize {
		return false, nil
	}

	rec := make([]byte, need)
	putRecord(rec, key, value)
	b.offsets = append(b.offsets, b.mmap.headIndex)
	b.mmap.appendHead(rec)
	return true, nil
}

// finalize writes the accumulated offset index and entry count to the
// tail region and returns the resulting Table. It returns
// ErrEmptyTable if no record was ever added. The builder is reset and
// can be reused afterward.
func (b *tableBuilder) finalize() (*Table, error) {
	if b.mmap == nil || b.mmap.headIndex == 0 {
		return nil, ErrEmptyTable
	}

	// One backward append of [offsets..., count]: the count ends up in
	// the last 4 bytes, with the offsets in record order just below it.
	tail := make([]byte, 4*(len(b.offsets)+1))
	for i, off := range b.offsets {
		putUint32(tail[4*i:], off)
	}
	putUint32(tail[4*len(b.offsets):], uint32(len(b.offsets)))
	b.mmap.appendTail(tail)

	table, err := newTableFromMmap(b.mmap.path, b.mmap)
	if err != nil {
		return nil, fmt.Errorf("lsmkv: finalize: %w", err)
	}

	b.mmap = nil
	b.offsets = nil
	return table, nil
}

func putUint32(dst []byte, v uint32) {
	dst[0] = byte(v)
	dst[1] = byte(v >> 8)
	dst[2] = byte(v >> 16)
	dst[3] = byte(v >> 24)
}

// mergeTables k-way merges tables (index 0 = highest precedence, i.e.
// most recently written) into a disjoint, ascending-by-min-key
// sequence of output tables sized to cfg.TableSize, resolving
// shadowing by most-recent-wins. Input tables are unlinked from the
// filesystem before the merge completes, but each one's mmap is kept
// alive by a retained reference until this function has finished
// reading it — the caller still owns the matching publish-side
// reference and is responsible for releasing it only after the
// merged output has replaced the inputs in the level's published
// list, so a concurrent Get against the not-yet-swapped list always
// finds a live mapping.
//
// Grounded on original_source/TableBuilder.hpp's merge_tables and the
// MergeIterator/SSTableIterator pattern in pkg/lsm/compaction.go
// (repeatedly pick the minimum key across live iterators and advance
// the winner), adapted here to enforce lowest-input-index-wins
// tie-breaking and table-size-bounded output.
func mergeTables(tables []*Table, cfg LevelConfig) ([]*Table, error) {
	builder := newTableBuilder(cfg.TableSize, cfg.LevelPath)

	type cursor struct {
		t   *Table
		it  *tableIterator
		key []byte
		val []byte
		ok  bool
	}

	releaseRemaining := func(cursors []*cursor) {
		for _, c := range cursors {
			c.t.release()
		}
	}

	cursors := make([]*cursor, 0, len(tables))
	for _, t := range tables {
		t.retain()
		if err := t.deleteFromDisk(); err != nil {
			t.release()
			releaseRemaining(cursors)
			return nil, fmt.Errorf("lsmkv: merge: delete input table: %w", err)
		}
		c := &cursor{t: t, it: t.Iterator()}
		c.key, c.val, c.ok = c.it.Next()
		if c.ok {
			cursors = append(cursors, c)
		} else {
			t.release()
		}
	}

	var result []*Table
	var lastEmitted []byte
	haveLast := false

	for len(cursors) > 0 {
		minIdx := 0
		for i := 1; i < len(cursors); i++ {
			if compareKeys(cursors[i].key, cursors[minIdx].key) < 0 {
				minIdx = i
			}
			// On ties, the lowest input index wins; since cursors is
			// built in input order and we only replace minIdx on a
			// strictly smaller key, the first (lowest-index) cursor
			// with a given key is kept automatically.
		}

		winner := cursors[minIdx]
		if !haveLast || compareKeys(winner.key, lastEmitted) != 0 {
			ok, err := builder.add(winner.key, winner.val)
			if err != nil {
				releaseRemaining(cursors)
				return nil, err
			}
			if !ok {
				finalized, err := builder.finalize()
				if err != nil {
					releaseRemaining(cursors)
					return nil, err
				}
				result = append(result, finalized)
				if ok, err := builder.add(winner.key, winner.val); err != nil {
					releaseRemaining(cursors)
					return nil, err
				} else if !ok {
					releaseRemaining(cursors)
					return nil, fmt.Errorf("lsmkv: merge: record does not fit a fresh table (TableSize too small)")
				}
			}
			lastEmitted = append(lastEmitted[:0], winner.key...)
			haveLast = true
		}

		winner.key, winner.val, winner.ok = winner.it.Next()
		if !winner.ok {
			winner.t.release()
			cursors = append(cursors[:minIdx], cursors[minIdx+1:]...)
		}
	}

	last, err := builder.finalize()
	if err == nil {
		result = append(result, last)
	} else if err != ErrEmptyTable {
		return nil, err
	}

	return result, nil
}
