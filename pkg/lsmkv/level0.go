package lsmkv

import "github.com/vitillo/kvstore/pkg/logging"

// level0 holds tables that may overlap in key range; insertion order
// encodes recency, so get scans most-recent-first.
type level0 struct {
	*level
}

func newLevel0(cfg LevelConfig, logger logging.Logger) (*level0, error) {
	base, err := newLevel(cfg, logger)
	if err != nil {
		return nil, err
	}
	return &level0{level: base}, nil
}

// get scans tables most-recent-first, returning the first hit.
func (l0 *level0) get(key []byte) ([]byte, bool) {
	l0.mu.RLock()
	defer l0.mu.RUnlock()

	for i := len(l0.tables) - 1; i >= 0; i-- {
		if v, ok := l0.tables[i].Get(key); ok {
			return v, true
		}
	}
	return nil, false
}

// dumpMemtable feeds the memtable's sorted entries through a fresh
// builder and appends the resulting tables to Level 0's list under an
// exclusive lock. The builder work itself happens unlocked — only the
// list append needs the lock, since multiple writers may dump
// concurrently.
func (l0 *level0) dumpMemtable(mt *memTable) error {
	builder := newTableBuilder(l0.cfg.TableSize, l0.cfg.LevelPath)
	var produced []*Table

	var addErr error
	mt.forEach(func(key, value []byte) {
		if addErr != nil {
			return
		}
		ok, err := builder.add(key, value)
		if err != nil {
			addErr = err
			return
		}
		if !ok {
			t, err := builder.finalize()
			if err != nil {
				addErr = err
				return
			}
			produced = append(produced, t)
			if ok, err := builder.add(key, value); err != nil {
				addErr = err
				return
			} else if !ok {
				addErr = errTableTooSmallForRecord
				return
			}
		}
	})
	if addErr != nil {
		return addErr
	}

	last, err := builder.finalize()
	if err == nil {
		produced = append(produced, last)
	} else if err != ErrEmptyTable {
		return err
	}

	l0.mu.Lock()
	l0.tables = append(l0.tables, produced...)
	l0.mu.Unlock()

	l0.logger.Debug("dumped memtable to level 0", logging.Count(len(produced)))
	return nil
}

var errTableTooSmallForRecord = &configError{"lsmkv: TableSize too small to hold a single record; validate Config before use"}

type configError struct{ msg string }

func (e *configError) Error() string { return e.msg }
