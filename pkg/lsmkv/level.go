package lsmkv

import (
	"fmt"
	"sync"

	"github.com/vitillo/kvstore/pkg/logging"
)

// level holds the common state and load/destroy logic shared by
// Level0 and LevelN: a configured directory, a threshold, and the
// in-memory table list protected by a multi-reader/single-writer
// lock. Grounded on original_source/Level.hpp's base Level class.
type level struct {
	mu     sync.RWMutex
	cfg    LevelConfig
	tables []*Table
	logger logging.Logger
}

// newLevel creates (or reopens) the directory for cfg.Level, loading
// any existing SSTables from it sorted by min key. If cfg.Overwrite,
// the level directory is deleted first. Level 0 asserts it finds no
// surviving tables: a prior tree's shutdown is responsible for moving
// any residual Level-0 tables into Level 1 before this constructor
// ever runs again (see LSMTree.close in tree.go).
func newLevel(cfg LevelConfig, logger logging.Logger) (*level, error) {
	if cfg.Overwrite {
		if err := removeDir(cfg.LevelPath); err != nil {
			return nil, err
		}
	}

	if err := ensureDir(cfg.DBPath); err != nil {
		return nil, err
	}
	if err := ensureDir(cfg.LevelPath); err != nil {
		return nil, err
	}

	files, err := listTableFiles(cfg.LevelPath)
	if err != nil {
		return nil, err
	}

	tables := make([]*Table, 0, len(files))
	for _, f := range files {
		t, err := loadTable(f)
		if err != nil {
			return nil, fmt.Errorf("lsmkv: load level %d: %w", cfg.Level, err)
		}
		tables = append(tables, t)
	}

	if cfg.Level == 0 && len(tables) != 0 {
		panic("lsmkv: level 0 directory must be empty at clean start; a prior tree shutdown should have migrated residual tables into level 1")
	}

	sortTablesByMinKey(tables)

	return &level{cfg: cfg, tables: tables, logger: logger}, nil
}

// Size returns the number of tables currently in the level.
func (l *level) Size() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.tables)
}

// needsMerging reports whether the level holds more tables than its
// configured threshold.
func (l *level) needsMerging() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return uint32(len(l.tables)) > l.cfg.Threshold
}

// destroy closes every table and deletes the level's on-disk directory.
func (l *level) destroy() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, t := range l.tables {
		t.release()
	}
	l.tables = nil
	if err := removeDir(l.cfg.LevelPath); err != nil {
		return err
	}
	// Every level also attempts to remove the shared db directory;
	// RemoveAll is idempotent, so whichever level runs last is the one
	// that actually removes it once every level's subdirectory is gone.
	return removeDir(l.cfg.DBPath)
}

// String renders the table count, mirroring
// original_source/Level.hpp's operator<<.
func (l *level) String() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return fmt.Sprintf("%d tables", len(l.tables))
}
