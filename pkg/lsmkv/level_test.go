package lsmkv

import (
	"path/filepath"
	"testing"

	"github.com/vitillo/kvstore/pkg/logging"
)

func testLevelConfig(t *testing.T, level int) LevelConfig {
	t.Helper()
	dbPath := t.TempDir()
	return LevelConfig{
		Path:      dbPath,
		DBPath:    dbPath,
		LevelPath: filepath.Join(dbPath, "level"),
		Level:     level,
		TableSize: 4096,
		Threshold: 2,
	}
}

func TestNewLevelCreatesDirectory(t *testing.T) {
	cfg := testLevelConfig(t, 1)
	l, err := newLevel(cfg, logging.NewNopLogger())
	if err != nil {
		t.Fatalf("newLevel: %v", err)
	}
	if l.Size() != 0 {
		t.Fatalf("fresh level should have 0 tables, got %d", l.Size())
	}
}

func TestNewLevelZeroPanicsOnSurvivingTables(t *testing.T) {
	cfg := testLevelConfig(t, 0)
	l, err := newLevel0(cfg, logging.NewNopLogger())
	if err != nil {
		t.Fatalf("newLevel0: %v", err)
	}
	mt := newMemTable()
	mt.add([]byte("a"), []byte("1"))
	if err := l.dumpMemtable(mt); err != nil {
		t.Fatalf("dumpMemtable: %v", err)
	}

	assertPanics(t, func() {
		newLevel(cfg, logging.NewNopLogger())
	})
}

func TestLevelNeedsMerging(t *testing.T) {
	cfg := testLevelConfig(t, 1)
	cfg.Threshold = 1
	l, err := newLevel(cfg, logging.NewNopLogger())
	if err != nil {
		t.Fatalf("newLevel: %v", err)
	}

	t1 := buildTable(t, cfg.LevelPath, map[string]string{"a": "1"})
	t2 := buildTable(t, cfg.LevelPath, map[string]string{"b": "2"})
	l.tables = []*Table{t1}
	if l.needsMerging() {
		t.Fatalf("1 table with threshold 1 should not need merging")
	}
	l.tables = append(l.tables, t2)
	if !l.needsMerging() {
		t.Fatalf("2 tables with threshold 1 should need merging")
	}
}

func TestLevelDestroyRemovesDirectory(t *testing.T) {
	cfg := testLevelConfig(t, 1)
	l, err := newLevel(cfg, logging.NewNopLogger())
	if err != nil {
		t.Fatalf("newLevel: %v", err)
	}
	if err := l.destroy(); err != nil {
		t.Fatalf("destroy: %v", err)
	}
	if _, err := newLevel(cfg, logging.NewNopLogger()); err != nil {
		t.Fatalf("newLevel after destroy should recreate cleanly: %v", err)
	}
}
