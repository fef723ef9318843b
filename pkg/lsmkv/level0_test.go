package lsmkv

import (
	"testing"

	"github.com/vitillo/kvstore/pkg/logging"
)

func TestLevel0GetScansMostRecentFirst(t *testing.T) {
	cfg := testLevelConfig(t, 0)
	l0, err := newLevel0(cfg, logging.NewNopLogger())
	if err != nil {
		t.Fatalf("newLevel0: %v", err)
	}

	older := buildTable(t, cfg.LevelPath, map[string]string{"a": "old"})
	newer := buildTable(t, cfg.LevelPath, map[string]string{"a": "new"})
	l0.tables = []*Table{older, newer}

	if v, ok := l0.get([]byte("a")); !ok || string(v) != "new" {
		t.Fatalf("get(a) = %q, %v, want \"new\"", v, ok)
	}
}

func TestLevel0DumpMemtableAppendsSortedTables(t *testing.T) {
	cfg := testLevelConfig(t, 0)
	l0, err := newLevel0(cfg, logging.NewNopLogger())
	if err != nil {
		t.Fatalf("newLevel0: %v", err)
	}

	mt := newMemTable()
	mt.add([]byte("b"), []byte("2"))
	mt.add([]byte("a"), []byte("1"))

	if err := l0.dumpMemtable(mt); err != nil {
		t.Fatalf("dumpMemtable: %v", err)
	}
	if l0.Size() != 1 {
		t.Fatalf("Size() = %d, want 1", l0.Size())
	}
	if v, ok := l0.get([]byte("a")); !ok || string(v) != "1" {
		t.Fatalf("get(a) = %q, %v", v, ok)
	}
	if v, ok := l0.get([]byte("b")); !ok || string(v) != "2" {
		t.Fatalf("get(b) = %q, %v", v, ok)
	}
}

func TestLevel0GetMissOnEmptyLevel(t *testing.T) {
	cfg := testLevelConfig(t, 0)
	l0, err := newLevel0(cfg, logging.NewNopLogger())
	if err != nil {
		t.Fatalf("newLevel0: %v", err)
	}
	if _, ok := l0.get([]byte("x")); ok {
		t.Fatalf("get on empty level 0 should miss")
	}
}
