package lsmkv

import (
	"testing"
	"time"
)

func newTestConfig(t *testing.T) Config {
	t.Helper()
	return Config{
		Name:          "tree",
		Path:          t.TempDir(),
		NumLevels:     3,
		TableSize:     MinTableSize,
		BaseThreshold: 2,
		MemTableSize:  1024,
		Parallelism:   1,
	}
}

func TestLSMTreeFlushAndGet(t *testing.T) {
	tree, err := newLSMTree(newTestConfig(t))
	if err != nil {
		t.Fatalf("newLSMTree: %v", err)
	}
	defer tree.destroy()

	mt := newMemTable()
	mt.add([]byte("a"), []byte("1"))
	mt.add([]byte("b"), []byte("2"))

	if err := tree.flush(mt); err != nil {
		t.Fatalf("flush: %v", err)
	}

	if v, ok := tree.get([]byte("a")); !ok || string(v) != "1" {
		t.Fatalf("get(a) = %q, %v", v, ok)
	}
	if _, ok := tree.get([]byte("missing")); ok {
		t.Fatalf("get(missing) should miss")
	}
}

func TestLSMTreeCascadesMergeAcrossLevels(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.BaseThreshold = 1 // a level merges once it holds more than one table
	tree, err := newLSMTree(cfg)
	if err != nil {
		t.Fatalf("newLSMTree: %v", err)
	}
	defer tree.destroy()

	for i := 0; i < 5; i++ {
		mt := newMemTable()
		mt.add([]byte{byte('a' + i)}, []byte("v"))
		if err := tree.flush(mt); err != nil {
			t.Fatalf("flush %d: %v", i, err)
		}
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if tree.l0.Size() == 0 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	for i := 0; i < 5; i++ {
		key := []byte{byte('a' + i)}
		if _, ok := tree.get(key); !ok {
			t.Fatalf("get(%s) should hit after cascade", key)
		}
	}
}

func TestLSMTreeCloseMigratesResidualLevel0(t *testing.T) {
	cfg := newTestConfig(t)
	tree, err := newLSMTree(cfg)
	if err != nil {
		t.Fatalf("newLSMTree: %v", err)
	}

	mt := newMemTable()
	mt.add([]byte("z"), []byte("9"))
	if err := tree.flush(mt); err != nil {
		t.Fatalf("flush: %v", err)
	}

	if err := tree.close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	if tree.l0.Size() != 0 {
		t.Fatalf("level 0 should be empty after close, got %d tables", tree.l0.Size())
	}
}
