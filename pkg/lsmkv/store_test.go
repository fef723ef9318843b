package lsmkv

import "testing"

func newTestStoreConfig(t *testing.T) Config {
	t.Helper()
	return Config{
		Name:          "store",
		Path:          t.TempDir(),
		NumLevels:     2,
		TableSize:     MinTableSize,
		BaseThreshold: 2,
		MemTableSize:  1 << 20, // large enough that tests control flushing explicitly
		Parallelism:   1,
	}
}

func TestKVStoreAddGetRemove(t *testing.T) {
	s, err := NewKVStore(newTestStoreConfig(t))
	if err != nil {
		t.Fatalf("NewKVStore: %v", err)
	}
	defer s.Destroy()

	if err := s.Add([]byte("k"), []byte("v")); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if v, ok := s.Get([]byte("k")); !ok || string(v) != "v" {
		t.Fatalf("Get(k) = %q, %v", v, ok)
	}

	if err := s.Remove([]byte("k")); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, ok := s.Get([]byte("k")); ok {
		t.Fatalf("Get(k) should miss after Remove")
	}
}

func TestKVStoreAddPanicsOnEmptyKeyOrValue(t *testing.T) {
	s, err := NewKVStore(newTestStoreConfig(t))
	if err != nil {
		t.Fatalf("NewKVStore: %v", err)
	}
	defer s.Destroy()

	assertPanics(t, func() { s.Add(nil, []byte("v")) })
	assertPanics(t, func() { s.Add([]byte("k"), nil) })
}

func assertPanics(t *testing.T, fn func()) {
	t.Helper()
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic")
		}
	}()
	fn()
}

func TestKVStoreFlushesOnMemTableThreshold(t *testing.T) {
	cfg := newTestStoreConfig(t)
	cfg.MemTableSize = 1 // flush after the very first add
	s, err := NewKVStore(cfg)
	if err != nil {
		t.Fatalf("NewKVStore: %v", err)
	}
	defer s.Destroy()

	if err := s.Add([]byte("a"), []byte("1")); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if s.mt.Size() != 0 {
		t.Fatalf("memtable should be cleared after a threshold-triggered flush")
	}
	if v, ok := s.Get([]byte("a")); !ok || string(v) != "1" {
		t.Fatalf("Get(a) = %q, %v", v, ok)
	}
}

func TestKVStoreDestroyRejectsFurtherOps(t *testing.T) {
	s, err := NewKVStore(newTestStoreConfig(t))
	if err != nil {
		t.Fatalf("NewKVStore: %v", err)
	}
	if err := s.Destroy(); err != nil {
		t.Fatalf("Destroy: %v", err)
	}
	if err := s.Add([]byte("k"), []byte("v")); err != ErrStoreDestroyed {
		t.Fatalf("Add after Destroy = %v, want ErrStoreDestroyed", err)
	}
	if _, ok := s.Get([]byte("k")); ok {
		t.Fatalf("Get after Destroy should miss")
	}
}

func TestKVStoreCloseFlushesResidualMemTable(t *testing.T) {
	s, err := NewKVStore(newTestStoreConfig(t))
	if err != nil {
		t.Fatalf("NewKVStore: %v", err)
	}

	if err := s.Add([]byte("k"), []byte("v")); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if s.mt.Size() != 0 {
		t.Fatalf("Close should flush and clear residual memtable")
	}
}

func TestKVStoreSurvivesRestartAfterClose(t *testing.T) {
	cfg := newTestStoreConfig(t)
	cfg.MemTableSize = 1 // flush after the very first add, so the value is on disk before Close

	s, err := NewKVStore(cfg)
	if err != nil {
		t.Fatalf("NewKVStore: %v", err)
	}
	if err := s.Add([]byte("foo"), []byte("bar")); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := NewKVStore(cfg)
	if err != nil {
		t.Fatalf("NewKVStore (reopen): %v", err)
	}
	defer reopened.Destroy()

	if v, ok := reopened.Get([]byte("foo")); !ok || string(v) != "bar" {
		t.Fatalf("Get(foo) after reopen = %q, %v, want \"bar\"", v, ok)
	}
}

func TestKVStoreStatsReportsMemTableAndLevelCounts(t *testing.T) {
	s, err := NewKVStore(newTestStoreConfig(t))
	if err != nil {
		t.Fatalf("NewKVStore: %v", err)
	}
	defer s.Destroy()

	if err := s.Add([]byte("k"), []byte("v")); err != nil {
		t.Fatalf("Add: %v", err)
	}
	stats := s.Stats()
	if stats.MemTableBytes == 0 {
		t.Fatalf("Stats().MemTableBytes should reflect the pending write")
	}
	if len(stats.LevelTableCounts) != 1 {
		t.Fatalf("Stats().LevelTableCounts = %v, want 1 entry for a 2-level store", stats.LevelTableCounts)
	}
}
