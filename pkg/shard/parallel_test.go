package shard

import (
	"strconv"
	"testing"

	"github.com/vitillo/kvstore/pkg/lsmkv"
)

func newTestParallelConfig(t *testing.T) lsmkv.Config {
	t.Helper()
	return lsmkv.Config{
		Name:          "parallel",
		Path:          t.TempDir(),
		NumLevels:     2,
		TableSize:     lsmkv.MinTableSize,
		BaseThreshold: 2,
		MemTableSize:  1 << 20,
		Parallelism:   4,
	}
}

func TestParallelStoreRoutesAndServesKeys(t *testing.T) {
	p, err := NewParallelStore(newTestParallelConfig(t))
	if err != nil {
		t.Fatalf("NewParallelStore: %v", err)
	}
	defer p.Destroy()

	for i := 0; i < 50; i++ {
		key := []byte("key-" + strconv.Itoa(i))
		if err := p.Add(key, []byte("v")); err != nil {
			t.Fatalf("Add(%s): %v", key, err)
		}
	}
	for i := 0; i < 50; i++ {
		key := []byte("key-" + strconv.Itoa(i))
		if v, ok := p.Get(key).Wait(); !ok || string(v) != "v" {
			t.Fatalf("Get(%s) = %q, %v", key, v, ok)
		}
	}
}

func TestParallelStoreSameKeyAlwaysSameShard(t *testing.T) {
	p, err := NewParallelStore(newTestParallelConfig(t))
	if err != nil {
		t.Fatalf("NewParallelStore: %v", err)
	}
	defer p.Destroy()

	key := []byte("stable-key")
	first := p.shardFor(key)
	for i := 0; i < 10; i++ {
		if p.shardFor(key) != first {
			t.Fatalf("shardFor(%s) is not stable across calls", key)
		}
	}
}

func TestParallelStoreRemove(t *testing.T) {
	p, err := NewParallelStore(newTestParallelConfig(t))
	if err != nil {
		t.Fatalf("NewParallelStore: %v", err)
	}
	defer p.Destroy()

	if err := p.Add([]byte("k"), []byte("v")); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := p.Remove([]byte("k")); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, ok := p.Get([]byte("k")).Wait(); ok {
		t.Fatalf("Get(k) should miss after Remove")
	}
}
