package lsmkv

import (
	"bytes"
	"path/filepath"
	"testing"
)

func TestMmapFileAnonymousAppend(t *testing.T) {
	m, err := anonymousMmap(64)
	if err != nil {
		t.Fatalf("anonymousMmap: %v", err)
	}
	defer m.close()

	if m.free() != 64 {
		t.Fatalf("free() = %d, want 64", m.free())
	}

	m.appendHead([]byte("head"))
	if m.headIndex != 4 {
		t.Errorf("headIndex = %d, want 4", m.headIndex)
	}

	m.appendTail([]byte("tail"))
	if m.tailIndex != 64-4-1 {
		t.Errorf("tailIndex = %d, want %d", m.tailIndex, 64-4-1)
	}

	if m.free() != 64-8 {
		t.Errorf("free() = %d, want %d", m.free(), 64-8)
	}

	if !bytes.Equal(m.data[0:4], []byte("head")) {
		t.Errorf("head region mismatch: %q", m.data[0:4])
	}
	if !bytes.Equal(m.data[60:64], []byte("tail")) {
		t.Errorf("tail region mismatch: %q", m.data[60:64])
	}
}

func TestMmapFileAppendPastFreePanics(t *testing.T) {
	m, err := anonymousMmap(4)
	if err != nil {
		t.Fatalf("anonymousMmap: %v", err)
	}
	defer m.close()

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic when appending past free space")
		}
	}()
	m.appendHead([]byte("12345"))
}

func TestMmapFileCreateAndReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "table.sst")

	m, err := createMmap(path, 32)
	if err != nil {
		t.Fatalf("createMmap: %v", err)
	}
	m.appendHead([]byte("hello"))
	if err := m.close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	if _, err := createMmap(path, 32); err == nil {
		t.Fatal("createMmap should fail when the path already exists")
	}

	reopened, err := openMmap(path)
	if err != nil {
		t.Fatalf("openMmap: %v", err)
	}
	defer reopened.close()

	if reopened.size() != 32 {
		t.Errorf("size() = %d, want 32", reopened.size())
	}
	if !bytes.Equal(reopened.data[0:5], []byte("hello")) {
		t.Errorf("reopened data mismatch: %q", reopened.data[0:5])
	}
	// Unused middle bytes remain zero; the file was never truncated.
	if reopened.data[31] != 0 {
		t.Errorf("trailing byte should be zero, got %d", reopened.data[31])
	}
}

func TestMmapFileDeleteFromDisk(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "table.sst")

	m, err := createMmap(path, 16)
	if err != nil {
		t.Fatalf("createMmap: %v", err)
	}

	if err := m.deleteFromDisk(); err != nil {
		t.Fatalf("deleteFromDisk: %v", err)
	}

	// The mapping is still valid after unlink (POSIX semantics).
	m.appendHead([]byte("x"))

	if err := m.close(); err != nil {
		t.Fatalf("close after delete: %v", err)
	}

	if _, err := openMmap(path); err == nil {
		t.Fatal("expected openMmap to fail after deletion")
	}
}
