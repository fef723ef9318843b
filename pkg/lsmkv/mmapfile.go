package lsmkv

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// mmapFile is a dual-ended memory-mapped region: one writer appends
// from the front (head_index grows), another appends from the back
// (tail_index shrinks), and the file is full when they meet. A single
// contiguous, fixed-size mapping lets the SSTable builder write
// records forward while its variable-width offset index accumulates
// backward, with no separate index file to keep in sync.
//
// Grounded on golang.org/x/sys/unix raw syscalls rather than
// golang.org/x/exp/mmap, because the latter is read-only and cannot
// back the writer half of this abstraction; this is the same approach
// And-fish-kvDB/utils/mmap takes for a writable shared mapping.
type mmapFile struct {
	path      string
	data      []byte
	headIndex uint32
	tailIndex uint32
	anonymous bool
}

// openMmap maps an existing file read-only. The backing file's
// current size determines the mapping size.
func openMmap(path string) (*mmapFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("mmapfile: open %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("mmapfile: stat %s: %w", path, err)
	}
	size := info.Size()
	if size == 0 {
		return nil, fmt.Errorf("mmapfile: %s is empty", path)
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("mmapfile: mmap %s: %w", path, err)
	}

	return &mmapFile{
		path:      path,
		data:      data,
		headIndex: 0,
		tailIndex: uint32(size) - 1,
	}, nil
}

// createMmap creates a new zero-filled file of exactly size bytes and
// maps it read-write. It fails if path already exists.
func createMmap(path string, size uint32) (*mmapFile, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("mmapfile: create %s: %w", path, err)
	}
	defer f.Close()

	if err := f.Truncate(int64(size)); err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("mmapfile: truncate %s: %w", path, err)
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("mmapfile: mmap %s: %w", path, err)
	}

	return &mmapFile{
		path:      path,
		data:      data,
		headIndex: 0,
		tailIndex: size - 1,
	}, nil
}

// anonymousMmap maps RAM with no backing file, for tests.
func anonymousMmap(size uint32) (*mmapFile, error) {
	data, err := unix.Mmap(-1, 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED|unix.MAP_ANON)
	if err != nil {
		return nil, fmt.Errorf("mmapfile: anonymous mmap: %w", err)
	}
	return &mmapFile{
		data:      data,
		headIndex: 0,
		tailIndex: size - 1,
		anonymous: true,
	}, nil
}

// free returns the number of bytes still available between the head
// and tail cursors.
func (m *mmapFile) free() uint32 {
	return m.tailIndex - m.headIndex + 1
}

// appendHead copies b to the current head position and advances it.
func (m *mmapFile) appendHead(b []byte) {
	if uint32(len(b)) > m.free() {
		panic("mmapfile: appendHead exceeds free space")
	}
	copy(m.data[m.headIndex:], b)
	m.headIndex += uint32(len(b))
}

// appendTail copies b ending at the current tail position and
// retreats it.
func (m *mmapFile) appendTail(b []byte) {
	if uint32(len(b)) > m.free() {
		panic("mmapfile: appendTail exceeds free space")
	}
	start := m.tailIndex - uint32(len(b)) + 1
	copy(m.data[start:m.tailIndex+1], b)
	m.tailIndex -= uint32(len(b))
}

func (m *mmapFile) size() uint32 { return uint32(len(m.data)) }

// close flushes dirty pages synchronously, then unmaps. The file
// itself is never truncated: it keeps its configured size and unused
// middle bytes stay zero.
func (m *mmapFile) close() error {
	if m.data == nil {
		return nil
	}
	if !m.anonymous {
		if err := unix.Msync(m.data, unix.MS_SYNC); err != nil {
			return fmt.Errorf("mmapfile: msync %s: %w", m.path, err)
		}
	}
	if err := unix.Munmap(m.data); err != nil {
		return fmt.Errorf("mmapfile: munmap %s: %w", m.path, err)
	}
	m.data = nil
	return nil
}

// deleteFromDisk unlinks the backing file. The mapping remains valid
// for any reader still holding it until they unmap, which is safe on
// POSIX (unlink-while-open semantics).
func (m *mmapFile) deleteFromDisk() error {
	if m.anonymous || m.path == "" {
		return nil
	}
	if err := os.Remove(m.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("mmapfile: remove %s: %w", m.path, err)
	}
	return nil
}
