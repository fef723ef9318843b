package lsmkv

import (
	"bytes"
	"encoding/binary"
)

// MaxFieldLen is the largest key or value this package accepts. Keys
// and values are length-prefixed with a uint16, so anything at or
// above 65536 bytes cannot be represented on disk.
const MaxFieldLen = 65536

// lenPrefixSize is the width, in bytes, of the length prefix that
// precedes each key and each value in a serialized record.
const lenPrefixSize = 2

// recordSize returns the number of bytes a (key, value) pair occupies
// once serialized: two length prefixes plus the raw bytes.
func recordSize(key, value []byte) int {
	return lenPrefixSize + len(key) + lenPrefixSize + len(value)
}

// putRecord serializes key then value into dst (which must have at
// least recordSize(key, value) bytes) and returns the number of bytes
// written.
func putRecord(dst, key, value []byte) int {
	n := 0
	binary.LittleEndian.PutUint16(dst[n:], uint16(len(key)))
	n += lenPrefixSize
	n += copy(dst[n:], key)
	binary.LittleEndian.PutUint16(dst[n:], uint16(len(value)))
	n += lenPrefixSize
	n += copy(dst[n:], value)
	return n
}

// readRecord decodes a record starting at src[0]. It returns views
// into src (no copy) for the key and value, and the total number of
// bytes consumed.
func readRecord(src []byte) (key, value []byte, n int) {
	klen := int(binary.LittleEndian.Uint16(src))
	n = lenPrefixSize
	key = src[n : n+klen]
	n += klen

	vlen := int(binary.LittleEndian.Uint16(src[n:]))
	n += lenPrefixSize
	value = src[n : n+vlen]
	n += vlen

	return key, value, n
}

// compareKeys implements the unsigned byte-wise comparator from the
// spec: lexicographic on the shared prefix, shorter-is-smaller on tie.
func compareKeys(a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	if cmp := bytes.Compare(a[:n], b[:n]); cmp != 0 {
		return cmp
	}
	return len(a) - len(b)
}

// isTombstone reports whether value represents a logical deletion —
// the zero-length-value convention shared by the memtable and SSTables.
func isTombstone(value []byte) bool {
	return len(value) == 0
}
