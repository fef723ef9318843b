package lsmkv

import "errors"

// Sentinel errors returned by I/O-facing operations. Precondition
// failures (empty key, zero-length value on Add, use after Destroy,
// malformed Config) panic instead — they are programming errors, not
// environmental ones, matching the assertion-style failures of the
// system this package was modeled on.
var (
	// ErrStoreDestroyed is returned by operations attempted on a store
	// after Destroy has already run.
	ErrStoreDestroyed = errors.New("lsmkv: store has been destroyed")

	// ErrEmptyTable is returned when finalizing a builder that never
	// received a record.
	ErrEmptyTable = errors.New("lsmkv: table is empty")
)
