package lsmkv

// djb2 hashes a byte string with Dan Bernstein's djb2 algorithm
// (http://www.cse.yorku.ca/~oz/hash.html): h = 5381; h = h*33 + c. It
// is byte-deterministic across platforms, which is what lets the
// parallel store route a given key to the same shard on every run.
func djb2(b []byte) uint64 {
	var hash uint64 = 5381
	for _, c := range b {
		hash = hash*33 + uint64(c)
	}
	return hash
}

// Hash exposes djb2 for callers outside this package that need to
// reproduce the exact routing function used to partition keys across
// shards (see package shard).
func Hash(key []byte) uint64 {
	return djb2(key)
}
