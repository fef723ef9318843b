package logging

import "time"

// Common field constructors.

func String(key, value string) Field {
	return Field{Key: key, Value: value}
}

func Int(key string, value int) Field {
	return Field{Key: key, Value: value}
}

func Uint32(key string, value uint32) Field {
	return Field{Key: key, Value: value}
}

func Uint64(key string, value uint64) Field {
	return Field{Key: key, Value: value}
}

func Duration(key string, value time.Duration) Field {
	return Field{Key: key, Value: value.String()}
}

func Error(err error) Field {
	if err == nil {
		return Field{Key: "error", Value: nil}
	}
	return Field{Key: "error", Value: err.Error()}
}

// Storage-engine field helpers, replacing the graph-specific
// NodeID/EdgeID helpers this logger carried in its original form.

// ShardID identifies which shard of a parallel store an event
// belongs to.
func ShardID(i int) Field {
	return Int("shard", i)
}

// LevelIndex identifies which level of the LSM tree an event concerns.
func LevelIndex(i int) Field {
	return Int("level", i)
}

// TableID names the SSTable involved in an event, typically its path.
func TableID(path string) Field {
	return String("table", path)
}

// Key renders a key for logging; values are never logged to avoid
// leaking payload contents into diagnostics.
func Key(k []byte) Field {
	return String("key", string(k))
}

func Count(n int) Field {
	return Int("count", n)
}

func Latency(d time.Duration) Field {
	return Duration("latency", d)
}
