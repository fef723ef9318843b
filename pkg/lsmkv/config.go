package lsmkv

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/vitillo/kvstore/pkg/logging"
	"github.com/vitillo/kvstore/pkg/metrics"
)

// Config configures a single store (or, via Partition, one shard of a
// parallel store). Directly grounded on original_source/Config.hpp:
// Name and Path are required, Path may be one directory shared by all
// levels or a comma-separated list of exactly NumLevels directories.
type Config struct {
	Name string
	Path string

	NumLevels      int
	TableSize      uint32
	BaseThreshold  uint32
	MemTableSize   uint32
	Parallelism    int
	Overwrite      bool

	// Logger receives structured diagnostics from Level-0 memtable
	// dumps and compaction; package shard does not log through it.
	// Defaults to a no-op logger.
	Logger logging.Logger

	// Metrics receives operation counts, latencies, and level table
	// counts. Defaults to metrics.DefaultRegistry().
	Metrics *metrics.Registry
}

// MinTableSize is the smallest legal Config.TableSize: large enough
// that a fresh builder always accepts one record even at maximal key
// and value length, enforcing table_size >=
// 2*(max_key_len+max_value_len)+8.
const MinTableSize = uint32(4*(MaxFieldLen-1) + 8)

// LevelConfig is the fully-resolved, per-level configuration produced
// by Config.levelConfigs: a concrete directory, threshold, and table
// size for one level of one store (or shard).
type LevelConfig struct {
	Path      string // root directory passed to Config
	DBPath    string // Path/Name
	LevelPath string // DBPath/<level index>
	Level     int
	TableSize uint32
	Threshold uint32
	Overwrite bool
}

// validate checks precondition invariants before a store opens.
// Failures here are programming errors: they panic rather than return
// an error, mirroring the assertion-style checks in the original.
func (c Config) validate() {
	if c.Name == "" {
		panic("lsmkv: Config.Name must not be empty")
	}
	if c.Path == "" {
		panic("lsmkv: Config.Path must not be empty")
	}
	if c.NumLevels < 2 {
		panic("lsmkv: Config.NumLevels must be >= 2")
	}
	if c.BaseThreshold < 1 {
		panic("lsmkv: Config.BaseThreshold must be >= 1")
	}
	if c.Parallelism < 1 {
		panic("lsmkv: Config.Parallelism must be >= 1")
	}
	// A fresh builder must always accept at least one record so the
	// single retry-on-full in mergeTables/dumpMemtable is guaranteed to
	// succeed: table_size >= 2*(max_key_len+max_value_len)+8.
	if c.TableSize < MinTableSize {
		panic(fmt.Sprintf("lsmkv: Config.TableSize must be >= %d to guarantee a single record always fits a fresh table", MinTableSize))
	}

	dirs := splitPaths(c.Path)
	if len(dirs) != 1 && len(dirs) != c.NumLevels {
		panic(fmt.Sprintf("lsmkv: Config.Path must name 1 or NumLevels=%d directories, got %d", c.NumLevels, len(dirs)))
	}
}

// splitPaths splits a comma-separated path list, dropping empty
// segments, matching original_source/Config.hpp's split().
func splitPaths(path string) []string {
	var out []string
	for _, p := range strings.Split(path, ",") {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// levelConfigs resolves one LevelConfig per level, with
// threshold_i = BaseThreshold * BaseThreshold^i.
func (c Config) levelConfigs() []LevelConfig {
	c.validate()

	dirs := splitPaths(c.Path)
	if len(dirs) == 1 {
		full := dirs[0]
		dirs = make([]string, c.NumLevels)
		for i := range dirs {
			dirs[i] = full
		}
	}

	levels := make([]LevelConfig, c.NumLevels)
	threshold := c.BaseThreshold
	for i := 0; i < c.NumLevels; i++ {
		dbPath := filepath.Join(dirs[i], c.Name)
		levels[i] = LevelConfig{
			Path:      dirs[i],
			DBPath:    dbPath,
			LevelPath: filepath.Join(dbPath, strconv.Itoa(i)),
			Level:     i,
			TableSize: c.TableSize,
			Threshold: threshold,
			Overwrite: c.Overwrite,
		}
		threshold *= c.BaseThreshold
	}
	return levels
}

// Partition derives the configuration for shard index i of a parallel
// store: the same config with Name (and therefore every derived path)
// suffixed "_<i>", mirroring original_source/Config.hpp's
// Config::create_partition.
func (c Config) Partition(i int) Config {
	partitioned := c
	partitioned.Name = fmt.Sprintf("%s_%d", c.Name, i)
	return partitioned
}

func (c Config) logger() logging.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return logging.NewNopLogger()
}

func (c Config) metrics() *metrics.Registry {
	if c.Metrics != nil {
		return c.Metrics
	}
	return metrics.DefaultRegistry()
}
