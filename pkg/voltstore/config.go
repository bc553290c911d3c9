package voltstore

// T2Config configures the on-disk LSM engine.
type T2Config struct {
	// DataDir is the directory sorted-run files live in.
	DataDir string
	// MemtableFlushThreshold is the accumulated byte size that triggers a
	// level-0 flush. Default 4 MiB.
	MemtableFlushThreshold int64
	// MaxRunsPerLevel is the compaction trigger: once a level holds more
	// than this many runs, they are merged into the next level. Default 4.
	MaxRunsPerLevel int
	// MaxLevels caps LSM depth; compaction at the last level is a no-op.
	// Default 4.
	MaxLevels int
	// BloomFPR is the target false-positive rate for per-run bloom filters.
	BloomFPR float64
}

// DefaultT2Config returns the spec's documented defaults.
func DefaultT2Config() T2Config {
	return T2Config{
		DataDir:                "t2",
		MemtableFlushThreshold: 4 * 1024 * 1024,
		MaxRunsPerLevel:        4,
		MaxLevels:              4,
		BloomFPR:               0.01,
	}
}

// GCConfig configures the retention scorer and decay thresholds.
type GCConfig struct {
	WAge     float32
	WGamma   float32
	WRefs    float32
	WPinned  float32
	TauDays  float32

	ThresholdFullToCompressed   float32
	ThresholdCompressedToGist   float32
	ThresholdGistToTombstone    float32
}

// DefaultGCConfig returns the spec's documented defaults.
func DefaultGCConfig() GCConfig {
	return GCConfig{
		WAge:                      0.40,
		WGamma:                    0.35,
		WRefs:                     0.15,
		WPinned:                   0.10,
		TauDays:                   30,
		ThresholdFullToCompressed: 0.7,
		ThresholdCompressedToGist: 0.4,
		ThresholdGistToTombstone:  0.1,
	}
}

// ConsolidationConfig configures the consolidation engine.
type ConsolidationConfig struct {
	MinClusterSize     int
	SimilarityThreshold float32
	WisdomGamma        float32
	QueryK             int
}

// DefaultConsolidationConfig returns the spec's documented defaults.
func DefaultConsolidationConfig() ConsolidationConfig {
	return ConsolidationConfig{
		MinClusterSize:      5,
		SimilarityThreshold: 0.85,
		WisdomGamma:         0.95,
		QueryK:              20,
	}
}

// Config is the top-level configuration for a disk-backed VoltStore.
type Config struct {
	// DataDir is the root directory; T2 and WAL subdirectories are
	// created beneath it.
	DataDir string
	// T1OverflowThreshold triggers T1->T2 demotion. Default 1024.
	T1OverflowThreshold int
	T2                  T2Config
	GC                  GCConfig
	Consolidation       ConsolidationConfig
}

// DefaultConfig returns sensible defaults for all sub-configs, rooted at
// dataDir.
func DefaultConfig(dataDir string) Config {
	t2 := DefaultT2Config()
	t2.DataDir = dataDir + "/t2"
	return Config{
		DataDir:             dataDir,
		T1OverflowThreshold: 1024,
		T2:                  t2,
		GC:                  DefaultGCConfig(),
		Consolidation:       DefaultConsolidationConfig(),
	}
}
