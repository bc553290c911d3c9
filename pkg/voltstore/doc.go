// Package voltstore implements the tiered memory store: an in-memory ring
// (T0), a promoted in-memory heap with ANN and temporal indexes (T1), an
// on-disk LSM tier (T2), a write-ahead log, a retention-scoring GC pass, and
// a consolidation engine that synthesizes wisdom frames from clusters of
// similar memories. VoltStore itself assumes single-threaded access;
// Concurrent wraps it with a many-reader/single-writer lock for concurrent
// callers.
//
// Two behaviors are intentional contracts, not bugs:
//
// Tombstones persist through compaction indefinitely. There is no
// grace-period GC that expires a tombstone's SupersededBy/TombstonedAt record
// after some age — a tombstone demoted once stays a tombstone until the
// store itself is gone.
//
// ReassignFrameStrand only updates T1 and the ANN soft-delete set. If a
// frame already has a T2-resident compacted copy, that copy keeps its
// original StrandID until GC next demotes the reassigned T1 frame and
// overwrites it — QueryTimeRange and T2 scans may observe the old strand
// for a reassigned frame until that next demotion.
package voltstore
