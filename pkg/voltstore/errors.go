package voltstore

import "errors"

// Error classification sentinels, matching spec's four error kinds
// (bus/storage/strand/frame). Concrete errors wrap one of these; callers
// should classify with errors.Is.
var (
	// ErrStorage reports I/O, serialization, corruption, out-of-range ids,
	// or invalid magic/version in on-disk structures (WAL, sorted runs,
	// T1 snapshots).
	ErrStorage = errors.New("voltstore: storage")

	// ErrStrand reports duplicate strand creation.
	ErrStrand = errors.New("voltstore: strand")

	// ErrWALCorrupt reports a WAL record whose CRC did not validate during
	// replay. Per spec §4.11/§7 this is not surfaced to callers during
	// normal replay (the torn-tail policy silently truncates); it exists
	// for internal helpers and tests that want to assert exactly where
	// replay stopped.
	ErrWALCorrupt = errors.New("voltstore: wal corrupt")

	// ErrSortedRun reports an invalid or corrupt T2 sorted-run file
	// (bad magic, bad version, truncated region). Per spec §7 this fails
	// the entire OpenTier2Store call.
	ErrSortedRun = errors.New("voltstore: sorted run")

	// ErrLocked reports that the data directory is already held by
	// another writer (advisory file lock contention).
	ErrLocked = errors.New("voltstore: locked")
)
