package voltstore

import "time"

// nowMicros returns the current wall-clock time as microseconds since the
// Unix epoch, matching the FrameMeta.CreatedAt / WAL timestamp unit used
// throughout the spec.
func nowMicros() int64 {
	return time.Now().UnixMicro()
}
