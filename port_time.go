package kernel

import "time"

var bootTime = time.Now()

// fallbackNow returns nanoseconds elapsed since package initialization,
// using the Go runtime's monotonic clock reading (time.Since retains the
// monotonic component of a time.Time per the time package's
// documentation), so it never regresses even if wall time is adjusted.
func fallbackNow() int64 {
	return int64(time.Since(bootTime))
}
