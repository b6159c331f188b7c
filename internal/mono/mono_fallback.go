//go:build !mono

package mono

import "time"

// NanoTime is the default build's clock: time.Now().UnixNano() reports
// wall-clock nanoseconds, which, unlike the runtime.nanotime linkname the
// `mono` build tag pulls in, can jump when the system clock is adjusted.
func NanoTime() int64 { return time.Now().UnixNano() }
