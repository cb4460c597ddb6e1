package lifecycle

import "sync/atomic"

var draining atomic.Bool

// SetShuttingDown flips the drain flag. serve sets it on SIGINT/SIGTERM so
// /health reports shutting-down while in-flight tool calls finish.
func SetShuttingDown(v bool) {
	draining.Store(v)
}

// IsShuttingDown reports whether the process is draining.
func IsShuttingDown() bool {
	return draining.Load()
}
