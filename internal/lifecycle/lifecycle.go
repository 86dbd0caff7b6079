package lifecycle

import "sync/atomic"

// Why the console stopped taking submissions.
const (
	ReasonSignal      = "signal"
	ReasonConsoleExit = "console_exit"
)

var reason atomic.Pointer[string]

// SetShuttingDown marks the process as draining for the given reason; an empty reason clears
// the mark. While set, the controller refuses new submissions and /health reports
// shutting-down with 503.
func SetShuttingDown(why string) {
	if why == "" {
		reason.Store(nil)
		return
	}
	reason.Store(&why)
}

// IsShuttingDown reports whether the process is draining.
func IsShuttingDown() bool {
	return reason.Load() != nil
}

// Reason returns the reason passed to SetShuttingDown, or "" when running.
func Reason() string {
	if r := reason.Load(); r != nil {
		return *r
	}
	return ""
}
